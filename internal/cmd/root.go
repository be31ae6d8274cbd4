// Package cmd implements the shoreline command line interface.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/coxswain-app/shoreline/internal/config"
	"github.com/coxswain-app/shoreline/internal/engine"
	"github.com/coxswain-app/shoreline/internal/logger"
)

// Execute runs the root command.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// NewRootCommand builds the shoreline CLI.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "shoreline",
		Short: "Offline-first sync engine for team schedules, lineups, and regattas",
		Long: `Shoreline keeps a local mirror of schedules, lineups, and regatta entries
usable while offline, queues local edits durably, and reconciles them with
the remote system of record when connectivity returns.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().String("config", "", "config file path")

	rootCmd.AddCommand(CmdSync())
	rootCmd.AddCommand(CmdStatus())
	rootCmd.AddCommand(CmdCleanup())
	return rootCmd
}

// setup loads configuration and builds the engine for a subcommand run.
func setup(cmd *cobra.Command) (context.Context, *engine.Engine, *config.Config, error) {
	configFile, _ := cmd.Flags().GetString("config")

	var loaderOpts []config.LoaderOption
	if configFile != "" {
		loaderOpts = append(loaderOpts, config.WithConfigFile(configFile))
	}
	cfg, err := config.NewLoader(loaderOpts...).Load()
	if err != nil {
		return nil, nil, nil, err
	}

	var logOpts []logger.Option
	if cfg.Debug {
		logOpts = append(logOpts, logger.WithDebug())
	}
	logOpts = append(logOpts, logger.WithFormat(cfg.LogFormat))
	ctx := logger.WithLogger(cmd.Context(), logger.NewLogger(logOpts...))

	eng, err := engine.New(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	return ctx, eng, cfg, nil
}
