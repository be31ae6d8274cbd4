package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// CmdSync runs one drain pass over the pending mutation queue.
func CmdSync() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Drain the pending mutation queue once",
		Long: `Process every pending mutation against the remote system in enqueue
order and report how many synced, failed, and remain queued.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, eng, _, err := setup(cmd)
			if err != nil {
				return err
			}
			defer func() {
				_ = eng.Close()
			}()

			result, err := eng.Queue.Drain(ctx)
			if err != nil {
				return fmt.Errorf("drain failed: %w", err)
			}

			fmt.Printf("processed=%d failed=%d remaining=%d\n",
				result.Processed, result.Failed, result.Remaining)
			return nil
		},
	}
}
