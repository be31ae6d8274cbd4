package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// CmdCleanup removes cached regattas that ended more than a week ago.
func CmdCleanup() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Remove cached regattas past their retention period",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, eng, _, err := setup(cmd)
			if err != nil {
				return err
			}
			defer func() {
				_ = eng.Close()
			}()

			removed, err := eng.Cache.CleanupOldRegattaCache(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("removed %d regattas\n", removed)
			return nil
		},
	}
}
