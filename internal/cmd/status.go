package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// CmdStatus shows the queue depth and per-scope freshness.
func CmdStatus() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show pending mutations and cache freshness",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, eng, _, err := setup(cmd)
			if err != nil {
				return err
			}
			defer func() {
				_ = eng.Close()
			}()

			items, err := eng.Queue.Items(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("pending mutations: %d\n", len(items))
			for _, item := range items {
				fmt.Printf("  #%d %s %s %s (retries %d, enqueued %s)\n",
					item.ID, item.Operation, item.EntityKind, item.EntityID,
					item.RetryCount, item.EnqueuedAt.Format(time.RFC3339))
			}

			records, err := eng.Store.Reader().ListFreshness(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("cache scopes: %d\n", len(records))
			now := time.Now()
			for _, rec := range records {
				state := "fresh"
				if now.After(rec.ExpiresAt) {
					state = "stale"
				}
				fmt.Printf("  %s %s (updated %s, expires %s)\n",
					rec.Key, state,
					rec.LastUpdated.Format(time.RFC3339),
					rec.ExpiresAt.Format(time.RFC3339))
			}
			return nil
		},
	}
}
