package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/systmms/credstore/internal/config"
)

func NewDeleteCollectionCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete-collection [COLLECTION]",
		Short: "Delete every secret in a collection",
		Long: `Remove all secrets stored under a collection and print how many were
removed. A collection that never existed removes 0 entries.

Examples:
  # Sign out of every account stored under "work"
  credstore delete-collection work`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var collection string
			if len(args) == 1 {
				collection = args[0]
			}

			s, err := openSession(cfg)
			if err != nil {
				return err
			}
			defer s.close()

			removed, err := s.store.DeleteCollection(context.Background(), collection)
			if err != nil {
				if removed > 0 && cfg.Logger != nil {
					cfg.Logger.Warn("%d entries were removed before the failure", removed)
				}
				return s.wrapErr("delete-collection", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), removed)
			return nil
		},
	}

	return cmd
}
