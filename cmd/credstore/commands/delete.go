package commands

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/systmms/credstore/internal/config"
	"github.com/systmms/credstore/pkg/credstore"
)

func NewDeleteCommand(cfg *config.Config) *cobra.Command {
	var (
		collection string
		strict     bool
	)

	cmd := &cobra.Command{
		Use:   "delete KEY",
		Short: "Delete a secret",
		Long: `Delete a secret from the configured keyring.

Deleting a secret that does not exist succeeds silently unless --strict
is given (or strict_delete is set in credstore.yaml), in which case the
command exits with status 2.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]

			s, err := openSession(cfg)
			if err != nil {
				return err
			}
			defer s.close()

			var opts []credstore.DeleteOption
			if strict {
				opts = append(opts, credstore.Strict())
			}

			if err := s.store.Delete(context.Background(), collection, key, opts...); err != nil {
				return s.wrapErr("delete", err)
			}

			if cfg.Logger != nil {
				cfg.Logger.Info("Deleted %s", key)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&collection, "collection", "c", "", "Collection name (default from configuration)")
	cmd.Flags().BoolVar(&strict, "strict", false, "Fail if the secret does not exist")

	return cmd
}
