package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/systmms/credstore/internal/config"
	dserrors "github.com/systmms/credstore/internal/errors"
	"github.com/systmms/credstore/internal/secure"
)

func NewStoreCommand(cfg *config.Config) *cobra.Command {
	var (
		collection  string
		value       string
		keepNewline bool
	)

	cmd := &cobra.Command{
		Use:   "store KEY",
		Short: "Create or overwrite a secret",
		Long: `Store a secret in the configured keyring, replacing any existing value.

The secret is read from stdin into locked memory. A single trailing
newline read from stdin is removed unless --keep-newline is set. --value
is stored exactly as given; it is accepted for convenience but leaves the
secret in your shell history.

Examples:
  # Store from a pipe
  printf '%s' "$TOKEN" | credstore store token

  # Store a file in another collection
  credstore store --collection work tls-key < key.pem --keep-newline`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]

			var (
				buf       *secure.SecureBuffer
				err       error
				fromStdin = !cmd.Flags().Changed("value")
			)
			if !fromStdin {
				if cfg.Logger != nil {
					cfg.Logger.Warn("--value exposes the secret to shell history and process listings")
				}
				buf, err = secure.NewSecureBuffer([]byte(value))
			} else {
				buf, err = secure.ReadSecureBuffer(cmd.InOrStdin())
			}
			if err != nil {
				return dserrors.UserError{
					Message:    "Failed to read secret",
					Suggestion: "Pipe the secret on stdin or pass --value",
					Err:        err,
				}
			}
			defer buf.Destroy()

			s, err := openSession(cfg)
			if err != nil {
				return err
			}
			defer s.close()

			locked, err := buf.Open()
			if err != nil {
				return fmt.Errorf("failed to open protected secret: %w", err)
			}
			defer locked.Destroy()

			secret := locked.Bytes()
			if fromStdin && !keepNewline {
				secret = trimNewline(secret)
			}

			if err := s.store.Store(context.Background(), collection, key, secret); err != nil {
				return s.wrapErr("store", err)
			}

			if cfg.Logger != nil {
				cfg.Logger.Info("Stored %s (%d bytes)", key, len(secret))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&collection, "collection", "c", "", "Collection name (default from configuration)")
	cmd.Flags().StringVar(&value, "value", "", "Secret value (prefer stdin)")
	cmd.Flags().BoolVar(&keepNewline, "keep-newline", false, "Keep a trailing newline read from stdin")

	return cmd
}
