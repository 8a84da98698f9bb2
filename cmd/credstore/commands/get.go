package commands

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/spf13/cobra"
	"github.com/systmms/credstore/internal/config"
	"github.com/systmms/credstore/internal/secure"
	"github.com/systmms/credstore/pkg/credstore"
)

func NewGetCommand(cfg *config.Config) *cobra.Command {
	var (
		collection string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "get KEY",
		Short: "Print a stored secret",
		Long: `Retrieve a secret from the configured keyring and print it to stdout.

By default only the raw secret is printed, making the command suitable
for scripting. With --json the secret is printed with its address; binary
secrets are base64 encoded.

Examples:
  # Print a token from the default collection
  credstore get token

  # Read from a specific collection
  credstore get --collection work api-key

  # Use in scripts
  export API_TOKEN=$(credstore get token)`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]

			s, err := openSession(cfg)
			if err != nil {
				return err
			}
			defer s.close()

			secret, err := s.store.Get(context.Background(), collection, key)
			if err != nil {
				return s.wrapErr("get", err)
			}

			if jsonOutput {
				return writeJSONSecret(cmd, s, collection, key, secret)
			}

			buf, err := secure.NewSecureBuffer(secret)
			if err != nil {
				return fmt.Errorf("failed to protect secret: %w", err)
			}
			defer buf.Destroy()

			if _, err := buf.WriteTo(cmd.OutOrStdout()); err != nil {
				return fmt.Errorf("failed to write secret: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&collection, "collection", "c", "", "Collection name (default from configuration)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output in JSON format with metadata")

	return cmd
}

func writeJSONSecret(cmd *cobra.Command, s *session, collection, key string, secret []byte) error {
	defer secure.Wipe(secret)

	def := s.cfg.Definition.StoreOptions().DefaultCollection
	if def == "" {
		def = credstore.DefaultCollection
	}
	if normalized, err := credstore.NormalizeCollection(collection, def); err == nil {
		collection = normalized
	}

	output := map[string]interface{}{
		"collection": collection,
		"key":        key,
		"backend":    s.store.Enclave().Capabilities().Backend,
	}
	if utf8.Valid(secret) {
		output["value"] = string(secret)
		output["encoding"] = "utf-8"
	} else {
		output["value"] = base64.StdEncoding.EncodeToString(secret)
		output["encoding"] = "base64"
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(output); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}
