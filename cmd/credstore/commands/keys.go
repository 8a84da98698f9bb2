package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/systmms/credstore/internal/config"
)

func NewKeysCommand(cfg *config.Config) *cobra.Command {
	var (
		collection string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "keys",
		Short: "List the keys of a collection",
		Long: `List the key names stored in a collection, one per line.
Secret values are never read.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cfg)
			if err != nil {
				return err
			}
			defer s.close()

			keys, err := s.store.Keys(context.Background(), collection)
			if err != nil {
				return s.wrapErr("keys", err)
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				encoder := json.NewEncoder(out)
				encoder.SetIndent("", "  ")
				return encoder.Encode(keys)
			}
			for _, k := range keys {
				fmt.Fprintln(out, k)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&collection, "collection", "c", "", "Collection name (default from configuration)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output a JSON array")

	return cmd
}
