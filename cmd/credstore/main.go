package main

import (
	"fmt"
	"os"

	"github.com/awnumar/memguard"
	"github.com/spf13/cobra"
	"github.com/systmms/credstore/cmd/credstore/commands"
	"github.com/systmms/credstore/internal/config"
	dserrors "github.com/systmms/credstore/internal/errors"
	"github.com/systmms/credstore/internal/logging"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	memguard.CatchInterrupt()

	err := run()
	memguard.Purge()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", dserrors.SimplifyError(err))
		os.Exit(dserrors.ExitCode(err))
	}
}

func run() error {
	return NewRootCommand(&config.Config{}).Execute()
}

// NewRootCommand builds the command tree around cfg.
func NewRootCommand(cfg *config.Config) *cobra.Command {
	var (
		configFile      string
		noColor         bool
		debug           bool
		nonInteractive  bool
		metricsTextfile string
	)

	rootCmd := &cobra.Command{
		Use:   "credstore",
		Short: "Store secrets in the operating system keychain",
		Long: `credstore keeps small secrets (tokens, passwords, keys) in the
platform's secure storage: Keychain on macOS, Secret Service on Linux and
Credential Manager on Windows. Entries are grouped into collections so
several applications can share one keychain without clashing.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cfg.Path = configFile
			cfg.Logger = logging.New(debug, noColor)
			cfg.NonInteractive = nonInteractive
			cfg.MetricsTextfile = metricsTextfile
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", config.DefaultPath, "Config file path")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&nonInteractive, "non-interactive", false, "Never prompt for keyring passwords")
	rootCmd.PersistentFlags().StringVar(&metricsTextfile, "metrics-textfile", "", "Write operation metrics to this file")

	rootCmd.AddCommand(
		commands.NewGetCommand(cfg),
		commands.NewStoreCommand(cfg),
		commands.NewDeleteCommand(cfg),
		commands.NewDeleteCollectionCommand(cfg),
		commands.NewKeysCommand(cfg),
		commands.NewDoctorCommand(cfg),
		commands.NewCompletionCommand(cfg),
	)

	return rootCmd
}
