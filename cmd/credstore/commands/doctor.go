package commands

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/systmms/credstore/internal/config"
	"github.com/systmms/credstore/internal/enclave"
	"github.com/systmms/credstore/pkg/credstore"
)

// headlessProber is implemented by adapters that can tell whether unlock
// prompts can be shown
type headlessProber interface {
	Headless() bool
}

func NewDoctorCommand(cfg *config.Config) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check that the configured keyring is usable",
		Long: `Verify that the credential store is properly configured and reachable.

This command checks:
- Configuration file validity
- Backend availability on this platform
- Whether unlock prompts can be shown (headless sessions)
- That the keyring answers a probe request`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			if err := cfg.Load(); err != nil {
				if cfg.Logger != nil {
					cfg.Logger.Error("Configuration error: %v", err)
				}
				return fmt.Errorf("failed to load config: %w", err)
			}

			backend := cfg.Definition.Backend
			enc, err := enclave.NewRegistry().Create(backend, factoryOptions(cfg))
			if err != nil {
				return err
			}

			health := BackendHealth{
				Type:         backend.Type,
				Prefix:       backend.ServicePrefix,
				Capabilities: enc.Capabilities(),
			}
			if p, ok := enc.(headlessProber); ok {
				health.Headless = p.Headless()
			}
			if r, ok := enc.(*enclave.Ring); ok {
				for _, b := range r.Backends() {
					health.Backends = append(health.Backends, string(b))
				}
			}

			if err := enc.Validate(); err != nil {
				health.Status = "error"
				health.Error = err.Error()
				health.Code = credstore.CodeOf(err)
			} else {
				health.Status = "healthy"
			}

			displayBackendHealth(out, health, verbose)

			if health.Headless && cfg.Logger != nil {
				cfg.Logger.Warn("Headless session detected: unlock and biometric prompts cannot be shown. Consider 'backend.type: file'")
			}

			if health.Status != "healthy" {
				return fmt.Errorf("backend %s is not healthy (%s)", backend.Type, health.Code)
			}

			if cfg.Logger != nil {
				cfg.Logger.Info("Credential store is ready")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&verbose, "verbose", false, "Show adapter capabilities")

	return cmd
}

// BackendHealth represents the health status of the configured backend
type BackendHealth struct {
	Type         string
	Prefix       string
	Status       string // healthy, error
	Error        string
	Code         credstore.Code
	Headless     bool
	Backends     []string
	Capabilities credstore.Capabilities
}

// displayBackendHealth shows backend health in a formatted table
func displayBackendHealth(out io.Writer, health BackendHealth, verbose bool) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintf(w, "BACKEND\tPREFIX\tSTATUS\tMESSAGE\n")
	_, _ = fmt.Fprintf(w, "-------\t------\t------\t-------\n")

	status := "✓ " + health.Status
	message := "Keyring is reachable"
	if health.Status != "healthy" {
		status = "✗ " + health.Status
		message = health.Error
	}
	_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", health.Type, health.Prefix, status, message)
	_ = w.Flush()

	if !verbose {
		return
	}

	caps := health.Capabilities
	_, _ = fmt.Fprintf(out, "\n%s capabilities:\n", caps.Backend)
	_, _ = fmt.Fprintf(out, "  • Native enumeration: %t\n", caps.NativeEnumeration)
	_, _ = fmt.Fprintf(out, "  • Binary values: %t\n", caps.SupportsBinary)
	_, _ = fmt.Fprintf(out, "  • May prompt: %t\n", caps.MayPrompt)
	_, _ = fmt.Fprintf(out, "  • Headless session: %t\n", health.Headless)
	if len(health.Backends) > 0 {
		_, _ = fmt.Fprintf(out, "  • Usable keyring backends: %v\n", health.Backends)
	}
}
