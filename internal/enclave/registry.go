package enclave

import (
	"fmt"
	"os"
	"sort"

	"github.com/99designs/keyring"

	"github.com/systmms/credstore/internal/config"
	dserrors "github.com/systmms/credstore/internal/errors"
	"github.com/systmms/credstore/pkg/credstore"
)

// FilePasswordEnv names the environment variable holding the file
// backend password.
const FilePasswordEnv = "CREDSTORE_FILE_PASSWORD"

// Registry manages enclave creation by backend type
type Registry struct {
	factories map[string]Factory
}

// Factory creates an enclave from configuration
type Factory func(cfg config.BackendConfig, opts FactoryOptions) (credstore.Enclave, error)

// FactoryOptions carries runtime settings that are not part of the file
type FactoryOptions struct {
	// NonInteractive disables terminal password prompts
	NonInteractive bool

	// Getenv looks up environment variables; defaults to os.Getenv
	Getenv func(string) string

	// Logger receives adapter warnings such as index repairs
	Logger Logger
}

// NewRegistry creates a new registry with the built-in backends
func NewRegistry() *Registry {
	registry := &Registry{
		factories: make(map[string]Factory),
	}

	registry.RegisterFactory(config.BackendOS, NewOSKeyringFactory)
	registry.RegisterFactory(config.BackendKeyring, NewRingFactory)
	registry.RegisterFactory(config.BackendFile, NewFileRingFactory)

	return registry
}

// RegisterFactory registers a factory for a backend type
func (r *Registry) RegisterFactory(backendType string, factory Factory) {
	r.factories[backendType] = factory
}

// Types lists the registered backend types
func (r *Registry) Types() []string {
	types := make([]string, 0, len(r.factories))
	for t := range r.factories {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Create builds the enclave for cfg
func (r *Registry) Create(cfg config.BackendConfig, opts FactoryOptions) (credstore.Enclave, error) {
	factory, exists := r.factories[cfg.Type]
	if !exists {
		return nil, dserrors.ConfigError{
			Field:      "backend.type",
			Value:      cfg.Type,
			Message:    "unknown backend type",
			Suggestion: fmt.Sprintf("Supported backend types: %v", r.Types()),
		}
	}
	if opts.Getenv == nil {
		opts.Getenv = os.Getenv
	}

	return factory(cfg, opts)
}

// NewOSKeyringFactory creates the go-keyring backed adapter
func NewOSKeyringFactory(cfg config.BackendConfig, opts FactoryOptions) (credstore.Enclave, error) {
	o := NewOSKeyring(cfg.ServicePrefix)
	if opts.Logger != nil {
		o.SetLogger(opts.Logger)
	}
	return o, nil
}

// NewRingFactory creates the 99designs keyring adapter with the configured
// backend list
func NewRingFactory(cfg config.BackendConfig, opts FactoryOptions) (credstore.Enclave, error) {
	ringCfg, err := ringConfig(cfg, opts)
	if err != nil {
		return nil, err
	}
	for _, b := range cfg.AllowedBackends {
		ringCfg.AllowedBackends = append(ringCfg.AllowedBackends, keyring.BackendType(b))
	}
	return NewRing(ringCfg), nil
}

// NewFileRingFactory creates the encrypted file keyring adapter
func NewFileRingFactory(cfg config.BackendConfig, opts FactoryOptions) (credstore.Enclave, error) {
	ringCfg, err := ringConfig(cfg, opts)
	if err != nil {
		return nil, err
	}
	ringCfg.AllowedBackends = []keyring.BackendType{keyring.FileBackend}
	return NewRing(ringCfg), nil
}

func ringConfig(cfg config.BackendConfig, opts FactoryOptions) (RingConfig, error) {
	dir, err := config.ExpandPath(cfg.FileDir)
	if err != nil {
		return RingConfig{}, dserrors.ConfigError{
			Field:      "backend.file_dir",
			Value:      cfg.FileDir,
			Message:    "cannot resolve home directory",
			Suggestion: "Use an absolute path",
		}
	}

	return RingConfig{
		ServicePrefix:    cfg.ServicePrefix,
		KeychainName:     cfg.KeychainName,
		FileDir:          dir,
		FilePasswordFunc: filePasswordFunc(opts),
	}, nil
}

// filePasswordFunc prefers the environment, then a terminal prompt unless
// prompting is disabled
func filePasswordFunc(opts FactoryOptions) keyring.PromptFunc {
	getenv := opts.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	if password := getenv(FilePasswordEnv); password != "" {
		return keyring.FixedStringPrompt(password)
	}
	if opts.NonInteractive {
		return func(string) (string, error) {
			return "", ErrPasswordRequired
		}
	}
	return keyring.TerminalPrompt
}
