package config

import (
	"os"
	"path/filepath"
	"strings"

	dserrors "github.com/systmms/credstore/internal/errors"
	"github.com/systmms/credstore/internal/logging"
	"github.com/systmms/credstore/pkg/credstore"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the configuration file used when --config is not given.
// Unlike an explicit path, it may be absent.
const DefaultPath = "credstore.yaml"

// Backend types understood by the enclave registry
const (
	BackendOS      = "os"
	BackendKeyring = "keyring"
	BackendFile    = "file"
)

// Config holds the runtime configuration
type Config struct {
	Path            string
	Logger          *logging.Logger
	NonInteractive  bool
	MetricsTextfile string
	Definition      *Definition
}

// Definition represents the credstore.yaml structure
type Definition struct {
	Version           int           `yaml:"version"`
	Backend           BackendConfig `yaml:"backend"`
	DefaultCollection string        `yaml:"default_collection,omitempty"`
	StrictDelete      bool          `yaml:"strict_delete,omitempty"`
	Metrics           MetricsConfig `yaml:"metrics,omitempty"`
}

// BackendConfig selects and configures the enclave adapter
type BackendConfig struct {
	Type string `yaml:"type"`

	// ServicePrefix is prepended to collection names to form the keyring
	// service, e.g. "com.example.app" + "default" -> "com.example.app.default"
	ServicePrefix string `yaml:"service_prefix,omitempty"`

	// AllowedBackends restricts the 99designs keyring backends tried, in
	// order (keychain, secret-service, kwallet, wincred, pass, keyctl, file)
	AllowedBackends []string `yaml:"allowed_backends,omitempty"`

	// KeychainName (macOS only) selects a keychain other than login
	KeychainName string `yaml:"keychain_name,omitempty"`

	// FileDir is where the encrypted file backend keeps its collections
	FileDir string `yaml:"file_dir,omitempty"`
}

// MetricsConfig controls Prometheus textfile output
type MetricsConfig struct {
	Textfile string `yaml:"textfile,omitempty"`
}

// Default returns the configuration used when no file is present.
func Default() *Definition {
	return &Definition{
		Version: 0,
		Backend: BackendConfig{
			Type:          BackendOS,
			ServicePrefix: "credstore",
			FileDir:       "~/.credstore/keyring",
		},
		DefaultCollection: credstore.DefaultCollection,
	}
}

// Load reads and parses the configuration file. A missing file is only an
// error when the path was chosen explicitly.
func (c *Config) Load() error {
	if c.Path == "" {
		c.Path = DefaultPath
	}

	data, err := os.ReadFile(c.Path)
	if err != nil {
		if os.IsNotExist(err) {
			if c.Path == DefaultPath {
				c.debug("no %s found, using defaults", DefaultPath)
				c.Definition = Default()
				return nil
			}
			return dserrors.ConfigError{
				Field:      "path",
				Value:      c.Path,
				Message:    "configuration file not found",
				Suggestion: "Check the --config path, or omit it to use built-in defaults",
			}
		}
		return dserrors.UserError{
			Message:    "Failed to read configuration file",
			Details:    err.Error(),
			Suggestion: "Check file permissions and path",
			Err:        err,
		}
	}

	def, err := Parse(data)
	if err != nil {
		return err
	}

	c.Definition = def
	c.debug("loaded configuration from %s (backend: %s)", c.Path, def.Backend.Type)
	return nil
}

// Parse decodes and validates a credstore.yaml document, filling defaults
// for omitted fields.
func Parse(data []byte) (*Definition, error) {
	var raw interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, dserrors.ConfigError{
			Message:    "invalid YAML syntax in configuration file",
			Suggestion: "Check for indentation errors, missing quotes, or invalid characters. Use a YAML validator",
		}
	}

	if raw != nil {
		if err := validateSchema(raw); err != nil {
			return nil, err
		}
	}

	def := Default()
	if err := yaml.Unmarshal(data, def); err != nil {
		return nil, dserrors.ConfigError{
			Message:    "configuration does not match the expected structure",
			Suggestion: "Compare your file with the example in the README",
		}
	}

	if def.Version != 0 {
		return nil, dserrors.ConfigError{
			Field:      "version",
			Value:      def.Version,
			Message:    "unsupported configuration version",
			Suggestion: "Set 'version: 0' at the top of your credstore.yaml file",
		}
	}

	if _, err := credstore.NormalizeCollection(def.DefaultCollection, credstore.DefaultCollection); err != nil {
		return nil, dserrors.ConfigError{
			Field:      "default_collection",
			Value:      def.DefaultCollection,
			Message:    "invalid collection name",
			Suggestion: "Use a non-empty name without control characters",
		}
	}

	return def, nil
}

// StoreOptions converts the definition into credstore options.
func (d *Definition) StoreOptions() credstore.Options {
	return credstore.Options{
		DefaultCollection: strings.TrimSpace(d.DefaultCollection),
		StrictDelete:      d.StrictDelete,
	}
}

// ExpandPath resolves a leading "~" to the user's home directory.
func ExpandPath(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

func (c *Config) debug(format string, args ...interface{}) {
	if c.Logger != nil {
		c.Logger.Debug(format, args...)
	}
}
