package commands

import (
	"bytes"

	"github.com/systmms/credstore/internal/config"
	"github.com/systmms/credstore/internal/enclave"
	dserrors "github.com/systmms/credstore/internal/errors"
	"github.com/systmms/credstore/internal/metrics"
	"github.com/systmms/credstore/pkg/credstore"
)

// session bundles the store built for one command run
type session struct {
	cfg      *config.Config
	store    *credstore.Keychain
	recorder *metrics.Recorder
}

func factoryOptions(cfg *config.Config) enclave.FactoryOptions {
	opts := enclave.FactoryOptions{NonInteractive: cfg.NonInteractive}
	if cfg.Logger != nil {
		opts.Logger = cfg.Logger
	}
	return opts
}

// openSession loads configuration and builds the configured store
func openSession(cfg *config.Config) (*session, error) {
	if err := cfg.Load(); err != nil {
		return nil, err
	}

	backend := cfg.Definition.Backend
	enc, err := enclave.NewRegistry().Create(backend, factoryOptions(cfg))
	if err != nil {
		return nil, err
	}

	recorder := metrics.NewRecorder(backend.Type)

	opts := cfg.Definition.StoreOptions()
	opts.Observer = recorder
	if cfg.Logger != nil {
		opts.Logger = cfg.Logger
	}

	return &session{
		cfg:      cfg,
		store:    credstore.New(enc, opts),
		recorder: recorder,
	}, nil
}

// wrapErr turns store errors into user-facing errors for the backend in use
func (s *session) wrapErr(operation string, err error) error {
	return dserrors.StoreError(s.cfg.Definition.Backend.Type, operation, err)
}

// close flushes metrics if a textfile destination is configured
func (s *session) close() {
	path := s.cfg.MetricsTextfile
	if path == "" {
		path = s.cfg.Definition.Metrics.Textfile
	}
	if path == "" {
		return
	}
	if err := s.recorder.WriteTextfile(path); err != nil && s.cfg.Logger != nil {
		s.cfg.Logger.Warn("failed to write metrics to %s: %v", path, err)
	}
}

// trimNewline drops one trailing line ending, as left by echo or a
// terminal paste
func trimNewline(b []byte) []byte {
	b = bytes.TrimSuffix(b, []byte("\n"))
	return bytes.TrimSuffix(b, []byte("\r"))
}
