package appcontext

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/agentstation/attrmap"
	"github.com/agentstation/attrmap/internal/metrics"
	"github.com/agentstation/attrmap/pkg/equivalence"
)

// Mock provides an Interface for command tests. Clients are built with an
// in-memory store and a no-op logger, then Options, so tests override
// either by passing their own.
//
// Example Usage:
//
//	store := equivalence.NewMemoryStore(nil)
//	mock := &appcontext.Mock{
//	    Options: []attrmap.Option{
//	        attrmap.WithStore(store),
//	        attrmap.WithSchemaProvider(schema.NewStatic(s)),
//	    },
//	    Format: "json",
//	}
//	cmd := build.NewCommand(mock)
type Mock struct {
	Options  []attrmap.Option
	Format   string
	Recorder *metrics.Recorder

	once   sync.Once
	client attrmap.Client
	err    error
}

// Client returns the shared mock client.
func (m *Mock) Client() (attrmap.Client, error) {
	m.once.Do(func() {
		m.client, m.err = m.ClientWithOptions()
	})
	return m.client, m.err
}

// ClientWithOptions returns a new client with opts applied after Options.
func (m *Mock) ClientWithOptions(opts ...attrmap.Option) (attrmap.Client, error) {
	all := []attrmap.Option{
		attrmap.WithStore(equivalence.NewMemoryStore(nil)),
		attrmap.WithLogger(m.Logger()),
		attrmap.WithRecorder(m.Metrics()),
	}
	all = append(all, m.Options...)
	return attrmap.New(append(all, opts...)...)
}

// Metrics returns Recorder, creating one on first use.
func (m *Mock) Metrics() *metrics.Recorder {
	if m.Recorder == nil {
		m.Recorder = metrics.New("attrmap_test")
	}
	return m.Recorder
}

// Logger returns a no-op logger.
func (m *Mock) Logger() *zerolog.Logger {
	logger := zerolog.Nop()
	return &logger
}

// OutputFormat returns Format, or "json" when unset.
func (m *Mock) OutputFormat() string {
	if m.Format == "" {
		return "json"
	}
	return m.Format
}

// Version returns "dev".
func (m *Mock) Version() string { return "dev" }

// Commit returns "unknown".
func (m *Mock) Commit() string { return "unknown" }

// Date returns "unknown".
func (m *Mock) Date() string { return "unknown" }

// BuiltBy returns "test".
func (m *Mock) BuiltBy() string { return "test" }

// Ensure Mock implements Interface at compile time.
var _ Interface = (*Mock)(nil)
