// Package app provides the application context and dependency management
// for the attrmap CLI. It centralizes configuration, logging and the
// lazily created client shared by all commands.
package app

import (
	"context"
	"io"
	"sync"

	"github.com/rs/zerolog"

	"github.com/agentstation/attrmap"
	"github.com/agentstation/attrmap/internal/appcontext"
	"github.com/agentstation/attrmap/internal/metrics"
	"github.com/agentstation/attrmap/pkg/alias"
	"github.com/agentstation/attrmap/pkg/equivalence"
	"github.com/agentstation/attrmap/pkg/errors"
	"github.com/agentstation/attrmap/pkg/schema"
	"github.com/agentstation/attrmap/pkg/suggest"
)

var _ appcontext.Interface = (*App)(nil)

// App represents the attrmap application with all its dependencies.
type App struct {
	// Version information
	version string
	commit  string
	date    string
	builtBy string

	config  *Config
	logger  *zerolog.Logger
	metrics *metrics.Recorder

	// Client instance (lazy-initialized, singleton)
	mu      sync.RWMutex
	client  attrmap.Client
	closers []io.Closer
}

// New creates a new App instance with the given version information.
// The app is initialized with default configuration that can be
// customized using functional options.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
	}

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	if app.config == nil {
		config, err := LoadConfig()
		if err != nil {
			return nil, errors.WrapResource("load", "config", "", err)
		}
		app.config = config
	}

	if app.logger == nil {
		logger := NewLogger(app.config)
		app.logger = &logger
	}

	if app.metrics == nil {
		app.metrics = metrics.New(metrics.DefaultNamespace)
	}

	return app, nil
}

// Version returns the version information.
func (a *App) Version() string {
	return a.version
}

// Commit returns the git commit hash.
func (a *App) Commit() string {
	return a.commit
}

// Date returns the build date.
func (a *App) Date() string {
	return a.date
}

// BuiltBy returns the build system identifier.
func (a *App) BuiltBy() string {
	return a.builtBy
}

// Config returns the application configuration.
func (a *App) Config() *Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// Metrics returns the application metrics recorder.
func (a *App) Metrics() *metrics.Recorder {
	return a.metrics
}

// OutputFormat returns the configured output format.
func (a *App) OutputFormat() string {
	return a.config.Format
}

// Client returns the client, creating it lazily if needed.
func (a *App) Client() (attrmap.Client, error) {
	a.mu.RLock()
	if a.client != nil {
		c := a.client
		a.mu.RUnlock()
		return c, nil
	}
	a.mu.RUnlock()

	a.mu.Lock()
	defer a.mu.Unlock()

	// Double-check after acquiring write lock
	if a.client != nil {
		return a.client, nil
	}

	c, err := a.newClient()
	if err != nil {
		return nil, err
	}
	a.client = c
	return c, nil
}

// ClientWithOptions returns a new client with opts applied after the
// configured ones.
func (a *App) ClientWithOptions(opts ...attrmap.Option) (attrmap.Client, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.newClient(opts...)
}

// newClient must be called with a.mu held.
func (a *App) newClient(extra ...attrmap.Option) (attrmap.Client, error) {
	opts, err := a.buildClientOptions()
	if err != nil {
		return nil, err
	}
	c, err := attrmap.New(append(opts, extra...)...)
	if err != nil {
		return nil, errors.WrapResource("create", "client", "", err)
	}
	return c, nil
}

// Shutdown releases resources held by clients, such as Redis connections.
func (a *App) Shutdown(_ context.Context) error {
	a.mu.Lock()
	closers := a.closers
	a.closers = nil
	a.mu.Unlock()

	for _, c := range closers {
		if err := c.Close(); err != nil {
			a.logger.Error().Err(err).Msg("Failed to close resource during shutdown")
		}
	}
	return nil
}

// buildClientOptions constructs client options from the app configuration.
func (a *App) buildClientOptions() ([]attrmap.Option, error) {
	cfg := a.config
	opts := []attrmap.Option{
		attrmap.WithLogger(a.logger),
		attrmap.WithRecorder(a.metrics),
		attrmap.WithValueScan(cfg.ValueScan),
		attrmap.WithPreviewLimits(cfg.Suggest.PreviewEntries, cfg.Suggest.PreviewChars),
	}

	if p := a.schemaProvider(); p != nil {
		opts = append(opts, attrmap.WithSchemaProvider(p), attrmap.WithSchemaCache(cfg.Schema.CacheTTL))
	} else {
		a.logger.Debug().Msg("No schema source configured, builds run against an empty schema")
	}

	store, err := a.store()
	if err != nil {
		return nil, err
	}
	opts = append(opts, attrmap.WithStore(store))

	if cfg.AliasesPath != "" {
		overlay, err := alias.LoadTable(cfg.AliasesPath)
		if err != nil {
			return nil, err
		}
		base := alias.DefaultTable()
		base.Merge(overlay)
		opts = append(opts, attrmap.WithBaseAliases(base))
	}

	if cfg.Match.Strategy == MatchScored {
		opts = append(opts, attrmap.WithMatcher(alias.NewScored(cfg.Match.Threshold)))
	}

	if cfg.Suggest.Enabled {
		g, err := suggest.NewGemini(context.Background(), suggest.GeminiConfig{
			APIKey:      cfg.Suggest.APIKey,
			Model:       cfg.Suggest.Model,
			Temperature: cfg.Suggest.Temperature,
			Project:     cfg.Suggest.Project,
			Location:    cfg.Suggest.Location,
			Logger:      a.logger,
		})
		if err != nil {
			a.logger.Warn().Err(err).Msg("Suggestions disabled")
		} else {
			opts = append(opts, attrmap.WithSuggester(g))
		}
	}

	return opts, nil
}

// schemaProvider returns the configured schema source, nil when none is.
func (a *App) schemaProvider() schema.Provider {
	cfg := a.config.Schema
	switch {
	case cfg.Dir != "":
		return schema.NewFileProvider(cfg.Dir)
	case cfg.BaseURL != "":
		return schema.NewHTTPProvider(schema.HTTPConfig{
			BaseURL:   cfg.BaseURL,
			Token:     cfg.Token,
			RateLimit: cfg.RateLimit,
			Timeout:   cfg.Timeout,
		})
	default:
		return nil
	}
}

// store opens the configured equivalence store. Must be called with a.mu held.
func (a *App) store() (equivalence.Store, error) {
	cfg := a.config.Cache
	switch cfg.Backend {
	case BackendMemory:
		return equivalence.NewMemoryStore(nil), nil
	case BackendRedis:
		s, err := equivalence.NewRedisStore(context.Background(), equivalence.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Key:      cfg.RedisKey,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, s)
		return s, nil
	default:
		return equivalence.NewFileStore(cfg.Path,
			equivalence.WithLock(cfg.Lock),
			equivalence.WithFileLogger(a.logger),
		), nil
	}
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		if err := config.Validate(); err != nil {
			return err
		}
		a.config = config
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// WithClient sets a custom client (useful for testing).
func WithClient(c attrmap.Client) Option {
	return func(a *App) error {
		a.client = c
		return nil
	}
}
