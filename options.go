package attrmap

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/attrmap/pkg/alias"
	"github.com/agentstation/attrmap/pkg/attributes"
	"github.com/agentstation/attrmap/pkg/constants"
	"github.com/agentstation/attrmap/pkg/equivalence"
	"github.com/agentstation/attrmap/pkg/errors"
	"github.com/agentstation/attrmap/pkg/logging"
	"github.com/agentstation/attrmap/pkg/schema"
	"github.com/agentstation/attrmap/pkg/suggest"
)

// Option is a function that configures a Client.
type Option func(*options) error

// options holds the client configuration.
type options struct {
	schemaProvider schema.Provider
	schemaCacheTTL time.Duration
	suggester      suggest.Provider
	store          equivalence.Store
	baseAliases    *alias.Table
	matcher        alias.Matcher
	logger         *zerolog.Logger
	recorder       attributes.Recorder
	valueScan      bool
	previewEntries int
	previewChars   int
}

// defaults returns the default options.
func defaults() *options {
	return &options{
		previewEntries: constants.PreviewEntries,
		previewChars:   constants.PreviewChars,
	}
}

// apply applies opts in order and finalizes derived settings.
func (o *options) apply(opts ...Option) (*options, error) {
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	if o.logger == nil {
		o.logger = logging.NewNopLogger()
	}
	if o.schemaProvider != nil && o.schemaCacheTTL > 0 {
		o.schemaProvider = schema.NewCached(o.schemaProvider, o.schemaCacheTTL, 0)
	}
	if o.store == nil {
		o.store = equivalence.NewFileStore(constants.DefaultCachePath, equivalence.WithFileLogger(o.logger))
	}
	return o, nil
}

// WithSchemaProvider sets where category schemas come from. Without one
// every build runs against an empty schema.
func WithSchemaProvider(p schema.Provider) Option {
	return func(o *options) error {
		o.schemaProvider = p
		return nil
	}
}

// WithSchemaCache memoizes schemas per category for ttl.
func WithSchemaCache(ttl time.Duration) Option {
	return func(o *options) error {
		if ttl < 0 {
			return errors.NewValidationError("schema_cache_ttl", ttl, "must not be negative")
		}
		o.schemaCacheTTL = ttl
		return nil
	}
}

// WithSuggester enables learning through p.
func WithSuggester(p suggest.Provider) Option {
	return func(o *options) error {
		o.suggester = p
		return nil
	}
}

// WithStore sets the equivalence store. Defaults to the JSON file at
// constants.DefaultCachePath.
func WithStore(s equivalence.Store) Option {
	return func(o *options) error {
		o.store = s
		return nil
	}
}

// WithBaseAliases replaces the embedded static alias table.
func WithBaseAliases(t *alias.Table) Option {
	return func(o *options) error {
		o.baseAliases = t
		return nil
	}
}

// WithMatcher sets the alias matching strategy.
func WithMatcher(m alias.Matcher) Option {
	return func(o *options) error {
		o.matcher = m
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(l *zerolog.Logger) Option {
	return func(o *options) error {
		o.logger = l
		return nil
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r attributes.Recorder) Option {
	return func(o *options) error {
		o.recorder = r
		return nil
	}
}

// WithValueScan enables the bare digit scan for product codes.
func WithValueScan(enabled bool) Option {
	return func(o *options) error {
		o.valueScan = enabled
		return nil
	}
}

// WithPreviewLimits bounds the document preview sent to the suggester.
func WithPreviewLimits(entries, chars int) Option {
	return func(o *options) error {
		if entries <= 0 || chars <= 0 {
			return errors.NewValidationError("preview", [2]int{entries, chars}, "limits must be positive")
		}
		o.previewEntries = entries
		o.previewChars = chars
		return nil
	}
}
