package schema

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"github.com/agentstation/attrmap/internal/transport"
	"github.com/agentstation/attrmap/pkg/constants"
	"github.com/agentstation/attrmap/pkg/errors"
	"github.com/agentstation/attrmap/pkg/logging"
)

// Provider supplies the attribute schema of a category.
type Provider interface {
	Schema(ctx context.Context, categoryID string) (*Schema, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, categoryID string) (*Schema, error)

// Schema implements Provider.
func (f ProviderFunc) Schema(ctx context.Context, categoryID string) (*Schema, error) {
	return f(ctx, categoryID)
}

// Static returns the same schema for every category.
type Static struct {
	schema *Schema
}

// NewStatic wraps s.
func NewStatic(s *Schema) *Static {
	if s == nil {
		s = Empty()
	}
	return &Static{schema: s}
}

// Schema implements Provider.
func (p *Static) Schema(_ context.Context, _ string) (*Schema, error) {
	return p.schema, nil
}

// FileProvider reads schemas from disk. When path is a directory the
// schema of a category is read from "<path>/<category>.json" (or .yaml);
// otherwise the single file is used for every category.
type FileProvider struct {
	path string
}

// NewFileProvider returns a provider reading path.
func NewFileProvider(path string) *FileProvider {
	return &FileProvider{path: path}
}

// Schema implements Provider.
func (p *FileProvider) Schema(_ context.Context, categoryID string) (*Schema, error) {
	path := p.path
	if info, err := os.Stat(p.path); err == nil && info.IsDir() {
		path = ""
		for _, ext := range []string{".json", ".yaml", ".yml"} {
			candidate := filepath.Join(p.path, categoryID+ext)
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
		if path == "" {
			return nil, errors.NewNotFoundError("schema", categoryID)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}
	s, err := Decode(data)
	if err != nil {
		return nil, &errors.ParseError{Format: "schema", File: path, Message: err.Error(), Err: err}
	}
	return s, nil
}

// HTTPConfig configures the marketplace schema API client.
type HTTPConfig struct {
	BaseURL string
	Token   string
	// RateLimit is requests per second; zero disables limiting.
	RateLimit float64
	Burst     int
	Timeout   time.Duration
}

// HTTPProvider fetches "{BaseURL}/categories/{id}/attributes".
type HTTPProvider struct {
	baseURL string
	client  *transport.Client
}

// NewHTTPProvider builds a provider from explicit configuration.
func NewHTTPProvider(cfg HTTPConfig, opts ...transport.Option) *HTTPProvider {
	base := strings.TrimRight(cfg.BaseURL, "/")
	burst := cfg.Burst
	if burst == 0 {
		burst = constants.BurstSize
	}
	all := []transport.Option{transport.WithRateLimit(cfg.RateLimit, burst)}
	if cfg.Timeout > 0 {
		all = append(all, transport.WithHTTPClient(newHTTPClient(cfg.Timeout)))
	}
	all = append(all, opts...)
	return &HTTPProvider{
		baseURL: base,
		client:  transport.New("schema-api", &transport.BearerAuth{}, cfg.Token, all...),
	}
}

// Schema implements Provider.
func (p *HTTPProvider) Schema(ctx context.Context, categoryID string) (*Schema, error) {
	if strings.TrimSpace(categoryID) == "" {
		return nil, errors.NewValidationError("category_id", categoryID, "cannot be empty")
	}
	endpoint := p.baseURL + "/categories/" + url.PathEscape(categoryID) + "/attributes"

	resp, err := p.client.Get(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	body, err := p.client.ReadBody(resp)
	if err != nil {
		return nil, err
	}
	return Decode(body)
}

// Cached memoizes another provider per category for a TTL. Failures are
// never cached.
type Cached struct {
	next  Provider
	store *gocache.Cache
}

// NewCached wraps next with a TTL cache.
func NewCached(next Provider, ttl, cleanupInterval time.Duration) *Cached {
	if ttl <= 0 {
		ttl = constants.SchemaCacheTTL
	}
	if cleanupInterval <= 0 {
		cleanupInterval = constants.SchemaCacheCleanupInterval
	}
	return &Cached{
		next:  next,
		store: gocache.New(ttl, cleanupInterval),
	}
}

// Schema implements Provider.
func (c *Cached) Schema(ctx context.Context, categoryID string) (*Schema, error) {
	if v, ok := c.store.Get(categoryID); ok {
		return v.(*Schema), nil
	}
	s, err := c.next.Schema(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	c.store.Set(categoryID, s, gocache.DefaultExpiration)
	return s, nil
}

// Invalidate drops the cached schema of a category.
func (c *Cached) Invalidate(categoryID string) {
	c.store.Delete(categoryID)
}

// Len returns the number of cached schemas.
func (c *Cached) Len() int {
	return c.store.ItemCount()
}

// Fetch asks p for the schema of categoryID and degrades to an empty
// schema, logging the cause, when p is nil or fails.
func Fetch(ctx context.Context, p Provider, categoryID string, logger *zerolog.Logger) *Schema {
	logger = logging.OrNop(logger)
	if p == nil {
		logger.Warn().Str("category_id", categoryID).Msg("No schema provider configured, using empty schema")
		return Empty()
	}
	s, err := p.Schema(ctx, categoryID)
	if err != nil || s == nil {
		logger.Warn().Err(err).Str("category_id", categoryID).Msg("Schema unavailable, using empty schema")
		return Empty()
	}
	logger.Debug().Str("category_id", categoryID).Int("attributes", s.Len()).Msg("Schema loaded")
	return s
}
