// Package attrmap maps source product documents onto the attribute schema
// of a marketplace category.
//
// A Client ties together the pieces of a build: the schema provider, the
// static alias table, the learned equivalence store and an optional
// suggestion provider that proposes aliases for attributes nothing else
// resolves. Learned aliases are persisted, so repeated builds for the same
// category ask the provider less and less.
//
// Example usage:
//
//	client, err := attrmap.New(
//	    attrmap.WithSchemaProvider(schema.NewFileProvider("schemas")),
//	    attrmap.WithStore(equivalence.NewFileStore("logs/ai_equivalences_cache.json")),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	client.OnLearned(func(categoryID string, learned equivalence.Cache) {
//	    log.Printf("learned %d equivalences for %s", len(learned), categoryID)
//	})
//
//	result, err := client.BuildBytes(ctx, "CBT1157", data)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, attr := range result.Attributes {
//	    fmt.Printf("%s = %s\n", attr.ID, attr.Value())
//	}
package attrmap

import (
	"context"
	"strings"

	"github.com/agentstation/attrmap/pkg/attributes"
	"github.com/agentstation/attrmap/pkg/equivalence"
	"github.com/agentstation/attrmap/pkg/errors"
	"github.com/agentstation/attrmap/pkg/flatten"
	"github.com/agentstation/attrmap/pkg/schema"
)

// Compile-time interface check to ensure proper implementation.
var _ Client = (*client)(nil)

// Builder runs attribute builds.
type Builder interface {
	// Build fetches the category schema and builds the attributes of doc,
	// a decoded document or a *flatten.Record.
	Build(ctx context.Context, categoryID string, doc any) (*attributes.Result, error)

	// BuildWithSchema builds against an explicit schema.
	BuildWithSchema(ctx context.Context, categoryID string, doc any, s *schema.Schema) (*attributes.Result, error)

	// BuildBytes decodes a JSON or YAML document and builds it.
	BuildBytes(ctx context.Context, categoryID string, data []byte) (*attributes.Result, error)
}

// Client builds attributes and notifies hooks about outcomes.
type Client interface {

	// Builder runs attribute builds
	Builder

	// Hooks provides access to event callback registration
	Hooks

	// Schema returns the schema of a category, empty when unavailable
	Schema(ctx context.Context, categoryID string) *schema.Schema

	// Store returns the equivalence store learned aliases go to
	Store() equivalence.Store
}

// client is the internal implementation of the Client interface.
type client struct {
	options *options
	builder *attributes.Builder
	hooks   *hooks
}

// New creates a new Client with the given options.
func New(opts ...Option) (Client, error) {
	o, err := defaults().apply(opts...)
	if err != nil {
		return nil, err
	}

	c := &client{
		options: o,
		builder: attributes.NewBuilder(attributes.Options{
			BaseAliases:    o.baseAliases,
			Store:          o.store,
			Suggester:      o.suggester,
			Matcher:        o.matcher,
			Logger:         o.logger,
			Recorder:       o.recorder,
			ValueScan:      o.valueScan,
			PreviewEntries: o.previewEntries,
			PreviewChars:   o.previewChars,
		}),
		hooks: newHooks(),
	}

	c.options.logger.Debug().
		Str("store", c.builder.Store().Location()).
		Bool("suggestions", o.suggester != nil).
		Bool("schema_provider", o.schemaProvider != nil).
		Msg("Client created")
	return c, nil
}

// Schema returns the schema of categoryID, degrading to an empty schema.
func (c *client) Schema(ctx context.Context, categoryID string) *schema.Schema {
	return schema.Fetch(ctx, c.options.schemaProvider, categoryID, c.options.logger)
}

// Store returns the equivalence store.
func (c *client) Store() equivalence.Store {
	return c.builder.Store()
}

// Build fetches the category schema, then builds doc against it.
func (c *client) Build(ctx context.Context, categoryID string, doc any) (*attributes.Result, error) {
	if err := validateCategory(categoryID); err != nil {
		return nil, err
	}
	return c.BuildWithSchema(ctx, categoryID, doc, c.Schema(ctx, categoryID))
}

// BuildWithSchema builds doc against s.
func (c *client) BuildWithSchema(ctx context.Context, categoryID string, doc any, s *schema.Schema) (*attributes.Result, error) {
	if err := validateCategory(categoryID); err != nil {
		return nil, err
	}
	res := c.builder.Build(ctx, categoryID, doc, s)
	c.hooks.trigger(res)
	return res, nil
}

// BuildBytes decodes data and builds it.
func (c *client) BuildBytes(ctx context.Context, categoryID string, data []byte) (*attributes.Result, error) {
	doc, err := flatten.Decode(data)
	if err != nil {
		return nil, err
	}
	return c.Build(ctx, categoryID, doc)
}

func validateCategory(categoryID string) error {
	if strings.TrimSpace(categoryID) == "" {
		return errors.NewValidationError("category_id", categoryID, "cannot be empty")
	}
	return nil
}
