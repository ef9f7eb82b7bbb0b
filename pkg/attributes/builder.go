package attributes

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/agentstation/attrmap/pkg/alias"
	"github.com/agentstation/attrmap/pkg/constants"
	"github.com/agentstation/attrmap/pkg/dimensions"
	"github.com/agentstation/attrmap/pkg/equivalence"
	"github.com/agentstation/attrmap/pkg/flatten"
	"github.com/agentstation/attrmap/pkg/identifiers"
	"github.com/agentstation/attrmap/pkg/logging"
	"github.com/agentstation/attrmap/pkg/schema"
	"github.com/agentstation/attrmap/pkg/suggest"
)

// Options configures a Builder. Zero values select the defaults.
type Options struct {
	// BaseAliases is the static alias table. Defaults to the embedded one.
	BaseAliases *alias.Table
	// Store persists learned equivalences. Defaults to an in-memory store.
	Store equivalence.Store
	// Suggester is asked for aliases of attributes no source resolves.
	// Nil disables learning.
	Suggester suggest.Provider
	// Matcher resolves alias bags against document keys. Defaults to
	// containment matching.
	Matcher  alias.Matcher
	Logger   *zerolog.Logger
	Recorder Recorder
	// ValueScan enables the bare digit scan for product codes.
	ValueScan      bool
	PreviewEntries int
	PreviewChars   int
}

// Builder resolves target attributes for documents. A Builder is safe for
// concurrent use when its Store is.
type Builder struct {
	base      *alias.Table
	store     equivalence.Store
	suggester suggest.Provider
	matcher   alias.Matcher
	logger    *zerolog.Logger
	recorder  Recorder
	idOpts    identifiers.Options
	entries   int
	chars     int
}

// NewBuilder returns a Builder for opts.
func NewBuilder(opts Options) *Builder {
	b := &Builder{
		base:      opts.BaseAliases,
		store:     opts.Store,
		suggester: opts.Suggester,
		matcher:   opts.Matcher,
		logger:    logging.OrNop(opts.Logger),
		recorder:  opts.Recorder,
		idOpts:    identifiers.Options{ValueScan: opts.ValueScan},
		entries:   opts.PreviewEntries,
		chars:     opts.PreviewChars,
	}
	if b.base == nil {
		b.base = alias.DefaultTable()
	}
	if b.store == nil {
		b.store = equivalence.NewMemoryStore(nil)
	}
	if b.matcher == nil {
		b.matcher = alias.Containment{}
	}
	if b.recorder == nil {
		b.recorder = NopRecorder()
	}
	if b.entries <= 0 {
		b.entries = constants.PreviewEntries
	}
	if b.chars <= 0 {
		b.chars = constants.PreviewChars
	}
	return b
}

// Store returns the equivalence store in use.
func (b *Builder) Store() equivalence.Store {
	return b.store
}

// Build resolves the attributes of s from doc. doc is either a
// *flatten.Record or a decoded document (maps, slices and scalars). Build
// never fails: collaborator failures are logged and degrade to fewer
// resolutions, and everything unresolved is reported in Result.Missing.
func (b *Builder) Build(ctx context.Context, categoryID string, doc any, s *schema.Schema) *Result {
	start := time.Now()
	if s == nil {
		s = schema.Empty()
	}

	res := &Result{
		RunID:      uuid.NewString(),
		CategoryID: categoryID,
		Missing:    []string{},
		Matched:    []Resolution{},
		Attributes: []Attribute{},
	}
	logger := b.logger.With().Str("run_id", res.RunID).Str("category_id", categoryID).Logger()

	rec, ok := doc.(*flatten.Record)
	if !ok || rec == nil {
		rec = flatten.Flatten(doc)
	}
	idx := alias.NewIndex(rec)
	matched := make(map[string]Resolution)
	add := func(r Resolution) {
		matched[r.ID] = r
		res.Matched = append(res.Matched, r)
	}

	// Identifiers and package dimensions bypass the alias loop.
	if v, ok := identifiers.Primary(rec); ok {
		res.PrimaryID = v
		add(Resolution{ID: identifiers.PrimaryAttributeID, Value: v, Source: SourceIdentifier})
		res.Stats.Direct++
	}
	res.ProductCodes = identifiers.ProductCodes(rec, b.idOpts)
	if len(res.ProductCodes) > 0 {
		add(Resolution{ID: identifiers.CodeAttributeID, Value: res.ProductCodes[0], Source: SourceIdentifier})
		res.Stats.Direct++
	}

	dims := make(map[dimensions.Kind]dimensions.Dimension, len(dimensions.Kinds))
	for _, kind := range dimensions.Kinds {
		d, ok := dimensions.ExtractIndexed(idx, kind, &logger)
		if !ok {
			continue
		}
		dims[kind] = d
		add(Resolution{ID: kind.AttributeID(), Value: d.String(), Source: SourceDimension, Dimension: &d})
		res.Stats.Direct++
	}
	if summary, ok := dimensions.Summarize(dims); ok {
		res.Package = summary
		logger.Info().
			Float64("length_cm", summary.LengthCM).
			Float64("width_cm", summary.WidthCM).
			Float64("height_cm", summary.HeightCM).
			Float64("weight_kg", summary.WeightKG).
			Msg("Package dimensions resolved")
	}

	cache, err := b.store.Load(ctx)
	if err != nil {
		logger.Warn().Err(err).Str("store", b.store.Location()).Msg("Equivalence cache unreadable, starting empty")
	}
	if cache == nil {
		cache = equivalence.Cache{}
	}

	var missing []string
	for _, id := range s.IDs() {
		if _, done := matched[id]; done {
			continue
		}
		if bag, ok := b.base.Get(id); ok {
			if m, ok := b.matcher.Match(idx, bag); ok {
				add(resolution(id, SourceStatic, m))
				res.Stats.Direct++
				continue
			}
		}
		if bag, ok := cache.Aliases(id); ok {
			if m, ok := b.matcher.Match(idx, bag); ok {
				add(resolution(id, SourceCache, m))
				res.Stats.Reused++
				continue
			}
		}
		missing = append(missing, id)
	}

	if len(missing) > 0 {
		missing = b.learn(ctx, &logger, res, categoryID, rec, idx, cache, missing, add)
	}
	res.Missing = append(res.Missing, missing...)
	res.Stats.Missing = len(missing)

	res.Attributes = b.coerceAll(s, matched)

	logger.Info().
		Int("attributes", len(res.Attributes)).
		Int("direct", res.Stats.Direct).
		Int("reused", res.Stats.Reused).
		Int("learned", res.Stats.Learned).
		Int("missing", res.Stats.Missing).
		Msg("Attributes built")
	b.recorder.ObserveBuild(categoryID, res.Stats, time.Since(start))
	return res
}

// learn asks the suggester about ids the cache has never seen, persists
// what it proposes and retries those ids. It returns the ids still missing.
func (b *Builder) learn(ctx context.Context, logger *zerolog.Logger, res *Result, categoryID string,
	rec *flatten.Record, idx *alias.Index, cache equivalence.Cache, missing []string, add func(Resolution)) []string {
	var fresh []string
	known := 0
	for _, id := range missing {
		if cache.Has(id) {
			known++
			continue
		}
		fresh = append(fresh, id)
	}
	if known > 0 {
		logger.Debug().Int("ids", known).Msg("Cached equivalences did not match, not asking again")
	}
	if b.suggester == nil || len(fresh) == 0 {
		return missing
	}

	logger.Info().Int("ids", len(fresh)).Strs("attribute_ids", fresh).Msg("Requesting equivalences")
	eqs, err := b.suggester.Suggest(ctx, categoryID, fresh, suggest.Preview(rec, b.entries, b.chars))
	b.recorder.ObserveSuggestion(categoryID, len(eqs), err)
	if err != nil {
		logger.Warn().Err(err).Msg("Suggestion failed, continuing without new equivalences")
		return missing
	}
	if len(eqs) == 0 {
		logger.Info().Msg("No equivalences suggested")
		return missing
	}

	res.Learned = eqs
	if _, err := b.store.Upsert(ctx, eqs); err != nil {
		logger.Warn().Err(err).Str("store", b.store.Location()).Msg("Failed to persist learned equivalences")
	} else {
		res.Persisted = true
		logger.Info().Int("equivalences", len(eqs)).Str("store", b.store.Location()).Msg("Learned equivalences saved")
	}

	still := missing[:0:0]
	for _, id := range missing {
		bag, ok := eqs.Aliases(id)
		if !ok {
			still = append(still, id)
			continue
		}
		m, ok := b.matcher.Match(idx, bag)
		if !ok {
			still = append(still, id)
			continue
		}
		add(resolution(id, SourceLearned, m))
		res.Stats.Learned++
	}
	return still
}

// coerceAll emits identifiers first, whether or not the schema declares
// them, then schema attributes in schema order. Package dimensions are
// emitted only when the schema declares them.
func (b *Builder) coerceAll(s *schema.Schema, matched map[string]Resolution) []Attribute {
	out := make([]Attribute, 0, len(matched))
	emitted := make(map[string]struct{}, len(matched))
	emit := func(id string) {
		if _, done := emitted[id]; done {
			return
		}
		r, ok := matched[id]
		if !ok {
			return
		}
		attr, _ := s.Get(id)
		out = append(out, Coerce(attr, r))
		emitted[id] = struct{}{}
	}

	emit(identifiers.PrimaryAttributeID)
	emit(identifiers.CodeAttributeID)
	for _, id := range s.IDs() {
		emit(id)
	}
	return out
}

func resolution(id string, src Source, m alias.Match) Resolution {
	return Resolution{ID: id, Value: m.Value, Source: src, Key: m.Key, Alias: m.Alias, Score: m.Score}
}
