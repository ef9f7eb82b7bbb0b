package attrmap

import (
	"sync"

	"github.com/agentstation/attrmap/pkg/attributes"
	"github.com/agentstation/attrmap/pkg/equivalence"
)

// Compile-time interface check to ensure proper implementation.
var _ Hooks = (*client)(nil)

// Hook function types for build events
type (
	// BuiltHook is called after every build
	BuiltHook func(result *attributes.Result)

	// LearnedHook is called after newly learned equivalences are persisted
	LearnedHook func(categoryID string, learned equivalence.Cache)
)

// Hooks provides event callback registration.
type Hooks interface {
	// OnBuilt registers a callback for finished builds
	OnBuilt(BuiltHook)

	// OnLearned registers a callback for persisted equivalences
	OnLearned(LearnedHook)
}

// OnBuilt registers a callback for finished builds.
func (c *client) OnBuilt(fn BuiltHook) {
	c.hooks.onBuilt(fn)
}

// OnLearned registers a callback for persisted equivalences.
func (c *client) OnLearned(fn LearnedHook) {
	c.hooks.onLearned(fn)
}

// hooks manages event callbacks for builds
type hooks struct {
	mu      sync.RWMutex
	built   []BuiltHook
	learned []LearnedHook
}

// newHooks creates a new hooks instance
func newHooks() *hooks {
	return &hooks{}
}

func (h *hooks) onBuilt(fn BuiltHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.built = append(h.built, fn)
}

func (h *hooks) onLearned(fn LearnedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.learned = append(h.learned, fn)
}

// trigger fires the hooks matching res. Learned hooks receive a copy of
// the equivalences and only fire when they were persisted.
func (h *hooks) trigger(res *attributes.Result) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if res.Persisted && len(res.Learned) > 0 {
		for _, hook := range h.learned {
			hook(res.CategoryID, res.Learned.Clone())
		}
	}
	for _, hook := range h.built {
		hook(res)
	}
}
