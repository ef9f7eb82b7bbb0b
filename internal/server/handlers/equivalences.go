package handlers

import (
	"net/http"

	"github.com/agentstation/attrmap/internal/matcher"
	"github.com/agentstation/attrmap/internal/server/events"
	"github.com/agentstation/attrmap/internal/server/response"
	"github.com/agentstation/attrmap/pkg/equivalence"
	"github.com/agentstation/attrmap/pkg/errors"
	"github.com/agentstation/attrmap/pkg/logging"
)

// HandleListEquivalences handles GET /api/v1/equivalences. Repeated id
// query parameters, plain ids or glob patterns, restrict the listing.
func (h *Handlers) HandleListEquivalences(w http.ResponseWriter, r *http.Request) {
	store := h.client.Store()
	learned, err := store.Load(r.Context())
	if err != nil {
		response.ErrorFromType(w, errors.WrapResource("load", "equivalence cache", store.Location(), err))
		return
	}

	if patterns := r.URL.Query()["id"]; len(patterns) > 0 {
		set, err := matcher.Compile(patterns...)
		if err != nil {
			response.ErrorFromType(w, err)
			return
		}
		subset := equivalence.Cache{}
		for id, aliases := range learned {
			if set.Match(id) {
				subset[id] = aliases
			}
		}
		learned = subset
	}
	response.OK(w, learned)
}

// HandleForgetEquivalence handles DELETE /api/v1/equivalences/{id}.
func (h *Handlers) HandleForgetEquivalence(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	store := h.client.Store()

	h.buildMu.Lock()
	removed, err := equivalence.Forget(r.Context(), store, id)
	h.buildMu.Unlock()
	if err != nil {
		response.ErrorFromType(w, errors.WrapResource("update", "equivalence cache", store.Location(), err))
		return
	}
	if len(removed) == 0 {
		response.NotFound(w, "Equivalence not found", "No learned aliases for "+id)
		return
	}

	h.broker.Publish(events.EquivalencesForgotten, map[string]any{"ids": removed})
	logging.FromContext(r.Context()).Info().Strs("ids", removed).Msg("Forgot equivalences")
	response.OK(w, map[string]any{"forgotten": removed})
}
