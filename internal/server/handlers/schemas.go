package handlers

import (
	"net/http"

	"github.com/agentstation/attrmap/internal/server/response"
)

// HandleGetSchema handles GET /api/v1/schemas/{id}. A category whose
// schema is empty or unavailable is reported as not found.
func (h *Handlers) HandleGetSchema(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	s := h.client.Schema(r.Context(), id)
	if s.Len() == 0 {
		response.NotFound(w, "Schema not found", "No attributes available for category "+id)
		return
	}
	response.OK(w, s)
}
