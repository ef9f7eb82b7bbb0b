package handlers

import (
	"net/http"

	"github.com/agentstation/attrmap/internal/server/response"
	"github.com/agentstation/attrmap/pkg/logging"
)

// HandleHealth handles GET /health and GET /api/v1/health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	response.OK(w, map[string]any{
		"status":  "healthy",
		"service": "attrmap-api",
		"version": "v1",
	})
}

// HandleReady handles GET /api/v1/ready. The server is ready when the
// equivalence store can be read.
func (h *Handlers) HandleReady(w http.ResponseWriter, r *http.Request) {
	store := h.client.Store()
	learned, err := store.Load(r.Context())
	if err != nil {
		logging.FromContext(r.Context()).Warn().Err(err).Str("store", store.Location()).Msg("Equivalence store not readable")
		response.ServiceUnavailable(w, "Equivalence cache not available")
		return
	}

	response.OK(w, map[string]any{
		"status": "ready",
		"equivalences": map[string]any{
			"store": store.Location(),
			"ids":   len(learned),
		},
		"results":           h.results.GetStats(),
		"websocket_clients": h.wsHub.ClientCount(),
		"sse_clients":       h.sseBroadcaster.ClientCount(),
	})
}
