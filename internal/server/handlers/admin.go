package handlers

import (
	"net/http"
	"runtime"
	"time"

	"github.com/agentstation/attrmap/internal/server/response"
	"github.com/agentstation/attrmap/pkg/logging"
)

// HandleStats handles GET /api/v1/stats.
func (h *Handlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	store := h.client.Store()
	learnedIDs, learnedAliases := 0, 0
	if learned, err := store.Load(r.Context()); err != nil {
		logging.FromContext(r.Context()).Warn().Err(err).Str("store", store.Location()).Msg("Equivalence cache unreadable for stats")
	} else {
		learnedIDs = len(learned)
		for _, aliases := range learned {
			learnedAliases += len(aliases)
		}
	}

	response.OK(w, map[string]any{
		"runtime": map[string]any{
			"uptime_seconds": int64(time.Since(h.startTime).Seconds()),
			"goroutines":     runtime.NumGoroutine(),
			"memory_mb":      memStats.Alloc / 1024 / 1024,
			"memory_sys_mb":  memStats.Sys / 1024 / 1024,
		},
		"equivalences": map[string]any{
			"store":   store.Location(),
			"ids":     learnedIDs,
			"aliases": learnedAliases,
		},
		"events": map[string]any{
			"published_total": h.broker.EventsPublished(),
			"dropped_total":   h.broker.EventsDropped(),
			"queue_depth":     h.broker.QueueDepth(),
		},
		"realtime": map[string]any{
			"websocket_clients": h.wsHub.ClientCount(),
			"sse_clients":       h.sseBroadcaster.ClientCount(),
		},
		"results": h.results.GetStats(),
	})
}
