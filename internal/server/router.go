package server

import (
	"net/http"

	"github.com/agentstation/attrmap/internal/server/handlers"
	"github.com/agentstation/attrmap/internal/server/middleware"
	"github.com/agentstation/attrmap/internal/server/response"
)

// setupRouter creates the HTTP handler with routes and middleware.
func (s *Server) setupRouter() http.Handler {
	mux := http.NewServeMux()

	h := handlers.New(
		s.client,
		s.results,
		s.broker,
		s.wsHub,
		s.sseBroadcaster,
		s.upgrader,
		s.logger,
		s.startTime,
	)

	s.registerRoutes(mux, h)
	return s.applyMiddleware(mux)
}

// registerRoutes registers all HTTP routes.
func (s *Server) registerRoutes(mux *http.ServeMux, h *handlers.Handlers) {
	prefix := s.config.PathPrefix

	mux.HandleFunc("GET /favicon.ico", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	// Public health endpoints (no auth required)
	mux.HandleFunc("GET /health", h.HandleHealth)
	mux.HandleFunc("GET "+prefix+"/health", h.HandleHealth)
	mux.HandleFunc("GET "+prefix+"/ready", h.HandleReady)

	// Builds
	mux.HandleFunc("POST "+prefix+"/build", h.HandleBuild)
	mux.HandleFunc("GET "+prefix+"/builds/{run_id}", h.HandleGetBuild)

	// Schemas and learned equivalences
	mux.HandleFunc("GET "+prefix+"/schemas/{id}", h.HandleGetSchema)
	mux.HandleFunc("GET "+prefix+"/equivalences", h.HandleListEquivalences)
	mux.HandleFunc("DELETE "+prefix+"/equivalences/{id}", h.HandleForgetEquivalence)

	// Admin
	mux.HandleFunc("GET "+prefix+"/stats", h.HandleStats)

	// Real-time endpoints
	mux.HandleFunc("GET "+prefix+"/updates/ws", h.HandleWebSocket)
	mux.HandleFunc("GET "+prefix+"/updates/stream", h.HandleSSE)

	if s.config.MetricsEnabled {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		response.NotFound(w, "Route not found", r.Method+" "+r.URL.Path)
	})
}

// applyMiddleware wraps handler with the middleware chain. Recovery is
// outermost, rate limiting innermost.
func (s *Server) applyMiddleware(mux *http.ServeMux) http.Handler {
	cfg := s.config
	chain := []func(http.Handler) http.Handler{
		middleware.Recovery(s.logger),
		middleware.RequestID(),
		middleware.Logger(s.logger),
	}

	if cfg.MetricsEnabled {
		chain = append(chain, middleware.Metrics(s.metrics, routeLabel(mux)))
	}

	if cfg.CORSEnabled {
		corsConfig := middleware.DefaultCORSConfig()
		if len(cfg.CORSOrigins) > 0 {
			corsConfig.AllowedOrigins = cfg.CORSOrigins
			corsConfig.AllowAll = false
		}
		chain = append(chain, middleware.CORS(corsConfig))
	}

	if cfg.AuthEnabled {
		authConfig := middleware.DefaultAuthConfig(cfg.PathPrefix)
		authConfig.Enabled = true
		authConfig.APIKey = cfg.APIKey
		authConfig.HeaderName = cfg.AuthHeader
		if cfg.MetricsEnabled {
			authConfig.PublicPaths = append(authConfig.PublicPaths, "/metrics")
		}
		chain = append(chain, middleware.Auth(authConfig, s.logger))
	}

	if cfg.RateLimit > 0 {
		chain = append(chain, middleware.RateLimit(middleware.NewRateLimiter(s.ctx, cfg.RateLimit, s.logger)))
	}

	return middleware.Chain(chain...)(mux)
}

// routeLabel names a request by the mux pattern it matches, keeping path
// parameters out of metric labels.
func routeLabel(mux *http.ServeMux) func(*http.Request) string {
	return func(r *http.Request) string {
		if _, pattern := mux.Handler(r); pattern != "" {
			return pattern
		}
		return "unmatched"
	}
}
