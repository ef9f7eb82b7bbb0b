// Package server provides the HTTP API of attrmap: builds, schemas, the
// equivalence cache and a real-time stream of build events.
package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/agentstation/attrmap"
	"github.com/agentstation/attrmap/internal/appcontext"
	"github.com/agentstation/attrmap/internal/metrics"
	"github.com/agentstation/attrmap/internal/server/cache"
	"github.com/agentstation/attrmap/internal/server/events"
	"github.com/agentstation/attrmap/internal/server/events/adapters"
	"github.com/agentstation/attrmap/internal/server/sse"
	ws "github.com/agentstation/attrmap/internal/server/websocket"
	"github.com/agentstation/attrmap/pkg/attributes"
	"github.com/agentstation/attrmap/pkg/equivalence"
)

// Server holds the HTTP server state and dependencies.
type Server struct {
	client         attrmap.Client
	results        *cache.Results
	broker         *events.Broker
	wsHub          *ws.Hub
	sseBroadcaster *sse.Broadcaster
	upgrader       websocket.Upgrader
	logger         *zerolog.Logger
	metrics        *metrics.Recorder
	config         Config
	ctx            context.Context
	cancel         context.CancelFunc
	wg             sync.WaitGroup
	startTime      time.Time
}

// New creates a new server instance with the given configuration.
func New(app appcontext.Interface, cfg Config) (*Server, error) {
	logger := app.Logger()

	if cfg.ResultTTL == 0 {
		cfg.ResultTTL = DefaultConfig().ResultTTL
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client, err := app.Client()
	if err != nil {
		return nil, err
	}

	broker := events.NewBroker(logger)
	wsHub := ws.NewHub(logger)
	sseBroadcaster := sse.NewBroadcaster(logger)

	broker.Subscribe(adapters.NewWebSocketSubscriber(wsHub))
	broker.Subscribe(adapters.NewSSESubscriber(sseBroadcaster))
	logger.Debug().Msg("Real-time transports subscribed to event broker")

	ctx, cancel := context.WithCancel(context.Background())

	server := &Server{
		client:         client,
		results:        cache.New(cfg.ResultTTL, cfg.ResultTTL*2),
		broker:         broker,
		wsHub:          wsHub,
		sseBroadcaster: sseBroadcaster,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(_ *http.Request) bool {
				return true
			},
		},
		logger:    logger,
		metrics:   app.Metrics(),
		config:    cfg,
		ctx:       ctx,
		cancel:    cancel,
		startTime: time.Now(),
	}

	server.connectHooks()
	return server, nil
}

// connectHooks stores finished builds and publishes them to the broker.
func (s *Server) connectHooks() {
	s.client.OnBuilt(func(res *attributes.Result) {
		s.results.Put(res)
		s.broker.Publish(events.BuildCompleted, map[string]any{
			"run_id":      res.RunID,
			"category_id": res.CategoryID,
			"attributes":  len(res.Attributes),
			"missing":     res.Missing,
			"stats":       res.Stats,
		})
		s.logger.Debug().
			Str("run_id", res.RunID).
			Str("category_id", res.CategoryID).
			Msg("Build completed event published")
	})

	s.client.OnLearned(func(categoryID string, learned equivalence.Cache) {
		s.broker.Publish(events.EquivalencesLearned, map[string]any{
			"category_id":  categoryID,
			"equivalences": learned,
		})
		s.logger.Debug().
			Str("category_id", categoryID).
			Int("learned", len(learned)).
			Msg("Equivalences learned event published")
	})
}

// Start starts background services (broker, WebSocket hub, SSE broadcaster).
func (s *Server) Start() {
	for _, run := range []func(context.Context){s.broker.Run, s.wsHub.Run, s.sseBroadcaster.Run} {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			run(s.ctx)
		}()
	}
	s.logger.Debug().Msg("Background services started")
}

// Handler returns the configured http.Handler with middleware chain applied.
func (s *Server) Handler() http.Handler {
	return s.setupRouter()
}

// Shutdown stops background services and waits for them until ctx ends.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("Shutting down server background services")
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info().Msg("Background services shut down successfully")
		return nil
	case <-ctx.Done():
		s.logger.Warn().Msg("Background services shutdown timed out")
		return ctx.Err()
	}
}

// Results returns the recent build results.
func (s *Server) Results() *cache.Results {
	return s.results
}

// Broker returns the event broker for publishing events.
func (s *Server) Broker() *events.Broker {
	return s.broker
}

// StartTime returns the server start time for uptime calculations.
func (s *Server) StartTime() time.Time {
	return s.startTime
}
