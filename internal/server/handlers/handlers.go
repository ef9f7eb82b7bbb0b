// Package handlers provides HTTP request handlers for the attrmap API.
package handlers

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/agentstation/attrmap"
	"github.com/agentstation/attrmap/internal/server/cache"
	"github.com/agentstation/attrmap/internal/server/events"
	"github.com/agentstation/attrmap/internal/server/sse"
	ws "github.com/agentstation/attrmap/internal/server/websocket"
)

// Handlers provides access to all HTTP handlers.
type Handlers struct {
	client         attrmap.Client
	results        *cache.Results
	broker         *events.Broker
	wsHub          *ws.Hub
	sseBroadcaster *sse.Broadcaster
	upgrader       websocket.Upgrader
	logger         *zerolog.Logger
	startTime      time.Time

	// buildMu serializes builds so one document is processed at a time.
	buildMu sync.Mutex
}

// New creates a new Handlers instance.
func New(
	client attrmap.Client,
	results *cache.Results,
	broker *events.Broker,
	wsHub *ws.Hub,
	sseBroadcaster *sse.Broadcaster,
	upgrader websocket.Upgrader,
	logger *zerolog.Logger,
	startTime time.Time,
) *Handlers {
	return &Handlers{
		client:         client,
		results:        results,
		broker:         broker,
		wsHub:          wsHub,
		sseBroadcaster: sseBroadcaster,
		upgrader:       upgrader,
		logger:         logger,
		startTime:      startTime,
	}
}
