// Package events provides the event system behind the real-time update
// streams.
//
// A Broker receives events from client hooks and fans them out to every
// transport (WebSocket, SSE) through a common Subscriber interface.
package events

import "github.com/agentstation/utc"

// EventType represents the type of an update event.
type EventType string

// Event types.
const (
	// BuildCompleted is published after every build.
	BuildCompleted EventType = "build.completed"
	// EquivalencesLearned is published after learned aliases are persisted.
	EquivalencesLearned EventType = "equivalences.learned"
	// EquivalencesForgotten is published when aliases are removed over the API.
	EquivalencesForgotten EventType = "equivalences.forgotten"

	// ClientConnected is published by transport layers.
	ClientConnected EventType = "client.connected"
)

// Event represents an update event with type, timestamp, and data.
type Event struct {
	Type      EventType `json:"type"`
	Timestamp utc.Time  `json:"timestamp"`
	Data      any       `json:"data"`
}
