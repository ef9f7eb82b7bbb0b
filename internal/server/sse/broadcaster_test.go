package sse

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBroadcaster() *Broadcaster {
	logger := zerolog.Nop()
	return NewBroadcaster(&logger)
}

func TestBroadcasterDeliversToClients(t *testing.T) {
	b := newBroadcaster()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.Run(ctx)

	client := make(chan Event, 4)
	b.newClients <- client
	require.Eventually(t, func() bool { return b.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	b.Broadcast(Event{Event: "build.completed", Data: map[string]any{"category_id": "CBT1"}})

	select {
	case got := <-client:
		assert.Equal(t, "build.completed", got.Event)
	case <-time.After(time.Second):
		t.Fatal("client did not receive event")
	}
}

func TestBroadcasterShutdownClosesClients(t *testing.T) {
	b := newBroadcaster()
	ctx, cancel := context.WithCancel(context.Background())
	go b.Run(ctx)

	client := make(chan Event, 4)
	b.newClients <- client
	require.Eventually(t, func() bool { return b.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	require.Eventually(t, func() bool { return b.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
	_, open := <-client
	assert.False(t, open)
}

func TestServeHTTPStreamsEvents(t *testing.T) {
	b := newBroadcaster()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.Run(ctx)

	srv := httptest.NewServer(b)
	defer srv.Close()

	reqCtx, reqCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer reqCancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	readEvent := func() string {
		var lines []string
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			if line == "\n" {
				return strings.Join(lines, "")
			}
			lines = append(lines, line)
		}
	}

	assert.Contains(t, readEvent(), "event: connected")
	require.Eventually(t, func() bool { return b.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	b.Broadcast(Event{Event: "equivalences.learned", ID: "7", Data: map[string]any{"learned": 2}})
	got := readEvent()
	assert.Contains(t, got, "event: equivalences.learned\n")
	assert.Contains(t, got, "id: 7\n")
	assert.Contains(t, got, `data: {"learned":2}`)
}
