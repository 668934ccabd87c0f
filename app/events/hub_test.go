package events

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/r3labs/sse/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubStreams(t *testing.T) {
	hub := NewHub(StreamPlayer, StreamRadio)
	defer hub.Close()

	assert.True(t, hub.StreamExists(StreamPlayer))
	assert.True(t, hub.StreamExists(StreamRadio))
	assert.False(t, hub.StreamExists("other"))

	hub.Publish("other", map[string]string{"ignored": "yes"})
}

func TestHubDeliversJSON(t *testing.T) {
	hub := NewHub(StreamPlayer)
	server := httptest.NewServer(hub)
	defer server.Close()
	defer hub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	received := make(chan *sse.Event, 8)
	client := sse.NewClient(server.URL)
	go client.SubscribeChanWithContext(ctx, StreamPlayer, received)

	// AutoReplay is off, so keep publishing until the subscriber is attached.
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case event := <-received:
			require.NotNil(t, event)
			assert.JSONEq(t, `{"index":1}`, string(event.Data))
			return
		case <-ticker.C:
			hub.Publish(StreamPlayer, map[string]int{"index": 1})
		case <-ctx.Done():
			t.Fatal("Timed out waiting for event")
		}
	}
}
