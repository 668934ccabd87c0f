package events

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/r3labs/sse/v2"
)

const (
	StreamPlayer = "player"
	StreamRadio  = "radio"
)

// Hub fans JSON snapshots out to Server-Sent Events subscribers.
// Clients pick a stream with /events?stream=<name>.
type Hub struct {
	server *sse.Server
}

func NewHub(streams ...string) *Hub {
	server := sse.New()
	server.AutoReplay = false
	server.AutoStream = false

	for _, stream := range streams {
		server.CreateStream(stream)
	}

	return &Hub{server: server}
}

func (h *Hub) Publish(stream string, data any) {
	if !h.server.StreamExists(stream) {
		slog.Debug("Dropping event for unknown stream", "stream", stream)
		return
	}

	payload, err := json.Marshal(data)
	if err != nil {
		slog.Error("Failed to encode event", "stream", stream, "error", err)
		return
	}

	h.server.Publish(stream, &sse.Event{Data: payload})
}

func (h *Hub) StreamExists(stream string) bool {
	return h.server.StreamExists(stream)
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.server.ServeHTTP(w, r)
}

func (h *Hub) Close() {
	h.server.Close()
}
