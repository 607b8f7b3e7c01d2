package events

import (
	"encoding/json"
	"net/http"

	"github.com/gin-contrib/sse"

	"github.com/nimbusvault/corestore/internal/logging"
)

// SSEHandler serves live change notifications as an SSE stream, one per
// connection, scoped to the "user_id" query parameter. Authenticating
// and resolving that parameter from a session is the HTTP layer's job,
// out of scope here per the engine's external interfaces.
type SSEHandler struct {
	producer *Producer
}

// NewSSEHandler wraps a Producer as an http.Handler for the /events route.
func NewSSEHandler(p *Producer) *SSEHandler {
	return &SSEHandler{producer: p}
}

func (h *SSEHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch, unsubscribe := h.producer.Subscribe(userID, 0)
	defer unsubscribe()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				logging.WithComponent("events").Error().Err(err).Msg("failed to encode change event for SSE")
				continue
			}
			if err := sse.Encode(w, sse.Event{Event: "change", Data: string(payload)}); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
