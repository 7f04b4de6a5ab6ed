package rest

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/soundvault/soundvault/internal/logctx"
	"github.com/soundvault/soundvault/internal/transfer"
)

const eventBufferSize = 256

// EventPayload is the SSE wire form of a transfer event.
type EventPayload struct {
	Type      string  `json:"type"`
	Reference string  `json:"reference"`
	Progress  float64 `json:"progress,omitempty"`
	LocalPath string  `json:"localPath,omitempty"`
	Error     string  `json:"error,omitempty"`
}

// StreamEvents bridges the download multicast onto a server-sent-event
// stream. The multicast delivers on whatever goroutine the transport runs
// on; this handler is the adapter that marshals onto the HTTP response
// goroutine, so its observer callback only forwards into a channel.
func (h *Handler) StreamEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)

		return
	}

	logger := logctx.LoggerFromContext(r.Context())

	events := make(chan transfer.Event, eventBufferSize)

	sub := h.manager.Events().Subscribe(transfer.ObserverFunc(func(event transfer.Event) {
		select {
		case events <- event:
		default:
			// A stalled client must not block transfer workers.
			logger.Warn("dropping event for slow event-stream client",
				"reference", event.Reference.String(), "event_type", string(event.Type))
		}
	}))
	defer h.manager.Events().Unsubscribe(sub)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case event := <-events:
			payload := EventPayload{
				Type:      string(event.Type),
				Reference: event.Reference.String(),
				Progress:  event.Progress,
				LocalPath: event.LocalPath,
			}
			if event.Err != nil {
				payload.Error = event.Err.Error()
			}

			data, err := json.Marshal(payload)
			if err != nil {
				logger.Error("failed to marshal event", "err", err)

				continue
			}

			if _, err := fmt.Fprintf(w, "event: transfer\ndata: %s\n\n", data); err != nil {
				return
			}

			flusher.Flush()
		}
	}
}
