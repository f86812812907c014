package handler

import (
	"fmt"
	"log"
	"net/http"

	"pixelwall/internal/notify"
)

// EventsHandler streams change notifications to clients over SSE.
// Each event carries only the changed resource name; clients must
// re-fetch the catalog, never patch local state from the event.
type EventsHandler struct {
	logger   *log.Logger
	notifier *notify.Notifier
}

func NewEventsHandler(logger *log.Logger, notifier *notify.Notifier) *EventsHandler {
	return &EventsHandler{
		logger:   logger,
		notifier: notifier,
	}
}

func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	// Buffered so a slow client cannot stall the fan-out; a dropped
	// event is tolerable because any later event forces a full
	// re-fetch anyway.
	events := make(chan string, 64)
	unsubscribe := h.notifier.Subscribe(func(resource string) {
		select {
		case events <- resource:
		default:
		}
	})
	defer unsubscribe()

	for {
		select {
		case resource := <-events:
			if _, err := fmt.Fprintf(w, "data: %s\n\n", resource); err != nil {
				return
			}
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}
