package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
)

// Stream handles GET /api/v1/stream: a Server-Sent Events subscription
// delivering every accepted record from subscription time onward, tagged by
// kind, in upstream acceptance order. A stalled client only loses its own
// records: the hub's bounded queue drops the oldest and eventually
// disconnects, never blocking ingestion.
func (h *Handlers) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	sub := h.hub.Subscribe()
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	slog.Info("Stream subscriber connected", "subscriber_id", sub.ID())

	for {
		select {
		case <-r.Context().Done():
			slog.Info("Stream subscriber disconnected",
				"subscriber_id", sub.ID(),
				"dropped", sub.Dropped(),
			)
			return
		case rec, open := <-sub.Records():
			if !open {
				// Hub disconnected a persistently slow subscriber.
				slog.Warn("Stream subscriber disconnected by hub",
					"subscriber_id", sub.ID(),
					"dropped", sub.Dropped(),
				)
				return
			}
			data, err := json.Marshal(rec)
			if err != nil {
				slog.Error("Failed to marshal stream record", "error", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", rec.Kind, data); err != nil {
				// Transient delivery failure: absorbed here, never
				// surfaced to producers.
				slog.Debug("Stream write failed, closing subscriber",
					"subscriber_id", sub.ID(),
					"error", err,
				)
				return
			}
			flusher.Flush()
		}
	}
}
