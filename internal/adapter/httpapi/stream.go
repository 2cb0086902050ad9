package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"eventqueued/internal/broker"
)

const (
	streamPollInterval = 200 * time.Millisecond
	streamBatchSize    = 100
)

// handleStream implements the SSE endpoint (§6, §9 "Polling-based
// streaming"): it polls Consume on a short interval rather than
// registering with the subscription registry, which keeps this handler
// stateless between requests.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	topic := mux.Vars(r)["name"]
	offset := initialStreamOffset(r)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx := r.Context()
	ticker := time.NewTicker(streamPollInterval)
	defer ticker.Stop()

	for {
		records, err := s.broker.Consume(topic, offset, streamBatchSize)
		if err != nil {
			return
		}
		for _, rec := range records {
			if err := writeSSEFrame(w, rec); err != nil {
				return
			}
			offset = rec.Offset + 1
		}
		if len(records) > 0 {
			flusher.Flush()
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func initialStreamOffset(r *http.Request) uint64 {
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if v, err := strconv.ParseUint(raw, 10, 64); err == nil {
			return v
		}
	}
	if raw := r.Header.Get("Last-Event-ID"); raw != "" {
		if v, err := strconv.ParseUint(raw, 10, 64); err == nil {
			return v + 1
		}
	}
	return 0
}

func writeSSEFrame(w http.ResponseWriter, rec broker.Record) error {
	data, err := json.Marshal(recordResponse{Offset: rec.Offset, Topic: rec.Topic, Payload: string(rec.Payload)})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "id: %d\nevent: message\ndata: %s\n\n", rec.Offset, data)
	return err
}
