package webserver

import (
	"io"
	"net/http"
	"time"

	"github.com/zsprackett/colorboard/internal/events"
)

const maxEventBody = 1 << 20

func (s *Server) handleCloudEvent(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxEventBody))
	if err != nil {
		http.Error(w, "Failed to process CloudEvent: "+err.Error(), 400)
		return
	}
	ev, timeErr := events.FromHeaders(r.Header, body, s.now())
	if timeErr != nil {
		s.logger.Warn("webserver: cloudevent time", "id", ev.ID, "err", timeErr)
	}
	if err := s.recorder.Receive(r.Context(), ev); err != nil {
		http.Error(w, "Failed to process CloudEvent: "+err.Error(), 400)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

type debugResponse struct {
	Headers   map[string]string `json:"headers"`
	Body      string            `json:"body"`
	Timestamp string            `json:"timestamp"`
}

// handleDebug echoes what the sink would see.
func (s *Server) handleDebug(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(io.LimitReader(r.Body, maxEventBody))
	headers := make(map[string]string, len(r.Header))
	for k := range r.Header {
		headers[k] = r.Header.Get(k)
	}
	text := string(body)
	if len(body) == 0 {
		text = "null"
	}
	writeJSON(w, http.StatusOK, debugResponse{Headers: headers, Body: text, Timestamp: s.now().Format(time.RFC3339)})
}
