package webserver

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/zsprackett/colorboard/internal/colorapi"
	"github.com/zsprackett/colorboard/internal/db"
	"github.com/zsprackett/colorboard/internal/events"
)

func toColorChange(c db.ColorChange) colorapi.ColorChange {
	return colorapi.ColorChange{
		Color:     c.Color,
		Timestamp: c.ChangedAt.Format(colorapi.TimestampLayout),
		Source:    c.Source,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) handleAvailable(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, colorapi.Colors)
}

func (s *Server) handleCurrent(w http.ResponseWriter, r *http.Request) {
	c, err := s.store.CurrentColor()
	if err != nil {
		s.logger.Error("webserver: current color", "err", err)
		http.Error(w, err.Error(), 500)
		return
	}
	writeJSON(w, http.StatusOK, toColorChange(*c))
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	history, err := s.store.History(0)
	if err != nil {
		s.logger.Error("webserver: history", "err", err)
		http.Error(w, err.Error(), 500)
		return
	}
	out := make([]colorapi.ColorChange, 0, len(history))
	for _, c := range history {
		out = append(out, toColorChange(c))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	evts, err := s.store.ListEvents(0)
	if err != nil {
		s.logger.Error("webserver: list events", "err", err)
		http.Error(w, err.Error(), 500)
		return
	}
	out := make([]colorapi.Event, 0, len(evts))
	for _, e := range evts {
		out = append(out, events.FromRecord(e))
	}
	writeJSON(w, http.StatusOK, out)
}

// handleSetColor stores a change directly, or with publish "true" emits a
// manual color change event instead; the sink applies it when it arrives.
func (s *Server) handleSetColor(w http.ResponseWriter, r *http.Request) {
	var req colorapi.SetColorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), 400)
		return
	}
	color := strings.ToUpper(strings.TrimSpace(req.Color))
	if !colorapi.IsColor(color) {
		http.Error(w, "unknown color", 400)
		return
	}
	source := req.Source
	if source == "" {
		source = colorapi.SourceManual
	}
	subject, _ := SubjectFromContext(r.Context())
	s.logger.Info("webserver: color change requested", "color", color, "source", source, "publish", req.Publish, "subject", subject)

	// Only "true" publishes; "false" and any other value store directly.
	if req.Publish != "true" {
		c, err := s.store.InsertColorChange(color, source, s.now())
		if err != nil {
			s.logger.Error("webserver: set color", "err", err)
			http.Error(w, err.Error(), 500)
			return
		}
		writeJSON(w, http.StatusOK, toColorChange(*c))
		return
	}

	change := colorapi.ColorChange{Color: color, Timestamp: s.now().Format(colorapi.TimestampLayout), Source: source}
	data, err := json.Marshal(change)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	ev := events.New(events.TypeManualColorChange, events.ServiceSource, data)
	if err := s.pub.Publish(r.Context(), ev); err != nil {
		s.logger.Error("webserver: publish color change", "id", ev.ID, "err", err)
		http.Error(w, "publish failed", http.StatusBadGateway)
		return
	}
	s.logger.Info("webserver: published color change", "id", ev.ID, "type", ev.Type)
	writeJSON(w, http.StatusOK, change)
}

type healthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "healthy", Timestamp: s.now().Format(time.RFC3339)})
}
