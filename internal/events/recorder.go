package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/zsprackett/colorboard/internal/colorapi"
	"github.com/zsprackett/colorboard/internal/db"
)

// FromRecord converts a stored event to its API form.
func FromRecord(e db.CloudEvent) colorapi.Event {
	return colorapi.Event{
		EventType: e.EventType,
		EventID:   e.EventID,
		Source:    e.Source,
		Timestamp: e.OccurredAt.Format(colorapi.TimestampLayout),
		Subject:   e.Subject,
		Data:      e.Data,
	}
}

// Recorder stores received CloudEvents, pushes them to the live feed and
// applies any color change they carry.
type Recorder struct {
	store       *db.DB
	broadcaster Broadcaster
	logger      *slog.Logger
	now         func() time.Time
}

// NewRecorder returns a Recorder. broadcaster may be nil.
func NewRecorder(store *db.DB, broadcaster Broadcaster, logger *slog.Logger) *Recorder {
	return &Recorder{store: store, broadcaster: broadcaster, logger: logger, now: time.Now}
}

// Receive records ev. A color that cannot be applied is logged, not returned.
func (r *Recorder) Receive(ctx context.Context, ev CloudEvent) error {
	rec := &db.CloudEvent{
		EventID:    ev.ID,
		EventType:  ev.Type,
		Source:     ev.Source,
		Subject:    ev.Subject,
		Data:       string(ev.Data),
		OccurredAt: ev.Time,
	}
	if err := r.store.InsertEvent(rec); err != nil {
		return err
	}
	r.logger.Info("events: cloudevent received", "id", ev.ID, "type", ev.Type, "source", ev.Source)
	if r.broadcaster != nil {
		r.broadcaster.Broadcast(FromRecord(*rec))
	}

	if !IsColorChange(ev.Type) || strings.TrimSpace(string(ev.Data)) == "" {
		return nil
	}
	color, err := colorFromData(ev.Data)
	if err != nil {
		r.logger.Warn("events: color change not applied", "id", ev.ID, "err", err)
		return nil
	}
	if color == "" {
		return nil
	}
	if _, err := r.store.InsertColorChange(color, "cloudevent:"+ev.Source, r.now()); err != nil {
		r.logger.Warn("events: color change not applied", "id", ev.ID, "err", err)
		return nil
	}
	r.logger.Info("events: color updated from cloudevent", "color", color, "id", ev.ID)
	return nil
}

// colorFromData extracts an upper-cased known color from a JSON payload.
// A payload without a color field yields "".
func colorFromData(data []byte) (string, error) {
	var payload struct {
		Color *string `json:"color"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return "", fmt.Errorf("decode data: %w", err)
	}
	if payload.Color == nil {
		return "", nil
	}
	color := strings.ToUpper(*payload.Color)
	if !colorapi.IsColor(color) {
		return "", fmt.Errorf("unknown color %q", *payload.Color)
	}
	return color, nil
}
