// Package events holds the CloudEvents model shared by the demo backend's
// sink, publisher and live feed. Events travel in HTTP binary mode: context
// attributes as Ce-* headers, data as the request body.
package events

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zsprackett/colorboard/internal/colorapi"
)

const SpecVersion = "1.0"

const (
	TypeColorChange       = "com.example.color.change"
	TypeManualColorChange = "com.example.color.manual.change"

	// Source stamped on events the backend itself publishes.
	ServiceSource = "com.example.colorboard"
)

// Defaults applied by the sink when a context attribute is missing.
const (
	UnknownType   = "unknown.event"
	UnknownSource = "unknown-source"
)

type CloudEvent struct {
	ID              string
	Type            string
	Source          string
	Subject         string
	Time            time.Time
	DataContentType string
	Data            []byte
}

// New returns an event with a fresh id and the current time.
func New(eventType, source string, data []byte) CloudEvent {
	return CloudEvent{
		ID:              uuid.NewString(),
		Type:            eventType,
		Source:          source,
		Time:            time.Now(),
		DataContentType: "application/json",
		Data:            data,
	}
}

// IsColorChange reports whether t carries a color in its data.
func IsColorChange(t string) bool {
	return t == TypeColorChange || t == TypeManualColorChange
}

// SetHeaders writes e's context attributes as binary-mode headers.
func (e CloudEvent) SetHeaders(h http.Header) {
	h.Set("Ce-Specversion", SpecVersion)
	h.Set("Ce-Id", e.ID)
	h.Set("Ce-Type", e.Type)
	h.Set("Ce-Source", e.Source)
	if e.Subject != "" {
		h.Set("Ce-Subject", e.Subject)
	}
	if !e.Time.IsZero() {
		h.Set("Ce-Time", e.Time.Format(time.RFC3339Nano))
	}
	if e.DataContentType != "" {
		h.Set("Content-Type", e.DataContentType)
	}
}

// FromHeaders reads a binary-mode event, filling in missing attributes the
// way the sink records them. An unparseable Ce-Time falls back to now and is
// reported as timeErr.
func FromHeaders(h http.Header, body []byte, now time.Time) (e CloudEvent, timeErr error) {
	e = CloudEvent{
		ID:              strings.TrimSpace(h.Get("Ce-Id")),
		Type:            strings.TrimSpace(h.Get("Ce-Type")),
		Source:          strings.TrimSpace(h.Get("Ce-Source")),
		Subject:         strings.TrimSpace(h.Get("Ce-Subject")),
		DataContentType: h.Get("Content-Type"),
		Data:            body,
		Time:            now,
	}
	if e.ID == "" {
		e.ID = fmt.Sprintf("unknown-%d", now.UnixMilli())
	}
	if e.Type == "" {
		e.Type = UnknownType
	}
	if e.Source == "" {
		e.Source = UnknownSource
	}
	if raw := h.Get("Ce-Time"); raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			timeErr = fmt.Errorf("parse Ce-Time %q: %w", raw, err)
		} else {
			e.Time = t
		}
	}
	return e, timeErr
}

// Broadcaster sends recorded events to connected live-feed clients.
// A nil Broadcaster is safe to use -- Broadcast becomes a no-op.
type Broadcaster interface {
	Broadcast(e colorapi.Event)
}
