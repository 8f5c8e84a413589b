package colorapi

import (
	"fmt"
	"strings"
	"time"
)

// ColorChange is one recorded transition to a color.
type ColorChange struct {
	Color     string `json:"color"`
	Timestamp string `json:"timestamp"`
	Source    string `json:"source"`
}

// Event is a generic occurrence from the event feed. Subject and Data are
// optional and may be empty.
type Event struct {
	EventType string `json:"eventType"`
	EventID   string `json:"eventId"`
	Source    string `json:"source"`
	Timestamp string `json:"timestamp"`
	Subject   string `json:"subject,omitempty"`
	Data      string `json:"data,omitempty"`
}

// SetColorRequest is the body of POST /api/colors/set. Publish is the string
// form of a bool, as the backend expects.
type SetColorRequest struct {
	Color   string `json:"color"`
	Source  string `json:"source"`
	Publish string `json:"publish"`
}

const SourceManual = "manual"

// NewSetColorRequest builds a manual-source request.
func NewSetColorRequest(color string, publish bool) SetColorRequest {
	return SetColorRequest{
		Color:   color,
		Source:  SourceManual,
		Publish: fmt.Sprintf("%t", publish),
	}
}

// Colors is the token set served by the demo backend, in display order.
var Colors = []string{"RED", "GREEN", "BLUE", "YELLOW", "PURPLE", "ORANGE", "BLACK", "WHITE"}

// IsColor reports whether token names a known color, case-insensitively.
func IsColor(token string) bool {
	up := strings.ToUpper(token)
	for _, c := range Colors {
		if c == up {
			return true
		}
	}
	return false
}

// TimestampLayout is the layout the backend writes: RFC 3339 with
// millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

var localLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseTimestamp parses the timestamp forms the backend emits: RFC 3339 with
// optional fraction, RFC 3339 followed by a bracketed zone id, and zone-less
// date-times, which are read as local time.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '['); i > 0 && strings.HasSuffix(s, "]") {
		s = s[:i]
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}
