// Package render turns fetched color and event data into view-models. It has
// no knowledge of the screen; every function is pure given "now".
package render

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/zsprackett/colorboard/internal/colorapi"
)

const (
	Placeholder       = "Select a color..."
	EmptyTimelineText = "No color changes yet"
	EmptyEventsText   = "No events received yet"
	UnknownAge        = "unknown"
	dateTimeLayout    = "Jan 02, 2006, 15:04:05"
)

// Option is one entry of the color selector. The placeholder has an empty Value.
type Option struct {
	Value string
	Label string
}

// Badge describes the current-color indicator.
type Badge struct {
	Token string
	Label string
	Age   string
}

// TimelineItem is one rendered history entry. History entries carry no id,
// so Key is synthesized from the index.
type TimelineItem struct {
	Key    string
	Token  string
	Label  string
	Time   string
	Age    string
	Source string
}

// EventItem is one rendered event. Subject and Data are empty when absent.
type EventItem struct {
	Key     string
	Type    string
	Age     string
	Source  string
	ID      string
	Subject string
	Data    string
}

// ColorLabel keeps the first character as-is and lowercases the rest.
func ColorLabel(token string) string {
	if token == "" {
		return ""
	}
	_, size := utf8.DecodeRuneInString(token)
	return token[:size] + strings.ToLower(token[size:])
}

// TimeAgo buckets elapsed into s/m/h/d with floor division. Negative
// durations report "0s ago".
func TimeAgo(elapsed time.Duration) string {
	secs := int64(elapsed / time.Second)
	if secs < 0 {
		secs = 0
	}
	mins := secs / 60
	hours := mins / 60
	days := hours / 24
	switch {
	case secs < 60:
		return fmt.Sprintf("%ds ago", secs)
	case mins < 60:
		return fmt.Sprintf("%dm ago", mins)
	case hours < 24:
		return fmt.Sprintf("%dh ago", hours)
	default:
		return fmt.Sprintf("%dd ago", days)
	}
}

// FormatDateTime renders t in local time as "Mon DD, YYYY, HH:MM:SS".
func FormatDateTime(t time.Time) string {
	return t.Local().Format(dateTimeLayout)
}

// stamp returns the absolute and relative renderings of a backend timestamp.
// An unparseable timestamp keeps its raw text and an unknown age.
func stamp(raw string, now time.Time) (string, string) {
	t, err := colorapi.ParseTimestamp(raw)
	if err != nil {
		return raw, UnknownAge
	}
	return FormatDateTime(t), TimeAgo(now.Sub(t))
}

// Options builds the selector entries: the placeholder followed by one entry
// per token, in the given order.
func Options(tokens []string) []Option {
	opts := make([]Option, 0, len(tokens)+1)
	opts = append(opts, Option{Value: "", Label: Placeholder})
	for _, t := range tokens {
		opts = append(opts, Option{Value: t, Label: ColorLabel(t)})
	}
	return opts
}

func NewBadge(c colorapi.ColorChange, now time.Time) Badge {
	_, age := stamp(c.Timestamp, now)
	return Badge{Token: c.Color, Label: ColorLabel(c.Color), Age: age}
}

// Timeline renders history in the order given; the backend sends newest first.
func Timeline(history []colorapi.ColorChange, now time.Time) []TimelineItem {
	items := make([]TimelineItem, 0, len(history))
	for i, c := range history {
		abs, age := stamp(c.Timestamp, now)
		items = append(items, TimelineItem{
			Key:    fmt.Sprintf("change-%d", i),
			Token:  c.Color,
			Label:  ColorLabel(c.Color),
			Time:   abs,
			Age:    age,
			Source: c.Source,
		})
	}
	return items
}

// Events renders the feed keyed by event id. Missing or repeated ids fall
// back to an index key so keys stay unique within one render.
func Events(events []colorapi.Event, now time.Time) []EventItem {
	items := make([]EventItem, 0, len(events))
	seen := make(map[string]bool, len(events))
	for i, e := range events {
		key := e.EventID
		if key == "" || seen[key] {
			key = fmt.Sprintf("event-%d", i)
		}
		seen[key] = true
		_, age := stamp(e.Timestamp, now)
		items = append(items, EventItem{
			Key:     key,
			Type:    e.EventType,
			Age:     age,
			Source:  e.Source,
			ID:      e.EventID,
			Subject: e.Subject,
			Data:    e.Data,
		})
	}
	return items
}
