package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"
	"github.com/rivo/tview"

	"github.com/zsprackett/colorboard/internal/notify"
	"github.com/zsprackett/colorboard/internal/render"
)

const (
	fieldWidth   = 48 // max cells for free-text fields such as source or data
	maxToastRows = 4
)

// clip truncates s to w terminal cells and escapes it for tview.
func clip(s string, w int) string {
	return tview.Escape(runewidth.Truncate(s, w, "…"))
}

// regionID maps a view-model key onto the characters tview accepts in
// region tags.
func regionID(key string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case strings.ContainsRune("_,;:-. ", r):
			return r
		}
		return '_'
	}, key)
}

func tag(c tcell.Color) string {
	return fmt.Sprintf("#%06x", c.Hex())
}

type headerState struct {
	clock      string
	auto       bool
	interval   time.Duration
	eventCount int
}

func headerText(s headerState) string {
	auto := "[" + tag(ColorTextMuted) + "]auto-refresh off[-]"
	if s.auto {
		auto = fmt.Sprintf("[%s]⟳ auto-refresh %s[-]", tag(ColorSuccess), s.interval)
	}
	return fmt.Sprintf("[%s]COLORBOARD[-]   %s   %s   %s",
		tag(ColorPrimary), s.clock, auto, plural(s.eventCount, "event"))
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return humanize.Comma(int64(n)) + " " + noun + "s"
}

func badgeText(b render.Badge) string {
	_, fg := Swatch(b.Token)
	fgName := "white"
	if fg == tcell.ColorBlack {
		fgName = "black"
	}
	return fmt.Sprintf("[%s:%s:b]  %s  [-:-:-]  [%s]updated %s[-]",
		fgName, swatchTag(b.Token), clip(b.Label, 16), tag(ColorTextMuted), b.Age)
}

// timelineText renders history as one tview region per entry.
func timelineText(items []render.TimelineItem) string {
	if len(items) == 0 {
		return "[" + tag(ColorTextMuted) + "]" + render.EmptyTimelineText + "[-]"
	}
	var sb strings.Builder
	for _, it := range items {
		fmt.Fprintf(&sb, `["%s"][%s]●[-] %-7s [%s]%s · %s · %s[-][""]`+"\n",
			regionID(it.Key), swatchTag(it.Token), clip(it.Label, 12),
			tag(ColorTextMuted), tview.Escape(it.Time), it.Age, clip(it.Source, fieldWidth))
	}
	return strings.TrimRight(sb.String(), "\n")
}

// eventsText renders the event feed, newest first as received.
func eventsText(items []render.EventItem) string {
	if len(items) == 0 {
		return "[" + tag(ColorTextMuted) + "]" + render.EmptyEventsText + "[-]"
	}
	muted := tag(ColorTextMuted)
	var sb strings.Builder
	for _, it := range items {
		fmt.Fprintf(&sb, `["%s"][%s]%s[-]  [%s]%s[-]`+"\n", regionID(it.Key), tag(ColorAccent), clip(it.Type, fieldWidth), muted, it.Age)
		fmt.Fprintf(&sb, "  [%s]source[-] %s  [%s]id[-] %s\n", muted, clip(it.Source, fieldWidth), muted, clip(it.ID, fieldWidth))
		if it.Subject != "" {
			fmt.Fprintf(&sb, "  [%s]subject[-] %s\n", muted, clip(it.Subject, fieldWidth))
		}
		if it.Data != "" {
			fmt.Fprintf(&sb, "  [%s]data[-] %s\n", muted, clip(it.Data, fieldWidth*2))
		}
		sb.WriteString(`[""]` + "\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// toastText renders the newest toasts last; overflow collapses to a count.
// It returns the text and the number of rows it needs.
func toastText(ts []notify.Toast) (string, int) {
	if len(ts) == 0 {
		return "", 0
	}
	shown := ts
	hidden := 0
	if len(ts) > maxToastRows {
		hidden = len(ts) - (maxToastRows - 1)
		shown = ts[hidden:]
	}
	var lines []string
	if hidden > 0 {
		lines = append(lines, fmt.Sprintf("[%s]  +%s more[-]", tag(ColorTextMuted), humanize.Comma(int64(hidden))))
	}
	for _, t := range shown {
		icon, color := SeverityStyle(t.Level)
		lines = append(lines, fmt.Sprintf("[%s] %s %s[-]", tag(color), icon, clip(t.Message, fieldWidth*2)))
	}
	return strings.Join(lines, "\n"), len(lines)
}
