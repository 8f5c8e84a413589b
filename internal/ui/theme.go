package ui

import (
	"github.com/gdamore/tcell/v2"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/zsprackett/colorboard/internal/notify"
)

// Theme colors for the TUI.
var (
	ColorBackground      = tcell.NewHexColor(0x1e1e2e)
	ColorBackgroundPanel = tcell.NewHexColor(0x181825)
	ColorBackgroundElem  = tcell.NewHexColor(0x313244)
	ColorPrimary         = tcell.NewHexColor(0x89b4fa) // blue
	ColorAccent          = tcell.NewHexColor(0xcba6f7) // mauve
	ColorText            = tcell.NewHexColor(0xcdd6f4)
	ColorTextMuted       = tcell.NewHexColor(0x6c7086)
	ColorSuccess         = tcell.NewHexColor(0xa6e3a1) // green
	ColorWarning         = tcell.NewHexColor(0xf9e2af) // yellow
	ColorError           = tcell.NewHexColor(0xf38ba8) // red
	ColorBorder          = tcell.NewHexColor(0x45475a)
	ColorSelected        = tcell.NewHexColor(0x89b4fa)
	ColorSelectedText    = tcell.NewHexColor(0x1e1e2e)
)

// swatchHex maps color tokens to the hex shown in the badge swatch.
var swatchHex = map[string]string{
	"RED":    "#e53935",
	"GREEN":  "#43a047",
	"BLUE":   "#1e88e5",
	"YELLOW": "#fdd835",
	"PURPLE": "#8e24aa",
	"ORANGE": "#fb8c00",
	"BLACK":  "#000000",
	"WHITE":  "#ffffff",
}

// Swatch returns the fill and a readable text color for a color token.
// Unknown tokens get a muted neutral swatch.
func Swatch(token string) (fill, text tcell.Color) {
	hex, ok := swatchHex[token]
	if !ok {
		return ColorBackgroundElem, ColorText
	}
	c, err := colorful.Hex(hex)
	if err != nil {
		return ColorBackgroundElem, ColorText
	}
	r, g, b := c.RGB255()
	fill = tcell.NewRGBColor(int32(r), int32(g), int32(b))
	l, _, _ := c.Lab()
	if l > 0.6 {
		return fill, tcell.ColorBlack
	}
	return fill, tcell.ColorWhite
}

// swatchTag is the tview color tag for a token's fill, e.g. "#e53935".
func swatchTag(token string) string {
	hex, ok := swatchHex[token]
	if !ok {
		return "gray"
	}
	return hex
}

// Toast icons
const (
	IconInfo    = "ℹ"
	IconSuccess = "✓"
	IconWarning = "⚠"
	IconError   = "✗"
)

func SeverityStyle(level notify.Level) (string, tcell.Color) {
	switch level {
	case notify.LevelSuccess:
		return IconSuccess, ColorSuccess
	case notify.LevelWarning:
		return IconWarning, ColorWarning
	case notify.LevelError:
		return IconError, ColorError
	default:
		return IconInfo, ColorPrimary
	}
}
