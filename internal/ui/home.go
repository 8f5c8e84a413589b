package ui

import (
	"sync"
	"time"

	"github.com/rivo/tview"

	"github.com/zsprackett/colorboard/internal/notify"
	"github.com/zsprackett/colorboard/internal/render"
)

// Home is the dashboard screen: header, toast strip, current color, control
// form and timeline on the left, event feed on the right.
//
// Home implements dashboard.View. Those methods may be called from any
// goroutine; they are forwarded in order to the UI goroutine.
type Home struct {
	*tview.Flex
	app      *tview.Application
	header   *tview.TextView
	toasts   *tview.TextView
	badge    *tview.TextView
	form     *tview.Form
	colors   *tview.DropDown
	publish  *tview.Checkbox
	timeline *tview.TextView
	events   *tview.TextView
	footer   *tview.TextView

	// owned by the UI goroutine
	head     headerState
	options  []render.Option
	focus    []tview.Primitive
	focusIdx int

	updates chan func()
	done    chan struct{}
	stop    sync.Once

	onSetColor func(color string, publish bool)
}

func NewHome(app *tview.Application) *Home {
	h := &Home{
		app:     app,
		updates: make(chan func(), 64),
		done:    make(chan struct{}),
	}

	h.header = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	h.header.SetBackgroundColor(ColorBackgroundPanel)

	h.toasts = tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(false)
	h.toasts.SetBackgroundColor(ColorBackgroundElem)

	h.badge = tview.NewTextView().
		SetDynamicColors(true)
	h.badge.SetBorder(true).SetTitle(" Current Color ").SetTitleAlign(tview.AlignLeft)
	h.badge.SetBackgroundColor(ColorBackground)

	h.colors = tview.NewDropDown().
		SetLabel("Color ").
		SetOptions([]string{render.Placeholder}, nil).
		SetCurrentOption(0)
	h.publish = tview.NewCheckbox().SetLabel("Publish ")
	h.form = tview.NewForm().
		AddFormItem(h.colors).
		AddFormItem(h.publish).
		AddButton("Set Color", h.submit)
	h.form.SetBorder(true).SetTitle(" Set Color ").SetTitleAlign(tview.AlignLeft)
	h.form.SetBackgroundColor(ColorBackground)
	h.form.SetFieldBackgroundColor(ColorBackgroundElem)
	h.form.SetButtonBackgroundColor(ColorPrimary)
	h.form.SetButtonTextColor(ColorSelectedText)

	h.timeline = tview.NewTextView().
		SetDynamicColors(true).
		SetRegions(true).
		SetScrollable(true).
		SetWrap(false)
	h.timeline.SetBorder(true).SetTitle(" Color Timeline ").SetTitleAlign(tview.AlignLeft)
	h.timeline.SetBackgroundColor(ColorBackground)
	h.timeline.SetText(timelineText(nil))

	h.events = tview.NewTextView().
		SetDynamicColors(true).
		SetRegions(true).
		SetScrollable(true).
		SetWrap(false)
	h.events.SetBorder(true).SetTitle(" CloudEvents ").SetTitleAlign(tview.AlignLeft)
	h.events.SetBackgroundColor(ColorBackground)
	h.events.SetText(eventsText(nil))

	h.footer = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	h.footer.SetBackgroundColor(ColorBackgroundPanel)
	h.footer.SetText(
		"[green]Ctrl+R[-] refresh  [green]Ctrl+T[-] auto-refresh  [green]Ctrl+D[-] dismiss  " +
			"[green]Ctrl+W[-] next pane  [green]F1[-] help  [green]Ctrl+C[-] quit")

	left := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(h.badge, 3, 0, false).
		AddItem(h.form, 7, 0, true).
		AddItem(h.timeline, 0, 1, false)

	separator := tview.NewBox().SetBackgroundColor(ColorBorder)

	content := tview.NewFlex().SetDirection(tview.FlexColumn).
		AddItem(left, 0, 45, true).
		AddItem(separator, 1, 0, false).
		AddItem(h.events, 0, 55, false)

	h.Flex = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(h.header, 1, 0, false).
		AddItem(h.toasts, 0, 0, false).
		AddItem(content, 0, 1, true).
		AddItem(h.footer, 1, 0, false)

	h.focus = []tview.Primitive{h.form, h.timeline, h.events}
	h.renderHeader()
	return h
}

// SetCallbacks wires the form submit action.
func (h *Home) SetCallbacks(onSetColor func(color string, publish bool)) {
	h.onSetColor = onSetColor
}

// Attach starts forwarding View calls to the application.
func (h *Home) Attach() {
	go func() {
		for {
			select {
			case f := <-h.updates:
				h.app.QueueUpdateDraw(f)
			case <-h.done:
				return
			}
		}
	}()
}

// Detach drops any later View calls. Called once the application has stopped.
func (h *Home) Detach() {
	h.stop.Do(func() { close(h.done) })
}

func (h *Home) queue(f func()) {
	select {
	case h.updates <- f:
	case <-h.done:
	}
}

// Focused returns the primitive that should get focus back after a dialog.
func (h *Home) Focused() tview.Primitive {
	return h.focus[h.focusIdx]
}

// CycleFocus moves focus to the next pane. UI goroutine only.
func (h *Home) CycleFocus() {
	h.focusIdx = (h.focusIdx + 1) % len(h.focus)
	h.app.SetFocus(h.focus[h.focusIdx])
}

func (h *Home) submit() {
	color := h.selectedColor()
	publish := h.publish.IsChecked()
	if h.onSetColor != nil {
		go h.onSetColor(color, publish)
	}
}

func (h *Home) selectedColor() string {
	idx, _ := h.colors.GetCurrentOption()
	if idx < 0 || idx >= len(h.options) {
		return ""
	}
	return h.options[idx].Value
}

func (h *Home) renderHeader() {
	h.header.SetText(headerText(h.head))
}

func (h *Home) SetColorOptions(opts []render.Option) {
	h.queue(func() {
		h.options = opts
		labels := make([]string, len(opts))
		for i, o := range opts {
			labels[i] = o.Label
		}
		h.colors.SetOptions(labels, nil)
		h.colors.SetCurrentOption(0)
	})
}

func (h *Home) ResetColorSelection() {
	h.queue(func() {
		h.colors.SetCurrentOption(0)
	})
}

func (h *Home) ShowCurrent(b render.Badge) {
	h.queue(func() {
		h.badge.SetText(badgeText(b))
	})
}

func (h *Home) ShowTimeline(items []render.TimelineItem) {
	h.queue(func() {
		h.timeline.SetText(timelineText(items))
		h.timeline.SetTitle(" Color Timeline (" + plural(len(items), "change") + ") ")
	})
}

func (h *Home) ShowEvents(items []render.EventItem) {
	h.queue(func() {
		h.events.SetText(eventsText(items))
		h.events.ScrollToBeginning()
		h.head.eventCount = len(items)
		h.renderHeader()
	})
}

func (h *Home) ShowClock(text string) {
	h.queue(func() {
		h.head.clock = text
		h.renderHeader()
	})
}

func (h *Home) SetAutoRefresh(running bool, interval time.Duration) {
	h.queue(func() {
		h.head.auto = running
		h.head.interval = interval
		h.renderHeader()
	})
}

// ShowToasts redraws the toast strip; it is the notify.Center observer.
func (h *Home) ShowToasts(ts []notify.Toast) {
	h.queue(func() {
		text, rows := toastText(ts)
		h.toasts.SetText(text)
		h.Flex.ResizeItem(h.toasts, rows, 0)
	})
}
