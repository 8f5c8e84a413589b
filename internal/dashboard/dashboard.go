// Package dashboard drives the color dashboard: it polls the color service,
// turns responses into view-models and hands them to a View, and reports
// outcomes through a Notifier. The Controller is the single owner of all
// mutable dashboard state.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zsprackett/colorboard/internal/colorapi"
	"github.com/zsprackett/colorboard/internal/render"
)

// API is the subset of the color service the dashboard consumes.
type API interface {
	AvailableColors(ctx context.Context) ([]string, error)
	CurrentColor(ctx context.Context) (colorapi.ColorChange, error)
	History(ctx context.Context) ([]colorapi.ColorChange, error)
	Events(ctx context.Context) ([]colorapi.Event, error)
	SetColor(ctx context.Context, req colorapi.SetColorRequest) error
}

// View receives rendered state. Each call replaces what was shown before.
type View interface {
	SetColorOptions(opts []render.Option)
	ShowCurrent(b render.Badge)
	ShowTimeline(items []render.TimelineItem)
	ShowEvents(items []render.EventItem)
	ResetColorSelection()
	ShowClock(text string)
	SetAutoRefresh(running bool, interval time.Duration)
}

// Notifier surfaces short user-facing messages.
type Notifier interface {
	Info(msg string)
	Success(msg string)
	Warn(msg string)
	Error(msg string)
}

// ErrNoColor is returned by SetColor when no color is selected.
var ErrNoColor = errors.New("no color selected")

const (
	msgColorsFailed   = "Error loading available colors"
	msgTimelineFailed = "Error loading timeline data"
	msgEventsFailed   = "Error loading events data"
	msgSetFailed      = "Error setting color"
	msgNoColor        = "Please select a color"
	msgRefreshed      = "Data refreshed"
)

type Options struct {
	RefreshInterval time.Duration
	ClockFormat     string           // strftime pattern
	Now             func() time.Time // defaults to time.Now
}

type Controller struct {
	api      API
	view     View
	notes    Notifier
	logger   *slog.Logger
	interval time.Duration
	clockFmt string
	now      func() time.Time

	base   context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	current   *colorapi.ColorChange
	autoStop  chan struct{} // nil while auto-refresh is stopped
	clockStop chan struct{}
	closed    bool

	timeline lane
	events   lane

	running int            // refreshes in flight, guarded by mu
	idle    *sync.Cond     // signalled when running drops to zero
	loops   sync.WaitGroup // ticker goroutines
}

func New(api API, view View, notes Notifier, opts Options, logger *slog.Logger) *Controller {
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = 5 * time.Second
	}
	if opts.ClockFormat == "" {
		opts.ClockFormat = DefaultClockFormat
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	base, cancel := context.WithCancel(context.Background())
	c := &Controller{
		api:      api,
		view:     view,
		notes:    notes,
		logger:   logger,
		interval: opts.RefreshInterval,
		clockFmt: opts.ClockFormat,
		now:      opts.Now,
		base:     base,
		cancel:   cancel,
	}
	c.idle = sync.NewCond(&c.mu)
	return c
}

// Start performs the initial load: color choices, one full refresh, then the
// auto-refresh and clock tickers.
func (c *Controller) Start(ctx context.Context) {
	c.LoadAvailableColors(ctx)
	c.RefreshAll()
	c.StartAutoRefresh()
	c.StartClock()
}

// Current returns the most recently fetched color change.
func (c *Controller) Current() (colorapi.ColorChange, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return colorapi.ColorChange{}, false
	}
	return *c.current, true
}

func (c *Controller) LoadAvailableColors(ctx context.Context) {
	colors, err := c.api.AvailableColors(ctx)
	if err != nil {
		c.logger.Error("dashboard: load available colors", "err", err)
		c.notes.Error(msgColorsFailed)
		return
	}
	c.view.SetColorOptions(render.Options(colors))
}

// RefreshAll starts the timeline and events refreshes without waiting for
// either; they complete and render independently.
func (c *Controller) RefreshAll() {
	c.spawn(c.RefreshTimeline)
	c.spawn(c.RefreshEvents)
}

// ManualRefresh is RefreshAll plus a confirmation toast.
func (c *Controller) ManualRefresh() {
	c.RefreshAll()
	c.notes.Info(msgRefreshed)
}

// poll is the auto-refresh tick. A view whose last request is still in
// flight is skipped rather than superseded, so a backend slower than the
// interval still gets to answer.
func (c *Controller) poll() {
	c.pollLane("timeline", &c.timeline, c.loadTimeline)
	c.pollLane("events", &c.events, c.loadEvents)
}

func (c *Controller) pollLane(what string, l *lane, load func(parent, ctx context.Context, seq uint64)) {
	if !c.acquire() {
		return
	}
	ctx, seq, ok := l.beginIdle(c.base)
	if !ok {
		c.release()
		c.logger.Debug("dashboard: previous refresh still running, tick skipped", "view", what)
		return
	}
	go func() {
		defer c.release()
		load(c.base, ctx, seq)
	}()
}

func (c *Controller) spawn(fn func(context.Context)) {
	if !c.acquire() {
		return
	}
	go func() {
		defer c.release()
		fn(c.base)
	}()
}

// acquire counts a refresh as in flight unless the controller is closed.
func (c *Controller) acquire() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.running++
	return true
}

func (c *Controller) release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running--
	if c.running == 0 {
		c.idle.Broadcast()
	}
}

// RefreshTimeline fetches the current color and the history concurrently and
// renders both once both succeed. A newer timeline refresh supersedes this
// one: its request is cancelled and its result dropped.
func (c *Controller) RefreshTimeline(parent context.Context) {
	ctx, seq := c.timeline.begin(parent)
	c.loadTimeline(parent, ctx, seq)
}

func (c *Controller) loadTimeline(parent, ctx context.Context, seq uint64) {
	var (
		current colorapi.ColorChange
		history []colorapi.ColorChange
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		current, err = c.api.CurrentColor(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		history, err = c.api.History(gctx)
		return err
	})
	err := g.Wait()

	applied := c.timeline.finish(seq, func() {
		if err != nil {
			c.fail("timeline", parent, err, msgTimelineFailed)
			return
		}
		c.mu.Lock()
		c.current = &current
		c.mu.Unlock()

		now := c.now()
		c.view.ShowCurrent(render.NewBadge(current, now))
		c.view.ShowTimeline(render.Timeline(history, now))
	})
	if !applied {
		c.logger.Debug("dashboard: dropped stale timeline response", "seq", seq)
	}
}

// RefreshEvents fetches and renders the event feed, with the same
// supersede rule as RefreshTimeline.
func (c *Controller) RefreshEvents(parent context.Context) {
	ctx, seq := c.events.begin(parent)
	c.loadEvents(parent, ctx, seq)
}

func (c *Controller) loadEvents(parent, ctx context.Context, seq uint64) {
	events, err := c.api.Events(ctx)

	applied := c.events.finish(seq, func() {
		if err != nil {
			c.fail("events", parent, err, msgEventsFailed)
			return
		}
		c.view.ShowEvents(render.Events(events, c.now()))
	})
	if !applied {
		c.logger.Debug("dashboard: dropped stale events response", "seq", seq)
	}
}

// fail logs and toasts a refresh failure unless it was caused by shutdown.
func (c *Controller) fail(what string, parent context.Context, err error, msg string) {
	if parent.Err() != nil {
		c.logger.Debug("dashboard: refresh abandoned", "view", what, "err", err)
		return
	}
	c.logger.Error("dashboard: refresh "+what, "err", err)
	c.notes.Error(msg)
}

// SetColor submits a manual color change. An empty color only warns.
// On success the views are refreshed and the selector is reset.
func (c *Controller) SetColor(ctx context.Context, color string, publish bool) error {
	if color == "" {
		c.notes.Warn(msgNoColor)
		return ErrNoColor
	}
	if err := c.api.SetColor(ctx, colorapi.NewSetColorRequest(color, publish)); err != nil {
		c.logger.Error("dashboard: set color", "color", color, "publish", publish, "err", err)
		c.notes.Error(msgSetFailed)
		return fmt.Errorf("set color %s: %w", color, err)
	}
	c.logger.Info("dashboard: color set", "color", color, "publish", publish)
	c.notes.Success(fmt.Sprintf("Color set to %s", color))
	c.RefreshAll()
	c.view.ResetColorSelection()
	return nil
}

// StartAutoRefresh refreshes both views on every interval tick. Calling it
// while already running restarts the ticker.
func (c *Controller) StartAutoRefresh() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.stopAutoLocked()
	stop := make(chan struct{})
	c.autoStop = stop
	c.loops.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.loops.Done()
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.poll()
			case <-stop:
				return
			}
		}
	}()
	c.view.SetAutoRefresh(true, c.interval)
}

// StopAutoRefresh stops the ticker. Safe to call when already stopped.
func (c *Controller) StopAutoRefresh() {
	c.mu.Lock()
	wasRunning := c.stopAutoLocked()
	c.mu.Unlock()
	if wasRunning {
		c.view.SetAutoRefresh(false, c.interval)
	}
}

// ToggleAutoRefresh flips the auto-refresh state and returns the new one.
func (c *Controller) ToggleAutoRefresh() bool {
	if c.AutoRefreshRunning() {
		c.StopAutoRefresh()
		return false
	}
	c.StartAutoRefresh()
	return true
}

func (c *Controller) AutoRefreshRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.autoStop != nil
}

func (c *Controller) stopAutoLocked() bool {
	if c.autoStop == nil {
		return false
	}
	close(c.autoStop)
	c.autoStop = nil
	return true
}

// Wait blocks until no refresh is in flight. With auto-refresh running it
// may return just before the next tick starts another.
func (c *Controller) Wait() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.running > 0 {
		c.idle.Wait()
	}
}

// Close stops both tickers, cancels in-flight requests and waits for them.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.stopAutoLocked()
	if c.clockStop != nil {
		close(c.clockStop)
		c.clockStop = nil
	}
	c.mu.Unlock()

	c.cancel()
	c.Wait()
	c.loops.Wait()
}

// lane serialises one view's refreshes. An explicit refresh cancels the
// previous one; a poll waits its turn. Only the latest may apply its result.
type lane struct {
	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
}

func (l *lane) begin(parent context.Context) (context.Context, uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		l.cancel()
	}
	l.seq++
	ctx, cancel := context.WithCancel(parent)
	l.cancel = cancel
	return ctx, l.seq
}

// beginIdle starts a request only when none is in flight.
func (l *lane) beginIdle(parent context.Context) (context.Context, uint64, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		return nil, 0, false
	}
	l.seq++
	ctx, cancel := context.WithCancel(parent)
	l.cancel = cancel
	return ctx, l.seq, true
}

// finish runs apply under the lane lock if seq is still the latest request
// and reports whether it did.
func (l *lane) finish(seq uint64, apply func()) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if seq != l.seq {
		return false
	}
	l.cancel()
	l.cancel = nil
	apply()
	return true
}
