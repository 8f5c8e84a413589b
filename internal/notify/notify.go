package notify

import (
	"log/slog"
	"sync"
	"time"
)

// Level is the severity of a toast. The zero value is LevelInfo.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelWarning
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelSuccess:
		return "success"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// Toast is one transient notification.
type Toast struct {
	ID        int
	Message   string
	Level     Level
	CreatedAt time.Time
}

// Center holds the stack of live toasts. Each toast removes itself after the
// TTL; onChange receives a copy of the stack after every change.
type Center struct {
	mu       sync.Mutex
	deliver  sync.Mutex // orders observer calls; taken before mu is released
	ttl      time.Duration
	nextID   int
	toasts   []Toast
	timers   map[int]*time.Timer
	onChange func([]Toast)
	fwd      *Forwarder
	logger   *slog.Logger
	closed   bool
}

// New returns a Center. fwd may be nil.
func New(ttl time.Duration, fwd *Forwarder, logger *slog.Logger) *Center {
	return &Center{
		ttl:    ttl,
		timers: make(map[int]*time.Timer),
		fwd:    fwd,
		logger: logger,
	}
}

// OnChange registers the stack observer. Calls arrive one at a time in the
// order the changes were made; fn must not call back into the Center.
func (c *Center) OnChange(fn func([]Toast)) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

// Show pushes a toast and returns its id.
func (c *Center) Show(message string, level Level) int {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return 0
	}
	c.nextID++
	t := Toast{ID: c.nextID, Message: message, Level: level, CreatedAt: time.Now()}
	c.toasts = append(c.toasts, t)
	id := t.ID
	c.timers[id] = time.AfterFunc(c.ttl, func() { c.expire(id) })
	c.publishLocked(c.snapshot())

	c.logger.Debug("toast", "level", level.String(), "msg", message)
	if level == LevelError && c.fwd != nil {
		go c.fwd.Forward(t)
	}
	return id
}

// Dismiss removes a toast before its TTL. Unknown ids are ignored.
func (c *Center) Dismiss(id int) {
	c.remove(id, true)
}

func (c *Center) expire(id int) {
	c.remove(id, false)
}

func (c *Center) remove(id int, stopTimer bool) {
	c.mu.Lock()
	idx := -1
	for i, t := range c.toasts {
		if t.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		c.mu.Unlock()
		return
	}
	c.toasts = append(c.toasts[:idx], c.toasts[idx+1:]...)
	if tm, ok := c.timers[id]; ok {
		if stopTimer {
			tm.Stop()
		}
		delete(c.timers, id)
	}
	c.publishLocked(c.snapshot())
}

// DismissAll clears the stack.
func (c *Center) DismissAll() {
	c.mu.Lock()
	if len(c.toasts) == 0 {
		c.mu.Unlock()
		return
	}
	c.stopTimers()
	c.toasts = nil
	c.publishLocked(nil)
}

// publishLocked hands snap to the observer and releases c.mu. The delivery
// lock is taken first, so observers see snapshots in mutation order.
func (c *Center) publishLocked(snap []Toast) {
	fn := c.onChange
	c.deliver.Lock()
	c.mu.Unlock()
	defer c.deliver.Unlock()
	if fn != nil {
		fn(snap)
	}
}

// Toasts returns a copy of the live stack, oldest first.
func (c *Center) Toasts() []Toast {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

// Close stops pending timers. Later Show calls are ignored.
func (c *Center) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.stopTimers()
}

func (c *Center) stopTimers() {
	for id, tm := range c.timers {
		tm.Stop()
		delete(c.timers, id)
	}
}

func (c *Center) snapshot() []Toast {
	if len(c.toasts) == 0 {
		return nil
	}
	out := make([]Toast, len(c.toasts))
	copy(out, c.toasts)
	return out
}

// Info, Success, Warn and Error are shorthands for Show.
func (c *Center) Info(msg string)    { c.Show(msg, LevelInfo) }
func (c *Center) Success(msg string) { c.Show(msg, LevelSuccess) }
func (c *Center) Warn(msg string)    { c.Show(msg, LevelWarning) }
func (c *Center) Error(msg string)   { c.Show(msg, LevelError) }
