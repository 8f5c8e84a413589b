package dashboard

import (
	"time"

	"github.com/ncruces/go-strftime"
)

// DefaultClockFormat renders as "Mon DD, YYYY, HH:MM:SS".
const DefaultClockFormat = "%b %d, %Y, %H:%M:%S"

// FormatClock renders t in local time using a strftime pattern.
func FormatClock(pattern string, t time.Time) string {
	return strftime.Format(pattern, t.Local())
}

// StartClock shows the time now and then once a second until Close. It runs
// independently of auto-refresh; a second call is a no-op.
func (c *Controller) StartClock() {
	c.mu.Lock()
	if c.closed || c.clockStop != nil {
		c.mu.Unlock()
		return
	}
	stop := make(chan struct{})
	c.clockStop = stop
	c.loops.Add(1)
	c.mu.Unlock()

	c.tick()
	go func() {
		defer c.loops.Done()
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.tick()
			case <-stop:
				return
			}
		}
	}()
}

func (c *Controller) tick() {
	c.view.ShowClock(FormatClock(c.clockFmt, c.now()))
}
