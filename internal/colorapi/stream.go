package colorapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
)

const (
	streamPath = "/api/events/ws"
	minBackoff = time.Second
	maxBackoff = 30 * time.Second
)

// StreamURL converts the client's http(s) base URL to the websocket feed URL.
func (c *Client) StreamURL() (string, error) {
	u, err := url.Parse(c.baseURL + streamPath)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	return u.String(), nil
}

// EventStream delivers events pushed on the websocket feed until ctx is done,
// reconnecting with exponential backoff whenever the connection drops.
func (c *Client) EventStream(ctx context.Context, logger *slog.Logger, onEvent func(Event)) error {
	target, err := c.StreamURL()
	if err != nil {
		return err
	}
	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}

	backoff := minBackoff
	for {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, target, header)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Warn("event stream dial failed", "url", target, "err", err, "retry_in", backoff)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			if backoff < maxBackoff {
				backoff *= 2
				if backoff > maxBackoff {
					backoff = maxBackoff
				}
			}
			continue
		}
		logger.Info("event stream connected", "url", target)
		backoff = minBackoff

		err = readEvents(ctx, conn, logger, onEvent)
		conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.Warn("event stream dropped", "err", err)
	}
}

func readEvents(ctx context.Context, conn *websocket.Conn, logger *slog.Logger, onEvent func(Event)) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var e Event
		if err := json.Unmarshal(raw, &e); err != nil {
			logger.Debug("event stream: bad message", "err", err)
			continue
		}
		onEvent(e)
	}
}
