package webserver

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/zsprackett/colorboard/internal/events"
)

// Publisher delivers an event the server emits.
type Publisher interface {
	Publish(ctx context.Context, e events.CloudEvent) error
}

type PublisherFunc func(ctx context.Context, e events.CloudEvent) error

func (f PublisherFunc) Publish(ctx context.Context, e events.CloudEvent) error { return f(ctx, e) }

// BrokerPublisher POSTs events to a broker ingress in binary mode.
type BrokerPublisher struct {
	url    string
	client *http.Client
	logger *slog.Logger
}

func NewBrokerPublisher(url string, logger *slog.Logger) *BrokerPublisher {
	return &BrokerPublisher{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
}

func (p *BrokerPublisher) Publish(ctx context.Context, e events.CloudEvent) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(e.Data))
	if err != nil {
		return fmt.Errorf("build broker request: %w", err)
	}
	e.SetHeaders(req.Header)

	p.logger.Info("webserver: sending event to broker", "url", p.url, "id", e.ID)
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("post to broker: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("broker returned %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}
	return nil
}
