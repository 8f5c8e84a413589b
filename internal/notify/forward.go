package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Config holds settings for forwarding error toasts off-screen.
type Config struct {
	Enabled bool   `json:"enabled"`
	Webhook string `json:"webhook"`
	NtfyURL string `json:"ntfy"`
}

// Forwarder POSTs error toasts to a webhook and/or an ntfy topic.
type Forwarder struct {
	cfg    Config
	client *http.Client
	logger *slog.Logger
}

// NewForwarder returns nil when forwarding is disabled or has no targets.
func NewForwarder(cfg Config, logger *slog.Logger) *Forwarder {
	if !cfg.Enabled || (cfg.Webhook == "" && cfg.NtfyURL == "") {
		return nil
	}
	return &Forwarder{
		cfg:    cfg,
		client: &http.Client{Timeout: 5 * time.Second},
		logger: logger,
	}
}

type webhookPayload struct {
	Message   string `json:"message"`
	Level     string `json:"level"`
	Timestamp string `json:"timestamp"`
}

type ntfyPayload struct {
	Title    string   `json:"title"`
	Message  string   `json:"message"`
	Priority int      `json:"priority"`
	Tags     []string `json:"tags"`
}

// Forward delivers t to every configured target. Failures are logged only.
func (f *Forwarder) Forward(t Toast) {
	if f.cfg.Webhook != "" {
		f.post("webhook", f.cfg.Webhook, webhookPayload{
			Message:   t.Message,
			Level:     t.Level.String(),
			Timestamp: t.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	if f.cfg.NtfyURL != "" {
		f.post("ntfy", f.cfg.NtfyURL, ntfyPayload{
			Title:    "colorboard " + t.Level.String(),
			Message:  t.Message,
			Priority: 4,
			Tags:     []string{"rotating_light"},
		})
	}
}

func (f *Forwarder) post(target, url string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	resp, err := f.client.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		f.logger.Warn("notify: "+target+" failed", "err", err)
		return
	}
	resp.Body.Close()
	if resp.StatusCode >= 300 {
		f.logger.Warn("notify: "+target+" rejected", "err", fmt.Errorf("status %d", resp.StatusCode))
	}
}
