package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"
)

type NotificationsConfig struct {
	Enabled bool   `json:"enabled"`
	Webhook string `json:"webhook"`
	NtfyURL string `json:"ntfy"`
}

type ServerConfig struct {
	Host      string `json:"host"`
	Port      int    `json:"port"`
	DBPath    string `json:"dbPath"`
	JWTSecret string `json:"jwtSecret"` // empty disables auth on /api
	BrokerURL string `json:"brokerURL"` // empty delivers published events in-process
}

type Config struct {
	APIURL          string              `json:"apiURL"`
	Token           string              `json:"token"`
	RefreshInterval string              `json:"refreshInterval"`
	RequestTimeout  string              `json:"requestTimeout"`
	ToastTTL        string              `json:"toastTTL"`
	ClockFormat     string              `json:"clockFormat"` // strftime pattern
	LogDir          string              `json:"logDir"`
	LogLevel        string              `json:"logLevel"`
	Notifications   NotificationsConfig `json:"notifications"`
	Server          ServerConfig        `json:"server"`
}

const (
	DefaultRefreshInterval = 5 * time.Second
	DefaultRequestTimeout  = 10 * time.Second
	DefaultToastTTL        = 5 * time.Second
	DefaultClockFormat     = "%b %d, %Y, %H:%M:%S"
)

func Defaults() Config {
	return Config{
		APIURL:          "http://localhost:8080",
		RefreshInterval: DefaultRefreshInterval.String(),
		RequestTimeout:  DefaultRequestTimeout.String(),
		ToastTTL:        DefaultToastTTL.String(),
		ClockFormat:     DefaultClockFormat,
		LogDir:          filepath.Join(Dir(), "logs"),
		LogLevel:        "info",
		Server: ServerConfig{
			Host:   "127.0.0.1",
			Port:   8080,
			DBPath: filepath.Join(Dir(), "colors.db"),
		},
	}
}

// Dir is the per-user state directory.
func Dir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".colorboard")
}

func DefaultPath() string {
	return filepath.Join(Dir(), "config.json")
}

func Load(path string) (Config, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) Refresh() time.Duration {
	return parseDuration(c.RefreshInterval, DefaultRefreshInterval)
}

func (c Config) Timeout() time.Duration {
	return parseDuration(c.RequestTimeout, DefaultRequestTimeout)
}

func (c Config) ToastLifetime() time.Duration {
	return parseDuration(c.ToastTTL, DefaultToastTTL)
}

// parseDuration returns def when s is empty, malformed or not positive.
func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
