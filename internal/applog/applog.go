package applog

import (
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

const defaultPrefix = "colorboard"

// DailyRotator is an io.Writer that writes to <prefix>-YYYY-MM-DD.log in dir
// and starts a new file each calendar day. Files beyond keep are pruned,
// oldest first.
type DailyRotator struct {
	mu     sync.Mutex
	dir    string
	prefix string
	keep   int
	date   string
	file   *os.File
	now    func() time.Time
}

// NewDailyRotator returns a DailyRotator for dir. An empty prefix falls back
// to "colorboard"; keep < 1 keeps a single file.
func NewDailyRotator(dir, prefix string, keep int) *DailyRotator {
	if prefix == "" {
		prefix = defaultPrefix
	}
	if keep < 1 {
		keep = 1
	}
	return &DailyRotator{
		dir:    dir,
		prefix: prefix,
		keep:   keep,
		now:    time.Now,
	}
}

// SetNow replaces the time source. Used in tests only.
func (r *DailyRotator) SetNow(fn func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = fn
}

// FileName returns the log file name for the given day.
func (r *DailyRotator) FileName(day time.Time) string {
	return filepath.Join(r.dir, r.prefix+"-"+day.Format("2006-01-02")+".log")
}

func (r *DailyRotator) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if today := now.Format("2006-01-02"); today != r.date {
		if err := r.openFor(now); err != nil {
			return 0, err
		}
	}
	return r.file.Write(p)
}

func (r *DailyRotator) openFor(day time.Time) error {
	if r.file != nil {
		r.file.Close()
		r.file = nil
	}
	f, err := os.OpenFile(r.FileName(day), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	r.file = f
	r.date = day.Format("2006-01-02")
	r.prune()
	return nil
}

func (r *DailyRotator) prune() {
	matches, err := filepath.Glob(filepath.Join(r.dir, r.prefix+"-*.log"))
	if err != nil || len(matches) <= r.keep {
		return
	}
	sort.Strings(matches)
	for _, f := range matches[:len(matches)-r.keep] {
		os.Remove(f)
	}
}

// Close closes the current log file. A later Write reopens it.
func (r *DailyRotator) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.date = ""
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

// InitConfig holds configuration for Init.
type InitConfig struct {
	LogDir   string
	LogLevel string
	Prefix   string
	KeepDays int       // defaults to 7
	Console  io.Writer // optional second sink, e.g. os.Stderr for headless commands
}

// Init sets up file-backed structured logging and installs it as both
// slog.Default and the stdlib log output. The returned io.Closer must be
// deferred by the caller.
func Init(cfg InitConfig) (*slog.Logger, io.Closer, error) {
	if err := os.MkdirAll(cfg.LogDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	keep := cfg.KeepDays
	if keep == 0 {
		keep = 7
	}
	rotator := NewDailyRotator(cfg.LogDir, cfg.Prefix, keep)

	var out io.Writer = rotator
	if cfg.Console != nil {
		out = io.MultiWriter(rotator, cfg.Console)
	}
	handler := slog.NewTextHandler(out, &slog.HandlerOptions{Level: ParseLevel(cfg.LogLevel)})
	logger := slog.New(handler)
	slog.SetDefault(logger)
	log.SetOutput(out)
	log.SetFlags(0)
	return logger, rotator, nil
}

// ParseLevel converts a level string to slog.Level. Defaults to LevelInfo.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
