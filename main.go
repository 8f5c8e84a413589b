package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/zsprackett/colorboard/internal/applog"
	"github.com/zsprackett/colorboard/internal/colorapi"
	"github.com/zsprackett/colorboard/internal/config"
	"github.com/zsprackett/colorboard/internal/db"
	"github.com/zsprackett/colorboard/internal/ui"
	"github.com/zsprackett/colorboard/internal/webserver"
)

const defaultTokenTTL = 24 * time.Hour

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

func loadConfig() config.Config {
	cfg, err := config.Load(config.DefaultPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not load config: %v\n", err)
		cfg = config.Defaults()
	}
	return cfg
}

// initLogger logs to the daily file, and also to console when non-nil.
func initLogger(cfg config.Config, console io.Writer) (*slog.Logger, func()) {
	logger, closer, err := applog.Init(applog.InitConfig{
		LogDir:   cfg.LogDir,
		LogLevel: cfg.LogLevel,
		Console:  console,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not init log file: %v\n", err)
		return slog.Default(), func() {}
	}
	return logger, func() { closer.Close() }
}

func openDB(path string) (*db.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, err
	}
	store, err := db.Open(path)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

func newClient(cfg config.Config) *colorapi.Client {
	return colorapi.NewClient(cfg.APIURL, cfg.Timeout(), colorapi.WithToken(cfg.Token))
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := loadConfig()

	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "serve":
			runServe(ctx, cfg)
			return
		case "tail":
			runTail(ctx, cfg)
			return
		case "token":
			if len(os.Args) < 3 {
				fatal("usage: colorboard token <subject> [ttl]")
			}
			runToken(cfg, os.Args[2], os.Args[3:])
			return
		default:
			fatal("unknown command %q (want serve, tail or token)", os.Args[1])
		}
	}

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		fatal("the dashboard needs a terminal; use `colorboard tail` for piped output")
	}

	logger, closeLog := initLogger(cfg, nil)
	defer closeLog()
	logger.Info("dashboard starting", "api", cfg.APIURL, "refresh", cfg.Refresh(), "timeout", cfg.Timeout())

	app := ui.NewApp(newClient(cfg), cfg, logger)
	if err := app.Run(ctx); err != nil {
		closeLog()
		fatal("%v", err)
	}
}

// runServe runs the demo color service until interrupted.
func runServe(ctx context.Context, cfg config.Config) {
	logger, closeLog := initLogger(cfg, os.Stderr)
	defer closeLog()

	store, err := openDB(cfg.Server.DBPath)
	if err != nil {
		fatal("could not open database: %v", err)
	}
	defer store.Close()

	srv := webserver.New(store, webserver.Config{
		Host:      cfg.Server.Host,
		Port:      cfg.Server.Port,
		JWTSecret: cfg.Server.JWTSecret,
		BrokerURL: cfg.Server.BrokerURL,
	}, logger)
	if err := srv.ListenAndServe(ctx); err != nil {
		logger.Error("webserver stopped", "err", err)
		os.Exit(1)
	}
}

// runTail prints every event pushed on the live feed, one per line.
func runTail(ctx context.Context, cfg config.Config) {
	logger, closeLog := initLogger(cfg, os.Stderr)
	defer closeLog()

	client := newClient(cfg)
	err := client.EventStream(ctx, logger, func(e colorapi.Event) {
		fmt.Printf("%s  %-36s  %-24s  %s\n", e.Timestamp, e.EventType, e.Source, e.EventID)
	})
	if err != nil && ctx.Err() == nil {
		fatal("%v", err)
	}
}

func runToken(cfg config.Config, subject string, rest []string) {
	ttl := defaultTokenTTL
	if len(rest) > 0 {
		d, err := time.ParseDuration(rest[0])
		if err != nil {
			fatal("bad ttl %q: %v", rest[0], err)
		}
		ttl = d
	}
	if cfg.Server.JWTSecret == "" {
		fatal("server.jwtSecret is not set in %s", config.DefaultPath())
	}
	token, err := webserver.IssueAccessToken(cfg.Server.JWTSecret, subject, ttl)
	if err != nil {
		fatal("%v", err)
	}
	fmt.Println(token)
}
