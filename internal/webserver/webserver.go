// Package webserver is the demo color service: the REST API the dashboard
// polls, a binary-mode CloudEvents sink, and a websocket live feed.
package webserver

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/zsprackett/colorboard/internal/colorapi"
	"github.com/zsprackett/colorboard/internal/db"
	"github.com/zsprackett/colorboard/internal/events"
)

type Config struct {
	Host      string
	Port      int
	JWTSecret string // empty disables auth on /api
	BrokerURL string // empty delivers published events in-process
}

type Server struct {
	store    *db.DB
	cfg      Config
	pub      Publisher
	recorder *events.Recorder
	logger   *slog.Logger
	now      func() time.Time

	mu      sync.Mutex
	clients map[chan colorapi.Event]struct{}

	done     chan struct{}
	stopOnce sync.Once
}

func New(store *db.DB, cfg Config, logger *slog.Logger) *Server {
	s := &Server{
		store:   store,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
		clients: make(map[chan colorapi.Event]struct{}),
		done:    make(chan struct{}),
	}
	s.recorder = events.NewRecorder(store, s, logger)
	if cfg.BrokerURL != "" {
		s.pub = NewBrokerPublisher(cfg.BrokerURL, logger)
	} else {
		s.pub = PublisherFunc(s.recorder.Receive)
	}
	return s
}

var _ events.Broadcaster = (*Server)(nil)

// Broadcast implements events.Broadcaster.
func (s *Server) Broadcast(e colorapi.Event) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.clients {
		select {
		case ch <- e:
		default:
		}
	}
}

func (s *Server) addClient(ch chan colorapi.Event) {
	s.mu.Lock()
	s.clients[ch] = struct{}{}
	s.mu.Unlock()
}

func (s *Server) removeClient(ch chan colorapi.Event) {
	s.mu.Lock()
	delete(s.clients, ch)
	s.mu.Unlock()
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/colors/available", s.handleAvailable)
	mux.HandleFunc("GET /api/colors/current", s.handleCurrent)
	mux.HandleFunc("GET /api/colors/history", s.handleHistory)
	mux.HandleFunc("POST /api/colors/set", s.handleSetColor)
	mux.HandleFunc("GET /api/events", s.handleEvents)
	mux.HandleFunc("GET /api/events/ws", s.handleEventStream)
	mux.HandleFunc("POST /cloudevents", s.handleCloudEvent)
	mux.HandleFunc("GET /cloudevents/health", s.handleHealth)
	mux.HandleFunc("POST /cloudevents/debug", s.handleDebug)

	var h http.Handler = mux
	if s.cfg.JWTSecret != "" {
		h = jwtMiddleware(s.cfg.JWTSecret, []string{"/cloudevents"}, h)
	}
	return cors(h)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("webserver: listening", "addr", addr, "auth", s.cfg.JWTSecret != "", "broker", s.cfg.BrokerURL)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// Close disconnects live-feed clients. Hijacked websocket connections are
// not covered by http.Server.Shutdown.
func (s *Server) Close() {
	s.stopOnce.Do(func() { close(s.done) })
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
