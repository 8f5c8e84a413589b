package dashboard_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/zsprackett/colorboard/internal/colorapi"
	"github.com/zsprackett/colorboard/internal/dashboard"
	"github.com/zsprackett/colorboard/internal/render"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var errBoom = errors.New("boom")

// fakeAPI answers from its fields; hooks override per call.
type fakeAPI struct {
	colors  []string
	current colorapi.ColorChange
	history []colorapi.ColorChange
	events  []colorapi.Event

	colorsErr  error
	historyErr error
	eventsErr  error
	setErr     error

	currentHook func(ctx context.Context, n int64) (colorapi.ColorChange, error)
	eventsHook  func(ctx context.Context) ([]colorapi.Event, error)

	currentCalls atomic.Int64
	historyCalls atomic.Int64
	eventsCalls  atomic.Int64

	mu   sync.Mutex
	sets []colorapi.SetColorRequest
}

func (f *fakeAPI) AvailableColors(ctx context.Context) ([]string, error) {
	return f.colors, f.colorsErr
}

func (f *fakeAPI) CurrentColor(ctx context.Context) (colorapi.ColorChange, error) {
	n := f.currentCalls.Add(1)
	if f.currentHook != nil {
		return f.currentHook(ctx, n)
	}
	return f.current, nil
}

func (f *fakeAPI) History(ctx context.Context) ([]colorapi.ColorChange, error) {
	f.historyCalls.Add(1)
	return f.history, f.historyErr
}

func (f *fakeAPI) Events(ctx context.Context) ([]colorapi.Event, error) {
	f.eventsCalls.Add(1)
	if f.eventsHook != nil {
		return f.eventsHook(ctx)
	}
	return f.events, f.eventsErr
}

func (f *fakeAPI) SetColor(ctx context.Context, req colorapi.SetColorRequest) error {
	f.mu.Lock()
	f.sets = append(f.sets, req)
	f.mu.Unlock()
	return f.setErr
}

type fakeView struct {
	mu        sync.Mutex
	options   [][]render.Option
	badges    []render.Badge
	timelines [][]render.TimelineItem
	events    [][]render.EventItem
	resets    int
	clocks    []string
	auto      []bool
}

func (v *fakeView) SetColorOptions(opts []render.Option) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.options = append(v.options, opts)
}

func (v *fakeView) ShowCurrent(b render.Badge) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.badges = append(v.badges, b)
}

func (v *fakeView) ShowTimeline(items []render.TimelineItem) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.timelines = append(v.timelines, items)
}

func (v *fakeView) ShowEvents(items []render.EventItem) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.events = append(v.events, items)
}

func (v *fakeView) ResetColorSelection() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.resets++
}

func (v *fakeView) ShowClock(text string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.clocks = append(v.clocks, text)
}

func (v *fakeView) SetAutoRefresh(running bool, interval time.Duration) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.auto = append(v.auto, running)
}

type note struct {
	level string
	msg   string
}

type fakeNotes struct {
	mu    sync.Mutex
	notes []note
}

func (n *fakeNotes) add(level, msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notes = append(n.notes, note{level, msg})
}

func (n *fakeNotes) Info(msg string)    { n.add("info", msg) }
func (n *fakeNotes) Success(msg string) { n.add("success", msg) }
func (n *fakeNotes) Warn(msg string)    { n.add("warning", msg) }
func (n *fakeNotes) Error(msg string)   { n.add("error", msg) }

func (n *fakeNotes) all() []note {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]note(nil), n.notes...)
}

var fixedNow = time.Date(2024, 3, 9, 14, 5, 7, 0, time.Local)

func newTestController(api dashboard.API) (*dashboard.Controller, *fakeView, *fakeNotes) {
	v := &fakeView{}
	n := &fakeNotes{}
	c := dashboard.New(api, v, n, dashboard.Options{
		RefreshInterval: time.Hour,
		Now:             func() time.Time { return fixedNow },
	}, discardLogger())
	return c, v, n
}

func sampleAPI() *fakeAPI {
	return &fakeAPI{
		colors:  []string{"RED", "GREEN"},
		current: colorapi.ColorChange{Color: "GREEN", Timestamp: "2024-03-09T14:04:00Z", Source: "manual"},
		history: []colorapi.ColorChange{
			{Color: "RED", Timestamp: "2024-03-09T14:00:00Z", Source: "default"},
			{Color: "GREEN", Timestamp: "2024-03-09T14:04:00Z", Source: "manual"},
		},
		events: []colorapi.Event{
			{EventType: "com.example.color.manual.change", EventID: "e1", Source: "dashboard", Timestamp: "2024-03-09T14:04:00Z"},
		},
	}
}

func TestLoadAvailableColors(t *testing.T) {
	c, v, n := newTestController(sampleAPI())
	defer c.Close()

	c.LoadAvailableColors(context.Background())

	if len(v.options) != 1 {
		t.Fatalf("expected one SetColorOptions call, got %d", len(v.options))
	}
	opts := v.options[0]
	if len(opts) != 3 || opts[0].Value != "" || opts[0].Label != render.Placeholder {
		t.Fatalf("unexpected options: %+v", opts)
	}
	if opts[1] != (render.Option{Value: "RED", Label: "Red"}) {
		t.Errorf("first color option: %+v", opts[1])
	}
	if len(n.all()) != 0 {
		t.Errorf("unexpected notifications: %+v", n.all())
	}
}

func TestLoadAvailableColors_Error(t *testing.T) {
	api := sampleAPI()
	api.colorsErr = errBoom
	c, v, n := newTestController(api)
	defer c.Close()

	c.LoadAvailableColors(context.Background())

	if len(v.options) != 0 {
		t.Error("options should be untouched on failure")
	}
	got := n.all()
	if len(got) != 1 || got[0] != (note{"error", "Error loading available colors"}) {
		t.Errorf("notifications: %+v", got)
	}
}

func TestRefreshAll_RendersBothViews(t *testing.T) {
	c, v, n := newTestController(sampleAPI())
	defer c.Close()

	c.RefreshAll()
	c.Wait()

	if len(v.badges) != 1 || v.badges[0].Token != "GREEN" {
		t.Fatalf("badges: %+v", v.badges)
	}
	if len(v.timelines) != 1 || len(v.timelines[0]) != 2 {
		t.Fatalf("timelines: %+v", v.timelines)
	}
	if v.timelines[0][0].Key != "change-0" {
		t.Errorf("timeline key: %q", v.timelines[0][0].Key)
	}
	if len(v.events) != 1 || v.events[0][0].Key != "e1" {
		t.Fatalf("events: %+v", v.events)
	}
	if cur, ok := c.Current(); !ok || cur.Color != "GREEN" {
		t.Errorf("Current() = %+v, %v", cur, ok)
	}
	if len(n.all()) != 0 {
		t.Errorf("unexpected notifications: %+v", n.all())
	}
}

func TestRefreshTimeline_HistoryFailureKeepsPreviousRender(t *testing.T) {
	api := sampleAPI()
	c, v, n := newTestController(api)
	defer c.Close()

	c.RefreshTimeline(context.Background())
	api.historyErr = errBoom
	c.RefreshTimeline(context.Background())

	if len(v.timelines) != 1 || len(v.badges) != 1 {
		t.Errorf("failed refresh should not render: badges=%d timelines=%d", len(v.badges), len(v.timelines))
	}
	got := n.all()
	if len(got) != 1 || got[0] != (note{"error", "Error loading timeline data"}) {
		t.Errorf("notifications: %+v", got)
	}
}

func TestRefreshEvents_Failure(t *testing.T) {
	api := sampleAPI()
	api.eventsErr = errBoom
	c, v, n := newTestController(api)
	defer c.Close()

	c.RefreshEvents(context.Background())

	if len(v.events) != 0 {
		t.Error("events should not render on failure")
	}
	got := n.all()
	if len(got) != 1 || got[0] != (note{"error", "Error loading events data"}) {
		t.Errorf("notifications: %+v", got)
	}
}

func TestRefreshTimeline_StaleResponseDropped(t *testing.T) {
	api := sampleAPI()
	firstStarted := make(chan struct{})
	api.currentHook = func(ctx context.Context, n int64) (colorapi.ColorChange, error) {
		if n == 1 {
			close(firstStarted)
			<-ctx.Done()
			return colorapi.ColorChange{Color: "RED", Timestamp: "2024-03-09T14:00:00Z", Source: "stale"}, ctx.Err()
		}
		return colorapi.ColorChange{Color: "BLUE", Timestamp: "2024-03-09T14:05:00Z", Source: "fresh"}, nil
	}
	c, v, n := newTestController(api)
	defer c.Close()

	done := make(chan struct{})
	go func() {
		c.RefreshTimeline(context.Background())
		close(done)
	}()
	<-firstStarted
	c.RefreshTimeline(context.Background())
	<-done

	if len(v.badges) != 1 || v.badges[0].Token != "BLUE" {
		t.Fatalf("only the newer response should render, got %+v", v.badges)
	}
	if got := n.all(); len(got) != 0 {
		t.Errorf("superseded request should fail silently, got %+v", got)
	}
}

func TestSetColor_EmptyWarns(t *testing.T) {
	api := sampleAPI()
	c, v, n := newTestController(api)
	defer c.Close()

	err := c.SetColor(context.Background(), "", true)
	if !errors.Is(err, dashboard.ErrNoColor) {
		t.Fatalf("expected ErrNoColor, got %v", err)
	}
	if len(api.sets) != 0 {
		t.Error("no request should be sent")
	}
	if v.resets != 0 {
		t.Error("selector should not reset")
	}
	got := n.all()
	if len(got) != 1 || got[0] != (note{"warning", "Please select a color"}) {
		t.Errorf("notifications: %+v", got)
	}
}

func TestSetColor_Success(t *testing.T) {
	api := sampleAPI()
	c, v, n := newTestController(api)
	defer c.Close()

	if err := c.SetColor(context.Background(), "BLUE", false); err != nil {
		t.Fatal(err)
	}
	c.Wait()

	if len(api.sets) != 1 || api.sets[0] != (colorapi.SetColorRequest{Color: "BLUE", Source: "manual", Publish: "false"}) {
		t.Errorf("request: %+v", api.sets)
	}
	got := n.all()
	if len(got) != 1 || got[0] != (note{"success", "Color set to BLUE"}) {
		t.Errorf("notifications: %+v", got)
	}
	if api.currentCalls.Load() != 1 || api.historyCalls.Load() != 1 || api.eventsCalls.Load() != 1 {
		t.Errorf("expected exactly one full refresh: current=%d history=%d events=%d",
			api.currentCalls.Load(), api.historyCalls.Load(), api.eventsCalls.Load())
	}
	if len(v.timelines) != 1 || len(v.events) != 1 {
		t.Errorf("both views should re-render once: timelines=%d events=%d", len(v.timelines), len(v.events))
	}
	if v.resets != 1 {
		t.Errorf("selector resets: %d", v.resets)
	}
}

func TestSetColor_Failure(t *testing.T) {
	api := sampleAPI()
	api.setErr = errBoom
	c, v, n := newTestController(api)
	defer c.Close()

	if err := c.SetColor(context.Background(), "BLUE", true); !errors.Is(err, errBoom) {
		t.Fatalf("expected wrapped errBoom, got %v", err)
	}
	c.Wait()

	got := n.all()
	if len(got) != 1 || got[0] != (note{"error", "Error setting color"}) {
		t.Errorf("notifications: %+v", got)
	}
	if api.currentCalls.Load() != 0 || v.resets != 0 {
		t.Error("failure should neither refresh nor reset the selector")
	}
}

func TestManualRefresh(t *testing.T) {
	api := sampleAPI()
	c, _, n := newTestController(api)
	defer c.Close()

	c.ManualRefresh()
	c.Wait()

	got := n.all()
	if len(got) != 1 || got[0] != (note{"info", "Data refreshed"}) {
		t.Errorf("notifications: %+v", got)
	}
	if api.eventsCalls.Load() != 1 {
		t.Errorf("events calls: %d", api.eventsCalls.Load())
	}
}

func TestAutoRefresh_StartStop(t *testing.T) {
	api := sampleAPI()
	v := &fakeView{}
	c := dashboard.New(api, v, &fakeNotes{}, dashboard.Options{RefreshInterval: 10 * time.Millisecond}, discardLogger())
	defer c.Close()

	c.StartAutoRefresh()
	if !c.AutoRefreshRunning() {
		t.Fatal("expected running")
	}
	deadline := time.Now().Add(2 * time.Second)
	for api.eventsCalls.Load() < 2 {
		if time.Now().After(deadline) {
			t.Fatal("auto-refresh did not tick")
		}
		time.Sleep(5 * time.Millisecond)
	}

	c.StopAutoRefresh()
	c.StopAutoRefresh()
	if c.AutoRefreshRunning() {
		t.Fatal("expected stopped")
	}
	// a tick received just before stop may still spawn one last refresh
	time.Sleep(20 * time.Millisecond)
	c.Wait()
	settled := api.eventsCalls.Load()
	time.Sleep(50 * time.Millisecond)
	c.Wait()
	if api.eventsCalls.Load() != settled {
		t.Error("refreshes continued after stop")
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.auto) != 2 || !v.auto[0] || v.auto[1] {
		t.Errorf("auto-refresh indicator calls: %v", v.auto)
	}
}

func TestAutoRefresh_SlowBackendStillRenders(t *testing.T) {
	api := sampleAPI()
	api.eventsHook = func(ctx context.Context) ([]colorapi.Event, error) {
		select {
		case <-time.After(50 * time.Millisecond):
			return api.events, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	v := &fakeView{}
	n := &fakeNotes{}
	c := dashboard.New(api, v, n, dashboard.Options{RefreshInterval: 20 * time.Millisecond}, discardLogger())
	defer c.Close()

	c.StartAutoRefresh()
	deadline := time.Now().Add(2 * time.Second)
	for {
		v.mu.Lock()
		rendered := len(v.events)
		v.mu.Unlock()
		if rendered >= 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("events rendered %d times with a backend slower than the interval", rendered)
		}
		time.Sleep(5 * time.Millisecond)
	}
	c.StopAutoRefresh()

	for _, got := range n.all() {
		if got.level == "error" {
			t.Errorf("slow backend produced error toast: %+v", got)
		}
	}
}

func TestWaitWhileAutoRefreshRunning(t *testing.T) {
	api := sampleAPI()
	c := dashboard.New(api, &fakeView{}, &fakeNotes{}, dashboard.Options{RefreshInterval: time.Millisecond}, discardLogger())
	defer c.Close()

	c.StartAutoRefresh()
	deadline := time.Now().Add(2 * time.Second)
	for api.eventsCalls.Load() < 20 {
		if time.Now().After(deadline) {
			t.Fatal("auto-refresh did not tick")
		}
		c.Wait()
	}
}

func TestToggleAutoRefresh(t *testing.T) {
	c, _, _ := newTestController(sampleAPI())
	defer c.Close()

	if !c.ToggleAutoRefresh() || !c.AutoRefreshRunning() {
		t.Fatal("first toggle should start")
	}
	if c.ToggleAutoRefresh() || c.AutoRefreshRunning() {
		t.Fatal("second toggle should stop")
	}
}

func TestStartClock(t *testing.T) {
	c, v, _ := newTestController(sampleAPI())

	c.StartClock()
	c.StartClock()
	c.Close()

	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.clocks) == 0 {
		t.Fatal("clock not shown immediately")
	}
	if v.clocks[0] != "Mar 09, 2024, 14:05:07" {
		t.Errorf("clock text: %q", v.clocks[0])
	}
}

func TestCloseIdempotentAndStopsRefreshes(t *testing.T) {
	api := sampleAPI()
	c, _, n := newTestController(api)

	c.Start(context.Background())
	c.Close()
	c.Close()

	calls := api.eventsCalls.Load()
	c.RefreshAll()
	c.Wait()
	if api.eventsCalls.Load() != calls {
		t.Error("RefreshAll after Close should be a no-op")
	}
	if c.AutoRefreshRunning() {
		t.Error("auto-refresh should stop on Close")
	}
	for _, got := range n.all() {
		if got.level == "error" {
			t.Errorf("shutdown produced error toast: %+v", got)
		}
	}
}

func TestControllerAgainstHTTPBackend(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/colors/current", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"color":"PURPLE","timestamp":"2024-03-09T14:05:00Z","source":"manual"}`)
	})
	mux.HandleFunc("GET /api/colors/history", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[{"color":"PURPLE","timestamp":"2024-03-09T14:05:00Z","source":"manual"}]`)
	})
	mux.HandleFunc("GET /api/events", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `null`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c, v, n := newTestController(colorapi.NewClient(srv.URL, time.Second))
	defer c.Close()

	c.RefreshAll()
	c.Wait()

	if len(v.badges) != 1 || v.badges[0].Label != "Purple" {
		t.Errorf("badges: %+v", v.badges)
	}
	if len(v.events) != 1 || len(v.events[0]) != 0 {
		t.Errorf("null events should render as empty list: %+v", v.events)
	}
	if got := n.all(); len(got) != 0 {
		t.Errorf("notifications: %+v", got)
	}
}
