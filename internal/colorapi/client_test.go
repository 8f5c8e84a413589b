package colorapi_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/zsprackett/colorboard/internal/colorapi"
)

func newClient(t *testing.T, h http.Handler, opts ...colorapi.Option) *colorapi.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return colorapi.NewClient(srv.URL+"/", 2*time.Second, opts...)
}

func TestAvailableColors(t *testing.T) {
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/colors/available" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Write([]byte(`["RED","GREEN"]`))
	}))
	got, err := c.AvailableColors(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != "RED" || got[1] != "GREEN" {
		t.Errorf("got %v", got)
	}
}

func TestHistoryNullIsEmpty(t *testing.T) {
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`null`))
	}))
	got, err := c.History(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", got)
	}
}

func TestEventsDecodesOptionalFields(t *testing.T) {
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"eventType":"com.example.color.change","eventId":"e1","source":"svc","timestamp":"2026-01-01T10:00:00Z","subject":"s","data":"{}"},
			{"eventType":"ping","eventId":"e2","source":"svc","timestamp":"2026-01-01T10:00:01Z"}
		]`))
	}))
	got, err := c.Events(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}
	if got[0].Subject != "s" || got[0].Data != "{}" {
		t.Errorf("first event: %+v", got[0])
	}
	if got[1].Subject != "" || got[1].Data != "" {
		t.Errorf("second event should have no subject/data: %+v", got[1])
	}
}

func TestMalformedJSON(t *testing.T) {
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"color":`))
	}))
	if _, err := c.CurrentColor(context.Background()); err == nil {
		t.Error("expected parse error")
	}
}

func TestSetColorSendsBodyAndToken(t *testing.T) {
	var got colorapi.SetColorRequest
	var auth, contentType string
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/colors/set" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		auth = r.Header.Get("Authorization")
		contentType = r.Header.Get("Content-Type")
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`ignored`))
	}), colorapi.WithToken("tok"))

	if err := c.SetColor(context.Background(), colorapi.NewSetColorRequest("BLUE", true)); err != nil {
		t.Fatal(err)
	}
	if got.Color != "BLUE" || got.Source != "manual" || got.Publish != "true" {
		t.Errorf("body: %+v", got)
	}
	if auth != "Bearer tok" {
		t.Errorf("auth header: %q", auth)
	}
	if contentType != "application/json" {
		t.Errorf("content type: %q", contentType)
	}
}

func TestSetColorNon2xx(t *testing.T) {
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad color", http.StatusBadRequest)
	}))
	err := c.SetColor(context.Background(), colorapi.NewSetColorRequest("MAUVE", false))
	var se *colorapi.StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if se.Code != http.StatusBadRequest || se.Body != "bad color" {
		t.Errorf("got %+v", se)
	}
}

func TestTransportError(t *testing.T) {
	c := colorapi.NewClient("http://127.0.0.1:1", time.Second)
	if _, err := c.Events(context.Background()); err == nil {
		t.Error("expected transport error")
	}
}

func TestContextCancelled(t *testing.T) {
	block := make(chan struct{})
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	defer close(block)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.History(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestStreamURL(t *testing.T) {
	cases := map[string]string{
		"http://localhost:8080":   "ws://localhost:8080/api/events/ws",
		"https://colors.example/": "wss://colors.example/api/events/ws",
	}
	for base, want := range cases {
		got, err := colorapi.NewClient(base, 0).StreamURL()
		if err != nil {
			t.Fatalf("%s: %v", base, err)
		}
		if got != want {
			t.Errorf("StreamURL(%q): got %q want %q", base, got, want)
		}
	}
	if _, err := colorapi.NewClient("ftp://x", 0).StreamURL(); err == nil {
		t.Error("expected error for ftp scheme")
	}
}
