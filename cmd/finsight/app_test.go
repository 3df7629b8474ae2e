package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/user/finsight/internal/config"
	"github.com/user/finsight/internal/coordinator"
	"github.com/user/finsight/internal/transcript"
	"github.com/user/finsight/internal/types"
)

// fakeInsights serves the insights API from memory.
type fakeInsights struct {
	mu             sync.Mutex
	sessionHeaders []string
	nextSession    int
	streamFails    bool
	statusFails    bool
}

func (f *fakeInsights) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /insights/stream-prepare", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.sessionHeaders = append(f.sessionHeaders, r.Header.Get("X-Session-ID"))
		f.mu.Unlock()
		w.Write([]byte(`{"success":true}`))
	})
	mux.HandleFunc("GET /insights/stream/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		fails := f.streamFails
		f.mu.Unlock()
		if fails {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/x-ndjson")
		fmt.Fprintln(w, `{"chunk":"__USING_REAL_DATA__"}`)
		fmt.Fprintln(w, `{"chunk":"Hello "}`)
		fmt.Fprintln(w, `{"chunk":"world","isComplete":true,"userId":"user-1","sessionId":"sess-1"}`)
	})
	mux.HandleFunc("POST /insights/generate", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"data":{"insights":{"text":"<p>From <strong>generate</strong></p>"},"userId":"user-1"}}`))
	})
	mux.HandleFunc("DELETE /insights/session", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.nextSession++
		id := fmt.Sprintf("rotated-%d", f.nextSession)
		f.mu.Unlock()
		fmt.Fprintf(w, `{"data":{"sessionId":%q}}`, id)
	})
	mux.HandleFunc("GET /auth/session-status", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"hasSession":true}}`))
	})
	mux.HandleFunc("GET /clients/user-client", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		fails := f.statusFails
		f.mu.Unlock()
		if fails {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"success":true,"data":{"clientId":"c1","status":"active"}}`))
	})
	return mux
}

func testConfig(t *testing.T, baseURL, backend string) *config.Config {
	t.Helper()
	cfg := &config.Config{DataDir: t.TempDir(), LogLevel: "error"}
	cfg.API.BaseURL = baseURL
	cfg.API.Token = "tok"
	cfg.API.UserID = "user-1"
	cfg.Insights.UseConnectedData = true
	cfg.Status.CooldownSeconds = 5
	cfg.Status.StartupWindowSeconds = 15
	cfg.Store.Backend = backend
	return cfg
}

func TestEndToEnd(t *testing.T) {
	for _, backend := range []string{"bolt", "file", "memory"} {
		t.Run(backend, func(t *testing.T) {
			fake := &fakeInsights{}
			srv := httptest.NewServer(fake.handler())
			defer srv.Close()

			a, err := openApp(testConfig(t, srv.URL, backend))
			if err != nil {
				t.Fatalf("openApp: %v", err)
			}
			defer a.Close()

			ctx := context.Background()
			a.startup(ctx)
			if a.status.Status() != types.StatusActive {
				t.Errorf("status after startup = %s", a.status.Status())
			}

			res := a.coord.Submit(ctx, "hi")
			e, _ := a.transcript.Get(res.Entry)
			if e.Content != "Hello world" || e.IsStreaming || !e.UsingRealData {
				t.Fatalf("entry = %+v", e)
			}
			if id, _ := a.sessions.Current(); id != "sess-1" {
				t.Fatalf("session = %q, want adopted sess-1", id)
			}

			a.coord.Submit(ctx, "again")
			fake.mu.Lock()
			headers := append([]string(nil), fake.sessionHeaders...)
			fake.mu.Unlock()
			if headers[0] != "" || headers[1] != "sess-1" {
				t.Errorf("session headers = %v", headers)
			}

			next, err := a.sessions.Clear(ctx)
			if err != nil {
				t.Fatalf("Clear: %v", err)
			}
			if next != "rotated-1" {
				t.Errorf("next = %q", next)
			}
			entries := a.transcript.Entries()
			if len(entries) != 1 || entries[0].Content != transcript.Greeting {
				t.Errorf("transcript not reset after clear: %+v", entries)
			}
		})
	}
}

func TestEndToEndFallback(t *testing.T) {
	fake := &fakeInsights{streamFails: true}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	a, err := openApp(testConfig(t, srv.URL, "memory"))
	if err != nil {
		t.Fatalf("openApp: %v", err)
	}
	defer a.Close()

	res := a.coord.Submit(context.Background(), "hi")

	if res.Outcome != coordinator.OutcomeFellBack {
		t.Fatalf("outcome = %q", res.Outcome)
	}
	e, _ := a.transcript.Get(res.Entry)
	if e.Content != "From **generate**" {
		t.Errorf("content = %q", e.Content)
	}
}

func TestSessionSurvivesRestart(t *testing.T) {
	fake := &fakeInsights{}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	cfg := testConfig(t, srv.URL, "bolt")
	a, err := openApp(cfg)
	if err != nil {
		t.Fatalf("openApp: %v", err)
	}
	a.startup(context.Background())
	a.coord.Submit(context.Background(), "hi")
	a.Close()

	b, err := openApp(cfg)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer b.Close()
	b.startup(context.Background())

	if id, _ := b.sessions.Current(); id != "sess-1" {
		t.Errorf("restored session = %q", id)
	}
	// The first run refreshed less than the startup window ago, so the
	// persisted snapshot is used as is.
	snap := b.status.Snapshot()
	if snap.Status != types.StatusActive || snap.LastRefreshedAt.IsZero() {
		t.Errorf("status snapshot not restored: %+v", snap)
	}
}

func TestStartupReportsFailureAndFinishesRestore(t *testing.T) {
	fake := &fakeInsights{statusFails: true}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	a, err := openApp(testConfig(t, srv.URL, "memory"))
	if err != nil {
		t.Fatalf("openApp: %v", err)
	}
	defer a.Close()
	sid := types.SessionID("sess-9")
	data, _ := json.Marshal(types.SessionState{SessionID: &sid, UserID: "user-1"})
	if err := a.store.Set(context.Background(), types.KeySession, data); err != nil {
		t.Fatal(err)
	}

	if err := a.startup(context.Background()); err == nil {
		t.Fatal("expected startup to report the failed status refresh")
	}
	if id, _ := a.sessions.Current(); id != sid {
		t.Errorf("restored session = %q, want %q", id, sid)
	}
	if s := a.status.Status(); s != types.StatusUnknown {
		t.Errorf("status = %s after failed refresh", s)
	}
}

func TestOpenAppRequiresUser(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1", "memory")
	cfg.API.UserID = ""
	if _, err := openApp(cfg); err == nil {
		t.Error("expected error without user id")
	}
}

func TestOpenStoreUnknownBackend(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1", "redis")
	if _, _, err := openStore(cfg); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestParseLevel(t *testing.T) {
	if parseLevel("DEBUG").String() != "DEBUG" || parseLevel("bogus").String() != "INFO" {
		t.Error("unexpected level mapping")
	}
}
