package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newRegistry(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /skills/{name}", func(w http.ResponseWriter, r *http.Request) {
		switch r.PathValue("name") {
		case "summarize":
			w.WriteHeader(http.StatusOK)
		case "flaky":
			w.WriteHeader(http.StatusBadGateway)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	mux.HandleFunc("GET /tools/{name}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("name") == "web search" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestRemote_Lookups(t *testing.T) {
	srv := newRegistry(t)
	c, err := NewRemote(srv.URL+"/", time.Second)
	if err != nil {
		t.Fatalf("NewRemote() error = %v", err)
	}
	ctx := context.Background()

	if ok, err := c.SkillExists(ctx, "summarize"); err != nil || !ok {
		t.Errorf("SkillExists(summarize) = %v, %v; want true, nil", ok, err)
	}
	if ok, err := c.SkillExists(ctx, "translate"); err != nil || ok {
		t.Errorf("SkillExists(translate) = %v, %v; want false, nil", ok, err)
	}
	if ok, err := c.ToolExists(ctx, "web search"); err != nil || !ok {
		t.Errorf("ToolExists(web search) = %v, %v; want true, nil", ok, err)
	}

	_, err = c.SkillExists(ctx, "flaky")
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("SkillExists(flaky) error = %v, want ErrUnavailable", err)
	}

	if err := c.Check(ctx); err != nil {
		t.Errorf("Check() error = %v", err)
	}
}

func TestRemote_BlankNameNotLookedUp(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	c, err := NewRemote(srv.URL, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"", "  "} {
		if ok, err := c.SkillExists(context.Background(), name); err != nil || ok {
			t.Errorf("SkillExists(%q) = %v, %v; want false, nil", name, ok, err)
		}
	}
	if n := hits.Load(); n != 0 {
		t.Errorf("registry received %d requests, want 0", n)
	}
}

func TestRemote_StopsReadingLargeBodies(t *testing.T) {
	// The registry streams until the client hangs up.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		chunk := make([]byte, 32<<10)
		for {
			if _, err := w.Write(chunk); err != nil {
				return
			}
			w.(http.Flusher).Flush()
			select {
			case <-r.Context().Done():
				return
			default:
			}
		}
	}))
	t.Cleanup(srv.Close)

	c, err := NewRemote(srv.URL, time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	type result struct {
		ok  bool
		err error
	}
	done := make(chan result, 1)
	go func() {
		ok, err := c.SkillExists(context.Background(), "summarize")
		done <- result{ok, err}
	}()

	select {
	case got := <-done:
		if got.err != nil || !got.ok {
			t.Errorf("SkillExists() = %v, %v; want true, nil", got.ok, got.err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("SkillExists() kept reading an endless response body")
	}
}

func TestRemote_Unreachable(t *testing.T) {
	srv := newRegistry(t)
	url := srv.URL
	srv.Close()

	c, err := NewRemote(url, 200*time.Millisecond)
	if err != nil {
		t.Fatalf("NewRemote() error = %v", err)
	}

	ok, err := c.ToolExists(context.Background(), "web_search")
	if ok {
		t.Error("ToolExists() = true for unreachable registry")
	}
	var unavailable *UnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("error = %v, want *UnavailableError", err)
	}
	if unavailable.Kind != KindTool || unavailable.Name != "web_search" {
		t.Errorf("UnavailableError = %+v", unavailable)
	}
	if err := c.Check(context.Background()); err == nil {
		t.Error("Check() should fail for unreachable registry")
	}
}

func TestNewRemote_InvalidURL(t *testing.T) {
	for _, u := range []string{"", "localhost", "://x"} {
		if _, err := NewRemote(u, 0); err == nil {
			t.Errorf("NewRemote(%q) should fail", u)
		}
	}
}
