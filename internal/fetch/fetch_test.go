package fetch

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestUserAgent(t *testing.T) {
	var gotUA atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA.Store(r.Header.Get("User-Agent"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cl := New(Options{Timeout: 2 * time.Second, UserAgent: "from-config/1.0"})
	if _, err := cl.Status(context.Background(), srv.URL); err != nil {
		t.Fatalf("status: %v", err)
	}
	if ua := gotUA.Load(); ua != "from-config/1.0" {
		t.Fatalf("user-agent = %v", ua)
	}

	t.Setenv("PORTFOLIO_UA", "from-env/1.0")
	if _, err := cl.Status(context.Background(), srv.URL); err != nil {
		t.Fatalf("status: %v", err)
	}
	if ua := gotUA.Load(); ua != "from-env/1.0" {
		t.Fatalf("env must win, got %v", ua)
	}
}

func TestRetryOnServerError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cl := New(Options{Retry: 1, Timeout: 2 * time.Second})
	code, err := cl.Status(context.Background(), srv.URL)
	if err != nil || code != http.StatusOK {
		t.Fatalf("Status = %d %v", code, err)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Fatalf("calls = %d, want 2", n)
	}
}

func TestNoRetryOnNotFound(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	cl := New(Options{Retry: 3, Timeout: 2 * time.Second})
	code, err := cl.Status(context.Background(), srv.URL)
	if err != nil || code != http.StatusNotFound {
		t.Fatalf("Status = %d %v", code, err)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("404 must not be retried, calls = %d", n)
	}
}

func TestStatusFallsBackToGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	code, err := New(Options{}).Status(context.Background(), srv.URL)
	if err != nil || code != http.StatusNoContent {
		t.Fatalf("Status = %d %v", code, err)
	}
}

func TestTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	_, err := New(Options{Timeout: 100 * time.Millisecond}).Status(context.Background(), srv.URL)
	if err == nil {
		t.Fatal("expected timeout error, got nil")
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("unexpected error: %v", err)
	}
}
