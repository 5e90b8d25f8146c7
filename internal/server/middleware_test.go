package server

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func TestBasicRouter(t *testing.T) {
	t.Run("Middleware Order", func(t *testing.T) {
		var order []string
		mark := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, r)
				})
			}
		}

		router := NewBasicRouter()
		router.Use(mark("first"), mark("second"))
		router.Handle(http.MethodGet, "/x", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			order = append(order, "handler")
		}))

		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))

		want := []string{"first", "second", "handler"}
		if len(order) != len(want) {
			t.Fatalf("expected %v, got %v", want, order)
		}
		for i := range want {
			if order[i] != want[i] {
				t.Fatalf("expected %v, got %v", want, order)
			}
		}
	})

	t.Run("Handler Registers Get And Head", func(t *testing.T) {
		router := NewBasicRouter()
		router.Handler(NewPagesHandler())

		for _, method := range []string{http.MethodGet, http.MethodHead} {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(method, "/about", nil))
			if rec.Code != http.StatusOK {
				t.Errorf("%s: expected 200, got %d", method, rec.Code)
			}
		}

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/about", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("DELETE: expected 405, got %d", rec.Code)
		}
	})
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFrom(r.Context())
	}))

	t.Run("Generated", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		if seen == "" || rec.Header().Get(RequestIDHeader) != seen {
			t.Errorf("expected generated id in context and header, got %q / %q", seen, rec.Header().Get(RequestIDHeader))
		}
	})

	t.Run("Propagated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, "abc-123")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if seen != "abc-123" || rec.Header().Get(RequestIDHeader) != "abc-123" {
			t.Errorf("expected caller id to be kept, got %q", seen)
		}
	})
}

func TestRecovery(t *testing.T) {
	h := Recovery(log.New(io.Discard))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
}

func TestLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(&buf)

	h := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		io.WriteString(w, "short")
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/server/xml.server.php?action=ping", nil))

	for _, want := range []string{"status=418", "bytes=5", "action=ping"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("expected %q in log line %q", want, buf.String())
		}
	}
}

func TestClientLimiter(t *testing.T) {
	now := time.Unix(1_000_000_000, 0)
	l := newClientLimiter(1, 2)
	l.now = func() time.Time { return now }

	t.Run("Burst Then Refill", func(t *testing.T) {
		if !l.allow("a") || !l.allow("a") {
			t.Fatal("burst of 2 should be allowed")
		}
		if l.allow("a") {
			t.Error("third request in the same instant should be rejected")
		}
		if !l.allow("b") {
			t.Error("other clients have their own budget")
		}

		now = now.Add(time.Second)
		if !l.allow("a") {
			t.Error("one token should refill after a second")
		}
	})

	t.Run("Forget Idle Clients", func(t *testing.T) {
		now = now.Add(time.Hour)
		l.allow("c")

		if dropped := l.forget(time.Minute); dropped != 2 {
			t.Errorf("expected 2 idle clients dropped, got %d", dropped)
		}
	})

	t.Run("Middleware", func(t *testing.T) {
		limiter := newClientLimiter(1, 1)
		limiter.now = func() time.Time { return now }
		h := rateLimit(limiter, log.New(io.Discard))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

		codes := make([]int, 0, 2)
		for range 2 {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
			codes = append(codes, rec.Code)
		}
		if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
			t.Errorf("expected 200 then 429, got %v", codes)
		}
	})

	t.Run("Rotating Forwarded Header", func(t *testing.T) {
		limiter := newClientLimiter(1, 1)
		limiter.now = func() time.Time { return now }
		h := rateLimit(limiter, log.New(io.Discard))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

		limited := 0
		for i := range 50 {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = "198.51.100.1:1234"
			req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code == http.StatusTooManyRequests {
				limited++
			}
		}

		if limited != 49 {
			t.Errorf("expected 49 of 50 requests limited, got %d", limited)
		}
		if n := len(limiter.clients); n != 1 {
			t.Errorf("expected one limiter entry, got %d", n)
		}
	})

	t.Run("Disabled", func(t *testing.T) {
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
		h := rateLimit(newClientLimiter(0, 0), log.New(io.Discard))(next)
		for range 100 {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
			if rec.Code != http.StatusOK {
				t.Fatalf("limiter should be off, got %d", rec.Code)
			}
		}
	})
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name   string
		remote string
		xff    string
		trust  bool
		want   string
	}{
		{"Remote Addr", "10.0.0.1:5555", "", false, "10.0.0.1"},
		{"Forwarded Ignored By Default", "10.0.0.1:5555", "203.0.113.9, 10.0.0.1", false, "10.0.0.1"},
		{"Forwarded When Trusted", "10.0.0.1:5555", "203.0.113.9, 10.0.0.1", true, "203.0.113.9"},
		{"Empty Forwarded When Trusted", "10.0.0.1:5555", " , 10.0.0.1", true, "10.0.0.1"},
		{"No Port", "10.0.0.2", "", false, "10.0.0.2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if got := clientIP(req, tt.trust); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}
