package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func TestBasicRouter(t *testing.T) {
	t.Run("method filtering", func(t *testing.T) {
		router := NewBasicRouter()
		router.Handle(http.MethodGet, "/ok", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ok", nil))
		if rec.Code != http.StatusNoContent {
			t.Errorf("expected 204, got %d", rec.Code)
		}

		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ok", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", rec.Code)
		}
	})

	t.Run("middleware order", func(t *testing.T) {
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
		router.Handle(http.MethodGet, "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			order = append(order, "handler")
		}))
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

		if got := strings.Join(order, ","); got != "first,second,handler" {
			t.Errorf("unexpected order %s", got)
		}
	})

	t.Run("recover", func(t *testing.T) {
		router := NewBasicRouter()
		router.Use(Recover(log.New(io.Discard)))
		router.Handle(http.MethodGet, "/boom", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("boom")
		}))

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", rec.Code)
		}
	})

	t.Run("logging", func(t *testing.T) {
		var buf strings.Builder
		logger := log.New(&buf)
		logger.SetLevel(log.DebugLevel)

		router := NewBasicRouter()
		router.Use(Logging(logger))
		router.Handle(http.MethodGet, "/callback", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}))
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/callback?code=secret", nil))

		out := buf.String()
		if !strings.Contains(out, "418") {
			t.Errorf("expected status in log, got %q", out)
		}
		if strings.Contains(out, "secret") {
			t.Errorf("query string should not be logged, got %q", out)
		}
	})
}

func TestCallbackHandler(t *testing.T) {
	t.Run("first redirect wins", func(t *testing.T) {
		h := NewCallbackHandler("/callback", nil)
		router := NewBasicRouter()
		router.Handler(h)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?code=first", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "Authorization Successful") {
			t.Errorf("expected success page, got %s", rec.Body.String())
		}

		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?code=second", nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected replay to be rejected, got %d", rec.Code)
		}

		result, ok := <-h.Result()
		if !ok {
			t.Fatal("expected a result")
		}
		if result.Err != nil || result.URL.Query().Get("code") != "first" {
			t.Errorf("unexpected result %+v", result)
		}
		if _, ok := <-h.Result(); ok {
			t.Error("expected channel to be closed after one result")
		}
	})

	t.Run("validation failure", func(t *testing.T) {
		wantErr := errors.New("state mismatch")
		h := NewCallbackHandler("", func(u *url.URL) error { return wantErr })

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?code=x", nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}

		result := <-h.Result()
		if !errors.Is(result.Err, wantErr) {
			t.Errorf("expected validation error, got %v", result.Err)
		}
		if h.Routes()[0] != "/callback" {
			t.Errorf("expected default route /callback, got %v", h.Routes())
		}
	})
}

func TestServer(t *testing.T) {
	h := NewCallbackHandler("/callback", nil)
	router := NewBasicRouter()
	router.Handler(h)

	srv, err := Listen("127.0.0.1:0", router, log.New(io.Discard))
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	srv.Serve()

	resp, err := http.Get("http://" + srv.Addr() + "/callback?code=live")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	resp.Body.Close()

	select {
	case result := <-h.Result():
		if result.URL.Query().Get("code") != "live" {
			t.Errorf("unexpected code %s", result.URL.Query().Get("code"))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for callback")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}
