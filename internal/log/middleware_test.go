package log

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestMiddlewareCarriesLogger(t *testing.T) {
	logger := New(Config{Component: ComponentApp})

	var got *Logger
	handler := Middleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if got != logger {
		t.Fatalf("handler received %p, want the middleware logger %p", got, logger)
	}
}

func TestFromContextFallback(t *testing.T) {
	logger := FromContext(context.Background())
	if logger == nil {
		t.Fatalf("expected a fallback logger")
	}
	if logger.Component() != ComponentApp {
		t.Fatalf("component = %q, want %q", logger.Component(), ComponentApp)
	}
}
