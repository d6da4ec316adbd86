package trace

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	applog "villaledger/internal/log"
)

func TestMiddlewareRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := applog.New(applog.Config{Handler: slog.NewTextHandler(&buf, nil)})

	var seen string
	h := NewMiddleware(logger, func(*http.Request) string { return "192.0.2.1" }).Middleware(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = GetRequestID(r.Context())
			applog.FromContext(r.Context()).InfoContext(r.Context(), "inside handler")
			w.WriteHeader(http.StatusTeapot)
		}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports/dues", nil))

	if !strings.HasPrefix(seen, "req_") {
		t.Fatalf("generated request id = %q", seen)
	}
	if rec.Header().Get(HeaderRequestID) != seen {
		t.Errorf("response header = %q, want %q", rec.Header().Get(HeaderRequestID), seen)
	}
	out := buf.String()
	if strings.Count(out, "request_id="+seen) != 2 {
		t.Errorf("both log lines should carry the request id:\n%s", out)
	}
	if !strings.Contains(out, "status_code=418") || !strings.Contains(out, "client_ip=192.0.2.1") {
		t.Errorf("completion line missing fields:\n%s", out)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "upstream-42")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if seen != "upstream-42" {
		t.Errorf("incoming id should be reused, got %q", seen)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "bad id\nwith newline")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if !strings.HasPrefix(seen, "req_") {
		t.Errorf("malformed incoming id should be replaced, got %q", seen)
	}
}

func TestResponseWriterStatus(t *testing.T) {
	rw := NewResponseWriter(httptest.NewRecorder())
	if rw.Status() != http.StatusOK {
		t.Fatalf("default Status() = %d", rw.Status())
	}
	rw.WriteHeader(http.StatusNotFound)
	rw.WriteHeader(http.StatusInternalServerError)
	if rw.Status() != http.StatusNotFound {
		t.Fatalf("Status() = %d, want the first code written", rw.Status())
	}
	if NewResponseWriter(rw) != rw {
		t.Fatal("wrapping twice should return the same writer")
	}
}
