package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/snagbot/snagd/internal/metrics"
)

func TestLogger_PassesThrough(t *testing.T) {
	handler := Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("short and stout"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusTeapot {
		t.Errorf("status = %d, want %d", w.Code, http.StatusTeapot)
	}
	if w.Body.String() != "short and stout" {
		t.Errorf("body = %q", w.Body.String())
	}
}

func TestRecovery_ConvertsPanicTo500(t *testing.T) {
	handler := Recovery(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
}

func TestRecovery_NoPanicPassesThrough(t *testing.T) {
	handler := Recovery(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Errorf("status = %d, want %d", w.Code, http.StatusCreated)
	}
}

func TestMetrics_RecordsRequests(t *testing.T) {
	m := metrics.NewMetrics()
	counter := m.HTTPRequestTotal.WithLabelValues(http.MethodGet, "/metrics-mw-test", "200")
	before := testutil.ToFloat64(counter)

	handler := Metrics(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/metrics-mw-test", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if got := testutil.ToFloat64(counter); got != before+1 {
		t.Errorf("http_requests_total = %v, want %v", got, before+1)
	}
}

func TestMetrics_RecordsStatusLabel(t *testing.T) {
	m := metrics.NewMetrics()
	counter := m.HTTPRequestTotal.WithLabelValues(http.MethodPost, "/metrics-mw-status", "503")
	before := testutil.ToFloat64(counter)

	handler := Metrics(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	req := httptest.NewRequest(http.MethodPost, "/metrics-mw-status", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if got := testutil.ToFloat64(counter); got != before+1 {
		t.Errorf("http_requests_total = %v, want %v", got, before+1)
	}
}
