package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/snagbot/snagd/internal/analyzer"
	"github.com/snagbot/snagd/internal/api/handler"
	"github.com/snagbot/snagd/internal/config"
	"github.com/snagbot/snagd/internal/domain"
	"github.com/snagbot/snagd/internal/extractor"
	"github.com/snagbot/snagd/internal/history"
	"github.com/snagbot/snagd/internal/metrics"
	"github.com/snagbot/snagd/internal/notify"
	"github.com/snagbot/snagd/internal/platform"
	"github.com/snagbot/snagd/internal/policy"
	"github.com/snagbot/snagd/internal/queue"
	"github.com/snagbot/snagd/internal/service"
)

const testAPIKey = "test-api-key-12345"

// === Helpers ===

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubEngine satisfies extractor.Engine. Routing tests never reach it.
type stubEngine struct{}

func (stubEngine) Probe(ctx context.Context, url string, opts extractor.Options) (*domain.MediaMetadata, error) {
	return nil, errors.New("stub engine: probe not available")
}

func (stubEngine) Download(ctx context.Context, url string, opts extractor.Options) (*domain.FetchResult, error) {
	return nil, errors.New("stub engine: download not available")
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	q := queue.New(3, 50, nil)
	svc := service.NewDownloadService(
		policy.NewGate(platform.NewClassifier()),
		analyzer.New(),
		q,
		stubEngine{},
		history.NewMemoryStore(),
		notify.NewLogNotifier(testLogger()),
		service.NewEventLog(100, testLogger()),
		metrics.NewMetrics(),
		config.DownloadConfig{
			Dir:            t.TempDir(),
			MaxFileSize:    50 * 1024 * 1024,
			DefaultQuality: "best[height<=720]",
		},
		testLogger(),
	)

	return NewRouter(
		handler.NewDownloadHandler(svc, testLogger()),
		handler.NewHealthHandler(svc),
		notify.NewHub(testLogger()),
		metrics.NewMetrics(),
		testAPIKey,
	)
}

func doRequest(t *testing.T, router http.Handler, method, path, apiKey, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// === Open endpoints ===

func TestRouter_OpenEndpoints(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		name string
		path string
	}{
		{"health", "/health"},
		{"ready", "/ready"},
		{"metrics", "/metrics"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(t, router, http.MethodGet, tt.path, "", "")
			if w.Code != http.StatusOK {
				t.Errorf("GET %s status = %d, want %d", tt.path, w.Code, http.StatusOK)
			}
		})
	}
}

func TestRouter_MetricsExposition(t *testing.T) {
	router := newTestRouter(t)

	w := doRequest(t, router, http.MethodGet, "/metrics", "", "")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if body := w.Body.String(); !strings.Contains(body, "go_goroutines") {
		t.Error("expected Prometheus exposition output on /metrics")
	}
}

func TestRouter_CleanPath(t *testing.T) {
	router := newTestRouter(t)

	w := doRequest(t, router, http.MethodGet, "//health", "", "")

	if w.Code != http.StatusOK {
		t.Errorf("GET //health status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestRouter_WebsocketEndpointMounted(t *testing.T) {
	router := newTestRouter(t)

	// A plain GET cannot complete the upgrade handshake; the route
	// answering 400 rather than 404 proves it is wired.
	w := doRequest(t, router, http.MethodGet, "/ws", "", "")

	if w.Code != http.StatusBadRequest {
		t.Errorf("GET /ws status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

// === Authentication ===

func TestRouter_APIRequiresKey(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		name   string
		method string
		path   string
	}{
		{"stats", http.MethodGet, "/api/v1/stats"},
		{"queue", http.MethodGet, "/api/v1/queue"},
		{"submit", http.MethodPost, "/api/v1/downloads"},
		{"events", http.MethodGet, "/api/v1/events"},
		{"history", http.MethodGet, "/api/v1/users/u1/history"},
		{"quality", http.MethodGet, "/api/v1/users/u1/quality"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(t, router, tt.method, tt.path, "", "")
			if w.Code != http.StatusUnauthorized {
				t.Errorf("%s %s without key status = %d, want %d", tt.method, tt.path, w.Code, http.StatusUnauthorized)
			}
		})
	}
}

func TestRouter_APIRejectsWrongKey(t *testing.T) {
	router := newTestRouter(t)

	w := doRequest(t, router, http.MethodGet, "/api/v1/queue", "wrong-key", "")

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestRouter_APIAcceptsKey(t *testing.T) {
	router := newTestRouter(t)

	w := doRequest(t, router, http.MethodGet, "/api/v1/queue", testAPIKey, "")

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

// === End-to-end routing ===

func TestRouter_SubmitRoundTrip(t *testing.T) {
	router := newTestRouter(t)

	body := `{"user_id":"u1","url":"https://youtube.com/watch?v=abc123"}`
	w := doRequest(t, router, http.MethodPost, "/api/v1/downloads", testAPIKey, body)
	if w.Code != http.StatusAccepted {
		t.Fatalf("submit status = %d, want %d: %s", w.Code, http.StatusAccepted, w.Body.String())
	}

	w = doRequest(t, router, http.MethodGet, "/api/v1/queue/position?user_id=u1", testAPIKey, "")
	if w.Code != http.StatusOK {
		t.Errorf("position status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestRouter_UserSubroutes(t *testing.T) {
	router := newTestRouter(t)

	w := doRequest(t, router, http.MethodPut, "/api/v1/users/u1/quality", testAPIKey, `{"quality":"480p"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("put quality status = %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
	}

	w = doRequest(t, router, http.MethodGet, "/api/v1/users/u1/quality", testAPIKey, "")
	if w.Code != http.StatusOK {
		t.Fatalf("get quality status = %d, want %d", w.Code, http.StatusOK)
	}
	if body := w.Body.String(); !strings.Contains(body, "480p") {
		t.Errorf("quality body = %s, want to contain %q", body, "480p")
	}
}

func TestRouter_UnknownRoute(t *testing.T) {
	router := newTestRouter(t)

	w := doRequest(t, router, http.MethodGet, "/api/v1/nope", testAPIKey, "")

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}
