package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/snagbot/snagd/internal/analyzer"
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

// testLogger returns a silent logger for tests.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubEngine satisfies extractor.Engine. Handler tests exercise
// admission and queries only, so it must never be reached.
type stubEngine struct{}

func (stubEngine) Probe(ctx context.Context, url string, opts extractor.Options) (*domain.MediaMetadata, error) {
	return nil, errors.New("stub engine: probe not available")
}

func (stubEngine) Download(ctx context.Context, url string, opts extractor.Options) (*domain.FetchResult, error) {
	return nil, errors.New("stub engine: download not available")
}

// newTestService builds a download service over in-memory stores.
func newTestService(t *testing.T, q *queue.Queue) (*service.DownloadService, *history.MemoryStore) {
	t.Helper()

	store := history.NewMemoryStore()
	svc := service.NewDownloadService(
		policy.NewGate(platform.NewClassifier()),
		analyzer.New(),
		q,
		stubEngine{},
		store,
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
	return svc, store
}
