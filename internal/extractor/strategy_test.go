package extractor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/snagbot/snagd/internal/domain"
)

type mockEngine struct {
	result   *domain.FetchResult
	err      error
	lastURL  string
	lastOpts Options
}

func (m *mockEngine) Probe(ctx context.Context, url string, opts Options) (*domain.MediaMetadata, error) {
	return nil, errors.New("probe not used here")
}

func (m *mockEngine) Download(ctx context.Context, url string, opts Options) (*domain.FetchResult, error) {
	m.lastURL = url
	m.lastOpts = opts
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func TestVideoStrategy_Fetch_Success(t *testing.T) {
	engine := &mockEngine{
		result: &domain.FetchResult{FilePath: "/tmp/youtube_clip.mp4", Title: "Clip", SizeBytes: 1024},
	}
	s := NewVideoStrategy(engine, 8<<20)

	res, err := s.Fetch(context.Background(), "https://youtube.com/watch?v=abc", domain.PlatformYouTube, "best")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if res.FilePath != "/tmp/youtube_clip.mp4" {
		t.Errorf("FilePath = %q, want %q", res.FilePath, "/tmp/youtube_clip.mp4")
	}
	if engine.lastOpts.Format != "best" {
		t.Errorf("Format = %q, want %q", engine.lastOpts.Format, "best")
	}
}

func TestVideoStrategy_Fetch_ClassifiesEngineError(t *testing.T) {
	engine := &mockEngine{err: errors.New("ERROR: [youtube] abc: Private video")}
	s := NewVideoStrategy(engine, 8<<20)

	_, err := s.Fetch(context.Background(), "https://youtube.com/watch?v=abc", domain.PlatformYouTube, "best")
	if err == nil {
		t.Fatal("Fetch should fail")
	}
	if got := domain.ClassOf(err); got != domain.FailurePrivateOrLogin {
		t.Errorf("class = %q, want %q", got, domain.FailurePrivateOrLogin)
	}
}

func TestVideoStrategy_Fetch_OversizedFileDeleted(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "youtube_big.mp4")
	if err := os.WriteFile(path, make([]byte, 64), 0644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	engine := &mockEngine{
		result: &domain.FetchResult{FilePath: path, Title: "Big", SizeBytes: 64},
	}
	s := NewVideoStrategy(engine, 32)

	_, err := s.Fetch(context.Background(), "https://youtube.com/watch?v=abc", domain.PlatformYouTube, "best")
	if err == nil {
		t.Fatal("Fetch should fail for oversized file")
	}
	if got := domain.ClassOf(err); got != domain.FailureFileTooLarge {
		t.Errorf("class = %q, want %q", got, domain.FailureFileTooLarge)
	}
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Error("oversized file should have been deleted")
	}
}

func TestImageStrategy_Fetch_IgnoresQuality(t *testing.T) {
	engine := &mockEngine{
		result: &domain.FetchResult{FilePath: "/tmp/imgur_pic.jpg", Title: "Pic", SizeBytes: 100},
	}
	s := NewImageStrategy(engine, 8<<20)

	_, err := s.Fetch(context.Background(), "https://imgur.com/gallery/abc", domain.PlatformImgur, "720p")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if engine.lastOpts.Format != "" {
		t.Errorf("image fetch should not set a format, got %q", engine.lastOpts.Format)
	}
}

func TestImageStrategy_Fetch_SizeCeiling(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "twitter_photo.png")
	if err := os.WriteFile(path, make([]byte, 48), 0644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	engine := &mockEngine{
		result: &domain.FetchResult{FilePath: path, Title: "Photo", SizeBytes: 48},
	}
	s := NewImageStrategy(engine, 16)

	_, err := s.Fetch(context.Background(), "https://twitter.com/a/status/1", domain.PlatformTwitter, "")
	if got := domain.ClassOf(err); got != domain.FailureFileTooLarge {
		t.Errorf("class = %q, want %q", got, domain.FailureFileTooLarge)
	}
}

func TestStrategy_Names(t *testing.T) {
	v := NewVideoStrategy(&mockEngine{}, 0)
	i := NewImageStrategy(&mockEngine{}, 0)

	if v.Name() != "video" {
		t.Errorf("video strategy Name() = %q", v.Name())
	}
	if i.Name() != "image" {
		t.Errorf("image strategy Name() = %q", i.Name())
	}
}
