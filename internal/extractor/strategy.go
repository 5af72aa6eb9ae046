package extractor

import (
	"context"
	"fmt"
	"os"

	"github.com/snagbot/snagd/internal/domain"
)

// Strategy is one way of fetching the media behind a URL.
type Strategy interface {
	// Name identifies the strategy in logs and history.
	Name() string
	// Fetch downloads the media and returns the produced file. Errors
	// are always *domain.ExtractionError.
	Fetch(ctx context.Context, url string, p domain.Platform, quality string) (*domain.FetchResult, error)
}

// VideoStrategy fetches with video-tuned engine options.
type VideoStrategy struct {
	engine   Engine
	maxBytes int64
}

// NewVideoStrategy creates a video strategy enforcing the given size ceiling.
func NewVideoStrategy(engine Engine, maxBytes int64) *VideoStrategy {
	return &VideoStrategy{engine: engine, maxBytes: maxBytes}
}

// Name implements Strategy.
func (s *VideoStrategy) Name() string {
	return "video"
}

// Fetch implements Strategy.
func (s *VideoStrategy) Fetch(ctx context.Context, url string, p domain.Platform, quality string) (*domain.FetchResult, error) {
	res, err := s.engine.Download(ctx, url, VideoOptions(p, quality))
	if err != nil {
		return nil, Classify(err)
	}
	return checkSize(res, s.maxBytes)
}

// ImageStrategy fetches with image-tuned engine options. Quality hints
// do not apply to images and are ignored.
type ImageStrategy struct {
	engine   Engine
	maxBytes int64
}

// NewImageStrategy creates an image strategy enforcing the given size ceiling.
func NewImageStrategy(engine Engine, maxBytes int64) *ImageStrategy {
	return &ImageStrategy{engine: engine, maxBytes: maxBytes}
}

// Name implements Strategy.
func (s *ImageStrategy) Name() string {
	return "image"
}

// Fetch implements Strategy.
func (s *ImageStrategy) Fetch(ctx context.Context, url string, p domain.Platform, _ string) (*domain.FetchResult, error) {
	res, err := s.engine.Download(ctx, url, ImageOptions(p))
	if err != nil {
		return nil, Classify(err)
	}
	return checkSize(res, s.maxBytes)
}

// checkSize enforces the delivery size ceiling. Oversized files are
// deleted before the failure is reported.
func checkSize(res *domain.FetchResult, maxBytes int64) (*domain.FetchResult, error) {
	if maxBytes > 0 && res.SizeBytes > maxBytes {
		os.Remove(res.FilePath)
		return nil, domain.NewExtractionError(domain.FailureFileTooLarge,
			fmt.Errorf("file is %d bytes, limit is %d", res.SizeBytes, maxBytes))
	}
	return res, nil
}
