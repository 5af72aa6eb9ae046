// Package extractor wraps the external extraction engine behind two
// strategies, one tuned for video and one for images.
package extractor

import (
	"context"

	"github.com/snagbot/snagd/internal/domain"
)

// Options tune a single engine invocation.
type Options struct {
	// Format is the yt-dlp format selector. Empty means engine default.
	Format string
	// UserAgent overrides the HTTP User-Agent when set.
	UserAgent string
	// Headers are extra HTTP headers as "Field:Value" pairs.
	Headers []string
	// ExtractorArgs is passed through to the engine's extractor,
	// e.g. "facebook:skip=dash,hls".
	ExtractorArgs string
	// OutputTemplate names the produced file relative to the
	// engine's download directory.
	OutputTemplate string
}

// Engine runs the external extraction tool. Probe fetches metadata
// without downloading; Download produces a file on disk.
type Engine interface {
	Probe(ctx context.Context, url string, opts Options) (*domain.MediaMetadata, error)
	Download(ctx context.Context, url string, opts Options) (*domain.FetchResult, error)
}
