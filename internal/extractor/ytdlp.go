package extractor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/lrstanley/go-ytdlp"

	"github.com/snagbot/snagd/internal/domain"
)

const progressInterval = 500 * time.Millisecond

// Install ensures a yt-dlp binary is available, downloading one into
// the cache directory when missing.
func Install(ctx context.Context) error {
	_, err := ytdlp.Install(ctx, nil)
	return err
}

// YTDLPEngine drives the yt-dlp binary.
type YTDLPEngine struct {
	dir    string
	logger *slog.Logger
}

// NewYTDLPEngine creates an engine that writes files under dir.
func NewYTDLPEngine(dir string, logger *slog.Logger) *YTDLPEngine {
	return &YTDLPEngine{
		dir:    dir,
		logger: logger,
	}
}

// Probe extracts metadata for a URL without downloading anything.
func (e *YTDLPEngine) Probe(ctx context.Context, url string, opts Options) (*domain.MediaMetadata, error) {
	dl := ytdlp.New().
		SkipDownload().
		NoPlaylist().
		Quiet().
		NoWarnings()
	applyOptions(dl, opts)

	res, err := dl.Run(ctx, url)
	if err != nil {
		return nil, err
	}

	info, err := res.GetExtractedInfo()
	if err != nil {
		return nil, fmt.Errorf("parse extracted info: %w", err)
	}
	if len(info) == 0 {
		return nil, fmt.Errorf("no metadata extracted")
	}
	return metadataFrom(info[0]), nil
}

// Download fetches the media behind a URL and returns the produced file.
// The output name gets a random prefix so concurrent fetches of the
// same item cannot collide in the shared download directory.
func (e *YTDLPEngine) Download(ctx context.Context, url string, opts Options) (*domain.FetchResult, error) {
	tpl := opts.OutputTemplate
	if tpl == "" {
		tpl = "%(title)s.%(ext)s"
	}
	tpl = uuid.New().String()[:8] + "_" + tpl

	dl := ytdlp.New().
		ForceOverwrites().
		RestrictFilenames().
		NoPlaylist().
		Output(filepath.Join(e.dir, tpl))
	applyOptions(dl, opts)

	dl.ProgressFunc(progressInterval, func(update ytdlp.ProgressUpdate) {
		if update.TotalBytes > 0 {
			e.logger.Debug("download progress",
				"url", url,
				"percent", fmt.Sprintf("%.0f", float64(update.DownloadedBytes)/float64(update.TotalBytes)*100))
		}
	})

	res, err := dl.Run(ctx, url)
	if err != nil {
		return nil, err
	}

	info, err := res.GetExtractedInfo()
	if err != nil {
		return nil, fmt.Errorf("parse extracted info: %w", err)
	}
	if len(info) == 0 || info[0].Filename == nil {
		return nil, fmt.Errorf("no file produced")
	}

	path := *info[0].Filename
	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("downloaded file missing: %w", err)
	}

	title := "Unknown"
	if info[0].Title != nil && *info[0].Title != "" {
		title = *info[0].Title
	}

	return &domain.FetchResult{
		FilePath:  path,
		Title:     title,
		SizeBytes: stat.Size(),
	}, nil
}

func applyOptions(dl *ytdlp.Command, opts Options) {
	if opts.Format != "" {
		dl.Format(opts.Format)
	}
	if opts.UserAgent != "" {
		dl.UserAgent(opts.UserAgent)
	}
	for _, h := range opts.Headers {
		dl.AddHeaders(h)
	}
	if opts.ExtractorArgs != "" {
		dl.ExtractorArgs(opts.ExtractorArgs)
	}
}

func metadataFrom(info *ytdlp.ExtractedInfo) *domain.MediaMetadata {
	meta := &domain.MediaMetadata{}
	if info.Title != nil {
		meta.Title = *info.Title
	}
	if info.Description != nil {
		meta.Description = *info.Description
	}
	if info.Uploader != nil {
		meta.Uploader = *info.Uploader
	}
	if info.Duration != nil {
		meta.DurationSeconds = *info.Duration
	}
	if info.Resolution != nil {
		meta.Resolution = *info.Resolution
	}
	meta.Tags = info.Tags
	meta.FormatCount = len(info.Formats)
	return meta
}
