package extractor

import (
	"github.com/snagbot/snagd/internal/domain"
)

const chromeUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// browserHeaders mimic an ordinary browser session for sites that
// reject bare clients.
var browserHeaders = []string{
	"Accept:text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
	"Accept-Language:en-US,en;q=0.5",
	"Accept-Encoding:gzip, deflate",
	"DNT:1",
	"Connection:keep-alive",
	"Upgrade-Insecure-Requests:1",
}

const facebookExtractorArgs = "facebook:skip=dash,hls"

// VideoOptions builds engine options for a video fetch. An explicit
// size quality wins over platform overrides; otherwise picky platforms
// get their own selector and anything else passes the quality through.
func VideoOptions(p domain.Platform, quality string) Options {
	opts := Options{OutputTemplate: p.String() + "_%(title)s.%(ext)s"}

	switch {
	case quality == "small":
		opts.Format = "best[height<=480]/best[height<=720]/best"
	case quality == "720p":
		opts.Format = "best[height<=720]/best"
	case quality == "480p":
		opts.Format = "best[height<=480]/best"
	case quality == "360p":
		opts.Format = "best[height<=360]/best"
	case p == domain.PlatformTikTok, p == domain.PlatformInstagram:
		opts.Format = "best[height<=720]/best"
	case p == domain.PlatformFacebook:
		opts.Format = "best[height<=720]/best[ext=mp4]/best"
	default:
		opts.Format = quality
	}

	if p == domain.PlatformFacebook {
		opts.UserAgent = chromeUA
		opts.Headers = browserHeaders
		opts.ExtractorArgs = facebookExtractorArgs
	}
	return opts
}

// ImageOptions builds engine options for an image fetch. No format
// selector; the social platforms need a browser profile to serve
// anything at all.
func ImageOptions(p domain.Platform) Options {
	opts := Options{OutputTemplate: p.String() + "_%(title)s.%(ext)s"}

	switch p {
	case domain.PlatformFacebook:
		opts.UserAgent = chromeUA
		opts.Headers = browserHeaders
		opts.ExtractorArgs = facebookExtractorArgs
	case domain.PlatformInstagram, domain.PlatformTwitter, domain.PlatformReddit:
		opts.UserAgent = chromeUA
		opts.Headers = browserHeaders
	}
	return opts
}

// ProbeOptions builds engine options for metadata extraction.
func ProbeOptions(p domain.Platform) Options {
	opts := Options{}

	switch p {
	case domain.PlatformFacebook:
		opts.UserAgent = chromeUA
		opts.Headers = browserHeaders
		opts.ExtractorArgs = facebookExtractorArgs
	case domain.PlatformInstagram, domain.PlatformTwitter, domain.PlatformReddit:
		opts.UserAgent = chromeUA
	}
	return opts
}
