// Package analyzer infers a fine-grained content type from probed
// metadata, with per-platform keyword heuristics.
package analyzer

import (
	"strings"

	"github.com/snagbot/snagd/internal/domain"
)

// confidencePlatforms are the platforms whose identification alone
// raises analysis confidence.
var confidencePlatforms = map[domain.Platform]bool{
	domain.PlatformFacebook:  true,
	domain.PlatformInstagram: true,
	domain.PlatformTwitter:   true,
	domain.PlatformReddit:    true,
}

// Analyzer classifies probed media metadata.
type Analyzer struct{}

// New creates a new analyzer.
func New() *Analyzer {
	return &Analyzer{}
}

// Analyze applies the platform rule table to probed metadata. Keyword
// overrides on the title take precedence over the duration rule.
func (a *Analyzer) Analyze(meta *domain.MediaMetadata, p domain.Platform) domain.ContentAnalysis {
	if meta == nil {
		return domain.ContentAnalysis{ContentType: domain.ContentTypeUnknown}
	}
	return domain.ContentAnalysis{
		ContentType: contentTypeOf(meta, p),
		Confidence:  confidenceOf(meta, p),
		Metadata:    meta,
	}
}

func contentTypeOf(meta *domain.MediaMetadata, p domain.Platform) domain.ContentType {
	title := strings.ToLower(meta.Title)

	switch p {
	case domain.PlatformInstagram:
		switch {
		case containsAny(title, "story", "stories"):
			return domain.ContentTypeStory
		case containsAny(title, "reel", "reels"):
			return domain.ContentTypeReel
		case containsAny(title, "carousel", "gallery", "multiple"):
			return domain.ContentTypeGallery
		}
	case domain.PlatformFacebook:
		if containsAny(title, "album", "gallery", "photos") {
			return domain.ContentTypeGallery
		}
	}

	if meta.DurationSeconds > 0 {
		return domain.ContentTypeVideo
	}
	return domain.ContentTypeImage
}

func confidenceOf(meta *domain.MediaMetadata, p domain.Platform) float64 {
	confidence := 0.5
	if meta.FormatCount > 0 {
		confidence += 0.2
	}
	if meta.Title != "" && meta.Title != "Unknown" {
		confidence += 0.1
	}
	if meta.Description != "" {
		confidence += 0.1
	}
	if confidencePlatforms[p] {
		confidence += 0.1
	}
	if confidence > 1.0 {
		confidence = 1.0
	}
	return confidence
}

// AnalyzeURL guesses a content type from URL path fragments when
// probing failed. Only Facebook URLs carry enough structure to guess
// from; everything else comes back unknown.
func (a *Analyzer) AnalyzeURL(rawURL string, p domain.Platform) domain.ContentAnalysis {
	if p != domain.PlatformFacebook {
		return domain.ContentAnalysis{ContentType: domain.ContentTypeUnknown}
	}

	lower := strings.ToLower(rawURL)
	switch {
	case strings.Contains(lower, "/photos/") || strings.Contains(lower, "/photo/"):
		return domain.ContentAnalysis{ContentType: domain.ContentTypeGallery, Confidence: 0.7}
	case strings.Contains(lower, "/videos/") || strings.Contains(lower, "/video/"):
		return domain.ContentAnalysis{ContentType: domain.ContentTypeVideo, Confidence: 0.7}
	case strings.Contains(lower, "/reels/") || strings.Contains(lower, "/reel/"):
		return domain.ContentAnalysis{ContentType: domain.ContentTypeReel, Confidence: 0.8}
	case strings.Contains(lower, "/stories/") || strings.Contains(lower, "/story/"):
		return domain.ContentAnalysis{ContentType: domain.ContentTypeStory, Confidence: 0.8}
	default:
		return domain.ContentAnalysis{ContentType: domain.ContentTypeImage, Confidence: 0.5}
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
