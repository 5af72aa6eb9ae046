// Package platform maps URLs to the site they belong to and the coarse
// kind of media that site serves.
package platform

import (
	"net/url"
	"strings"

	"github.com/snagbot/snagd/internal/domain"
)

// Kind is the coarse media capability of a platform.
type Kind string

const (
	KindVideo Kind = "video"
	KindImage Kind = "image"
	KindBoth  Kind = "both"
)

type entry struct {
	platform domain.Platform
	kind     Kind
	hosts    []string
}

// Matching is by exact host or dot-suffix, so m.youtube.com and
// old.reddit.com resolve without listing every subdomain.
var table = []entry{
	{domain.PlatformYouTube, KindVideo, []string{"youtube.com", "youtu.be"}},
	{domain.PlatformTikTok, KindVideo, []string{"tiktok.com"}},
	{domain.PlatformInstagram, KindBoth, []string{"instagram.com"}},
	{domain.PlatformFacebook, KindBoth, []string{"facebook.com", "fb.watch"}},
	{domain.PlatformTwitter, KindBoth, []string{"twitter.com", "x.com"}},
	{domain.PlatformReddit, KindBoth, []string{"reddit.com"}},
	{domain.PlatformTwitch, KindVideo, []string{"twitch.tv"}},
	{domain.PlatformVimeo, KindVideo, []string{"vimeo.com"}},
	{domain.PlatformDailymotion, KindVideo, []string{"dailymotion.com"}},
	{domain.PlatformImgur, KindImage, []string{"imgur.com"}},
	{domain.PlatformDeviantArt, KindImage, []string{"deviantart.com"}},
	{domain.PlatformPinterest, KindImage, []string{"pinterest.com"}},
	{domain.PlatformFlickr, KindImage, []string{"flickr.com"}},
	{domain.Platform500px, KindImage, []string{"500px.com"}},
	{domain.PlatformUnsplash, KindImage, []string{"unsplash.com"}},
	{domain.PlatformPexels, KindImage, []string{"pexels.com"}},
}

// Classifier resolves URLs to platforms.
type Classifier struct{}

// NewClassifier creates a new classifier.
func NewClassifier() *Classifier {
	return &Classifier{}
}

// Classify maps a URL to its platform and media kind. The third return
// is false when no known platform matches.
func (c *Classifier) Classify(rawURL string) (domain.Platform, Kind, bool) {
	host := hostOf(rawURL)
	if host == "" {
		return domain.PlatformUnknown, "", false
	}
	for _, e := range table {
		for _, h := range e.hosts {
			if host == h || strings.HasSuffix(host, "."+h) {
				return e.platform, e.kind, true
			}
		}
	}
	return domain.PlatformUnknown, "", false
}

// hostOf extracts the lowercased hostname, tolerating scheme-less URLs
// as pasted in chat messages.
func hostOf(rawURL string) string {
	s := strings.TrimSpace(rawURL)
	if s == "" {
		return ""
	}
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
