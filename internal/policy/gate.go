// Package policy screens URLs and probed metadata against content rules
// before and after extraction work.
package policy

import (
	"fmt"
	"strings"

	"github.com/snagbot/snagd/internal/domain"
	"github.com/snagbot/snagd/internal/platform"
)

// maxVideoDuration is the longest clip accepted after probing, in seconds.
const maxVideoDuration = 600

var blockedDomains = []string{
	"onlyfans.com",
	"pornhub.com",
	"xvideos.com",
}

var blockedKeywords = []string{
	"nsfw",
	"adult",
	"explicit",
	"violence",
	"harassment",
	"hate",
	"discrimination",
	"illegal",
}

// privatePatterns lists URL fragments that usually indicate members-only
// or login-walled content. Heuristic only: content that slips through is
// caught by the extractor's own authentication failure.
var privatePatterns = map[domain.Platform][]string{
	domain.PlatformFacebook:  {"/friends/", "/family/", "/private/", "story_fbid", "permalink", "photo.php"},
	domain.PlatformInstagram: {"/stories/", "/story/", "/highlights/", "private", "close_friends"},
	domain.PlatformTwitter:   {"protected", "private"},
	domain.PlatformTikTok:    {"/private/", "private_video"},
}

// Decision is the outcome of screening a URL.
type Decision struct {
	Allowed  bool
	Reason   domain.RejectReason
	Platform domain.Platform
	Kind     platform.Kind
}

// Gate validates URLs and content metadata against the policy tables.
type Gate struct {
	classifier *platform.Classifier
}

// NewGate creates a policy gate backed by the given classifier.
func NewGate(classifier *platform.Classifier) *Gate {
	return &Gate{classifier: classifier}
}

// ValidateURL screens a URL before it may enter the queue. Checks run
// in a fixed order: platform support, blocked domains, then private
// content patterns.
func (g *Gate) ValidateURL(rawURL string) Decision {
	p, kind, ok := g.classifier.Classify(rawURL)
	if !ok {
		return Decision{Reason: domain.ReasonUnsupportedPlatform, Platform: domain.PlatformUnknown}
	}

	lower := strings.ToLower(rawURL)
	for _, d := range blockedDomains {
		if strings.Contains(lower, d) {
			return Decision{Reason: domain.ReasonBlockedDomain, Platform: p, Kind: kind}
		}
	}

	for _, pat := range privatePatterns[p] {
		if strings.Contains(lower, pat) {
			return Decision{Reason: domain.ReasonPrivateContent, Platform: p, Kind: kind}
		}
	}

	return Decision{Allowed: true, Platform: p, Kind: kind}
}

// ValidateContent re-screens a request once probed metadata is in hand.
// It returns an error wrapping ErrPolicyViolation when a blocked keyword
// appears in the title, description or tags, or the clip is too long.
func (g *Gate) ValidateContent(meta *domain.MediaMetadata) error {
	if meta == nil {
		return nil
	}

	var b strings.Builder
	b.WriteString(strings.ToLower(meta.Title))
	b.WriteByte(' ')
	b.WriteString(strings.ToLower(meta.Description))
	for _, tag := range meta.Tags {
		b.WriteByte(' ')
		b.WriteString(strings.ToLower(tag))
	}
	allText := b.String()

	for _, kw := range blockedKeywords {
		if strings.Contains(allText, kw) {
			return fmt.Errorf("%w: blocked keyword %q", domain.ErrPolicyViolation, kw)
		}
	}

	if meta.DurationSeconds > maxVideoDuration {
		return fmt.Errorf("%w: duration %.0fs exceeds %ds limit", domain.ErrPolicyViolation, meta.DurationSeconds, maxVideoDuration)
	}

	return nil
}
