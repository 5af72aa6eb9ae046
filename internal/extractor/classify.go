package extractor

import (
	"errors"
	"strings"

	"github.com/snagbot/snagd/internal/domain"
)

// classificationPatterns map fragments of engine error text to failure
// classes. Ordered; the first match wins. Matching is on the lowercased
// error text, so fragments must be lowercase. Extend here when a new
// engine message shows up in the wild.
var classificationPatterns = []struct {
	fragment string
	class    domain.FailureClass
}{
	{"no video formats found", domain.FailureUnsupportedFormat},
	{"pfbid", domain.FailureUnsupportedFormat},
	{"unsupported url", domain.FailureUnsupportedFormat},
	{"login required", domain.FailurePrivateOrLogin},
	{"private video", domain.FailurePrivateOrLogin},
	{"protected", domain.FailurePrivateOrLogin},
	{"private", domain.FailurePrivateOrLogin},
	{"http error 403", domain.FailureRateLimited},
	{"http error 429", domain.FailureRateLimited},
	{"forbidden", domain.FailureRateLimited},
	{"rate limit", domain.FailureRateLimited},
	{"video unavailable", domain.FailureContentUnavailable},
	{"content unavailable", domain.FailureContentUnavailable},
	{"not available", domain.FailureContentUnavailable},
	{"has been removed", domain.FailureContentUnavailable},
	{"http error 404", domain.FailureContentUnavailable},
}

// Classify assigns a failure class to an extraction error. Errors that
// already carry a class pass through unchanged; anything unrecognised
// becomes generic.
func Classify(err error) *domain.ExtractionError {
	if err == nil {
		return nil
	}
	var ee *domain.ExtractionError
	if errors.As(err, &ee) {
		return ee
	}

	msg := strings.ToLower(err.Error())
	for _, p := range classificationPatterns {
		if strings.Contains(msg, p.fragment) {
			return domain.NewExtractionError(p.class, err)
		}
	}
	return domain.NewExtractionError(domain.FailureGeneric, err)
}
