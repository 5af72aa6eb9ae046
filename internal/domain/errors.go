package domain

import "errors"

// Domain errors.
var (
	// ErrRateLimited is returned when a user has exhausted their request allowance.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrQueueFull is returned when the pending queue is at capacity.
	ErrQueueFull = errors.New("download queue is full")

	// ErrUnsupportedPlatform is returned when a URL matches no known platform.
	ErrUnsupportedPlatform = errors.New("unsupported platform")

	// ErrBlockedDomain is returned when a URL belongs to a blocked domain.
	ErrBlockedDomain = errors.New("blocked domain")

	// ErrPrivateContent is returned when a URL matches a private content pattern.
	ErrPrivateContent = errors.New("private content")

	// ErrPolicyViolation is returned when probed metadata violates content policy.
	ErrPolicyViolation = errors.New("content policy violation")

	// ErrFileTooLarge is returned when a downloaded file exceeds the size ceiling.
	ErrFileTooLarge = errors.New("file exceeds maximum size")

	// ErrQueueEmpty is returned when there are no pending requests to claim.
	ErrQueueEmpty = errors.New("no pending requests")

	// ErrNoFreeSlot is returned when all processing slots are occupied.
	ErrNoFreeSlot = errors.New("no free processing slot")

	// ErrRequestNotFound is returned when a request cannot be found.
	ErrRequestNotFound = errors.New("request not found")

	// ErrInvalidQuality is returned when a quality value is not recognised.
	ErrInvalidQuality = errors.New("invalid quality value")

	// ErrInvalidURL is returned when a URL is empty or unparseable.
	ErrInvalidURL = errors.New("invalid URL")

	// ErrDeliveryFailed is returned when a downloaded file could not be delivered.
	ErrDeliveryFailed = errors.New("delivery failed")
)

// RejectReason is the machine-readable reason a request was refused
// before entering the queue.
type RejectReason string

const (
	ReasonRateLimited         RejectReason = "rate_limited"
	ReasonQueueFull           RejectReason = "queue_full"
	ReasonUnsupportedPlatform RejectReason = "unsupported_platform"
	ReasonBlockedDomain       RejectReason = "blocked_domain"
	ReasonPrivateContent      RejectReason = "private_content"
	ReasonPolicyViolation     RejectReason = "policy_violation"
)

// ReasonOf maps an admission or policy error to its reject reason.
// The second return is false for errors outside the admission taxonomy.
func ReasonOf(err error) (RejectReason, bool) {
	switch {
	case errors.Is(err, ErrRateLimited):
		return ReasonRateLimited, true
	case errors.Is(err, ErrQueueFull):
		return ReasonQueueFull, true
	case errors.Is(err, ErrUnsupportedPlatform):
		return ReasonUnsupportedPlatform, true
	case errors.Is(err, ErrBlockedDomain):
		return ReasonBlockedDomain, true
	case errors.Is(err, ErrPrivateContent):
		return ReasonPrivateContent, true
	case errors.Is(err, ErrPolicyViolation):
		return ReasonPolicyViolation, true
	}
	return "", false
}

// FailureClass classifies why an extraction attempt failed.
type FailureClass string

const (
	FailurePrivateOrLogin     FailureClass = "private_or_login_required"
	FailureUnsupportedFormat  FailureClass = "unsupported_format"
	FailureRateLimited        FailureClass = "rate_limited"
	FailureContentUnavailable FailureClass = "content_unavailable"
	FailureFileTooLarge       FailureClass = "file_too_large"
	FailureGeneric            FailureClass = "generic_extraction_error"
	FailurePolicyViolation    FailureClass = "policy_violation"
	FailureDelivery           FailureClass = "delivery_failed"
)

// String returns the string representation of the FailureClass.
func (c FailureClass) String() string {
	return string(c)
}

// ExtractionError wraps an extractor failure with its classification.
type ExtractionError struct {
	Class FailureClass
	Err   error
}

func (e *ExtractionError) Error() string {
	return string(e.Class) + ": " + e.Err.Error()
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// NewExtractionError creates a new ExtractionError.
func NewExtractionError(class FailureClass, err error) *ExtractionError {
	return &ExtractionError{
		Class: class,
		Err:   err,
	}
}

// ClassOf returns the failure class of an extraction error, defaulting
// to the generic class when the error carries no classification.
func ClassOf(err error) FailureClass {
	var ee *ExtractionError
	if errors.As(err, &ee) {
		return ee.Class
	}
	return FailureGeneric
}

// RequestError wraps an error with request context.
type RequestError struct {
	RequestID RequestID
	Op        string
	Err       error
}

func (e *RequestError) Error() string {
	if e.RequestID != "" {
		return e.Op + " [" + e.RequestID.String() + "]: " + e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// NewRequestError creates a new RequestError.
func NewRequestError(requestID RequestID, op string, err error) *RequestError {
	return &RequestError{
		RequestID: requestID,
		Op:        op,
		Err:       err,
	}
}
