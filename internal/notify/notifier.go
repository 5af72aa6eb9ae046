// Package notify delivers progress updates and terminal outcomes for
// download requests back to whoever asked for them.
package notify

import (
	"context"
	"errors"

	"github.com/snagbot/snagd/internal/domain"
)

// Progress is an in-flight status update for a request.
type Progress struct {
	Type      string              `json:"type"`
	RequestID domain.RequestID    `json:"request_id"`
	Target    domain.NotifyTarget `json:"target"`
	Stage     string              `json:"stage"`
	Position  int                 `json:"position,omitempty"`
	Message   string              `json:"message,omitempty"`
}

// Result carries a finished download back to the requester.
type Result struct {
	Type        string              `json:"type"`
	RequestID   domain.RequestID    `json:"request_id"`
	Target      domain.NotifyTarget `json:"target"`
	Title       string              `json:"title"`
	FilePath    string              `json:"file_path"`
	FileSize    int64               `json:"file_size"`
	Platform    string              `json:"platform"`
	ContentType string              `json:"content_type"`
}

// Failure describes a terminal failure for a request.
type Failure struct {
	Type      string              `json:"type"`
	RequestID domain.RequestID    `json:"request_id"`
	Target    domain.NotifyTarget `json:"target"`
	Reason    string              `json:"reason"`
	Message   string              `json:"message"`
}

// Notifier delivers updates for a request to its target. SendResult is
// the delivery of record: an error from it means the requester never
// received their download.
type Notifier interface {
	SendProgress(ctx context.Context, p Progress) error
	SendResult(ctx context.Context, r Result) error
	SendFailure(ctx context.Context, f Failure) error
}

// Fanout sends every notification through all wrapped notifiers and
// reports the combined failures.
type Fanout struct {
	notifiers []Notifier
}

// NewFanout creates a notifier that forwards to all of the given ones.
func NewFanout(notifiers ...Notifier) *Fanout {
	return &Fanout{notifiers: notifiers}
}

// SendProgress forwards the update to every notifier.
func (f *Fanout) SendProgress(ctx context.Context, p Progress) error {
	var errs []error
	for _, n := range f.notifiers {
		errs = append(errs, n.SendProgress(ctx, p))
	}
	return errors.Join(errs...)
}

// SendResult forwards the result to every notifier.
func (f *Fanout) SendResult(ctx context.Context, r Result) error {
	var errs []error
	for _, n := range f.notifiers {
		errs = append(errs, n.SendResult(ctx, r))
	}
	return errors.Join(errs...)
}

// SendFailure forwards the failure to every notifier.
func (f *Fanout) SendFailure(ctx context.Context, fl Failure) error {
	var errs []error
	for _, n := range f.notifiers {
		errs = append(errs, n.SendFailure(ctx, fl))
	}
	return errors.Join(errs...)
}
