package notify

import (
	"context"
	"log/slog"
)

// LogNotifier writes every notification to the structured log. It
// never fails, which makes it a safe fanout companion for delivery
// channels that can.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a notifier backed by the given logger.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// SendProgress logs the update.
func (n *LogNotifier) SendProgress(ctx context.Context, p Progress) error {
	n.logger.Info("progress",
		"request_id", p.RequestID,
		"target", p.Target,
		"stage", p.Stage,
		"position", p.Position,
	)
	return nil
}

// SendResult logs the finished download.
func (n *LogNotifier) SendResult(ctx context.Context, r Result) error {
	n.logger.Info("download delivered",
		"request_id", r.RequestID,
		"target", r.Target,
		"title", r.Title,
		"file_size", r.FileSize,
		"platform", r.Platform,
	)
	return nil
}

// SendFailure logs the terminal failure.
func (n *LogNotifier) SendFailure(ctx context.Context, f Failure) error {
	n.logger.Warn("download failed",
		"request_id", f.RequestID,
		"target", f.Target,
		"reason", f.Reason,
		"message", f.Message,
	)
	return nil
}
