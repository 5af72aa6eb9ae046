// Package history persists finished download attempts, per-user
// preferences and per-platform counters.
package history

import (
	"context"
	"time"
)

// Record is one finished download attempt.
type Record struct {
	ID           int64     `json:"id"`
	RequestID    string    `json:"request_id"`
	UserID       string    `json:"user_id"`
	Username     string    `json:"username"`
	URL          string    `json:"url"`
	Platform     string    `json:"platform"`
	Title        string    `json:"title,omitempty"`
	FileSize     int64     `json:"file_size,omitempty"`
	Success      bool      `json:"success"`
	ErrorMessage string    `json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Preferences holds a user's stored download preferences.
type Preferences struct {
	UserID           string    `json:"user_id"`
	Username         string    `json:"username"`
	PreferredQuality string    `json:"preferred_quality"`
	MaxDuration      int       `json:"max_duration"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// PlatformStat is the aggregate counter row for one platform.
type PlatformStat struct {
	Platform    string    `json:"platform"`
	Total       int64     `json:"total_downloads"`
	Succeeded   int64     `json:"successful_downloads"`
	Failed      int64     `json:"failed_downloads"`
	LastUpdated time.Time `json:"last_updated"`
}

// Summary aggregates the whole downloads table.
type Summary struct {
	Total       int64   `json:"total"`
	Succeeded   int64   `json:"successful"`
	Failed      int64   `json:"failed"`
	SuccessRate float64 `json:"success_rate"`
}

// Store persists download history.
type Store interface {
	// LogDownload appends one attempt and bumps the platform counters.
	LogDownload(ctx context.Context, rec Record) error

	// UserDownloads returns the user's most recent attempts, newest first.
	UserDownloads(ctx context.Context, userID string, limit int) ([]Record, error)

	// PlatformStats returns per-platform counters, busiest platform first.
	PlatformStats(ctx context.Context) ([]PlatformStat, error)

	// Preferences returns the user's stored preferences, or nil when the
	// user has never set any.
	Preferences(ctx context.Context, userID string) (*Preferences, error)

	// SetQuality upserts the user's preferred quality.
	SetQuality(ctx context.Context, userID, username, quality string) error

	// Summary aggregates all recorded attempts.
	Summary(ctx context.Context) (Summary, error)

	// CleanupOlderThan deletes attempts recorded before cutoff and
	// reports how many were removed.
	CleanupOlderThan(ctx context.Context, cutoff time.Time) (int64, error)

	Close() error
}
