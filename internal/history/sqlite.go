package history

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"
)

const defaultQuality = "best[height<=720]"

// SQLiteStore is the durable Store implementation.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) the database at path and ensures
// the schema exists.
func NewSQLiteStore(path string, logger *slog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// The driver allows a single writer; funnel everything through one
	// connection so concurrent workers queue instead of failing busy.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS downloads (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			request_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			username TEXT NOT NULL,
			url TEXT NOT NULL,
			platform TEXT NOT NULL,
			title TEXT,
			file_size INTEGER,
			success BOOLEAN NOT NULL,
			error_message TEXT,
			timestamp DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_downloads_user ON downloads(user_id);
		CREATE INDEX IF NOT EXISTS idx_downloads_timestamp ON downloads(timestamp);

		CREATE TABLE IF NOT EXISTS user_preferences (
			user_id TEXT PRIMARY KEY,
			username TEXT NOT NULL,
			preferred_quality TEXT DEFAULT 'best[height<=720]',
			max_duration INTEGER DEFAULT 600,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS platform_stats (
			platform TEXT PRIMARY KEY,
			total_downloads INTEGER DEFAULT 0,
			successful_downloads INTEGER DEFAULT 0,
			failed_downloads INTEGER DEFAULT 0,
			last_updated DATETIME NOT NULL
		);
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return &SQLiteStore{db: db, logger: logger}, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// LogDownload appends one attempt and bumps the platform counters in
// the same transaction.
func (s *SQLiteStore) LogDownload(ctx context.Context, rec Record) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO downloads (request_id, user_id, username, url, platform, title, file_size, success, error_message, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.RequestID, rec.UserID, rec.Username, rec.URL, rec.Platform, rec.Title, rec.FileSize, rec.Success, rec.ErrorMessage, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert download: %w", err)
	}

	succ, fail := 0, 0
	if rec.Success {
		succ = 1
	} else {
		fail = 1
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO platform_stats (platform, total_downloads, successful_downloads, failed_downloads, last_updated)
		VALUES (?, 1, ?, ?, ?)
		ON CONFLICT(platform) DO UPDATE SET
			total_downloads = total_downloads + 1,
			successful_downloads = successful_downloads + excluded.successful_downloads,
			failed_downloads = failed_downloads + excluded.failed_downloads,
			last_updated = excluded.last_updated
	`, rec.Platform, succ, fail, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update platform stats: %w", err)
	}

	return tx.Commit()
}

// UserDownloads returns the user's most recent attempts, newest first.
func (s *SQLiteStore) UserDownloads(ctx context.Context, userID string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, request_id, user_id, username, url, platform, title, file_size, success, error_message, timestamp
		FROM downloads
		WHERE user_id = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query downloads: %w", err)
	}
	defer rows.Close()

	records := make([]Record, 0, limit)
	for rows.Next() {
		var rec Record
		var title, errMsg sql.NullString
		var size sql.NullInt64
		if err := rows.Scan(&rec.ID, &rec.RequestID, &rec.UserID, &rec.Username, &rec.URL, &rec.Platform, &title, &size, &rec.Success, &errMsg, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan download: %w", err)
		}
		rec.Title = title.String
		rec.FileSize = size.Int64
		rec.ErrorMessage = errMsg.String
		records = append(records, rec)
	}
	return records, rows.Err()
}

// PlatformStats returns the aggregate counters, busiest platform first.
func (s *SQLiteStore) PlatformStats(ctx context.Context) ([]PlatformStat, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT platform, total_downloads, successful_downloads, failed_downloads, last_updated
		FROM platform_stats
		ORDER BY total_downloads DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query platform stats: %w", err)
	}
	defer rows.Close()

	var stats []PlatformStat
	for rows.Next() {
		var st PlatformStat
		if err := rows.Scan(&st.Platform, &st.Total, &st.Succeeded, &st.Failed, &st.LastUpdated); err != nil {
			return nil, fmt.Errorf("scan platform stat: %w", err)
		}
		stats = append(stats, st)
	}
	return stats, rows.Err()
}

// Preferences returns the stored preferences for the user, or nil when
// none were ever set.
func (s *SQLiteStore) Preferences(ctx context.Context, userID string) (*Preferences, error) {
	var p Preferences
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, username, preferred_quality, max_duration, created_at, updated_at
		FROM user_preferences
		WHERE user_id = ?
	`, userID).Scan(&p.UserID, &p.Username, &p.PreferredQuality, &p.MaxDuration, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query preferences: %w", err)
	}
	return &p, nil
}

// SetQuality upserts the user's preferred quality.
func (s *SQLiteStore) SetQuality(ctx context.Context, userID, username, quality string) error {
	if quality == "" {
		quality = defaultQuality
	}
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_preferences (user_id, username, preferred_quality, max_duration, created_at, updated_at)
		VALUES (?, ?, ?, 600, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			username = excluded.username,
			preferred_quality = excluded.preferred_quality,
			updated_at = excluded.updated_at
	`, userID, username, quality, now, now)
	if err != nil {
		return fmt.Errorf("upsert preferences: %w", err)
	}
	return nil
}

// Summary aggregates all recorded attempts.
func (s *SQLiteStore) Summary(ctx context.Context) (Summary, error) {
	var sum Summary
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN success THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN success THEN 0 ELSE 1 END), 0)
		FROM downloads
	`).Scan(&sum.Total, &sum.Succeeded, &sum.Failed)
	if err != nil {
		return Summary{}, fmt.Errorf("count downloads: %w", err)
	}
	if sum.Total > 0 {
		sum.SuccessRate = float64(sum.Succeeded) / float64(sum.Total) * 100
	}
	return sum, nil
}

// CleanupOlderThan deletes attempts recorded before cutoff.
func (s *SQLiteStore) CleanupOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM downloads WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete old downloads: %w", err)
	}

	deleted, _ := res.RowsAffected()
	if deleted > 0 {
		s.logger.Info("cleaned up old downloads", "deleted", deleted, "cutoff", cutoff)
	}
	return deleted, nil
}
