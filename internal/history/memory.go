package history

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore implements Store using in-memory storage.
type MemoryStore struct {
	mu      sync.RWMutex
	records []Record
	prefs   map[string]*Preferences
	stats   map[string]*PlatformStat
	nextID  int64
}

// NewMemoryStore creates a new in-memory history store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		prefs:  make(map[string]*Preferences),
		stats:  make(map[string]*PlatformStat),
		nextID: 1,
	}
}

// LogDownload appends one attempt and bumps the platform counters.
func (m *MemoryStore) LogDownload(ctx context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	rec.ID = m.nextID
	m.nextID++
	m.records = append(m.records, rec)

	st, ok := m.stats[rec.Platform]
	if !ok {
		st = &PlatformStat{Platform: rec.Platform}
		m.stats[rec.Platform] = st
	}
	st.Total++
	if rec.Success {
		st.Succeeded++
	} else {
		st.Failed++
	}
	st.LastUpdated = time.Now().UTC()

	return nil
}

// UserDownloads returns the user's most recent attempts, newest first.
func (m *MemoryStore) UserDownloads(ctx context.Context, userID string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 10
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []Record
	for i := len(m.records) - 1; i >= 0 && len(result) < limit; i-- {
		if m.records[i].UserID == userID {
			result = append(result, m.records[i])
		}
	}
	return result, nil
}

// PlatformStats returns the aggregate counters, busiest platform first.
func (m *MemoryStore) PlatformStats(ctx context.Context) ([]PlatformStat, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := make([]PlatformStat, 0, len(m.stats))
	for _, st := range m.stats {
		stats = append(stats, *st)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Total > stats[j].Total })
	return stats, nil
}

// Preferences returns the stored preferences for the user, or nil when
// none were ever set.
func (m *MemoryStore) Preferences(ctx context.Context, userID string) (*Preferences, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.prefs[userID]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

// SetQuality upserts the user's preferred quality.
func (m *MemoryStore) SetQuality(ctx context.Context, userID, username, quality string) error {
	if quality == "" {
		quality = defaultQuality
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	if p, ok := m.prefs[userID]; ok {
		p.Username = username
		p.PreferredQuality = quality
		p.UpdatedAt = now
		return nil
	}
	m.prefs[userID] = &Preferences{
		UserID:           userID,
		Username:         username,
		PreferredQuality: quality,
		MaxDuration:      600,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	return nil
}

// Summary aggregates all recorded attempts.
func (m *MemoryStore) Summary(ctx context.Context) (Summary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var sum Summary
	for _, rec := range m.records {
		sum.Total++
		if rec.Success {
			sum.Succeeded++
		} else {
			sum.Failed++
		}
	}
	if sum.Total > 0 {
		sum.SuccessRate = float64(sum.Succeeded) / float64(sum.Total) * 100
	}
	return sum, nil
}

// CleanupOlderThan deletes attempts recorded before cutoff.
func (m *MemoryStore) CleanupOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.records[:0]
	var deleted int64
	for _, rec := range m.records {
		if rec.CreatedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, rec)
	}
	m.records = kept
	return deleted, nil
}

// Close is a no-op for the in-memory store.
func (m *MemoryStore) Close() error {
	return nil
}
