// Package queue holds the bounded priority queue of pending download
// requests and the slot accounting for concurrent processing.
package queue

import (
	"sync"

	"github.com/snagbot/snagd/internal/domain"
)

const (
	defaultMaxConcurrent = 3
	defaultMaxSize       = 50
)

// Admitter decides whether a user may submit another request right now.
type Admitter interface {
	Admit(userID string) bool
}

// Status is a point-in-time snapshot of queue occupancy.
type Status struct {
	Pending int `json:"pending"`
	Active  int `json:"active"`
}

// EnqueueResult reports where an admitted request landed.
type EnqueueResult struct {
	Position int
}

// Queue is the owned arena for all mutable scheduling state. One lock
// guards the pending list and the active slot count; nothing slow ever
// runs under it.
type Queue struct {
	mu      sync.Mutex
	pending []*domain.DownloadRequest
	active  int

	maxConcurrent int
	maxSize       int
	limiter       Admitter

	wake chan struct{}
}

// New creates a queue. Non-positive limits fall back to defaults. A nil
// limiter admits everything.
func New(maxConcurrent, maxSize int, limiter Admitter) *Queue {
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrent
	}
	if maxSize <= 0 {
		maxSize = defaultMaxSize
	}
	return &Queue{
		maxConcurrent: maxConcurrent,
		maxSize:       maxSize,
		limiter:       limiter,
		wake:          make(chan struct{}, 1),
	}
}

// Enqueue admits a request into the pending queue and returns its
// 1-based position. The rate limit check, the capacity check and the
// insert happen under one lock so concurrent submitters cannot
// oversubscribe the queue.
func (q *Queue) Enqueue(req *domain.DownloadRequest) (EnqueueResult, error) {
	q.mu.Lock()
	if q.limiter != nil && !q.limiter.Admit(req.UserID) {
		q.mu.Unlock()
		return EnqueueResult{}, domain.ErrRateLimited
	}
	if len(q.pending) >= q.maxSize {
		q.mu.Unlock()
		return EnqueueResult{}, domain.ErrQueueFull
	}
	pos := q.insertLocked(req)
	q.mu.Unlock()

	q.signal()
	return EnqueueResult{Position: pos}, nil
}

// insertLocked places the request after every entry of equal or higher
// priority, so equal-priority requests stay in submission order.
func (q *Queue) insertLocked(req *domain.DownloadRequest) int {
	idx := len(q.pending)
	for i, r := range q.pending {
		if req.Priority > r.Priority {
			idx = i
			break
		}
	}
	q.pending = append(q.pending, nil)
	copy(q.pending[idx+1:], q.pending[idx:])
	q.pending[idx] = req
	return idx + 1
}

// Claim hands out the head of the queue and occupies one slot, marking
// the request active. It fails with ErrNoFreeSlot when all slots are
// taken and ErrQueueEmpty when there is nothing pending. Every
// successful Claim must be paired with a Release.
func (q *Queue) Claim() (*domain.DownloadRequest, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.active >= q.maxConcurrent {
		return nil, domain.ErrNoFreeSlot
	}
	if len(q.pending) == 0 {
		return nil, domain.ErrQueueEmpty
	}

	req := q.pending[0]
	copy(q.pending, q.pending[1:])
	q.pending[len(q.pending)-1] = nil
	q.pending = q.pending[:len(q.pending)-1]
	q.active++
	req.MarkActive()
	return req, nil
}

// Release frees one slot and nudges the dispatcher so it can claim
// more work.
func (q *Queue) Release() {
	q.mu.Lock()
	if q.active > 0 {
		q.active--
	}
	q.mu.Unlock()
	q.signal()
}

// CancelAllForUser removes every pending request owned by the user and
// returns them, each marked cancelled. Active requests are untouched;
// the relative order of everyone else's requests is preserved.
func (q *Queue) CancelAllForUser(userID string) []*domain.DownloadRequest {
	q.mu.Lock()
	defer q.mu.Unlock()

	var removed []*domain.DownloadRequest
	kept := q.pending[:0]
	for _, r := range q.pending {
		if r.UserID == userID {
			r.MarkCancelled()
			removed = append(removed, r)
			continue
		}
		kept = append(kept, r)
	}
	for i := len(kept); i < len(q.pending); i++ {
		q.pending[i] = nil
	}
	q.pending = kept
	return removed
}

// Status reports current occupancy.
func (q *Queue) Status() Status {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Status{Pending: len(q.pending), Active: q.active}
}

// PositionOf reports the 1-based position of the user's earliest
// pending request. The second return is false when the user has
// nothing pending.
func (q *Queue) PositionOf(userID string) (int, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, r := range q.pending {
		if r.UserID == userID {
			return i + 1, true
		}
	}
	return 0, false
}

// Wake returns a channel that receives a nudge whenever new work or a
// freed slot may be available. The channel is never closed.
func (q *Queue) Wake() <-chan struct{} {
	return q.wake
}

// Signal nudges the dispatcher without touching queue state. Used by
// workers that claimed one item and want siblings to check for more.
func (q *Queue) Signal() {
	q.signal()
}

func (q *Queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}
