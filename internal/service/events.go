package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Event severities.
const (
	EventSeverityInfo    = "info"
	EventSeveritySuccess = "success"
	EventSeverityWarning = "warning"
	EventSeverityError   = "error"
)

// Event categories.
const (
	EventCategoryQueue    = "queue"
	EventCategoryDownload = "download"
	EventCategoryPolicy   = "policy"
	EventCategorySystem   = "system"
)

// Event is one entry in the activity feed.
type Event struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Severity  string    `json:"severity"`
	Category  string    `json:"category"`
	Message   string    `json:"message"`
	RequestID string    `json:"request_id,omitempty"`
	UserID    string    `json:"user_id,omitempty"`
}

// EventLog keeps recent events in a fixed-size ring buffer. Durable
// records live in the history store; this feed exists for operators
// watching the service.
type EventLog struct {
	mu     sync.RWMutex
	events []Event
	head   int // Next write position
	count  int // Number of events in buffer
	seq    uint64
	size   int
	logger *slog.Logger
}

// NewEventLog creates an event log holding up to size entries.
func NewEventLog(size int, logger *slog.Logger) *EventLog {
	if size <= 0 {
		size = 1000
	}
	return &EventLog{
		events: make([]Event, size),
		size:   size,
		logger: logger,
	}
}

// Emit records an event, assigning an ID and timestamp when unset.
func (l *EventLog) Emit(event Event) {
	if event.ID == "" {
		seq := atomic.AddUint64(&l.seq, 1)
		event.ID = fmt.Sprintf("evt_%d_%d", time.Now().UnixNano(), seq)
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Severity == "" {
		event.Severity = EventSeverityInfo
	}

	l.mu.Lock()
	l.events[l.head] = event
	l.head = (l.head + 1) % l.size
	if l.count < l.size {
		l.count++
	}
	l.mu.Unlock()

	logLevel := slog.LevelInfo
	switch event.Severity {
	case EventSeverityWarning:
		logLevel = slog.LevelWarn
	case EventSeverityError:
		logLevel = slog.LevelError
	}
	l.logger.Log(context.Background(), logLevel, "event",
		"event_id", event.ID,
		"category", event.Category,
		"severity", event.Severity,
		"message", event.Message,
	)
}

// EmitInfo records an info-level event.
func (l *EventLog) EmitInfo(category, message, requestID, userID string) {
	l.Emit(Event{Severity: EventSeverityInfo, Category: category, Message: message, RequestID: requestID, UserID: userID})
}

// EmitSuccess records a success-level event.
func (l *EventLog) EmitSuccess(category, message, requestID, userID string) {
	l.Emit(Event{Severity: EventSeveritySuccess, Category: category, Message: message, RequestID: requestID, UserID: userID})
}

// EmitWarning records a warning-level event.
func (l *EventLog) EmitWarning(category, message, requestID, userID string) {
	l.Emit(Event{Severity: EventSeverityWarning, Category: category, Message: message, RequestID: requestID, UserID: userID})
}

// EmitError records an error-level event.
func (l *EventLog) EmitError(category, message, requestID, userID string) {
	l.Emit(Event{Severity: EventSeverityError, Category: category, Message: message, RequestID: requestID, UserID: userID})
}

// Recent returns the most recent n events, newest first.
func (l *EventLog) Recent(n int) []Event {
	if n <= 0 {
		n = 50
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	count := n
	if count > l.count {
		count = l.count
	}

	result := make([]Event, 0, count)
	for i := 0; i < count; i++ {
		idx := (l.head - 1 - i + l.size) % l.size
		event := l.events[idx]
		if event.ID == "" {
			continue
		}
		result = append(result, event)
	}
	return result
}

// Len returns the number of buffered events.
func (l *EventLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.count
}
