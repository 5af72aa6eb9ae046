package domain

import (
	"time"
)

// RequestID is a unique identifier for a download request.
type RequestID string

// String returns the string representation of the RequestID.
func (id RequestID) String() string {
	return string(id)
}

// RequestStatus represents the current state of a download request.
type RequestStatus string

const (
	RequestStatusPending   RequestStatus = "pending"
	RequestStatusActive    RequestStatus = "active"
	RequestStatusSucceeded RequestStatus = "succeeded"
	RequestStatusFailed    RequestStatus = "failed"
	RequestStatusCancelled RequestStatus = "cancelled"
)

// NotifyTarget identifies where progress and result messages for a
// request should be delivered. It is opaque to the queue and workers;
// only the notifier interprets it.
type NotifyTarget string

// String returns the string representation of the NotifyTarget.
func (t NotifyTarget) String() string {
	return string(t)
}

// DownloadRequest represents a single media download request in the queue.
type DownloadRequest struct {
	ID          RequestID
	UserID      string
	Username    string
	URL         string
	Platform    Platform
	QualityHint string
	Priority    int
	Target      NotifyTarget
	Status      RequestStatus
	LastError   string
	SubmittedAt time.Time
	UpdatedAt   time.Time
}

// NewDownloadRequest creates a new pending download request.
func NewDownloadRequest(id RequestID, userID, username, url string, target NotifyTarget) *DownloadRequest {
	now := time.Now()
	return &DownloadRequest{
		ID:          id,
		UserID:      userID,
		Username:    username,
		URL:         url,
		Target:      target,
		Status:      RequestStatusPending,
		SubmittedAt: now,
		UpdatedAt:   now,
	}
}

// MarkActive updates the request status to active.
func (r *DownloadRequest) MarkActive() {
	r.Status = RequestStatusActive
	r.UpdatedAt = time.Now()
}

// MarkSucceeded updates the request status to succeeded.
func (r *DownloadRequest) MarkSucceeded() {
	r.Status = RequestStatusSucceeded
	r.UpdatedAt = time.Now()
}

// MarkFailed updates the request status to failed with an error message.
func (r *DownloadRequest) MarkFailed(err string) {
	r.Status = RequestStatusFailed
	r.LastError = err
	r.UpdatedAt = time.Now()
}

// MarkCancelled updates the request status to cancelled.
func (r *DownloadRequest) MarkCancelled() {
	r.Status = RequestStatusCancelled
	r.UpdatedAt = time.Now()
}
