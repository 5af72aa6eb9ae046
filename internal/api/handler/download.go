package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/snagbot/snagd/internal/domain"
	"github.com/snagbot/snagd/internal/history"
	"github.com/snagbot/snagd/internal/service"
)

// DownloadHandler handles download queue HTTP requests.
type DownloadHandler struct {
	svc    *service.DownloadService
	logger *slog.Logger
}

// NewDownloadHandler creates a new download handler.
func NewDownloadHandler(svc *service.DownloadService, logger *slog.Logger) *DownloadHandler {
	return &DownloadHandler{
		svc:    svc,
		logger: logger,
	}
}

// SubmitRequest is the JSON request body for download submission.
type SubmitRequest struct {
	UserID   string `json:"user_id"`
	Username string `json:"username,omitempty"`
	URL      string `json:"url"`
	Quality  string `json:"quality,omitempty"`
	Priority int    `json:"priority,omitempty"`
	Target   string `json:"target,omitempty"`
}

// SubmitResponse is the JSON response after submission.
type SubmitResponse struct {
	RequestID string `json:"request_id"`
	Position  int    `json:"position"`
	Platform  string `json:"platform"`
	Quality   string `json:"quality"`
	Status    string `json:"status"`
	Message   string `json:"message"`
}

// PositionResponse reports a user's place in the queue.
type PositionResponse struct {
	UserID   string `json:"user_id"`
	Position int    `json:"position"`
}

// CancelResponse reports how many pending requests were removed.
type CancelResponse struct {
	UserID    string `json:"user_id"`
	Cancelled int    `json:"cancelled"`
}

// HistoryResponse contains a user's recent download attempts.
type HistoryResponse struct {
	Downloads []history.Record `json:"downloads"`
	Total     int              `json:"total"`
}

// QualityRequest is the JSON body for quality updates.
type QualityRequest struct {
	Quality  string `json:"quality"`
	Username string `json:"username,omitempty"`
}

// QualityResponse reports a user's effective quality setting.
type QualityResponse struct {
	UserID  string `json:"user_id"`
	Quality string `json:"quality"`
	Message string `json:"message,omitempty"`
}

// EventsResponse contains recent activity feed entries.
type EventsResponse struct {
	Events []service.Event `json:"events"`
}

// Submit handles POST /api/v1/downloads
func (h *DownloadHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" {
		h.writeError(w, http.StatusBadRequest, "missing user_id")
		return
	}
	if req.URL == "" {
		h.writeError(w, http.StatusBadRequest, "missing url")
		return
	}
	if req.Username == "" {
		req.Username = req.UserID
	}

	result, err := h.svc.Submit(r.Context(), service.SubmitRequest{
		UserID:   req.UserID,
		Username: req.Username,
		URL:      req.URL,
		Quality:  req.Quality,
		Priority: req.Priority,
		Target:   domain.NotifyTarget(req.Target),
	})
	if err != nil {
		h.writeSubmitError(w, err)
		return
	}

	h.writeJSON(w, http.StatusAccepted, SubmitResponse{
		RequestID: result.RequestID.String(),
		Position:  result.Position,
		Platform:  result.Platform.String(),
		Quality:   result.Quality,
		Status:    "queued",
		Message:   result.Message,
	})
}

// writeSubmitError maps admission errors onto HTTP status codes.
func (h *DownloadHandler) writeSubmitError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrRateLimited):
		h.writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
	case errors.Is(err, domain.ErrQueueFull):
		h.writeError(w, http.StatusServiceUnavailable, "download queue is full, try again later")
	case errors.Is(err, domain.ErrUnsupportedPlatform):
		h.writeError(w, http.StatusUnprocessableEntity, "unsupported platform")
	case errors.Is(err, domain.ErrBlockedDomain):
		h.writeError(w, http.StatusUnprocessableEntity, "domain is not allowed")
	case errors.Is(err, domain.ErrPrivateContent):
		h.writeError(w, http.StatusUnprocessableEntity, "content appears to be private")
	case errors.Is(err, domain.ErrPolicyViolation):
		h.writeError(w, http.StatusUnprocessableEntity, "content violates policy")
	case errors.Is(err, domain.ErrInvalidQuality):
		h.writeError(w, http.StatusBadRequest, "invalid quality value")
	case errors.Is(err, domain.ErrInvalidURL):
		h.writeError(w, http.StatusBadRequest, "invalid URL")
	default:
		h.logger.Error("submit failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to submit download")
	}
}

// Queue handles GET /api/v1/queue
func (h *DownloadHandler) Queue(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.svc.QueueStatus())
}

// Position handles GET /api/v1/queue/position
func (h *DownloadHandler) Position(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		h.writeError(w, http.StatusBadRequest, "missing user_id")
		return
	}

	pos, ok := h.svc.Position(userID)
	if !ok {
		h.writeError(w, http.StatusNotFound, "no pending downloads for user")
		return
	}

	h.writeJSON(w, http.StatusOK, PositionResponse{
		UserID:   userID,
		Position: pos,
	})
}

// CancelUser handles DELETE /api/v1/queue/users/{userID}
func (h *DownloadHandler) CancelUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		h.writeError(w, http.StatusBadRequest, "missing user ID")
		return
	}

	cancelled := h.svc.CancelUser(r.Context(), userID)

	h.writeJSON(w, http.StatusOK, CancelResponse{
		UserID:    userID,
		Cancelled: cancelled,
	})
}

// History handles GET /api/v1/users/{userID}/history
func (h *DownloadHandler) History(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		h.writeError(w, http.StatusBadRequest, "missing user ID")
		return
	}

	limit := 10
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	records, err := h.svc.History(r.Context(), userID, limit)
	if err != nil {
		h.logger.Error("history lookup failed", "user_id", userID, "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	if records == nil {
		records = []history.Record{}
	}

	h.writeJSON(w, http.StatusOK, HistoryResponse{
		Downloads: records,
		Total:     len(records),
	})
}

// GetQuality handles GET /api/v1/users/{userID}/quality
func (h *DownloadHandler) GetQuality(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		h.writeError(w, http.StatusBadRequest, "missing user ID")
		return
	}

	quality, err := h.svc.GetQuality(r.Context(), userID)
	if err != nil {
		h.logger.Error("quality lookup failed", "user_id", userID, "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to load quality setting")
		return
	}

	h.writeJSON(w, http.StatusOK, QualityResponse{
		UserID:  userID,
		Quality: quality,
	})
}

// SetQuality handles PUT /api/v1/users/{userID}/quality
func (h *DownloadHandler) SetQuality(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		h.writeError(w, http.StatusBadRequest, "missing user ID")
		return
	}

	var req QualityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == "" {
		req.Username = userID
	}

	if err := h.svc.SetQuality(r.Context(), userID, req.Username, req.Quality); err != nil {
		if errors.Is(err, domain.ErrInvalidQuality) {
			h.writeError(w, http.StatusBadRequest, "invalid quality value")
			return
		}
		h.logger.Error("quality update failed", "user_id", userID, "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to update quality setting")
		return
	}

	h.writeJSON(w, http.StatusOK, QualityResponse{
		UserID:  userID,
		Quality: req.Quality,
		Message: "Quality updated",
	})
}

// Events handles GET /api/v1/events
func (h *DownloadHandler) Events(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 200 {
			limit = parsed
		}
	}

	h.writeJSON(w, http.StatusOK, EventsResponse{
		Events: h.svc.RecentEvents(limit),
	})
}

func (h *DownloadHandler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *DownloadHandler) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
