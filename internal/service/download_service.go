package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/snagbot/snagd/internal/analyzer"
	"github.com/snagbot/snagd/internal/config"
	"github.com/snagbot/snagd/internal/domain"
	"github.com/snagbot/snagd/internal/extractor"
	"github.com/snagbot/snagd/internal/history"
	"github.com/snagbot/snagd/internal/metrics"
	"github.com/snagbot/snagd/internal/notify"
	"github.com/snagbot/snagd/internal/policy"
	"github.com/snagbot/snagd/internal/queue"
)

// DownloadService orchestrates the download pipeline from submission
// through extraction to delivery.
type DownloadService struct {
	gate     *policy.Gate
	analyzer *analyzer.Analyzer
	queue    *queue.Queue
	engine   extractor.Engine
	video    extractor.Strategy
	image    extractor.Strategy
	store    history.Store
	notifier notify.Notifier
	events   *EventLog
	metrics  *metrics.Metrics
	cfg      config.DownloadConfig
	logger   *slog.Logger
}

// NewDownloadService creates a new download service.
func NewDownloadService(
	gate *policy.Gate,
	an *analyzer.Analyzer,
	q *queue.Queue,
	engine extractor.Engine,
	store history.Store,
	notifier notify.Notifier,
	events *EventLog,
	m *metrics.Metrics,
	cfg config.DownloadConfig,
	logger *slog.Logger,
) *DownloadService {
	return &DownloadService{
		gate:     gate,
		analyzer: an,
		queue:    q,
		engine:   engine,
		video:    extractor.NewVideoStrategy(engine, cfg.MaxFileSize),
		image:    extractor.NewImageStrategy(engine, cfg.MaxFileSize),
		store:    store,
		notifier: notifier,
		events:   events,
		metrics:  m,
		cfg:      cfg,
		logger:   logger,
	}
}

// SubmitRequest represents a download submission.
type SubmitRequest struct {
	UserID   string
	Username string
	URL      string
	Quality  string // optional override, must be a valid quality when set
	Priority int
	Target   domain.NotifyTarget
}

// SubmitResponse is returned after a request is admitted.
type SubmitResponse struct {
	RequestID domain.RequestID
	Position  int
	Platform  domain.Platform
	Quality   string
	Message   string
}

// Submit validates a request against the policy gate and admits it
// into the queue.
func (s *DownloadService) Submit(ctx context.Context, req SubmitRequest) (*SubmitResponse, error) {
	if req.URL == "" {
		return nil, domain.ErrInvalidURL
	}

	// Policy gate first: an unsupported or disallowed URL never counts
	// against the user's rate allowance.
	decision := s.gate.ValidateURL(req.URL)
	if !decision.Allowed {
		s.metrics.RejectionsTotal.WithLabelValues(string(decision.Reason)).Inc()
		s.events.EmitWarning(EventCategoryPolicy,
			fmt.Sprintf("rejected %s: %s", req.URL, decision.Reason),
			"", req.UserID)
		return nil, errForReason(decision.Reason)
	}

	quality, err := s.resolveQuality(ctx, req.UserID, req.Quality)
	if err != nil {
		return nil, err
	}

	id := domain.RequestID("req_" + uuid.New().String()[:8])
	dreq := domain.NewDownloadRequest(id, req.UserID, req.Username, req.URL, req.Target)
	dreq.Platform = decision.Platform
	dreq.QualityHint = quality
	dreq.Priority = req.Priority

	res, err := s.queue.Enqueue(dreq)
	if err != nil {
		reason, _ := domain.ReasonOf(err)
		s.metrics.RejectionsTotal.WithLabelValues(string(reason)).Inc()
		s.events.EmitWarning(EventCategoryQueue,
			fmt.Sprintf("admission refused: %s", reason),
			id.String(), req.UserID)
		return nil, domain.NewRequestError(id, "enqueue", err)
	}

	s.metrics.SubmissionsTotal.WithLabelValues(decision.Platform.String(), "queued").Inc()
	s.syncGauges()
	s.events.EmitInfo(EventCategoryQueue,
		fmt.Sprintf("queued %s at position %d", req.URL, res.Position),
		id.String(), req.UserID)

	if err := s.notifier.SendProgress(ctx, notify.Progress{
		RequestID: id,
		Target:    req.Target,
		Stage:     "queued",
		Position:  res.Position,
	}); err != nil {
		s.logger.Debug("queued notification dropped", "request_id", id, "error", err)
	}

	s.logger.Info("request submitted",
		"request_id", id,
		"user_id", req.UserID,
		"platform", decision.Platform.String(),
		"position", res.Position,
	)

	return &SubmitResponse{
		RequestID: id,
		Position:  res.Position,
		Platform:  decision.Platform,
		Quality:   quality,
		Message:   "Download queued",
	}, nil
}

// Process carries one claimed request to a terminal state: probe,
// classify, extract with one fallback, deliver, record. Every outcome
// produces exactly one terminal notification.
func (s *DownloadService) Process(ctx context.Context, req *domain.DownloadRequest) {
	start := time.Now()
	logger := s.logger.With("request_id", req.ID, "platform", req.Platform.String())
	s.syncGauges()

	defer func() {
		if r := recover(); r != nil {
			logger.Error("processing panicked", "panic", r)
			s.finishFailed(ctx, req,
				domain.NewExtractionError(domain.FailureGeneric, fmt.Errorf("internal error: %v", r)),
				start)
		}
	}()

	if err := s.notifier.SendProgress(ctx, notify.Progress{
		RequestID: req.ID,
		Target:    req.Target,
		Stage:     "processing",
	}); err != nil {
		logger.Debug("processing notification dropped", "error", err)
	}

	// Step 1: probe metadata. A failed probe is not fatal; the URL
	// shape still gives a coarse classification.
	meta, probeErr := s.engine.Probe(ctx, req.URL, extractor.ProbeOptions(req.Platform))
	if probeErr != nil {
		logger.Debug("probe failed", "error", probeErr)
	}

	// Step 2: check probed metadata against content policy
	if probeErr == nil {
		if err := s.gate.ValidateContent(meta); err != nil {
			logger.Warn("content rejected by policy", "error", err)
			s.finishFailed(ctx, req,
				domain.NewExtractionError(domain.FailurePolicyViolation, err),
				start)
			return
		}
	}

	// Step 3: classify content
	var analysis domain.ContentAnalysis
	if probeErr == nil {
		analysis = s.analyzer.Analyze(meta, req.Platform)
	} else {
		analysis = s.analyzer.AnalyzeURL(req.URL, req.Platform)
	}
	logger.Info("content classified",
		"content_type", analysis.ContentType.String(),
		"confidence", analysis.Confidence,
	)

	// Step 4: extract, with a single cross-strategy fallback
	res, strategyName, exErr := s.runStrategies(ctx, logger, req, analysis.ContentType)
	if exErr != nil {
		s.finishFailed(ctx, req, exErr, start)
		return
	}

	// Step 5: deliver and clean up
	s.deliver(ctx, logger, req, res, analysis, strategyName, start)
}

// strategyOrder returns the primary and fallback strategies for a
// content type.
func (s *DownloadService) strategyOrder(ct domain.ContentType) (extractor.Strategy, extractor.Strategy) {
	switch ct {
	case domain.ContentTypeVideo, domain.ContentTypeReel, domain.ContentTypeStory:
		return s.video, s.image
	default:
		// Still content leads with the image strategy. Threads and
		// unclassified content do too; that order is a policy choice,
		// not something the content tells us.
		return s.image, s.video
	}
}

// runStrategies runs the primary strategy and, if it fails, the
// fallback exactly once.
func (s *DownloadService) runStrategies(ctx context.Context, logger *slog.Logger, req *domain.DownloadRequest, ct domain.ContentType) (*domain.FetchResult, string, *domain.ExtractionError) {
	primary, fallback := s.strategyOrder(ct)

	res, primaryErr := s.runOne(ctx, logger, primary, req)
	if primaryErr == nil {
		return res, primary.Name(), nil
	}
	logger.Warn("primary strategy failed",
		"strategy", primary.Name(),
		"class", primaryErr.Class.String(),
		"error", primaryErr.Err,
	)

	s.metrics.FallbacksTotal.WithLabelValues(primary.Name(), fallback.Name()).Inc()
	res, fallbackErr := s.runOne(ctx, logger, fallback, req)
	if fallbackErr == nil {
		return res, fallback.Name(), nil
	}
	logger.Warn("fallback strategy failed",
		"strategy", fallback.Name(),
		"class", fallbackErr.Class.String(),
		"error", fallbackErr.Err,
	)

	// Report the more specific failure. The fallback's error only wins
	// when the primary failed with the generic class.
	if primaryErr.Class == domain.FailureGeneric {
		return nil, "", fallbackErr
	}
	return nil, "", primaryErr
}

// runOne executes a single strategy attempt. A panicking strategy is
// converted into a generic extraction failure so the fallback and the
// terminal notification still happen.
func (s *DownloadService) runOne(ctx context.Context, logger *slog.Logger, strat extractor.Strategy, req *domain.DownloadRequest) (res *domain.FetchResult, exErr *domain.ExtractionError) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("strategy panicked", "strategy", strat.Name(), "panic", r)
			res = nil
			exErr = domain.NewExtractionError(domain.FailureGeneric,
				fmt.Errorf("strategy %s panicked: %v", strat.Name(), r))
		}
	}()

	result, err := strat.Fetch(ctx, req.URL, req.Platform, req.QualityHint)
	if err != nil {
		var ee *domain.ExtractionError
		if errors.As(err, &ee) {
			return nil, ee
		}
		return nil, domain.NewExtractionError(domain.FailureGeneric, err)
	}
	return result, nil
}

// deliver hands the artifact to the notifier and removes the file
// afterwards, whatever the outcome.
func (s *DownloadService) deliver(ctx context.Context, logger *slog.Logger, req *domain.DownloadRequest, res *domain.FetchResult, analysis domain.ContentAnalysis, strategyName string, start time.Time) {
	defer func() {
		if err := os.Remove(res.FilePath); err != nil && !os.IsNotExist(err) {
			logger.Warn("removing delivered file failed", "path", res.FilePath, "error", err)
		}
	}()

	if _, err := os.Stat(res.FilePath); err != nil {
		s.finishFailed(ctx, req,
			domain.NewExtractionError(domain.FailureDelivery, fmt.Errorf("artifact missing before delivery: %w", err)),
			start)
		return
	}

	if err := s.notifier.SendResult(ctx, notify.Result{
		RequestID:   req.ID,
		Target:      req.Target,
		Title:       res.Title,
		FilePath:    res.FilePath,
		FileSize:    res.SizeBytes,
		Platform:    req.Platform.String(),
		ContentType: analysis.ContentType.String(),
	}); err != nil {
		logger.Error("delivery failed", "error", err)
		s.finishFailed(ctx, req,
			domain.NewExtractionError(domain.FailureDelivery, err),
			start)
		return
	}

	req.MarkSucceeded()
	s.record(ctx, req, res)

	took := time.Since(start)
	s.metrics.DownloadsTotal.WithLabelValues(req.Platform.String(), "succeeded").Inc()
	s.metrics.DownloadDuration.WithLabelValues(req.Platform.String(), strategyName).Observe(took.Seconds())
	s.metrics.DownloadBytes.WithLabelValues(req.Platform.String()).Observe(float64(res.SizeBytes))
	s.events.EmitSuccess(EventCategoryDownload,
		fmt.Sprintf("delivered %q (%d bytes)", res.Title, res.SizeBytes),
		req.ID.String(), req.UserID)
	s.syncGauges()

	logger.Info("download delivered",
		"title", res.Title,
		"size_bytes", res.SizeBytes,
		"strategy", strategyName,
		"took", took,
	)
}

// finishFailed marks the request failed, notifies the requester and
// records the attempt.
func (s *DownloadService) finishFailed(ctx context.Context, req *domain.DownloadRequest, exErr *domain.ExtractionError, start time.Time) {
	req.MarkFailed(exErr.Error())

	if err := s.notifier.SendFailure(ctx, notify.Failure{
		RequestID: req.ID,
		Target:    req.Target,
		Reason:    exErr.Class.String(),
		Message:   userMessage(exErr.Class),
	}); err != nil {
		s.logger.Error("failure notification not delivered", "request_id", req.ID, "error", err)
	}

	s.record(ctx, req, nil)
	s.metrics.DownloadsTotal.WithLabelValues(req.Platform.String(), "failed").Inc()
	s.metrics.FailuresTotal.WithLabelValues(exErr.Class.String()).Inc()
	s.events.EmitError(EventCategoryDownload,
		fmt.Sprintf("download failed: %s", exErr.Class),
		req.ID.String(), req.UserID)
	s.syncGauges()

	s.logger.Warn("request failed",
		"request_id", req.ID,
		"class", exErr.Class.String(),
		"error", exErr.Err,
		"took", time.Since(start),
	)
}

// CancelUser removes all of the user's pending requests and reports
// how many were cancelled.
func (s *DownloadService) CancelUser(ctx context.Context, userID string) int {
	removed := s.queue.CancelAllForUser(userID)
	for _, req := range removed {
		if err := s.notifier.SendProgress(ctx, notify.Progress{
			RequestID: req.ID,
			Target:    req.Target,
			Stage:     "cancelled",
		}); err != nil {
			s.logger.Debug("cancel notification dropped", "request_id", req.ID, "error", err)
		}
	}

	if len(removed) > 0 {
		s.syncGauges()
		s.events.EmitInfo(EventCategoryQueue,
			fmt.Sprintf("cancelled %d pending downloads", len(removed)),
			"", userID)
		s.logger.Info("cancelled pending requests", "user_id", userID, "count", len(removed))
	}
	return len(removed)
}

// QueueStatus reports current queue occupancy.
func (s *DownloadService) QueueStatus() queue.Status {
	return s.queue.Status()
}

// Position reports the user's earliest pending queue position.
func (s *DownloadService) Position(userID string) (int, bool) {
	return s.queue.PositionOf(userID)
}

// History returns the user's recent download attempts.
func (s *DownloadService) History(ctx context.Context, userID string, limit int) ([]history.Record, error) {
	return s.store.UserDownloads(ctx, userID, limit)
}

// RecentEvents returns the latest entries from the activity feed.
func (s *DownloadService) RecentEvents(n int) []Event {
	return s.events.Recent(n)
}

// StatsResponse aggregates service-wide statistics.
type StatsResponse struct {
	Queue         queue.Status           `json:"queue"`
	Downloads     history.Summary        `json:"downloads"`
	Platforms     []history.PlatformStat `json:"platforms"`
	FreeDiskBytes int64                  `json:"free_disk_bytes"`
}

// Stats aggregates queue occupancy, download history and disk headroom.
func (s *DownloadService) Stats(ctx context.Context) (*StatsResponse, error) {
	sum, err := s.store.Summary(ctx)
	if err != nil {
		return nil, fmt.Errorf("history summary: %w", err)
	}
	platforms, err := s.store.PlatformStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("platform stats: %w", err)
	}

	return &StatsResponse{
		Queue:         s.queue.Status(),
		Downloads:     sum,
		Platforms:     platforms,
		FreeDiskBytes: freeDiskSpace(s.cfg.Dir),
	}, nil
}

// GetQuality returns the user's effective quality setting.
func (s *DownloadService) GetQuality(ctx context.Context, userID string) (string, error) {
	prefs, err := s.store.Preferences(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("load preferences: %w", err)
	}
	if prefs != nil && prefs.PreferredQuality != "" {
		return prefs.PreferredQuality, nil
	}
	return s.cfg.DefaultQuality, nil
}

// SetQuality stores the user's preferred quality.
func (s *DownloadService) SetQuality(ctx context.Context, userID, username, quality string) error {
	if !config.IsValidQuality(quality) {
		return domain.ErrInvalidQuality
	}
	if err := s.store.SetQuality(ctx, userID, username, quality); err != nil {
		return fmt.Errorf("save preferences: %w", err)
	}
	s.events.EmitInfo(EventCategorySystem,
		fmt.Sprintf("quality preference set to %s", quality),
		"", userID)
	return nil
}

// resolveQuality picks the effective quality for a new request: an
// explicit override, then the stored preference, then the default.
func (s *DownloadService) resolveQuality(ctx context.Context, userID, override string) (string, error) {
	if override != "" {
		if !config.IsValidQuality(override) {
			return "", domain.ErrInvalidQuality
		}
		return override, nil
	}

	prefs, err := s.store.Preferences(ctx, userID)
	if err != nil {
		s.logger.Warn("loading user preferences failed", "user_id", userID, "error", err)
	}
	if prefs != nil && config.IsValidQuality(prefs.PreferredQuality) {
		return prefs.PreferredQuality, nil
	}
	return s.cfg.DefaultQuality, nil
}

// record writes the attempt to the history store. Storage trouble is
// logged, never surfaced; the requester already has their outcome.
func (s *DownloadService) record(ctx context.Context, req *domain.DownloadRequest, res *domain.FetchResult) {
	rec := history.Record{
		RequestID:    req.ID.String(),
		UserID:       req.UserID,
		Username:     req.Username,
		URL:          req.URL,
		Platform:     req.Platform.String(),
		Success:      req.Status == domain.RequestStatusSucceeded,
		ErrorMessage: req.LastError,
	}
	if res != nil {
		rec.Title = res.Title
		rec.FileSize = res.SizeBytes
	}
	if err := s.store.LogDownload(ctx, rec); err != nil {
		s.logger.Error("recording download failed", "request_id", req.ID, "error", err)
	}
}

func (s *DownloadService) syncGauges() {
	st := s.queue.Status()
	s.metrics.QueuePending.Set(float64(st.Pending))
	s.metrics.QueueActive.Set(float64(st.Active))
}

// errForReason maps a gate rejection to its sentinel error.
func errForReason(reason domain.RejectReason) error {
	switch reason {
	case domain.ReasonUnsupportedPlatform:
		return domain.ErrUnsupportedPlatform
	case domain.ReasonBlockedDomain:
		return domain.ErrBlockedDomain
	case domain.ReasonPrivateContent:
		return domain.ErrPrivateContent
	default:
		return domain.ErrPolicyViolation
	}
}

// userMessage is the text shown to the requester for a failure class.
func userMessage(class domain.FailureClass) string {
	switch class {
	case domain.FailurePrivateOrLogin:
		return "This content is private or requires a login."
	case domain.FailureUnsupportedFormat:
		return "No downloadable media was found at this link."
	case domain.FailureRateLimited:
		return "The platform is rate limiting downloads. Try again in a few minutes."
	case domain.FailureContentUnavailable:
		return "This content is unavailable or has been removed."
	case domain.FailureFileTooLarge:
		return "The file is too large to deliver."
	case domain.FailurePolicyViolation:
		return "This content is not allowed."
	case domain.FailureDelivery:
		return "The download finished but could not be delivered."
	default:
		return "The download failed. Please try again."
	}
}
