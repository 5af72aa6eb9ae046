package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/snagbot/snagd/internal/history"
	"github.com/snagbot/snagd/internal/queue"
	"github.com/snagbot/snagd/internal/service"
)

var startTime = time.Now()

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	svc *service.DownloadService
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(svc *service.DownloadService) *HealthHandler {
	return &HealthHandler{
		svc: svc,
	}
}

// HealthResponse is the JSON response for health checks.
type HealthResponse struct {
	Status    string        `json:"status"`
	Timestamp string        `json:"timestamp"`
	Queue     *queue.Status `json:"queue,omitempty"`
}

// Live handles GET /health - liveness probe.
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// Ready handles GET /ready - readiness probe.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	// The history store must be reachable before accepting work.
	if _, err := h.svc.Stats(ctx); err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(HealthResponse{
			Status:    "error",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
		return
	}

	st := h.svc.QueueStatus()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Queue:     &st,
	})
}

// SystemStats contains process and service statistics.
type SystemStats struct {
	Uptime        int64                  `json:"uptime_seconds"`
	UptimeHuman   string                 `json:"uptime_human"`
	MemAllocMB    int64                  `json:"mem_alloc_mb"`
	MemSysMB      int64                  `json:"mem_sys_mb"`
	NumGoroutines int                    `json:"num_goroutines"`
	NumCPU        int                    `json:"num_cpu"`
	Queue         queue.Status           `json:"queue"`
	Downloads     history.Summary        `json:"downloads"`
	Platforms     []history.PlatformStat `json:"platforms"`
	FreeDiskBytes int64                  `json:"free_disk_bytes"`
}

// Stats handles GET /api/v1/stats - system statistics.
func (h *HealthHandler) Stats(w http.ResponseWriter, r *http.Request) {
	svcStats, err := h.svc.Stats(r.Context())
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "failed to collect statistics"})
		return
	}
	if svcStats.Platforms == nil {
		svcStats.Platforms = []history.PlatformStat{}
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	uptime := time.Since(startTime)
	stats := SystemStats{
		Uptime:        int64(uptime.Seconds()),
		UptimeHuman:   formatUptime(uptime),
		MemAllocMB:    int64(m.Alloc / 1024 / 1024),
		MemSysMB:      int64(m.Sys / 1024 / 1024),
		NumGoroutines: runtime.NumGoroutine(),
		NumCPU:        runtime.NumCPU(),
		Queue:         svcStats.Queue,
		Downloads:     svcStats.Downloads,
		Platforms:     svcStats.Platforms,
		FreeDiskBytes: svcStats.FreeDiskBytes,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(stats)
}

func formatUptime(d time.Duration) string {
	days := int(d.Hours() / 24)
	hours := int(d.Hours()) % 24
	mins := int(d.Minutes()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, mins)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, mins)
	}
	return fmt.Sprintf("%dm", mins)
}
