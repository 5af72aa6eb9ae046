// Package worker runs the persistent dispatcher that drains the
// download queue. The pool is started once at boot and lives for the
// whole process; enqueues only nudge it awake.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/snagbot/snagd/internal/domain"
	"github.com/snagbot/snagd/internal/queue"
)

// ErrShutdownTimeout is returned when workers don't stop within timeout.
var ErrShutdownTimeout = errors.New("worker pool shutdown timed out")

// Processor carries one claimed request to a terminal state. It must
// not return before the request has been notified and recorded.
type Processor interface {
	Process(ctx context.Context, req *domain.DownloadRequest)
}

// Pool manages a fixed set of workers draining the download queue.
type Pool struct {
	workers      int
	pollInterval time.Duration
	queue        *queue.Queue
	processor    Processor
	logger       *slog.Logger

	mu      sync.Mutex
	started bool

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// Config holds worker pool configuration.
type Config struct {
	Workers      int
	PollInterval time.Duration
}

// NewPool creates a new worker pool.
func NewPool(
	cfg Config,
	q *queue.Queue,
	processor Processor,
	logger *slog.Logger,
) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = 3
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Pool{
		workers:      cfg.Workers,
		pollInterval: cfg.PollInterval,
		queue:        q,
		processor:    processor,
		logger:       logger,
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Start launches all workers. Calling Start on a running pool is a
// no-op, so callers don't have to track whether the pool is up.
func (p *Pool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		p.logger.Debug("worker pool already started")
		return
	}
	p.started = true

	p.logger.Info("starting worker pool", "workers", p.workers)

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop gracefully stops all workers.
func (p *Pool) Stop(timeout time.Duration) error {
	p.logger.Info("stopping worker pool")
	p.cancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("worker pool stopped gracefully")
		return nil
	case <-time.After(timeout):
		return ErrShutdownTimeout
	}
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	logger := p.logger.With("worker_id", id)
	logger.Info("worker started")

	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			logger.Info("worker stopping")
			return
		case <-p.queue.Wake():
			p.drain(logger)
		case <-ticker.C:
			// Periodic sweep in case a wake nudge was coalesced away.
			p.drain(logger)
		}
	}
}

// drain claims and processes requests until the queue is empty or all
// slots are taken.
func (p *Pool) drain(logger *slog.Logger) {
	for {
		if p.ctx.Err() != nil {
			return
		}

		req, err := p.queue.Claim()
		if err != nil {
			// Both an empty queue and exhausted slots mean there is
			// nothing for this worker right now. A later enqueue or
			// release nudges the pool again.
			return
		}

		// More work may sit behind the claimed item; let a sibling look.
		p.queue.Signal()

		p.processOne(logger, req)
	}
}

// processOne runs the processor for a single claimed request. The slot
// is released no matter how processing ends; a panic that escapes the
// processor is contained here so it can never kill the worker.
func (p *Pool) processOne(logger *slog.Logger, req *domain.DownloadRequest) {
	defer p.queue.Release()
	defer func() {
		if r := recover(); r != nil {
			logger.Error("processor panicked",
				"request_id", req.ID,
				"panic", r,
			)
		}
	}()

	logger.Info("processing request",
		"request_id", req.ID,
		"user_id", req.UserID,
		"url", req.URL,
	)

	p.processor.Process(p.ctx, req)
}
