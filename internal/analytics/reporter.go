// Package analytics - reporter.go dispatches page-view reports off the request path.
//
// DESIGN: A bounded queue feeds a fixed set of workers:
//   - Report never blocks; a full queue drops the event
//   - workers share one rate limiter so bursts cannot flood the vendor
//   - Shutdown stops intake and drains what is queued until ctx expires
//
// Report failures are logged and counted, never surfaced to the visitor.
package analytics

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"
	"go.uber.org/ratelimit"

	"github.com/lunalift/edge-gateway/internal/config"
	"github.com/lunalift/edge-gateway/internal/vendor"
)

// ErrReporterClosed is returned by Shutdown when called twice.
var ErrReporterClosed = errors.New("analytics: reporter already shut down")

// Sender delivers one page-view report.
type Sender interface {
	ReportPageView(ctx context.Context, meta vendor.PageMeta) error
}

// Outcome of a single report, passed to the result hook.
type Outcome int

const (
	OutcomeSent Outcome = iota
	OutcomeFailed
	OutcomeDropped
)

// ResultFunc observes report outcomes (metrics, tests).
type ResultFunc func(meta vendor.PageMeta, outcome Outcome, err error)

// Reporter queues page views and sends them from background workers.
type Reporter struct {
	sender   Sender
	limiter  ratelimit.Limiter
	queue    chan vendor.PageMeta
	onResult ResultFunc

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// ReporterOption configures a Reporter.
type ReporterOption func(*Reporter)

// WithResultFunc installs a hook called after every report.
func WithResultFunc(fn ResultFunc) ReporterOption {
	return func(r *Reporter) {
		r.onResult = fn
	}
}

// NewReporter starts cfg.Workers workers sending through sender.
// A zero cfg.RateLimit means unlimited.
func NewReporter(sender Sender, cfg config.AnalyticsConfig, opts ...ReporterOption) *Reporter {
	workers := cfg.Workers
	if workers <= 0 {
		workers = config.DefaultAnalyticsWorkers
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = config.DefaultAnalyticsQueueSize
	}

	limiter := ratelimit.NewUnlimited()
	if cfg.RateLimit > 0 {
		limiter = ratelimit.New(cfg.RateLimit)
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &Reporter{
		sender:  sender,
		limiter: limiter,
		queue:   make(chan vendor.PageMeta, queueSize),
		ctx:     ctx,
		cancel:  cancel,
	}
	for _, opt := range opts {
		opt(r)
	}

	r.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go r.worker()
	}

	log.Debug().
		Int("workers", workers).
		Int("queue_size", queueSize).
		Int("rate_limit", cfg.RateLimit).
		Msg("analytics: reporter started")
	return r
}

// Report enqueues a page view. It returns false when the event was dropped
// because the queue is full or the reporter is shut down.
func (r *Reporter) Report(meta vendor.PageMeta) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		r.notify(meta, OutcomeDropped, ErrReporterClosed)
		return false
	}

	select {
	case r.queue <- meta:
		return true
	default:
		log.Warn().Str("page_url", meta.PageURL).Msg("analytics: queue full, dropping page view")
		r.notify(meta, OutcomeDropped, nil)
		return false
	}
}

// Pending returns the number of queued reports.
func (r *Reporter) Pending() int {
	return len(r.queue)
}

// Capacity returns the queue size the reporter was started with.
func (r *Reporter) Capacity() int {
	return cap(r.queue)
}

// Shutdown stops accepting reports and waits for queued ones to be sent.
// When ctx expires first, in-flight requests are cancelled and ctx.Err() is returned.
func (r *Reporter) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrReporterClosed
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.cancel()
		return nil
	case <-ctx.Done():
		r.cancel()
		<-done
		return ctx.Err()
	}
}

func (r *Reporter) worker() {
	defer r.wg.Done()
	for meta := range r.queue {
		if r.ctx.Err() != nil {
			r.notify(meta, OutcomeDropped, r.ctx.Err())
			continue
		}
		r.limiter.Take()

		if err := r.sender.ReportPageView(r.ctx, meta); err != nil {
			log.Warn().Err(err).Str("page_url", meta.PageURL).Msg("analytics: report failed")
			r.notify(meta, OutcomeFailed, err)
			continue
		}
		r.notify(meta, OutcomeSent, nil)
	}
}

func (r *Reporter) notify(meta vendor.PageMeta, outcome Outcome, err error) {
	if r.onResult != nil {
		r.onResult(meta, outcome, err)
	}
}
