// Package worker runs the background jobs of the booking engine.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking-engine/internal/model"
)

// Expirer is the slice of the reservation service the sweeper needs.
type Expirer interface {
	ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]model.Reservation, error)
	Expire(ctx context.Context, id uint64) (bool, error)
}

// SweepResult counts what one sweep did.  Skipped reservations had left
// PENDING between the scan and the update.
type SweepResult struct {
	Scanned int
	Expired int
	Skipped int
	Failed  int
}

// ExpiryWorker cancels PENDING reservations older than the timeout.  The
// age is computed from the stored creation time on every run, so nothing
// is lost across restarts.
type ExpiryWorker struct {
	svc      Expirer
	timeout  time.Duration
	batch    int
	schedule string
	now      func() time.Time
	log      *zap.Logger

	mu   sync.Mutex
	cron *cron.Cron
}

type ExpiryConfig struct {
	Timeout   time.Duration
	BatchSize int
	Schedule  string // robfig/cron spec, e.g. "@every 1m"
}

func NewExpiryWorker(svc Expirer, cfg ExpiryConfig, log *zap.Logger, now func() time.Time) *ExpiryWorker {
	if now == nil {
		now = time.Now
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 500
	}
	if cfg.Schedule == "" {
		cfg.Schedule = "@every 1m"
	}
	return &ExpiryWorker{svc: svc, timeout: cfg.Timeout, batch: cfg.BatchSize, schedule: cfg.Schedule, now: now, log: log}
}

// Sweep runs one expiration pass.  A failure on one reservation is logged
// and the pass continues; the next run retries it.
func (w *ExpiryWorker) Sweep(ctx context.Context) (SweepResult, error) {
	var res SweepResult
	cutoff := w.now().Add(-w.timeout)
	for {
		stale, err := w.svc.ListStalePending(ctx, cutoff, w.batch)
		if err != nil {
			return res, fmt.Errorf("list stale reservations: %w", err)
		}
		res.Scanned += len(stale)
		failed := 0
		for _, r := range stale {
			if err := ctx.Err(); err != nil {
				return res, err
			}
			changed, err := w.svc.Expire(ctx, r.ID)
			switch {
			case err != nil:
				failed++
				w.log.Error("expire reservation failed", zap.Uint64("reservation_id", r.ID), zap.Error(err))
			case changed:
				res.Expired++
			default:
				res.Skipped++
			}
		}
		res.Failed += failed
		// A full batch with no failures may have more behind it.
		if len(stale) < w.batch || failed > 0 {
			break
		}
	}
	if res.Scanned > 0 {
		w.log.Info("expiration sweep finished", zap.Time("cutoff", cutoff), zap.Int("scanned", res.Scanned),
			zap.Int("expired", res.Expired), zap.Int("skipped", res.Skipped), zap.Int("failed", res.Failed))
	}
	return res, nil
}

// Start schedules Sweep.  Runs never overlap: a tick that arrives while the
// previous sweep is still working is skipped.
func (w *ExpiryWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cron != nil {
		return nil
	}
	logger := cronLogger{w.log.Sugar()}
	c := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	if _, err := c.AddFunc(w.schedule, func() {
		if _, err := w.Sweep(ctx); err != nil {
			w.log.Error("expiration sweep aborted", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("schedule %q: %w", w.schedule, err)
	}
	c.Start()
	w.cron = c
	w.log.Info("expiry worker started", zap.String("schedule", w.schedule), zap.Duration("timeout", w.timeout))
	return nil
}

// Stop halts scheduling and waits for a running sweep to return.
func (w *ExpiryWorker) Stop() {
	w.mu.Lock()
	c := w.cron
	w.cron = nil
	w.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
		w.log.Info("expiry worker stopped")
	}
}

// cronLogger routes robfig/cron's logging through zap.
type cronLogger struct{ s *zap.SugaredLogger }

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw("cron: "+msg, append(keysAndValues, "error", err)...)
}
