// Package service implements the booking engine: the room catalog, the
// screening scheduler, the seat allocation guard, the reservation
// lifecycle and payment intake.  Every operation that checks and then
// writes runs inside a single store transaction holding the relevant
// room or screening lock.
package service

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking-engine/internal/apperr"
	"github.com/iliyamo/cinema-booking-engine/internal/repository"
)

// Option configures the clock and logger shared by all services.
type Option func(*deps)

type deps struct {
	now func() time.Time
	log *zap.Logger
}

func newDeps(opts []Option) deps {
	d := deps{now: time.Now, log: zap.NewNop()}
	for _, o := range opts {
		o(&d)
	}
	return d
}

// WithClock replaces time.Now.  Tests use it to move through the
// screening and reservation timelines.
func WithClock(now func() time.Time) Option {
	return func(d *deps) { d.now = now }
}

func WithLogger(log *zap.Logger) Option {
	return func(d *deps) {
		if log != nil {
			d.log = log
		}
	}
}

// notFound converts repository.ErrNotFound into an apperr NotFound for the
// named entity and passes every other error through.
func notFound(err error, entity string, id any) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound(entity, id)
	}
	return err
}

// dedupe drops zero ids and repeats while keeping the first occurrence.
func dedupe(ids []uint64) []uint64 {
	out := make([]uint64, 0, len(ids))
	seen := make(map[uint64]struct{}, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
