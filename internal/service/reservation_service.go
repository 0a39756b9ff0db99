package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking-engine/internal/apperr"
	"github.com/iliyamo/cinema-booking-engine/internal/model"
	"github.com/iliyamo/cinema-booking-engine/internal/repository"
)

// ReservationService owns the reservation state machine.  PENDING moves
// exactly once to CONFIRMED or CANCELLED, and every transition is a
// conditional update so that concurrent cancel, confirm and expiry
// converge on whichever committed first.
type ReservationService struct {
	store repository.Store
	guard SeatGuard
	deps
}

func NewReservationService(store repository.Store, opts ...Option) *ReservationService {
	return &ReservationService{store: store, deps: newDeps(opts)}
}

// Create books seatIDs for the user on a bookable screening.  The guard
// check and the claim insert run in one transaction under the screening
// lock, so two requests for the same seat cannot both succeed.  The first
// conflicting seat aborts the whole booking.
func (s *ReservationService) Create(ctx context.Context, userID, screeningID uint64, seatIDs []uint64) (model.Reservation, error) {
	seatIDs = dedupe(seatIDs)
	if len(seatIDs) == 0 {
		return model.Reservation{}, apperr.Invalid("at least one seat is required").WithCode(apperr.CodeReservationEmpty)
	}

	var r model.Reservation
	err := s.store.InTx(ctx, func(q repository.Queries) error {
		if _, err := q.GetUser(ctx, userID); err != nil {
			return notFound(err, "user", userID)
		}
		scr, err := q.GetScreening(ctx, screeningID)
		if err != nil {
			return notFound(err, "screening", screeningID)
		}
		now := s.now()
		if !scr.IsBookable(now) {
			return apperr.Business(apperr.CodeScreeningNotBookable, "screening %d is no longer available", scr.ID)
		}
		if err := q.LockScreening(ctx, scr.ID); err != nil {
			return err
		}
		if _, err := s.guard.resolveFree(ctx, q, scr, seatIDs); err != nil {
			return err
		}
		r = model.Reservation{
			UserID:      userID,
			ScreeningID: scr.ID,
			Status:      model.ReservationPending,
			CreatedAt:   now.UTC(),
		}
		for _, id := range seatIDs {
			r.Claims = append(r.Claims, model.SeatClaim{SeatID: id})
		}
		return q.CreateReservation(ctx, &r)
	})
	if err != nil {
		return model.Reservation{}, err
	}
	s.log.Info("reservation created", zap.Uint64("reservation_id", r.ID), zap.Uint64("user_id", userID),
		zap.Uint64("screening_id", screeningID), zap.Int("seats", len(r.Claims)))
	return r, nil
}

// ModifySeats detaches the claims on remove and then claims add, all in
// one transaction: a conflict on any added seat leaves the reservation as
// it was.  Removing a seat the reservation does not hold is a no-op, and
// so is adding one it already holds.
func (s *ReservationService) ModifySeats(ctx context.Context, id uint64, remove, add []uint64) (model.Reservation, error) {
	remove, add = dedupe(remove), dedupe(add)
	var out model.Reservation
	err := s.store.InTx(ctx, func(q repository.Queries) error {
		r, err := q.GetReservation(ctx, id)
		if err != nil {
			return notFound(err, "reservation", id)
		}
		scr, err := q.GetScreening(ctx, r.ScreeningID)
		if err != nil {
			return err
		}
		if scr.HasStarted(s.now()) {
			return apperr.Business(apperr.CodeScreeningStarted, "screening %d has already started", scr.ID)
		}
		if r.Status.Terminal() {
			return apperr.Business(apperr.CodeReservationNotPending, "reservation %d is %s", r.ID, strings.ToLower(string(r.Status)))
		}
		if err := q.LockScreening(ctx, scr.ID); err != nil {
			return err
		}
		if len(remove) > 0 {
			if _, err := q.RemoveClaims(ctx, r.ID, remove); err != nil {
				return err
			}
		}

		held := map[uint64]bool{}
		for _, c := range r.Claims {
			held[c.SeatID] = true
		}
		for _, sid := range remove {
			delete(held, sid)
		}
		var fresh []uint64
		for _, sid := range add {
			if !held[sid] {
				fresh = append(fresh, sid)
			}
		}
		if len(fresh) > 0 {
			if _, err := s.guard.resolveFree(ctx, q, scr, fresh); err != nil {
				return err
			}
			if err := q.AddClaims(ctx, r.ID, fresh); err != nil {
				return err
			}
		}
		if len(held)+len(fresh) == 0 {
			return apperr.Business(apperr.CodeReservationEmpty, "reservation %d would hold no seats; cancel it instead", r.ID)
		}
		out, err = q.GetReservation(ctx, r.ID)
		return err
	})
	if err != nil {
		return model.Reservation{}, err
	}
	s.log.Info("reservation seats modified", zap.Uint64("reservation_id", id),
		zap.Int("removed", len(remove)), zap.Int("added", len(add)), zap.Int("seats", len(out.Claims)))
	return out, nil
}

// Cancel moves a PENDING reservation to CANCELLED before its screening
// starts.  Cancelling an already cancelled reservation is a no-op.  The
// seat claims stay in place as history.
func (s *ReservationService) Cancel(ctx context.Context, id uint64) (model.Reservation, error) {
	var out model.Reservation
	var changed bool
	err := s.store.InTx(ctx, func(q repository.Queries) error {
		r, err := q.GetReservation(ctx, id)
		if err != nil {
			return notFound(err, "reservation", id)
		}
		if r.Status == model.ReservationCancelled {
			out = r
			return nil
		}
		scr, err := q.GetScreening(ctx, r.ScreeningID)
		if err != nil {
			return err
		}
		now := s.now()
		if scr.HasStarted(now) {
			return apperr.Business(apperr.CodeScreeningStarted, "screening %d has already started", scr.ID)
		}
		if changed, err = s.cancelPending(ctx, q, r.ID, now); err != nil {
			return err
		}
		if out, err = q.GetReservation(ctx, r.ID); err != nil {
			return err
		}
		if out.Status == model.ReservationConfirmed {
			return apperr.Business(apperr.CodeReservationNotPending, "reservation %d is already confirmed", r.ID)
		}
		return nil
	})
	if err != nil {
		return model.Reservation{}, err
	}
	if changed {
		s.log.Info("reservation cancelled", zap.Uint64("reservation_id", id))
	}
	return out, nil
}

// Expire cancels a stale PENDING reservation on behalf of the sweeper.
// It reports false when the reservation had already left PENDING.
func (s *ReservationService) Expire(ctx context.Context, id uint64) (bool, error) {
	var changed bool
	err := s.store.InTx(ctx, func(q repository.Queries) error {
		var err error
		changed, err = s.cancelPending(ctx, q, id, s.now())
		return err
	})
	return changed, err
}

// ListStalePending returns PENDING reservations created before cutoff.
func (s *ReservationService) ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]model.Reservation, error) {
	return s.store.ListStalePending(ctx, cutoff, limit)
}

// cancelPending is the shared PENDING -> CANCELLED transition.  A pending
// payment of the reservation is cancelled along with it.
func (s *ReservationService) cancelPending(ctx context.Context, q repository.Queries, id uint64, at time.Time) (bool, error) {
	changed, err := q.TransitionReservation(ctx, id, model.ReservationPending, model.ReservationCancelled, at)
	if err != nil || !changed {
		return false, err
	}
	p, err := q.GetPaymentByReservation(ctx, id)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return true, nil
	case err != nil:
		return false, err
	}
	if _, err := q.TransitionPayment(ctx, p.ID, model.PaymentPending, model.PaymentCancelled, at); err != nil {
		return false, err
	}
	return true, nil
}

func (s *ReservationService) Get(ctx context.Context, id uint64) (model.Reservation, error) {
	r, err := s.store.GetReservation(ctx, id)
	return r, notFound(err, "reservation", id)
}

// GetOwned returns the reservation only when userID owns it.
func (s *ReservationService) GetOwned(ctx context.Context, userID, id uint64) (model.Reservation, error) {
	r, err := s.Get(ctx, id)
	if err != nil {
		return r, err
	}
	if r.UserID != userID {
		return model.Reservation{}, apperr.Forbidden("reservation %d belongs to another user", id)
	}
	return r, nil
}

// List returns every reservation, newest first.
func (s *ReservationService) List(ctx context.Context) ([]model.Reservation, error) {
	return s.store.ListReservations(ctx, repository.ReservationFilter{})
}

func (s *ReservationService) ListByUser(ctx context.Context, userID uint64) ([]model.Reservation, error) {
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return nil, notFound(err, "user", userID)
	}
	return s.store.ListReservations(ctx, repository.ReservationFilter{UserID: userID})
}

func (s *ReservationService) ListByScreening(ctx context.Context, screeningID uint64) ([]model.Reservation, error) {
	if _, err := s.store.GetScreening(ctx, screeningID); err != nil {
		return nil, notFound(err, "screening", screeningID)
	}
	return s.store.ListReservations(ctx, repository.ReservationFilter{ScreeningID: screeningID})
}

// ListByUsername resolves the username (the account email) first.
func (s *ReservationService) ListByUsername(ctx context.Context, username string) ([]model.Reservation, error) {
	u, err := s.store.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(username)))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFoundf("user not found with username %s", username)
	}
	if err != nil {
		return nil, err
	}
	return s.store.ListReservations(ctx, repository.ReservationFilter{UserID: u.ID})
}

// GetBySession finds the reservation whose payment carries sessionID.
func (s *ReservationService) GetBySession(ctx context.Context, sessionID string) (model.Reservation, error) {
	p, err := s.store.GetPaymentBySession(ctx, sessionID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Reservation{}, apperr.NotFoundf("no reservation for session %s", sessionID)
	}
	if err != nil {
		return model.Reservation{}, err
	}
	return s.Get(ctx, p.ReservationID)
}
