package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking-engine/internal/apperr"
	"github.com/iliyamo/cinema-booking-engine/internal/model"
	"github.com/iliyamo/cinema-booking-engine/internal/payment"
	"github.com/iliyamo/cinema-booking-engine/internal/queue"
	"github.com/iliyamo/cinema-booking-engine/internal/repository"
)

// Notifier receives a confirmation once a reservation is CONFIRMED.
// Delivery is best effort: errors are logged and never undo the
// confirmation.
type Notifier interface {
	NotifyConfirmed(ctx context.Context, ev queue.ReservationConfirmedEvent) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, ev queue.ReservationConfirmedEvent) error

func (f NotifierFunc) NotifyConfirmed(ctx context.Context, ev queue.ReservationConfirmedEvent) error {
	return f(ctx, ev)
}

// Checkout is the result of opening a payment for a reservation.
type Checkout struct {
	ReservationID uint64
	SessionID     string
	URL           string
	AmountCents   int64
	Currency      string
}

// PaymentService opens checkouts and applies the gateway's asynchronous
// payment events to the reservation state machine.
type PaymentService struct {
	store    repository.Store
	gateway  payment.Gateway
	notifier Notifier
	currency string
	deps
}

func NewPaymentService(store repository.Store, gateway payment.Gateway, notifier Notifier, currency string, opts ...Option) *PaymentService {
	if currency == "" {
		currency = "eur"
	}
	return &PaymentService{store: store, gateway: gateway, notifier: notifier, currency: currency, deps: newDeps(opts)}
}

// StartCheckout opens a gateway checkout for a PENDING reservation.  The
// amount is the sum of the claimed seats' prices.  Opening a new checkout
// for the same reservation replaces the previous session reference; a
// payment made in the older session is still matched through the
// reservation reference the gateway echoes back.
func (s *PaymentService) StartCheckout(ctx context.Context, reservationID uint64, successURL, cancelURL string) (Checkout, error) {
	r, err := s.store.GetReservation(ctx, reservationID)
	if err != nil {
		return Checkout{}, notFound(err, "reservation", reservationID)
	}
	if r.Status.Terminal() {
		return Checkout{}, apperr.Business(apperr.CodeReservationNotPending, "reservation %d is not awaiting payment", r.ID)
	}
	if len(r.Claims) == 0 {
		return Checkout{}, apperr.Business(apperr.CodeReservationEmpty, "reservation %d holds no seats", r.ID)
	}
	scr, err := s.store.GetScreening(ctx, r.ScreeningID)
	if err != nil {
		return Checkout{}, err
	}
	if !scr.IsBookable(s.now()) {
		return Checkout{}, apperr.Business(apperr.CodeScreeningNotBookable, "screening %d is no longer available", scr.ID)
	}
	if p, err := s.store.GetPaymentByReservation(ctx, r.ID); err == nil && p.Status == model.PaymentCompleted {
		return Checkout{}, apperr.Business(apperr.CodePaymentCompleted, "reservation %d is already paid", r.ID)
	} else if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return Checkout{}, err
	}
	user, err := s.store.GetUser(ctx, r.UserID)
	if err != nil {
		return Checkout{}, err
	}

	req := payment.CheckoutRequest{
		ReservationID: r.ID,
		CustomerEmail: user.Email,
		Currency:      s.currency,
		SuccessURL:    successURL,
		CancelURL:     cancelURL,
	}
	for _, c := range r.Claims {
		seat, err := s.store.GetSeat(ctx, c.SeatID)
		if err != nil {
			return Checkout{}, err
		}
		req.Items = append(req.Items, payment.LineItem{Name: "Seat " + seat.Label(), AmountCents: seat.PriceCents})
	}

	sess, err := s.gateway.CreateCheckout(ctx, req)
	if err != nil {
		return Checkout{}, fmt.Errorf("open checkout: %w", err)
	}
	p := model.Payment{
		ReservationID: r.ID,
		AmountCents:   req.Total(),
		Currency:      s.currency,
		SessionID:     sess.SessionID,
		Status:        model.PaymentPending,
	}
	if err := s.store.UpsertPayment(ctx, &p); err != nil {
		return Checkout{}, err
	}
	s.log.Info("checkout opened", zap.Uint64("reservation_id", r.ID), zap.String("session_id", sess.SessionID),
		zap.Int64("amount_cents", p.AmountCents))
	return Checkout{ReservationID: r.ID, SessionID: sess.SessionID, URL: sess.URL, AmountCents: p.AmountCents, Currency: s.currency}, nil
}

// HandleEvent applies one gateway event.  Events whose payment cannot be
// found are logged and dropped, since the gateway redelivers and reorders
// notifications.  Only store failures are returned.
func (s *PaymentService) HandleEvent(ctx context.Context, ev payment.Event) error {
	log := s.log.With(zap.String("event_id", ev.ID), zap.String("event_type", ev.Type),
		zap.String("session_id", ev.SessionID), zap.String("payment_intent_id", ev.PaymentIntentID))

	switch ev.Kind {
	case payment.EventIgnored:
		log.Debug("payment event ignored")
		return nil
	case payment.EventCheckoutCompleted:
		p, ok, err := s.lookupPaid(ctx, log, ev)
		if err != nil || !ok {
			return s.miss(log, err)
		}
		if ev.PaymentIntentID != "" && p.PaymentIntentID != ev.PaymentIntentID {
			if err := s.store.SetPaymentIntent(ctx, p.ID, ev.PaymentIntentID); err != nil {
				return err
			}
		}
		if !ev.Paid {
			log.Info("checkout completed, payment still processing", zap.Uint64("reservation_id", p.ReservationID))
			return nil
		}
		return s.succeed(ctx, log, p)
	case payment.EventPaymentSucceeded:
		p, ok, err := s.lookupPaid(ctx, log, ev)
		if err != nil || !ok {
			return s.miss(log, err)
		}
		return s.succeed(ctx, log, p)
	case payment.EventPaymentFailed:
		p, ok, err := s.lookup(ctx, ev.PaymentIntentID, ev.SessionID)
		if err != nil || !ok {
			return s.miss(log, err)
		}
		return s.fail(ctx, log, p, model.PaymentFailed)
	case payment.EventPaymentCanceled:
		p, ok, err := s.lookup(ctx, ev.PaymentIntentID, ev.SessionID)
		if err != nil || !ok {
			return s.miss(log, err)
		}
		return s.fail(ctx, log, p, model.PaymentCancelled)
	default:
		log.Warn("unknown payment event kind", zap.Stringer("kind", ev.Kind))
		return nil
	}
}

// lookup finds the payment by intent id first and falls back to the
// session id.  ok is false when neither matches.
func (s *PaymentService) lookup(ctx context.Context, intentID, sessionID string) (model.Payment, bool, error) {
	if intentID != "" {
		p, err := s.store.GetPaymentByIntent(ctx, intentID)
		if err == nil {
			return p, true, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return model.Payment{}, false, err
		}
	}
	if sessionID != "" {
		p, err := s.store.GetPaymentBySession(ctx, sessionID)
		if err == nil {
			return p, true, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return model.Payment{}, false, err
		}
	}
	return model.Payment{}, false, nil
}

// lookupPaid is lookup for events that report money taken.  When neither
// reference matches, which happens after a newer checkout replaced the
// session the customer paid in, it falls back to the reservation named in
// the event metadata.  Failure events never take this path, so a stale
// session expiring cannot cancel a reservation being paid elsewhere.
func (s *PaymentService) lookupPaid(ctx context.Context, log *zap.Logger, ev payment.Event) (model.Payment, bool, error) {
	intentID := ev.PaymentIntentID
	if ev.Kind == payment.EventCheckoutCompleted {
		intentID = ""
	}
	p, ok, err := s.lookup(ctx, intentID, ev.SessionID)
	if err != nil || ok || ev.ReservationID == 0 {
		return p, ok, err
	}
	p, err = s.store.GetPaymentByReservation(ctx, ev.ReservationID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return model.Payment{}, false, nil
	case err != nil:
		return model.Payment{}, false, err
	}
	log.Info("payment matched by reservation reference", zap.Uint64("reservation_id", p.ReservationID),
		zap.String("current_session_id", p.SessionID))
	if ev.PaymentIntentID != "" && p.PaymentIntentID != ev.PaymentIntentID {
		if err := s.store.SetPaymentIntent(ctx, p.ID, ev.PaymentIntentID); err != nil {
			return model.Payment{}, false, err
		}
		p.PaymentIntentID = ev.PaymentIntentID
	}
	return p, true, nil
}

func (s *PaymentService) miss(log *zap.Logger, err error) error {
	if err != nil {
		return err
	}
	log.Warn("payment event references no known payment")
	return nil
}

// succeed marks the payment COMPLETED and the reservation CONFIRMED.  A
// repeated success is a no-op, and a success for a payment that was
// already closed (expiry, failure) is logged and dropped: a cancelled
// reservation is never reopened.
func (s *PaymentService) succeed(ctx context.Context, log *zap.Logger, p model.Payment) error {
	var confirmed bool
	var ev queue.ReservationConfirmedEvent
	err := s.store.InTx(ctx, func(q repository.Queries) error {
		now := s.now()
		moved, err := q.TransitionPayment(ctx, p.ID, model.PaymentPending, model.PaymentCompleted, now)
		if err != nil {
			return err
		}
		if !moved {
			cur, err := q.GetPaymentByReservation(ctx, p.ReservationID)
			if err != nil {
				return err
			}
			if cur.Status == model.PaymentCompleted {
				log.Info("duplicate payment success ignored", zap.Uint64("reservation_id", p.ReservationID))
				return nil
			}
			log.Warn("payment success after payment was closed", zap.Uint64("reservation_id", p.ReservationID),
				zap.String("payment_status", string(cur.Status)))
			return nil
		}
		confirmed, err = q.TransitionReservation(ctx, p.ReservationID, model.ReservationPending, model.ReservationConfirmed, now)
		if err != nil {
			return err
		}
		if !confirmed {
			log.Warn("payment completed for a reservation that is no longer pending",
				zap.Uint64("reservation_id", p.ReservationID))
			return nil
		}
		ev, err = confirmationEvent(ctx, q, p, now)
		return err
	})
	if err != nil {
		return err
	}
	if confirmed {
		log.Info("reservation confirmed", zap.Uint64("reservation_id", p.ReservationID))
		s.notify(ctx, ev)
	}
	return nil
}

// fail closes the payment with status and cancels the reservation if it
// is still PENDING.
func (s *PaymentService) fail(ctx context.Context, log *zap.Logger, p model.Payment, status model.PaymentStatus) error {
	var cancelled bool
	err := s.store.InTx(ctx, func(q repository.Queries) error {
		now := s.now()
		if _, err := q.TransitionPayment(ctx, p.ID, model.PaymentPending, status, now); err != nil {
			return err
		}
		var err error
		cancelled, err = q.TransitionReservation(ctx, p.ReservationID, model.ReservationPending, model.ReservationCancelled, now)
		return err
	})
	if err != nil {
		return err
	}
	if cancelled {
		log.Info("reservation cancelled by payment", zap.Uint64("reservation_id", p.ReservationID),
			zap.String("payment_status", string(status)))
	} else {
		log.Info("payment closed, reservation already terminal", zap.Uint64("reservation_id", p.ReservationID))
	}
	return nil
}

func (s *PaymentService) notify(ctx context.Context, ev queue.ReservationConfirmedEvent) {
	if s.notifier == nil {
		return
	}
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.notifier.NotifyConfirmed(nctx, ev); err != nil {
		s.log.Warn("confirmation notification failed", zap.Uint64("reservation_id", ev.ReservationID), zap.Error(err))
	}
}

// confirmationEvent gathers what the confirmation mail needs.
func confirmationEvent(ctx context.Context, q repository.Queries, p model.Payment, at time.Time) (queue.ReservationConfirmedEvent, error) {
	r, err := q.GetReservation(ctx, p.ReservationID)
	if err != nil {
		return queue.ReservationConfirmedEvent{}, err
	}
	user, err := q.GetUser(ctx, r.UserID)
	if err != nil {
		return queue.ReservationConfirmedEvent{}, err
	}
	scr, err := q.GetScreening(ctx, r.ScreeningID)
	if err != nil {
		return queue.ReservationConfirmedEvent{}, err
	}
	movie, err := q.GetMovie(ctx, scr.MovieID)
	if err != nil {
		return queue.ReservationConfirmedEvent{}, err
	}
	room, err := q.GetRoom(ctx, scr.RoomID)
	if err != nil {
		return queue.ReservationConfirmedEvent{}, err
	}
	ev := queue.ReservationConfirmedEvent{
		ReservationID:    r.ID,
		UserID:           user.ID,
		UserEmail:        user.Email,
		ScreeningID:      scr.ID,
		RoomNumber:       room.Number,
		MovieTitle:       movie.Title,
		StartsAt:         scr.StartTime.UTC().Format(time.RFC3339),
		EndsAt:           scr.EndTime.UTC().Format(time.RFC3339),
		TotalAmountCents: p.AmountCents,
		Currency:         p.Currency,
		ConfirmedAt:      at.UTC().Format(time.RFC3339),
	}
	for _, c := range r.Claims {
		seat, err := q.GetSeat(ctx, c.SeatID)
		if err != nil {
			return queue.ReservationConfirmedEvent{}, err
		}
		ev.Seats = append(ev.Seats, queue.TicketSeat{
			SeatID:     seat.ID,
			Label:      seat.Label(),
			PriceCents: seat.PriceCents,
			Code:       fmt.Sprintf("R%d-S%d-C%d", r.ID, seat.ID, c.ID),
		})
	}
	return ev, nil
}
