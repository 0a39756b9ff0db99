package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-booking-engine/internal/apperr"
	"github.com/iliyamo/cinema-booking-engine/internal/model"
	"github.com/iliyamo/cinema-booking-engine/internal/payment"
)

func (f *fixture) checkout(t *testing.T, b booking, seats ...model.Seat) (model.Reservation, Checkout) {
	t.Helper()
	r, err := f.reservations.Create(f.ctx, b.user.ID, b.screening.ID, seatIDs(seats...))
	require.NoError(t, err)
	co, err := f.payments.StartCheckout(f.ctx, r.ID, "http://localhost/ok", "http://localhost/cancel")
	require.NoError(t, err)
	return r, co
}

func (f *fixture) status(t *testing.T, reservationID uint64) (model.ReservationStatus, model.PaymentStatus) {
	t.Helper()
	r, err := f.reservations.Get(f.ctx, reservationID)
	require.NoError(t, err)
	p, err := f.store.GetPaymentByReservation(f.ctx, reservationID)
	require.NoError(t, err)
	return r.Status, p.Status
}

func TestStartCheckoutSumsSeatPrices(t *testing.T) {
	f := newFixture(t)
	b := f.booking(t)
	r, co := f.checkout(t, b, b.seats[:3]...)

	assert.EqualValues(t, 3*850, co.AmountCents)
	assert.Equal(t, "eur", co.Currency)
	assert.Contains(t, co.URL, "session_id="+co.SessionID)
	require.Len(t, f.gateway.Requests, 1)
	assert.Equal(t, "ana@example.com", f.gateway.Requests[0].CustomerEmail)
	assert.Equal(t, "Seat A1", f.gateway.Requests[0].Items[0].Name)

	// A second checkout replaces the session reference.
	co2, err := f.payments.StartCheckout(f.ctx, r.ID, "http://localhost/ok", "http://localhost/cancel")
	require.NoError(t, err)
	assert.NotEqual(t, co.SessionID, co2.SessionID)
	p, err := f.store.GetPaymentByReservation(f.ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, co2.SessionID, p.SessionID)
}

func TestPaymentInReplacedSessionStillConfirms(t *testing.T) {
	f := newFixture(t)
	b := f.booking(t)
	r, first := f.checkout(t, b, b.seats[0])
	second, err := f.payments.StartCheckout(f.ctx, r.ID, "http://localhost/ok", "http://localhost/cancel")
	require.NoError(t, err)
	require.NotEqual(t, first.SessionID, second.SessionID)

	// The customer pays in the first session.
	require.NoError(t, f.payments.HandleEvent(f.ctx, payment.Event{
		Kind: payment.EventCheckoutCompleted, SessionID: first.SessionID, PaymentIntentID: "pi_1",
		ReservationID: r.ID, Paid: true,
	}))
	require.NoError(t, f.payments.HandleEvent(f.ctx, payment.Event{
		Kind: payment.EventPaymentSucceeded, PaymentIntentID: "pi_1", ReservationID: r.ID,
	}))

	rs, ps := f.status(t, r.ID)
	assert.Equal(t, model.ReservationConfirmed, rs)
	assert.Equal(t, model.PaymentCompleted, ps)
	p, err := f.store.GetPaymentByIntent(f.ctx, "pi_1")
	require.NoError(t, err)
	assert.Equal(t, r.ID, p.ReservationID)
	assert.Len(t, f.notifications(), 1)
}

func TestIntentSuccessMatchedByReservationReference(t *testing.T) {
	f := newFixture(t)
	b := f.booking(t)
	r, _ := f.checkout(t, b, b.seats[0])

	require.NoError(t, f.payments.HandleEvent(f.ctx, payment.Event{
		Kind: payment.EventPaymentSucceeded, PaymentIntentID: "pi_9", ReservationID: r.ID,
	}))
	rs, ps := f.status(t, r.ID)
	assert.Equal(t, model.ReservationConfirmed, rs)
	assert.Equal(t, model.PaymentCompleted, ps)
}

func TestStaleSessionExpiryDoesNotCancel(t *testing.T) {
	f := newFixture(t)
	b := f.booking(t)
	r, first := f.checkout(t, b, b.seats[0])
	_, err := f.payments.StartCheckout(f.ctx, r.ID, "http://localhost/ok", "http://localhost/cancel")
	require.NoError(t, err)

	require.NoError(t, f.payments.HandleEvent(f.ctx, payment.Event{
		Kind: payment.EventPaymentCanceled, SessionID: first.SessionID, ReservationID: r.ID,
	}))
	rs, ps := f.status(t, r.ID)
	assert.Equal(t, model.ReservationPending, rs)
	assert.Equal(t, model.PaymentPending, ps)
}

func TestStartCheckoutRules(t *testing.T) {
	f := newFixture(t)
	b := f.booking(t)

	_, err := f.payments.StartCheckout(f.ctx, 404, "", "")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	r, err := f.reservations.Create(f.ctx, b.user.ID, b.screening.ID, seatIDs(b.seats[0]))
	require.NoError(t, err)
	_, err = f.reservations.Cancel(f.ctx, r.ID)
	require.NoError(t, err)
	_, err = f.payments.StartCheckout(f.ctx, r.ID, "", "")
	assert.Equal(t, apperr.CodeReservationNotPending, apperr.CodeOf(err))

	r2, err := f.reservations.Create(f.ctx, b.user.ID, b.screening.ID, seatIDs(b.seats[1]))
	require.NoError(t, err)
	f.gateway.Fail = errors.New("gateway down")
	_, err = f.payments.StartCheckout(f.ctx, r2.ID, "", "")
	assert.ErrorContains(t, err, "gateway down")
}

func TestCheckoutCompletedConfirms(t *testing.T) {
	f := newFixture(t)
	b := f.booking(t)
	r, co := f.checkout(t, b, b.seats[0], b.seats[1])

	err := f.payments.HandleEvent(f.ctx, payment.Event{
		Kind: payment.EventCheckoutCompleted, SessionID: co.SessionID, PaymentIntentID: "pi_1", Paid: true,
	})
	require.NoError(t, err)

	rs, ps := f.status(t, r.ID)
	assert.Equal(t, model.ReservationConfirmed, rs)
	assert.Equal(t, model.PaymentCompleted, ps)

	p, err := f.store.GetPaymentByIntent(f.ctx, "pi_1")
	require.NoError(t, err)
	assert.Equal(t, r.ID, p.ReservationID)

	sent := f.notifications()
	require.Len(t, sent, 1)
	assert.Equal(t, r.ID, sent[0].ReservationID)
	assert.Equal(t, "ana@example.com", sent[0].UserEmail)
	assert.Equal(t, []string{"A1", "A2"}, sent[0].SeatLabels())
	assert.EqualValues(t, 1700, sent[0].TotalAmountCents)
}

func TestDuplicateSuccessIsNoOp(t *testing.T) {
	f := newFixture(t)
	b := f.booking(t)
	r, co := f.checkout(t, b, b.seats[0])

	completed := payment.Event{Kind: payment.EventCheckoutCompleted, SessionID: co.SessionID, PaymentIntentID: "pi_1", Paid: true}
	succeeded := payment.Event{Kind: payment.EventPaymentSucceeded, PaymentIntentID: "pi_1"}
	require.NoError(t, f.payments.HandleEvent(f.ctx, completed))
	before, err := f.reservations.Get(f.ctx, r.ID)
	require.NoError(t, err)

	require.NoError(t, f.payments.HandleEvent(f.ctx, succeeded))
	require.NoError(t, f.payments.HandleEvent(f.ctx, completed))

	after, err := f.reservations.Get(f.ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Len(t, f.notifications(), 1)

	// A late failure cannot reopen or cancel a confirmed reservation.
	require.NoError(t, f.payments.HandleEvent(f.ctx, payment.Event{Kind: payment.EventPaymentFailed, PaymentIntentID: "pi_1"}))
	rs, ps := f.status(t, r.ID)
	assert.Equal(t, model.ReservationConfirmed, rs)
	assert.Equal(t, model.PaymentCompleted, ps)
}

func TestUnpaidCheckoutWaitsForAsyncSuccess(t *testing.T) {
	f := newFixture(t)
	b := f.booking(t)
	r, co := f.checkout(t, b, b.seats[0])

	require.NoError(t, f.payments.HandleEvent(f.ctx, payment.Event{
		Kind: payment.EventCheckoutCompleted, SessionID: co.SessionID, PaymentIntentID: "pi_async", Paid: false,
	}))
	rs, ps := f.status(t, r.ID)
	assert.Equal(t, model.ReservationPending, rs)
	assert.Equal(t, model.PaymentPending, ps)

	require.NoError(t, f.payments.HandleEvent(f.ctx, payment.Event{Kind: payment.EventPaymentSucceeded, PaymentIntentID: "pi_async"}))
	rs, _ = f.status(t, r.ID)
	assert.Equal(t, model.ReservationConfirmed, rs)
}

func TestPaymentFailureReleasesSeats(t *testing.T) {
	for _, tc := range []struct {
		kind payment.EventKind
		want model.PaymentStatus
	}{
		{payment.EventPaymentFailed, model.PaymentFailed},
		{payment.EventPaymentCanceled, model.PaymentCancelled},
	} {
		t.Run(tc.kind.String(), func(t *testing.T) {
			f := newFixture(t)
			b := f.booking(t)
			r, co := f.checkout(t, b, b.seats[0])

			require.NoError(t, f.payments.HandleEvent(f.ctx, payment.Event{Kind: tc.kind, SessionID: co.SessionID}))
			rs, ps := f.status(t, r.ID)
			assert.Equal(t, model.ReservationCancelled, rs)
			assert.Equal(t, tc.want, ps)

			avail, err := f.screenings.AvailableSeats(f.ctx, b.screening.ID)
			require.NoError(t, err)
			assert.Equal(t, 20, avail)
			assert.Empty(t, f.notifications())
		})
	}
}

func TestUnknownReferencesAreNotErrors(t *testing.T) {
	f := newFixture(t)
	for _, ev := range []payment.Event{
		{Kind: payment.EventCheckoutCompleted, SessionID: "cs_missing", Paid: true},
		{Kind: payment.EventPaymentSucceeded, PaymentIntentID: "pi_missing"},
		{Kind: payment.EventPaymentFailed},
		{Kind: payment.EventIgnored, Type: "customer.created"},
	} {
		assert.NoError(t, f.payments.HandleEvent(f.ctx, ev))
	}
}

func TestSuccessAfterExpiryKeepsReservationCancelled(t *testing.T) {
	f := newFixture(t)
	b := f.booking(t)
	r, co := f.checkout(t, b, b.seats[0])

	changed, err := f.reservations.Expire(f.ctx, r.ID)
	require.NoError(t, err)
	require.True(t, changed)

	require.NoError(t, f.payments.HandleEvent(f.ctx, payment.Event{Kind: payment.EventCheckoutCompleted, SessionID: co.SessionID, Paid: true}))
	rs, _ := f.status(t, r.ID)
	assert.Equal(t, model.ReservationCancelled, rs)
	assert.Empty(t, f.notifications())
}

func TestNotificationFailureKeepsConfirmation(t *testing.T) {
	f := newFixture(t)
	f.notifyErr = errors.New("broker down")
	b := f.booking(t)
	r, co := f.checkout(t, b, b.seats[0])

	require.NoError(t, f.payments.HandleEvent(f.ctx, payment.Event{Kind: payment.EventCheckoutCompleted, SessionID: co.SessionID, Paid: true}))
	rs, _ := f.status(t, r.ID)
	assert.Equal(t, model.ReservationConfirmed, rs)
	assert.Len(t, f.notifications(), 1)
}
