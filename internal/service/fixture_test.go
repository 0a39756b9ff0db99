package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-booking-engine/internal/model"
	"github.com/iliyamo/cinema-booking-engine/internal/payment"
	"github.com/iliyamo/cinema-booking-engine/internal/queue"
	"github.com/iliyamo/cinema-booking-engine/internal/repository"
)

// t0 is the fixture's "now": the morning of a screening day.
var t0 = time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

func at(hour, min int) time.Time { return time.Date(2026, 5, 1, hour, min, 0, 0, time.UTC) }

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

type fixture struct {
	ctx          context.Context
	store        *repository.MemoryStore
	clock        *testClock
	rooms        *RoomService
	movies       *MovieService
	screenings   *ScreeningService
	reservations *ReservationService
	payments     *PaymentService
	gateway      *payment.FakeGateway

	mu       sync.Mutex
	notified []queue.ReservationConfirmedEvent
	notifyErr error
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		ctx:     context.Background(),
		store:   repository.NewMemoryStore(),
		clock:   &testClock{t: t0},
		gateway: &payment.FakeGateway{},
	}
	opt := WithClock(f.clock.Now)
	f.rooms = NewRoomService(f.store, DefaultRoomPolicy, opt)
	f.movies = NewMovieService(f.store)
	f.screenings = NewScreeningService(f.store, 0, opt)
	f.reservations = NewReservationService(f.store, opt)
	notifier := NotifierFunc(func(_ context.Context, ev queue.ReservationConfirmedEvent) error {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.notified = append(f.notified, ev)
		return f.notifyErr
	})
	f.payments = NewPaymentService(f.store, f.gateway, notifier, "eur", opt)
	return f
}

func (f *fixture) user(t *testing.T, email string) model.User {
	t.Helper()
	u := model.User{Email: email, Role: model.RoleCustomer}
	require.NoError(t, f.store.CreateUser(f.ctx, &u))
	return u
}

func (f *fixture) room(t *testing.T, rows, cols int) (model.Room, []model.Seat) {
	t.Helper()
	r, err := f.rooms.CreateRoom(f.ctx, rows, cols)
	require.NoError(t, err)
	seats, err := f.rooms.ListSeats(f.ctx, r.ID)
	require.NoError(t, err)
	return r, seats
}

func (f *fixture) movie(t *testing.T, minutes int) model.Movie {
	t.Helper()
	m, err := f.movies.CreateMovie(f.ctx, "Arrival", minutes)
	require.NoError(t, err)
	return m
}

func (f *fixture) screening(t *testing.T, movie model.Movie, room model.Room, start time.Time) model.Screening {
	t.Helper()
	s, err := f.screenings.Create(f.ctx, ScreeningInput{MovieID: movie.ID, RoomID: room.ID, StartTime: start})
	require.NoError(t, err)
	return s
}

// booking sets up one 5x4 room with an 18:00 screening of a 120 minute
// movie and a customer.
type booking struct {
	room      model.Room
	seats     []model.Seat
	screening model.Screening
	user      model.User
}

func (f *fixture) booking(t *testing.T) booking {
	t.Helper()
	room, seats := f.room(t, 5, 4)
	scr := f.screening(t, f.movie(t, 120), room, at(18, 0))
	return booking{room: room, seats: seats, screening: scr, user: f.user(t, "ana@example.com")}
}

func (f *fixture) notifications() []queue.ReservationConfirmedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]queue.ReservationConfirmedEvent(nil), f.notified...)
}

func seatIDs(seats ...model.Seat) []uint64 {
	ids := make([]uint64, 0, len(seats))
	for _, s := range seats {
		ids = append(ids, s.ID)
	}
	return ids
}
