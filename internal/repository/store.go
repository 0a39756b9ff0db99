package repository

import (
	"context"
	"time"

	"github.com/iliyamo/cinema-booking-engine/internal/model"
)

// ScreeningFilter narrows ListScreenings.  Zero values are ignored.  From
// and To bound the start time and are both inclusive.
type ScreeningFilter struct {
	MovieID uint64
	RoomID  uint64
	From    time.Time
	To      time.Time
}

// ReservationFilter narrows ListReservations.  Zero values are ignored.
type ReservationFilter struct {
	UserID      uint64
	ScreeningID uint64
}

// Queries is the full set of data operations used by the services.
// Every operation is keyed by id; relationships are id references and
// never in-memory back pointers.
type Queries interface {
	CreateUser(ctx context.Context, u *model.User) error
	GetUser(ctx context.Context, id uint64) (model.User, error)
	GetUserByEmail(ctx context.Context, email string) (model.User, error)

	CreateMovie(ctx context.Context, m *model.Movie) error
	GetMovie(ctx context.Context, id uint64) (model.Movie, error)

	CreateRoom(ctx context.Context, r *model.Room) error
	GetRoom(ctx context.Context, id uint64) (model.Room, error)
	GetRoomByNumber(ctx context.Context, number int) (model.Room, error)
	ListRooms(ctx context.Context) ([]model.Room, error)
	// MaxRoomNumber returns 0 when no rooms exist.
	MaxRoomNumber(ctx context.Context) (int, error)
	DeleteRoom(ctx context.Context, id uint64) error
	// LockRoom serialises schedule changes for one room until the
	// surrounding transaction ends.
	LockRoom(ctx context.Context, id uint64) error

	CreateSeats(ctx context.Context, seats []model.Seat) error
	GetSeat(ctx context.Context, id uint64) (model.Seat, error)
	ListSeatsByRoom(ctx context.Context, roomID uint64) ([]model.Seat, error)

	CreateScreening(ctx context.Context, s *model.Screening) error
	UpdateScreening(ctx context.Context, s model.Screening) error
	DeleteScreening(ctx context.Context, id uint64) error
	GetScreening(ctx context.Context, id uint64) (model.Screening, error)
	ListScreenings(ctx context.Context, f ScreeningFilter) ([]model.Screening, error)
	// FindOverlapping returns the screenings in roomID whose interval
	// overlaps [start, end), ignoring excludeID when it is non-zero.
	FindOverlapping(ctx context.Context, roomID uint64, start, end time.Time, excludeID uint64) ([]model.Screening, error)
	// NextScreeningFrom returns the earliest screening in roomID that
	// starts at or after from, ignoring excludeID.  ErrNotFound when none.
	NextScreeningFrom(ctx context.Context, roomID uint64, from time.Time, excludeID uint64) (model.Screening, error)
	// LockScreening serialises seat claims for one screening until the
	// surrounding transaction ends.
	LockScreening(ctx context.Context, id uint64) error

	// CreateReservation inserts the reservation and one claim per entry
	// of r.Claims, filling in the generated ids.
	CreateReservation(ctx context.Context, r *model.Reservation) error
	GetReservation(ctx context.Context, id uint64) (model.Reservation, error)
	ListReservations(ctx context.Context, f ReservationFilter) ([]model.Reservation, error)
	AddClaims(ctx context.Context, reservationID uint64, seatIDs []uint64) error
	RemoveClaims(ctx context.Context, reservationID uint64, seatIDs []uint64) (int64, error)
	ActiveClaimExists(ctx context.Context, screeningID, seatID uint64) (bool, error)
	ActiveClaimedSeats(ctx context.Context, screeningID uint64) ([]uint64, error)
	CountActiveClaims(ctx context.Context, screeningID uint64) (int, error)
	CountReservationsForScreening(ctx context.Context, screeningID uint64) (int, error)
	// TransitionReservation sets status to `to` only when the current
	// status equals `from`.  It reports whether a row changed.
	TransitionReservation(ctx context.Context, id uint64, from, to model.ReservationStatus, at time.Time) (bool, error)
	// ListStalePending returns PENDING reservations created before
	// cutoff, oldest first, without their claims.
	ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]model.Reservation, error)

	// UpsertPayment creates or refreshes the single payment row of a
	// reservation and fills in p.ID.
	UpsertPayment(ctx context.Context, p *model.Payment) error
	GetPaymentByReservation(ctx context.Context, reservationID uint64) (model.Payment, error)
	GetPaymentBySession(ctx context.Context, sessionID string) (model.Payment, error)
	GetPaymentByIntent(ctx context.Context, intentID string) (model.Payment, error)
	SetPaymentIntent(ctx context.Context, paymentID uint64, intentID string) error
	// TransitionPayment is the conditional update counterpart of
	// TransitionReservation.
	TransitionPayment(ctx context.Context, id uint64, from, to model.PaymentStatus, at time.Time) (bool, error)
}

// Store is Queries plus transactions.  Work passed to InTx sees its own
// writes and is committed only when fn returns nil.
type Store interface {
	Queries
	InTx(ctx context.Context, fn func(q Queries) error) error
}
