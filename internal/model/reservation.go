package model

import "time"

// ReservationStatus is the lifecycle state of a reservation.  PENDING
// is the only non-terminal state.
type ReservationStatus string

const (
    ReservationPending   ReservationStatus = "PENDING"
    ReservationConfirmed ReservationStatus = "CONFIRMED"
    ReservationCancelled ReservationStatus = "CANCELLED"
)

// Terminal reports whether no further transition may leave the status.
func (s ReservationStatus) Terminal() bool {
    return s == ReservationConfirmed || s == ReservationCancelled
}

// Reservation records a user's booking for a specific screening.
// Cancellation only changes the status; claims stay as history.
//
// Fields:
//  ID          – primary key identifier.
//  UserID      – user who made the reservation.
//  ScreeningID – screening being reserved.
//  Status      – PENDING, CONFIRMED or CANCELLED.
//  CreatedAt   – creation timestamp, used by the expiration sweep.
//  UpdatedAt   – last status change.
//  Claims      – seats held by the reservation, ordered by claim id.
type Reservation struct {
    ID          uint64            // reservations.id
    UserID      uint64            // reservations.user_id
    ScreeningID uint64            // reservations.screening_id
    Status      ReservationStatus // reservations.status
    CreatedAt   time.Time         // reservations.created_at
    UpdatedAt   time.Time         // reservations.updated_at
    Claims      []SeatClaim
}

// SeatIDs returns the ids of the claimed seats in claim order.
func (r Reservation) SeatIDs() []uint64 {
    ids := make([]uint64, 0, len(r.Claims))
    for _, c := range r.Claims {
        ids = append(ids, c.SeatID)
    }
    return ids
}

// SeatClaim links a reservation to one seat.  The claim is active while
// its reservation is not CANCELLED.
type SeatClaim struct {
    ID            uint64 // seat_claims.id
    ReservationID uint64 // seat_claims.reservation_id
    SeatID        uint64 // seat_claims.seat_id
}
