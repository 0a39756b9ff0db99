package model

import (
    "strconv"
    "time"
)

// Seat describes a physical seat in a room.  Seats are uniquely
// identified by their room, row label and column number and are
// never moved to another room.
//
// Fields:
//  ID         – primary key identifier.
//  RoomID     – room to which this seat belongs.
//  RowLabel   – letter sequence designating the row (A, B, ..., AA).
//  Column     – number of the seat within the row, starting at 1.
//  PriceCents – unit price of the seat in cents.
//  CreatedAt  – creation timestamp.
type Seat struct {
    ID         uint64    // seats.id
    RoomID     uint64    // seats.room_id
    RowLabel   string    // seats.row_label
    Column     int       // seats.column_number
    PriceCents int64     // seats.price_cents
    CreatedAt  time.Time // seats.created_at
}

// Label returns the printable seat name, e.g. "C3".
func (s Seat) Label() string { return s.RowLabel + strconv.Itoa(s.Column) }

// SeatState is the derived availability of a seat for one screening.
type SeatState string

const (
    SeatFree     SeatState = "FREE"
    SeatReserved SeatState = "RESERVED"
)
