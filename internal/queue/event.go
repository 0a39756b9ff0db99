// Package queue carries booking events over RabbitMQ.
package queue

// TicketSeat is one seat of a confirmed reservation.  Code is printed on
// the ticket and encoded in its QR image.
type TicketSeat struct {
    SeatID     uint64 `json:"seat_id"`
    Label      string `json:"label"`
    PriceCents int64  `json:"price_cents"`
    Code       string `json:"code"`
}

// ReservationConfirmedEvent is published once a reservation reaches
// CONFIRMED.  It holds everything the mailer needs so that consumers never
// query the primary database.
type ReservationConfirmedEvent struct {
    ReservationID    uint64       `json:"reservation_id"`
    UserID           uint64       `json:"user_id"`
    UserEmail        string       `json:"user_email"`
    ScreeningID      uint64       `json:"screening_id"`
    RoomNumber       int          `json:"room_number"`
    MovieTitle       string       `json:"movie_title"`
    StartsAt         string       `json:"starts_at"`
    EndsAt           string       `json:"ends_at"`
    Seats            []TicketSeat `json:"seats"`
    TotalAmountCents int64        `json:"total_amount_cents"`
    Currency         string       `json:"currency"`
    ConfirmedAt      string       `json:"confirmed_at"`
}

// SeatLabels returns the printable labels in ticket order.
func (e ReservationConfirmedEvent) SeatLabels() []string {
    out := make([]string, 0, len(e.Seats))
    for _, s := range e.Seats {
        out = append(out, s.Label)
    }
    return out
}
