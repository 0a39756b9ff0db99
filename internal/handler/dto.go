package handler

import (
	"time"

	"github.com/iliyamo/cinema-booking-engine/internal/model"
	"github.com/iliyamo/cinema-booking-engine/internal/service"
)

// Response bodies.  Domain structs carry no JSON tags, so every payload
// is mapped here.

type userResp struct {
	ID    uint64 `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type tokenResp struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

type authResp struct {
	User   userResp  `json:"user"`
	Access tokenResp `json:"access"`
}

type roomResp struct {
	ID       uint64 `json:"id"`
	Number   int    `json:"number"`
	Rows     int    `json:"rows"`
	Columns  int    `json:"columns"`
	Capacity int    `json:"capacity"`
}

func toRoom(r model.Room) roomResp {
	return roomResp{ID: r.ID, Number: r.Number, Rows: r.Rows, Columns: r.Columns, Capacity: r.Capacity()}
}

type movieResp struct {
	ID              uint64 `json:"id"`
	Title           string `json:"title"`
	DurationMinutes int    `json:"duration_minutes"`
}

func toMovie(m model.Movie) movieResp {
	return movieResp{ID: m.ID, Title: m.Title, DurationMinutes: m.DurationMinutes}
}

type attrsResp struct {
	Format    string `json:"format,omitempty"`
	Language  string `json:"language,omitempty"`
	Subtitles string `json:"subtitles,omitempty"`
	Is3D      bool   `json:"is_3d"`
}

func toAttrs(a model.ScreeningAttrs) attrsResp {
	return attrsResp{Format: a.Format, Language: a.Language, Subtitles: a.Subtitles, Is3D: a.Is3D}
}

type screeningResp struct {
	ID        uint64    `json:"id"`
	MovieID   uint64    `json:"movie_id"`
	RoomID    uint64    `json:"room_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Attrs     attrsResp `json:"attributes"`
}

func toScreening(s model.Screening) screeningResp {
	return screeningResp{ID: s.ID, MovieID: s.MovieID, RoomID: s.RoomID,
		StartTime: s.StartTime.UTC(), EndTime: s.EndTime.UTC(), Attrs: toAttrs(s.Attrs)}
}

func toScreenings(list []model.Screening) []screeningResp {
	out := make([]screeningResp, 0, len(list))
	for _, s := range list {
		out = append(out, toScreening(s))
	}
	return out
}

type slotResp struct {
	ScreeningID    uint64    `json:"screening_id"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
	RoomID         uint64    `json:"room_id"`
	RoomNumber     int       `json:"room_number"`
	AvailableSeats int       `json:"available_seats"`
	Attrs          attrsResp `json:"attributes"`
}

func toSlots(list []service.TimeSlot) []slotResp {
	out := make([]slotResp, 0, len(list))
	for _, s := range list {
		out = append(out, slotResp{ScreeningID: s.ScreeningID, StartTime: s.StartTime.UTC(), EndTime: s.EndTime.UTC(),
			RoomID: s.RoomID, RoomNumber: s.RoomNumber, AvailableSeats: s.AvailableSeats, Attrs: toAttrs(s.Attrs)})
	}
	return out
}

type dayResp struct {
	Date  string     `json:"date"`
	Slots []slotResp `json:"slots"`
}

type seatResp struct {
	ID         uint64 `json:"id"`
	Label      string `json:"label"`
	Row        string `json:"row"`
	Column     int    `json:"column"`
	PriceCents int64  `json:"price_cents"`
	State      string `json:"state,omitempty"`
}

func toSeatMap(list []service.SeatStatus) []seatResp {
	out := make([]seatResp, 0, len(list))
	for _, s := range list {
		out = append(out, seatResp{ID: s.Seat.ID, Label: s.Seat.Label(), Row: s.Seat.RowLabel,
			Column: s.Seat.Column, PriceCents: s.Seat.PriceCents, State: string(s.State)})
	}
	return out
}

type reservationResp struct {
	ID          uint64    `json:"id"`
	UserID      uint64    `json:"user_id"`
	ScreeningID uint64    `json:"screening_id"`
	Status      string    `json:"status"`
	SeatIDs     []uint64  `json:"seat_ids"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toReservation(r model.Reservation) reservationResp {
	return reservationResp{ID: r.ID, UserID: r.UserID, ScreeningID: r.ScreeningID, Status: string(r.Status),
		SeatIDs: r.SeatIDs(), CreatedAt: r.CreatedAt.UTC(), UpdatedAt: r.UpdatedAt.UTC()}
}

func toReservations(list []model.Reservation) []reservationResp {
	out := make([]reservationResp, 0, len(list))
	for _, r := range list {
		out = append(out, toReservation(r))
	}
	return out
}

type checkoutResp struct {
	ReservationID uint64 `json:"reservation_id"`
	SessionID     string `json:"session_id"`
	URL           string `json:"url"`
	AmountCents   int64  `json:"amount_cents"`
	Currency      string `json:"currency"`
}
