package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking-engine/internal/apperr"
	"github.com/iliyamo/cinema-booking-engine/internal/model"
	"github.com/iliyamo/cinema-booking-engine/internal/repository"
)

// DateLayout is the calendar day format used by the date based reads.
const DateLayout = "2006-01-02"

// ScreeningInput carries the schedulable fields of a screening.
type ScreeningInput struct {
	MovieID   uint64
	RoomID    uint64
	StartTime time.Time
	Attrs     model.ScreeningAttrs
}

// ScreeningService schedules screenings and answers the read side of the
// programme, including the derived seat availability.
type ScreeningService struct {
	store repository.Store
	// horizon is the default look-ahead of ListByMovie.
	horizon time.Duration
	deps
}

func NewScreeningService(store repository.Store, horizon time.Duration, opts ...Option) *ScreeningService {
	if horizon <= 0 {
		horizon = 90 * 24 * time.Hour
	}
	return &ScreeningService{store: store, horizon: horizon, deps: newDeps(opts)}
}

// Create validates the slot against the room's programme and stores it.
func (s *ScreeningService) Create(ctx context.Context, in ScreeningInput) (model.Screening, error) {
	var out model.Screening
	err := s.store.InTx(ctx, func(q repository.Queries) error {
		scr, err := s.schedule(ctx, q, in, 0)
		if err != nil {
			return err
		}
		if err := q.CreateScreening(ctx, &scr); err != nil {
			return err
		}
		out = scr
		return nil
	})
	if err != nil {
		return model.Screening{}, err
	}
	s.log.Info("screening scheduled", zap.Uint64("screening_id", out.ID), zap.Uint64("room_id", out.RoomID),
		zap.Time("start", out.StartTime), zap.Time("end", out.EndTime))
	return out, nil
}

// Update re-runs the scheduling rules with the screening itself excluded.
func (s *ScreeningService) Update(ctx context.Context, id uint64, in ScreeningInput) (model.Screening, error) {
	var out model.Screening
	err := s.store.InTx(ctx, func(q repository.Queries) error {
		if err := q.LockScreening(ctx, id); err != nil {
			return notFound(err, "screening", id)
		}
		current, err := q.GetScreening(ctx, id)
		if err != nil {
			return notFound(err, "screening", id)
		}
		// Claims name seats of the current room, so a booked screening stays put.
		if in.RoomID != current.RoomID {
			n, err := q.CountActiveClaims(ctx, id)
			if err != nil {
				return err
			}
			if n > 0 {
				return apperr.Business(apperr.CodeScreeningHasBookings,
					"screening %d has %d claimed seats and cannot change room", id, n)
			}
		}
		scr, err := s.schedule(ctx, q, in, id)
		if err != nil {
			return err
		}
		scr.ID = current.ID
		scr.CreatedAt = current.CreatedAt
		if err := q.UpdateScreening(ctx, scr); err != nil {
			return err
		}
		out = scr
		return nil
	})
	if err != nil {
		return model.Screening{}, err
	}
	s.log.Info("screening rescheduled", zap.Uint64("screening_id", out.ID), zap.Time("start", out.StartTime))
	return out, nil
}

// Delete removes a screening no reservation refers to.
func (s *ScreeningService) Delete(ctx context.Context, id uint64) error {
	return s.store.InTx(ctx, func(q repository.Queries) error {
		if err := q.LockScreening(ctx, id); err != nil {
			return notFound(err, "screening", id)
		}
		n, err := q.CountReservationsForScreening(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return apperr.Business(apperr.CodeScreeningHasBookings, "screening %d has %d reservations", id, n)
		}
		err = q.DeleteScreening(ctx, id)
		if errors.Is(err, repository.ErrConflict) {
			return apperr.Business(apperr.CodeScreeningHasBookings, "screening %d has reservations", id)
		}
		return notFound(err, "screening", id)
	})
}

// schedule builds the screening described by in and checks it against
// the room's other screenings, ignoring excludeID.  The room lock is held
// from here until the caller's transaction ends.
func (s *ScreeningService) schedule(ctx context.Context, q repository.Queries, in ScreeningInput, excludeID uint64) (model.Screening, error) {
	if in.StartTime.IsZero() {
		return model.Screening{}, apperr.Invalid("start time is required")
	}
	movie, err := q.GetMovie(ctx, in.MovieID)
	if err != nil {
		return model.Screening{}, notFound(err, "movie", in.MovieID)
	}
	room, err := q.GetRoom(ctx, in.RoomID)
	if err != nil {
		return model.Screening{}, notFound(err, "room", in.RoomID)
	}
	if now := s.now(); !in.StartTime.After(now) {
		return model.Screening{}, apperr.Business(apperr.CodeScreeningInPast, "start time %s is not in the future", in.StartTime.Format(time.RFC3339))
	}
	if err := q.LockRoom(ctx, room.ID); err != nil {
		return model.Screening{}, err
	}

	start := in.StartTime.UTC()
	end := model.ScreeningEnd(start, movie.Duration())

	clash, err := q.FindOverlapping(ctx, room.ID, start, end, excludeID)
	if err != nil {
		return model.Screening{}, err
	}
	if len(clash) > 0 {
		return model.Screening{}, apperr.Business(apperr.CodeRoomNotAvailable,
			"room %d is not available between %s and %s (overlaps screening %d)",
			room.Number, start.Format(time.RFC3339), end.Format(time.RFC3339), clash[0].ID)
	}

	// The screening before this one must have ended at least one cleanup
	// buffer before start.
	before, err := q.FindOverlapping(ctx, room.ID, start.Add(-model.CleanupBuffer), start, excludeID)
	if err != nil {
		return model.Screening{}, err
	}
	if len(before) > 0 {
		return model.Screening{}, apperr.Business(apperr.CodeRoomNotAvailable,
			"room %d needs %s of cleanup after screening %d", room.Number, model.CleanupBuffer, before[0].ID)
	}

	// The next screening may start no earlier than end + cleanup buffer.
	next, err := q.NextScreeningFrom(ctx, room.ID, end, excludeID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
	case err != nil:
		return model.Screening{}, err
	case next.StartTime.Before(end.Add(model.CleanupBuffer)):
		return model.Screening{}, apperr.Business(apperr.CodeRoomNotAvailable,
			"room %d needs %s of cleanup before screening %d", room.Number, model.CleanupBuffer, next.ID)
	}

	return model.Screening{
		MovieID:   movie.ID,
		RoomID:    room.ID,
		StartTime: start,
		EndTime:   end,
		Attrs:     in.Attrs,
	}, nil
}

func (s *ScreeningService) Get(ctx context.Context, id uint64) (model.Screening, error) {
	scr, err := s.store.GetScreening(ctx, id)
	return scr, notFound(err, "screening", id)
}

// ListByMovie returns the movie's screenings starting within [from, to].
// A zero from means now and a zero to means from plus the horizon.
func (s *ScreeningService) ListByMovie(ctx context.Context, movieID uint64, from, to time.Time) ([]model.Screening, error) {
	if _, err := s.store.GetMovie(ctx, movieID); err != nil {
		return nil, notFound(err, "movie", movieID)
	}
	if from.IsZero() {
		from = s.now()
	}
	if to.IsZero() {
		to = from.Add(s.horizon)
	}
	if to.Before(from) {
		return nil, apperr.Invalid("range end is before its start")
	}
	return s.store.ListScreenings(ctx, repository.ScreeningFilter{MovieID: movieID, From: from, To: to})
}

func (s *ScreeningService) ListByRoom(ctx context.Context, roomID uint64) ([]model.Screening, error) {
	if _, err := s.store.GetRoom(ctx, roomID); err != nil {
		return nil, notFound(err, "room", roomID)
	}
	return s.store.ListScreenings(ctx, repository.ScreeningFilter{RoomID: roomID})
}

// ListByDate returns the screenings starting on the calendar day of date,
// in date's location.
func (s *ScreeningService) ListByDate(ctx context.Context, date time.Time) ([]model.Screening, error) {
	from, to := dayBounds(date)
	return s.store.ListScreenings(ctx, repository.ScreeningFilter{From: from, To: to})
}

// ListByTimeRange returns the screenings starting within [from, to].
func (s *ScreeningService) ListByTimeRange(ctx context.Context, from, to time.Time) ([]model.Screening, error) {
	if from.IsZero() || to.IsZero() {
		return nil, apperr.Invalid("both from and to are required")
	}
	if to.Before(from) {
		return nil, apperr.Invalid("range end is before its start")
	}
	return s.store.ListScreenings(ctx, repository.ScreeningFilter{From: from, To: to})
}

// AvailableDates lists the distinct days (UTC) on which the movie has an
// upcoming screening.
func (s *ScreeningService) AvailableDates(ctx context.Context, movieID uint64) ([]string, error) {
	list, err := s.ListByMovie(ctx, movieID, time.Time{}, time.Time{})
	if err != nil {
		return nil, err
	}
	var dates []string
	seen := map[string]bool{}
	for _, scr := range list {
		d := scr.StartTime.UTC().Format(DateLayout)
		if !seen[d] {
			seen[d] = true
			dates = append(dates, d)
		}
	}
	sort.Strings(dates)
	return dates, nil
}

// TimeSlot is one bookable entry of a movie's programme.
type TimeSlot struct {
	ScreeningID    uint64
	StartTime      time.Time
	EndTime        time.Time
	RoomID         uint64
	RoomNumber     int
	AvailableSeats int
	Attrs          model.ScreeningAttrs
}

// TimeSlots lists the movie's screenings on one day with their current
// availability.
func (s *ScreeningService) TimeSlots(ctx context.Context, movieID uint64, date time.Time) ([]TimeSlot, error) {
	from, to := dayBounds(date)
	list, err := s.ListByMovie(ctx, movieID, from, to)
	if err != nil {
		return nil, err
	}
	return s.slots(ctx, list)
}

// DaySchedule groups time slots by calendar day.
type DaySchedule struct {
	Date  string
	Slots []TimeSlot
}

// ScheduleByMovie returns the movie's programme in [from, to] grouped by
// day, both the days and the slots in chronological order.
func (s *ScreeningService) ScheduleByMovie(ctx context.Context, movieID uint64, from, to time.Time) ([]DaySchedule, error) {
	list, err := s.ListByMovie(ctx, movieID, from, to)
	if err != nil {
		return nil, err
	}
	slots, err := s.slots(ctx, list)
	if err != nil {
		return nil, err
	}
	var out []DaySchedule
	for _, slot := range slots {
		d := slot.StartTime.UTC().Format(DateLayout)
		if n := len(out); n == 0 || out[n-1].Date != d {
			out = append(out, DaySchedule{Date: d})
		}
		out[len(out)-1].Slots = append(out[len(out)-1].Slots, slot)
	}
	return out, nil
}

func (s *ScreeningService) slots(ctx context.Context, list []model.Screening) ([]TimeSlot, error) {
	sort.Slice(list, func(i, j int) bool { return list[i].StartTime.Before(list[j].StartTime) })
	rooms := map[uint64]model.Room{}
	out := make([]TimeSlot, 0, len(list))
	for _, scr := range list {
		room, ok := rooms[scr.RoomID]
		if !ok {
			r, err := s.store.GetRoom(ctx, scr.RoomID)
			if err != nil {
				return nil, fmt.Errorf("room of screening %d: %w", scr.ID, err)
			}
			rooms[scr.RoomID], room = r, r
		}
		claimed, err := s.store.CountActiveClaims(ctx, scr.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, TimeSlot{
			ScreeningID:    scr.ID,
			StartTime:      scr.StartTime,
			EndTime:        scr.EndTime,
			RoomID:         room.ID,
			RoomNumber:     room.Number,
			AvailableSeats: room.Capacity() - claimed,
			Attrs:          scr.Attrs,
		})
	}
	return out, nil
}

// AvailableSeats is the room capacity minus the active claims of the
// screening.  It is computed on every call.
func (s *ScreeningService) AvailableSeats(ctx context.Context, screeningID uint64) (int, error) {
	scr, err := s.Get(ctx, screeningID)
	if err != nil {
		return 0, err
	}
	room, err := s.store.GetRoom(ctx, scr.RoomID)
	if err != nil {
		return 0, err
	}
	claimed, err := s.store.CountActiveClaims(ctx, screeningID)
	if err != nil {
		return 0, err
	}
	return room.Capacity() - claimed, nil
}

// SeatStatus pairs a seat with its derived state for one screening.
type SeatStatus struct {
	Seat  model.Seat
	State model.SeatState
}

// SeatMap returns every seat of the screening's room with its state.
func (s *ScreeningService) SeatMap(ctx context.Context, screeningID uint64) ([]SeatStatus, error) {
	scr, err := s.Get(ctx, screeningID)
	if err != nil {
		return nil, err
	}
	seats, err := s.store.ListSeatsByRoom(ctx, scr.RoomID)
	if err != nil {
		return nil, err
	}
	claimed, err := s.store.ActiveClaimedSeats(ctx, screeningID)
	if err != nil {
		return nil, err
	}
	taken := make(map[uint64]bool, len(claimed))
	for _, id := range claimed {
		taken[id] = true
	}
	out := make([]SeatStatus, 0, len(seats))
	for _, seat := range seats {
		st := model.SeatFree
		if taken[seat.ID] {
			st = model.SeatReserved
		}
		out = append(out, SeatStatus{Seat: seat, State: st})
	}
	return out, nil
}

// dayBounds returns the first and last instant of date's calendar day.
func dayBounds(date time.Time) (time.Time, time.Time) {
	y, m, d := date.Date()
	from := time.Date(y, m, d, 0, 0, 0, 0, date.Location())
	return from, from.AddDate(0, 0, 1).Add(-time.Nanosecond)
}
