package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking-engine/internal/apperr"
	"github.com/iliyamo/cinema-booking-engine/internal/model"
	"github.com/iliyamo/cinema-booking-engine/internal/repository"
)

// RoomPolicy bounds the grid of new rooms and prices their seats.
type RoomPolicy struct {
	MaxRows        int
	MaxColumns     int
	SeatPriceCents int64
}

// DefaultRoomPolicy matches the configuration defaults.
var DefaultRoomPolicy = RoomPolicy{MaxRows: 50, MaxColumns: 50, SeatPriceCents: 850}

// RoomService is the room and seat catalog.
type RoomService struct {
	store  repository.Store
	policy RoomPolicy
	deps
}

func NewRoomService(store repository.Store, policy RoomPolicy, opts ...Option) *RoomService {
	return &RoomService{store: store, policy: policy, deps: newDeps(opts)}
}

// roomNumberAttempts bounds retries when two creators race for the same
// next room number.
const roomNumberAttempts = 3

// CreateRoom validates the grid, assigns the next sequential room number
// and persists the room together with all of its seats.
func (s *RoomService) CreateRoom(ctx context.Context, rows, cols int) (model.Room, error) {
	if rows < 1 || rows > s.policy.MaxRows {
		return model.Room{}, apperr.Invalid("rows must be between 1 and %d", s.policy.MaxRows).WithCode(apperr.CodeRoomSizeOutOfBounds)
	}
	if cols < 1 || cols > s.policy.MaxColumns {
		return model.Room{}, apperr.Invalid("columns must be between 1 and %d", s.policy.MaxColumns).WithCode(apperr.CodeRoomSizeOutOfBounds)
	}

	var room model.Room
	var err error
	for attempt := 0; attempt < roomNumberAttempts; attempt++ {
		err = s.store.InTx(ctx, func(q repository.Queries) error {
			highest, err := q.MaxRoomNumber(ctx)
			if err != nil {
				return err
			}
			room = model.Room{Number: highest + 1, Rows: rows, Columns: cols}
			if err := q.CreateRoom(ctx, &room); err != nil {
				return err
			}
			return q.CreateSeats(ctx, model.GenerateSeats(room.ID, rows, cols, s.policy.SeatPriceCents))
		})
		if !errors.Is(err, repository.ErrDuplicate) {
			break
		}
	}
	if err != nil {
		return model.Room{}, fmt.Errorf("create room: %w", err)
	}
	s.log.Info("room created", zap.Uint64("room_id", room.ID), zap.Int("number", room.Number),
		zap.Int("capacity", room.Capacity()))
	return room, nil
}

// DeleteRoomWithHighestNumber removes the most recently numbered room and
// its seats.  Rooms that still have screenings are kept.
func (s *RoomService) DeleteRoomWithHighestNumber(ctx context.Context) (model.Room, error) {
	var room model.Room
	err := s.store.InTx(ctx, func(q repository.Queries) error {
		highest, err := q.MaxRoomNumber(ctx)
		if err != nil {
			return err
		}
		if highest == 0 {
			return apperr.NotFoundf("no rooms exist")
		}
		if room, err = q.GetRoomByNumber(ctx, highest); err != nil {
			return err
		}
		if err := q.DeleteRoom(ctx, room.ID); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return apperr.Business(apperr.CodeRoomInUse, "room %d still has screenings", room.Number)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return model.Room{}, err
	}
	s.log.Info("room deleted", zap.Uint64("room_id", room.ID), zap.Int("number", room.Number))
	return room, nil
}

func (s *RoomService) GetRoom(ctx context.Context, id uint64) (model.Room, error) {
	r, err := s.store.GetRoom(ctx, id)
	return r, notFound(err, "room", id)
}

func (s *RoomService) GetRoomByNumber(ctx context.Context, number int) (model.Room, error) {
	r, err := s.store.GetRoomByNumber(ctx, number)
	if errors.Is(err, repository.ErrNotFound) {
		return r, apperr.NotFoundf("room number %d not found", number)
	}
	return r, err
}

func (s *RoomService) ListRooms(ctx context.Context) ([]model.Room, error) {
	return s.store.ListRooms(ctx)
}

// ListSeats returns the seat grid of a room in row order.
func (s *RoomService) ListSeats(ctx context.Context, roomID uint64) ([]model.Seat, error) {
	if _, err := s.GetRoom(ctx, roomID); err != nil {
		return nil, err
	}
	return s.store.ListSeatsByRoom(ctx, roomID)
}
