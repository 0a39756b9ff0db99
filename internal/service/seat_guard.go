package service

import (
	"context"

	"github.com/iliyamo/cinema-booking-engine/internal/apperr"
	"github.com/iliyamo/cinema-booking-engine/internal/model"
	"github.com/iliyamo/cinema-booking-engine/internal/repository"
)

// SeatGuard decides whether a seat is free for a screening.  Its answer is
// only meaningful inside the transaction that also inserts the claim and
// holds the screening lock.
type SeatGuard struct{}

// IsSeatAlreadyReserved reports whether a reservation that is not
// CANCELLED claims seatID for screeningID.
func (SeatGuard) IsSeatAlreadyReserved(ctx context.Context, q repository.Queries, screeningID, seatID uint64) (bool, error) {
	return q.ActiveClaimExists(ctx, screeningID, seatID)
}

// resolveFree loads each seat, checks that it belongs to the screening's
// room and that it is free, stopping at the first failure.
func (g SeatGuard) resolveFree(ctx context.Context, q repository.Queries, scr model.Screening, seatIDs []uint64) ([]model.Seat, error) {
	seats := make([]model.Seat, 0, len(seatIDs))
	for _, id := range seatIDs {
		seat, err := q.GetSeat(ctx, id)
		if err != nil {
			return nil, notFound(err, "seat", id)
		}
		if seat.RoomID != scr.RoomID {
			return nil, apperr.Business(apperr.CodeSeatNotInRoom, "seat %s is not in the room of screening %d", seat.Label(), scr.ID)
		}
		taken, err := g.IsSeatAlreadyReserved(ctx, q, scr.ID, id)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, apperr.Business(apperr.CodeSeatAlreadyReserved, "seat %s is already reserved", seat.Label())
		}
		seats = append(seats, seat)
	}
	return seats, nil
}
