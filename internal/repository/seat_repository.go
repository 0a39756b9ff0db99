package repository // repository defines data access for seats

import (
	"context"      // context allows query cancellation and timeouts
	"database/sql" // sql provides DB primitives
	"errors"       // errors for sentinel comparisons
	"strings"

	"github.com/iliyamo/cinema-booking-engine/internal/model"
)

// seatInsertChunk bounds the number of rows per multi-values INSERT so
// a 50x50 room stays well below the placeholder limit.
const seatInsertChunk = 500

const seatColumns = `id, room_id, row_label, column_number, price_cents, created_at`

// seatOrder sorts "B" before "AA" by comparing label length first.
const seatOrder = `ORDER BY LENGTH(row_label), row_label, column_number`

// CreateSeats inserts the generated seat grid of a room using
// multi-values statements.  Seat ids are not read back; callers list
// the room's seats when they need them.
func (m *mysqlQueries) CreateSeats(ctx context.Context, seats []model.Seat) error {
	for start := 0; start < len(seats); start += seatInsertChunk {
		end := start + seatInsertChunk
		if end > len(seats) {
			end = len(seats)
		}
		chunk := seats[start:end]
		var b strings.Builder
		b.WriteString(`INSERT INTO seats (room_id, row_label, column_number, price_cents) VALUES `)
		args := make([]any, 0, len(chunk)*4)
		for i, s := range chunk {
			if i > 0 {
				b.WriteString(",")
			}
			b.WriteString("(?, ?, ?, ?)")
			args = append(args, s.RoomID, s.RowLabel, s.Column, s.PriceCents)
		}
		if _, err := m.q.ExecContext(ctx, b.String(), args...); err != nil {
			return err
		}
	}
	return nil
}

// GetSeat retrieves a seat by its id.
func (m *mysqlQueries) GetSeat(ctx context.Context, id uint64) (model.Seat, error) {
	var s model.Seat
	err := m.q.QueryRowContext(ctx, `SELECT `+seatColumns+` FROM seats WHERE id = ?`, id).
		Scan(&s.ID, &s.RoomID, &s.RowLabel, &s.Column, &s.PriceCents, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Seat{}, ErrNotFound
	}
	return s, err
}

// ListSeatsByRoom retrieves all seats of a room in grid order.
func (m *mysqlQueries) ListSeatsByRoom(ctx context.Context, roomID uint64) ([]model.Seat, error) {
	rows, err := m.q.QueryContext(ctx, `SELECT `+seatColumns+` FROM seats WHERE room_id = ? `+seatOrder, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Seat
	for rows.Next() {
		var s model.Seat
		if err := rows.Scan(&s.ID, &s.RoomID, &s.RowLabel, &s.Column, &s.PriceCents, &s.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
