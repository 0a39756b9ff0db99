package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/cinema-booking-engine/internal/model"
)

const roomColumns = `id, number, seat_rows, seat_cols, created_at`

// CreateRoom inserts r.  The rooms.number column is unique, so two
// concurrent creations that computed the same next number cannot both
// succeed; the loser receives ErrDuplicate.
func (m *mysqlQueries) CreateRoom(ctx context.Context, r *model.Room) error {
	res, err := m.q.ExecContext(ctx,
		`INSERT INTO rooms (number, seat_rows, seat_cols) VALUES (?, ?, ?)`,
		r.Number, r.Rows, r.Columns)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicate
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	r.ID = uint64(id)
	return nil
}

func (m *mysqlQueries) GetRoom(ctx context.Context, id uint64) (model.Room, error) {
	return scanRoom(m.q.QueryRowContext(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = ?`, id))
}

func (m *mysqlQueries) GetRoomByNumber(ctx context.Context, number int) (model.Room, error) {
	return scanRoom(m.q.QueryRowContext(ctx, `SELECT `+roomColumns+` FROM rooms WHERE number = ?`, number))
}

func (m *mysqlQueries) ListRooms(ctx context.Context) ([]model.Room, error) {
	rows, err := m.q.QueryContext(ctx, `SELECT `+roomColumns+` FROM rooms ORDER BY number`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Room
	for rows.Next() {
		var r model.Room
		if err := rows.Scan(&r.ID, &r.Number, &r.Rows, &r.Columns, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (m *mysqlQueries) MaxRoomNumber(ctx context.Context) (int, error) {
	var n sql.NullInt64
	if err := m.q.QueryRowContext(ctx, `SELECT MAX(number) FROM rooms`).Scan(&n); err != nil {
		return 0, err
	}
	return int(n.Int64), nil
}

// DeleteRoom removes the room; its seats go with it through the
// ON DELETE CASCADE foreign key.  A room still referenced by screenings
// yields ErrConflict.
func (m *mysqlQueries) DeleteRoom(ctx context.Context, id uint64) error {
	res, err := m.q.ExecContext(ctx, `DELETE FROM rooms WHERE id = ?`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrConflict
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *mysqlQueries) LockRoom(ctx context.Context, id uint64) error {
	var got uint64
	err := m.q.QueryRowContext(ctx, `SELECT id FROM rooms WHERE id = ? FOR UPDATE`, id).Scan(&got)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func scanRoom(row *sql.Row) (model.Room, error) {
	var r model.Room
	err := row.Scan(&r.ID, &r.Number, &r.Rows, &r.Columns, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Room{}, ErrNotFound
	}
	return r, err
}

// Movies are reference data; the engine only creates them for seeding.

func (m *mysqlQueries) CreateMovie(ctx context.Context, mv *model.Movie) error {
	res, err := m.q.ExecContext(ctx,
		`INSERT INTO movies (title, duration_minutes) VALUES (?, ?)`, mv.Title, mv.DurationMinutes)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	mv.ID = uint64(id)
	return nil
}

func (m *mysqlQueries) GetMovie(ctx context.Context, id uint64) (model.Movie, error) {
	var mv model.Movie
	err := m.q.QueryRowContext(ctx,
		`SELECT id, title, duration_minutes, created_at FROM movies WHERE id = ?`, id,
	).Scan(&mv.ID, &mv.Title, &mv.DurationMinutes, &mv.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Movie{}, ErrNotFound
	}
	return mv, err
}
