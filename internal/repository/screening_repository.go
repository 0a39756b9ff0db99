package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/cinema-booking-engine/internal/model"
)

const screeningColumns = `id, movie_id, room_id, start_time, end_time, format, language, subtitles, is_3d, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanScreening(row rowScanner) (model.Screening, error) {
	var s model.Screening
	err := row.Scan(&s.ID, &s.MovieID, &s.RoomID, &s.StartTime, &s.EndTime,
		&s.Attrs.Format, &s.Attrs.Language, &s.Attrs.Subtitles, &s.Attrs.Is3D, &s.CreatedAt)
	return s, err
}

func (m *mysqlQueries) queryScreenings(ctx context.Context, q string, args ...any) ([]model.Screening, error) {
	rows, err := m.q.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Screening
	for rows.Next() {
		s, err := scanScreening(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateScreening inserts s and populates its generated id.  Callers
// are expected to hold the room lock obtained with LockRoom.
func (m *mysqlQueries) CreateScreening(ctx context.Context, s *model.Screening) error {
	const q = `INSERT INTO screenings (movie_id, room_id, start_time, end_time, format, language, subtitles, is_3d)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := m.q.ExecContext(ctx, q, s.MovieID, s.RoomID, s.StartTime.UTC(), s.EndTime.UTC(),
		s.Attrs.Format, s.Attrs.Language, s.Attrs.Subtitles, s.Attrs.Is3D)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

// UpdateScreening overwrites every mutable column of the screening.
func (m *mysqlQueries) UpdateScreening(ctx context.Context, s model.Screening) error {
	const q = `UPDATE screenings
	           SET movie_id = ?, room_id = ?, start_time = ?, end_time = ?, format = ?, language = ?, subtitles = ?, is_3d = ?
	           WHERE id = ?`
	res, err := m.q.ExecContext(ctx, q, s.MovieID, s.RoomID, s.StartTime.UTC(), s.EndTime.UTC(),
		s.Attrs.Format, s.Attrs.Language, s.Attrs.Subtitles, s.Attrs.Is3D, s.ID)
	if err != nil {
		return err
	}
	// MySQL reports zero affected rows for an identical update, so
	// existence is checked separately.
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := m.GetScreening(ctx, s.ID); err != nil {
			return err
		}
	}
	return nil
}

// DeleteScreening removes a screening.  Reservations reference it
// through a RESTRICT foreign key, which surfaces as ErrConflict.
func (m *mysqlQueries) DeleteScreening(ctx context.Context, id uint64) error {
	res, err := m.q.ExecContext(ctx, `DELETE FROM screenings WHERE id = ?`, id)
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

func (m *mysqlQueries) GetScreening(ctx context.Context, id uint64) (model.Screening, error) {
	s, err := scanScreening(m.q.QueryRowContext(ctx, `SELECT `+screeningColumns+` FROM screenings WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Screening{}, ErrNotFound
	}
	return s, err
}

// ListScreenings returns the screenings matching f ordered by start time.
func (m *mysqlQueries) ListScreenings(ctx context.Context, f ScreeningFilter) ([]model.Screening, error) {
	var (
		where []string
		args  []any
	)
	if f.MovieID != 0 {
		where = append(where, "movie_id = ?")
		args = append(args, f.MovieID)
	}
	if f.RoomID != 0 {
		where = append(where, "room_id = ?")
		args = append(args, f.RoomID)
	}
	if !f.From.IsZero() {
		where = append(where, "start_time >= ?")
		args = append(args, f.From.UTC())
	}
	if !f.To.IsZero() {
		where = append(where, "start_time <= ?")
		args = append(args, f.To.UTC())
	}
	q := `SELECT ` + screeningColumns + ` FROM screenings`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY start_time, id"
	return m.queryScreenings(ctx, q, args...)
}

// FindOverlapping selects screenings where NOT (existing ends before new
// starts OR existing starts after new ends), so touching endpoints are
// allowed.
func (m *mysqlQueries) FindOverlapping(ctx context.Context, roomID uint64, start, end time.Time, excludeID uint64) ([]model.Screening, error) {
	const q = `SELECT ` + screeningColumns + `
	           FROM screenings
	           WHERE room_id = ? AND id <> ? AND NOT (end_time <= ? OR start_time >= ?)
	           ORDER BY start_time`
	return m.queryScreenings(ctx, q, roomID, excludeID, start.UTC(), end.UTC())
}

func (m *mysqlQueries) NextScreeningFrom(ctx context.Context, roomID uint64, from time.Time, excludeID uint64) (model.Screening, error) {
	const q = `SELECT ` + screeningColumns + `
	           FROM screenings
	           WHERE room_id = ? AND id <> ? AND start_time >= ?
	           ORDER BY start_time
	           LIMIT 1`
	s, err := scanScreening(m.q.QueryRowContext(ctx, q, roomID, excludeID, from.UTC()))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Screening{}, ErrNotFound
	}
	return s, err
}

func (m *mysqlQueries) LockScreening(ctx context.Context, id uint64) error {
	var got uint64
	err := m.q.QueryRowContext(ctx, `SELECT id FROM screenings WHERE id = ? FOR UPDATE`, id).Scan(&got)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
