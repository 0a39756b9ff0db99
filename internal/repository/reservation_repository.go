package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/cinema-booking-engine/internal/model"
)

const reservationColumns = `id, user_id, screening_id, status, created_at, updated_at`

// activeClaimJoin is the shared filter for "claims of reservations that
// are not cancelled".
const activeClaimJoin = `FROM seat_claims c
	           JOIN reservations r ON r.id = c.reservation_id
	           WHERE r.screening_id = ? AND r.status <> 'CANCELLED'`

func scanReservation(row rowScanner) (model.Reservation, error) {
	var (
		r      model.Reservation
		status string
	)
	err := row.Scan(&r.ID, &r.UserID, &r.ScreeningID, &status, &r.CreatedAt, &r.UpdatedAt)
	r.Status = model.ReservationStatus(status)
	return r, err
}

// CreateReservation inserts the reservation row, then its claims in one
// multi-values INSERT.  It must run inside InTx together with the
// availability checks that preceded it.
func (m *mysqlQueries) CreateReservation(ctx context.Context, r *model.Reservation) error {
	res, err := m.q.ExecContext(ctx,
		`INSERT INTO reservations (user_id, screening_id, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		r.UserID, r.ScreeningID, string(r.Status), r.CreatedAt.UTC(), r.CreatedAt.UTC())
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	r.ID = uint64(id)
	r.UpdatedAt = r.CreatedAt
	if err := m.AddClaims(ctx, r.ID, r.SeatIDs()); err != nil {
		return err
	}
	claims, err := m.claimsFor(ctx, []uint64{r.ID})
	if err != nil {
		return err
	}
	r.Claims = claims[r.ID]
	return nil
}

func (m *mysqlQueries) GetReservation(ctx context.Context, id uint64) (model.Reservation, error) {
	r, err := scanReservation(m.q.QueryRowContext(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Reservation{}, ErrNotFound
	}
	if err != nil {
		return model.Reservation{}, err
	}
	claims, err := m.claimsFor(ctx, []uint64{id})
	if err != nil {
		return model.Reservation{}, err
	}
	r.Claims = claims[id]
	return r, nil
}

// ListReservations returns matching reservations, newest first, each
// with its claims loaded by a single follow-up query.
func (m *mysqlQueries) ListReservations(ctx context.Context, f ReservationFilter) ([]model.Reservation, error) {
	var (
		where []string
		args  []any
	)
	if f.UserID != 0 {
		where = append(where, "user_id = ?")
		args = append(args, f.UserID)
	}
	if f.ScreeningID != 0 {
		where = append(where, "screening_id = ?")
		args = append(args, f.ScreeningID)
	}
	q := `SELECT ` + reservationColumns + ` FROM reservations`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY created_at DESC, id DESC"
	out, err := m.queryReservations(ctx, q, args...)
	if err != nil || len(out) == 0 {
		return out, err
	}
	ids := make([]uint64, len(out))
	for i := range out {
		ids[i] = out[i].ID
	}
	claims, err := m.claimsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Claims = claims[out[i].ID]
	}
	return out, nil
}

func (m *mysqlQueries) queryReservations(ctx context.Context, q string, args ...any) ([]model.Reservation, error) {
	rows, err := m.q.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (m *mysqlQueries) claimsFor(ctx context.Context, reservationIDs []uint64) (map[uint64][]model.SeatClaim, error) {
	q := `SELECT id, reservation_id, seat_id FROM seat_claims WHERE reservation_id IN (` +
		placeholders(len(reservationIDs)) + `) ORDER BY id`
	rows, err := m.q.QueryContext(ctx, q, uint64Args(reservationIDs)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[uint64][]model.SeatClaim, len(reservationIDs))
	for rows.Next() {
		var c model.SeatClaim
		if err := rows.Scan(&c.ID, &c.ReservationID, &c.SeatID); err != nil {
			return nil, err
		}
		out[c.ReservationID] = append(out[c.ReservationID], c)
	}
	return out, rows.Err()
}

// AddClaims inserts one claim per seat with a multi-values INSERT.
func (m *mysqlQueries) AddClaims(ctx context.Context, reservationID uint64, seatIDs []uint64) error {
	if len(seatIDs) == 0 {
		return nil
	}
	var b strings.Builder
	b.WriteString(`INSERT INTO seat_claims (reservation_id, seat_id) VALUES `)
	args := make([]any, 0, len(seatIDs)*2)
	for i, id := range seatIDs {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("(?, ?)")
		args = append(args, reservationID, id)
	}
	_, err := m.q.ExecContext(ctx, b.String(), args...)
	if isDuplicateKey(err) {
		return ErrDuplicate
	}
	return err
}

// RemoveClaims detaches the named seats.  Seats the reservation does not
// hold are ignored.
func (m *mysqlQueries) RemoveClaims(ctx context.Context, reservationID uint64, seatIDs []uint64) (int64, error) {
	if len(seatIDs) == 0 {
		return 0, nil
	}
	q := `DELETE FROM seat_claims WHERE reservation_id = ? AND seat_id IN (` + placeholders(len(seatIDs)) + `)`
	args := append([]any{reservationID}, uint64Args(seatIDs)...)
	res, err := m.q.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (m *mysqlQueries) ActiveClaimExists(ctx context.Context, screeningID, seatID uint64) (bool, error) {
	var exists bool
	err := m.q.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 `+activeClaimJoin+` AND c.seat_id = ?)`,
		screeningID, seatID).Scan(&exists)
	return exists, err
}

func (m *mysqlQueries) ActiveClaimedSeats(ctx context.Context, screeningID uint64) ([]uint64, error) {
	rows, err := m.q.QueryContext(ctx, `SELECT c.seat_id `+activeClaimJoin+` ORDER BY c.seat_id`, screeningID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (m *mysqlQueries) CountActiveClaims(ctx context.Context, screeningID uint64) (int, error) {
	var n int
	err := m.q.QueryRowContext(ctx, `SELECT COUNT(*) `+activeClaimJoin, screeningID).Scan(&n)
	return n, err
}

func (m *mysqlQueries) CountReservationsForScreening(ctx context.Context, screeningID uint64) (int, error) {
	var n int
	err := m.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM reservations WHERE screening_id = ?`, screeningID).Scan(&n)
	return n, err
}

// TransitionReservation is a conditional update: only the first of
// several racing transitions out of `from` changes the row.
func (m *mysqlQueries) TransitionReservation(ctx context.Context, id uint64, from, to model.ReservationStatus, at time.Time) (bool, error) {
	res, err := m.q.ExecContext(ctx,
		`UPDATE reservations SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(to), at.UTC(), id, string(from))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (m *mysqlQueries) ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]model.Reservation, error) {
	const q = `SELECT ` + reservationColumns + `
	           FROM reservations
	           WHERE status = 'PENDING' AND created_at < ?
	           ORDER BY created_at, id
	           LIMIT ?`
	return m.queryReservations(ctx, q, cutoff.UTC(), limit)
}
