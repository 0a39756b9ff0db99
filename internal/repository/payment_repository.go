package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/cinema-booking-engine/internal/model"
)

const paymentColumns = `id, reservation_id, amount_cents, currency, session_id, payment_intent_id, status, created_at, updated_at`

func scanPayment(row rowScanner) (model.Payment, error) {
	var (
		p       model.Payment
		session sql.NullString
		intent  sql.NullString
		status  string
	)
	err := row.Scan(&p.ID, &p.ReservationID, &p.AmountCents, &p.Currency, &session, &intent, &status, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Payment{}, ErrNotFound
	}
	p.SessionID = session.String
	p.PaymentIntentID = intent.String
	p.Status = model.PaymentStatus(status)
	return p, err
}

// UpsertPayment relies on the unique reservation_id key: opening a new
// checkout for the same reservation replaces the session reference and
// resets the mirrored status to PENDING.
func (m *mysqlQueries) UpsertPayment(ctx context.Context, p *model.Payment) error {
	const q = `INSERT INTO payments (reservation_id, amount_cents, currency, session_id, payment_intent_id, status)
	           VALUES (?, ?, ?, ?, ?, ?)
	           ON DUPLICATE KEY UPDATE amount_cents = VALUES(amount_cents), currency = VALUES(currency),
	               session_id = VALUES(session_id), payment_intent_id = VALUES(payment_intent_id),
	               status = VALUES(status), updated_at = CURRENT_TIMESTAMP`
	if _, err := m.q.ExecContext(ctx, q, p.ReservationID, p.AmountCents, p.Currency,
		nullString(p.SessionID), nullString(p.PaymentIntentID), string(p.Status)); err != nil {
		return err
	}
	stored, err := m.GetPaymentByReservation(ctx, p.ReservationID)
	if err != nil {
		return err
	}
	*p = stored
	return nil
}

func (m *mysqlQueries) GetPaymentByReservation(ctx context.Context, reservationID uint64) (model.Payment, error) {
	return scanPayment(m.q.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE reservation_id = ?`, reservationID))
}

func (m *mysqlQueries) GetPaymentBySession(ctx context.Context, sessionID string) (model.Payment, error) {
	return scanPayment(m.q.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE session_id = ?`, sessionID))
}

func (m *mysqlQueries) GetPaymentByIntent(ctx context.Context, intentID string) (model.Payment, error) {
	return scanPayment(m.q.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE payment_intent_id = ? ORDER BY id DESC LIMIT 1`, intentID))
}

func (m *mysqlQueries) SetPaymentIntent(ctx context.Context, paymentID uint64, intentID string) error {
	res, err := m.q.ExecContext(ctx,
		`UPDATE payments SET payment_intent_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, intentID, paymentID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := scanPayment(m.q.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = ?`, paymentID)); err != nil {
			return err
		}
	}
	return nil
}

func (m *mysqlQueries) TransitionPayment(ctx context.Context, id uint64, from, to model.PaymentStatus, at time.Time) (bool, error) {
	res, err := m.q.ExecContext(ctx,
		`UPDATE payments SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(to), at.UTC(), id, string(from))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
