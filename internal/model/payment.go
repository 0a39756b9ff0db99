package model

import "time"

type PaymentStatus string

const (
    PaymentPending   PaymentStatus = "PENDING"
    PaymentCompleted PaymentStatus = "COMPLETED"
    PaymentFailed    PaymentStatus = "FAILED"
    PaymentCancelled PaymentStatus = "CANCELLED"
)

// Payment mirrors the state reported by the payment gateway for one
// reservation.  SessionID is the checkout reference handed out when the
// checkout is opened; PaymentIntentID is filled in once the gateway
// reports it.
//
// Fields:
//  ID              – primary key identifier.
//  ReservationID   – owning reservation (one-to-one).
//  AmountCents     – sum of the seat prices at checkout time.
//  Currency        – ISO currency code.
//  SessionID       – external checkout session reference.
//  PaymentIntentID – external payment intent reference (may be empty).
//  Status          – mirrored payment status.
//  CreatedAt       – creation timestamp.
//  UpdatedAt       – last update timestamp.
type Payment struct {
    ID              uint64        // payments.id
    ReservationID   uint64        // payments.reservation_id
    AmountCents     int64         // payments.amount_cents
    Currency        string        // payments.currency
    SessionID       string        // payments.session_id
    PaymentIntentID string        // payments.payment_intent_id
    Status          PaymentStatus // payments.status
    CreatedAt       time.Time     // payments.created_at
    UpdatedAt       time.Time     // payments.updated_at
}
