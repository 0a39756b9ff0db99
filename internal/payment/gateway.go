// Package payment talks to the external payment provider.  It opens
// checkout sessions and turns the provider's webhook deliveries into a
// closed set of Event kinds so the booking services never switch on raw
// type strings.
package payment

import (
    "context"
    "errors"
)

// ErrInvalidSignature is returned by ParseEvent when the payload cannot be
// authenticated.
var ErrInvalidSignature = errors.New("payment: invalid webhook signature")

// EventKind is the decoded meaning of a provider notification.
type EventKind int

const (
    // EventIgnored covers every notification the booking engine does not
    // act upon.  It is acknowledged and dropped.
    EventIgnored EventKind = iota
    EventCheckoutCompleted
    EventPaymentSucceeded
    EventPaymentFailed
    EventPaymentCanceled
)

func (k EventKind) String() string {
    switch k {
    case EventCheckoutCompleted:
        return "checkout_completed"
    case EventPaymentSucceeded:
        return "payment_succeeded"
    case EventPaymentFailed:
        return "payment_failed"
    case EventPaymentCanceled:
        return "payment_canceled"
    default:
        return "ignored"
    }
}

// Event is a provider notification reduced to the references needed to
// find the Payment row.  Either SessionID or PaymentIntentID may be empty.
type Event struct {
    ID              string // provider event id, for logs
    Type            string // raw provider type, for logs
    Kind            EventKind
    SessionID       string
    PaymentIntentID string
    // ReservationID comes from the metadata set by CreateCheckout.  It
    // still finds the payment after a newer checkout replaced SessionID.
    ReservationID uint64
    // Paid is false for a completed checkout whose funds are still
    // pending (delayed payment methods).  Success then arrives later as
    // EventPaymentSucceeded.
    Paid bool
}

// LineItem is one seat on the checkout page.
type LineItem struct {
    Name        string
    AmountCents int64
}

type CheckoutRequest struct {
    ReservationID uint64
    CustomerEmail string
    Currency      string
    Items         []LineItem
    SuccessURL    string
    CancelURL     string
}

// Total sums the line items.
func (r CheckoutRequest) Total() int64 {
    var sum int64
    for _, it := range r.Items {
        sum += it.AmountCents
    }
    return sum
}

// CheckoutSession is the opaque reference handed back to the customer.
type CheckoutSession struct {
    SessionID string
    URL       string
}

// Gateway is implemented by StripeGateway and FakeGateway.
type Gateway interface {
    CreateCheckout(ctx context.Context, req CheckoutRequest) (CheckoutSession, error)
    ParseEvent(payload []byte, signature string) (Event, error)
}

// kindOf maps a provider event type onto an EventKind.
func kindOf(eventType string) EventKind {
    switch eventType {
    case "checkout.session.completed":
        return EventCheckoutCompleted
    case "checkout.session.async_payment_succeeded", "payment_intent.succeeded":
        return EventPaymentSucceeded
    case "checkout.session.async_payment_failed", "payment_intent.payment_failed":
        return EventPaymentFailed
    case "checkout.session.expired", "payment_intent.canceled":
        return EventPaymentCanceled
    default:
        return EventIgnored
    }
}
