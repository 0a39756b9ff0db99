package payment

import (
    "context"
    "encoding/json"
    "fmt"
    "net/url"
    "sync"
)

// FakeGateway stands in for the provider in development and tests.
// Sessions are numbered locally and webhook bodies are plain JSON:
//
//  {"id":"evt_1","type":"checkout.session.completed","session_id":"cs_fake_1","payment_intent_id":"pi_1","reservation_id":7,"paid":true}
//
// When Secret is set the signature header must equal it.
type FakeGateway struct {
    Secret string

    mu       sync.Mutex
    seq      int
    Requests []CheckoutRequest
    // Fail, when non-nil, is returned by CreateCheckout.
    Fail error
}

func (g *FakeGateway) CreateCheckout(_ context.Context, req CheckoutRequest) (CheckoutSession, error) {
    g.mu.Lock()
    defer g.mu.Unlock()
    if g.Fail != nil {
        return CheckoutSession{}, g.Fail
    }
    g.seq++
    g.Requests = append(g.Requests, req)
    id := fmt.Sprintf("cs_fake_%d_%d", req.ReservationID, g.seq)
    u := req.SuccessURL
    if parsed, err := url.Parse(req.SuccessURL); err == nil {
        q := parsed.Query()
        q.Set("session_id", id)
        parsed.RawQuery = q.Encode()
        u = parsed.String()
    }
    return CheckoutSession{SessionID: id, URL: u}, nil
}

type fakeEvent struct {
    ID              string `json:"id"`
    Type            string `json:"type"`
    SessionID       string `json:"session_id"`
    PaymentIntentID string `json:"payment_intent_id"`
    ReservationID   uint64 `json:"reservation_id"`
    Paid            *bool  `json:"paid"`
}

func (g *FakeGateway) ParseEvent(payload []byte, signature string) (Event, error) {
    if g.Secret != "" && signature != g.Secret {
        return Event{}, ErrInvalidSignature
    }
    var fe fakeEvent
    if err := json.Unmarshal(payload, &fe); err != nil {
        return Event{}, fmt.Errorf("fake gateway: decode event: %w", err)
    }
    ev := Event{
        ID:              fe.ID,
        Type:            fe.Type,
        Kind:            kindOf(fe.Type),
        SessionID:       fe.SessionID,
        PaymentIntentID: fe.PaymentIntentID,
        ReservationID:   fe.ReservationID,
    }
    if fe.Paid != nil {
        ev.Paid = *fe.Paid
    } else {
        ev.Paid = ev.Kind == EventCheckoutCompleted || ev.Kind == EventPaymentSucceeded
    }
    return ev, nil
}
