package payment

import (
    "context"
    "crypto/hmac"
    "crypto/sha256"
    "encoding/hex"
    "fmt"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

const testSecret = "whsec_test_secret"

func sign(payload []byte, secret string, at time.Time) string {
    mac := hmac.New(sha256.New, []byte(secret))
    fmt.Fprintf(mac, "%d.%s", at.Unix(), payload)
    return fmt.Sprintf("t=%d,v1=%s", at.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func stripeGateway(t *testing.T) *StripeGateway {
    t.Helper()
    g, err := NewStripeGateway("sk_test_dummy", testSecret)
    require.NoError(t, err)
    return g
}

func TestStripeCheckoutCompleted(t *testing.T) {
    payload := []byte(`{
        "id": "evt_1", "object": "event", "type": "checkout.session.completed",
        "data": {"object": {"id": "cs_test_1", "object": "checkout.session",
            "payment_intent": "pi_123", "payment_status": "paid",
            "metadata": {"reservation_id": "42"}}}
    }`)

    ev, err := stripeGateway(t).ParseEvent(payload, sign(payload, testSecret, time.Now()))
    require.NoError(t, err)
    assert.Equal(t, EventCheckoutCompleted, ev.Kind)
    assert.Equal(t, "cs_test_1", ev.SessionID)
    assert.Equal(t, "pi_123", ev.PaymentIntentID)
    assert.EqualValues(t, 42, ev.ReservationID)
    assert.True(t, ev.Paid)
}

func TestStripeUnpaidCheckoutIsNotPaid(t *testing.T) {
    payload := []byte(`{"id":"evt_2","object":"event","type":"checkout.session.completed",
        "data":{"object":{"id":"cs_test_2","object":"checkout.session","payment_status":"unpaid",
            "client_reference_id":"7"}}}`)

    ev, err := stripeGateway(t).ParseEvent(payload, sign(payload, testSecret, time.Now()))
    require.NoError(t, err)
    assert.False(t, ev.Paid)
    assert.EqualValues(t, 7, ev.ReservationID)
    assert.Empty(t, ev.PaymentIntentID)
}

func TestStripePaymentIntentFailed(t *testing.T) {
    payload := []byte(`{"id":"evt_3","object":"event","type":"payment_intent.payment_failed",
        "data":{"object":{"id":"pi_999","object":"payment_intent","metadata":{"reservation_id":"12"}}}}`)

    ev, err := stripeGateway(t).ParseEvent(payload, sign(payload, testSecret, time.Now()))
    require.NoError(t, err)
    assert.Equal(t, EventPaymentFailed, ev.Kind)
    assert.Equal(t, "pi_999", ev.PaymentIntentID)
    assert.EqualValues(t, 12, ev.ReservationID)
}

func TestStripeUnknownTypeIsIgnored(t *testing.T) {
    payload := []byte(`{"id":"evt_4","object":"event","type":"customer.created",
        "data":{"object":{"id":"cus_1","object":"customer"}}}`)

    ev, err := stripeGateway(t).ParseEvent(payload, sign(payload, testSecret, time.Now()))
    require.NoError(t, err)
    assert.Equal(t, EventIgnored, ev.Kind)
}

func TestStripeRejectsBadSignature(t *testing.T) {
    payload := []byte(`{"id":"evt_5","object":"event","type":"payment_intent.succeeded","data":{"object":{"id":"pi_1"}}}`)

    _, err := stripeGateway(t).ParseEvent(payload, sign(payload, "whsec_other", time.Now()))
    assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestKindOf(t *testing.T) {
    assert.Equal(t, EventPaymentCanceled, kindOf("checkout.session.expired"))
    assert.Equal(t, EventPaymentSucceeded, kindOf("checkout.session.async_payment_succeeded"))
    assert.Equal(t, EventIgnored, kindOf("charge.refunded"))
    assert.Equal(t, "payment_failed", EventPaymentFailed.String())
}

func TestFakeGateway(t *testing.T) {
    g := &FakeGateway{Secret: "s3cret"}
    s, err := g.CreateCheckout(context.Background(), CheckoutRequest{
        ReservationID: 9,
        Items:         []LineItem{{Name: "C3", AmountCents: 850}, {Name: "C4", AmountCents: 850}},
        SuccessURL:    "http://localhost/ok",
    })
    require.NoError(t, err)
    assert.Equal(t, "cs_fake_9_1", s.SessionID)
    assert.Equal(t, "http://localhost/ok?session_id=cs_fake_9_1", s.URL)
    assert.EqualValues(t, 1700, g.Requests[0].Total())

    _, err = g.ParseEvent([]byte(`{}`), "wrong")
    assert.ErrorIs(t, err, ErrInvalidSignature)

    ev, err := g.ParseEvent([]byte(`{"type":"checkout.session.completed","session_id":"cs_fake_9_1","reservation_id":9}`), "s3cret")
    require.NoError(t, err)
    assert.Equal(t, EventCheckoutCompleted, ev.Kind)
    assert.EqualValues(t, 9, ev.ReservationID)
    assert.True(t, ev.Paid)
}
