package payment

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "strconv"
    "strings"

    "github.com/stripe/stripe-go/v82"
    "github.com/stripe/stripe-go/v82/client"
    "github.com/stripe/stripe-go/v82/webhook"
)

// StripeGateway opens Stripe Checkout sessions and verifies webhook
// signatures with the endpoint secret.
type StripeGateway struct {
    api           *client.API
    webhookSecret string
}

func NewStripeGateway(secretKey, webhookSecret string) (*StripeGateway, error) {
    if secretKey == "" {
        return nil, errors.New("stripe: secret key is required")
    }
    return &StripeGateway{api: client.New(secretKey, nil), webhookSecret: webhookSecret}, nil
}

func (g *StripeGateway) CreateCheckout(ctx context.Context, req CheckoutRequest) (CheckoutSession, error) {
    ref := strconv.FormatUint(req.ReservationID, 10)
    params := &stripe.CheckoutSessionParams{
        Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
        SuccessURL:        stripe.String(req.SuccessURL),
        CancelURL:         stripe.String(req.CancelURL),
        ClientReferenceID: stripe.String(ref),
        PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
            Metadata: map[string]string{"reservation_id": ref},
        },
    }
    if req.CustomerEmail != "" {
        params.CustomerEmail = stripe.String(req.CustomerEmail)
    }
    for _, it := range req.Items {
        params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
            Quantity: stripe.Int64(1),
            PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
                Currency:   stripe.String(strings.ToLower(req.Currency)),
                UnitAmount: stripe.Int64(it.AmountCents),
                ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
                    Name: stripe.String(it.Name),
                },
            },
        })
    }
    params.AddMetadata("reservation_id", ref)
    params.Context = ctx

    s, err := g.api.CheckoutSessions.New(params)
    if err != nil {
        return CheckoutSession{}, fmt.Errorf("stripe: create checkout session: %w", err)
    }
    return CheckoutSession{SessionID: s.ID, URL: s.URL}, nil
}

// ParseEvent verifies the Stripe-Signature header and decodes the object
// carried by the event.  API version mismatches between the account and
// the library are tolerated since only ids are read from the payload.
func (g *StripeGateway) ParseEvent(payload []byte, signature string) (Event, error) {
    ev, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret,
        webhook.ConstructEventOptions{
            Tolerance:                webhook.DefaultTolerance,
            IgnoreAPIVersionMismatch: true,
        })
    if err != nil {
        return Event{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
    }
    return decodeStripeEvent(ev)
}

func decodeStripeEvent(ev stripe.Event) (Event, error) {
    out := Event{ID: ev.ID, Type: string(ev.Type), Kind: kindOf(string(ev.Type))}
    if out.Kind == EventIgnored || ev.Data == nil {
        out.Kind = EventIgnored
        return out, nil
    }
    if strings.HasPrefix(out.Type, "checkout.session.") {
        var cs stripe.CheckoutSession
        if err := json.Unmarshal(ev.Data.Raw, &cs); err != nil {
            return Event{}, fmt.Errorf("stripe: decode %s: %w", out.Type, err)
        }
        out.SessionID = cs.ID
        out.ReservationID = reservationRef(cs.Metadata)
        if out.ReservationID == 0 {
            out.ReservationID = reservationRef(map[string]string{"reservation_id": cs.ClientReferenceID})
        }
        if cs.PaymentIntent != nil {
            out.PaymentIntentID = cs.PaymentIntent.ID
        }
        out.Paid = cs.PaymentStatus != stripe.CheckoutSessionPaymentStatusUnpaid
        return out, nil
    }
    var pi stripe.PaymentIntent
    if err := json.Unmarshal(ev.Data.Raw, &pi); err != nil {
        return Event{}, fmt.Errorf("stripe: decode %s: %w", out.Type, err)
    }
    out.PaymentIntentID = pi.ID
    out.ReservationID = reservationRef(pi.Metadata)
    out.Paid = out.Kind == EventPaymentSucceeded
    return out, nil
}

// reservationRef reads the reservation id CreateCheckout stored in the
// metadata.  Zero means absent or malformed.
func reservationRef(md map[string]string) uint64 {
    id, err := strconv.ParseUint(md["reservation_id"], 10, 64)
    if err != nil {
        return 0
    }
    return id
}
