package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking-engine/internal/payment"
	"github.com/iliyamo/cinema-booking-engine/internal/service"
)

const maxWebhookBytes = 64 << 10

// PaymentHandler opens checkouts and receives the gateway's webhooks.
type PaymentHandler struct {
	Reservations *service.ReservationService
	Payments     *service.PaymentService
	Gateway      payment.Gateway
	// Domain is the public base URL the gateway redirects back to.
	Domain string
	Log    *zap.Logger
}

// Checkout handles POST /v1/reservations/:id/checkout for the owner.
func (h *PaymentHandler) Checkout(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return fail(c, h.Log, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, h.Log, err)
	}
	ctx := c.Request().Context()
	if _, err := h.Reservations.GetOwned(ctx, uid, id); err != nil {
		return fail(c, h.Log, err)
	}
	base := strings.TrimRight(h.Domain, "/")
	co, err := h.Payments.StartCheckout(ctx, id,
		fmt.Sprintf("%s/checkout/success?reservation_id=%d", base, id),
		fmt.Sprintf("%s/checkout/cancel?reservation_id=%d", base, id))
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, checkoutResp{
		ReservationID: co.ReservationID,
		SessionID:     co.SessionID,
		URL:           co.URL,
		AmountCents:   co.AmountCents,
		Currency:      co.Currency,
	})
}

// Webhook handles POST /v1/payments/webhook.  Unknown payments and
// ignored event types are acknowledged with 200 so the gateway stops
// redelivering them; only a bad signature (400) or a store failure (500)
// is reported.
func (h *PaymentHandler) Webhook(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBytes+1))
	if err != nil || len(body) > maxWebhookBytes {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unreadable payload", "code": "INVALID_INPUT"})
	}
	ev, err := h.Gateway.ParseEvent(body, c.Request().Header.Get("Stripe-Signature"))
	if err != nil {
		if errors.Is(err, payment.ErrInvalidSignature) {
			h.Log.Warn("webhook signature rejected", zap.String("ip", c.RealIP()))
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid signature", "code": "INVALID_SIGNATURE"})
		}
		h.Log.Warn("webhook payload rejected", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payload", "code": "INVALID_INPUT"})
	}
	if err := h.Payments.HandleEvent(c.Request().Context(), ev); err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"received": true})
}
