package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-booking-engine/internal/middleware"
	"github.com/iliyamo/cinema-booking-engine/internal/model"
)

// RegisterCustomer registers booking endpoints under /v1.  All routes
// require a valid JWT and the CUSTOMER role; ownership of a reservation
// is checked by the handlers.  Creating a reservation is rate limited and
// honours an optional idempotency key.
func RegisterCustomer(e *echo.Echo, d Deps) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(d.JWTSecret),
		middleware.RequireRole(model.RoleCustomer),
	)
	limit := middleware.RateLimit(d.RateLimit, d.Redis, d.Log)
	idem := middleware.Idempotency(d.Idempotency, d.Redis, d.Log)

	g.POST("/reservations", d.Reservations.Create, limit, idem)
	g.GET("/my-reservations", d.Reservations.Mine)
	g.GET("/reservations/:id", d.Reservations.Get)
	g.PATCH("/reservations/:id/seats", d.Reservations.ModifySeats, limit)
	g.DELETE("/reservations/:id", d.Reservations.Cancel)
	g.POST("/reservations/:id/checkout", d.Payments.Checkout, limit)
}
