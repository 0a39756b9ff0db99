package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking-engine/internal/config"
	"github.com/iliyamo/cinema-booking-engine/internal/handler"
	"github.com/iliyamo/cinema-booking-engine/internal/middleware"
)

// Deps carries everything the routes need.  Redis may be nil, in which
// case caching, rate limiting and idempotency are switched off.
type Deps struct {
	Auth         *handler.AuthHandler
	Rooms        *handler.RoomHandler
	Movies       *handler.MovieHandler
	Screenings   *handler.ScreeningHandler
	Reservations *handler.ReservationHandler
	Payments     *handler.PaymentHandler

	JWTSecret   string
	Redis       *redis.Client
	Cache       config.CacheConfig
	RateLimit   config.RateLimitConfig
	Idempotency config.IdempotencyConfig
	Log         *zap.Logger
}

// New builds the Echo instance with the shared middleware chain and all
// route groups.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.RequestID(), middleware.RequestLogger(d.Log), echomw.Recover())

	RegisterRoutes(e)
	RegisterAuth(e, d.Auth, d.JWTSecret)
	RegisterPublic(e, d)
	RegisterCustomer(e, d)
	RegisterAdmin(e, d)
	RegisterWebhook(e, d.Payments)
	return e
}

// RegisterRoutes registers routes that need no authentication and no
// handler state.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers sign-up and login under /v1/auth and the
// authenticated /v1/me.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)

	e.GET("/v1/me", a.Me, middleware.JWTAuth(jwtSecret))
}

// RegisterPublic registers the guest catalogue.  Listings go through the
// Redis response cache; the seat map never does because it changes with
// every booking.
func RegisterPublic(e *echo.Echo, d Deps) {
	cache := middleware.Cache(d.Cache, d.Redis, d.Log)

	e.GET("/v1/movies/:id", d.Movies.Get)
	e.GET("/v1/movies/:id/screenings", d.Movies.ListScreenings, cache)
	e.GET("/v1/movies/:id/dates", d.Movies.Dates, cache)
	e.GET("/v1/movies/:id/slots", d.Movies.Slots, cache)
	e.GET("/v1/rooms/:id/screenings", d.Screenings.ByRoom, cache)
	e.GET("/v1/screenings", d.Screenings.List, cache)
	e.GET("/v1/screenings/:id", d.Screenings.Get)
	e.GET("/v1/screenings/:id/seats", d.Screenings.Seats)
}

// RegisterWebhook registers the payment provider callback.  It is
// authenticated by the payload signature, not by JWT.
func RegisterWebhook(e *echo.Echo, p *handler.PaymentHandler) {
	e.POST("/v1/payments/webhook", p.Webhook)
}
