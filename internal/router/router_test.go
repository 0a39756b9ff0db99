package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/cinema-booking-engine/internal/config"
	"github.com/iliyamo/cinema-booking-engine/internal/handler"
	"github.com/iliyamo/cinema-booking-engine/internal/payment"
	"github.com/iliyamo/cinema-booking-engine/internal/queue"
	"github.com/iliyamo/cinema-booking-engine/internal/repository"
	"github.com/iliyamo/cinema-booking-engine/internal/service"
)

const (
	jwtSecret     = "router-test-secret"
	webhookSecret = "whsec_test"
)

type app struct {
	e        *echo.Echo
	notified atomic.Int32
}

func newApp(t *testing.T) *app {
	t.Helper()
	log := zap.NewNop()
	store := repository.NewMemoryStore()
	gateway := &payment.FakeGateway{Secret: webhookSecret}
	a := &app{}
	notifier := service.NotifierFunc(func(context.Context, queue.ReservationConfirmedEvent) error {
		a.notified.Add(1)
		return nil
	})

	users := service.NewUserService(store, bcrypt.MinCost)
	rooms := service.NewRoomService(store, service.DefaultRoomPolicy)
	movies := service.NewMovieService(store)
	screenings := service.NewScreeningService(store, 0)
	reservations := service.NewReservationService(store)
	payments := service.NewPaymentService(store, gateway, notifier, "eur")

	// Redis is nil, so the cache, rate limit and idempotency layers are
	// pass-through here.
	a.e = New(Deps{
		Auth:         &handler.AuthHandler{Users: users, Secret: jwtSecret, TTLMin: 15, AllowAdminSignup: true, Log: log},
		Rooms:        &handler.RoomHandler{Rooms: rooms, Log: log},
		Movies:       &handler.MovieHandler{Movies: movies, Screenings: screenings, Log: log},
		Screenings:   &handler.ScreeningHandler{Screenings: screenings, Log: log},
		Reservations: &handler.ReservationHandler{Reservations: reservations, Log: log},
		Payments: &handler.PaymentHandler{Reservations: reservations, Payments: payments, Gateway: gateway,
			Domain: "https://cinema.test", Log: log},
		JWTSecret:   jwtSecret,
		Cache:       config.CacheConfig{Enabled: true},
		RateLimit:   config.RateLimitConfig{Enabled: true},
		Idempotency: config.IdempotencyConfig{Enabled: true, Header: "X-Idempotency-Key"},
		Log:         log,
	})
	return a
}

type call struct {
	token   string
	headers map[string]string
}

func (a *app) do(t *testing.T, method, path string, body any, c call) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.([]byte); ok {
			buf.Write(raw)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if c.token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+c.token)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type authBody struct {
	User struct {
		ID   uint64 `json:"id"`
		Role string `json:"role"`
	} `json:"user"`
	Access struct {
		Token string `json:"token"`
	} `json:"access"`
}

func (a *app) register(t *testing.T, email, role string) string {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/v1/auth/register",
		map[string]string{"email": email, "password": "s3cret-pass", "role": role}, call{})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[authBody](t, rec).Access.Token
}

type errBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type idBody struct {
	ID     uint64 `json:"id"`
	Status string `json:"status"`
}

type seatMapBody struct {
	Available int `json:"available"`
	Seats     []struct {
		ID    uint64 `json:"id"`
		Label string `json:"label"`
		State string `json:"state"`
	} `json:"seats"`
}

// programme creates a 5x4 room, a 120 minute movie and one screening two
// days ahead, and returns the screening id.
func (a *app) programme(t *testing.T, admin string) uint64 {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/v1/admin/rooms", map[string]int{"rows": 5, "columns": 4}, call{token: admin})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	room := decode[idBody](t, rec)

	rec = a.do(t, http.MethodPost, "/v1/admin/movies", map[string]any{"title": "Arrival", "duration_minutes": 120}, call{token: admin})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	movie := decode[idBody](t, rec)

	start := time.Now().UTC().Add(48 * time.Hour).Truncate(time.Hour)
	rec = a.do(t, http.MethodPost, "/v1/admin/screenings", map[string]any{
		"movie_id": movie.ID, "room_id": room.ID, "start_time": start, "format": "2D",
	}, call{token: admin})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[idBody](t, rec).ID
}

func TestHealth(t *testing.T) {
	a := newApp(t)
	rec := a.do(t, http.MethodGet, "/healthz", nil, call{})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestAuthFlow(t *testing.T) {
	a := newApp(t)
	token := a.register(t, "ana@example.com", "")

	rec := a.do(t, http.MethodPost, "/v1/auth/register",
		map[string]string{"email": "ana@example.com", "password": "s3cret-pass"}, call{})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "EMAIL_TAKEN", decode[errBody](t, rec).Code)

	rec = a.do(t, http.MethodPost, "/v1/auth/register", map[string]string{"email": "bad", "password": "x"}, call{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_INPUT", decode[errBody](t, rec).Code)

	rec = a.do(t, http.MethodPost, "/v1/auth/login", map[string]string{"email": "ana@example.com", "password": "wrong-pass"}, call{})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.do(t, http.MethodPost, "/v1/auth/login", map[string]string{"email": "ana@example.com", "password": "s3cret-pass"}, call{})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decode[authBody](t, rec).Access.Token)

	rec = a.do(t, http.MethodGet, "/v1/me", nil, call{token: token})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"email":"ana@example.com"`)
	assert.Contains(t, rec.Body.String(), `"role":"CUSTOMER"`)

	assert.Equal(t, http.StatusUnauthorized, a.do(t, http.MethodGet, "/v1/me", nil, call{}).Code)
}

func TestAdminRoutesNeedAdminRole(t *testing.T) {
	a := newApp(t)
	customer := a.register(t, "ana@example.com", "")

	rec := a.do(t, http.MethodPost, "/v1/admin/rooms", map[string]int{"rows": 2, "columns": 2}, call{token: customer})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = a.do(t, http.MethodPost, "/v1/admin/rooms", map[string]int{"rows": 2, "columns": 2}, call{})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	admin := a.register(t, "root@example.com", "ADMIN")
	rec = a.do(t, http.MethodPost, "/v1/admin/rooms", map[string]int{"rows": 51, "columns": 2}, call{token: admin})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "ROOM_SIZE_OUT_OF_BOUNDS", decode[errBody](t, rec).Code)

	rec = a.do(t, http.MethodDelete, "/v1/admin/rooms/highest", nil, call{token: admin})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSchedulingConflictOverHTTP(t *testing.T) {
	a := newApp(t)
	admin := a.register(t, "root@example.com", "ADMIN")
	id := a.programme(t, admin)

	rec := a.do(t, http.MethodGet, fmt.Sprintf("/v1/screenings/%d", id), nil, call{})
	require.Equal(t, http.StatusOK, rec.Code)
	var scr struct {
		MovieID   uint64    `json:"movie_id"`
		RoomID    uint64    `json:"room_id"`
		StartTime time.Time `json:"start_time"`
		EndTime   time.Time `json:"end_time"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &scr))
	assert.Equal(t, 135*time.Minute, scr.EndTime.Sub(scr.StartTime))

	rec = a.do(t, http.MethodPost, "/v1/admin/screenings", map[string]any{
		"movie_id": scr.MovieID, "room_id": scr.RoomID, "start_time": scr.StartTime.Add(time.Hour),
	}, call{token: admin})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "ROOM_NOT_AVAILABLE", decode[errBody](t, rec).Code)

	rec = a.do(t, http.MethodGet, fmt.Sprintf("/v1/rooms/%d/screenings", scr.RoomID), nil, call{})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]idBody](t, rec), 1)

	date := scr.StartTime.Format("2006-01-02")
	rec = a.do(t, http.MethodGet, fmt.Sprintf("/v1/movies/%d/slots?date=%s", scr.MovieID, date), nil, call{})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"available_seats":20`)

	rec = a.do(t, http.MethodGet, fmt.Sprintf("/v1/movies/%d/dates", scr.MovieID), nil, call{})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), date)

	rec = a.do(t, http.MethodGet, "/v1/screenings?date="+date, nil, call{})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]idBody](t, rec), 1)

	rec = a.do(t, http.MethodGet, "/v1/screenings?from=2020-01-01", nil, call{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBookingAndPaymentFlow(t *testing.T) {
	a := newApp(t)
	admin := a.register(t, "root@example.com", "ADMIN")
	ana := a.register(t, "ana@example.com", "")
	bob := a.register(t, "bob@example.com", "")
	screeningID := a.programme(t, admin)

	rec := a.do(t, http.MethodGet, fmt.Sprintf("/v1/screenings/%d/seats", screeningID), nil, call{})
	require.Equal(t, http.StatusOK, rec.Code)
	seats := decode[seatMapBody](t, rec)
	require.Len(t, seats.Seats, 20)
	assert.Equal(t, 20, seats.Available)
	first, second := seats.Seats[0].ID, seats.Seats[1].ID

	// admins cannot book
	rec = a.do(t, http.MethodPost, "/v1/reservations", map[string]any{"screening_id": screeningID, "seat_ids": []uint64{first}}, call{token: admin})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.do(t, http.MethodPost, "/v1/reservations", map[string]any{"screening_id": screeningID, "seat_ids": []uint64{}}, call{token: ana})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(t, http.MethodPost, "/v1/reservations",
		map[string]any{"screening_id": screeningID, "seat_ids": []uint64{first, second}}, call{token: ana})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	res := decode[idBody](t, rec)
	assert.Equal(t, "PENDING", res.Status)

	rec = a.do(t, http.MethodPost, "/v1/reservations",
		map[string]any{"screening_id": screeningID, "seat_ids": []uint64{second}}, call{token: bob})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "SEAT_ALREADY_RESERVED", decode[errBody](t, rec).Code)

	rec = a.do(t, http.MethodGet, fmt.Sprintf("/v1/reservations/%d", res.ID), nil, call{token: bob})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = a.do(t, http.MethodDelete, fmt.Sprintf("/v1/reservations/%d", res.ID), nil, call{token: bob})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.do(t, http.MethodPatch, fmt.Sprintf("/v1/reservations/%d/seats", res.ID),
		map[string]any{"remove": []uint64{second}}, call{token: ana})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), fmt.Sprintf(`"seat_ids":[%d]`, first))

	rec = a.do(t, http.MethodGet, fmt.Sprintf("/v1/screenings/%d/seats", screeningID), nil, call{})
	assert.Equal(t, 19, decode[seatMapBody](t, rec).Available)

	rec = a.do(t, http.MethodGet, "/v1/my-reservations", nil, call{token: ana})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]idBody](t, rec), 1)

	rec = a.do(t, http.MethodPost, fmt.Sprintf("/v1/reservations/%d/checkout", res.ID), nil, call{token: ana})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var co struct {
		SessionID   string `json:"session_id"`
		URL         string `json:"url"`
		AmountCents int64  `json:"amount_cents"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &co))
	assert.Equal(t, int64(850), co.AmountCents)
	assert.Contains(t, co.URL, "https://cinema.test/checkout/success")

	event := func(kind, session string) []byte {
		return []byte(fmt.Sprintf(`{"id":"evt_%s","type":%q,"session_id":%q,"payment_intent_id":"pi_1"}`, session, kind, session))
	}
	signed := call{headers: map[string]string{"Stripe-Signature": webhookSecret}}

	rec = a.do(t, http.MethodPost, "/v1/payments/webhook", event("checkout.session.completed", co.SessionID), call{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(t, http.MethodPost, "/v1/payments/webhook", event("checkout.session.completed", "cs_unknown"), signed)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = a.do(t, http.MethodPost, "/v1/payments/webhook", event("customer.created", co.SessionID), signed)
	assert.Equal(t, http.StatusOK, rec.Code)

	for i := 0; i < 2; i++ {
		rec = a.do(t, http.MethodPost, "/v1/payments/webhook", event("checkout.session.completed", co.SessionID), signed)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}
	assert.Equal(t, int32(1), a.notified.Load())

	rec = a.do(t, http.MethodGet, fmt.Sprintf("/v1/reservations/%d", res.ID), nil, call{token: ana})
	assert.Equal(t, "CONFIRMED", decode[idBody](t, rec).Status)

	rec = a.do(t, http.MethodDelete, fmt.Sprintf("/v1/reservations/%d", res.ID), nil, call{token: ana})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "RESERVATION_NOT_PENDING", decode[errBody](t, rec).Code)

	rec = a.do(t, http.MethodGet, "/v1/admin/reservations?session="+co.SessionID, nil, call{token: admin})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]idBody](t, rec), 1)
	rec = a.do(t, http.MethodGet, "/v1/admin/reservations?email=bob@example.com", nil, call{token: admin})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]idBody](t, rec))
	rec = a.do(t, http.MethodGet, "/v1/admin/reservations?email=nobody@example.com", nil, call{token: admin})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = a.do(t, http.MethodGet, fmt.Sprintf("/v1/admin/reservations?screening_id=%d", screeningID), nil, call{token: admin})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]idBody](t, rec), 1)

	rec = a.do(t, http.MethodDelete, fmt.Sprintf("/v1/admin/screenings/%d", screeningID), nil, call{token: admin})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "SCREENING_HAS_RESERVATIONS", decode[errBody](t, rec).Code)
}

func TestCancelReleasesSeats(t *testing.T) {
	a := newApp(t)
	admin := a.register(t, "root@example.com", "ADMIN")
	ana := a.register(t, "ana@example.com", "")
	bob := a.register(t, "bob@example.com", "")
	screeningID := a.programme(t, admin)

	rec := a.do(t, http.MethodGet, fmt.Sprintf("/v1/screenings/%d/seats", screeningID), nil, call{})
	seat := decode[seatMapBody](t, rec).Seats[5].ID
	body := map[string]any{"screening_id": screeningID, "seat_ids": []uint64{seat}}

	rec = a.do(t, http.MethodPost, "/v1/reservations", body, call{token: ana})
	require.Equal(t, http.StatusCreated, rec.Code)
	res := decode[idBody](t, rec)

	rec = a.do(t, http.MethodDelete, fmt.Sprintf("/v1/reservations/%d", res.ID), nil, call{token: ana})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "CANCELLED", decode[idBody](t, rec).Status)

	rec = a.do(t, http.MethodPost, "/v1/reservations", body, call{token: bob})
	assert.Equal(t, http.StatusCreated, rec.Code)
}
