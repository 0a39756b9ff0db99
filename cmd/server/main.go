package main // Entry point package

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking-engine/internal/config"
	"github.com/iliyamo/cinema-booking-engine/internal/database"
	"github.com/iliyamo/cinema-booking-engine/internal/handler"
	"github.com/iliyamo/cinema-booking-engine/internal/logger"
	"github.com/iliyamo/cinema-booking-engine/internal/mailer"
	"github.com/iliyamo/cinema-booking-engine/internal/payment"
	"github.com/iliyamo/cinema-booking-engine/internal/queue"
	"github.com/iliyamo/cinema-booking-engine/internal/repository"
	"github.com/iliyamo/cinema-booking-engine/internal/router"
	"github.com/iliyamo/cinema-booking-engine/internal/service"
	"github.com/iliyamo/cinema-booking-engine/internal/worker"
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()
	cfg := config.Load()

	zl, err := logger.New(cfg.LogLevel, cfg.IsDev())
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, zl); err != nil {
		zl.Fatal("server stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, zl *zap.Logger) error {
	store, closeStore, err := openStore(ctx, cfg, zl)
	if err != nil {
		return err
	}
	defer closeStore()

	rdb := config.NewRedisClient(cfg.Redis, zl)
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	}

	gateway, err := newGateway(cfg.Payment, zl)
	if err != nil {
		return err
	}

	publisher := queue.NewPublisher(cfg.Queue, zl)
	defer func() { _ = publisher.Close() }()

	opts := []service.Option{service.WithLogger(zl)}
	users := service.NewUserService(store, cfg.BcryptCost)
	rooms := service.NewRoomService(store, service.RoomPolicy{
		MaxRows:        cfg.Booking.RoomMaxRows,
		MaxColumns:     cfg.Booking.RoomMaxColumns,
		SeatPriceCents: cfg.Booking.SeatPriceCents,
	}, opts...)
	movies := service.NewMovieService(store)
	screenings := service.NewScreeningService(store, cfg.Booking.ListHorizon, opts...)
	reservations := service.NewReservationService(store, opts...)
	payments := service.NewPaymentService(store, gateway, publisher, cfg.Booking.Currency, opts...)

	sweeper := worker.NewExpiryWorker(reservations, worker.ExpiryConfig{
		Timeout:   cfg.Booking.ReservationTimeout,
		BatchSize: cfg.Booking.SweepBatchSize,
		Schedule:  cfg.Booking.SweepSchedule,
	}, zl, time.Now)
	if err := sweeper.Start(ctx); err != nil {
		return err
	}
	defer sweeper.Stop()

	if cfg.Queue.RunConsumer {
		m := mailer.New(cfg.Mail, zl)
		go func() {
			if err := queue.StartConsumer(ctx, cfg.Queue, m.Handle, zl); err != nil && !errors.Is(err, context.Canceled) {
				zl.Error("confirmation consumer exited", zap.Error(err))
			}
		}()
	}

	e := router.New(router.Deps{
		Auth: &handler.AuthHandler{Users: users, Secret: cfg.JWTSecret, TTLMin: cfg.AccessTTLMin,
			AllowAdminSignup: cfg.IsDev(), Log: zl},
		Rooms:        &handler.RoomHandler{Rooms: rooms, Log: zl},
		Movies:       &handler.MovieHandler{Movies: movies, Screenings: screenings, Log: zl},
		Screenings:   &handler.ScreeningHandler{Screenings: screenings, Log: zl},
		Reservations: &handler.ReservationHandler{Reservations: reservations, Log: zl},
		Payments: &handler.PaymentHandler{Reservations: reservations, Payments: payments, Gateway: gateway,
			Domain: cfg.Payment.AppDomain, Log: zl},
		JWTSecret:   cfg.JWTSecret,
		Redis:       rdb,
		Cache:       cfg.Cache,
		RateLimit:   cfg.RateLimit,
		Idempotency: cfg.Idempotency,
		Log:         zl,
	})

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		zl.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env), zap.String("store", cfg.StoreDriver))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	zl.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, cfg config.Config, zl *zap.Logger) (repository.Store, func(), error) {
	if cfg.StoreDriver == config.DriverMemory {
		zl.Warn("using in-memory store, data is lost on restart")
		return repository.NewMemoryStore(), func() {}, nil
	}
	db, err := database.Open(ctx, database.Params{
		User: cfg.DBUser, Pass: cfg.DBPass, Host: cfg.DBHost, Port: cfg.DBPort, Name: cfg.DBName,
		MaxOpenConns: cfg.DBMaxOpenConns,
	})
	if err != nil {
		return nil, nil, err
	}
	if err := database.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return repository.NewMySQLStore(db), func() { _ = db.Close() }, nil
}

func newGateway(cfg config.PaymentConfig, zl *zap.Logger) (payment.Gateway, error) {
	if cfg.Provider == "stripe" {
		return payment.NewStripeGateway(cfg.StripeSecretKey, cfg.StripeWebhookSecret)
	}
	zl.Warn("using fake payment gateway")
	return &payment.FakeGateway{Secret: cfg.StripeWebhookSecret}, nil
}
