package config

import "time"

// BookingConfig carries the tunables of the booking engine.  None of them
// affect correctness: the timeout and schedule only decide how quickly
// abandoned reservations return their seats.
type BookingConfig struct {
    ReservationTimeout time.Duration // PENDING reservations older than this are cancelled
    SweepSchedule      string        // robfig/cron spec for the expiration sweep
    SweepBatchSize     int           // max reservations cancelled per sweep
    SeatPriceCents     int64         // unit price given to generated seats
    Currency           string        // ISO currency code used at checkout
    RoomMaxRows        int           // policy upper bound for room rows
    RoomMaxColumns     int           // policy upper bound for room columns
    ListHorizon        time.Duration // default look-ahead of "screenings by movie"
}

func LoadBookingConfig() BookingConfig {
    cfg := BookingConfig{
        ReservationTimeout: envDur("RESERVATION_TIMEOUT", 15*time.Minute),
        SweepSchedule:      envStr("SWEEP_SCHEDULE", "@every 1m"),
        SweepBatchSize:     envInt("SWEEP_BATCH_SIZE", 500),
        SeatPriceCents:     envInt64("SEAT_PRICE_CENTS", 850),
        Currency:           envStr("CURRENCY", "eur"),
        RoomMaxRows:        envInt("ROOM_MAX_ROWS", 50),
        RoomMaxColumns:     envInt("ROOM_MAX_COLUMNS", 50),
        ListHorizon:        envDur("SCREENING_LIST_HORIZON", 90*24*time.Hour),
    }
    if cfg.ReservationTimeout <= 0 { cfg.ReservationTimeout = 15 * time.Minute }
    if cfg.SweepBatchSize < 1 { cfg.SweepBatchSize = 500 }
    if cfg.RoomMaxRows < 1 { cfg.RoomMaxRows = 50 }
    if cfg.RoomMaxColumns < 1 { cfg.RoomMaxColumns = 50 }
    return cfg
}

// PaymentConfig selects and configures the payment gateway.  Provider
// "fake" issues local session references and is meant for development.
type PaymentConfig struct {
    Provider            string // stripe | fake
    StripeSecretKey     string
    StripeWebhookSecret string
    AppDomain           string // base URL used for checkout success/cancel redirects
}

func LoadPaymentConfig() PaymentConfig {
    cfg := PaymentConfig{
        Provider:            envStr("PAYMENT_PROVIDER", "stripe"),
        StripeSecretKey:     envStr("STRIPE_SECRET_KEY", ""),
        StripeWebhookSecret: envStr("STRIPE_WEBHOOK_SECRET", ""),
        AppDomain:           envStr("APP_DOMAIN", "http://localhost:3000"),
    }
    if cfg.StripeSecretKey == "" {
        cfg.Provider = "fake"
    }
    return cfg
}
