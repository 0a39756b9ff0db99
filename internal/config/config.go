package config // package config loads application configuration from environment variables

import (
    "strings"
)

// Store drivers accepted in STORE_DRIVER.
const (
    DriverMySQL  = "mysql"
    DriverMemory = "memory"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable; the nested sections are loaded by their own
// helpers so that tests can build just the part they need.
type Config struct {
    Env            string // application environment (e.g. "dev", "prod")
    Port           string // HTTP port to listen on
    LogLevel       string // zap level: debug, info, warn, error
    StoreDriver    string // mysql | memory
    DBUser         string // database username
    DBPass         string // database password (optional)
    DBHost         string // database host address
    DBPort         string // database port number
    DBName         string // database name
    DBMaxOpenConns int    // connection pool size
    JWTSecret      string // secret used to sign JWTs
    AccessTTLMin   int    // access token time‑to‑live in minutes
    BcryptCost     int    // bcrypt cost for password hashing

    Booking     BookingConfig
    Payment     PaymentConfig
    Queue       QueueConfig
    Mail        MailConfig
    Redis       RedisConfig
    Cache       CacheConfig
    RateLimit   RateLimitConfig
    Idempotency IdempotencyConfig
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.  Database settings
// are only required when the MySQL store is selected.
func Load() Config {
    cfg := Config{
        Env:          must("APP_ENV"),
        Port:         envStr("APP_PORT", "8080"),
        LogLevel:     envStr("LOG_LEVEL", "info"),
        StoreDriver:  strings.ToLower(envStr("STORE_DRIVER", DriverMySQL)),
        JWTSecret:    must("JWT_SECRET"),
        AccessTTLMin: envInt("ACCESS_TOKEN_TTL_MIN", 60),
        BcryptCost:   envInt("BCRYPT_COST", 10),

        Booking:     LoadBookingConfig(),
        Payment:     LoadPaymentConfig(),
        Queue:       LoadQueueConfig(),
        Mail:        LoadMailConfig(),
        Redis:       LoadRedisConfig(),
        Cache:       LoadCacheConfig(),
        RateLimit:   LoadRateLimitConfig(),
        Idempotency: LoadIdempotencyConfig(),
    }
    if cfg.StoreDriver == DriverMySQL {
        cfg.DBUser = must("DB_USER")
        cfg.DBPass = envStr("DB_PASS", "")
        cfg.DBHost = must("DB_HOST")
        cfg.DBPort = must("DB_PORT")
        cfg.DBName = must("DB_NAME")
        cfg.DBMaxOpenConns = envInt("DB_MAX_OPEN_CONNS", 25)
    }
    return cfg
}

// IsDev reports whether the development logger and verbose defaults apply.
func (c Config) IsDev() bool {
    switch strings.ToLower(c.Env) {
    case "dev", "development", "local":
        return true
    }
    return false
}
