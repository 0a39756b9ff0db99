package config

// Redis backs three optional HTTP concerns: response caching for the public
// catalogue, token-bucket rate limiting and idempotency keys on booking
// requests.  If the server cannot be reached at startup NewRedisClient
// returns nil and all three middlewares become pass-through.

import (
    "context"
    "crypto/tls"
    "time"

    "github.com/redis/go-redis/v9"
    "go.uber.org/zap"
)

// RedisConfig holds connection parameters for the Redis server.
type RedisConfig struct {
    Addr     string // host:port, REDIS_HOST/REDIS_PORT take precedence
    Password string
    DB       int
    TLS      bool
}

func LoadRedisConfig() RedisConfig {
    addr := envStr("REDIS_ADDR", "localhost:6379")
    if h, p := envStr("REDIS_HOST", ""), envStr("REDIS_PORT", ""); h != "" && p != "" {
        addr = h + ":" + p
    }
    return RedisConfig{
        Addr:     addr,
        Password: envStr("REDIS_PASSWORD", ""),
        DB:       envInt("REDIS_DB", 0),
        TLS:      envBool("REDIS_TLS", false),
    }
}

// NewRedisClient connects and pings Redis.  The returned client is nil when
// the server is unreachable; the failure is logged as a warning.
func NewRedisClient(cfg RedisConfig, log *zap.Logger) *redis.Client {
    var tlsConf *tls.Config
    if cfg.TLS {
        tlsConf = &tls.Config{MinVersion: tls.VersionTLS12}
    }
    client := redis.NewClient(&redis.Options{
        Addr:      cfg.Addr,
        Password:  cfg.Password,
        DB:        cfg.DB,
        TLSConfig: tlsConf,
    })
    ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
    defer cancel()
    if err := client.Ping(ctx).Err(); err != nil {
        log.Warn("redis unavailable, cache/rate limit/idempotency disabled",
            zap.String("addr", cfg.Addr), zap.Error(err))
        _ = client.Close()
        return nil
    }
    return client
}

// CacheConfig defines settings for the response cache middleware.  Only the
// catalogue routes are wrapped; seat maps are never cached because they
// change with every booking.
type CacheConfig struct {
    Enabled      bool
    Methods      map[string]bool
    TTL          time.Duration
    KeyStrategy  string // route | method_route | route_query | method_route_query
    Prefix       string
    MaxBodyBytes int
}

func LoadCacheConfig() CacheConfig {
    return CacheConfig{
        Enabled:      envBool("CACHE_ENABLED", true),
        Methods:      envSet("CACHE_METHODS", "GET"),
        TTL:          envDur("CACHE_TTL", 30*time.Second),
        KeyStrategy:  envStr("CACHE_KEY_STRATEGY", "route_query"),
        Prefix:       envStr("CACHE_PREFIX", "catalogue"),
        MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
    }
}

// RateLimitConfig parameterises the Redis token bucket.
type RateLimitConfig struct {
    Enabled        bool
    Capacity       int
    RefillTokens   int
    RefillInterval time.Duration
    TTL            time.Duration
    KeyStrategy    string
    Prefix         string
}

func LoadRateLimitConfig() RateLimitConfig {
    def := RateLimitConfig{
        Enabled:        envBool("RATE_LIMIT_ENABLED", true),
        Capacity:       envInt("RATE_LIMIT_CAPACITY", 60),
        RefillTokens:   envInt("RATE_LIMIT_REFILL_TOKENS", 1),
        RefillInterval: envDur("RATE_LIMIT_REFILL_INTERVAL", time.Second),
        TTL:            envDur("RATE_LIMIT_TTL", 10*time.Minute),
        KeyStrategy:    envStr("RATE_LIMIT_KEY_STRATEGY", "ip_user_route"),
        Prefix:         envStr("RATE_LIMIT_PREFIX", "rl"),
    }
    if def.Capacity < 1 { def.Capacity = 1 }
    if def.RefillTokens < 1 { def.RefillTokens = 1 }
    if def.RefillInterval <= 0 { def.RefillInterval = time.Second }
    if minTTL := 5 * def.RefillInterval; def.TTL < minTTL { def.TTL = minTTL }
    return def
}

// IdempotencyConfig controls X-Idempotency-Key handling on booking POSTs.
// A key is locked for LockTTL while the first request runs and the stored
// response is replayed for ResultTTL afterwards.
type IdempotencyConfig struct {
    Enabled   bool
    Header    string
    Prefix    string
    LockTTL   time.Duration
    ResultTTL time.Duration
}

func LoadIdempotencyConfig() IdempotencyConfig {
    return IdempotencyConfig{
        Enabled:   envBool("IDEMPOTENCY_ENABLED", true),
        Header:    envStr("IDEMPOTENCY_HEADER", "X-Idempotency-Key"),
        Prefix:    envStr("IDEMPOTENCY_PREFIX", "idem"),
        LockTTL:   envDur("IDEMPOTENCY_LOCK_TTL", 30*time.Second),
        ResultTTL: envDur("IDEMPOTENCY_RESULT_TTL", 24*time.Hour),
    }
}
