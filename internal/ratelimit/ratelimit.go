// Package ratelimit throttles sign-in attempts with a Redis token bucket.
package ratelimit

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config controls the bucket. A zero Capacity disables limiting.
type Config struct {
	Prefix         string
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
}

// RedisOptions describe how to reach Redis.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	TLS      bool
}

// NewRedisClient connects to Redis and pings it with a short timeout. It
// returns nil when addr is empty or Redis is unreachable, and callers
// treat a nil client as "limiting disabled".
func NewRedisClient(opts RedisOptions, logger *slog.Logger) *redis.Client {
	if opts.Addr == "" {
		return nil
	}
	var tlsConf *tls.Config
	if opts.TLS {
		tlsConf = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(&redis.Options{
		Addr:      opts.Addr,
		Password:  opts.Password,
		DB:        opts.DB,
		TLSConfig: tlsConf,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unavailable, rate limiting disabled", "addr", opts.Addr, "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

var bucketScript = redis.NewScript(`
local key = KEYS[1]
local now_ms = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local refill_tokens = tonumber(ARGV[3])
local interval_ms = tonumber(ARGV[4])
local ttl_seconds = tonumber(ARGV[5])

local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
local tokens = tonumber(state[1])
local last_refill = tonumber(state[2])

if tokens == nil or last_refill == nil then
  tokens = capacity
  last_refill = now_ms
end

if interval_ms > 0 and refill_tokens > 0 then
  local elapsed = math.max(0, now_ms - last_refill)
  local intervals = math.floor(elapsed / interval_ms)
  if intervals > 0 then
    tokens = math.min(capacity, tokens + (intervals * refill_tokens))
    last_refill = last_refill + (intervals * interval_ms)
  end
end

local allowed = 0
local retry_after_ms = 0
if tokens > 0 then
  allowed = 1
  tokens = tokens - 1
else
  retry_after_ms = interval_ms - (now_ms - last_refill)
  if retry_after_ms < 0 then retry_after_ms = 0 end
end

redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
redis.call('EXPIRE', key, ttl_seconds)

return { allowed, tokens, retry_after_ms }
`)

// Result is the outcome of one Take.
type Result struct {
	Allowed    bool
	Remaining  int64
	RetryAfter time.Duration
}

// Limiter takes tokens from per-key buckets.
type Limiter struct {
	rdb    *redis.Client
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

// New returns a limiter. With a nil client or zero capacity every request
// is allowed.
func New(rdb *redis.Client, cfg Config, logger *slog.Logger) *Limiter {
	if cfg.Prefix == "" {
		cfg.Prefix = "hostel-portal:rl"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Limiter{rdb: rdb, cfg: cfg, logger: logger, now: time.Now}
}

// Enabled reports whether requests are actually limited.
func (l *Limiter) Enabled() bool {
	return l.rdb != nil && l.cfg.Capacity > 0
}

// Take removes a token for key. Redis errors fail open.
func (l *Limiter) Take(ctx context.Context, key string) Result {
	if !l.Enabled() {
		return Result{Allowed: true, Remaining: -1}
	}
	vals, err := bucketScript.Run(ctx, l.rdb, []string{l.cfg.Prefix + ":" + key},
		l.now().UnixMilli(),
		l.cfg.Capacity,
		l.cfg.RefillTokens,
		l.cfg.RefillInterval.Milliseconds(),
		int64(l.cfg.TTL/time.Second),
	).Int64Slice()
	if err != nil || len(vals) != 3 {
		l.logger.Warn("rate limit check failed", "key", key, "error", err)
		return Result{Allowed: true, Remaining: -1}
	}
	return Result{
		Allowed:    vals[0] == 1,
		Remaining:  vals[1],
		RetryAfter: time.Duration(vals[2]) * time.Millisecond,
	}
}

// Middleware limits requests per client IP and route. Only methods in
// methods are counted. Rejected requests get a 429 rendered by onLimit.
func (l *Limiter) Middleware(methods []string, onLimit func(w http.ResponseWriter, r *http.Request, retryAfter time.Duration)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !l.Enabled() {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !contains(methods, r.Method) {
				next.ServeHTTP(w, r)
				return
			}
			res := l.Take(r.Context(), Key(r))
			if res.Remaining >= 0 {
				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.cfg.Capacity))
				w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))
			}
			if !res.Allowed {
				secs := int(math.Ceil(res.RetryAfter.Seconds()))
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				l.logger.Info("rate limited", "path", r.URL.Path, "retry_after", secs)
				onLimit(w, r, res.RetryAfter)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Key identifies the caller by IP and route.
func Key(r *http.Request) string {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	if ip == "" {
		ip = "unknown"
	}
	return fmt.Sprintf("ip:%s:route:%s %s", ip, r.Method, r.URL.Path)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
