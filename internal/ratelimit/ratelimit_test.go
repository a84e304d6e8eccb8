package ratelimit

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

// fixedClock lets a test move the limiter's notion of now.
type fixedClock struct{ now time.Time }

func (c *fixedClock) Now() time.Time { return c.now }

func TestNewRedisClientWithoutAddr(t *testing.T) {
	assert.Nil(t, NewRedisClient(RedisOptions{}, quiet()))
}

func TestNewRedisClientUnreachable(t *testing.T) {
	assert.Nil(t, NewRedisClient(RedisOptions{Addr: "127.0.0.1:1"}, quiet()))
}

func TestDisabledLimiterAllowsEverything(t *testing.T) {
	l := New(nil, Config{Capacity: 1}, quiet())
	assert.False(t, l.Enabled())

	for range 5 {
		assert.True(t, l.Take(context.Background(), "k").Allowed)
	}

	called := 0
	h := l.Middleware([]string{http.MethodPost}, func(w http.ResponseWriter, r *http.Request, _ time.Duration) {
		w.WriteHeader(http.StatusTooManyRequests)
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called++ }))

	for range 3 {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/login", nil))
	}
	assert.Equal(t, 3, called)
}

func TestKey(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/login", nil)
	r.RemoteAddr = "10.0.0.7:51234"
	assert.Equal(t, "ip:10.0.0.7:route:POST /login", Key(r))
}

func TestTakeDrainsAndRefills(t *testing.T) {
	_, rdb := newRedis(t)
	l := New(rdb, Config{Capacity: 2, RefillTokens: 1, RefillInterval: time.Minute}, quiet())
	clock := &fixedClock{now: time.UnixMilli(1_700_000_000_000)}
	l.now = clock.Now
	ctx := context.Background()

	res := l.Take(ctx, "k")
	assert.True(t, res.Allowed)
	assert.Equal(t, int64(1), res.Remaining)

	res = l.Take(ctx, "k")
	assert.True(t, res.Allowed)
	assert.Equal(t, int64(0), res.Remaining)

	res = l.Take(ctx, "k")
	assert.False(t, res.Allowed)
	assert.Equal(t, time.Minute, res.RetryAfter)

	clock.now = clock.now.Add(20 * time.Second)
	res = l.Take(ctx, "k")
	assert.False(t, res.Allowed)
	assert.Equal(t, 40*time.Second, res.RetryAfter)

	clock.now = clock.now.Add(40 * time.Second)
	res = l.Take(ctx, "k")
	assert.True(t, res.Allowed, "one token refilled after the interval")
	assert.Equal(t, int64(0), res.Remaining)

	assert.True(t, l.Take(ctx, "other").Allowed, "buckets are per key")
}

func TestTakeSetsTTL(t *testing.T) {
	mr, rdb := newRedis(t)
	l := New(rdb, Config{Capacity: 1, RefillTokens: 1, RefillInterval: time.Second, TTL: 10 * time.Minute}, quiet())

	l.Take(context.Background(), "k")
	assert.Equal(t, 10*time.Minute, mr.TTL("hostel-portal:rl:k"))
}

func TestTakeFailsOpenWhenRedisIsDown(t *testing.T) {
	mr, rdb := newRedis(t)
	l := New(rdb, Config{Capacity: 1, RefillTokens: 1, RefillInterval: time.Minute}, quiet())
	mr.Close()

	res := l.Take(context.Background(), "k")
	assert.True(t, res.Allowed)
	assert.Equal(t, int64(-1), res.Remaining)
}

func TestMiddlewareRejectsWithRetryAfter(t *testing.T) {
	_, rdb := newRedis(t)
	l := New(rdb, Config{Capacity: 1, RefillTokens: 1, RefillInterval: time.Minute}, quiet())
	clock := &fixedClock{now: time.UnixMilli(1_700_000_000_000)}
	l.now = clock.Now

	var limited time.Duration
	h := l.Middleware([]string{http.MethodPost}, func(w http.ResponseWriter, r *http.Request, retryAfter time.Duration) {
		limited = retryAfter
		w.WriteHeader(http.StatusTooManyRequests)
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	post := func() *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "10.0.0.7:51234"
		h.ServeHTTP(rec, req)
		return rec
	}

	rec := post()
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	for range 3 {
		get := httptest.NewRecorder()
		h.ServeHTTP(get, httptest.NewRequest(http.MethodGet, "/login", nil))
		assert.Equal(t, http.StatusOK, get.Code, "GET is not counted")
	}

	clock.now = clock.now.Add(500 * time.Millisecond)
	rec = post()
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Equal(t, 59500*time.Millisecond, limited)
}
