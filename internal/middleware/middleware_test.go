package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/movie-review-api/internal/config"
)

func serve(e *echo.Echo, method, target string, hdr map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

// deadRedis points at a port nothing listens on.
func deadRedis(t *testing.T) *redis.Client {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

// liveRedis starts an in-process Redis.
func liveRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestAdminGuard(t *testing.T) {
	reached := 0
	e := echo.New()
	e.GET("/api/admin/stats", func(c echo.Context) error {
		reached++
		return c.NoContent(http.StatusOK)
	}, AdminGuard("s3cret"))

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", http.StatusForbidden},
		{"wrong token", "Bearer nope", http.StatusForbidden},
		{"wrong scheme", "Basic s3cret", http.StatusForbidden},
		{"lowercase scheme", "bearer s3cret", http.StatusForbidden},
		{"trailing space", "Bearer s3cret ", http.StatusForbidden},
		{"ok", "Bearer s3cret", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := serve(e, http.MethodGet, "/api/admin/stats", map[string]string{echo.HeaderAuthorization: tc.header})
			assert.Equal(t, tc.status, rec.Code)
			if tc.status == http.StatusForbidden {
				assert.JSONEq(t, `{"message":"Admin authorization required"}`, rec.Body.String())
			}
		})
	}
	assert.Equal(t, 1, reached)
}

func TestAdminGuardEmptyTokenLocksOut(t *testing.T) {
	e := echo.New()
	e.GET("/x", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, AdminGuard(""))
	rec := serve(e, http.MethodGet, "/x", map[string]string{echo.HeaderAuthorization: "Bearer "})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestPayloadRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte(`[1,2]`))
	require.NoError(t, err)

	status, got, body, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, hdr, got)
	assert.Equal(t, []byte(`[1,2]`), body)

	_, _, _, ok = decodePayload(bs[:5])
	assert.False(t, ok)
	_, _, _, ok = decodePayload(append([]byte{0, 0, 0, 200, 0, 0, 1, 0}, 'x'))
	assert.False(t, ok)
}

func TestCacheKeyIsNamespaced(t *testing.T) {
	rc := NewResponseCache(config.CacheConfig{Prefix: "cache"}, nil, zerolog.Nop())
	e := echo.New()

	keyFor := func(target string) string {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, target, nil), httptest.NewRecorder())
		c.SetPath("/api/reviews")
		return rc.key(NamespaceReviews, "3", c)
	}
	a, b := keyFor("/api/reviews?title=X"), keyFor("/api/reviews?title=Y")
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, keyFor("/api/reviews?title=X"))
	assert.Regexp(t, `^cache:reviews:3:[0-9a-f]{40}$`, a)
	assert.Equal(t, "cache:gen:reviews", rc.genKey(NamespaceReviews))
}

func TestCaptureWriterTruncation(t *testing.T) {
	rec := httptest.NewRecorder()
	cw := &captureWriter{ResponseWriter: rec, status: http.StatusOK, limit: 4}
	_, _ = cw.Write([]byte("abc"))
	assert.False(t, cw.truncated)
	_, _ = cw.Write([]byte("de"))
	assert.True(t, cw.truncated)
	assert.Equal(t, "abcde", rec.Body.String())
}

func TestCacheDisabledPassesThrough(t *testing.T) {
	for name, rc := range map[string]*ResponseCache{
		"nil client": NewResponseCache(config.CacheConfig{Enabled: true, Prefix: "cache"}, nil, zerolog.Nop()),
		"disabled":   NewResponseCache(config.CacheConfig{Enabled: false, Prefix: "cache"}, deadRedis(t), zerolog.Nop()),
	} {
		t.Run(name, func(t *testing.T) {
			e := echo.New()
			e.GET("/api/movies", func(c echo.Context) error { return c.JSON(http.StatusOK, []int{1}) }, rc.Middleware(NamespaceMovies))
			rec := serve(e, http.MethodGet, "/api/movies", nil)
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Empty(t, rec.Header().Get("X-Cache"))
			assert.NoError(t, rc.Purge(context.Background(), NamespaceMovies))
		})
	}
}

func TestCacheFailsOpen(t *testing.T) {
	rc := NewResponseCache(config.CacheConfig{Enabled: true, Prefix: "cache", TTL: 1e9}, deadRedis(t), zerolog.Nop())
	e := echo.New()
	calls := 0
	e.GET("/api/movies", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusOK, []string{"Alien"})
	}, rc.Middleware(NamespaceMovies))
	e.POST("/api/movies/import", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"imported": 1})
	}, rc.Invalidate(NamespaceMovies))

	for i := 0; i < 2; i++ {
		rec := serve(e, http.MethodGet, "/api/movies", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
		assert.JSONEq(t, `["Alien"]`, rec.Body.String())
	}
	assert.Equal(t, 2, calls)

	rec := serve(e, http.MethodPost, "/api/movies/import", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Error(t, rc.Purge(context.Background(), NamespaceMovies))
}

func TestTokenBucketFailsOpen(t *testing.T) {
	cfg := config.RateLimitConfig{Enabled: true, Capacity: 1, RefillTokens: 1, RefillInterval: 1e9, TTL: 1e10, Prefix: "rl"}
	for name, rdb := range map[string]*redis.Client{"nil client": nil, "unreachable": deadRedis(t)} {
		t.Run(name, func(t *testing.T) {
			e := echo.New()
			e.POST("/api/users/login", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, NewTokenBucket(cfg, rdb, zerolog.Nop()))
			for i := 0; i < 3; i++ {
				assert.Equal(t, http.StatusOK, serve(e, http.MethodPost, "/api/users/login", nil).Code)
			}
		})
	}
}

func TestRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/admin/login", nil)
	req.Header.Set(echo.HeaderXRealIP, "10.0.0.7")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/api/admin/login")

	cfg := config.RateLimitConfig{Prefix: "rl"}
	for strategy, want := range map[string]string{
		"":         "rl:ip:10.0.0.7:route:POST /api/admin/login",
		"ip_route": "rl:ip:10.0.0.7:route:POST /api/admin/login",
		"ip":       "rl:ip:10.0.0.7",
		"route":    "rl:route:POST /api/admin/login",
	} {
		cfg.KeyStrategy = strategy
		assert.Equal(t, want, rateKey(cfg, c), strategy)
	}
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)
	e := echo.New()
	e.GET("/api/health", func(c echo.Context) error {
		zerolog.Ctx(c.Request().Context()).Info().Msg("inside")
		return c.NoContent(http.StatusOK)
	}, RequestLogger(log))

	rec := serve(e, http.MethodGet, "/api/health", map[string]string{echo.HeaderXRequestID: "abc-123"})
	assert.Equal(t, "abc-123", rec.Header().Get(echo.HeaderXRequestID))
	assert.Contains(t, buf.String(), `"request_id":"abc-123"`)
	assert.Contains(t, buf.String(), `"message":"inside"`)
	assert.Contains(t, buf.String(), `"status":200`)

	buf.Reset()
	rec = serve(e, http.MethodGet, "/api/health", nil)
	assert.Len(t, rec.Header().Get(echo.HeaderXRequestID), 36)
}

func TestRequestLoggerHandlesErrors(t *testing.T) {
	var buf bytes.Buffer
	e := echo.New()
	e.GET("/boom", func(c echo.Context) error { return echo.ErrInternalServerError }, RequestLogger(zerolog.New(&buf)))

	rec := serve(e, http.MethodGet, "/boom", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, buf.String(), `"level":"error"`)
}

func cachedMovies(t *testing.T, rc *ResponseCache, title *string, calls *int) *echo.Echo {
	t.Helper()
	e := echo.New()
	e.GET("/api/movies", func(c echo.Context) error {
		*calls++
		return c.JSON(http.StatusOK, []string{*title})
	}, rc.Middleware(NamespaceMovies))
	e.POST("/api/movies", func(c echo.Context) error {
		*title = c.QueryParam("title")
		return c.JSON(http.StatusCreated, echo.Map{"title": *title})
	}, rc.Invalidate(NamespaceMovies))
	e.POST("/api/movies/bad", func(c echo.Context) error {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid request body"})
	}, rc.Invalidate(NamespaceMovies))
	return e
}

func TestCacheHitAfterMiss(t *testing.T) {
	_, rdb := liveRedis(t)
	rc := NewResponseCache(config.CacheConfig{Enabled: true, Prefix: "cache", TTL: time.Minute}, rdb, zerolog.Nop())
	title, calls := "Alien", 0
	e := cachedMovies(t, rc, &title, &calls)

	first := serve(e, http.MethodGet, "/api/movies", map[string]string{echo.HeaderXRequestID: "one"})
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))

	second := serve(e, http.MethodGet, "/api/movies", map[string]string{echo.HeaderXRequestID: "two"})
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, first.Header().Get(echo.HeaderContentType), second.Header().Get(echo.HeaderContentType))
	assert.Equal(t, 1, calls)
}

func TestCacheInvalidatedBySuccessfulWrite(t *testing.T) {
	mr, rdb := liveRedis(t)
	rc := NewResponseCache(config.CacheConfig{Enabled: true, Prefix: "cache", TTL: time.Minute}, rdb, zerolog.Nop())
	title, calls := "Alien", 0
	e := cachedMovies(t, rc, &title, &calls)

	serve(e, http.MethodGet, "/api/movies", nil)
	require.Equal(t, "HIT", serve(e, http.MethodGet, "/api/movies", nil).Header().Get("X-Cache"))

	require.Equal(t, http.StatusCreated, serve(e, http.MethodPost, "/api/movies?title=Heat", nil).Code)
	gen, err := mr.Get("cache:gen:movies")
	require.NoError(t, err)
	assert.Equal(t, "1", gen)
	for _, k := range mr.Keys() {
		assert.NotRegexp(t, `^cache:movies:0:`, k)
	}

	rec := serve(e, http.MethodGet, "/api/movies", nil)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.JSONEq(t, `["Heat"]`, rec.Body.String())
	assert.Equal(t, 2, calls)
}

func TestCacheKeptOnFailedWrite(t *testing.T) {
	mr, rdb := liveRedis(t)
	rc := NewResponseCache(config.CacheConfig{Enabled: true, Prefix: "cache", TTL: time.Minute}, rdb, zerolog.Nop())
	title, calls := "Alien", 0
	e := cachedMovies(t, rc, &title, &calls)

	serve(e, http.MethodGet, "/api/movies", nil)
	assert.Equal(t, http.StatusBadRequest, serve(e, http.MethodPost, "/api/movies/bad", nil).Code)
	assert.False(t, mr.Exists("cache:gen:movies"))

	rec := serve(e, http.MethodGet, "/api/movies", nil)
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	assert.Equal(t, 1, calls)
}

func TestCacheExpiresWithTTL(t *testing.T) {
	mr, rdb := liveRedis(t)
	rc := NewResponseCache(config.CacheConfig{Enabled: true, Prefix: "cache", TTL: time.Minute}, rdb, zerolog.Nop())
	title, calls := "Alien", 0
	e := cachedMovies(t, rc, &title, &calls)

	serve(e, http.MethodGet, "/api/movies", nil)
	mr.FastForward(2 * time.Minute)
	assert.Equal(t, "MISS", serve(e, http.MethodGet, "/api/movies", nil).Header().Get("X-Cache"))
	assert.Equal(t, 2, calls)
}

// A read that started before a write must not cache what it read.
func TestCacheSkipsFillRacingAWrite(t *testing.T) {
	_, rdb := liveRedis(t)
	rc := NewResponseCache(config.CacheConfig{Enabled: true, Prefix: "cache", TTL: time.Minute}, rdb, zerolog.Nop())

	var mu sync.Mutex
	title := "old"
	read, release := make(chan struct{}), make(chan struct{})
	slow := true

	e := echo.New()
	e.GET("/api/movies", func(c echo.Context) error {
		mu.Lock()
		snapshot, block := title, slow
		slow = false
		mu.Unlock()
		if block {
			close(read)
			<-release
		}
		return c.JSON(http.StatusOK, []string{snapshot})
	}, rc.Middleware(NamespaceMovies))
	e.POST("/api/movies", func(c echo.Context) error {
		mu.Lock()
		title = "new"
		mu.Unlock()
		return c.NoContent(http.StatusCreated)
	}, rc.Invalidate(NamespaceMovies))

	done := make(chan *httptest.ResponseRecorder)
	go func() { done <- serve(e, http.MethodGet, "/api/movies", nil) }()
	<-read
	require.Equal(t, http.StatusCreated, serve(e, http.MethodPost, "/api/movies", nil).Code)
	close(release)
	stale := <-done
	assert.JSONEq(t, `["old"]`, stale.Body.String())

	rec := serve(e, http.MethodGet, "/api/movies", nil)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.JSONEq(t, `["new"]`, rec.Body.String())
}

func TestTokenBucketLimits(t *testing.T) {
	_, rdb := liveRedis(t)
	cfg := config.RateLimitConfig{Enabled: true, Capacity: 1, RefillTokens: 1, RefillInterval: time.Hour, TTL: 2 * time.Hour, Prefix: "rl", KeyStrategy: "ip", Debug: true}
	e := echo.New()
	e.POST("/api/users/login", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, NewTokenBucket(cfg, rdb, zerolog.Nop()))

	ok := serve(e, http.MethodPost, "/api/users/login", nil)
	assert.Equal(t, http.StatusOK, ok.Code)
	assert.Equal(t, "1", ok.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", ok.Header().Get("X-RateLimit-Remaining"))
	assert.Regexp(t, `^rl:ip:`, ok.Header().Get("X-RateLimit-Key"))

	blocked := serve(e, http.MethodPost, "/api/users/login", nil)
	assert.Equal(t, http.StatusTooManyRequests, blocked.Code)
	assert.Equal(t, "0", blocked.Header().Get("X-RateLimit-Remaining"))
	retry, err := strconv.Atoi(blocked.Header().Get("Retry-After"))
	require.NoError(t, err)
	assert.InDelta(t, 3600, retry, 2)
	assert.Contains(t, blocked.Body.String(), `"message":"Too many requests"`)
	assert.Contains(t, blocked.Body.String(), `"retry_after":`)
}
