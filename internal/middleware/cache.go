package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/iliyamo/movie-review-api/internal/config"
)

// Cache namespaces.  A write to a resource bumps its namespace generation
// and purges the entries of older generations.
const (
	NamespaceMovies  = "movies"
	NamespaceReviews = "reviews"
)

const scanBatch = 200

// fillIfCurrent stores an entry only while the namespace generation still
// equals the one read before the handler ran, so a response built from data
// older than a concurrent write is never cached.
//
// KEYS[1] generation key, KEYS[2] entry key.
// ARGV[1] expected generation, ARGV[2] payload, ARGV[3] ttl in ms.
var fillIfCurrent = redis.NewScript(`
if (redis.call('GET', KEYS[1]) or '0') ~= ARGV[1] then
  return 0
end
redis.call('SET', KEYS[2], ARGV[2], 'PX', ARGV[3])
return 1
`)

// captureWriter tees the response body, up to limit bytes, into buf.
type captureWriter struct {
	http.ResponseWriter
	status    int
	buf       bytes.Buffer
	limit     int64
	truncated bool
}

func (cw *captureWriter) WriteHeader(code int) {
	cw.status = code
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
	if !cw.truncated {
		if cw.limit > 0 && int64(cw.buf.Len()+len(b)) > cw.limit {
			cw.truncated = true
			cw.buf.Reset()
		} else {
			cw.buf.Write(b)
		}
	}
	return cw.ResponseWriter.Write(b)
}

// ResponseCache stores successful GET responses in Redis, headers included,
// so a hit is byte-identical to the original response.
type ResponseCache struct {
	cfg config.CacheConfig
	rdb *redis.Client
	log zerolog.Logger
}

// NewResponseCache returns a cache that is inert when disabled or without a
// Redis client.
func NewResponseCache(cfg config.CacheConfig, rdb *redis.Client, log zerolog.Logger) *ResponseCache {
	return &ResponseCache{cfg: cfg, rdb: rdb, log: log}
}

func (rc *ResponseCache) enabled() bool { return rc != nil && rc.cfg.Enabled && rc.rdb != nil }

func (rc *ResponseCache) genKey(namespace string) string {
	return rc.cfg.Prefix + ":gen:" + namespace
}

func (rc *ResponseCache) key(namespace, gen string, c echo.Context) string {
	sum := sha1.Sum([]byte(c.Path() + "?" + c.Request().URL.RawQuery))
	return fmt.Sprintf("%s:%s:%s:%x", rc.cfg.Prefix, namespace, gen, sum[:])
}

// generation returns the current generation of namespace, "0" before the
// first write.
func (rc *ResponseCache) generation(ctx context.Context, namespace string) (string, error) {
	gen, err := rc.rdb.Get(ctx, rc.genKey(namespace)).Result()
	if errors.Is(err, redis.Nil) {
		return "0", nil
	}
	return gen, err
}

func ttlMillis(ttl time.Duration) int64 {
	if ms := ttl.Milliseconds(); ms > 0 {
		return ms
	}
	return 1
}

// Middleware serves GET requests from namespace, filling it on a 200 miss.
func (rc *ResponseCache) Middleware(namespace string) echo.MiddlewareFunc {
	if !rc.enabled() {
		return passthrough
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Method != http.MethodGet {
				return next(c)
			}
			ctx := c.Request().Context()
			gen, err := rc.generation(ctx, namespace)
			if err != nil {
				rc.log.Warn().Err(err).Str("namespace", namespace).Msg("cache generation read failed")
				c.Response().Header().Set("X-Cache", "MISS")
				return next(c)
			}
			key := rc.key(namespace, gen, c)

			if bs, err := rc.rdb.Get(ctx, key).Bytes(); err == nil {
				if status, hdr, body, ok := decodePayload(bs); ok {
					h := c.Response().Header()
					for k, vals := range hdr {
						if strings.EqualFold(k, echo.HeaderContentLength) || strings.EqualFold(k, echo.HeaderXRequestID) {
							continue
						}
						h[k] = vals
					}
					h.Set("X-Cache", "HIT")
					c.Response().WriteHeader(status)
					_, err := c.Response().Write(body)
					return err
				}
			} else if !errors.Is(err, redis.Nil) {
				rc.log.Warn().Err(err).Str("key", key).Msg("cache read failed")
			}

			cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: int64(rc.cfg.MaxBodyBytes)}
			c.Response().Writer = cw
			c.Response().Header().Set("X-Cache", "MISS")

			if err := next(c); err != nil {
				return err
			}
			if cw.status != http.StatusOK || cw.truncated {
				return nil
			}
			hdr := c.Response().Header().Clone()
			hdr.Del("X-Cache")
			payload, err := encodePayload(cw.status, hdr, cw.buf.Bytes())
			if err != nil {
				return nil
			}
			keys := []string{rc.genKey(namespace), key}
			if err := fillIfCurrent.Run(context.WithoutCancel(ctx), rc.rdb, keys, gen, payload, ttlMillis(rc.cfg.TTL)).Err(); err != nil {
				rc.log.Warn().Err(err).Str("key", key).Msg("cache write failed")
			}
			return nil
		}
	}
}

// Purge deletes every entry of namespace.  The generation counter survives.
func (rc *ResponseCache) Purge(ctx context.Context, namespace string) error {
	if !rc.enabled() {
		return nil
	}
	pattern := rc.cfg.Prefix + ":" + namespace + ":*"
	var cursor uint64
	for {
		keys, next, err := rc.rdb.Scan(ctx, cursor, pattern, scanBatch).Result()
		if err != nil {
			return fmt.Errorf("scan %s: %w", pattern, err)
		}
		if len(keys) > 0 {
			if err := rc.rdb.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("del %s: %w", pattern, err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// Invalidate bumps the generation of each namespace, then purges it, after
// the wrapped handler responds with a 2xx status.  The bump alone makes old
// entries unreachable; the purge reclaims their memory.
func (rc *ResponseCache) Invalidate(namespaces ...string) echo.MiddlewareFunc {
	if !rc.enabled() {
		return passthrough
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			if status := c.Response().Status; err != nil || status < 200 || status >= 300 {
				return err
			}
			ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request().Context()), 2*time.Second)
			defer cancel()
			for _, ns := range namespaces {
				if ierr := rc.rdb.Incr(ctx, rc.genKey(ns)).Err(); ierr != nil {
					rc.log.Warn().Err(ierr).Str("namespace", ns).Msg("cache generation bump failed")
				}
				if perr := rc.Purge(ctx, ns); perr != nil {
					rc.log.Warn().Err(perr).Str("namespace", ns).Msg("cache purge failed")
				}
			}
			return nil
		}
	}
}

// encodePayload packs [4 bytes status][4 bytes header length][header JSON][body].
func encodePayload(status int, header http.Header, body []byte) ([]byte, error) {
	hdr, err := json.Marshal(header)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 8+len(hdr)+len(body))
	binary.BigEndian.PutUint32(out[0:4], uint32(status))
	binary.BigEndian.PutUint32(out[4:8], uint32(len(hdr)))
	copy(out[8:], hdr)
	copy(out[8+len(hdr):], body)
	return out, nil
}

func decodePayload(bs []byte) (status int, header http.Header, body []byte, ok bool) {
	if len(bs) < 8 {
		return 0, nil, nil, false
	}
	status = int(binary.BigEndian.Uint32(bs[0:4]))
	hlen := int(binary.BigEndian.Uint32(bs[4:8]))
	if hlen < 0 || 8+hlen > len(bs) {
		return 0, nil, nil, false
	}
	header = http.Header{}
	if hlen > 0 {
		if err := json.Unmarshal(bs[8:8+hlen], &header); err != nil {
			return 0, nil, nil, false
		}
	}
	return status, header, bs[8+hlen:], true
}
