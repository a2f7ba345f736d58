package middleware

import (
	"bytes"
	"crypto/sha1"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/ascendedtech/techlab-server/internal/config"
)

// bodyRecorder tees the response body up to a size limit while forwarding it
// to the client unchanged.
type bodyRecorder struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
	size   int64
	limit  int64
}

func (r *bodyRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *bodyRecorder) Write(b []byte) (int, error) {
	if r.size < r.limit {
		remain := r.limit - r.size
		if int64(len(b)) <= remain {
			r.buf.Write(b)
		} else {
			r.buf.Write(b[:remain])
		}
	}
	r.size += int64(len(b))
	return r.ResponseWriter.Write(b)
}

func cacheKey(prefix string, c echo.Context) string {
	sum := sha1.Sum([]byte(c.Path() + "?" + c.Request().URL.RawQuery))
	return fmt.Sprintf("%s:%x", prefix, sum)
}

// NewResponseCache caches successful JSON GET responses in Redis for the
// configured TTL.  The admin summary endpoints are its target: their queries
// scan whole tables, and dashboards poll them every few seconds.  Responses
// that fail, exceed the body limit, or use another method pass through.
func NewResponseCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return func(c echo.Context) error { return next(c) } }
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Method != http.MethodGet {
				return next(c)
			}

			key := cacheKey(cfg.Prefix, c)
			ctx := c.Request().Context()

			if body, err := rdb.Get(ctx, key).Bytes(); err == nil {
				c.Response().Header().Set("X-Cache", "HIT")
				return c.JSONBlob(http.StatusOK, body)
			}

			rec := &bodyRecorder{
				ResponseWriter: c.Response().Writer,
				status:         http.StatusOK,
				limit:          int64(cfg.MaxBodyBytes),
			}
			c.Response().Writer = rec
			c.Response().Header().Set("X-Cache", "MISS")

			if err := next(c); err != nil {
				return err
			}

			// Only complete 200 JSON bodies are worth replaying.
			if rec.status == http.StatusOK && rec.size <= rec.limit {
				if err := rdb.Set(ctx, key, rec.buf.Bytes(), ttl).Err(); err != nil {
					c.Logger().Warnf("response cache: storing %s: %v", key, err)
				}
			}
			return nil
		}
	}
}
