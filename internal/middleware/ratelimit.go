package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/emilythestrangee/stackit/backend/internal/response"
)

// NewRateLimiter returns a fixed-window limiter allowing limit requests per
// period for each key. Counters live in process memory.
func NewRateLimiter(limit int, period time.Duration) *limiter.Limiter {
	return limiter.New(memory.NewStore(), limiter.Rate{Period: period, Limit: int64(limit)})
}

// RateLimit rejects a client address with 429 once it used up its requests
// for the current window. Each scope gets its own limiter so separate routes
// do not share a budget.
func RateLimit(scope string, l *limiter.Limiter) gin.HandlerFunc {
	return mgin.NewMiddleware(l,
		mgin.WithLimitReachedHandler(limitReached),
		mgin.WithErrorHandler(func(c *gin.Context, err error) {
			slog.Error("rate limiter failed", "scope", scope, "error", err)
			response.Fail(c, http.StatusInternalServerError, "Internal server error")
		}),
	)
}

// limitReached runs after the driver set X-RateLimit-Reset to the window's
// end as a unix timestamp.
func limitReached(c *gin.Context) {
	retry := int64(1)
	if reset, err := strconv.ParseInt(c.Writer.Header().Get("X-RateLimit-Reset"), 10, 64); err == nil {
		if d := reset - time.Now().Unix(); d > retry {
			retry = d
		}
	}
	c.Header("Retry-After", strconv.FormatInt(retry, 10))
	response.Fail(c, http.StatusTooManyRequests, "Rate limit exceeded, try again later")
}
