package middleware

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/Amoako419/PhotoShare/internal/rate"
	"github.com/Amoako419/PhotoShare/pkg/logger"
)

// RateLimit applies the two-window limiter to an operation, keyed by
// client IP. The rejection carries a Retry-After header but never says
// which window tripped.
func RateLimit(limiter rate.Limiter, operation string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			retryAfter, err := limiter.Allow(c.Request().Context(), operation, c.RealIP())
			if errors.Is(err, rate.ErrRateLimited) {
				logger.FromEcho(c).Warn("rate limit exceeded",
					zap.String("operation", operation),
					zap.String("ip", c.RealIP()))
				c.Response().Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())+1))
				return echo.NewHTTPError(http.StatusTooManyRequests, "too many requests")
			}
			if err != nil {
				// The limiter backend failing must not take auth down
				// with it. Log and let the request through.
				logger.FromEcho(c).Error("rate limiter unavailable", zap.Error(err))
			}
			return next(c)
		}
	}
}
