package middleware

import (
	"net"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mbelenkov/microshop/internal/gateway/ratelimit"
)

func RateLimit(limiter ratelimit.Limiter, limit int, window time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			decision := limiter.Allow(keyIP(c.Request()), limit, window)
			if !decision.Allowed {
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}
			return next(c)
		}
	}
}

func keyIP(req *http.Request) string {
	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		host = req.RemoteAddr
	}
	if host == "" {
		host = "unknown"
	}
	return "ip:" + host
}
