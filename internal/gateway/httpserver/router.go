package httpserver

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mbelenkov/microshop/internal/gateway/middleware"
	"github.com/mbelenkov/microshop/internal/gateway/ratelimit"
)

type Deps struct {
	AuthURL    string
	ProductURL string

	UpstreamTimeout time.Duration

	// Rate limiting is off when Limiter is nil or Limit is zero.
	Limiter    ratelimit.Limiter
	RateLimit  int
	RateWindow time.Duration
}

func Register(e *echo.Echo, d *Deps) error {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	for _, m := range middleware.Common() {
		e.Use(m)
	}
	if d.Limiter != nil && d.RateLimit > 0 {
		e.Use(middleware.RateLimit(d.Limiter, d.RateLimit, d.RateWindow))
	}

	timeout := d.UpstreamTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	authProxy, err := newProxy(d.AuthURL, "/auth", timeout)
	if err != nil {
		return err
	}

	productProxy, err := newProxy(d.ProductURL, "", timeout)
	if err != nil {
		return err
	}

	e.Any("/auth/*", authProxy)
	e.Any("/products", productProxy)
	e.Any("/products/*", productProxy)

	return nil
}
