package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mbelenkov/microshop/internal/gateway/httpserver"
	"github.com/mbelenkov/microshop/internal/gateway/ratelimit"
	"github.com/mbelenkov/microshop/pkg/config"
	"github.com/mbelenkov/microshop/pkg/logging"
	loggingmw "github.com/mbelenkov/microshop/pkg/middleware/logging"
)

func main() {
	cfg := config.Load()
	config.MustNonEmpty(cfg.AuthURL, "AUTH_URL")
	config.MustNonEmpty(cfg.ProductURL, "PRODUCT_URL")

	logger := logging.New(cfg.LogLevel)
	slog.SetDefault(logger)

	var limiter ratelimit.Limiter
	if cfg.RateLimit > 0 {
		if cfg.RedisAddr != "" {
			rl, err := ratelimit.NewRedisLimiter(cfg.RedisAddr, cfg.RedisPassword, 0, logger)
			if err != nil {
				logger.Warn("redis unavailable, using in-memory rate limiter", "error", err)
				limiter = ratelimit.NewMemoryLimiter()
			} else {
				limiter = rl
			}
		} else {
			limiter = ratelimit.NewMemoryLimiter()
		}
		defer limiter.Close()
	}

	e := echo.New()
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second
	e.Use(loggingmw.RequestLogger(logger))

	if err := httpserver.Register(e, &httpserver.Deps{
		AuthURL:    cfg.AuthURL,
		ProductURL: cfg.ProductURL,
		Limiter:    limiter,
		RateLimit:  cfg.RateLimit,
		RateWindow: cfg.RateWindow,
	}); err != nil {
		log.Fatal(err)
	}

	go func() {
		if err := e.Start(cfg.ListenAddr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Fatalf("shutdown: %v", err)
	}
}
