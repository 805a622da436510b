package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/mbelenkov/microshop/internal/product/httpserver"
	"github.com/mbelenkov/microshop/internal/product/models"
	"github.com/mbelenkov/microshop/internal/product/repo"
	"github.com/mbelenkov/microshop/internal/product/service"
	"github.com/mbelenkov/microshop/pkg/broker"
	"github.com/mbelenkov/microshop/pkg/config"
	"github.com/mbelenkov/microshop/pkg/db"
	"github.com/mbelenkov/microshop/pkg/logging"
	loggingmw "github.com/mbelenkov/microshop/pkg/middleware/logging"
)

func main() {
	cfg := config.Load()
	config.MustNonEmpty(cfg.DatabaseURL, "DATABASE_URL")
	config.MustNonEmptyBytes(cfg.JWTSecret, "JWT_SECRET")

	logger := logging.New(cfg.LogLevel)
	slog.SetDefault(logger)

	dbConn, err := db.Open(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}
	if err := dbConn.AutoMigrate(&models.Product{}); err != nil {
		log.Fatalf("db migrate error: %v", err)
	}

	var prod *broker.Producer
	if len(cfg.KafkaBrokers) > 0 {
		prod = broker.NewProducer(cfg.KafkaBrokers, logger)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := prod.Connect(ctx); err != nil {
			logger.Warn("broker unreachable at startup, events degrade to best effort", "error", err)
		}
		cancel()
	}

	svc := &service.ProductService{
		Repo:         &repo.GormRepo{DB: dbConn},
		Producer:     prod,
		ProductTopic: cfg.ProductTopic,
	}

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID())
	e.Use(loggingmw.RequestLogger(logger))

	httpserver.Register(e, &httpserver.Deps{
		Product:   &httpserver.ProductHTTP{Svc: svc},
		JWTSecret: cfg.JWTSecret,
	})

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	if sqlDB, err := dbConn.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("db close error: %v", err)
		}
	} else {
		log.Printf("db() error: %v", err)
	}

	if prod != nil {
		if err := prod.Close(); err != nil {
			log.Printf("kafka close error: %v", err)
		}
	}

	log.Println("shutdown complete")
}
