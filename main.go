package main

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/block-nexus/blocknexus-site/config"
	"github.com/block-nexus/blocknexus-site/handlers"
	"github.com/block-nexus/blocknexus-site/logger"
	"github.com/block-nexus/blocknexus-site/router"
	"github.com/block-nexus/blocknexus-site/services"
	"github.com/block-nexus/blocknexus-site/store"
	"github.com/block-nexus/blocknexus-site/validation"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

const version = "1.0.0"

func main() {
	// Initialize logger
	logger.InitLogger()
	log := logger.GetLogger()
	defer func() { _ = logger.Close() }()

	// .env is optional; real environments set variables directly.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Rate-limit store: in-process by default, Redis when configured for
	// multi-instance deployments.
	var limitStore store.RateLimitStore
	if cfg.Redis.Enabled {
		redisOptions := &redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}
		if cfg.IsProduction() {
			host := cfg.Redis.Address
			if h, _, err := net.SplitHostPort(host); err == nil {
				host = h
			}
			redisOptions.TLSConfig = &tls.Config{
				ServerName: host,
				MinVersion: tls.VersionTLS12,
			}
		}
		limitStore = store.NewRedisStore(redis.NewClient(redisOptions))
	} else {
		limitStore = store.NewMemoryStore()
	}
	store.StartSweeper(ctx, limitStore,
		time.Duration(cfg.RateLimit.SweepIntervalSeconds)*time.Second)

	// Services and handlers
	emailService := services.NewEmailService(&cfg.Email)
	contactValidator := validation.New(cfg.Validation.DisposableEmailDomains)
	contactHandler := handlers.NewContactHandler(contactValidator, emailService)
	healthHandler := handlers.NewHealthHandler(version)

	r := router.SetupRouter(router.Dependencies{
		Config:         cfg,
		ContactHandler: contactHandler,
		HealthHandler:  healthHandler,
		RateLimitStore: limitStore,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof("Starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Server shutdown failed", "error", err)
	}

	// Let detached confirmation emails finish before exiting.
	contactHandler.Wait()
}
