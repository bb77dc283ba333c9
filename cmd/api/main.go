package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"storefront-downloads/internal/client"
	"storefront-downloads/internal/config"
	"storefront-downloads/internal/logger"
	"storefront-downloads/internal/repository"
	"storefront-downloads/internal/server"
	"storefront-downloads/internal/service"
	"storefront-downloads/internal/worker"
	"syscall"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

func main() {
	// load .env into os.Environ
	envErr := godotenv.Load()

	cfg := &config.Config{}
	if err := env.Parse(cfg); err != nil {
		log.Fatal().Err(err).Msg("failed to parse config")
	}

	logger.Setup(cfg.Log, cfg.Environment)
	if envErr != nil {
		log.Debug().Msg("no .env file found (ok in prod)")
	}

	if cfg.Stripe.SecretKey == "" {
		log.Warn().Msg("STRIPE_SECRET_KEY is not set; checkout calls will fail")
	}
	if cfg.Admin.Token == "" {
		log.Warn().Msg("ADMIN_TOKEN is not set; admin endpoints are locked")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	db, err := client.InitDBClient(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Database.Driver).Msg("failed to open database")
	}

	tokenRepo, rdb := initTokenRepository(ctx, cfg)
	if rdb != nil {
		defer rdb.Close()
	}

	stripeClient := client.NewStripeClient(&cfg.Stripe)

	purchaseRepo := repository.NewPurchaseRepository(db)
	webhookEventRepo := repository.NewWebhookEventRepository(db)

	paymentService := service.NewPaymentService(
		stripeClient,
		purchaseRepo,
		webhookEventRepo,
		tokenRepo,
		cfg.Stripe.Currency,
		cfg.Download.TokenTTL,
	)
	downloadService := service.NewDownloadService(tokenRepo, cfg.Download.Dir, cfg.Download.MaxTransferRetries)

	sweeper := worker.NewTokenSweeper(tokenRepo, cfg.Download.SweepInterval)
	go sweeper.Run(ctx)

	srv := server.NewServer(cfg, paymentService, downloadService)

	serverAddr := cfg.HTTP.Addr()
	log.Info().Str("addr", serverAddr).Str("token_store", cfg.Download.TokenStore).Msg("starting HTTP server")
	go func() {
		if err := srv.Start(serverAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("signal received, starting graceful shutdown")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
		os.Exit(1)
	}
	log.Info().Msg("server stopped")
}

func initTokenRepository(ctx context.Context, cfg *config.Config) (repository.TokenRepository, *redis.Client) {
	switch cfg.Download.TokenStore {
	case "memory":
		return repository.NewMemoryTokenRepository(), nil
	case "redis":
		if cfg.Redis.URL == "" {
			log.Fatal().Msg("DOWNLOAD_TOKEN_STORE=redis requires REDIS_URL")
		}
		rdb, err := client.InitRedisClient(ctx, cfg.Redis.URL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		return repository.NewRedisTokenRepository(rdb), rdb
	default:
		log.Fatal().Str("token_store", cfg.Download.TokenStore).Msg("unknown token store")
		return nil, nil
	}
}
