// File: cmd/app/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"assessment-activation/internal/config"
	"assessment-activation/internal/domain"
	aiAdapters "assessment-activation/internal/infra/adapters/ai"
	pg "assessment-activation/internal/infra/db/postgres"
	"assessment-activation/internal/infra/logging"
	"assessment-activation/internal/infra/metrics"
	red "assessment-activation/internal/infra/redis"
	"assessment-activation/internal/infra/scheduler"
	"assessment-activation/internal/infra/web"
	"assessment-activation/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "development mode (console logs, relaxed redaction)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("dev mode enabled")
	}

	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connect failed")
	}
	defer pool.Close()
	if err := pg.InitSchema(ctx, pool); err != nil {
		logger.Fatal().Err(err).Msg("schema init failed")
	}

	// ---- Redis (optional; absent addr disables rate limiting) ----
	var limiter *red.RateLimiter
	if cfg.Redis.Addr != "" {
		redisClient, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis connect failed")
		}
		defer redisClient.Close()
		limiter = red.NewRateLimiter(redisClient)
	} else {
		logger.Warn().Msg("redis.addr not set; rate limiting disabled")
	}

	// ---- Repositories ----
	codeRepo := pg.NewActivationCodeRepo(pool)
	recordRepo := pg.NewRedemptionRecordRepo(pool)
	adminRepo := pg.NewAdminUserRepo(pool)
	sessionRepo := pg.NewAdminSessionRepo(pool)
	txManager := pg.NewTxManager(pool)

	// ---- Use cases ----
	activationUC := usecase.NewActivationUseCase(codeRepo, recordRepo, txManager, logger)
	adminCodeUC := usecase.NewAdminCodeUseCase(codeRepo, recordRepo, logger)
	authUC := usecase.NewAdminAuthUseCase(adminRepo, sessionRepo, logger)

	var analysisUC *usecase.AnalysisUseCase
	if cfg.AI.APIKey != "" {
		ai, err := aiAdapters.NewOpenAIAdapter(cfg.AI.APIKey, cfg.AI.Model, cfg.AI.BaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("ai adapter init failed")
		}
		analysisUC = usecase.NewAnalysisUseCase(ai, logger)
		logger.Info().Str("model", cfg.AI.Model).Msg("ai analysis enabled")
	} else {
		logger.Warn().Msg("ai.api_key not set; /ai/generate returns fallback responses")
	}

	// ---- Bootstrap admin ----
	if cfg.Bootstrap.AdminUsername != "" && cfg.Bootstrap.AdminPassword != "" {
		_, err := authUC.CreateAdmin(ctx, cfg.Bootstrap.AdminUsername, cfg.Bootstrap.AdminPassword, "bootstrap", "")
		if err != nil && !errors.Is(err, domain.ErrAlreadyExists) {
			logger.Fatal().Err(err).Msg("bootstrap admin failed")
		}
	}

	// ---- Session reaper ----
	reaper := scheduler.NewScheduler(time.Hour, authUC, logger)
	reaper.Start(ctx)
	defer reaper.Stop()

	// ---- HTTP server ----
	srv := web.NewServer(activationUC, adminCodeUC, authUC, analysisUC, limiter, cfg.Redis, logger)
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      srv.Routes(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSec) * time.Second,
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server stopped")
			cancel()
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigc:
	case <-ctx.Done():
	}
	logger.Info().Msg("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown failed")
	}
}
