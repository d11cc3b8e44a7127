package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"go-billing-pos/internal/ai"
	"go-billing-pos/internal/auth"
	"go-billing-pos/internal/billing"
	"go-billing-pos/internal/config"
	"go-billing-pos/internal/database"
	"go-billing-pos/internal/handlers"
	"go-billing-pos/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zlog := logger.New(cfg.Log, cfg.App.Env)
	defer func() { _ = zlog.Sync() }()

	if err := run(cfg, zlog); err != nil {
		zlog.Fatal("Server stopped with error", zap.Error(err))
	}
}

func run(cfg *config.Config, zlog *zap.Logger) error {
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 1. Database
	gl := logger.NewGormLogger(zlog, logger.GormLevel(cfg.Database.LogLevel))
	db, err := database.Connect(cfg.Database, zlog, gl)
	if err != nil {
		return err
	}
	defer func() { _ = database.Close(db) }()

	// 2. Stock lock: Redis when several instances share the database, in-process otherwise
	locker, closeLocker, err := newLocker(cfg.Redis, zlog)
	if err != nil {
		return err
	}
	defer closeLocker()

	// 3. Billing service and the updated-bill worker
	reconciler := billing.NewReconciler(db, zlog, time.Now)
	queue := billing.NewReconcileQueue(db, reconciler, billing.QueueConfig{
		MaxAttempts:   cfg.Reconcile.MaxAttempts,
		RetryDelay:    cfg.Reconcile.RetryDelay,
		SweepInterval: cfg.Reconcile.SweepInterval,
		BatchSize:     cfg.Reconcile.BatchSize,
	}, zlog)
	svc := billing.NewService(db, locker, zlog, billing.WithNotifier(queue))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	queue.Start(ctx)

	// 4. HTTP
	secret := cfg.Auth.JWTSecret
	if secret == "" {
		secret = "dev-only-secret-change-me"
		zlog.Warn("auth.jwt_secret is empty, using the development secret")
	}
	issuer, err := auth.NewTokenIssuer(secret, cfg.Auth.TokenTTL)
	if err != nil {
		return err
	}

	deps := handlers.Deps{
		Service:           svc,
		Queue:             queue,
		Issuer:            issuer,
		AllowRegistration: cfg.Auth.AllowRegistration,
		CORSOrigins:       cfg.HTTP.CORSOrigins,
	}
	if cfg.AI.GeminiAPIKey != "" {
		agent, err := ai.NewAgent(cfg.AI, svc, zlog)
		if err != nil {
			return err
		}
		deps.Assistant = agent
	} else {
		zlog.Info("ai.gemini_api_key not set, /api/ask is disabled")
	}

	router, err := handlers.NewRouter(deps, zlog)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		zlog.Info("Server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.App.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		zlog.Info("Shutdown signal received")
	}

	// 5. Graceful shutdown: stop taking requests, then let the worker finish its job
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error("HTTP shutdown failed", zap.Error(err))
	}
	stop()
	if err := queue.Stop(shutdownCtx); err != nil {
		zlog.Error("Reconcile worker did not stop in time", zap.Error(err))
	}
	zlog.Info("Server stopped")
	return nil
}

func newLocker(cfg config.RedisConfig, zlog *zap.Logger) (billing.Locker, func(), error) {
	if cfg.Addr == "" {
		zlog.Info("redis.addr not set, stock mutations are serialized in this process only")
		return billing.NewLocalLocker(), func() {}, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, err
	}

	zlog.Info("Using Redis lock", zap.String("addr", cfg.Addr))
	return billing.NewRedisLocker(rdb, cfg.LockTTL), func() { _ = rdb.Close() }, nil
}

