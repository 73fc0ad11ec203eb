package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"elib/internal/ratelimit"
	"elib/internal/util"
	"elib/pkg/storage"
	"elib/pkg/store"
	"elib/services/api/internal/app"
	"elib/services/api/internal/config"
	"elib/services/api/internal/server"
)

const (
	shutdownTimeout  = 10 * time.Second
	redisPingTimeout = 3 * time.Second
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, cfg); err != nil {
		stop()
		log.Fatal(err)
	}
}

// run wires the service and serves until ctx is done. Resources opened here
// are released on every return path.
func run(ctx context.Context, cfg config.FileConfig) error {
	logger := util.InitLogger(cfg.LogLevel)

	var dataStore store.Store
	switch cfg.StoreDriver {
	case "memory":
		dataStore = store.NewMemoryStore()
	default:
		gormStore, err := store.NewGormStore(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to init store: %w", err)
		}
		defer gormStore.Close()
		dataStore = gormStore
	}

	var (
		revoker         store.TokenRevoker = store.NewMemoryTokenRevoker()
		registerLimiter server.Limiter
		loginLimiter    server.Limiter
	)
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		defer redisClient.Close()
		pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			logger.Warn("redis ping failed; continuing", "addr", cfg.RedisAddr, "err", err)
		}
		cancel()
		revoker = store.NewRedisTokenRevokerWithClient(redisClient)
		register, err := ratelimit.NewFixedWindowLimiter(redisClient, "elib:ratelimit:register", 5, time.Minute)
		if err != nil {
			return fmt.Errorf("failed to init rate limiter: %w", err)
		}
		login, err := ratelimit.NewFixedWindowLimiter(redisClient, "elib:ratelimit:login", 10, time.Minute)
		if err != nil {
			return fmt.Errorf("failed to init rate limiter: %w", err)
		}
		registerLimiter, loginLimiter = register, login
	} else {
		logger.Warn("redis not configured; rate limiting disabled and revocations kept in memory")
	}

	sessions, err := store.NewJWTSessionStore(cfg.JWTSecret, cfg.TokenTTLDuration(), revoker)
	if err != nil {
		return fmt.Errorf("failed to init sessions: %w", err)
	}

	objects, err := storage.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL, cfg.StoragePublicBaseURL)
	if err != nil {
		return fmt.Errorf("failed to init object storage: %w", err)
	}
	staging, err := storage.NewStaging(cfg.StagingDir, cfg.MaxUploadBytes)
	if err != nil {
		return fmt.Errorf("failed to init staging: %w", err)
	}

	appCore, err := app.New(app.Config{
		Store:    dataStore,
		Assets:   storage.NewTransferrer(objects, cfg.StorageTimeoutDuration()),
		Sessions: sessions,
	})
	if err != nil {
		return fmt.Errorf("failed to init app: %w", err)
	}

	trusted, err := util.NewTrustedProxies(cfg.TrustedProxyCIDRs)
	if err != nil {
		return fmt.Errorf("failed to parse trusted proxies: %w", err)
	}

	httpServer, err := server.New(server.Config{
		App:             appCore,
		Staging:         staging,
		MaxUploadBytes:  cfg.MaxUploadBytes,
		Production:      cfg.IsProduction(),
		CORSOrigin:      cfg.CORSOrigin,
		TrustedProxies:  trusted,
		RegisterLimiter: registerLimiter,
		LoginLimiter:    loginLimiter,
	})
	if err != nil {
		return fmt.Errorf("failed to init server: %w", err)
	}

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("elib api listening", "addr", addr, "env", cfg.Env, "store", cfg.StoreDriver)
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	}
}
