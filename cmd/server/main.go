package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"stockroom/m/internal/api"
	"stockroom/m/internal/cache"
	"stockroom/m/internal/config"
	"stockroom/m/internal/database"
	"stockroom/m/internal/inventory"
	"stockroom/m/internal/migrations"
	"stockroom/m/internal/seed"
	"stockroom/m/internal/store"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()

	logger, err := newLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open store", zap.String("driver", cfg.DatabaseDriver), zap.Error(err))
	}
	defer st.Close()

	statsCache, guard, closeCache := openCache(ctx, cfg, logger)
	defer closeCache()

	svc := inventory.NewService(st, inventory.Options{
		Logger:            logger,
		Location:          cfg.Location,
		LowStockThreshold: cfg.LowStockThreshold,
		Cache:             statsCache,
		Idempotency:       guard,
	})

	if cfg.SeedCSV != "" {
		if _, err := seed.LoadGarments(ctx, svc, cfg.SeedCSV, logger); err != nil {
			logger.Fatal("failed to seed garments", zap.Error(err))
		}
	}

	handler := api.New(svc, st, cfg.Secret, logger)
	httpServer := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("stockroom server starting",
			zap.String("port", cfg.HTTPPort),
			zap.String("env", cfg.Env),
			zap.String("timezone", cfg.Location.String()))
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	if cfg.Production() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (store.Store, error) {
	if cfg.DatabaseDriver == config.DriverMemory {
		logger.Warn("using in-memory store; data is lost on restart")
		return store.NewMemory(), nil
	}

	db, err := database.Connect(ctx, cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}
	if err := migrations.Run(db); err != nil {
		db.Close()
		return nil, err
	}
	logger.Info("connected to database", zap.String("driver", cfg.DatabaseDriver))
	return store.NewSQL(db), nil
}

// openCache prefers Redis and falls back to the in-process cache when
// REDIS_ADDR is unset or unreachable.
func openCache(ctx context.Context, cfg config.Config, logger *zap.Logger) (inventory.StatsCache, inventory.IdempotencyGuard, func()) {
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			PoolSize: 20,
		})
		err := rdb.Ping(ctx).Err()
		if err == nil {
			logger.Info("connected to redis", zap.String("addr", cfg.RedisAddr))
			adapter := cache.NewRedisAdapter(rdb, cfg.StatsCacheTTL)
			return adapter, adapter, func() { rdb.Close() }
		}
		logger.Warn("redis unavailable, using in-process cache", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		rdb.Close()
	}
	mem := cache.NewMemory(cfg.StatsCacheTTL)
	return mem, mem, func() {}
}
