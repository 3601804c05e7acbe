package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/medagenda/clinic-scheduling/internal/config"
	"github.com/medagenda/clinic-scheduling/internal/db"
	"github.com/medagenda/clinic-scheduling/internal/logger"
	redisclient "github.com/medagenda/clinic-scheduling/internal/redis"
	"github.com/medagenda/clinic-scheduling/internal/scheduling"
)

// notify-worker periodically sweeps finished appointments whose payment was
// recorded but whose payment notification was never flagged as sent, and
// marks them. The sweep is best-effort: per-appointment failures are logged
// and retried on the next tick.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	zlog, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	zlog.Info("notify-worker starting up",
		zap.String("env", cfg.Env),
		zap.Duration("interval", cfg.WorkerInterval),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN, cfg.PgMaxConns)
	cancelPg()
	if err != nil {
		zlog.Fatal("postgres connection error", zap.Error(err))
	}
	defer pgPool.Close()
	zlog.Info("connected to Postgres")

	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword, cfg.RedisPoolSize)
	if err != nil {
		zlog.Fatal("redis connection error", zap.Error(err))
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			zlog.Warn("error closing redis", zap.Error(err))
		}
	}()
	zlog.Info("connected to Redis")

	repo := scheduling.NewPgRepository(pgPool)
	locker := redisclient.NewRedisLocker(rdb, cfg.LockTTL)
	svc := scheduling.NewService(repo, locker, nil, zlog)

	// Run once at startup
	runOnce(rootCtx, repo, svc, zlog)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			zlog.Info("shutdown signal received, stopping notify-worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, repo, svc, zlog)
		}
	}
}

func runOnce(ctx context.Context, repo *scheduling.PgRepository, svc *scheduling.Service, zlog *zap.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()

	pending, err := repo.FindPaymentNotifiable(runCtx, 200)
	if err != nil {
		zlog.Error("notification sweep query failed", zap.Error(err))
		return
	}
	if len(pending) == 0 {
		zlog.Debug("notification sweep: nothing to do")
		return
	}

	notified, err := svc.MarkPaymentNotified(runCtx, pending)
	if err != nil {
		zlog.Error("notification sweep failed", zap.Error(err))
		return
	}

	zlog.Info("notification sweep complete",
		zap.Int("candidates", len(pending)),
		zap.Int("notified", notified),
		zap.Duration("took", time.Since(start)),
	)
}
