package main

import (
	"context"
	stdlog "log"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/segyhp/library-engine/internal/config"
	"github.com/segyhp/library-engine/internal/repository"
	"github.com/segyhp/library-engine/internal/scheduler"
	"github.com/segyhp/library-engine/internal/service"
	"github.com/segyhp/library-engine/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		stdlog.Fatalf("Failed to load configuration: %v", err)
	}

	log, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		stdlog.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = log.Sync() }()

	log = log.With(zap.String("component", "scheduler"))
	log.Info("Starting library scheduler...")

	if !cfg.Scheduler.OverdueSweepEnabled {
		log.Info("Overdue sweep disabled, nothing to schedule")
		return
	}
	if cfg.Database.UseMemoryStore {
		log.Fatal("The scheduler needs the shared Postgres store, USE_MEMORY_STORE is not supported")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := repository.NewPostgresDB(ctx, cfg.Database)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	loanRepo := repository.NewLoanRepository(db)
	catalogRepo := repository.NewCatalogRepository(db)
	loanService := service.NewLoanService(loanRepo, catalogRepo, cfg.SchedulerLocation())

	var lock *scheduler.RedisLock
	if cfg.Redis.Enabled() {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		lock = scheduler.NewRedisLock(redisClient, scheduler.OverdueLockKey, cfg.Scheduler.LockTTL)
	} else {
		log.Warn("REDIS_HOST is empty, running the sweep without a distributed lock")
	}

	sweeper := scheduler.NewOverdueSweeper(loanService, lock, log, cfg.Scheduler.LockTTL)

	// Initialize cron scheduler
	c := cron.New(
		cron.WithParser(cron.NewParser(config.CronParseOptions)),
		cron.WithLocation(cfg.SchedulerLocation()),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)

	// Schedule tasks
	if _, err := scheduler.Register(ctx, c, cfg.Scheduler.OverdueSweepCron, sweeper); err != nil {
		log.Fatal("Error scheduling overdue sweep job", zap.Error(err))
	}

	// Start the scheduler
	c.Start()
	log.Info("Scheduler started successfully",
		zap.String("overdue_sweep_cron", cfg.Scheduler.OverdueSweepCron),
		zap.String("timezone", cfg.Scheduler.Timezone),
	)

	// Wait for interrupt signal to gracefully shutdown
	<-ctx.Done()

	log.Info("Shutting down scheduler...")
	<-c.Stop().Done()
	log.Info("Scheduler stopped")
}
