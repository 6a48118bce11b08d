package main

import (
	"context"
	"errors"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/segyhp/library-engine/internal/auth"
	"github.com/segyhp/library-engine/internal/config"
	"github.com/segyhp/library-engine/internal/handler"
	"github.com/segyhp/library-engine/internal/repository"
	"github.com/segyhp/library-engine/internal/repository/memory"
	"github.com/segyhp/library-engine/internal/service"
	"github.com/segyhp/library-engine/pkg/logger"
	"github.com/segyhp/library-engine/pkg/response"
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

	ctx := context.Background()

	// Initialize storage
	var (
		db          *sqlx.DB
		loanRepo    repository.LoanRepository
		catalogRepo repository.CatalogRepository
	)
	if cfg.Database.UseMemoryStore {
		if !cfg.IsDevelopment() {
			log.Warn("Using in-memory store outside development, data is lost on restart", zap.String("env", cfg.Server.Env))
		}
		store := memory.NewStore()
		loanRepo, catalogRepo = store, store
	} else {
		db, err = repository.NewPostgresDB(ctx, cfg.Database)
		if err != nil {
			log.Fatal("Failed to initialize database", zap.Error(err))
		}
		defer db.Close()

		if err := repository.Migrate(ctx, db); err != nil {
			log.Fatal("Failed to apply migrations", zap.Error(err))
		}

		loanRepo = repository.NewLoanRepository(db)
		catalogRepo = repository.NewCatalogRepository(db)
	}

	// Initialize Redis, used by readiness only
	var redisClient redis.UniversalClient
	if cfg.Redis.Enabled() {
		client := initRedis(cfg)
		defer client.Close()
		redisClient = client
	}

	// Initialize services
	loanService := service.NewLoanService(loanRepo, catalogRepo, cfg.SchedulerLocation())
	availabilityService := service.NewAvailabilityService(loanRepo, catalogRepo)
	catalogService := service.NewCatalogService(catalogRepo)

	issuer := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)

	// Setup routes
	router := handler.NewRouter(handler.Handlers{
		Loans:   handler.NewLoanHandler(loanService, log),
		Catalog: handler.NewCatalogHandler(availabilityService, catalogService, log),
		Health:  handler.NewHealthHandler(db, redisClient, cfg.Health.Timeout, log),
	}, issuer, log)

	// Start server
	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      response.CORSMiddleware(router),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in a goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", server.Addr), zap.String("env", cfg.Server.Env))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
		return
	}

	log.Info("Server exited")
}

func initRedis(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}
