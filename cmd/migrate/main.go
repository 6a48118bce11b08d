package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"github.com/segyhp/library-engine/internal/config"
	"github.com/segyhp/library-engine/internal/repository"
	"github.com/segyhp/library-engine/migrations"
	"github.com/segyhp/library-engine/pkg/logger"
)

func main() {
	log, err := logger.New("info", "console")
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Info("No .env file found, using existing environment variables")
	}

	dbCfg, err := config.LoadDatabase()
	if err != nil {
		log.Fatal("Failed to load database configuration", zap.Error(err))
	}

	ctx := context.Background()

	db, err := repository.NewPostgresDB(ctx, dbCfg)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	log.Info("Connected to Postgres successfully")

	// Get command from arguments (default to "up")
	command := "up"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		log.Fatal("Failed to set dialect", zap.Error(err))
	}

	// Run goose command
	log.Info("Running migrations", zap.String("command", command))
	switch command {
	case "up":
		if err := goose.UpContext(ctx, db.DB, "."); err != nil {
			log.Fatal("Failed to run migrations", zap.Error(err))
		}
		log.Info("Migrations completed successfully")
	case "down":
		if err := goose.DownContext(ctx, db.DB, "."); err != nil {
			log.Fatal("Failed to rollback migration", zap.Error(err))
		}
		log.Info("Rollback completed successfully")
	case "status":
		if err := goose.StatusContext(ctx, db.DB, "."); err != nil {
			log.Fatal("Failed to get migration status", zap.Error(err))
		}
	case "version":
		version, err := goose.GetDBVersionContext(ctx, db.DB)
		if err != nil {
			log.Fatal("Failed to get version", zap.Error(err))
		}
		log.Info("Current migration version", zap.Int64("version", version))
	default:
		log.Fatal("Unknown command, available commands: up, down, status, version", zap.String("command", command))
	}
}
