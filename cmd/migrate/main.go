package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/ad-tracker/thumbnail-service-go/internal/config"
	"github.com/ad-tracker/thumbnail-service-go/pkg/logger"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"
)

func main() {
	var (
		dbURL          string
		migrationsPath string
		direction      string
		steps          int
	)

	flag.StringVar(&dbURL, "db", "", "Database URL (defaults to the configured database)")
	flag.StringVar(&migrationsPath, "path", "", "Path to migrations directory (defaults to database.migrationspath)")
	flag.StringVar(&direction, "direction", "up", "Migration direction: up, down, or version")
	flag.IntVar(&steps, "steps", 0, "Number of steps to migrate (0 means all)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "migrate: load config: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.File); err != nil {
		fmt.Fprintf(os.Stderr, "migrate: init logger: %v\n", err)
		os.Exit(1)
	}
	log := logger.Named("migrate")
	defer func() { _ = logger.Sync() }()

	if dbURL == "" {
		dbURL = cfg.Database.DSN()
	}
	if migrationsPath == "" {
		migrationsPath = cfg.Database.MigrationsPath
	}

	m, err := migrate.New("file://"+migrationsPath, dbURL)
	if err != nil {
		log.Fatal("Failed to create migrate instance", zap.Error(err))
	}
	defer m.Close()

	switch direction {
	case "up":
		if steps > 0 {
			err = m.Steps(steps)
		} else {
			err = m.Up()
		}
	case "down":
		if steps > 0 {
			err = m.Steps(-steps)
		} else {
			err = m.Down()
		}
	case "version":
		err = nil
	default:
		log.Fatal("Invalid direction, must be up, down or version", zap.String("direction", direction))
	}

	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatal("Migration failed", zap.Error(err))
	}

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		log.Info("Migration completed (no version)")
		return
	}
	if err != nil {
		log.Fatal("Failed to get migration version", zap.Error(err))
	}

	log.Info("Migration completed", zap.Uint("version", version), zap.Bool("dirty", dirty))
}
