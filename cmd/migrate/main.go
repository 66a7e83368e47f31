package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/stockops/backend/internal/infrastructure/config"
	"github.com/stockops/backend/internal/infrastructure/logger"
)

const defaultMigrationsPath = "migrations"

func main() {
	var (
		migrationsPath string
		logLevel       string
	)
	flag.StringVar(&migrationsPath, "path", defaultMigrationsPath, "Path to migrations directory")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}
	command := args[0]

	log, err := logger.New(&logger.Config{Level: logLevel, Format: "console", Output: "stdout"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = log.Sync()
	}()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	absPath, err := filepath.Abs(migrationsPath)
	if err != nil {
		log.Fatal("Failed to resolve migrations path", zap.Error(err))
	}

	m, err := migrate.New("file://"+absPath, cfg.Database.MigrateURL())
	if err != nil {
		log.Fatal("Failed to initialize migrator", zap.Error(err))
	}
	defer func() {
		_, _ = m.Close()
	}()

	switch command {
	case "up":
		err = m.Up()
	case "down":
		err = m.Steps(-1)
	case "drop":
		err = m.Drop()
	case "force":
		if len(args) < 2 {
			log.Fatal("Version required. Usage: migrate force <version>")
		}
		version, convErr := strconv.Atoi(args[1])
		if convErr != nil {
			log.Fatal("Invalid version", zap.Error(convErr))
		}
		err = m.Force(version)
	case "version":
		version, dirty, verErr := m.Version()
		if verErr != nil && !errors.Is(verErr, migrate.ErrNilVersion) {
			log.Fatal("Failed to read version", zap.Error(verErr))
		}
		log.Info("Migration state", zap.Uint("version", version), zap.Bool("dirty", dirty))
		return
	default:
		printUsage()
		os.Exit(1)
	}

	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatal("Migration failed", zap.String("command", command), zap.Error(err))
	}
	log.Info("Migration complete", zap.String("command", command))
}

func printUsage() {
	fmt.Println(`Usage: migrate [flags] <command>

Commands:
  up             Apply all pending migrations
  down           Roll back the most recent migration
  drop           Drop everything in the database
  force <v>      Force the schema version without running migrations
  version        Print the current schema version

Flags:
  -path          Path to migrations directory (default: ./migrations)
  -log-level     Log level (default: info)`)
}
