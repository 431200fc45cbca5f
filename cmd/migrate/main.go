package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"time"

	_ "github.com/lib/pq"
	"github.com/tenantapi/backend/internal/infrastructure/auth"
	"github.com/tenantapi/backend/internal/infrastructure/config"
	"github.com/tenantapi/backend/internal/infrastructure/logger"
	"github.com/tenantapi/backend/internal/infrastructure/migration"
	"github.com/tenantapi/backend/internal/infrastructure/persistence"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const defaultSourceDir = "internal/infrastructure/migration/sql"

func main() {
	var logLevel string
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Usage = printUsage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}
	command, rest := args[0], args[1:]

	log, err := logger.New(&logger.Config{Level: logLevel, Format: "console", Output: "stdout"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = log.Sync()
	}()

	// Commands that work on migration files only
	switch command {
	case "create":
		fs := flag.NewFlagSet("create", flag.ExitOnError)
		dir := fs.String("dir", defaultSourceDir, "Directory to write the migration pair into")
		_ = fs.Parse(rest)
		if fs.NArg() < 1 {
			log.Fatal("Migration name required. Usage: migrate create [-dir path] <name>")
		}
		created, err := migration.Create(*dir, fs.Arg(0), time.Now())
		if err != nil {
			log.Fatal("Failed to create migration", zap.Error(err))
		}
		log.Info("Migration created",
			zap.Uint("version", created.Version),
			zap.String("up_file", created.UpPath),
			zap.String("down_file", created.DownPath),
		)
		return

	case "list":
		entries, err := migration.List(migration.Files, migration.SourceDir)
		if err != nil {
			log.Fatal("Failed to list migrations", zap.Error(err))
		}
		if len(entries) == 0 {
			log.Info("No migrations found")
			return
		}
		log.Info("Embedded migrations", zap.Int("count", len(entries)))
		for _, e := range entries {
			fmt.Printf("  %06d %s complete=%t\n", e.Version, e.Name, e.Complete())
		}
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	log.Info("Migration CLI started",
		zap.String("command", command),
		zap.String("driver", cfg.Database.Driver),
	)

	if command == "seed" {
		fs := flag.NewFlagSet("seed", flag.ExitOnError)
		password := fs.String("password", "password123", "Password for the seeded user")
		_ = fs.Parse(rest)
		if err := seed(cfg, *password, log); err != nil {
			log.Fatal("Seed failed", zap.Error(err))
		}
		return
	}

	// The SQL migrations target PostgreSQL. SQLite databases get the schema
	// from the GORM models instead.
	if cfg.Database.Driver == "sqlite" {
		if command != "up" {
			log.Fatal("Only 'up' and 'seed' are supported for sqlite", zap.String("command", command))
		}
		if err := autoMigrate(cfg); err != nil {
			log.Fatal("Schema migration failed", zap.Error(err))
		}
		log.Info("SQLite schema up to date", zap.String("path", cfg.Database.Path))
		return
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatal("Failed to ping database", zap.Error(err))
	}

	m, err := migration.New(db, log)
	if err != nil {
		log.Fatal("Failed to create migrator", zap.Error(err))
	}
	defer m.Close()

	switch command {
	case "up":
		if err := m.Up(); err != nil {
			log.Fatal("Migration up failed", zap.Error(err))
		}

	case "down":
		fs := flag.NewFlagSet("down", flag.ExitOnError)
		steps := fs.Int("steps", 0, "Number of migrations to roll back (0 = all)")
		_ = fs.Parse(rest)
		if *steps > 0 {
			err = m.Steps(-*steps)
		} else {
			err = m.Down()
		}
		if err != nil {
			log.Fatal("Migration down failed", zap.Error(err))
		}

	case "version":
		version, dirty, err := m.Version()
		if err != nil {
			log.Fatal("Failed to get version", zap.Error(err))
		}
		if version == 0 {
			log.Info("No migrations applied")
		} else {
			log.Info("Current migration version",
				zap.Uint("version", version),
				zap.Bool("dirty", dirty),
			)
		}

	case "force":
		fs := flag.NewFlagSet("force", flag.ExitOnError)
		version := fs.Int("version", -1, "Version to record as applied")
		_ = fs.Parse(rest)
		if *version < 0 {
			log.Fatal("Version required. Usage: migrate force -version <n>")
		}
		if err := m.Force(*version); err != nil {
			log.Fatal("Force version failed", zap.Error(err))
		}

	default:
		log.Error("Unknown command", zap.String("command", command))
		printUsage()
		os.Exit(1)
	}
}

func openDatabase(cfg *config.Config) (*persistence.Database, error) {
	return persistence.NewDatabaseWithLogger(&cfg.Database,
		logger.NewGormLogger(zap.NewNop(), logger.MapGormLogLevel("error")))
}

func autoMigrate(cfg *config.Config) error {
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	return persistence.AutoMigrate(db.DB)
}

func seed(cfg *config.Config, password string, log *zap.Logger) error {
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.Database.Driver == "sqlite" {
		if err := persistence.AutoMigrate(db.DB); err != nil {
			return err
		}
	}

	hash, err := auth.NewPasswordHasher(bcrypt.DefaultCost).Hash(password)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	data := persistence.DefaultSeedData(hash)
	if err := persistence.Seed(ctx, db.DB, data); err != nil {
		return err
	}
	log.Info("Seed data applied",
		zap.String("tenant_id", data.TenantID),
		zap.String("email", data.Email),
		zap.Int("products", len(data.Products)),
	)
	return nil
}

func printUsage() {
	fmt.Println(`Database Migration Tool

Usage:
  migrate [flags] <command> [arguments]

Commands:
  up                       Apply all pending migrations
  down [-steps n]          Roll back n migrations, or all of them
  version                  Show current migration version
  force -version <n>       Force set migration version (use with caution)
  seed [-password pw]      Upsert the sample tenant, role, user and products
  create [-dir path] <n>   Create a new migration file pair
  list                     List embedded migrations

Flags:
  -log-level string        Log level: debug, info, warn, error (default: info)

Configuration is read from config.toml and TENANTAPI_* environment variables.

Examples:
  migrate up
  migrate down -steps 1
  migrate seed -password s3cret-pass`)
}
