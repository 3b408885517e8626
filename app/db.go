package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/pressly/goose/v3"

	"github.com/SatVerseX/mockmate-api/app/config"
	"github.com/SatVerseX/mockmate-api/migrations"
)

var db *sql.DB

var errDBNotInitialized = errors.New("db not initialized")

// MustInitDB initializes the global db and panics/logs fatally on error.
func MustInitDB() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		cfg.DB.Username,
		cfg.DB.Password,
		cfg.DB.URL,
		cfg.DB.Port,
		cfg.DB.Database,
		cfg.DB.SSLMode,
	)

	d, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatalf("sql.Open: %v", err)
	}

	if err := d.Ping(); err != nil {
		log.Fatalf("db.Ping: %v", err)
	}

	log.Println("Connected to Postgres")
	db = d
}

// RunMigrations applies the embedded goose migrations. Safe to run on every
// cold start; goose tracks applied versions in goose_db_version.
func RunMigrations(ctx context.Context) error {
	if db == nil {
		return nil
	}

	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// MustMigrate runs migrations and logs fatally on failure.
func MustMigrate() {
	if err := RunMigrations(context.Background()); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}
	log.Println("Migrations up to date")
}
