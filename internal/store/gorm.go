package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rfmesh/hes/internal/store/models"
	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// GORMStore implements Store over GORM, backed by either SQLite or
// PostgreSQL depending on Config.Type.
type GORMStore struct {
	db     *gorm.DB
	config *Config
}

// New opens the relational store and runs AutoMigrate against the engine's
// model set. An invalid or incomplete Config is rejected before any
// connection attempt.
func New(config *Config) (*GORMStore, error) {
	if config == nil {
		config = &Config{}
	}
	ApplyDefaults(config)
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid database configuration: %w", err)
	}

	dialector, err := dialectorFor(config)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", config.Type, err)
	}

	if config.Type == DatabaseTypePostgres {
		if err := tunePool(db, &config.Postgres); err != nil {
			return nil, err
		}
	}

	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		return nil, fmt.Errorf("migrating %s schema: %w", config.Type, err)
	}

	return &GORMStore{db: db, config: config}, nil
}

// dialectorFor builds the GORM dialector for config's backend, creating the
// SQLite data directory on disk if it doesn't exist yet.
func dialectorFor(config *Config) (gorm.Dialector, error) {
	switch config.Type {
	case DatabaseTypeSQLite:
		if err := os.MkdirAll(filepath.Dir(config.SQLite.Path), 0o755); err != nil {
			return nil, fmt.Errorf("creating sqlite data directory: %w", err)
		}
		dsn := config.SQLite.Path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
		return sqlite.Open(dsn), nil
	case DatabaseTypePostgres:
		return postgres.Open(config.Postgres.DSN()), nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", config.Type)
	}
}

// tunePool applies connection pool limits to a Postgres-backed db.
func tunePool(db *gorm.DB, cfg *PostgresConfig) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("accessing pooled connection: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	return nil
}

// DB returns the underlying GORM handle, for ad-hoc queries and tests.
func (s *GORMStore) DB() *gorm.DB {
	return s.db
}

// isUniqueConstraintError reports whether err is the driver-specific unique
// index violation — the substrings below are SQLite's and PostgreSQL's own
// error text, not ours, so they can't be reworded.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint")
}

// convertNotFoundError maps gorm.ErrRecordNotFound to the caller's domain
// error, passing any other error through unchanged.
func convertNotFoundError(err, notFoundErr error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFoundErr
	}
	return err
}
