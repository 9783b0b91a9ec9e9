package repository

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Options describes how to reach the database
type Options struct {
	Driver       string
	URL          string
	LogLevel     string
	MaxIdleConns int
	MaxOpenConns int
}

// Open connects gorm to postgres (through a pgx pool) or sqlite
func Open(ctx context.Context, opts Options) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger:  logger.Default.LogMode(parseLogLevel(opts.LogLevel)),
		NowFunc: func() time.Time { return time.Now().UTC() },
	}

	switch strings.ToLower(opts.Driver) {
	case DriverPostgres:
		return openPostgres(ctx, opts, gormConfig)
	case DriverSQLite, "":
		return openSQLite(opts, gormConfig)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", opts.Driver)
	}
}

func openPostgres(ctx context.Context, opts Options, gormConfig *gorm.Config) (*gorm.DB, error) {
	if opts.URL == "" {
		return nil, fmt.Errorf("database url is required for postgres")
	}

	poolConfig, err := pgxpool.ParseConfig(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		poolConfig.MaxConns = int32(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		poolConfig.MinConns = int32(min(opts.MaxIdleConns, opts.MaxOpenConns))
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach PostgreSQL: %w", err)
	}

	sqlDB := stdlib.OpenDBFromPool(pool)
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), gormConfig)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	slog.Info("Connected to database", "driver", DriverPostgres, "max_conns", poolConfig.MaxConns)
	return db, nil
}

func openSQLite(opts Options, gormConfig *gorm.Config) (*gorm.DB, error) {
	dsn := opts.URL
	if dsn == "" {
		dsn = ":memory:"
	}

	db, err := gorm.Open(sqlite.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SQLite: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get raw DB connection: %w", err)
	}
	// sqlite serializes writers; one connection also keeps ":memory:" databases intact
	sqlDB.SetMaxOpenConns(1)

	if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	slog.Info("Connected to database", "driver", DriverSQLite, "dsn", dsn)
	return db, nil
}

// Close closes the underlying connection pool
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database connection: %w", err)
	}
	return nil
}

func parseLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "error":
		return logger.Error
	case "warn", "warning":
		return logger.Warn
	case "info":
		return logger.Info
	default:
		return logger.Silent
	}
}
