package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ksred/schema-registry/internal/config"
	"github.com/ksred/schema-registry/internal/registry"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	connectAttempts     = 5
	connectInitialDelay = 2 * time.Second
	execAttempts        = 3
)

// ErrNotConnected is returned by every operation that needs an open connection
var ErrNotConnected = registry.ErrNotConnected

// Database manages the process-wide connection. It is created once at startup
// and handed explicitly to the registry and the migration runner.
type Database struct {
	db     *gorm.DB
	config config.Database
	logger zerolog.Logger
	mu     sync.RWMutex
}

// NewDatabase creates a new Database instance. Nothing is opened until Connect.
func NewDatabase(cfg config.Database, logger zerolog.Logger) *Database {
	return &Database{
		config: cfg,
		logger: logger.With().Str("component", "database").Logger(),
	}
}

// Connect opens the configured driver, retrying with exponential backoff
func (d *Database) Connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	dialector, err := d.dialector()
	if err != nil {
		return err
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(d.getLogLevel()),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		TranslateError: true,
	}

	var db *gorm.DB
	attempts := d.connectAttempts()
	retryDelay := connectInitialDelay
	for i := 0; i < attempts; i++ {
		db, err = gorm.Open(dialector, gormConfig)
		if err == nil {
			break
		}

		d.logger.Warn().
			Err(err).
			Int("attempt", i+1).
			Str("driver", d.config.Driver).
			Msg("Database connection failed")

		if i < attempts-1 {
			time.Sleep(retryDelay)
			retryDelay *= 2
		}
	}

	if err != nil {
		return fmt.Errorf("failed to connect to database after %d attempts: %w", attempts, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxIdleConns(d.config.MaxIdleConns)
	sqlDB.SetMaxOpenConns(d.config.MaxConnections)
	sqlDB.SetConnMaxLifetime(d.config.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(d.config.ConnMaxIdleTime)
	if d.config.Driver == config.DriverSQLite && d.config.Path == ":memory:" {
		// every pooled connection would otherwise get its own empty database
		sqlDB.SetMaxOpenConns(1)
	}

	d.db = db
	d.logger.Info().Str("driver", d.config.Driver).Msg("Database connected")
	return nil
}

// Health pings the database
func (d *Database) Health(ctx context.Context) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.db == nil {
		return ErrNotConnected
	}

	sqlDB, err := d.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	return nil
}

// Close closes the database connection
func (d *Database) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.db == nil {
		return nil
	}

	sqlDB, err := d.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database connection: %w", err)
	}

	d.db = nil
	return nil
}

// DB returns the underlying gorm.DB instance, nil before Connect
func (d *Database) DB() *gorm.DB {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.db
}

// SetDB sets the underlying gorm.DB instance (for testing)
func (d *Database) SetDB(db *gorm.DB) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.db = db
}

// WithTransaction executes a function within a database transaction
func (d *Database) WithTransaction(ctx context.Context, fn func(*gorm.DB) error) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.db == nil {
		return ErrNotConnected
	}

	if d.db.Dialector.Name() == config.DriverSQLite {
		return d.db.WithContext(ctx).Transaction(fn)
	}
	return d.db.WithContext(ctx).Transaction(fn, &sql.TxOptions{
		Isolation: sql.LevelReadCommitted,
	})
}

// Exec executes raw SQL, retrying transient failures
func (d *Database) Exec(ctx context.Context, query string, args ...interface{}) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.db == nil {
		return ErrNotConnected
	}

	var err error
	for i := 0; i < execAttempts; i++ {
		err = d.db.WithContext(ctx).Exec(query, args...).Error
		if err == nil {
			return nil
		}
		if !isRetryableError(err) {
			break
		}
		if i < execAttempts-1 {
			time.Sleep(time.Millisecond * 100 * time.Duration(i+1))
		}
	}

	return err
}

func (d *Database) dialector() (gorm.Dialector, error) {
	switch d.config.Driver {
	case config.DriverPostgres, "":
		return postgres.Open(d.buildDSN()), nil
	case config.DriverSQLite:
		if d.config.Path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(d.config.Path), 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		return sqlite.Open(d.config.Path), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %q", d.config.Driver)
	}
}

// connectAttempts is the number of tries Connect makes. A local sqlite file
// either opens or it does not, so it gets a single try.
func (d *Database) connectAttempts() int {
	if d.config.Driver == config.DriverSQLite {
		return 1
	}
	return connectAttempts
}

// buildDSN constructs the PostgreSQL DSN from config
func (d *Database) buildDSN() string {
	c := d.config
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	timezone := c.TimeZone
	if timezone == "" {
		timezone = "UTC"
	}

	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, sslmode, timezone)
}

// getLogLevel returns the GORM log level from config
func (d *Database) getLogLevel() logger.LogLevel {
	switch d.config.LogLevel {
	case "silent":
		return logger.Silent
	case "warn":
		return logger.Warn
	case "info":
		return logger.Info
	default:
		return logger.Error
	}
}

// isRetryableError reports connection-level failures worth another attempt
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())
	retryableErrors := []string{
		"connection refused",
		"connection reset",
		"deadlock detected",
		"too many connections",
		"connection timeout",
		"database is locked",
	}

	for _, retryable := range retryableErrors {
		if strings.Contains(errStr, retryable) {
			return true
		}
	}

	return false
}
