package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/perf-diff/pkg/config"
	apperrors "github.com/perf-diff/pkg/errors"
	"github.com/perf-diff/pkg/utils"
)

// DBType represents the database type.
type DBType string

const (
	DBTypeSQLite   DBType = "sqlite"
	DBTypePostgres DBType = "postgres"
	DBTypeMySQL    DBType = "mysql"
)

// Option configures NewGormDB.
type Option func(*options)

type options struct {
	tracing bool
	logger  utils.Logger
}

// WithTracing installs the OpenTelemetry GORM plugin.
func WithTracing(enabled bool) Option {
	return func(o *options) {
		o.tracing = enabled
	}
}

// WithLogger routes GORM logs to logger.
func WithLogger(logger utils.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// DSN builds the data source name of cfg. An explicit cfg.DSN wins.
func DSN(cfg *config.DatabaseConfig) (string, error) {
	if cfg.DSN != "" {
		return cfg.DSN, nil
	}
	switch DBType(cfg.Type) {
	case DBTypeSQLite, "":
		if cfg.Path == "" {
			return ":memory:", nil
		}
		return cfg.Path, nil
	case DBTypePostgres, DBType("postgresql"):
		port := cfg.Port
		if port == 0 {
			port = 5432
		}
		return fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			cfg.Host, port, cfg.User, cfg.Password, cfg.Database,
		), nil
	case DBTypeMySQL:
		port := cfg.Port
		if port == 0 {
			port = 3306
		}
		return fmt.Sprintf(
			"%s:%s@tcp(%s:%d)/%s?parseTime=true&loc=UTC",
			cfg.User, cfg.Password, cfg.Host, port, cfg.Database,
		), nil
	}
	return "", apperrors.New(apperrors.CodeConfigError, fmt.Sprintf("unsupported database type: %s", cfg.Type))
}

func dialector(cfg *config.DatabaseConfig) (gorm.Dialector, error) {
	dsn, err := DSN(cfg)
	if err != nil {
		return nil, err
	}
	switch DBType(cfg.Type) {
	case DBTypePostgres, DBType("postgresql"):
		return postgres.Open(dsn), nil
	case DBTypeMySQL:
		return mysql.Open(dsn), nil
	default:
		return sqlite.Open(dsn), nil
	}
}

// NewGormDB creates a new GORM database connection based on configuration.
func NewGormDB(cfg *config.DatabaseConfig, opts ...Option) (*gorm.DB, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	d, err := dialector(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(d, &gorm.Config{
		Logger: newGormLogger(o.logger, cfg.LogLevel),
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDatabaseError, "failed to open database", err)
	}

	if o.tracing {
		if err := db.Use(tracing.NewPlugin()); err != nil {
			return nil, apperrors.Wrap(apperrors.CodeDatabaseError, "failed to enable telemetry", err)
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDatabaseError, "failed to get underlying sql.DB", err)
	}

	maxConns := cfg.MaxConns
	if maxConns <= 0 {
		maxConns = 10
	}
	if DBType(cfg.Type) == DBTypeSQLite || cfg.Type == "" {
		// An in-memory database lives on a single connection.
		maxConns = 1
	}
	sqlDB.SetMaxOpenConns(maxConns)
	sqlDB.SetMaxIdleConns(max(maxConns/2, 1))
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, apperrors.Wrap(apperrors.CodeDatabaseError, "failed to ping database", err)
	}
	return db, nil
}

// Migrate creates or updates the report tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&ComparisonRecord{}, &ChangeRecord{}); err != nil {
		return apperrors.Wrap(apperrors.CodeDatabaseError, "failed to migrate schema", err)
	}
	return nil
}

// Repositories holds all repository instances.
type Repositories struct {
	Reports ReportRepository
	gormDB  *gorm.DB
}

// NewRepositories creates all repositories using GORM.
func NewRepositories(gormDB *gorm.DB) *Repositories {
	return &Repositories{
		Reports: NewGormReportRepository(gormDB),
		gormDB:  gormDB,
	}
}

// Open connects to the configured database, migrates it and returns the
// repositories.
func Open(cfg *config.DatabaseConfig, opts ...Option) (*Repositories, error) {
	db, err := NewGormDB(cfg, opts...)
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		if sqlDB, e := db.DB(); e == nil {
			sqlDB.Close()
		}
		return nil, err
	}
	return NewRepositories(db), nil
}

// Close closes the database connection.
func (r *Repositories) Close() error {
	if r.gormDB == nil {
		return nil
	}
	sqlDB, err := r.gormDB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// HealthCheck verifies the database connection is still alive.
func (r *Repositories) HealthCheck(ctx context.Context) error {
	sqlDB, err := r.gormDB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// DB returns the underlying sql.DB connection.
func (r *Repositories) DB() *sql.DB {
	sqlDB, _ := r.gormDB.DB()
	return sqlDB
}

// GormDB returns the underlying GORM DB instance.
func (r *Repositories) GormDB() *gorm.DB {
	return r.gormDB
}

// gormWriter forwards GORM log lines to a utils.Logger.
type gormWriter struct {
	log utils.Logger
}

func (w gormWriter) Printf(format string, args ...interface{}) {
	w.log.Info(format, args...)
}

func newGormLogger(log utils.Logger, level string) logger.Interface {
	if log == nil {
		return logger.Default.LogMode(logger.Silent)
	}
	return logger.New(gormWriter{log: log}, logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  gormLogLevel(level),
		IgnoreRecordNotFoundError: true,
	})
}

func gormLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "error":
		return logger.Error
	case "warn", "warning":
		return logger.Warn
	case "info", "debug":
		return logger.Info
	default:
		return logger.Silent
	}
}
