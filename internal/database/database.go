// Package database opens direct Postgres connections to the Supabase database.
package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"bloom/internal/config"
	"bloom/internal/observability"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrMissingDSN is returned when direct mode is requested without SUPABASE_DB_URL.
var ErrMissingDSN = errors.New("SUPABASE_DB_URL is required for direct database access")

// GormLogger writes GORM messages and traced statements to slog. Each
// statement record carries the table it touched.
type GormLogger struct {
	logger        *slog.Logger
	level         logger.LogLevel
	slowThreshold time.Duration
}

// NewGormLogger wraps l, reporting errors and slow statements only.
func NewGormLogger(l *slog.Logger) *GormLogger {
	return &GormLogger{
		logger:        l,
		level:         logger.Warn,
		slowThreshold: 200 * time.Millisecond,
	}
}

// LogMode returns a copy logging at level.
func (l *GormLogger) LogMode(level logger.LogLevel) logger.Interface {
	c := *l
	c.level = level
	return &c
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	l.message(ctx, logger.Info, slog.LevelInfo, msg, data)
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	l.message(ctx, logger.Warn, slog.LevelWarn, msg, data)
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	l.message(ctx, logger.Error, slog.LevelError, msg, data)
}

func (l *GormLogger) message(ctx context.Context, min logger.LogLevel, level slog.Level, msg string, data []interface{}) {
	if l.level < min {
		return
	}
	l.logger.Log(ctx, level, fmt.Sprintf(msg, data...))
}

// Trace logs a finished statement. Failures are logged in every mode but
// silent, slow statements from warn mode, everything in info mode.
// gorm.ErrRecordNotFound is not a failure here.
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= logger.Silent {
		return
	}

	elapsed := time.Since(begin)
	failed := err != nil && !errors.Is(err, gorm.ErrRecordNotFound)
	slow := l.slowThreshold > 0 && elapsed > l.slowThreshold

	var (
		level slog.Level
		msg   string
	)
	switch {
	case failed:
		level, msg = slog.LevelError, "statement failed"
	case slow && l.level >= logger.Warn:
		level, msg = slog.LevelWarn, "slow statement"
	case l.level >= logger.Info:
		level, msg = slog.LevelInfo, "statement"
	default:
		return
	}

	sql, rows := fc()
	attrs := []slog.Attr{
		slog.String("table", statementTable(sql)),
		slog.Int64("rows", rows),
		slog.Duration("elapsed", elapsed),
		slog.String("sql", sql),
	}
	if failed {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	l.logger.LogAttrs(ctx, level, msg, attrs...)
}

var tablePattern = regexp.MustCompile("(?i)\\b(?:FROM|INTO|UPDATE|TABLE)\\s+[\"`]?([A-Za-z0-9_.]+)")

// statementTable extracts the first table named in sql, or "" if none is found.
func statementTable(sql string) string {
	m := tablePattern.FindStringSubmatch(sql)
	if m == nil {
		return ""
	}
	return m[1]
}

// Connect opens a GORM connection to cfg.SupabaseDBURL.
func Connect(cfg *config.Config) (*gorm.DB, error) {
	if cfg.SupabaseDBURL == "" {
		return nil, ErrMissingDSN
	}

	gormLogger := NewGormLogger(observability.Logger)
	if observability.ParseLevel(cfg.LogLevel) <= slog.LevelDebug {
		gormLogger.level = logger.Info
	}

	// The Supabase pooler runs in transaction mode, which cannot hold prepared statements.
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  cfg.SupabaseDBURL,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	observability.Logger.Info("Database connected successfully")
	return db, nil
}

// Close releases the connection pool behind db.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
