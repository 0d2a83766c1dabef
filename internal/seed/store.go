package seed

import (
	"context"
	"log/slog"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store is the destination a Seeder clears and fills. Both methods are
// attempted once; implementations must not retry.
type Store interface {
	DeleteAll(ctx context.Context, table string) error
	Insert(ctx context.Context, table string, rows any) error
}

// GormStore writes straight to Postgres (or any GORM dialect).
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps db.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// DeleteAll removes every row of table.
func (s *GormStore) DeleteAll(ctx context.Context, table string) error {
	return s.db.WithContext(ctx).Exec("DELETE FROM ?", clause.Table{Name: table}).Error
}

// Insert creates rows, a pointer to a slice of models, in one statement.
func (s *GormStore) Insert(ctx context.Context, table string, rows any) error {
	return s.db.WithContext(ctx).Table(table).Create(rows).Error
}

// DryRunStore logs the operations it would perform and touches nothing.
type DryRunStore struct {
	logger *slog.Logger
}

// NewDryRunStore returns a store that only logs.
func NewDryRunStore(logger *slog.Logger) *DryRunStore {
	return &DryRunStore{logger: logger}
}

// DeleteAll logs the delete.
func (s *DryRunStore) DeleteAll(ctx context.Context, table string) error {
	s.logger.InfoContext(ctx, "[dry-run] delete all rows", slog.String("table", table))
	return nil
}

// Insert logs the insert.
func (s *DryRunStore) Insert(ctx context.Context, table string, _ any) error {
	s.logger.InfoContext(ctx, "[dry-run] insert rows", slog.String("table", table))
	return nil
}
