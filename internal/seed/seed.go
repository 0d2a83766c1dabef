// Package seed resets the Bloom backend tables and fills them with a fixed
// battery of sample data. It is a development tool: existing rows in the
// seeded tables are erased without confirmation.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"bloom/internal/observability"
)

// Options configures a Seeder.
type Options struct {
	// FakeReviews appends this many generated reviews to the fixed battery.
	FakeReviews int
	FakeSeed    int64
	// PasswordCost is the bcrypt cost for seeded users; 0 means bcrypt.DefaultCost.
	PasswordCost int
	Now          func() time.Time
	Metrics      *observability.RunMetrics
	Logger       *slog.Logger
}

// Seeder clears and repopulates a Store.
type Seeder struct {
	store  Store
	opts   Options
	logger *slog.Logger
}

// NewSeeder creates a Seeder writing to store.
func NewSeeder(store Store, opts Options) *Seeder {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = observability.Logger
	}
	return &Seeder{store: store, opts: opts, logger: logger}
}

// Fixtures builds the rows a Run will insert.
func (s *Seeder) Fixtures() (*Fixtures, error) {
	now := s.opts.Now()
	fx, err := Catalog(now, s.opts.PasswordCost)
	if err != nil {
		return nil, err
	}
	fx.Reviews = append(fx.Reviews, FakeReviews(fx, s.opts.FakeReviews, s.opts.FakeSeed, now)...)
	return fx, nil
}

// Run deletes every row of the seeded tables and inserts the sample battery.
// The first failing call aborts the run; rows already deleted or inserted
// stay that way.
func (s *Seeder) Run(ctx context.Context) (*Fixtures, error) {
	start := time.Now()
	fx, err := s.run(ctx)
	s.opts.Metrics.Finish(time.Since(start), err)
	return fx, err
}

func (s *Seeder) run(ctx context.Context) (*Fixtures, error) {
	fx, err := s.Fixtures()
	if err != nil {
		return nil, err
	}

	batches := fx.Batches()
	if err := s.clear(ctx, batches); err != nil {
		return nil, err
	}
	if err := s.insert(ctx, batches); err != nil {
		return nil, err
	}
	return fx, nil
}

// clear deletes children before parents so foreign keys never dangle.
func (s *Seeder) clear(ctx context.Context, batches []Batch) error {
	s.logger.InfoContext(ctx, "clearing existing data")
	for i := len(batches) - 1; i >= 0; i-- {
		table := batches[i].Table
		if err := s.store.DeleteAll(ctx, table); err != nil {
			return fmt.Errorf("delete %s: %w", table, err)
		}
		s.opts.Metrics.ObserveCleared(table)
		s.logger.DebugContext(ctx, "table cleared", slog.String("table", table))
	}
	return nil
}

func (s *Seeder) insert(ctx context.Context, batches []Batch) error {
	for _, b := range batches {
		if b.Count == 0 {
			continue
		}
		if err := s.store.Insert(ctx, b.Table, b.Rows); err != nil {
			return fmt.Errorf("insert %s: %w", b.Table, err)
		}
		s.opts.Metrics.ObserveInserted(b.Table, b.Count)
		s.logger.InfoContext(ctx, "rows inserted",
			slog.String("table", b.Table),
			slog.Int("rows", b.Count),
		)
	}
	return nil
}
