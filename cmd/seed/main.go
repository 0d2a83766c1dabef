// Command seed wipes the Bloom tables in Supabase and fills them with sample data.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"bloom/internal/config"
	"bloom/internal/database"
	"bloom/internal/observability"
	"bloom/internal/seed"
	"bloom/internal/supabase"
)

type options struct {
	dryRun      bool
	direct      bool
	fakeReviews int
	fakeSeed    int64
	metricsFile string
	envFiles    []string
}

// openStore picks the seeding backend. It is a variable so tests can swap in
// a fake backend.
var openStore = defaultOpenStore

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

func run(args []string, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	cfg, err := config.Load(opts.envFiles...)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Failed to load configuration: %v\n", err)
		return 1
	}
	observability.Init(stderr, cfg.IsProduction(), cfg.LogLevel)
	logger := observability.Logger

	if err := cfg.ValidateSupabase(); err != nil {
		_, _ = fmt.Fprintf(stderr, "❌ %v\n", err)
		_, _ = fmt.Fprintln(stderr, "Set VITE_SUPABASE_URL (or SUPABASE_URL) and SUPABASE_SERVICE_ROLE_KEY (or VITE_SUPABASE_ANON_KEY) in .env or the environment.")
		return 1
	}
	if cfg.KeyRole == config.KeyRoleAnon {
		logger.Warn("using the anon key; row level security may reject deletes and inserts")
	}

	ctx := observability.WithRunID(context.Background(), observability.NewRunID())
	logger.InfoContext(ctx, "🌱 Bloom seeder starting",
		slog.String("url", cfg.SupabaseURL),
		slog.String("key_role", string(cfg.KeyRole)),
		slog.Bool("dry_run", opts.dryRun),
		slog.Bool("direct", opts.direct),
	)

	store, closeStore, err := openStore(ctx, cfg, opts)
	if err != nil {
		logger.ErrorContext(ctx, "failed to open seeding backend", slog.String("error", err.Error()))
		return 1
	}
	defer closeStore()

	var metrics *observability.RunMetrics
	if opts.metricsFile != "" {
		metrics = observability.NewRunMetrics()
	}

	s := seed.NewSeeder(store, seed.Options{
		FakeReviews: opts.fakeReviews,
		FakeSeed:    opts.fakeSeed,
		Metrics:     metrics,
		Logger:      logger,
	})

	start := time.Now()
	fx, runErr := s.Run(ctx)

	if opts.metricsFile != "" {
		if err := metrics.WriteFile(opts.metricsFile); err != nil {
			logger.WarnContext(ctx, "failed to write metrics file",
				slog.String("path", opts.metricsFile),
				slog.String("error", err.Error()),
			)
		}
	}

	if runErr != nil {
		logger.ErrorContext(ctx, "❌ seeding failed", slog.String("error", runErr.Error()))
		var apiErr *supabase.APIError
		if errors.As(runErr, &apiErr) && apiErr.IsPermissionDenied() {
			logger.ErrorContext(ctx, "the key was refused; use SUPABASE_SERVICE_ROLE_KEY to bypass row level security")
		}
		return 1
	}

	logger.InfoContext(ctx, "✨ seeding complete",
		slog.Int("products", len(fx.Products)),
		slog.Int("users", len(fx.Users)),
		slog.Int("purchases", len(fx.Purchases)),
		slog.Int("reviews", len(fx.Reviews)),
		slog.Int("coupons", len(fx.Coupons)),
		slog.Duration("elapsed", time.Since(start)),
	)
	logger.InfoContext(ctx, "📧 all sample users share one password", slog.String("password", seed.DevPassword))
	return 0
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	fs.SetOutput(stderr)

	opts := &options{}
	var envFiles string
	fs.BoolVar(&opts.dryRun, "dry-run", false, "Log the operations without touching the backend")
	fs.BoolVar(&opts.direct, "direct", false, "Write through SUPABASE_DB_URL instead of the REST API")
	fs.IntVar(&opts.fakeReviews, "fake-reviews", 0, "Number of generated reviews to add")
	fs.Int64Var(&opts.fakeSeed, "fake-seed", 1, "Random seed for generated reviews")
	fs.StringVar(&opts.metricsFile, "metrics-file", "", "Write Prometheus textfile metrics to this path")
	fs.StringVar(&envFiles, "env-file", strings.Join(config.DefaultEnvFiles, ","), "Comma-separated dotenv files to load")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if opts.fakeReviews < 0 {
		_, _ = fmt.Fprintln(stderr, "-fake-reviews must not be negative")
		return nil, errors.New("invalid flags")
	}
	if opts.dryRun && opts.direct {
		_, _ = fmt.Fprintln(stderr, "-dry-run and -direct are mutually exclusive")
		return nil, errors.New("invalid flags")
	}
	for _, f := range strings.Split(envFiles, ",") {
		if f = strings.TrimSpace(f); f != "" {
			opts.envFiles = append(opts.envFiles, f)
		}
	}
	return opts, nil
}

func defaultOpenStore(_ context.Context, cfg *config.Config, opts *options) (seed.Store, func(), error) {
	switch {
	case opts.dryRun:
		return seed.NewDryRunStore(observability.Logger), func() {}, nil
	case opts.direct:
		db, err := database.Connect(cfg)
		if err != nil {
			return nil, nil, err
		}
		return seed.NewGormStore(db), func() { _ = database.Close(db) }, nil
	default:
		client, err := supabase.NewClient(cfg, supabase.WithLogger(observability.Logger))
		if err != nil {
			return nil, nil, err
		}
		return client, func() {}, nil
	}
}
