// Command fixadmin restores the built-in admin account in data/users.json.
//
// It marks the account as verified and admin and clears any pending
// verification code. A missing account or unreadable file is reported but is
// not treated as a failure.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"bloom/internal/adminfix"
	"bloom/internal/config"
	"bloom/internal/observability"
)

const lockTimeout = 10 * time.Second

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("fixadmin", flag.ContinueOnError)
	fs.SetOutput(stderr)
	file := fs.String("file", "", "Path to the users file, relative to the working directory (default USERS_FILE or data/users.json)")
	email := fs.String("email", "", "Email of the account to fix (default ADMIN_EMAIL or admin@bloom.com)")
	list := fs.Bool("list", false, "List admin accounts instead of fixing one")
	envFiles := fs.String("env-file", strings.Join(config.DefaultEnvFiles, ","), "Comma-separated dotenv files to load")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	cfg, err := config.Load(splitList(*envFiles)...)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Failed to load configuration: %v\n", err)
		return 1
	}
	observability.Init(stderr, cfg.IsProduction(), cfg.LogLevel)
	logger := observability.Logger

	path := cfg.UsersFile
	if *file != "" {
		path = *file
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	target := cfg.AdminEmail
	if *email != "" {
		target = *email
	}

	ctx, cancel := context.WithTimeout(context.Background(), lockTimeout)
	defer cancel()
	ctx = observability.WithRunID(ctx, observability.NewRunID())

	if *list {
		listAdmins(ctx, logger, stdout, path)
		return 0
	}

	res, err := adminfix.Fix(ctx, path, target)
	switch {
	case errors.Is(err, adminfix.ErrUserNotFound):
		logger.WarnContext(ctx, "admin user not found, nothing written",
			slog.String("email", target),
			slog.String("path", path),
		)
	case err != nil:
		logger.ErrorContext(ctx, "failed to fix admin user",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
	default:
		logger.InfoContext(ctx, "✅ admin user fixed",
			slog.String("email", res.Email),
			slog.String("path", res.Path),
			slog.Int("index", res.Index),
		)
	}
	return 0
}

func listAdmins(ctx context.Context, logger *slog.Logger, out io.Writer, path string) {
	admins, err := adminfix.ListAdmins(ctx, path)
	if err != nil {
		logger.ErrorContext(ctx, "failed to read users file",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return
	}

	if len(admins) == 0 {
		_, _ = fmt.Fprintln(out, "No admins found in", path)
		return
	}

	_, _ = fmt.Fprintln(out, "📋 Current Admins:")
	_, _ = fmt.Fprintln(out, "─────────────────────────────────────")
	for _, a := range admins {
		_, _ = fmt.Fprintf(out, "Email: %s | Verified: %t\n", a.Email, a.Verified)
	}
	_, _ = fmt.Fprintln(out, "─────────────────────────────────────")
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
