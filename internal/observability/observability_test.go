package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{" error ", slog.LevelError},
		{"verbose", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestNewLogger_ProductionWritesJSONWithRunID(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, true, "info").With(slog.String("cmd", "seed"))

	ctx := WithRunID(context.Background(), "run-123")
	logger.InfoContext(ctx, "hello")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "hello", rec["msg"])
	assert.Equal(t, "run-123", rec["run_id"])
	assert.Equal(t, "seed", rec["cmd"])
}

func TestInit_ReplacesGlobalLogger(t *testing.T) {
	prev := Logger
	t.Cleanup(func() { Logger = prev })

	var buf bytes.Buffer
	Init(&buf, false, "debug")
	Logger.Debug("visible")

	assert.Contains(t, buf.String(), "level=DEBUG")
	assert.Contains(t, buf.String(), "visible")
}

func TestNewLogger_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, false, "warn")

	logger.Info("dropped")
	logger.Warn("kept")

	out := buf.String()
	assert.NotContains(t, out, "dropped")
	assert.Contains(t, out, "kept")
}

func TestRunMetrics(t *testing.T) {
	m := NewRunMetrics()
	m.ObserveCleared("products")
	m.ObserveInserted("products", 6)
	m.ObserveInserted("users", 4)
	m.Finish(1500*time.Millisecond, nil)

	assert.Equal(t, float64(6), testutil.ToFloat64(m.rowsInserted.WithLabelValues("products")))
	assert.Equal(t, float64(4), testutil.ToFloat64(m.rowsInserted.WithLabelValues("users")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.tablesCleared.WithLabelValues("products")))
	assert.Equal(t, 1.5, testutil.ToFloat64(m.duration))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.success))

	m.Finish(time.Second, errors.New("boom"))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.success))

	path := filepath.Join(t.TempDir(), "seed.prom")
	require.NoError(t, m.WriteFile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `bloom_seed_rows_inserted{table="products"} 6`))
}

func TestRunMetrics_NilIsNoop(t *testing.T) {
	var m *RunMetrics
	assert.NotPanics(t, func() {
		m.ObserveCleared("products")
		m.ObserveInserted("products", 1)
		m.Finish(time.Second, nil)
	})
}
