package database

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"bloom/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newBufferedLogger() (*GormLogger, *bytes.Buffer) {
	var buf bytes.Buffer
	l := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return NewGormLogger(l), &buf
}

func decodeRecord(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec), buf.String())
	return rec
}

func TestConnect_RequiresDSN(t *testing.T) {
	_, err := Connect(&config.Config{})
	assert.ErrorIs(t, err, ErrMissingDSN)
}

func TestGormLogger_Trace(t *testing.T) {
	deleteSQL := func() (string, int64) { return `DELETE FROM "products"`, 3 }

	t.Run("failures carry table and error", func(t *testing.T) {
		gl, buf := newBufferedLogger()
		gl.Trace(context.Background(), time.Now(), deleteSQL, errors.New("permission denied"))

		rec := decodeRecord(t, buf)
		assert.Equal(t, "ERROR", rec["level"])
		assert.Equal(t, "statement failed", rec["msg"])
		assert.Equal(t, "products", rec["table"])
		assert.Equal(t, "permission denied", rec["error"])
	})

	t.Run("failures logged in error mode", func(t *testing.T) {
		gl, buf := newBufferedLogger()
		gl.LogMode(logger.Error).Trace(context.Background(), time.Now(), deleteSQL, errors.New("boom"))
		assert.Contains(t, buf.String(), "statement failed")
	})

	t.Run("record not found is ignored", func(t *testing.T) {
		gl, buf := newBufferedLogger()
		gl.Trace(context.Background(), time.Now(), deleteSQL, gorm.ErrRecordNotFound)
		assert.Empty(t, buf.String())
	})

	t.Run("slow statements warn", func(t *testing.T) {
		gl, buf := newBufferedLogger()
		gl.Trace(context.Background(), time.Now().Add(-time.Second), deleteSQL, nil)

		rec := decodeRecord(t, buf)
		assert.Equal(t, "WARN", rec["level"])
		assert.Equal(t, "slow statement", rec["msg"])
	})

	t.Run("fast statements silent at warn", func(t *testing.T) {
		gl, buf := newBufferedLogger()
		gl.Trace(context.Background(), time.Now(), deleteSQL, nil)
		assert.Empty(t, buf.String())
	})

	t.Run("info mode logs every statement", func(t *testing.T) {
		gl, buf := newBufferedLogger()
		insertSQL := func() (string, int64) { return `INSERT INTO "users" ("id","email") VALUES ($1,$2)`, 4 }
		gl.LogMode(logger.Info).Trace(context.Background(), time.Now(), insertSQL, nil)

		rec := decodeRecord(t, buf)
		assert.Equal(t, "statement", rec["msg"])
		assert.Equal(t, "users", rec["table"])
		assert.Equal(t, float64(4), rec["rows"])
	})

	t.Run("silent logs nothing", func(t *testing.T) {
		gl, buf := newBufferedLogger()
		gl.LogMode(logger.Silent).Trace(context.Background(), time.Now(), deleteSQL, errors.New("x"))
		assert.Empty(t, buf.String())
	})
}

func TestGormLogger_Messages(t *testing.T) {
	gl, buf := newBufferedLogger()
	gl.Info(context.Background(), "dropped %d", 1)
	gl.Warn(context.Background(), "kept %s", "warn")
	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), "kept warn")
}

func TestStatementTable(t *testing.T) {
	tests := []struct {
		sql  string
		want string
	}{
		{`DELETE FROM "coupons"`, "coupons"},
		{"DELETE FROM `reviews`", "reviews"},
		{`INSERT INTO "purchases" ("id") VALUES ($1)`, "purchases"},
		{`UPDATE users SET is_admin = true`, "users"},
		{`SELECT 1`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.sql, func(t *testing.T) {
			assert.Equal(t, tt.want, statementTable(tt.sql))
		})
	}
}
