package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"bloom/internal/observability"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var managedEnv = []string{
	"VITE_SUPABASE_URL",
	"SUPABASE_URL",
	"SUPABASE_SERVICE_ROLE_KEY",
	"VITE_SUPABASE_ANON_KEY",
	"APP_ENV",
	"LOG_LEVEL",
	"USERS_FILE",
	"ADMIN_EMAIL",
}

func setupEnv(t *testing.T, env map[string]string) []string {
	t.Helper()
	for _, key := range managedEnv {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
	for k, v := range env {
		t.Setenv(k, v)
	}

	prev := observability.Logger
	t.Cleanup(func() { observability.Logger = prev })

	return []string{"-env-file", filepath.Join(t.TempDir(), "missing.env")}
}

func writeUsers(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "users.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRun_FixesAdmin(t *testing.T) {
	args := setupEnv(t, nil)
	path := writeUsers(t, `[{"email":"a@x.com","isAdmin":false},{"email":"admin@bloom.com","emailVerified":false,"verificationCode":"123"}]`)

	var stdout, stderr bytes.Buffer
	code := run(append(args, "-file", path), &stdout, &stderr)

	require.Equal(t, 0, code)
	assert.Contains(t, stderr.String(), "admin user fixed")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var users []json.RawMessage
	require.NoError(t, json.Unmarshal(data, &users))
	require.Len(t, users, 2)
	assert.JSONEq(t, `{"email":"admin@bloom.com","emailVerified":true,"isAdmin":true,"verificationCode":null,"verificationCodeExpiry":null}`, string(users[1]))
}

func TestRun_UsesConfiguredFileAndEmail(t *testing.T) {
	path := writeUsers(t, `[{"email":"ops@bloom.com"}]`)
	args := setupEnv(t, map[string]string{
		"USERS_FILE":  path,
		"ADMIN_EMAIL": "ops@bloom.com",
	})

	var stdout, stderr bytes.Buffer
	require.Equal(t, 0, run(args, &stdout, &stderr))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"isAdmin": true`)
}

func TestRun_NotFoundExitsZero(t *testing.T) {
	args := setupEnv(t, nil)
	input := `[{"email":"a@x.com","isAdmin":false}]`
	path := writeUsers(t, input)

	var stdout, stderr bytes.Buffer
	code := run(append(args, "-file", path), &stdout, &stderr)

	assert.Equal(t, 0, code)
	assert.Contains(t, stderr.String(), "level=WARN")
	assert.Contains(t, stderr.String(), "admin user not found")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, input, string(data))
}

func TestRun_FileErrorsExitZero(t *testing.T) {
	tests := []struct {
		name string
		path func(t *testing.T) string
	}{
		{
			name: "missing file",
			path: func(t *testing.T) string { return filepath.Join(t.TempDir(), "users.json") },
		},
		{
			name: "invalid json",
			path: func(t *testing.T) string { return writeUsers(t, `{not json`) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := setupEnv(t, nil)
			path := tt.path(t)

			var stdout, stderr bytes.Buffer
			code := run(append(args, "-file", path), &stdout, &stderr)

			assert.Equal(t, 0, code)
			assert.Contains(t, stderr.String(), "level=ERROR")
			assert.Contains(t, stderr.String(), "failed to fix admin user")
		})
	}
}

func TestRun_List(t *testing.T) {
	args := setupEnv(t, nil)
	input := `[{"email":"a@x.com","isAdmin":true,"emailVerified":true},{"email":"b@x.com"}]`
	path := writeUsers(t, input)

	var stdout, stderr bytes.Buffer
	require.Equal(t, 0, run(append(args, "-list", "-file", path), &stdout, &stderr))

	assert.Contains(t, stdout.String(), "Email: a@x.com | Verified: true")
	assert.NotContains(t, stdout.String(), "b@x.com")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, input, string(data))
}

func TestRun_ProductionLogsJSON(t *testing.T) {
	args := setupEnv(t, map[string]string{"APP_ENV": "production"})
	path := writeUsers(t, `[{"email":"admin@bloom.com"}]`)

	var stdout, stderr bytes.Buffer
	require.Equal(t, 0, run(append(args, "-file", path), &stdout, &stderr))

	var rec map[string]any
	line := bytes.TrimSpace(stderr.Bytes())
	require.NoError(t, json.Unmarshal(line, &rec), stderr.String())
	assert.Equal(t, "INFO", rec["level"])
	assert.Equal(t, path, rec["path"])
	assert.NotEmpty(t, rec["run_id"])
}

func TestRun_BadFlag(t *testing.T) {
	args := setupEnv(t, nil)
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 2, run(append(args, "-nope"), &stdout, &stderr))
}
