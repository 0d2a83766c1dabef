package supabase

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"bloom/internal/config"
	"bloom/internal/supabase/supabasetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "service-role-key"

func newTestClient(t *testing.T, fake *supabasetest.Fake, key string) *Client {
	t.Helper()
	cfg := &config.Config{
		SupabaseURL:     "https://demo.supabase.co/",
		SupabaseKey:     key,
		SupabaseTimeout: 5 * time.Second,
	}
	c, err := NewClient(cfg, WithHTTPClient(fake.HTTPClient()))
	require.NoError(t, err)
	return c
}

func TestNewClient_MissingCredentials(t *testing.T) {
	_, err := NewClient(&config.Config{SupabaseKey: "k"})
	assert.ErrorIs(t, err, config.ErrMissingSupabaseURL)

	_, err = NewClient(&config.Config{SupabaseURL: "https://demo.supabase.co"})
	assert.ErrorIs(t, err, config.ErrMissingSupabaseKey)
}

func TestNewClient_InvalidURL(t *testing.T) {
	_, err := NewClient(&config.Config{SupabaseURL: "demo.supabase.co", SupabaseKey: "k"})
	assert.Error(t, err)
}

func TestClient_DeleteAll(t *testing.T) {
	fake := supabasetest.New(testKey)
	fake.Put("products", map[string]any{"id": "a"}, map[string]any{"id": "b"})
	c := newTestClient(t, fake, testKey)

	require.NoError(t, c.DeleteAll(context.Background(), "products"))

	assert.Empty(t, fake.Rows("products"))
	assert.Equal(t, []string{"DELETE /rest/v1/products?id=not.is.null"}, fake.Requests())
}

func TestClient_Insert(t *testing.T) {
	fake := supabasetest.New(testKey)
	c := newTestClient(t, fake, testKey)

	rows := []struct {
		ID   string `json:"id"`
		Code string `json:"code"`
	}{
		{ID: "1", Code: "WELCOME10"},
		{ID: "2", Code: "SPRING25"},
	}
	require.NoError(t, c.Insert(context.Background(), "coupons", &rows))

	got := fake.Rows("coupons")
	require.Len(t, got, 2)
	assert.Equal(t, "WELCOME10", got[0]["code"])
	assert.Equal(t, "SPRING25", got[1]["code"])
}

func TestClient_APIErrors(t *testing.T) {
	t.Run("wrong key", func(t *testing.T) {
		fake := supabasetest.New(testKey)
		c := newTestClient(t, fake, "anon-key")

		err := c.DeleteAll(context.Background(), "users")

		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
		assert.Equal(t, "Invalid API key", apiErr.Message)
		assert.True(t, apiErr.IsPermissionDenied())
	})

	t.Run("constraint violation", func(t *testing.T) {
		fake := supabasetest.New(testKey)
		fake.FailWith(http.MethodPost, "coupons", http.StatusConflict, "23505", "duplicate key value violates unique constraint")
		c := newTestClient(t, fake, testKey)

		err := c.Insert(context.Background(), "coupons", []map[string]any{{"code": "X"}})

		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusConflict, apiErr.Status)
		assert.Equal(t, "23505", apiErr.Code)
		assert.False(t, apiErr.IsPermissionDenied())
		assert.Contains(t, err.Error(), "status 409 (23505): duplicate key")
	})

	t.Run("rls denial", func(t *testing.T) {
		fake := supabasetest.New(testKey)
		fake.FailWith(http.MethodDelete, "users", http.StatusBadRequest, "42501", "permission denied for table users")
		c := newTestClient(t, fake, testKey)

		err := c.DeleteAll(context.Background(), "users")

		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.True(t, apiErr.IsPermissionDenied())
	})
}

type failingTransport struct{}

func (failingTransport) RoundTrip(*http.Request) (*http.Response, error) {
	return nil, errors.New("connection refused")
}

func TestClient_TransportError(t *testing.T) {
	cfg := &config.Config{SupabaseURL: "https://demo.supabase.co", SupabaseKey: testKey, SupabaseTimeout: time.Second}
	c, err := NewClient(cfg, WithHTTPClient(&http.Client{Transport: failingTransport{}}))
	require.NoError(t, err)

	err = c.Insert(context.Background(), "products", []int{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "POST products")
	assert.Contains(t, err.Error(), "connection refused")
}
