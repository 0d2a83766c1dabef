// Package supabase is a minimal PostgREST client for the Supabase REST API.
// It covers the two table operations the seeder needs: delete every row and
// bulk insert.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"bloom/internal/config"
	"bloom/internal/observability"
)

const restPath = "/rest/v1"

// Client talks to <SUPABASE_URL>/rest/v1 using the configured key.
type Client struct {
	baseURL    string
	apiKey     string
	timeout    time.Duration
	httpClient *http.Client
	logger     *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger replaces the client's logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient builds a client from cfg. It fails with config.ErrMissingCredentials
// before doing anything else when the URL or key is absent.
func NewClient(cfg *config.Config, opts ...Option) (*Client, error) {
	if err := cfg.ValidateSupabase(); err != nil {
		return nil, err
	}

	u, err := url.Parse(strings.TrimRight(cfg.SupabaseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid SUPABASE_URL %q", cfg.SupabaseURL)
	}

	timeout := cfg.SupabaseTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	c := &Client{
		baseURL:    u.String() + restPath,
		apiKey:     cfg.SupabaseKey,
		timeout:    timeout,
		httpClient: &http.Client{},
		logger:     observability.Logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// DeleteAll removes every row of table. PostgREST refuses unfiltered deletes,
// so the request matches all rows with a non-null id.
func (c *Client) DeleteAll(ctx context.Context, table string) error {
	query := url.Values{"id": {"not.is.null"}}
	return c.do(ctx, http.MethodDelete, table, query, nil)
}

// Insert bulk inserts rows, which must marshal to a JSON array of objects.
func (c *Client) Insert(ctx context.Context, table string, rows any) error {
	body, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("encode %s rows: %w", table, err)
	}
	return c.do(ctx, http.MethodPost, table, nil, body)
}

func (c *Client) do(ctx context.Context, method, table string, query url.Values, body []byte) error {
	endpoint := c.baseURL + "/" + url.PathEscape(table)
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Prefer", "return=minimal")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		c.logger.WarnContext(ctx, "supabase request failed",
			slog.String("method", method),
			slog.String("table", table),
			slog.Duration("elapsed", elapsed),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("%s %s: %w", method, table, err)
	}
	defer func() { _ = resp.Body.Close() }()

	c.logger.DebugContext(ctx, "supabase request completed",
		slog.String("method", method),
		slog.String("table", table),
		slog.Int("status", resp.StatusCode),
		slog.Duration("elapsed", elapsed),
	)

	if resp.StatusCode >= http.StatusMultipleChoices {
		return newAPIError(resp)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
