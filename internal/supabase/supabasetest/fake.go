// Package supabasetest provides an in-memory PostgREST double for tests.
package supabasetest

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gofiber/fiber/v2"
)

// Fake emulates the subset of the PostgREST API used by the seeder. It is
// served through a fiber app wired in as an http.RoundTripper, so no socket
// is opened.
type Fake struct {
	APIKey string

	mu       sync.Mutex
	app      *fiber.App
	tables   map[string][]map[string]any
	requests []string
	failures map[string]failure
}

type failure struct {
	status int
	body   fiber.Map
}

// New returns a Fake accepting only the given API key.
func New(apiKey string) *Fake {
	f := &Fake{
		APIKey:   apiKey,
		tables:   make(map[string][]map[string]any),
		failures: make(map[string]failure),
	}

	app := fiber.New(fiber.Config{DisableStartupMessage: true, Immutable: true})
	app.Use(f.recordRequest)
	app.Use(f.authenticate)
	app.Delete("/rest/v1/:table", f.handleDelete)
	app.Post("/rest/v1/:table", f.handleInsert)
	f.app = app
	return f
}

// RoundTrip implements http.RoundTripper.
func (f *Fake) RoundTrip(req *http.Request) (*http.Response, error) {
	return f.app.Test(req, -1)
}

// HTTPClient returns a client routed to the fake.
func (f *Fake) HTTPClient() *http.Client {
	return &http.Client{Transport: f}
}

// Put replaces the contents of table.
func (f *Fake) Put(table string, rows ...map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tables[table] = append([]map[string]any(nil), rows...)
}

// Rows returns a copy of the rows currently held for table.
func (f *Fake) Rows(table string) []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]map[string]any(nil), f.tables[table]...)
}

// Requests lists "METHOD /path?query" for every request received, in order.
func (f *Fake) Requests() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requests...)
}

// FailWith makes every subsequent request with the given method against
// table answer with status and a PostgREST error body.
func (f *Fake) FailWith(method, table string, status int, code, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[method+" "+table] = failure{
		status: status,
		body:   fiber.Map{"code": code, "message": message, "details": nil, "hint": nil},
	}
}

func (f *Fake) recordRequest(c *fiber.Ctx) error {
	f.mu.Lock()
	f.requests = append(f.requests, c.Method()+" "+string(c.Request().URI().RequestURI()))
	f.mu.Unlock()
	return c.Next()
}

func (f *Fake) authenticate(c *fiber.Ctx) error {
	if c.Get("apikey") != f.APIKey || c.Get(fiber.HeaderAuthorization) != "Bearer "+f.APIKey {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Invalid API key"})
	}
	return c.Next()
}

func (f *Fake) injectedFailure(c *fiber.Ctx) (failure, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fail, ok := f.failures[c.Method()+" "+c.Params("table")]
	return fail, ok
}

func (f *Fake) handleDelete(c *fiber.Ctx) error {
	if fail, ok := f.injectedFailure(c); ok {
		return c.Status(fail.status).JSON(fail.body)
	}
	if c.Query("id") != "not.is.null" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"code":    "21000",
			"message": "DELETE requires a WHERE clause",
		})
	}

	f.mu.Lock()
	delete(f.tables, c.Params("table"))
	f.mu.Unlock()
	return c.SendStatus(fiber.StatusNoContent)
}

func (f *Fake) handleInsert(c *fiber.Ctx) error {
	if fail, ok := f.injectedFailure(c); ok {
		return c.Status(fail.status).JSON(fail.body)
	}

	var rows []map[string]any
	if err := json.Unmarshal(c.Body(), &rows); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"code":    "PGRST102",
			"message": "Empty or invalid json",
		})
	}

	table := c.Params("table")
	f.mu.Lock()
	f.tables[table] = append(f.tables[table], rows...)
	f.mu.Unlock()
	return c.SendStatus(fiber.StatusCreated)
}
