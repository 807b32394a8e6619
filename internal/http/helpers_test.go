package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"

	"storefront/internal/config"
	"storefront/internal/docstore"
	"storefront/internal/docstore/memstore"
	"storefront/internal/domain"
	"storefront/internal/http/handlers"
	"storefront/internal/repos"
)

type env struct {
	app   *fiber.App
	deps  *handlers.Deps
	db    *sqlx.DB
	store *docstore.Store
	users *repos.UserRepo
}

func testConfig() config.Config {
	return config.Config{
		AppEnv:        "test",
		DBDSN:         ":memory:",
		TaxRate:       0.16,
		InvoicePrefix: "FAC",
		JWTSecret:     "handler-test-secret",
		TokenTTL:      time.Hour,
	}
}

func newEnv(t *testing.T, opts handlers.Options) *env {
	t.Helper()
	cfg := testConfig()
	db, err := repos.OpenDB(cfg.DBDSN)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := repos.SeedUsers(db, repos.DemoUsers()); err != nil {
		t.Fatalf("seed users: %v", err)
	}
	store := memstore.New()
	deps := handlers.NewDeps(db, store, cfg)
	if opts.GlobalLimit == 0 {
		opts.GlobalLimit = 1000
	}
	return &env{
		app:   handlers.NewApp(deps, opts),
		deps:  deps,
		db:    db,
		store: store,
		users: repos.NewUserRepo(db),
	}
}

// token issues a bearer token for one of the seeded accounts.
func (e *env) token(t *testing.T, email string) string {
	t.Helper()
	u, err := e.users.ByEmail(email)
	if err != nil {
		t.Fatalf("lookup %s: %v", email, err)
	}
	tok, err := e.deps.Auth.IssueToken(u)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return tok
}

func (e *env) product(t *testing.T, name string, price float64, stock int) string {
	t.Helper()
	p := &domain.Product{Name: name, Price: price, Stock: stock, Active: true}
	if err := e.store.Products.Insert(context.Background(), p); err != nil {
		t.Fatalf("insert product: %v", err)
	}
	return p.ID.Hex()
}

func (e *env) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode body: %v", err)
	}
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected %d, got %d body=%s", want, resp.StatusCode, body)
	}
}

func extractCookie(resp *http.Response, name string) string {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

type logEntry struct {
	Level  string         `json:"level"`
	Action string         `json:"action"`
	Status int            `json:"status"`
	Err    string         `json:"err"`
	Fields map[string]any `json:"fields"`
}

type lockedWriter struct {
	w  *bytes.Buffer
	mu *sync.Mutex
}

func (lw *lockedWriter) Write(p []byte) (int, error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	return lw.w.Write(p)
}

// captureLogs temporarily replaces the standard logger output.
func captureLogs(t *testing.T, fn func()) []logEntry {
	t.Helper()
	var buf bytes.Buffer
	var mu sync.Mutex
	oldW := log.Writer()
	oldFlags := log.Flags()
	log.SetOutput(&lockedWriter{w: &buf, mu: &mu})
	log.SetFlags(0)
	defer func() {
		log.SetOutput(oldW)
		log.SetFlags(oldFlags)
	}()

	fn()

	var entries []logEntry
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var e logEntry
		if err := json.Unmarshal([]byte(line), &e); err == nil {
			entries = append(entries, e)
		}
	}
	return entries
}

func hasAction(entries []logEntry, action string) bool {
	for _, e := range entries {
		if e.Action == action {
			return true
		}
	}
	return false
}

// csrf fetches a token the way a browser client would.
func (e *env) csrf(t *testing.T) string {
	t.Helper()
	resp := e.do(t, "GET", "/api/v1/auth/csrf", "", nil)
	tok := extractCookie(resp, "csrf_")
	if tok == "" {
		t.Fatal("csrf token missing")
	}
	var body struct {
		Token string `json:"csrf_token"`
	}
	decode(t, resp, &body)
	if body.Token != tok {
		t.Fatalf("csrf body %q does not match cookie %q", body.Token, tok)
	}
	return tok
}

// doCookie sends a cookie-authenticated request carrying the csrf token.
func (e *env) doCookie(t *testing.T, method, path, csrfTok, sid string, body any) *http.Response {
	t.Helper()
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(method, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	if csrfTok != "" {
		req.Header.Set("X-Csrf-Token", csrfTok)
		req.AddCookie(&http.Cookie{Name: "csrf_", Value: csrfTok})
	}
	if sid != "" {
		req.AddCookie(&http.Cookie{Name: "sid", Value: sid})
	}
	resp, err := e.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}
