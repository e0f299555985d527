package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/crucial707/ledger/internal/auth"
	"github.com/crucial707/ledger/internal/config"
	"github.com/crucial707/ledger/internal/events"
	"github.com/crucial707/ledger/internal/repo"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret-for-integration"

func testConfig() config.Config {
	return config.Config{
		JWTSecret:  testSecret,
		BcryptCost: bcrypt.MinCost,
	}
}

func newTestServer(t *testing.T, backend *repo.Backend) *httptest.Server {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	a, err := newApp(testConfig(), backend, events.Nop{}, log)
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	srv := httptest.NewServer(newRouter(a, testConfig()))
	t.Cleanup(srv.Close)
	return srv
}

func call(t *testing.T, srv *httptest.Server, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, srv.URL+path, rd)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	out, _ := io.ReadAll(resp.Body)
	return resp, out
}

func login(t *testing.T, srv *httptest.Server, username, password string) string {
	t.Helper()
	resp, body := call(t, srv, "POST", "/login", "", map[string]string{"username": username, "password": password})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status: got %d, want 200 (%s)", resp.StatusCode, body)
	}
	var out struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(body, &out); err != nil || out.Token == "" {
		t.Fatalf("login response: %v (%s)", err, body)
	}
	return out.Token
}

// TestAPI_RegisterLoginRecordList walks the whole flow: register, log in, record a
// transaction with the token, then list it back.
func TestAPI_RegisterLoginRecordList(t *testing.T) {
	srv := newTestServer(t, repo.NewMemoryBackend())

	resp, body := call(t, srv, "POST", "/register", "", map[string]string{"username": "alice", "email": "a@x.com", "password": "pw1"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status: got %d, want 201 (%s)", resp.StatusCode, body)
	}
	var alice struct {
		ID string `json:"id"`
	}
	json.Unmarshal(body, &alice)

	token := login(t, srv, "alice", "pw1")

	resp, body = call(t, srv, "POST", "/transaction", token, map[string]any{"amount": 20, "category": "food", "type": "expense"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST /transaction status: got %d, want 200 (%s)", resp.StatusCode, body)
	}
	var created struct {
		Transaction struct {
			ID      string `json:"id"`
			OwnerID string `json:"owner_id"`
		} `json:"transaction"`
	}
	json.Unmarshal(body, &created)
	if created.Transaction.OwnerID != alice.ID {
		t.Errorf("owner: got %q, want %q", created.Transaction.OwnerID, alice.ID)
	}

	resp, body = call(t, srv, "GET", "/transactions", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /transactions status: got %d, want 200", resp.StatusCode)
	}
	var list []struct {
		ID       string  `json:"id"`
		OwnerID  string  `json:"owner_id"`
		Amount   float64 `json:"amount"`
		Category string  `json:"category"`
		Type     string  `json:"type"`
	}
	if err := json.Unmarshal(body, &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("list: got %d transactions, want 1 (%s)", len(list), body)
	}
	got := list[0]
	if got.ID != created.Transaction.ID || got.OwnerID != alice.ID || got.Amount != 20 || got.Category != "food" || got.Type != "expense" {
		t.Errorf("unexpected transaction: %+v", got)
	}
}

func TestAPI_DuplicateRegistration(t *testing.T) {
	srv := newTestServer(t, repo.NewMemoryBackend())

	user := map[string]string{"username": "alice", "email": "a@x.com", "password": "pw1"}
	if resp, body := call(t, srv, "POST", "/register", "", user); resp.StatusCode != http.StatusCreated {
		t.Fatalf("first register: %d %s", resp.StatusCode, body)
	}
	resp, _ := call(t, srv, "POST", "/register", "", user)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("second register: got %d, want 409", resp.StatusCode)
	}
	resp, _ = call(t, srv, "POST", "/register", "", map[string]string{"username": "alicia", "email": "a@x.com", "password": "pw1"})
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("duplicate email: got %d, want 409", resp.StatusCode)
	}
}

func TestAPI_OwnerIsolation(t *testing.T) {
	srv := newTestServer(t, repo.NewMemoryBackend())
	for _, u := range []string{"alice", "bob"} {
		call(t, srv, "POST", "/register", "", map[string]string{"username": u, "email": u + "@x.com", "password": "pw"})
	}
	aliceToken := login(t, srv, "alice", "pw")
	bobToken := login(t, srv, "bob", "pw")

	_, body := call(t, srv, "POST", "/transaction", aliceToken, map[string]any{"amount": 5, "category": "food"})
	var created struct {
		Transaction struct {
			ID string `json:"id"`
		} `json:"transaction"`
	}
	json.Unmarshal(body, &created)
	path := "/transactions/" + created.Transaction.ID

	if resp, _ := call(t, srv, "GET", path, bobToken, nil); resp.StatusCode != http.StatusNotFound {
		t.Errorf("bob GET: got %d, want 404", resp.StatusCode)
	}
	if resp, _ := call(t, srv, "PATCH", path, bobToken, map[string]any{"amount": 1}); resp.StatusCode != http.StatusNotFound {
		t.Errorf("bob PATCH: got %d, want 404", resp.StatusCode)
	}
	if resp, _ := call(t, srv, "DELETE", path, bobToken, nil); resp.StatusCode != http.StatusNotFound {
		t.Errorf("bob DELETE: got %d, want 404", resp.StatusCode)
	}
	if _, body := call(t, srv, "GET", "/transactions", bobToken, nil); strings.TrimSpace(string(body)) != "[]" {
		t.Errorf("bob list: got %s, want []", body)
	}
	if resp, _ := call(t, srv, "DELETE", path, aliceToken, nil); resp.StatusCode != http.StatusNoContent {
		t.Errorf("alice DELETE: got %d, want 204", resp.StatusCode)
	}
}

func TestAPI_TokenRejections(t *testing.T) {
	srv := newTestServer(t, repo.NewMemoryBackend())

	sign := func(secret string, exp time.Time) string {
		tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
			Username: "alice",
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "6f1c1c1e-0000-4000-8000-000000000001",
				IssuedAt:  jwt.NewNumericDate(exp.Add(-auth.TokenTTL)),
				ExpiresAt: jwt.NewNumericDate(exp),
			},
		}).SignedString([]byte(secret))
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return tok
	}

	tests := []struct {
		name   string
		token  string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"expired", sign(testSecret, time.Now().Add(-time.Minute)), http.StatusUnauthorized},
		{"wrong key", sign("another-secret", time.Now().Add(time.Hour)), http.StatusForbidden},
		{"garbage", "abc.def.ghi", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := call(t, srv, "GET", "/transactions", tt.token, nil)
			if resp.StatusCode != tt.status {
				t.Errorf("status: got %d, want %d (%s)", resp.StatusCode, tt.status, body)
			}
		})
	}
}

func TestAPI_Summaries(t *testing.T) {
	srv := newTestServer(t, repo.NewMemoryBackend())
	call(t, srv, "POST", "/register", "", map[string]string{"username": "alice", "email": "a@x.com", "password": "pw"})
	token := login(t, srv, "alice", "pw")

	today := time.Now().UTC().Format(time.DateOnly)
	for _, tx := range []map[string]any{
		{"amount": 10, "category": "food", "type": "expense", "date": today},
		{"amount": 5, "category": "food", "type": "expense", "date": today},
		{"amount": 100, "category": "salary", "type": "income", "date": today},
	} {
		if resp, body := call(t, srv, "POST", "/transaction", token, tx); resp.StatusCode != http.StatusOK {
			t.Fatalf("seed: %d %s", resp.StatusCode, body)
		}
	}

	resp, body := call(t, srv, "GET", "/summary/categories", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("categories status: %d", resp.StatusCode)
	}
	var cats struct {
		Categories []struct {
			Category string  `json:"category"`
			Total    float64 `json:"total"`
		} `json:"categories"`
	}
	json.Unmarshal(body, &cats)
	if len(cats.Categories) != 2 || cats.Categories[0].Total != 100 || cats.Categories[1].Total != 15 {
		t.Errorf("categories: %s", body)
	}

	resp, body = call(t, srv, "GET", "/summary/balance", token, nil)
	var bal map[string]float64
	json.Unmarshal(body, &bal)
	if resp.StatusCode != http.StatusOK || bal["net"] != 85 {
		t.Errorf("balance: %d %s", resp.StatusCode, body)
	}
}

// TestAPI_Health is a quick smoke test for the health endpoint.
func TestAPI_Health(t *testing.T) {
	srv := newTestServer(t, repo.NewMemoryBackend())

	resp, _ := call(t, srv, "GET", "/health", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET /health status: got %d, want 200", resp.StatusCode)
	}
	if resp.Header.Get("X-Content-Type-Options") != "nosniff" {
		t.Error("security headers missing")
	}
}

// TestAPI_Ready checks that /ready pings the database.
func TestAPI_Ready(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectPing()
	srv := newTestServer(t, repo.NewPostgresBackend(db, repo.DefaultTimeout))

	resp, _ := call(t, srv, "GET", "/ready", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET /ready status: got %d, want 200", resp.StatusCode)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestAPI_Metrics(t *testing.T) {
	srv := newTestServer(t, repo.NewMemoryBackend())
	call(t, srv, "GET", "/transactions", "", nil)

	resp, body := call(t, srv, "GET", "/metrics", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /metrics status: got %d", resp.StatusCode)
	}
	if !bytes.Contains(body, []byte("ledger_auth_rejections_total")) {
		t.Error("ledger metrics not exposed")
	}
}

func TestAPI_UnknownRoute(t *testing.T) {
	srv := newTestServer(t, repo.NewMemoryBackend())
	resp, body := call(t, srv, "GET", "/assets", "", nil)
	if resp.StatusCode != http.StatusNotFound || !json.Valid(body) {
		t.Errorf("got %d %s", resp.StatusCode, body)
	}
}
