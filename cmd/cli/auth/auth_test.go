package auth

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/crucial707/ledger/cmd/cli/client"
	"github.com/crucial707/ledger/cmd/cli/config"
	"github.com/crucial707/ledger/cmd/cli/root"
)

// run executes the CLI against srv with an isolated token file and returns stdout.
func run(t *testing.T, srv *httptest.Server, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("LEDGER_API_URL", srv.URL)
	if os.Getenv("LEDGER_TOKEN_FILE") == "" {
		t.Setenv("LEDGER_TOKEN_FILE", filepath.Join(t.TempDir(), "token"))
	}

	rootCmd := root.NewRoot()
	InitAuth(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestLogin_SavesToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/login" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["username"] != "alice" || body["password"] != "pw1" {
			t.Errorf("unexpected body: %v", body)
		}
		w.Write([]byte(`{"token":"tok-123","expires_at":"2024-03-01T12:00:00Z"}`))
	}))
	defer srv.Close()

	out, err := run(t, srv, "pw1\n", "login", "--username", "alice")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !strings.Contains(out, "Login successful") {
		t.Errorf("output: %s", out)
	}
	token, err := config.LoadToken()
	if err != nil || token != "tok-123" {
		t.Errorf("saved token: %q, %v", token, err)
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"invalid credentials"}`))
	}))
	defer srv.Close()

	_, err := run(t, srv, "", "login", "--username", "alice", "--password", "nope")
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized {
		t.Fatalf("expected 401 APIError, got %v", err)
	}
	if _, err := config.LoadToken(); !errors.Is(err, config.ErrNotLoggedIn) {
		t.Errorf("token must not be saved on failure: %v", err)
	}
}

func TestRegister(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if r.URL.Path != "/register" || body["email"] != "a@x.com" {
			t.Errorf("unexpected request %s %v", r.URL.Path, body)
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"u1","username":"alice","email":"a@x.com"}`))
	}))
	defer srv.Close()

	out, err := run(t, srv, "", "register", "--username", "alice", "--email", "a@x.com", "--password", "pw1")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if !strings.Contains(out, "alice registered") {
		t.Errorf("output: %s", out)
	}
}

func TestLogout(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	t.Setenv("LEDGER_TOKEN_FILE", filepath.Join(t.TempDir(), "token"))

	out, _ := run(t, srv, "", "logout")
	if !strings.Contains(out, "No user logged in") {
		t.Errorf("output without token: %s", out)
	}

	config.SaveToken("tok")
	out, err := run(t, srv, "", "logout")
	if err != nil || !strings.Contains(out, "Logged out") {
		t.Errorf("logout: %s %v", out, err)
	}
}

func TestWhoami_TableOutput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"id":"u1","username":"alice","email":"a@x.com","created_at":"2024-03-01T00:00:00Z"}`))
	}))
	defer srv.Close()
	t.Setenv("LEDGER_TOKEN_FILE", filepath.Join(t.TempDir(), "token"))
	config.SaveToken("tok")

	out, err := run(t, srv, "", "whoami")
	if err != nil {
		t.Fatalf("whoami: %v", err)
	}
	if !strings.Contains(out, "alice") || !strings.Contains(out, "2024-03-01") {
		t.Errorf("output: %s", out)
	}
}
