package tx

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/crucial707/ledger/cmd/cli/config"
	"github.com/crucial707/ledger/cmd/cli/root"
)

const sampleTx = `{"id":"t1","owner_id":"u1","amount":20,"category":"food","type":"expense","date":"2024-03-01T00:00:00Z"}`

func run(t *testing.T, handler http.HandlerFunc, loggedIn bool, args ...string) (string, error) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	t.Setenv("LEDGER_API_URL", srv.URL)
	t.Setenv("LEDGER_TOKEN_FILE", filepath.Join(t.TempDir(), "token"))
	if loggedIn {
		if err := config.SaveToken("tok"); err != nil {
			t.Fatalf("SaveToken: %v", err)
		}
	}

	rootCmd := root.NewRoot()
	InitTx(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func noRequest(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
	}
}

func TestAdd(t *testing.T) {
	var got map[string]string
	out, err := run(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" || r.URL.Path != "/transaction" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("Authorization: got %q", r.Header.Get("Authorization"))
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"message":"transaction recorded","transaction":` + sampleTx + `}`))
	}, true, "tx", "add", "--amount", "20", "--category", "food")

	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if want := map[string]string{"amount": "20", "category": "food"}; !reflect.DeepEqual(got, want) {
		t.Errorf("payload: got %v, want %v", got, want)
	}
	if !strings.Contains(out, "food") || !strings.Contains(out, "20.00") {
		t.Errorf("output: %s", out)
	}
}

func TestAdd_RejectsNonNumericAmount(t *testing.T) {
	_, err := run(t, noRequest(t), true, "tx", "add", "--amount", "lots", "--category", "food")
	if err == nil || !strings.Contains(err.Error(), "--amount must be a number") {
		t.Errorf("got %v", err)
	}
}

func TestList_TableOutput(t *testing.T) {
	out, err := run(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transactions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(`[` + sampleTx + `,{"id":"t2","amount":100,"category":"salary","type":"income","date":"2024-03-02T00:00:00Z"}]`))
	}, true, "tx", "list")

	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, want := range []string{"salary", "2024-03-02", "100.00"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q: %s", want, out)
		}
	}
}

func TestList_JSONOutput(t *testing.T) {
	out, err := run(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[` + sampleTx + `]`))
	}, true, "tx", "list", "--json")

	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, `"category": "food"`) {
		t.Errorf("expected JSON output, got: %s", out)
	}
}

func TestList_Empty(t *testing.T) {
	out, err := run(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}, true, "tx", "list")

	if err != nil || !strings.Contains(out, "No transactions recorded") {
		t.Errorf("list: %q %v", out, err)
	}
}

func TestList_NotLoggedIn(t *testing.T) {
	_, err := run(t, noRequest(t), false, "tx", "list")
	if !errors.Is(err, config.ErrNotLoggedIn) {
		t.Errorf("expected ErrNotLoggedIn, got %v", err)
	}
}

func TestUpdate_SendsOnlyChangedFields(t *testing.T) {
	var got map[string]string
	_, err := run(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "PATCH" || r.URL.Path != "/transactions/t1" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(sampleTx))
	}, true, "tx", "update", "t1", "--category", "groceries")

	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if want := map[string]string{"category": "groceries"}; !reflect.DeepEqual(got, want) {
		t.Errorf("payload: got %v, want %v", got, want)
	}
}

func TestUpdate_NothingToChange(t *testing.T) {
	_, err := run(t, noRequest(t), true, "tx", "update", "t1")
	if err == nil || !strings.Contains(err.Error(), "nothing to update") {
		t.Errorf("got %v", err)
	}
}

func TestDelete(t *testing.T) {
	out, err := run(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "DELETE" || r.URL.Path != "/transactions/t1" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusNoContent)
	}, true, "tx", "delete", "t1")

	if err != nil || !strings.Contains(out, "deleted") {
		t.Errorf("delete: %q %v", out, err)
	}
}

func TestDelete_NotFound(t *testing.T) {
	_, err := run(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"transaction not found"}`))
	}, true, "tx", "delete", "t9")
	if err == nil || !strings.Contains(err.Error(), "404") {
		t.Errorf("got %v", err)
	}
}
