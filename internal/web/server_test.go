package web

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cabewaldrop/pagedb/internal/sql/executor"
	"github.com/cabewaldrop/pagedb/internal/table"
)

// createTestExecutor opens a fresh database in a temporary directory.
func createTestExecutor(t *testing.T) *executor.Executor {
	t.Helper()
	exec, err := executor.Open(t.TempDir(), "WebDB", table.Options{PageCapacity: 4})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	return exec
}

// executeCommand runs a command against exec and fails the test on error.
func executeCommand(t *testing.T, exec *executor.Executor, command string) {
	t.Helper()
	if _, err := exec.ExecuteString(command); err != nil {
		t.Fatalf("failed to execute %q: %v", command, err)
	}
}

// setupTestServer returns a running test server over a people table.
func setupTestServer(t *testing.T) (*httptest.Server, *executor.Executor) {
	t.Helper()
	exec := createTestExecutor(t)
	executeCommand(t, exec, "CreateTable people (ID:Integer, Name:String, Score:Double) Index ON ID")
	executeCommand(t, exec, `Insert INTO people {(1, "Ann", 1.5), (2, "Bob", 2.5), (3, "Cid", 3.5)}`)

	ts := httptest.NewServer(NewServer(0, exec).Router())
	t.Cleanup(ts.Close)
	return ts, exec
}

// doJSON sends a request and decodes the APIResponse.
func doJSON(t *testing.T, method, url string, body interface{}) (int, APIResponse) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	var apiResp APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		t.Fatalf("decode %s %s: %v", method, url, err)
	}
	return resp.StatusCode, apiResp
}

// decodeData re-decodes the Data field of an APIResponse into out.
func decodeData(t *testing.T, resp APIResponse, out interface{}) {
	t.Helper()
	data, err := json.Marshal(resp.Data)
	if err != nil {
		t.Fatalf("marshal data: %v", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
}

func TestServerStartup(t *testing.T) {
	// Create server with nil executor (no database needed for basic tests)
	srv := NewServer(0, nil)

	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("Failed to GET /health: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read response body: %v", err)
	}

	if string(body) != "ok" {
		t.Errorf("Expected body 'ok', got %q", string(body))
	}
}

func TestServerIndexWithoutExecutor(t *testing.T) {
	ts := httptest.NewServer(NewServer(0, nil).Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("Failed to GET /: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", resp.StatusCode)
	}
}

func TestServerIndexListsTables(t *testing.T) {
	ts, _ := setupTestServer(t)

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("Failed to GET /: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	html := string(body)
	if !strings.Contains(html, "WebDB") {
		t.Error("expected database name in index page")
	}
	if !strings.Contains(html, `href="/tables/people/data"`) {
		t.Errorf("expected link to people table, got:\n%s", html)
	}
}

func TestServerUnknownRoute(t *testing.T) {
	ts := httptest.NewServer(NewServer(0, nil).Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/nope")
	if err != nil {
		t.Fatalf("Failed to GET /nope: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", resp.StatusCode)
	}
}

// httptestServer serves srv for the duration of the test and returns its URL.
func httptestServer(t *testing.T, srv *Server) string {
	t.Helper()
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts.URL
}
