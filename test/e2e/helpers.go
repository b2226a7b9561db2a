//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cloo-solutions/askdocs/internal/testutil"
	"github.com/jackc/pgx/v5/pgxpool"
)

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T          *testing.T
	Ctx        context.Context
	PostgresC  *testutil.PostgresContainer
	RustFSC    *testutil.RustFSContainer
	Pool       *pgxpool.Pool
	LLM        *FakeLLM
	BinaryDir  string
	WorkDir    string
	DocsDir    string
	ServerURL  string
	server     *exec.Cmd
	serverLog  *bytes.Buffer
	HTTPClient *http.Client
}

// SetupE2EEnv starts Postgres, RustFS and a fake language model, builds the
// binaries and runs askdocsd against them.
func SetupE2EEnv(t *testing.T, docs map[string]string) *E2ETestEnv {
	ctx := context.Background()

	env := &E2ETestEnv{
		T:          t,
		Ctx:        ctx,
		PostgresC:  testutil.NewPostgresContainer(ctx, t),
		RustFSC:    testutil.NewRustFSContainer(ctx, t),
		LLM:        NewFakeLLM(),
		WorkDir:    t.TempDir(),
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
	env.Pool = testutil.NewTestPool(ctx, t, env.PostgresC)

	env.DocsDir = filepath.Join(env.WorkDir, "docs")
	if err := os.MkdirAll(env.DocsDir, 0o755); err != nil {
		t.Fatalf("failed to create docs dir: %v", err)
	}
	for name, content := range docs {
		if err := os.WriteFile(filepath.Join(env.DocsDir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}

	env.BuildBinaries()
	env.StartServer()
	return env
}

// Cleanup stops the server and containers
func (e *E2ETestEnv) Cleanup() {
	e.StopServer()
	if e.LLM != nil {
		e.LLM.Close()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.RustFSC != nil {
		e.RustFSC.Terminate(e.Ctx)
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
	if e.BinaryDir != "" {
		os.RemoveAll(e.BinaryDir)
	}
}

// BuildBinaries builds the askdocs and askdocsd binaries
func (e *E2ETestEnv) BuildBinaries() {
	tmpDir, err := os.MkdirTemp("", "askdocs-e2e-*")
	if err != nil {
		e.T.Fatalf("failed to create temp dir: %v", err)
	}
	e.BinaryDir = tmpDir

	for _, name := range []string{"askdocsd", "askdocs"} {
		cmd := exec.Command("go", "build", "-o", filepath.Join(tmpDir, name), "./cmd/"+name)
		cmd.Dir = "../.."
		if out, err := cmd.CombinedOutput(); err != nil {
			e.T.Fatalf("failed to build %s: %v\n%s", name, err, out)
		}
	}
}

// ServerEnv is the environment askdocsd runs with.
func (e *E2ETestEnv) ServerEnv(port int) []string {
	return append(os.Environ(),
		fmt.Sprintf("ASKDOCS_PORT=%d", port),
		"ASKDOCS_DOCS_DIR="+e.DocsDir,
		"ASKDOCS_INDEX_PATH="+filepath.Join(e.WorkDir, "index.gob"),
		"ASKDOCS_EMBEDDING_PROVIDER=hash",
		"ASKDOCS_CONFIDENCE_THRESHOLD=0",
		"ASKDOCS_CHUNK_SIZE=40",
		"ASKDOCS_CHUNK_OVERLAP=5",
		"ASKDOCS_OPENAI_API_KEY=sk-e2e",
		"ASKDOCS_OPENAI_BASE_URL="+e.LLM.URL()+"/v1",
		"ASKDOCS_PROVIDER_RPS=0",
		"ASKDOCS_INGEST_POLL_INTERVAL=200ms",
		"ASKDOCS_DATABASE_URL="+e.PostgresC.ConnectionString(),
		"ASKDOCS_S3_ENDPOINT="+e.RustFSC.Endpoint(),
		"ASKDOCS_S3_ACCESS_KEY_ID=rustfsadmin",
		"ASKDOCS_S3_SECRET_ACCESS_KEY=rustfsadmin",
		"ASKDOCS_S3_BUCKET=askdocs-e2e",
	)
}

// StartServer runs askdocsd serve and waits for /health.
func (e *E2ETestEnv) StartServer() {
	port, err := getFreePort()
	if err != nil {
		e.T.Fatalf("failed to get free port: %v", err)
	}

	e.serverLog = &bytes.Buffer{}
	cmd := exec.Command(filepath.Join(e.BinaryDir, "askdocsd"), "serve")
	cmd.Dir = e.WorkDir
	cmd.Env = e.ServerEnv(port)
	cmd.Stdout = e.serverLog
	cmd.Stderr = e.serverLog
	if err := cmd.Start(); err != nil {
		e.T.Fatalf("failed to start askdocsd: %v", err)
	}
	e.server = cmd

	e.ServerURL = fmt.Sprintf("http://localhost:%d", port)
	e.waitForServer(30 * time.Second)
}

// StopServer interrupts askdocsd and waits for it to exit.
func (e *E2ETestEnv) StopServer() {
	if e.server == nil || e.server.Process == nil {
		return
	}
	_ = e.server.Process.Signal(os.Interrupt)
	_ = e.server.Wait()
	e.server = nil
}

// RunAskdocs runs the askdocs CLI against the server
func (e *E2ETestEnv) RunAskdocs(args ...string) (string, error) {
	cmd := exec.Command(filepath.Join(e.BinaryDir, "askdocs"), args...)
	cmd.Dir = e.WorkDir
	cmd.Env = append(os.Environ(), "ASKDOCS_API_URL="+e.ServerURL)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// APIResponse represents a standard API response
type APIResponse struct {
	StatusCode int
	Data       json.RawMessage `json:"data"`
	Error      string          `json:"error,omitempty"`
}

// Get performs a GET request
func (e *E2ETestEnv) Get(path string) (*APIResponse, error) {
	return e.doRequest(http.MethodGet, path, nil)
}

// Post performs a POST request
func (e *E2ETestEnv) Post(path string, body interface{}) (*APIResponse, error) {
	return e.doRequest(http.MethodPost, path, body)
}

// Delete performs a DELETE request
func (e *E2ETestEnv) Delete(path string) (*APIResponse, error) {
	return e.doRequest(http.MethodDelete, path, nil)
}

func (e *E2ETestEnv) doRequest(method, path string, body interface{}) (*APIResponse, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, e.ServerURL+path, reqBody)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var apiResp APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("failed to decode response (%d): %w", resp.StatusCode, err)
	}
	apiResp.StatusCode = resp.StatusCode
	return &apiResp, nil
}

// Eventually polls fn until it returns true or the timeout passes.
func (e *E2ETestEnv) Eventually(timeout time.Duration, fn func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return true
		}
		time.Sleep(100 * time.Millisecond)
	}
	return false
}

func (e *E2ETestEnv) waitForServer(timeout time.Duration) {
	ok := e.Eventually(timeout, func() bool {
		resp, err := http.Get(e.ServerURL + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	})
	if !ok {
		e.T.Fatalf("server did not start within %v\n%s", timeout, e.serverLog.String())
	}
}

func getFreePort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}

	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// FakeLLM is an OpenAI-compatible chat endpoint. It asks for retrieval on the
// first call, returns a JSON answer when prompted for extraction and echoes a
// fixed reply otherwise.
type FakeLLM struct {
	srv *httptest.Server

	mu       sync.Mutex
	requests int
}

func NewFakeLLM() *FakeLLM {
	f := &FakeLLM{}
	f.srv = httptest.NewServer(http.HandlerFunc(f.handle))
	return f
}

func (f *FakeLLM) URL() string { return f.srv.URL }

func (f *FakeLLM) Close() { f.srv.Close() }

// Requests returns the number of chat completions served.
func (f *FakeLLM) Requests() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests
}

func (f *FakeLLM) handle(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	f.mu.Lock()
	f.requests++
	f.mu.Unlock()

	reply := "TOOL_CALL: search_documents"
	if len(req.Messages) > 0 {
		first := req.Messages[0].Content
		switch {
		case strings.Contains(first, "Extract the answer"):
			reply = `{"answer": "Employees receive twenty days of paid leave.", "source": "leave_policy.txt"}`
		case strings.Contains(first, "Based on the following information"):
			reply = "From the documents: twenty days."
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"object": "chat.completion",
		"choices": []map[string]interface{}{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]string{"role": "assistant", "content": reply},
		}},
	})
}
