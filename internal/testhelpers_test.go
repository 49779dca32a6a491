package internal

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
)

// fakeReply is one canned proxy answer.
type fakeReply struct {
	Status int
	Body   string
}

// fakeProxy stands in for proxy.cgi. Routes are keyed by apiPath; the
// handler receives the decoded query parameter.
type fakeProxy struct {
	*httptest.Server

	mu       sync.Mutex
	routes   map[string]func(r *http.Request) fakeReply
	calls    map[string]int
	requests []*http.Request
}

func newFakeProxy(t *testing.T) *fakeProxy {
	t.Helper()
	fp := &fakeProxy{
		routes: make(map[string]func(r *http.Request) fakeReply),
		calls:  make(map[string]int),
	}
	fp.Server = httptest.NewServer(http.HandlerFunc(fp.serve))
	t.Cleanup(fp.Close)
	return fp
}

func (fp *fakeProxy) serve(w http.ResponseWriter, r *http.Request) {
	apiPath := r.URL.Query().Get("apiPath")
	fp.mu.Lock()
	fp.calls[apiPath]++
	fp.requests = append(fp.requests, r.Clone(r.Context()))
	h, ok := fp.routes[apiPath]
	fp.mu.Unlock()
	if !ok {
		http.Error(w, "no route", http.StatusNotFound)
		return
	}
	reply := h(r)
	if reply.Status == 0 {
		reply.Status = http.StatusOK
	}
	w.Header().Set(HeaderContentType, "application/json")
	w.WriteHeader(reply.Status)
	_, _ = w.Write([]byte(reply.Body))
}

// Handle registers a dynamic route.
func (fp *fakeProxy) Handle(apiPath string, h func(r *http.Request) fakeReply) {
	fp.mu.Lock()
	fp.routes[apiPath] = h
	fp.mu.Unlock()
}

// Respond registers a fixed 200 body for apiPath.
func (fp *fakeProxy) Respond(apiPath, body string) {
	fp.Handle(apiPath, func(*http.Request) fakeReply { return fakeReply{Body: body} })
}

func (fp *fakeProxy) Calls(apiPath string) int {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	return fp.calls[apiPath]
}

func (fp *fakeProxy) LastRequest() *http.Request {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	if len(fp.requests) == 0 {
		return nil
	}
	return fp.requests[len(fp.requests)-1]
}

// RequireSession makes the ping route answer OK only for requests carrying
// the given session cookie value.
func (fp *fakeProxy) RequireSession(value string) {
	fp.Handle(DefaultPingPath, func(r *http.Request) fakeReply {
		if c, err := r.Cookie("session"); err == nil && c.Value == value {
			return fakeReply{Body: envelopeOK(`{"status":"OK"}`)}
		}
		return fakeReply{Body: `{"error":"not logged in"}`}
	})
}

// envelopeOK wraps a JSON payload in a successful envelope.
func envelopeOK(payload string) string {
	return fmt.Sprintf(`{"response":%s,"error":null}`, payload)
}

// testConfig returns defaults pointed at fp with the breaker off.
func testConfig(fp *fakeProxy) *Config {
	cfg := DefaultConfig()
	cfg.Proxy.BaseURL = fp.URL + "/proxy.cgi"
	cfg.Breaker.Enabled = false
	return cfg
}

func newTestDashboard(t *testing.T, fp *fakeProxy) *Dashboard {
	t.Helper()
	return NewDashboard(testConfig(fp), fp.Client())
}

// CreateTempConfig writes content to config.yml in a temp dir and returns its path.
func CreateTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

// NewTestRouter returns a new Gin engine in release mode for tests.
func NewTestRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	return gin.New()
}

// DoRequestWithCookies is DoRequest with cookies attached.
func DoRequestWithCookies(r http.Handler, method, path string, body []byte, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// DoRequest is a small helper to make HTTP requests against a handler.
func DoRequest(r http.Handler, method, path string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}
