package testutil

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/bytedance/sonic"
)

// RecordedRequest is a request the fake backend received
type RecordedRequest struct {
	Method        string
	Path          string
	Authorization string
	Body          []byte
}

// FakeBackend is an httptest server standing in for the D-Logic API.
// Unregistered routes answer 404.
type FakeBackend struct {
	*httptest.Server

	mu       sync.Mutex
	routes   map[string]http.HandlerFunc
	requests []RecordedRequest
}

// NewFakeBackend starts a fake backend that is closed with the test
func NewFakeBackend(t *testing.T) *FakeBackend {
	t.Helper()
	fb := &FakeBackend{routes: make(map[string]http.HandlerFunc)}
	fb.Server = httptest.NewServer(http.HandlerFunc(fb.serve))
	t.Cleanup(fb.Close)
	return fb
}

func routeKey(method, path string) string {
	return method + " " + path
}

// Handle registers fn for method and path
func (fb *FakeBackend) Handle(method, path string, fn http.HandlerFunc) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.routes[routeKey(method, path)] = fn
}

// Respond registers a fixed status and JSON body for method and path
func (fb *FakeBackend) Respond(method, path string, status int, body string) {
	fb.Handle(method, path, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	})
}

// Requests returns what the backend has received so far
func (fb *FakeBackend) Requests() []RecordedRequest {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return append([]RecordedRequest(nil), fb.requests...)
}

// Hits counts requests to path with any method
func (fb *FakeBackend) Hits(path string) int {
	n := 0
	for _, r := range fb.Requests() {
		if r.Path == path {
			n++
		}
	}
	return n
}

// DecodeBody unmarshals the body of the i-th recorded request into v
func (fb *FakeBackend) DecodeBody(t *testing.T, i int, v interface{}) {
	t.Helper()
	reqs := fb.Requests()
	if i >= len(reqs) {
		t.Fatalf("only %d requests recorded, want index %d", len(reqs), i)
	}
	if err := sonic.Unmarshal(reqs[i].Body, v); err != nil {
		t.Fatalf("Failed to decode request body %q: %v", reqs[i].Body, err)
	}
}

func (fb *FakeBackend) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	r.Body = io.NopCloser(bytes.NewReader(body))

	fb.mu.Lock()
	fb.requests = append(fb.requests, RecordedRequest{
		Method:        r.Method,
		Path:          r.URL.Path,
		Authorization: r.Header.Get("Authorization"),
		Body:          body,
	})
	fn, ok := fb.routes[routeKey(r.Method, r.URL.Path)]
	fb.mu.Unlock()

	if !ok {
		http.Error(w, `{"detail":"Not Found"}`, http.StatusNotFound)
		return
	}
	fn(w, r)
}
