package authsdk

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/labauth/pkg/slogx"
)

// recordedRequest is one request seen by a fakeAuthority.
type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Body   map[string]any
	Header http.Header
}

// fakeAuthority serves canned responses per path and records what it saw.
type fakeAuthority struct {
	t      *testing.T
	server *httptest.Server

	mu       sync.Mutex
	handlers map[string]http.HandlerFunc
	requests []recordedRequest
}

func newFakeAuthority(t *testing.T) *fakeAuthority {
	t.Helper()

	f := &fakeAuthority{t: t, handlers: map[string]http.HandlerFunc{}}
	f.server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeAuthority) serve(w http.ResponseWriter, r *http.Request) {
	rec := recordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.RawQuery,
		Header: r.Header.Clone(),
	}
	if data, _ := io.ReadAll(r.Body); len(data) > 0 {
		require.NoError(f.t, json.Unmarshal(data, &rec.Body))
	}

	f.mu.Lock()
	f.requests = append(f.requests, rec)
	h, ok := f.handlers[r.URL.Path]
	f.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	h(w, r)
}

// handle registers a handler for path.
func (f *fakeAuthority) handle(path string, h http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[path] = h
}

// respond registers a fixed status and raw body for path.
func (f *fakeAuthority) respond(path string, status int, body string) {
	f.handle(path, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	})
}

// calls returns the requests made to path.
func (f *fakeAuthority) calls(path string) []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []recordedRequest
	for _, r := range f.requests {
		if r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

// total returns the number of requests received.
func (f *fakeAuthority) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakeAuthority) client() *SDKClient {
	c := NewSDKClient(f.server.URL)
	c.Logger = slogx.Discard()
	return c
}

// requireAuthError asserts err is an *AuthError of kind and returns it.
func requireAuthError(t *testing.T, err error, kind ErrorKind) *AuthError {
	t.Helper()

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	require.Equal(t, kind, authErr.Kind, "message: %s", authErr.Message)
	require.NotEmpty(t, authErr.Message)
	return authErr
}
