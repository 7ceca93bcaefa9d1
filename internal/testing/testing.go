// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"
)

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// MockRoundTripper returns a canned response or error and counts calls.
type MockRoundTripper struct {
	response *http.Response
	err      error

	mu    sync.Mutex
	calls []*http.Request
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	m.mu.Unlock()
	if m.response != nil && m.response.Request == nil {
		m.response.Request = req
	}
	return m.response, m.err
}

// Calls returns the requests seen so far.
func (m *MockRoundTripper) Calls() []*http.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*http.Request(nil), m.calls...)
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

// StaticTokens is a token source with a fixed, swappable access token.
type StaticTokens struct {
	mu    sync.Mutex
	token string
}

func NewStaticTokens(token string) *StaticTokens {
	return &StaticTokens{token: token}
}

func (s *StaticTokens) AccessToken() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, s.token != ""
}

func (s *StaticTokens) Set(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

// MockRefresher swaps the token in Tokens on Refresh, or fails with Err.
type MockRefresher struct {
	Tokens *StaticTokens
	Next   string
	Err    error

	mu    sync.Mutex
	calls int
}

func (m *MockRefresher) Refresh(context.Context) error {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if m.Tokens != nil {
		m.Tokens.Set(m.Next)
	}
	return nil
}

func (m *MockRefresher) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}

// ReadAll drains r, failing the test on error.
func ReadAll(t *testing.T, r io.Reader) []byte {
	t.Helper()
	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("Failed to read: %v", err)
	}
	return data
}
