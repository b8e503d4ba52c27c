package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/yamdb/yamdb-api/internal/config"
)

// CodeRecorder captures confirmation codes instead of mailing them.
type CodeRecorder struct {
	mu    sync.Mutex
	codes map[string]string
	sent  int
	Err   error
}

func NewCodeRecorder() *CodeRecorder {
	return &CodeRecorder{codes: make(map[string]string)}
}

func (r *CodeRecorder) SendConfirmationCode(_ context.Context, email, _ string, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codes[email] = code
	r.sent++
	return r.Err
}

// Code returns the last code sent to email.
func (r *CodeRecorder) Code(email string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.codes[email]
}

func (r *CodeRecorder) Sent() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sent
}

// TestConfig returns a configuration suitable for wiring the router in tests.
func TestConfig() *config.Config {
	return &config.Config{
		DBDriver:             "sqlite",
		JWTSecret:            TestJWTSecret,
		JWTExpiry:            time.Hour,
		Environment:          "test",
		ConfirmationCodeTTL:  time.Hour,
		MailTransport:        "log",
		MailFrom:             "noreply@yamdb.local",
		RateLimitMaxRequests: 1000,
		RateLimitWindow:      time.Minute,
		PageSize:             10,
	}
}

// PerformRequest sends a JSON request through router, with a bearer token when given.
func PerformRequest(router http.Handler, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// DecodeJSON unmarshals the recorded body into a generic map.
func DecodeJSON(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	var out map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("Invalid JSON response %q: %v", w.Body.String(), err)
	}
	return out
}
