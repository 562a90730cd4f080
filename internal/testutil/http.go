package testutil

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/techradar/compass/internal/app/system/auth"
)

// AdminActor returns a superuser actor.
func AdminActor() auth.Actor {
	return auth.Actor{Username: "admin", IsSuperuser: true}
}

// UserActor returns a signed-in, non-superuser actor.
func UserActor() auth.Actor {
	return auth.Actor{Username: "dev"}
}

// WithActor adds an actor to the request context for testing handlers.
// This bypasses the bearer-token middleware.
func WithActor(r *http.Request, a auth.Actor) *http.Request {
	return r.WithContext(auth.WithActor(r.Context(), a))
}

// NewRequest creates an HTTP request for testing.
func NewRequest(method, target string) *http.Request {
	return httptest.NewRequest(method, target, nil)
}

// NewJSONRequest creates a request carrying body as JSON.
func NewJSONRequest(method, target, body string) *http.Request {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// ResponseRecorder wraps httptest.ResponseRecorder with helper methods.
type ResponseRecorder struct {
	*httptest.ResponseRecorder
}

// NewRecorder creates a new ResponseRecorder.
func NewRecorder() *ResponseRecorder {
	return &ResponseRecorder{httptest.NewRecorder()}
}

// AssertStatus checks the response status code.
func (r *ResponseRecorder) AssertStatus(t interface{ Errorf(string, ...any) }, expected int) {
	if r.Code != expected {
		t.Errorf("status code: got %d, want %d (body %s)", r.Code, expected, r.Body.String())
	}
}

// AssertContains checks if the response body contains the expected string.
func (r *ResponseRecorder) AssertContains(t interface{ Errorf(string, ...any) }, expected string) {
	if !strings.Contains(r.Body.String(), expected) {
		t.Errorf("response body does not contain %q: %s", expected, r.Body.String())
	}
}
