package auth

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubValidator struct {
	claims *Claims
	err    error
}

func (s *stubValidator) Validate(_ context.Context, _ string) (*Claims, error) {
	return s.claims, s.err
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "ok")
	})
}

func newTestMiddleware(v TokenValidator, public []string) *Middleware {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewMiddleware(v, public, logger, nil)
}

func TestMissingTokenRejected(t *testing.T) {
	m := newTestMiddleware(&stubValidator{}, nil)
	srv := m.Wrap(okHandler())

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/mcp", nil))

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "Bearer realm=")

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "invalid_request", body["error"])
	assert.NotEmpty(t, body["error_description"])
}

func TestExpiredTokenRejected(t *testing.T) {
	m := newTestMiddleware(&stubValidator{err: TokenExpiredError()}, nil)
	srv := m.Wrap(okHandler())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	req.Header.Set("Authorization", "Bearer expired-token")
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Header().Get("WWW-Authenticate"), `error="invalid_token"`)
}

func TestValidTokenPassesWithClaims(t *testing.T) {
	var got *Claims
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	m := newTestMiddleware(&stubValidator{claims: &Claims{Subject: "user-1", Scopes: []string{"read"}}}, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	m.Wrap(inner).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, got)
	assert.Equal(t, "user-1", got.Subject)
	assert.Equal(t, []string{"read"}, got.Scopes)
}

func TestPublicPathsBypassGate(t *testing.T) {
	m := newTestMiddleware(&stubValidator{err: InvalidTokenError("should not be called")}, []string{"/health", "/public/*"})
	srv := m.Wrap(okHandler())

	for _, path := range []string{"/health", "/public/sub/page", "/.well-known/oauth-protected-resource"} {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, "path %s should be public", path)
	}

	// Non-matching path without a token gets the structured 401.
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/publicish", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMatchesPublicPath(t *testing.T) {
	patterns := []string{"/health", "/api/v1/*"}
	assert.True(t, MatchesPublicPath(patterns, "/health"))
	assert.False(t, MatchesPublicPath(patterns, "/health/sub"))
	assert.True(t, MatchesPublicPath(patterns, "/api/v1"))
	assert.True(t, MatchesPublicPath(patterns, "/api/v1/deep/path"))
	assert.False(t, MatchesPublicPath(patterns, "/api/v2"))
}

func TestMetadataHandler(t *testing.T) {
	h := MetadataHandler("https://db.example.com", "https://auth.example.com", []string{"read", "write", "admin"})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, MetadataPath, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "public, max-age=3600", rec.Header().Get("Cache-Control"))

	var doc ProtectedResourceMetadata
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, "https://db.example.com", doc.Resource)
	assert.Equal(t, []string{"https://auth.example.com"}, doc.AuthorizationServers)
	assert.Equal(t, []string{"header"}, doc.BearerMethodsSupported)
}

func TestInsufficientScopeBody(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, InsufficientScopeError([]string{"write"}, []string{"read"}))

	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Header().Get("WWW-Authenticate"), `error="insufficient_scope"`)

	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "write") && strings.Contains(body, "read"), "body should carry both scope sets: %s", body)
}
