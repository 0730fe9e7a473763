package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
)

const realm = "dbmcp"

type contextKey string

const claimsKey contextKey = "dbmcp-claims"

// ClaimsFromContext returns the validated claims for the request, if any.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*Claims)
	return c, ok
}

// ContextWithClaims attaches validated claims to ctx. Used by the middleware
// and by transports that authenticate out of band.
func ContextWithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}

// TokenValidator validates a raw bearer token. Satisfied by *Validator;
// tests substitute stubs.
type TokenValidator interface {
	Validate(ctx context.Context, token string) (*Claims, error)
}

// Middleware authenticates requests with bearer tokens. Paths matching a
// configured public pattern (exact, or trailing "/*" prefix wildcard) bypass
// the gate; the /.well-known/ discovery namespace is always public.
type Middleware struct {
	validator   TokenValidator
	publicPaths []string
	logger      *slog.Logger
	onFailure   func(code string)
}

// NewMiddleware creates the bearer-auth middleware. onFailure, if non-nil,
// is invoked with the error code of each rejected request (metrics hook).
func NewMiddleware(v TokenValidator, publicPaths []string, logger *slog.Logger, onFailure func(code string)) *Middleware {
	return &Middleware{validator: v, publicPaths: publicPaths, logger: logger, onFailure: onFailure}
}

// Wrap applies bearer authentication to next.
func (m *Middleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.isPublic(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		token, ok := bearerToken(r)
		if !ok {
			m.reject(w, r, TokenMissingError())
			return
		}

		claims, err := m.validator.Validate(r.Context(), token)
		if err != nil {
			authErr, ok := err.(*Error)
			if !ok {
				authErr = InvalidTokenError(err.Error())
			}
			m.reject(w, r, authErr)
			return
		}

		next.ServeHTTP(w, r.WithContext(ContextWithClaims(r.Context(), claims)))
	})
}

func (m *Middleware) isPublic(path string) bool {
	if strings.HasPrefix(path, "/.well-known/") {
		return true
	}
	return MatchesPublicPath(m.publicPaths, path)
}

// MatchesPublicPath reports whether path matches any pattern. A pattern
// ending in "/*" matches the prefix before the wildcard and everything
// under it; any other pattern is an exact match.
func MatchesPublicPath(patterns []string, path string) bool {
	for _, p := range patterns {
		if prefix, ok := strings.CutSuffix(p, "/*"); ok {
			if path == prefix || strings.HasPrefix(path, prefix+"/") {
				return true
			}
			continue
		}
		if path == p {
			return true
		}
	}
	return false
}

func (m *Middleware) reject(w http.ResponseWriter, r *http.Request, e *Error) {
	if m.onFailure != nil {
		m.onFailure(e.Code)
	}
	m.logger.Warn("auth rejected",
		"code", e.Code,
		"path", r.URL.Path,
		"status", e.Status,
	)
	WriteError(w, e)
}

// WriteError writes the structured JSON error body and the
// WWW-Authenticate challenge for an auth failure.
func WriteError(w http.ResponseWriter, e *Error) {
	w.Header().Set("WWW-Authenticate", e.Challenge(realm))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.Status)
	_ = json.NewEncoder(w).Encode(e)
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(h[len(prefix):]), true
}
