// Package auth enforces OAuth bearer-token authentication and scope checks
// on the HTTP transport. Token validation is delegated to golang-jwt with a
// JWKS keyfunc; this package owns the error taxonomy, the middleware, and
// the scope gate semantics.
package auth

import (
	"fmt"
	"net/http"
	"strings"
)

// Machine-readable error codes surfaced in JSON error bodies.
const (
	CodeTokenMissing      = "AUTH_TOKEN_MISSING"
	CodeTokenInvalid      = "AUTH_TOKEN_INVALID"
	CodeTokenExpired      = "AUTH_TOKEN_EXPIRED"
	CodeInsufficientScope = "AUTH_INSUFFICIENT_SCOPE"
)

// Error is a typed auth failure. Every auth failure is terminal for the
// request: it maps to an HTTP status, an RFC 6750 error value for the
// WWW-Authenticate challenge, and a machine code for clients.
type Error struct {
	Code           string   `json:"-"`
	Status         int      `json:"-"`
	OAuthError     string   `json:"error"`
	Description    string   `json:"error_description"`
	RequiredScopes []string `json:"required_scope,omitempty"`
	GrantedScopes  []string `json:"granted_scopes,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// Challenge renders the WWW-Authenticate header value for this error.
func (e *Error) Challenge(realm string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Bearer realm=%q", realm)
	if e.OAuthError != "" {
		fmt.Fprintf(&b, ", error=%q, error_description=%q", e.OAuthError, e.Description)
	}
	if len(e.RequiredScopes) > 0 {
		fmt.Fprintf(&b, ", scope=%q", strings.Join(e.RequiredScopes, " "))
	}
	return b.String()
}

// TokenMissingError reports an absent bearer token on a protected path.
func TokenMissingError() *Error {
	return &Error{
		Code:        CodeTokenMissing,
		Status:      http.StatusUnauthorized,
		OAuthError:  "invalid_request",
		Description: "missing bearer token",
	}
}

// InvalidTokenError reports a signature or claims validation failure.
func InvalidTokenError(reason string) *Error {
	if reason == "" {
		reason = "token validation failed"
	}
	return &Error{
		Code:        CodeTokenInvalid,
		Status:      http.StatusUnauthorized,
		OAuthError:  "invalid_token",
		Description: reason,
	}
}

// TokenExpiredError reports an expired token.
func TokenExpiredError() *Error {
	return &Error{
		Code:        CodeTokenExpired,
		Status:      http.StatusUnauthorized,
		OAuthError:  "invalid_token",
		Description: "token is expired",
	}
}

// InsufficientScopeError reports a valid token that lacks the scopes a tool
// requires. Required and granted scopes are carried in the body so clients
// can debug without server logs.
func InsufficientScopeError(required, granted []string) *Error {
	return &Error{
		Code:           CodeInsufficientScope,
		Status:         http.StatusForbidden,
		OAuthError:     "insufficient_scope",
		Description:    "token does not grant access to this tool",
		RequiredScopes: required,
		GrantedScopes:  granted,
	}
}
