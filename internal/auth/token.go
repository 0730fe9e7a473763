package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

// Claims are the validated token claims attached to a request. They live
// for the duration of the request and are never persisted.
type Claims struct {
	Subject   string
	Scopes    []string
	Issuer    string
	Audience  []string
	ExpiresAt time.Time
}

// jwtClaims is the wire shape. Scopes arrive either as a space-delimited
// "scope" string (RFC 8693) or an "scp" array, depending on the issuer.
type jwtClaims struct {
	jwt.RegisteredClaims
	Scope string   `json:"scope,omitempty"`
	Scp   []string `json:"scp,omitempty"`
}

func (c *jwtClaims) scopes() []string {
	if c.Scope != "" {
		return strings.Fields(c.Scope)
	}
	return c.Scp
}

// Validator validates bearer tokens against a JWKS endpoint. Key fetching
// and caching belong to keyfunc: keys refresh in the background, a cold
// cache blocks the first request on a fetch bounded by ctx, and fetch
// failures surface as invalid-token errors without retry.
type Validator struct {
	keyfunc  jwt.Keyfunc
	issuer   string
	audience string
}

// NewValidator builds a validator for the given JWKS URL. ctx bounds the
// initial key fetch and cancels the background refresh.
func NewValidator(ctx context.Context, jwksURL, issuer, audience string) (*Validator, error) {
	kf, err := keyfunc.NewDefaultCtx(ctx, []string{jwksURL})
	if err != nil {
		return nil, fmt.Errorf("creating JWKS keyfunc: %w", err)
	}
	return &Validator{keyfunc: kf.Keyfunc, issuer: issuer, audience: audience}, nil
}

// Validate parses and validates a bearer token, returning its claims or a
// typed *Error.
func (v *Validator) Validate(_ context.Context, token string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithExpirationRequired(),
		jwt.WithValidMethods([]string{"RS256", "RS384", "RS512", "ES256", "ES384", "ES512"}),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	var wire jwtClaims
	parsed, err := jwt.ParseWithClaims(token, &wire, v.keyfunc, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, TokenExpiredError()
		}
		return nil, InvalidTokenError(err.Error())
	}
	if !parsed.Valid {
		return nil, InvalidTokenError("token validation failed")
	}

	claims := &Claims{
		Subject: wire.Subject,
		Scopes:  wire.scopes(),
		Issuer:  wire.Issuer,
	}
	claims.Audience = append(claims.Audience, wire.Audience...)
	if wire.ExpiresAt != nil {
		claims.ExpiresAt = wire.ExpiresAt.Time
	}
	return claims, nil
}
