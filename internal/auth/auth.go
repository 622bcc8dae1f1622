// Package auth verifies bearer JWTs issued by the external identity provider
// and carries the caller's identity through request contexts.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrTokenInvalid is returned for missing, malformed, expired or
// wrongly signed tokens.
var ErrTokenInvalid = errors.New("auth: invalid token")

// Supported signing algorithms.
const (
	AlgHS256 = "HS256"
	AlgRS256 = "RS256"
)

// Config selects how tokens are verified.
type Config struct {
	// Algorithm is HS256 (shared Secret) or RS256 (PublicKeyPEM).
	Algorithm string

	Secret       string
	PublicKeyPEM []byte

	// Issuer and Audience are checked when non-empty.
	Issuer   string
	Audience string

	// Leeway tolerates clock skew on exp/nbf/iat.
	Leeway time.Duration
}

// Claims are the token claims the API reads.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
}

// Identity is the authenticated caller.
type Identity struct {
	Subject string
	Email   string
}

// Verifier checks token signatures and standard claims.
type Verifier struct {
	key     any
	options []jwt.ParserOption
}

// NewVerifier builds a Verifier from cfg.
func NewVerifier(cfg Config) (*Verifier, error) {
	alg := cfg.Algorithm
	if alg == "" {
		alg = AlgHS256
	}

	v := &Verifier{}
	switch alg {
	case AlgHS256:
		if cfg.Secret == "" {
			return nil, fmt.Errorf("auth: HS256 requires a secret")
		}
		v.key = []byte(cfg.Secret)
	case AlgRS256:
		key, err := jwt.ParseRSAPublicKeyFromPEM(cfg.PublicKeyPEM)
		if err != nil {
			return nil, fmt.Errorf("auth: parsing RS256 public key: %w", err)
		}
		v.key = key
	default:
		return nil, fmt.Errorf("auth: unsupported algorithm %q", alg)
	}

	v.options = []jwt.ParserOption{
		jwt.WithValidMethods([]string{alg}),
		jwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		v.options = append(v.options, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		v.options = append(v.options, jwt.WithAudience(cfg.Audience))
	}
	if cfg.Leeway > 0 {
		v.options = append(v.options, jwt.WithLeeway(cfg.Leeway))
	}
	return v, nil
}

// Verify parses tokenString and returns the identity it asserts.
func (v *Verifier) Verify(tokenString string) (Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(_ *jwt.Token) (any, error) {
		return v.key, nil
	}, v.options...)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return Identity{}, ErrTokenInvalid
	}
	if claims.Subject == "" {
		return Identity{}, fmt.Errorf("%w: missing subject", ErrTokenInvalid)
	}
	return Identity{Subject: claims.Subject, Email: claims.Email}, nil
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

type contextKey string

const identityKey contextKey = "identity"

// WithIdentity returns a context carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// FromContext returns the identity stored by WithIdentity.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}
