package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"
)

var (
	// ErrUnauthenticated means no usable bearer token was presented.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrUpstream wraps a rejection from the identity issuer.
	ErrUpstream = errors.New("invalid authentication token")
	// ErrEmailNotVerified means the issuer did not vouch for the address.
	ErrEmailNotVerified = errors.New("email not verified")
	// ErrInvalidClaims means a verified token lacked subject or email.
	ErrInvalidClaims = errors.New("invalid token claims")
)

// Identity is the caller as asserted by the issuer. It lives only in the
// request context.
type Identity struct {
	Subject string    `json:"id"`
	Email   string    `json:"email"`
	Name    string    `json:"name"`
	Picture string    `json:"picture,omitempty"`
	Expiry  time.Time `json:"-"`
}

// Verifier checks a raw bearer token and returns the identity it carries.
type Verifier interface {
	Verify(ctx context.Context, rawToken string) (Identity, error)
}

// BearerToken extracts the token from an Authorization header.
func BearerToken(r *http.Request) (string, error) {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", ErrUnauthenticated
	}
	return strings.TrimSpace(parts[1]), nil
}

// newIdentity applies the shared claim rules of every verifier.
func newIdentity(subject, email, name, picture string, verified bool, expiry time.Time) (Identity, error) {
	if !verified {
		return Identity{}, ErrEmailNotVerified
	}
	email = strings.TrimSpace(email)
	if subject == "" || email == "" {
		return Identity{}, ErrInvalidClaims
	}
	if strings.TrimSpace(name) == "" {
		name, _, _ = strings.Cut(email, "@")
	}
	return Identity{Subject: subject, Email: email, Name: name, Picture: picture, Expiry: expiry}, nil
}
