package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const localIssuer = "allocation-api"

// IdentityClaims are the claims of a locally issued identity token.
type IdentityClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name,omitempty"`
	Picture       string `json:"picture,omitempty"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies HS256 identity tokens for deployments
// without an external issuer.
type TokenManager struct {
	secret   []byte
	audience string
	ttl      time.Duration
}

func NewTokenManager(secret, audience string, ttl time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), audience: audience, ttl: ttl}
}

// Issue signs a token for the given identity. The address is marked verified.
func (m *TokenManager) Issue(identity Identity) (string, error) {
	now := time.Now().UTC()
	claims := IdentityClaims{
		Email:         identity.Email,
		EmailVerified: true,
		Name:          identity.Name,
		Picture:       identity.Picture,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    localIssuer,
			Subject:   identity.Subject,
			Audience:  jwt.ClaimStrings{m.audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

func (m *TokenManager) Verify(_ context.Context, rawToken string) (Identity, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(localIssuer),
		jwt.WithAudience(m.audience),
		jwt.WithExpirationRequired(),
	)

	token, err := parser.ParseWithClaims(rawToken, &IdentityClaims{}, func(token *jwt.Token) (interface{}, error) {
		return m.secret, nil
	})
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	claims, ok := token.Claims.(*IdentityClaims)
	if !ok || !token.Valid {
		return Identity{}, fmt.Errorf("%w: %v", ErrUpstream, errors.New("token not valid"))
	}

	var expiry time.Time
	if claims.ExpiresAt != nil {
		expiry = claims.ExpiresAt.Time
	}
	return newIdentity(claims.Subject, claims.Email, claims.Name, claims.Picture, claims.EmailVerified, expiry)
}
