package auth

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/api/idtoken"
	"google.golang.org/api/option"
)

var googleIssuers = map[string]struct{}{
	"accounts.google.com":         {},
	"https://accounts.google.com": {},
}

// GoogleVerifier validates Google-issued ID tokens against Google's public
// keys for a single OAuth client id.
type GoogleVerifier struct {
	validator *idtoken.Validator
	clientID  string
}

func NewGoogleVerifier(ctx context.Context, clientID string, opts ...option.ClientOption) (*GoogleVerifier, error) {
	v, err := idtoken.NewValidator(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("idtoken validator: %w", err)
	}
	return &GoogleVerifier{validator: v, clientID: clientID}, nil
}

func (g *GoogleVerifier) Verify(ctx context.Context, rawToken string) (Identity, error) {
	payload, err := g.validator.Validate(ctx, rawToken, g.clientID)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if _, ok := googleIssuers[payload.Issuer]; !ok {
		return Identity{}, fmt.Errorf("%w: unexpected issuer %q", ErrUpstream, payload.Issuer)
	}

	email, _ := payload.Claims["email"].(string)
	name, _ := payload.Claims["name"].(string)
	picture, _ := payload.Claims["picture"].(string)

	return newIdentity(payload.Subject, email, name, picture, claimBool(payload.Claims["email_verified"]), time.Unix(payload.Expires, 0))
}

// claimBool accepts both the boolean and the legacy string form.
func claimBool(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return b == "true"
	default:
		return false
	}
}
