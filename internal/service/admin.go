package service

import (
	"github.com/communitytime/allocation-api/internal/auth"
)

// AdminOverride checks the shared admin-mode secret. A successful check only
// unlocks UI state; admin-only requests are still authorized per request.
type AdminOverride struct {
	hash  string
	plain string
}

// NewAdminOverride prefers the Argon2id hash when both forms are configured.
func NewAdminOverride(hash, plain string) *AdminOverride {
	return &AdminOverride{hash: hash, plain: plain}
}

// Enabled reports whether any secret is configured.
func (a *AdminOverride) Enabled() bool {
	return a.hash != "" || a.plain != ""
}

func (a *AdminOverride) Check(password string) (bool, error) {
	if password == "" {
		return false, nil
	}
	if a.hash != "" {
		return auth.Verify(password, a.hash)
	}
	return auth.EqualSecret(password, a.plain), nil
}
