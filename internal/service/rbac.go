package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/communitytime/allocation-api/internal/repo"
	"github.com/communitytime/allocation-api/internal/validate"
)

var (
	// ErrForbidden indicates the caller lacks the required role.
	ErrForbidden = errors.New("access denied")
)

// AccessError rejects one entry of a submission for a community outside the
// caller's directory scope. It matches ErrForbidden.
type AccessError struct {
	Entry   int
	Message string
}

func (e *AccessError) Error() string { return e.Message }

func (e *AccessError) Is(target error) bool { return target == ErrForbidden }

// DirectoryReader is the slice of the staff directory RBAC needs.
type DirectoryReader interface {
	RoleIDs(ctx context.Context, email string) ([]int, error)
	EntriesByEmail(ctx context.Context, email string) ([]repo.DirectoryEntry, error)
}

// RBACService resolves roles and community scope from the directory.
type RBACService struct {
	dir DirectoryReader
}

func NewRBACService(dir DirectoryReader) *RBACService {
	return &RBACService{dir: dir}
}

// Roles returns the distinct role ids held by email.
func (s *RBACService) Roles(ctx context.Context, email string) ([]int, error) {
	roles, err := s.dir.RoleIDs(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("role lookup: %w", err)
	}
	return roles, nil
}

// IsAdmin reports whether email holds the admin role anywhere.
func (s *RBACService) IsAdmin(ctx context.Context, email string) (bool, error) {
	roles, err := s.Roles(ctx, email)
	if err != nil {
		return false, err
	}
	return slices.Contains(roles, repo.RoleAdmin), nil
}

// CommunityIDs returns the distinct property ids email is assigned to.
func (s *RBACService) CommunityIDs(ctx context.Context, email string) ([]string, error) {
	entries, err := s.dir.EntriesByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("directory lookup: %w", err)
	}
	seen := make(map[string]struct{}, len(entries))
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if _, ok := seen[e.PropertyID]; ok {
			continue
		}
		seen[e.PropertyID] = struct{}{}
		ids = append(ids, e.PropertyID)
	}
	return ids, nil
}

// ValidateCommunityAccess checks every community id, in order, against the
// directory scope of email. The first miss is reported with its 1-based index.
func (s *RBACService) ValidateCommunityAccess(ctx context.Context, email string, communityIDs []string) error {
	allowed, err := s.CommunityIDs(ctx, email)
	if err != nil {
		return err
	}
	for i, id := range communityIDs {
		if !slices.Contains(allowed, id) {
			return &AccessError{Entry: i + 1, Message: fmt.Sprintf("Access denied for community in entry %d", i+1)}
		}
	}
	return nil
}

// ResolveSubject picks the email a request acts on. caller is the verified
// identity email, empty when no gate verified the request; requested is the
// email named in the request. Acting on someone else requires admin.
func (s *RBACService) ResolveSubject(ctx context.Context, caller, requested string) (string, error) {
	requested = strings.TrimSpace(requested)
	if caller == "" {
		if requested == "" {
			return "", validate.Fieldf("email", "Email is required")
		}
		return requested, nil
	}
	if requested == "" || strings.EqualFold(requested, caller) {
		return caller, nil
	}
	admin, err := s.IsAdmin(ctx, caller)
	if err != nil {
		return "", err
	}
	if !admin {
		return "", ErrForbidden
	}
	return requested, nil
}

// Intersect returns the members of held that appear in allowed, keeping the
// order of held.
func Intersect(held, allowed []int) []int {
	var out []int
	for _, r := range held {
		if slices.Contains(allowed, r) && !slices.Contains(out, r) {
			out = append(out, r)
		}
	}
	return out
}
