package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/communitytime/allocation-api/internal/auth"
	"github.com/communitytime/allocation-api/internal/repo"
)

type stubDirectory struct {
	entries []repo.DirectoryEntry
	err     error
}

func (s *stubDirectory) EntriesByEmail(ctx context.Context, email string) ([]repo.DirectoryEntry, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []repo.DirectoryEntry
	for _, e := range s.entries {
		if strings.EqualFold(e.Email, email) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *stubDirectory) RoleIDs(ctx context.Context, email string) ([]int, error) {
	entries, err := s.EntriesByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	var roles []int
	for _, e := range entries {
		roles = append(roles, e.RoleID)
	}
	return roles, nil
}

func newStubDirectory() *stubDirectory {
	return &stubDirectory{entries: []repo.DirectoryEntry{
		{PropertyID: "101", PropertyName: "Bayside Villas", Email: "mgr@pelican.example.com", RoleID: repo.RoleManager},
		{PropertyID: "102", PropertyName: "Harbor Point", Email: "mgr@pelican.example.com", RoleID: repo.RoleAccountant},
		{PropertyID: "101", PropertyName: "Bayside Villas", Email: "boss@pelican.example.com", RoleID: repo.RoleAdmin},
	}}
}

func TestRBACIsAdmin(t *testing.T) {
	rbac := NewRBACService(newStubDirectory())
	ctx := context.Background()

	ok, err := rbac.IsAdmin(ctx, "BOSS@pelican.example.com")
	if err != nil || !ok {
		t.Fatalf("expected admin, ok=%v err=%v", ok, err)
	}
	ok, err = rbac.IsAdmin(ctx, "mgr@pelican.example.com")
	if err != nil || ok {
		t.Fatalf("expected non admin, ok=%v err=%v", ok, err)
	}
}

func TestRBACValidateCommunityAccess(t *testing.T) {
	rbac := NewRBACService(newStubDirectory())
	ctx := context.Background()

	if err := rbac.ValidateCommunityAccess(ctx, "mgr@pelican.example.com", []string{"101", "102", "101"}); err != nil {
		t.Fatalf("expected access, got %v", err)
	}

	err := rbac.ValidateCommunityAccess(ctx, "mgr@pelican.example.com", []string{"101", "999"})
	var access *AccessError
	if !errors.As(err, &access) {
		t.Fatalf("expected AccessError, got %v", err)
	}
	if access.Entry != 2 || access.Message != "Access denied for community in entry 2" {
		t.Fatalf("unexpected access error %+v", access)
	}
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("AccessError must match ErrForbidden")
	}
}

func TestRBACPropagatesStoreErrors(t *testing.T) {
	storeErr := errors.New("connection reset")
	rbac := NewRBACService(&stubDirectory{err: storeErr})
	if _, err := rbac.IsAdmin(context.Background(), "x@y.co"); !errors.Is(err, storeErr) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
}

func TestIntersect(t *testing.T) {
	got := Intersect([]int{3, 1, 2, 3}, repo.SubmitterRoles)
	if len(got) != 2 || got[0] != 3 || got[1] != 2 {
		t.Fatalf("unexpected intersection %v", got)
	}
	if Intersect([]int{4}, repo.SubmitterRoles) != nil {
		t.Fatalf("expected empty intersection")
	}
}

func TestAdminOverride(t *testing.T) {
	plain := NewAdminOverride("", "harbor-admin")
	if ok, _ := plain.Check("harbor-admin"); !ok {
		t.Fatalf("expected plain secret to match")
	}
	if ok, _ := plain.Check("harbor"); ok {
		t.Fatalf("expected prefix to be rejected")
	}

	hash, err := auth.Hash("harbor-admin")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	hashed := NewAdminOverride(hash, "ignored")
	if ok, err := hashed.Check("harbor-admin"); err != nil || !ok {
		t.Fatalf("expected hash match, ok=%v err=%v", ok, err)
	}
	if ok, _ := hashed.Check("ignored"); ok {
		t.Fatalf("plain secret must be ignored when a hash is configured")
	}

	disabled := NewAdminOverride("", "")
	if disabled.Enabled() {
		t.Fatalf("expected override to be disabled")
	}
	if ok, _ := disabled.Check(""); ok {
		t.Fatalf("empty password must never match")
	}
}

func TestResolveSubject(t *testing.T) {
	rbac := NewRBACService(newStubDirectory())
	ctx := context.Background()

	got, err := rbac.ResolveSubject(ctx, "", "mgr@pelican.example.com")
	if err != nil || got != "mgr@pelican.example.com" {
		t.Fatalf("open mode must trust the requested email, got %q err %v", got, err)
	}
	if _, err := rbac.ResolveSubject(ctx, "", " "); err == nil {
		t.Fatalf("expected error without any email")
	}

	got, err = rbac.ResolveSubject(ctx, "mgr@pelican.example.com", "")
	if err != nil || got != "mgr@pelican.example.com" {
		t.Fatalf("expected caller email, got %q err %v", got, err)
	}
	if _, err := rbac.ResolveSubject(ctx, "mgr@pelican.example.com", "boss@pelican.example.com"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("non admin impersonation must be forbidden, got %v", err)
	}
	got, err = rbac.ResolveSubject(ctx, "boss@pelican.example.com", "mgr@pelican.example.com")
	if err != nil || got != "mgr@pelican.example.com" {
		t.Fatalf("admin may act on another user, got %q err %v", got, err)
	}
}
