package directory

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/communitytime/allocation-api/internal/audit"
	"github.com/communitytime/allocation-api/internal/auth"
	"github.com/communitytime/allocation-api/internal/http/middleware"
	"github.com/communitytime/allocation-api/internal/http/respond"
	"github.com/communitytime/allocation-api/internal/repo"
	"github.com/communitytime/allocation-api/internal/service"
)

type stubStore struct {
	entries []repo.DirectoryEntry
	err     error
}

func (s *stubStore) EntriesByEmail(ctx context.Context, email string) ([]repo.DirectoryEntry, error) {
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

func (s *stubStore) RoleIDs(ctx context.Context, email string) ([]int, error) {
	entries, err := s.EntriesByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	roles := make([]int, 0, len(entries))
	for _, e := range entries {
		roles = append(roles, e.RoleID)
	}
	return roles, nil
}

func (s *stubStore) ListCommunities(ctx context.Context) ([]CommunityRef, error) {
	seen := map[string]bool{}
	var out []CommunityRef
	for _, e := range s.entries {
		if !seen[e.PropertyID] {
			seen[e.PropertyID] = true
			out = append(out, CommunityRef{ID: e.PropertyID, Name: e.PropertyName})
		}
	}
	return out, nil
}

func (s *stubStore) ListAll(ctx context.Context) ([]repo.DirectoryEntry, error) {
	return s.entries, nil
}

func (s *stubStore) FindUser(ctx context.Context, email string) (User, error) {
	entries, _ := s.EntriesByEmail(ctx, email)
	if len(entries) == 0 {
		return User{}, repo.ErrNotFound
	}
	return User{Email: entries[0].Email, Name: entries[0].UserName, ID: entries[0].UserID}, nil
}

func newStubStore() *stubStore {
	return &stubStore{entries: []repo.DirectoryEntry{
		{PropertyID: "101", PropertyName: "Bayside Villas", Email: "mgr@pelican.example.com", UserName: "Maria Gomez", UserID: "7", Role: "Manager", RoleID: repo.RoleManager},
		{PropertyID: "102", PropertyName: "Harbor Point", Email: "mgr@pelican.example.com", UserName: "Maria Gomez", UserID: "7", Role: "Accountant", RoleID: repo.RoleAccountant},
		{PropertyID: "103", PropertyName: "Coral Gardens", Email: "vendor@pelican.example.com", UserName: "Vic Endo", Role: "Vendor", RoleID: 4},
		{PropertyID: "101", PropertyName: "Bayside Villas", Email: "boss@pelican.example.com", UserName: "Ana Boss", Role: "Admin", RoleID: repo.RoleAdmin},
	}}
}

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestRouter(store *stubStore, strict bool) (chi.Router, *auth.TokenManager) {
	tokens := auth.NewTokenManager(testSecret, "time-ui", time.Hour)
	rbac := service.NewRBACService(store)
	gate := middleware.NewGate(strict, tokens, rbac, audit.NewMemoryRecorder(16))

	handler := NewHandler(NewService(store), rbac, respond.NewWriter(true), true)
	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		Mount(r, handler, gate)
	})
	return r, tokens
}

func doRequest(t *testing.T, router http.Handler, path, token string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode %s: %v (%s)", path, err, rec.Body.String())
	}
	return rec, body
}

func TestUserCommunitiesRoleFiltering(t *testing.T) {
	svc := NewService(newStubStore())

	got, err := svc.UserCommunities(context.Background(), "mgr@pelican.example.com")
	if err != nil {
		t.Fatalf("UserCommunities: %v", err)
	}
	if len(got.AvailableRoles) != 2 || got.AvailableRoles[0] != 2 || got.AvailableRoles[1] != 3 {
		t.Fatalf("expected roles [2 3], got %v", got.AvailableRoles)
	}
	if got.RedirectToAdmin || len(got.Communities) != 2 {
		t.Fatalf("unexpected result %+v", got)
	}
	if got.Communities[0].RoleID == nil || *got.Communities[0].RoleID != repo.RoleManager {
		t.Fatalf("expected community to carry the caller role")
	}

	got, err = svc.UserCommunities(context.Background(), "vendor@pelican.example.com")
	if err != nil {
		t.Fatalf("UserCommunities: %v", err)
	}
	if !got.RedirectToAdmin || len(got.Communities) != 0 || len(got.AvailableRoles) != 0 {
		t.Fatalf("expected redirect with nothing to submit, got %+v", got)
	}
}

func TestAllUsersGroupsByEmail(t *testing.T) {
	users, err := NewService(newStubStore()).AllUsers(context.Background())
	if err != nil {
		t.Fatalf("AllUsers: %v", err)
	}
	if len(users) != 3 {
		t.Fatalf("expected 3 users, got %d", len(users))
	}
	if users[0].Email != "mgr@pelican.example.com" || len(users[0].Properties) != 2 {
		t.Fatalf("unexpected grouping %+v", users[0])
	}
}

func TestCommunitiesOfSortedAndDistinct(t *testing.T) {
	store := newStubStore()
	store.entries = append(store.entries, repo.DirectoryEntry{PropertyID: "101", PropertyName: "Bayside Villas", Email: "mgr@pelican.example.com", RoleID: repo.RoleAccountant})

	refs, err := NewService(store).CommunitiesOf(context.Background(), "mgr@pelican.example.com")
	if err != nil {
		t.Fatalf("CommunitiesOf: %v", err)
	}
	if len(refs) != 2 || refs[0].Name != "Bayside Villas" || refs[1].Name != "Harbor Point" {
		t.Fatalf("unexpected refs %+v", refs)
	}
}

func TestAdminOverrideOpenGate(t *testing.T) {
	router, _ := newTestRouter(newStubStore(), false)

	rec, body := doRequest(t, router, "/api/user-communities?email=mgr@pelican.example.com&adminOverride=true", "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non admin override, got %d", rec.Code)
	}
	if body["message"] != "Admin privileges required for override" {
		t.Fatalf("unexpected message %v", body["message"])
	}

	rec, body = doRequest(t, router, "/api/user-communities?email=boss@pelican.example.com&adminOverride=true", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin override, got %d", rec.Code)
	}
	communities, _ := body["communities"].([]any)
	if len(communities) != 3 {
		t.Fatalf("expected every community, got %v", body["communities"])
	}
	for _, c := range communities {
		if _, ok := c.(map[string]any)["userRoleId"]; ok {
			t.Fatalf("override listing must not carry roles: %v", c)
		}
	}
	if body["questionsRequired"] != true {
		t.Fatalf("expected questionsRequired to be echoed")
	}
}

func TestOpenGateRequiresEmail(t *testing.T) {
	router, _ := newTestRouter(newStubStore(), false)
	rec, body := doRequest(t, router, "/api/user-communities", "")
	if rec.Code != http.StatusBadRequest || body["message"] != "Email is required" {
		t.Fatalf("expected 400 Email is required, got %d %v", rec.Code, body)
	}
}

func TestStrictRoutes(t *testing.T) {
	router, tokens := newTestRouter(newStubStore(), true)
	issue := func(email string) string {
		raw, err := tokens.Issue(auth.Identity{Subject: email, Email: email})
		if err != nil {
			t.Fatalf("Issue: %v", err)
		}
		return raw
	}
	mgr, boss := issue("mgr@pelican.example.com"), issue("boss@pelican.example.com")

	cases := []struct {
		name   string
		path   string
		token  string
		status int
	}{
		{"no token", "/api/user-communities", "", http.StatusUnauthorized},
		{"own communities", "/api/user-communities", mgr, http.StatusOK},
		{"impersonation by non admin", "/api/user-communities?email=boss@pelican.example.com", mgr, http.StatusForbidden},
		{"impersonation by admin", "/api/user-communities?email=mgr@pelican.example.com", boss, http.StatusOK},
		{"own user", "/api/user", mgr, http.StatusOK},
		{"unknown user", "/api/user?email=ghost@pelican.example.com", boss, http.StatusNotFound},
		{"all users as manager", "/api/admin/all-users", mgr, http.StatusForbidden},
		{"all users as admin", "/api/admin/all-users", boss, http.StatusOK},
		{"all communities as admin", "/api/admin/all-communities", boss, http.StatusOK},
		{"user communities without email", "/api/admin/user-communities", boss, http.StatusBadRequest},
		{"user communities", "/api/admin/user-communities?email=mgr@pelican.example.com", boss, http.StatusOK},
	}
	for _, tc := range cases {
		rec, body := doRequest(t, router, tc.path, tc.token)
		if rec.Code != tc.status {
			t.Fatalf("%s: expected %d, got %d (%v)", tc.name, tc.status, rec.Code, body)
		}
	}
}

func TestStoreFailureUsesEnvelope(t *testing.T) {
	store := newStubStore()
	store.err = errors.New("connection refused")
	router, _ := newTestRouter(store, false)

	rec, body := doRequest(t, router, "/api/user-communities?email=mgr@pelican.example.com", "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if body["success"] != false || body["message"] != "Server error" || body["error"] != "connection refused" {
		t.Fatalf("unexpected envelope %v", body)
	}
}
