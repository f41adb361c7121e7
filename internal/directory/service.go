package directory

import (
	"cmp"
	"context"
	"slices"

	"github.com/communitytime/allocation-api/internal/repo"
	"github.com/communitytime/allocation-api/internal/service"
)

// Store is the read side of the staff directory.
type Store interface {
	EntriesByEmail(ctx context.Context, email string) ([]repo.DirectoryEntry, error)
	ListCommunities(ctx context.Context) ([]CommunityRef, error)
	ListAll(ctx context.Context) ([]repo.DirectoryEntry, error)
	FindUser(ctx context.Context, email string) (User, error)
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// UserCommunities lists the communities of email annotated with the role
// held there. Callers without a submitter role get nothing back and are
// pointed at the admin view instead.
func (s *Service) UserCommunities(ctx context.Context, email string) (UserCommunities, error) {
	entries, err := s.store.EntriesByEmail(ctx, email)
	if err != nil {
		return UserCommunities{}, err
	}

	held := make([]int, 0, len(entries))
	communities := make([]Community, 0, len(entries))
	for _, e := range entries {
		role := e.RoleID
		held = append(held, role)
		communities = append(communities, Community{
			ID:          e.PropertyID,
			Name:        e.PropertyName,
			DisplayName: e.PropertyName,
			RoleID:      &role,
		})
	}

	roles := service.Intersect(held, repo.SubmitterRoles)
	if len(roles) == 0 {
		return UserCommunities{
			Communities:     []Community{},
			AvailableRoles:  []int{},
			RedirectToAdmin: true,
		}, nil
	}
	slices.Sort(roles)
	return UserCommunities{Communities: communities, AvailableRoles: roles}, nil
}

// AllCommunities lists every community without role annotation.
func (s *Service) AllCommunities(ctx context.Context) ([]Community, error) {
	refs, err := s.store.ListCommunities(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Community, 0, len(refs))
	for _, c := range refs {
		out = append(out, Community{ID: c.ID, Name: c.Name, DisplayName: c.Name})
	}
	return out, nil
}

// AllUsers groups the directory by email, keeping first-seen order.
func (s *Service) AllUsers(ctx context.Context) ([]StaffMember, error) {
	entries, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	index := make(map[string]int)
	users := make([]StaffMember, 0)
	for _, e := range entries {
		i, ok := index[e.Email]
		if !ok {
			i = len(users)
			index[e.Email] = i
			users = append(users, StaffMember{
				UserName:   e.UserName,
				Email:      e.Email,
				Role:       e.Role,
				RoleID:     e.RoleID,
				Properties: []Assignment{},
			})
		}
		users[i].Properties = append(users[i].Properties, Assignment{
			PropertyID:   e.PropertyID,
			PropertyName: e.PropertyName,
		})
	}
	return users, nil
}

// CommunitiesOf returns the distinct communities of email ordered by name.
func (s *Service) CommunitiesOf(ctx context.Context, email string) ([]CommunityRef, error) {
	entries, err := s.store.EntriesByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(entries))
	out := make([]CommunityRef, 0, len(entries))
	for _, e := range entries {
		if seen[e.PropertyID] {
			continue
		}
		seen[e.PropertyID] = true
		out = append(out, CommunityRef{ID: e.PropertyID, Name: e.PropertyName})
	}
	slices.SortStableFunc(out, func(a, b CommunityRef) int {
		return cmp.Compare(a.Name, b.Name)
	})
	return out, nil
}

func (s *Service) User(ctx context.Context, email string) (User, error) {
	return s.store.FindUser(ctx, email)
}
