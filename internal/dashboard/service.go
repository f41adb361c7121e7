package dashboard

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/communitytime/allocation-api/internal/repo"
	"github.com/communitytime/allocation-api/internal/validate"
)

// Store reads time entries for a scope.
type Store interface {
	ByEmail(ctx context.Context, email string, p Period) ([]Entry, error)
	ByCommunities(ctx context.Context, communityIDs []string, p Period) ([]Entry, error)
	All(ctx context.Context, p Period) ([]Entry, error)
	Recent(ctx context.Context, email string) ([]Entry, error)
}

// Directory supplies community names and a user's community set.
type Directory interface {
	EntriesByEmail(ctx context.Context, email string) ([]repo.DirectoryEntry, error)
	PropertyNames(ctx context.Context) (map[string]string, error)
}

type Service struct {
	store Store
	dir   Directory
	now   func() time.Time
}

func NewService(store Store, dir Directory) *Service {
	return &Service{store: store, dir: dir, now: time.Now}
}

// ParsePeriod reads month and year query values. Missing or unparsable
// values default to the current month.
func (s *Service) ParsePeriod(month, year string) (Period, error) {
	now := s.now()
	p := Period{Month: int(now.Month()), Year: now.Year()}
	if v, err := strconv.Atoi(strings.TrimSpace(month)); err == nil && v != 0 {
		p.Month = v
	}
	if v, err := strconv.Atoi(strings.TrimSpace(year)); err == nil && v != 0 {
		p.Year = v
	}
	if !validate.IsValidMonth(p.Month) {
		return Period{}, validate.Fieldf("month", "Invalid month. Must be between 1 and 12.")
	}
	if !validate.IsValidYear(p.Year, now) {
		return Period{}, validate.Fieldf("year", "Invalid year")
	}
	return p, nil
}

func (s *Service) report(ctx context.Context, entries []Entry) (Report, error) {
	names, err := s.dir.PropertyNames(ctx)
	if err != nil {
		return Report{}, err
	}
	return Aggregate(entries, names), nil
}

// MySubmissions aggregates what email submitted in p.
func (s *Service) MySubmissions(ctx context.Context, email string, p Period) (Report, error) {
	entries, err := s.store.ByEmail(ctx, email, p)
	if err != nil {
		return Report{}, err
	}
	return s.report(ctx, entries)
}

// MyCommunities aggregates what anyone submitted in p for the communities
// email is attached to.
func (s *Service) MyCommunities(ctx context.Context, email string, p Period) (Report, error) {
	rows, err := s.dir.EntriesByEmail(ctx, email)
	if err != nil {
		return Report{}, err
	}
	seen := make(map[string]bool, len(rows))
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		if !seen[row.PropertyID] {
			seen[row.PropertyID] = true
			ids = append(ids, row.PropertyID)
		}
	}
	if len(ids) == 0 {
		return Empty(), nil
	}

	entries, err := s.store.ByCommunities(ctx, ids, p)
	if err != nil {
		return Report{}, err
	}
	return s.report(ctx, entries)
}

// AllCommunities aggregates every entry in p.
func (s *Service) AllCommunities(ctx context.Context, p Period) (Report, error) {
	entries, err := s.store.All(ctx, p)
	if err != nil {
		return Report{}, err
	}
	return s.report(ctx, entries)
}

// RecentEntries returns the latest entries of email. Names only resolve for
// communities email is still attached to.
func (s *Service) RecentEntries(ctx context.Context, email string) ([]Entry, error) {
	entries, err := s.store.Recent(ctx, email)
	if err != nil {
		return nil, err
	}
	rows, err := s.dir.EntriesByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(rows))
	for _, row := range rows {
		names[row.PropertyID] = row.PropertyName
	}
	for i := range entries {
		if name, ok := names[entries[i].PropertyID]; ok {
			entries[i].PropertyName = &name
		}
	}
	return entries, nil
}
