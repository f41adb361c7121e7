package dashboard

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	dbTimeout     = 3 * time.Second
	recentEntries = 50
)

// Repository reads time entry rows. Assessment rows have no date and never
// show up here.
type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const selectEntries = `
	SELECT property_id, user_name, email_address, date, hours, notes
	FROM property_time
	WHERE date IS NOT NULL AND hours IS NOT NULL`

func monthBounds(p Period) (time.Time, time.Time) {
	start := time.Date(p.Year, time.Month(p.Month), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

func (r *Repository) query(ctx context.Context, where []string, tail string, args ...any) ([]Entry, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	sql := selectEntries + " AND " + strings.Join(where, " AND ") + " " + tail

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]Entry, 0)
	for rows.Next() {
		var (
			e   Entry
			day time.Time
		)
		if err := rows.Scan(&e.PropertyID, &e.UserName, &e.Email, &day, &e.Hours, &e.Notes); err != nil {
			return nil, err
		}
		e.Date = day.Format(time.DateOnly)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ByEmail returns the entries email submitted in p, newest first.
func (r *Repository) ByEmail(ctx context.Context, email string, p Period) ([]Entry, error) {
	start, end := monthBounds(p)
	entries, err := r.query(ctx,
		[]string{"lower(email_address) = lower($1)", "date >= $2", "date < $3"},
		"ORDER BY date DESC, id DESC", email, start, end)
	if err != nil {
		return nil, fmt.Errorf("entries by email: %w", err)
	}
	return entries, nil
}

// ByCommunities returns every entry for the given communities in p.
func (r *Repository) ByCommunities(ctx context.Context, communityIDs []string, p Period) ([]Entry, error) {
	start, end := monthBounds(p)
	entries, err := r.query(ctx,
		[]string{"property_id = ANY($1)", "date >= $2", "date < $3"},
		"ORDER BY date DESC, id DESC", communityIDs, start, end)
	if err != nil {
		return nil, fmt.Errorf("entries by communities: %w", err)
	}
	return entries, nil
}

// All returns every entry in p.
func (r *Repository) All(ctx context.Context, p Period) ([]Entry, error) {
	start, end := monthBounds(p)
	entries, err := r.query(ctx,
		[]string{"date >= $1", "date < $2"},
		"ORDER BY date DESC, id DESC", start, end)
	if err != nil {
		return nil, fmt.Errorf("all entries: %w", err)
	}
	return entries, nil
}

// Recent returns the latest entries of email regardless of period.
func (r *Repository) Recent(ctx context.Context, email string) ([]Entry, error) {
	entries, err := r.query(ctx,
		[]string{"lower(email_address) = lower($1)"},
		"ORDER BY date DESC, id DESC LIMIT $2", email, recentEntries)
	if err != nil {
		return nil, fmt.Errorf("recent entries: %w", err)
	}
	return entries, nil
}
