package directory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/communitytime/allocation-api/internal/repo"
)

const dbTimeout = 3 * time.Second

// Repository reads the staff directory view. The directory is owned
// upstream; nothing here writes to it.
type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const entryColumns = `property_id, property_name, email_address, user_name, COALESCE(user_id, ''), COALESCE(user_role, ''), user_role_id`

func scanEntries(rows pgx.Rows) ([]repo.DirectoryEntry, error) {
	defer rows.Close()
	var out []repo.DirectoryEntry
	for rows.Next() {
		var e repo.DirectoryEntry
		if err := rows.Scan(&e.PropertyID, &e.PropertyName, &e.Email, &e.UserName, &e.UserID, &e.Role, &e.RoleID); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// EntriesByEmail returns every directory row of email, matched case-insensitively.
func (r *Repository) EntriesByEmail(ctx context.Context, email string) ([]repo.DirectoryEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		SELECT `+entryColumns+`
		FROM property_staff_directory
		WHERE lower(email_address) = lower($1)
		ORDER BY property_name`, email)
	if err != nil {
		return nil, fmt.Errorf("directory entries: %w", err)
	}
	entries, err := scanEntries(rows)
	if err != nil {
		return nil, fmt.Errorf("directory entries: %w", err)
	}
	return entries, nil
}

// RoleIDs returns the distinct role ids held by email.
func (r *Repository) RoleIDs(ctx context.Context, email string) ([]int, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		SELECT DISTINCT user_role_id
		FROM property_staff_directory
		WHERE lower(email_address) = lower($1)
		ORDER BY user_role_id`, email)
	if err != nil {
		return nil, fmt.Errorf("directory roles: %w", err)
	}
	defer rows.Close()

	var roles []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("directory roles: %w", err)
		}
		roles = append(roles, id)
	}
	return roles, rows.Err()
}

// ListCommunities returns every distinct community ordered by name.
func (r *Repository) ListCommunities(ctx context.Context) ([]CommunityRef, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		SELECT DISTINCT property_id, property_name
		FROM property_staff_directory
		ORDER BY property_name, property_id`)
	if err != nil {
		return nil, fmt.Errorf("list communities: %w", err)
	}
	defer rows.Close()

	var out []CommunityRef
	for rows.Next() {
		var c CommunityRef
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("list communities: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListAll returns every row that carries an email, ordered by user name.
func (r *Repository) ListAll(ctx context.Context) ([]repo.DirectoryEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		SELECT `+entryColumns+`
		FROM property_staff_directory
		WHERE email_address IS NOT NULL AND email_address <> ''
		ORDER BY user_name, property_name`)
	if err != nil {
		return nil, fmt.Errorf("list directory: %w", err)
	}
	entries, err := scanEntries(rows)
	if err != nil {
		return nil, fmt.Errorf("list directory: %w", err)
	}
	return entries, nil
}

// FindUser returns the directory identity of email or repo.ErrNotFound.
func (r *Repository) FindUser(ctx context.Context, email string) (User, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var u User
	err := r.db.QueryRow(ctx, `
		SELECT DISTINCT email_address, user_name, COALESCE(user_id, '')
		FROM property_staff_directory
		WHERE lower(email_address) = lower($1)
		LIMIT 1`, email).Scan(&u.Email, &u.Name, &u.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, repo.ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("find user: %w", err)
	}
	return u, nil
}

// PropertyNames maps every property id to its display name.
func (r *Repository) PropertyNames(ctx context.Context) (map[string]string, error) {
	refs, err := r.ListCommunities(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(refs))
	for _, c := range refs {
		names[c.ID] = c.Name
	}
	return names, nil
}
