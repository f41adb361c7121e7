package submission

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/communitytime/allocation-api/internal/db"
)

const dbTimeout = 3 * time.Second

// Repository writes property_time rows and answers the duplicate checks.
type Repository struct {
	db *pgxpool.Pool
	tx db.TxStarter
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool, tx: pool}
}

const insertRecord = `
	INSERT INTO property_time (
		submission_id, property_id, user_name, email_address,
		date, hours, month, year, submission_type,
		cq1, cq2, cq3, cq4, cq5, cq5_other,
		aq1, aq2, aq3, aq4, aq5, aq5_other,
		time_percentage, notes, submission_date
	) VALUES (
		$1, $2, $3, $4,
		$5, $6, $7, $8, $9,
		$10, $11, $12, $13, $14, $15,
		$16, $17, $18, $19, $20, $21,
		$22, $23, $24
	)`

// InsertRecords writes every record in order inside one transaction. A
// failing row rolls back the rows before it.
func (r *Repository) InsertRecords(ctx context.Context, records []Record) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	return db.WithTx(ctx, r.tx, func(ctx context.Context, tx pgx.Tx) error {
		for i, rec := range records {
			var date any
			if rec.Date != nil {
				date = *rec.Date
			}
			_, err := tx.Exec(ctx, insertRecord,
				rec.SubmissionID, rec.PropertyID, rec.UserName, rec.Email,
				date, rec.Hours, rec.Month, rec.Year, rec.SubmissionType,
				rec.CQ[0], rec.CQ[1], rec.CQ[2], rec.CQ[3], rec.CQ[4], rec.CQOther,
				rec.AQ[0], rec.AQ[1], rec.AQ[2], rec.AQ[3], rec.AQ[4], rec.AQOther,
				rec.TimePercentage, rec.Notes, rec.SubmissionDate,
			)
			if err != nil {
				return fmt.Errorf("insert entry %d: %w", i+1, err)
			}
		}
		return nil
	})
}

// SubmittedCommunityIDs lists communities that already have a row for p.
func (r *Repository) SubmittedCommunityIDs(ctx context.Context, p Period) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		SELECT DISTINCT property_id
		FROM property_time
		WHERE lower(email_address) = lower($1) AND month = $2 AND year = $3 AND submission_type = $4
		ORDER BY property_id`, p.Email, p.Month, p.Year, p.SubmissionType)
	if err != nil {
		return nil, fmt.Errorf("submitted communities: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("submitted communities: %w", err)
	}
	return ids, nil
}

// HasSubmission reports whether communityID already has a row for p.
func (r *Repository) HasSubmission(ctx context.Context, p Period, communityID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM property_time
			WHERE lower(email_address) = lower($1) AND month = $2 AND year = $3
			  AND submission_type = $4 AND property_id = $5
		)`, p.Email, p.Month, p.Year, p.SubmissionType, communityID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("community duplicate: %w", err)
	}
	return exists, nil
}

// DuplicateNames returns the names of the given communities that already
// have a row for p.
func (r *Repository) DuplicateNames(ctx context.Context, p Period, communityIDs []string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		SELECT DISTINCT v.property_name
		FROM property_time p
		JOIN property_staff_directory v ON v.property_id = p.property_id
		WHERE lower(p.email_address) = lower($1) AND p.month = $2 AND p.year = $3
		  AND p.submission_type = $4 AND p.property_id = ANY($5)
		ORDER BY v.property_name`, p.Email, p.Month, p.Year, p.SubmissionType, communityIDs)
	if err != nil {
		return nil, fmt.Errorf("duplicates: %w", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("duplicates: %w", err)
	}
	return names, nil
}
