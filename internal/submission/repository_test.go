package submission

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// fakeTx stages inserts and publishes them to its starter on commit.
type fakeTx struct {
	pgx.Tx
	starter *fakeStarter
	staged  []any
	done    bool
}

func (t *fakeTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	t.starter.execs++
	if t.starter.failAt == t.starter.execs {
		return pgconn.CommandTag{}, errors.New(`new row violates check constraint "property_time_single_group"`)
	}
	t.staged = append(t.staged, args[1])
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (t *fakeTx) Commit(ctx context.Context) error {
	t.done = true
	t.starter.committed = append(t.starter.committed, t.staged...)
	return nil
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	t.starter.rollbacks++
	return nil
}

type fakeStarter struct {
	failAt    int
	execs     int
	rollbacks int
	committed []any
}

func (s *fakeStarter) BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error) {
	return &fakeTx{starter: s}, nil
}

func records(n int) []Record {
	id := uuid.New()
	now := time.Now().UTC()
	out := make([]Record, n)
	for i := range out {
		out[i] = Record{SubmissionID: id, PropertyID: string(rune('A' + i)), Email: "mgr@pelican.example.com", SubmissionDate: now}
	}
	return out
}

func TestInsertRecordsCommitsAll(t *testing.T) {
	starter := &fakeStarter{}
	repo := &Repository{tx: starter}

	if err := repo.InsertRecords(context.Background(), records(3)); err != nil {
		t.Fatalf("InsertRecords: %v", err)
	}
	if len(starter.committed) != 3 || starter.rollbacks != 0 {
		t.Fatalf("expected 3 committed rows, got %d (rollbacks %d)", len(starter.committed), starter.rollbacks)
	}
	if starter.committed[0] != "A" || starter.committed[2] != "C" {
		t.Fatalf("expected rows in entry order, got %v", starter.committed)
	}
}

func TestInsertRecordsRollsBackOnFailure(t *testing.T) {
	starter := &fakeStarter{failAt: 3}
	repo := &Repository{tx: starter}

	err := repo.InsertRecords(context.Background(), records(4))
	if err == nil {
		t.Fatalf("expected failure at entry 3")
	}
	if !strings.HasPrefix(err.Error(), "insert entry 3:") {
		t.Fatalf("expected failing entry to be named, got %v", err)
	}
	if len(starter.committed) != 0 {
		t.Fatalf("expected no visible rows after failure, got %v", starter.committed)
	}
	if starter.rollbacks != 1 {
		t.Fatalf("expected one rollback, got %d", starter.rollbacks)
	}
	if starter.execs != 3 {
		t.Fatalf("expected inserts to stop at the failing entry, got %d execs", starter.execs)
	}
}
