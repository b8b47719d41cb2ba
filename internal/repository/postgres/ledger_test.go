package postgres

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/voteguard/evote-sessions/internal/core/domain"
)

func TestLedgerRepository_SubmitVote(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	committedAt := time.Date(2026, 9, 1, 11, 0, 0, 0, time.UTC)
	repo := NewLedgerRepository(mock).WithClock(func() time.Time { return committedAt })

	mock.ExpectExec(`INSERT INTO evote\.votes`).
		WithArgs("ABC1234567", 3, pgxmock.AnyArg(), committedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	ref, err := repo.SubmitVote(context.Background(), "ABC1234567", 3)
	if err != nil {
		t.Fatalf("SubmitVote returned error: %v", err)
	}
	if !strings.HasPrefix(ref, "0x") {
		t.Fatalf("expected 0x prefixed reference, got %q", ref)
	}
	if len(ref) != 2+transactionRefBytes*2 {
		t.Fatalf("expected %d character reference, got %d", 2+transactionRefBytes*2, len(ref))
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestLedgerRepository_SubmitVoteDuplicate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewLedgerRepository(mock)

	mock.ExpectExec(`INSERT INTO evote\.votes`).
		WithArgs("ABC1234567", 3, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: uniqueViolationCode, ConstraintName: "votes_voter_id_key"})

	if _, err := repo.SubmitVote(context.Background(), "ABC1234567", 3); !errors.Is(err, domain.ErrAlreadyVoted) {
		t.Fatalf("expected ErrAlreadyVoted, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestLedgerRepository_SubmitVoteLedgerDown(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewLedgerRepository(mock)

	mock.ExpectExec(`INSERT INTO evote\.votes`).
		WithArgs("ABC1234567", 3, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(errors.New("connection refused"))

	if _, err := repo.SubmitVote(context.Background(), "ABC1234567", 3); !errors.Is(err, domain.ErrLedgerUnavailable) {
		t.Fatalf("expected ErrLedgerUnavailable, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestLedgerRepository_HasVoted(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewLedgerRepository(mock)

	mock.ExpectQuery(`SELECT 1 FROM evote\.votes`).
		WithArgs("ABC1234567").
		WillReturnRows(pgxmock.NewRows([]string{"?column?"}).AddRow(1))

	voted, err := repo.HasVoted(context.Background(), "ABC1234567")
	if err != nil {
		t.Fatalf("HasVoted returned error: %v", err)
	}
	if !voted {
		t.Fatalf("expected voted to be true")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestLedgerRepository_HasVotedMiss(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewLedgerRepository(mock)

	mock.ExpectQuery(`SELECT 1 FROM evote\.votes`).
		WithArgs("XYZ7654321").
		WillReturnError(pgx.ErrNoRows)

	voted, err := repo.HasVoted(context.Background(), "XYZ7654321")
	if err != nil {
		t.Fatalf("HasVoted returned error: %v", err)
	}
	if voted {
		t.Fatalf("expected voted to be false")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
