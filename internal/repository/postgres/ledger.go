package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/voteguard/evote-sessions/internal/core/domain"
	"github.com/voteguard/evote-sessions/internal/core/port"
	"github.com/voteguard/evote-sessions/internal/infra/security"
)

type pgExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const uniqueViolationCode = "23505"

// transactionRefBytes yields a 64 hex character reference after the 0x prefix.
const transactionRefBytes = 32

// LedgerRepository implements port.LedgerService backed by PostgreSQL.
// The unique constraint on voter_id makes the duplicate check and the
// write one atomic unit, so concurrent submissions for the same voter
// cannot both succeed.
type LedgerRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
	now     func() time.Time
}

// NewLedgerRepository constructs a ledger backed by any executor that satisfies pgExecutor.
func NewLedgerRepository(exec pgExecutor) *LedgerRepository {
	return &LedgerRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		now:     time.Now,
	}
}

// SubmitVote records a vote and returns its transaction reference.
func (r *LedgerRepository) SubmitVote(ctx context.Context, voterID string, candidateID int) (string, error) {
	txRef, err := security.GenerateTransactionRef(transactionRefBytes)
	if err != nil {
		return "", fmt.Errorf("generate transaction ref: %w", err)
	}

	committedAt := r.now().UTC()

	sql, args, err := r.builder.Insert("evote.votes").
		Columns("voter_id", "candidate_id", "transaction_ref", "committed_at").
		Values(voterID, candidateID, txRef, committedAt).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("build insert vote sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, sql, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return "", domain.ErrAlreadyVoted
		}
		return "", fmt.Errorf("insert vote: %w", domain.ErrLedgerUnavailable)
	}

	return txRef, nil
}

// HasVoted reports whether the ledger already holds a record for the voter.
func (r *LedgerRepository) HasVoted(ctx context.Context, voterID string) (bool, error) {
	sql, args, err := r.builder.Select("1").
		From("evote.votes").
		Where(squirrel.Eq{"voter_id": voterID}).
		Limit(1).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build select vote sql: %w", err)
	}

	var marker int
	if err := r.exec.QueryRow(ctx, sql, args...).Scan(&marker); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("query vote: %w", domain.ErrLedgerUnavailable)
	}

	return true, nil
}

// WithClock overrides the internal clock, used in tests.
func (r *LedgerRepository) WithClock(clock func() time.Time) *LedgerRepository {
	if clock != nil {
		r.now = clock
	}
	return r
}

var _ port.LedgerService = (*LedgerRepository)(nil)
