package numbering

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

// TxSequencer mints the next number for a series or journal inside the
// caller's transaction. Implementations take an exclusive row lock on the
// counter row, so two concurrent callers serialize instead of observing the
// same value.
type TxSequencer interface {
	NextSeriesNumber(ctx context.Context, tenantID, seriesID int64) (Issued, error)
	NextJournalNumber(ctx context.Context, tenantID, journalID int64) (int64, error)
}

type txSequencer struct {
	tx pgx.Tx
}

// NewTxSequencer binds a sequencer to an open pgx transaction.
func NewTxSequencer(tx pgx.Tx) TxSequencer {
	return &txSequencer{tx: tx}
}

func (s *txSequencer) NextSeriesNumber(ctx context.Context, tenantID, seriesID int64) (Issued, error) {
	var (
		prefix  string
		counter int64
		active  bool
	)
	err := s.tx.QueryRow(ctx, `SELECT prefix, counter, active FROM document_series WHERE id=$1 AND tenant_id=$2 FOR UPDATE`, seriesID, tenantID).
		Scan(&prefix, &counter, &active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Issued{}, ErrSeriesNotFound
		}
		return Issued{}, err
	}
	if !active {
		return Issued{}, ErrSeriesInactive
	}
	next := counter + 1
	if _, err := s.tx.Exec(ctx, `UPDATE document_series SET counter=$3, updated_at=NOW() WHERE id=$1 AND tenant_id=$2`, seriesID, tenantID, next); err != nil {
		return Issued{}, err
	}
	return Issued{Value: next, Prefix: prefix}, nil
}

func (s *txSequencer) NextJournalNumber(ctx context.Context, tenantID, journalID int64) (int64, error) {
	var counter int64
	err := s.tx.QueryRow(ctx, `SELECT counter FROM journals WHERE id=$1 AND tenant_id=$2 FOR UPDATE`, journalID, tenantID).
		Scan(&counter)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrJournalNotFound
		}
		return 0, err
	}
	next := counter + 1
	if _, err := s.tx.Exec(ctx, `UPDATE journals SET counter=$3, updated_at=NOW() WHERE id=$1 AND tenant_id=$2`, journalID, tenantID, next); err != nil {
		return 0, err
	}
	return next, nil
}

// GetSeries reads a series row without locking, for display purposes.
func GetSeries(ctx context.Context, q interface {
	QueryRow(context.Context, string, ...any) pgx.Row
}, tenantID, seriesID int64) (Series, error) {
	var s Series
	err := q.QueryRow(ctx, `SELECT id, tenant_id, doc_kind, prefix, counter, active, created_at, updated_at FROM document_series WHERE id=$1 AND tenant_id=$2`, seriesID, tenantID).
		Scan(&s.ID, &s.TenantID, &s.DocKind, &s.Prefix, &s.Counter, &s.Active, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Series{}, ErrSeriesNotFound
		}
		return Series{}, err
	}
	return s, nil
}
