package numbering

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/factora-erp/factora/internal/platform/db"
)

// Service mints document and journal numbers in standalone transactions.
// The document lifecycle engine does not use this type: it binds a
// TxSequencer to its own transaction so the number, the stock movements and
// the accounting entry commit or roll back together. If a caller fails
// after this service commits, the minted value stays consumed and the
// resulting gap is accepted and permanent.
type Service struct {
	pool        *pgxpool.Pool
	lockTimeout time.Duration
}

// NewService builds Service.
func NewService(pool *pgxpool.Pool, lockTimeout time.Duration) *Service {
	return &Service{pool: pool, lockTimeout: lockTimeout}
}

// NextNumber mints and formats the next number for a series.
func (s *Service) NextNumber(ctx context.Context, tenantID, seriesID int64) (string, error) {
	var issued Issued
	err := db.WithTx(ctx, s.pool, s.lockTimeout, func(tx pgx.Tx) error {
		var err error
		issued, err = NewTxSequencer(tx).NextSeriesNumber(ctx, tenantID, seriesID)
		return err
	})
	if err != nil {
		return "", err
	}
	return Format(issued.Prefix, issued.Value), nil
}

// NextJournalNumber mints the next sequence number for a journal.
func (s *Service) NextJournalNumber(ctx context.Context, tenantID, journalID int64) (int64, error) {
	var number int64
	err := db.WithTx(ctx, s.pool, s.lockTimeout, func(tx pgx.Tx) error {
		var err error
		number, err = NewTxSequencer(tx).NextJournalNumber(ctx, tenantID, journalID)
		return err
	})
	if err != nil {
		return 0, err
	}
	return number, nil
}

// Describe returns series metadata without locking.
func (s *Service) Describe(ctx context.Context, tenantID, seriesID int64) (Series, error) {
	return GetSeries(ctx, s.pool, tenantID, seriesID)
}
