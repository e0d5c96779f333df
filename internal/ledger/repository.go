package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/factora-erp/factora/internal/numbering"
	"github.com/factora-erp/factora/internal/platform/db"
)

// Repository persists journal entries in PostgreSQL.
type Repository struct {
	pool        *pgxpool.Pool
	lockTimeout time.Duration
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool, lockTimeout time.Duration) *Repository {
	return &Repository{pool: pool, lockTimeout: lockTimeout}
}

// WithTx executes the callback inside a repeatable-read transaction,
// handing it the entry store and a sequencer bound to the same transaction
// so the consumed journal number commits with the entry.
func (r *Repository) WithTx(ctx context.Context, fn func(ctx context.Context, tx TxStore, seq numbering.TxSequencer) error) error {
	return db.WithTx(ctx, r.pool, r.lockTimeout, func(tx pgx.Tx) error {
		return fn(ctx, NewTxStore(tx), numbering.NewTxSequencer(tx))
	})
}

// entryColumns coalesces source_id and posted_by: manual entries store NULL
// for both, and Entry carries them as plain int64.
const entryColumns = `id, tenant_id, journal_id, number, date, memo, source_module, COALESCE(source_id, 0), total_debit, total_credit, COALESCE(posted_by, 0), posted_at, status, created_at, updated_at`

// List returns entries for a tenant, newest first.
func (r *Repository) List(ctx context.Context, tenantID int64, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `SELECT `+entryColumns+`
FROM journal_entries WHERE tenant_id=$1 ORDER BY number DESC LIMIT $2`, tenantID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.TenantID, &e.JournalID, &e.Number, &e.Date, &e.Memo, &e.SourceModule, &e.SourceID, &e.TotalDebit, &e.TotalCredit, &e.PostedBy, &e.PostedAt, &e.Status, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// NewTxStore binds entry storage to an open pgx transaction.
func NewTxStore(tx pgx.Tx) TxStore {
	return &txStore{tx: tx}
}

type txStore struct {
	tx pgx.Tx
}

func (r *txStore) InsertEntry(ctx context.Context, entry Entry) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO journal_entries (tenant_id, journal_id, number, date, memo, source_module, source_id, total_debit, total_credit, posted_by, posted_at, status)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12) RETURNING id`,
		entry.TenantID, entry.JournalID, entry.Number, entry.Date, entry.Memo, entry.SourceModule, nullInt(entry.SourceID), entry.TotalDebit, entry.TotalCredit, nullInt(entry.PostedBy), entry.PostedAt, string(entry.Status)).Scan(&id)
	return id, err
}

func (r *txStore) InsertLines(ctx context.Context, entryID int64, lines []PostingLineInput) error {
	for _, line := range lines {
		if _, err := r.tx.Exec(ctx, `INSERT INTO journal_entry_lines (entry_id, account_id, debit, credit)
VALUES ($1,$2,$3,$4)`, entryID, line.AccountID, line.Debit, line.Credit); err != nil {
			return err
		}
	}
	return nil
}

func (r *txStore) GetEntryForUpdate(ctx context.Context, tenantID, entryID int64) (Entry, error) {
	var e Entry
	err := r.tx.QueryRow(ctx, `SELECT `+entryColumns+`
FROM journal_entries WHERE id=$1 AND tenant_id=$2 FOR UPDATE`, entryID, tenantID).
		Scan(&e.ID, &e.TenantID, &e.JournalID, &e.Number, &e.Date, &e.Memo, &e.SourceModule, &e.SourceID, &e.TotalDebit, &e.TotalCredit, &e.PostedBy, &e.PostedAt, &e.Status, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Entry{}, ErrEntryNotFound
		}
		return Entry{}, err
	}
	return e, nil
}

func (r *txStore) UpdateEntryStatus(ctx context.Context, tenantID, entryID int64, status EntryStatus) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE journal_entries SET status=$3, updated_at=NOW() WHERE id=$1 AND tenant_id=$2`, entryID, tenantID, string(status))
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrEntryNotFound
	}
	return nil
}

func (r *txStore) FindEntryBySource(ctx context.Context, tenantID int64, module string, sourceID int64) (Entry, error) {
	var e Entry
	err := r.tx.QueryRow(ctx, `SELECT `+entryColumns+`
FROM journal_entries WHERE tenant_id=$1 AND source_module=$2 AND source_id=$3 ORDER BY id DESC LIMIT 1 FOR UPDATE`, tenantID, module, sourceID).
		Scan(&e.ID, &e.TenantID, &e.JournalID, &e.Number, &e.Date, &e.Memo, &e.SourceModule, &e.SourceID, &e.TotalDebit, &e.TotalCredit, &e.PostedBy, &e.PostedAt, &e.Status, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Entry{}, ErrEntryNotFound
		}
		return Entry{}, err
	}
	return e, nil
}

func nullInt(val int64) any {
	if val == 0 {
		return nil
	}
	return val
}
