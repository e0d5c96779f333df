package documents

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/factora-erp/factora/internal/ledger"
	"github.com/factora-erp/factora/internal/numbering"
	"github.com/factora-erp/factora/internal/platform/db"
	"github.com/factora-erp/factora/internal/stock"
)

// TxRepository exposes the document storage operations of one transaction,
// plus the sequencer, stock ledger, and entry store bound to that same
// transaction. The engine runs a whole transition against one TxRepository,
// so every side effect commits or rolls back together.
type TxRepository interface {
	InsertDocument(ctx context.Context, d Document) (int64, error)
	InsertLines(ctx context.Context, docID int64, lines []Line) error
	GetForUpdate(ctx context.Context, tenantID, id int64) (Document, error)
	GetLines(ctx context.Context, docID int64) ([]Line, error)
	SetEmitted(ctx context.Context, tenantID, id int64, number string) error
	SetStatus(ctx context.Context, tenantID, id int64, status Status) error
	SetVoided(ctx context.Context, tenantID, id int64, reason string) error
	SetAuthorityResult(ctx context.Context, tenantID, id int64, status Status, detail string) error

	Sequencer() numbering.TxSequencer
	Stock() stock.TxLedger
	Ledger() ledger.TxStore
}

// Repository persists documents in PostgreSQL.
type Repository struct {
	pool        *pgxpool.Pool
	lockTimeout time.Duration
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool, lockTimeout time.Duration) *Repository {
	return &Repository{pool: pool, lockTimeout: lockTimeout}
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error {
	return db.WithTx(ctx, r.pool, r.lockTimeout, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

const docColumns = `id, tenant_id, kind, series_id, number, party_id, party_snapshot, warehouse_id, dest_warehouse_id, ref_doc_id, issue_date, currency, export, notes, status, authority_detail, void_reason, subtotal, tax, total, created_at, updated_at`

func scanDocument(row pgx.Row) (Document, error) {
	var (
		d        Document
		snapshot []byte
		number   *string
	)
	err := row.Scan(&d.ID, &d.TenantID, &d.Kind, &d.SeriesID, &number, &d.PartyID, &snapshot,
		&d.WarehouseID, &d.DestWarehouseID, &d.RefDocID, &d.IssueDate, &d.Currency, &d.Export,
		&d.Notes, &d.Status, &d.AuthorityDetail, &d.VoidReason, &d.Subtotal, &d.Tax, &d.Total,
		&d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Document{}, ErrDocumentNotFound
		}
		return Document{}, err
	}
	if number != nil {
		d.Number = *number
	}
	if len(snapshot) > 0 {
		if err := json.Unmarshal(snapshot, &d.Party); err != nil {
			return Document{}, err
		}
	}
	return d, nil
}

// Get fetches a document with its lines, without locking.
func (r *Repository) Get(ctx context.Context, tenantID, id int64) (Document, error) {
	d, err := scanDocument(r.pool.QueryRow(ctx, `SELECT `+docColumns+` FROM documents WHERE id=$1 AND tenant_id=$2`, id, tenantID))
	if err != nil {
		return Document{}, err
	}
	lines, err := queryLines(ctx, r.pool, id)
	if err != nil {
		return Document{}, err
	}
	d.Lines = lines
	return d, nil
}

// List returns documents for a tenant, newest first, optionally narrowed by
// kind and status.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Document, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `SELECT `+docColumns+` FROM documents
WHERE tenant_id=$1 AND ($2='' OR kind=$2) AND ($3='' OR status=$3)
ORDER BY id DESC LIMIT $4`, filter.TenantID, string(filter.Kind), string(filter.Status), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var docs []Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func queryLines(ctx context.Context, q queryer, docID int64) ([]Line, error) {
	rows, err := q.Query(ctx, `SELECT id, document_id, product_id, qty, unit_price, discount, treatment, unit_cost, direction, subtotal, tax, total
FROM document_lines WHERE document_id=$1 ORDER BY id ASC`, docID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []Line
	for rows.Next() {
		var (
			l         Line
			direction *string
		)
		if err := rows.Scan(&l.ID, &l.DocumentID, &l.ProductID, &l.Qty, &l.UnitPrice, &l.Discount, &l.Treatment, &l.UnitCost, &direction, &l.Subtotal, &l.Tax, &l.Total); err != nil {
			return nil, err
		}
		if direction != nil {
			l.Direction = stock.Direction(*direction)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) InsertDocument(ctx context.Context, d Document) (int64, error) {
	snapshot, err := json.Marshal(d.Party)
	if err != nil {
		return 0, err
	}
	var id int64
	err = r.tx.QueryRow(ctx, `INSERT INTO documents (tenant_id, kind, series_id, number, party_id, party_snapshot, warehouse_id, dest_warehouse_id, ref_doc_id, issue_date, currency, export, notes, status, subtotal, tax, total)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17) RETURNING id`,
		d.TenantID, string(d.Kind), d.SeriesID, nullString(d.Number), nullInt(d.PartyID), snapshot,
		d.WarehouseID, d.DestWarehouseID, d.RefDocID, d.IssueDate, d.Currency, d.Export,
		d.Notes, string(d.Status), d.Subtotal, d.Tax, d.Total).Scan(&id)
	return id, err
}

func (r *txRepository) InsertLines(ctx context.Context, docID int64, lines []Line) error {
	for _, line := range lines {
		if _, err := r.tx.Exec(ctx, `INSERT INTO document_lines (document_id, product_id, qty, unit_price, discount, treatment, unit_cost, direction, subtotal, tax, total)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
			docID, line.ProductID, line.Qty, line.UnitPrice, line.Discount, string(line.Treatment),
			line.UnitCost, nullString(string(line.Direction)), line.Subtotal, line.Tax, line.Total); err != nil {
			return err
		}
	}
	return nil
}

func (r *txRepository) GetForUpdate(ctx context.Context, tenantID, id int64) (Document, error) {
	return scanDocument(r.tx.QueryRow(ctx, `SELECT `+docColumns+` FROM documents WHERE id=$1 AND tenant_id=$2 FOR UPDATE`, id, tenantID))
}

func (r *txRepository) GetLines(ctx context.Context, docID int64) ([]Line, error) {
	return queryLines(ctx, r.tx, docID)
}

func (r *txRepository) SetEmitted(ctx context.Context, tenantID, id int64, number string) error {
	return r.update(ctx, `UPDATE documents SET status=$3, number=$4, updated_at=NOW() WHERE id=$1 AND tenant_id=$2`,
		id, tenantID, string(StatusEmitted), number)
}

func (r *txRepository) SetStatus(ctx context.Context, tenantID, id int64, status Status) error {
	return r.update(ctx, `UPDATE documents SET status=$3, updated_at=NOW() WHERE id=$1 AND tenant_id=$2`,
		id, tenantID, string(status))
}

func (r *txRepository) SetVoided(ctx context.Context, tenantID, id int64, reason string) error {
	return r.update(ctx, `UPDATE documents SET status=$3, void_reason=$4, updated_at=NOW() WHERE id=$1 AND tenant_id=$2`,
		id, tenantID, string(StatusVoided), reason)
}

func (r *txRepository) SetAuthorityResult(ctx context.Context, tenantID, id int64, status Status, detail string) error {
	return r.update(ctx, `UPDATE documents SET status=$3, authority_detail=$4, updated_at=NOW() WHERE id=$1 AND tenant_id=$2`,
		id, tenantID, string(status), detail)
}

func (r *txRepository) update(ctx context.Context, sql string, args ...any) error {
	cmd, err := r.tx.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrDocumentNotFound
	}
	return nil
}

func (r *txRepository) Sequencer() numbering.TxSequencer {
	return numbering.NewTxSequencer(r.tx)
}

func (r *txRepository) Stock() stock.TxLedger {
	return stock.NewTxLedger(r.tx)
}

func (r *txRepository) Ledger() ledger.TxStore {
	return ledger.NewTxStore(r.tx)
}

func nullString(val string) any {
	if val == "" {
		return nil
	}
	return val
}

func nullInt(val int64) any {
	if val == 0 {
		return nil
	}
	return val
}
