package stock

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/factora-erp/factora/internal/platform/db"
)

// Repository persists stock data in PostgreSQL.
type Repository struct {
	pool        *pgxpool.Pool
	lockTimeout time.Duration
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool, lockTimeout time.Duration) *Repository {
	return &Repository{pool: pool, lockTimeout: lockTimeout}
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxLedger) error) error {
	if r == nil {
		return errors.New("stock repository not initialised")
	}
	return db.WithTx(ctx, r.pool, r.lockTimeout, func(tx pgx.Tx) error {
		return fn(ctx, NewTxLedger(tx))
	})
}

// CurrentStock returns the projected quantity for one (warehouse, product)
// pair. Plain read, no locking: callers that decide based on it must
// re-validate inside the transaction that applies the movement.
func (r *Repository) CurrentStock(ctx context.Context, tenantID, warehouseID, productID int64) (float64, error) {
	var qty float64
	err := r.pool.QueryRow(ctx, `SELECT qty FROM warehouse_stock WHERE tenant_id=$1 AND warehouse_id=$2 AND product_id=$3`, tenantID, warehouseID, productID).Scan(&qty)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return qty, nil
}

// MovementFilter filters movement history queries.
type MovementFilter struct {
	WarehouseID int64
	ProductID   int64
	From        time.Time
	To          time.Time
	Limit       int
}

// ListMovements returns the movement history for one (warehouse, product)
// pair, oldest first.
func (r *Repository) ListMovements(ctx context.Context, tenantID int64, filter MovementFilter) ([]Movement, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 200
	}
	rows, err := r.pool.Query(ctx, `SELECT id, tenant_id, product_id, warehouse_id, direction, qty, unit_cost, origin_kind, origin_id, reversed, posted_at
FROM stock_movements
WHERE tenant_id=$1 AND warehouse_id=$2 AND product_id=$3 AND posted_at BETWEEN COALESCE($4, '-infinity') AND COALESCE($5, 'infinity')
ORDER BY posted_at ASC, id ASC
LIMIT $6`, tenantID, filter.WarehouseID, filter.ProductID, nullTime(filter.From), nullTime(filter.To), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	movements := []Movement{}
	for rows.Next() {
		var m Movement
		if err := rows.Scan(&m.ID, &m.TenantID, &m.ProductID, &m.WarehouseID, &m.Direction, &m.Qty, &m.UnitCost, &m.Origin.Kind, &m.Origin.ID, &m.Reversed, &m.PostedAt); err != nil {
			return nil, err
		}
		movements = append(movements, m)
	}
	return movements, rows.Err()
}

type txLedger struct {
	tx pgx.Tx
}

// NewTxLedger binds ledger storage to an open pgx transaction.
func NewTxLedger(tx pgx.Tx) TxLedger {
	return &txLedger{tx: tx}
}

func (r *txLedger) GetBalanceForUpdate(ctx context.Context, tenantID, warehouseID, productID int64) (Balance, error) {
	var bal Balance
	err := r.tx.QueryRow(ctx, `SELECT tenant_id, warehouse_id, product_id, qty, avg_cost, updated_at FROM warehouse_stock WHERE tenant_id=$1 AND warehouse_id=$2 AND product_id=$3 FOR UPDATE`, tenantID, warehouseID, productID).
		Scan(&bal.TenantID, &bal.WarehouseID, &bal.ProductID, &bal.Qty, &bal.AvgCost, &bal.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Balance{TenantID: tenantID, WarehouseID: warehouseID, ProductID: productID}, ErrBalanceNotFound
		}
		return Balance{}, err
	}
	return bal, nil
}

func (r *txLedger) UpsertBalance(ctx context.Context, balance Balance) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO warehouse_stock (tenant_id, warehouse_id, product_id, qty, avg_cost, updated_at)
VALUES ($1,$2,$3,$4,$5,NOW())
ON CONFLICT (tenant_id, warehouse_id, product_id) DO UPDATE SET qty=EXCLUDED.qty, avg_cost=EXCLUDED.avg_cost, updated_at=NOW()`, balance.TenantID, balance.WarehouseID, balance.ProductID, balance.Qty, balance.AvgCost)
	return err
}

func (r *txLedger) InsertMovement(ctx context.Context, m Movement) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO stock_movements (tenant_id, product_id, warehouse_id, direction, qty, unit_cost, origin_kind, origin_id, reversed, posted_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,false,$9) RETURNING id`, m.TenantID, m.ProductID, m.WarehouseID, string(m.Direction), m.Qty, m.UnitCost, string(m.Origin.Kind), m.Origin.ID, m.PostedAt).Scan(&id)
	return id, err
}

func (r *txLedger) MovementsForOrigin(ctx context.Context, tenantID int64, origin OriginRef) ([]Movement, error) {
	rows, err := r.tx.Query(ctx, `SELECT id, tenant_id, product_id, warehouse_id, direction, qty, unit_cost, origin_kind, origin_id, reversed, posted_at
FROM stock_movements WHERE tenant_id=$1 AND origin_kind=$2 AND origin_id=$3 ORDER BY id ASC FOR UPDATE`, tenantID, string(origin.Kind), origin.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var movements []Movement
	for rows.Next() {
		var m Movement
		if err := rows.Scan(&m.ID, &m.TenantID, &m.ProductID, &m.WarehouseID, &m.Direction, &m.Qty, &m.UnitCost, &m.Origin.Kind, &m.Origin.ID, &m.Reversed, &m.PostedAt); err != nil {
			return nil, err
		}
		movements = append(movements, m)
	}
	return movements, rows.Err()
}

func (r *txLedger) MarkReversed(ctx context.Context, tenantID int64, origin OriginRef) error {
	_, err := r.tx.Exec(ctx, `UPDATE stock_movements SET reversed=true WHERE tenant_id=$1 AND origin_kind=$2 AND origin_id=$3 AND reversed=false`, tenantID, string(origin.Kind), origin.ID)
	return err
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
