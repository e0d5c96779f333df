package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

// recountTolerance absorbs float accumulation drift below any real unit.
const recountTolerance = 1e-4

// StockRecountJob verifies that every projection row equals the signed sum
// of its non-reversed movements, and optionally repairs drifted rows from
// the log. The movement log is the source of truth; the projection is
// derived state.
type StockRecountJob struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewStockRecountJob constructs the job.
func NewStockRecountJob(pool *pgxpool.Pool, logger *slog.Logger) *StockRecountJob {
	return &StockRecountJob{pool: pool, logger: logger}
}

// Handle processes TaskStockRecount tasks.
func (j *StockRecountJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload StockRecountPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	rows, err := j.pool.Query(ctx, `
SELECT s.tenant_id, s.warehouse_id, s.product_id, s.qty,
       COALESCE(SUM(CASE WHEN m.direction = 'IN' THEN m.qty ELSE -m.qty END), 0) AS recounted
FROM warehouse_stock s
LEFT JOIN stock_movements m
  ON m.tenant_id = s.tenant_id AND m.warehouse_id = s.warehouse_id
 AND m.product_id = s.product_id AND NOT m.reversed
WHERE ($1 = 0 OR s.tenant_id = $1)
GROUP BY s.tenant_id, s.warehouse_id, s.product_id, s.qty`,
		payload.TenantID)
	if err != nil {
		return err
	}
	defer rows.Close()

	type drift struct {
		tenantID, warehouseID, productID int64
		stored, recounted                float64
	}
	var drifted []drift
	for rows.Next() {
		var d drift
		if err := rows.Scan(&d.tenantID, &d.warehouseID, &d.productID, &d.stored, &d.recounted); err != nil {
			return err
		}
		if math.Abs(d.stored-d.recounted) > recountTolerance {
			drifted = append(drifted, d)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, d := range drifted {
		j.logger.ErrorContext(ctx, "stock projection drift detected",
			"tenant_id", d.tenantID, "warehouse_id", d.warehouseID, "product_id", d.productID,
			"stored", d.stored, "recounted", d.recounted)
		if !payload.Repair {
			continue
		}
		if _, err := j.pool.Exec(ctx, `UPDATE warehouse_stock SET qty=$4, updated_at=NOW()
WHERE tenant_id=$1 AND warehouse_id=$2 AND product_id=$3`,
			d.tenantID, d.warehouseID, d.productID, d.recounted); err != nil {
			return err
		}
	}

	j.logger.InfoContext(ctx, "stock recount finished",
		"tenant_id", payload.TenantID, "drifted", len(drifted), "repaired", payload.Repair && len(drifted) > 0)
	return nil
}
