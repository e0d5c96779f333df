package stock

import (
	"context"
	"errors"
	"math"
	"time"
)

// TxLedger exposes the transactional storage operations the rules run on.
// The pgx implementation lives in repository.go; tests substitute an
// in-memory one.
type TxLedger interface {
	GetBalanceForUpdate(ctx context.Context, tenantID, warehouseID, productID int64) (Balance, error)
	UpsertBalance(ctx context.Context, balance Balance) error
	InsertMovement(ctx context.Context, m Movement) (int64, error)
	MovementsForOrigin(ctx context.Context, tenantID int64, origin OriginRef) ([]Movement, error)
	MarkReversed(ctx context.Context, tenantID int64, origin OriginRef) error
}

// ErrBalanceNotFound indicates a missing balance row; apply treats it as a
// zero baseline.
var ErrBalanceNotFound = errors.New("stock: balance not found")

// Ledger holds the movement/balance business rules. It carries no storage:
// every method runs against the TxLedger of the caller's transaction so a
// document's movements commit atomically with the rest of its side effects.
type Ledger struct {
	allowNegative bool
	now           func() time.Time
}

// Config groups optional settings.
type Config struct {
	// AllowNegative enables backorder. Off by default: an outbound
	// movement that would push a balance negative fails with
	// ErrInsufficientStock.
	AllowNegative bool
}

// NewLedger builds Ledger.
func NewLedger(cfg Config) *Ledger {
	return &Ledger{allowNegative: cfg.AllowNegative, now: time.Now}
}

// WithNow overrides the clock, for tests.
func (l *Ledger) WithNow(now func() time.Time) {
	if now != nil {
		l.now = now
	}
}

// Apply appends one movement and updates the balance projection within the
// caller's transaction. A missing balance row is created with a zero
// baseline. Inbound movements fold the supplied unit cost into the moving
// average; outbound movements are costed at the current average.
func (l *Ledger) Apply(ctx context.Context, tx TxLedger, in MovementInput) (Movement, error) {
	if in.TenantID == 0 {
		return Movement{}, errors.New("stock: tenant required")
	}
	if in.WarehouseID == 0 || in.ProductID == 0 {
		return Movement{}, errors.New("stock: warehouse and product required")
	}
	if in.Qty <= 0 {
		return Movement{}, ErrInvalidQuantity
	}
	if in.UnitCost < 0 {
		return Movement{}, ErrInvalidUnitCost
	}
	if in.Direction != DirectionIn && in.Direction != DirectionOut {
		return Movement{}, ErrInvalidDirection
	}

	balance, err := tx.GetBalanceForUpdate(ctx, in.TenantID, in.WarehouseID, in.ProductID)
	if err != nil && !errors.Is(err, ErrBalanceNotFound) {
		return Movement{}, err
	}
	if errors.Is(err, ErrBalanceNotFound) {
		balance = Balance{TenantID: in.TenantID, WarehouseID: in.WarehouseID, ProductID: in.ProductID}
	}

	var unitCost float64
	var newQty, newAvg float64
	switch in.Direction {
	case DirectionIn:
		unitCost = in.UnitCost
		newQty = balance.Qty + in.Qty
		totalCost := balance.Qty*balance.AvgCost + in.Qty*unitCost
		if newQty != 0 {
			newAvg = totalCost / newQty
		}
	case DirectionOut:
		unitCost = balance.AvgCost
		newQty = balance.Qty - in.Qty
		if math.Abs(newQty) < qtyEpsilon {
			newQty = 0
		}
		if !l.allowNegative && newQty < -qtyEpsilon {
			return Movement{}, ErrInsufficientStock
		}
		if newQty > 0 {
			newAvg = balance.AvgCost
		}
	}

	movement := Movement{
		TenantID:    in.TenantID,
		ProductID:   in.ProductID,
		WarehouseID: in.WarehouseID,
		Direction:   in.Direction,
		Qty:         in.Qty,
		UnitCost:    unitCost,
		Origin:      in.Origin,
		PostedAt:    l.now().UTC(),
	}
	id, err := tx.InsertMovement(ctx, movement)
	if err != nil {
		return Movement{}, err
	}
	movement.ID = id

	balance.Qty = newQty
	balance.AvgCost = newAvg
	if err := tx.UpsertBalance(ctx, balance); err != nil {
		return Movement{}, err
	}
	return movement, nil
}

// ReverseOrigin flags every non-reversed movement of the origin and applies
// the inverse delta to each affected balance, using the unit cost recorded
// on the movement so the projection returns exactly to its pre-apply value.
// Idempotent: reversing an already-reversed origin is a no-op. Returns the
// number of movements reversed.
func (l *Ledger) ReverseOrigin(ctx context.Context, tx TxLedger, tenantID int64, origin OriginRef) (int, error) {
	if tenantID == 0 {
		return 0, errors.New("stock: tenant required")
	}
	movements, err := tx.MovementsForOrigin(ctx, tenantID, origin)
	if err != nil {
		return 0, err
	}
	reversed := 0
	for _, m := range movements {
		if m.Reversed {
			continue
		}
		balance, err := tx.GetBalanceForUpdate(ctx, tenantID, m.WarehouseID, m.ProductID)
		if err != nil && !errors.Is(err, ErrBalanceNotFound) {
			return reversed, err
		}
		if errors.Is(err, ErrBalanceNotFound) {
			balance = Balance{TenantID: tenantID, WarehouseID: m.WarehouseID, ProductID: m.ProductID}
		}

		var newQty, newAvg float64
		switch m.Direction {
		case DirectionIn:
			// Undoing an inbound acts like an outbound at the recorded cost.
			newQty = balance.Qty - m.Qty
			if math.Abs(newQty) < qtyEpsilon {
				newQty = 0
			}
			if !l.allowNegative && newQty < -qtyEpsilon {
				return reversed, ErrInsufficientStock
			}
			totalCost := balance.Qty*balance.AvgCost - m.Qty*m.UnitCost
			if newQty > 0 {
				newAvg = totalCost / newQty
			}
		case DirectionOut:
			newQty = balance.Qty + m.Qty
			totalCost := balance.Qty*balance.AvgCost + m.Qty*m.UnitCost
			if newQty != 0 {
				newAvg = totalCost / newQty
			}
		}

		balance.Qty = newQty
		balance.AvgCost = newAvg
		if err := tx.UpsertBalance(ctx, balance); err != nil {
			return reversed, err
		}
		reversed++
	}
	if reversed > 0 {
		if err := tx.MarkReversed(ctx, tenantID, origin); err != nil {
			return reversed, err
		}
	}
	return reversed, nil
}
