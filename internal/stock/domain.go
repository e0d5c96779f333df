package stock

import (
	"errors"
	"fmt"
	"time"
)

// Direction enumerates movement directions.
type Direction string

const (
	// DirectionIn represents an inbound movement.
	DirectionIn Direction = "IN"
	// DirectionOut represents an outbound movement.
	DirectionOut Direction = "OUT"
)

// OriginKind tags the document kind that produced a movement. The reversal
// path switches exhaustively over these instead of carrying an untyped
// (type-string, id) pair.
type OriginKind string

const (
	OriginSalesInvoice  OriginKind = "SALES_INVOICE"
	OriginCreditNote    OriginKind = "CREDIT_NOTE"
	OriginDebitNote     OriginKind = "DEBIT_NOTE"
	OriginPurchaseOrder OriginKind = "PURCHASE_ORDER"
	OriginDeliveryGuide OriginKind = "DELIVERY_GUIDE"
	OriginAdjustment    OriginKind = "INVENTORY_ADJUSTMENT"
	OriginTransfer      OriginKind = "STOCK_TRANSFER"
)

// OriginRef is the tagged reference to the document that produced a
// movement. It is the unit of reversal: voiding a document reverses every
// movement carrying its OriginRef.
type OriginRef struct {
	Kind OriginKind
	ID   int64
}

func (o OriginRef) String() string {
	return fmt.Sprintf("%s:%d", o.Kind, o.ID)
}

// Movement is an immutable fact recording a quantity change of a product in
// a warehouse. Movements are never mutated in place; reversal flags them
// and applies the inverse delta to the balance projection.
type Movement struct {
	ID          int64
	TenantID    int64
	ProductID   int64
	WarehouseID int64
	Direction   Direction
	Qty         float64
	UnitCost    float64
	Origin      OriginRef
	Reversed    bool
	PostedAt    time.Time
}

// Balance is the materialized projection per (warehouse, product): always
// equal to the signed sum of non-reversed movements for that pair. Owned
// exclusively by this package; other components mutate it only through
// apply/reverse.
type Balance struct {
	TenantID    int64
	WarehouseID int64
	ProductID   int64
	Qty         float64
	AvgCost     float64
	UpdatedAt   time.Time
}

// MovementInput describes a movement to apply.
type MovementInput struct {
	TenantID    int64
	ProductID   int64
	WarehouseID int64
	Direction   Direction
	Qty         float64
	UnitCost    float64
	Origin      OriginRef
}

var (
	// ErrInsufficientStock triggered when an outbound movement would push a
	// balance negative and backorder is disallowed.
	ErrInsufficientStock = errors.New("stock: insufficient stock")
	// ErrInvalidQuantity indicates a non-positive quantity.
	ErrInvalidQuantity = errors.New("stock: quantity must be positive")
	// ErrInvalidUnitCost indicates a negative cost value.
	ErrInvalidUnitCost = errors.New("stock: unit cost must be >= 0")
	// ErrInvalidDirection indicates an unknown direction value.
	ErrInvalidDirection = errors.New("stock: direction must be IN or OUT")
)

// qtyEpsilon absorbs float drift when comparing balances against zero.
const qtyEpsilon = 1e-4
