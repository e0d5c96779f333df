package documents

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/factora-erp/factora/internal/stock"
	"github.com/factora-erp/factora/internal/totals"
)

// LineRequest is one line of a create request.
type LineRequest struct {
	ProductID int64            `json:"product_id" validate:"required,gt=0"`
	Qty       float64          `json:"qty" validate:"required,gt=0"`
	UnitPrice decimal.Decimal  `json:"unit_price"`
	Discount  decimal.Decimal  `json:"discount"`
	Treatment totals.Treatment `json:"treatment" validate:"required,oneof=TAXED EXEMPT UNAFFECTED"`
	UnitCost  float64          `json:"unit_cost" validate:"gte=0"`
	Direction stock.Direction  `json:"direction,omitempty" validate:"omitempty,oneof=IN OUT"`
}

// CreateRequest creates a commercial document (invoice, credit/debit note,
// purchase order, delivery guide) in draft state.
type CreateRequest struct {
	TenantID    int64         `json:"tenant_id" validate:"required,gt=0"`
	Kind        Kind          `json:"kind" validate:"required,oneof=SALES_INVOICE CREDIT_NOTE DEBIT_NOTE PURCHASE_ORDER DELIVERY_GUIDE"`
	SeriesID    int64         `json:"series_id" validate:"required,gt=0"`
	PartyID     int64         `json:"party_id" validate:"required,gt=0"`
	WarehouseID int64         `json:"warehouse_id" validate:"required,gt=0"`
	RefDocID    *int64        `json:"ref_doc_id,omitempty"`
	IssueDate   time.Time     `json:"issue_date"`
	Currency    string        `json:"currency" validate:"omitempty,len=3"`
	Export      bool          `json:"export"`
	ActorID     int64         `json:"-"`
	Lines       []LineRequest `json:"lines" validate:"required,min=1,dive"`
}

// StockLineRequest is one line of an adjustment or transfer. These carry no
// monetary figures, only quantities and costs for the stock ledger.
type StockLineRequest struct {
	ProductID int64           `json:"product_id" validate:"required,gt=0"`
	Qty       float64         `json:"qty" validate:"required,gt=0"`
	UnitCost  float64         `json:"unit_cost" validate:"gte=0"`
	Direction stock.Direction `json:"direction,omitempty" validate:"omitempty,oneof=IN OUT"`
}

// AdjustmentRequest creates an inventory adjustment in pending state. Each
// line carries its own direction.
type AdjustmentRequest struct {
	TenantID    int64              `json:"tenant_id" validate:"required,gt=0"`
	SeriesID    int64              `json:"series_id" validate:"required,gt=0"`
	WarehouseID int64              `json:"warehouse_id" validate:"required,gt=0"`
	IssueDate   time.Time          `json:"issue_date"`
	Reason      string             `json:"reason" validate:"required"`
	ActorID     int64              `json:"-"`
	Lines       []StockLineRequest `json:"lines" validate:"required,min=1,dive"`
}

// TransferRequest creates a stock transfer in pending state. Applying it
// pairs an OUT from the source warehouse with an IN to the destination at
// the cost recorded on the outbound movement.
type TransferRequest struct {
	TenantID        int64              `json:"tenant_id" validate:"required,gt=0"`
	SeriesID        int64              `json:"series_id" validate:"required,gt=0"`
	WarehouseID     int64              `json:"warehouse_id" validate:"required,gt=0"`
	DestWarehouseID int64              `json:"dest_warehouse_id" validate:"required,gt=0,nefield=WarehouseID"`
	IssueDate       time.Time          `json:"issue_date"`
	ActorID         int64              `json:"-"`
	Lines           []StockLineRequest `json:"lines" validate:"required,min=1,dive"`
}

// VoidRequest voids a document.
type VoidRequest struct {
	TenantID int64  `json:"tenant_id" validate:"required,gt=0"`
	Reason   string `json:"reason" validate:"required"`
	ActorID  int64  `json:"-"`
}

// AuthorityResultRequest records the tax authority's verdict on an emitted
// document. The verdict is stored as data, never interpreted further.
type AuthorityResultRequest struct {
	TenantID int64  `json:"tenant_id" validate:"required,gt=0"`
	Accepted bool   `json:"accepted"`
	Detail   string `json:"detail"`
	ActorID  int64  `json:"-"`
}

// ListFilter narrows document listings.
type ListFilter struct {
	TenantID int64
	Kind     Kind
	Status   Status
	Limit    int32
}
