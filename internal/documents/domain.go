// Package documents drives the lifecycle of business documents. Every
// transition runs its side effects (number minting, stock movements, journal
// posting) inside one database transaction, so a failed transition leaves no
// partial state behind.
package documents

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/factora-erp/factora/internal/party"
	"github.com/factora-erp/factora/internal/shared"
	"github.com/factora-erp/factora/internal/stock"
	"github.com/factora-erp/factora/internal/totals"
)

// Kind enumerates document types.
type Kind string

const (
	KindSalesInvoice  Kind = "SALES_INVOICE"
	KindCreditNote    Kind = "CREDIT_NOTE"
	KindDebitNote     Kind = "DEBIT_NOTE"
	KindPurchaseOrder Kind = "PURCHASE_ORDER"
	KindDeliveryGuide Kind = "DELIVERY_GUIDE"
	KindAdjustment    Kind = "INVENTORY_ADJUSTMENT"
	KindTransfer      Kind = "STOCK_TRANSFER"
)

// Status enumerates lifecycle states. Commercial documents run
// draft -> emitted -> (accepted|rejected) with void reachable from any
// emitted state; adjustments and transfers run pending -> applied -> voided.
type Status string

const (
	StatusDraft    Status = "DRAFT"
	StatusEmitted  Status = "EMITTED"
	StatusAccepted Status = "ACCEPTED"
	StatusRejected Status = "REJECTED"
	StatusPending  Status = "PENDING"
	StatusApplied  Status = "APPLIED"
	StatusVoided   Status = "VOIDED"
)

// Line is one document line with its computed amounts. Qty and UnitCost are
// the stock-facing figures; the monetary columns are decimals rounded at the
// line level so the document totals equal the sum of lines.
type Line struct {
	ID         int64            `json:"id"`
	DocumentID int64            `json:"document_id"`
	ProductID  int64            `json:"product_id"`
	Qty        float64          `json:"qty"`
	UnitPrice  decimal.Decimal  `json:"unit_price"`
	Discount   decimal.Decimal  `json:"discount"`
	Treatment  totals.Treatment `json:"treatment"`
	// UnitCost is used for inbound stock movements (purchases, adjustments).
	UnitCost float64 `json:"unit_cost,omitempty"`
	// Direction applies to adjustment lines only.
	Direction stock.Direction `json:"direction,omitempty"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Tax       decimal.Decimal `json:"tax"`
	Total     decimal.Decimal `json:"total"`
}

// Document is the persisted aggregate. The counterparty snapshot is frozen
// at creation and never rewritten by later edits to the master record. The
// number stays empty until the series counter increment commits.
type Document struct {
	ID              int64           `json:"id"`
	TenantID        int64           `json:"tenant_id"`
	Kind            Kind            `json:"kind"`
	SeriesID        int64           `json:"series_id"`
	Number          string          `json:"number,omitempty"`
	PartyID         int64           `json:"party_id,omitempty"`
	Party           party.Snapshot  `json:"party"`
	WarehouseID     int64           `json:"warehouse_id"`
	DestWarehouseID *int64          `json:"dest_warehouse_id,omitempty"`
	RefDocID        *int64          `json:"ref_doc_id,omitempty"`
	IssueDate       time.Time       `json:"issue_date"`
	Currency        string          `json:"currency"`
	Export          bool            `json:"export"`
	Notes           string          `json:"notes,omitempty"`
	Status          Status          `json:"status"`
	AuthorityDetail string          `json:"authority_detail,omitempty"`
	VoidReason      string          `json:"void_reason,omitempty"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	Tax             decimal.Decimal `json:"tax"`
	Total           decimal.Decimal `json:"total"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	Lines           []Line          `json:"lines,omitempty"`
}

// Origin returns the stock origin reference for this document.
func (d Document) Origin() stock.OriginRef {
	return stock.OriginRef{Kind: stock.OriginKind(d.Kind), ID: d.ID}
}

var (
	// ErrDocumentNotFound indicates a missing document.
	ErrDocumentNotFound = fmt.Errorf("documents: document %w", shared.ErrNotFound)
	// ErrNotDraft rejects emission of a document past the draft state.
	ErrNotDraft = fmt.Errorf("documents: %w: only drafts can be emitted", shared.ErrInvalidState)
	// ErrNotPending rejects applying an adjustment or transfer twice.
	ErrNotPending = fmt.Errorf("documents: %w: only pending documents can be applied", shared.ErrInvalidState)
	// ErrVoidDraft rejects voiding a document that was never emitted.
	ErrVoidDraft = fmt.Errorf("documents: %w: drafts cannot be voided", shared.ErrInvalidState)
	// ErrVoidPending rejects voiding an adjustment or transfer never applied.
	ErrVoidPending = fmt.Errorf("documents: %w: pending documents cannot be voided", shared.ErrInvalidState)
	// ErrNotEmitted rejects recording an authority result off the emitted state.
	ErrNotEmitted = fmt.Errorf("documents: %w: authority result requires an emitted document", shared.ErrInvalidState)
	// ErrNoLines rejects a document without lines.
	ErrNoLines = fmt.Errorf("documents: document requires at least one line")
	// ErrLineDirectionRequired rejects an adjustment line without IN/OUT.
	ErrLineDirectionRequired = fmt.Errorf("documents: adjustment line requires a direction")
	// ErrVoidReasonRequired rejects a void without a stated reason.
	ErrVoidReasonRequired = fmt.Errorf("documents: void reason required")
)

// stockDirection maps a commercial kind to its emission-time movement
// direction. Debit notes carry no stock effect: they adjust amounts, not
// goods. Adjustments carry the direction per line; transfers pair OUT+IN.
func stockDirection(kind Kind) (stock.Direction, bool) {
	switch kind {
	case KindSalesInvoice, KindDeliveryGuide:
		return stock.DirectionOut, true
	case KindCreditNote, KindPurchaseOrder:
		return stock.DirectionIn, true
	default:
		return "", false
	}
}

// postsEntry reports whether the kind produces an automatic journal entry.
// Delivery guides and purchase orders move goods without fiscal amounts;
// adjustments and transfers never touch the accounting ledger.
func postsEntry(kind Kind) bool {
	switch kind {
	case KindSalesInvoice, KindCreditNote, KindDebitNote:
		return true
	default:
		return false
	}
}
