// Package party holds counterparty master data. Documents capture a
// snapshot of the party at emission time so later edits to the master
// record never rewrite an already-emitted document.
package party

import (
	"fmt"
	"time"

	"github.com/factora-erp/factora/internal/shared"
)

// Kind enumerates counterparty roles.
type Kind string

const (
	KindCustomer Kind = "CUSTOMER"
	KindSupplier Kind = "SUPPLIER"
)

// Party is a counterparty master record.
type Party struct {
	ID        int64     `json:"id"`
	TenantID  int64     `json:"tenant_id"`
	Kind      Kind      `json:"kind"`
	Name      string    `json:"name"`
	TaxID     string    `json:"tax_id"`
	Address   string    `json:"address"`
	Email     string    `json:"email,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Snapshot is the frozen identity a document carries.
type Snapshot struct {
	PartyID int64  `json:"party_id"`
	Name    string `json:"name"`
	TaxID   string `json:"tax_id"`
	Address string `json:"address"`
}

// Snapshot freezes the fields a document needs.
func (p Party) Snapshot() Snapshot {
	return Snapshot{PartyID: p.ID, Name: p.Name, TaxID: p.TaxID, Address: p.Address}
}

// ErrPartyNotFound indicates a missing counterparty.
var ErrPartyNotFound = fmt.Errorf("party: party %w", shared.ErrNotFound)
