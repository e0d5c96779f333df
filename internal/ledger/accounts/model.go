package accounts

import (
	"errors"
	"fmt"
	"time"

	"github.com/factora-erp/factora/internal/shared"
)

// AccountType enumerates chart-of-accounts node types.
type AccountType string

const (
	TypeAsset     AccountType = "ASSET"
	TypeLiability AccountType = "LIABILITY"
	TypeEquity    AccountType = "EQUITY"
	TypeIncome    AccountType = "INCOME"
	TypeExpense   AccountType = "EXPENSE"
)

// Account is a chart-of-accounts node. ParentID forms a tree; a node
// flagged as subaccount must have a parent.
type Account struct {
	ID           int64
	TenantID     int64
	Code         string
	Name         string
	Type         AccountType
	ParentID     *int64
	IsSubaccount bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

var (
	// ErrAccountNotFound indicates a missing chart-of-accounts node.
	ErrAccountNotFound = fmt.Errorf("accounts: account %w", shared.ErrNotFound)
	// ErrSubaccountNeedsParent indicates a subaccount without a parent.
	ErrSubaccountNeedsParent = errors.New("accounts: subaccount requires a parent")
	// ErrInvalidType indicates an unknown account type.
	ErrInvalidType = errors.New("accounts: invalid account type")
)

// Validate checks the tree invariants before persisting.
func (a Account) Validate() error {
	if a.TenantID == 0 {
		return errors.New("accounts: tenant required")
	}
	if a.Code == "" || a.Name == "" {
		return errors.New("accounts: code and name required")
	}
	switch a.Type {
	case TypeAsset, TypeLiability, TypeEquity, TypeIncome, TypeExpense:
	default:
		return ErrInvalidType
	}
	if a.IsSubaccount && a.ParentID == nil {
		return ErrSubaccountNeedsParent
	}
	return nil
}
