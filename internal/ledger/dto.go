package ledger

import (
	"errors"
	"fmt"
	"time"
)

// PostingLineInput describes a journal line for a posting request.
type PostingLineInput struct {
	AccountID int64
	Debit     float64
	Credit    float64
}

// PostingInput groups fields required to post a journal entry. It is shared
// by the document lifecycle engine's automatic bookkeeping and the manual
// posting path.
type PostingInput struct {
	TenantID     int64
	JournalID    int64
	Date         time.Time
	Memo         string
	SourceModule string
	SourceID     int64
	PostedBy     int64
	Lines        []PostingLineInput
}

// Validate ensures the entry balances before anything touches storage.
func (in PostingInput) Validate() error {
	if in.TenantID == 0 {
		return errors.New("ledger: tenant required")
	}
	if in.JournalID == 0 {
		return errors.New("ledger: journal required")
	}
	if len(in.Lines) < 2 {
		return ErrTooFewLines
	}
	var debit, credit float64
	for idx, line := range in.Lines {
		if line.AccountID == 0 {
			return fmt.Errorf("ledger: line %d missing account", idx)
		}
		if line.Debit < 0 || line.Credit < 0 {
			return fmt.Errorf("ledger: line %d negative amount", idx)
		}
		debit += line.Debit
		credit += line.Credit
	}
	if fmt.Sprintf("%.2f", debit) != fmt.Sprintf("%.2f", credit) {
		return ErrUnbalanced
	}
	return nil
}

// Totals returns the summed debit and credit at 2 decimals.
func (in PostingInput) Totals() (debit, credit float64) {
	for _, line := range in.Lines {
		debit += line.Debit
		credit += line.Credit
	}
	return debit, credit
}

// VoidInput wraps parameters for voiding an entry.
type VoidInput struct {
	TenantID int64
	EntryID  int64
	ActorID  int64
	Reason   string
}
