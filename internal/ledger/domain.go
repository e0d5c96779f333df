package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/factora-erp/factora/internal/shared"
)

// EntryStatus enumerates journal entry lifecycle values.
type EntryStatus string

const (
	EntryStatusPosted EntryStatus = "POSTED"
	EntryStatusVoid   EntryStatus = "VOID"
)

// Entry captures a balanced set of debit/credit lines posted to a journal.
// Number is consumed from the journal's sequence in the same transaction as
// the insert. Voided entries stay on disk for the audit trail but are
// excluded from balance and report queries.
type Entry struct {
	ID           int64
	TenantID     int64
	JournalID    int64
	Number       int64
	Date         time.Time
	Memo         string
	SourceModule string
	SourceID     int64
	TotalDebit   float64
	TotalCredit  float64
	PostedBy     int64
	PostedAt     time.Time
	Status       EntryStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Lines        []Line
}

// Line stores debit and credit amounts for an account. Typically exactly
// one of the two is non-zero; mixed lines are allowed as long as the entry
// balances.
type Line struct {
	ID        int64
	EntryID   int64
	AccountID int64
	Debit     float64
	Credit    float64
	CreatedAt time.Time
}

var (
	// ErrUnbalanced indicates sum(debit) != sum(credit). Upstream totals
	// computation should make this unreachable; treat occurrences as a
	// data-integrity problem, not operator error.
	ErrUnbalanced = errors.New("ledger: entry does not balance")
	// ErrTooFewLines indicates an entry with fewer than two lines.
	ErrTooFewLines = errors.New("ledger: entry requires at least two lines")
	// ErrEntryNotFound indicates a missing journal entry.
	ErrEntryNotFound = fmt.Errorf("ledger: entry %w", shared.ErrNotFound)
)
