package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/factora-erp/factora/internal/numbering"
)

// TxStore exposes the transactional storage operations the posting rules
// run on. The pgx implementation lives in repository.go; tests substitute
// an in-memory one.
type TxStore interface {
	InsertEntry(ctx context.Context, entry Entry) (int64, error)
	InsertLines(ctx context.Context, entryID int64, lines []PostingLineInput) error
	GetEntryForUpdate(ctx context.Context, tenantID, entryID int64) (Entry, error)
	UpdateEntryStatus(ctx context.Context, tenantID, entryID int64, status EntryStatus) error
	FindEntryBySource(ctx context.Context, tenantID int64, module string, sourceID int64) (Entry, error)
}

// Poster holds the journal posting rules. Like the stock rules it carries
// no storage: it runs against the caller's transaction so an automatic
// entry commits atomically with the document transition that produced it.
type Poster struct {
	now func() time.Time
}

// NewPoster builds Poster.
func NewPoster() *Poster {
	return &Poster{now: time.Now}
}

// WithNow overrides the clock, for tests.
func (p *Poster) WithNow(now func() time.Time) {
	if now != nil {
		p.now = now
	}
}

// Post validates balance, consumes the journal's next number from the
// sequencer bound to the same transaction, and inserts the entry with its
// lines. Fails with ErrUnbalanced before any write when sums differ.
func (p *Poster) Post(ctx context.Context, tx TxStore, seq numbering.TxSequencer, in PostingInput) (Entry, error) {
	if err := in.Validate(); err != nil {
		return Entry{}, err
	}
	number, err := seq.NextJournalNumber(ctx, in.TenantID, in.JournalID)
	if err != nil {
		return Entry{}, err
	}
	debit, credit := in.Totals()
	now := p.now().UTC()
	entry := Entry{
		TenantID:     in.TenantID,
		JournalID:    in.JournalID,
		Number:       number,
		Date:         in.Date,
		Memo:         in.Memo,
		SourceModule: in.SourceModule,
		SourceID:     in.SourceID,
		TotalDebit:   debit,
		TotalCredit:  credit,
		PostedBy:     in.PostedBy,
		PostedAt:     now,
		Status:       EntryStatusPosted,
	}
	id, err := tx.InsertEntry(ctx, entry)
	if err != nil {
		return Entry{}, err
	}
	entry.ID = id
	if err := tx.InsertLines(ctx, id, in.Lines); err != nil {
		return Entry{}, err
	}
	entry.Lines = toLines(id, in.Lines, now)
	return entry, nil
}

// Void marks the entry and its lines void without deleting them. Voiding an
// already-void entry is a no-op, mirroring the stock reversal idempotence.
func (p *Poster) Void(ctx context.Context, tx TxStore, tenantID, entryID int64) (Entry, error) {
	entry, err := tx.GetEntryForUpdate(ctx, tenantID, entryID)
	if err != nil {
		return Entry{}, err
	}
	if entry.Status == EntryStatusVoid {
		return entry, nil
	}
	if err := tx.UpdateEntryStatus(ctx, tenantID, entryID, EntryStatusVoid); err != nil {
		return Entry{}, err
	}
	entry.Status = EntryStatusVoid
	return entry, nil
}

// VoidBySource voids the entry linked to a source document, if any.
// Returns the zero Entry and nil when no entry exists for the source.
func (p *Poster) VoidBySource(ctx context.Context, tx TxStore, tenantID int64, module string, sourceID int64) (Entry, error) {
	entry, err := tx.FindEntryBySource(ctx, tenantID, module, sourceID)
	if err != nil {
		if errors.Is(err, ErrEntryNotFound) {
			return Entry{}, nil
		}
		return Entry{}, err
	}
	return p.Void(ctx, tx, tenantID, entry.ID)
}

func toLines(entryID int64, lines []PostingLineInput, ts time.Time) []Line {
	out := make([]Line, 0, len(lines))
	for _, line := range lines {
		out = append(out, Line{
			EntryID:   entryID,
			AccountID: line.AccountID,
			Debit:     line.Debit,
			Credit:    line.Credit,
			CreatedAt: ts,
		})
	}
	return out
}
