package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/factora-erp/factora/internal/numbering"
)

type memoryStore struct {
	entries map[int64]*Entry
	lines   map[int64][]Line
	nextID  int64
}

func newMemoryStore() *memoryStore {
	return &memoryStore{entries: make(map[int64]*Entry), lines: make(map[int64][]Line)}
}

func (m *memoryStore) InsertEntry(ctx context.Context, entry Entry) (int64, error) {
	m.nextID++
	entry.ID = m.nextID
	m.entries[entry.ID] = &entry
	return entry.ID, nil
}

func (m *memoryStore) InsertLines(ctx context.Context, entryID int64, lines []PostingLineInput) error {
	for _, line := range lines {
		m.lines[entryID] = append(m.lines[entryID], Line{EntryID: entryID, AccountID: line.AccountID, Debit: line.Debit, Credit: line.Credit})
	}
	return nil
}

func (m *memoryStore) GetEntryForUpdate(ctx context.Context, tenantID, entryID int64) (Entry, error) {
	if e, ok := m.entries[entryID]; ok && e.TenantID == tenantID {
		return *e, nil
	}
	return Entry{}, ErrEntryNotFound
}

func (m *memoryStore) UpdateEntryStatus(ctx context.Context, tenantID, entryID int64, status EntryStatus) error {
	e, ok := m.entries[entryID]
	if !ok || e.TenantID != tenantID {
		return ErrEntryNotFound
	}
	e.Status = status
	return nil
}

func (m *memoryStore) FindEntryBySource(ctx context.Context, tenantID int64, module string, sourceID int64) (Entry, error) {
	for _, e := range m.entries {
		if e.TenantID == tenantID && e.SourceModule == module && e.SourceID == sourceID {
			return *e, nil
		}
	}
	return Entry{}, ErrEntryNotFound
}

type memorySequencer struct {
	counters map[int64]int64
}

func (m *memorySequencer) NextJournalNumber(ctx context.Context, tenantID, journalID int64) (int64, error) {
	if m.counters == nil {
		m.counters = make(map[int64]int64)
	}
	m.counters[journalID]++
	return m.counters[journalID], nil
}

// Posting rules never mint document series numbers.
func (m *memorySequencer) NextSeriesNumber(ctx context.Context, tenantID, seriesID int64) (numbering.Issued, error) {
	return numbering.Issued{}, numbering.ErrSeriesNotFound
}

func balancedInput() PostingInput {
	return PostingInput{
		TenantID:     1,
		JournalID:    10,
		Date:         time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		Memo:         "Sale F001-00000126",
		SourceModule: "SALES_INVOICE",
		SourceID:     42,
		PostedBy:     7,
		Lines: []PostingLineInput{
			{AccountID: 1201, Debit: 286.00},
			{AccountID: 7011, Credit: 250.00},
			{AccountID: 4011, Credit: 36.00},
		},
	}
}

func TestPostBalancedEntry(t *testing.T) {
	store := newMemoryStore()
	seq := &memorySequencer{}
	poster := NewPoster()

	entry, err := poster.Post(context.Background(), store, seq, balancedInput())
	require.NoError(t, err)
	require.Equal(t, int64(1), entry.Number)
	require.Equal(t, EntryStatusPosted, entry.Status)
	require.InDelta(t, 286.00, entry.TotalDebit, 0.001)
	require.InDelta(t, 286.00, entry.TotalCredit, 0.001)
	require.Len(t, store.lines[entry.ID], 3)

	// Numbers keep increasing per journal.
	second, err := poster.Post(context.Background(), store, seq, balancedInput())
	require.NoError(t, err)
	require.Equal(t, int64(2), second.Number)
}

func TestPostUnbalancedEntry(t *testing.T) {
	store := newMemoryStore()
	seq := &memorySequencer{}
	poster := NewPoster()

	in := balancedInput()
	in.Lines[0].Debit = 300.00

	_, err := poster.Post(context.Background(), store, seq, in)
	require.ErrorIs(t, err, ErrUnbalanced)
	require.Empty(t, store.entries)
	// Number not consumed: validation runs before the sequencer.
	require.Empty(t, seq.counters)
}

func TestPostMixedLine(t *testing.T) {
	store := newMemoryStore()
	poster := NewPoster()

	in := PostingInput{
		TenantID:  1,
		JournalID: 10,
		Date:      time.Now(),
		Lines: []PostingLineInput{
			{AccountID: 1, Debit: 100.00, Credit: 20.00},
			{AccountID: 2, Credit: 80.00},
		},
	}
	_, err := poster.Post(context.Background(), store, &memorySequencer{}, in)
	require.NoError(t, err)
}

func TestPostTooFewLines(t *testing.T) {
	in := balancedInput()
	in.Lines = in.Lines[:1]
	_, err := NewPoster().Post(context.Background(), newMemoryStore(), &memorySequencer{}, in)
	require.ErrorIs(t, err, ErrTooFewLines)
}

func TestPostManualEntryVoidable(t *testing.T) {
	store := newMemoryStore()
	poster := NewPoster()

	// Manual entries carry no source document and may be posted by an
	// anonymous actor; both stay zero end to end.
	in := balancedInput()
	in.SourceModule = "MANUAL"
	in.SourceID = 0
	in.PostedBy = 0

	entry, err := poster.Post(context.Background(), store, &memorySequencer{}, in)
	require.NoError(t, err)
	require.Zero(t, entry.SourceID)
	require.Zero(t, entry.PostedBy)

	voided, err := poster.Void(context.Background(), store, 1, entry.ID)
	require.NoError(t, err)
	require.Equal(t, EntryStatusVoid, voided.Status)
}

func TestVoidIdempotent(t *testing.T) {
	store := newMemoryStore()
	poster := NewPoster()

	entry, err := poster.Post(context.Background(), store, &memorySequencer{}, balancedInput())
	require.NoError(t, err)

	voided, err := poster.Void(context.Background(), store, 1, entry.ID)
	require.NoError(t, err)
	require.Equal(t, EntryStatusVoid, voided.Status)

	again, err := poster.Void(context.Background(), store, 1, entry.ID)
	require.NoError(t, err)
	require.Equal(t, EntryStatusVoid, again.Status)
}

func TestVoidBySource(t *testing.T) {
	store := newMemoryStore()
	poster := NewPoster()

	_, err := poster.Post(context.Background(), store, &memorySequencer{}, balancedInput())
	require.NoError(t, err)

	entry, err := poster.VoidBySource(context.Background(), store, 1, "SALES_INVOICE", 42)
	require.NoError(t, err)
	require.Equal(t, EntryStatusVoid, entry.Status)

	// Unknown source: nothing to void, no error.
	none, err := poster.VoidBySource(context.Background(), store, 1, "SALES_INVOICE", 999)
	require.NoError(t, err)
	require.Zero(t, none.ID)
}
