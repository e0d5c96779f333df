package documents

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/factora-erp/factora/internal/ledger"
	"github.com/factora-erp/factora/internal/numbering"
	"github.com/factora-erp/factora/internal/party"
	"github.com/factora-erp/factora/internal/stock"
	"github.com/factora-erp/factora/internal/totals"
)

// fakeState backs the in-memory repository. WithTx runs callbacks against a
// deep copy and swaps it in only on success, mirroring the rollback
// behaviour of the real transaction.
type fakeState struct {
	docSeq    int64
	docs      map[int64]Document
	lines     map[int64][]Line
	series    map[int64]*fakeSeries
	journals  map[int64]int64
	balances  map[string]stock.Balance
	movements []stock.Movement
	moveSeq   int64
	entries   map[int64]ledger.Entry
	entrySeq  int64
}

type fakeSeries struct {
	prefix  string
	counter int64
	active  bool
}

func newFakeState() *fakeState {
	return &fakeState{
		docs:     map[int64]Document{},
		lines:    map[int64][]Line{},
		series:   map[int64]*fakeSeries{},
		journals: map[int64]int64{},
		balances: map[string]stock.Balance{},
		entries:  map[int64]ledger.Entry{},
	}
}

func (s *fakeState) clone() *fakeState {
	c := newFakeState()
	c.docSeq, c.moveSeq, c.entrySeq = s.docSeq, s.moveSeq, s.entrySeq
	for id, d := range s.docs {
		c.docs[id] = d
	}
	for id, lines := range s.lines {
		c.lines[id] = append([]Line(nil), lines...)
	}
	for id, sr := range s.series {
		cp := *sr
		c.series[id] = &cp
	}
	for id, counter := range s.journals {
		c.journals[id] = counter
	}
	for key, b := range s.balances {
		c.balances[key] = b
	}
	c.movements = append([]stock.Movement(nil), s.movements...)
	for id, e := range s.entries {
		cp := e
		cp.Lines = append([]ledger.Line(nil), e.Lines...)
		c.entries[id] = cp
	}
	return c
}

type fakeRepo struct {
	mu    sync.Mutex
	state *fakeState
}

// WithTx serializes callers the way row locks do: each transaction sees the
// state left by the previous one, and a failed callback leaves the original
// untouched.
func (r *fakeRepo) WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	next := r.state.clone()
	if err := fn(ctx, &fakeTx{state: next}); err != nil {
		return err
	}
	r.state = next
	return nil
}

func (r *fakeRepo) Get(ctx context.Context, tenantID, id int64) (Document, error) {
	d, ok := r.state.docs[id]
	if !ok || d.TenantID != tenantID {
		return Document{}, ErrDocumentNotFound
	}
	d.Lines = append([]Line(nil), r.state.lines[id]...)
	return d, nil
}

func (r *fakeRepo) List(ctx context.Context, filter ListFilter) ([]Document, error) {
	var docs []Document
	for _, d := range r.state.docs {
		if d.TenantID != filter.TenantID {
			continue
		}
		if filter.Kind != "" && d.Kind != filter.Kind {
			continue
		}
		if filter.Status != "" && d.Status != filter.Status {
			continue
		}
		docs = append(docs, d)
	}
	return docs, nil
}

type fakeTx struct {
	state *fakeState
}

func (t *fakeTx) InsertDocument(ctx context.Context, d Document) (int64, error) {
	t.state.docSeq++
	d.ID = t.state.docSeq
	d.Lines = nil
	t.state.docs[d.ID] = d
	return d.ID, nil
}

func (t *fakeTx) InsertLines(ctx context.Context, docID int64, lines []Line) error {
	t.state.lines[docID] = append([]Line(nil), lines...)
	return nil
}

func (t *fakeTx) GetForUpdate(ctx context.Context, tenantID, id int64) (Document, error) {
	d, ok := t.state.docs[id]
	if !ok || d.TenantID != tenantID {
		return Document{}, ErrDocumentNotFound
	}
	return d, nil
}

func (t *fakeTx) GetLines(ctx context.Context, docID int64) ([]Line, error) {
	return append([]Line(nil), t.state.lines[docID]...), nil
}

func (t *fakeTx) SetEmitted(ctx context.Context, tenantID, id int64, number string) error {
	d := t.state.docs[id]
	d.Status = StatusEmitted
	d.Number = number
	t.state.docs[id] = d
	return nil
}

func (t *fakeTx) SetStatus(ctx context.Context, tenantID, id int64, status Status) error {
	d := t.state.docs[id]
	d.Status = status
	t.state.docs[id] = d
	return nil
}

func (t *fakeTx) SetVoided(ctx context.Context, tenantID, id int64, reason string) error {
	d := t.state.docs[id]
	d.Status = StatusVoided
	d.VoidReason = reason
	t.state.docs[id] = d
	return nil
}

func (t *fakeTx) SetAuthorityResult(ctx context.Context, tenantID, id int64, status Status, detail string) error {
	d := t.state.docs[id]
	d.Status = status
	d.AuthorityDetail = detail
	t.state.docs[id] = d
	return nil
}

func (t *fakeTx) Sequencer() numbering.TxSequencer { return &fakeSequencer{state: t.state} }
func (t *fakeTx) Stock() stock.TxLedger            { return &fakeStockTx{state: t.state} }
func (t *fakeTx) Ledger() ledger.TxStore           { return &fakeLedgerTx{state: t.state} }

type fakeSequencer struct {
	state *fakeState
}

func (s *fakeSequencer) NextSeriesNumber(ctx context.Context, tenantID, seriesID int64) (numbering.Issued, error) {
	sr, ok := s.state.series[seriesID]
	if !ok {
		return numbering.Issued{}, numbering.ErrSeriesNotFound
	}
	if !sr.active {
		return numbering.Issued{}, numbering.ErrSeriesInactive
	}
	sr.counter++
	return numbering.Issued{Value: sr.counter, Prefix: sr.prefix}, nil
}

func (s *fakeSequencer) NextJournalNumber(ctx context.Context, tenantID, journalID int64) (int64, error) {
	if _, ok := s.state.journals[journalID]; !ok {
		return 0, numbering.ErrJournalNotFound
	}
	s.state.journals[journalID]++
	return s.state.journals[journalID], nil
}

func balanceKey(warehouseID, productID int64) string {
	return fmt.Sprintf("%d:%d", warehouseID, productID)
}

type fakeStockTx struct {
	state *fakeState
}

func (f *fakeStockTx) GetBalanceForUpdate(ctx context.Context, tenantID, warehouseID, productID int64) (stock.Balance, error) {
	b, ok := f.state.balances[balanceKey(warehouseID, productID)]
	if !ok {
		return stock.Balance{}, stock.ErrBalanceNotFound
	}
	return b, nil
}

func (f *fakeStockTx) UpsertBalance(ctx context.Context, balance stock.Balance) error {
	f.state.balances[balanceKey(balance.WarehouseID, balance.ProductID)] = balance
	return nil
}

func (f *fakeStockTx) InsertMovement(ctx context.Context, m stock.Movement) (int64, error) {
	f.state.moveSeq++
	m.ID = f.state.moveSeq
	f.state.movements = append(f.state.movements, m)
	return m.ID, nil
}

func (f *fakeStockTx) MovementsForOrigin(ctx context.Context, tenantID int64, origin stock.OriginRef) ([]stock.Movement, error) {
	var out []stock.Movement
	for _, m := range f.state.movements {
		if m.TenantID == tenantID && m.Origin == origin {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeStockTx) MarkReversed(ctx context.Context, tenantID int64, origin stock.OriginRef) error {
	for i, m := range f.state.movements {
		if m.TenantID == tenantID && m.Origin == origin {
			f.state.movements[i].Reversed = true
		}
	}
	return nil
}

type fakeLedgerTx struct {
	state *fakeState
}

func (f *fakeLedgerTx) InsertEntry(ctx context.Context, entry ledger.Entry) (int64, error) {
	f.state.entrySeq++
	entry.ID = f.state.entrySeq
	f.state.entries[entry.ID] = entry
	return entry.ID, nil
}

func (f *fakeLedgerTx) InsertLines(ctx context.Context, entryID int64, lines []ledger.PostingLineInput) error {
	e := f.state.entries[entryID]
	for _, line := range lines {
		e.Lines = append(e.Lines, ledger.Line{EntryID: entryID, AccountID: line.AccountID, Debit: line.Debit, Credit: line.Credit})
	}
	f.state.entries[entryID] = e
	return nil
}

func (f *fakeLedgerTx) GetEntryForUpdate(ctx context.Context, tenantID, entryID int64) (ledger.Entry, error) {
	e, ok := f.state.entries[entryID]
	if !ok {
		return ledger.Entry{}, ledger.ErrEntryNotFound
	}
	return e, nil
}

func (f *fakeLedgerTx) UpdateEntryStatus(ctx context.Context, tenantID, entryID int64, status ledger.EntryStatus) error {
	e := f.state.entries[entryID]
	e.Status = status
	f.state.entries[entryID] = e
	return nil
}

func (f *fakeLedgerTx) FindEntryBySource(ctx context.Context, tenantID int64, module string, sourceID int64) (ledger.Entry, error) {
	for _, e := range f.state.entries {
		if e.TenantID == tenantID && e.SourceModule == module && e.SourceID == sourceID {
			return e, nil
		}
	}
	return ledger.Entry{}, ledger.ErrEntryNotFound
}

type fakeParties struct{}

func (fakeParties) Get(ctx context.Context, tenantID, id int64) (party.Party, error) {
	if id != 7 {
		return party.Party{}, party.ErrPartyNotFound
	}
	return party.Party{ID: 7, TenantID: tenantID, Kind: party.KindCustomer, Name: "Comercial Andina SAC", TaxID: "20512345678", Address: "Av. Arequipa 1234, Lima"}, nil
}

type fixedRate struct{}

func (fixedRate) TenantTaxRate(ctx context.Context, tenantID int64) (decimal.Decimal, error) {
	return decimal.NewFromInt(18), nil
}

type fakeAccounts struct{}

func (fakeAccounts) PostingAccounts(ctx context.Context, tenantID int64) (PostingAccounts, error) {
	return PostingAccounts{SalesJournalID: 1, ReceivableAccountID: 12, RevenueAccountID: 70, TaxAccountID: 40}, nil
}

type noAccounts struct{}

func (noAccounts) PostingAccounts(ctx context.Context, tenantID int64) (PostingAccounts, error) {
	return PostingAccounts{}, ErrPostingNotConfigured
}

func newTestEngine(t *testing.T) (*Engine, *fakeRepo) {
	t.Helper()
	repo := &fakeRepo{state: newFakeState()}
	repo.state.series[1] = &fakeSeries{prefix: "F001", counter: 125, active: true}
	repo.state.series[2] = &fakeSeries{prefix: "AJ01", counter: 0, active: true}
	repo.state.journals[1] = 0
	engine := NewEngine(Deps{
		Repo:     repo,
		Parties:  fakeParties{},
		Rates:    fixedRate{},
		Accounts: fakeAccounts{},
		Stock:    stock.NewLedger(stock.Config{}),
		Poster:   ledger.NewPoster(),
	})
	return engine, repo
}

func setStock(repo *fakeRepo, warehouseID, productID int64, qty, avgCost float64) {
	repo.state.balances[balanceKey(warehouseID, productID)] = stock.Balance{
		TenantID: 1, WarehouseID: warehouseID, ProductID: productID, Qty: qty, AvgCost: avgCost,
	}
}

func invoiceRequest() CreateRequest {
	return CreateRequest{
		TenantID:    1,
		Kind:        KindSalesInvoice,
		SeriesID:    1,
		PartyID:     7,
		WarehouseID: 1,
		Lines: []LineRequest{
			{ProductID: 100, Qty: 2, UnitPrice: decimal.NewFromInt(100), Treatment: totals.TreatmentTaxed},
			{ProductID: 200, Qty: 1, UnitPrice: decimal.NewFromInt(50), Treatment: totals.TreatmentExempt},
		},
	}
}

func TestCreateDraftTotalsAndSnapshot(t *testing.T) {
	engine, repo := newTestEngine(t)
	ctx := context.Background()

	doc, err := engine.CreateDraft(ctx, invoiceRequest())
	require.NoError(t, err)

	require.Equal(t, StatusDraft, doc.Status)
	require.Empty(t, doc.Number)
	require.Equal(t, "250.00", doc.Subtotal.StringFixed(2))
	require.Equal(t, "36.00", doc.Tax.StringFixed(2))
	require.Equal(t, "286.00", doc.Total.StringFixed(2))
	require.Equal(t, "Comercial Andina SAC", doc.Party.Name)
	require.Equal(t, "20512345678", doc.Party.TaxID)

	// No side effects before emission.
	require.Empty(t, repo.state.movements)
	require.Empty(t, repo.state.entries)
	require.Equal(t, int64(125), repo.state.series[1].counter)
}

func TestEmitMintsNumberAppliesStockAndPosts(t *testing.T) {
	engine, repo := newTestEngine(t)
	ctx := context.Background()
	setStock(repo, 1, 100, 10, 60)
	setStock(repo, 1, 200, 5, 30)

	doc, err := engine.CreateDraft(ctx, invoiceRequest())
	require.NoError(t, err)
	emitted, err := engine.Emit(ctx, 1, doc.ID, 9)
	require.NoError(t, err)

	require.Equal(t, StatusEmitted, emitted.Status)
	require.Equal(t, "F001-00000126", emitted.Number)
	require.Equal(t, int64(126), repo.state.series[1].counter)

	require.InDelta(t, 8.0, repo.state.balances[balanceKey(1, 100)].Qty, 1e-9)
	require.InDelta(t, 4.0, repo.state.balances[balanceKey(1, 200)].Qty, 1e-9)
	require.Len(t, repo.state.movements, 2)

	require.Len(t, repo.state.entries, 1)
	for _, entry := range repo.state.entries {
		require.Equal(t, ledger.EntryStatusPosted, entry.Status)
		require.Equal(t, int64(1), entry.Number)
		require.Equal(t, string(KindSalesInvoice), entry.SourceModule)
		require.Equal(t, emitted.ID, entry.SourceID)
		var debit, credit float64
		for _, line := range entry.Lines {
			debit += line.Debit
			credit += line.Credit
		}
		require.InDelta(t, 286.00, debit, 1e-9)
		require.InDelta(t, credit, debit, 1e-9)
	}
}

func TestVoidReversesExactlyAndIsIdempotent(t *testing.T) {
	engine, repo := newTestEngine(t)
	ctx := context.Background()
	setStock(repo, 1, 100, 10, 60)
	setStock(repo, 1, 200, 5, 30)

	doc, err := engine.CreateAndEmit(ctx, invoiceRequest())
	require.NoError(t, err)

	voided, err := engine.Void(ctx, doc.ID, VoidRequest{TenantID: 1, Reason: "customer cancelled"})
	require.NoError(t, err)
	require.Equal(t, StatusVoided, voided.Status)
	require.Equal(t, "customer cancelled", voided.VoidReason)

	// Stock back to its pre-emit values, cost included.
	require.InDelta(t, 10.0, repo.state.balances[balanceKey(1, 100)].Qty, 1e-9)
	require.InDelta(t, 60.0, repo.state.balances[balanceKey(1, 100)].AvgCost, 1e-9)
	require.InDelta(t, 5.0, repo.state.balances[balanceKey(1, 200)].Qty, 1e-9)
	for _, m := range repo.state.movements {
		require.True(t, m.Reversed)
	}
	for _, entry := range repo.state.entries {
		require.Equal(t, ledger.EntryStatusVoid, entry.Status)
	}
	// The number is gone for good.
	require.Equal(t, "F001-00000126", voided.Number)
	require.Equal(t, int64(126), repo.state.series[1].counter)

	// Second void: same document back, nothing moves again.
	before := repo.state.balances[balanceKey(1, 100)]
	again, err := engine.Void(ctx, doc.ID, VoidRequest{TenantID: 1, Reason: "duplicate click"})
	require.NoError(t, err)
	require.Equal(t, StatusVoided, again.Status)
	require.Equal(t, "customer cancelled", again.VoidReason)
	require.Equal(t, before, repo.state.balances[balanceKey(1, 100)])
}

func TestSequentialEmissionsIssueDistinctNumbers(t *testing.T) {
	engine, repo := newTestEngine(t)
	ctx := context.Background()
	repo.state.series[1].counter = 10
	setStock(repo, 1, 100, 50, 60)
	setStock(repo, 1, 200, 50, 30)

	first, err := engine.CreateAndEmit(ctx, invoiceRequest())
	require.NoError(t, err)
	second, err := engine.CreateAndEmit(ctx, invoiceRequest())
	require.NoError(t, err)

	require.Equal(t, "F001-00000011", first.Number)
	require.Equal(t, "F001-00000012", second.Number)
	require.Equal(t, int64(12), repo.state.series[1].counter)
}

func TestEmitInsufficientStockConsumesNothing(t *testing.T) {
	engine, repo := newTestEngine(t)
	ctx := context.Background()
	setStock(repo, 1, 100, 3, 60)

	req := invoiceRequest()
	req.Lines = []LineRequest{{ProductID: 100, Qty: 5, UnitPrice: decimal.NewFromInt(100), Treatment: totals.TreatmentTaxed}}
	doc, err := engine.CreateDraft(ctx, req)
	require.NoError(t, err)

	_, err = engine.Emit(ctx, 1, doc.ID, 9)
	require.ErrorIs(t, err, stock.ErrInsufficientStock)

	// The whole transition rolled back: draft untouched, counter untouched,
	// no movement, no entry.
	after, err := engine.Get(ctx, 1, doc.ID)
	require.NoError(t, err)
	require.Equal(t, StatusDraft, after.Status)
	require.Empty(t, after.Number)
	require.Equal(t, int64(125), repo.state.series[1].counter)
	require.Empty(t, repo.state.movements)
	require.Empty(t, repo.state.entries)
	require.InDelta(t, 3.0, repo.state.balances[balanceKey(1, 100)].Qty, 1e-9)
}

func TestEmitInactiveSeries(t *testing.T) {
	engine, repo := newTestEngine(t)
	ctx := context.Background()
	setStock(repo, 1, 100, 50, 60)
	setStock(repo, 1, 200, 50, 30)

	doc, err := engine.CreateDraft(ctx, invoiceRequest())
	require.NoError(t, err)
	repo.state.series[1].active = false

	_, err = engine.Emit(ctx, 1, doc.ID, 9)
	require.ErrorIs(t, err, numbering.ErrSeriesInactive)
	require.Empty(t, repo.state.movements)
}

func TestVoidAllowedOnInactiveSeries(t *testing.T) {
	engine, repo := newTestEngine(t)
	ctx := context.Background()
	setStock(repo, 1, 100, 50, 60)
	setStock(repo, 1, 200, 50, 30)

	doc, err := engine.CreateAndEmit(ctx, invoiceRequest())
	require.NoError(t, err)
	repo.state.series[1].active = false

	voided, err := engine.Void(ctx, doc.ID, VoidRequest{TenantID: 1, Reason: "series retired"})
	require.NoError(t, err)
	require.Equal(t, StatusVoided, voided.Status)
}

func TestVoidDraftRejected(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	doc, err := engine.CreateDraft(ctx, invoiceRequest())
	require.NoError(t, err)

	_, err = engine.Void(ctx, doc.ID, VoidRequest{TenantID: 1, Reason: "oops"})
	require.ErrorIs(t, err, ErrVoidDraft)
}

func TestAdjustmentLifecycle(t *testing.T) {
	engine, repo := newTestEngine(t)
	ctx := context.Background()
	setStock(repo, 1, 100, 10, 50)

	doc, err := engine.CreateAdjustment(ctx, AdjustmentRequest{
		TenantID: 1, SeriesID: 2, WarehouseID: 1, Reason: "cycle count",
		Lines: []StockLineRequest{{ProductID: 100, Qty: 4, UnitCost: 55, Direction: stock.DirectionIn}},
	})
	require.NoError(t, err)
	require.Equal(t, StatusPending, doc.Status)
	require.Equal(t, "AJ01-00000001", doc.Number)
	// Pending: no stock effect yet.
	require.InDelta(t, 10.0, repo.state.balances[balanceKey(1, 100)].Qty, 1e-9)

	applied, err := engine.Apply(ctx, 1, doc.ID, 9)
	require.NoError(t, err)
	require.Equal(t, StatusApplied, applied.Status)
	require.InDelta(t, 14.0, repo.state.balances[balanceKey(1, 100)].Qty, 1e-9)

	// Applying twice is an invalid state, not a double movement.
	_, err = engine.Apply(ctx, 1, doc.ID, 9)
	require.ErrorIs(t, err, ErrNotPending)
	require.InDelta(t, 14.0, repo.state.balances[balanceKey(1, 100)].Qty, 1e-9)

	voided, err := engine.Void(ctx, doc.ID, VoidRequest{TenantID: 1, Reason: "count was wrong"})
	require.NoError(t, err)
	require.Equal(t, StatusVoided, voided.Status)
	require.InDelta(t, 10.0, repo.state.balances[balanceKey(1, 100)].Qty, 1e-9)
	require.InDelta(t, 50.0, repo.state.balances[balanceKey(1, 100)].AvgCost, 1e-9)
}

func TestTransferMovesCostWithGoods(t *testing.T) {
	engine, repo := newTestEngine(t)
	ctx := context.Background()
	setStock(repo, 1, 100, 10, 42.5)

	doc, err := engine.CreateTransfer(ctx, TransferRequest{
		TenantID: 1, SeriesID: 2, WarehouseID: 1, DestWarehouseID: 2,
		Lines: []StockLineRequest{{ProductID: 100, Qty: 6}},
	})
	require.NoError(t, err)

	_, err = engine.Apply(ctx, 1, doc.ID, 9)
	require.NoError(t, err)

	src := repo.state.balances[balanceKey(1, 100)]
	dst := repo.state.balances[balanceKey(2, 100)]
	require.InDelta(t, 4.0, src.Qty, 1e-9)
	require.InDelta(t, 6.0, dst.Qty, 1e-9)
	require.InDelta(t, 42.5, dst.AvgCost, 1e-9)

	// Voiding restores both warehouses.
	_, err = engine.Void(ctx, doc.ID, VoidRequest{TenantID: 1, Reason: "sent to wrong site"})
	require.NoError(t, err)
	require.InDelta(t, 10.0, repo.state.balances[balanceKey(1, 100)].Qty, 1e-9)
	require.InDelta(t, 0.0, repo.state.balances[balanceKey(2, 100)].Qty, 1e-9)
}

func TestAuthorityResult(t *testing.T) {
	engine, repo := newTestEngine(t)
	ctx := context.Background()
	setStock(repo, 1, 100, 50, 60)
	setStock(repo, 1, 200, 50, 30)

	doc, err := engine.CreateAndEmit(ctx, invoiceRequest())
	require.NoError(t, err)

	accepted, err := engine.RecordAuthorityResult(ctx, doc.ID, AuthorityResultRequest{TenantID: 1, Accepted: true, Detail: "CDR ok"})
	require.NoError(t, err)
	require.Equal(t, StatusAccepted, accepted.Status)
	require.Equal(t, "CDR ok", accepted.AuthorityDetail)

	// Only emitted documents take a verdict.
	_, err = engine.RecordAuthorityResult(ctx, doc.ID, AuthorityResultRequest{TenantID: 1, Accepted: false})
	require.ErrorIs(t, err, ErrNotEmitted)
}

func TestEmitWithoutPostingConfig(t *testing.T) {
	repo := &fakeRepo{state: newFakeState()}
	repo.state.series[1] = &fakeSeries{prefix: "F001", counter: 125, active: true}
	repo.state.series[3] = &fakeSeries{prefix: "G001", counter: 0, active: true}
	engine := NewEngine(Deps{
		Repo:     repo,
		Parties:  fakeParties{},
		Rates:    fixedRate{},
		Accounts: noAccounts{},
		Stock:    stock.NewLedger(stock.Config{}),
		Poster:   ledger.NewPoster(),
	})
	ctx := context.Background()
	setStock(repo, 1, 100, 50, 60)
	setStock(repo, 1, 200, 50, 30)

	// A delivery guide moves stock but posts nothing, so the missing
	// account mapping does not block it.
	guide := invoiceRequest()
	guide.Kind = KindDeliveryGuide
	guide.SeriesID = 3
	emitted, err := engine.CreateAndEmit(ctx, guide)
	require.NoError(t, err)
	require.Equal(t, StatusEmitted, emitted.Status)
	require.Equal(t, "G001-00000001", emitted.Number)

	// An invoice needs the mapping; the failure consumes nothing.
	_, err = engine.CreateAndEmit(ctx, invoiceRequest())
	require.ErrorIs(t, err, ErrPostingNotConfigured)
	require.Equal(t, int64(125), repo.state.series[1].counter)
	require.Empty(t, repo.state.entries)
}

func TestConcurrentEmissionsIssueDistinctNumbers(t *testing.T) {
	engine, repo := newTestEngine(t)
	ctx := context.Background()
	setStock(repo, 1, 100, 500, 60)
	setStock(repo, 1, 200, 500, 30)

	const emitters = 8
	drafts := make([]int64, emitters)
	for i := range drafts {
		doc, err := engine.CreateDraft(ctx, invoiceRequest())
		require.NoError(t, err)
		drafts[i] = doc.ID
	}

	numbers := make(chan string, emitters)
	errs := make(chan error, emitters)
	var wg sync.WaitGroup
	for _, id := range drafts {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			doc, err := engine.Emit(ctx, 1, id, 9)
			if err != nil {
				errs <- err
				return
			}
			numbers <- doc.Number
		}(id)
	}
	wg.Wait()
	close(numbers)
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	seen := make(map[string]bool, emitters)
	for n := range numbers {
		require.False(t, seen[n], "number %s issued twice", n)
		seen[n] = true
	}
	require.Len(t, seen, emitters)
	require.Equal(t, int64(125+emitters), repo.state.series[1].counter)
}

func TestConcurrentVoidReversesOnce(t *testing.T) {
	engine, repo := newTestEngine(t)
	ctx := context.Background()
	setStock(repo, 1, 100, 10, 60)
	setStock(repo, 1, 200, 5, 30)

	doc, err := engine.CreateAndEmit(ctx, invoiceRequest())
	require.NoError(t, err)

	const voiders = 6
	errs := make(chan error, voiders)
	var wg sync.WaitGroup
	for i := 0; i < voiders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.Void(ctx, doc.ID, VoidRequest{TenantID: 1, Reason: "race"})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	// Exactly one voider reversed; the balance is restored once, not six
	// times.
	require.InDelta(t, 10.0, repo.state.balances[balanceKey(1, 100)].Qty, 1e-9)
	require.InDelta(t, 5.0, repo.state.balances[balanceKey(1, 200)].Qty, 1e-9)
	for _, m := range repo.state.movements {
		require.True(t, m.Reversed)
	}
	require.Len(t, repo.state.movements, 2)
}
