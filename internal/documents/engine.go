package documents

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/factora-erp/factora/internal/ledger"
	"github.com/factora-erp/factora/internal/numbering"
	"github.com/factora-erp/factora/internal/observability"
	"github.com/factora-erp/factora/internal/party"
	"github.com/factora-erp/factora/internal/shared"
	"github.com/factora-erp/factora/internal/stock"
	"github.com/factora-erp/factora/internal/totals"
)

// RepositoryPort abstracts document storage for the engine.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error
	Get(ctx context.Context, tenantID, id int64) (Document, error)
	List(ctx context.Context, filter ListFilter) ([]Document, error)
}

// PartyPort resolves counterparties for snapshotting.
type PartyPort interface {
	Get(ctx context.Context, tenantID, id int64) (party.Party, error)
}

// AuditPort records lifecycle transitions.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Deps groups the engine's collaborators.
type Deps struct {
	Repo     RepositoryPort
	Parties  PartyPort
	Rates    totals.RateProvider
	Accounts AccountResolver
	Stock    *stock.Ledger
	Poster   *ledger.Poster
	Audit    AuditPort
	Metrics  *observability.Metrics
	Logger   *slog.Logger
}

// Engine orchestrates document transitions. Each transition runs against a
// single TxRepository: the number mint, stock movements, journal posting,
// and state change of one transition commit or roll back as a unit.
type Engine struct {
	repo     RepositoryPort
	parties  PartyPort
	rates    totals.RateProvider
	accounts AccountResolver
	stock    *stock.Ledger
	poster   *ledger.Poster
	audit    AuditPort
	metrics  *observability.Metrics
	logger   *slog.Logger
	now      func() time.Time
}

// NewEngine builds Engine.
func NewEngine(deps Deps) *Engine {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		repo:     deps.Repo,
		parties:  deps.Parties,
		rates:    deps.Rates,
		accounts: deps.Accounts,
		stock:    deps.Stock,
		poster:   deps.Poster,
		audit:    deps.Audit,
		metrics:  deps.Metrics,
		logger:   logger,
		now:      time.Now,
	}
}

// WithNow overrides the clock, for tests.
func (e *Engine) WithNow(now func() time.Time) {
	if now != nil {
		e.now = now
	}
}

// CreateDraft snapshots the counterparty, computes totals, and stores the
// document in draft state. Drafts have no number and no stock or ledger
// effect.
func (e *Engine) CreateDraft(ctx context.Context, req CreateRequest) (Document, error) {
	doc, err := e.buildCommercial(ctx, req)
	if err != nil {
		return Document{}, err
	}
	err = e.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return e.insertDocument(ctx, tx, &doc)
	})
	if err != nil {
		return Document{}, err
	}
	e.recordAudit(ctx, req.TenantID, req.ActorID, "document.create", doc.ID, map[string]any{"kind": string(doc.Kind)})
	return doc, nil
}

// Emit promotes a draft: stock effects first, then the document number,
// then the automatic journal entry. Running the stock check before the
// number mint means an insufficient-stock failure never consumes a number,
// and the rollback covers the rest.
func (e *Engine) Emit(ctx context.Context, tenantID, docID, actorID int64) (Document, error) {
	acc, err := e.postingAccountsIfNeeded(ctx, tenantID)
	if err != nil {
		return Document{}, err
	}
	var doc Document
	err = e.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		d, err := tx.GetForUpdate(ctx, tenantID, docID)
		if err != nil {
			return err
		}
		if d.Status != StatusDraft {
			return ErrNotDraft
		}
		lines, err := tx.GetLines(ctx, d.ID)
		if err != nil {
			return err
		}
		d.Lines = lines
		if err := e.emitTx(ctx, tx, &d, acc, actorID); err != nil {
			return err
		}
		doc = d
		return nil
	})
	if err != nil {
		return Document{}, err
	}
	e.afterEmit(ctx, doc, actorID)
	return doc, nil
}

// CreateAndEmit creates and emits in one transaction, for callers that skip
// the draft stage.
func (e *Engine) CreateAndEmit(ctx context.Context, req CreateRequest) (Document, error) {
	acc, err := e.postingAccountsIfNeeded(ctx, req.TenantID)
	if err != nil {
		return Document{}, err
	}
	doc, err := e.buildCommercial(ctx, req)
	if err != nil {
		return Document{}, err
	}
	err = e.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := e.insertDocument(ctx, tx, &doc); err != nil {
			return err
		}
		return e.emitTx(ctx, tx, &doc, acc, req.ActorID)
	})
	if err != nil {
		return Document{}, err
	}
	e.afterEmit(ctx, doc, req.ActorID)
	return doc, nil
}

// Void reverses every side effect of an emitted or applied document and
// marks it voided. Voiding an already-voided document is a no-op returning
// the document unchanged; a concurrent second voider serializes on the row
// lock, observes the voided state, and reverses nothing. The consumed
// number is never reclaimed.
func (e *Engine) Void(ctx context.Context, docID int64, req VoidRequest) (Document, error) {
	if req.Reason == "" {
		return Document{}, ErrVoidReasonRequired
	}
	var (
		doc      Document
		reversed int
		already  bool
	)
	err := e.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		d, err := tx.GetForUpdate(ctx, req.TenantID, docID)
		if err != nil {
			return err
		}
		switch d.Status {
		case StatusVoided:
			doc, already = d, true
			return nil
		case StatusDraft:
			return ErrVoidDraft
		case StatusPending:
			return ErrVoidPending
		}
		n, err := e.stock.ReverseOrigin(ctx, tx.Stock(), req.TenantID, d.Origin())
		if err != nil {
			return err
		}
		reversed = n
		if postsEntry(d.Kind) {
			if _, err := e.poster.VoidBySource(ctx, tx.Ledger(), req.TenantID, string(d.Kind), d.ID); err != nil {
				return err
			}
		}
		if err := tx.SetVoided(ctx, req.TenantID, d.ID, req.Reason); err != nil {
			return err
		}
		d.Status = StatusVoided
		d.VoidReason = req.Reason
		doc = d
		return nil
	})
	if err != nil {
		return Document{}, err
	}
	if already {
		return doc, nil
	}
	if e.metrics != nil {
		e.metrics.DocumentsVoided.WithLabelValues(string(doc.Kind)).Inc()
	}
	e.recordAudit(ctx, req.TenantID, req.ActorID, "document.void", doc.ID, map[string]any{
		"reason": req.Reason, "movements_reversed": reversed,
	})
	return doc, nil
}

// CreateAdjustment stores an inventory adjustment in pending state. The
// document number comes from its series at creation; stock moves only on
// Apply.
func (e *Engine) CreateAdjustment(ctx context.Context, req AdjustmentRequest) (Document, error) {
	lines := make([]Line, 0, len(req.Lines))
	for _, lr := range req.Lines {
		if lr.Direction != stock.DirectionIn && lr.Direction != stock.DirectionOut {
			return Document{}, ErrLineDirectionRequired
		}
		lines = append(lines, stockLine(lr))
	}
	doc := Document{
		TenantID:    req.TenantID,
		Kind:        KindAdjustment,
		SeriesID:    req.SeriesID,
		WarehouseID: req.WarehouseID,
		IssueDate:   e.issueDate(req.IssueDate),
		Notes:       req.Reason,
		Status:      StatusPending,
		Subtotal:    decimal.Zero,
		Tax:         decimal.Zero,
		Total:       decimal.Zero,
		Lines:       lines,
	}
	if err := e.insertNumbered(ctx, &doc); err != nil {
		return Document{}, err
	}
	e.recordAudit(ctx, req.TenantID, req.ActorID, "document.create", doc.ID, map[string]any{"kind": string(doc.Kind)})
	return doc, nil
}

// CreateTransfer stores a warehouse transfer in pending state.
func (e *Engine) CreateTransfer(ctx context.Context, req TransferRequest) (Document, error) {
	lines := make([]Line, 0, len(req.Lines))
	for _, lr := range req.Lines {
		lines = append(lines, stockLine(lr))
	}
	dest := req.DestWarehouseID
	doc := Document{
		TenantID:        req.TenantID,
		Kind:            KindTransfer,
		SeriesID:        req.SeriesID,
		WarehouseID:     req.WarehouseID,
		DestWarehouseID: &dest,
		IssueDate:       e.issueDate(req.IssueDate),
		Status:          StatusPending,
		Subtotal:        decimal.Zero,
		Tax:             decimal.Zero,
		Total:           decimal.Zero,
		Lines:           lines,
	}
	if err := e.insertNumbered(ctx, &doc); err != nil {
		return Document{}, err
	}
	e.recordAudit(ctx, req.TenantID, req.ActorID, "document.create", doc.ID, map[string]any{"kind": string(doc.Kind)})
	return doc, nil
}

// Apply executes the stock effects of a pending adjustment or transfer.
// Adjustment lines move single-sided per their direction; transfer lines
// pair an outbound from the source with an inbound to the destination at
// the cost recorded on the outbound movement, so value moves with the
// goods.
func (e *Engine) Apply(ctx context.Context, tenantID, docID, actorID int64) (Document, error) {
	var (
		doc   Document
		moved int
	)
	err := e.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		d, err := tx.GetForUpdate(ctx, tenantID, docID)
		if err != nil {
			return err
		}
		if d.Status != StatusPending {
			return ErrNotPending
		}
		lines, err := tx.GetLines(ctx, d.ID)
		if err != nil {
			return err
		}
		for _, line := range lines {
			switch d.Kind {
			case KindAdjustment:
				if _, err := e.stock.Apply(ctx, tx.Stock(), stock.MovementInput{
					TenantID: tenantID, ProductID: line.ProductID, WarehouseID: d.WarehouseID,
					Direction: line.Direction, Qty: line.Qty, UnitCost: line.UnitCost, Origin: d.Origin(),
				}); err != nil {
					return err
				}
				moved++
			case KindTransfer:
				out, err := e.stock.Apply(ctx, tx.Stock(), stock.MovementInput{
					TenantID: tenantID, ProductID: line.ProductID, WarehouseID: d.WarehouseID,
					Direction: stock.DirectionOut, Qty: line.Qty, Origin: d.Origin(),
				})
				if err != nil {
					return err
				}
				if _, err := e.stock.Apply(ctx, tx.Stock(), stock.MovementInput{
					TenantID: tenantID, ProductID: line.ProductID, WarehouseID: *d.DestWarehouseID,
					Direction: stock.DirectionIn, Qty: line.Qty, UnitCost: out.UnitCost, Origin: d.Origin(),
				}); err != nil {
					return err
				}
				moved += 2
			default:
				return ErrNotPending
			}
		}
		if err := tx.SetStatus(ctx, tenantID, d.ID, StatusApplied); err != nil {
			return err
		}
		d.Status = StatusApplied
		d.Lines = lines
		doc = d
		return nil
	})
	if err != nil {
		return Document{}, err
	}
	if e.metrics != nil {
		e.metrics.MovementsPosted.Add(float64(moved))
	}
	e.recordAudit(ctx, tenantID, actorID, "document.apply", doc.ID, map[string]any{"movements": moved})
	return doc, nil
}

// RecordAuthorityResult stores the external authority's verdict on an
// emitted document. The verdict is data: no side effects follow from it.
func (e *Engine) RecordAuthorityResult(ctx context.Context, docID int64, req AuthorityResultRequest) (Document, error) {
	status := StatusRejected
	if req.Accepted {
		status = StatusAccepted
	}
	var doc Document
	err := e.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		d, err := tx.GetForUpdate(ctx, req.TenantID, docID)
		if err != nil {
			return err
		}
		if d.Status != StatusEmitted {
			return ErrNotEmitted
		}
		if err := tx.SetAuthorityResult(ctx, req.TenantID, d.ID, status, req.Detail); err != nil {
			return err
		}
		d.Status = status
		d.AuthorityDetail = req.Detail
		doc = d
		return nil
	})
	if err != nil {
		return Document{}, err
	}
	e.recordAudit(ctx, req.TenantID, req.ActorID, "document.authority", doc.ID, map[string]any{
		"accepted": req.Accepted, "detail": req.Detail,
	})
	return doc, nil
}

// Get fetches one document with lines.
func (e *Engine) Get(ctx context.Context, tenantID, id int64) (Document, error) {
	return e.repo.Get(ctx, tenantID, id)
}

// List returns documents matching the filter.
func (e *Engine) List(ctx context.Context, filter ListFilter) ([]Document, error) {
	return e.repo.List(ctx, filter)
}

func (e *Engine) buildCommercial(ctx context.Context, req CreateRequest) (Document, error) {
	if len(req.Lines) == 0 {
		return Document{}, ErrNoLines
	}
	p, err := e.parties.Get(ctx, req.TenantID, req.PartyID)
	if err != nil {
		return Document{}, err
	}
	rate, err := e.rates.TenantTaxRate(ctx, req.TenantID)
	if err != nil {
		return Document{}, err
	}

	inputs := make([]totals.LineInput, 0, len(req.Lines))
	for _, lr := range req.Lines {
		inputs = append(inputs, totals.LineInput{
			Qty:       decimal.NewFromFloat(lr.Qty),
			UnitPrice: lr.UnitPrice,
			Discount:  lr.Discount,
			Treatment: lr.Treatment,
		})
	}
	docTotals, lineTotals := totals.ComputeDocument(inputs, rate, req.Export)

	lines := make([]Line, 0, len(req.Lines))
	for i, lr := range req.Lines {
		lines = append(lines, Line{
			ProductID: lr.ProductID,
			Qty:       lr.Qty,
			UnitPrice: lr.UnitPrice,
			Discount:  lr.Discount,
			Treatment: lr.Treatment,
			UnitCost:  lr.UnitCost,
			Subtotal:  lineTotals[i].Subtotal,
			Tax:       lineTotals[i].Tax,
			Total:     lineTotals[i].Total,
		})
	}

	currency := req.Currency
	if currency == "" {
		currency = "PEN"
	}
	return Document{
		TenantID:    req.TenantID,
		Kind:        req.Kind,
		SeriesID:    req.SeriesID,
		PartyID:     req.PartyID,
		Party:       p.Snapshot(),
		WarehouseID: req.WarehouseID,
		RefDocID:    req.RefDocID,
		IssueDate:   e.issueDate(req.IssueDate),
		Currency:    currency,
		Export:      req.Export,
		Status:      StatusDraft,
		Subtotal:    docTotals.Subtotal,
		Tax:         docTotals.Tax,
		Total:       docTotals.Total,
		Lines:       lines,
	}, nil
}

func (e *Engine) insertDocument(ctx context.Context, tx TxRepository, doc *Document) error {
	id, err := tx.InsertDocument(ctx, *doc)
	if err != nil {
		return err
	}
	doc.ID = id
	for i := range doc.Lines {
		doc.Lines[i].DocumentID = id
	}
	return tx.InsertLines(ctx, id, doc.Lines)
}

// insertNumbered inserts a pending document with its number minted in the
// same transaction.
func (e *Engine) insertNumbered(ctx context.Context, doc *Document) error {
	return e.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		issued, err := tx.Sequencer().NextSeriesNumber(ctx, doc.TenantID, doc.SeriesID)
		if err != nil {
			return err
		}
		doc.Number = numbering.Format(issued.Prefix, issued.Value)
		return e.insertDocument(ctx, tx, doc)
	})
}

// emitTx runs the emission side effects against one transaction. Order
// matters only for the stock-before-number property; everything rolls back
// together regardless.
func (e *Engine) emitTx(ctx context.Context, tx TxRepository, d *Document, acc *PostingAccounts, actorID int64) error {
	if dir, ok := stockDirection(d.Kind); ok {
		for _, line := range d.Lines {
			if _, err := e.stock.Apply(ctx, tx.Stock(), stock.MovementInput{
				TenantID:    d.TenantID,
				ProductID:   line.ProductID,
				WarehouseID: d.WarehouseID,
				Direction:   dir,
				Qty:         line.Qty,
				UnitCost:    line.UnitCost,
				Origin:      d.Origin(),
			}); err != nil {
				return err
			}
		}
	}

	issued, err := tx.Sequencer().NextSeriesNumber(ctx, d.TenantID, d.SeriesID)
	if err != nil {
		return err
	}
	d.Number = numbering.Format(issued.Prefix, issued.Value)

	if postsEntry(d.Kind) {
		if acc == nil {
			return ErrPostingNotConfigured
		}
		if _, err := e.poster.Post(ctx, tx.Ledger(), tx.Sequencer(), buildPosting(*d, *acc, actorID)); err != nil {
			return err
		}
	}

	if err := tx.SetEmitted(ctx, d.TenantID, d.ID, d.Number); err != nil {
		return err
	}
	d.Status = StatusEmitted
	return nil
}

// postingAccountsIfNeeded resolves the tenant's account mapping up front.
// A missing mapping is not an error yet: only kinds that post an entry
// require it, and emitTx enforces that.
func (e *Engine) postingAccountsIfNeeded(ctx context.Context, tenantID int64) (*PostingAccounts, error) {
	acc, err := e.accounts.PostingAccounts(ctx, tenantID)
	if err != nil {
		if errors.Is(err, ErrPostingNotConfigured) {
			return nil, nil
		}
		return nil, err
	}
	return &acc, nil
}

func (e *Engine) afterEmit(ctx context.Context, doc Document, actorID int64) {
	if e.metrics != nil {
		e.metrics.DocumentsEmitted.WithLabelValues(string(doc.Kind)).Inc()
		if _, ok := stockDirection(doc.Kind); ok {
			e.metrics.MovementsPosted.Add(float64(len(doc.Lines)))
		}
		if postsEntry(doc.Kind) {
			e.metrics.EntriesPosted.Inc()
		}
	}
	e.recordAudit(ctx, doc.TenantID, actorID, "document.emit", doc.ID, map[string]any{
		"kind": string(doc.Kind), "number": doc.Number,
	})
}

func (e *Engine) recordAudit(ctx context.Context, tenantID, actorID int64, action string, docID int64, meta map[string]any) {
	if e.audit == nil {
		return
	}
	err := e.audit.Record(ctx, shared.AuditLog{
		TenantID: tenantID,
		ActorID:  actorID,
		Action:   action,
		Entity:   "document",
		EntityID: strconv.FormatInt(docID, 10),
		Meta:     meta,
		At:       e.now().UTC(),
	})
	if err != nil {
		e.logger.WarnContext(ctx, "audit record failed", "action", action, "document_id", docID, "error", err)
	}
}

func (e *Engine) issueDate(ts time.Time) time.Time {
	if ts.IsZero() {
		return e.now().UTC()
	}
	return ts
}

func stockLine(lr StockLineRequest) Line {
	return Line{
		ProductID: lr.ProductID,
		Qty:       lr.Qty,
		UnitCost:  lr.UnitCost,
		Treatment: totals.TreatmentUnaffected,
		Direction: lr.Direction,
		Subtotal:  decimal.Zero,
		Tax:       decimal.Zero,
		Total:     decimal.Zero,
	}
}
