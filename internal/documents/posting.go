package documents

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/factora-erp/factora/internal/ledger"
	"github.com/factora-erp/factora/internal/shared"
)

// PostingAccounts holds the tenant's account mapping for automatic
// bookkeeping on commercial documents.
type PostingAccounts struct {
	SalesJournalID      int64
	ReceivableAccountID int64
	RevenueAccountID    int64
	TaxAccountID        int64
}

// AccountResolver supplies the tenant's posting configuration.
type AccountResolver interface {
	PostingAccounts(ctx context.Context, tenantID int64) (PostingAccounts, error)
}

// ErrPostingNotConfigured indicates the tenant has no account mapping.
var ErrPostingNotConfigured = fmt.Errorf("documents: posting accounts %w", shared.ErrNotFound)

// PGAccountResolver reads posting configuration from tenant_settings.
type PGAccountResolver struct {
	pool *pgxpool.Pool
}

// NewPGAccountResolver constructs PGAccountResolver.
func NewPGAccountResolver(pool *pgxpool.Pool) *PGAccountResolver {
	return &PGAccountResolver{pool: pool}
}

// PostingAccounts fetches the tenant's mapping. The columns are nullable: a
// tenant with settings but no account mapping is unconfigured, not broken.
func (r *PGAccountResolver) PostingAccounts(ctx context.Context, tenantID int64) (PostingAccounts, error) {
	var acc PostingAccounts
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(sales_journal_id, 0), COALESCE(receivable_account_id, 0), COALESCE(revenue_account_id, 0), COALESCE(tax_account_id, 0)
FROM tenant_settings WHERE tenant_id=$1`, tenantID).
		Scan(&acc.SalesJournalID, &acc.ReceivableAccountID, &acc.RevenueAccountID, &acc.TaxAccountID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PostingAccounts{}, ErrPostingNotConfigured
		}
		return PostingAccounts{}, err
	}
	if acc.SalesJournalID == 0 || acc.ReceivableAccountID == 0 || acc.RevenueAccountID == 0 || acc.TaxAccountID == 0 {
		return PostingAccounts{}, ErrPostingNotConfigured
	}
	return acc, nil
}

// buildPosting maps an emitted document onto a balanced journal entry.
// Sales invoices and debit notes debit receivables against revenue and tax
// payable; credit notes post the mirror image. Both sides balance by
// construction because total = subtotal + tax at 2 decimals.
func buildPosting(d Document, acc PostingAccounts, actorID int64) ledger.PostingInput {
	subtotal := d.Subtotal.InexactFloat64()
	tax := d.Tax.InexactFloat64()
	total := d.Total.InexactFloat64()

	var lines []ledger.PostingLineInput
	switch d.Kind {
	case KindCreditNote:
		lines = append(lines, ledger.PostingLineInput{AccountID: acc.RevenueAccountID, Debit: subtotal})
		if tax > 0 {
			lines = append(lines, ledger.PostingLineInput{AccountID: acc.TaxAccountID, Debit: tax})
		}
		lines = append(lines, ledger.PostingLineInput{AccountID: acc.ReceivableAccountID, Credit: total})
	default:
		lines = append(lines, ledger.PostingLineInput{AccountID: acc.ReceivableAccountID, Debit: total})
		lines = append(lines, ledger.PostingLineInput{AccountID: acc.RevenueAccountID, Credit: subtotal})
		if tax > 0 {
			lines = append(lines, ledger.PostingLineInput{AccountID: acc.TaxAccountID, Credit: tax})
		}
	}

	return ledger.PostingInput{
		TenantID:     d.TenantID,
		JournalID:    acc.SalesJournalID,
		Date:         d.IssueDate,
		Memo:         fmt.Sprintf("%s %s", d.Kind, d.Number),
		SourceModule: string(d.Kind),
		SourceID:     d.ID,
		PostedBy:     actorID,
		Lines:        lines,
	}
}
