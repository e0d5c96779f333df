package numbering

import (
	"errors"
	"fmt"
	"time"

	"github.com/factora-erp/factora/internal/shared"
)

// Series identifies one numbering stream: a per-tenant, per-document-kind
// counter with a legally significant prefix. The counter only increases and
// a value is never reused once issued, even after the owning document is
// voided.
type Series struct {
	ID        int64
	TenantID  int64
	DocKind   string
	Prefix    string
	Counter   int64
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Journal is the numbering stream for accounting entries. Journals are
// always active; deactivation applies to document series only.
type Journal struct {
	ID        int64
	TenantID  int64
	Code      string
	Counter   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Issued carries the freshly minted counter value together with the series
// prefix so the caller can format the document number after the increment
// is part of the committing transaction.
type Issued struct {
	Value  int64
	Prefix string
}

var (
	// ErrSeriesNotFound indicates the series does not exist for the tenant.
	ErrSeriesNotFound = fmt.Errorf("numbering: series %w", shared.ErrNotFound)
	// ErrJournalNotFound indicates the journal does not exist for the tenant.
	ErrJournalNotFound = fmt.Errorf("numbering: journal %w", shared.ErrNotFound)
	// ErrSeriesInactive indicates the series is deactivated. Voiding
	// documents issued from an inactive series stays allowed because the
	// void path never mints a number; minting always fails.
	ErrSeriesInactive = errors.New("numbering: series inactive")
)
