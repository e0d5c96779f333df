package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/factora-erp/factora/internal/numbering"
	"github.com/factora-erp/factora/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx TxStore, seq numbering.TxSequencer) error) error
	List(ctx context.Context, tenantID int64, limit int) ([]Entry, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service exposes the manual posting path. Automatic entries produced by
// document transitions run the same Poster rules inside the engine's
// transaction; both paths share the PostingInput contract.
type Service struct {
	repo   RepositoryPort
	poster *Poster
	audit  AuditPort
}

// NewService builds Service.
func NewService(repo RepositoryPort, poster *Poster, audit AuditPort) *Service {
	return &Service{repo: repo, poster: poster, audit: audit}
}

// PostEntry posts a manual journal entry in its own transaction.
func (s *Service) PostEntry(ctx context.Context, in PostingInput) (Entry, error) {
	var entry Entry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxStore, seq numbering.TxSequencer) error {
		var err error
		entry, err = s.poster.Post(ctx, tx, seq, in)
		return err
	})
	if err != nil {
		return Entry{}, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			TenantID: in.TenantID,
			ActorID:  in.PostedBy,
			Action:   "ledger.post",
			Entity:   "journal_entry",
			EntityID: fmt.Sprintf("%d", entry.ID),
			Meta: map[string]any{
				"journal_id": in.JournalID,
				"number":     entry.Number,
				"source":     in.SourceModule,
			},
		})
	}
	return entry, nil
}

// VoidEntry marks an entry void in its own transaction. No-op when the
// entry is already void.
func (s *Service) VoidEntry(ctx context.Context, in VoidInput) (Entry, error) {
	if in.EntryID == 0 {
		return Entry{}, errors.New("ledger: entry id required")
	}
	var entry Entry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxStore, _ numbering.TxSequencer) error {
		var err error
		entry, err = s.poster.Void(ctx, tx, in.TenantID, in.EntryID)
		return err
	})
	if err != nil {
		return Entry{}, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			TenantID: in.TenantID,
			ActorID:  in.ActorID,
			Action:   "ledger.void",
			Entity:   "journal_entry",
			EntityID: fmt.Sprintf("%d", entry.ID),
			Meta:     map[string]any{"reason": in.Reason},
		})
	}
	return entry, nil
}

// List returns recent entries for display.
func (s *Service) List(ctx context.Context, tenantID int64, limit int) ([]Entry, error) {
	if tenantID == 0 {
		return nil, shared.ErrTenantRequired
	}
	return s.repo.List(ctx, tenantID, limit)
}
