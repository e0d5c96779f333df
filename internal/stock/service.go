package stock

import (
	"context"
	"errors"
	"fmt"

	"github.com/factora-erp/factora/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxLedger) error) error
	CurrentStock(ctx context.Context, tenantID, warehouseID, productID int64) (float64, error)
	ListMovements(ctx context.Context, tenantID int64, filter MovementFilter) ([]Movement, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service exposes the stock ledger contract to callers outside the document
// lifecycle engine (manual movements, history queries). The engine itself
// uses Ledger against its own transaction.
type Service struct {
	repo  RepositoryPort
	rules *Ledger
	audit AuditPort
}

// NewService builds Service.
func NewService(repo RepositoryPort, rules *Ledger, audit AuditPort) *Service {
	return &Service{repo: repo, rules: rules, audit: audit}
}

// ApplyMovement appends one movement in its own transaction.
func (s *Service) ApplyMovement(ctx context.Context, in MovementInput, actorID int64) (Movement, error) {
	var movement Movement
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxLedger) error {
		var err error
		movement, err = s.rules.Apply(ctx, tx, in)
		return err
	})
	if err != nil {
		return Movement{}, err
	}
	s.record(ctx, in.TenantID, actorID, fmt.Sprintf("stock:%s", in.Direction), movement)
	return movement, nil
}

// ReverseMovementsForOrigin reverses every movement of the origin in one
// transaction. Safe to call repeatedly.
func (s *Service) ReverseMovementsForOrigin(ctx context.Context, tenantID int64, origin OriginRef, actorID int64) (int, error) {
	var reversed int
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxLedger) error {
		var err error
		reversed, err = s.rules.ReverseOrigin(ctx, tx, tenantID, origin)
		return err
	})
	if err != nil {
		return 0, err
	}
	if reversed > 0 && s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			TenantID: tenantID,
			ActorID:  actorID,
			Action:   "stock:reverse",
			Entity:   "stock_movement",
			EntityID: origin.String(),
			Meta:     map[string]any{"count": reversed},
		})
	}
	return reversed, nil
}

// CurrentStock returns the projected quantity, possibly stale by the time a
// later write transaction starts.
func (s *Service) CurrentStock(ctx context.Context, tenantID, warehouseID, productID int64) (float64, error) {
	if tenantID == 0 {
		return 0, shared.ErrTenantRequired
	}
	return s.repo.CurrentStock(ctx, tenantID, warehouseID, productID)
}

// Movements lists the movement history for one (warehouse, product) pair.
func (s *Service) Movements(ctx context.Context, tenantID int64, filter MovementFilter) ([]Movement, error) {
	if filter.WarehouseID == 0 || filter.ProductID == 0 {
		return nil, errors.New("stock: warehouse and product required")
	}
	return s.repo.ListMovements(ctx, tenantID, filter)
}

func (s *Service) record(ctx context.Context, tenantID, actorID int64, action string, m Movement) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		TenantID: tenantID,
		ActorID:  actorID,
		Action:   action,
		Entity:   "stock_movement",
		EntityID: fmt.Sprintf("%d", m.ID),
		Meta: map[string]any{
			"warehouse_id": m.WarehouseID,
			"product_id":   m.ProductID,
			"qty":          m.Qty,
			"origin":       m.Origin.String(),
		},
	})
}
