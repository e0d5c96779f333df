package party

import (
	"context"
	"errors"
)

// RepositoryPort abstracts storage for the service.
type RepositoryPort interface {
	Create(ctx context.Context, p Party) (Party, error)
	Get(ctx context.Context, tenantID, id int64) (Party, error)
	List(ctx context.Context, tenantID int64) ([]Party, error)
}

// Service manages counterparty master data.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// Create validates and inserts a counterparty.
func (s *Service) Create(ctx context.Context, p Party) (Party, error) {
	if p.TenantID == 0 {
		return Party{}, errors.New("party: tenant required")
	}
	if p.Kind != KindCustomer && p.Kind != KindSupplier {
		return Party{}, errors.New("party: kind must be CUSTOMER or SUPPLIER")
	}
	if p.Name == "" || p.TaxID == "" {
		return Party{}, errors.New("party: name and tax id required")
	}
	return s.repo.Create(ctx, p)
}

// Get fetches one counterparty.
func (s *Service) Get(ctx context.Context, tenantID, id int64) (Party, error) {
	return s.repo.Get(ctx, tenantID, id)
}

// List returns the tenant's counterparties.
func (s *Service) List(ctx context.Context, tenantID int64) ([]Party, error) {
	return s.repo.List(ctx, tenantID)
}
