package accounts

import "context"

// RepositoryPort abstracts storage for the service.
type RepositoryPort interface {
	Create(ctx context.Context, a Account) (int64, error)
	Get(ctx context.Context, tenantID, id int64) (Account, error)
	List(ctx context.Context, tenantID int64) ([]Account, error)
}

// Service manages the chart of accounts.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// Create validates the tree invariants and inserts the node. A subaccount
// must reference an existing parent of the same tenant.
func (s *Service) Create(ctx context.Context, a Account) (Account, error) {
	if err := a.Validate(); err != nil {
		return Account{}, err
	}
	if a.ParentID != nil {
		if _, err := s.repo.Get(ctx, a.TenantID, *a.ParentID); err != nil {
			return Account{}, err
		}
	}
	id, err := s.repo.Create(ctx, a)
	if err != nil {
		return Account{}, err
	}
	a.ID = id
	return a, nil
}

// Get fetches one node.
func (s *Service) Get(ctx context.Context, tenantID, id int64) (Account, error) {
	return s.repo.Get(ctx, tenantID, id)
}

// List returns the tenant's chart.
func (s *Service) List(ctx context.Context, tenantID int64) ([]Account, error) {
	return s.repo.List(ctx, tenantID)
}
