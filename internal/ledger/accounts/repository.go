package accounts

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists chart-of-accounts nodes.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a node and returns its id.
func (r *Repository) Create(ctx context.Context, a Account) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO plan_accounts (tenant_id, code, name, type, parent_id, is_subaccount)
VALUES ($1,$2,$3,$4,$5,$6) RETURNING id`, a.TenantID, a.Code, a.Name, string(a.Type), a.ParentID, a.IsSubaccount).Scan(&id)
	return id, err
}

// Get fetches one node.
func (r *Repository) Get(ctx context.Context, tenantID, id int64) (Account, error) {
	var a Account
	err := r.pool.QueryRow(ctx, `SELECT id, tenant_id, code, name, type, parent_id, is_subaccount, created_at, updated_at
FROM plan_accounts WHERE id=$1 AND tenant_id=$2`, id, tenantID).
		Scan(&a.ID, &a.TenantID, &a.Code, &a.Name, &a.Type, &a.ParentID, &a.IsSubaccount, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, err
	}
	return a, nil
}

// List returns the tenant's chart ordered by code.
func (r *Repository) List(ctx context.Context, tenantID int64) ([]Account, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, tenant_id, code, name, type, parent_id, is_subaccount, created_at, updated_at
FROM plan_accounts WHERE tenant_id=$1 ORDER BY code ASC`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var accounts []Account
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.ID, &a.TenantID, &a.Code, &a.Name, &a.Type, &a.ParentID, &a.IsSubaccount, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}
