package party

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists counterparties.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const partyColumns = `id, tenant_id, kind, name, tax_id, address, email, active, created_at, updated_at`

func scanParty(row pgx.Row) (Party, error) {
	var p Party
	err := row.Scan(&p.ID, &p.TenantID, &p.Kind, &p.Name, &p.TaxID, &p.Address, &p.Email, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Party{}, ErrPartyNotFound
		}
		return Party{}, err
	}
	return p, nil
}

// Create inserts a counterparty and returns it with its id.
func (r *Repository) Create(ctx context.Context, p Party) (Party, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO parties (tenant_id, kind, name, tax_id, address, email, active)
VALUES ($1,$2,$3,$4,$5,$6,true) RETURNING `+partyColumns,
		p.TenantID, string(p.Kind), p.Name, p.TaxID, p.Address, p.Email)
	return scanParty(row)
}

// Get fetches one counterparty.
func (r *Repository) Get(ctx context.Context, tenantID, id int64) (Party, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+partyColumns+` FROM parties WHERE id=$1 AND tenant_id=$2`, id, tenantID)
	return scanParty(row)
}

// List returns the tenant's counterparties ordered by name.
func (r *Repository) List(ctx context.Context, tenantID int64) ([]Party, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+partyColumns+` FROM parties WHERE tenant_id=$1 ORDER BY name ASC`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var parties []Party
	for rows.Next() {
		p, err := scanParty(rows)
		if err != nil {
			return nil, err
		}
		parties = append(parties, p)
	}
	return parties, rows.Err()
}
