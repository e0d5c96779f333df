package numbering

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Admin manages series and journal configuration. Counters start at the
// given value and from then on are mutated only by the sequencer.
type Admin struct {
	pool *pgxpool.Pool
}

// NewAdmin builds Admin.
func NewAdmin(pool *pgxpool.Pool) *Admin {
	return &Admin{pool: pool}
}

// CreateSeries registers a numbering stream for a document kind.
func (a *Admin) CreateSeries(ctx context.Context, s Series) (Series, error) {
	if s.TenantID == 0 || s.DocKind == "" || s.Prefix == "" {
		return Series{}, errors.New("numbering: tenant, doc kind and prefix required")
	}
	if s.Counter < 0 {
		return Series{}, errors.New("numbering: counter must be >= 0")
	}
	err := a.pool.QueryRow(ctx, `INSERT INTO document_series (tenant_id, doc_kind, prefix, counter, active)
VALUES ($1,$2,$3,$4,true) RETURNING id, created_at, updated_at`,
		s.TenantID, s.DocKind, s.Prefix, s.Counter).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return Series{}, err
	}
	s.Active = true
	return s, nil
}

// CreateJournal registers a journal numbering stream.
func (a *Admin) CreateJournal(ctx context.Context, j Journal) (Journal, error) {
	if j.TenantID == 0 || j.Code == "" {
		return Journal{}, errors.New("numbering: tenant and code required")
	}
	err := a.pool.QueryRow(ctx, `INSERT INTO journals (tenant_id, code, counter)
VALUES ($1,$2,0) RETURNING id, created_at, updated_at`,
		j.TenantID, j.Code).Scan(&j.ID, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return Journal{}, err
	}
	return j, nil
}

// SetSeriesActive flips the active flag. Deactivating blocks new mints but
// never blocks voids of documents already numbered from the series.
func (a *Admin) SetSeriesActive(ctx context.Context, tenantID, seriesID int64, active bool) error {
	cmd, err := a.pool.Exec(ctx, `UPDATE document_series SET active=$3, updated_at=NOW() WHERE id=$1 AND tenant_id=$2`,
		seriesID, tenantID, active)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrSeriesNotFound
	}
	return nil
}
