package policy

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgOverrideStore persists tenant overrides to Postgres. Last write wins per
// (tenant, policy) pair via upsert.
type PgOverrideStore struct {
	DB       *pgxpool.Pool
	registry *Registry
}

func NewPgOverrideStore(db *pgxpool.Pool, registry *Registry) *PgOverrideStore {
	return &PgOverrideStore{DB: db, registry: registry}
}

func (s *PgOverrideStore) SetOverride(ctx context.Context, tenantID, policyID string, delta OverrideDelta) (RetentionPolicy, error) {
	base, err := s.registry.PolicyByID(policyID)
	if err != nil {
		return RetentionPolicy{}, err
	}
	override, err := validateOverride(base, delta)
	if err != nil {
		return RetentionPolicy{}, err
	}
	override.TenantID = tenantID

	_, err = s.DB.Exec(ctx, `
    INSERT INTO tenant_overrides (tenant_id, policy_id, retention_days, grace_period_days, updated_at)
    VALUES ($1, $2, $3, $4, now())
    ON CONFLICT (tenant_id, policy_id) DO UPDATE
    SET retention_days = EXCLUDED.retention_days,
        grace_period_days = EXCLUDED.grace_period_days,
        updated_at = now()
  `, tenantID, policyID, override.RetentionDays, override.GracePeriodDays)
	if err != nil {
		return RetentionPolicy{}, err
	}
	return override.Apply(base), nil
}

func (s *PgOverrideStore) Effective(ctx context.Context, tenantID, policyID string) (RetentionPolicy, error) {
	base, err := s.registry.PolicyByID(policyID)
	if err != nil {
		return RetentionPolicy{}, err
	}
	if tenantID == "" {
		return base, nil
	}
	var override TenantOverride
	err = s.DB.QueryRow(ctx, `
    SELECT retention_days, grace_period_days, updated_at
    FROM tenant_overrides
    WHERE tenant_id = $1 AND policy_id = $2
  `, tenantID, policyID).Scan(&override.RetentionDays, &override.GracePeriodDays, &override.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return base, nil
	}
	if err != nil {
		return RetentionPolicy{}, err
	}
	return override.Apply(base), nil
}

func (s *PgOverrideStore) ListOverrides(ctx context.Context, tenantID string) ([]TenantOverride, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT policy_id, retention_days, grace_period_days, updated_at
    FROM tenant_overrides
    WHERE tenant_id = $1
    ORDER BY policy_id
  `, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TenantOverride
	for rows.Next() {
		o := TenantOverride{TenantID: tenantID}
		if err := rows.Scan(&o.PolicyID, &o.RetentionDays, &o.GracePeriodDays, &o.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
