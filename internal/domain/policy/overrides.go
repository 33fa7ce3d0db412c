package policy

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// OverrideDelta is the operator-supplied partial override. Nil fields fall
// through to the base policy.
type OverrideDelta struct {
	RetentionDays   *int `json:"retentionDays,omitempty"`
	GracePeriodDays *int `json:"gracePeriodDays,omitempty"`
}

// OverrideStore holds per-tenant policy overrides. SetOverride replaces any
// prior override for the (tenant, policy) pair wholesale; it never persists
// an override that would violate the base policy's regulatory bounds.
type OverrideStore interface {
	SetOverride(ctx context.Context, tenantID, policyID string, delta OverrideDelta) (RetentionPolicy, error)
	Effective(ctx context.Context, tenantID, policyID string) (RetentionPolicy, error)
	ListOverrides(ctx context.Context, tenantID string) ([]TenantOverride, error)
}

func validateOverride(base RetentionPolicy, delta OverrideDelta) (TenantOverride, error) {
	if !base.TenantOverridable {
		return TenantOverride{}, ErrOverrideNotAllowed
	}
	days := base.RetentionDays
	if delta.RetentionDays != nil {
		days = *delta.RetentionDays
	}
	if days < base.MinRetentionDays || days > base.MaxRetentionDays {
		return TenantOverride{}, &BoundsError{
			PolicyID:      base.ID,
			RetentionDays: days,
			Min:           base.MinRetentionDays,
			Max:           base.MaxRetentionDays,
		}
	}
	if delta.GracePeriodDays != nil && *delta.GracePeriodDays < 0 {
		return TenantOverride{}, fmt.Errorf("grace period must not be negative")
	}
	return TenantOverride{
		PolicyID:        base.ID,
		RetentionDays:   delta.RetentionDays,
		GracePeriodDays: delta.GracePeriodDays,
		UpdatedAt:       time.Now().UTC(),
	}, nil
}

// MemoryOverrideStore keeps overrides in process memory. It backs tests and
// single-node deployments that run without override persistence.
type MemoryOverrideStore struct {
	registry *Registry
	mu       sync.RWMutex
	entries  map[string]TenantOverride
}

func NewMemoryOverrideStore(registry *Registry) *MemoryOverrideStore {
	return &MemoryOverrideStore{
		registry: registry,
		entries:  make(map[string]TenantOverride),
	}
}

func overrideKey(tenantID, policyID string) string {
	return tenantID + "/" + policyID
}

func (s *MemoryOverrideStore) SetOverride(ctx context.Context, tenantID, policyID string, delta OverrideDelta) (RetentionPolicy, error) {
	base, err := s.registry.PolicyByID(policyID)
	if err != nil {
		return RetentionPolicy{}, err
	}
	override, err := validateOverride(base, delta)
	if err != nil {
		return RetentionPolicy{}, err
	}
	override.TenantID = tenantID

	s.mu.Lock()
	s.entries[overrideKey(tenantID, policyID)] = override
	s.mu.Unlock()
	return override.Apply(base), nil
}

func (s *MemoryOverrideStore) Effective(ctx context.Context, tenantID, policyID string) (RetentionPolicy, error) {
	base, err := s.registry.PolicyByID(policyID)
	if err != nil {
		return RetentionPolicy{}, err
	}
	if tenantID == "" {
		return base, nil
	}
	s.mu.RLock()
	override, ok := s.entries[overrideKey(tenantID, policyID)]
	s.mu.RUnlock()
	if !ok {
		return base, nil
	}
	return override.Apply(base), nil
}

func (s *MemoryOverrideStore) ListOverrides(ctx context.Context, tenantID string) ([]TenantOverride, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []TenantOverride
	for _, o := range s.entries {
		if o.TenantID == tenantID {
			out = append(out, o)
		}
	}
	return out, nil
}
