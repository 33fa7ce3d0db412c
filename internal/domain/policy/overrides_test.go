package policy

import (
	"context"
	"errors"
	"testing"
)

func overridesFixture(t *testing.T) (*MemoryOverrideStore, RetentionPolicy) {
	t.Helper()
	base := validPolicy()
	locked := validPolicy()
	locked.ID = "pol-locked"
	locked.Category = CategoryPaymentRecords
	locked.TenantOverridable = false
	registry, err := NewRegistry([]RetentionPolicy{base, locked}, nil)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	return NewMemoryOverrideStore(registry), base
}

func TestSetOverrideWithinBounds(t *testing.T) {
	store, base := overridesFixture(t)
	days := 45
	effective, err := store.SetOverride(context.Background(), "t1", base.ID, OverrideDelta{RetentionDays: &days})
	if err != nil {
		t.Fatalf("set override: %v", err)
	}
	if effective.RetentionDays != 45 {
		t.Fatalf("effective retention = %d, want 45", effective.RetentionDays)
	}

	resolved, err := store.Effective(context.Background(), "t1", base.ID)
	if err != nil {
		t.Fatalf("effective: %v", err)
	}
	if resolved.RetentionDays != 45 {
		t.Fatalf("resolved retention = %d, want 45", resolved.RetentionDays)
	}

	other, err := store.Effective(context.Background(), "t2", base.ID)
	if err != nil {
		t.Fatalf("effective: %v", err)
	}
	if other.RetentionDays != base.RetentionDays {
		t.Fatal("override must not leak across tenants")
	}
}

func TestRejectedOverrideLeavesEffectiveUnchanged(t *testing.T) {
	store, base := overridesFixture(t)
	days := 10
	_, err := store.SetOverride(context.Background(), "t1", base.ID, OverrideDelta{RetentionDays: &days})
	var bounds *BoundsError
	if !errors.As(err, &bounds) {
		t.Fatalf("expected BoundsError, got %v", err)
	}

	resolved, err := store.Effective(context.Background(), "t1", base.ID)
	if err != nil {
		t.Fatalf("effective: %v", err)
	}
	if resolved.RetentionDays != base.RetentionDays {
		t.Fatalf("rejected override must leave base in force, got %d", resolved.RetentionDays)
	}
}

func TestOverrideNotAllowed(t *testing.T) {
	store, _ := overridesFixture(t)
	days := 200
	_, err := store.SetOverride(context.Background(), "t1", "pol-locked", OverrideDelta{RetentionDays: &days})
	if !errors.Is(err, ErrOverrideNotAllowed) {
		t.Fatalf("expected ErrOverrideNotAllowed, got %v", err)
	}
}

func TestOverrideUnknownPolicy(t *testing.T) {
	store, _ := overridesFixture(t)
	days := 60
	_, err := store.SetOverride(context.Background(), "t1", "missing", OverrideDelta{RetentionDays: &days})
	if !errors.Is(err, ErrPolicyNotFound) {
		t.Fatalf("expected ErrPolicyNotFound, got %v", err)
	}
}

func TestNegativeGraceRejected(t *testing.T) {
	store, base := overridesFixture(t)
	grace := -1
	if _, err := store.SetOverride(context.Background(), "t1", base.ID, OverrideDelta{GracePeriodDays: &grace}); err == nil {
		t.Fatal("negative grace period must be rejected")
	}
}

func TestListOverrides(t *testing.T) {
	store, base := overridesFixture(t)
	days := 45
	if _, err := store.SetOverride(context.Background(), "t1", base.ID, OverrideDelta{RetentionDays: &days}); err != nil {
		t.Fatalf("set override: %v", err)
	}
	overrides, err := store.ListOverrides(context.Background(), "t1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(overrides) != 1 || overrides[0].PolicyID != base.ID {
		t.Fatalf("unexpected overrides: %+v", overrides)
	}
	if none, _ := store.ListOverrides(context.Background(), "t2"); len(none) != 0 {
		t.Fatal("expected no overrides for other tenants")
	}
}
