package erasure

import (
	"context"
	"testing"
	"time"

	"retentiond/internal/domain/policy"
	"retentiond/internal/domain/purge"
)

func erasureFixture(t *testing.T) (*Service, *purge.MemStore) {
	t.Helper()
	policies := []policy.RetentionPolicy{
		{
			ID: "pol-learner-identity", Category: policy.CategoryLearnerIdentity,
			RetentionDays: 1095, Strategy: policy.StrategyAnonymize, BatchSize: 100,
			MinRetentionDays: 365, MaxRetentionDays: 2555,
		},
		{
			ID: "pol-sessions", Category: policy.CategorySessionLogs,
			RetentionDays: 90, Strategy: policy.StrategyHardDelete, BatchSize: 100,
			MinRetentionDays: 30, MaxRetentionDays: 365,
		},
		{
			ID: "pol-payments", Category: policy.CategoryPaymentRecords,
			RetentionDays: 2555, Strategy: policy.StrategyArchiveAndDelete, BatchSize: 100,
			MinRetentionDays: 2555, MaxRetentionDays: 3650,
		},
		{
			ID: "pol-security", Category: policy.CategorySecurityAuditLogs,
			RetentionDays: 730, Strategy: policy.StrategyArchiveAndDelete, BatchSize: 100,
			MinRetentionDays: 365, MaxRetentionDays: 2555,
		},
	}
	sources := []policy.DataSource{
		{
			Collection: "learners", Category: policy.CategoryLearnerIdentity,
			AgeColumn: "last_active_at", TenantColumn: "tenant_id", SubjectColumn: "user_id",
			PIIColumns: []string{"email", "first_name"},
		},
		{
			Collection: "session_events", Category: policy.CategorySessionLogs,
			AgeColumn: "occurred_at", TenantColumn: "tenant_id", SubjectColumn: "user_id",
		},
		{
			Collection: "payments", Category: policy.CategoryPaymentRecords,
			AgeColumn: "settled_at", TenantColumn: "tenant_id", SubjectColumn: "user_id",
			PIIColumns: []string{"cardholder_name", "billing_email"},
		},
		{
			Collection: "security_audit_log", Category: policy.CategorySecurityAuditLogs,
			AgeColumn: "created_at", TenantColumn: "tenant_id", SubjectColumn: "actor_user_id",
		},
	}
	registry, err := policy.NewRegistry(policies, sources)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	store := purge.NewMemStore()
	svc := NewService(registry, store, nil, []byte("erasure-key"))
	svc.Now = func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) }
	return svc, store
}

func TestProcessErasure(t *testing.T) {
	svc, store := erasureFixture(t)
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	store.Insert("learners",
		purge.Row{"tenant_id": "t1", "user_id": "u1", "last_active_at": now, "email": "kid@example.com", "first_name": "Kim"},
		purge.Row{"tenant_id": "t1", "user_id": "u2", "last_active_at": now, "email": "other@example.com", "first_name": "Lee"},
	)
	store.Insert("session_events",
		purge.Row{"tenant_id": "t1", "user_id": "u1", "occurred_at": now},
		purge.Row{"tenant_id": "t1", "user_id": "u1", "occurred_at": now},
		purge.Row{"tenant_id": "t1", "user_id": "u2", "occurred_at": now},
	)
	store.Insert("payments",
		purge.Row{"tenant_id": "t1", "user_id": "u1", "settled_at": now, "cardholder_name": "Kim Doe", "billing_email": "kid@example.com", "amount": 1999},
	)
	store.Insert("security_audit_log",
		purge.Row{"tenant_id": "t1", "actor_user_id": "u1", "created_at": now, "action": "login"},
	)

	result, err := svc.ProcessErasure(context.Background(), Request{TenantID: "t1", UserID: "u1", RequestedBy: "op1"})
	if err != nil {
		t.Fatalf("erasure: %v", err)
	}
	if result.TablesProcessed != 4 {
		t.Fatalf("expected 4 tables processed, got %d", result.TablesProcessed)
	}
	if result.RecordsDeleted != 2 {
		t.Fatalf("expected 2 session events deleted, got %d", result.RecordsDeleted)
	}
	if result.RecordsAnonymised != 2 {
		t.Fatalf("expected learner + payment rows anonymised, got %d", result.RecordsAnonymised)
	}

	// Payment rows survive with PII struck but financial fields intact.
	payments := store.Rows("payments")
	if len(payments) != 1 {
		t.Fatalf("payment rows must be retained, got %d", len(payments))
	}
	if payments[0]["cardholder_name"] != ErasedMarker || payments[0]["billing_email"] != ErasedMarker {
		t.Fatalf("payment PII must be struck, got %+v", payments[0])
	}
	if payments[0]["amount"] != 1999 {
		t.Fatal("non-PII payment fields must survive")
	}

	// Security audit rows are exempt entirely.
	if store.Len("security_audit_log") != 1 {
		t.Fatal("security audit rows must be retained")
	}
	if store.Rows("security_audit_log")[0]["action"] != "login" {
		t.Fatal("security audit rows must not be modified")
	}

	// The subject's profile is pseudonymized; other subjects untouched.
	for _, r := range store.Rows("learners") {
		switch r["user_id"] {
		case "u1":
			if r["email"] == "kid@example.com" {
				t.Fatal("subject PII must be overwritten")
			}
		case "u2":
			if r["email"] != "other@example.com" {
				t.Fatal("other subjects must be untouched")
			}
		}
	}

	// Repeating the request finds nothing left to change.
	again, err := svc.ProcessErasure(context.Background(), Request{TenantID: "t1", UserID: "u1"})
	if err != nil {
		t.Fatalf("second erasure: %v", err)
	}
	if again.RecordsDeleted != 0 {
		t.Fatalf("second erasure must delete nothing, got %d", again.RecordsDeleted)
	}
	// Already-struck payment rows fall out of the erase batch, so the
	// repeat touches nothing.
	if again.RecordsAnonymised != 0 {
		t.Fatalf("second erasure must touch nothing, got %d", again.RecordsAnonymised)
	}
	if store.Len("learners") != 2 || store.Len("payments") != 1 {
		t.Fatal("second erasure must not change row counts")
	}
}

func TestProcessErasureDrainsTablesLargerThanBatchLimit(t *testing.T) {
	svc, store := erasureFixture(t)
	svc.BatchLimit = 1
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	store.Insert("learners",
		purge.Row{"tenant_id": "t1", "user_id": "u1", "last_active_at": now, "email": "kid@example.com", "first_name": "Kim"},
		purge.Row{"tenant_id": "t1", "user_id": "u1", "last_active_at": now, "email": "kid@example.com", "first_name": "Kim"},
		purge.Row{"tenant_id": "t1", "user_id": "u1", "last_active_at": now, "email": "kid@example.com", "first_name": "Kim"},
	)
	store.Insert("payments",
		purge.Row{"tenant_id": "t1", "user_id": "u1", "settled_at": now, "cardholder_name": "Kim Doe", "billing_email": "kid@example.com", "amount": 1999},
		purge.Row{"tenant_id": "t1", "user_id": "u1", "settled_at": now, "cardholder_name": "Kim Doe", "billing_email": "kid@example.com", "amount": 2999},
	)

	result, err := svc.ProcessErasure(context.Background(), Request{TenantID: "t1", UserID: "u1", RequestedBy: "op1"})
	if err != nil {
		t.Fatalf("erasure: %v", err)
	}
	if result.RecordsAnonymised != 5 {
		t.Fatalf("expected all 5 rows struck across batches, got %d", result.RecordsAnonymised)
	}
	for _, r := range store.Rows("learners") {
		if r["email"] == "kid@example.com" {
			t.Fatal("no subject row may keep its PII when the table exceeds the batch limit")
		}
	}
	for _, r := range store.Rows("payments") {
		if r["cardholder_name"] != ErasedMarker || r["billing_email"] != ErasedMarker {
			t.Fatalf("every payment row must be struck, got %+v", r)
		}
	}
}

func TestProcessErasureValidation(t *testing.T) {
	svc, _ := erasureFixture(t)
	if _, err := svc.ProcessErasure(context.Background(), Request{UserID: "u1"}); err == nil {
		t.Fatal("missing tenant must be rejected")
	}
	if _, err := svc.ProcessErasure(context.Background(), Request{TenantID: "t1"}); err == nil {
		t.Fatal("missing user must be rejected")
	}
}
