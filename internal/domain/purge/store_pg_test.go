package purge

import (
	"strings"
	"testing"
	"time"
)

func TestWhereClause(t *testing.T) {
	cutoff := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	where, args := whereClause(RowFilter{AgeColumn: "created_at", Cutoff: cutoff})
	if where != `"created_at" < $1` || len(args) != 1 {
		t.Fatalf("age-only clause = %q, args %v", where, args)
	}

	where, args = whereClause(RowFilter{
		AgeColumn:    "created_at",
		Cutoff:       cutoff,
		TenantColumn: "tenant_id",
		TenantID:     "t1",
	})
	if where != `"created_at" < $1 AND "tenant_id" = $2` || len(args) != 2 {
		t.Fatalf("tenant clause = %q, args %v", where, args)
	}

	where, args = whereClause(RowFilter{
		TenantColumn:  "tenant_id",
		TenantID:      "t1",
		SubjectColumn: "user_id",
		SubjectID:     "u1",
	})
	if where != `"tenant_id" = $1 AND "user_id" = $2` || len(args) != 2 {
		t.Fatalf("subject clause = %q, args %v", where, args)
	}

	where, args = whereClause(RowFilter{})
	if where != "true" || args != nil {
		t.Fatalf("empty filter = %q, args %v", where, args)
	}

	// A tenant column with no tenant value adds no predicate: global runs
	// sweep every tenant.
	where, _ = whereClause(RowFilter{AgeColumn: "created_at", Cutoff: cutoff, TenantColumn: "tenant_id"})
	if strings.Contains(where, "tenant_id") {
		t.Fatalf("unbound tenant column must not constrain the query: %q", where)
	}
}

func TestIdentQuotesHostileNames(t *testing.T) {
	if got := ident("created_at"); got != `"created_at"` {
		t.Fatalf("ident = %q", got)
	}
	got := ident(`x"; DROP TABLE learners; --`)
	if strings.Contains(got, `; DROP`) && !strings.HasPrefix(got, `"`) {
		t.Fatalf("identifier not sanitized: %q", got)
	}
	if got != `"x""; DROP TABLE learners; --"` {
		t.Fatalf("ident = %q", got)
	}
}
