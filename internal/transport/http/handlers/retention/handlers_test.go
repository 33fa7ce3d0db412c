package retentionhandler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"retentiond/internal/domain/erasure"
	"retentiond/internal/domain/policy"
	"retentiond/internal/domain/purge"
	"retentiond/internal/domain/schedule"
	"retentiond/internal/platform/jobs"
	"retentiond/internal/platform/metrics"
)

func testRouter(t *testing.T) (http.Handler, *purge.MemStore) {
	t.Helper()
	cat := policy.DefaultCatalog()
	registry, err := policy.NewRegistry(cat.Policies, cat.Sources)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	store := purge.NewMemStore()
	engine := purge.NewEngine(registry, policy.NewMemoryOverrideStore(registry), store)
	engine.BatchPause = 0
	engine.AnonymizationKey = []byte("handler-test-key")

	sched := schedule.Default()
	erasureSvc := erasure.NewService(registry, store, nil, engine.AnonymizationKey)
	handler := NewHandler(engine, erasureSvc, jobs.New(engine, sched), nil, metrics.New(), sched)

	router := chi.NewRouter()
	handler.RegisterRoutes(router)
	return router, store
}

func doJSON(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestListPolicies(t *testing.T) {
	router, _ := testRouter(t)
	rec := doJSON(t, router, http.MethodGet, "/retention/policies", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var envelope struct {
		Success bool              `json:"success"`
		Data    []json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !envelope.Success || len(envelope.Data) != len(policy.DefaultCatalog().Policies) {
		t.Fatalf("expected every policy listed, got %d", len(envelope.Data))
	}
}

func TestSetOverrideErrorMapping(t *testing.T) {
	router, _ := testRouter(t)

	rec := doJSON(t, router, http.MethodPut, "/retention/policies/missing/override",
		`{"tenantId":"t1","retentionDays":60}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown policy: status = %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodPut, "/retention/policies/pol-payment-records/override",
		`{"tenantId":"t1","retentionDays":3000}`)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("locked policy: status = %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodPut, "/retention/policies/pol-session-logs/override",
		`{"tenantId":"t1","retentionDays":5}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("out-of-bounds override: status = %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodPut, "/retention/policies/pol-session-logs/override",
		`{"retentionDays":60}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing tenant: status = %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodPut, "/retention/policies/pol-session-logs/override",
		`{"tenantId":"t1","retentionDays":60}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("valid override: status = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestRunPurgeDryRun(t *testing.T) {
	router, store := testRouter(t)
	old := time.Now().AddDate(0, 0, -120)
	store.Insert("sessions",
		purge.Row{"tenant_id": "t1", "started_at": old},
		purge.Row{"tenant_id": "t1", "started_at": old},
	)

	rec := doJSON(t, router, http.MethodPost, "/retention/purge",
		`{"dryRun":true,"categories":["session_logs"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var envelope struct {
		Data purge.RunSummary `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Data.TotalRecordsPurged != 2 || !envelope.Data.DryRun {
		t.Fatalf("unexpected summary %+v", envelope.Data)
	}
	if store.Len("sessions") != 2 {
		t.Fatal("dry run must not mutate data")
	}

	rec = doJSON(t, router, http.MethodPost, "/retention/purge",
		`{"categories":["not_a_category"]}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown category: status = %d", rec.Code)
	}
}

func TestErasureEndpoint(t *testing.T) {
	router, store := testRouter(t)
	store.Insert("session_events",
		purge.Row{"tenant_id": "t1", "user_id": "u1", "occurred_at": time.Now()},
	)

	rec := doJSON(t, router, http.MethodPost, "/retention/erasure",
		`{"tenantId":"t1","userId":"u1","reason":"guardian request"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var envelope struct {
		Data erasure.Result `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Data.RecordsDeleted != 1 {
		t.Fatalf("expected 1 deleted record, got %+v", envelope.Data)
	}

	rec = doJSON(t, router, http.MethodPost, "/retention/erasure", `{"userId":"u1"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing tenant: status = %d", rec.Code)
	}
}

// brokenDeleteStore fails deletes against one collection so erasure comes
// back partial.
type brokenDeleteStore struct {
	*purge.MemStore
	broken string
}

func (s *brokenDeleteStore) DeleteBatch(ctx context.Context, collection string, filter purge.RowFilter, limit int) (int64, error) {
	if collection == s.broken {
		return 0, fmt.Errorf("relation %q does not exist", collection)
	}
	return s.MemStore.DeleteBatch(ctx, collection, filter, limit)
}

func TestErasurePartialFailureReturnsDetail(t *testing.T) {
	cat := policy.DefaultCatalog()
	registry, err := policy.NewRegistry(cat.Policies, cat.Sources)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	store := purge.NewMemStore()
	engine := purge.NewEngine(registry, policy.NewMemoryOverrideStore(registry), store)
	engine.BatchPause = 0
	engine.AnonymizationKey = []byte("handler-test-key")

	sched := schedule.Default()
	erasureSvc := erasure.NewService(registry,
		&brokenDeleteStore{MemStore: store, broken: "session_events"},
		nil, engine.AnonymizationKey)
	handler := NewHandler(engine, erasureSvc, jobs.New(engine, sched), nil, metrics.New(), sched)
	router := chi.NewRouter()
	handler.RegisterRoutes(router)

	store.Insert("learners",
		purge.Row{"tenant_id": "t1", "user_id": "u1", "last_active_at": time.Now(), "email": "kid@example.com"},
	)
	store.Insert("session_events",
		purge.Row{"tenant_id": "t1", "user_id": "u1", "occurred_at": time.Now()},
	)

	rec := doJSON(t, router, http.MethodPost, "/retention/erasure",
		`{"tenantId":"t1","userId":"u1","reason":"guardian request"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var envelope struct {
		Data  erasure.Result `json:"data"`
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.Contains(envelope.Error.Message, "session_events") {
		t.Fatalf("failure detail must name the table, got %q", envelope.Error.Message)
	}
	if envelope.Data.RecordsAnonymised < 1 {
		t.Fatalf("partial counts must be returned alongside the failure, got %+v", envelope.Data)
	}
}

func TestRunsUnavailableWithoutStore(t *testing.T) {
	router, _ := testRouter(t)
	rec := doJSON(t, router, http.MethodGet, "/retention/runs", "")
	if rec.Code != http.StatusNotImplemented {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestScheduleEndpoint(t *testing.T) {
	router, _ := testRouter(t)
	rec := doJSON(t, router, http.MethodGet, "/retention/schedule", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var envelope struct {
		Data []scheduleView `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(envelope.Data) != 4 {
		t.Fatalf("expected 4 cadence tiers, got %d", len(envelope.Data))
	}
}
