package retentionhandler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"retentiond/internal/domain/erasure"
	"retentiond/internal/domain/notice"
	"retentiond/internal/domain/policy"
	"retentiond/internal/domain/purge"
	"retentiond/internal/domain/schedule"
	"retentiond/internal/platform/jobs"
	"retentiond/internal/platform/metrics"
	"retentiond/internal/transport/http/api"
	"retentiond/internal/transport/http/middleware"
)

// AuditSink mirrors audit.Service.Record so handlers can be tested without
// a database.
type AuditSink interface {
	Record(ctx context.Context, tenantID, actorID, action, entityType, entityID, requestID string, details any) error
}

type Handler struct {
	Engine   *purge.Engine
	Erasure  *erasure.Service
	Jobs     *jobs.Service
	Audit    AuditSink
	Metrics  *metrics.Collector
	Schedule schedule.Config

	// Notice, when set, informs the subject's guardian before child data
	// categories are erased.
	Notice *notice.Service
}

func NewHandler(engine *purge.Engine, erasureSvc *erasure.Service, jobsSvc *jobs.Service, auditSvc AuditSink, collector *metrics.Collector, sched schedule.Config) *Handler {
	return &Handler{
		Engine:   engine,
		Erasure:  erasureSvc,
		Jobs:     jobsSvc,
		Audit:    auditSvc,
		Metrics:  collector,
		Schedule: sched,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/retention", func(r chi.Router) {
		r.Get("/dashboard", h.handleDashboard)
		r.Get("/policies", h.handleListPolicies)
		r.Put("/policies/{policyID}/override", h.handleSetOverride)
		r.Get("/overrides", h.handleListOverrides)
		r.Get("/schedule", h.handleSchedule)
		r.Post("/purge", h.handleRunPurge)
		r.Post("/erasure", h.handleErasure)
		r.Get("/runs", h.handleListRuns)
		r.Get("/runs/{runID}", h.handleGetRun)
		r.Get("/runs/{runID}/certificate", h.handleRunCertificate)
	})
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	tenantID := r.URL.Query().Get("tenantId")
	dashboard, err := h.Engine.BuildDashboard(r.Context(), tenantID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "dashboard_failed", "failed to build retention dashboard", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, dashboard, middleware.GetRequestID(r.Context()))
}

type policyView struct {
	policy.RetentionPolicy
	Sources []string `json:"sources"`
}

func (h *Handler) handleListPolicies(w http.ResponseWriter, r *http.Request) {
	tenantID := r.URL.Query().Get("tenantId")

	views := make([]policyView, 0)
	for _, base := range h.Engine.Registry.Policies() {
		effective := base
		if tenantID != "" {
			resolved, err := h.Engine.Overrides.Effective(r.Context(), tenantID, base.ID)
			if err == nil {
				effective = resolved
			}
		}
		view := policyView{RetentionPolicy: effective, Sources: []string{}}
		for _, src := range h.Engine.Registry.SourcesByCategory(base.Category) {
			view.Sources = append(view.Sources, src.Collection)
		}
		views = append(views, view)
	}
	api.Success(w, views, middleware.GetRequestID(r.Context()))
}

type overridePayload struct {
	TenantID        string `json:"tenantId"`
	RetentionDays   *int   `json:"retentionDays"`
	GracePeriodDays *int   `json:"gracePeriodDays"`
}

func (h *Handler) handleSetOverride(w http.ResponseWriter, r *http.Request) {
	policyID := chi.URLParam(r, "policyID")

	var payload overridePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	if payload.TenantID == "" {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "tenantId is required", middleware.GetRequestID(r.Context()))
		return
	}

	effective, err := h.Engine.Overrides.SetOverride(r.Context(), payload.TenantID, policyID, policy.OverrideDelta{
		RetentionDays:   payload.RetentionDays,
		GracePeriodDays: payload.GracePeriodDays,
	})
	if err != nil {
		var bounds *policy.BoundsError
		switch {
		case errors.Is(err, policy.ErrPolicyNotFound):
			api.Fail(w, http.StatusNotFound, "policy_not_found", "unknown policy id", middleware.GetRequestID(r.Context()))
		case errors.Is(err, policy.ErrOverrideNotAllowed):
			api.Fail(w, http.StatusForbidden, "override_not_allowed", "policy does not permit tenant overrides", middleware.GetRequestID(r.Context()))
		case errors.As(err, &bounds):
			api.Fail(w, http.StatusUnprocessableEntity, "override_out_of_bounds", bounds.Error(), middleware.GetRequestID(r.Context()))
		default:
			api.Fail(w, http.StatusInternalServerError, "override_failed", "failed to save override", middleware.GetRequestID(r.Context()))
		}
		return
	}

	h.recordAudit(r, payload.TenantID, "retention.override.set", "retention_policy", policyID, payload)
	api.Success(w, effective, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListOverrides(w http.ResponseWriter, r *http.Request) {
	tenantID := r.URL.Query().Get("tenantId")
	if tenantID == "" {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "tenantId is required", middleware.GetRequestID(r.Context()))
		return
	}
	overrides, err := h.Engine.Overrides.ListOverrides(r.Context(), tenantID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "overrides_failed", "failed to list overrides", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, overrides, middleware.GetRequestID(r.Context()))
}

type scheduleView struct {
	Cadence    schedule.Cadence  `json:"cadence"`
	Cron       string            `json:"cron"`
	Categories []policy.Category `json:"categories"`
}

func (h *Handler) handleSchedule(w http.ResponseWriter, r *http.Request) {
	cadences := []schedule.Cadence{schedule.CadenceDaily, schedule.CadenceWeekly, schedule.CadenceMonthly, schedule.CadenceQuarterly}
	views := make([]scheduleView, 0, len(cadences))
	for _, cadence := range cadences {
		views = append(views, scheduleView{
			Cadence:    cadence,
			Cron:       h.Schedule.Cron(cadence),
			Categories: h.Schedule.Categories(cadence),
		})
	}
	api.Success(w, views, middleware.GetRequestID(r.Context()))
}

type purgePayload struct {
	TenantID   string   `json:"tenantId"`
	DryRun     bool     `json:"dryRun"`
	Categories []string `json:"categories"`
}

func (h *Handler) handleRunPurge(w http.ResponseWriter, r *http.Request) {
	var payload purgePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	var categories []policy.Category
	for _, raw := range payload.Categories {
		c := policy.Category(raw)
		if !c.Valid() {
			api.Fail(w, http.StatusBadRequest, "invalid_category", fmt.Sprintf("unknown category %q", raw), middleware.GetRequestID(r.Context()))
			return
		}
		categories = append(categories, c)
	}

	opts := purge.RunOptions{TenantID: payload.TenantID, DryRun: payload.DryRun, Categories: categories}
	result, err := h.Jobs.RunNow(r.Context(), jobs.JobManualPurge, func(ctx context.Context) (any, error) {
		summary, err := h.Engine.ExecuteRun(ctx, opts)
		return summary, err
	})
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "purge_failed", "purge run failed", middleware.GetRequestID(r.Context()))
		return
	}

	summary, _ := result.(purge.RunSummary)
	if !payload.DryRun {
		h.recordAudit(r, payload.TenantID, "retention.purge.run", "purge_run", summary.RunID, opts)
	}
	api.Success(w, summary, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleErasure(w http.ResponseWriter, r *http.Request) {
	var req erasure.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	if operator, ok := middleware.GetOperator(r.Context()); ok && req.RequestedBy == "" {
		req.RequestedBy = operator.ID
	}
	if err := req.Validate(); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", err.Error(), middleware.GetRequestID(r.Context()))
		return
	}

	if h.Notice != nil {
		if err := h.Notice.NotifyGuardian(r.Context(), req.TenantID, req.UserID, h.Engine.Registry.Policies()); err != nil {
			slog.Warn("guardian notice failed", "tenantId", req.TenantID, "err", err)
		}
	}

	result, err := h.Erasure.ProcessErasure(r.Context(), req)
	if h.Metrics != nil {
		h.Metrics.RecordErasure(err != nil)
	}
	if err != nil {
		slog.Warn("erasure completed with errors", "tenantId", req.TenantID, "err", err)
		// The per-table detail and partial counts let the operator retry;
		// the operation is idempotent.
		api.WriteJSON(w, http.StatusInternalServerError, api.Envelope{
			Data:      result,
			Error:     &api.Error{Code: "erasure_failed", Message: err.Error()},
			RequestID: middleware.GetRequestID(r.Context()),
		})
		return
	}

	h.recordAudit(r, req.TenantID, "retention.erasure", "subject", req.UserID, result)
	api.Success(w, result, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if h.Engine.Runs == nil {
		api.Fail(w, http.StatusNotImplemented, "runs_unavailable", "run history is not configured", middleware.GetRequestID(r.Context()))
		return
	}
	tenantID := r.URL.Query().Get("tenantId")
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 500 {
			api.Fail(w, http.StatusBadRequest, "invalid_limit", "limit must be between 1 and 500", middleware.GetRequestID(r.Context()))
			return
		}
		limit = parsed
	}

	runs, err := h.Engine.Runs.ListRuns(r.Context(), tenantID, limit)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "runs_failed", "failed to list runs", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, runs, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetRun(w http.ResponseWriter, r *http.Request) {
	summary, ok := h.loadRun(w, r)
	if !ok {
		return
	}
	api.Success(w, summary, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleRunCertificate(w http.ResponseWriter, r *http.Request) {
	summary, ok := h.loadRun(w, r)
	if !ok {
		return
	}

	pdf, err := purge.CertificatePDF(summary)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "certificate_failed", "failed to render certificate", middleware.GetRequestID(r.Context()))
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "retention-certificate-"+summary.RunID+".pdf"))
	if _, err := w.Write(pdf); err != nil {
		slog.Warn("certificate write failed", "err", err)
	}
}

func (h *Handler) loadRun(w http.ResponseWriter, r *http.Request) (purge.RunSummary, bool) {
	if h.Engine.Runs == nil {
		api.Fail(w, http.StatusNotImplemented, "runs_unavailable", "run history is not configured", middleware.GetRequestID(r.Context()))
		return purge.RunSummary{}, false
	}
	runID := chi.URLParam(r, "runID")
	summary, err := h.Engine.Runs.GetRun(r.Context(), runID)
	if err != nil {
		if errors.Is(err, purge.ErrRunNotFound) {
			api.Fail(w, http.StatusNotFound, "run_not_found", "unknown run id", middleware.GetRequestID(r.Context()))
		} else {
			api.Fail(w, http.StatusInternalServerError, "run_failed", "failed to load run", middleware.GetRequestID(r.Context()))
		}
		return purge.RunSummary{}, false
	}
	return summary, true
}

func (h *Handler) recordAudit(r *http.Request, tenantID, action, entityType, entityID string, details any) {
	if h.Audit == nil {
		return
	}
	actorID := ""
	if operator, ok := middleware.GetOperator(r.Context()); ok {
		actorID = operator.ID
	}
	if err := h.Audit.Record(r.Context(), tenantID, actorID, action, entityType, entityID, middleware.GetRequestID(r.Context()), details); err != nil {
		slog.Warn("audit record failed", "action", action, "err", err)
	}
}
