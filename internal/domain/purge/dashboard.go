package purge

import (
	"context"
	"log/slog"
	"time"

	"retentiond/internal/domain/policy"
)

// PolicyStatus is the dashboard row for one policy.
type PolicyStatus struct {
	Policy         policy.RetentionPolicy `json:"policy"`
	TotalRecords   int64                  `json:"totalRecords"`
	ExpiredRecords int64                  `json:"expiredRecords"`
}

// Dashboard is the read-only operational summary.
type Dashboard struct {
	GeneratedAt         time.Time      `json:"generatedAt"`
	TenantID            string         `json:"tenantId,omitempty"`
	Policies            []PolicyStatus `json:"policies"`
	TotalExpiredRecords int64          `json:"totalExpiredRecords"`
	OverallCompliance   string         `json:"overallCompliance"`
	NextScheduledPurge  time.Time      `json:"nextScheduledPurge,omitzero"`
}

// BuildDashboard counts total and expired records per policy across its data
// sources. Count failures for a source are logged and treated as zero, the
// same non-fatal posture discovery takes.
func (e *Engine) BuildDashboard(ctx context.Context, tenantID string) (Dashboard, error) {
	now := e.now()
	dash := Dashboard{GeneratedAt: now, TenantID: tenantID}

	for _, base := range e.Registry.Policies() {
		effective, err := e.Overrides.Effective(ctx, tenantID, base.ID)
		if err != nil {
			effective = base
		}
		status := PolicyStatus{Policy: effective}
		cutoff := effective.Cutoff(now)

		for _, src := range e.Registry.SourcesByCategory(base.Category) {
			baseFilter := RowFilter{TenantColumn: src.TenantColumn, TenantID: tenantID}
			total, err := e.Store.Count(ctx, src.Collection, baseFilter)
			if err != nil {
				slog.Warn("dashboard count failed", "collection", src.Collection, "err", err)
				continue
			}
			expiredFilter := baseFilter
			expiredFilter.AgeColumn = src.AgeColumn
			expiredFilter.Cutoff = cutoff
			expired, err := e.Store.Count(ctx, src.Collection, expiredFilter)
			if err != nil {
				slog.Warn("dashboard expired count failed", "collection", src.Collection, "err", err)
				continue
			}
			status.TotalRecords += total
			status.ExpiredRecords += expired
		}
		dash.TotalExpiredRecords += status.ExpiredRecords
		dash.Policies = append(dash.Policies, status)
	}

	if dash.TotalExpiredRecords > 0 {
		dash.OverallCompliance = ComplianceActionNeeded
	} else {
		dash.OverallCompliance = ComplianceOK
	}
	if e.Schedule != nil {
		dash.NextScheduledPurge = e.Schedule.NextRun(now)
	}
	return dash, nil
}
