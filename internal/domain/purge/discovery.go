package purge

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"retentiond/internal/domain/policy"
)

// Discover estimates expired records for every policy and returns one pending
// job per (policy, data source) pair with a non-zero estimate. An empty
// tenantID scopes the run globally; a non-nil categories slice restricts
// discovery to those categories (used by the cadence tiers).
//
// An estimation failure for one source is logged and treated as zero so that
// a missing collection never aborts discovery for the rest.
func (e *Engine) Discover(ctx context.Context, tenantID string, categories []policy.Category) ([]*Job, error) {
	wanted := map[policy.Category]bool{}
	for _, c := range categories {
		wanted[c] = true
	}

	now := e.now()
	var jobs []*Job
	for _, base := range e.Registry.Policies() {
		if len(wanted) > 0 && !wanted[base.Category] {
			continue
		}
		effective, err := e.Overrides.Effective(ctx, tenantID, base.ID)
		if err != nil {
			slog.Warn("effective policy resolution failed, using base",
				"policyId", base.ID, "tenantId", tenantID, "err", err)
			effective = base
		}
		cutoff := effective.Cutoff(now)

		for _, src := range e.Registry.SourcesByCategory(base.Category) {
			filter := RowFilter{
				AgeColumn:    src.AgeColumn,
				Cutoff:       cutoff,
				TenantColumn: src.TenantColumn,
				TenantID:     tenantID,
			}
			estimate, err := e.Store.Count(ctx, src.Collection, filter)
			if err != nil {
				slog.Warn("expired record estimation failed",
					"collection", src.Collection, "policyId", base.ID, "err", err)
				continue
			}
			if estimate == 0 {
				continue
			}
			jobs = append(jobs, &Job{
				ID:               uuid.NewString(),
				Policy:           effective,
				Source:           src,
				TenantID:         tenantID,
				Cutoff:           cutoff,
				EstimatedRecords: estimate,
				Status:           JobPending,
			})
		}
	}
	return jobs, nil
}
