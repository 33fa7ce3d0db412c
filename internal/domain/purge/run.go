package purge

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"retentiond/internal/domain/policy"
)

const (
	ComplianceOK           = "compliant"
	ComplianceActionNeeded = "action_needed"
)

// RunOptions scope a purge run. An empty TenantID runs globally; a nil
// Categories slice covers every category (manual operator runs); the cadence
// tiers pass their category subset.
type RunOptions struct {
	TenantID   string
	DryRun     bool
	Categories []policy.Category
}

// RunSummary is the durable artifact of a run.
type RunSummary struct {
	RunID              string                    `json:"runId"`
	TenantID           string                    `json:"tenantId,omitempty"`
	DryRun             bool                      `json:"dryRun"`
	StartedAt          time.Time                 `json:"startedAt"`
	CompletedAt        time.Time                 `json:"completedAt"`
	TotalJobs          int                       `json:"totalJobs"`
	CompletedJobs      int                       `json:"completedJobs"`
	FailedJobs         int                       `json:"failedJobs"`
	CancelledJobs      int                       `json:"cancelledJobs"`
	TotalRecordsPurged int64                     `json:"totalRecordsPurged"`
	TotalRecordsFailed int64                     `json:"totalRecordsFailed"`
	CountsByCategory   map[policy.Category]int64 `json:"countsByCategory"`
	Report             ComplianceReport          `json:"report"`
	OverallCompliance  string                    `json:"overallCompliance"`
}

// ExecuteRun performs one full purge run: discover, order by dependency,
// execute sequentially, certify, persist. Job failures are contained; the
// run always returns a summary. Cancellation is checked before each job; a
// cancelled run marks the remaining jobs cancelled and still produces its
// summary.
func (e *Engine) ExecuteRun(ctx context.Context, opts RunOptions) (RunSummary, error) {
	startedAt := e.now()
	jobs, err := e.Discover(ctx, opts.TenantID, opts.Categories)
	if err != nil {
		return RunSummary{}, err
	}
	ordered := OrderJobs(jobs)

	for _, job := range ordered {
		if ctx.Err() != nil {
			job.Status = JobCancelled
			continue
		}
		if opts.DryRun {
			// Estimate-only: no mutation reaches the store.
			job.ProcessedRecords = job.EstimatedRecords
			job.Status = JobCompleted
			job.audit("estimate", job.EstimatedRecords, e.now())
			continue
		}
		if err := e.Execute(ctx, job); err != nil {
			slog.Warn("purge job failed",
				"jobId", job.ID, "collection", job.Source.Collection,
				"policyId", job.Policy.ID, "err", err)
		}
	}

	summary := e.summarize(ordered, opts, startedAt)

	if e.Metrics != nil && !opts.DryRun {
		e.Metrics.RecordRun(summary.FailedJobs > 0, summary.TotalRecordsPurged, summary.TotalRecordsFailed)
	}
	if e.Runs != nil && !opts.DryRun {
		if err := e.Runs.SaveRun(ctx, summary, ordered); err != nil {
			// The purge actions are the source of truth; a failed audit write
			// is reported, not rolled back.
			slog.Warn("purge run persistence failed", "runId", summary.RunID, "err", err)
		}
	}
	return summary, nil
}

func (e *Engine) summarize(jobs []*Job, opts RunOptions, startedAt time.Time) RunSummary {
	summary := RunSummary{
		RunID:            uuid.NewString(),
		TenantID:         opts.TenantID,
		DryRun:           opts.DryRun,
		StartedAt:        startedAt,
		CompletedAt:      e.now(),
		TotalJobs:        len(jobs),
		CountsByCategory: make(map[policy.Category]int64),
	}
	for _, job := range jobs {
		switch job.Status {
		case JobCompleted:
			summary.CompletedJobs++
		case JobFailed:
			summary.FailedJobs++
		case JobCancelled:
			summary.CancelledJobs++
		}
		summary.TotalRecordsPurged += job.ProcessedRecords
		summary.TotalRecordsFailed += job.FailedRecords
		summary.CountsByCategory[job.Policy.Category] += job.ProcessedRecords
	}
	summary.Report = GenerateReport(jobs, summary.CompletedAt)
	if summary.FailedJobs > 0 || summary.CancelledJobs > 0 || !summary.Report.AllPoliciesEnforced {
		summary.OverallCompliance = ComplianceActionNeeded
	} else {
		summary.OverallCompliance = ComplianceOK
	}
	return summary
}

// GraceCleanupResult reports the daily pass that hard-deletes soft-deleted
// rows whose grace period has elapsed.
type GraceCleanupResult struct {
	At      time.Time        `json:"at"`
	Deleted map[string]int64 `json:"deleted"`
}

// RunGraceCleanup hard-deletes rows soft-deleted longer ago than their
// policy's grace period. Failures are contained per collection.
func (e *Engine) RunGraceCleanup(ctx context.Context, tenantID string) (GraceCleanupResult, error) {
	result := GraceCleanupResult{At: e.now(), Deleted: make(map[string]int64)}
	for _, base := range e.Registry.Policies() {
		effective, err := e.Overrides.Effective(ctx, tenantID, base.ID)
		if err != nil {
			effective = base
		}
		cutoff := result.At.AddDate(0, 0, -effective.GracePeriodDays)
		for _, src := range e.Registry.SourcesByCategory(base.Category) {
			if src.SoftDeleteColumn == "" {
				continue
			}
			filter := RowFilter{
				AgeColumn:    src.SoftDeleteColumn,
				Cutoff:       cutoff,
				TenantColumn: src.TenantColumn,
				TenantID:     tenantID,
			}
			for {
				if err := ctx.Err(); err != nil {
					return result, err
				}
				deleted, err := e.Store.DeleteBatch(ctx, src.Collection, filter, effective.BatchSize)
				if err != nil {
					slog.Warn("grace cleanup batch failed", "collection", src.Collection, "err", err)
					break
				}
				if deleted == 0 {
					break
				}
				result.Deleted[src.Collection] += deleted
				e.pause()
			}
		}
	}
	return result, nil
}
