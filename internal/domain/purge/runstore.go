package purge

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RunStore persists run summaries and their batch-level audit entries. These
// are the only durable records that a purge happened.
type RunStore interface {
	SaveRun(ctx context.Context, summary RunSummary, jobs []*Job) error
	ListRuns(ctx context.Context, tenantID string, limit int) ([]RunSummary, error)
	GetRun(ctx context.Context, runID string) (RunSummary, error)
}

type PgRunStore struct {
	DB *pgxpool.Pool
}

func NewPgRunStore(db *pgxpool.Pool) *PgRunStore {
	return &PgRunStore{DB: db}
}

func (s *PgRunStore) SaveRun(ctx context.Context, summary RunSummary, jobs []*Job) error {
	countsJSON, err := json.Marshal(summary.CountsByCategory)
	if err != nil {
		return err
	}
	reportJSON, err := json.Marshal(summary.Report)
	if err != nil {
		return err
	}

	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
    INSERT INTO purge_runs (
      id, tenant_id, dry_run, started_at, completed_at,
      total_jobs, completed_jobs, failed_jobs, cancelled_jobs,
      records_purged, records_failed, counts_json, report_json, overall_compliance
    ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
  `, summary.RunID, nullable(summary.TenantID), summary.DryRun, summary.StartedAt, summary.CompletedAt,
		summary.TotalJobs, summary.CompletedJobs, summary.FailedJobs, summary.CancelledJobs,
		summary.TotalRecordsPurged, summary.TotalRecordsFailed, countsJSON, reportJSON,
		summary.OverallCompliance); err != nil {
		return err
	}

	for _, job := range jobs {
		for _, entry := range job.AuditTrail {
			if _, err := tx.Exec(ctx, `
        INSERT INTO purge_audit_log (run_id, job_id, policy_id, collection, action, records, occurred_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
      `, summary.RunID, job.ID, job.Policy.ID, entry.Collection, entry.Action, entry.Records, entry.At); err != nil {
				return err
			}
		}
	}
	return tx.Commit(ctx)
}

func (s *PgRunStore) ListRuns(ctx context.Context, tenantID string, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.DB.Query(ctx, `
    SELECT id, COALESCE(tenant_id, ''), dry_run, started_at, completed_at,
           total_jobs, completed_jobs, failed_jobs, cancelled_jobs,
           records_purged, records_failed, counts_json, report_json, overall_compliance
    FROM purge_runs
    WHERE ($1 = '' OR tenant_id = $1)
    ORDER BY started_at DESC
    LIMIT $2
  `, tenantID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		summary, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, summary)
	}
	return out, rows.Err()
}

func (s *PgRunStore) GetRun(ctx context.Context, runID string) (RunSummary, error) {
	row := s.DB.QueryRow(ctx, `
    SELECT id, COALESCE(tenant_id, ''), dry_run, started_at, completed_at,
           total_jobs, completed_jobs, failed_jobs, cancelled_jobs,
           records_purged, records_failed, counts_json, report_json, overall_compliance
    FROM purge_runs
    WHERE id = $1
  `, runID)
	summary, err := scanRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return RunSummary{}, ErrRunNotFound
	}
	return summary, err
}

func scanRun(row pgx.Row) (RunSummary, error) {
	var summary RunSummary
	var countsJSON, reportJSON []byte
	if err := row.Scan(
		&summary.RunID, &summary.TenantID, &summary.DryRun, &summary.StartedAt, &summary.CompletedAt,
		&summary.TotalJobs, &summary.CompletedJobs, &summary.FailedJobs, &summary.CancelledJobs,
		&summary.TotalRecordsPurged, &summary.TotalRecordsFailed, &countsJSON, &reportJSON,
		&summary.OverallCompliance,
	); err != nil {
		return RunSummary{}, err
	}
	if err := json.Unmarshal(countsJSON, &summary.CountsByCategory); err != nil {
		return RunSummary{}, err
	}
	if err := json.Unmarshal(reportJSON, &summary.Report); err != nil {
		return RunSummary{}, err
	}
	return summary, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
