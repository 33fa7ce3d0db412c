package purge

import (
	"time"

	"retentiond/internal/domain/policy"
)

type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
	JobCancelled JobStatus = "cancelled"
)

// AuditEntry records one executed batch. Entries carry counts and collection
// names only, never row contents.
type AuditEntry struct {
	At         time.Time `json:"at"`
	Action     string    `json:"action"`
	Collection string    `json:"collection"`
	Records    int64     `json:"records"`
}

// Job is the unit of work for one (policy, data source) pair within a run.
// It is created by discovery and mutated only by the execution engine.
type Job struct {
	ID               string                 `json:"id"`
	Policy           policy.RetentionPolicy `json:"policy"`
	Source           policy.DataSource      `json:"source"`
	TenantID         string                 `json:"tenantId,omitempty"`
	Cutoff           time.Time              `json:"cutoff"`
	EstimatedRecords int64                  `json:"estimatedRecords"`
	ProcessedRecords int64                  `json:"processedRecords"`
	FailedRecords    int64                  `json:"failedRecords"`
	Status           JobStatus              `json:"status"`
	Error            string                 `json:"error,omitempty"`
	StartedAt        time.Time              `json:"startedAt,omitempty"`
	CompletedAt      time.Time              `json:"completedAt,omitempty"`
	AuditTrail       []AuditEntry           `json:"auditTrail,omitempty"`
}

func (j *Job) audit(action string, records int64, at time.Time) {
	j.AuditTrail = append(j.AuditTrail, AuditEntry{
		At:         at,
		Action:     action,
		Collection: j.Source.Collection,
		Records:    records,
	})
}

// filter is the row predicate for this job's eligible records.
func (j *Job) filter() RowFilter {
	f := RowFilter{
		AgeColumn:    j.Source.AgeColumn,
		Cutoff:       j.Cutoff,
		TenantColumn: j.Source.TenantColumn,
	}
	if j.TenantID != "" {
		f.TenantID = j.TenantID
	}
	return f
}
