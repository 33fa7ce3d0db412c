package purge

import (
	"context"
	"time"
)

// RowFilter is the only predicate shape the engine issues against the data
// store. Zero-valued parts are omitted from the predicate: a zero Cutoff
// means no age bound, an empty TenantID means no tenant bound, an empty
// SubjectID means no subject bound.
type RowFilter struct {
	AgeColumn     string
	Cutoff        time.Time
	TenantColumn  string
	TenantID      string
	SubjectColumn string
	SubjectID     string
}

func (f RowFilter) hasAge() bool     { return f.AgeColumn != "" && !f.Cutoff.IsZero() }
func (f RowFilter) hasTenant() bool  { return f.TenantColumn != "" && f.TenantID != "" }
func (f RowFilter) hasSubject() bool { return f.SubjectColumn != "" && f.SubjectID != "" }

// SetClause is the closed set of mutations UpdateBatch can apply. Column
// names only ever come from the statically registered data sources, never
// from request input.
type SetClause interface {
	isSetClause()
}

// MarkDeleted stamps the soft-delete column.
type MarkDeleted struct {
	Column string
	At     time.Time
}

// MarkAnonymized overwrites each PII column with a deterministic keyed hash
// of its current value and stamps the marker column so rows are not
// reprocessed. Identical source values produce identical tokens, preserving
// aggregate analytics.
type MarkAnonymized struct {
	PIIColumns   []string
	MarkerColumn string
	Key          []byte
	At           time.Time
}

// EraseValues overwrites each PII column with a fixed erasure marker. Used
// for legally retained rows (payment records) during right-to-erasure. Rows
// whose PII columns all carry the marker already are excluded from the
// batch, so limited batches terminate.
type EraseValues struct {
	PIIColumns []string
	Marker     string
}

func (MarkDeleted) isSetClause()    {}
func (MarkAnonymized) isSetClause() {}
func (EraseValues) isSetClause()    {}

// DataStore is the single execution abstraction the engine needs from the
// relational store. Implementations are expected to enforce statement
// timeouts themselves; the engine never blocks indefinitely on a call.
//
// UpdateBatch applies the set clause to up to limit rows matching the filter,
// skipping rows where unsetColumn is already non-null (pass "" to update
// unconditionally). DeleteBatch removes up to limit matching rows.
// UpsertAggregate rolls up to limit matching rows into daily count buckets in
// target and removes them from collection in the same transaction, returning
// the number of detail rows consumed. ArchiveRows moves up to limit matching
// rows verbatim into target, oldest first, removing them from collection in
// the same transaction; a crash can never leave a row copied but not removed.
type DataStore interface {
	Count(ctx context.Context, collection string, filter RowFilter) (int64, error)
	UpdateBatch(ctx context.Context, collection string, set SetClause, filter RowFilter, unsetColumn string, limit int) (int64, error)
	DeleteBatch(ctx context.Context, collection string, filter RowFilter, limit int) (int64, error)
	UpsertAggregate(ctx context.Context, target, collection string, filter RowFilter, limit int) (int64, error)
	ArchiveRows(ctx context.Context, target, collection string, filter RowFilter, limit int) (int64, error)
}
