package purge

import (
	"context"
	"fmt"
	"log/slog"

	"retentiond/internal/domain/policy"
)

// AnonymizedAtColumn marks rows already pseudonymized so anonymize batches
// never reprocess them.
const AnonymizedAtColumn = "anonymized_at"

// Execute runs one job to completion under its policy's strategy. A failure
// is captured on the job and returned; it never propagates to sibling jobs.
// Cancellation is honored between batches: a running batch finishes before
// the job is marked cancelled.
func (e *Engine) Execute(ctx context.Context, job *Job) error {
	job.Status = JobRunning
	job.StartedAt = e.now()

	var err error
	switch job.Policy.Strategy {
	case policy.StrategySoftDelete:
		err = e.softDelete(ctx, job)
	case policy.StrategyHardDelete:
		err = e.hardDelete(ctx, job)
	case policy.StrategyAnonymize:
		err = e.anonymize(ctx, job)
	case policy.StrategyAggregateAndDelete:
		err = e.aggregateAndDelete(ctx, job)
	case policy.StrategyArchiveAndDelete:
		err = e.archiveAndDelete(ctx, job)
	default:
		err = fmt.Errorf("unknown purge strategy %q", job.Policy.Strategy)
	}

	job.CompletedAt = e.now()
	if err != nil {
		if ctx.Err() != nil {
			job.Status = JobCancelled
		} else {
			job.Status = JobFailed
		}
		job.Error = err.Error()
		if shortfall := job.EstimatedRecords - job.ProcessedRecords; shortfall > 0 {
			job.FailedRecords = shortfall
		}
		return err
	}
	job.Status = JobCompleted
	return nil
}

// runBatches drives one strategy's batching discipline: operate on up to
// batchSize rows, audit the batch, yield, stop at the first empty batch.
func (e *Engine) runBatches(ctx context.Context, job *Job, action string, op func(limit int) (int64, error)) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		affected, err := op(job.Policy.BatchSize)
		if err != nil {
			return err
		}
		if affected == 0 {
			return nil
		}
		job.ProcessedRecords += affected
		job.audit(action, affected, e.now())
		e.pause()
	}
}

func (e *Engine) softDelete(ctx context.Context, job *Job) error {
	col := job.Source.SoftDeleteColumn
	if col == "" {
		return fmt.Errorf("%w: %s", ErrNoSoftDeleteColumn, job.Source.Collection)
	}
	return e.runBatches(ctx, job, "soft_delete", func(limit int) (int64, error) {
		return e.Store.UpdateBatch(ctx, job.Source.Collection,
			MarkDeleted{Column: col, At: e.now()}, job.filter(), col, limit)
	})
}

func (e *Engine) hardDelete(ctx context.Context, job *Job) error {
	if deps := job.Source.DependentCollections; len(deps) > 0 {
		// Cascade safety comes from the run's job ordering, not from this
		// strategy reaching into other collections.
		slog.Info("hard delete relies on run ordering for dependents",
			"collection", job.Source.Collection, "dependents", deps)
	}
	return e.runBatches(ctx, job, "hard_delete", func(limit int) (int64, error) {
		return e.Store.DeleteBatch(ctx, job.Source.Collection, job.filter(), limit)
	})
}

func (e *Engine) anonymize(ctx context.Context, job *Job) error {
	if len(job.Source.PIIColumns) == 0 {
		slog.Info("no PII columns declared, anonymize degrades to soft delete",
			"collection", job.Source.Collection)
		return e.softDelete(ctx, job)
	}
	if len(e.AnonymizationKey) == 0 {
		return fmt.Errorf("anonymization key not configured")
	}
	return e.runBatches(ctx, job, "anonymize", func(limit int) (int64, error) {
		return e.Store.UpdateBatch(ctx, job.Source.Collection, MarkAnonymized{
			PIIColumns:   job.Source.PIIColumns,
			MarkerColumn: AnonymizedAtColumn,
			Key:          e.AnonymizationKey,
			At:           e.now(),
		}, job.filter(), AnonymizedAtColumn, limit)
	})
}

func (e *Engine) aggregateAndDelete(ctx context.Context, job *Job) error {
	target := job.Source.AggregationTarget
	if target == "" {
		slog.Warn("no aggregation target configured, degrading to hard delete",
			"collection", job.Source.Collection)
		return e.hardDelete(ctx, job)
	}
	return e.runBatches(ctx, job, "aggregate_delete", func(limit int) (int64, error) {
		return e.Store.UpsertAggregate(ctx, target, job.Source.Collection, job.filter(), limit)
	})
}

func (e *Engine) archiveAndDelete(ctx context.Context, job *Job) error {
	target := job.Source.ArchiveTarget
	if target == "" {
		slog.Warn("no archive target configured, degrading to hard delete",
			"collection", job.Source.Collection)
		return e.hardDelete(ctx, job)
	}
	return e.runBatches(ctx, job, "archive_delete", func(limit int) (int64, error) {
		return e.Store.ArchiveRows(ctx, target, job.Source.Collection, job.filter(), limit)
	})
}
