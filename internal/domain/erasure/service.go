// Package erasure services individual right-to-erasure requests outside the
// scheduled purge cadence.
package erasure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"retentiond/internal/domain/policy"
	"retentiond/internal/domain/purge"
)

// ErasedMarker replaces PII values on rows that must legally be retained.
const ErasedMarker = "[erased]"

// AuditSink receives the single audit entry written per erasure request.
type AuditSink interface {
	Record(ctx context.Context, tenantID, actorID, action, entityType, entityID, requestID string, details any) error
}

// Request identifies the subject and the operator acting on their behalf.
type Request struct {
	TenantID    string `json:"tenantId"`
	UserID      string `json:"userId"`
	RequestedBy string `json:"requestedBy"`
	Reason      string `json:"reason"`
}

func (r Request) Validate() error {
	if r.TenantID == "" {
		return fmt.Errorf("tenant id is required")
	}
	if r.UserID == "" {
		return fmt.Errorf("user id is required")
	}
	return nil
}

// Result is the erasure outcome returned to the operator.
type Result struct {
	TablesProcessed   int   `json:"tablesProcessed"`
	RecordsDeleted    int64 `json:"recordsDeleted"`
	RecordsAnonymised int64 `json:"recordsAnonymised"`
}

type Service struct {
	Registry         *policy.Registry
	Store            purge.DataStore
	Audit            AuditSink
	AnonymizationKey []byte
	BatchLimit       int
	Now              func() time.Time
}

func NewService(registry *policy.Registry, store purge.DataStore, audit AuditSink, key []byte) *Service {
	return &Service{
		Registry:         registry,
		Store:            store,
		Audit:            audit,
		AnonymizationKey: key,
		BatchLimit:       1000,
		Now:              time.Now,
	}
}

// ProcessErasure walks the full data source registry for one subject,
// ignoring record age. Payment records keep their rows with PII overwritten
// (legal retention obligation); security audit logs are counted but left
// untouched (legitimate-interest exemption). Everything else is anonymized
// when the source declares PII columns, hard-deleted otherwise.
//
// The operation is idempotent: a second request for an already-erased
// subject finds nothing left to change. Per-table failures are collected and
// returned alongside the partial result so the request can be retried.
func (s *Service) ProcessErasure(ctx context.Context, req Request) (Result, error) {
	if err := req.Validate(); err != nil {
		return Result{}, err
	}

	var result Result
	var failures []error
	for _, src := range s.Registry.Sources() {
		if src.SubjectColumn == "" {
			continue
		}
		filter := purge.RowFilter{
			TenantColumn:  src.TenantColumn,
			TenantID:      req.TenantID,
			SubjectColumn: src.SubjectColumn,
			SubjectID:     req.UserID,
		}
		result.TablesProcessed++

		switch src.Category {
		case policy.CategoryPaymentRecords:
			// Already-struck rows fall out of the batch, so every batch
			// makes progress and an empty one means the subject is done.
			for {
				affected, err := s.Store.UpdateBatch(ctx, src.Collection,
					purge.EraseValues{PIIColumns: src.PIIColumns, Marker: ErasedMarker},
					filter, "", s.BatchLimit)
				if err != nil {
					failures = append(failures, fmt.Errorf("%s: %w", src.Collection, err))
					break
				}
				if affected == 0 {
					break
				}
				result.RecordsAnonymised += affected
			}
		case policy.CategorySecurityAuditLogs:
			// Counted for the operator's visibility, never modified.
			if _, err := s.Store.Count(ctx, src.Collection, filter); err != nil {
				failures = append(failures, fmt.Errorf("%s: %w", src.Collection, err))
			}
		default:
			if len(src.PIIColumns) > 0 {
				// The marker column guarantees progress: every batch either
				// stamps new rows or comes back empty.
				for {
					affected, err := s.Store.UpdateBatch(ctx, src.Collection, purge.MarkAnonymized{
						PIIColumns:   src.PIIColumns,
						MarkerColumn: purge.AnonymizedAtColumn,
						Key:          s.AnonymizationKey,
						At:           s.Now(),
					}, filter, purge.AnonymizedAtColumn, s.BatchLimit)
					if err != nil {
						failures = append(failures, fmt.Errorf("%s: %w", src.Collection, err))
						break
					}
					if affected == 0 {
						break
					}
					result.RecordsAnonymised += affected
				}
				continue
			}
			for {
				deleted, err := s.Store.DeleteBatch(ctx, src.Collection, filter, s.BatchLimit)
				if err != nil {
					failures = append(failures, fmt.Errorf("%s: %w", src.Collection, err))
					break
				}
				if deleted == 0 {
					break
				}
				result.RecordsDeleted += deleted
			}
		}
	}

	if s.Audit != nil {
		if err := s.Audit.Record(ctx, req.TenantID, req.RequestedBy, "erasure.process",
			"user", req.UserID, "", map[string]any{
				"reason":            req.Reason,
				"tablesProcessed":   result.TablesProcessed,
				"recordsDeleted":    result.RecordsDeleted,
				"recordsAnonymised": result.RecordsAnonymised,
			}); err != nil {
			slog.Warn("erasure audit write failed", "tenantId", req.TenantID, "err", err)
		}
	}
	return result, errors.Join(failures...)
}
