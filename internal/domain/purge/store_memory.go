package purge

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Row is one record in the in-memory store. Null columns are nil values.
type Row map[string]any

// MemStore is an in-memory DataStore with the same observable semantics as
// PgStore. It backs the test suites and catalogue-only development runs.
type MemStore struct {
	mu     sync.Mutex
	tables map[string][]Row
}

func NewMemStore() *MemStore {
	return &MemStore{tables: make(map[string][]Row)}
}

func (s *MemStore) Insert(collection string, rows ...Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rows {
		cloned := make(Row, len(r))
		for k, v := range r {
			cloned[k] = v
		}
		s.tables[collection] = append(s.tables[collection], cloned)
	}
}

// Rows returns a snapshot of a collection.
func (s *MemStore) Rows(collection string) []Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.tables[collection]
	out := make([]Row, len(rows))
	for i, r := range rows {
		cloned := make(Row, len(r))
		for k, v := range r {
			cloned[k] = v
		}
		out[i] = cloned
	}
	return out
}

func (s *MemStore) Len(collection string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tables[collection])
}

func rowMatches(r Row, filter RowFilter) bool {
	if filter.hasAge() {
		at, ok := r[filter.AgeColumn].(time.Time)
		if !ok || !at.Before(filter.Cutoff) {
			return false
		}
	}
	if filter.hasTenant() {
		if tenant, _ := r[filter.TenantColumn].(string); tenant != filter.TenantID {
			return false
		}
	}
	if filter.hasSubject() {
		if subject, _ := r[filter.SubjectColumn].(string); subject != filter.SubjectID {
			return false
		}
	}
	return true
}

// matchIndexes returns up to limit matching row indexes, oldest first when an
// age column is named, mirroring PgStore's batch ordering.
func matchIndexes(rows []Row, filter RowFilter, limit int) []int {
	var idx []int
	for i, r := range rows {
		if rowMatches(r, filter) {
			idx = append(idx, i)
		}
	}
	if filter.AgeColumn != "" {
		sort.SliceStable(idx, func(a, b int) bool {
			ta, _ := rows[idx[a]][filter.AgeColumn].(time.Time)
			tb, _ := rows[idx[b]][filter.AgeColumn].(time.Time)
			return ta.Before(tb)
		})
	}
	if limit > 0 && len(idx) > limit {
		idx = idx[:limit]
	}
	return idx
}

func (s *MemStore) Count(ctx context.Context, collection string, filter RowFilter) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for _, r := range s.tables[collection] {
		if rowMatches(r, filter) {
			count++
		}
	}
	return count, nil
}

// AnonymizeToken is the deterministic pseudonymization token for a value:
// hex-encoded HMAC-SHA256, identical to what pgcrypto produces in PgStore.
func AnonymizeToken(key []byte, value string) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(value))
	return hex.EncodeToString(mac.Sum(nil))
}

func (s *MemStore) UpdateBatch(ctx context.Context, collection string, set SetClause, filter RowFilter, unsetColumn string, limit int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := s.tables[collection]
	var affected int64
	for _, i := range matchIndexes(rows, filter, 0) {
		if unsetColumn != "" && rows[i][unsetColumn] != nil {
			continue
		}
		if limit > 0 && affected >= int64(limit) {
			break
		}
		switch c := set.(type) {
		case MarkDeleted:
			rows[i][c.Column] = c.At
		case MarkAnonymized:
			for _, col := range c.PIIColumns {
				if v := rows[i][col]; v != nil {
					rows[i][col] = AnonymizeToken(c.Key, fmt.Sprintf("%v", v))
				}
			}
			rows[i][c.MarkerColumn] = c.At
		case EraseValues:
			struck := false
			for _, col := range c.PIIColumns {
				if v := rows[i][col]; v != nil && v != c.Marker {
					rows[i][col] = c.Marker
					struck = true
				}
			}
			if !struck {
				continue
			}
		default:
			return affected, fmt.Errorf("unsupported set clause %T", set)
		}
		affected++
	}
	return affected, nil
}

func (s *MemStore) DeleteBatch(ctx context.Context, collection string, filter RowFilter, limit int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteLocked(collection, filter, limit), nil
}

func (s *MemStore) deleteLocked(collection string, filter RowFilter, limit int) int64 {
	rows := s.tables[collection]
	doomed := make(map[int]bool)
	for _, i := range matchIndexes(rows, filter, limit) {
		doomed[i] = true
	}
	if len(doomed) == 0 {
		return 0
	}
	kept := rows[:0]
	for i, r := range rows {
		if !doomed[i] {
			kept = append(kept, r)
		}
	}
	s.tables[collection] = kept
	return int64(len(doomed))
}

func (s *MemStore) UpsertAggregate(ctx context.Context, target, collection string, filter RowFilter, limit int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := s.tables[collection]
	idx := matchIndexes(rows, filter, limit)
	if len(idx) == 0 {
		return 0, nil
	}

	type bucket struct {
		tenant string
		day    time.Time
	}
	counts := make(map[bucket]int64)
	for _, i := range idx {
		at, _ := rows[i][filter.AgeColumn].(time.Time)
		b := bucket{day: at.Truncate(24 * time.Hour)}
		if filter.TenantColumn != "" {
			b.tenant, _ = rows[i][filter.TenantColumn].(string)
		}
		counts[b]++
	}

	for b, n := range counts {
		merged := false
		for _, agg := range s.tables[target] {
			day, _ := agg["bucket_date"].(time.Time)
			tenant, _ := agg["tenant_id"].(string)
			if day.Equal(b.day) && tenant == b.tenant {
				existing, _ := agg["record_count"].(int64)
				agg["record_count"] = existing + n
				merged = true
				break
			}
		}
		if !merged {
			s.tables[target] = append(s.tables[target], Row{
				"tenant_id":    b.tenant,
				"bucket_date":  b.day,
				"record_count": n,
			})
		}
	}

	return s.deleteLocked(collection, filter, limit), nil
}

func (s *MemStore) ArchiveRows(ctx context.Context, target, collection string, filter RowFilter, limit int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := s.tables[collection]
	idx := matchIndexes(rows, filter, limit)
	if len(idx) == 0 {
		return 0, nil
	}
	doomed := make(map[int]bool, len(idx))
	for _, i := range idx {
		cloned := make(Row, len(rows[i]))
		for k, v := range rows[i] {
			cloned[k] = v
		}
		s.tables[target] = append(s.tables[target], cloned)
		doomed[i] = true
	}
	kept := rows[:0]
	for i, r := range rows {
		if !doomed[i] {
			kept = append(kept, r)
		}
	}
	s.tables[collection] = kept
	return int64(len(idx)), nil
}
