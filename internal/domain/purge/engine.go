package purge

import (
	"time"

	"retentiond/internal/domain/policy"
	"retentiond/internal/domain/schedule"
	"retentiond/internal/platform/metrics"
)

// Engine is the retention engine: discovery, ordering, execution, reporting.
// All collaborators are injected; the engine holds no global state. Registry
// is read-only, so one Engine is safe for concurrent runs as long as the
// runs' row predicates do not overlap (different tenants, or an erasure
// alongside a scheduled run).
type Engine struct {
	Registry  *policy.Registry
	Overrides policy.OverrideStore
	Store     DataStore

	// Optional collaborators.
	Runs     RunStore
	Metrics  *metrics.Collector
	Schedule *schedule.Config

	// AnonymizationKey keys the deterministic pseudonymization tokens.
	AnonymizationKey []byte

	// BatchPause is the cooperative yield between batches.
	BatchPause time.Duration

	Now func() time.Time
}

func NewEngine(registry *policy.Registry, overrides policy.OverrideStore, store DataStore) *Engine {
	return &Engine{
		Registry:   registry,
		Overrides:  overrides,
		Store:      store,
		BatchPause: 50 * time.Millisecond,
		Now:        time.Now,
	}
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e *Engine) pause() {
	if e.BatchPause > 0 {
		time.Sleep(e.BatchPause)
	}
}
