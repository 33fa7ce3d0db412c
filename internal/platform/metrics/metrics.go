package metrics

import (
	"sync/atomic"
)

// Collector tracks engine-level counters without locks. Snapshot is served
// on the operator API for monitoring.
type Collector struct {
	runsTotal       uint64
	runsFailed      uint64
	recordsPurged   uint64
	recordsFailed   uint64
	erasureRequests uint64
	erasureFailed   uint64
}

func New() *Collector {
	return &Collector{}
}

func (c *Collector) RecordRun(failed bool, purged, failedRecords int64) {
	atomic.AddUint64(&c.runsTotal, 1)
	if failed {
		atomic.AddUint64(&c.runsFailed, 1)
	}
	if purged > 0 {
		atomic.AddUint64(&c.recordsPurged, uint64(purged))
	}
	if failedRecords > 0 {
		atomic.AddUint64(&c.recordsFailed, uint64(failedRecords))
	}
}

func (c *Collector) RecordErasure(failed bool) {
	atomic.AddUint64(&c.erasureRequests, 1)
	if failed {
		atomic.AddUint64(&c.erasureFailed, 1)
	}
}

func (c *Collector) Snapshot() map[string]any {
	return map[string]any{
		"purgeRunsTotal":       atomic.LoadUint64(&c.runsTotal),
		"purgeRunsFailed":      atomic.LoadUint64(&c.runsFailed),
		"recordsPurgedTotal":   atomic.LoadUint64(&c.recordsPurged),
		"recordsFailedTotal":   atomic.LoadUint64(&c.recordsFailed),
		"erasureRequestsTotal": atomic.LoadUint64(&c.erasureRequests),
		"erasureFailed":        atomic.LoadUint64(&c.erasureFailed),
	}
}
