package metrics

import "testing"

func TestCollectorSnapshot(t *testing.T) {
	c := New()
	c.RecordRun(false, 120, 0)
	c.RecordRun(true, 30, 5)
	c.RecordErasure(false)
	c.RecordErasure(true)

	snap := c.Snapshot()
	if snap["purgeRunsTotal"] != uint64(2) {
		t.Fatalf("purgeRunsTotal = %v, want 2", snap["purgeRunsTotal"])
	}
	if snap["purgeRunsFailed"] != uint64(1) {
		t.Fatalf("purgeRunsFailed = %v, want 1", snap["purgeRunsFailed"])
	}
	if snap["recordsPurgedTotal"] != uint64(150) {
		t.Fatalf("recordsPurgedTotal = %v, want 150", snap["recordsPurgedTotal"])
	}
	if snap["recordsFailedTotal"] != uint64(5) {
		t.Fatalf("recordsFailedTotal = %v, want 5", snap["recordsFailedTotal"])
	}
	if snap["erasureRequestsTotal"] != uint64(2) || snap["erasureFailed"] != uint64(1) {
		t.Fatalf("erasure counters wrong: %v", snap)
	}
}
