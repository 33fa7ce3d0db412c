package schedule

import (
	"testing"
	"time"

	"retentiond/internal/domain/policy"
)

func TestDefaultScheduleIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default schedule invalid: %v", err)
	}
}

func TestEveryCategoryHasExactlyOneTier(t *testing.T) {
	cfg := Default()
	seen := make(map[policy.Category]int)
	for _, cadence := range []Cadence{CadenceDaily, CadenceWeekly, CadenceMonthly, CadenceQuarterly} {
		for _, c := range cfg.Categories(cadence) {
			seen[c]++
		}
	}
	for _, c := range policy.Categories() {
		if seen[c] != 1 {
			t.Fatalf("category %s assigned to %d tiers", c, seen[c])
		}
	}
}

func TestValidateRejectsBadInput(t *testing.T) {
	cfg := Default()
	cfg.DailyCron = "not a cron"
	if err := cfg.Validate(); err == nil {
		t.Fatal("malformed cron must be rejected")
	}

	cfg = Default()
	cfg.Tiers["bogus_category"] = CadenceDaily
	if err := cfg.Validate(); err == nil {
		t.Fatal("unknown category must be rejected")
	}

	cfg = Default()
	cfg.Tiers[policy.CategorySessionLogs] = "hourly"
	if err := cfg.Validate(); err == nil {
		t.Fatal("unknown cadence must be rejected")
	}
}

func TestNextRun(t *testing.T) {
	cfg := Default()
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	next := cfg.NextRun(now)
	if next.IsZero() || !next.After(now) {
		t.Fatalf("next run must be in the future, got %v", next)
	}
	// The daily 02:00 trigger is the earliest tier from midnight.
	want := time.Date(2026, 3, 1, 2, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("next run = %v, want %v", next, want)
	}
}

func TestCron(t *testing.T) {
	cfg := Default()
	if cfg.Cron(CadenceQuarterly) != "0 5 1 1,4,7,10 *" {
		t.Fatalf("unexpected quarterly cron %q", cfg.Cron(CadenceQuarterly))
	}
	if cfg.Cron("bogus") != "" {
		t.Fatal("unknown cadence must yield an empty expression")
	}
}
