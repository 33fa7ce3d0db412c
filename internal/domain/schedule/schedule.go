// Package schedule declares the cadence tiers the external job runner wires
// up: which categories are purged daily, weekly, monthly, or quarterly, and
// the cron trigger for each tier.
package schedule

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"retentiond/internal/domain/policy"
)

type Cadence string

const (
	CadenceDaily     Cadence = "daily"
	CadenceWeekly    Cadence = "weekly"
	CadenceMonthly   Cadence = "monthly"
	CadenceQuarterly Cadence = "quarterly"
)

type Config struct {
	DailyCron        string `json:"dailyPurge"`
	WeeklyCron       string `json:"weeklyPurge"`
	MonthlyCron      string `json:"monthlyPurge"`
	QuarterlyCron    string `json:"quarterlyPurge"`
	GraceCleanupCron string `json:"graceCleanup"`

	Tiers map[policy.Category]Cadence `json:"tiers"`
}

// Default assigns short-lived, high-churn categories to the daily tier and
// long-horizon archival categories to the slower tiers.
func Default() Config {
	return Config{
		DailyCron:        "0 2 * * *",
		WeeklyCron:       "0 3 * * 0",
		MonthlyCron:      "0 4 1 * *",
		QuarterlyCron:    "0 5 1 1,4,7,10 *",
		GraceCleanupCron: "30 2 * * *",
		Tiers: map[policy.Category]Cadence{
			policy.CategorySessionLogs:         CadenceDaily,
			policy.CategorySyncLogs:            CadenceDaily,
			policy.CategoryBiometricAudio:      CadenceDaily,
			policy.CategoryNotificationLogs:    CadenceDaily,
			policy.CategoryAuthLogs:            CadenceWeekly,
			policy.CategoryAIInteractionLogs:   CadenceWeekly,
			policy.CategoryBehavioralAnalytics: CadenceWeekly,
			policy.CategoryMetrics:             CadenceWeekly,
			policy.CategoryUserContent:         CadenceMonthly,
			policy.CategorySupportTickets:      CadenceMonthly,
			policy.CategoryLearnerIdentity:     CadenceMonthly,
			policy.CategoryAssessmentRecords:   CadenceQuarterly,
			policy.CategorySecurityAuditLogs:   CadenceQuarterly,
			policy.CategoryPaymentRecords:      CadenceQuarterly,
		},
	}
}

func (c Config) Validate() error {
	for name, expr := range c.crons() {
		if expr == "" {
			continue
		}
		if _, err := cron.ParseStandard(expr); err != nil {
			return fmt.Errorf("invalid %s cron %q: %w", name, expr, err)
		}
	}
	for category, cadence := range c.Tiers {
		if !category.Valid() {
			return fmt.Errorf("schedule tier for unknown category %q", category)
		}
		switch cadence {
		case CadenceDaily, CadenceWeekly, CadenceMonthly, CadenceQuarterly:
		default:
			return fmt.Errorf("unknown cadence %q for category %s", cadence, category)
		}
	}
	return nil
}

func (c Config) crons() map[string]string {
	return map[string]string{
		"daily":         c.DailyCron,
		"weekly":        c.WeeklyCron,
		"monthly":       c.MonthlyCron,
		"quarterly":     c.QuarterlyCron,
		"grace cleanup": c.GraceCleanupCron,
	}
}

// Cron returns the trigger expression for a cadence tier.
func (c Config) Cron(cadence Cadence) string {
	switch cadence {
	case CadenceDaily:
		return c.DailyCron
	case CadenceWeekly:
		return c.WeeklyCron
	case CadenceMonthly:
		return c.MonthlyCron
	case CadenceQuarterly:
		return c.QuarterlyCron
	}
	return ""
}

// Categories returns the categories assigned to a cadence tier.
func (c Config) Categories(cadence Cadence) []policy.Category {
	var out []policy.Category
	for _, category := range policy.Categories() {
		if c.Tiers[category] == cadence {
			out = append(out, category)
		}
	}
	return out
}

// NextRun returns the earliest upcoming purge trigger across all tiers, or
// the zero time when no tier parses.
func (c Config) NextRun(now time.Time) time.Time {
	var next time.Time
	for _, expr := range []string{c.DailyCron, c.WeeklyCron, c.MonthlyCron, c.QuarterlyCron} {
		if expr == "" {
			continue
		}
		spec, err := cron.ParseStandard(expr)
		if err != nil {
			continue
		}
		candidate := spec.Next(now)
		if next.IsZero() || candidate.Before(next) {
			next = candidate
		}
	}
	return next
}
