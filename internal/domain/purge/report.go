package purge

import (
	"fmt"
	"sort"
	"time"

	"retentiond/internal/domain/policy"
)

const SeverityCritical = "critical"

// Violation records one regulatory shortfall: a failed job counted against
// one framework its policy claims to satisfy.
type Violation struct {
	Framework       policy.Framework `json:"framework"`
	PolicyID        string           `json:"policyId"`
	Category        policy.Category  `json:"category"`
	Collection      string           `json:"collection"`
	AffectedRecords int64            `json:"affectedRecords"`
	Severity        string           `json:"severity"`
	Detail          string           `json:"detail"`
}

// ComplianceReport certifies one purge run. It carries counts, identifiers,
// and framework names only, never the purged data.
type ComplianceReport struct {
	Frameworks          []policy.Framework `json:"frameworks"`
	Violations          []Violation        `json:"violations"`
	AllPoliciesEnforced bool               `json:"allPoliciesEnforced"`
	CertifiedAt         time.Time          `json:"certifiedAt"`
}

// GenerateReport aggregates a run's jobs into a compliance report: the union
// of frameworks touched, plus one critical violation per framework for every
// failed job, with the processing shortfall as the affected count.
func GenerateReport(jobs []*Job, at time.Time) ComplianceReport {
	frameworks := make(map[policy.Framework]bool)
	var violations []Violation
	for _, job := range jobs {
		for _, fw := range job.Policy.Frameworks {
			frameworks[fw] = true
		}
		if job.Status != JobFailed {
			continue
		}
		shortfall := job.EstimatedRecords - job.ProcessedRecords
		if shortfall < 0 {
			shortfall = 0
		}
		for _, fw := range job.Policy.Frameworks {
			violations = append(violations, Violation{
				Framework:       fw,
				PolicyID:        job.Policy.ID,
				Category:        job.Policy.Category,
				Collection:      job.Source.Collection,
				AffectedRecords: shortfall,
				Severity:        SeverityCritical,
				Detail:          fmt.Sprintf("purge of %s incomplete: %s", job.Source.Collection, job.Error),
			})
		}
	}

	sorted := make([]policy.Framework, 0, len(frameworks))
	for fw := range frameworks {
		sorted = append(sorted, fw)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	return ComplianceReport{
		Frameworks:          sorted,
		Violations:          violations,
		AllPoliciesEnforced: len(violations) == 0,
		CertifiedAt:         at,
	}
}
