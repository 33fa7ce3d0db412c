package purge

import (
	"testing"
	"time"

	"retentiond/internal/domain/policy"
)

func TestGenerateReportCleanRun(t *testing.T) {
	jobs := []*Job{
		{
			Policy: policy.RetentionPolicy{
				ID:         "pol-a",
				Frameworks: []policy.Framework{policy.FrameworkGDPR, policy.FrameworkCOPPA},
			},
			Status: JobCompleted,
		},
		{
			Policy: policy.RetentionPolicy{
				ID:         "pol-b",
				Frameworks: []policy.Framework{policy.FrameworkGDPR},
			},
			Status: JobCompleted,
		},
	}

	report := GenerateReport(jobs, time.Now())
	if !report.AllPoliciesEnforced {
		t.Fatal("clean run must certify all policies enforced")
	}
	if len(report.Frameworks) != 2 {
		t.Fatalf("expected framework union of 2, got %v", report.Frameworks)
	}
	if len(report.Violations) != 0 {
		t.Fatalf("expected no violations, got %d", len(report.Violations))
	}
}

func TestGenerateReportFailedJobViolatesEachFramework(t *testing.T) {
	jobs := []*Job{
		{
			Policy: policy.RetentionPolicy{
				ID:         "pol-payments",
				Category:   policy.CategoryPaymentRecords,
				Frameworks: []policy.Framework{policy.FrameworkPCIDSS, policy.FrameworkSOC2},
			},
			Source:           policy.DataSource{Collection: "payments"},
			Status:           JobFailed,
			Error:            "connection reset",
			EstimatedRecords: 100,
			ProcessedRecords: 40,
		},
	}

	report := GenerateReport(jobs, time.Now())
	if report.AllPoliciesEnforced {
		t.Fatal("failed job must void the certification")
	}
	if len(report.Violations) != 2 {
		t.Fatalf("expected one violation per framework, got %d", len(report.Violations))
	}
	for _, v := range report.Violations {
		if v.Severity != SeverityCritical {
			t.Fatalf("expected critical severity, got %s", v.Severity)
		}
		if v.AffectedRecords != 60 {
			t.Fatalf("expected shortfall of 60, got %d", v.AffectedRecords)
		}
	}
}
