package purge

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// CertificatePDF renders a persisted run summary as a compliance
// certificate. The document carries counts and identifiers only.
func CertificatePDF(summary RunSummary) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Data Retention Compliance Certificate")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 11)
	line := func(label, value string) {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.Cell(55, 7, label)
		pdf.SetFont("Helvetica", "", 11)
		pdf.Cell(0, 7, value)
		pdf.Ln(7)
	}

	line("Run ID", summary.RunID)
	scope := "all tenants"
	if summary.TenantID != "" {
		scope = summary.TenantID
	}
	line("Scope", scope)
	line("Started", summary.StartedAt.Format("2006-01-02 15:04:05 MST"))
	line("Completed", summary.CompletedAt.Format("2006-01-02 15:04:05 MST"))
	line("Jobs", fmt.Sprintf("%d total, %d completed, %d failed, %d cancelled",
		summary.TotalJobs, summary.CompletedJobs, summary.FailedJobs, summary.CancelledJobs))
	line("Records purged", fmt.Sprintf("%d", summary.TotalRecordsPurged))
	line("Records failed", fmt.Sprintf("%d", summary.TotalRecordsFailed))
	line("Overall compliance", summary.OverallCompliance)
	line("Certified at", summary.Report.CertifiedAt.Format("2006-01-02 15:04:05 MST"))

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(40, 8, "Frameworks covered")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 11)
	for _, fw := range summary.Report.Frameworks {
		pdf.Cell(0, 6, fmt.Sprintf("- %s", fw))
		pdf.Ln(6)
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(40, 8, "Violations")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 11)
	if len(summary.Report.Violations) == 0 {
		pdf.Cell(0, 6, "None. All policies enforced.")
		pdf.Ln(6)
	}
	for _, v := range summary.Report.Violations {
		pdf.Cell(0, 6, fmt.Sprintf("- [%s] %s / %s: %d records affected",
			v.Severity, v.Framework, v.Collection, v.AffectedRecords))
		pdf.Ln(6)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
