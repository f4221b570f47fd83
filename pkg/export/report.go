package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/noah-isme/mailbridge/internal/models"
)

// ReportExporter renders a cycle report as a one-page PDF summary for
// operators who want a downloadable artifact instead of raw JSON.
type ReportExporter struct{}

// NewReportExporter constructs the exporter.
func NewReportExporter() *ReportExporter {
	return &ReportExporter{}
}

// Render produces the PDF bytes for one cycle report.
func (e *ReportExporter) Render(report models.CycleReport) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 20, 15)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, "SYNC CYCLE REPORT", "", 1, "C", false, 0, "")
	pdf.Ln(6)

	rows := [][2]string{
		{"Started", report.StartedAt.Format(time.RFC3339)},
		{"Finished", report.FinishedAt.Format(time.RFC3339)},
		{"Duration", report.Duration},
		{"Records seen", fmt.Sprintf("%d", report.Records)},
		{"Added", fmt.Sprintf("%d", report.Stats.Added)},
		{"Updated", fmt.Sprintf("%d", report.Stats.Updated)},
		{"Skipped", fmt.Sprintf("%d", report.Stats.Skipped)},
		{"Failed", fmt.Sprintf("%d", report.Stats.Failed)},
	}
	if report.BackupURL != "" {
		rows = append(rows, [2]string{"Backup", report.BackupURL})
	}
	if report.Error != "" {
		rows = append(rows, [2]string{"Error", report.Error})
	}

	pdf.SetFont("Arial", "", 11)
	for _, row := range rows {
		pdf.SetFont("Arial", "B", 11)
		pdf.CellFormat(50, 8, row[0], "1", 0, "", false, 0, "")
		pdf.SetFont("Arial", "", 11)
		pdf.CellFormat(130, 8, row[1], "1", 1, "", false, 0, "")
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render report pdf: %w", err)
	}
	return buf.Bytes(), nil
}
