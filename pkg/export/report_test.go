package export

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mailbridge/internal/models"
)

func TestRenderProducesPDF(t *testing.T) {
	exporter := NewReportExporter()
	report := models.CycleReport{
		Stats:      models.SyncStats{Added: 3, Updated: 1, Skipped: 40},
		Records:    44,
		StartedAt:  time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC),
		FinishedAt: time.Date(2025, 3, 14, 9, 30, 12, 0, time.UTC),
		Duration:   "12s",
		BackupURL:  models.DownloadLink("backup-1"),
	}

	pdf, err := exporter.Render(report)
	require.NoError(t, err)
	require.NotEmpty(t, pdf)
	assert.Equal(t, "%PDF", string(pdf[:4]))
}

func TestRenderIncludesError(t *testing.T) {
	exporter := NewReportExporter()
	pdf, err := exporter.Render(models.CycleReport{Error: "Missing DB: ./agenda.db"})
	require.NoError(t, err)
	require.NotEmpty(t, pdf)
}
