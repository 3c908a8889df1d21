package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/study-hall-api/internal/models"
	"github.com/noah-isme/study-hall-api/internal/service"
	appErrors "github.com/noah-isme/study-hall-api/pkg/errors"
	"github.com/noah-isme/study-hall-api/pkg/export"
)

type fakeReports struct{}

func (fakeReports) FeeCollectionReport(ctx context.Context) ([]models.HallFeeCollection, error) {
	return []models.HallFeeCollection{{HallID: "h1", HallName: "Hall A", CollectionRate: "0%"}}, nil
}

func (fakeReports) DashboardSummary(ctx context.Context) (*models.DashboardSummary, error) {
	return &models.DashboardSummary{TotalStudents: 4, TotalHalls: 1}, nil
}

type fakeExporter struct {
	lastFormat export.Format
}

func (f *fakeExporter) ExportFeeCollection(ctx context.Context, format export.Format) (*service.ExportResult, error) {
	f.lastFormat = format
	if !format.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
	return &service.ExportResult{Filename: "fee_collection." + string(format), ContentType: format.ContentType(), Body: []byte("Hall\n")}, nil
}

func TestReportHandlerFeeCollection(t *testing.T) {
	h := NewReportHandler(fakeReports{}, &fakeExporter{})
	c, rec := newTestContext(http.MethodGet, "/reports/fee-collection", "")

	h.FeeCollection(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"collectionRate":"0%"`)
}

func TestReportHandlerExport(t *testing.T) {
	exporter := &fakeExporter{}
	h := NewReportHandler(fakeReports{}, exporter)

	c, rec := newTestContext(http.MethodGet, "/reports/fee-collection/export", "")
	h.ExportFeeCollection(c)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, export.FormatCSV, exporter.lastFormat)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="fee_collection.csv"`, rec.Header().Get("Content-Disposition"))

	c, rec = newTestContext(http.MethodGet, "/reports/fee-collection/export?format=PDF", "")
	h.ExportFeeCollection(c)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, export.FormatPDF, exporter.lastFormat)

	c, rec = newTestContext(http.MethodGet, "/reports/fee-collection/export?format=xlsx", "")
	h.ExportFeeCollection(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDashboardHandlerSummary(t *testing.T) {
	h := NewDashboardHandler(fakeReports{})
	c, rec := newTestContext(http.MethodGet, "/dashboard", "")

	h.Summary(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"totalStudents":4`)
}
