package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/study-hall-api/internal/models"
	"github.com/noah-isme/study-hall-api/internal/service"
	"github.com/noah-isme/study-hall-api/pkg/export"
	"github.com/noah-isme/study-hall-api/pkg/response"
)

type feeCollectionReporter interface {
	FeeCollectionReport(ctx context.Context) ([]models.HallFeeCollection, error)
}

type feeCollectionExporter interface {
	ExportFeeCollection(ctx context.Context, format export.Format) (*service.ExportResult, error)
}

// ReportHandler exposes ledger report endpoints.
type ReportHandler struct {
	reports  feeCollectionReporter
	exporter feeCollectionExporter
}

// NewReportHandler constructs ReportHandler.
func NewReportHandler(reports feeCollectionReporter, exporter feeCollectionExporter) *ReportHandler {
	return &ReportHandler{reports: reports, exporter: exporter}
}

// FeeCollection godoc
// @Summary Fee collection per study hall
// @Tags Reports
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /reports/fee-collection [get]
func (h *ReportHandler) FeeCollection(c *gin.Context) {
	report, err := h.reports.FeeCollectionReport(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// ExportFeeCollection godoc
// @Summary Download fee collection report
// @Tags Reports
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /reports/fee-collection/export [get]
func (h *ReportHandler) ExportFeeCollection(c *gin.Context) {
	format := export.Format(strings.ToLower(c.DefaultQuery("format", string(export.FormatCSV))))
	result, err := h.exporter.ExportFeeCollection(c.Request.Context(), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, result.Filename, result.ContentType, result.Body)
}
