package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/study-hall-api/internal/models"
	appErrors "github.com/noah-isme/study-hall-api/pkg/errors"
	"github.com/noah-isme/study-hall-api/pkg/export"
)

type feeCollectionSource interface {
	FeeCollectionReport(ctx context.Context) ([]models.HallFeeCollection, error)
}

type datasetRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// ExportResult is a rendered report ready to be sent as an attachment.
type ExportResult struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ExportService renders ledger reports into downloadable files.
type ExportService struct {
	reports feeCollectionSource
	csv     datasetRenderer
	pdf     datasetRenderer
	logger  *zap.Logger
	now     func() time.Time
}

// NewExportService constructs an ExportService; nil renderers fall back to pkg/export defaults.
func NewExportService(reports feeCollectionSource, csv, pdf datasetRenderer, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{reports: reports, csv: csv, pdf: pdf, logger: logger, now: time.Now}
}

var feeCollectionHeaders = []string{"Hall", "Students", "Collected", "Pending", "Total", "Collection Rate"}

// ExportFeeCollection renders the fee-collection report with a totals row.
func (s *ExportService) ExportFeeCollection(ctx context.Context, format export.Format) (*ExportResult, error) {
	if format == "" {
		format = export.FormatCSV
	}
	if !format.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
	rows, err := s.reports.FeeCollectionReport(ctx)
	if err != nil {
		return nil, err
	}

	dataset := feeCollectionDataset(rows)
	renderer := s.csv
	if format == export.FormatPDF {
		renderer = s.pdf
	}
	body, err := renderer.Render(dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("failed to render %s export", format))
	}

	filename := fmt.Sprintf("fee_collection_%s.%s", s.now().UTC().Format("20060102_150405"), format)
	s.logger.Info("fee collection exported", zap.String("format", string(format)), zap.Int("halls", len(rows)), zap.Int("bytes", len(body)))
	return &ExportResult{Filename: filename, ContentType: format.ContentType(), Body: body}, nil
}

func feeCollectionDataset(rows []models.HallFeeCollection) export.Dataset {
	data := export.Dataset{
		Title:   "Fee Collection Report",
		Headers: feeCollectionHeaders,
		Rows:    make([]map[string]string, 0, len(rows)),
	}
	var students int
	var collected, pending, total int64
	for _, r := range rows {
		data.Rows = append(data.Rows, map[string]string{
			"Hall":            r.HallName,
			"Students":        strconv.Itoa(r.TotalStudents),
			"Collected":       strconv.FormatInt(r.FeesCollected, 10),
			"Pending":         strconv.FormatInt(r.FeesPending, 10),
			"Total":           strconv.FormatInt(r.TotalFeeAmount, 10),
			"Collection Rate": r.CollectionRate,
		})
		students += r.TotalStudents
		collected += r.FeesCollected
		pending += r.FeesPending
		total += r.TotalFeeAmount
	}
	data.Footer = map[string]string{
		"Hall":            "Total",
		"Students":        strconv.Itoa(students),
		"Collected":       strconv.FormatInt(collected, 10),
		"Pending":         strconv.FormatInt(pending, 10),
		"Total":           strconv.FormatInt(total, 10),
		"Collection Rate": CollectionRate(collected, total),
	}
	return data
}
