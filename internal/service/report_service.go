package service

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/noah-isme/study-hall-api/internal/models"
	appErrors "github.com/noah-isme/study-hall-api/pkg/errors"
)

type ledgerReader interface {
	ListAll(ctx context.Context) ([]models.Student, error)
}

type hallLister interface {
	List(ctx context.Context) ([]models.StudyHall, error)
}

// ReportService computes read-only ledger aggregates from current store state.
// Nothing here is cached; each call reads the store afresh.
type ReportService struct {
	students ledgerReader
	halls    hallLister
	logger   *zap.Logger
}

// NewReportService constructs a ReportService.
func NewReportService(students ledgerReader, halls hallLister, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{students: students, halls: halls, logger: logger}
}

// DashboardSummary returns system-wide counts and money totals.
func (s *ReportService) DashboardSummary(ctx context.Context) (*models.DashboardSummary, error) {
	students, err := s.listStudents(ctx)
	if err != nil {
		return nil, err
	}
	halls, err := s.listHalls(ctx)
	if err != nil {
		return nil, err
	}

	summary := &models.DashboardSummary{TotalStudents: len(students), TotalHalls: len(halls)}
	for _, st := range students {
		if st.Active() {
			summary.ActiveStudents++
			summary.MonthlyRevenue += st.MonthlyFee
		} else {
			summary.LeftStudents++
		}
		summary.TotalFeesCollected += st.FeePaid
		summary.TotalFeesPending += st.FeeDue
		summary.TotalFeeAmount += st.FeePaid + st.FeeDue
		if st.FeeDue > 0 {
			summary.StudentsWithPending++
		}
	}
	return summary, nil
}

// UpcomingFees lists active fee-paying students by the date of their next charge.
// Ties are ordered by name, then id.
func (s *ReportService) UpcomingFees(ctx context.Context) ([]models.UpcomingFee, error) {
	students, err := s.listStudents(ctx)
	if err != nil {
		return nil, err
	}

	upcoming := make([]models.UpcomingFee, 0, len(students))
	for _, st := range students {
		if !st.Active() || st.MonthlyFee <= 0 {
			continue
		}
		upcoming = append(upcoming, models.UpcomingFee{Student: st, NextFeeDate: NextFeeDate(st)})
	}
	sort.SliceStable(upcoming, func(i, j int) bool {
		a, b := upcoming[i], upcoming[j]
		if !a.NextFeeDate.Equal(b.NextFeeDate.Time) {
			return a.NextFeeDate.Before(b.NextFeeDate)
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID < b.ID
	})
	return upcoming, nil
}

// FeeCollectionReport summarises every hall, including empty ones, ordered by name.
// Students whose hall names no existing hall are left out.
func (s *ReportService) FeeCollectionReport(ctx context.Context) ([]models.HallFeeCollection, error) {
	halls, err := s.listHalls(ctx)
	if err != nil {
		return nil, err
	}
	students, err := s.listStudents(ctx)
	if err != nil {
		return nil, err
	}

	byHall := make(map[string]*models.HallFeeCollection, len(halls))
	report := make([]models.HallFeeCollection, len(halls))
	sort.SliceStable(halls, func(i, j int) bool { return halls[i].Name < halls[j].Name })
	for i, hall := range halls {
		report[i] = models.HallFeeCollection{HallID: hall.ID, HallName: hall.Name}
		byHall[hall.Name] = &report[i]
	}

	orphans := 0
	for _, st := range students {
		row, ok := byHall[st.Hall]
		if !ok {
			orphans++
			continue
		}
		row.TotalStudents++
		row.FeesCollected += st.FeePaid
		row.FeesPending += st.FeeDue
		row.TotalFeeAmount += st.FeePaid + st.FeeDue
	}
	for i := range report {
		report[i].CollectionRate = CollectionRate(report[i].FeesCollected, report[i].TotalFeeAmount)
	}
	if orphans > 0 {
		s.logger.Debug("students reference unknown halls", zap.Int("count", orphans))
	}
	return report, nil
}

func (s *ReportService) listStudents(ctx context.Context) ([]models.Student, error) {
	students, err := s.students.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Store(err, "failed to read student ledger")
	}
	return students, nil
}

func (s *ReportService) listHalls(ctx context.Context) ([]models.StudyHall, error) {
	halls, err := s.halls.List(ctx)
	if err != nil {
		return nil, appErrors.Store(err, "failed to list study halls")
	}
	return halls, nil
}
