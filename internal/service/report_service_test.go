package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/study-hall-api/internal/models"
	appErrors "github.com/noah-isme/study-hall-api/pkg/errors"
)

type stubLedger struct {
	students []models.Student
	err      error
}

func (s *stubLedger) ListAll(ctx context.Context) ([]models.Student, error) {
	return s.students, s.err
}

type stubHalls struct {
	halls []models.StudyHall
	err   error
}

func (s *stubHalls) List(ctx context.Context) ([]models.StudyHall, error) {
	return s.halls, s.err
}

func TestReportServiceDashboardSummary(t *testing.T) {
	ledger := &stubLedger{students: []models.Student{
		{ID: "1", FeePaid: 1000, FeeDue: 0, MonthlyFee: 500},
		{ID: "2", FeePaid: 200, FeeDue: 300, MonthlyFee: 300, LeftDate: &models.Date{}},
		{ID: "3", FeePaid: 50, FeeDue: 450, MonthlyFee: 400, LeftDate: datePtr("2024-02-01")},
	}}
	svc := NewReportService(ledger, &stubHalls{halls: []models.StudyHall{{ID: "h1"}, {ID: "h2"}}}, zap.NewNop())

	summary, err := svc.DashboardSummary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.DashboardSummary{
		TotalStudents:       3,
		TotalHalls:          2,
		ActiveStudents:      2,
		LeftStudents:        1,
		MonthlyRevenue:      800,
		TotalFeesCollected:  1250,
		TotalFeesPending:    750,
		TotalFeeAmount:      2000,
		StudentsWithPending: 2,
	}, *summary)
}

func TestReportServiceDashboardSummaryEmpty(t *testing.T) {
	svc := NewReportService(&stubLedger{}, &stubHalls{}, nil)

	summary, err := svc.DashboardSummary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.DashboardSummary{}, *summary)
}

func TestReportServiceUpcomingFees(t *testing.T) {
	ledger := &stubLedger{students: []models.Student{
		{ID: "z", Name: "Zed", MonthlyFee: 100, JoinDate: models.MustParseDate("2024-03-10")},
		{ID: "a", Name: "Asha", MonthlyFee: 100, JoinDate: models.MustParseDate("2024-01-01"), LastFeeCalculatedDate: datePtr("2024-02-10")},
		{ID: "b", Name: "Ben", MonthlyFee: 100, JoinDate: models.MustParseDate("2024-02-01")},
		{ID: "gone", Name: "Gone", MonthlyFee: 100, JoinDate: models.MustParseDate("2024-01-01"), LeftDate: datePtr("2024-02-01")},
		{ID: "free", Name: "Free", MonthlyFee: 0, JoinDate: models.MustParseDate("2024-01-01")},
	}}
	svc := NewReportService(ledger, &stubHalls{}, zap.NewNop())

	upcoming, err := svc.UpcomingFees(context.Background())
	require.NoError(t, err)
	require.Len(t, upcoming, 3)
	assert.Equal(t, "b", upcoming[0].ID)
	assert.Equal(t, "2024-02-01", upcoming[0].NextFeeDate.String())
	assert.Equal(t, "a", upcoming[1].ID)
	assert.Equal(t, "z", upcoming[2].ID)
	assert.Equal(t, "2024-03-10", upcoming[1].NextFeeDate.String())
	assert.Equal(t, "2024-03-10", upcoming[2].NextFeeDate.String())
}

func TestReportServiceUpcomingFeesAfterAccrual(t *testing.T) {
	ledger := &memoryLedger{students: map[string]models.Student{
		"s": {ID: "s", Name: "Sam", MonthlyFee: 500, JoinDate: models.MustParseDate("2024-03-10")},
	}}
	reader := &stubLedger{}
	svc := NewReportService(reader, &stubHalls{}, zap.NewNop())

	reader.students = []models.Student{ledger.students["s"]}
	upcoming, err := svc.UpcomingFees(context.Background())
	require.NoError(t, err)
	require.Len(t, upcoming, 1)
	assert.Equal(t, "2024-03-10", upcoming[0].NextFeeDate.String())

	accrual := newTestAccrualService(ledger, &memoryRuns{}, nil)
	_, err = accrual.RunMonthlyAccrual(context.Background(), models.MustParseDate("2024-03-10"), models.AccrualTriggerManual)
	require.NoError(t, err)

	reader.students = []models.Student{ledger.students["s"]}
	upcoming, err = svc.UpcomingFees(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2024-04-10", upcoming[0].NextFeeDate.String())
}

func TestReportServiceFeeCollectionReport(t *testing.T) {
	halls := &stubHalls{halls: []models.StudyHall{
		{ID: "h2", Name: "Hall B"},
		{ID: "h1", Name: "Hall A"},
		{ID: "h3", Name: "Hall C"},
	}}
	ledger := &stubLedger{students: []models.Student{
		{ID: "1", Hall: "Hall B", FeePaid: 200, FeeDue: 100},
		{ID: "2", Hall: "Hall B", FeePaid: 0, FeeDue: 0, LeftDate: datePtr("2024-01-01")},
		{ID: "3", Hall: "Hall C", FeePaid: 0, FeeDue: 0},
		{ID: "4", Hall: "Hall Gone", FeePaid: 999, FeeDue: 1},
	}}
	svc := NewReportService(ledger, halls, zap.NewNop())

	report, err := svc.FeeCollectionReport(context.Background())
	require.NoError(t, err)
	require.Len(t, report, 3)

	assert.Equal(t, models.HallFeeCollection{HallID: "h1", HallName: "Hall A", CollectionRate: "0%"}, report[0])
	assert.Equal(t, models.HallFeeCollection{
		HallID: "h2", HallName: "Hall B", TotalStudents: 2,
		FeesCollected: 200, FeesPending: 100, TotalFeeAmount: 300, CollectionRate: "66.7%",
	}, report[1])
	assert.Equal(t, 1, report[2].TotalStudents)
	assert.Equal(t, "0%", report[2].CollectionRate)
}

func TestReportServiceStoreFailure(t *testing.T) {
	svc := NewReportService(&stubLedger{err: errors.New("closed")}, &stubHalls{}, zap.NewNop())

	_, err := svc.FeeCollectionReport(context.Background())
	assert.Equal(t, appErrors.ErrStoreUnavailable.Code, appErrors.FromError(err).Code)
	_, err = svc.UpcomingFees(context.Background())
	assert.Equal(t, appErrors.ErrStoreUnavailable.Code, appErrors.FromError(err).Code)
	_, err = svc.DashboardSummary(context.Background())
	assert.Equal(t, appErrors.ErrStoreUnavailable.Code, appErrors.FromError(err).Code)
}
