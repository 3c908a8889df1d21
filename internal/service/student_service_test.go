package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/study-hall-api/internal/models"
	appErrors "github.com/noah-isme/study-hall-api/pkg/errors"
)

type mockStudentRepo struct {
	students   map[string]models.Student
	lastFilter models.StudentFilter
	listTotal  int
	err        error
	// stale makes ApplyPayment report a lost race.
	stale bool
}

func (m *mockStudentRepo) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	m.lastFilter = filter
	if m.err != nil {
		return nil, 0, m.err
	}
	out := make([]models.Student, 0, len(m.students))
	for _, s := range m.students {
		out = append(out, s)
	}
	return out, m.listTotal, nil
}

func (m *mockStudentRepo) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if m.err != nil {
		return nil, m.err
	}
	if s, ok := m.students[id]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockStudentRepo) Create(ctx context.Context, student *models.Student) error {
	if m.err != nil {
		return m.err
	}
	if m.students == nil {
		m.students = make(map[string]models.Student)
	}
	if student.ID == "" {
		student.ID = "generated"
	}
	m.students[student.ID] = *student
	return nil
}

func (m *mockStudentRepo) Update(ctx context.Context, student *models.Student) error {
	if _, ok := m.students[student.ID]; !ok {
		return sql.ErrNoRows
	}
	m.students[student.ID] = *student
	return nil
}

func (m *mockStudentRepo) Delete(ctx context.Context, id string) error {
	if m.err != nil {
		return m.err
	}
	if _, ok := m.students[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.students, id)
	return nil
}

func (m *mockStudentRepo) SetLeftDate(ctx context.Context, id string, leftDate *models.Date) error {
	s, ok := m.students[id]
	if !ok {
		return sql.ErrNoRows
	}
	s.LeftDate = leftDate
	m.students[id] = s
	return nil
}

func (m *mockStudentRepo) ApplyPayment(ctx context.Context, update models.PaymentUpdate) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	s, ok := m.students[update.StudentID]
	if !ok || m.stale || s.FeeDue != update.PrevFeeDue {
		return false, nil
	}
	s.FeePaid += update.Amount
	s.FeeDue = update.NewFeeDue
	s.Status = update.Status
	m.students[s.ID] = s
	return true, nil
}

type mockHallNames struct {
	names map[string]bool
	err   error
}

func (m *mockHallNames) ExistsByName(ctx context.Context, name string, excludeID string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	return m.names[name], nil
}

func fixedToday(raw string) func() models.Date {
	return func() models.Date { return models.MustParseDate(raw) }
}

func newTestStudentService(repo *mockStudentRepo, halls *mockHallNames) *StudentService {
	var lookup hallNameLookup
	if halls != nil {
		lookup = halls
	}
	svc := NewStudentService(repo, lookup, nil, zap.NewNop())
	svc.today = fixedToday("2024-05-01")
	return svc
}

func TestStudentServiceCreateDerivesStatus(t *testing.T) {
	repo := &mockStudentRepo{}
	svc := newTestStudentService(repo, &mockHallNames{names: map[string]bool{"Hall A": true}})

	pending, err := svc.Create(context.Background(), CreateStudentRequest{
		Name: " Asha ", Cabin: "C1", Hall: "Hall A", Phone: "555", FeeDue: 300, MonthlyFee: 500,
	})
	require.NoError(t, err)
	assert.Equal(t, "Asha", pending.Name)
	assert.Equal(t, models.FeeStatusPending, pending.Status)
	assert.Equal(t, "2024-05-01", pending.JoinDate.String())
	assert.True(t, pending.Active())
	assert.Nil(t, pending.LastFeeCalculatedDate)

	join := models.MustParseDate("2024-01-15")
	repo.students = nil
	paid, err := svc.Create(context.Background(), CreateStudentRequest{
		Name: "Ben", Cabin: "C2", Hall: "Hall A", Phone: "556", FeePaid: 500, JoinDate: &join,
	})
	require.NoError(t, err)
	assert.Equal(t, models.FeeStatusPaid, paid.Status)
	assert.Equal(t, "2024-01-15", paid.JoinDate.String())
}

func TestStudentServiceCreateValidation(t *testing.T) {
	svc := newTestStudentService(&mockStudentRepo{}, &mockHallNames{names: map[string]bool{"Hall A": true}})

	_, err := svc.Create(context.Background(), CreateStudentRequest{Name: "Asha", Hall: "Hall A", Phone: "555"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "cabin")

	_, err = svc.Create(context.Background(), CreateStudentRequest{Name: "Asha", Cabin: "C1", Hall: "Hall A", Phone: "555", FeeDue: -1})
	require.Error(t, err)
	assert.Contains(t, appErrors.FromError(err).Message, "feeDue")

	_, err = svc.Create(context.Background(), CreateStudentRequest{Name: "Asha", Cabin: "C1", Hall: "Hall Z", Phone: "555"})
	require.Error(t, err)
	appErr = appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "Hall Z")
}

func TestStudentServiceCreateStoreFailure(t *testing.T) {
	repo := &mockStudentRepo{err: errors.New("disk full")}
	svc := newTestStudentService(repo, nil)

	_, err := svc.Create(context.Background(), CreateStudentRequest{Name: "Asha", Cabin: "C1", Hall: "Hall A", Phone: "555"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStoreUnavailable.Code, appErrors.FromError(err).Code)
}

func TestStudentServiceListDefaultsPagination(t *testing.T) {
	repo := &mockStudentRepo{students: map[string]models.Student{"s1": {ID: "s1"}}, listTotal: 1}
	svc := newTestStudentService(repo, nil)

	active := true
	students, pagination, err := svc.List(context.Background(), models.StudentFilter{Hall: "Hall A", Active: &active, PageSize: 500})
	require.NoError(t, err)
	assert.Len(t, students, 1)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 20, pagination.PageSize)
	assert.Equal(t, 1, pagination.TotalCount)
	assert.Equal(t, "Hall A", repo.lastFilter.Hall)
}

func TestStudentServiceGetNotFound(t *testing.T) {
	svc := newTestStudentService(&mockStudentRepo{}, nil)

	_, err := svc.Get(context.Background(), "missing")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "missing")
}

func TestStudentServiceUpdateKeepsLifecycleFields(t *testing.T) {
	left := models.MustParseDate("2024-04-01")
	stamp := models.MustParseDate("2024-03-02")
	repo := &mockStudentRepo{students: map[string]models.Student{
		"s1": {ID: "s1", Name: "Asha", Cabin: "C1", Hall: "Hall A", Phone: "555", FeeDue: 500, Status: models.FeeStatusPending,
			JoinDate: models.MustParseDate("2024-01-01"), LeftDate: &left, LastFeeCalculatedDate: &stamp, MonthlyFee: 500},
	}}
	svc := newTestStudentService(repo, nil)

	updated, err := svc.Update(context.Background(), "s1", UpdateStudentRequest{
		Name: "Asha K", Cabin: "C9", Hall: "Hall B", Phone: "555", FeePaid: 500, FeeDue: 0, MonthlyFee: 600,
	})
	require.NoError(t, err)
	assert.Equal(t, models.FeeStatusPaid, updated.Status)
	assert.Equal(t, "C9", updated.Cabin)
	require.NotNil(t, updated.LeftDate)
	assert.Equal(t, "2024-04-01", updated.LeftDate.String())
	require.NotNil(t, updated.LastFeeCalculatedDate)
	assert.Equal(t, "2024-03-02", updated.LastFeeCalculatedDate.String())
	assert.Equal(t, "2024-01-01", updated.JoinDate.String())

	_, err = svc.Update(context.Background(), "nope", UpdateStudentRequest{Name: "X", Cabin: "C", Hall: "H", Phone: "1"})
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestStudentServiceDelete(t *testing.T) {
	repo := &mockStudentRepo{students: map[string]models.Student{"s1": {ID: "s1"}}}
	svc := newTestStudentService(repo, nil)

	require.NoError(t, svc.Delete(context.Background(), "s1"))
	assert.Empty(t, repo.students)

	err := svc.Delete(context.Background(), "s1")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestStudentServiceMarkLeftAndReactivate(t *testing.T) {
	stamp := models.MustParseDate("2024-02-02")
	repo := &mockStudentRepo{students: map[string]models.Student{
		"s1": {ID: "s1", FeeDue: 500, FeePaid: 100, LastFeeCalculatedDate: &stamp},
	}}
	svc := newTestStudentService(repo, nil)

	date, err := svc.MarkLeft(context.Background(), "s1", nil)
	require.NoError(t, err)
	assert.Equal(t, "2024-05-01", date.String())
	stored := repo.students["s1"]
	assert.False(t, stored.Active())
	assert.Equal(t, int64(500), stored.FeeDue)
	assert.Equal(t, int64(100), stored.FeePaid)

	explicit := models.MustParseDate("2024-04-20")
	date, err = svc.MarkLeft(context.Background(), "s1", &explicit)
	require.NoError(t, err)
	assert.Equal(t, "2024-04-20", date.String())

	require.NoError(t, svc.Reactivate(context.Background(), "s1"))
	stored = repo.students["s1"]
	assert.True(t, stored.Active())
	require.NotNil(t, stored.LastFeeCalculatedDate)
	assert.Equal(t, "2024-02-02", stored.LastFeeCalculatedDate.String())

	_, err = svc.MarkLeft(context.Background(), "ghost", nil)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	err = svc.Reactivate(context.Background(), "ghost")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestStudentServiceRecordPayment(t *testing.T) {
	repo := &mockStudentRepo{students: map[string]models.Student{
		"s1": {ID: "s1", FeePaid: 0, FeeDue: 500, Status: models.FeeStatusPending},
	}}
	svc := newTestStudentService(repo, nil)

	student, err := svc.RecordPayment(context.Background(), "s1", RecordPaymentRequest{Amount: 200})
	require.NoError(t, err)
	assert.Equal(t, int64(200), student.FeePaid)
	assert.Equal(t, int64(300), student.FeeDue)
	assert.Equal(t, models.FeeStatusPending, student.Status)

	student, err = svc.RecordPayment(context.Background(), "s1", RecordPaymentRequest{Amount: 300})
	require.NoError(t, err)
	assert.Equal(t, int64(0), student.FeeDue)
	assert.Equal(t, models.FeeStatusPaid, student.Status)
	assert.Equal(t, models.FeeStatusPaid, repo.students["s1"].Status)
}

func TestStudentServiceRecordPaymentRejects(t *testing.T) {
	repo := &mockStudentRepo{students: map[string]models.Student{"s1": {ID: "s1", FeeDue: 100}}}
	svc := newTestStudentService(repo, nil)

	_, err := svc.RecordPayment(context.Background(), "s1", RecordPaymentRequest{Amount: 0})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.RecordPayment(context.Background(), "s1", RecordPaymentRequest{Amount: 101})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	repo.stale = true
	_, err = svc.RecordPayment(context.Background(), "s1", RecordPaymentRequest{Amount: 50})
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Equal(t, int64(100), repo.students["s1"].FeeDue)
}
