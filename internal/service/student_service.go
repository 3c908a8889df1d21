package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/study-hall-api/internal/models"
	appErrors "github.com/noah-isme/study-hall-api/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, id string) error
	SetLeftDate(ctx context.Context, id string, leftDate *models.Date) error
	ApplyPayment(ctx context.Context, update models.PaymentUpdate) (bool, error)
}

type hallNameLookup interface {
	ExistsByName(ctx context.Context, name string, excludeID string) (bool, error)
}

// CreateStudentRequest holds payload for creating students.
type CreateStudentRequest struct {
	Name       string       `json:"name" validate:"required"`
	Cabin      string       `json:"cabin" validate:"required"`
	Hall       string       `json:"hall" validate:"required"`
	Phone      string       `json:"phone" validate:"required"`
	FeePaid    int64        `json:"feePaid" validate:"gte=0"`
	FeeDue     int64        `json:"feeDue" validate:"gte=0"`
	MonthlyFee int64        `json:"monthlyFee" validate:"gte=0"`
	JoinDate   *models.Date `json:"joinDate"`
}

// UpdateStudentRequest carries the full editable field set of a student.
type UpdateStudentRequest struct {
	Name       string       `json:"name" validate:"required"`
	Cabin      string       `json:"cabin" validate:"required"`
	Hall       string       `json:"hall" validate:"required"`
	Phone      string       `json:"phone" validate:"required"`
	FeePaid    int64        `json:"feePaid" validate:"gte=0"`
	FeeDue     int64        `json:"feeDue" validate:"gte=0"`
	MonthlyFee int64        `json:"monthlyFee" validate:"gte=0"`
	JoinDate   *models.Date `json:"joinDate"`
}

// MarkLeftRequest optionally names the departure date.
type MarkLeftRequest struct {
	LeftDate *models.Date `json:"leftDate"`
}

// RecordPaymentRequest registers money received from a student.
type RecordPaymentRequest struct {
	Amount int64 `json:"amount" validate:"gt=0"`
}

// StudentService handles student records, their lifecycle and manual payments.
type StudentService struct {
	repo      studentRepository
	halls     hallNameLookup
	validator *validator.Validate
	logger    *zap.Logger
	today     func() models.Date
}

// NewStudentService constructs the student service.
func NewStudentService(repo studentRepository, halls hallNameLookup, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, halls: halls, validator: validate, logger: logger, today: models.Today}
}

// List returns students and pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Store(err, "failed to list students")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	if students == nil {
		students = []models.Student{}
	}
	return students, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a single student.
func (s *StudentService) Get(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupFailed(err, "student", id)
	}
	return student, nil
}

// Create registers a new student. The hall must name an existing study hall.
func (s *StudentService) Create(ctx context.Context, req CreateStudentRequest) (*models.Student, error) {
	trimAll(&req.Name, &req.Cabin, &req.Hall, &req.Phone)
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "student")
	}
	if s.halls != nil {
		exists, err := s.halls.ExistsByName(ctx, req.Hall, "")
		if err != nil {
			return nil, appErrors.Store(err, fmt.Sprintf("failed to look up hall %q", req.Hall))
		}
		if !exists {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("hall %q does not exist", req.Hall))
		}
	}

	joinDate := s.today()
	if req.JoinDate != nil && !req.JoinDate.IsZero() {
		joinDate = *req.JoinDate
	}
	student := &models.Student{
		Name:       req.Name,
		Cabin:      req.Cabin,
		Hall:       req.Hall,
		Phone:      req.Phone,
		FeePaid:    req.FeePaid,
		FeeDue:     req.FeeDue,
		Status:     DeriveStatus(req.FeeDue),
		JoinDate:   joinDate,
		MonthlyFee: req.MonthlyFee,
	}
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, appErrors.Store(err, "failed to create student")
	}
	s.logger.Info("student created", zap.String("student_id", student.ID), zap.String("hall", student.Hall))
	return student, nil
}

// Update replaces the editable fields of a student and re-derives its status.
// Departure and accrual stamps are managed elsewhere and are kept.
func (s *StudentService) Update(ctx context.Context, id string, req UpdateStudentRequest) (*models.Student, error) {
	trimAll(&req.Name, &req.Cabin, &req.Hall, &req.Phone)
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "student")
	}
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupFailed(err, "student", id)
	}

	student.Name = req.Name
	student.Cabin = req.Cabin
	student.Hall = req.Hall
	student.Phone = req.Phone
	student.FeePaid = req.FeePaid
	student.FeeDue = req.FeeDue
	student.MonthlyFee = req.MonthlyFee
	student.Status = DeriveStatus(req.FeeDue)
	if req.JoinDate != nil && !req.JoinDate.IsZero() {
		student.JoinDate = *req.JoinDate
	}

	if err := s.repo.Update(ctx, student); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, lookupFailed(err, "student", id)
		}
		return nil, appErrors.Store(err, fmt.Sprintf("failed to update student %s", id))
	}
	return student, nil
}

// Delete removes a student permanently.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return lookupFailed(err, "student", id)
		}
		return appErrors.Store(err, fmt.Sprintf("failed to delete student %s", id))
	}
	s.logger.Info("student deleted", zap.String("student_id", id))
	return nil
}

// MarkLeft records a departure; nil or zero dates mean today. Balances are untouched.
func (s *StudentService) MarkLeft(ctx context.Context, id string, leftDate *models.Date) (models.Date, error) {
	date := s.today()
	if leftDate != nil && !leftDate.IsZero() {
		date = *leftDate
	}
	if err := s.repo.SetLeftDate(ctx, id, &date); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Date{}, lookupFailed(err, "student", id)
		}
		return models.Date{}, appErrors.Store(err, fmt.Sprintf("failed to mark student %s as left", id))
	}
	s.logger.Info("student left", zap.String("student_id", id), zap.String("left_date", date.String()))
	return date, nil
}

// Reactivate clears the departure date. The last accrual stamp is kept, so the
// departed interval is never back-billed.
func (s *StudentService) Reactivate(ctx context.Context, id string) error {
	if err := s.repo.SetLeftDate(ctx, id, nil); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return lookupFailed(err, "student", id)
		}
		return appErrors.Store(err, fmt.Sprintf("failed to reactivate student %s", id))
	}
	s.logger.Info("student reactivated", zap.String("student_id", id))
	return nil
}

// RecordPayment moves amount from the outstanding balance to the paid total.
func (s *StudentService) RecordPayment(ctx context.Context, id string, req RecordPaymentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "payment")
	}
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupFailed(err, "student", id)
	}
	if req.Amount > student.FeeDue {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("payment of %d exceeds outstanding balance %d of student %s", req.Amount, student.FeeDue, id))
	}

	newDue := student.FeeDue - req.Amount
	update := models.PaymentUpdate{
		StudentID:  id,
		PrevFeeDue: student.FeeDue,
		NewFeeDue:  newDue,
		Amount:     req.Amount,
		Status:     DeriveStatus(newDue),
	}
	applied, err := s.repo.ApplyPayment(ctx, update)
	if err != nil {
		return nil, appErrors.Store(err, fmt.Sprintf("failed to record payment for student %s", id))
	}
	if !applied {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("balance of student %s changed while recording payment", id))
	}

	student.FeePaid += req.Amount
	student.FeeDue = newDue
	student.Status = update.Status
	s.logger.Info("payment recorded", zap.String("student_id", id), zap.Int64("amount", req.Amount))
	return student, nil
}
