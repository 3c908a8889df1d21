package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/study-hall-api/internal/models"
)

const studentColumns = `id, name, cabin, hall, phone, fee_paid, fee_due, status, join_date, left_date, monthly_fee, last_fee_calculated_date, created_at, updated_at`

const (
	activeCondition   = "(left_date IS NULL OR left_date = '')"
	departedCondition = "(left_date IS NOT NULL AND left_date <> '')"
	accrualCondition  = activeCondition + " AND monthly_fee > 0 AND (last_fee_calculated_date IS NULL OR last_fee_calculated_date = '' OR last_fee_calculated_date < ?)"
)

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns students matching the provided filters.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.Hall != "" {
		conditions = append(conditions, "hall = ?")
		args = append(args, filter.Hall)
	}
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.Active != nil {
		if *filter.Active {
			conditions = append(conditions, activeCondition)
		} else {
			conditions = append(conditions, departedCondition)
		}
	}
	if filter.Search != "" {
		conditions = append(conditions, "(LOWER(name) LIKE ? OR LOWER(cabin) LIKE ? OR phone LIKE ?)")
		term := "%" + strings.ToLower(filter.Search) + "%"
		args = append(args, term, term, term)
	}

	where := "WHERE " + strings.Join(conditions, " AND ")

	allowedSorts := map[string]string{
		"name":       "name",
		"cabin":      "cabin",
		"hall":       "hall",
		"fee_due":    "fee_due",
		"join_date":  "join_date",
		"created_at": "created_at",
	}
	column, ok := allowedSorts[filter.SortBy]
	if !ok {
		column = "name"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s FROM students %s ORDER BY %s %s LIMIT %d OFFSET %d", studentColumns, where, column, order, size, offset)

	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, r.db.Rebind(query), args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, r.db.Rebind("SELECT COUNT(*) FROM students "+where), args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// ListAll returns every student ordered by name.
func (r *StudentRepository) ListAll(ctx context.Context) ([]models.Student, error) {
	var students []models.Student
	query := fmt.Sprintf("SELECT %s FROM students ORDER BY name", studentColumns)
	if err := r.db.SelectContext(ctx, &students, query); err != nil {
		return nil, fmt.Errorf("list all students: %w", err)
	}
	return students, nil
}

// FindByID fetches a student by ID; sql.ErrNoRows when absent.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	var student models.Student
	query := fmt.Sprintf("SELECT %s FROM students WHERE id = ?", studentColumns)
	if err := r.db.GetContext(ctx, &student, r.db.Rebind(query), id); err != nil {
		return nil, err
	}
	return &student, nil
}

// Create inserts a new student record.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now
	const query = `INSERT INTO students (id, name, cabin, hall, phone, fee_paid, fee_due, status, join_date, left_date, monthly_fee, last_fee_calculated_date, created_at, updated_at)
        VALUES (:id, :name, :cabin, :hall, :phone, :fee_paid, :fee_due, :status, :join_date, :left_date, :monthly_fee, :last_fee_calculated_date, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// Update overwrites the editable fields of a student. Lifecycle and accrual stamps are left alone.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET name = :name, cabin = :cabin, hall = :hall, phone = :phone, fee_paid = :fee_paid, fee_due = :fee_due, status = :status, join_date = :join_date, monthly_fee = :monthly_fee, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, student)
	if err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return requireRow(res, "update student")
}

// Delete removes a student.
func (r *StudentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind("DELETE FROM students WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	return requireRow(res, "delete student")
}

// SetLeftDate sets or clears (nil) the departure date of a student.
func (r *StudentRepository) SetLeftDate(ctx context.Context, id string, leftDate *models.Date) error {
	const query = "UPDATE students SET left_date = ?, updated_at = ? WHERE id = ?"
	res, err := r.db.ExecContext(ctx, r.db.Rebind(query), leftDate, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("set left date: %w", err)
	}
	return requireRow(res, "set left date")
}

// ListAccrualCandidates returns active fee-paying students whose last accrual is older than cutoff.
func (r *StudentRepository) ListAccrualCandidates(ctx context.Context, cutoff models.Date) ([]models.Student, error) {
	var students []models.Student
	query := fmt.Sprintf("SELECT %s FROM students WHERE %s ORDER BY id", studentColumns, accrualCondition)
	if err := r.db.SelectContext(ctx, &students, r.db.Rebind(query), cutoff); err != nil {
		return nil, fmt.Errorf("list accrual candidates: %w", err)
	}
	return students, nil
}

// ApplyAccrual writes one accrual cycle. It reports false when the record changed
// or stopped being eligible since it was read.
func (r *StudentRepository) ApplyAccrual(ctx context.Context, update models.AccrualUpdate) (bool, error) {
	query := "UPDATE students SET fee_due = ?, status = ?, last_fee_calculated_date = ?, updated_at = ? WHERE id = ? AND fee_due = ? AND monthly_fee = ? AND " + accrualCondition
	res, err := r.db.ExecContext(ctx, r.db.Rebind(query),
		update.NewFeeDue,
		update.Status,
		update.ReferenceDate,
		time.Now().UTC(),
		update.StudentID,
		update.PrevFeeDue,
		update.MonthlyFee,
		update.Cutoff,
	)
	if err != nil {
		return false, fmt.Errorf("apply accrual to %s: %w", update.StudentID, err)
	}
	return affected(res)
}

// ApplyPayment records a payment against the balance that was read.
func (r *StudentRepository) ApplyPayment(ctx context.Context, update models.PaymentUpdate) (bool, error) {
	const query = "UPDATE students SET fee_paid = fee_paid + ?, fee_due = ?, status = ?, updated_at = ? WHERE id = ? AND fee_due = ?"
	res, err := r.db.ExecContext(ctx, r.db.Rebind(query),
		update.Amount,
		update.NewFeeDue,
		update.Status,
		time.Now().UTC(),
		update.StudentID,
		update.PrevFeeDue,
	)
	if err != nil {
		return false, fmt.Errorf("apply payment to %s: %w", update.StudentID, err)
	}
	return affected(res)
}

// CountByHall counts students whose hall text equals name.
func (r *StudentRepository) CountByHall(ctx context.Context, name string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, r.db.Rebind("SELECT COUNT(*) FROM students WHERE hall = ?"), name); err != nil {
		return 0, fmt.Errorf("count students by hall: %w", err)
	}
	return count, nil
}

func affected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func requireRow(res sql.Result, op string) error {
	ok, err := affected(res)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		return sql.ErrNoRows
	}
	return nil
}
