package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/study-hall-api/internal/models"
	appErrors "github.com/noah-isme/study-hall-api/pkg/errors"
)

const studyHallColumns = `id, name, capacity, location, description, created_at, updated_at`

// StudyHallRepository manages persistence for study halls.
type StudyHallRepository struct {
	db *sqlx.DB
}

// NewStudyHallRepository constructs a StudyHallRepository.
func NewStudyHallRepository(db *sqlx.DB) *StudyHallRepository {
	return &StudyHallRepository{db: db}
}

// List returns every hall ordered by name.
func (r *StudyHallRepository) List(ctx context.Context) ([]models.StudyHall, error) {
	var halls []models.StudyHall
	query := fmt.Sprintf("SELECT %s FROM study_halls ORDER BY name", studyHallColumns)
	if err := r.db.SelectContext(ctx, &halls, query); err != nil {
		return nil, fmt.Errorf("list study halls: %w", err)
	}
	return halls, nil
}

// FindByID fetches a hall by ID; sql.ErrNoRows when absent.
func (r *StudyHallRepository) FindByID(ctx context.Context, id string) (*models.StudyHall, error) {
	var hall models.StudyHall
	query := fmt.Sprintf("SELECT %s FROM study_halls WHERE id = ?", studyHallColumns)
	if err := r.db.GetContext(ctx, &hall, r.db.Rebind(query), id); err != nil {
		return nil, err
	}
	return &hall, nil
}

// ExistsByName checks if a hall with the given name exists optionally excluding an ID.
func (r *StudyHallRepository) ExistsByName(ctx context.Context, name string, excludeID string) (bool, error) {
	query := "SELECT 1 FROM study_halls WHERE name = ?"
	args := []interface{}{name}
	if excludeID != "" {
		query += " AND id <> ?"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, r.db.Rebind(query+" LIMIT 1"), args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check hall name: %w", err)
	}
	return true, nil
}

// Create inserts a new hall.
func (r *StudyHallRepository) Create(ctx context.Context, hall *models.StudyHall) error {
	if hall.ID == "" {
		hall.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if hall.CreatedAt.IsZero() {
		hall.CreatedAt = now
	}
	hall.UpdatedAt = now
	const query = `INSERT INTO study_halls (id, name, capacity, location, description, created_at, updated_at)
        VALUES (:id, :name, :capacity, :location, :description, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, hall); err != nil {
		if IsUniqueViolation(err) {
			return duplicateHallName(err, hall.Name)
		}
		return fmt.Errorf("create study hall: %w", err)
	}
	return nil
}

// Update modifies an existing hall. Students keep their hall text when the name changes.
func (r *StudyHallRepository) Update(ctx context.Context, hall *models.StudyHall) error {
	hall.UpdatedAt = time.Now().UTC()
	const query = `UPDATE study_halls SET name = :name, capacity = :capacity, location = :location, description = :description, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, hall)
	if err != nil {
		if IsUniqueViolation(err) {
			return duplicateHallName(err, hall.Name)
		}
		return fmt.Errorf("update study hall: %w", err)
	}
	return requireRow(res, "update study hall")
}

// Delete removes a hall. Callers check for referencing students first.
func (r *StudyHallRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind("DELETE FROM study_halls WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("delete study hall: %w", err)
	}
	return requireRow(res, "delete study hall")
}

func duplicateHallName(err error, name string) error {
	return appErrors.Wrap(err, appErrors.ErrDuplicateName.Code, appErrors.ErrDuplicateName.Status, fmt.Sprintf("study hall name %q already exists", name))
}
