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

type studyHallRepository interface {
	List(ctx context.Context) ([]models.StudyHall, error)
	FindByID(ctx context.Context, id string) (*models.StudyHall, error)
	ExistsByName(ctx context.Context, name string, excludeID string) (bool, error)
	Create(ctx context.Context, hall *models.StudyHall) error
	Update(ctx context.Context, hall *models.StudyHall) error
	Delete(ctx context.Context, id string) error
}

type hallOccupancyCounter interface {
	CountByHall(ctx context.Context, name string) (int, error)
}

// StudyHallRequest is the payload for creating or updating a hall.
type StudyHallRequest struct {
	Name        string  `json:"name" validate:"required"`
	Capacity    int     `json:"capacity" validate:"gt=0"`
	Location    string  `json:"location" validate:"required"`
	Description *string `json:"description"`
}

// StudyHallService manages study halls.
type StudyHallService struct {
	repo      studyHallRepository
	students  hallOccupancyCounter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudyHallService constructs the service.
func NewStudyHallService(repo studyHallRepository, students hallOccupancyCounter, validate *validator.Validate, logger *zap.Logger) *StudyHallService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudyHallService{repo: repo, students: students, validator: validate, logger: logger}
}

// List returns all halls ordered by name.
func (s *StudyHallService) List(ctx context.Context) ([]models.StudyHall, error) {
	halls, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Store(err, "failed to list study halls")
	}
	if halls == nil {
		halls = []models.StudyHall{}
	}
	return halls, nil
}

// Get returns a hall by id.
func (s *StudyHallService) Get(ctx context.Context, id string) (*models.StudyHall, error) {
	hall, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupFailed(err, "study hall", id)
	}
	return hall, nil
}

// Create adds a hall with a unique name.
func (s *StudyHallService) Create(ctx context.Context, req StudyHallRequest) (*models.StudyHall, error) {
	if err := s.prepare(&req); err != nil {
		return nil, err
	}
	if err := s.ensureUniqueName(ctx, req.Name, ""); err != nil {
		return nil, err
	}
	hall := &models.StudyHall{
		Name:        req.Name,
		Capacity:    req.Capacity,
		Location:    req.Location,
		Description: req.Description,
	}
	if err := s.repo.Create(ctx, hall); err != nil {
		return nil, persistFailed(err, "failed to create study hall")
	}
	s.logger.Info("study hall created", zap.String("hall_id", hall.ID), zap.String("name", hall.Name))
	return hall, nil
}

// Update replaces a hall's fields. Renaming does not touch students that reference the old name.
func (s *StudyHallService) Update(ctx context.Context, id string, req StudyHallRequest) (*models.StudyHall, error) {
	if err := s.prepare(&req); err != nil {
		return nil, err
	}
	hall, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupFailed(err, "study hall", id)
	}
	if err := s.ensureUniqueName(ctx, req.Name, id); err != nil {
		return nil, err
	}
	if hall.Name != req.Name {
		s.logger.Warn("study hall renamed; students keep the previous hall name",
			zap.String("hall_id", id), zap.String("from", hall.Name), zap.String("to", req.Name))
	}

	hall.Name = req.Name
	hall.Capacity = req.Capacity
	hall.Location = req.Location
	hall.Description = req.Description
	if err := s.repo.Update(ctx, hall); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, lookupFailed(err, "study hall", id)
		}
		return nil, persistFailed(err, fmt.Sprintf("failed to update study hall %s", id))
	}
	return hall, nil
}

// Delete removes a hall that no student references by name.
func (s *StudyHallService) Delete(ctx context.Context, id string) error {
	hall, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return lookupFailed(err, "study hall", id)
	}
	count, err := s.students.CountByHall(ctx, hall.Name)
	if err != nil {
		return appErrors.Store(err, fmt.Sprintf("failed to count students of hall %q", hall.Name))
	}
	if count > 0 {
		return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("study hall %q still has %d student(s)", hall.Name, count))
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return lookupFailed(err, "study hall", id)
		}
		return appErrors.Store(err, fmt.Sprintf("failed to delete study hall %s", id))
	}
	s.logger.Info("study hall deleted", zap.String("hall_id", id), zap.String("name", hall.Name))
	return nil
}

func (s *StudyHallService) prepare(req *StudyHallRequest) error {
	trimAll(&req.Name, &req.Location)
	if req.Description != nil {
		trimAll(req.Description)
		if *req.Description == "" {
			req.Description = nil
		}
	}
	if err := s.validator.Struct(req); err != nil {
		return invalid(err, "study hall")
	}
	return nil
}

func (s *StudyHallService) ensureUniqueName(ctx context.Context, name, excludeID string) error {
	exists, err := s.repo.ExistsByName(ctx, name, excludeID)
	if err != nil {
		return appErrors.Store(err, "failed to check study hall name")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrDuplicateName, fmt.Sprintf("study hall name %q already exists", name))
	}
	return nil
}

// persistFailed keeps a DuplicateName raised by the store's unique index and
// reports anything else as StoreUnavailable.
func persistFailed(err error, message string) error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) && appErr.Code == appErrors.ErrDuplicateName.Code {
		return appErr
	}
	return appErrors.Store(err, message)
}
