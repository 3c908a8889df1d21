package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/study-hall-api/internal/models"
	appErrors "github.com/noah-isme/study-hall-api/pkg/errors"
)

type accrualStudentStore interface {
	ListAccrualCandidates(ctx context.Context, cutoff models.Date) ([]models.Student, error)
	ApplyAccrual(ctx context.Context, update models.AccrualUpdate) (bool, error)
}

type accrualRunStore interface {
	SaveLastRun(ctx context.Context, run models.AccrualRun) error
	LastRun(ctx context.Context) (*models.AccrualRun, error)
	AcquireLock(ctx context.Context, owner string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, owner string) error
}

type accrualRecorder interface {
	ObserveAccrualRun(trigger string, affected int, duration time.Duration, err error)
}

// ErrAccrualLocked is returned by RunScheduled when another instance holds the run lock.
var ErrAccrualLocked = errors.New("accrual run lock held elsewhere")

// AccrualService advances every eligible student's balance by one monthly cycle.
type AccrualService struct {
	students accrualStudentStore
	runs     accrualRunStore
	metrics  accrualRecorder
	logger   *zap.Logger
	now      func() time.Time
}

// NewAccrualService constructs the accrual processor.
func NewAccrualService(students accrualStudentStore, runs accrualRunStore, metrics accrualRecorder, logger *zap.Logger) *AccrualService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccrualService{students: students, runs: runs, metrics: metrics, logger: logger, now: time.Now}
}

// RunMonthlyAccrual charges monthlyFee to every active student whose last cycle is
// more than a month older than referenceDate (zero means today). Each record is
// written on its own and only if it still matches what was read, so reruns are
// idempotent and an aborted batch leaves applied records stamped.
func (s *AccrualService) RunMonthlyAccrual(ctx context.Context, referenceDate models.Date, trigger string) (*models.AccrualRun, error) {
	started := s.now()
	if referenceDate.IsZero() {
		referenceDate = models.DateOf(started.UTC())
	}
	if trigger == "" {
		trigger = models.AccrualTriggerManual
	}
	cutoff := AccrualCutoff(referenceDate)

	affected, err := s.apply(ctx, referenceDate, cutoff)
	elapsed := s.now().Sub(started)
	s.observe(trigger, affected, elapsed, err)
	if err != nil {
		s.logger.Error("monthly accrual aborted",
			zap.String("reference_date", referenceDate.String()),
			zap.String("trigger", trigger),
			zap.Int("affected", affected),
			zap.Error(err))
		return nil, err
	}

	run := models.AccrualRun{
		ReferenceDate: referenceDate,
		Affected:      affected,
		Trigger:       trigger,
		RanAt:         started.UTC(),
		Duration:      elapsed.String(),
	}
	if s.runs != nil {
		if err := s.runs.SaveLastRun(ctx, run); err != nil {
			s.logger.Warn("failed to persist accrual run", zap.Error(err))
		}
	}
	s.logger.Info("monthly accrual completed",
		zap.String("reference_date", referenceDate.String()),
		zap.String("trigger", trigger),
		zap.Int("affected", affected),
		zap.Duration("duration", elapsed))
	return &run, nil
}

func (s *AccrualService) apply(ctx context.Context, referenceDate, cutoff models.Date) (int, error) {
	candidates, err := s.students.ListAccrualCandidates(ctx, cutoff)
	if err != nil {
		return 0, appErrors.Store(err, "failed to list students due for accrual")
	}

	affected := 0
	for _, student := range candidates {
		if !AccrualEligible(student, referenceDate) {
			continue
		}
		newDue := student.FeeDue + student.MonthlyFee
		update := models.AccrualUpdate{
			StudentID:     student.ID,
			PrevFeeDue:    student.FeeDue,
			NewFeeDue:     newDue,
			MonthlyFee:    student.MonthlyFee,
			Status:        AccrualStatus(student.Status, newDue, student.MonthlyFee),
			ReferenceDate: referenceDate,
			Cutoff:        cutoff,
		}
		applied, err := s.students.ApplyAccrual(ctx, update)
		if err != nil {
			return affected, appErrors.Store(err, fmt.Sprintf("accrual write failed for student %s after %d applied", student.ID, affected))
		}
		if !applied {
			s.logger.Debug("accrual skipped; record changed since read", zap.String("student_id", student.ID))
			continue
		}
		affected++
	}
	return affected, nil
}

// RunScheduled runs accrual for today under the shared run lock.
func (s *AccrualService) RunScheduled(ctx context.Context, owner string, ttl time.Duration) (*models.AccrualRun, error) {
	if s.runs != nil {
		ok, err := s.runs.AcquireLock(ctx, owner, ttl)
		if err != nil {
			return nil, appErrors.Store(err, "failed to acquire accrual lock")
		}
		if !ok {
			return nil, ErrAccrualLocked
		}
		defer func() {
			if err := s.runs.ReleaseLock(context.WithoutCancel(ctx), owner); err != nil {
				s.logger.Warn("failed to release accrual lock", zap.Error(err))
			}
		}()
	}
	return s.RunMonthlyAccrual(ctx, models.Date{}, models.AccrualTriggerScheduler)
}

// LastRun returns the most recently completed run.
func (s *AccrualService) LastRun(ctx context.Context) (*models.AccrualRun, error) {
	if s.runs == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no accrual run recorded")
	}
	run, err := s.runs.LastRun(ctx)
	if err != nil {
		if errors.Is(err, appErrors.ErrCacheMiss) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no accrual run recorded")
		}
		return nil, appErrors.Store(err, "failed to load last accrual run")
	}
	return run, nil
}

func (s *AccrualService) observe(trigger string, affected int, elapsed time.Duration, err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveAccrualRun(trigger, affected, elapsed, err)
}
