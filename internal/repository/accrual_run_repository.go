package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/study-hall-api/internal/models"
	appErrors "github.com/noah-isme/study-hall-api/pkg/errors"
)

const (
	lastAccrualRunKey = "studyhall:accrual:last_run"
	accrualLockKey    = "studyhall:accrual:lock"
)

// AccrualRunRepository keeps the last accrual run and the scheduler lock in Redis.
// With a nil client every write is a no-op, reads miss and the lock is always granted.
type AccrualRunRepository struct {
	client *redis.Client
	logger *zap.Logger
}

// NewAccrualRunRepository constructs the repository.
func NewAccrualRunRepository(client *redis.Client, logger *zap.Logger) *AccrualRunRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccrualRunRepository{client: client, logger: logger}
}

// SaveLastRun stores the run record without expiry.
func (r *AccrualRunRepository) SaveLastRun(ctx context.Context, run models.AccrualRun) error {
	if r.client == nil {
		return nil
	}
	payload, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("marshal accrual run: %w", err)
	}
	if err := r.client.Set(ctx, lastAccrualRunKey, payload, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", lastAccrualRunKey, err)
	}
	return nil
}

// LastRun returns the stored run record or appErrors.ErrCacheMiss.
func (r *AccrualRunRepository) LastRun(ctx context.Context) (*models.AccrualRun, error) {
	if r.client == nil {
		return nil, appErrors.ErrCacheMiss
	}
	raw, err := r.client.Get(ctx, lastAccrualRunKey).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, appErrors.ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get %s: %w", lastAccrualRunKey, err)
	}
	var run models.AccrualRun
	if err := json.Unmarshal(raw, &run); err != nil {
		return nil, fmt.Errorf("unmarshal accrual run: %w", err)
	}
	return &run, nil
}

// AcquireLock takes the scheduler lock for ttl. It returns false when another holder owns it.
func (r *AccrualRunRepository) AcquireLock(ctx context.Context, owner string, ttl time.Duration) (bool, error) {
	if r.client == nil {
		return true, nil
	}
	ok, err := r.client.SetNX(ctx, accrualLockKey, owner, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx %s: %w", accrualLockKey, err)
	}
	return ok, nil
}

// ReleaseLock drops the lock if owner still holds it.
func (r *AccrualRunRepository) ReleaseLock(ctx context.Context, owner string) error {
	if r.client == nil {
		return nil
	}
	current, err := r.client.Get(ctx, accrualLockKey).Result()
	if err != nil {
		if err == redis.Nil {
			return nil
		}
		return fmt.Errorf("redis get %s: %w", accrualLockKey, err)
	}
	if current != owner {
		r.logger.Warn("accrual lock held by another owner", zap.String("owner", current))
		return nil
	}
	if err := r.client.Del(ctx, accrualLockKey).Err(); err != nil {
		return fmt.Errorf("redis delete %s: %w", accrualLockKey, err)
	}
	return nil
}

// Close releases the underlying Redis connection if present.
func (r *AccrualRunRepository) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}
