package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeriodicRunsOnStartAndOnTick(t *testing.T) {
	var runs int32
	done := make(chan struct{}, 8)
	p := NewPeriodic("test", func(ctx context.Context) error {
		atomic.AddInt32(&runs, 1)
		done <- struct{}{}
		return nil
	}, PeriodicConfig{Interval: 10 * time.Millisecond, RunOnStart: true})

	p.Start(context.Background())
	defer p.Stop()

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("task did not run")
		}
	}
	assert.GreaterOrEqual(t, atomic.LoadInt32(&runs), int32(2))
}

func TestPeriodicReportsErrors(t *testing.T) {
	boom := errors.New("boom")
	results := make(chan error, 1)
	p := NewPeriodic("failing", func(ctx context.Context) error {
		return boom
	}, PeriodicConfig{
		Interval:   time.Hour,
		RunOnStart: true,
		OnCompletion: func(err error, _ time.Duration) {
			select {
			case results <- err:
			default:
			}
		},
	})

	p.Start(context.Background())
	defer p.Stop()

	select {
	case err := <-results:
		require.ErrorIs(t, err, boom)
	case <-time.After(time.Second):
		t.Fatal("completion hook not called")
	}
}

func TestPeriodicStopIsIdempotent(t *testing.T) {
	p := NewPeriodic("idle", func(ctx context.Context) error { return nil }, PeriodicConfig{Interval: time.Hour})
	p.Stop()
	p.Start(context.Background())
	p.Stop()
	p.Stop()
}
