package jobs

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Task is the unit of work run on every tick.
type Task func(ctx context.Context) error

// PeriodicConfig configures a Periodic runner.
type PeriodicConfig struct {
	Interval     time.Duration
	RunOnStart   bool
	Timeout      time.Duration
	Logger       *zap.Logger
	OnCompletion func(err error, duration time.Duration)
}

// Periodic runs a Task on a fixed interval from a single goroutine.
// Ticks that arrive while a run is in progress are dropped.
type Periodic struct {
	name       string
	task       Task
	interval   time.Duration
	runOnStart bool
	timeout    time.Duration
	logger     *zap.Logger
	onComplete func(err error, duration time.Duration)

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
}

// NewPeriodic builds a runner for task.
func NewPeriodic(name string, task Task, cfg PeriodicConfig) *Periodic {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Periodic{
		name:       name,
		task:       task,
		interval:   cfg.Interval,
		runOnStart: cfg.RunOnStart,
		timeout:    cfg.Timeout,
		logger:     cfg.Logger,
		onComplete: cfg.OnCompletion,
	}
}

// Start launches the ticker goroutine. Safe to call once.
func (p *Periodic) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.ctx, p.cancel = context.WithCancel(ctx)
	p.wg.Add(1)
	go p.loop()
	p.started = true
	p.logger.Sugar().Infow("periodic job started", "job", p.name, "interval", p.interval.String())
}

// Stop cancels the runner and waits for an in-flight run to return.
func (p *Periodic) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.cancel()
	p.started = false
	p.mu.Unlock()
	p.wg.Wait()
	p.logger.Sugar().Infow("periodic job stopped", "job", p.name)
}

func (p *Periodic) loop() {
	defer p.wg.Done()

	if p.runOnStart {
		p.runOnce()
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.runOnce()
		}
	}
}

func (p *Periodic) runOnce() {
	ctx := p.ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(p.ctx, p.timeout)
		defer cancel()
	}

	start := time.Now()
	err := p.task(ctx)
	duration := time.Since(start)
	if err != nil {
		p.logger.Sugar().Errorw("periodic job failed", "job", p.name, "duration", duration.String(), "error", err)
	}
	if p.onComplete != nil {
		p.onComplete(err, duration)
	}
}
