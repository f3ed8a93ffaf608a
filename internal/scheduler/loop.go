package scheduler

import (
	"context"
	"sync"
	"time"

	"easy-ai/server/internal/telemetry"
	"easy-ai/server/logging"
	loggingSimulation "easy-ai/server/logging/simulation"
)

// LoopConfig tunes the frame and physics tickers.
type LoopConfig struct {
	// TickRate is frame ticks per second.
	TickRate int
	// PhysicsRate is fixed physics steps per second.
	PhysicsRate int
	// CatchupMaxTicks bounds how many frame budgets one delta may span.
	CatchupMaxTicks int
}

func (c LoopConfig) normalized() LoopConfig {
	if c.TickRate <= 0 {
		c.TickRate = 30
	}
	if c.PhysicsRate <= 0 {
		c.PhysicsRate = 50
	}
	if c.CatchupMaxTicks <= 0 {
		c.CatchupMaxTicks = 1
	}
	return c
}

// LoopStepResult describes one frame tick.
type LoopStepResult struct {
	TickResult
	Now          time.Time
	Delta        float64
	Duration     time.Duration
	Budget       time.Duration
	ClampedDelta bool
	MaxDelta     float64
}

// LoopHooks observe the loop.
type LoopHooks struct {
	AfterStep func(LoopStepResult)
}

// Loop drives a Scheduler from wall clock tickers and serialises access to
// it from other goroutines.
type Loop struct {
	mu        sync.Mutex
	sched     *Scheduler
	config    LoopConfig
	hooks     LoopHooks
	clock     logging.Clock
	publisher logging.Publisher
	counters  *telemetry.Counters
}

// NewLoop wraps s. A nil clock uses the wall clock and nil counters are
// allocated.
func NewLoop(s *Scheduler, cfg LoopConfig, hooks LoopHooks, clock logging.Clock, pub logging.Publisher, counters *telemetry.Counters) *Loop {
	if s == nil {
		return nil
	}
	if clock == nil {
		clock = logging.SystemClock{}
	}
	if pub == nil {
		pub = logging.NopPublisher()
	}
	if counters == nil {
		counters = &telemetry.Counters{}
	}
	return &Loop{
		sched:     s,
		config:    cfg.normalized(),
		hooks:     hooks,
		clock:     clock,
		publisher: pub,
		counters:  counters,
	}
}

// Do runs fn with exclusive access to the scheduler.
func (l *Loop) Do(fn func(*Scheduler)) {
	if l == nil || fn == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	fn(l.sched)
}

// Snapshot captures the scheduler between ticks.
func (l *Loop) Snapshot(maxMessages int) Snapshot {
	var snap Snapshot
	l.Do(func(s *Scheduler) { snap = s.Snapshot(maxMessages) })
	return snap
}

// Counters exposes the loop timing counters.
func (l *Loop) Counters() *telemetry.Counters {
	if l == nil {
		return nil
	}
	return l.counters
}

// Advance runs one frame tick of dt seconds.
func (l *Loop) Advance(dt float64) TickResult {
	var result TickResult
	l.Do(func(s *Scheduler) { result = s.Tick(dt) })
	return result
}

// AdvancePhysics runs one physics step of dt seconds.
func (l *Loop) AdvancePhysics(dt float64) {
	l.Do(func(s *Scheduler) { s.PhysicsStep(dt) })
	l.counters.RecordPhysicsStep()
}

// Run ticks the scheduler until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) {
	if l == nil {
		return
	}
	frameBudget := time.Second / time.Duration(l.config.TickRate)
	physicsStep := time.Second / time.Duration(l.config.PhysicsRate)
	frames := time.NewTicker(frameBudget)
	defer frames.Stop()
	physics := time.NewTicker(physicsStep)
	defer physics.Stop()

	budgetSeconds := frameBudget.Seconds()
	maxDt := budgetSeconds * float64(l.config.CatchupMaxTicks)
	last := l.clock.Now()

	for {
		select {
		case <-ctx.Done():
			l.stopped(ctx)
			return
		case <-physics.C:
			l.AdvancePhysics(physicsStep.Seconds())
		case <-frames.C:
			now := l.clock.Now()
			dt := now.Sub(last).Seconds()
			clamped := false
			if dt <= 0 {
				dt = budgetSeconds
			} else if dt > maxDt {
				dt = maxDt
				clamped = true
			}
			last = now

			start := l.clock.Now()
			tick := l.Advance(dt)
			result := LoopStepResult{
				TickResult:   tick,
				Now:          now,
				Delta:        dt,
				Duration:     l.clock.Now().Sub(start),
				Budget:       frameBudget,
				ClampedDelta: clamped,
				MaxDelta:     maxDt,
			}
			l.record(ctx, result)
			if l.hooks.AfterStep != nil {
				l.hooks.AfterStep(result)
			}
		}
	}
}

func (l *Loop) record(ctx context.Context, result LoopStepResult) {
	l.counters.RecordTick(result.Duration, result.Performed, result.ClampedDelta)
	if result.Budget <= 0 || result.Duration <= result.Budget {
		l.counters.ResetTickBudgetOverrunStreak()
		return
	}
	streak := l.counters.RecordTickBudgetOverrun(result.Duration, result.Budget)
	loggingSimulation.TickBudgetOverrun(ctx, l.publisher, result.Tick, loggingSimulation.TickBudgetOverrunPayload{
		DurationMillis: result.Duration.Milliseconds(),
		BudgetMillis:   result.Budget.Milliseconds(),
		Ratio:          float64(result.Duration) / float64(result.Budget),
		Streak:         streak,
		Agents:         result.Agents,
		Performed:      result.Performed,
	}, nil)
}

func (l *Loop) stopped(ctx context.Context) {
	var ticks, steps uint64
	l.Do(func(s *Scheduler) {
		ticks, steps = s.TickCount(), s.PhysicsSteps()
	})
	reason := "stopped"
	if err := ctx.Err(); err != nil {
		reason = err.Error()
	}
	loggingSimulation.LoopStopped(context.WithoutCancel(ctx), l.publisher, ticks, loggingSimulation.LoopStoppedPayload{
		Ticks:        ticks,
		PhysicsSteps: steps,
		Reason:       reason,
	}, nil)
}
