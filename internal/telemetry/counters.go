package telemetry

import (
	"sync"
	"sync/atomic"
	"time"
)

// Counters track scheduler loop timing. The zero value is ready to use.
type Counters struct {
	ticks              atomic.Uint64
	physicsSteps       atomic.Uint64
	performed          atomic.Uint64
	tickDurationMillis atomic.Int64
	budgetMillis       atomic.Int64
	lastOverrunMillis  atomic.Int64
	currentStreak      atomic.Uint64
	maxStreak          atomic.Uint64
	clampedDeltas      atomic.Uint64

	mu       sync.Mutex
	overruns map[string]uint64
}

// TickBudgetSnapshot reports overrun history.
type TickBudgetSnapshot struct {
	BudgetMillis      int64             `json:"budgetMillis"`
	CurrentStreak     uint64            `json:"currentStreak"`
	MaxStreak         uint64            `json:"maxStreak"`
	LastOverrunMillis int64             `json:"lastOverrunMillis"`
	Overruns          map[string]uint64 `json:"overruns,omitempty"`
}

// Snapshot is a copy of every counter.
type Snapshot struct {
	Ticks         uint64             `json:"ticks"`
	PhysicsSteps  uint64             `json:"physicsSteps"`
	Performed     uint64             `json:"performed"`
	TickDuration  int64              `json:"tickDurationMillis"`
	ClampedDeltas uint64             `json:"clampedDeltas"`
	TickBudget    TickBudgetSnapshot `json:"tickBudget"`
}

// RecordTick stores the duration of a frame tick and how many agents ran.
func (c *Counters) RecordTick(duration time.Duration, performed int, clamped bool) {
	millis := duration.Milliseconds()
	if millis < 0 {
		millis = 0
	}
	if performed < 0 {
		performed = 0
	}
	c.ticks.Add(1)
	c.performed.Add(uint64(performed))
	c.tickDurationMillis.Store(millis)
	if clamped {
		c.clampedDeltas.Add(1)
	}
}

// RecordPhysicsStep counts a fixed physics step.
func (c *Counters) RecordPhysicsStep() {
	c.physicsSteps.Add(1)
}

// RecordTickBudgetOverrun notes a tick that exceeded budget and returns the
// length of the current overrun streak.
func (c *Counters) RecordTickBudgetOverrun(duration, budget time.Duration) uint64 {
	c.budgetMillis.Store(budget.Milliseconds())
	c.lastOverrunMillis.Store(duration.Milliseconds())
	streak := c.currentStreak.Add(1)
	for {
		max := c.maxStreak.Load()
		if streak <= max || c.maxStreak.CompareAndSwap(max, streak) {
			break
		}
	}
	bucket := overrunBucket(duration, budget)
	c.mu.Lock()
	if c.overruns == nil {
		c.overruns = make(map[string]uint64)
	}
	c.overruns[bucket]++
	c.mu.Unlock()
	return streak
}

// ResetTickBudgetOverrunStreak ends the current streak.
func (c *Counters) ResetTickBudgetOverrunStreak() {
	c.currentStreak.Store(0)
}

func overrunBucket(duration, budget time.Duration) string {
	if budget <= 0 {
		return "over_gt3x"
	}
	ratio := float64(duration) / float64(budget)
	switch {
	case ratio <= 1.5:
		return "over_1_5x"
	case ratio <= 2:
		return "over_2x"
	case ratio < 3:
		return "over_3x"
	default:
		return "over_gt3x"
	}
}

func (c *Counters) Snapshot() Snapshot {
	c.mu.Lock()
	overruns := make(map[string]uint64, len(c.overruns))
	for k, v := range c.overruns {
		overruns[k] = v
	}
	c.mu.Unlock()
	return Snapshot{
		Ticks:         c.ticks.Load(),
		PhysicsSteps:  c.physicsSteps.Load(),
		Performed:     c.performed.Load(),
		TickDuration:  c.tickDurationMillis.Load(),
		ClampedDeltas: c.clampedDeltas.Load(),
		TickBudget: TickBudgetSnapshot{
			BudgetMillis:      c.budgetMillis.Load(),
			CurrentStreak:     c.currentStreak.Load(),
			MaxStreak:         c.maxStreak.Load(),
			LastOverrunMillis: c.lastOverrunMillis.Load(),
			Overruns:          overruns,
		},
	}
}
