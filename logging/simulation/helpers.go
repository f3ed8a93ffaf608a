package simulation

import (
	"context"

	"easy-ai/server/logging"
)

const (
	// EventTickBudgetOverrun is emitted when a scheduler tick takes longer than its frame budget.
	EventTickBudgetOverrun logging.EventType = "simulation.tick_budget_overrun"
	// EventLoopStopped is emitted once the tick loop exits.
	EventLoopStopped logging.EventType = "simulation.loop_stopped"
)

// TickBudgetOverrunPayload captures timing details for a tick budget breach.
type TickBudgetOverrunPayload struct {
	DurationMillis int64   `json:"durationMillis"`
	BudgetMillis   int64   `json:"budgetMillis"`
	Ratio          float64 `json:"ratio"`
	Streak         uint64  `json:"streak"`
	Agents         int     `json:"agents"`
	Performed      int     `json:"performed"`
}

// TickBudgetOverrun publishes a warning when a tick exceeds the configured budget.
func TickBudgetOverrun(ctx context.Context, pub logging.Publisher, tick uint64, payload TickBudgetOverrunPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventTickBudgetOverrun,
		Tick:     tick,
		Actor:    logging.EntityRef{Kind: logging.EntityKindScheduler},
		Severity: logging.SeverityWarn,
		Category: logging.CategorySimulation,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}

// LoopStoppedPayload summarises a finished run.
type LoopStoppedPayload struct {
	Ticks        uint64 `json:"ticks"`
	PhysicsSteps uint64 `json:"physicsSteps"`
	Reason       string `json:"reason"`
}

// LoopStopped publishes the final loop counters.
func LoopStopped(ctx context.Context, pub logging.Publisher, tick uint64, payload LoopStoppedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventLoopStopped,
		Tick:     tick,
		Actor:    logging.EntityRef{Kind: logging.EntityKindScheduler},
		Severity: logging.SeverityInfo,
		Category: logging.CategorySimulation,
		Payload:  payload,
		Extra:    extra,
	})
}
