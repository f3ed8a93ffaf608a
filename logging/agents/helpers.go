package agents

import (
	"context"

	"easy-ai/server/logging"
)

const (
	// EventRegistered is emitted when an agent joins the scheduler roster.
	EventRegistered logging.EventType = "agents.registered"
	// EventRemoved is emitted when an agent leaves the roster.
	EventRemoved logging.EventType = "agents.removed"
	// EventStateChanged is emitted on every state machine transition.
	EventStateChanged logging.EventType = "agents.state_changed"
	// EventPerformFailed is emitted when an agent panics during its tick.
	EventPerformFailed logging.EventType = "agents.perform_failed"
	// EventMessage mirrors a line written to an agent message log.
	EventMessage logging.EventType = "agents.message"
)

// Ref builds the actor reference for an agent.
func Ref(id string) logging.EntityRef {
	return logging.EntityRef{ID: id, Kind: logging.EntityKindAgent}
}

// RegisteredPayload describes a new roster member.
type RegisteredPayload struct {
	Name        string `json:"name"`
	Integration string `json:"integration"`
	RosterSize  int    `json:"rosterSize"`
}

// Registered publishes a roster join.
func Registered(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload RegisteredPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventRegistered,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryAgents,
		Payload:  payload,
		Extra:    extra,
	})
}

// RemovedPayload describes a roster departure.
type RemovedPayload struct {
	Name       string `json:"name"`
	RosterSize int    `json:"rosterSize"`
}

// Removed publishes a roster departure.
func Removed(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload RemovedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventRemoved,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryAgents,
		Payload:  payload,
		Extra:    extra,
	})
}

// StateChangedPayload captures a transition.
type StateChangedPayload struct {
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
}

// StateChanged publishes a state transition at debug severity.
func StateChanged(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload StateChangedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventStateChanged,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityDebug,
		Category: logging.CategoryAgents,
		Payload:  payload,
		Extra:    extra,
	})
}

// PerformFailedPayload records a recovered panic.
type PerformFailedPayload struct {
	Name  string `json:"name"`
	Error string `json:"error"`
}

// PerformFailed publishes an isolated agent failure.
func PerformFailed(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload PerformFailedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventPerformFailed,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityError,
		Category: logging.CategoryAgents,
		Payload:  payload,
		Extra:    extra,
	})
}

// MessagePayload carries one agent log line.
type MessagePayload struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

// Message publishes an agent log line.
func Message(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload MessagePayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventMessage,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityDebug,
		Category: logging.CategoryAgents,
		Payload:  payload,
		Extra:    extra,
	})
}
