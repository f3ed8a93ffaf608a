package navigation

import (
	"context"

	"easy-ai/server/internal/geom"
	"easy-ai/server/logging"
)

const (
	// EventGraphBuilt is emitted after node generation and connection.
	EventGraphBuilt logging.EventType = "navigation.graph_built"
	// EventTableBuilt is emitted after the all-pairs routing table is computed.
	EventTableBuilt logging.EventType = "navigation.table_built"
	// EventTableLoaded is emitted when a persisted table replaces generation.
	EventTableLoaded logging.EventType = "navigation.table_loaded"
	// EventPathUnreachable is emitted when a lookup falls off the table.
	EventPathUnreachable logging.EventType = "navigation.path_unreachable"
)

func ref() logging.EntityRef {
	return logging.EntityRef{Kind: logging.EntityKindNavigation}
}

// GraphBuiltPayload summarises graph generation.
type GraphBuiltPayload struct {
	Areas       int      `json:"areas"`
	Nodes       int      `json:"nodes"`
	Connections int      `json:"connections"`
	Pruned      int      `json:"pruned"`
	Dumps       []string `json:"dumps,omitempty"`
}

// GraphBuilt publishes a graph generation summary.
func GraphBuilt(ctx context.Context, pub logging.Publisher, tick uint64, payload GraphBuiltPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventGraphBuilt,
		Tick:     tick,
		Actor:    ref(),
		Severity: logging.SeverityInfo,
		Category: logging.CategoryNavigation,
		Payload:  payload,
		Extra:    extra,
	})
}

// TablePayload summarises a routing table.
type TablePayload struct {
	Entries        int    `json:"entries"`
	Nodes          int    `json:"nodes"`
	DurationMillis int64  `json:"durationMillis,omitempty"`
	Path           string `json:"path,omitempty"`
}

// TableBuilt publishes a table build summary.
func TableBuilt(ctx context.Context, pub logging.Publisher, tick uint64, payload TablePayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventTableBuilt,
		Tick:     tick,
		Actor:    ref(),
		Severity: logging.SeverityInfo,
		Category: logging.CategoryNavigation,
		Payload:  payload,
		Extra:    extra,
	})
}

// TableLoaded publishes a table load summary.
func TableLoaded(ctx context.Context, pub logging.Publisher, tick uint64, payload TablePayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventTableLoaded,
		Tick:     tick,
		Actor:    ref(),
		Severity: logging.SeverityInfo,
		Category: logging.CategoryNavigation,
		Payload:  payload,
		Extra:    extra,
	})
}

// PathUnreachablePayload records where a lookup gave up.
type PathUnreachablePayload struct {
	From     geom.Vec3 `json:"from"`
	To       geom.Vec3 `json:"to"`
	NodeFrom geom.Vec3 `json:"nodeFrom"`
	NodeTo   geom.Vec3 `json:"nodeTo"`
}

// PathUnreachable publishes a failed table walk.
func PathUnreachable(ctx context.Context, pub logging.Publisher, tick uint64, payload PathUnreachablePayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventPathUnreachable,
		Tick:     tick,
		Actor:    ref(),
		Severity: logging.SeverityWarn,
		Category: logging.CategoryNavigation,
		Payload:  payload,
		Extra:    extra,
	})
}
