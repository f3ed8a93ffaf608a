package agent

import "easy-ai/server/internal/geom"

// Snapshot is a read-only view of an agent for diagnostics and streaming.
type Snapshot struct {
	ID          string      `json:"id" msgpack:"id"`
	Name        string      `json:"name" msgpack:"name"`
	Position    geom.Vec3   `json:"position" msgpack:"position"`
	Yaw         float64     `json:"yaw" msgpack:"yaw"`
	Velocity    geom.Vec2   `json:"velocity" msgpack:"velocity"`
	Integration string      `json:"integration" msgpack:"integration"`
	State       string      `json:"state,omitempty" msgpack:"state,omitempty"`
	StackDepth  int         `json:"stackDepth,omitempty" msgpack:"stackDepth,omitempty"`
	Mind        string      `json:"mind,omitempty" msgpack:"mind,omitempty"`
	Performance float64     `json:"performance" msgpack:"performance"`
	Path        []geom.Vec3 `json:"path,omitempty" msgpack:"path,omitempty"`
	Moves       int         `json:"moves,omitempty" msgpack:"moves,omitempty"`
	Actions     int         `json:"actions,omitempty" msgpack:"actions,omitempty"`
	Messages    []string    `json:"messages,omitempty" msgpack:"messages,omitempty"`
}

// Snapshot captures the agent. Messages are limited to the newest max; a
// non-positive max omits them.
func (a *Agent) Snapshot(max int) Snapshot {
	s := Snapshot{
		ID:          a.id,
		Name:        a.name,
		Position:    a.position,
		Yaw:         a.yaw,
		Velocity:    a.velocity,
		Integration: a.integration.String(),
		State:       StateName(a.state),
		StackDepth:  len(a.stack),
		Mind:        StateName(a.Mind()),
		Performance: a.performance,
		Path:        a.Path(),
		Moves:       len(a.moves),
		Actions:     len(a.actions),
	}
	if max > 0 {
		msgs := a.messages.Messages()
		if len(msgs) > max {
			msgs = msgs[:max]
		}
		s.Messages = msgs
	}
	return s
}
