package agent

import (
	"fmt"
	"strings"
	"sync"
)

// State is one node of an agent's finite state machine. States hold no
// per-agent data; a single instance is shared by every agent in that state.
// Implementations must be pointer types.
type State interface {
	Enter(a *Agent)
	Execute(a *Agent)
	Exit(a *Agent)
}

// BaseState provides no-op hooks for embedding.
type BaseState struct{}

func (BaseState) Enter(*Agent)   {}
func (BaseState) Execute(*Agent) {}
func (BaseState) Exit(*Agent)    {}

// StateName returns a display name for s.
func StateName(s State) string {
	if s == nil {
		return ""
	}
	if named, ok := s.(interface{ Name() string }); ok {
		return named.Name()
	}
	name := fmt.Sprintf("%T", s)
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	return strings.TrimPrefix(name, "*")
}

type stateKey[S any] struct{}

// Registry lazily creates one shared instance per state type.
type Registry struct {
	mu     sync.Mutex
	states map[any]State
}

func NewRegistry() *Registry {
	return &Registry{states: make(map[any]State)}
}

// Resolve returns the shared *S, creating it on first use.
func Resolve[S any, PS interface {
	*S
	State
}](r *Registry) State {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := stateKey[S]{}
	if s, ok := r.states[key]; ok {
		return s
	}
	var s State = PS(new(S))
	r.states[key] = s
	return s
}

// Register installs a preconfigured instance as the shared *S.
func Register[S any, PS interface {
	*S
	State
}](r *Registry, s PS) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states[stateKey[S]{}] = s
}

// Len reports how many states have been created.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.states)
}

// SetState moves a into the shared *S state.
func SetState[S any, PS interface {
	*S
	State
}](a *Agent) {
	a.Transition(Resolve[S, PS](a.host.States()))
}

// PushState remembers the current state and moves a into *S. PopState
// returns to the remembered state.
func PushState[S any, PS interface {
	*S
	State
}](a *Agent) {
	a.Push(Resolve[S, PS](a.host.States()))
}

// IsInState reports whether a is currently in *S.
func IsInState[S any, PS interface {
	*S
	State
}](a *Agent) bool {
	_, ok := a.state.(PS)
	return ok
}

// Transition exits the current state and enters next. Moving to the state
// the agent is already in does nothing.
func (a *Agent) Transition(next State) {
	if a.state == next {
		return
	}
	prev := a.state
	if prev != nil {
		prev.Exit(a)
	}
	a.state = next
	if next != nil {
		next.Enter(a)
	}
	a.host.StateChanged(a, prev, next)
}

// Push remembers the current state and transitions to next.
func (a *Agent) Push(next State) {
	if a.state == next {
		return
	}
	a.stack = append(a.stack, a.state)
	a.Transition(next)
}

// PopState returns to the most recently pushed state. It reports false when
// nothing was pushed.
func (a *Agent) PopState() bool {
	if len(a.stack) == 0 {
		return false
	}
	prev := a.stack[len(a.stack)-1]
	a.stack = a.stack[:len(a.stack)-1]
	a.Transition(prev)
	return true
}

// State returns the current state, which may be nil.
func (a *Agent) State() State { return a.state }

// StackDepth reports how many states are waiting to be popped.
func (a *Agent) StackDepth() int { return len(a.stack) }
