// Package scheduler owns the agent roster and drives every agent through
// its sense-decide-act cycle, movement and look updates each tick.
package scheduler

import (
	"context"
	"fmt"

	"easy-ai/server/internal/agent"
	"easy-ai/server/internal/steering"
	"easy-ai/server/internal/telemetry"
	"easy-ai/server/logging"
	loggingAgents "easy-ai/server/logging/agents"
)

// Config tunes a Scheduler.
type Config struct {
	// MaxAgentsPerTick caps how many agents perform per tick. Zero or
	// negative performs every agent every tick.
	MaxAgentsPerTick int
	Settings         agent.Settings
}

// DefaultConfig performs every agent each tick with stock settings.
func DefaultConfig() Config {
	return Config{Settings: agent.DefaultSettings()}
}

// Option customises a Scheduler.
type Option func(*Scheduler)

// WithNavigation routes agent path queries through nav.
func WithNavigation(nav agent.Navigation) Option {
	return func(s *Scheduler) {
		if nav != nil {
			s.nav = nav
		}
	}
}

// WithMind installs the mind used by agents without their own.
func WithMind(mind agent.State) Option {
	return func(s *Scheduler) { s.mind = mind }
}

// WithPublisher sends roster and state events to pub.
func WithPublisher(pub logging.Publisher) Option {
	return func(s *Scheduler) {
		if pub != nil {
			s.publisher = pub
		}
	}
}

// WithLogger receives plain text diagnostics such as recovered panics.
func WithLogger(logger telemetry.Logger) Option {
	return func(s *Scheduler) { s.logger = logger }
}

// WithMetrics records roster gauges and perform counters.
func WithMetrics(metrics telemetry.Metrics) Option {
	return func(s *Scheduler) { s.metrics = metrics }
}

// Scheduler holds the agents and the shared state they read through their
// host. It is driven by a single goroutine; see Loop for shared access.
type Scheduler struct {
	config    Config
	agents    []*agent.Agent
	cursor    int
	tick      uint64
	physics   uint64
	mind      agent.State
	registry  *agent.Registry
	nav       agent.Navigation
	publisher logging.Publisher
	logger    telemetry.Logger
	metrics   telemetry.Metrics
	messages  agent.MessageLog
	host      *host
}

func New(cfg Config, opts ...Option) *Scheduler {
	if cfg.Settings.Tolerances == (steering.Tolerances{}) && cfg.Settings.MaxMessages == 0 && cfg.Settings.RestVelocity == 0 {
		ground := cfg.Settings.Ground
		cfg.Settings = agent.DefaultSettings()
		cfg.Settings.Ground = ground
	}
	s := &Scheduler{
		config:    cfg,
		registry:  agent.NewRegistry(),
		nav:       agent.DirectNavigation,
		publisher: logging.NopPublisher(),
	}
	s.host = &host{s: s}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Config returns the active configuration.
func (s *Scheduler) Config() Config { return s.config }

// Registry returns the shared state instances.
func (s *Scheduler) Registry() *agent.Registry { return s.registry }

// Navigation returns the path oracle agents use.
func (s *Scheduler) Navigation() agent.Navigation { return s.nav }

// TickCount reports how many frame ticks have run.
func (s *Scheduler) TickCount() uint64 { return s.tick }

// PhysicsSteps reports how many physics steps have run.
func (s *Scheduler) PhysicsSteps() uint64 { return s.physics }

// Cursor is the roster index of the next agent to perform.
func (s *Scheduler) Cursor() int { return s.cursor }

// Len reports the roster size.
func (s *Scheduler) Len() int { return len(s.agents) }

// Agents returns the roster in registration order.
func (s *Scheduler) Agents() []*agent.Agent {
	return append([]*agent.Agent(nil), s.agents...)
}

// Find returns the first agent with the given name.
func (s *Scheduler) Find(name string) (*agent.Agent, bool) {
	for _, a := range s.agents {
		if a.Name() == name {
			return a, true
		}
	}
	return nil, false
}

// Best returns the agent with the highest performance. Ties go to the
// earliest registered.
func (s *Scheduler) Best() (*agent.Agent, bool) {
	var best *agent.Agent
	for _, a := range s.agents {
		if best == nil || a.Performance() > best.Performance() {
			best = a
		}
	}
	return best, best != nil
}

// Messages returns the roster-wide log, newest first.
func (s *Scheduler) Messages() []string { return s.messages.Messages() }

// ClearMessages empties the roster-wide log.
func (s *Scheduler) ClearMessages() { s.messages.Clear() }

// Add registers a and enters its mind and initial state. Adding an agent
// twice does nothing.
func (s *Scheduler) Add(a *agent.Agent) bool {
	if a == nil || s.indexOf(a) >= 0 {
		return false
	}
	s.agents = append(s.agents, a)
	a.Attach(s.host)
	a.Start()
	s.storeRoster()
	loggingAgents.Registered(context.Background(), s.publisher, s.tick, loggingAgents.Ref(a.ID()), loggingAgents.RegisteredPayload{
		Name:        a.Name(),
		Integration: a.Integration().String(),
		RosterSize:  len(s.agents),
	}, nil)
	return true
}

// Remove drops a from the roster. It is safe to call while the roster is
// being performed: agents after a keep their turn and none run twice. Other
// agents stop following a.
func (s *Scheduler) Remove(a *agent.Agent) bool {
	idx := s.indexOf(a)
	if idx < 0 {
		return false
	}
	copy(s.agents[idx:], s.agents[idx+1:])
	s.agents[len(s.agents)-1] = nil
	s.agents = s.agents[:len(s.agents)-1]
	if s.cursor > idx {
		s.cursor--
	}
	a.Detach()
	for _, other := range s.agents {
		other.ForgetTarget(a)
	}
	s.storeRoster()
	loggingAgents.Removed(context.Background(), s.publisher, s.tick, loggingAgents.Ref(a.ID()), loggingAgents.RemovedPayload{
		Name:       a.Name(),
		RosterSize: len(s.agents),
	}, nil)
	return true
}

func (s *Scheduler) indexOf(a *agent.Agent) int {
	for i, existing := range s.agents {
		if existing == a {
			return i
		}
	}
	return -1
}

// TickResult summarises one frame tick.
type TickResult struct {
	Tick      uint64
	Agents    int
	Performed int
	Failed    int
}

// Tick runs one frame: a perform pass over the roster, then elapsed time and
// look updates for every agent, then movement for agents that do not move on
// the physics step.
func (s *Scheduler) Tick(dt float64) TickResult {
	s.tick++
	performed, failed := s.performPass()

	roster := s.Agents()
	for _, a := range roster {
		a.AddElapsed(dt)
		a.LookCalculations(dt)
	}
	for _, a := range roster {
		if a.Integration().FixedStep() {
			continue
		}
		a.CalculateMoveVelocity(dt)
		a.Integrate(dt)
	}

	if s.metrics != nil {
		s.metrics.Add("scheduler_ticks", 1)
		s.metrics.Add("scheduler_performed", uint64(performed))
		if failed > 0 {
			s.metrics.Add("scheduler_perform_failures", uint64(failed))
		}
	}
	return TickResult{Tick: s.tick, Agents: len(s.agents), Performed: performed, Failed: failed}
}

// PhysicsStep moves agents that integrate on the fixed step.
func (s *Scheduler) PhysicsStep(dt float64) int {
	s.physics++
	moved := 0
	for _, a := range s.Agents() {
		if !a.Integration().FixedStep() {
			continue
		}
		a.CalculateMoveVelocity(dt)
		a.Integrate(dt)
		moved++
	}
	return moved
}

// performPass runs Perform on the agents due this tick. Without a per-tick
// cap the pass starts at the first agent and runs to the end of the roster as
// it was when the pass began. With a cap it continues round robin from where
// the previous tick stopped.
func (s *Scheduler) performPass() (performed, failed int) {
	if len(s.agents) == 0 {
		s.cursor = 0
		return 0, 0
	}
	limit := s.config.MaxAgentsPerTick
	if limit <= 0 {
		s.cursor = 0
		limit = len(s.agents)
		for s.cursor < len(s.agents) && performed < limit {
			if !s.performAt(s.cursor) {
				failed++
			}
			performed++
		}
		return performed, failed
	}
	if limit > len(s.agents) {
		limit = len(s.agents)
	}
	seen := make(map[*agent.Agent]struct{}, limit)
	for performed < limit && len(s.agents) > 0 {
		if s.cursor >= len(s.agents) {
			s.cursor = 0
		}
		if _, done := seen[s.agents[s.cursor]]; done {
			break
		}
		seen[s.agents[s.cursor]] = struct{}{}
		if !s.performAt(s.cursor) {
			failed++
		}
		performed++
	}
	if s.cursor >= len(s.agents) {
		s.cursor = 0
	}
	return performed, failed
}

// performAt runs the agent at idx and advances the cursor unless the agent
// removed itself or an earlier agent during its turn.
func (s *Scheduler) performAt(idx int) bool {
	a := s.agents[idx]
	ok := s.perform(a)
	if s.cursor < len(s.agents) && s.agents[s.cursor] == a {
		s.cursor++
	}
	return ok
}

func (s *Scheduler) perform(a *agent.Agent) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			err := fmt.Sprint(r)
			if s.logger != nil {
				s.logger.Printf("[scheduler] agent %s panicked: %s", a.Name(), err)
			}
			loggingAgents.PerformFailed(context.Background(), s.publisher, s.tick, loggingAgents.Ref(a.ID()), loggingAgents.PerformFailedPayload{
				Name:  a.Name(),
				Error: err,
			}, nil)
		}
	}()
	a.Perform()
	return true
}

func (s *Scheduler) storeRoster() {
	if s.metrics != nil {
		s.metrics.Store("scheduler_agents", uint64(len(s.agents)))
	}
}

// Snapshot is a read-only view of the scheduler.
type Snapshot struct {
	Tick         uint64           `json:"tick" msgpack:"tick"`
	PhysicsSteps uint64           `json:"physicsSteps" msgpack:"physicsSteps"`
	Cursor       int              `json:"cursor" msgpack:"cursor"`
	Best         string           `json:"best,omitempty" msgpack:"best,omitempty"`
	Agents       []agent.Snapshot `json:"agents" msgpack:"agents"`
	Messages     []string         `json:"messages,omitempty" msgpack:"messages,omitempty"`
}

// Snapshot captures the roster. Each agent carries at most maxMessages log
// lines and the roster-wide log is cut to the same length.
func (s *Scheduler) Snapshot(maxMessages int) Snapshot {
	snap := Snapshot{
		Tick:         s.tick,
		PhysicsSteps: s.physics,
		Cursor:       s.cursor,
		Agents:       make([]agent.Snapshot, 0, len(s.agents)),
	}
	for _, a := range s.agents {
		snap.Agents = append(snap.Agents, a.Snapshot(maxMessages))
	}
	if best, ok := s.Best(); ok {
		snap.Best = best.Name()
	}
	if maxMessages > 0 {
		msgs := s.messages.Messages()
		if len(msgs) > maxMessages {
			msgs = msgs[:maxMessages]
		}
		snap.Messages = msgs
	}
	return snap
}

// host is the scheduler as agents see it.
type host struct {
	s *Scheduler
}

func (h *host) Mind() agent.State            { return h.s.mind }
func (h *host) States() *agent.Registry      { return h.s.registry }
func (h *host) Settings() agent.Settings     { return h.s.config.Settings }
func (h *host) Navigation() agent.Navigation { return h.s.nav }
func (h *host) Tick() uint64                 { return h.s.tick }

func (h *host) StateChanged(a *agent.Agent, from, to agent.State) {
	loggingAgents.StateChanged(context.Background(), h.s.publisher, h.s.tick, loggingAgents.Ref(a.ID()), loggingAgents.StateChangedPayload{
		From: agent.StateName(from),
		To:   agent.StateName(to),
	}, nil)
}

func (h *host) Message(a *agent.Agent, message string) {
	settings := h.s.config.Settings
	h.s.messages.Add(a.Name()+": "+message, settings.MessageMode, settings.MaxMessages)
	loggingAgents.Message(context.Background(), h.s.publisher, h.s.tick, loggingAgents.Ref(a.ID()), loggingAgents.MessagePayload{
		Name:    a.Name(),
		Message: message,
	}, nil)
}

var _ agent.Host = (*host)(nil)
