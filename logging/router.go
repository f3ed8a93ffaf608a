package logging

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

type Clock interface {
	Now() time.Time
}

type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time {
	return f()
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

type Sink interface {
	Write(Event) error
	Close(context.Context) error
}

type NamedSink struct {
	Name string
	Sink Sink
}

// Router fans published events out to sinks. Publish never blocks: when the
// queue is full the event is counted as dropped. Each sink drains its own
// buffer on a dedicated goroutine so a slow file does not stall the console.
type Router struct {
	clock      Clock
	fallback   *log.Logger
	queue      chan Event
	workers    []*sinkWorker
	floor      Severity
	categories map[string]bool
	fields     map[string]any
	dropWarn   time.Duration

	stop   chan struct{}
	done   chan struct{}
	closed atomic.Bool
	wg     sync.WaitGroup

	accepted    atomic.Uint64
	dropped     atomic.Uint64
	lastDropLog atomic.Int64
}

type SinkStats struct {
	Written uint64 `json:"written"`
	Dropped uint64 `json:"dropped"`
	Failed  uint64 `json:"failed"`
}

type RouterStats struct {
	EventsTotal  uint64               `json:"events"`
	DroppedTotal uint64               `json:"dropped"`
	Sinks        map[string]SinkStats `json:"sinks,omitempty"`
}

func NewRouter(clock Clock, cfg Config, namedSinks []NamedSink) (*Router, error) {
	if clock == nil {
		clock = SystemClock{}
	}
	bufferSize := cfg.BufferSize
	if bufferSize <= 0 {
		bufferSize = 512
	}
	sinkBuffer := min(max(bufferSize, 32), 1024)

	r := &Router{
		clock:    clock,
		fallback: log.New(os.Stderr, "[logging] ", log.LstdFlags),
		queue:    make(chan Event, bufferSize),
		floor:    cfg.MinimumSeverity,
		dropWarn: cfg.DropWarnInterval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	if r.dropWarn <= 0 {
		r.dropWarn = 5 * time.Second
	}
	if len(cfg.Categories) > 0 {
		r.categories = make(map[string]bool, len(cfg.Categories))
		for _, c := range cfg.Categories {
			r.categories[c] = true
		}
	}
	if len(cfg.Fields) > 0 {
		r.fields = make(map[string]any, len(cfg.Fields))
		for k, v := range cfg.Fields {
			r.fields[k] = v
		}
	}

	seen := make(map[string]bool, len(namedSinks))
	for _, named := range namedSinks {
		if named.Sink == nil {
			continue
		}
		if seen[named.Name] {
			return nil, fmt.Errorf("logging: duplicate sink %q", named.Name)
		}
		seen[named.Name] = true
		threshold := cfg.Threshold(named.Name)
		r.floor = min(r.floor, threshold)
		r.workers = append(r.workers, &sinkWorker{
			name:      named.Name,
			sink:      named.Sink,
			threshold: threshold,
			events:    make(chan Event, sinkBuffer),
			fallback:  r.fallback,
		})
	}

	r.wg.Add(1 + len(r.workers))
	go r.dispatch()
	for _, w := range r.workers {
		go func(w *sinkWorker) {
			defer r.wg.Done()
			w.run()
		}(w)
	}
	go func() {
		r.wg.Wait()
		close(r.done)
	}()
	return r, nil
}

func (r *Router) dispatch() {
	defer r.wg.Done()
	defer func() {
		for _, w := range r.workers {
			close(w.events)
		}
	}()
	for {
		select {
		case event := <-r.queue:
			r.forward(event)
		case <-r.stop:
			for {
				select {
				case event := <-r.queue:
					r.forward(event)
				default:
					return
				}
			}
		}
	}
}

func (r *Router) forward(event Event) {
	if event.Severity < r.floor {
		return
	}
	if r.categories != nil && !r.categories[event.Category] {
		return
	}
	if event.Time.IsZero() {
		event.Time = r.clock.Now()
	}
	if len(r.fields) > 0 {
		extra := make(map[string]any, len(r.fields)+len(event.Extra))
		for k, v := range r.fields {
			extra[k] = v
		}
		for k, v := range event.Extra {
			extra[k] = v
		}
		event.Extra = extra
	}
	r.accepted.Add(1)
	for _, w := range r.workers {
		if event.Severity >= w.threshold {
			w.enqueue(event)
		}
	}
}

func (r *Router) Publish(ctx context.Context, event Event) {
	if event.Type == "" || r.closed.Load() {
		return
	}
	select {
	case r.queue <- event:
	default:
		r.drop(event)
	}
}

func (r *Router) drop(event Event) {
	r.dropped.Add(1)
	now := time.Now().UnixNano()
	next := r.lastDropLog.Load()
	if now >= next && r.lastDropLog.CompareAndSwap(next, now+r.dropWarn.Nanoseconds()) {
		r.fallback.Printf("queue full, dropping event type=%s tick=%d", event.Type, event.Tick)
	}
}

// Close flushes queued events and closes every sink. Calling it again is a
// no-op.
func (r *Router) Close(ctx context.Context) error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(r.stop)
	select {
	case <-r.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	var firstErr error
	for _, w := range r.workers {
		if err := w.sink.Close(ctx); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close sink %s: %w", w.name, err)
		}
	}
	return firstErr
}

func (r *Router) Stats() RouterStats {
	stats := RouterStats{
		EventsTotal:  r.accepted.Load(),
		DroppedTotal: r.dropped.Load(),
	}
	if len(r.workers) > 0 {
		stats.Sinks = make(map[string]SinkStats, len(r.workers))
		for _, w := range r.workers {
			stats.Sinks[w.name] = SinkStats{
				Written: w.written.Load(),
				Dropped: w.dropped.Load(),
				Failed:  w.failed.Load(),
			}
		}
	}
	return stats
}

func (r *Router) Sink(name string) Sink {
	for _, w := range r.workers {
		if w.name == name {
			return w.sink
		}
	}
	return nil
}

// sinkWorker owns one sink. After a failed write the sink is paused with
// exponential backoff; events arriving while paused are counted as failed.
type sinkWorker struct {
	name      string
	sink      Sink
	threshold Severity
	events    chan Event
	fallback  *log.Logger

	failures    int
	pausedUntil time.Time

	written atomic.Uint64
	dropped atomic.Uint64
	failed  atomic.Uint64
}

const maxSinkBackoff = 5 * time.Second

func (w *sinkWorker) enqueue(event Event) {
	select {
	case w.events <- event:
	default:
		if w.dropped.Add(1) == 1 {
			w.fallback.Printf("sink %s backlog full, dropping events", w.name)
		}
	}
}

func (w *sinkWorker) run() {
	for event := range w.events {
		if w.failures > 0 && time.Now().Before(w.pausedUntil) {
			w.failed.Add(1)
			continue
		}
		if err := w.sink.Write(event); err != nil {
			w.failed.Add(1)
			w.failures++
			delay := min(time.Duration(1<<min(w.failures, 6))*100*time.Millisecond, maxSinkBackoff)
			w.pausedUntil = time.Now().Add(delay)
			w.fallback.Printf("sink %s failed: %v (paused for %s)", w.name, err, delay)
			continue
		}
		w.failures = 0
		w.written.Add(1)
	}
}
