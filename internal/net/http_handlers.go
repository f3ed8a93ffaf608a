package net

import (
	"encoding/json"
	nethttp "net/http"
	"net/http/pprof"
	"strconv"
	"time"

	"easy-ai/server/internal/scheduler"
	"easy-ai/server/internal/telemetry"
	"easy-ai/server/logging"
)

// Source is the running simulation as seen by the inspection surface.
type Source interface {
	Snapshot(maxMessages int) scheduler.Snapshot
	Counters() *telemetry.Counters
}

// RouterStats reports event router throughput.
type RouterStats interface {
	Stats() logging.RouterStats
}

// RecentEvents serves the newest routed events, newest first.
type RecentEvents interface {
	Recent(n int) []logging.Event
}

type HTTPHandlerConfig struct {
	Logger  telemetry.Logger
	Metrics *logging.Metrics
	Router  RouterStats
	// Events enables /events when set.
	Events         RecentEvents
	TickRate       int
	StreamInterval time.Duration
	EnablePprof    bool
	// DefaultMessages is how many log lines a snapshot carries when the
	// request does not say.
	DefaultMessages int
	Now             func() time.Time
}

func (cfg HTTPHandlerConfig) normalized() HTTPHandlerConfig {
	if cfg.Logger == nil {
		cfg.Logger = telemetry.Discard
	}
	if cfg.StreamInterval <= 0 {
		cfg.StreamInterval = 250 * time.Millisecond
	}
	if cfg.DefaultMessages < 0 {
		cfg.DefaultMessages = 0
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return cfg
}

func NewHTTPHandler(source Source, cfg HTTPHandlerConfig) nethttp.Handler {
	cfg = cfg.normalized()
	mux := nethttp.NewServeMux()

	mux.HandleFunc("/health", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/diagnostics", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodGet {
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}
		snap := source.Snapshot(0)
		payload := struct {
			Status     string               `json:"status"`
			ServerTime int64                `json:"serverTime"`
			TickRate   int                  `json:"tickRate"`
			Tick       uint64               `json:"tick"`
			Agents     int                  `json:"agents"`
			Best       string               `json:"best,omitempty"`
			Telemetry  telemetry.Snapshot   `json:"telemetry"`
			Metrics    map[string]uint64    `json:"metrics,omitempty"`
			Logging    *logging.RouterStats `json:"logging,omitempty"`
		}{
			Status:     "ok",
			ServerTime: cfg.Now().UnixMilli(),
			TickRate:   cfg.TickRate,
			Tick:       snap.Tick,
			Agents:     len(snap.Agents),
			Best:       snap.Best,
		}
		if counters := source.Counters(); counters != nil {
			payload.Telemetry = counters.Snapshot()
		}
		if cfg.Metrics != nil {
			payload.Metrics = cfg.Metrics.Snapshot()
		}
		if cfg.Router != nil {
			stats := cfg.Router.Stats()
			payload.Logging = &stats
		}
		writeJSON(w, payload)
	})

	mux.HandleFunc("/agents", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodGet {
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}
		limit, ok := messageLimit(r, cfg.DefaultMessages)
		if !ok {
			httpError(w, "invalid messages", nethttp.StatusBadRequest)
			return
		}
		writeJSON(w, source.Snapshot(limit))
	})

	mux.Handle("/ws/agents", newStreamHandler(source, cfg))

	if cfg.Events != nil {
		mux.HandleFunc("/events", func(w nethttp.ResponseWriter, r *nethttp.Request) {
			limit := 50
			if raw := r.URL.Query().Get("n"); raw != "" {
				n, err := strconv.Atoi(raw)
				if err != nil || n < 0 {
					httpError(w, "invalid n", nethttp.StatusBadRequest)
					return
				}
				limit = n
			}
			events := cfg.Events.Recent(limit)
			if events == nil {
				events = []logging.Event{}
			}
			writeJSON(w, events)
		})
	}

	if cfg.EnablePprof {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}

	return mux
}

// messageLimit reads ?messages=N, falling back to def when absent.
func messageLimit(r *nethttp.Request, def int) (int, bool) {
	raw := r.URL.Query().Get("messages")
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func writeJSON(w nethttp.ResponseWriter, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		httpError(w, "failed to encode", nethttp.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func httpError(w nethttp.ResponseWriter, msg string, code int) {
	nethttp.Error(w, msg, code)
}
