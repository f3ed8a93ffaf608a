package net

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"

	"easy-ai/server/internal/agent"
	"easy-ai/server/internal/geom"
	"easy-ai/server/internal/scheduler"
	"easy-ai/server/logging"
	"easy-ai/server/logging/sinks"
)

type chatty struct{ agent.BaseState }

func (chatty) Execute(a *agent.Agent) { a.Log("tick") }

func newLoop(t *testing.T, names ...string) *scheduler.Loop {
	t.Helper()
	s := scheduler.New(scheduler.DefaultConfig())
	for i, name := range names {
		s.Add(agent.New(agent.Options{
			Name:     name,
			Position: geom.V(float64(i), 0, 0),
			Mind:     chatty{},
		}))
	}
	loop := scheduler.NewLoop(s, scheduler.LoopConfig{}, scheduler.LoopHooks{}, nil, nil, nil)
	loop.Advance(0.1)
	return loop
}

func TestHealth(t *testing.T) {
	handler := NewHTTPHandler(newLoop(t), HTTPHandlerConfig{})

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health", nil))

	if resp.Code != http.StatusOK || resp.Body.String() != "ok" {
		t.Fatalf("expected ok, got %d %q", resp.Code, resp.Body.String())
	}
}

func TestDiagnosticsReportsRosterAndMetrics(t *testing.T) {
	metrics := &logging.Metrics{}
	metrics.Store("scheduler_agents", 2)
	now := time.Unix(1700000000, 0)
	handler := NewHTTPHandler(newLoop(t, "a", "b"), HTTPHandlerConfig{
		Metrics:  metrics,
		TickRate: 30,
		Now:      func() time.Time { return now },
	})

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/diagnostics", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200 OK, got %d", resp.Code)
	}

	var payload struct {
		Status     string            `json:"status"`
		ServerTime int64             `json:"serverTime"`
		TickRate   int               `json:"tickRate"`
		Tick       uint64            `json:"tick"`
		Agents     int               `json:"agents"`
		Metrics    map[string]uint64 `json:"metrics"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode diagnostics: %v", err)
	}
	if payload.Status != "ok" || payload.TickRate != 30 || payload.ServerTime != now.UnixMilli() {
		t.Fatalf("unexpected diagnostics header: %+v", payload)
	}
	if payload.Tick != 1 || payload.Agents != 2 {
		t.Fatalf("expected tick 1 with 2 agents, got tick %d agents %d", payload.Tick, payload.Agents)
	}
	if payload.Metrics["scheduler_agents"] != 2 {
		t.Fatalf("expected metrics to be included, got %v", payload.Metrics)
	}
}

func TestDiagnosticsRejectsWrongMethod(t *testing.T) {
	handler := NewHTTPHandler(newLoop(t), HTTPHandlerConfig{})

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/diagnostics", nil))

	if resp.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected status 405, got %d", resp.Code)
	}
}

func TestAgentsHonorsMessageLimit(t *testing.T) {
	handler := NewHTTPHandler(newLoop(t, "bob"), HTTPHandlerConfig{DefaultMessages: 5})

	tests := []struct {
		query    string
		code     int
		messages int
	}{
		{query: "", code: http.StatusOK, messages: 1},
		{query: "?messages=0", code: http.StatusOK, messages: 0},
		{query: "?messages=-1", code: http.StatusBadRequest},
		{query: "?messages=lots", code: http.StatusBadRequest},
	}
	for _, tt := range tests {
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/agents"+tt.query, nil))
		if resp.Code != tt.code {
			t.Fatalf("%q: expected status %d, got %d", tt.query, tt.code, resp.Code)
		}
		if tt.code != http.StatusOK {
			continue
		}
		var snap scheduler.Snapshot
		if err := json.Unmarshal(resp.Body.Bytes(), &snap); err != nil {
			t.Fatalf("%q: failed to decode snapshot: %v", tt.query, err)
		}
		if len(snap.Agents) != 1 || snap.Agents[0].Name != "bob" {
			t.Fatalf("%q: unexpected agents %+v", tt.query, snap.Agents)
		}
		if len(snap.Messages) != tt.messages {
			t.Fatalf("%q: expected %d messages, got %v", tt.query, tt.messages, snap.Messages)
		}
	}
}

func TestPprofIsOptIn(t *testing.T) {
	loop := newLoop(t)
	for _, enabled := range []bool{false, true} {
		handler := NewHTTPHandler(loop, HTTPHandlerConfig{EnablePprof: enabled})
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil))
		if got := resp.Code == http.StatusOK; got != enabled {
			t.Fatalf("pprof enabled=%v but got status %d", enabled, resp.Code)
		}
	}
}

func dial(t *testing.T, server *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/agents" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func TestStreamPushesSnapshots(t *testing.T) {
	loop := newLoop(t, "bob", "elsa")
	server := httptest.NewServer(NewHTTPHandler(loop, HTTPHandlerConfig{StreamInterval: 10 * time.Millisecond}))
	defer server.Close()

	conn := dial(t, server, "")
	kind, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if kind != websocket.TextMessage {
		t.Fatalf("expected text frame, got %d", kind)
	}
	var first scheduler.Snapshot
	if err := json.Unmarshal(data, &first); err != nil {
		t.Fatalf("failed to decode snapshot: %v", err)
	}
	if len(first.Agents) != 2 {
		t.Fatalf("expected 2 agents, got %d", len(first.Agents))
	}

	loop.Advance(0.1)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read failed: %v", err)
		}
		var next scheduler.Snapshot
		if err := json.Unmarshal(data, &next); err != nil {
			t.Fatalf("failed to decode snapshot: %v", err)
		}
		if next.Tick == 2 {
			return
		}
	}
}

func TestStreamMsgpackFrames(t *testing.T) {
	server := httptest.NewServer(NewHTTPHandler(newLoop(t, "bob"), HTTPHandlerConfig{}))
	defer server.Close()

	conn := dial(t, server, "?format=msgpack&messages=2")
	kind, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if kind != websocket.BinaryMessage {
		t.Fatalf("expected binary frame, got %d", kind)
	}
	var snap scheduler.Snapshot
	if err := msgpack.Unmarshal(data, &snap); err != nil {
		t.Fatalf("failed to decode msgpack snapshot: %v", err)
	}
	if len(snap.Agents) != 1 || snap.Agents[0].Name != "bob" || snap.Tick != 1 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if len(snap.Messages) != 1 || snap.Messages[0] != "bob: tick" {
		t.Fatalf("unexpected messages %v", snap.Messages)
	}
}

func TestStreamRejectsUnknownFormat(t *testing.T) {
	handler := NewHTTPHandler(newLoop(t), HTTPHandlerConfig{})

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/ws/agents?format=xml", nil))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
}

func TestEventsServesNewestFirst(t *testing.T) {
	memory := sinks.NewBoundedMemorySink(10)
	for tick := uint64(1); tick <= 3; tick++ {
		memory.Write(logging.Event{Type: "agents.registered", Tick: tick})
	}
	handler := NewHTTPHandler(newLoop(t), HTTPHandlerConfig{Events: memory})

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/events?n=2", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200 OK, got %d", resp.Code)
	}
	var events []logging.Event
	if err := json.Unmarshal(resp.Body.Bytes(), &events); err != nil {
		t.Fatalf("failed to decode events: %v", err)
	}
	if len(events) != 2 || events[0].Tick != 3 || events[1].Tick != 2 {
		t.Fatalf("unexpected events %+v", events)
	}

	resp = httptest.NewRecorder()
	NewHTTPHandler(newLoop(t), HTTPHandlerConfig{}).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/events", nil))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected /events to be absent without a memory sink, got %d", resp.Code)
	}
}
