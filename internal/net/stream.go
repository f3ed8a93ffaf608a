package net

import (
	"encoding/json"
	nethttp "net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"

	"easy-ai/server/internal/telemetry"
)

const writeWait = 5 * time.Second

// streamHandler pushes scheduler snapshots over a websocket until the client
// goes away. ?format=msgpack switches to binary frames.
type streamHandler struct {
	source   Source
	logger   telemetry.Logger
	interval time.Duration
	messages int
	upgrader websocket.Upgrader
}

func newStreamHandler(source Source, cfg HTTPHandlerConfig) *streamHandler {
	return &streamHandler{
		source:   source,
		logger:   cfg.Logger,
		interval: cfg.StreamInterval,
		messages: cfg.DefaultMessages,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *nethttp.Request) bool {
				return true
			},
		},
	}
}

func (h *streamHandler) ServeHTTP(w nethttp.ResponseWriter, r *nethttp.Request) {
	limit, ok := messageLimit(r, h.messages)
	if !ok {
		httpError(w, "invalid messages", nethttp.StatusBadRequest)
		return
	}
	binary := false
	switch r.URL.Query().Get("format") {
	case "", "json":
	case "msgpack":
		binary = true
	default:
		httpError(w, "unknown format", nethttp.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("upgrade failed for %s: %v", r.RemoteAddr, err)
		return
	}
	defer conn.Close()

	// Reads only notice the close frame.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		if err := h.send(conn, limit, binary); err != nil {
			h.logger.Printf("stream to %s ended: %v", r.RemoteAddr, err)
			return
		}
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}

func (h *streamHandler) send(conn *websocket.Conn, limit int, binary bool) error {
	snap := h.source.Snapshot(limit)
	var (
		data []byte
		err  error
		kind = websocket.TextMessage
	)
	if binary {
		kind = websocket.BinaryMessage
		data, err = msgpack.Marshal(snap)
	} else {
		data, err = json.Marshal(snap)
	}
	if err != nil {
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(kind, data)
}
