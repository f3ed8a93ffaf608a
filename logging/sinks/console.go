package sinks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"sort"
	"strings"

	"easy-ai/server/logging"
)

// ConsoleSink prints one human readable line per event:
//
//	tick=12 info agents.registered agent:3f2c name=Bob rosterSize=1
type ConsoleSink struct {
	logger *log.Logger
}

func NewConsoleSink(w io.Writer, cfg logging.ConsoleConfig) *ConsoleSink {
	flags := log.LstdFlags
	if cfg.Microseconds {
		flags |= log.Lmicroseconds
	}
	return &ConsoleSink{logger: log.New(w, cfg.Prefix, flags)}
}

func (s *ConsoleSink) Write(event logging.Event) error {
	var b strings.Builder
	fmt.Fprintf(&b, "tick=%d %s %s", event.Tick, event.Severity, event.Type)
	if actor := entity(event.Actor); actor != "" {
		b.WriteString(" " + actor)
	}
	if len(event.Targets) > 0 {
		names := make([]string, 0, len(event.Targets))
		for _, t := range event.Targets {
			names = append(names, entity(t))
		}
		b.WriteString(" -> " + strings.Join(names, ","))
	}
	writeFields(&b, payloadFields(event.Payload))
	writeFields(&b, event.Extra)
	s.logger.Print(b.String())
	return nil
}

func (s *ConsoleSink) Close(context.Context) error {
	return nil
}

func entity(ref logging.EntityRef) string {
	switch {
	case ref.ID == "":
		return string(ref.Kind)
	case ref.Kind == "":
		return ref.ID
	default:
		return string(ref.Kind) + ":" + ref.ID
	}
}

// payloadFields flattens a payload struct into its top-level JSON fields.
func payloadFields(payload any) map[string]any {
	if payload == nil {
		return nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return map[string]any{"payload": fmt.Sprint(payload)}
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return map[string]any{"payload": string(data)}
	}
	return fields
}

func writeFields(b *strings.Builder, fields map[string]any) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := fields[k]
		switch v.(type) {
		case map[string]any, []any:
			data, _ := json.Marshal(v)
			fmt.Fprintf(b, " %s=%s", k, data)
		default:
			fmt.Fprintf(b, " %s=%v", k, v)
		}
	}
}
