// Package events carries pass-completion notifications from the engine's
// batch passes to SSE subscribers.
package events

import (
	"encoding/json"
	"time"
)

// Event types published by the engine.
const (
	TypeIngestComplete    = "ingest_complete"
	TypeMacroComplete     = "macro_complete"
	TypeSweepComplete     = "sweep_complete"
	TypeAggregateComplete = "aggregate_complete"
)

type Event struct {
	Type  string          `json:"type"`
	At    time.Time       `json:"at"`
	RunID string          `json:"run_id,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Make renders one event in its wire form, with the pass statistics as the
// payload. A payload that fails to marshal degrades to an event without data
// rather than a dropped notification.
func Make(typ, runID string, data any) string {
	var raw json.RawMessage
	if data != nil {
		if b, err := json.Marshal(data); err == nil {
			raw = b
		}
	}
	e := Event{Type: typ, At: time.Now().UTC(), RunID: runID, Data: raw}
	b, _ := json.Marshal(e)
	return string(b)
}
