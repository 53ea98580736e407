package events

import (
	"encoding/json"
	"time"
)

const (
	TypeRunStarted  = "run_started"
	TypeRunFinished = "run_finished"
	TypeJobCreated  = "job_created"
	TypeApplication = "application"
	TypePing        = "ping"
)

type Event struct {
	Type  string          `json:"type"`
	RunID string          `json:"run_id,omitempty"`
	At    time.Time       `json:"at"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Make builds the wire form of an event. data that cannot be marshalled
// is dropped.
func Make(typ, runID string, data any) string {
	e := Event{Type: typ, RunID: runID, At: time.Now().UTC()}
	if data != nil {
		if b, err := json.Marshal(data); err == nil {
			e.Data = b
		}
	}
	b, _ := json.Marshal(e)
	return string(b)
}
