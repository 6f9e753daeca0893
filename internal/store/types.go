package store

import (
	"time"

	"github.com/roach88/playscript/internal/ir"
)

// RunStatus is the outcome of a run.
type RunStatus string

const (
	StatusRunning   RunStatus = "running"
	StatusCompleted RunStatus = "completed"
	StatusQuit      RunStatus = "quit"
	StatusFailed    RunStatus = "failed"
)

// Run is one execution of a script.
type Run struct {
	ID         string     `json:"id"`
	Script     string     `json:"script"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Status     RunStatus  `json:"status"`
	Error      string     `json:"error,omitempty"`
}

// EventType names a trace event.
type EventType string

const (
	EventVar    EventType = "var"
	EventBranch EventType = "branch"
	EventJump   EventType = "jump"
	EventPlay   EventType = "play"
	EventQuit   EventType = "quit"
)

// Event is one trace event of a run. Seq comes from the run's logical
// clock; ID is the content hash of (run, seq, payload).
type Event struct {
	ID      string      `json:"id"`
	RunID   string      `json:"run_id"`
	Seq     int64       `json:"seq"`
	Line    int         `json:"line"`
	Type    EventType   `json:"type"`
	Payload ir.IRObject `json:"payload"`
}
