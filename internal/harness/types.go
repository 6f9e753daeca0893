package harness

import (
	"github.com/roach88/playscript/internal/ir"
)

// TraceEvent is one recorded event of a scenario run, read back from the
// store.
type TraceEvent struct {
	Type    string      `json:"type"` // var, branch, jump, play or quit
	Line    int         `json:"line"`
	Seq     int64       `json:"seq"`
	Payload ir.IRObject `json:"payload"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expectation and assertion held.
	Pass bool `json:"pass"`

	// RunID and Status come from the interpreter's run record.
	RunID  string `json:"run_id"`
	Status string `json:"status"`

	// Trace is the run log in seq order.
	Trace []TraceEvent `json:"trace"`

	// Played holds the queued track ids in order.
	Played []string `json:"played"`

	// Vars is the variable environment after the run.
	Vars map[string]float64 `json:"vars"`

	// Warnings are the end-of-run warnings (unreached jump target,
	// unclosed if).
	Warnings []string `json:"warnings,omitempty"`

	// Diagnostic fields are set when the script failed.
	ErrorKind    string `json:"error_kind,omitempty"`
	ErrorLine    int    `json:"error_line,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`

	// Errors lists failed expectations and assertions.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Played: []string{},
		Vars:   map[string]float64{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends an event to the trace.
func (r *Result) AddTrace(typ string, line int, seq int64, payload ir.IRObject) {
	if payload == nil {
		payload = ir.IRObject{}
	}
	r.Trace = append(r.Trace, TraceEvent{Type: typ, Line: line, Seq: seq, Payload: payload})
}
