package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/roach88/playscript/internal/catalog"
	"github.com/roach88/playscript/internal/diag"
	"github.com/roach88/playscript/internal/expr"
	"github.com/roach88/playscript/internal/ir"
	"github.com/roach88/playscript/internal/script"
	"github.com/roach88/playscript/internal/store"
)

// Interpreter executes playback scripts line by line.
//
// An Interpreter is not safe for concurrent use. It owns the variable
// environment (through its evaluator) and the control state.
type Interpreter struct {
	eval      *expr.Evaluator
	commander *Commander
	recorder  Recorder
	runIDs    RunIDGenerator
	now       func() time.Time
	logger    *slog.Logger

	state  State
	clock  *Clock
	runID  string
	name   string
	played []catalog.TrackInfo
	last   int
}

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithRecorder sets where the run log is written. The default discards it.
func WithRecorder(r Recorder) Option {
	return func(in *Interpreter) {
		in.recorder = r
	}
}

// WithRunIDs sets the run id generator. Default: UUIDv7Generator.
func WithRunIDs(g RunIDGenerator) Option {
	return func(in *Interpreter) {
		in.runIDs = g
	}
}

// WithNow sets the wall clock used for run start and finish times.
func WithNow(now func() time.Time) Option {
	return func(in *Interpreter) {
		in.now = now
	}
}

// WithLogger sets the logger. The default discards output.
func WithLogger(l *slog.Logger) Option {
	return func(in *Interpreter) {
		if l != nil {
			in.logger = l
		}
	}
}

// WithSettle sets the pause between starting a playback session and
// retrying an enqueue. Default: DefaultSettle.
func WithSettle(d time.Duration) Option {
	return func(in *Interpreter) {
		in.commander.settle = d
	}
}

// WithSleep replaces the settle pause implementation.
func WithSleep(sleep SleepFunc) Option {
	return func(in *Interpreter) {
		in.commander.sleep = sleep
	}
}

// New creates an Interpreter that evaluates expressions with ev and sends
// playback requests to sink. Track selection uses ev's random source.
func New(ev *expr.Evaluator, sink Sink, opts ...Option) *Interpreter {
	in := &Interpreter{
		eval:      ev,
		commander: NewCommander(sink, ev.Rand()),
		recorder:  nopRecorder{},
		runIDs:    UUIDv7Generator{},
		now:       time.Now,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		clock:     NewClock(),
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Result summarizes a run.
type Result struct {
	RunID    string
	Status   store.RunStatus
	Played   []catalog.TrackInfo
	Warnings []string
}

// State returns a copy of the control state.
func (in *Interpreter) State() State { return in.state }

// Env returns the variable environment.
func (in *Interpreter) Env() *expr.Env { return in.eval.Env() }

// RunID returns the id of the current run, empty before Begin.
func (in *Interpreter) RunID() string { return in.runID }

// Played returns the tracks queued so far in the current run.
func (in *Interpreter) Played() []catalog.TrackInfo {
	return append([]catalog.TrackInfo(nil), in.played...)
}

// Run executes s from the first line to the last, or until quit or the
// first error. Errors raised by script lines are *diag.Diagnostic.
func (in *Interpreter) Run(ctx context.Context, s *script.Script) (*Result, error) {
	if err := in.Begin(ctx, s.Name); err != nil {
		return nil, err
	}

	status := store.StatusCompleted
	var runErr error
	for n := 1; n <= s.Len(); n++ {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		quit, err := in.Step(ctx, n, s.Line(n))
		if err != nil {
			runErr = err
			break
		}
		if quit {
			status = store.StatusQuit
			break
		}
	}

	var warnings []string
	if runErr == nil {
		warnings = in.pendingWarnings(s.Len())
	}
	res, err := in.Finish(ctx, status, runErr)
	if err != nil {
		return res, err
	}
	res.Warnings = warnings
	return res, runErr
}

// pendingWarnings reports control state left open at the end of a script.
func (in *Interpreter) pendingWarnings(lines int) []string {
	var warnings []string
	if t := in.state.Jump; t != nil {
		msg := fmt.Sprintf("jump target %s was never reached", t)
		if t.IsLine() && t.Line > lines {
			msg = fmt.Sprintf("jump target %d is past the end of the script (%d lines)", t.Line, lines)
		}
		in.logger.Warn("unreached jump target", "target", t.String())
		warnings = append(warnings, msg)
	}
	if in.state.OpenIf != 0 {
		in.logger.Warn("unclosed if block", "line", in.state.OpenIf)
		warnings = append(warnings, fmt.Sprintf("if block opened on line %d is never closed", in.state.OpenIf))
	}
	return warnings
}

// Begin starts a new run named name and resets the control state. The
// variable environment is kept.
func (in *Interpreter) Begin(ctx context.Context, name string) error {
	in.runID = in.runIDs.Generate()
	in.name = name
	in.state = State{}
	in.clock = NewClock()
	in.played = nil
	in.last = 0

	err := in.recorder.BeginRun(ctx, store.Run{
		ID:        in.runID,
		Script:    name,
		StartedAt: in.now(),
		Status:    store.StatusRunning,
	})
	if err != nil {
		return fmt.Errorf("begin run: %w", err)
	}
	in.logger.Debug("run started", "run", in.runID, "script", name)
	return nil
}

// Finish closes the current run. A non-nil runErr marks it failed.
func (in *Interpreter) Finish(ctx context.Context, status store.RunStatus, runErr error) (*Result, error) {
	errText := ""
	if runErr != nil {
		status = store.StatusFailed
		errText = runErr.Error()
	}
	res := &Result{RunID: in.runID, Status: status, Played: in.played}

	// The run outcome is recorded even when ctx was cancelled.
	if err := in.recorder.FinishRun(context.WithoutCancel(ctx), in.runID, status, in.now(), errText); err != nil {
		return res, fmt.Errorf("finish run: %w", err)
	}
	in.logger.Debug("run finished", "run", in.runID, "status", status, "played", len(in.played), "events", in.clock.Current())
	return res, nil
}

// Step executes line n of the current run. It reports whether the line
// was quit. Lines must be stepped in increasing order.
func (in *Interpreter) Step(ctx context.Context, n int, raw string) (bool, error) {
	if n <= in.last {
		return false, fmt.Errorf("line %d stepped after line %d", n, in.last)
	}
	in.last = n

	quit, err := in.step(ctx, n, raw)
	return quit, lineError(in.name, n, raw, err)
}

func (in *Interpreter) step(ctx context.Context, n int, raw string) (bool, error) {
	// A numeric target on a blank or comment line is never reached.
	line := strings.TrimSpace(raw)
	if script.Skippable(line) {
		return false, nil
	}

	if t := in.state.Jump; t != nil && t.IsLine() && t.Line == n {
		in.state.Jump = nil
		in.logger.Debug("jump target reached", "line", n)
	}

	kw, rest := script.Split(line)
	if err := script.ValidateKeyword(kw); err != nil {
		return false, err
	}

	if t := in.state.Jump; t != nil {
		if t.IsLine() || !script.IsCoda(line, t.Label) {
			return false, nil
		}
		in.state.Jump = nil
		in.logger.Debug("coda reached", "label", t.Label, "line", n)
	}

	action, err := in.state.advance(kw, n)
	if err != nil {
		return false, err
	}
	switch action {
	case actSkip, actClose:
		return false, nil
	case actEvaluate:
		return false, in.branch(ctx, n, kw, rest)
	}

	in.logger.Debug("execute", "line", n, "keyword", string(kw))
	return in.dispatch(ctx, n, kw, rest)
}

func (in *Interpreter) dispatch(ctx context.Context, n int, kw script.Keyword, rest string) (bool, error) {
	switch kw {
	case script.Var:
		return false, in.assign(ctx, n, rest)
	case script.JumpTo:
		return false, in.jump(ctx, n, rest)
	case script.Play:
		return false, in.play(ctx, n, rest)
	case script.Quit:
		return true, in.record(ctx, n, store.EventQuit, nil)
	case script.While, script.Repeat:
		return false, notImplemented(string(kw))
	}
	// pass and coda are no-ops.
	return false, nil
}

func (in *Interpreter) assign(ctx context.Context, n int, rest string) error {
	a, err := script.ParseVar(rest)
	if err != nil {
		return err
	}
	v, err := in.eval.Number(ctx, a.Expr)
	if err != nil {
		return err
	}
	if err := in.eval.Env().Set(a.Name, v); err != nil {
		return err
	}
	return in.record(ctx, n, store.EventVar, ir.IRObject{
		"name":  ir.IRString(a.Name),
		"value": ir.IRString(expr.FormatNumber(v)),
	})
}

func (in *Interpreter) branch(ctx context.Context, n int, kw script.Keyword, rest string) error {
	matched := true
	if kw != script.Else {
		if rest == "" {
			return diag.Errorf(diag.KindSyntax, "%s needs a condition", kw)
		}
		var err error
		matched, err = in.eval.Condition(ctx, rest)
		if err != nil {
			return err
		}
	}
	in.state.take(matched)
	return in.record(ctx, n, store.EventBranch, ir.IRObject{
		"keyword": ir.IRString(kw),
		"taken":   ir.IRBool(matched),
	})
}

func (in *Interpreter) jump(ctx context.Context, n int, rest string) error {
	t, err := script.ParseJump(rest)
	if err != nil {
		return err
	}
	in.state.Jump = &t
	return in.record(ctx, n, store.EventJump, ir.IRObject{"target": ir.IRString(t.String())})
}

func (in *Interpreter) play(ctx context.Context, n int, rest string) error {
	cmd, err := script.ParsePlay(rest)
	if err != nil {
		return err
	}

	source, err := in.eval.Query(ctx, cmd.Source)
	if err != nil {
		return err
	}
	pool, err := Pool(ctx, source)
	if err != nil {
		return err
	}

	var q float64
	if !cmd.All() {
		if q, err = in.eval.Number(ctx, cmd.Quantity); err != nil {
			return err
		}
	}
	k, err := Count(cmd.All(), q, len(pool))
	if err != nil {
		return err
	}
	if _, single := source.(*catalog.Track); single {
		k = 1
	}

	for _, t := range in.commander.Select(pool, k) {
		if err := in.commander.Enqueue(ctx, t); err != nil {
			return err
		}
		in.played = append(in.played, t.Info())
		in.logger.Info("queued track", "line", n, "id", t.ID(), "name", t.Info().Name)
		if err := in.record(ctx, n, store.EventPlay, ir.IRObject{
			"id":   ir.IRString(t.ID()),
			"name": ir.IRString(t.Info().Name),
		}); err != nil {
			return err
		}
	}
	return nil
}

// record writes a trace event stamped with the next logical seq.
func (in *Interpreter) record(ctx context.Context, n int, typ store.EventType, payload ir.IRObject) error {
	if payload == nil {
		payload = ir.IRObject{}
	}
	err := in.recorder.WriteEvent(ctx, store.Event{
		RunID:   in.runID,
		Seq:     in.clock.Next(),
		Line:    n,
		Type:    typ,
		Payload: payload,
	})
	if err != nil {
		return fmt.Errorf("record %s event: %w", typ, err)
	}
	return nil
}
