package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/roach88/playscript/internal/catalog"
	"github.com/roach88/playscript/internal/diag"
	"github.com/roach88/playscript/internal/engine"
	"github.com/roach88/playscript/internal/expr"
	"github.com/roach88/playscript/internal/script"
	"github.com/roach88/playscript/internal/store"
	"github.com/roach88/playscript/internal/testutil"
)

// DefaultSeed seeds the random source when a scenario sets none.
const DefaultSeed uint64 = 1

// Harness is the test execution engine.
// It runs scenarios with a deterministic clock, run ids and random source.
type Harness struct {
	store    *store.Store
	resolver *catalog.Resolver
	sink     *engine.MemorySink
	interp   *engine.Interpreter
	logger   *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation. A script
// failure is not an error: it is reported through Result and checked
// against the scenario's expectations. Errors are returned only when the
// harness itself cannot run the scenario.
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h, err := newHarness(ctx, st, scenario)
	if err != nil {
		return nil, err
	}

	result := NewResult()
	if err := h.execute(ctx, scenario, result); err != nil {
		return nil, err
	}

	checkExpect(result, scenario.Expect)

	actx := &AssertionContext{
		Store: st,
		Ctx:   ctx,
	}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	return result, nil
}

func newHarness(ctx context.Context, st *store.Store, scenario *Scenario) (*Harness, error) {
	cache := catalog.NewCache()
	for name, id := range scenario.Catalog.Aliases {
		cache.SetAlias(name, id)
		if err := st.SetAlias(ctx, name, id); err != nil {
			return nil, fmt.Errorf("failed to seed alias %q: %w", name, err)
		}
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests
	resolver := catalog.NewResolver(scenario.Catalog.Source(), cache)

	seed := scenario.Seed
	if seed == 0 {
		seed = DefaultSeed
	}
	ev := expr.New(expr.NewEnv(), resolver,
		expr.WithRand(rand.New(rand.NewPCG(seed, seed))),
		expr.WithClock(func() time.Time { return testutil.Epoch }),
	)

	sink := engine.NewMemorySink()
	sink.Active = !scenario.Session.Inactive
	sink.FailStart = scenario.Session.FailStart

	clock := testutil.NewDeterministicClock()
	interp := engine.New(ev, sink,
		engine.WithRecorder(st),
		engine.WithRunIDs(testutil.NewSequentialRunIDs(scenario.Name)),
		engine.WithNow(clock.Now),
		engine.WithLogger(logger),
		engine.WithSettle(0),
	)

	return &Harness{
		store:    st,
		resolver: resolver,
		sink:     sink,
		interp:   interp,
		logger:   logger,
	}, nil
}

// execute runs the script and fills result from the run record.
func (h *Harness) execute(ctx context.Context, scenario *Scenario, result *Result) error {
	s := script.Parse(scenario.Name, scenario.Script)

	res, runErr := h.interp.Run(ctx, s)
	if res == nil {
		return fmt.Errorf("failed to run script: %w", runErr)
	}
	if runErr != nil {
		d, ok := diag.AsDiagnostic(runErr)
		if !ok {
			return fmt.Errorf("failed to run script: %w", runErr)
		}
		result.ErrorKind = string(d.Kind())
		result.ErrorLine = d.Line
		result.ErrorMessage = diag.Message(d.Err)
	}

	// The track cache is persisted whatever the outcome.
	if _, err := h.store.SaveTracks(ctx, h.resolver.Cache().Added()); err != nil {
		return fmt.Errorf("failed to save track cache: %w", err)
	}

	result.RunID = res.RunID
	result.Status = string(res.Status)
	result.Warnings = res.Warnings
	for _, t := range res.Played {
		result.Played = append(result.Played, t.ID)
	}
	for name, v := range h.interp.Env().Snapshot() {
		result.Vars[name] = v
	}

	events, err := h.store.ReadEvents(ctx, res.RunID)
	if err != nil {
		return fmt.Errorf("failed to read trace: %w", err)
	}
	for _, ev := range events {
		result.AddTrace(string(ev.Type), ev.Line, ev.Seq, ev.Payload)
	}

	h.logger.Info("scenario executed",
		"run", res.RunID,
		"status", res.Status,
		"events", len(events),
		"queued", len(h.sink.Queue()),
	)
	return nil
}
