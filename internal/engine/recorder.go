package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/roach88/playscript/internal/store"
)

// Recorder receives the run log. *store.Store implements it.
type Recorder interface {
	BeginRun(ctx context.Context, run store.Run) error
	WriteEvent(ctx context.Context, ev store.Event) error
	FinishRun(ctx context.Context, runID string, status store.RunStatus, finishedAt time.Time, errText string) error
}

var _ Recorder = (*store.Store)(nil)

type nopRecorder struct{}

func (nopRecorder) BeginRun(context.Context, store.Run) error     { return nil }
func (nopRecorder) WriteEvent(context.Context, store.Event) error { return nil }
func (nopRecorder) FinishRun(context.Context, string, store.RunStatus, time.Time, string) error {
	return nil
}

// MemoryRecorder keeps the run log in memory.
type MemoryRecorder struct {
	mu     sync.Mutex
	runs   map[string]*store.Run
	events map[string][]store.Event
}

// NewMemoryRecorder creates an empty MemoryRecorder.
func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{
		runs:   make(map[string]*store.Run),
		events: make(map[string][]store.Event),
	}
}

func (m *MemoryRecorder) BeginRun(_ context.Context, run store.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.runs[run.ID]; ok {
		return nil
	}
	run.Status = store.StatusRunning
	m.runs[run.ID] = &run
	return nil
}

func (m *MemoryRecorder) WriteEvent(_ context.Context, ev store.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.runs[ev.RunID]; !ok {
		return fmt.Errorf("write event: run %s not found", ev.RunID)
	}
	m.events[ev.RunID] = append(m.events[ev.RunID], ev)
	return nil
}

func (m *MemoryRecorder) FinishRun(_ context.Context, runID string, status store.RunStatus, finishedAt time.Time, errText string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[runID]
	if !ok {
		return fmt.Errorf("finish run: run %s not found", runID)
	}
	run.Status = status
	run.FinishedAt = &finishedAt
	run.Error = errText
	return nil
}

// Run returns a recorded run.
func (m *MemoryRecorder) Run(runID string) (store.Run, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[runID]
	if !ok {
		return store.Run{}, false
	}
	return *run, true
}

// Events returns a run's events ordered by seq.
func (m *MemoryRecorder) Events(runID string) []store.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]store.Event(nil), m.events[runID]...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}
