package library

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/roach88/playscript/internal/engine"
)

// QueueFile writes queued tracks to an extended M3U file.
//
// Enqueue fails with engine.ErrNoSession until StartSession has created
// the file, so the engine's start-and-retry path is the normal way in.
type QueueFile struct {
	mu     sync.Mutex
	path   string
	lib    *Library
	active bool
}

var _ engine.Sink = (*QueueFile)(nil)

// NewQueueFile creates a sink writing to path. lib maps track ids to files.
func NewQueueFile(path string, lib *Library) *QueueFile {
	return &QueueFile{path: path, lib: lib}
}

// StartSession truncates the queue file and writes the M3U header.
func (q *QueueFile) StartSession(context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := os.WriteFile(q.path, []byte("#EXTM3U\n"), 0o644); err != nil {
		return fmt.Errorf("start queue: %w", err)
	}
	q.active = true
	return nil
}

// Enqueue appends a track entry.
func (q *QueueFile) Enqueue(_ context.Context, trackID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.active {
		return engine.ErrNoSession
	}

	path, ok := q.lib.Path(trackID)
	if !ok {
		return fmt.Errorf("queue: track %s is not in the library", trackID)
	}
	info := q.lib.Tracks[trackID]

	f, err := os.OpenFile(q.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("queue: %w", err)
	}
	defer f.Close()

	if _, err := fmt.Fprintf(f, "#EXTINF:%d,%s - %s\n%s\n", info.Duration, info.Artist, info.Name, path); err != nil {
		return fmt.Errorf("queue: %w", err)
	}
	return nil
}
