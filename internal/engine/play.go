package engine

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/roach88/playscript/internal/catalog"
	"github.com/roach88/playscript/internal/diag"
	"github.com/roach88/playscript/internal/expr"
)

// DefaultSettle is the pause after starting a playback session before the
// enqueue is retried.
const DefaultSettle = 500 * time.Millisecond

// ErrNoSession is returned by sinks when no playback session is active.
var ErrNoSession = errors.New("no active playback session")

// Sink receives playback requests.
type Sink interface {
	// Enqueue adds a track to the active session's queue.
	Enqueue(ctx context.Context, trackID string) error

	// StartSession starts playback on an available device.
	StartSession(ctx context.Context) error
}

// SleepFunc pauses for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Commander selects tracks from a pool and sends them to a Sink.
type Commander struct {
	sink   Sink
	rng    *rand.Rand
	settle time.Duration
	sleep  SleepFunc
}

// NewCommander creates a Commander. rng drives track selection.
func NewCommander(sink Sink, rng *rand.Rand) *Commander {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Commander{
		sink:   sink,
		rng:    rng,
		settle: DefaultSettle,
		sleep:  sleepContext,
	}
}

// Pool returns the tracks a play command draws from. A single Track is a
// pool of one.
func Pool(ctx context.Context, ent catalog.Entity) ([]*catalog.Track, error) {
	switch src := ent.(type) {
	case *catalog.Track:
		return []*catalog.Track{src}, nil
	case *catalog.Album:
		c, err := src.Tracks(ctx)
		if err != nil {
			return nil, err
		}
		return c.Tracks()
	case *catalog.Collection:
		return src.Tracks()
	default:
		return nil, diag.Errorf(diag.KindValue, "cannot play from %s", ent)
	}
}

// Count returns how many tracks to play from a pool of size n. q is
// floored and clamped to n; all selects the whole pool.
func Count(all bool, q float64, n int) (int, error) {
	if all {
		return n, nil
	}
	if math.IsNaN(q) || q < 0 {
		return 0, diag.Errorf(diag.KindValue, "cannot play %s tracks", formatQuantity(q))
	}
	f := math.Floor(q)
	if f >= float64(n) {
		return n, nil
	}
	return int(f), nil
}

func formatQuantity(q float64) string {
	if math.IsNaN(q) {
		return "nan"
	}
	return expr.FormatNumber(q)
}

// Select picks k distinct tracks from pool uniformly at random.
func (c *Commander) Select(pool []*catalog.Track, k int) []*catalog.Track {
	if k > len(pool) {
		k = len(pool)
	}
	perm := c.rng.Perm(len(pool))
	out := make([]*catalog.Track, k)
	for i := range k {
		out[i] = pool[perm[i]]
	}
	return out
}

// Enqueue requests playback of one track. When the enqueue fails a session
// is started and, after the settle pause, the enqueue is retried once.
func (c *Commander) Enqueue(ctx context.Context, t *catalog.Track) error {
	err := c.sink.Enqueue(ctx, t.ID())
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	if serr := c.sink.StartSession(ctx); serr != nil {
		return diag.Wrap(diag.KindPlayback, serr, "cannot start playback for %s: %v", t, serr)
	}
	if serr := c.sleep(ctx, c.settle); serr != nil {
		return serr
	}
	if err := c.sink.Enqueue(ctx, t.ID()); err != nil {
		return diag.Wrap(diag.KindPlayback, err, "cannot queue %s: %v", t, err)
	}
	return nil
}

// MemorySink records enqueued track ids. Enqueue fails with ErrNoSession
// until StartSession has been called, unless Active is set.
type MemorySink struct {
	mu sync.Mutex

	// Active reports whether a session is running.
	Active bool

	// FailStart makes StartSession fail.
	FailStart bool

	queue  []string
	starts int
}

// NewMemorySink creates a sink with an active session.
func NewMemorySink() *MemorySink {
	return &MemorySink{Active: true}
}

func (m *MemorySink) Enqueue(_ context.Context, trackID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.Active {
		return ErrNoSession
	}
	m.queue = append(m.queue, trackID)
	return nil
}

func (m *MemorySink) StartSession(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.starts++
	if m.FailStart {
		return errors.New("no playback device available")
	}
	m.Active = true
	return nil
}

// Queue returns the enqueued ids in order.
func (m *MemorySink) Queue() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.queue...)
}

// Starts returns how many times StartSession was called.
func (m *MemorySink) Starts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.starts
}
