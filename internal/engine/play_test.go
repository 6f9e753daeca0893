package engine

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/playscript/internal/catalog"
	"github.com/roach88/playscript/internal/diag"
)

func pool(n int) []*catalog.Track {
	out := make([]*catalog.Track, n)
	for i := range out {
		out[i] = catalog.NewTrack(catalog.TrackInfo{ID: string(rune('a' + i)), Name: "t"})
	}
	return out
}

func TestCount(t *testing.T) {
	tests := []struct {
		all  bool
		q    float64
		n    int
		want int
	}{
		{true, 0, 12, 12},
		{false, 3, 12, 3},
		{false, 3.7, 12, 3},
		{false, 30, 12, 12},
		{false, 3, 1, 1},
		{false, 0, 5, 0},
		{false, 0.5, 5, 0},
		{false, math.Inf(1), 5, 5},
	}
	for _, tt := range tests {
		got, err := Count(tt.all, tt.q, tt.n)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "Count(%v, %v, %d)", tt.all, tt.q, tt.n)
	}

	for _, q := range []float64{-1, -0.5, math.NaN()} {
		_, err := Count(false, q, 5)
		assert.True(t, diag.Is(err, diag.KindValue), "quantity %v", q)
	}
}

func TestSelect_Distinct(t *testing.T) {
	c := NewCommander(NewMemorySink(), rand.New(rand.NewPCG(7, 7)))
	p := pool(10)

	for k := 0; k <= 12; k++ {
		got := c.Select(p, k)
		assert.Len(t, got, min(k, 10))
		seen := map[string]bool{}
		for _, tr := range got {
			assert.False(t, seen[tr.ID()])
			seen[tr.ID()] = true
		}
	}
}

func TestSelect_Deterministic(t *testing.T) {
	p := pool(10)
	a := NewCommander(nil, rand.New(rand.NewPCG(3, 4))).Select(p, 4)
	b := NewCommander(nil, rand.New(rand.NewPCG(3, 4))).Select(p, 4)
	assert.Equal(t, a, b)
}

func TestPool(t *testing.T) {
	ctx := context.Background()
	infos := []catalog.TrackInfo{{ID: "1"}, {ID: "2"}, {ID: "3"}}

	album := catalog.NewAlbum(catalog.AlbumInfo{ID: "a", Name: "A", Length: 3}, func(context.Context) (*catalog.Collection, error) {
		return catalog.TrackCollection("A", infos), nil
	})
	got, err := Pool(ctx, album)
	require.NoError(t, err)
	assert.Len(t, got, 3)

	got, err = Pool(ctx, catalog.TrackCollection("c", infos[:2]))
	require.NoError(t, err)
	assert.Len(t, got, 2)

	single := catalog.NewTrack(infos[0])
	got, err = Pool(ctx, single)
	require.NoError(t, err)
	assert.Equal(t, []*catalog.Track{single}, got)

	artist := catalog.NewArtist(catalog.ArtistInfo{ID: "x", Name: "X"}, nil)
	_, err = Pool(ctx, artist)
	assert.True(t, diag.Is(err, diag.KindValue))

	albums := catalog.NewCollection("albums", []catalog.Entity{album})
	_, err = Pool(ctx, albums)
	assert.True(t, diag.Is(err, diag.KindValue), "collections of albums are not playable")
}

// flakySink fails the first n enqueues.
type flakySink struct {
	fail     int
	enqueued []string
	starts   int
}

func (s *flakySink) Enqueue(_ context.Context, id string) error {
	if s.fail > 0 {
		s.fail--
		return errors.New("device not found")
	}
	s.enqueued = append(s.enqueued, id)
	return nil
}

func (s *flakySink) StartSession(context.Context) error {
	s.starts++
	return nil
}

func TestEnqueue_RetriesOnce(t *testing.T) {
	ctx := context.Background()
	track := catalog.NewTrack(catalog.TrackInfo{ID: "spotify:track:1", Name: "One"})

	sink := &flakySink{fail: 1}
	c := NewCommander(sink, nil)
	c.sleep = func(context.Context, time.Duration) error { return nil }
	require.NoError(t, c.Enqueue(ctx, track))
	assert.Equal(t, []string{"spotify:track:1"}, sink.enqueued)
	assert.Equal(t, 1, sink.starts)

	sink = &flakySink{fail: 2}
	c = NewCommander(sink, nil)
	c.sleep = func(context.Context, time.Duration) error { return nil }
	err := c.Enqueue(ctx, track)
	assert.True(t, diag.Is(err, diag.KindPlayback))
	assert.Contains(t, err.Error(), "device not found")
	assert.Equal(t, 1, sink.starts, "only one retry")
}

func TestEnqueue_CancelledDuringSettle(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sink := &flakySink{fail: 1}
	c := NewCommander(sink, nil)
	c.settle = time.Hour
	cancel()

	err := c.Enqueue(ctx, catalog.NewTrack(catalog.TrackInfo{ID: "1"}))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, sink.enqueued)
}

func TestMemorySink(t *testing.T) {
	ctx := context.Background()
	s := &MemorySink{}
	assert.ErrorIs(t, s.Enqueue(ctx, "x"), ErrNoSession)
	require.NoError(t, s.StartSession(ctx))
	require.NoError(t, s.Enqueue(ctx, "x"))
	assert.Equal(t, []string{"x"}, s.Queue())
	assert.Equal(t, 1, s.Starts())
}
