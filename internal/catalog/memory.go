package catalog

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"golang.org/x/text/cases"
)

// MemorySource is an in-process Source over fixed data. Searches match
// names case-insensitively, exact matches first, then substrings.
// It counts calls per method so tests can assert cache behaviour.
type MemorySource struct {
	mu    sync.Mutex
	fold  cases.Caser
	calls map[string]int

	Playlists      map[string][]string // playlist id -> track ids
	PlaylistNames  map[string]string   // playlist id -> name
	Tracks         map[string]TrackInfo
	Albums         []AlbumInfo
	AlbumTrackIDs  map[string][]string // album id -> track ids
	Artists        []ArtistInfo
	ArtistAlbumIDs map[string][]string // artist id -> album ids
}

// NewMemorySource creates an empty MemorySource.
func NewMemorySource() *MemorySource {
	return &MemorySource{
		fold:           cases.Fold(),
		calls:          make(map[string]int),
		Playlists:      make(map[string][]string),
		PlaylistNames:  make(map[string]string),
		Tracks:         make(map[string]TrackInfo),
		AlbumTrackIDs:  make(map[string][]string),
		ArtistAlbumIDs: make(map[string][]string),
	}
}

// AddTracks registers tracks by id.
func (m *MemorySource) AddTracks(tracks ...TrackInfo) {
	for _, t := range tracks {
		m.Tracks[t.ID] = t
	}
}

// AddPlaylist registers a named playlist.
func (m *MemorySource) AddPlaylist(id, name string, trackIDs ...string) {
	m.Playlists[id] = trackIDs
	m.PlaylistNames[id] = name
}

// AddAlbum registers an album and its tracks. Length defaults to the
// number of track ids.
func (m *MemorySource) AddAlbum(info AlbumInfo, trackIDs ...string) {
	if info.Length == 0 {
		info.Length = int64(len(trackIDs))
	}
	m.Albums = append(m.Albums, info)
	m.AlbumTrackIDs[info.ID] = trackIDs
}

// AddArtist registers an artist and its album ids.
func (m *MemorySource) AddArtist(info ArtistInfo, albumIDs ...string) {
	m.Artists = append(m.Artists, info)
	m.ArtistAlbumIDs[info.ID] = albumIDs
}

// Calls returns how many times a method was called.
func (m *MemorySource) Calls(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

func (m *MemorySource) count(method string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[method]++
}

// best picks the first exact (case-folded) name match, else the first
// substring match.
func best[T any](m *MemorySource, query string, items []T, name func(T) string) (T, bool) {
	q := m.fold.String(query)
	for _, it := range items {
		if m.fold.String(name(it)) == q {
			return it, true
		}
	}
	for _, it := range items {
		if strings.Contains(m.fold.String(name(it)), q) {
			return it, true
		}
	}
	var zero T
	return zero, false
}

func (m *MemorySource) SearchPlaylist(_ context.Context, query string) (string, error) {
	m.count("SearchPlaylist")
	ids := sortedKeys(m.PlaylistNames)
	id, ok := best(m, query, ids, func(id string) string { return m.PlaylistNames[id] })
	if !ok {
		return "", fmt.Errorf("playlist %q: %w", query, ErrNotFound)
	}
	return id, nil
}

func (m *MemorySource) PlaylistTracks(_ context.Context, playlistID string) ([]TrackInfo, error) {
	m.count("PlaylistTracks")
	ids, ok := m.Playlists[playlistID]
	if !ok {
		return nil, fmt.Errorf("playlist %s: %w", playlistID, ErrNotFound)
	}
	return m.lookupAll(ids)
}

func (m *MemorySource) SearchAlbum(_ context.Context, query string) (AlbumInfo, error) {
	m.count("SearchAlbum")
	a, ok := best(m, query, m.Albums, func(a AlbumInfo) string { return a.Name })
	if !ok {
		return AlbumInfo{}, fmt.Errorf("album %q: %w", query, ErrNotFound)
	}
	return a, nil
}

func (m *MemorySource) SearchArtist(_ context.Context, query string) (ArtistInfo, error) {
	m.count("SearchArtist")
	a, ok := best(m, query, m.Artists, func(a ArtistInfo) string { return a.Name })
	if !ok {
		return ArtistInfo{}, fmt.Errorf("artist %q: %w", query, ErrNotFound)
	}
	return a, nil
}

func (m *MemorySource) SearchTrack(_ context.Context, query string) (TrackInfo, error) {
	m.count("SearchTrack")
	tracks := make([]TrackInfo, 0, len(m.Tracks))
	for _, id := range sortedKeys(m.Tracks) {
		tracks = append(tracks, m.Tracks[id])
	}
	t, ok := best(m, query, tracks, func(t TrackInfo) string { return t.Name })
	if !ok {
		return TrackInfo{}, fmt.Errorf("track %q: %w", query, ErrNotFound)
	}
	return t, nil
}

func (m *MemorySource) Track(_ context.Context, id string) (TrackInfo, error) {
	m.count("Track")
	t, ok := m.Tracks[id]
	if !ok {
		return TrackInfo{}, fmt.Errorf("track %s: %w", id, ErrNotFound)
	}
	return t, nil
}

func (m *MemorySource) AlbumTracks(_ context.Context, albumID string) ([]TrackInfo, error) {
	m.count("AlbumTracks")
	ids, ok := m.AlbumTrackIDs[albumID]
	if !ok {
		return nil, fmt.Errorf("album %s: %w", albumID, ErrNotFound)
	}
	return m.lookupAll(ids)
}

func (m *MemorySource) ArtistAlbums(_ context.Context, artistID string) ([]AlbumInfo, error) {
	m.count("ArtistAlbums")
	ids, ok := m.ArtistAlbumIDs[artistID]
	if !ok {
		return nil, fmt.Errorf("artist %s: %w", artistID, ErrNotFound)
	}
	byID := make(map[string]AlbumInfo, len(m.Albums))
	for _, a := range m.Albums {
		byID[a.ID] = a
	}
	out := make([]AlbumInfo, 0, len(ids))
	for _, id := range ids {
		a, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("album %s: %w", id, ErrNotFound)
		}
		out = append(out, a)
	}
	return out, nil
}

func (m *MemorySource) lookupAll(ids []string) ([]TrackInfo, error) {
	out := make([]TrackInfo, 0, len(ids))
	for _, id := range ids {
		t, ok := m.Tracks[id]
		if !ok {
			return nil, fmt.Errorf("track %s: %w", id, ErrNotFound)
		}
		out = append(out, t)
	}
	return out, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
