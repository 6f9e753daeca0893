package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/playscript/internal/catalog"
)

// createTestStore creates a new store in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestTrack creates a track with minimal required fields.
func createTestTrack(id, artist string, year int64) catalog.TrackInfo {
	return catalog.TrackInfo{
		ID:       id,
		Name:     "Song " + id,
		Artist:   artist,
		Year:     year,
		Duration: 200,
		Position: 1,
	}
}
