package catalog

import (
	"golang.org/x/text/cases"
)

// Cache is the run's lookup table: playlist aliases and tracks by id.
// It is loaded before a run, appended to during it, and persisted by the
// caller afterwards. Not safe for concurrent use.
type Cache struct {
	fold    cases.Caser
	aliases map[string]string
	tracks  map[string]TrackInfo
	added   []string
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{
		fold:    cases.Fold(),
		aliases: make(map[string]string),
		tracks:  make(map[string]TrackInfo),
	}
}

// SetAlias maps a playlist name to a playlist id. Names compare
// case-insensitively.
func (c *Cache) SetAlias(name, playlistID string) {
	c.aliases[c.fold.String(name)] = playlistID
}

// Alias returns the playlist id registered for name.
func (c *Cache) Alias(name string) (string, bool) {
	id, ok := c.aliases[c.fold.String(name)]
	return id, ok
}

// Preload seeds the cache with persisted tracks. Preloaded tracks are not
// reported by Added.
func (c *Cache) Preload(tracks []TrackInfo) {
	for _, t := range tracks {
		c.tracks[t.ID] = t
	}
}

// Track returns the cached metadata for id.
func (c *Cache) Track(id string) (TrackInfo, bool) {
	t, ok := c.tracks[id]
	return t, ok
}

// Remember adds or refreshes a track. It reports whether the cache changed.
func (c *Cache) Remember(t TrackInfo) bool {
	if t.ID == "" {
		return false
	}
	old, ok := c.tracks[t.ID]
	if ok && old == t {
		return false
	}
	if !ok {
		c.added = append(c.added, t.ID)
	}
	c.tracks[t.ID] = t
	return true
}

// Len returns the number of cached tracks.
func (c *Cache) Len() int { return len(c.tracks) }

// Added returns the tracks first seen since the cache was created, in the
// order they were seen.
func (c *Cache) Added() []TrackInfo {
	out := make([]TrackInfo, 0, len(c.added))
	for _, id := range c.added {
		out = append(out, c.tracks[id])
	}
	return out
}

// Tracks returns every cached track in unspecified order.
func (c *Cache) Tracks() []TrackInfo {
	out := make([]TrackInfo, 0, len(c.tracks))
	for _, t := range c.tracks {
		out = append(out, t)
	}
	return out
}
