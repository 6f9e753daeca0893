package catalog

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/roach88/playscript/internal/diag"
)

// DefaultTrackPrefix marks a query as a track id rather than search text.
const DefaultTrackPrefix = "spotify:track:"

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithTrackPrefix sets the prefix that identifies track ids. Queries with
// the prefix skip the text search.
func WithTrackPrefix(prefix string) ResolverOption {
	return func(r *Resolver) {
		r.trackPrefix = prefix
	}
}

// WithResolverLogger sets the logger. The default discards output.
func WithResolverLogger(l *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// Resolver turns queries into entities: cache first, then text search, then
// direct id lookup. Every track it sees is added to the cache.
type Resolver struct {
	source      Source
	cache       *Cache
	trackPrefix string
	logger      *slog.Logger
}

// NewResolver creates a Resolver over a source and cache. A nil cache is
// replaced with an empty one.
func NewResolver(source Source, cache *Cache, opts ...ResolverOption) *Resolver {
	if cache == nil {
		cache = NewCache()
	}
	r := &Resolver{
		source:      source,
		cache:       cache,
		trackPrefix: DefaultTrackPrefix,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Cache returns the resolver's cache.
func (r *Resolver) Cache() *Cache { return r.cache }

// Resolve returns q unchanged when it is already an Entity; a string query
// is resolved as kind.
func (r *Resolver) Resolve(ctx context.Context, kind Kind, q any) (Entity, error) {
	switch v := q.(type) {
	case Entity:
		return v, nil
	case string:
		switch kind {
		case KindCollection:
			return r.Playlist(ctx, v)
		case KindAlbum:
			return r.Album(ctx, v)
		case KindArtist:
			return r.Artist(ctx, v)
		case KindTrack:
			return r.Track(ctx, v)
		}
		return nil, diag.Errorf(diag.KindType, "cannot resolve %s", kind)
	default:
		return nil, diag.Errorf(diag.KindType, "%s query must be a string, got %T", kind, q)
	}
}

// Playlist resolves a playlist by alias or search.
func (r *Resolver) Playlist(ctx context.Context, q string) (*Collection, error) {
	id, ok := r.cache.Alias(q)
	if ok {
		r.logger.Debug("playlist alias hit", "query", q, "playlist_id", id)
	} else {
		var err error
		id, err = r.source.SearchPlaylist(ctx, q)
		if err != nil {
			return nil, lookupError("playlist", q, err)
		}
	}

	infos, err := r.source.PlaylistTracks(ctx, id)
	if err != nil {
		return nil, lookupError("playlist", q, err)
	}
	r.rememberAll(infos)
	return TrackCollection(q, infos), nil
}

// Album resolves an album by search.
func (r *Resolver) Album(ctx context.Context, q string) (*Album, error) {
	info, err := r.source.SearchAlbum(ctx, q)
	if err != nil {
		return nil, lookupError("album", q, err)
	}
	return r.album(info), nil
}

func (r *Resolver) album(info AlbumInfo) *Album {
	return NewAlbum(info, func(ctx context.Context) (*Collection, error) {
		infos, err := r.source.AlbumTracks(ctx, info.ID)
		if err != nil {
			return nil, lookupError("album tracks", info.Name, err)
		}
		r.rememberAll(infos)
		return TrackCollection(info.Name, infos), nil
	})
}

// Artist resolves an artist by search.
func (r *Resolver) Artist(ctx context.Context, q string) (*Artist, error) {
	info, err := r.source.SearchArtist(ctx, q)
	if err != nil {
		return nil, lookupError("artist", q, err)
	}
	return NewArtist(info, func(ctx context.Context) (*Collection, error) {
		albums, err := r.source.ArtistAlbums(ctx, info.ID)
		if err != nil {
			return nil, lookupError("artist albums", info.Name, err)
		}
		items := make([]Entity, len(albums))
		for i, a := range albums {
			items[i] = r.album(a)
		}
		return NewCollection(info.Name, items), nil
	}), nil
}

// Track resolves a track: by cached id (with or without the track prefix),
// then by text search, then as an id lookup. Queries carrying the track
// prefix skip the search.
func (r *Resolver) Track(ctx context.Context, q string) (*Track, error) {
	id := q
	if !strings.HasPrefix(id, r.trackPrefix) {
		id = r.trackPrefix + q
	}
	for _, key := range []string{q, id} {
		if info, ok := r.cache.Track(key); ok {
			r.logger.Debug("track cache hit", "query", q, "track_id", info.ID)
			return NewTrack(info), nil
		}
	}

	if !strings.HasPrefix(q, r.trackPrefix) {
		info, err := r.source.SearchTrack(ctx, q)
		if err == nil {
			r.cache.Remember(info)
			return NewTrack(info), nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, lookupError("track", q, err)
		}
	}

	info, err := r.source.Track(ctx, id)
	if err != nil {
		return nil, lookupError("track", q, err)
	}
	r.cache.Remember(info)
	return NewTrack(info), nil
}

func (r *Resolver) rememberAll(infos []TrackInfo) {
	for _, info := range infos {
		r.cache.Remember(info)
	}
}

func lookupError(what, q string, err error) error {
	if errors.Is(err, ErrNotFound) {
		return diag.Wrap(diag.KindLookup, err, "no %s matches %q", what, q)
	}
	return diag.Wrap(diag.KindLookup, err, "%s %q: %v", what, q, err)
}
