package catalog

import (
	"context"
	"errors"
)

// ErrNotFound is returned by a Source when nothing matches a query or id.
var ErrNotFound = errors.New("not found")

// Source is the online catalog the Resolver falls back to.
// Implementations return ErrNotFound (possibly wrapped) when a search or
// lookup has no result.
type Source interface {
	// SearchPlaylist returns the id of the best playlist match for query.
	SearchPlaylist(ctx context.Context, query string) (string, error)

	// PlaylistTracks returns the tracks of a playlist in playlist order.
	PlaylistTracks(ctx context.Context, playlistID string) ([]TrackInfo, error)

	SearchAlbum(ctx context.Context, query string) (AlbumInfo, error)
	SearchArtist(ctx context.Context, query string) (ArtistInfo, error)
	SearchTrack(ctx context.Context, query string) (TrackInfo, error)

	// Track looks up a track by id.
	Track(ctx context.Context, id string) (TrackInfo, error)

	// AlbumTracks returns an album's tracks in disc order.
	AlbumTracks(ctx context.Context, albumID string) ([]TrackInfo, error)

	// ArtistAlbums returns an artist's albums and singles.
	ArtistAlbums(ctx context.Context, artistID string) ([]AlbumInfo, error)
}
