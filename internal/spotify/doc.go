// Package spotify is the online catalog and playback backend.
//
// Client talks to the Spotify Web API over an OAuth2-authorized
// *http.Client. It implements catalog.Source (search and lookup of
// playlists, albums, artists and tracks) and, through Player, the playback
// sink used by the engine (queue a track, start playback).
//
// Paged endpoints fetch the first page, then the remaining pages
// concurrently. Results are assembled in API order.
//
// Authorization uses the authorization-code flow. The token is kept in a
// JSON file and refreshed tokens are written back to it.
package spotify
