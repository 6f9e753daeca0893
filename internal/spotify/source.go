package spotify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/playscript/internal/catalog"
)

var _ catalog.Source = (*Client)(nil)

const (
	playlistPageSize = 100
	albumPageSize    = 50
	trackBatchSize   = 50
)

// search runs a single-result search of one type.
func (c *Client) search(ctx context.Context, kind, q string) (searchResponse, error) {
	var resp searchResponse
	err := c.do(ctx, http.MethodGet, "/search", url.Values{
		"q":      {q},
		"type":   {kind},
		"limit":  {"1"},
		"market": {c.market},
	}, &resp)
	return resp, err
}

func notFound(kind, q string) error {
	return fmt.Errorf("%s %q: %w", kind, q, catalog.ErrNotFound)
}

func (c *Client) SearchPlaylist(ctx context.Context, q string) (string, error) {
	resp, err := c.search(ctx, "playlist", q)
	if err != nil {
		return "", err
	}
	// The API returns null entries for playlists that are unavailable.
	if resp.Playlists != nil {
		for _, p := range resp.Playlists.Items {
			if p != nil {
				return p.URI, nil
			}
		}
	}
	return "", notFound("playlist", q)
}

func (c *Client) SearchAlbum(ctx context.Context, q string) (catalog.AlbumInfo, error) {
	resp, err := c.search(ctx, "album", q)
	if err != nil {
		return catalog.AlbumInfo{}, err
	}
	if resp.Albums == nil || len(resp.Albums.Items) == 0 {
		return catalog.AlbumInfo{}, notFound("album", q)
	}
	return resp.Albums.Items[0].info(), nil
}

func (c *Client) SearchArtist(ctx context.Context, q string) (catalog.ArtistInfo, error) {
	resp, err := c.search(ctx, "artist", q)
	if err != nil {
		return catalog.ArtistInfo{}, err
	}
	if resp.Artists == nil || len(resp.Artists.Items) == 0 {
		return catalog.ArtistInfo{}, notFound("artist", q)
	}
	return resp.Artists.Items[0].info(), nil
}

func (c *Client) SearchTrack(ctx context.Context, q string) (catalog.TrackInfo, error) {
	resp, err := c.search(ctx, "track", q)
	if err != nil {
		return catalog.TrackInfo{}, err
	}
	if resp.Tracks == nil || len(resp.Tracks.Items) == 0 {
		return catalog.TrackInfo{}, notFound("track", q)
	}
	return resp.Tracks.Items[0].info(), nil
}

// Track looks up a track by id or uri.
func (c *Client) Track(ctx context.Context, id string) (catalog.TrackInfo, error) {
	var t trackObject
	err := c.do(ctx, http.MethodGet, "/tracks/"+url.PathEscape(bareID(id)), url.Values{"market": {c.market}}, &t)
	if err != nil {
		return catalog.TrackInfo{}, err
	}
	return t.info(), nil
}

// PlaylistTracks returns a playlist's tracks in playlist order. Local files
// and removed tracks are skipped.
func (c *Client) PlaylistTracks(ctx context.Context, playlistID string) ([]catalog.TrackInfo, error) {
	path := "/playlists/" + url.PathEscape(bareID(playlistID)) + "/tracks"
	items, err := fetchAll[playlistItem](ctx, c, path, playlistPageSize, url.Values{"market": {c.market}})
	if err != nil {
		return nil, err
	}
	out := make([]catalog.TrackInfo, 0, len(items))
	for _, it := range items {
		if it.Track == nil || it.Track.URI == "" || strings.HasPrefix(it.Track.URI, "spotify:local:") {
			continue
		}
		out = append(out, it.Track.info())
	}
	return out, nil
}

// AlbumTracks returns an album's tracks. The album endpoint omits
// popularity and release data, so full track objects are fetched in
// batches.
func (c *Client) AlbumTracks(ctx context.Context, albumID string) ([]catalog.TrackInfo, error) {
	path := "/albums/" + url.PathEscape(bareID(albumID)) + "/tracks"
	simple, err := fetchAll[simpleTrack](ctx, c, path, albumPageSize, url.Values{"market": {c.market}})
	if err != nil {
		return nil, err
	}
	uris := make([]string, len(simple))
	for i, s := range simple {
		uris[i] = s.URI
	}
	return c.tracks(ctx, uris)
}

// tracks fetches full track objects for uris, preserving order.
func (c *Client) tracks(ctx context.Context, uris []string) ([]catalog.TrackInfo, error) {
	batches := (len(uris) + trackBatchSize - 1) / trackBatchSize
	results := make([][]catalog.TrackInfo, batches)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.pageLimit)
	for b := range batches {
		lo := b * trackBatchSize
		hi := min(lo+trackBatchSize, len(uris))
		ids := make([]string, 0, hi-lo)
		for _, u := range uris[lo:hi] {
			ids = append(ids, bareID(u))
		}
		g.Go(func() error {
			var resp struct {
				Tracks []*trackObject `json:"tracks"`
			}
			err := c.do(gctx, http.MethodGet, "/tracks", url.Values{
				"ids":    {strings.Join(ids, ",")},
				"market": {c.market},
			}, &resp)
			if err != nil {
				return err
			}
			batch := make([]catalog.TrackInfo, 0, len(resp.Tracks))
			for _, t := range resp.Tracks {
				if t != nil {
					batch = append(batch, t.info())
				}
			}
			results[b] = batch
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]catalog.TrackInfo, 0, len(uris))
	for _, batch := range results {
		out = append(out, batch...)
	}
	return out, nil
}

// ArtistAlbums returns an artist's albums and singles.
func (c *Client) ArtistAlbums(ctx context.Context, artistID string) ([]catalog.AlbumInfo, error) {
	path := "/artists/" + url.PathEscape(bareID(artistID)) + "/albums"
	albums, err := fetchAll[albumObject](ctx, c, path, albumPageSize, url.Values{
		"include_groups": {"album,single"},
		"market":         {c.market},
	})
	if err != nil {
		return nil, err
	}
	out := make([]catalog.AlbumInfo, len(albums))
	for i, a := range albums {
		out[i] = a.info()
	}
	return out, nil
}

// fetchAll reads every page of a paged endpoint. The first page reports the
// total; the rest are fetched concurrently.
func fetchAll[T any](ctx context.Context, c *Client, path string, limit int, query url.Values) ([]T, error) {
	pageQuery := func(offset int) url.Values {
		q := url.Values{}
		for k, v := range query {
			q[k] = v
		}
		q.Set("limit", strconv.Itoa(limit))
		q.Set("offset", strconv.Itoa(offset))
		return q
	}

	var first page[T]
	if err := c.do(ctx, http.MethodGet, path, pageQuery(0), &first); err != nil {
		return nil, err
	}
	if first.Total <= len(first.Items) {
		return first.Items, nil
	}

	rest := (first.Total - 1) / limit
	pages := make([][]T, rest)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.pageLimit)
	for i := range rest {
		g.Go(func() error {
			var p page[T]
			if err := c.do(gctx, http.MethodGet, path, pageQuery((i+1)*limit), &p); err != nil {
				return err
			}
			pages[i] = p.Items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]T, 0, first.Total)
	out = append(out, first.Items...)
	for _, p := range pages {
		out = append(out, p...)
	}
	return out, nil
}
