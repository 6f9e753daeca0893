package spotify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/roach88/playscript/internal/catalog"
	"github.com/roach88/playscript/internal/engine"
)

func track(n int) map[string]any {
	return map[string]any{
		"uri":          fmt.Sprintf("spotify:track:t%03d", n),
		"name":         fmt.Sprintf("Song %d", n),
		"duration_ms":  185_400,
		"track_number": n,
		"popularity":   40,
		"album": map[string]any{
			"uri":          "spotify:album:a1",
			"name":         "Things We Lost",
			"release_date": "2001-01-23",
			"total_tracks": 12,
			"artists":      []map[string]any{{"name": "Low"}},
		},
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.Client(), WithBaseURL(srv.URL), WithConcurrency(2))
}

func TestSearch(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /search", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "1", q.Get("limit"))
		assert.Equal(t, "GB", q.Get("market"))
		switch q.Get("type") {
		case "track":
			writeJSON(w, map[string]any{"tracks": map[string]any{"items": []any{track(3)}, "total": 1}})
		case "album":
			writeJSON(w, map[string]any{"albums": map[string]any{"items": []any{track(1)["album"]}, "total": 1}})
		case "artist":
			writeJSON(w, map[string]any{"artists": map[string]any{"items": []any{map[string]any{
				"uri": "spotify:artist:low", "name": "Low",
				"followers": map[string]any{"total": 5000},
				"genres":    []string{"slowcore", "dream pop"},
			}}}})
		case "playlist":
			if q.Get("q") == "missing" {
				writeJSON(w, map[string]any{"playlists": map[string]any{"items": []any{nil}}})
				return
			}
			writeJSON(w, map[string]any{"playlists": map[string]any{"items": []any{
				map[string]any{"uri": "spotify:playlist:pl1", "name": "Late"},
			}}})
		}
	})
	c := newTestClient(t, mux)
	ctx := context.Background()

	tr, err := c.SearchTrack(ctx, "song 3")
	require.NoError(t, err)
	want := catalog.TrackInfo{
		ID: "spotify:track:t003", Name: "Song 3", Artist: "Low",
		Year: 2001, Duration: 185, Position: 3, Popularity: 40,
	}
	if diff := cmp.Diff(want, tr); diff != "" {
		t.Errorf("SearchTrack() mismatch (-want +got):\n%s", diff)
	}

	al, err := c.SearchAlbum(ctx, "things")
	require.NoError(t, err)
	assert.Equal(t, catalog.AlbumInfo{ID: "spotify:album:a1", Name: "Things We Lost", Artist: "Low", Year: 2001, Length: 12}, al)

	ar, err := c.SearchArtist(ctx, "low")
	require.NoError(t, err)
	assert.Equal(t, int64(5000), ar.Followers)
	assert.Equal(t, []string{"slowcore", "dream pop"}, ar.Genres)

	id, err := c.SearchPlaylist(ctx, "late")
	require.NoError(t, err)
	assert.Equal(t, "spotify:playlist:pl1", id)

	_, err = c.SearchPlaylist(ctx, "missing")
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestPlaylistTracks_Paged(t *testing.T) {
	const total = 230
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("GET /playlists/pl1/tracks", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		assert.Equal(t, playlistPageSize, limit)

		var items []any
		for i := offset; i < min(offset+limit, total); i++ {
			if i == 7 {
				items = append(items, map[string]any{"track": nil})
				continue
			}
			items = append(items, map[string]any{"track": track(i)})
		}
		writeJSON(w, map[string]any{"items": items, "total": total, "limit": limit})
	})
	c := newTestClient(t, mux)

	got, err := c.PlaylistTracks(context.Background(), "spotify:playlist:pl1")
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
	require.Len(t, got, total-1)
	for i, tr := range got[:10] {
		n := i
		if i >= 7 {
			n = i + 1
		}
		assert.Equal(t, fmt.Sprintf("spotify:track:t%03d", n), tr.ID, "order preserved")
	}
	assert.Equal(t, "spotify:track:t229", got[len(got)-1].ID)
}

func TestAlbumTracks_BatchesFullLookups(t *testing.T) {
	const total = 60
	mux := http.NewServeMux()
	mux.HandleFunc("GET /albums/a1/tracks", func(w http.ResponseWriter, r *http.Request) {
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		var items []any
		for i := offset; i < min(offset+albumPageSize, total); i++ {
			items = append(items, map[string]any{"uri": fmt.Sprintf("spotify:track:t%03d", i)})
		}
		writeJSON(w, map[string]any{"items": items, "total": total})
	})
	var batches atomic.Int32
	mux.HandleFunc("GET /tracks", func(w http.ResponseWriter, r *http.Request) {
		batches.Add(1)
		ids := strings.Split(r.URL.Query().Get("ids"), ",")
		assert.LessOrEqual(t, len(ids), trackBatchSize)
		var out []any
		for _, id := range ids {
			n, _ := strconv.Atoi(strings.TrimPrefix(id, "t"))
			out = append(out, track(n))
		}
		writeJSON(w, map[string]any{"tracks": out})
	})
	c := newTestClient(t, mux)

	got, err := c.AlbumTracks(context.Background(), "spotify:album:a1")
	require.NoError(t, err)
	require.Len(t, got, total)
	assert.Equal(t, int32(2), batches.Load())
	assert.Equal(t, "spotify:track:t000", got[0].ID)
	assert.Equal(t, "spotify:track:t059", got[59].ID)
	assert.Equal(t, int64(40), got[10].Popularity)
}

func TestArtistAlbums(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /artists/low/albums", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "album,single", r.URL.Query().Get("include_groups"))
		writeJSON(w, map[string]any{"items": []any{track(1)["album"]}, "total": 1})
	})
	c := newTestClient(t, mux)

	got, err := c.ArtistAlbums(context.Background(), "spotify:artist:low")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Things We Lost", got[0].Name)
}

func TestTrack_NotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /tracks/nope", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		writeJSON(w, map[string]any{"error": map[string]any{"status": 404, "message": "Non existing id"}})
	})
	mux.HandleFunc("GET /tracks/broken", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	c := newTestClient(t, mux)

	_, err := c.Track(context.Background(), "spotify:track:nope")
	assert.ErrorIs(t, err, catalog.ErrNotFound)
	assert.Contains(t, err.Error(), "Non existing id")

	_, err = c.Track(context.Background(), "broken")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.NotErrorIs(t, err, catalog.ErrNotFound)
}

func TestResolverOverClient(t *testing.T) {
	var searches atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("GET /search", func(w http.ResponseWriter, r *http.Request) {
		searches.Add(1)
		writeJSON(w, map[string]any{"tracks": map[string]any{"items": []any{track(5)}}})
	})
	c := newTestClient(t, mux)
	r := catalog.NewResolver(c, nil)

	a, err := r.Track(context.Background(), "Song 5")
	require.NoError(t, err)
	b, err := r.Track(context.Background(), "spotify:track:t005")
	require.NoError(t, err)
	assert.Equal(t, a.Info(), b.Info())
	assert.Equal(t, int32(1), searches.Load())
}

func TestPlayer(t *testing.T) {
	var active atomic.Bool
	var queued []string
	mux := http.NewServeMux()
	mux.HandleFunc("POST /me/player/queue", func(w http.ResponseWriter, r *http.Request) {
		if !active.Load() {
			w.WriteHeader(http.StatusNotFound)
			writeJSON(w, map[string]any{"error": map[string]any{
				"status": 404, "message": "Player command failed: No active device found", "reason": "NO_ACTIVE_DEVICE",
			}})
			return
		}
		queued = append(queued, r.URL.Query().Get("uri"))
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("PUT /me/player/play", func(w http.ResponseWriter, r *http.Request) {
		active.Store(true)
		w.WriteHeader(http.StatusNoContent)
	})
	p := NewPlayer(newTestClient(t, mux))
	ctx := context.Background()

	err := p.Enqueue(ctx, "spotify:track:t001")
	assert.ErrorIs(t, err, engine.ErrNoSession)
	assert.NotErrorIs(t, err, catalog.ErrNotFound)

	require.NoError(t, p.StartSession(ctx))
	require.NoError(t, p.Enqueue(ctx, "spotify:track:t001"))
	require.NoError(t, p.Enqueue(ctx, "t002"))
	assert.Equal(t, []string{"spotify:track:t001", "spotify:track:t002"}, queued)
}

func TestCodeFromRedirect(t *testing.T) {
	code, err := CodeFromRedirect("https://example.com/cb?code=abc&state=xyz", "xyz")
	require.NoError(t, err)
	assert.Equal(t, "abc", code)

	_, err = CodeFromRedirect("https://example.com/cb?code=abc&state=other", "xyz")
	assert.Error(t, err)
	_, err = CodeFromRedirect("https://example.com/cb?error=access_denied&state=xyz", "xyz")
	assert.ErrorContains(t, err, "access_denied")
	_, err = CodeFromRedirect("https://example.com/cb?state=xyz", "xyz")
	assert.Error(t, err)
}

func TestToken_FileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth", "token.json")

	_, err := LoadToken(path)
	assert.ErrorIs(t, err, ErrNoToken)

	tok := &oauth2.Token{AccessToken: "a", RefreshToken: "r", TokenType: "Bearer", Expiry: time.Now().Add(time.Hour).Round(time.Second)}
	require.NoError(t, SaveToken(path, tok))

	got, err := LoadToken(path)
	require.NoError(t, err)
	assert.Equal(t, "a", got.AccessToken)
	assert.Equal(t, "r", got.RefreshToken)
	assert.True(t, tok.Expiry.Equal(got.Expiry))
}

func TestHTTPClient_RefreshesAndPersists(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.Form.Get("grant_type"))
		writeJSON(w, map[string]any{"access_token": "fresh", "token_type": "Bearer", "expires_in": 3600, "refresh_token": "r2"})
	}))
	t.Cleanup(tokenSrv.Close)

	var auth atomic.Value
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth.Store(r.Header.Get("Authorization"))
		writeJSON(w, track(1))
	}))
	t.Cleanup(api.Close)

	path := filepath.Join(t.TempDir(), "token.json")
	require.NoError(t, SaveToken(path, &oauth2.Token{AccessToken: "stale", RefreshToken: "r1", Expiry: time.Now().Add(-time.Hour)}))

	cfg := OAuthConfig(Credentials{ClientID: "id", ClientSecret: "secret"})
	cfg.Endpoint = oauth2.Endpoint{TokenURL: tokenSrv.URL, AuthStyle: oauth2.AuthStyleInParams}
	assert.Equal(t, DefaultScopes, cfg.Scopes)

	hc, err := HTTPClient(context.Background(), cfg, path)
	require.NoError(t, err)
	c := NewClient(hc, WithBaseURL(api.URL))

	_, err = c.Track(context.Background(), "t001")
	require.NoError(t, err)
	assert.Equal(t, "Bearer fresh", auth.Load())

	saved, err := LoadToken(path)
	require.NoError(t, err)
	assert.Equal(t, "fresh", saved.AccessToken)
	assert.Equal(t, "r2", saved.RefreshToken)
}
