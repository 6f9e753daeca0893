package library

import (
	"context"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bogem/id3v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/playscript/internal/catalog"
	"github.com/roach88/playscript/internal/engine"
	"github.com/roach88/playscript/internal/expr"
	"github.com/roach88/playscript/internal/script"
)

type tags struct {
	title, artist, albumArtist, album, year, track, length, genre string
}

func writeMP3(t *testing.T, path string, tg tags) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))

	tag := id3v2.NewEmptyTag()
	tag.SetTitle(tg.title)
	tag.SetArtist(tg.artist)
	tag.SetAlbum(tg.album)
	tag.SetYear(tg.year)
	tag.SetGenre(tg.genre)
	if tg.albumArtist != "" {
		tag.AddTextFrame("TPE2", id3v2.EncodingUTF8, tg.albumArtist)
	}
	tag.AddTextFrame("TRCK", id3v2.EncodingUTF8, tg.track)
	tag.AddTextFrame("TLEN", id3v2.EncodingUTF8, tg.length)

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	_, err = tag.WriteTo(f)
	require.NoError(t, err)
	_, err = f.Write(make([]byte, 256)) // stand-in audio frames
	require.NoError(t, err)
}

func buildLibrary(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeMP3(t, filepath.Join(dir, "Low", "Things We Lost", "01.mp3"), tags{"Monkey", "Low", "", "Things We Lost", "2005", "2/12", "231000", "Slowcore"})
	writeMP3(t, filepath.Join(dir, "Low", "Things We Lost", "02.mp3"), tags{"Sunflower", "Low", "", "Things We Lost", "2005", "1/12", "275000", "Slowcore"})
	writeMP3(t, filepath.Join(dir, "Low", "Trust", "01.mp3"), tags{"Canada", "Low", "", "Trust", "2002", "4", "190000", "Indie"})
	writeMP3(t, filepath.Join(dir, "Various", "01.mp3"), tags{"Echo", "Duster", "Various Artists", "Mix Tape", "1998", "1", "120000", ""})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not music"), 0o644))

	m3u := "#EXTM3U\n#EXTINF:231,Low - Monkey\nLow/Things We Lost/01.mp3\n\nmissing.mp3\nVarious/01.mp3\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Late Night.m3u"), []byte(m3u), 0o644))
	return dir
}

func TestScan(t *testing.T) {
	lib, err := Scan(buildLibrary(t))
	require.NoError(t, err)
	assert.Equal(t, 4, lib.Len())

	ctx := context.Background()
	tr, err := lib.SearchTrack(ctx, "monkey")
	require.NoError(t, err)
	assert.Equal(t, catalog.TrackInfo{
		ID: "file:Low/Things We Lost/01.mp3", Name: "Monkey", Artist: "Low",
		Year: 2005, Duration: 231, Position: 2,
	}, tr)

	album, err := lib.SearchAlbum(ctx, "things we lost")
	require.NoError(t, err)
	assert.Equal(t, int64(2), album.Length)
	assert.Equal(t, "Low", album.Artist)
	albumTracks, err := lib.AlbumTracks(ctx, album.ID)
	require.NoError(t, err)
	require.Len(t, albumTracks, 2)
	assert.Equal(t, "Sunflower", albumTracks[0].Name, "ordered by track number")

	artist, err := lib.SearchArtist(ctx, "low")
	require.NoError(t, err)
	assert.Equal(t, []string{"Slowcore", "Indie"}, artist.Genres)
	albums, err := lib.ArtistAlbums(ctx, artist.ID)
	require.NoError(t, err)
	assert.Len(t, albums, 2)

	various, err := lib.SearchAlbum(ctx, "mix tape")
	require.NoError(t, err)
	assert.Equal(t, "Various Artists", various.Artist)

	plID, err := lib.SearchPlaylist(ctx, "late night")
	require.NoError(t, err)
	pl, err := lib.PlaylistTracks(ctx, plID)
	require.NoError(t, err)
	require.Len(t, pl, 2, "missing entries are skipped")
	assert.Equal(t, "Monkey", pl[0].Name)
	assert.Equal(t, "Echo", pl[1].Name)
}

func TestLeadingInt(t *testing.T) {
	for in, want := range map[string]int64{"3/12": 3, "2004-05-01": 2004, "": 0, " 7 ": 7, "x": 0} {
		assert.Equal(t, want, leadingInt(in), "leadingInt(%q)", in)
	}
}

func TestQueueFile(t *testing.T) {
	lib, err := Scan(buildLibrary(t))
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "queue.m3u")
	q := NewQueueFile(path, lib)
	ctx := context.Background()

	assert.ErrorIs(t, q.Enqueue(ctx, "file:Trust/01.mp3"), engine.ErrNoSession)
	require.NoError(t, q.StartSession(ctx))
	require.NoError(t, q.Enqueue(ctx, "file:Low/Trust/01.mp3"))
	assert.Error(t, q.Enqueue(ctx, "file:nope.mp3"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "#EXTM3U", lines[0])
	assert.Equal(t, "#EXTINF:190,Low - Canada", lines[1])
	assert.Equal(t, filepath.Join(lib.Dir, "Low", "Trust", "01.mp3"), lines[2])
}

func TestOfflineRun(t *testing.T) {
	lib, err := Scan(buildLibrary(t))
	require.NoError(t, err)
	queuePath := filepath.Join(t.TempDir(), "queue.m3u")

	resolver := catalog.NewResolver(lib, nil, catalog.WithTrackPrefix(TrackPrefix))
	ev := expr.New(expr.NewEnv(), resolver, expr.WithRand(rand.New(rand.NewPCG(1, 1))))
	in := engine.New(ev, NewQueueFile(queuePath, lib), engine.WithSettle(0))

	s := script.Parse("offline", strings.Join([]string{
		`play all from album("Things We Lost")`,
		`play 1 from track("Canada")`,
	}, "\n"))
	res, err := in.Run(context.Background(), s)
	require.NoError(t, err)
	assert.Len(t, res.Played, 3)

	data, err := os.ReadFile(queuePath)
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(string(data), "#EXTINF:"))
}
