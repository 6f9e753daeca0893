package library

import (
	"bufio"
	"cmp"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/bogem/id3v2"

	"github.com/roach88/playscript/internal/catalog"
)

// TrackPrefix prefixes library track ids.
const TrackPrefix = "file:"

// Library is a scanned music directory.
type Library struct {
	*catalog.MemorySource

	// Dir is the library root.
	Dir string

	paths map[string]string // track id -> absolute path
}

// Path returns the file of a track id.
func (l *Library) Path(id string) (string, bool) {
	p, ok := l.paths[id]
	return p, ok
}

// Len returns the number of tracks.
func (l *Library) Len() int { return len(l.paths) }

// Scan reads every tagged .mp3 and every playlist below dir. Files whose
// tags cannot be read are logged and skipped.
func Scan(dir string) (*Library, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("scan library: %w", err)
	}
	lib := &Library{
		MemorySource: catalog.NewMemorySource(),
		Dir:          root,
		paths:        make(map[string]string),
	}

	var tracks []scanned
	var playlists []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".mp3":
			t, err := readTrack(root, path)
			if err != nil {
				slog.Warn("skipping unreadable track", "path", path, "error", err)
				return nil
			}
			tracks = append(tracks, t)
		case ".m3u", ".m3u8":
			playlists = append(playlists, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan library: %w", err)
	}

	lib.addTracks(tracks)
	for _, p := range playlists {
		if err := lib.addPlaylist(p); err != nil {
			return nil, err
		}
	}
	slog.Debug("library scanned", "dir", root, "tracks", len(tracks), "playlists", len(playlists))
	return lib, nil
}

// scanned is one tagged file.
type scanned struct {
	info        catalog.TrackInfo
	path        string
	album       string
	albumArtist string
	genre       string
}

func readTrack(root, path string) (scanned, error) {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return scanned{}, err
	}
	defer tag.Close()

	rel, err := filepath.Rel(root, path)
	if err != nil {
		return scanned{}, err
	}
	title := tag.Title()
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	albumArtist := tag.GetTextFrame("TPE2").Text
	if albumArtist == "" {
		albumArtist = tag.Artist()
	}

	return scanned{
		info: catalog.TrackInfo{
			ID:       TrackPrefix + filepath.ToSlash(rel),
			Name:     title,
			Artist:   tag.Artist(),
			Year:     leadingInt(tag.Year()),
			Duration: leadingInt(tag.GetTextFrame("TLEN").Text) / 1000,
			Position: leadingInt(tag.GetTextFrame("TRCK").Text),
		},
		path:        path,
		album:       tag.Album(),
		albumArtist: albumArtist,
		genre:       tag.Genre(),
	}, nil
}

// leadingInt parses the digits at the start of s ("3/12" is 3, "2004-05"
// is 2004).
func leadingInt(s string) int64 {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, _ := strconv.ParseInt(s[:end], 10, 64)
	return n
}

func (l *Library) addTracks(tracks []scanned) {
	type albumKey struct{ artist, name string }
	albums := make(map[albumKey][]scanned)
	genres := make(map[string][]string)
	var artistOrder []string

	for _, t := range tracks {
		l.AddTracks(t.info)
		l.paths[t.info.ID] = t.path
		if t.album != "" {
			k := albumKey{t.albumArtist, t.album}
			albums[k] = append(albums[k], t)
		}
		if t.albumArtist != "" {
			if _, ok := genres[t.albumArtist]; !ok {
				artistOrder = append(artistOrder, t.albumArtist)
				genres[t.albumArtist] = []string{}
			}
			if t.genre != "" && !slices.Contains(genres[t.albumArtist], t.genre) {
				genres[t.albumArtist] = append(genres[t.albumArtist], t.genre)
			}
		}
	}

	keys := make([]albumKey, 0, len(albums))
	for k := range albums {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b albumKey) int {
		return cmp.Or(cmp.Compare(a.artist, b.artist), cmp.Compare(a.name, b.name))
	})

	artistAlbums := make(map[string][]string)
	for _, k := range keys {
		ts := albums[k]
		slices.SortFunc(ts, func(a, b scanned) int {
			return cmp.Or(cmp.Compare(a.info.Position, b.info.Position), cmp.Compare(a.info.ID, b.info.ID))
		})
		ids := make([]string, len(ts))
		var year int64
		for i, t := range ts {
			ids[i] = t.info.ID
			year = max(year, t.info.Year)
		}
		id := "album:" + k.artist + "/" + k.name
		l.AddAlbum(catalog.AlbumInfo{ID: id, Name: k.name, Artist: k.artist, Year: year}, ids...)
		artistAlbums[k.artist] = append(artistAlbums[k.artist], id)
	}

	slices.Sort(artistOrder)
	for _, name := range artistOrder {
		l.AddArtist(catalog.ArtistInfo{ID: "artist:" + name, Name: name, Genres: genres[name]}, artistAlbums[name]...)
	}
}

// addPlaylist reads an M3U file. Entries that are not scanned tracks are
// skipped.
func (l *Library) addPlaylist(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("read playlist: %w", err)
	}
	defer f.Close()

	dir := filepath.Dir(path)
	var ids []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(strings.TrimPrefix(sc.Text(), "\ufeff"))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		entry := filepath.FromSlash(line)
		if !filepath.IsAbs(entry) {
			entry = filepath.Join(dir, entry)
		}
		rel, err := filepath.Rel(l.Dir, entry)
		if err != nil {
			continue
		}
		id := TrackPrefix + filepath.ToSlash(rel)
		if _, ok := l.paths[id]; !ok {
			slog.Debug("playlist entry not in library", "playlist", path, "entry", line)
			continue
		}
		ids = append(ids, id)
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read playlist %s: %w", path, err)
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	rel, _ := filepath.Rel(l.Dir, path)
	l.AddPlaylist("playlist:"+filepath.ToSlash(rel), name, ids...)
	return nil
}
