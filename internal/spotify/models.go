package spotify

import (
	"strconv"

	"github.com/roach88/playscript/internal/catalog"
)

type artistRef struct {
	Name string `json:"name"`
}

type albumObject struct {
	URI         string      `json:"uri"`
	Name        string      `json:"name"`
	ReleaseDate string      `json:"release_date"`
	TotalTracks int64       `json:"total_tracks"`
	Artists     []artistRef `json:"artists"`
}

type trackObject struct {
	URI         string      `json:"uri"`
	Name        string      `json:"name"`
	DurationMS  int64       `json:"duration_ms"`
	TrackNumber int64       `json:"track_number"`
	Popularity  int64       `json:"popularity"`
	Album       albumObject `json:"album"`
}

type artistObject struct {
	URI       string `json:"uri"`
	Name      string `json:"name"`
	Followers struct {
		Total int64 `json:"total"`
	} `json:"followers"`
	Genres []string `json:"genres"`
}

type playlistObject struct {
	URI  string `json:"uri"`
	Name string `json:"name"`
}

type playlistItem struct {
	Track *trackObject `json:"track"`
}

type simpleTrack struct {
	URI string `json:"uri"`
}

type page[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
	Limit int `json:"limit"`
}

type searchResponse struct {
	Tracks    *page[trackObject]     `json:"tracks"`
	Albums    *page[albumObject]     `json:"albums"`
	Artists   *page[artistObject]    `json:"artists"`
	Playlists *page[*playlistObject] `json:"playlists"`
}

// releaseYear parses the leading year of "2004", "2004-03" or "2004-03-09".
func releaseYear(date string) int64 {
	if len(date) < 4 {
		return 0
	}
	y, err := strconv.ParseInt(date[:4], 10, 64)
	if err != nil {
		return 0
	}
	return y
}

func firstArtist(artists []artistRef) string {
	if len(artists) == 0 {
		return ""
	}
	return artists[0].Name
}

func (t trackObject) info() catalog.TrackInfo {
	return catalog.TrackInfo{
		ID:         t.URI,
		Name:       t.Name,
		Artist:     firstArtist(t.Album.Artists),
		Year:       releaseYear(t.Album.ReleaseDate),
		Duration:   t.DurationMS / 1000,
		Position:   t.TrackNumber,
		Popularity: t.Popularity,
	}
}

func (a albumObject) info() catalog.AlbumInfo {
	return catalog.AlbumInfo{
		ID:     a.URI,
		Name:   a.Name,
		Artist: firstArtist(a.Artists),
		Year:   releaseYear(a.ReleaseDate),
		Length: a.TotalTracks,
	}
}

func (a artistObject) info() catalog.ArtistInfo {
	genres := a.Genres
	if genres == nil {
		genres = []string{}
	}
	return catalog.ArtistInfo{
		ID:        a.URI,
		Name:      a.Name,
		Followers: a.Followers.Total,
		Genres:    genres,
	}
}
