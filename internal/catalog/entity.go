package catalog

import (
	"context"
	"fmt"
	"sync"

	"github.com/roach88/playscript/internal/diag"
	"github.com/roach88/playscript/internal/ir"
)

// Kind names an entity variant.
type Kind string

const (
	KindTrack      Kind = "track"
	KindAlbum      Kind = "album"
	KindArtist     Kind = "artist"
	KindCollection Kind = "collection"
)

// Entity is a realized catalog item. Sealed: only this package implements it.
type Entity interface {
	Kind() Kind

	// Attrs returns the filterable metadata of the entity.
	Attrs() ir.IRObject

	String() string

	entity()
}

// Sized is implemented by entities with a length.
type Sized interface {
	Len() int
}

// Filterable is implemented by entities that can be narrowed by predicate.
type Filterable interface {
	Filter(ctx context.Context, p Predicate) (*Collection, error)
}

// Attr reads one attribute, failing with AttributeError when the entity
// has no such attribute.
func Attr(e Entity, name string) (ir.IRValue, error) {
	v, ok := e.Attrs()[name]
	if !ok {
		return nil, diag.Errorf(diag.KindAttribute, "%s has no attribute %q", e, name)
	}
	return v, nil
}

// TrackInfo is the metadata of a single track. Duration is in seconds.
type TrackInfo struct {
	ID         string `json:"id" yaml:"id"`
	Name       string `json:"name" yaml:"name"`
	Artist     string `json:"artist" yaml:"artist"`
	Year       int64  `json:"year" yaml:"year"`
	Duration   int64  `json:"duration" yaml:"duration"`
	Position   int64  `json:"position" yaml:"position"`
	Popularity int64  `json:"popularity" yaml:"popularity"`
}

// TrackFields lists the attribute names of a track.
var TrackFields = []string{"id", "name", "artist", "year", "duration", "position", "popularity"}

// Attrs returns the track metadata as attributes.
func (t TrackInfo) Attrs() ir.IRObject {
	return ir.IRObject{
		"id":         ir.IRString(t.ID),
		"name":       ir.IRString(t.Name),
		"artist":     ir.IRString(t.Artist),
		"year":       ir.IRInt(t.Year),
		"duration":   ir.IRInt(t.Duration),
		"position":   ir.IRInt(t.Position),
		"popularity": ir.IRInt(t.Popularity),
	}
}

// AlbumInfo is the metadata of an album. Length is the declared track count.
type AlbumInfo struct {
	ID     string `json:"id" yaml:"id"`
	Name   string `json:"name" yaml:"name"`
	Artist string `json:"artist" yaml:"artist"`
	Year   int64  `json:"year" yaml:"year"`
	Length int64  `json:"length" yaml:"length"`
}

// ArtistInfo is the metadata of an artist.
type ArtistInfo struct {
	ID        string   `json:"id" yaml:"id"`
	Name      string   `json:"name" yaml:"name"`
	Followers int64    `json:"followers" yaml:"followers"`
	Genres    []string `json:"genres" yaml:"genres"`
}

// Track is a single playable item.
type Track struct {
	info TrackInfo
}

// NewTrack wraps track metadata.
func NewTrack(info TrackInfo) *Track {
	return &Track{info: info}
}

func (*Track) entity()              {}
func (*Track) Kind() Kind           { return KindTrack }
func (t *Track) Info() TrackInfo    { return t.info }
func (t *Track) ID() string         { return t.info.ID }
func (t *Track) Len() int           { return 1 }
func (t *Track) Attrs() ir.IRObject { return t.info.Attrs() }

func (t *Track) String() string {
	return fmt.Sprintf("<Track(%s)>", t.info.Name)
}

// CollectionLoader fetches the members of an album or artist.
type CollectionLoader func(ctx context.Context) (*Collection, error)

// Album is album metadata plus a lazily fetched track Collection.
type Album struct {
	info AlbumInfo
	load CollectionLoader

	once   sync.Once
	tracks *Collection
	err    error
}

// NewAlbum wraps album metadata. load is called at most once, on the first
// request for the album's tracks.
func NewAlbum(info AlbumInfo, load CollectionLoader) *Album {
	return &Album{info: info, load: load}
}

func (*Album) entity()           {}
func (*Album) Kind() Kind        { return KindAlbum }
func (a *Album) Info() AlbumInfo { return a.info }
func (a *Album) ID() string      { return a.info.ID }

// Len returns the declared track count.
func (a *Album) Len() int { return int(a.info.Length) }

func (a *Album) Attrs() ir.IRObject {
	return ir.IRObject{
		"id":     ir.IRString(a.info.ID),
		"name":   ir.IRString(a.info.Name),
		"artist": ir.IRString(a.info.Artist),
		"year":   ir.IRInt(a.info.Year),
		"length": ir.IRInt(a.info.Length),
	}
}

func (a *Album) String() string {
	return fmt.Sprintf("<Album(%s)>", a.info.Name)
}

// Tracks returns the album's tracks, fetching them on first use. Later
// calls return the same Collection.
func (a *Album) Tracks(ctx context.Context) (*Collection, error) {
	a.once.Do(func() {
		if a.load == nil {
			a.tracks = NewCollection(a.info.Name, nil)
			return
		}
		a.tracks, a.err = a.load(ctx)
	})
	return a.tracks, a.err
}

// Filter filters the album's tracks.
func (a *Album) Filter(ctx context.Context, p Predicate) (*Collection, error) {
	tracks, err := a.Tracks(ctx)
	if err != nil {
		return nil, err
	}
	return tracks.Filter(ctx, p)
}

// Artist is artist metadata plus a lazily fetched Collection of albums.
type Artist struct {
	info ArtistInfo
	load CollectionLoader

	once   sync.Once
	albums *Collection
	err    error
}

// NewArtist wraps artist metadata. load is called at most once.
func NewArtist(info ArtistInfo, load CollectionLoader) *Artist {
	return &Artist{info: info, load: load}
}

func (*Artist) entity()            {}
func (*Artist) Kind() Kind         { return KindArtist }
func (a *Artist) Info() ArtistInfo { return a.info }
func (a *Artist) ID() string       { return a.info.ID }

func (a *Artist) Attrs() ir.IRObject {
	return ir.IRObject{
		"id":        ir.IRString(a.info.ID),
		"name":      ir.IRString(a.info.Name),
		"followers": ir.IRInt(a.info.Followers),
		"genres":    ir.Strings(a.info.Genres...),
	}
}

func (a *Artist) String() string {
	return fmt.Sprintf("<Artist(%s)>", a.info.Name)
}

// Albums returns the artist's albums and singles, fetching them on first use.
func (a *Artist) Albums(ctx context.Context) (*Collection, error) {
	a.once.Do(func() {
		if a.load == nil {
			a.albums = NewCollection(a.info.Name, nil)
			return
		}
		a.albums, a.err = a.load(ctx)
	})
	return a.albums, a.err
}
