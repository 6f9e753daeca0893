package catalog

import (
	"context"
	"fmt"

	"github.com/roach88/playscript/internal/diag"
	"github.com/roach88/playscript/internal/ir"
)

// Collection is an ordered, immutable sequence of entities. Playlists and
// album track lists hold Tracks; an artist's releases hold Albums.
type Collection struct {
	name  string
	items []Entity
}

// NewCollection builds a Collection. items is copied.
func NewCollection(name string, items []Entity) *Collection {
	return &Collection{name: name, items: append([]Entity(nil), items...)}
}

// TrackCollection builds a Collection of Tracks from metadata.
func TrackCollection(name string, infos []TrackInfo) *Collection {
	items := make([]Entity, len(infos))
	for i, info := range infos {
		items[i] = NewTrack(info)
	}
	return &Collection{name: name, items: items}
}

func (*Collection) entity()    {}
func (*Collection) Kind() Kind { return KindCollection }

// Name is the query or description the collection was built from.
func (c *Collection) Name() string { return c.name }

func (c *Collection) Len() int { return len(c.items) }

// Items returns a copy of the collection's items.
func (c *Collection) Items() []Entity {
	return append([]Entity(nil), c.items...)
}

// Attrs of a collection expose only its name and length.
func (c *Collection) Attrs() ir.IRObject {
	return ir.IRObject{
		"name":   ir.IRString(c.name),
		"length": ir.IRInt(len(c.items)),
	}
}

func (c *Collection) String() string {
	return fmt.Sprintf("<Collection(%s, %d items)>", c.name, len(c.items))
}

// Index returns the item at i. Negative indices count from the end.
func (c *Collection) Index(i int) (Entity, error) {
	n := len(c.items)
	if i < 0 {
		i += n
	}
	if i < 0 || i >= n {
		return nil, diag.Errorf(diag.KindValue, "collection index out of range")
	}
	return c.items[i], nil
}

// Slice returns the contiguous sub-range [lo, hi). Nil bounds are open;
// bounds are clamped and may be negative, as with sequence slicing.
func (c *Collection) Slice(lo, hi *int) *Collection {
	n := len(c.items)
	start, end := 0, n
	if lo != nil {
		start = clampIndex(*lo, n)
	}
	if hi != nil {
		end = clampIndex(*hi, n)
	}
	if end < start {
		end = start
	}
	return &Collection{name: c.name, items: append([]Entity(nil), c.items[start:end]...)}
}

func clampIndex(i, n int) int {
	if i < 0 {
		i += n
		if i < 0 {
			return 0
		}
	}
	if i > n {
		return n
	}
	return i
}

// Filter keeps the items matching p, preserving order.
func (c *Collection) Filter(_ context.Context, p Predicate) (*Collection, error) {
	var kept []Entity
	for _, item := range c.items {
		ok, err := Match(item, p)
		if err != nil {
			return nil, err
		}
		if ok {
			kept = append(kept, item)
		}
	}
	return &Collection{name: c.name, items: kept}, nil
}

// Tracks returns the items as Tracks, failing with ValueError on the first
// item that is not a Track.
func (c *Collection) Tracks() ([]*Track, error) {
	out := make([]*Track, 0, len(c.items))
	for _, item := range c.items {
		t, ok := item.(*Track)
		if !ok {
			return nil, diag.Errorf(diag.KindValue, "%s is not a track", item)
		}
		out = append(out, t)
	}
	return out, nil
}
