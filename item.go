package ydoc

import (
	"github.com/drpcorg/ydoc/rdx"
)

// item is a run of consecutive units authored by one client, linked
// into the sequence of its parent container. Items are never removed
// from their parent: deletion only sets a tombstone flag, and garbage
// collection only drops the payload.
type item struct {
	id          rdx.ID
	origin      *rdx.ID // last unit of the left neighbour at insertion time
	rightOrigin *rdx.ID // first unit of the right neighbour at insertion time
	parent      *branch // nil for a struct whose parent was collected
	key         string  // map key, valid when keyed
	keyed       bool
	content     content
	deleted     bool
	left, right *item

	// parent reference of a decoded struct, resolved on integration
	parentName string
	parentID   *rdx.ID
	parentRoot bool
}

func (it *item) length() uint64 {
	return it.content.length()
}

func (it *item) countable() bool {
	return it.content.countable()
}

// visible items contribute to what a reader sees.
func (it *item) visible() bool {
	return !it.deleted && it.countable()
}

// lastID is the id of the last unit of the item.
func (it *item) lastID() rdx.ID {
	return it.id.Plus(it.length() - 1)
}

func (it *item) contains(id rdx.ID) bool {
	return id.Client == it.id.Client && id.Clock >= it.id.Clock && id.Clock < it.id.Clock+it.length()
}

func sameID(a, b *rdx.ID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func idPtr(id rdx.ID) *rdx.ID {
	return &id
}
