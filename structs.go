package ydoc

import (
	"slices"
	"sort"

	"github.com/drpcorg/ydoc/rdx"
)

// structStore keeps every item of the document by author, each list
// sorted by clock without gaps. Splitting an item keeps the lists
// dense, so any unit is found by binary search.
type structStore struct {
	clients map[uint64][]*item
}

func newStructStore() *structStore {
	return &structStore{clients: make(map[uint64][]*item)}
}

// state is the next clock expected from the client.
func (s *structStore) state(client uint64) uint64 {
	list := s.clients[client]
	if len(list) == 0 {
		return 0
	}
	last := list[len(list)-1]
	return last.id.Clock + last.length()
}

func (s *structStore) stateVector() rdx.StateVector {
	sv := make(rdx.StateVector, len(s.clients))
	for client := range s.clients {
		sv[client] = s.state(client)
	}
	return sv
}

func (s *structStore) sortedClients() []uint64 {
	clients := make([]uint64, 0, len(s.clients))
	for client := range s.clients {
		clients = append(clients, client)
	}
	slices.Sort(clients)
	return clients
}

// deleteSet collects the tombstones of the whole document.
func (s *structStore) deleteSet() rdx.DeleteSet {
	ds := make(rdx.DeleteSet)
	for client, list := range s.clients {
		for _, it := range list {
			if it.deleted {
				ds.Add(client, it.id.Clock, it.length())
			}
		}
	}
	ds.Normalize()
	return ds
}

func (s *structStore) add(it *item) {
	list := s.clients[it.id.Client]
	if it.id.Clock != s.state(it.id.Client) {
		panic("ydoc: struct store gap")
	}
	s.clients[it.id.Client] = append(list, it)
}

// index finds the position of the item holding id.
func (s *structStore) index(id rdx.ID) (int, bool) {
	list := s.clients[id.Client]
	i := sort.Search(len(list), func(i int) bool {
		it := list[i]
		return it.id.Clock+it.length() > id.Clock
	})
	if i == len(list) || list[i].id.Clock > id.Clock {
		return i, false
	}
	return i, true
}

// find returns the item holding the unit, or nil.
func (s *structStore) find(id rdx.ID) *item {
	i, ok := s.index(id)
	if !ok {
		return nil
	}
	return s.clients[id.Client][i]
}

// findCleanStart returns the item starting exactly at id, splitting
// the one holding it if needed.
func (s *structStore) findCleanStart(id rdx.ID) *item {
	i, ok := s.index(id)
	if !ok {
		return nil
	}
	it := s.clients[id.Client][i]
	if it.id.Clock == id.Clock {
		return it
	}
	return s.splitAt(id.Client, i, id.Clock-it.id.Clock)
}

// findCleanEnd returns the item ending exactly at id.
func (s *structStore) findCleanEnd(id rdx.ID) *item {
	i, ok := s.index(id)
	if !ok {
		return nil
	}
	it := s.clients[id.Client][i]
	if it.lastID() != id {
		s.splitAt(id.Client, i, id.Clock-it.id.Clock+1)
	}
	return it
}

// split cuts the item in two at off, returns the right part.
func (s *structStore) split(it *item, off uint64) *item {
	i, ok := s.index(it.id)
	if !ok || s.clients[it.id.Client][i] != it {
		panic("ydoc: splitting an unknown item")
	}
	return s.splitAt(it.id.Client, i, off)
}

func (s *structStore) splitAt(client uint64, i int, off uint64) *item {
	list := s.clients[client]
	it := list[i]
	leftContent, rightContent := it.content.splitAt(off)
	right := &item{
		id:          it.id.Plus(off),
		origin:      idPtr(it.id.Plus(off - 1)),
		rightOrigin: it.rightOrigin,
		parent:      it.parent,
		key:         it.key,
		keyed:       it.keyed,
		content:     rightContent,
		deleted:     it.deleted,
		left:        it,
		right:       it.right,
	}
	it.content = leftContent
	if it.right != nil {
		it.right.left = right
	} else if it.keyed && it.parent != nil {
		it.parent.entries[it.key] = right
	}
	it.right = right
	s.clients[client] = slices.Insert(list, i+1, right)
	return right
}
