package ydoc

import (
	"errors"
	"fmt"
	"slices"

	"github.com/drpcorg/ydoc/rdx"
	"github.com/drpcorg/ydoc/ydoc_errors"
)

var (
	ErrStructGap     = errors.New("structs of a client are not contiguous")
	ErrDuplicate     = errors.New("client listed twice")
	ErrBadStruct     = errors.New("malformed struct")
	ErrClockOverflow = errors.New("clock overflow")
	ErrNoDeleteSet   = errors.New("delete set missing")
)

// Update is a decoded document delta: structs grouped by client, each
// run contiguous and ascending by clock, plus a delete set.
type Update struct {
	blocks map[uint64][]*item
	ds     rdx.DeleteSet
}

// DecodeUpdate parses an update; malformed input yields a DecodeError.
func DecodeUpdate(data []byte, enc rdx.Encoding) (u *Update, err error) {
	switch enc {
	case rdx.EncodingV1:
		u, err = decodeUpdateV1(data)
	case rdx.EncodingV2:
		u, err = decodeUpdateV2(data)
	default:
		err = fmt.Errorf("unknown encoding %s", enc)
	}
	if err != nil {
		return nil, ydoc_errors.Decode("update", err)
	}
	return u, nil
}

// IsEmpty reports an update without structs. Deletions alone never
// make an update non-empty: applying them twice changes nothing.
func (u *Update) IsEmpty() bool {
	for _, list := range u.blocks {
		if len(list) > 0 {
			return false
		}
	}
	return true
}

func (u *Update) DeleteSet() rdx.DeleteSet {
	return u.ds.Clone()
}

// StateVector is the state a replica reaches by applying the update
// on top of the state the update starts from.
func (u *Update) StateVector() rdx.StateVector {
	sv := make(rdx.StateVector, len(u.blocks))
	for client, list := range u.blocks {
		if len(list) > 0 {
			last := list[len(list)-1]
			sv[client] = last.id.Clock + last.length()
		}
	}
	return sv
}

// Origin is the state the update starts from: the first clock of every
// client it carries.
func (u *Update) Origin() rdx.StateVector {
	sv := make(rdx.StateVector, len(u.blocks))
	for client, list := range u.blocks {
		if len(list) > 0 {
			sv[client] = list[0].id.Clock
		}
	}
	return sv
}

func (u *Update) Encode(enc rdx.Encoding) []byte {
	clients := make([]uint64, 0, len(u.blocks))
	for client, list := range u.blocks {
		if len(list) > 0 {
			clients = append(clients, client)
		}
	}
	slices.Sort(clients)
	blocks := make([]clientSpans, 0, len(clients))
	for _, client := range clients {
		cs := clientSpans{client: client}
		for _, it := range u.blocks[client] {
			cs.spans = append(cs.spans, span{it: it, from: 0, till: it.length()})
		}
		blocks = append(blocks, cs)
	}
	return encodeUpdate(blocks, u.ds, enc)
}

func (u *Update) String() string {
	n := 0
	for _, list := range u.blocks {
		n += len(list)
	}
	return fmt.Sprintf("{structs:%d from:%s till:%s deleted:%s}", n, u.Origin(), u.StateVector(), u.ds)
}

// span is units [from, till) of an item, the unit of update encoding.
type span struct {
	it         *item
	from, till uint64
}

type clientSpans struct {
	client uint64
	spans  []span
}

func (sp *span) id() rdx.ID {
	return sp.it.id.Plus(sp.from)
}

func (sp *span) origin() *rdx.ID {
	if sp.from > 0 {
		return idPtr(sp.it.id.Plus(sp.from - 1))
	}
	return sp.it.origin
}

func (sp *span) content() content {
	return sp.it.content.slice(sp.from, sp.till)
}

// parentRef is how an encoded struct names its parent.
type parentRef struct {
	root bool
	name string
	id   *rdx.ID
}

func (it *item) ref() parentRef {
	switch {
	case it.parent == nil:
		return parentRef{root: it.parentRoot, name: it.parentName, id: it.parentID}
	case it.parent.isRoot():
		return parentRef{root: true, name: it.parent.name}
	default:
		return parentRef{id: idPtr(it.parent.item.id)}
	}
}

// blocks lists the units of every client in [from, till); a nil till
// means everything stored.
func (s *structStore) blocks(from, till rdx.StateVector) []clientSpans {
	var ret []clientSpans
	for _, client := range s.sortedClients() {
		start := from.Get(client)
		end := s.state(client)
		if till != nil {
			end = min(end, till.Get(client))
		}
		if start >= end {
			continue
		}
		cs := clientSpans{client: client}
		list := s.clients[client]
		i, _ := s.index(rdx.NewID(client, start))
		for ; i < len(list) && list[i].id.Clock < end; i++ {
			it := list[i]
			cs.spans = append(cs.spans, span{
				it:   it,
				from: max(start, it.id.Clock) - it.id.Clock,
				till: min(end, it.id.Clock+it.length()) - it.id.Clock,
			})
		}
		ret = append(ret, cs)
	}
	return ret
}

func encodeUpdate(blocks []clientSpans, ds rdx.DeleteSet, enc rdx.Encoding) []byte {
	if enc == rdx.EncodingV2 {
		return encodeUpdateV2(blocks, ds)
	}
	return encodeUpdateV1(blocks, ds)
}

// cloneFor makes a decoded struct ready for integration into doc,
// leaving the update reusable.
func (it *item) cloneFor(doc *Doc) *item {
	c := *it
	c.left, c.right, c.parent = nil, nil, nil
	if tmpl := it.content.branch; it.content.kind == contentType {
		nb := newBranch(doc, tmpl.kind)
		nb.tag = tmpl.tag
		c.content.branch = nb
	}
	return &c
}

// validate checks what both decoders accept.
func (it *item) validate() error {
	if it.length() == 0 {
		return ErrBadStruct
	}
	if it.id.Clock+it.length() < it.id.Clock {
		return ErrClockOverflow
	}
	if it.parentRoot && it.parentID != nil {
		return ErrBadStruct
	}
	if it.content.kind == contentType && !it.content.branch.kind.nestable() {
		return ErrBadStruct
	}
	return nil
}

// appendBlock adds a decoded struct, enforcing per-client contiguity.
func (u *Update) appendBlock(it *item) error {
	if err := it.validate(); err != nil {
		return err
	}
	list := u.blocks[it.id.Client]
	if len(list) > 0 {
		last := list[len(list)-1]
		if last.id.Clock+last.length() != it.id.Clock {
			return ErrStructGap
		}
	}
	u.blocks[it.id.Client] = append(list, it)
	return nil
}
