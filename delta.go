package ydoc

import (
	"fmt"
	"maps"
	"strings"
)

type DeltaKind byte

const (
	DeltaInserted DeltaKind = iota + 1
	DeltaRetained
	DeltaDeleted
)

func (k DeltaKind) String() string {
	switch k {
	case DeltaInserted:
		return "insert"
	case DeltaRetained:
		return "retain"
	case DeltaDeleted:
		return "delete"
	default:
		return "?"
	}
}

// Delta is one segment of a change, in document order. Insert holds a
// string run of text, a single embed, or a []Value of array elements or
// XML nodes. Len counts retained or deleted units.
type Delta struct {
	Kind       DeltaKind
	Insert     Value
	Len        uint32
	Attributes Attrs
}

func Inserted(v Value, attrs Attrs) Delta {
	return Delta{Kind: DeltaInserted, Insert: v, Attributes: attrs}
}

func Retained(n uint32, attrs Attrs) Delta {
	return Delta{Kind: DeltaRetained, Len: n, Attributes: attrs}
}

func Deleted(n uint32) Delta {
	return Delta{Kind: DeltaDeleted, Len: n}
}

func (d Delta) String() string {
	var b strings.Builder
	b.WriteString(d.Kind.String())
	switch d.Kind {
	case DeltaInserted:
		fmt.Fprintf(&b, "(%v", d.Insert)
	default:
		fmt.Fprintf(&b, "(%d", d.Len)
	}
	if len(d.Attributes) > 0 {
		fmt.Fprintf(&b, " %v", map[string]Value(d.Attributes))
	}
	b.WriteByte(')')
	return b.String()
}

func equalAttrs(a, b Attrs) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		w, ok := b[k]
		if !ok || !equalValues(v, w) {
			return false
		}
	}
	return true
}

// attrsOrNil copies the attributes, nil when there are none.
func attrsOrNil(a Attrs) Attrs {
	if len(a) == 0 {
		return nil
	}
	return maps.Clone(a)
}

// segment is a delta entry under construction.
type segment struct {
	kind  DeltaKind
	str   []uint16 // text run
	vals  []Value  // elements or nodes
	embed Value
	embd  bool
	n     uint64
	attrs Attrs
}

// deltaBuilder coalesces adjacent segments of the same kind and
// attributes, the way a reader expects runs to come out.
type deltaBuilder struct {
	segs []segment
}

func (db *deltaBuilder) push(seg segment) {
	if k := len(db.segs); k > 0 {
		last := &db.segs[k-1]
		if last.kind == seg.kind && equalAttrs(last.attrs, seg.attrs) {
			switch {
			case seg.kind != DeltaInserted:
				last.n += seg.n
				return
			case last.str != nil && seg.str != nil:
				last.str = append(last.str, seg.str...)
				return
			case last.vals != nil && seg.vals != nil:
				last.vals = append(last.vals, seg.vals...)
				return
			}
		}
	}
	db.segs = append(db.segs, seg)
}

func (db *deltaBuilder) insertItem(it *item, attrs Attrs) {
	seg := segment{kind: DeltaInserted, attrs: attrsOrNil(attrs)}
	switch c := &it.content; c.kind {
	case contentString:
		seg.str = append([]uint16{}, c.str...)
	case contentEmbed:
		seg.embed, seg.embd = c.value, true
	case contentValues:
		seg.vals = append([]Value{}, c.values...)
	case contentType:
		seg.vals = []Value{c.branch.container()}
	default:
		return
	}
	db.push(seg)
}

func (db *deltaBuilder) retain(n uint64, attrs Attrs) {
	db.push(segment{kind: DeltaRetained, n: n, attrs: attrsOrNil(attrs)})
}

func (db *deltaBuilder) delete(n uint64) {
	db.push(segment{kind: DeltaDeleted, n: n})
}

// deltas finishes the build; a trailing plain retain says nothing.
func (db *deltaBuilder) deltas() []Delta {
	segs := db.segs
	if k := len(segs); k > 0 && segs[k-1].kind == DeltaRetained && segs[k-1].attrs == nil {
		segs = segs[:k-1]
	}
	if len(segs) == 0 {
		return nil
	}
	ret := make([]Delta, 0, len(segs))
	for _, seg := range segs {
		d := Delta{Kind: seg.kind, Attributes: seg.attrs}
		switch {
		case seg.kind != DeltaInserted:
			d.Len = uint32(seg.n)
		case seg.str != nil:
			d.Insert = decodeUTF16(seg.str)
		case seg.embd:
			d.Insert = seg.embed
		default:
			d.Insert = seg.vals
		}
		ret = append(ret, d)
	}
	return ret
}
