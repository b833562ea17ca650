package ydoc

import (
	"github.com/drpcorg/ydoc/rdx"
)

// The v2 update is columnar. After the block headers (client delta,
// first clock, struct count) come six length-prefixed columns, each
// holding one field of every struct in order, then the delete set.
// Clocks after the first of a block are implied by contiguity.

const (
	v2Origin     byte = 1 << 3
	v2Right      byte = 1 << 4
	v2ParentID   byte = 1 << 5
	v2ParentName byte = 1 << 6
	v2Keyed      byte = 1 << 7
	v2KindMask   byte = 7
)

var v2Kinds = [...]contentKind{contentDeleted, contentString, contentEmbed, contentFormat, contentValues, contentType}

func v2KindCode(k contentKind) byte {
	for i, kind := range v2Kinds {
		if kind == k {
			return byte(i)
		}
	}
	panic("ydoc: unknown content kind")
}

type v2Columns struct {
	info, origins, rights, parents, keys, payloads rdx.Writer
}

func encodeUpdateV2(blocks []clientSpans, ds rdx.DeleteSet) []byte {
	var head rdx.Writer
	var cols v2Columns
	head.Uvarint(uint64(len(blocks)))
	prev := uint64(0)
	for _, cs := range blocks {
		head.Uvarint(cs.client - prev)
		prev = cs.client
		head.Uvarint(cs.spans[0].id().Clock)
		head.Uvarint(uint64(len(cs.spans)))
		for i := range cs.spans {
			cols.writeSpan(&cs.spans[i])
		}
	}
	var out rdx.Writer
	out.Bytes(head.Data())
	for _, col := range []*rdx.Writer{&cols.info, &cols.origins, &cols.rights, &cols.parents, &cols.keys, &cols.payloads} {
		out.Bytes(col.Data())
	}
	ds.WriteV2(&out)
	return out.Data()
}

func (cols *v2Columns) writeSpan(sp *span) {
	it := sp.it
	c := sp.content()
	info := v2KindCode(c.kind)
	if o := sp.origin(); o != nil {
		info |= v2Origin
		cols.origins.Uvarint(o.Client)
		cols.origins.Uvarint(o.Clock)
	}
	if r := it.rightOrigin; r != nil {
		info |= v2Right
		cols.rights.Uvarint(r.Client)
		cols.rights.Uvarint(r.Clock)
	}
	switch ref := it.ref(); {
	case ref.root:
		info |= v2ParentName
		cols.parents.String(ref.name)
	case ref.id != nil:
		info |= v2ParentID
		cols.parents.Uvarint(ref.id.Client)
		cols.parents.Uvarint(ref.id.Clock)
	}
	if it.keyed {
		info |= v2Keyed
		cols.keys.String(it.key)
	}
	cols.info.Byte(info)
	w := &cols.payloads
	switch c.kind {
	case contentString:
		w.Uvarint(uint64(len(c.str)))
		for _, u := range c.str {
			w.Uvarint(uint64(u))
		}
	case contentEmbed:
		writeValueV2(w, c.value)
	case contentFormat:
		w.String(c.key)
		writeValueV2(w, c.value)
	case contentValues:
		w.Uvarint(uint64(len(c.values)))
		for _, v := range c.values {
			writeValueV2(w, v)
		}
	case contentType:
		w.Byte(byte(c.branch.kind))
		w.String(c.branch.tag)
	case contentDeleted:
		w.Uvarint(c.deleted)
	}
}

type v2Readers struct {
	info, origins, rights, parents, keys, payloads *rdx.Reader
}

func (cols *v2Readers) all() []*rdx.Reader {
	return []*rdx.Reader{cols.info, cols.origins, cols.rights, cols.parents, cols.keys, cols.payloads}
}

func decodeUpdateV2(data []byte) (*Update, error) {
	r := rdx.NewReader(data)
	head := rdx.NewReader(r.Bytes())
	cols := v2Readers{
		info:     rdx.NewReader(r.Bytes()),
		origins:  rdx.NewReader(r.Bytes()),
		rights:   rdx.NewReader(r.Bytes()),
		parents:  rdx.NewReader(r.Bytes()),
		keys:     rdx.NewReader(r.Bytes()),
		payloads: rdx.NewReader(r.Bytes()),
	}
	ds := rdx.ReadDeleteSetV2(r)
	if err := r.Done(); err != nil {
		return nil, err
	}
	u := &Update{blocks: make(map[uint64][]*item), ds: ds}
	n := head.Count()
	client := uint64(0)
	for i := 0; i < n && head.Err() == nil; i++ {
		delta := head.Uvarint()
		if i > 0 && delta == 0 {
			return nil, ErrDuplicate
		}
		client += delta
		clock := head.Uvarint()
		m := head.Uvarint()
		if m == 0 || m > uint64(cols.info.Len()) {
			return nil, ErrBadStruct
		}
		for j := uint64(0); j < m; j++ {
			it, err := cols.readStruct(client, clock)
			if err != nil {
				return nil, err
			}
			if err := u.appendBlock(it); err != nil {
				return nil, err
			}
			clock += it.length()
		}
	}
	if err := head.Done(); err != nil {
		return nil, err
	}
	for _, col := range cols.all() {
		if err := col.Done(); err != nil {
			return nil, err
		}
	}
	return u, nil
}

func (cols *v2Readers) readStruct(client, clock uint64) (*item, error) {
	info := cols.info.Byte()
	code := info & v2KindMask
	if int(code) >= len(v2Kinds) {
		return nil, ErrBadStruct
	}
	it := &item{id: rdx.NewID(client, clock)}
	if info&v2Origin != 0 {
		it.origin = idPtr(rdx.NewID(cols.origins.Uvarint(), cols.origins.Uvarint()))
	}
	if info&v2Right != 0 {
		it.rightOrigin = idPtr(rdx.NewID(cols.rights.Uvarint(), cols.rights.Uvarint()))
	}
	if info&v2ParentName != 0 {
		it.parentRoot = true
		it.parentName = cols.parents.String()
	}
	if info&v2ParentID != 0 {
		it.parentID = idPtr(rdx.NewID(cols.parents.Uvarint(), cols.parents.Uvarint()))
	}
	if info&v2Keyed != 0 {
		it.keyed = true
		it.key = cols.keys.String()
	}
	w := cols.payloads
	c := content{kind: v2Kinds[code]}
	switch c.kind {
	case contentString:
		c.str = make([]uint16, w.Count())
		for i := range c.str {
			u := w.Uvarint()
			if u > 0xffff {
				return nil, ErrBadStruct
			}
			c.str[i] = uint16(u)
		}
	case contentEmbed:
		c.value = readValueV2(w, 0)
	case contentFormat:
		c.key = w.String()
		c.value = readValueV2(w, 0)
	case contentValues:
		n := w.Count()
		c.values = make([]Value, 0, n)
		for i := 0; i < n && w.Err() == nil; i++ {
			c.values = append(c.values, readValueV2(w, 0))
		}
	case contentType:
		kind := branchKind(w.Byte())
		c.branch = &branch{kind: kind, tag: w.String()}
	case contentDeleted:
		c.deleted = w.Uvarint()
	}
	it.content = c
	for _, col := range cols.all() {
		if err := col.Err(); err != nil {
			return nil, err
		}
	}
	return it, nil
}
