package ydoc

import (
	"encoding/binary"

	"github.com/drpcorg/ydoc/protocol"
	"github.com/drpcorg/ydoc/rdx"
)

// The v1 update is a sequence of TLV records: a B record per client,
// then a single D record with the delete set.
//
//	B: I(client) struct...
//	struct: <kind>(C(clock) [O(origin)] [R(right origin)]
//	        [N(root name) | P(parent id)] [K(key)] V(payload))
//
// The record type of a struct is the letter of its content kind.

func encodeUpdateV1(blocks []clientSpans, ds rdx.DeleteSet) []byte {
	var buf []byte
	for _, cs := range blocks {
		bm, b := protocol.OpenHeader(buf, 'B')
		b = protocol.Append(b, 'I', rdx.ZipUint64(cs.client))
		for i := range cs.spans {
			b = appendSpanV1(b, &cs.spans[i])
		}
		protocol.CloseHeader(b, bm)
		buf = b
	}
	return protocol.Append(buf, 'D', ds.AppendV1(nil))
}

func appendSpanV1(into []byte, sp *span) []byte {
	it := sp.it
	c := sp.content()
	bm, b := protocol.OpenHeader(into, byte(c.kind))
	b = protocol.Append(b, 'C', rdx.ZipUint64(sp.id().Clock))
	if o := sp.origin(); o != nil {
		b = protocol.Append(b, 'O', o.ZipBytes())
	}
	if it.rightOrigin != nil {
		b = protocol.Append(b, 'R', it.rightOrigin.ZipBytes())
	}
	switch ref := it.ref(); {
	case ref.root:
		b = protocol.Append(b, 'N', []byte(ref.name))
	case ref.id != nil:
		b = protocol.Append(b, 'P', ref.id.ZipBytes())
	}
	if it.keyed {
		b = protocol.Append(b, 'K', []byte(it.key))
	}
	pm, b := protocol.OpenHeader(b, 'V')
	b = appendPayloadV1(b, &c)
	protocol.CloseHeader(b, pm)
	protocol.CloseHeader(b, bm)
	return b
}

func appendPayloadV1(into []byte, c *content) []byte {
	switch c.kind {
	case contentString:
		for _, u := range c.str {
			into = binary.LittleEndian.AppendUint16(into, u)
		}
	case contentEmbed:
		into = appendValueV1(into, c.value)
	case contentFormat:
		into = protocol.Append(into, 'K', []byte(c.key))
		into = appendValueV1(into, c.value)
	case contentValues:
		for _, v := range c.values {
			into = appendValueV1(into, v)
		}
	case contentType:
		into = append(into, byte(c.branch.kind))
		into = append(into, c.branch.tag...)
	case contentDeleted:
		into = append(into, rdx.ZipUint64(c.deleted)...)
	}
	return into
}

func decodeUpdateV1(data []byte) (*Update, error) {
	u := &Update{blocks: make(map[uint64][]*item)}
	rest := data
	for len(rest) > 0 {
		lit, body, more, err := protocol.TakeAnyWary(rest)
		if err != nil {
			return nil, err
		}
		rest = more
		switch lit {
		case 'B':
			if u.ds != nil {
				return nil, protocol.ErrBadRecord
			}
			if err := u.readBlockV1(body); err != nil {
				return nil, err
			}
		case 'D':
			if u.ds != nil {
				return nil, protocol.ErrBadRecord
			}
			if u.ds, err = rdx.DecodeDeleteSetV1(body); err != nil {
				return nil, err
			}
		default:
			return nil, protocol.ErrBadRecord
		}
	}
	if u.ds == nil {
		return nil, ErrNoDeleteSet
	}
	return u, nil
}

func (u *Update) readBlockV1(body []byte) error {
	zc, rest, err := protocol.TakeWary('I', body)
	if err != nil {
		return err
	}
	client, err := rdx.UnzipUint64Wary(zc)
	if err != nil {
		return err
	}
	if _, ok := u.blocks[client]; ok {
		return ErrDuplicate
	}
	u.blocks[client] = nil
	for len(rest) > 0 {
		lit, ib, more, err := protocol.TakeAnyWary(rest)
		if err != nil {
			return err
		}
		rest = more
		it, err := readStructV1(client, contentKind(lit), ib)
		if err != nil {
			return err
		}
		if err := u.appendBlock(it); err != nil {
			return err
		}
	}
	return nil
}

func readStructV1(client uint64, kind contentKind, body []byte) (*item, error) {
	if !kind.valid() {
		return nil, protocol.ErrBadRecord
	}
	zc, rest, err := protocol.TakeWary('C', body)
	if err != nil {
		return nil, err
	}
	clock, err := rdx.UnzipUint64Wary(zc)
	if err != nil {
		return nil, err
	}
	it := &item{id: rdx.NewID(client, clock)}
	payload := false
	for len(rest) > 0 && !payload {
		lit, fb, more, err := protocol.TakeAnyWary(rest)
		if err != nil {
			return nil, err
		}
		rest = more
		switch lit {
		case 'O', 'R', 'P':
			id, err := rdx.IDFromZipBytes(fb)
			if err != nil {
				return nil, err
			}
			switch lit {
			case 'O':
				it.origin = &id
			case 'R':
				it.rightOrigin = &id
			default:
				it.parentID = &id
			}
		case 'N':
			it.parentRoot = true
			it.parentName = string(fb)
		case 'K':
			it.keyed = true
			it.key = string(fb)
		case 'V':
			if it.content, err = readPayloadV1(kind, fb); err != nil {
				return nil, err
			}
			payload = true
		default:
			return nil, protocol.ErrBadRecord
		}
	}
	if !payload || len(rest) > 0 {
		return nil, ErrBadStruct
	}
	return it, nil
}

func readPayloadV1(kind contentKind, body []byte) (c content, err error) {
	c.kind = kind
	switch kind {
	case contentString:
		if len(body)%2 != 0 {
			return c, ErrBadStruct
		}
		c.str = make([]uint16, len(body)/2)
		for i := range c.str {
			c.str[i] = binary.LittleEndian.Uint16(body[i*2:])
		}
		return c, nil
	case contentEmbed:
		c.value, body, err = readValueV1(body, 0)
	case contentFormat:
		var key []byte
		if key, body, err = protocol.TakeWary('K', body); err != nil {
			return c, err
		}
		c.key = string(key)
		c.value, body, err = readValueV1(body, 0)
	case contentValues:
		for len(body) > 0 && err == nil {
			var v Value
			v, body, err = readValueV1(body, 0)
			c.values = append(c.values, v)
		}
	case contentType:
		if len(body) == 0 {
			return c, ErrBadStruct
		}
		c.branch = &branch{kind: branchKind(body[0]), tag: string(body[1:])}
		return c, nil
	case contentDeleted:
		c.deleted, err = rdx.UnzipUint64Wary(body)
		return c, err
	}
	if err == nil && len(body) > 0 {
		err = ErrBadStruct
	}
	return c, err
}
