package ydoc

import (
	"slices"
	"unicode/utf16"
)

// contentKind is the one-letter type of an item's payload. The same
// letter names the item record in the v1 update format.
type contentKind byte

const (
	contentDeleted contentKind = 'D' // garbage collected, length only
	contentString  contentKind = 'S' // UTF-16 code units of text
	contentEmbed   contentKind = 'E' // a single value embedded in text
	contentFormat  contentKind = 'F' // formatting marker, key and value
	contentValues  contentKind = 'A' // array elements or a map value
	contentType    contentKind = 'Y' // a nested container
)

func (k contentKind) valid() bool {
	switch k {
	case contentDeleted, contentString, contentEmbed, contentFormat, contentValues, contentType:
		return true
	}
	return false
}

// content is the payload of an item. Only the fields of its kind are
// set.
type content struct {
	kind    contentKind
	str     []uint16
	values  []Value
	key     string
	value   Value
	deleted uint64
	// nested container of a contentType item
	branch *branch
}

func stringContent(s string) content {
	return content{kind: contentString, str: utf16.Encode([]rune(s))}
}

func embedContent(v Value) content {
	return content{kind: contentEmbed, value: v}
}

func formatContent(key string, v Value) content {
	return content{kind: contentFormat, key: key, value: v}
}

func valuesContent(vals []Value) content {
	return content{kind: contentValues, values: vals}
}

func typeContent(b *branch) content {
	return content{kind: contentType, branch: b}
}

func deletedContent(n uint64) content {
	return content{kind: contentDeleted, deleted: n}
}

// length is the number of clock units the content spans.
func (c *content) length() uint64 {
	switch c.kind {
	case contentString:
		return uint64(len(c.str))
	case contentValues:
		return uint64(len(c.values))
	case contentDeleted:
		return c.deleted
	default:
		return 1
	}
}

// countable content contributes to the visible length of its parent.
func (c *content) countable() bool {
	return c.kind != contentFormat && c.kind != contentDeleted
}

// splitAt cuts the content in two at off, 0 < off < length.
func (c *content) splitAt(off uint64) (left, right content) {
	left, right = *c, *c
	switch c.kind {
	case contentString:
		left.str = c.str[:off:off]
		right.str = slices.Clone(c.str[off:])
	case contentValues:
		left.values = c.values[:off:off]
		right.values = slices.Clone(c.values[off:])
	case contentDeleted:
		left.deleted = off
		right.deleted = c.deleted - off
	default:
		panic("ydoc: unsplittable content")
	}
	return
}

// slice returns units [from, till) of the content, sharing nothing
// mutable with it.
func (c *content) slice(from, till uint64) content {
	if from == 0 && till == c.length() {
		return *c
	}
	ret := *c
	switch c.kind {
	case contentString:
		ret.str = c.str[from:till:till]
	case contentValues:
		ret.values = c.values[from:till:till]
	case contentDeleted:
		ret.deleted = till - from
	}
	return ret
}

func decodeUTF16(units []uint16) string {
	return string(utf16.Decode(units))
}
