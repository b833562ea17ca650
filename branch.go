package ydoc

import (
	"github.com/drpcorg/ydoc/utils"
)

// branchKind tells which container type a branch backs.
type branchKind byte

const (
	kindUndefined  branchKind = 0
	kindArray      branchKind = 'A'
	kindMap        branchKind = 'M'
	kindText       branchKind = 'T'
	kindXmlFrag    branchKind = 'F'
	kindXmlElement branchKind = 'E'
	kindXmlText    branchKind = 'X'
)

func (k branchKind) String() string {
	switch k {
	case kindArray:
		return "Array"
	case kindMap:
		return "Map"
	case kindText:
		return "Text"
	case kindXmlFrag:
		return "XmlFragment"
	case kindXmlElement:
		return "XmlElement"
	case kindXmlText:
		return "XmlText"
	default:
		return "undefined"
	}
}

func (k branchKind) nestable() bool {
	return k == kindXmlElement || k == kindXmlText || k == kindArray || k == kindMap || k == kindText
}

// EventObserver receives the changes one committed transaction made to
// a container.
type EventObserver func(txn *Transaction, ev *Event)

// branch is the state shared by every container: the item sequence,
// the keyed entries and the observers.
type branch struct {
	doc     *Doc
	kind    branchKind
	name    string // root name, empty for nested containers
	tag     string // element tag
	item    *item  // the item holding a nested container
	start   *item
	entries map[string]*item // rightmost item per key
	length  uint64           // visible units of the sequence

	observers utils.Observers[EventObserver]
	handle    any
}

func newBranch(doc *Doc, kind branchKind) *branch {
	return &branch{doc: doc, kind: kind, entries: make(map[string]*item)}
}

func (b *branch) isRoot() bool {
	return b.item == nil
}

// alive reports whether the container is still part of the document.
func (b *branch) alive() bool {
	return b.item == nil || !b.item.deleted
}

// first returns the leftmost item of the sequence or of a key chain.
func (b *branch) first(it *item) *item {
	if !it.keyed {
		return b.start
	}
	o := b.entries[it.key]
	for o != nil && o.left != nil {
		o = o.left
	}
	return o
}

// value returns the live value under key.
func (b *branch) value(key string) (Value, bool) {
	it := b.entries[key]
	if it == nil || it.deleted {
		return nil, false
	}
	return itemValue(it), true
}

// itemValue is the last value an item holds: the last array element,
// or the container handle.
func itemValue(it *item) Value {
	switch it.content.kind {
	case contentValues:
		return it.content.values[len(it.content.values)-1]
	case contentEmbed, contentFormat:
		return it.content.value
	case contentString:
		return decodeUTF16(it.content.str)
	case contentType:
		return it.content.branch.container()
	default:
		return nil
	}
}

// container returns the typed handle of the branch, creating it once.
func (b *branch) container() any {
	if b.handle != nil {
		return b.handle
	}
	switch b.kind {
	case kindArray:
		b.handle = &Array{b: b}
	case kindMap:
		b.handle = &Map{b: b}
	case kindText:
		b.handle = &Text{textual{b: b}}
	case kindXmlFrag:
		b.handle = &XmlFragment{xmlChildren{b: b}}
	case kindXmlElement:
		b.handle = &XmlElement{xmlChildren{b: b}}
	case kindXmlText:
		b.handle = &XmlText{textual{b: b}}
	default:
		return nil
	}
	return b.handle
}

// keys lists the live keys, sorted.
func (b *branch) keys() []string {
	keys := make([]string, 0, len(b.entries))
	for _, k := range sortedKeys(b.entries) {
		if it := b.entries[k]; !it.deleted {
			keys = append(keys, k)
		}
	}
	return keys
}

// walk visits the sequence items left to right until visit says stop.
func (b *branch) walk(visit func(it *item) bool) {
	for it := b.start; it != nil; it = it.right {
		if !visit(it) {
			return
		}
	}
}

// at returns the visible item holding the index and the offset of the
// index inside it, without splitting.
func (b *branch) at(index uint64) (*item, uint64) {
	for it := b.start; it != nil; it = it.right {
		if !it.visible() {
			continue
		}
		if index < it.length() {
			return it, index
		}
		index -= it.length()
	}
	return nil, 0
}
