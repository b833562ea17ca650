package ydoc

import (
	"fmt"
	"strings"

	"github.com/drpcorg/ydoc/utils"
	"github.com/drpcorg/ydoc/ydoc_errors"
)

type XmlKind byte

const (
	XmlKindElement XmlKind = iota + 1
	XmlKindFragment
	XmlKindText
)

func (k XmlKind) String() string {
	switch k {
	case XmlKindElement:
		return "element"
	case XmlKindFragment:
		return "fragment"
	case XmlKindText:
		return "text"
	default:
		return "?"
	}
}

// XmlNode is one of *XmlElement, *XmlFragment or *XmlText. Switch on
// Kind or on the type to get at the specific node.
type XmlNode interface {
	Kind() XmlKind
	// Parent is the element or fragment holding the node, nil for a
	// root.
	Parent() XmlNode
	String(txn *Transaction) string
	node() *branch
}

func parentNode(b *branch) XmlNode {
	if b.item == nil || b.item.parent == nil {
		return nil
	}
	n, _ := b.item.parent.container().(XmlNode)
	return n
}

// sibling finds the nearest live node next to b in its parent.
func sibling(txn *Transaction, b *branch, next bool) XmlNode {
	txn.readable(b)
	if b.item == nil {
		return nil
	}
	step := func(it *item) *item {
		if next {
			return it.right
		}
		return it.left
	}
	for it := step(b.item); it != nil; it = step(it) {
		if !it.deleted && it.content.kind == contentType {
			if n, ok := it.content.branch.container().(XmlNode); ok {
				return n
			}
		}
	}
	return nil
}

// xmlChildren implements the child list of fragments and elements.
type xmlChildren struct {
	b *branch
}

func (x *xmlChildren) Len(txn *Transaction) uint32 {
	txn.readable(x.b)
	return uint32(x.b.length)
}

func (x *xmlChildren) insertNode(txn *Transaction, index uint32, kind branchKind, tag string) (*branch, error) {
	txn.writable(x.b)
	if uint64(index) > x.b.length {
		return nil, ydoc_errors.OutOfBounds(index, 0, uint32(x.b.length))
	}
	nb := newBranch(x.b.doc, kind)
	nb.tag = tag
	p := txn.seek(x.b, uint64(index))
	txn.insertAfter(x.b, p.left, typeContent(nb))
	return nb, nil
}

// InsertElement creates an element child at index.
func (x *xmlChildren) InsertElement(txn *Transaction, index uint32, tag string) (*XmlElement, error) {
	nb, err := x.insertNode(txn, index, kindXmlElement, tag)
	if err != nil {
		return nil, err
	}
	return nb.container().(*XmlElement), nil
}

// InsertText creates an empty text child at index.
func (x *xmlChildren) InsertText(txn *Transaction, index uint32) (*XmlText, error) {
	nb, err := x.insertNode(txn, index, kindXmlText, "")
	if err != nil {
		return nil, err
	}
	return nb.container().(*XmlText), nil
}

func (x *xmlChildren) PushElement(txn *Transaction, tag string) *XmlElement {
	txn.writable(x.b)
	el, _ := x.InsertElement(txn, uint32(x.b.length), tag)
	return el
}

func (x *xmlChildren) PushText(txn *Transaction) *XmlText {
	txn.writable(x.b)
	t, _ := x.InsertText(txn, uint32(x.b.length))
	return t
}

func (x *xmlChildren) UnshiftElement(txn *Transaction, tag string) *XmlElement {
	el, _ := x.InsertElement(txn, 0, tag)
	return el
}

func (x *xmlChildren) UnshiftText(txn *Transaction) *XmlText {
	t, _ := x.InsertText(txn, 0)
	return t
}

func (x *xmlChildren) Delete(txn *Transaction, index, length uint32) error {
	txn.writable(x.b)
	if uint64(index)+uint64(length) > x.b.length {
		return ydoc_errors.OutOfBounds(index, length, uint32(x.b.length))
	}
	if length == 0 {
		return nil
	}
	txn.removeRange(txn.seek(x.b, uint64(index)), uint64(length))
	return nil
}

func (x *xmlChildren) Get(txn *Transaction, index uint32) (XmlNode, error) {
	txn.readable(x.b)
	it, _ := x.b.at(uint64(index))
	if it == nil {
		return nil, ydoc_errors.OutOfBounds(index, 1, uint32(x.b.length))
	}
	n, _ := itemValue(it).(XmlNode)
	return n, nil
}

// FirstChild is the first live child, nil for none.
func (x *xmlChildren) FirstChild(txn *Transaction) XmlNode {
	txn.readable(x.b)
	it, _ := x.b.at(0)
	if it == nil {
		return nil
	}
	n, _ := itemValue(it).(XmlNode)
	return n
}

func (x *xmlChildren) Children(txn *Transaction) []XmlNode {
	txn.readable(x.b)
	var ret []XmlNode
	x.b.walk(func(it *item) bool {
		if it.visible() {
			if n, ok := itemValue(it).(XmlNode); ok {
				ret = append(ret, n)
			}
		}
		return true
	})
	return ret
}

func (x *xmlChildren) childrenString(txn *Transaction, sb *strings.Builder) {
	for _, n := range x.Children(txn) {
		sb.WriteString(n.String(txn))
	}
}

func (x *xmlChildren) Observe(fn EventObserver) utils.SubscriptionID {
	return x.b.observers.Add(fn)
}

func (x *xmlChildren) Unobserve(id utils.SubscriptionID) bool {
	return x.b.observers.Remove(id)
}

func (x *xmlChildren) node() *branch {
	return x.b
}

// XmlFragment is an ordered list of XML nodes without a tag of its own.
type XmlFragment struct {
	xmlChildren
}

func (f *XmlFragment) Kind() XmlKind {
	return XmlKindFragment
}

func (f *XmlFragment) Parent() XmlNode {
	return parentNode(f.b)
}

// String concatenates the children: <A><B></B></A>.
func (f *XmlFragment) String(txn *Transaction) string {
	var sb strings.Builder
	f.childrenString(txn, &sb)
	return sb.String()
}

// XmlElement is a tagged node with attributes and children.
type XmlElement struct {
	xmlChildren
}

func (e *XmlElement) Kind() XmlKind {
	return XmlKindElement
}

func (e *XmlElement) Tag() string {
	return e.b.tag
}

func (e *XmlElement) Parent() XmlNode {
	return parentNode(e.b)
}

func (e *XmlElement) NextSibling(txn *Transaction) XmlNode {
	return sibling(txn, e.b, true)
}

func (e *XmlElement) PrevSibling(txn *Transaction) XmlNode {
	return sibling(txn, e.b, false)
}

func (e *XmlElement) InsertAttribute(txn *Transaction, name, value string) {
	txn.writable(e.b)
	txn.setKey(e.b, name, valuesContent([]Value{value}))
}

func (e *XmlElement) RemoveAttribute(txn *Transaction, name string) bool {
	txn.writable(e.b)
	return txn.deleteKey(e.b, name)
}

func (e *XmlElement) GetAttribute(txn *Transaction, name string) (string, bool) {
	txn.readable(e.b)
	return stringValue(e.b.value(name))
}

func (e *XmlElement) Attributes(txn *Transaction) map[string]string {
	txn.readable(e.b)
	return attributesOf(e.b)
}

// String renders the element with its attributes sorted by name.
func (e *XmlElement) String(txn *Transaction) string {
	txn.readable(e.b)
	var sb strings.Builder
	sb.WriteByte('<')
	sb.WriteString(e.b.tag)
	attrs := attributesOf(e.b)
	for _, k := range sortedKeys(attrs) {
		fmt.Fprintf(&sb, " %s=%q", k, attrs[k])
	}
	sb.WriteByte('>')
	e.childrenString(txn, &sb)
	sb.WriteString("</")
	sb.WriteString(e.b.tag)
	sb.WriteByte('>')
	return sb.String()
}

// XmlText is formatted text inside an XML tree.
type XmlText struct {
	textual
}

func (t *XmlText) Kind() XmlKind {
	return XmlKindText
}

func (t *XmlText) Parent() XmlNode {
	return parentNode(t.b)
}

func (t *XmlText) NextSibling(txn *Transaction) XmlNode {
	return sibling(txn, t.b, true)
}

func (t *XmlText) PrevSibling(txn *Transaction) XmlNode {
	return sibling(txn, t.b, false)
}

// String renders formatting runs as tags: <bold>ab</bold>c.
func (t *XmlText) String(txn *Transaction) string {
	var sb strings.Builder
	renderFormatted(&sb, t.Diff(txn))
	return sb.String()
}

func (t *XmlText) node() *branch {
	return t.b
}
