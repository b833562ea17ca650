package ydoc

import (
	"fmt"
	"maps"
	"strings"

	"github.com/drpcorg/ydoc/utils"
	"github.com/drpcorg/ydoc/ydoc_errors"
)

// textual implements the operations Text and XmlText share. Positions
// and lengths count UTF-16 code units.
type textual struct {
	b *branch
}

// Text is a collaborative rich-text string.
type Text struct {
	textual
}

func (t *textual) Len(txn *Transaction) uint32 {
	txn.readable(t.b)
	return uint32(t.b.length)
}

// String returns the text, embeds left out.
func (t *textual) String(txn *Transaction) string {
	txn.readable(t.b)
	var units []uint16
	t.b.walk(func(it *item) bool {
		if !it.deleted && it.content.kind == contentString {
			units = append(units, it.content.str...)
		}
		return true
	})
	return decodeUTF16(units)
}

// Insert writes s at index; the text takes the formatting in effect at
// that position.
func (t *textual) Insert(txn *Transaction, index uint32, s string) error {
	if s == "" {
		return t.check(txn, index, 0)
	}
	return t.insert(txn, index, stringContent(s), nil, false)
}

// InsertWithAttributes writes s formatted with exactly attrs.
func (t *textual) InsertWithAttributes(txn *Transaction, index uint32, s string, attrs Attrs) error {
	if s == "" {
		return t.check(txn, index, 0)
	}
	return t.insert(txn, index, stringContent(s), attrs, true)
}

func (t *textual) InsertEmbed(txn *Transaction, index uint32, v Value) error {
	nv, err := NormalizeValue(v)
	if err != nil {
		return err
	}
	return t.insert(txn, index, embedContent(nv), nil, false)
}

func (t *textual) InsertEmbedWithAttributes(txn *Transaction, index uint32, v Value, attrs Attrs) error {
	nv, err := NormalizeValue(v)
	if err != nil {
		return err
	}
	return t.insert(txn, index, embedContent(nv), attrs, true)
}

// Push appends s at the end.
func (t *textual) Push(txn *Transaction, s string) error {
	txn.writable(t.b)
	return t.Insert(txn, uint32(t.b.length), s)
}

func (t *textual) RemoveRange(txn *Transaction, index, length uint32) error {
	if err := t.check(txn, index, length); err != nil || length == 0 {
		return err
	}
	p := txn.seek(t.b, uint64(index))
	txn.removeRange(p, uint64(length))
	return nil
}

// Format applies attrs over the range; a nil value removes the key.
func (t *textual) Format(txn *Transaction, index, length uint32, attrs Attrs) error {
	if err := t.check(txn, index, length); err != nil || length == 0 {
		return err
	}
	attrs, err := normalizeAttrs(attrs)
	if err != nil {
		return err
	}
	p := txn.seek(t.b, uint64(index))
	txn.formatText(t.b, p, uint64(length), attrs)
	return nil
}

// Diff is the whole content as insert runs with their formatting.
func (t *textual) Diff(txn *Transaction) []Delta {
	txn.readable(t.b)
	var db deltaBuilder
	attrs := Attrs{}
	t.b.walk(func(it *item) bool {
		if it.deleted {
			return true
		}
		if it.content.kind == contentFormat {
			if it.content.value == nil {
				delete(attrs, it.content.key)
			} else {
				attrs[it.content.key] = it.content.value
			}
			return true
		}
		db.insertItem(it, attrs)
		return true
	})
	return db.deltas()
}

// InsertAttribute sets a node attribute, outside of the text itself.
func (t *textual) InsertAttribute(txn *Transaction, name, value string) {
	txn.writable(t.b)
	txn.setKey(t.b, name, valuesContent([]Value{value}))
}

func (t *textual) RemoveAttribute(txn *Transaction, name string) bool {
	txn.writable(t.b)
	return txn.deleteKey(t.b, name)
}

func (t *textual) GetAttribute(txn *Transaction, name string) (string, bool) {
	txn.readable(t.b)
	return stringValue(t.b.value(name))
}

func (t *textual) Attributes(txn *Transaction) map[string]string {
	txn.readable(t.b)
	return attributesOf(t.b)
}

func (t *textual) Observe(fn EventObserver) utils.SubscriptionID {
	return t.b.observers.Add(fn)
}

// Unobserve removes a subscription; unknown ids return false.
func (t *textual) Unobserve(id utils.SubscriptionID) bool {
	return t.b.observers.Remove(id)
}

func (t *textual) check(txn *Transaction, index, length uint32) error {
	txn.writable(t.b)
	if uint64(index)+uint64(length) > t.b.length {
		return ydoc_errors.OutOfBounds(index, length, uint32(t.b.length))
	}
	return nil
}

func (t *textual) insert(txn *Transaction, index uint32, c content, attrs Attrs, explicit bool) error {
	if err := t.check(txn, index, 0); err != nil {
		return err
	}
	p := txn.seek(t.b, uint64(index))
	if explicit {
		var err error
		if attrs, err = normalizeAttrs(attrs); err != nil {
			return err
		}
		for k := range p.attrs {
			if _, ok := attrs[k]; !ok {
				attrs[k] = nil
			}
		}
	} else {
		attrs = maps.Clone(p.attrs)
	}
	txn.insertText(t.b, p, c, attrs)
	return nil
}

// insertText writes the content at the cursor formatted with attrs,
// restoring the previous formatting after it.
func (txn *Transaction) insertText(b *branch, p *position, c content, attrs Attrs) {
	p.minimize(attrs)
	negated := txn.insertFormats(b, p, attrs, false)
	p.right = txn.insertAfter(b, p.left, c)
	p.forward()
	txn.insertNegated(b, p, negated, false)
}

// minimize steps over markers that already set what attrs asks for.
func (p *position) minimize(attrs Attrs) {
	for p.right != nil {
		r := p.right
		if !r.deleted && !(r.content.kind == contentFormat && equalValues(attrs[r.content.key], r.content.value)) {
			return
		}
		p.forward()
	}
}

// insertFormats writes a marker for each attribute differing from the
// formatting at the cursor, returns the values to restore afterwards.
func (txn *Transaction) insertFormats(b *branch, p *position, attrs Attrs, track bool) Attrs {
	negated := Attrs{}
	for _, key := range sortedKeys(attrs) {
		val := attrs[key]
		cur := p.attrs[key]
		if equalValues(cur, val) {
			continue
		}
		negated[key] = cur
		p.right = txn.insertFormat(b, p.left, key, val, track)
		p.forward()
	}
	return negated
}

func (txn *Transaction) insertNegated(b *branch, p *position, negated Attrs, track bool) {
	for p.right != nil {
		r := p.right
		if r.deleted {
			p.forward()
			continue
		}
		if r.content.kind == contentFormat && equalValues(negated[r.content.key], r.content.value) {
			delete(negated, r.content.key)
			p.forward()
			continue
		}
		break
	}
	for _, key := range sortedKeys(negated) {
		p.right = txn.insertFormat(b, p.left, key, negated[key], track)
		p.forward()
	}
}

func (txn *Transaction) insertFormat(b *branch, left *item, key string, val Value, track bool) *item {
	it := txn.insertAfter(b, left, formatContent(key, val))
	if track {
		txn.formatMarkers[it.id] = struct{}{}
	}
	return it
}

// formatText marks length units from the cursor with attrs, dropping
// markers inside the range that attrs overrides.
func (txn *Transaction) formatText(b *branch, p *position, length uint64, attrs Attrs) {
	p.minimize(attrs)
	negated := txn.insertFormats(b, p, attrs, true)
loop:
	for p.right != nil && (length > 0 || (len(negated) > 0 && (p.right.deleted || p.right.content.kind == contentFormat))) {
		r := p.right
		if !r.deleted {
			switch r.content.kind {
			case contentFormat:
				key, val := r.content.key, r.content.value
				if want, ok := attrs[key]; ok {
					if equalValues(want, val) {
						delete(negated, key)
					} else {
						if length == 0 {
							break loop
						}
						negated[key] = val
					}
					txn.deleteItem(r)
				} else {
					p.attrs[key] = val
				}
			default:
				if r.countable() {
					if length < r.length() {
						txn.doc.store.split(r, length)
					}
					length -= r.length()
				}
			}
		}
		p.forward()
	}
	txn.insertNegated(b, p, negated, true)
}

func stringValue(v Value, ok bool) (string, bool) {
	if !ok {
		return "", false
	}
	if s, isStr := v.(string); isStr {
		return s, true
	}
	return fmt.Sprint(v), true
}

func attributesOf(b *branch) map[string]string {
	ret := make(map[string]string)
	for _, k := range b.keys() {
		if s, ok := stringValue(b.value(k)); ok {
			ret[k] = s
		}
	}
	return ret
}

// renderFormatted writes text runs as nested tags, one per attribute.
func renderFormatted(sb *strings.Builder, deltas []Delta) {
	for _, d := range deltas {
		s, ok := d.Insert.(string)
		if !ok {
			continue
		}
		keys := sortedKeys(d.Attributes)
		for _, k := range keys {
			sb.WriteByte('<')
			sb.WriteString(k)
			if m, ok := d.Attributes[k].(map[string]any); ok {
				for _, mk := range sortedKeys(m) {
					fmt.Fprintf(sb, " %s=\"%v\"", mk, m[mk])
				}
			}
			sb.WriteByte('>')
		}
		sb.WriteString(s)
		for i := len(keys) - 1; i >= 0; i-- {
			sb.WriteString("</")
			sb.WriteString(keys[i])
			sb.WriteByte('>')
		}
	}
}
