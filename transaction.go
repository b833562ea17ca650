package ydoc

import (
	"slices"

	"github.com/drpcorg/ydoc/rdx"
)

// changeSet is what a transaction touched in one container.
type changeSet struct {
	sequence bool
	keys     map[string]struct{}
}

type txnMode byte

const (
	modeRead txnMode = iota + 1
	modeWrite
)

func (m txnMode) String() string {
	if m == modeWrite {
		return "read-write"
	}
	return "read-only"
}

// Transaction is the scope every read and write of a document happens
// in. A read-write transaction is exclusive; read-only ones may run
// together. Commit releases the document, and a read-write
// transaction is committed whatever happened inside it.
type Transaction struct {
	doc       *Doc
	mode      txnMode
	committed bool
	// set while observers run; the transaction is read-only then
	observing bool

	beforeState rdx.StateVector
	// tombstones made by this transaction
	deleteSet rdx.DeleteSet
	// containers touched, in first-touch order
	changed      map[*branch]*changeSet
	changedOrder []*branch
	// markers created by Format; an insertion does not inherit them
	formatMarkers map[rdx.ID]struct{}
}

func newTransaction(doc *Doc, mode txnMode) *Transaction {
	txn := &Transaction{doc: doc, mode: mode}
	if mode == modeWrite {
		txn.beforeState = doc.store.stateVector()
		txn.deleteSet = make(rdx.DeleteSet)
		txn.changed = make(map[*branch]*changeSet)
		txn.formatMarkers = make(map[rdx.ID]struct{})
	}
	return txn
}

// Doc is the document the transaction belongs to.
func (txn *Transaction) Doc() *Doc {
	return txn.doc
}

func (txn *Transaction) ReadOnly() bool {
	return txn.mode == modeRead
}

func (txn *Transaction) Committed() bool {
	return txn.committed
}

// BeforeState is the state vector at the start of a read-write
// transaction.
func (txn *Transaction) BeforeState() rdx.StateVector {
	return txn.beforeState.Clone()
}

// DeleteSet lists the units this transaction deleted.
func (txn *Transaction) DeleteSet() rdx.DeleteSet {
	return txn.deleteSet.Clone()
}

// Commit ends the transaction. A read-write transaction fires the
// container observers, then the update observers, then collects
// garbage; the document is released last, even when an observer
// panics. Committing twice is a no-op.
func (txn *Transaction) Commit() {
	if txn.committed || txn.observing {
		return
	}
	defer func() {
		txn.committed = true
		txn.observing = false
		txn.doc.release(txn.mode)
	}()
	if txn.mode == modeWrite {
		txn.doc.commit(txn)
	}
}

// own panics on misuse that no caller could recover from.
func (txn *Transaction) own(doc *Doc) {
	if txn.committed {
		panic("ydoc: use of a committed transaction")
	}
	if txn.doc != doc {
		panic("ydoc: transaction belongs to another document")
	}
}

func (txn *Transaction) mutating() {
	if txn.mode != modeWrite || txn.observing {
		panic("ydoc: mutation inside a read-only transaction")
	}
}

func (txn *Transaction) readable(b *branch) {
	txn.own(b.doc)
}

func (txn *Transaction) writable(b *branch) {
	txn.own(b.doc)
	txn.mutating()
}

func (txn *Transaction) added(it *item) bool {
	return it.id.Clock >= txn.beforeState.Get(it.id.Client)
}

func (txn *Transaction) deletes(it *item) bool {
	return txn.deleteSet.Contains(it.id)
}

// markChanged records a change of the container, unless the container
// itself was created by this transaction.
func (txn *Transaction) markChanged(b *branch, it *item) {
	if b.item != nil && (txn.added(b.item) || b.item.deleted) {
		return
	}
	cs, ok := txn.changed[b]
	if !ok {
		cs = &changeSet{keys: make(map[string]struct{})}
		txn.changed[b] = cs
		txn.changedOrder = append(txn.changedOrder, b)
	}
	if it.keyed {
		cs.keys[it.key] = struct{}{}
	} else {
		cs.sequence = true
	}
}

// deleteItem tombstones the item and everything nested in it.
func (txn *Transaction) deleteItem(it *item) {
	if it.deleted {
		return
	}
	it.deleted = true
	if it.parent != nil && !it.keyed && it.countable() {
		it.parent.length -= it.length()
	}
	txn.deleteSet.Add(it.id.Client, it.id.Clock, it.length())
	if it.parent != nil {
		txn.markChanged(it.parent, it)
	}
	if it.content.kind == contentType {
		nested := it.content.branch
		for child := nested.start; child != nil; child = child.right {
			txn.deleteItem(child)
		}
		for _, k := range sortedKeys(nested.entries) {
			for e := nested.entries[k]; e != nil; e = e.left {
				txn.deleteItem(e)
			}
		}
	}
}

// integrate links a new item into its parent between it.left and
// it.right, resolving concurrent insertions at the same place. Among
// items sharing an origin the one with the lower client id goes first,
// which makes the order the same on every replica.
func (txn *Transaction) integrate(it *item) {
	doc := txn.doc
	b := it.parent
	if b == nil {
		it.deleted = true
		it.content = deletedContent(it.length())
		doc.store.add(it)
		return
	}
	if (it.left != nil && it.left.right != it.right) || (it.left == nil && it.right != b.first(it)) {
		left := it.left
		var o *item
		if left != nil {
			o = left.right
		} else {
			o = b.first(it)
		}
		conflicting := make(map[*item]struct{})
		before := make(map[*item]struct{})
		for o != nil && o != it.right {
			before[o] = struct{}{}
			conflicting[o] = struct{}{}
			if sameID(it.origin, o.origin) {
				if o.id.Client < it.id.Client {
					left = o
					clear(conflicting)
				} else if sameID(it.rightOrigin, o.rightOrigin) {
					break
				}
			} else if o.origin != nil {
				oo := doc.store.find(*o.origin)
				if _, ok := before[oo]; !ok {
					break
				}
				if _, ok := conflicting[oo]; !ok {
					left = o
					clear(conflicting)
				}
			} else {
				break
			}
			o = o.right
		}
		ConflictCount.Inc()
		it.left = left
	}
	if it.left != nil {
		it.right = it.left.right
		it.left.right = it
	} else {
		var r *item
		if it.keyed {
			r = b.entries[it.key]
			for r != nil && r.left != nil {
				r = r.left
			}
		} else {
			r = b.start
			b.start = it
		}
		it.right = r
	}
	if it.right != nil {
		it.right.left = it
	} else if it.keyed {
		b.entries[it.key] = it
		if it.left != nil {
			txn.deleteItem(it.left)
		}
	}
	if it.content.kind == contentDeleted {
		it.deleted = true
	}
	if !it.keyed && it.visible() {
		b.length += it.length()
	}
	doc.store.add(it)
	if it.content.kind == contentType {
		it.content.branch.item = it
		it.content.branch.doc = doc
	}
	txn.markChanged(b, it)
	if !b.alive() || (it.keyed && it.right != nil) {
		txn.deleteItem(it)
	}
}

// insertAfter creates a local item right after left (or at the start).
func (txn *Transaction) insertAfter(b *branch, left *item, c content) *item {
	doc := txn.doc
	it := &item{
		id:      rdx.NewID(doc.clientID, doc.store.state(doc.clientID)),
		parent:  b,
		content: c,
		left:    left,
	}
	if left != nil {
		it.origin = idPtr(left.lastID())
		it.right = left.right
	} else {
		it.right = b.start
	}
	if it.right != nil {
		it.rightOrigin = idPtr(it.right.id)
	}
	txn.integrate(it)
	return it
}

// setKey creates a local item holding the new value of the key.
func (txn *Transaction) setKey(b *branch, key string, c content) *item {
	doc := txn.doc
	left := b.entries[key]
	it := &item{
		id:      rdx.NewID(doc.clientID, doc.store.state(doc.clientID)),
		parent:  b,
		key:     key,
		keyed:   true,
		content: c,
		left:    left,
	}
	if left != nil {
		it.origin = idPtr(left.lastID())
	}
	txn.integrate(it)
	return it
}

// deleteKey tombstones the live value of the key.
func (txn *Transaction) deleteKey(b *branch, key string) bool {
	it := b.entries[key]
	if it == nil || it.deleted {
		return false
	}
	txn.deleteItem(it)
	return true
}

// position is a cursor between two items of a sequence. For text it
// also tracks the formatting in effect at the cursor.
type position struct {
	left, right *item
	index       uint64
	attrs       Attrs
}

func (p *position) forward() {
	r := p.right
	if !r.deleted {
		switch {
		case r.content.kind == contentFormat:
			p.applyFormat(&r.content)
		case r.countable():
			p.index += r.length()
		}
	}
	p.left, p.right = r, r.right
}

func (p *position) applyFormat(c *content) {
	if c.value == nil {
		delete(p.attrs, c.key)
	} else {
		p.attrs[c.key] = c.value
	}
}

// seek moves the cursor to a visible index, splitting the item the
// index falls into. The caller checks the bounds.
func (txn *Transaction) seek(b *branch, index uint64) *position {
	p := &position{right: b.start, attrs: make(Attrs)}
	for index > 0 && p.right != nil {
		r := p.right
		if r.visible() {
			if index < r.length() {
				txn.doc.store.split(r, index)
			}
			index -= r.length()
		}
		p.forward()
	}
	return p
}

// removeRange deletes length visible units starting at the cursor,
// stepping over formatting markers.
func (txn *Transaction) removeRange(p *position, length uint64) {
	for length > 0 && p.right != nil {
		r := p.right
		if r.visible() {
			if length < r.length() {
				txn.doc.store.split(r, length)
			}
			length -= r.length()
			txn.deleteItem(r)
		}
		p.forward()
	}
}

// touchedKeys lists the changed keys of a container, sorted.
func (txn *Transaction) touchedKeys(b *branch) []string {
	cs := txn.changed[b]
	if cs == nil {
		return nil
	}
	keys := make([]string, 0, len(cs.keys))
	for k := range cs.keys {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
