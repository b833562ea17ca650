package ydoc

type KeyAction byte

const (
	KeyAdded KeyAction = iota + 1
	KeyUpdated
	KeyDeleted
)

func (a KeyAction) String() string {
	switch a {
	case KeyAdded:
		return "add"
	case KeyUpdated:
		return "update"
	case KeyDeleted:
		return "delete"
	default:
		return "?"
	}
}

// KeyChange describes what happened to one map key or attribute.
type KeyChange struct {
	Action   KeyAction
	OldValue Value
	NewValue Value
}

// Event is what one transaction changed in one container: the delta
// of its sequence and the changes of its keys (map entries or node
// attributes).
type Event struct {
	target any
	Delta  []Delta
	Keys   map[string]KeyChange
}

// Target is the container the event is about.
func (ev *Event) Target() any {
	return ev.target
}

func (ev *Event) empty() bool {
	return len(ev.Delta) == 0 && len(ev.Keys) == 0
}

func (txn *Transaction) event(b *branch) *Event {
	ev := &Event{target: b.container()}
	cs := txn.changed[b]
	if cs == nil {
		return ev
	}
	if cs.sequence {
		ev.Delta = txn.sequenceDelta(b)
	}
	for _, key := range txn.touchedKeys(b) {
		if change, ok := txn.keyChange(b, key); ok {
			if ev.Keys == nil {
				ev.Keys = make(map[string]KeyChange)
			}
			ev.Keys[key] = change
		}
	}
	return ev
}

// sequenceDelta describes the change of the sequence by walking it
// once. It tracks three views of the formatting: as it is now, as it
// was before the transaction, and as an insertion of this transaction
// sees it, which leaves out markers written by Format.
func (txn *Transaction) sequenceDelta(b *branch) []Delta {
	var db deltaBuilder
	cur, old, ins := Attrs{}, Attrs{}, Attrs{}
	apply := func(a Attrs, c *content) {
		if c.value == nil {
			delete(a, c.key)
		} else {
			a[c.key] = c.value
		}
	}
	for it := b.start; it != nil; it = it.right {
		added := txn.added(it)
		deletedNow := txn.deletes(it)
		before := !added && (!it.deleted || deletedNow)
		if it.content.kind == contentFormat {
			if !it.deleted {
				apply(cur, &it.content)
				if _, ok := txn.formatMarkers[it.id]; !ok {
					apply(ins, &it.content)
				}
			}
			if before {
				apply(old, &it.content)
			}
			continue
		}
		if !it.countable() {
			continue
		}
		switch {
		case added && !it.deleted:
			db.insertItem(it, ins)
		case !added && deletedNow:
			db.delete(it.length())
		case !added && !it.deleted:
			db.retain(it.length(), changedAttrs(cur, old))
		}
	}
	return db.deltas()
}

// changedAttrs lists the keys whose value differs, with the value now;
// nil marks a removed key.
func changedAttrs(cur, old Attrs) Attrs {
	var ret Attrs
	for k, v := range cur {
		if w, ok := old[k]; !ok || !equalValues(v, w) {
			if ret == nil {
				ret = Attrs{}
			}
			ret[k] = v
		}
	}
	for k := range old {
		if _, ok := cur[k]; !ok {
			if ret == nil {
				ret = Attrs{}
			}
			ret[k] = nil
		}
	}
	return ret
}

// keyChange compares the value of the key before and after the
// transaction.
func (txn *Transaction) keyChange(b *branch, key string) (KeyChange, bool) {
	it := b.entries[key]
	if it == nil {
		return KeyChange{}, false
	}
	if txn.added(it) {
		prev := it.left
		for prev != nil && txn.added(prev) {
			prev = prev.left
		}
		if txn.deletes(it) {
			if prev != nil && txn.deletes(prev) {
				return KeyChange{Action: KeyDeleted, OldValue: itemValue(prev)}, true
			}
			return KeyChange{}, false
		}
		if prev != nil && txn.deletes(prev) {
			return KeyChange{Action: KeyUpdated, OldValue: itemValue(prev), NewValue: itemValue(it)}, true
		}
		return KeyChange{Action: KeyAdded, NewValue: itemValue(it)}, true
	}
	if txn.deletes(it) {
		return KeyChange{Action: KeyDeleted, OldValue: itemValue(it)}, true
	}
	return KeyChange{}, false
}
