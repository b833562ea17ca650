package ydoc

import (
	"slices"

	"github.com/drpcorg/ydoc/rdx"
)

// ApplyUpdate decodes and integrates a remote update in its own
// read-write transaction. Nothing is applied if decoding fails.
func (d *Doc) ApplyUpdate(data []byte, enc rdx.Encoding) error {
	u, err := DecodeUpdate(data, enc)
	if err != nil {
		return err
	}
	UpdateBytes.WithLabelValues("remote").Observe(float64(len(data)))
	return d.WithTransaction(func(txn *Transaction) error {
		txn.Apply(u)
		return nil
	})
}

// ApplyUpdate decodes and integrates a remote update.
func (txn *Transaction) ApplyUpdate(data []byte, enc rdx.Encoding) error {
	u, err := DecodeUpdate(data, enc)
	if err != nil {
		return err
	}
	UpdateBytes.WithLabelValues("remote").Observe(float64(len(data)))
	txn.Apply(u)
	return nil
}

// Apply integrates every struct of the update whose dependencies are
// known. The rest waits in the document and is retried on every later
// Apply, and so do deletions of units not seen yet.
func (txn *Transaction) Apply(u *Update) {
	txn.own(txn.doc)
	txn.mutating()
	doc := txn.doc
	for client, list := range u.blocks {
		if len(list) == 0 {
			continue
		}
		queue := doc.pending[client]
		for _, it := range list {
			queue = append(queue, it.cloneFor(doc))
		}
		slices.SortStableFunc(queue, func(a, b *item) int {
			switch {
			case a.id.Clock < b.id.Clock:
				return -1
			case a.id.Clock > b.id.Clock:
				return 1
			}
			return 0
		})
		doc.pending[client] = queue
	}
	doc.pendingDS.Merge(u.ds)

	for progress := true; progress; {
		progress = false
		for _, client := range sortedClientsOf(doc.pending) {
			if txn.drain(client) {
				progress = true
			}
		}
	}
	txn.applyDeleteSet()

	waiting := 0
	for _, queue := range doc.pending {
		waiting += len(queue)
	}
	PendingStructs.Set(float64(waiting))
	if waiting > 0 || !doc.pendingDS.IsEmpty() {
		doc.log.Warn("update is missing dependencies",
			"structs", waiting,
			"deletions", doc.pendingDS.String(),
			"state", doc.store.stateVector().String())
	}
}

// drain integrates the client's pending structs until one cannot be.
func (txn *Transaction) drain(client uint64) (progress bool) {
	doc := txn.doc
	queue := doc.pending[client]
	for len(queue) > 0 {
		it := queue[0]
		state := doc.store.state(client)
		if it.id.Clock+it.length() <= state {
			queue = queue[1:]
			continue
		}
		if it.id.Clock > state {
			break
		}
		if off := state - it.id.Clock; off > 0 {
			it.trim(off)
		}
		if !txn.ready(it) {
			break
		}
		txn.integrateRemote(it)
		queue = queue[1:]
		progress = true
	}
	if len(queue) == 0 {
		delete(doc.pending, client)
	} else {
		doc.pending[client] = queue
	}
	return
}

// trim drops the first off units, already known locally.
func (it *item) trim(off uint64) {
	_, right := it.content.splitAt(off)
	it.origin = idPtr(it.id.Plus(off - 1))
	it.id = it.id.Plus(off)
	it.content = right
}

func (txn *Transaction) ready(it *item) bool {
	store := txn.doc.store
	for _, dep := range []*rdx.ID{it.origin, it.rightOrigin, it.parentID} {
		if dep != nil && dep.Clock >= store.state(dep.Client) {
			return false
		}
	}
	return true
}

func (txn *Transaction) integrateRemote(it *item) {
	doc := txn.doc
	store := doc.store
	if it.origin != nil {
		it.left = store.findCleanEnd(*it.origin)
	}
	if it.rightOrigin != nil {
		it.right = store.findCleanStart(*it.rightOrigin)
	}
	switch {
	case it.parentRoot:
		it.parent, _ = doc.root(it.parentName, kindUndefined)
	case it.parentID != nil:
		if p := store.find(*it.parentID); p.content.kind == contentType {
			it.parent = p.content.branch
		}
	}
	if (it.left != nil && it.left.parent != it.parent) || (it.right != nil && it.right.parent != it.parent) {
		it.parent = nil
	}
	if it.parent == nil {
		it.left, it.right = nil, nil
	}
	txn.integrate(it)
}

// applyDeleteSet tombstones the pending deletions over known units.
func (txn *Transaction) applyDeleteSet() {
	doc := txn.doc
	store := doc.store
	left := make(rdx.DeleteSet)
	for client, ranges := range doc.pendingDS {
		state := store.state(client)
		for _, r := range ranges {
			if r.End() > state {
				from := max(r.Clock, state)
				left.Add(client, from, r.End()-from)
			}
			end := min(r.End(), state)
			for clock := r.Clock; clock < end; {
				it := store.find(rdx.NewID(client, clock))
				if !it.deleted {
					it = store.findCleanStart(rdx.NewID(client, clock))
					if it.id.Clock+it.length() > end {
						store.split(it, end-it.id.Clock)
					}
					txn.deleteItem(it)
				}
				clock = it.id.Clock + it.length()
			}
		}
	}
	left.Normalize()
	doc.pendingDS = left
}

func sortedClientsOf(m map[uint64][]*item) []uint64 {
	clients := make([]uint64, 0, len(m))
	for client := range m {
		clients = append(clients, client)
	}
	slices.Sort(clients)
	return clients
}

// HasPending reports structs or deletions waiting for missing
// dependencies.
func (txn *Transaction) HasPending() bool {
	txn.own(txn.doc)
	return len(txn.doc.pending) > 0 || !txn.doc.pendingDS.IsEmpty()
}
