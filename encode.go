package ydoc

import (
	"github.com/drpcorg/ydoc/rdx"
	"github.com/drpcorg/ydoc/ydoc_errors"
)

// StateVector is the document clock as the transaction sees it.
func (txn *Transaction) StateVector() rdx.StateVector {
	txn.own(txn.doc)
	return txn.doc.store.stateVector()
}

func (txn *Transaction) EncodeStateVector(enc rdx.Encoding) []byte {
	return txn.StateVector().Encode(enc)
}

// EncodeDiff encodes what a replica at the encoded state vector sv is
// missing, in the same encoding as sv.
func (txn *Transaction) EncodeDiff(sv []byte, enc rdx.Encoding) ([]byte, error) {
	remote, err := rdx.DecodeStateVector(sv, enc)
	if err != nil {
		return nil, err
	}
	return txn.EncodeDiffFrom(remote, enc), nil
}

// EncodeDiffFrom is EncodeDiff for a decoded state vector. The update
// carries every unit past remote and the whole delete set.
func (txn *Transaction) EncodeDiffFrom(remote rdx.StateVector, enc rdx.Encoding) []byte {
	txn.own(txn.doc)
	store := txn.doc.store
	return encodeUpdate(store.blocks(remote, nil), store.deleteSet(), enc)
}

// EncodeStateAsUpdate encodes the whole document.
func (txn *Transaction) EncodeStateAsUpdate(enc rdx.Encoding) []byte {
	return txn.EncodeDiffFrom(rdx.StateVector{}, enc)
}

// EncodeStateFromSnapshot encodes the document as it was at snap:
// the units below its state vector with its deletions. It needs the
// tombstones a GC document drops, so it always fails on one. A
// snapshot taken of a replica that has seen more fails as well.
func (txn *Transaction) EncodeStateFromSnapshot(snap *Snapshot, enc rdx.Encoding) ([]byte, error) {
	txn.own(txn.doc)
	if txn.doc.gc {
		return nil, ydoc_errors.Unsupported("cannot encode state from snapshot: " +
			"document was created with garbage collection enabled; " +
			"create it with garbage collection disabled, ydoc.New(ydoc.WithGC(false)), to enable snapshot support")
	}
	store := txn.doc.store
	if sv := store.stateVector(); !sv.Covers(snap.sv) {
		return nil, ydoc_errors.Unsupported(
			"cannot encode state from snapshot: snapshot %s is ahead of the document %s", snap.sv, sv)
	}
	return encodeUpdate(store.blocks(rdx.StateVector{}, snap.sv), snap.ds, enc), nil
}

// EncodeDiff is the spelled-out form of txn.EncodeDiff.
func (d *Doc) EncodeDiff(txn *Transaction, sv []byte, enc rdx.Encoding) ([]byte, error) {
	txn.own(d)
	return txn.EncodeDiff(sv, enc)
}

// StateVector reads the clock in a fresh read-only transaction.
func (d *Doc) StateVector() (sv rdx.StateVector, err error) {
	err = d.WithReadTransaction(func(txn *Transaction) error {
		sv = txn.StateVector()
		return nil
	})
	return
}

func (d *Doc) EncodeStateVector(enc rdx.Encoding) (data []byte, err error) {
	err = d.WithReadTransaction(func(txn *Transaction) error {
		data = txn.EncodeStateVector(enc)
		return nil
	})
	return
}

func (d *Doc) EncodeStateAsUpdate(enc rdx.Encoding) (data []byte, err error) {
	err = d.WithReadTransaction(func(txn *Transaction) error {
		data = txn.EncodeStateAsUpdate(enc)
		return nil
	})
	return
}

// Snapshot captures the document in a fresh read-only transaction.
func (d *Doc) Snapshot() (snap *Snapshot, err error) {
	err = d.WithReadTransaction(func(txn *Transaction) error {
		snap = txn.Snapshot()
		return nil
	})
	return
}

func (d *Doc) EncodeStateFromSnapshot(snap *Snapshot, enc rdx.Encoding) (data []byte, err error) {
	err = d.WithReadTransaction(func(txn *Transaction) (err error) {
		data, err = txn.EncodeStateFromSnapshot(snap, enc)
		return
	})
	return
}

// collectGarbage drops the payload of everything deleted by the
// transaction, nested containers included; lengths stay so clocks and
// positions are unaffected.
func (txn *Transaction) collectGarbage() {
	store := txn.doc.store
	for client, ranges := range txn.deleteSet {
		list := store.clients[client]
		for _, r := range ranges {
			i, _ := store.index(rdx.NewID(client, r.Clock))
			for ; i < len(list) && list[i].id.Clock < r.End(); i++ {
				it := list[i]
				if it.deleted && it.content.kind != contentDeleted {
					it.content = deletedContent(it.length())
				}
			}
		}
	}
}
