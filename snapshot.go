package ydoc

import (
	"fmt"

	"github.com/drpcorg/ydoc/protocol"
	"github.com/drpcorg/ydoc/rdx"
	"github.com/drpcorg/ydoc/ydoc_errors"
)

// Snapshot is the state of a document at some point: its clock and
// its tombstones. It is immutable.
type Snapshot struct {
	sv rdx.StateVector
	ds rdx.DeleteSet
}

func NewSnapshot(sv rdx.StateVector, ds rdx.DeleteSet) *Snapshot {
	ds = ds.Clone()
	ds.Normalize()
	return &Snapshot{sv: sv.Clone(), ds: ds}
}

// Snapshot captures the document as the transaction sees it.
func (txn *Transaction) Snapshot() *Snapshot {
	txn.own(txn.doc)
	return &Snapshot{sv: txn.doc.store.stateVector(), ds: txn.doc.store.deleteSet()}
}

func (s *Snapshot) StateVector() rdx.StateVector {
	return s.sv.Clone()
}

func (s *Snapshot) DeleteSet() rdx.DeleteSet {
	return s.ds.Clone()
}

// Equal compares clocks and tombstones.
func (s *Snapshot) Equal(other *Snapshot) bool {
	return s.sv.Equal(other.sv) && s.ds.Equal(other.ds)
}

func (s *Snapshot) String() string {
	return fmt.Sprintf("{sv:%s ds:%s}", s.sv, s.ds)
}

// Encode writes the delete set and the state vector; v1 as a D and
// an S record, v2 as their compact forms back to back.
func (s *Snapshot) Encode(enc rdx.Encoding) []byte {
	if enc == rdx.EncodingV2 {
		var w rdx.Writer
		s.ds.WriteV2(&w)
		s.sv.WriteV2(&w)
		return w.Data()
	}
	buf := protocol.Append(nil, 'D', s.ds.AppendV1(nil))
	return protocol.Append(buf, 'S', s.sv.Encode(rdx.EncodingV1))
}

// DecodeSnapshot parses an encoded snapshot; malformed or truncated
// input yields a DecodeError.
func DecodeSnapshot(data []byte, enc rdx.Encoding) (*Snapshot, error) {
	snap, err := decodeSnapshot(data, enc)
	if err != nil {
		return nil, ydoc_errors.Decode("snapshot", err)
	}
	return snap, nil
}

func decodeSnapshot(data []byte, enc rdx.Encoding) (*Snapshot, error) {
	switch enc {
	case rdx.EncodingV1:
		dsb, rest, err := protocol.TakeWary('D', data)
		if err != nil {
			return nil, err
		}
		svb, rest, err := protocol.TakeWary('S', rest)
		if err != nil {
			return nil, err
		}
		if len(rest) > 0 {
			return nil, rdx.ErrTrailingBytes
		}
		ds, err := rdx.DecodeDeleteSetV1(dsb)
		if err != nil {
			return nil, err
		}
		sv, err := rdx.DecodeStateVector(svb, rdx.EncodingV1)
		if err != nil {
			return nil, err
		}
		return &Snapshot{sv: sv, ds: ds}, nil
	case rdx.EncodingV2:
		r := rdx.NewReader(data)
		ds := rdx.ReadDeleteSetV2(r)
		sv := rdx.ReadStateVectorV2(r)
		if err := r.Done(); err != nil {
			return nil, err
		}
		return &Snapshot{sv: sv, ds: ds}, nil
	default:
		return nil, fmt.Errorf("unknown encoding %s", enc)
	}
}
