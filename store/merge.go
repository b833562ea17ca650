package store

import (
	"io"

	"github.com/cockroachdb/pebble"
	"github.com/pkg/errors"

	"github.com/drpcorg/ydoc/rdx"
)

const mergerName = "ydoc.StateVector"

func vectorMerger(key, value []byte) (pebble.ValueMerger, error) {
	vm := &VectorMerger{}
	return vm, vm.MergeNewer(value)
}

// VectorMerger folds v1-encoded state vectors into their union, so
// appending an update never reads the stored vector back.
type VectorMerger struct {
	sv rdx.StateVector
}

func (m *VectorMerger) merge(value []byte) error {
	sv, err := rdx.DecodeStateVector(value, rdx.EncodingV1)
	if err != nil {
		return errors.Wrap(err, "merge state vector")
	}
	if m.sv == nil {
		m.sv = sv
	} else {
		m.sv.Merge(sv)
	}
	return nil
}

func (m *VectorMerger) MergeNewer(value []byte) error {
	return m.merge(value)
}

// MergeOlder is MergeNewer: the union does not depend on order.
func (m *VectorMerger) MergeOlder(value []byte) error {
	return m.merge(value)
}

func (m *VectorMerger) Finish(includesBase bool) ([]byte, io.Closer, error) {
	if m.sv == nil {
		return nil, nil, nil
	}
	return m.sv.Encode(rdx.EncodingV1), nil, nil
}
