package ydoc

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/drpcorg/ydoc/rdx"
	"github.com/drpcorg/ydoc/ydoc_errors"
)

func TestStateVector_RoundTrip(t *testing.T) {
	a, ta := textDoc(t, 7)
	assert.Nil(t, a.WithTransaction(func(txn *Transaction) error {
		return ta.Insert(txn, 0, "hello")
	}))
	b, tb := textDoc(t, 300)
	assert.Nil(t, b.WithTransaction(func(txn *Transaction) error {
		return tb.Insert(txn, 0, "hi")
	}))
	syncDocs(t, b, a, rdx.EncodingV2)

	sv, err := a.StateVector()
	assert.Nil(t, err)
	assert.Equal(t, rdx.StateVector{7: 5, 300: 2}, sv)
	for _, enc := range encodings {
		data, err := a.EncodeStateVector(enc)
		assert.Nil(t, err)
		back, err := rdx.DecodeStateVector(data, enc)
		assert.Nil(t, err)
		assert.True(t, sv.Equal(back), enc.String())
	}
}

func TestSnapshot_RoundTrip(t *testing.T) {
	doc := New(WithClientID(1), WithGC(false))
	text, _ := doc.GetOrInsertText("t")
	assert.Nil(t, doc.WithTransaction(func(txn *Transaction) error {
		if err := text.Insert(txn, 0, "hello"); err != nil {
			return err
		}
		return text.RemoveRange(txn, 1, 2)
	}))
	snap, err := doc.Snapshot()
	assert.Nil(t, err)
	assert.Equal(t, rdx.StateVector{1: 5}, snap.StateVector())
	assert.Equal(t, rdx.DeleteSet{1: {{Clock: 1, Len: 2}}}, snap.DeleteSet())

	for _, enc := range encodings {
		back, err := DecodeSnapshot(snap.Encode(enc), enc)
		assert.Nil(t, err)
		assert.True(t, snap.Equal(back), enc.String())

		data := snap.Encode(enc)
		for i := 0; i < len(data); i++ {
			_, err := DecodeSnapshot(data[:i], enc)
			assert.ErrorIs(t, err, ydoc_errors.ErrDecode, "%s prefix %d", enc, i)
		}
		_, err = DecodeSnapshot(append(data, 0), enc)
		assert.ErrorIs(t, err, ydoc_errors.ErrDecode)
	}

	assert.Nil(t, doc.WithTransaction(func(txn *Transaction) error {
		return text.Push(txn, "!")
	}))
	later, _ := doc.Snapshot()
	assert.False(t, snap.Equal(later))
	assert.True(t, NewSnapshot(later.StateVector(), later.DeleteSet()).Equal(later))
}

func TestSnapshot_GC(t *testing.T) {
	doc := New(WithClientID(1))
	snap, err := doc.Snapshot()
	assert.Nil(t, err)
	for _, enc := range encodings {
		_, err = doc.EncodeStateFromSnapshot(snap, enc)
		assert.ErrorIs(t, err, ydoc_errors.ErrUnsupported)
		assert.Contains(t, err.Error(), "garbage collection")
	}
}

func TestSnapshot_AheadOfDocument(t *testing.T) {
	doc := New(WithClientID(1), WithGC(false))
	snap := NewSnapshot(rdx.StateVector{1: 3, 7: 1}, rdx.DeleteSet{})
	for _, enc := range encodings {
		_, err := doc.EncodeStateFromSnapshot(snap, enc)
		assert.ErrorIs(t, err, ydoc_errors.ErrUnsupported)
		assert.Contains(t, err.Error(), "ahead of the document")
	}

	empty, err := doc.Snapshot()
	assert.Nil(t, err)
	_, err = doc.EncodeStateFromSnapshot(empty, rdx.EncodingV1)
	assert.Nil(t, err)
}

func TestSnapshot_EncodeState(t *testing.T) {
	doc := New(WithClientID(1), WithGC(false))
	text, _ := doc.GetOrInsertText("t")
	assert.Nil(t, doc.WithTransaction(func(txn *Transaction) error {
		return text.Insert(txn, 0, "hello")
	}))
	snap, err := doc.Snapshot()
	assert.Nil(t, err)
	assert.Nil(t, doc.WithTransaction(func(txn *Transaction) error {
		if err := text.RemoveRange(txn, 0, 5); err != nil {
			return err
		}
		return text.Insert(txn, 0, "bye")
	}))
	assert.Equal(t, "bye", readText(t, doc, text))

	for _, enc := range encodings {
		data, err := doc.EncodeStateFromSnapshot(snap, enc)
		assert.Nil(t, err)
		past, pastText := textDoc(t, 9)
		assert.Nil(t, past.ApplyUpdate(data, enc))
		assert.Equal(t, "hello", readText(t, past, pastText), enc.String())
	}
}
