package ydoc

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/drpcorg/ydoc/rdx"
	"github.com/drpcorg/ydoc/ydoc_errors"
)

func TestDoc_SingleWriter(t *testing.T) {
	doc := New(WithClientID(1))

	txn, err := doc.Transact()
	assert.Nil(t, err)
	_, err = doc.Transact()
	assert.ErrorIs(t, err, ydoc_errors.ErrConcurrentAccess)
	_, err = doc.TransactRead()
	assert.ErrorIs(t, err, ydoc_errors.ErrConcurrentAccess)
	txn.Commit()

	txn, err = doc.Transact()
	assert.Nil(t, err)
	txn.Commit()

	r1, err := doc.TransactRead()
	assert.Nil(t, err)
	r2, err := doc.TransactRead()
	assert.Nil(t, err)
	_, err = doc.Transact()
	assert.ErrorIs(t, err, ydoc_errors.ErrConcurrentAccess)
	r1.Commit()
	r2.Commit()

	txn, err = doc.Transact()
	assert.Nil(t, err)
	txn.Commit()
	txn.Commit() // no-op
}

func TestDoc_Options(t *testing.T) {
	doc := New()
	assert.NotZero(t, doc.ClientID())
	assert.Less(t, doc.ClientID(), uint64(1)<<53)
	assert.True(t, doc.GC())

	doc = New(WithClientID(42), WithGC(false))
	assert.Equal(t, uint64(42), doc.ClientID())
	assert.False(t, doc.GC())
}

func TestDoc_RootTypes(t *testing.T) {
	doc := New(WithClientID(1))
	text, err := doc.GetOrInsertText("body")
	assert.Nil(t, err)
	again, err := doc.GetOrInsertText("body")
	assert.Nil(t, err)
	assert.Same(t, text, again)

	_, err = doc.GetOrInsertMap("body")
	assert.ErrorIs(t, err, ydoc_errors.ErrUnsupported)

	el, err := doc.GetOrInsertXmlElement("p")
	assert.Nil(t, err)
	assert.Equal(t, "p", el.Tag())

	_, _ = doc.GetOrInsertArray("list")
	assert.Equal(t, []string{"body", "list", "p"}, doc.Roots())
}

func TestDoc_Misuse(t *testing.T) {
	a := New(WithClientID(1))
	b := New(WithClientID(2))
	text, _ := a.GetOrInsertText("t")

	txn, _ := b.Transact()
	assert.Panics(t, func() { _ = text.Insert(txn, 0, "x") })
	txn.Commit()

	rtxn, _ := a.TransactRead()
	assert.Panics(t, func() { _ = text.Insert(rtxn, 0, "x") })
	rtxn.Commit()
	assert.Panics(t, func() { text.Len(rtxn) })
}

func TestDoc_UpdateObservers(t *testing.T) {
	doc := New(WithClientID(1))
	text, _ := doc.GetOrInsertText("t")
	var v1, v2 [][]byte
	id1 := doc.ObserveUpdate(func(txn *Transaction, update []byte) {
		v1 = append(v1, update)
	})
	doc.ObserveUpdateV2(func(txn *Transaction, update []byte) {
		v2 = append(v2, update)
	})

	assert.Nil(t, doc.WithTransaction(func(txn *Transaction) error {
		return text.Insert(txn, 0, "hi")
	}))
	// nothing changed, nothing published
	assert.Nil(t, doc.WithTransaction(func(txn *Transaction) error {
		return nil
	}))
	assert.Len(t, v1, 1)
	assert.Len(t, v2, 1)

	u1, err := DecodeUpdate(v1[0], rdx.EncodingV1)
	assert.Nil(t, err)
	u2, err := DecodeUpdate(v2[0], rdx.EncodingV2)
	assert.Nil(t, err)
	assert.Equal(t, u1.StateVector(), u2.StateVector())
	assert.Equal(t, rdx.StateVector{1: 2}, u1.StateVector())

	assert.True(t, doc.Unobserve(id1))
	assert.False(t, doc.Unobserve(id1))
	assert.False(t, doc.Unobserve(12345))
	assert.Nil(t, doc.WithTransaction(func(txn *Transaction) error {
		return text.Push(txn, "!")
	}))
	assert.Len(t, v1, 1)
	assert.Len(t, v2, 2)
}

func TestDoc_ObserverHoldsTheDocument(t *testing.T) {
	doc := New(WithClientID(1))
	text, _ := doc.GetOrInsertText("t")
	var nested error
	var seen string
	text.Observe(func(txn *Transaction, ev *Event) {
		_, nested = doc.Transact()
		seen = text.String(txn)
		assert.Panics(t, func() { _ = text.Push(txn, "more") })
	})
	assert.Nil(t, doc.WithTransaction(func(txn *Transaction) error {
		return text.Insert(txn, 0, "abc")
	}))
	assert.ErrorIs(t, nested, ydoc_errors.ErrConcurrentAccess)
	assert.Equal(t, "abc", seen)

	txn, err := doc.Transact()
	assert.Nil(t, err)
	txn.Commit()
}

func TestDoc_PanickingObserverReleases(t *testing.T) {
	doc := New(WithClientID(1))
	text, _ := doc.GetOrInsertText("t")
	id := doc.ObserveUpdate(func(txn *Transaction, update []byte) {
		panic("observer failed")
	})
	assert.PanicsWithValue(t, "observer failed", func() {
		_ = doc.WithTransaction(func(txn *Transaction) error {
			return text.Insert(txn, 0, "abc")
		})
	})
	assert.True(t, doc.Unobserve(id))

	assert.Nil(t, doc.WithTransaction(func(txn *Transaction) error {
		return text.Push(txn, "d")
	}))
	assert.Nil(t, doc.WithReadTransaction(func(txn *Transaction) error {
		assert.Equal(t, "abcd", text.String(txn))
		return nil
	}))
}

func TestDoc_GarbageCollection(t *testing.T) {
	doc := New(WithClientID(1))
	text, _ := doc.GetOrInsertText("t")
	assert.Nil(t, doc.WithTransaction(func(txn *Transaction) error {
		return text.Insert(txn, 0, "hello")
	}))
	assert.Nil(t, doc.WithTransaction(func(txn *Transaction) error {
		return text.RemoveRange(txn, 0, 5)
	}))
	list := doc.store.clients[1]
	assert.Len(t, list, 1)
	assert.Equal(t, contentDeleted, list[0].content.kind)
	assert.Equal(t, uint64(5), list[0].length())

	// the collected tombstone still replicates
	update, err := doc.EncodeStateAsUpdate(rdx.EncodingV1)
	assert.Nil(t, err)
	other := New(WithClientID(2))
	assert.Nil(t, other.ApplyUpdate(update, rdx.EncodingV1))
	otherText, _ := other.GetOrInsertText("t")
	txn, _ := other.TransactRead()
	assert.Equal(t, "", otherText.String(txn))
	assert.Equal(t, rdx.StateVector{1: 5}, txn.StateVector())
	txn.Commit()
}

func TestDoc_NoGarbageCollection(t *testing.T) {
	doc := New(WithClientID(1), WithGC(false))
	text, _ := doc.GetOrInsertText("t")
	assert.Nil(t, doc.WithTransaction(func(txn *Transaction) error {
		if err := text.Insert(txn, 0, "hello"); err != nil {
			return err
		}
		return text.RemoveRange(txn, 0, 5)
	}))
	list := doc.store.clients[1]
	assert.Equal(t, contentString, list[0].content.kind)
	assert.True(t, list[0].deleted)
}
