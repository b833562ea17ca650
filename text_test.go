package ydoc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/drpcorg/ydoc/rdx"
	"github.com/drpcorg/ydoc/ydoc_errors"
)

func textDoc(t *testing.T, client uint64) (*Doc, *Text) {
	doc := New(WithClientID(client))
	text, err := doc.GetOrInsertText("t")
	assert.Nil(t, err)
	return doc, text
}

func readText(t *testing.T, doc *Doc, text *Text) string {
	txn, err := doc.TransactRead()
	assert.Nil(t, err)
	defer txn.Commit()
	return text.String(txn)
}

func TestText_InsertRemove(t *testing.T) {
	doc, text := textDoc(t, 1)
	txn, err := doc.Transact()
	assert.Nil(t, err)
	assert.Nil(t, text.Insert(txn, 0, "hello"))
	assert.Nil(t, text.Insert(txn, 5, " world"))
	assert.Equal(t, uint32(11), text.Len(txn))
	txn.Commit()
	assert.Equal(t, "hello world", readText(t, doc, text))

	txn, _ = doc.Transact()
	assert.Nil(t, text.RemoveRange(txn, 5, 6))
	assert.Equal(t, uint32(5), text.Len(txn))
	txn.Commit()
	assert.Equal(t, "hello", readText(t, doc, text))

	txn, _ = doc.Transact()
	assert.Nil(t, text.Insert(txn, 2, "--"))
	assert.Nil(t, text.Push(txn, "!"))
	txn.Commit()
	assert.Equal(t, "he--llo!", readText(t, doc, text))
}

func TestText_UTF16Positions(t *testing.T) {
	doc, text := textDoc(t, 1)
	assert.Nil(t, doc.WithTransaction(func(txn *Transaction) error {
		if err := text.Insert(txn, 0, "a😀b"); err != nil {
			return err
		}
		assert.Equal(t, uint32(4), text.Len(txn))
		return text.RemoveRange(txn, 1, 2)
	}))
	assert.Equal(t, "ab", readText(t, doc, text))
}

// Offsets count UTF-16 units, so an insert may land between the two
// halves of a surrogate pair; each half then reads as U+FFFD.
func TestText_InsertSplitsSurrogatePair(t *testing.T) {
	doc, text := textDoc(t, 1)
	assert.Nil(t, doc.WithTransaction(func(txn *Transaction) error {
		if err := text.Insert(txn, 0, "a😀b"); err != nil {
			return err
		}
		return text.Insert(txn, 2, "X")
	}))
	assert.Equal(t, "a\uFFFDX\uFFFDb", readText(t, doc, text))

	txn, err := doc.TransactRead()
	assert.Nil(t, err)
	assert.Equal(t, uint32(5), text.Len(txn))
	txn.Commit()
}

func TestText_OutOfBounds(t *testing.T) {
	doc, text := textDoc(t, 1)
	txn, _ := doc.Transact()
	defer txn.Commit()
	assert.Nil(t, text.Insert(txn, 0, "hello"))

	err := text.Insert(txn, 6, "x")
	assert.ErrorIs(t, err, ydoc_errors.ErrOutOfBounds)

	err = text.RemoveRange(txn, 3, 5)
	assert.ErrorIs(t, err, ydoc_errors.ErrOutOfBounds)
	var oob *ydoc_errors.OutOfBoundsError
	assert.True(t, errors.As(err, &oob))
	assert.Equal(t, uint32(3), oob.Index)
	assert.Equal(t, uint32(5), oob.Length)
	assert.Equal(t, uint32(5), oob.Bound)

	assert.ErrorIs(t, text.Format(txn, 4, 2, Attrs{"bold": true}), ydoc_errors.ErrOutOfBounds)
	assert.Equal(t, "hello", text.String(txn))
}

func TestText_FormatEvent(t *testing.T) {
	doc, text := textDoc(t, 1)
	var deltas [][]Delta
	text.Observe(func(txn *Transaction, ev *Event) {
		deltas = append(deltas, ev.Delta)
	})
	txn, _ := doc.Transact()
	assert.Nil(t, text.Insert(txn, 0, "ab"))
	assert.Nil(t, text.Format(txn, 0, 2, Attrs{"bold": true}))
	txn.Commit()

	assert.Equal(t, [][]Delta{{Inserted("ab", nil)}}, deltas)

	rtxn, _ := doc.TransactRead()
	assert.Equal(t, []Delta{Inserted("ab", Attrs{"bold": true})}, text.Diff(rtxn))
	rtxn.Commit()
}

func TestText_InsertInheritsFormat(t *testing.T) {
	doc, text := textDoc(t, 1)
	assert.Nil(t, doc.WithTransaction(func(txn *Transaction) error {
		if err := text.Insert(txn, 0, "ab"); err != nil {
			return err
		}
		return text.Format(txn, 0, 2, Attrs{"bold": true})
	}))

	var deltas []Delta
	text.Observe(func(txn *Transaction, ev *Event) {
		deltas = ev.Delta
	})
	assert.Nil(t, doc.WithTransaction(func(txn *Transaction) error {
		return text.Insert(txn, 1, "x")
	}))
	assert.Equal(t, []Delta{Retained(1, nil), Inserted("x", Attrs{"bold": true})}, deltas)

	rtxn, _ := doc.TransactRead()
	assert.Equal(t, []Delta{Inserted("axb", Attrs{"bold": true})}, text.Diff(rtxn))
	rtxn.Commit()
}

func TestText_InsertWithAttributes(t *testing.T) {
	doc, text := textDoc(t, 1)
	assert.Nil(t, doc.WithTransaction(func(txn *Transaction) error {
		if err := text.Insert(txn, 0, "hello"); err != nil {
			return err
		}
		return text.InsertWithAttributes(txn, 5, " world", Attrs{"italic": true})
	}))
	rtxn, _ := doc.TransactRead()
	defer rtxn.Commit()
	assert.Equal(t, []Delta{
		Inserted("hello", nil),
		Inserted(" world", Attrs{"italic": true}),
	}, text.Diff(rtxn))
	assert.Equal(t, "hello world", text.String(rtxn))
	assert.Equal(t, uint32(11), text.Len(rtxn))
}

func TestText_Unformat(t *testing.T) {
	doc, text := textDoc(t, 1)
	assert.Nil(t, doc.WithTransaction(func(txn *Transaction) error {
		if err := text.Insert(txn, 0, "abcd"); err != nil {
			return err
		}
		return text.Format(txn, 0, 4, Attrs{"bold": true})
	}))

	var deltas []Delta
	text.Observe(func(txn *Transaction, ev *Event) {
		deltas = ev.Delta
	})
	assert.Nil(t, doc.WithTransaction(func(txn *Transaction) error {
		return text.Format(txn, 1, 2, Attrs{"bold": nil})
	}))
	assert.Equal(t, []Delta{Retained(1, nil), Retained(2, Attrs{"bold": nil})}, deltas)

	rtxn, _ := doc.TransactRead()
	defer rtxn.Commit()
	assert.Equal(t, []Delta{
		Inserted("a", Attrs{"bold": true}),
		Inserted("bc", nil),
		Inserted("d", Attrs{"bold": true}),
	}, text.Diff(rtxn))
}

func TestText_Embed(t *testing.T) {
	doc, text := textDoc(t, 1)
	assert.Nil(t, doc.WithTransaction(func(txn *Transaction) error {
		if err := text.Insert(txn, 0, "ab"); err != nil {
			return err
		}
		return text.InsertEmbed(txn, 1, map[string]any{"image": "x.png"})
	}))
	rtxn, _ := doc.TransactRead()
	defer rtxn.Commit()
	assert.Equal(t, uint32(3), text.Len(rtxn))
	assert.Equal(t, "ab", text.String(rtxn))
	assert.Equal(t, []Delta{
		Inserted("a", nil),
		Inserted(map[string]any{"image": "x.png"}, nil),
		Inserted("b", nil),
	}, text.Diff(rtxn))
}

func TestText_RemoveEvent(t *testing.T) {
	doc, text := textDoc(t, 1)
	assert.Nil(t, doc.WithTransaction(func(txn *Transaction) error {
		return text.Insert(txn, 0, "hello world")
	}))
	var deltas []Delta
	id := text.Observe(func(txn *Transaction, ev *Event) {
		deltas = ev.Delta
	})
	assert.Nil(t, doc.WithTransaction(func(txn *Transaction) error {
		return text.RemoveRange(txn, 5, 6)
	}))
	assert.Equal(t, []Delta{Retained(5, nil), Deleted(6)}, deltas)

	assert.True(t, text.Unobserve(id))
	assert.False(t, text.Unobserve(id))
}

func TestText_Concurrent(t *testing.T) {
	a, ta := textDoc(t, 1)
	b, tb := textDoc(t, 2)
	var fromA, fromB []byte
	a.ObserveUpdate(func(txn *Transaction, update []byte) { fromA = update })
	b.ObserveUpdate(func(txn *Transaction, update []byte) { fromB = update })

	assert.Nil(t, a.WithTransaction(func(txn *Transaction) error {
		return ta.Insert(txn, 0, "abc")
	}))
	assert.Nil(t, b.WithTransaction(func(txn *Transaction) error {
		return tb.Insert(txn, 0, "xyz")
	}))
	ua, ub := fromA, fromB
	assert.Nil(t, a.ApplyUpdate(ub, rdx.EncodingV1))
	assert.Nil(t, b.ApplyUpdate(ua, rdx.EncodingV1))

	assert.Equal(t, "abcxyz", readText(t, a, ta))
	assert.Equal(t, "abcxyz", readText(t, b, tb))
}
