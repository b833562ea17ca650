package ydoc

import (
	"github.com/drpcorg/ydoc/utils"
	"github.com/drpcorg/ydoc/ydoc_errors"
)

// Array is a collaborative list of values.
type Array struct {
	b *branch
}

func (a *Array) Len(txn *Transaction) uint32 {
	txn.readable(a.b)
	return uint32(a.b.length)
}

// Insert puts the values at index, in order.
func (a *Array) Insert(txn *Transaction, index uint32, values ...Value) error {
	txn.writable(a.b)
	if uint64(index) > a.b.length {
		return ydoc_errors.OutOfBounds(index, 0, uint32(a.b.length))
	}
	vals := make([]Value, len(values))
	for i, v := range values {
		nv, err := NormalizeValue(v)
		if err != nil {
			return err
		}
		vals[i] = nv
	}
	if len(vals) == 0 {
		return nil
	}
	p := txn.seek(a.b, uint64(index))
	txn.insertAfter(a.b, p.left, valuesContent(vals))
	return nil
}

func (a *Array) Push(txn *Transaction, values ...Value) error {
	txn.writable(a.b)
	return a.Insert(txn, uint32(a.b.length), values...)
}

func (a *Array) Unshift(txn *Transaction, values ...Value) error {
	return a.Insert(txn, 0, values...)
}

func (a *Array) Delete(txn *Transaction, index, length uint32) error {
	txn.writable(a.b)
	if uint64(index)+uint64(length) > a.b.length {
		return ydoc_errors.OutOfBounds(index, length, uint32(a.b.length))
	}
	if length == 0 {
		return nil
	}
	txn.removeRange(txn.seek(a.b, uint64(index)), uint64(length))
	return nil
}

func (a *Array) Get(txn *Transaction, index uint32) (Value, error) {
	txn.readable(a.b)
	it, off := a.b.at(uint64(index))
	if it == nil {
		return nil, ydoc_errors.OutOfBounds(index, 1, uint32(a.b.length))
	}
	if it.content.kind == contentValues {
		return it.content.values[off], nil
	}
	return itemValue(it), nil
}

func (a *Array) ToSlice(txn *Transaction) []Value {
	txn.readable(a.b)
	ret := make([]Value, 0, a.b.length)
	a.b.walk(func(it *item) bool {
		if !it.visible() {
			return true
		}
		if it.content.kind == contentValues {
			ret = append(ret, it.content.values...)
		} else {
			ret = append(ret, itemValue(it))
		}
		return true
	})
	return ret
}

// Observe subscribes to the changes of every commit: a delta of
// inserted values, retained and deleted runs.
func (a *Array) Observe(fn EventObserver) utils.SubscriptionID {
	return a.b.observers.Add(fn)
}

func (a *Array) Unobserve(id utils.SubscriptionID) bool {
	return a.b.observers.Remove(id)
}
