package ydoc

import (
	"github.com/drpcorg/ydoc/utils"
)

// Map is a collaborative string-keyed map. Concurrent writes to one
// key resolve to the same winner on every replica.
type Map struct {
	b *branch
}

func (m *Map) Set(txn *Transaction, key string, v Value) error {
	txn.writable(m.b)
	nv, err := NormalizeValue(v)
	if err != nil {
		return err
	}
	txn.setKey(m.b, key, valuesContent([]Value{nv}))
	return nil
}

func (m *Map) Get(txn *Transaction, key string) (Value, bool) {
	txn.readable(m.b)
	return m.b.value(key)
}

// Delete removes the key, reports whether it was there.
func (m *Map) Delete(txn *Transaction, key string) bool {
	txn.writable(m.b)
	return txn.deleteKey(m.b, key)
}

func (m *Map) Has(txn *Transaction, key string) bool {
	_, ok := m.Get(txn, key)
	return ok
}

// Keys lists the live keys, sorted.
func (m *Map) Keys(txn *Transaction) []string {
	txn.readable(m.b)
	return m.b.keys()
}

func (m *Map) Len(txn *Transaction) uint32 {
	return uint32(len(m.Keys(txn)))
}

func (m *Map) ToMap(txn *Transaction) map[string]Value {
	txn.readable(m.b)
	ret := make(map[string]Value)
	for _, k := range m.b.keys() {
		ret[k], _ = m.b.value(k)
	}
	return ret
}

// Observe subscribes to the key changes of every commit.
func (m *Map) Observe(fn EventObserver) utils.SubscriptionID {
	return m.b.observers.Add(fn)
}

func (m *Map) Unobserve(id utils.SubscriptionID) bool {
	return m.b.observers.Remove(id)
}
