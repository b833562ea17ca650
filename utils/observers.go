package utils

import "sync"

// SubscriptionID names one registered callback. Ids are issued
// monotonically per registry and never reused.
type SubscriptionID uint32

// Observers is an ordered registry of callbacks owned by a document or
// a container. Callbacks fire in registration order.
type Observers[F any] struct {
	lock sync.Mutex
	last SubscriptionID
	ids  []SubscriptionID
	fns  []F
}

func (o *Observers[F]) Add(fn F) SubscriptionID {
	o.lock.Lock()
	defer o.lock.Unlock()
	o.last++
	o.ids = append(o.ids, o.last)
	o.fns = append(o.fns, fn)
	return o.last
}

// Remove unregisters a callback; unknown ids are a no-op returning false.
func (o *Observers[F]) Remove(id SubscriptionID) bool {
	o.lock.Lock()
	defer o.lock.Unlock()
	for i, sid := range o.ids {
		if sid == id {
			o.ids = append(o.ids[:i], o.ids[i+1:]...)
			o.fns = append(o.fns[:i], o.fns[i+1:]...)
			return true
		}
	}
	return false
}

func (o *Observers[F]) Len() int {
	o.lock.Lock()
	defer o.lock.Unlock()
	return len(o.fns)
}

// Each calls visit on a copy of the current list, so a callback may
// add or remove subscriptions while being fired.
func (o *Observers[F]) Each(visit func(fn F)) {
	o.lock.Lock()
	fns := make([]F, len(o.fns))
	copy(fns, o.fns)
	o.lock.Unlock()
	for _, fn := range fns {
		visit(fn)
	}
}

// Clear drops every subscription, e.g. when the owner is destroyed.
func (o *Observers[F]) Clear() {
	o.lock.Lock()
	o.ids, o.fns = nil, nil
	o.lock.Unlock()
}
