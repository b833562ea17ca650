package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObserversOrder(t *testing.T) {
	var obs Observers[func(int)]
	var got []int
	a := obs.Add(func(i int) { got = append(got, i) })
	b := obs.Add(func(i int) { got = append(got, i*10) })
	assert.NotEqual(t, a, b)
	assert.Equal(t, 2, obs.Len())

	obs.Each(func(fn func(int)) { fn(1) })
	assert.Equal(t, []int{1, 10}, got)

	assert.True(t, obs.Remove(a))
	assert.False(t, obs.Remove(a))
	assert.False(t, obs.Remove(SubscriptionID(999)))

	got = nil
	obs.Each(func(fn func(int)) { fn(2) })
	assert.Equal(t, []int{20}, got)

	c := obs.Add(func(int) {})
	assert.Greater(t, c, b)
	obs.Clear()
	assert.Equal(t, 0, obs.Len())
}

func TestObserversRemoveWhileFiring(t *testing.T) {
	var obs Observers[func()]
	calls := 0
	var id SubscriptionID
	id = obs.Add(func() {
		calls++
		obs.Remove(id)
	})
	obs.Each(func(fn func()) { fn() })
	obs.Each(func(fn func()) { fn() })
	assert.Equal(t, 1, calls)
}
