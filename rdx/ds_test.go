package rdx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeleteSetNormalize(t *testing.T) {
	ds := make(DeleteSet)
	ds.Add(1, 10, 2)
	ds.Add(1, 0, 3)
	ds.Add(1, 3, 2)
	ds.Add(1, 11, 5)
	ds.Add(2, 7, 0)
	ds.Normalize()
	assert.Equal(t, []DeleteRange{{0, 5}, {10, 6}}, ds[1])
	assert.Equal(t, []uint64{1}, ds.Clients())
	assert.True(t, ds.Contains(NewID(1, 4)))
	assert.False(t, ds.Contains(NewID(1, 5)))
	assert.True(t, ds.Contains(NewID(1, 15)))
	assert.False(t, ds.Contains(NewID(1, 16)))
	assert.False(t, ds.Contains(NewID(2, 7)))
	assert.Equal(t, "{1:[0,5) [a,10)}", ds.String())
}

func TestDeleteSetRoundTrip(t *testing.T) {
	ds := make(DeleteSet)
	ds.Add(1, 0, 3)
	ds.Add(1, 300, 1)
	ds.Add(0xabcdef, 1<<33, 7)
	ds.Normalize()

	v1, err := DecodeDeleteSetV1(ds.AppendV1(nil))
	assert.Nil(t, err)
	assert.True(t, ds.Equal(v1))

	w := Writer{}
	ds.WriteV2(&w)
	r := NewReader(w.Data())
	v2 := ReadDeleteSetV2(r)
	assert.Nil(t, r.Done())
	assert.True(t, ds.Equal(v2))

	other := ds.Clone()
	other.Add(1, 3, 1)
	other.Normalize()
	assert.False(t, ds.Equal(other))
}

func TestDeleteSetMalformed(t *testing.T) {
	_, err := DecodeDeleteSetV1([]byte{'c', 2, 'x'})
	assert.NotNil(t, err)
	_, err = DecodeDeleteSetV1([]byte{'c', 3, '1', 1, 'z'})
	assert.NotNil(t, err)

	r := NewReader([]byte{1, 1, 5, 0})
	assert.Nil(t, ReadDeleteSetV2(r))
	assert.NotNil(t, r.Err())
}
