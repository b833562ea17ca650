package rdx

import (
	"testing"

	"github.com/drpcorg/ydoc/ydoc_errors"
	"github.com/stretchr/testify/assert"
)

func TestStateVectorRoundTrip(t *testing.T) {
	sv := StateVector{1: 5, 0xb0b: 300, 1 << 40: 1, 7: 0}
	for _, enc := range []Encoding{EncodingV1, EncodingV2} {
		data := sv.Encode(enc)
		back, err := DecodeStateVector(data, enc)
		assert.Nil(t, err, enc.String())
		assert.True(t, sv.Equal(back), enc.String())
	}
	assert.Equal(t, "1-5,b0b-12c,10000000000-1", sv.String())
}

func TestStateVectorEmpty(t *testing.T) {
	for _, enc := range []Encoding{EncodingV1, EncodingV2} {
		back, err := DecodeStateVector(StateVector{}.Encode(enc), enc)
		assert.Nil(t, err)
		assert.Equal(t, 0, len(back.Clients()))
	}
}

func TestStateVectorMalformed(t *testing.T) {
	bad := [][]byte{
		{0xff},
		{'v', 3, 1},
		{'v', 7, 1, 2, 3, 4, 5, 6, 7},
		{'Q', 0, 0, 0, 0},
	}
	for _, data := range bad {
		_, err := DecodeStateVector(data, EncodingV1)
		assert.ErrorIs(t, err, ydoc_errors.ErrDecode)
	}
	badV2 := [][]byte{
		{0x80},
		{2, 1, 1},
		{1, 1, 1, 9},
		{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x01},
	}
	for _, data := range badV2 {
		_, err := DecodeStateVector(data, EncodingV2)
		assert.ErrorIs(t, err, ydoc_errors.ErrDecode)
	}
	_, err := DecodeStateVector(nil, Encoding(9))
	assert.ErrorIs(t, err, ydoc_errors.ErrDecode)
}

func TestStateVectorCovers(t *testing.T) {
	a := StateVector{1: 5, 2: 3}
	b := StateVector{1: 4}
	assert.True(t, a.Covers(b))
	assert.False(t, b.Covers(a))
	assert.True(t, a.ProgressedOver(b))
	assert.False(t, b.ProgressedOver(a))
	assert.True(t, a.Has(NewID(2, 2)))
	assert.False(t, a.Has(NewID(2, 3)))

	c := b.Clone()
	c.Merge(StateVector{1: 2, 3: 1})
	assert.Equal(t, StateVector{1: 4, 3: 1}, c)
	assert.Equal(t, StateVector{1: 4}, b)
}
