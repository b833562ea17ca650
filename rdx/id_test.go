package rdx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIDZip(t *testing.T) {
	ids := []ID{
		{0, 0},
		{1, 0},
		{0, 1},
		{0xfa3, 0x57},
		{0xfffff, 0xffffffff},
		{^uint64(0), 3},
		{5, ^uint64(0)},
	}
	for _, id := range ids {
		back, err := IDFromZipBytes(id.ZipBytes())
		assert.Nil(t, err)
		assert.Equal(t, id, back)
	}

	_, err := IDFromZipBytes([]byte{1, 2, 3, 4, 5, 6, 7})
	assert.NotNil(t, err)
}

func TestIDString(t *testing.T) {
	id := NewID(0x8e, 0x82f0)
	assert.Equal(t, "8e-82f0", id.String())
	assert.Equal(t, NewID(1, 5), NewID(1, 2).Plus(3))
}

func TestZipInts(t *testing.T) {
	for _, i := range []int64{0, 1, -1, 127, -128, 1 << 40, -(1 << 62)} {
		back, err := UnzipInt64Wary(ZipInt64(i))
		assert.Nil(t, err)
		assert.Equal(t, i, back)
	}
	for _, f := range []float64{0, 1.5, -3.25, 1e300} {
		back, err := UnzipFloat64Wary(ZipFloat64(f))
		assert.Nil(t, err)
		assert.Equal(t, f, back)
	}
	_, err := UnzipUint64Wary(make([]byte, 9))
	assert.ErrorIs(t, err, ErrBadZip)
}
