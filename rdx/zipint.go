package rdx

import (
	"errors"
	"math"
	"math/bits"
)

var ErrBadZip = errors.New("bad packed integer")

// width is the number of bytes n takes in a packed form: 0, 1, 2, 4 or 8.
func width(n uint64) int {
	switch {
	case n == 0:
		return 0
	case n <= math.MaxUint8:
		return 1
	case n <= math.MaxUint16:
		return 2
	case n <= math.MaxUint32:
		return 4
	default:
		return 8
	}
}

// pairWidths gives the byte widths of both halves of a packed pair.
// The first half is never narrower than the second; the second is
// only omitted when the first fits in one byte.
func pairWidths(big, lil uint64) (bw, lw int) {
	bw, lw = max(width(big), width(lil)), width(lil)
	if lw == 0 && bw > 1 {
		lw = 1
	}
	return
}

func putLE(into []byte, v uint64) {
	for i := range into {
		into[i] = byte(v)
		v >>= 8
	}
}

func getLE(from []byte) (v uint64) {
	for i := len(from) - 1; i >= 0; i-- {
		v = v<<8 | uint64(from[i])
	}
	return
}

// ZipUint64Pair packs a pair of uint64 into a byte string.
// The smaller the ints, the shorter the string.
func ZipUint64Pair(big, lil uint64) []byte {
	bw, lw := pairWidths(big, lil)
	ret := make([]byte, bw+lw)
	putLE(ret[:bw], big)
	putLE(ret[bw:], lil)
	return ret
}

// UnzipUint64PairWary reverses ZipUint64Pair, rejecting lengths
// ZipUint64Pair never produces.
func UnzipUint64PairWary(buf []byte) (big, lil uint64, err error) {
	n := len(buf)
	if n == 0 {
		return 0, 0, nil
	}
	var bw int
	switch {
	case n <= 2:
		bw = 1
	case n <= 4:
		bw = 2
	case n <= 8:
		bw = 4
	case n <= 16:
		bw = 8
	default:
		return 0, 0, ErrBadZip
	}
	lw := n - bw
	if lw > bw || (lw != 0 && lw&(lw-1) != 0) {
		return 0, 0, ErrBadZip
	}
	return getLE(buf[:bw]), getLE(buf[bw:]), nil
}

// ZipUint64 packs uint64 into a shortest possible byte string
func ZipUint64(v uint64) []byte {
	n := 0
	for rest := v; rest > 0; rest >>= 8 {
		n++
	}
	ret := make([]byte, n)
	putLE(ret, v)
	return ret
}

func UnzipUint64Wary(zip []byte) (uint64, error) {
	if len(zip) > 8 {
		return 0, ErrBadZip
	}
	return getLE(zip), nil
}

func ZigZagInt64(i int64) uint64 {
	return uint64(i*2) ^ uint64(i>>63)
}

func ZagZigUint64(u uint64) int64 {
	half := u >> 1
	mask := -(u & 1)
	return int64(half ^ mask)
}

func ZipInt64(v int64) []byte {
	return ZipUint64(ZigZagInt64(v))
}

func UnzipInt64Wary(zip []byte) (int64, error) {
	u, err := UnzipUint64Wary(zip)
	return ZagZigUint64(u), err
}

func ZipFloat64(f float64) []byte {
	fb := math.Float64bits(f)
	b := bits.Reverse64(fb)
	return ZipUint64(b)
}

func UnzipFloat64Wary(zip []byte) (float64, error) {
	b, err := UnzipUint64Wary(zip)
	return math.Float64frombits(bits.Reverse64(b)), err
}
