package rdx

import (
	"encoding/binary"
	"errors"
	"math"
)

var ErrBadVarint = errors.New("bad varint")
var ErrShortBuffer = errors.New("buffer too short")
var ErrTrailingBytes = errors.New("trailing bytes")

// Writer builds the compact (v2) wire formats: LEB128 varints and
// length-prefixed byte strings, no record headers.
type Writer struct {
	buf []byte
}

func (w *Writer) Uvarint(v uint64) {
	w.buf = binary.AppendUvarint(w.buf, v)
}

func (w *Writer) Varint(v int64) {
	w.buf = binary.AppendVarint(w.buf, v)
}

func (w *Writer) Byte(b byte) {
	w.buf = append(w.buf, b)
}

func (w *Writer) Bytes(b []byte) {
	w.Uvarint(uint64(len(b)))
	w.buf = append(w.buf, b...)
}

func (w *Writer) String(s string) {
	w.Uvarint(uint64(len(s)))
	w.buf = append(w.buf, s...)
}

func (w *Writer) Float(f float64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, math.Float64bits(f))
}

func (w *Writer) Data() []byte {
	return w.buf
}

// Reader consumes what Writer produced. The first failure sticks: every
// later read returns a zero value, and Err reports the failure.
type Reader struct {
	buf []byte
	err error
}

func NewReader(data []byte) *Reader {
	return &Reader{buf: data}
}

// Fail records a failure found by the caller; the first one sticks.
func (r *Reader) Fail(err error) {
	r.fail(err)
}

func (r *Reader) fail(err error) {
	if r.err == nil {
		r.err = err
	}
	r.buf = nil
}

func (r *Reader) Uvarint() uint64 {
	if r.err != nil {
		return 0
	}
	v, n := binary.Uvarint(r.buf)
	if n <= 0 {
		r.fail(ErrBadVarint)
		return 0
	}
	r.buf = r.buf[n:]
	return v
}

func (r *Reader) Varint() int64 {
	if r.err != nil {
		return 0
	}
	v, n := binary.Varint(r.buf)
	if n <= 0 {
		r.fail(ErrBadVarint)
		return 0
	}
	r.buf = r.buf[n:]
	return v
}

func (r *Reader) Byte() byte {
	if r.err != nil {
		return 0
	}
	if len(r.buf) == 0 {
		r.fail(ErrShortBuffer)
		return 0
	}
	b := r.buf[0]
	r.buf = r.buf[1:]
	return b
}

func (r *Reader) Bytes() []byte {
	n := r.Uvarint()
	if r.err != nil {
		return nil
	}
	if n > uint64(len(r.buf)) {
		r.fail(ErrShortBuffer)
		return nil
	}
	b := r.buf[:n:n]
	r.buf = r.buf[n:]
	return b
}

func (r *Reader) String() string {
	return string(r.Bytes())
}

func (r *Reader) Float() float64 {
	if r.err != nil {
		return 0
	}
	if len(r.buf) < 8 {
		r.fail(ErrShortBuffer)
		return 0
	}
	f := math.Float64frombits(binary.LittleEndian.Uint64(r.buf[:8]))
	r.buf = r.buf[8:]
	return f
}

// Count reads an element count, refusing counts the remaining bytes
// cannot possibly hold (each element takes at least one byte).
func (r *Reader) Count() int {
	n := r.Uvarint()
	if r.err != nil {
		return 0
	}
	if n > uint64(len(r.buf)) {
		r.fail(ErrShortBuffer)
		return 0
	}
	return int(n)
}

func (r *Reader) Len() int {
	return len(r.buf)
}

func (r *Reader) Err() error {
	return r.err
}

// Done reports the sticky error, or ErrTrailingBytes if input remains.
func (r *Reader) Done() error {
	if r.err == nil && len(r.buf) > 0 {
		return ErrTrailingBytes
	}
	return r.err
}
