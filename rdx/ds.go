package rdx

import (
	"fmt"
	"slices"

	"github.com/drpcorg/ydoc/protocol"
)

// DeleteRange covers the clocks [Clock, Clock+Len) of one client.
type DeleteRange struct {
	Clock uint64
	Len   uint64
}

func (r DeleteRange) End() uint64 {
	return r.Clock + r.Len
}

// DeleteSet lists the deleted units of every client as clock ranges.
// After Normalize the ranges of a client are sorted and disjoint.
type DeleteSet map[uint64][]DeleteRange

func (ds DeleteSet) Add(client, clock, length uint64) {
	if length == 0 {
		return
	}
	ds[client] = append(ds[client], DeleteRange{clock, length})
}

// Normalize sorts the ranges and merges the adjacent or overlapping ones.
func (ds DeleteSet) Normalize() {
	for client, ranges := range ds {
		if len(ranges) == 0 {
			delete(ds, client)
			continue
		}
		slices.SortFunc(ranges, func(a, b DeleteRange) int {
			switch {
			case a.Clock < b.Clock:
				return -1
			case a.Clock > b.Clock:
				return 1
			}
			return 0
		})
		merged := ranges[:1]
		for _, r := range ranges[1:] {
			last := &merged[len(merged)-1]
			if r.Clock <= last.End() {
				if r.End() > last.End() {
					last.Len = r.End() - last.Clock
				}
			} else {
				merged = append(merged, r)
			}
		}
		ds[client] = merged
	}
}

// Contains checks a normalized set for the unit id.
func (ds DeleteSet) Contains(id ID) bool {
	ranges := ds[id.Client]
	i, _ := slices.BinarySearchFunc(ranges, id.Clock, func(r DeleteRange, clock uint64) int {
		switch {
		case r.End() <= clock:
			return -1
		case r.Clock > clock:
			return 1
		}
		return 0
	})
	return i < len(ranges) && ranges[i].Clock <= id.Clock && id.Clock < ranges[i].End()
}

func (ds DeleteSet) Merge(other DeleteSet) {
	for client, ranges := range other {
		ds[client] = append(ds[client], ranges...)
	}
	ds.Normalize()
}

func (ds DeleteSet) Clone() DeleteSet {
	ret := make(DeleteSet, len(ds))
	for client, ranges := range ds {
		ret[client] = slices.Clone(ranges)
	}
	return ret
}

func (ds DeleteSet) IsEmpty() bool {
	for _, ranges := range ds {
		if len(ranges) > 0 {
			return false
		}
	}
	return true
}

func (ds DeleteSet) Clients() []uint64 {
	clients := make([]uint64, 0, len(ds))
	for client, ranges := range ds {
		if len(ranges) > 0 {
			clients = append(clients, client)
		}
	}
	slices.Sort(clients)
	return clients
}

// Equal compares two normalized sets.
func (ds DeleteSet) Equal(other DeleteSet) bool {
	a, b := ds.Clients(), other.Clients()
	if !slices.Equal(a, b) {
		return false
	}
	for _, client := range a {
		if !slices.Equal(ds[client], other[client]) {
			return false
		}
	}
	return true
}

func (ds DeleteSet) String() string {
	ret := []byte{'{'}
	for i, client := range ds.Clients() {
		if i > 0 {
			ret = append(ret, ',')
		}
		ret = fmt.Appendf(ret, "%x:", client)
		for j, r := range ds[client] {
			if j > 0 {
				ret = append(ret, ' ')
			}
			ret = fmt.Appendf(ret, "[%x,%x)", r.Clock, r.End())
		}
	}
	return string(append(ret, '}'))
}

// AppendV1 writes one C record per client: a tiny I record with the
// client, then an R record per range.
func (ds DeleteSet) AppendV1(into []byte) []byte {
	for _, client := range ds.Clients() {
		bm, buf := protocol.OpenHeader(into, 'C')
		buf = protocol.Append(buf, 'i', ZipUint64(client))
		for _, r := range ds[client] {
			buf = protocol.Append(buf, 'R', ZipUint64Pair(r.Clock, r.Len))
		}
		protocol.CloseHeader(buf, bm)
		into = buf
	}
	return into
}

// DecodeDeleteSetV1 parses the body written by AppendV1.
func DecodeDeleteSetV1(data []byte) (DeleteSet, error) {
	ds := make(DeleteSet)
	rest := data
	for len(rest) > 0 {
		body, more, err := protocol.TakeWary('C', rest)
		if err != nil {
			return nil, err
		}
		rest = more
		zc, ranges, err := protocol.TakeWary('I', body)
		if err != nil {
			return nil, err
		}
		client, err := UnzipUint64Wary(zc)
		if err != nil {
			return nil, err
		}
		for len(ranges) > 0 {
			var zr []byte
			zr, ranges, err = protocol.TakeWary('R', ranges)
			if err != nil {
				return nil, err
			}
			clock, length, err := UnzipUint64PairWary(zr)
			if err != nil {
				return nil, err
			}
			if clock+length < clock {
				return nil, ErrBadZip
			}
			ds.Add(client, clock, length)
		}
	}
	ds.Normalize()
	return ds, nil
}

// WriteV2 writes clients delta-coded, each with its ranges as
// (gap from previous end, length) pairs.
func (ds DeleteSet) WriteV2(w *Writer) {
	clients := ds.Clients()
	w.Uvarint(uint64(len(clients)))
	prevClient := uint64(0)
	for _, client := range clients {
		w.Uvarint(client - prevClient)
		prevClient = client
		ranges := ds[client]
		w.Uvarint(uint64(len(ranges)))
		end := uint64(0)
		for _, r := range ranges {
			w.Uvarint(r.Clock - end)
			w.Uvarint(r.Len)
			end = r.End()
		}
	}
}

// ReadDeleteSetV2 reads what WriteV2 wrote; failures stick to r.
func ReadDeleteSetV2(r *Reader) DeleteSet {
	ds := make(DeleteSet)
	n := r.Count()
	client := uint64(0)
	for i := 0; i < n && r.Err() == nil; i++ {
		client += r.Uvarint()
		m := r.Count()
		end := uint64(0)
		for j := 0; j < m && r.Err() == nil; j++ {
			clock := end + r.Uvarint()
			length := r.Uvarint()
			if clock < end || clock+length < clock {
				r.fail(ErrBadZip)
				break
			}
			ds.Add(client, clock, length)
			end = clock + length
		}
	}
	if r.Err() != nil {
		return nil
	}
	ds.Normalize()
	return ds
}
