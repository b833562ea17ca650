package rdx

import (
	"fmt"
	"slices"
	"strings"

	"github.com/drpcorg/ydoc/protocol"
	"github.com/drpcorg/ydoc/ydoc_errors"
)

// StateVector maps each known replica to the number of its clocks seen,
// i.e. the next clock expected from it. A replica at state vector sv
// has every unit {client, clock} with clock < sv[client].
type StateVector map[uint64]uint64

func (sv StateVector) Get(client uint64) uint64 {
	return sv[client]
}

func (sv StateVector) Set(client, clock uint64) {
	sv[client] = clock
}

// Put raises the client's clock, returns whether it made a difference.
func (sv StateVector) Put(client, clock uint64) bool {
	pre, ok := sv[client]
	if ok && pre >= clock {
		return false
	}
	sv[client] = clock
	return true
}

// Has reports whether the unit id is covered.
func (sv StateVector) Has(id ID) bool {
	return id.Clock < sv[id.Client]
}

// Covers reports whether sv has seen everything other has.
func (sv StateVector) Covers(other StateVector) bool {
	for client, clock := range other {
		if clock > sv[client] {
			return false
		}
	}
	return true
}

// ProgressedOver reports whether sv has anything other has not seen.
func (sv StateVector) ProgressedOver(other StateVector) bool {
	return !other.Covers(sv)
}

func (sv StateVector) Merge(other StateVector) {
	for client, clock := range other {
		sv.Put(client, clock)
	}
}

func (sv StateVector) Clone() StateVector {
	ret := make(StateVector, len(sv))
	for client, clock := range sv {
		ret[client] = clock
	}
	return ret
}

// Equal compares the non-zero entries; a missing client and a zero
// clock mean the same thing.
func (sv StateVector) Equal(other StateVector) bool {
	return sv.Covers(other) && other.Covers(sv)
}

// Clients lists the clients with a non-zero clock, ascending.
func (sv StateVector) Clients() []uint64 {
	clients := make([]uint64, 0, len(sv))
	for client, clock := range sv {
		if clock > 0 {
			clients = append(clients, client)
		}
	}
	slices.Sort(clients)
	return clients
}

func (sv StateVector) String() string {
	parts := make([]string, 0, len(sv))
	for _, client := range sv.Clients() {
		parts = append(parts, ID{client, sv[client]}.String())
	}
	return strings.Join(parts, ",")
}

// Encode produces the wire form of the state vector.
func (sv StateVector) Encode(enc Encoding) []byte {
	if enc == EncodingV2 {
		return sv.encodeV2(nil)
	}
	return sv.encodeV1(nil)
}

// TLV form: one V record per client, {client, clock} zipped.
func (sv StateVector) encodeV1(into []byte) []byte {
	for _, client := range sv.Clients() {
		into = protocol.Append(into, 'V', ZipUint64Pair(client, sv[client]))
	}
	return into
}

func (sv StateVector) encodeV2(into []byte) []byte {
	w := Writer{buf: into}
	sv.WriteV2(&w)
	return w.Data()
}

// WriteV2 appends the compact form: count, then delta-coded clients
// each followed by its clock.
func (sv StateVector) WriteV2(w *Writer) {
	clients := sv.Clients()
	w.Uvarint(uint64(len(clients)))
	prev := uint64(0)
	for _, client := range clients {
		w.Uvarint(client - prev)
		w.Uvarint(sv[client])
		prev = client
	}
}

// DecodeStateVector parses an encoded state vector. Malformed input
// yields a ydoc_errors.DecodeError, never a panic.
func DecodeStateVector(data []byte, enc Encoding) (sv StateVector, err error) {
	switch enc {
	case EncodingV1:
		sv, err = decodeStateVectorV1(data)
	case EncodingV2:
		r := NewReader(data)
		sv = ReadStateVectorV2(r)
		err = r.Done()
	default:
		err = fmt.Errorf("unknown encoding %s", enc)
	}
	if err != nil {
		return nil, ydoc_errors.Decode("state vector", err)
	}
	return sv, nil
}

func decodeStateVectorV1(data []byte) (StateVector, error) {
	sv := make(StateVector)
	rest := data
	for len(rest) > 0 {
		body, more, err := protocol.TakeWary('V', rest)
		if err != nil {
			return nil, err
		}
		client, clock, err := UnzipUint64PairWary(body)
		if err != nil {
			return nil, err
		}
		sv.Put(client, clock)
		rest = more
	}
	return sv, nil
}

// ReadStateVectorV2 reads what WriteV2 wrote; failures stick to r.
func ReadStateVectorV2(r *Reader) StateVector {
	n := r.Count()
	sv := make(StateVector, n)
	client := uint64(0)
	for i := 0; i < n && r.Err() == nil; i++ {
		client += r.Uvarint()
		sv.Put(client, r.Uvarint())
	}
	if r.Err() != nil {
		return nil
	}
	return sv
}
