package store

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
)

// Key kinds. Every key is the kind letter, the 8-byte document hash,
// then a kind specific suffix.
const (
	kindName     = 'N' // the document name, to catch hash collisions
	kindVector   = 'V' // merged state vector of the stored updates
	kindUpdate   = 'U' // + big-endian sequence number
	kindSnapshot = 'S' // + 16-byte UUIDv7
)

const docKeyLen = 1 + 8

type docHash [8]byte

func hashOf(name string) (h docHash) {
	binary.BigEndian.PutUint64(h[:], xxhash.Sum64String(name))
	return
}

func docKey(kind byte, h docHash) []byte {
	key := make([]byte, docKeyLen, docKeyLen+16)
	key[0] = kind
	copy(key[1:], h[:])
	return key
}

func nameKey(h docHash) []byte {
	return docKey(kindName, h)
}

func vectorKey(h docHash) []byte {
	return docKey(kindVector, h)
}

func updateKey(h docHash, seq uint64) []byte {
	return binary.BigEndian.AppendUint64(docKey(kindUpdate, h), seq)
}

// updateKeySeq is the sequence number of an update key.
func updateKeySeq(key []byte) (uint64, bool) {
	if len(key) != docKeyLen+8 || key[0] != kindUpdate {
		return 0, false
	}
	return binary.BigEndian.Uint64(key[docKeyLen:]), true
}

// updateBounds spans every update key of the document.
func updateBounds(h docHash) (lower, upper []byte) {
	return updateKey(h, 0), updateKey(h, math.MaxUint64)
}

func snapshotKey(h docHash, id uuid.UUID) []byte {
	return append(docKey(kindSnapshot, h), id[:]...)
}

func snapshotBounds(h docHash) (lower, upper []byte) {
	lower = docKey(kindSnapshot, h)
	upper = append(docKey(kindSnapshot, h), bytes.Repeat([]byte{0xff}, 17)...)
	return
}

func snapshotKeyID(key []byte) (uuid.UUID, bool) {
	if len(key) != docKeyLen+16 || key[0] != kindSnapshot {
		return uuid.Nil, false
	}
	id, err := uuid.FromBytes(key[docKeyLen:])
	return id, err == nil
}
