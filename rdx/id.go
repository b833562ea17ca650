package rdx

import (
	"strconv"

	"github.com/drpcorg/ydoc/ydoc_errors"
)

/*
ID names one unit of document content: the replica that produced it and
the position of that unit in the replica's own log.

A replica's clock counts units, not operations: inserting "hello" takes
five clocks, so every UTF-16 code unit, array element and format marker is
individually addressable. This is *log time*, not Lamport time.
*/
type ID struct {
	Client uint64
	Clock  uint64
}

func NewID(client, clock uint64) ID {
	return ID{Client: client, Clock: clock}
}

// Plus returns the id of the unit off positions further in the same log.
func (id ID) Plus(off uint64) ID {
	return ID{id.Client, id.Clock + off}
}

func (id ID) ZipBytes() []byte {
	return ZipUint64Pair(id.Client, id.Clock)
}

// IDFromZipBytes parses a packed id from untrusted bytes.
func IDFromZipBytes(zip []byte) (ID, error) {
	client, clock, err := UnzipUint64PairWary(zip)
	if err != nil {
		return ID{}, ydoc_errors.Decode("id", err)
	}
	return ID{client, clock}, nil
}

func (id ID) String() string {
	var buf [40]byte
	b := strconv.AppendUint(buf[:0], id.Client, 16)
	b = append(b, '-')
	b = strconv.AppendUint(b, id.Clock, 16)
	return string(b)
}
