// Record format is based on ToyTLV (MIT licence) written by Victor Grishchenko in 2024
// Original project: https://github.com/learn-decentralized-systems/toytlv

/*
Package protocol implements the TLV (Type-Length-Value) records used by the
v1 ("self-describing") wire formats of updates, state vectors and snapshots.

# Record format

A record header takes one of three shapes, picked by body size:

 1. Tiny (1 byte): ['0' + body_length], bodies of 0-9 bytes written with a
    lowercase type. The type letter is not preserved.
 2. Short (2 bytes): [lowercase_type, body_length], bodies up to 255 bytes.
 3. Long (5 bytes): [uppercase_type, 4-byte little-endian length].

Record types are the letters A-Z.

# Parsing

Every decoder reads with TakeWary and TakeAnyWary: input may come from
any peer, so they never panic and report ErrIncomplete or ErrBadRecord
instead. Writers either Append a record whose body is known, or bracket
a body of unknown length with OpenHeader and CloseHeader.
*/
package protocol

import (
	"encoding/binary"
	"errors"
)

const CaseBit uint8 = 'a' - 'A'

var (
	ErrIncomplete = errors.New("incomplete data")
	ErrBadRecord  = errors.New("bad TLV record format")
)

// ProbeHeader reads a record header.
//
// Returns:
//   - lit: record type ('A'-'Z', '0' for tiny, '-' for garbage, 0 for incomplete)
//   - hdrlen: header length (1, 2, or 5 bytes)
//   - bodylen: body length in bytes
func ProbeHeader(data []byte) (lit byte, hdrlen, bodylen int) {
	if len(data) == 0 {
		return 0, 0, 0
	}
	dlit := data[0]
	if dlit >= '0' && dlit <= '9' { // tiny
		lit = '0'
		bodylen = int(dlit - '0')
		hdrlen = 1
	} else if dlit >= 'a' && dlit <= 'z' { // short
		if len(data) < 2 {
			return
		}
		lit = dlit - CaseBit
		hdrlen = 2
		bodylen = int(data[1])
	} else if dlit >= 'A' && dlit <= 'Z' { // long
		if len(data) < 5 {
			return
		}
		bl := binary.LittleEndian.Uint32(data[1:5])
		if bl > 0x7fffffff {
			lit = '-'
			return
		}
		lit = dlit
		bodylen = int(bl)
		hdrlen = 5
	} else {
		lit = '-'
	}
	return
}

// AppendHeader appends a record header for a body of the given length.
// A lowercase lit allows the tiny form.
func AppendHeader(into []byte, lit byte, bodylen int) (ret []byte) {
	biglit := lit &^ CaseBit
	if biglit < 'A' || biglit > 'Z' {
		panic("TLV record type is A..Z")
	}
	if bodylen < 10 && (lit&CaseBit) != 0 {
		ret = append(into, byte('0'+bodylen))
	} else if bodylen > 0xff {
		if bodylen > 0x7fffffff {
			panic("oversized TLV record")
		}
		ret = append(into, biglit)
		ret = binary.LittleEndian.AppendUint32(ret, uint32(bodylen))
	} else {
		ret = append(into, lit|CaseBit, byte(bodylen))
	}
	return ret
}

// TakeWary extracts a record of the given type from untrusted data.
// Tiny records match any type.
func TakeWary(lit byte, data []byte) (body, rest []byte, err error) {
	flit, hdrlen, bodylen := ProbeHeader(data)
	if flit == '-' {
		return nil, nil, ErrBadRecord
	}
	if flit == 0 || hdrlen+bodylen > len(data) {
		return nil, data, ErrIncomplete
	}
	if flit != lit && flit != '0' {
		return nil, nil, ErrBadRecord
	}
	body = data[hdrlen : hdrlen+bodylen]
	rest = data[hdrlen+bodylen:]
	return
}

// TakeAnyWary extracts the next record of any type from untrusted data.
// A tiny record reports lit '0'.
func TakeAnyWary(data []byte) (lit byte, body, rest []byte, err error) {
	flit, hdrlen, bodylen := ProbeHeader(data)
	switch {
	case flit == '-':
		return 0, nil, nil, ErrBadRecord
	case flit == 0 || hdrlen+bodylen > len(data):
		return 0, nil, data, ErrIncomplete
	}
	return flit, data[hdrlen : hdrlen+bodylen], data[hdrlen+bodylen:], nil
}

func totalLen(inputs [][]byte) (sum int) {
	for _, input := range inputs {
		sum += len(input)
	}
	return
}

// Append writes a complete record into the buffer.
func Append(into []byte, lit byte, body ...[]byte) (res []byte) {
	total := totalLen(body)
	res = AppendHeader(into, lit, total)
	for _, b := range body {
		res = append(res, b...)
	}
	return res
}

// OpenHeader starts a record whose body length is not known yet.
// It always uses the long form. Pair with CloseHeader.
//
//	bookmark, buf := OpenHeader(buf, 'U')
//	buf = append(buf, body...)
//	CloseHeader(buf, bookmark)
func OpenHeader(buf []byte, lit byte) (bookmark int, res []byte) {
	lit &= ^CaseBit
	if lit < 'A' || lit > 'Z' {
		panic("TLV liters are uppercase A-Z")
	}
	res = append(buf, lit, 0, 0, 0, 0)
	return len(res), res
}

// CloseHeader writes the body length of a record opened with OpenHeader.
func CloseHeader(buf []byte, bookmark int) {
	if bookmark < 5 || len(buf) < bookmark {
		panic("check the API docs")
	}
	binary.LittleEndian.PutUint32(buf[bookmark-4:bookmark], uint32(len(buf)-bookmark))
}
