package rdx

import "fmt"

// Encoding selects one of the two wire formats. V1 is made of TLV
// records and is self-describing; V2 is a compact varint layout. The
// two are not interchangeable: bytes must be decoded with the encoding
// they were produced with.
type Encoding byte

const (
	EncodingV1 Encoding = 1
	EncodingV2 Encoding = 2
)

func (e Encoding) String() string {
	switch e {
	case EncodingV1:
		return "v1"
	case EncodingV2:
		return "v2"
	default:
		return fmt.Sprintf("encoding(%d)", byte(e))
	}
}

func (e Encoding) Valid() bool {
	return e == EncodingV1 || e == EncodingV2
}
