package prosemirror

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"regexp"
)

var markHash = regexp.MustCompile(`^(.+)(--[a-zA-Z0-9+/=]{8})$`)

// EncodeMarkName names a text attribute after a mark. Marks with
// attributes get a hash suffix so that overlapping marks of one type
// with different attributes stay apart: type--XXXXXXXX, where the
// suffix is the SHA-256 of the attributes as JSON, XOR-folded to six
// bytes and base64-encoded.
func EncodeMarkName(markType string, attrs map[string]any) string {
	if len(attrs) == 0 {
		return markType
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(attrs); err != nil {
		return markType
	}
	digest := sha256.Sum256(bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}))
	const n = 6
	for i := n; i < len(digest); i++ {
		digest[i%n] ^= digest[i]
	}
	return markType + "--" + base64.StdEncoding.EncodeToString(digest[:n])
}

// DecodeMarkName strips the hash suffix EncodeMarkName may have added.
func DecodeMarkName(encoded string) string {
	if m := markHash.FindStringSubmatch(encoded); m != nil {
		return m[1]
	}
	return encoded
}
