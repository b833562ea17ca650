package ydoc

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"slices"

	"github.com/drpcorg/ydoc/protocol"
	"github.com/drpcorg/ydoc/rdx"
	"github.com/drpcorg/ydoc/ydoc_errors"
)

// Value is anything a document can store as an array element, a map
// value, a text embed or a formatting attribute:
// nil, bool, int64, float64, string, []byte, []any or map[string]any.
// Other Go numeric types are accepted and normalized on the way in.
type Value = any

// Attrs is a set of formatting attributes. A nil value clears the key.
type Attrs map[string]Value

const maxValueNesting = 64

var errValueNesting = errors.New("value nesting too deep")

// NormalizeValue converts v into the canonical representation stored
// by the document, or fails for unsupported types.
func NormalizeValue(v any) (Value, error) {
	return normalizeValue(v, 0)
}

func normalizeValue(v any, depth int) (Value, error) {
	if depth > maxValueNesting {
		return nil, ydoc_errors.Unsupported("value nesting deeper than %d", maxValueNesting)
	}
	switch t := v.(type) {
	case nil, bool, string, int64, float64:
		return t, nil
	case int:
		return int64(t), nil
	case int8:
		return int64(t), nil
	case int16:
		return int64(t), nil
	case int32:
		return int64(t), nil
	case uint8:
		return int64(t), nil
	case uint16:
		return int64(t), nil
	case uint32:
		return int64(t), nil
	case uint:
		if uint64(t) > math.MaxInt64 {
			return nil, ydoc_errors.Unsupported("integer %d overflows int64", t)
		}
		return int64(t), nil
	case uint64:
		if t > math.MaxInt64 {
			return nil, ydoc_errors.Unsupported("integer %d overflows int64", t)
		}
		return int64(t), nil
	case float32:
		return float64(t), nil
	case []byte:
		return slices.Clone(t), nil
	case []string:
		ret := make([]any, len(t))
		for i, s := range t {
			ret[i] = s
		}
		return ret, nil
	case []any:
		ret := make([]any, len(t))
		for i, e := range t {
			n, err := normalizeValue(e, depth+1)
			if err != nil {
				return nil, err
			}
			ret[i] = n
		}
		return ret, nil
	case map[string]string:
		ret := make(map[string]any, len(t))
		for k, e := range t {
			ret[k] = e
		}
		return ret, nil
	case map[string]any:
		ret := make(map[string]any, len(t))
		for k, e := range t {
			n, err := normalizeValue(e, depth+1)
			if err != nil {
				return nil, err
			}
			ret[k] = n
		}
		return ret, nil
	case Attrs:
		return normalizeValue(map[string]any(t), depth)
	default:
		return nil, ydoc_errors.Unsupported("values of type %T cannot be stored", v)
	}
}

func normalizeAttrs(attrs Attrs) (Attrs, error) {
	ret := make(Attrs, len(attrs))
	for k, v := range attrs {
		n, err := NormalizeValue(v)
		if err != nil {
			return nil, err
		}
		ret[k] = n
	}
	return ret, nil
}

func equalValues(a, b Value) bool {
	return reflect.DeepEqual(a, b)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Value records of the v1 format, one letter per type.
const (
	valNull   = 'N'
	valBool   = 'B'
	valInt    = 'I'
	valFloat  = 'F'
	valString = 'S'
	valBytes  = 'D'
	valArray  = 'A'
	valMap    = 'M'
)

func appendValueV1(into []byte, v Value) []byte {
	switch t := v.(type) {
	case nil:
		return protocol.Append(into, valNull)
	case bool:
		b := byte(0)
		if t {
			b = 1
		}
		return protocol.Append(into, valBool, []byte{b})
	case int64:
		return protocol.Append(into, valInt, rdx.ZipInt64(t))
	case float64:
		return protocol.Append(into, valFloat, rdx.ZipFloat64(t))
	case string:
		return protocol.Append(into, valString, []byte(t))
	case []byte:
		return protocol.Append(into, valBytes, t)
	case []any:
		bm, buf := protocol.OpenHeader(into, valArray)
		for _, e := range t {
			buf = appendValueV1(buf, e)
		}
		protocol.CloseHeader(buf, bm)
		return buf
	case map[string]any:
		bm, buf := protocol.OpenHeader(into, valMap)
		for _, k := range sortedKeys(t) {
			buf = protocol.Append(buf, valString, []byte(k))
			buf = appendValueV1(buf, t[k])
		}
		protocol.CloseHeader(buf, bm)
		return buf
	default:
		panic(fmt.Sprintf("ydoc: unnormalized value of type %T", v))
	}
}

// readValueV1 takes one value record from untrusted data.
func readValueV1(data []byte, depth int) (v Value, rest []byte, err error) {
	if depth > maxValueNesting {
		return nil, nil, errValueNesting
	}
	lit, body, rest, err := protocol.TakeAnyWary(data)
	if err != nil {
		return nil, nil, err
	}
	switch lit {
	case valNull:
		if len(body) != 0 {
			return nil, nil, protocol.ErrBadRecord
		}
		return nil, rest, nil
	case valBool:
		if len(body) != 1 || body[0] > 1 {
			return nil, nil, protocol.ErrBadRecord
		}
		return body[0] == 1, rest, nil
	case valInt:
		i, err := rdx.UnzipInt64Wary(body)
		return i, rest, err
	case valFloat:
		f, err := rdx.UnzipFloat64Wary(body)
		return f, rest, err
	case valString:
		return string(body), rest, nil
	case valBytes:
		return slices.Clone(body), rest, nil
	case valArray:
		arr := []any{}
		for len(body) > 0 {
			var e Value
			e, body, err = readValueV1(body, depth+1)
			if err != nil {
				return nil, nil, err
			}
			arr = append(arr, e)
		}
		return arr, rest, nil
	case valMap:
		m := map[string]any{}
		for len(body) > 0 {
			var key []byte
			key, body, err = protocol.TakeWary(valString, body)
			if err != nil {
				return nil, nil, err
			}
			var e Value
			e, body, err = readValueV1(body, depth+1)
			if err != nil {
				return nil, nil, err
			}
			m[string(key)] = e
		}
		return m, rest, nil
	default:
		return nil, nil, protocol.ErrBadRecord
	}
}

// Value tags of the v2 format.
const (
	tagNull byte = iota
	tagFalse
	tagTrue
	tagInt
	tagFloat
	tagString
	tagBytes
	tagArray
	tagMap
)

func writeValueV2(w *rdx.Writer, v Value) {
	switch t := v.(type) {
	case nil:
		w.Byte(tagNull)
	case bool:
		if t {
			w.Byte(tagTrue)
		} else {
			w.Byte(tagFalse)
		}
	case int64:
		w.Byte(tagInt)
		w.Varint(t)
	case float64:
		w.Byte(tagFloat)
		w.Float(t)
	case string:
		w.Byte(tagString)
		w.String(t)
	case []byte:
		w.Byte(tagBytes)
		w.Bytes(t)
	case []any:
		w.Byte(tagArray)
		w.Uvarint(uint64(len(t)))
		for _, e := range t {
			writeValueV2(w, e)
		}
	case map[string]any:
		w.Byte(tagMap)
		w.Uvarint(uint64(len(t)))
		for _, k := range sortedKeys(t) {
			w.String(k)
			writeValueV2(w, t[k])
		}
	default:
		panic(fmt.Sprintf("ydoc: unnormalized value of type %T", v))
	}
}

var errBadValueTag = errors.New("bad value tag")

// readValueV2 reads one value; failures stick to r.
func readValueV2(r *rdx.Reader, depth int) Value {
	if depth > maxValueNesting {
		r.Fail(errValueNesting)
		return nil
	}
	switch tag := r.Byte(); tag {
	case tagNull:
		return nil
	case tagFalse:
		return false
	case tagTrue:
		return true
	case tagInt:
		return r.Varint()
	case tagFloat:
		return r.Float()
	case tagString:
		return r.String()
	case tagBytes:
		return slices.Clone(r.Bytes())
	case tagArray:
		n := r.Count()
		arr := make([]any, 0, n)
		for i := 0; i < n && r.Err() == nil; i++ {
			arr = append(arr, readValueV2(r, depth+1))
		}
		return arr
	case tagMap:
		n := r.Count()
		m := make(map[string]any, n)
		for i := 0; i < n && r.Err() == nil; i++ {
			k := r.String()
			m[k] = readValueV2(r, depth+1)
		}
		return m
	default:
		r.Fail(errBadValueTag)
		return nil
	}
}
