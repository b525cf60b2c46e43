// Package bencode implements the canonical bencoding of data as defined in
// BEP 3.
//
// Decoding is strict: input that is not in canonical form (zero-padded
// numbers, duplicate dictionary keys, trailing bytes) is rejected with a
// *ParseError naming the offset where the offending construct begins.
// Encoding always produces canonical output, with dictionary keys sorted by
// their raw bytes.
package bencode

import (
	"bytes"
	"math/big"
	"sort"
	"strconv"
	"strings"
)

// Kind identifies which of the four bencode entities a Value holds.
type Kind uint8

// The kinds of bencode entities. String is the zero Kind so that the zero
// Value is the empty byte string.
const (
	StringKind Kind = iota
	IntegerKind
	ListKind
	DictKind
)

// String implements fmt.Stringer for Kind.
func (k Kind) String() string {
	switch k {
	case StringKind:
		return "string"
	case IntegerKind:
		return "integer"
	case ListKind:
		return "list"
	case DictKind:
		return "dictionary"
	default:
		return "unknown"
	}
}

// Value is an immutable bencode entity.
//
// Values are built by the constructors in this package or by Decode. None of
// the constructors or accessors share memory with the caller, so a Value can
// be used from multiple goroutines without coordination.
type Value struct {
	kind Kind
	num  *big.Int
	str  []byte
	list []Value
	dict map[string]Value
}

// Int returns an Integer Value.
func Int(i int64) Value {
	return Value{kind: IntegerKind, num: big.NewInt(i)}
}

// Uint returns an Integer Value.
func Uint(u uint64) Value {
	return Value{kind: IntegerKind, num: new(big.Int).SetUint64(u)}
}

// BigInt returns an Integer Value holding a copy of i. A nil i is treated as
// zero.
func BigInt(i *big.Int) Value {
	n := new(big.Int)
	if i != nil {
		n.Set(i)
	}
	return Value{kind: IntegerKind, num: n}
}

// String returns a ByteString Value holding the bytes of s.
func String(s string) Value {
	return Value{kind: StringKind, str: []byte(s)}
}

// Bytes returns a ByteString Value holding a copy of b.
func Bytes(b []byte) Value {
	return Value{kind: StringKind, str: append([]byte(nil), b...)}
}

// List returns a List Value holding the provided elements in order.
func List(elems ...Value) Value {
	return Value{kind: ListKind, list: append([]Value(nil), elems...)}
}

// Dict returns a Dictionary Value holding a copy of m.
//
// The order in which keys were inserted into m is irrelevant: encoding always
// emits them in ascending byte order.
func Dict(m map[string]Value) Value {
	d := make(map[string]Value, len(m))
	for k, v := range m {
		d[k] = v
	}
	return Value{kind: DictKind, dict: d}
}

// Kind returns the kind of entity held by v.
func (v Value) Kind() Kind { return v.kind }

// Int returns a copy of the integer held by v.
func (v Value) Int() (*big.Int, bool) {
	if v.kind != IntegerKind {
		return nil, false
	}
	return new(big.Int).Set(v.num), true
}

// Int64 returns the integer held by v if it is an Integer that fits in an
// int64.
func (v Value) Int64() (int64, bool) {
	if v.kind != IntegerKind || !v.num.IsInt64() {
		return 0, false
	}
	return v.num.Int64(), true
}

// Bytes returns a copy of the content of a ByteString.
func (v Value) Bytes() ([]byte, bool) {
	if v.kind != StringKind {
		return nil, false
	}
	return append([]byte{}, v.str...), true
}

// Str returns the content of a ByteString as a Go string.
func (v Value) Str() (string, bool) {
	if v.kind != StringKind {
		return "", false
	}
	return string(v.str), true
}

// List returns a copy of the elements of a List.
func (v Value) List() ([]Value, bool) {
	if v.kind != ListKind {
		return nil, false
	}
	return append([]Value{}, v.list...), true
}

// Dict returns a copy of the entries of a Dictionary.
func (v Value) Dict() (map[string]Value, bool) {
	if v.kind != DictKind {
		return nil, false
	}
	d := make(map[string]Value, len(v.dict))
	for k, e := range v.dict {
		d[k] = e
	}
	return d, true
}

// Get looks up key in a Dictionary.
func (v Value) Get(key string) (Value, bool) {
	if v.kind != DictKind {
		return Value{}, false
	}
	e, ok := v.dict[key]
	return e, ok
}

// Keys returns the keys of a Dictionary in ascending byte order, which is the
// order they are encoded in. It returns nil for any other kind.
func (v Value) Keys() []string {
	if v.kind != DictKind {
		return nil
	}
	return sortedKeys(v.dict)
}

// Len returns the byte length of a ByteString, the number of elements of a
// List or the number of entries of a Dictionary. It returns 0 for Integers.
func (v Value) Len() int {
	switch v.kind {
	case StringKind:
		return len(v.str)
	case ListKind:
		return len(v.list)
	case DictKind:
		return len(v.dict)
	default:
		return 0
	}
}

// Equal reports whether v and o hold structurally equal entities.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}

	switch v.kind {
	case IntegerKind:
		return v.num.Cmp(o.num) == 0
	case ListKind:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	case DictKind:
		if len(v.dict) != len(o.dict) {
			return false
		}
		for k, e := range v.dict {
			oe, ok := o.dict[k]
			if !ok || !e.Equal(oe) {
				return false
			}
		}
		return true
	default:
		return bytes.Equal(v.str, o.str)
	}
}

// String renders v for debugging. Byte strings are quoted with Go escaping,
// dictionaries are printed in encoding order.
func (v Value) String() string {
	var sb strings.Builder
	v.format(&sb)
	return sb.String()
}

func (v Value) format(sb *strings.Builder) {
	switch v.kind {
	case IntegerKind:
		sb.WriteString(v.num.String())
	case ListKind:
		sb.WriteByte('[')
		for i, e := range v.list {
			if i > 0 {
				sb.WriteString(", ")
			}
			e.format(sb)
		}
		sb.WriteByte(']')
	case DictKind:
		sb.WriteByte('{')
		for i, k := range sortedKeys(v.dict) {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(strconv.Quote(k))
			sb.WriteString(": ")
			v.dict[k].format(sb)
		}
		sb.WriteByte('}')
	default:
		sb.WriteString(strconv.Quote(string(v.str)))
	}
}

func sortedKeys(m map[string]Value) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
