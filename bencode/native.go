package bencode

import (
	"math/big"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Marshaler is the interface implemented by objects that can marshal
// themselves into bencode.
//
// The returned bytes are decoded strictly, so a Marshaler cannot smuggle
// non-canonical data into an encoding.
type Marshaler interface {
	MarshalBencode() ([]byte, error)
}

// Valuer is the interface implemented by objects that can convert
// themselves into a Value.
type Valuer interface {
	BencodeValue() (Value, error)
}

// TableEntry is a single key/value pair of a Table. Key must be an int or a
// string.
type TableEntry struct {
	Key   interface{}
	Value interface{}
}

// Table is an ordered keyed container that may represent either a list or a
// dictionary.
//
// A Table is a List when it is empty or when its keys are exactly the ints
// 0, 1, ..., n-1 in that order. Any other Table is a Dictionary, with int
// keys rendered in decimal.
type Table []TableEntry

// IsList reports whether t is encoded as a List.
func (t Table) IsList() bool {
	for i, e := range t {
		if k, ok := e.Key.(int); !ok || k != i {
			return false
		}
	}
	return true
}

// Marshal returns the bencoding of the Go value v.
func Marshal(v interface{}) ([]byte, error) {
	val, err := ValueOf(v)
	if err != nil {
		return nil, err
	}
	return Encode(val), nil
}

// Unmarshal decodes buf into plain Go values: map[string]interface{} for
// dictionaries, []interface{} for lists, string for byte strings and int64
// for integers, or *big.Int for integers that do not fit in an int64.
func Unmarshal(buf []byte) (interface{}, error) {
	v, err := Decode(buf)
	if err != nil {
		return nil, err
	}
	return Native(v), nil
}

// Native converts v into plain Go values as described by Unmarshal.
func Native(v Value) interface{} {
	switch v.kind {
	case IntegerKind:
		if v.num.IsInt64() {
			return v.num.Int64()
		}
		return new(big.Int).Set(v.num)
	case ListKind:
		list := make([]interface{}, len(v.list))
		for i, e := range v.list {
			list[i] = Native(e)
		}
		return list
	case DictKind:
		dict := make(map[string]interface{}, len(v.dict))
		for k, e := range v.dict {
			dict[k] = Native(e)
		}
		return dict
	default:
		return string(v.str)
	}
}

var (
	valueType     = reflect.TypeOf(Value{})
	valuerType    = reflect.TypeOf((*Valuer)(nil)).Elem()
	marshalerType = reflect.TypeOf((*Marshaler)(nil)).Elem()
)

// ValueOf converts a Go value into a Value.
//
// Common types are handled with a type switch. Other maps with string keys,
// slices, arrays, pointers and structs are handled through reflection;
// struct fields are named by their `bencode` tag or, without one, by their
// Go name. A tag of "-" skips the field and an ",omitempty" option skips
// zero values.
func ValueOf(data interface{}) (Value, error) {
	if _, ok := data.(*big.Int); !ok && isNilPointer(data) {
		return Value{}, &UnsupportedTypeError{Type: reflect.TypeOf(data)}
	}

	switch v := data.(type) {
	case Value:
		return v, nil

	case Valuer:
		return v.BencodeValue()

	case Marshaler:
		bencoded, err := v.MarshalBencode()
		if err != nil {
			return Value{}, err
		}
		return Decode(bencoded)

	case []byte:
		return Bytes(v), nil

	case string:
		return String(v), nil

	case []string:
		list := make([]Value, len(v))
		for i, s := range v {
			list[i] = String(s)
		}
		return Value{kind: ListKind, list: list}, nil

	case int:
		return Int(int64(v)), nil

	case int8:
		return Int(int64(v)), nil

	case int16:
		return Int(int64(v)), nil

	case int32:
		return Int(int64(v)), nil

	case int64:
		return Int(v), nil

	case uint:
		return Uint(uint64(v)), nil

	case uint8:
		return Uint(uint64(v)), nil

	case uint16:
		return Uint(uint64(v)), nil

	case uint32:
		return Uint(uint64(v)), nil

	case uint64:
		return Uint(v), nil

	case *big.Int:
		return BigInt(v), nil

	case big.Int:
		return BigInt(&v), nil

	case bool:
		if v {
			return Int(1), nil
		}
		return Int(0), nil

	case time.Duration: // Assume seconds
		return Int(int64(v / time.Second)), nil

	case map[string]interface{}:
		dict := make(map[string]Value, len(v))
		for key, val := range v {
			e, err := ValueOf(val)
			if err != nil {
				return Value{}, err
			}
			dict[key] = e
		}
		return Value{kind: DictKind, dict: dict}, nil

	case []interface{}:
		return listOf(len(v), func(i int) interface{} { return v[i] })

	case Table:
		return tableOf(v)

	case nil:
		return Value{}, &UnsupportedTypeError{}
	}

	return reflectValueOf(reflect.ValueOf(data))
}

func isNilPointer(data interface{}) bool {
	rv := reflect.ValueOf(data)
	return rv.Kind() == reflect.Ptr && rv.IsNil()
}

// elemValueOf converts a value reached through reflection. Anything that can
// be turned back into an interface goes through ValueOf so nested values get
// the same conversions as top-level ones.
func elemValueOf(rv reflect.Value) (Value, error) {
	if rv.IsValid() && rv.CanInterface() {
		return ValueOf(rv.Interface())
	}
	return reflectValueOf(rv)
}

func listOf(n int, elem func(int) interface{}) (Value, error) {
	list := make([]Value, n)
	for i := 0; i < n; i++ {
		e, err := ValueOf(elem(i))
		if err != nil {
			return Value{}, err
		}
		list[i] = e
	}
	return Value{kind: ListKind, list: list}, nil
}

func tableOf(t Table) (Value, error) {
	if t.IsList() {
		return listOf(len(t), func(i int) interface{} { return t[i].Value })
	}

	dict := make(map[string]Value, len(t))
	for _, entry := range t {
		var key string
		switch k := entry.Key.(type) {
		case string:
			key = k
		case int:
			key = strconv.Itoa(k)
		default:
			return Value{}, &AdapterError{Msg: "table key must be an int or a string, got " + reflect.TypeOf(entry.Key).String()}
		}

		if _, ok := dict[key]; ok {
			return Value{}, &AdapterError{Msg: "duplicate table key " + strconv.Quote(key)}
		}

		v, err := ValueOf(entry.Value)
		if err != nil {
			return Value{}, err
		}
		dict[key] = v
	}
	return Value{kind: DictKind, dict: dict}, nil
}

func reflectValueOf(rv reflect.Value) (Value, error) {
	if !rv.IsValid() {
		return Value{}, &UnsupportedTypeError{}
	}

	rt := rv.Type()
	if rt == valueType || rt.Implements(valuerType) || rt.Implements(marshalerType) {
		return ValueOf(rv.Interface())
	}

	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return Value{}, &UnsupportedTypeError{Type: rt}
		}
		return elemValueOf(rv.Elem())

	case reflect.String:
		return String(rv.String()), nil

	case reflect.Bool:
		if rv.Bool() {
			return Int(1), nil
		}
		return Int(0), nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Int(rv.Int()), nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return Uint(rv.Uint()), nil

	case reflect.Slice, reflect.Array:
		if rt.Elem().Kind() == reflect.Uint8 {
			b := make([]byte, rv.Len())
			for i := range b {
				b[i] = byte(rv.Index(i).Uint())
			}
			return Value{kind: StringKind, str: b}, nil
		}
		return listOf(rv.Len(), func(i int) interface{} { return rv.Index(i).Interface() })

	case reflect.Map:
		if rt.Key().Kind() != reflect.String {
			return Value{}, &UnsupportedTypeError{Type: rt}
		}
		dict := make(map[string]Value, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			e, err := elemValueOf(iter.Value())
			if err != nil {
				return Value{}, err
			}
			dict[iter.Key().String()] = e
		}
		return Value{kind: DictKind, dict: dict}, nil

	case reflect.Struct:
		return structValueOf(rv)
	}

	return Value{}, &UnsupportedTypeError{Type: rt}
}

func structValueOf(rv reflect.Value) (Value, error) {
	rt := rv.Type()
	dict := make(map[string]Value, rt.NumField())

	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if field.PkgPath != "" {
			continue
		}

		name := field.Name
		omitEmpty := false
		if tag, ok := field.Tag.Lookup("bencode"); ok {
			if tag == "-" {
				continue
			}
			parts := strings.Split(tag, ",")
			if parts[0] != "" {
				name = parts[0]
			}
			for _, opt := range parts[1:] {
				if opt == "omitempty" {
					omitEmpty = true
				}
			}
		}

		fv := rv.Field(i)
		if omitEmpty && fv.IsZero() {
			continue
		}

		if _, ok := dict[name]; ok {
			return Value{}, &AdapterError{Msg: "duplicate field name " + strconv.Quote(name) + " in " + rt.String()}
		}

		e, err := elemValueOf(fv)
		if err != nil {
			return Value{}, err
		}
		dict[name] = e
	}

	return Value{kind: DictKind, dict: dict}, nil
}
