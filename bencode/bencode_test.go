package bencode

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAccessors(t *testing.T) {
	i := Int(-7)
	require.Equal(t, IntegerKind, i.Kind())
	n, ok := i.Int64()
	require.True(t, ok)
	require.Equal(t, int64(-7), n)
	_, ok = i.Str()
	require.False(t, ok)
	require.Equal(t, 0, i.Len())

	s := Bytes([]byte("spam"))
	require.Equal(t, StringKind, s.Kind())
	b, ok := s.Bytes()
	require.True(t, ok)
	b[0] = 'S'
	str, _ := s.Str()
	require.Equal(t, "spam", str, "accessors must not expose internal storage")
	_, ok = s.Int()
	require.False(t, ok)

	l := List(Int(1), String("x"))
	elems, ok := l.List()
	require.True(t, ok)
	elems[0] = Int(2)
	require.True(t, List(Int(1), String("x")).Equal(l))
	require.Equal(t, 2, l.Len())

	m := map[string]Value{"b": Int(1), "a": Int(2)}
	d := Dict(m)
	m["c"] = Int(3)
	require.Equal(t, 2, d.Len(), "Dict must copy its input")
	require.Equal(t, []string{"a", "b"}, d.Keys())
	v, ok := d.Get("a")
	require.True(t, ok)
	require.True(t, Int(2).Equal(v))
	_, ok = d.Get("c")
	require.False(t, ok)
	_, ok = l.Get("a")
	require.False(t, ok)
	require.Nil(t, l.Keys())
}

func TestEqual(t *testing.T) {
	require.True(t, Value{}.Equal(String("")))
	require.True(t, BigInt(big.NewInt(5)).Equal(Uint(5)))
	require.False(t, Int(1).Equal(String("1")))
	require.False(t, List(Int(1)).Equal(List(Int(1), Int(2))))
	require.False(t, List(Int(1)).Equal(List(Int(2))))
	require.True(t, Dict(map[string]Value{"a": Int(1), "b": Int(2)}).Equal(Dict(map[string]Value{"b": Int(2), "a": Int(1)})))
	require.False(t, Dict(map[string]Value{"a": Int(1)}).Equal(Dict(map[string]Value{"b": Int(1)})))
	require.False(t, Dict(map[string]Value{"a": Int(1)}).Equal(Dict(map[string]Value{"a": Int(2)})))
}

func TestValueString(t *testing.T) {
	v := Dict(map[string]Value{
		"b": List(Int(1), String("x\x00")),
		"a": Dict(nil),
	})
	require.Equal(t, `{"a": {}, "b": [1, "x\x00"]}`, v.String())
	require.Equal(t, "dictionary", v.Kind().String())
	require.Equal(t, "unknown", Kind(42).String())
}
