package bencode

import (
	"bytes"
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

var encodeTests = []struct {
	input    Value
	expected string
}{
	{Int(42), "i42e"},
	{Int(-42), "i-42e"},
	{Int(0), "i0e"},
	{Uint(18446744073709551615), "i18446744073709551615e"},
	{BigInt(nil), "i0e"},

	{String("string"), "6:string"},
	{String(""), "0:"},
	{Value{}, "0:"},
	{Bytes([]byte{0xe2, 0x82, 0xac, 0x00}), "4:\xe2\x82\xac\x00"},
	{String("€"), "3:€"},

	{List(), "le"},
	{List(String("foo"), String("bar")), "l3:foo3:bare"},
	{List(List(), Dict(nil)), "lledee"},

	{Dict(nil), "de"},
	{Dict(map[string]Value{"foo": String("bar")}), "d3:foo3:bare"},
	{Dict(map[string]Value{"b": Int(1), "a": Int(2)}), "d1:ai2e1:bi1e"},
	{Dict(map[string]Value{"ab": Int(1), "a": Int(2), "b": Int(3), "\xff": Int(4), "A": Int(5)}), "d1:Ai5e1:ai2e2:abi1e1:bi3e1:\xffi4ee"},
	// Keys sort by raw bytes, so "1" (0x31) precedes "Numeric string value" (0x4e).
	{Dict(map[string]Value{
		"Numeric string value": String("1"),
		"1":                    String("Numeric string key"),
	}), "d1:118:Numeric string key20:Numeric string value1:1e"},
}

func TestEncode(t *testing.T) {
	for _, tt := range encodeTests {
		t.Run(tt.expected, func(t *testing.T) {
			got := Encode(tt.input)
			require.Equal(t, tt.expected, string(got))
			require.Equal(t, len(got), EncodedLen(tt.input))
		})
	}
}

func TestEncodeBigInt(t *testing.T) {
	n, _ := new(big.Int).SetString("-99999999999999999999999999", 10)
	v := BigInt(n)

	// Mutating the source must not affect the Value.
	n.SetInt64(1)
	require.Equal(t, "i-99999999999999999999999999e", string(Encode(v)))
}

func TestEncoder(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)

	require.Nil(t, enc.Encode(String("test")))
	require.Nil(t, enc.Encode(Int(123)))
	require.Equal(t, "4:testi123e", buf.String())
}

type failingWriter struct{}

var errWrite = errors.New("write failed")

func (failingWriter) Write([]byte) (int, error) { return 0, errWrite }

func TestEncoderWriterError(t *testing.T) {
	err := NewEncoder(failingWriter{}).Encode(List(String("x")))
	require.Equal(t, errWrite, err)
}

var roundTripTests = []string{
	"i0e",
	"i-1e",
	"0:",
	"4:spam",
	"le",
	"de",
	"l4:spami42ee",
	"d3:bar4:spam3:fooi42ee",
	"d1:ad1:bli1ei2eleee1:c0:e",
	"d8:announce31:http://tracker.example/announce4:infod6:lengthi1024e4:name8:file.bin12:piece lengthi16384e6:pieces20:aaaaaaaaaaaaaaaaaaaaee",
}

func TestRoundTrip(t *testing.T) {
	for _, input := range roundTripTests {
		t.Run(input, func(t *testing.T) {
			v, err := Decode([]byte(input))
			require.Nil(t, err)
			require.Equal(t, input, string(Encode(v)))
		})
	}
}

func TestCanonicalize(t *testing.T) {
	v, err := Decode([]byte("d1:bi1e1:ai2ee"))
	require.Nil(t, err)
	require.Equal(t, "d1:ai2e1:bi1ee", string(Encode(v)))
}

func TestEncodeDecodeIdempotent(t *testing.T) {
	for _, tt := range encodeTests {
		got, err := Decode(Encode(tt.input))
		require.Nil(t, err)
		require.True(t, tt.input.Equal(got), "expected %s, got %s", tt.input, got)
	}
}

func BenchmarkEncodeScalar(b *testing.B) {
	var buf bytes.Buffer
	encoder := NewEncoder(&buf)
	str, num := String("test"), Int(123)

	for i := 0; i < b.N; i++ {
		_ = encoder.Encode(str)
		_ = encoder.Encode(num)
	}
}

func BenchmarkEncodeLarge(b *testing.B) {
	data := Dict(map[string]Value{
		"k1": List(String("a"), String("b"), String("c")),
		"k2": Int(42),
		"k3": String("val"),
		"k4": Uint(42),
	})

	for i := 0; i < b.N; i++ {
		_ = Encode(data)
	}
}
