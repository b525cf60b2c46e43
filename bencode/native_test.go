package bencode

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var marshalTests = []struct {
	input    interface{}
	expected string
}{
	{int(42), "i42e"},
	{int(-42), "i-42e"},
	{uint(43), "i43e"},
	{int64(44), "i44e"},
	{uint64(45), "i45e"},
	{int16(44), "i44e"},
	{uint16(45), "i45e"},
	{int8(-8), "i-8e"},
	{true, "i1e"},
	{false, "i0e"},
	{big.NewInt(7), "i7e"},

	{"example", "7:example"},
	{[]byte("example"), "7:example"},
	{[3]byte{'a', 'b', 'c'}, "3:abc"},
	{30 * time.Minute, "i1800e"},
	{String("value"), "5:value"},

	{[]string{"one", "two"}, "l3:one3:twoe"},
	{[]interface{}{"one", 2}, "l3:onei2ee"},
	{[]string{}, "le"},
	{[]int{3, 1, 2}, "li3ei1ei2ee"},

	{map[string]interface{}{"two": "bb", "one": "aa"}, "d3:one2:aa3:two2:bbe"},
	{map[string]interface{}{}, "de"},
	{map[string]int{"b": 1, "a": 2}, "d1:ai2e1:bi1ee"},
	{map[string][]string{"k": {"v"}}, "d1:kl1:vee"},
}

func TestMarshal(t *testing.T) {
	for _, tt := range marshalTests {
		t.Run(tt.expected, func(t *testing.T) {
			got, err := Marshal(tt.input)
			require.Nil(t, err, "marshal should not fail")
			require.Equal(t, tt.expected, string(got))
		})
	}
}

type object struct {
	String  string
	Integer int
}

type taggedObject struct {
	Name     string   `bencode:"name"`
	Length   int64    `bencode:"length,omitempty"`
	Path     []string `bencode:"path,omitempty"`
	Ignored  string   `bencode:"-"`
	internal int
}

func TestMarshalStruct(t *testing.T) {
	got, err := Marshal(object{String: "foo", Integer: 42})
	require.Nil(t, err)
	require.Equal(t, "d7:Integeri42e6:String3:fooe", string(got))

	got, err = Marshal(&taggedObject{Name: "a", Ignored: "x", internal: 1})
	require.Nil(t, err)
	require.Equal(t, "d4:name1:ae", string(got))

	got, err = Marshal(taggedObject{Name: "a", Length: 3, Path: []string{"b"}})
	require.Nil(t, err)
	require.Equal(t, "d6:lengthi3e4:name1:a4:pathl1:bee", string(got))
}

type fieldObject struct {
	str string
	num int
}

func (o fieldObject) BencodeValue() (Value, error) {
	return Dict(map[string]Value{
		"string":  String(o.str),
		"integer": Int(int64(o.num)),
	}), nil
}

func TestMarshalValuer(t *testing.T) {
	got, err := Marshal(fieldObject{str: "foo", num: 42})
	require.Nil(t, err)
	require.Equal(t, "d7:integeri42e6:string3:fooe", string(got))

	got, err = Marshal([]interface{}{fieldObject{str: "", num: 0}})
	require.Nil(t, err)
	require.Equal(t, "ld7:integeri0e6:string0:ee", string(got))
}

type rawMarshaler string

func (r rawMarshaler) MarshalBencode() ([]byte, error) {
	return []byte(r), nil
}

func TestMarshalMarshaler(t *testing.T) {
	got, err := Marshal(map[string]interface{}{"raw": rawMarshaler("d1:bi1e1:ai2ee")})
	require.Nil(t, err)
	require.Equal(t, "d3:rawd1:ai2e1:bi1eee", string(got))

	_, err = Marshal(rawMarshaler("i01e"))
	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	require.Equal(t, IllegalZeroPadding, perr.Reason)
}

func TestMarshalUnsupported(t *testing.T) {
	for _, input := range []interface{}{
		nil,
		3.14,
		map[int]string{1: "a"},
		[]interface{}{make(chan int)},
		(*object)(nil),
	} {
		_, err := Marshal(input)
		var uerr *UnsupportedTypeError
		assert.True(t, errors.As(err, &uerr), "expected unsupported type for %T, got %v", input, err)
	}
}

func TestTable(t *testing.T) {
	var tableTests = []struct {
		input    Table
		isList   bool
		expected string
	}{
		{Table{}, true, "le"},
		{Table{{0, "foo"}, {1, "bar"}}, true, "l3:foo3:bare"},
		{Table{{1, "foo"}, {0, "bar"}}, false, "d1:03:bar1:13:fooe"},
		{Table{{0, "foo"}, {2, "bar"}}, false, "d1:03:foo1:23:bare"},
		{Table{{"0", "foo"}}, false, "d1:03:fooe"},
		{Table{{"foo", "bar"}}, false, "d3:foo3:bare"},
		{Table{{"b", 1}, {"a", 2}}, false, "d1:ai2e1:bi1ee"},
		// Keys sort by raw bytes, so "1" (0x31) precedes "Numeric string value" (0x4e).
		{Table{{"Numeric string value", "1"}, {1, "Numeric string key"}}, false, "d1:118:Numeric string key20:Numeric string value1:1e"},
	}

	for _, tt := range tableTests {
		t.Run(tt.expected, func(t *testing.T) {
			require.Equal(t, tt.isList, tt.input.IsList())

			got, err := Marshal(tt.input)
			require.Nil(t, err)
			require.Equal(t, tt.expected, string(got))
		})
	}
}

func TestTableErrors(t *testing.T) {
	var aerr *AdapterError

	_, err := ValueOf(Table{{"1", "a"}, {1, "b"}})
	require.True(t, errors.As(err, &aerr))

	_, err = ValueOf(Table{{1.5, "a"}})
	require.True(t, errors.As(err, &aerr))
}

func TestNumericStringStaysString(t *testing.T) {
	got, err := Marshal(map[string]interface{}{
		"Numeric string value": "1",
		"1":                    "Numeric string key",
	})
	require.Nil(t, err)
	require.Contains(t, string(got), "20:Numeric string value1:1")
	require.Contains(t, string(got), "1:118:Numeric string key")
	require.NotContains(t, string(got), "i1e")

	// Keys sort by raw bytes, so "1" comes first.
	require.Equal(t, "d1:118:Numeric string key20:Numeric string value1:1e", string(got))
}

var unmarshalTests = []struct {
	input    string
	expected interface{}
}{
	{"i42e", int64(42)},
	{"i-42e", int64(-42)},

	{"7:example", "example"},

	{"l3:one3:twoe", []interface{}{"one", "two"}},
	{"le", []interface{}{}},

	{"d3:one2:aa3:two2:bbe", map[string]interface{}{"one": "aa", "two": "bb"}},
	{"de", map[string]interface{}{}},
}

func TestUnmarshal(t *testing.T) {
	for _, tt := range unmarshalTests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Unmarshal([]byte(tt.input))
			require.Nil(t, err, "unmarshal should not fail")
			require.Equal(t, tt.expected, got, "unmarshalled values should match the expected results")
		})
	}
}

func TestUnmarshalLarge(t *testing.T) {
	data := map[string]interface{}{
		"k1": []interface{}{"a", "b", "c"},
		"k2": int64(42),
		"k3": "val",
		"k4": int64(-42),
	}

	buf, err := Marshal(data)
	require.Nil(t, err)

	got, err := Unmarshal(buf)
	require.Nil(t, err, "decode should not fail")
	require.Equal(t, data, got, "encoding and decoding should equal the original value")
}

func TestUnmarshalBigInt(t *testing.T) {
	got, err := Unmarshal([]byte("i18446744073709551616e"))
	require.Nil(t, err)

	n, ok := got.(*big.Int)
	require.True(t, ok)
	require.Equal(t, "18446744073709551616", n.String())
}

type announceObject struct {
	Interval time.Duration `bencode:"interval"`
	Size     *big.Int      `bencode:"size"`
	Extra    Table         `bencode:"extra"`
}

type ptrValuer struct {
	n int64
}

func (p *ptrValuer) BencodeValue() (Value, error) {
	return Int(p.n), nil
}

type ptrValuerHolder struct {
	Peer *ptrValuer `bencode:"peer"`
}

type ptrValuerOmit struct {
	Peer *ptrValuer `bencode:"peer,omitempty"`
	Name string     `bencode:"name"`
}

func TestMarshalNested(t *testing.T) {
	huge, ok := new(big.Int).SetString("18446744073709551616", 10)
	require.True(t, ok)

	var table = []struct {
		input    interface{}
		expected string
	}{
		{announceObject{30 * time.Second, big.NewInt(7), Table{{0, "a"}}}, "d5:extral1:ae8:intervali30e4:sizei7ee"},
		{&announceObject{Interval: time.Minute, Size: big.NewInt(0)}, "d5:extrale8:intervali60e4:sizei0ee"},
		{map[string]time.Duration{"interval": 30 * time.Second}, "d8:intervali30ee"},
		{map[string]*big.Int{"n": huge}, "d1:ni18446744073709551616ee"},
		{map[string]big.Int{"n": *big.NewInt(-3)}, "d1:ni-3ee"},
		{map[string]Table{"t": {{"b", 1}, {"a", 2}}}, "d1:td1:ai2e1:bi1eee"},
		{[]*big.Int{big.NewInt(1), huge}, "li1ei18446744073709551616ee"},
		{ptrValuerHolder{&ptrValuer{5}}, "d4:peeri5ee"},
		{ptrValuerOmit{Name: "x"}, "d4:name1:xe"},
	}

	for _, tt := range table {
		t.Run(tt.expected, func(t *testing.T) {
			got, err := Marshal(tt.input)
			require.Nil(t, err, "marshal should not fail")
			require.Equal(t, tt.expected, string(got))
		})
	}
}

func TestMarshalNilPointerValuer(t *testing.T) {
	var table = []interface{}{
		(*ptrValuer)(nil),
		ptrValuerHolder{},
		map[string]*ptrValuer{"peer": nil},
		[]*ptrValuer{nil},
	}

	for _, input := range table {
		var err error
		require.NotPanics(t, func() { _, err = Marshal(input) })

		var unsupported *UnsupportedTypeError
		require.True(t, errors.As(err, &unsupported), "%T should be rejected", input)
	}
}
