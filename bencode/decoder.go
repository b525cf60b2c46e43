package bencode

import (
	"bytes"
	"io"
	"io/ioutil"
	"math/big"
	"strconv"
)

// DefaultMaxDepth is the nesting depth allowed by Decode.
const DefaultMaxDepth = 512

// Limits bounds the resources a single decode may consume.
// A zero field disables the corresponding limit.
type Limits struct {
	// MaxDepth is the deepest allowed nesting of lists and dictionaries.
	// The top-level container has depth 1.
	MaxDepth int `yaml:"max_depth"`

	// MaxSize is the largest input, in bytes, that will be decoded.
	MaxSize int `yaml:"max_size"`
}

// DefaultLimits are the Limits used by Decode.
var DefaultLimits = Limits{MaxDepth: DefaultMaxDepth}

// LogFields renders the limits as structured logging fields.
func (l Limits) LogFields() map[string]interface{} {
	return map[string]interface{}{
		"maxDepth": l.MaxDepth,
		"maxSize":  l.MaxSize,
	}
}

// Decode parses exactly one bencoded entity from buf.
//
// buf is never retained: the returned Value owns copies of every byte string.
func Decode(buf []byte) (Value, error) {
	return DecodeLimits(buf, DefaultLimits)
}

// DecodeLimits is Decode with explicit resource limits.
func DecodeLimits(buf []byte, limits Limits) (Value, error) {
	if limits.MaxSize > 0 && len(buf) > limits.MaxSize {
		return Value{}, &LimitError{Offset: limits.MaxSize, Limit: SizeLimit, Max: limits.MaxSize}
	}

	d := decoder{buf: buf, limits: limits}
	v, err := d.decode()
	if err != nil {
		return Value{}, err
	}

	if d.off != len(d.buf) {
		return Value{}, d.fail(d.off, TrailingData)
	}

	return v, nil
}

// DecodeFrom decodes a fully buffered byte source. src may be a []byte, a
// string or an io.Reader, which is read until EOF before decoding starts.
// Any other type fails with InvalidInputType.
func DecodeFrom(src interface{}) (Value, error) {
	switch s := src.(type) {
	case []byte:
		return Decode(s)
	case string:
		return Decode([]byte(s))
	case io.Reader:
		buf, err := ioutil.ReadAll(s)
		if err != nil {
			return Value{}, err
		}
		return Decode(buf)
	default:
		return Value{}, &ParseError{Offset: 0, Reason: InvalidInputType}
	}
}

// A Decoder reads a bencoded entity from an input stream.
//
// The stream is buffered completely before parsing; bencode is not decoded
// incrementally.
type Decoder struct {
	r      io.Reader
	limits Limits
}

// NewDecoder returns a new decoder that reads from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r, limits: DefaultLimits}
}

// SetLimits replaces the Limits used by dec.
func (dec *Decoder) SetLimits(limits Limits) {
	dec.limits = limits
}

// Decode reads r until EOF and decodes the single entity it contains.
func (dec *Decoder) Decode() (Value, error) {
	var src io.Reader = dec.r
	if dec.limits.MaxSize > 0 {
		// Read one byte past the limit so oversized input is detected.
		src = io.LimitReader(dec.r, int64(dec.limits.MaxSize)+1)
	}

	buf, err := ioutil.ReadAll(src)
	if err != nil {
		return Value{}, err
	}
	return DecodeLimits(buf, dec.limits)
}

// decoder holds the state of a single decode call.
type decoder struct {
	buf    []byte
	off    int
	depth  int
	limits Limits
}

func (d *decoder) fail(offset int, reason Reason) error {
	return &ParseError{Offset: offset, Reason: reason}
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}

// decode parses the entity starting at the cursor.
func (d *decoder) decode() (Value, error) {
	if d.off >= len(d.buf) {
		return Value{}, d.fail(d.off, UnknownEntity)
	}

	switch c := d.buf[d.off]; {
	case c == 'i':
		return d.decodeInteger()
	case c == 'l':
		return d.decodeList()
	case c == 'd':
		return d.decodeDict()
	case isDigit(c):
		return d.decodeString()
	default:
		return Value{}, d.fail(d.off, UnknownEntity)
	}
}

func (d *decoder) decodeInteger() (Value, error) {
	start := d.off

	end := bytes.IndexByte(d.buf[start+1:], 'e')
	if end < 0 {
		return Value{}, d.fail(start, UnterminatedInteger)
	}
	end += start + 1

	digits := start + 1
	if d.buf[digits] == '-' {
		digits++
	}

	if digits == end {
		return Value{}, d.fail(start, EmptyInteger)
	}

	for i := digits; i < end; i++ {
		if !isDigit(d.buf[i]) {
			return Value{}, d.fail(i, NonNumericCharacter)
		}
	}

	if end-digits > 1 && d.buf[digits] == '0' {
		return Value{}, d.fail(start, IllegalZeroPadding)
	}

	n, ok := new(big.Int).SetString(string(d.buf[start+1:end]), 10)
	if !ok {
		// Unreachable once the digits have been validated.
		return Value{}, d.fail(start, NonNumericCharacter)
	}

	d.off = end + 1
	return Value{kind: IntegerKind, num: n}, nil
}

func (d *decoder) decodeString() (Value, error) {
	start := d.off

	if d.buf[start] == '0' && (start+1 >= len(d.buf) || d.buf[start+1] != ':') {
		return Value{}, d.fail(start, IllegalZeroPadding)
	}

	colon := bytes.IndexByte(d.buf[start:], ':')
	if colon < 0 {
		return Value{}, d.fail(start, UnterminatedString)
	}
	colon += start

	for i := start; i < colon; i++ {
		if !isDigit(d.buf[i]) {
			return Value{}, d.fail(i, NonNumericCharacter)
		}
	}

	// A length that overflows an int cannot fit in the buffer either.
	length, err := strconv.ParseUint(string(d.buf[start:colon]), 10, 63)
	if err != nil || length > uint64(len(d.buf)-colon-1) {
		return Value{}, d.fail(start, UnexpectedEndOfString)
	}

	from := colon + 1
	to := from + int(length)
	d.off = to
	return Value{kind: StringKind, str: append([]byte{}, d.buf[from:to]...)}, nil
}

// enter records one more level of nesting for the container at offset.
func (d *decoder) enter(offset int) error {
	d.depth++
	if d.limits.MaxDepth > 0 && d.depth > d.limits.MaxDepth {
		return &LimitError{Offset: offset, Limit: DepthLimit, Max: d.limits.MaxDepth}
	}
	return nil
}

func (d *decoder) leave() {
	d.depth--
}

func (d *decoder) decodeList() (Value, error) {
	start := d.off
	if err := d.enter(start); err != nil {
		return Value{}, err
	}
	defer d.leave()

	d.off++
	list := make([]Value, 0)
	for d.off < len(d.buf) {
		if d.buf[d.off] == 'e' {
			d.off++
			return Value{kind: ListKind, list: list}, nil
		}

		v, err := d.decode()
		if err != nil {
			return Value{}, err
		}
		list = append(list, v)
	}

	return Value{}, d.fail(start, UnterminatedList)
}

func (d *decoder) decodeDict() (Value, error) {
	start := d.off
	if err := d.enter(start); err != nil {
		return Value{}, err
	}
	defer d.leave()

	d.off++
	dict := make(map[string]Value)
	for d.off < len(d.buf) {
		if d.buf[d.off] == 'e' {
			d.off++
			return Value{kind: DictKind, dict: dict}, nil
		}

		keyStart := d.off
		if !isDigit(d.buf[keyStart]) {
			return Value{}, d.fail(keyStart, InvalidDictionaryKey)
		}

		key, err := d.decodeString()
		if err != nil {
			return Value{}, err
		}

		k := string(key.str)
		if _, ok := dict[k]; ok {
			return Value{}, d.fail(keyStart, DuplicateDictionaryKey)
		}

		if d.off >= len(d.buf) {
			break
		}

		v, err := d.decode()
		if err != nil {
			return Value{}, err
		}
		dict[k] = v
	}

	return Value{}, d.fail(start, UnterminatedDictionary)
}
