package bencode

import (
	"bufio"
	"bytes"
	"io"
	"strconv"
)

// An Encoder writes bencoded values to an output stream.
type Encoder struct {
	w io.Writer
}

// NewEncoder returns a new encoder that writes to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Encode writes the canonical bencoding of v to the stream.
// The only errors returned are those of the underlying writer.
func (enc *Encoder) Encode(v Value) error {
	bw := bufio.NewWriter(enc.w)
	if err := marshal(bw, v); err != nil {
		return err
	}
	return bw.Flush()
}

// Encode returns the canonical bencoding of v.
func Encode(v Value) []byte {
	var buf bytes.Buffer
	// Writes to a bytes.Buffer cannot fail.
	_ = marshal(&buf, v)
	return buf.Bytes()
}

// EncodedLen returns the length of the canonical bencoding of v without
// allocating it.
func EncodedLen(v Value) int {
	switch v.kind {
	case IntegerKind:
		return len(v.num.String()) + 2
	case ListKind:
		n := 2
		for _, e := range v.list {
			n += EncodedLen(e)
		}
		return n
	case DictKind:
		n := 2
		for k, e := range v.dict {
			n += len(strconv.Itoa(len(k))) + 1 + len(k) + EncodedLen(e)
		}
		return n
	default:
		return len(strconv.Itoa(len(v.str))) + 1 + len(v.str)
	}
}

type writer interface {
	io.Writer
	io.ByteWriter
	io.StringWriter
}

// marshal writes the bencoding of v to w.
func marshal(w writer, v Value) error {
	switch v.kind {
	case IntegerKind:
		return marshalInt(w, v)
	case ListKind:
		return marshalList(w, v.list)
	case DictKind:
		return marshalDict(w, v.dict)
	default:
		return marshalBytes(w, v.str)
	}
}

func marshalInt(w writer, v Value) error {
	if err := w.WriteByte('i'); err != nil {
		return err
	}

	if _, err := w.WriteString(v.num.String()); err != nil {
		return err
	}

	return w.WriteByte('e')
}

func marshalBytes(w writer, v []byte) error {
	if _, err := w.WriteString(strconv.Itoa(len(v))); err != nil {
		return err
	}

	if err := w.WriteByte(':'); err != nil {
		return err
	}

	_, err := w.Write(v)
	return err
}

func marshalString(w writer, v string) error {
	if _, err := w.WriteString(strconv.Itoa(len(v))); err != nil {
		return err
	}

	if err := w.WriteByte(':'); err != nil {
		return err
	}

	_, err := w.WriteString(v)
	return err
}

func marshalList(w writer, v []Value) error {
	if err := w.WriteByte('l'); err != nil {
		return err
	}

	for _, val := range v {
		if err := marshal(w, val); err != nil {
			return err
		}
	}

	return w.WriteByte('e')
}

func marshalDict(w writer, v map[string]Value) error {
	if err := w.WriteByte('d'); err != nil {
		return err
	}

	for _, key := range sortedKeys(v) {
		if err := marshalString(w, key); err != nil {
			return err
		}

		if err := marshal(w, v[key]); err != nil {
			return err
		}
	}

	return w.WriteByte('e')
}
