package bencode

import (
	"fmt"
	"reflect"
)

// Reason identifies why a decode failed.
type Reason uint8

// The reasons a ParseError can carry.
const (
	UnknownEntity Reason = iota + 1
	UnterminatedInteger
	EmptyInteger
	NonNumericCharacter
	IllegalZeroPadding
	UnterminatedString
	UnexpectedEndOfString
	UnterminatedList
	UnterminatedDictionary
	InvalidDictionaryKey
	DuplicateDictionaryKey
	TrailingData
	InvalidInputType
)

var reasonStrings = map[Reason]string{
	UnknownEntity:          "unknown entity",
	UnterminatedInteger:    "unterminated integer",
	EmptyInteger:           "empty integer",
	NonNumericCharacter:    "non-numeric character",
	IllegalZeroPadding:     "illegal zero-padding",
	UnterminatedString:     "unterminated string",
	UnexpectedEndOfString:  "unexpected end of string",
	UnterminatedList:       "unterminated list definition",
	UnterminatedDictionary: "unterminated dictionary definition",
	InvalidDictionaryKey:   "invalid dictionary key",
	DuplicateDictionaryKey: "duplicate dictionary key",
	TrailingData:           "multiple entities outside list or dict",
	InvalidInputType:       "invalid input type",
}

// String implements fmt.Stringer for Reason.
func (r Reason) String() string {
	if s, ok := reasonStrings[r]; ok {
		return s
	}
	return fmt.Sprintf("reason(%d)", uint8(r))
}

// Truncated reports whether r means the input ended before the entity it
// was decoding did.
func (r Reason) Truncated() bool {
	switch r {
	case UnterminatedInteger, UnterminatedString, UnexpectedEndOfString,
		UnterminatedList, UnterminatedDictionary:
		return true
	default:
		return false
	}
}

// ParseError is returned when the input is not canonical bencode.
//
// Offset is the position in the input where the offending construct begins,
// or the offending byte itself for NonNumericCharacter.
type ParseError struct {
	Offset int
	Reason Reason
}

// Error implements the error interface for ParseError.
func (e *ParseError) Error() string {
	return fmt.Sprintf("bencode: %s at offset %d", e.Reason, e.Offset)
}

// LogFields renders the error as structured logging fields.
func (e *ParseError) LogFields() map[string]interface{} {
	return map[string]interface{}{
		"offset": e.Offset,
		"reason": e.Reason.String(),
	}
}

// Limit names the resource guarded by a LimitError.
type Limit string

// The limits enforced by DecodeLimits.
const (
	DepthLimit Limit = "depth"
	SizeLimit  Limit = "size"
)

// LimitError is returned when the input exceeds one of the configured
// Limits. It is distinct from ParseError: the input may well be valid
// bencode.
type LimitError struct {
	Offset int
	Limit  Limit
	Max    int
}

// Error implements the error interface for LimitError.
func (e *LimitError) Error() string {
	return fmt.Sprintf("bencode: resource limit exceeded: %s over %d at offset %d", e.Limit, e.Max, e.Offset)
}

// UnsupportedTypeError is returned by ValueOf and Marshal for Go values that
// have no bencode representation.
type UnsupportedTypeError struct {
	Type reflect.Type
}

// Error implements the error interface for UnsupportedTypeError.
func (e *UnsupportedTypeError) Error() string {
	if e.Type == nil {
		return "bencode: unsupported type: nil"
	}
	return "bencode: unsupported type: " + e.Type.String()
}

// AdapterError is returned by ValueOf when a Go value has a supported type
// but cannot be represented, such as a Table with duplicate keys.
type AdapterError struct {
	Msg string
}

// Error implements the error interface for AdapterError.
func (e *AdapterError) Error() string {
	return "bencode: " + e.Msg
}
