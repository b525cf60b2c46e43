package metainfo

import (
	"encoding/base32"
	"encoding/hex"
	"fmt"

	"github.com/pkg/errors"
)

// ErrInvalidInfoHash is returned when a string cannot be parsed as an
// InfoHash.
var ErrInvalidInfoHash = errors.New("invalid infohash")

// InfoHash represents a BitTorrent v1 infohash: the SHA-1 of the bencoded
// info dictionary.
type InfoHash [20]byte

// InfoHashFromBytes creates an InfoHash from a byte slice.
//
// It panics if b is not 20 bytes long.
func InfoHashFromBytes(b []byte) InfoHash {
	if len(b) != 20 {
		panic("infohash must be 20 bytes")
	}

	var buf [20]byte
	copy(buf[:], b)
	return InfoHash(buf)
}

// ParseInfoHash parses an InfoHash from its 40 character hex form, its 32
// character base32 form or its 20 raw bytes.
//
// A 64 character hex v2 infohash is accepted and truncated to 20 bytes.
func ParseInfoHash(s string) (InfoHash, error) {
	var (
		parsed []byte
		err    error
	)

	switch len(s) {
	case 64:
		parsed, err = hex.DecodeString(s)
		if err == nil {
			parsed = parsed[:20]
		}
	case 40:
		parsed, err = hex.DecodeString(s)
	case 32:
		parsed, err = base32.StdEncoding.DecodeString(s)
	case 20:
		parsed = []byte(s)
	default:
		return InfoHash{}, ErrInvalidInfoHash
	}

	if err != nil || len(parsed) != 20 {
		return InfoHash{}, ErrInvalidInfoHash
	}

	return InfoHashFromBytes(parsed), nil
}

// String implements fmt.Stringer, returning the base16 encoded InfoHash.
func (i InfoHash) String() string {
	return fmt.Sprintf("%x", i[:])
}

// RawString returns a 20-byte string of the raw bytes of the InfoHash.
func (i InfoHash) RawString() string {
	return string(i[:])
}

// InfoHashV2 represents a BitTorrent v2 infohash: the SHA-256 of the
// bencoded info dictionary.
type InfoHashV2 [32]byte

// String implements fmt.Stringer, returning the base16 encoded InfoHashV2.
func (i InfoHashV2) String() string {
	return fmt.Sprintf("%x", i[:])
}

// Truncated returns the first 20 bytes of the v2 infohash, which is how
// hybrid torrents identify their v2 swarm in v1 messages.
func (i InfoHashV2) Truncated() InfoHash {
	return InfoHashFromBytes(i[:20])
}
