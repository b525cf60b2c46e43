// Package metainfo reads .torrent files (BEP 3 and BEP 52) through the
// strict bencode decoder and computes their infohashes over the canonical
// encoding of the info dictionary.
package metainfo

import (
	"bytes"
	"crypto/sha1"

	"github.com/minio/sha256-simd"
	"github.com/pkg/errors"

	"github.com/chihaya/bencode/bencode"
)

// ErrInvalidMetaInfo is wrapped by every error describing a torrent that
// decodes as bencode but is not a valid metainfo file.
var ErrInvalidMetaInfo = errors.New("invalid metainfo")

// File is a single file of a torrent.
type File struct {
	Length int64
	Path   []string
}

// MetaInfo is a parsed .torrent file.
type MetaInfo struct {
	Announce     string
	AnnounceList [][]string
	Comment      string
	CreatedBy    string
	CreationDate int64

	Name        string
	PieceLength int64
	PieceCount  int
	TotalLength int64
	Files       []File
	Private     bool
	MetaVersion int64

	// Canonical is true when the input was byte-identical to its canonical
	// encoding.
	Canonical bool

	raw  bencode.Value
	info bencode.Value
}

func invalid(format string, args ...interface{}) error {
	return errors.Wrapf(ErrInvalidMetaInfo, format, args...)
}

// Parse decodes and validates a .torrent file.
func Parse(buf []byte, limits bencode.Limits) (*MetaInfo, error) {
	raw, err := bencode.DecodeLimits(buf, limits)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode metainfo")
	}

	mi, err := FromValue(raw)
	if err != nil {
		return nil, err
	}
	mi.Canonical = bytes.Equal(buf, bencode.Encode(raw))

	return mi, nil
}

// FromValue validates an already decoded torrent.
func FromValue(raw bencode.Value) (*MetaInfo, error) {
	if raw.Kind() != bencode.DictKind {
		return nil, invalid("torrent must be a dictionary, got %s", raw.Kind())
	}

	info, ok := raw.Get("info")
	if !ok || info.Kind() != bencode.DictKind {
		return nil, invalid("missing info dictionary")
	}

	mi := &MetaInfo{raw: raw, info: info, MetaVersion: 1}

	var err error
	if mi.Announce, err = optionalString(raw, "announce"); err != nil {
		return nil, err
	}
	if mi.Comment, err = optionalString(raw, "comment"); err != nil {
		return nil, err
	}
	if mi.CreatedBy, err = optionalString(raw, "created by"); err != nil {
		return nil, err
	}
	if mi.CreationDate, err = optionalInt(raw, "creation date"); err != nil {
		return nil, err
	}
	if mi.AnnounceList, err = announceList(raw); err != nil {
		return nil, err
	}

	if err := mi.parseInfo(); err != nil {
		return nil, err
	}

	return mi, nil
}

func (mi *MetaInfo) parseInfo() error {
	info := mi.info

	name, ok := info.Get("name")
	if !ok || name.Kind() != bencode.StringKind {
		return invalid("info.name must be a string")
	}
	mi.Name, _ = name.Str()

	pieceLength, ok := info.Get("piece length")
	if !ok {
		return invalid("missing info.piece length")
	}
	if mi.PieceLength, ok = pieceLength.Int64(); !ok || mi.PieceLength <= 0 {
		return invalid("info.piece length must be a positive integer")
	}

	private, err := optionalInt(info, "private")
	if err != nil {
		return err
	}
	mi.Private = private == 1

	if v, ok := info.Get("meta version"); ok {
		if mi.MetaVersion, ok = v.Int64(); !ok || (mi.MetaVersion != 1 && mi.MetaVersion != 2) {
			return invalid("unsupported info.meta version %s", v)
		}
	}

	pieces, hasPieces := info.Get("pieces")
	if hasPieces {
		if pieces.Kind() != bencode.StringKind || pieces.Len()%sha1.Size != 0 {
			return invalid("info.pieces must be a string of concatenated SHA-1 hashes")
		}
		mi.PieceCount = pieces.Len() / sha1.Size
	} else if mi.MetaVersion == 1 {
		return invalid("missing info.pieces")
	}

	if mi.MetaVersion == 2 {
		tree, ok := info.Get("file tree")
		if !ok || tree.Kind() != bencode.DictKind {
			return invalid("info.file tree must be a dictionary")
		}
		if err := mi.walkFileTree(tree, nil); err != nil {
			return err
		}
		if !hasPieces {
			mi.PieceCount = int((mi.TotalLength + mi.PieceLength - 1) / mi.PieceLength)
		}
		return nil
	}

	return mi.parseFiles()
}

// parseFiles reads the v1 single-file or multi-file layout.
func (mi *MetaInfo) parseFiles() error {
	info := mi.info

	if length, ok := info.Get("length"); ok {
		n, ok := length.Int64()
		if !ok || n < 0 {
			return invalid("info.length must be a non-negative integer")
		}
		mi.TotalLength = n
		mi.Files = []File{{Length: n, Path: []string{mi.Name}}}
		return nil
	}

	files, ok := info.Get("files")
	if !ok {
		return invalid("info must contain either length or files")
	}
	list, ok := files.List()
	if !ok || len(list) == 0 {
		return invalid("info.files must be a non-empty list")
	}

	for i, f := range list {
		length, ok := f.Get("length")
		if !ok {
			return invalid("info.files[%d] is missing length", i)
		}
		n, ok := length.Int64()
		if !ok || n < 0 {
			return invalid("info.files[%d].length must be a non-negative integer", i)
		}

		path, ok := f.Get("path")
		if !ok {
			return invalid("info.files[%d] is missing path", i)
		}
		elems, err := stringList(path)
		if err != nil || len(elems) == 0 {
			return invalid("info.files[%d].path must be a non-empty list of strings", i)
		}

		mi.TotalLength += n
		mi.Files = append(mi.Files, File{Length: n, Path: elems})
	}

	return nil
}

// walkFileTree flattens a BEP 52 file tree. Files are leaves keyed by the
// empty string; their parents' keys form the path.
func (mi *MetaInfo) walkFileTree(node bencode.Value, path []string) error {
	for _, key := range node.Keys() {
		child, _ := node.Get(key)
		if child.Kind() != bencode.DictKind {
			return invalid("info.file tree entry %q must be a dictionary", key)
		}

		if key == "" {
			if len(path) == 0 {
				return invalid("info.file tree has a file without a name")
			}
			length, ok := child.Get("length")
			if !ok {
				return invalid("info.file tree file %v is missing length", path)
			}
			n, ok := length.Int64()
			if !ok || n < 0 {
				return invalid("info.file tree file %v has an invalid length", path)
			}
			mi.TotalLength += n
			mi.Files = append(mi.Files, File{Length: n, Path: append([]string(nil), path...)})
			continue
		}

		if err := mi.walkFileTree(child, append(path, key)); err != nil {
			return err
		}
	}
	return nil
}

// Value returns the decoded torrent.
func (mi *MetaInfo) Value() bencode.Value { return mi.raw }

// Bytes returns the canonical encoding of the torrent.
func (mi *MetaInfo) Bytes() []byte { return bencode.Encode(mi.raw) }

// InfoBytes returns the canonical encoding of the info dictionary.
func (mi *MetaInfo) InfoBytes() []byte { return bencode.Encode(mi.info) }

// InfoHash returns the v1 infohash of the torrent.
func (mi *MetaInfo) InfoHash() InfoHash {
	return InfoHash(sha1.Sum(mi.InfoBytes()))
}

// InfoHashV2 returns the v2 infohash of the torrent.
func (mi *MetaInfo) InfoHashV2() InfoHashV2 {
	return InfoHashV2(sha256.Sum256(mi.InfoBytes()))
}

// ID returns the infohash the torrent is stored and served under.
//
// Torrents with meta version 2 have no v1 swarm, so they are identified by
// the truncated v2 infohash. Everything else uses the v1 infohash.
func (mi *MetaInfo) ID() InfoHash {
	if mi.MetaVersion == 2 {
		return mi.InfoHashV2().Truncated()
	}
	return mi.InfoHash()
}

// LogFields renders the torrent as structured logging fields.
func (mi *MetaInfo) LogFields() map[string]interface{} {
	return map[string]interface{}{
		"name":        mi.Name,
		"infoHash":    mi.ID().String(),
		"pieceLength": mi.PieceLength,
		"pieces":      mi.PieceCount,
		"files":       len(mi.Files),
		"totalLength": mi.TotalLength,
		"metaVersion": mi.MetaVersion,
		"canonical":   mi.Canonical,
	}
}

func optionalString(d bencode.Value, key string) (string, error) {
	v, ok := d.Get(key)
	if !ok {
		return "", nil
	}
	s, ok := v.Str()
	if !ok {
		return "", invalid("%s must be a string", key)
	}
	return s, nil
}

func optionalInt(d bencode.Value, key string) (int64, error) {
	v, ok := d.Get(key)
	if !ok {
		return 0, nil
	}
	n, ok := v.Int64()
	if !ok {
		return 0, invalid("%s must be an integer", key)
	}
	return n, nil
}

func stringList(v bencode.Value) ([]string, error) {
	list, ok := v.List()
	if !ok {
		return nil, invalid("expected a list, got %s", v.Kind())
	}

	strs := make([]string, 0, len(list))
	for _, e := range list {
		s, ok := e.Str()
		if !ok {
			return nil, invalid("expected a string, got %s", e.Kind())
		}
		strs = append(strs, s)
	}
	return strs, nil
}

// announceList reads the BEP 12 tiers.
func announceList(raw bencode.Value) ([][]string, error) {
	v, ok := raw.Get("announce-list")
	if !ok {
		return nil, nil
	}
	tiers, ok := v.List()
	if !ok {
		return nil, invalid("announce-list must be a list")
	}

	var list [][]string
	for i, tier := range tiers {
		urls, err := stringList(tier)
		if err != nil {
			return nil, invalid("announce-list[%d] must be a list of strings", i)
		}
		list = append(list, urls)
	}
	return list, nil
}
