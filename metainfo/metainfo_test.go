package metainfo

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	anacrolix "github.com/anacrolix/torrent/metainfo"
	"github.com/stretchr/testify/require"

	"github.com/chihaya/bencode/bencode"
)

func singleFileTorrent(t *testing.T) []byte {
	buf, err := bencode.Marshal(map[string]interface{}{
		"announce":      "http://tracker.example/announce",
		"announce-list": [][]string{{"http://tracker.example/announce"}, {"udp://backup.example:6969"}},
		"comment":       "test torrent",
		"created by":    "bencode tests",
		"creation date": 1600000000,
		"info": map[string]interface{}{
			"name":         "file.bin",
			"length":       40000,
			"piece length": 16384,
			"pieces":       strings.Repeat("a", 20*3),
			"private":      1,
		},
	})
	require.Nil(t, err)
	return buf
}

func TestParseSingleFile(t *testing.T) {
	buf := singleFileTorrent(t)

	mi, err := Parse(buf, bencode.DefaultLimits)
	require.Nil(t, err)
	require.Equal(t, "http://tracker.example/announce", mi.Announce)
	require.Equal(t, [][]string{{"http://tracker.example/announce"}, {"udp://backup.example:6969"}}, mi.AnnounceList)
	require.Equal(t, "test torrent", mi.Comment)
	require.Equal(t, "bencode tests", mi.CreatedBy)
	require.Equal(t, int64(1600000000), mi.CreationDate)
	require.Equal(t, "file.bin", mi.Name)
	require.Equal(t, int64(16384), mi.PieceLength)
	require.Equal(t, 3, mi.PieceCount)
	require.Equal(t, int64(40000), mi.TotalLength)
	require.Equal(t, []File{{Length: 40000, Path: []string{"file.bin"}}}, mi.Files)
	require.True(t, mi.Private)
	require.True(t, mi.Canonical)
	require.Equal(t, buf, mi.Bytes())
}

func TestInfoHashMatchesAnacrolix(t *testing.T) {
	buf := singleFileTorrent(t)

	mi, err := Parse(buf, bencode.DefaultLimits)
	require.Nil(t, err)

	theirs, err := anacrolix.Load(bytes.NewReader(buf))
	require.Nil(t, err)
	require.Equal(t, theirs.HashInfoBytes().HexString(), mi.InfoHash().String())
	require.Equal(t, mi.InfoHash(), mi.ID())
	require.Equal(t, []byte(theirs.InfoBytes), mi.InfoBytes())
}

func TestParseMultiFile(t *testing.T) {
	buf, err := bencode.Marshal(map[string]interface{}{
		"info": map[string]interface{}{
			"name":         "dir",
			"piece length": 32768,
			"pieces":       strings.Repeat("b", 20),
			"files": []interface{}{
				map[string]interface{}{"length": 10, "path": []string{"a", "b.txt"}},
				map[string]interface{}{"length": 5, "path": []string{"c.txt"}},
			},
		},
	})
	require.Nil(t, err)

	mi, err := Parse(buf, bencode.DefaultLimits)
	require.Nil(t, err)
	require.Equal(t, int64(15), mi.TotalLength)
	require.Equal(t, []File{
		{Length: 10, Path: []string{"a", "b.txt"}},
		{Length: 5, Path: []string{"c.txt"}},
	}, mi.Files)
	require.False(t, mi.Private)
	require.Equal(t, "", mi.Announce)
}

func TestParseV2(t *testing.T) {
	buf, err := bencode.Marshal(map[string]interface{}{
		"info": map[string]interface{}{
			"name":         "v2",
			"meta version": 2,
			"piece length": 16384,
			"file tree": map[string]interface{}{
				"docs": map[string]interface{}{
					"readme.txt": map[string]interface{}{
						"": map[string]interface{}{"length": 100, "pieces root": strings.Repeat("r", 32)},
					},
				},
				"data.bin": map[string]interface{}{
					"": map[string]interface{}{"length": 40000},
				},
			},
		},
	})
	require.Nil(t, err)

	mi, err := Parse(buf, bencode.DefaultLimits)
	require.Nil(t, err)
	require.Equal(t, int64(2), mi.MetaVersion)
	require.Equal(t, int64(40100), mi.TotalLength)
	require.Equal(t, 3, mi.PieceCount)
	require.Equal(t, []File{
		{Length: 40000, Path: []string{"data.bin"}},
		{Length: 100, Path: []string{"docs", "readme.txt"}},
	}, mi.Files)

	require.Len(t, mi.InfoHashV2().String(), 64)
	require.Equal(t, mi.InfoHashV2().String()[:40], mi.InfoHashV2().Truncated().String())
	require.Equal(t, mi.InfoHashV2().Truncated(), mi.ID())
	require.NotEqual(t, mi.InfoHash(), mi.ID())

	ih, err := ParseInfoHash(mi.InfoHashV2().String())
	require.Nil(t, err)
	require.Equal(t, mi.ID(), ih)
}

func TestParseNonCanonical(t *testing.T) {
	canonical := singleFileTorrent(t)
	// Swap the first two keys so the input is valid but unsorted.
	v, err := bencode.Decode(canonical)
	require.Nil(t, err)
	announce, _ := v.Get("announce")
	list, _ := v.Get("announce-list")
	unsorted := append([]byte("d13:announce-list"), bencode.Encode(list)...)
	unsorted = append(unsorted, "8:announce"...)
	unsorted = append(unsorted, bencode.Encode(announce)...)
	unsorted = append(unsorted, canonical[len("d8:announce")+len(bencode.Encode(announce))+len("13:announce-list")+len(bencode.Encode(list)):]...)

	mi, err := Parse(unsorted, bencode.DefaultLimits)
	require.Nil(t, err)
	require.False(t, mi.Canonical)
	require.Equal(t, canonical, mi.Bytes())
}

func TestParseErrors(t *testing.T) {
	var parseErrorTests = []struct {
		name  string
		input interface{}
	}{
		{"not a dict", []string{"a"}},
		{"no info", map[string]interface{}{"announce": "x"}},
		{"info not a dict", map[string]interface{}{"info": "x"}},
		{"no name", map[string]interface{}{"info": map[string]interface{}{"piece length": 1, "pieces": "", "length": 0}}},
		{"bad piece length", map[string]interface{}{"info": map[string]interface{}{"name": "n", "piece length": 0, "pieces": "", "length": 0}}},
		{"bad pieces", map[string]interface{}{"info": map[string]interface{}{"name": "n", "piece length": 1, "pieces": "abc", "length": 0}}},
		{"no pieces", map[string]interface{}{"info": map[string]interface{}{"name": "n", "piece length": 1, "length": 0}}},
		{"no length", map[string]interface{}{"info": map[string]interface{}{"name": "n", "piece length": 1, "pieces": ""}}},
		{"empty files", map[string]interface{}{"info": map[string]interface{}{"name": "n", "piece length": 1, "pieces": "", "files": []interface{}{}}}},
		{"bad path", map[string]interface{}{"info": map[string]interface{}{"name": "n", "piece length": 1, "pieces": "", "files": []interface{}{
			map[string]interface{}{"length": 1, "path": []interface{}{1}},
		}}}},
		{"bad announce", map[string]interface{}{"announce": 1, "info": map[string]interface{}{"name": "n", "piece length": 1, "pieces": "", "length": 0}}},
		{"bad announce-list", map[string]interface{}{"announce-list": []interface{}{"x"}, "info": map[string]interface{}{"name": "n", "piece length": 1, "pieces": "", "length": 0}}},
		{"bad meta version", map[string]interface{}{"info": map[string]interface{}{"name": "n", "piece length": 1, "meta version": 3}}},
		{"v2 without tree", map[string]interface{}{"info": map[string]interface{}{"name": "n", "piece length": 1, "meta version": 2}}},
	}

	for _, tt := range parseErrorTests {
		t.Run(tt.name, func(t *testing.T) {
			buf, err := bencode.Marshal(tt.input)
			require.Nil(t, err)

			_, err = Parse(buf, bencode.DefaultLimits)
			require.True(t, errors.Is(err, ErrInvalidMetaInfo), "unexpected error: %v", err)
		})
	}
}

func TestParseDecodeError(t *testing.T) {
	_, err := Parse([]byte("d4:infode"), bencode.DefaultLimits)
	require.NotNil(t, err)

	var perr *bencode.ParseError
	require.True(t, errors.As(err, &perr))
	require.Equal(t, bencode.UnterminatedDictionary, perr.Reason)
	require.False(t, errors.Is(err, ErrInvalidMetaInfo))
}

func TestParseInfoHash(t *testing.T) {
	ih := InfoHashFromBytes([]byte("aaaaaaaaaaaaaaaaaaaa"))

	for _, s := range []string{
		ih.String(),
		"MFQWCYLBMFQWCYLBMFQWCYLBMFQWCYLB",
		ih.RawString(),
		ih.String() + strings.Repeat("0", 24),
	} {
		got, err := ParseInfoHash(s)
		require.Nil(t, err)
		require.Equal(t, ih, got)
	}

	for _, s := range []string{"", "zz", strings.Repeat("z", 40), strings.Repeat("1", 32), strings.Repeat("z", 64), strings.Repeat("a", 63)} {
		_, err := ParseInfoHash(s)
		require.Equal(t, ErrInvalidInfoHash, err)
	}
}
