package storage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chihaya/bencode/bencode"
	"github.com/chihaya/bencode/metainfo"
)

// TestTorrent builds a small single-file torrent whose infohash depends on
// name.
func TestTorrent(t testing.TB, name string) *metainfo.MetaInfo {
	buf, err := bencode.Marshal(map[string]interface{}{
		"announce": "http://tracker.example/announce",
		"info": map[string]interface{}{
			"name":         name,
			"length":       1024,
			"piece length": 16384,
			"pieces":       strings.Repeat("x", 20),
		},
	})
	require.Nil(t, err)

	mi, err := metainfo.Parse(buf, bencode.DefaultLimits)
	require.Nil(t, err)
	return mi
}

// TestTorrentV2 builds a small torrent with meta version 2 and no v1 pieces.
func TestTorrentV2(t testing.TB, name string) *metainfo.MetaInfo {
	buf, err := bencode.Marshal(map[string]interface{}{
		"announce": "http://tracker.example/announce",
		"info": map[string]interface{}{
			"name":         name,
			"meta version": 2,
			"piece length": 16384,
			"file tree": map[string]interface{}{
				name: map[string]interface{}{
					"": map[string]interface{}{"length": 1024},
				},
			},
		},
	})
	require.Nil(t, err)

	mi, err := metainfo.Parse(buf, bencode.DefaultLimits)
	require.Nil(t, err)
	return mi
}

// TestTorrentStore tests a TorrentStore implementation against the interface.
// The store must be empty.
func TestTorrentStore(t *testing.T, s TorrentStore) {
	first, second := TestTorrent(t, "first"), TestTorrent(t, "second")
	require.NotEqual(t, first.ID(), second.ID())

	n, err := s.Len()
	require.Nil(t, err)
	require.Equal(t, 0, n)

	// Test ErrDNE for non-existent torrents.
	_, err = s.GetTorrent(first.ID())
	require.Equal(t, ErrResourceDoesNotExist, err)

	err = s.DeleteTorrent(first.ID())
	require.Equal(t, ErrResourceDoesNotExist, err)

	// Test PutTorrent -> GetTorrent -> PutTorrent again.
	err = s.PutTorrent(first)
	require.Nil(t, err)

	buf, err := s.GetTorrent(first.ID())
	require.Nil(t, err)
	require.Equal(t, first.Bytes(), buf)

	err = s.PutTorrent(first)
	require.Nil(t, err)

	n, err = s.Len()
	require.Nil(t, err)
	require.Equal(t, 1, n)

	err = s.PutTorrent(second)
	require.Nil(t, err)

	n, err = s.Len()
	require.Nil(t, err)
	require.Equal(t, 2, n)

	// Test DeleteTorrent -> GetTorrent.
	err = s.DeleteTorrent(first.ID())
	require.Nil(t, err)

	_, err = s.GetTorrent(first.ID())
	require.Equal(t, ErrResourceDoesNotExist, err)

	buf, err = s.GetTorrent(second.ID())
	require.Nil(t, err)
	require.Equal(t, second.Bytes(), buf)

	n, err = s.Len()
	require.Nil(t, err)
	require.Equal(t, 1, n)

	// Non-canonical uploads are stored canonically.
	unsorted, err := metainfo.Parse([]byte("d4:infod4:name1:a6:lengthi1e12:piece lengthi1e6:pieces0:ee"), bencode.DefaultLimits)
	require.Nil(t, err)
	require.False(t, unsorted.Canonical)

	err = s.PutTorrent(unsorted)
	require.Nil(t, err)

	buf, err = s.GetTorrent(unsorted.ID())
	require.Nil(t, err)
	require.Equal(t, "d4:infod6:lengthi1e4:name1:a12:piece lengthi1e6:pieces0:ee", string(buf))

	stored, err := metainfo.Parse(buf, bencode.DefaultLimits)
	require.Nil(t, err)
	require.True(t, stored.Canonical)
	require.Equal(t, unsorted.ID(), stored.ID())

	// Meta version 2 torrents are stored under their truncated v2 infohash.
	v2 := TestTorrentV2(t, "v2")
	require.Equal(t, v2.InfoHashV2().Truncated(), v2.ID())

	err = s.PutTorrent(v2)
	require.Nil(t, err)

	buf, err = s.GetTorrent(v2.InfoHashV2().Truncated())
	require.Nil(t, err)
	require.Equal(t, v2.Bytes(), buf)

	_, err = s.GetTorrent(v2.InfoHash())
	require.Equal(t, ErrResourceDoesNotExist, err)

	for _, mi := range []*metainfo.MetaInfo{second, unsorted, v2} {
		require.Nil(t, s.DeleteTorrent(mi.ID()), "deleting %s", mi.Name)
	}

	e := s.Stop()
	require.Nil(t, e.Wait())
}
