package storage

import (
	"fmt"
	"testing"

	"github.com/chihaya/bencode/metainfo"
)

type benchData struct {
	torrents [1000]*metainfo.MetaInfo
}

func generateTorrents(b *testing.B) (a [1000]*metainfo.MetaInfo) {
	for i := range a {
		a[i] = TestTorrent(b, fmt.Sprintf("torrent-%d", i))
	}
	return
}

type executionFunc func(int, TorrentStore, *benchData) error
type setupFunc func(TorrentStore, *benchData) error

func runBenchmark(b *testing.B, s TorrentStore, sf setupFunc, ef executionFunc) {
	bd := &benchData{generateTorrents(b)}
	if sf != nil {
		err := sf(s, bd)
		if err != nil {
			b.Fatal(err)
		}
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		err := ef(i, s, bd)
		if err != nil {
			b.Fatal(err)
		}
	}
	b.StopTimer()

	errs := s.Stop().Wait()
	for _, err := range errs {
		b.Fatal(err)
	}
}

// Put benchmarks the PutTorrent method of a TorrentStore by repeatedly
// putting the same torrent.
func Put(b *testing.B, s TorrentStore) {
	runBenchmark(b, s, nil, func(i int, s TorrentStore, bd *benchData) error {
		return s.PutTorrent(bd.torrents[0])
	})
}

// Put1k benchmarks the PutTorrent method of a TorrentStore by cycling
// through 1000 torrents.
func Put1k(b *testing.B, s TorrentStore) {
	runBenchmark(b, s, nil, func(i int, s TorrentStore, bd *benchData) error {
		return s.PutTorrent(bd.torrents[i%1000])
	})
}

// PutDelete benchmarks putting and deleting a single torrent.
func PutDelete(b *testing.B, s TorrentStore) {
	runBenchmark(b, s, nil, func(i int, s TorrentStore, bd *benchData) error {
		if err := s.PutTorrent(bd.torrents[0]); err != nil {
			return err
		}
		return s.DeleteTorrent(bd.torrents[0].ID())
	})
}

// Get1k benchmarks the GetTorrent method of a TorrentStore holding 1000
// torrents.
func Get1k(b *testing.B, s TorrentStore) {
	runBenchmark(b, s, func(s TorrentStore, bd *benchData) error {
		for _, mi := range bd.torrents {
			if err := s.PutTorrent(mi); err != nil {
				return err
			}
		}
		return nil
	}, func(i int, s TorrentStore, bd *benchData) error {
		_, err := s.GetTorrent(bd.torrents[i%1000].ID())
		return err
	})
}

// DeleteNonexist benchmarks the DeleteTorrent method of a TorrentStore by
// deleting a torrent that was never stored.
func DeleteNonexist(b *testing.B, s TorrentStore) {
	runBenchmark(b, s, nil, func(i int, s TorrentStore, bd *benchData) error {
		err := s.DeleteTorrent(bd.torrents[0].ID())
		if err != ErrResourceDoesNotExist {
			return err
		}
		return nil
	})
}
