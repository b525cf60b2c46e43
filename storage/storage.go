// Package storage defines the TorrentStore interface and the registry of
// drivers that implement it.
package storage

import (
	"errors"
	"sync"

	"github.com/chihaya/bencode/metainfo"
	"github.com/chihaya/bencode/pkg/stop"
)

var (
	driversM sync.RWMutex
	drivers  = make(map[string]Driver)
)

// Driver is the interface used to initialize a new type of TorrentStore.
type Driver interface {
	NewTorrentStore(cfg interface{}) (TorrentStore, error)
}

// ErrResourceDoesNotExist is the error returned by the get and delete methods
// of a TorrentStore if the requested torrent is not stored.
var ErrResourceDoesNotExist = errors.New("resource does not exist")

// ErrDriverDoesNotExist is the error returned by NewTorrentStore when a
// torrent store driver with that name does not exist.
var ErrDriverDoesNotExist = errors.New("torrent store driver with that name does not exist")

// TorrentStore is an interface that abstracts storing canonically encoded
// torrents keyed by their infohash, such that it can be implemented for
// various data stores.
type TorrentStore interface {
	// PutTorrent stores the canonical encoding of the torrent under its
	// infohash, replacing any previous entry.
	PutTorrent(mi *metainfo.MetaInfo) error

	// GetTorrent returns the canonical encoding of the torrent identified by
	// the provided infoHash.
	//
	// If the torrent is not stored, this function should return
	// ErrResourceDoesNotExist.
	GetTorrent(infoHash metainfo.InfoHash) ([]byte, error)

	// DeleteTorrent removes the torrent identified by the provided infoHash.
	//
	// If the torrent is not stored, this function should return
	// ErrResourceDoesNotExist.
	DeleteTorrent(infoHash metainfo.InfoHash) error

	// Len returns the number of stored torrents.
	Len() (int, error)

	// stop is an interface that expects a Stop method to stop the
	// TorrentStore.
	// For more details see the documentation in the stop package.
	stop.Stopper
}

// RegisterDriver makes a Driver available by the provided name.
//
// If called twice with the same name, the name is blank, or if the provided
// Driver is nil, this function panics.
func RegisterDriver(name string, d Driver) {
	if name == "" {
		panic("storage: could not register a Driver with an empty name")
	}
	if d == nil {
		panic("storage: could not register a nil Driver")
	}

	driversM.Lock()
	defer driversM.Unlock()

	if _, dup := drivers[name]; dup {
		panic("storage: RegisterDriver called twice for " + name)
	}

	drivers[name] = d
}

// NewTorrentStore attempts to initialize a new TorrentStore with given a name
// from the list of registered Drivers.
//
// If a driver does not exist, returns ErrDriverDoesNotExist.
func NewTorrentStore(name string, cfg interface{}) (TorrentStore, error) {
	driversM.RLock()
	defer driversM.RUnlock()

	d, ok := drivers[name]
	if !ok {
		return nil, ErrDriverDoesNotExist
	}

	return d.NewTorrentStore(cfg)
}
