// Package memory implements the storage interface for a BitTorrent metainfo
// server by keeping the canonical encodings in sharded maps.
package memory

import (
	"encoding/binary"
	"sync"

	yaml "gopkg.in/yaml.v2"

	"github.com/chihaya/bencode/metainfo"
	"github.com/chihaya/bencode/pkg/log"
	"github.com/chihaya/bencode/pkg/stop"
	"github.com/chihaya/bencode/storage"
)

// Name is the name by which this torrent store is registered.
const Name = "memory"

// Default config constants.
const defaultShardCount = 1024

func init() {
	// Register the storage driver.
	storage.RegisterDriver(Name, driver{})
}

type driver struct{}

func (d driver) NewTorrentStore(icfg interface{}) (storage.TorrentStore, error) {
	// Marshal the config back into bytes.
	bytes, err := yaml.Marshal(icfg)
	if err != nil {
		return nil, err
	}

	// Unmarshal the bytes into the proper config type.
	var cfg Config
	err = yaml.Unmarshal(bytes, &cfg)
	if err != nil {
		return nil, err
	}

	return New(cfg)
}

// Config holds the configuration of a memory TorrentStore.
type Config struct {
	ShardCount int `yaml:"shard_count"`
}

// LogFields renders the current config as a set of Logrus fields.
func (cfg Config) LogFields() log.Fields {
	return log.Fields{
		"name":       Name,
		"shardCount": cfg.ShardCount,
	}
}

// Validate sanity checks values set in a config and returns a new config with
// default values replacing anything that is invalid.
//
// This function warns to the logger when a value is changed.
func (cfg Config) Validate() Config {
	validcfg := cfg

	if cfg.ShardCount <= 0 {
		validcfg.ShardCount = defaultShardCount
		log.Warn("falling back to default configuration", log.Fields{
			"name":     Name + ".ShardCount",
			"provided": cfg.ShardCount,
			"default":  validcfg.ShardCount,
		})
	}

	return validcfg
}

// New creates a new TorrentStore backed by memory.
func New(provided Config) (storage.TorrentStore, error) {
	cfg := provided.Validate()
	ts := &torrentStore{
		cfg:    cfg,
		shards: make([]*torrentShard, cfg.ShardCount),
		closed: make(chan struct{}),
	}

	for i := range ts.shards {
		ts.shards[i] = &torrentShard{torrents: make(map[metainfo.InfoHash][]byte)}
	}

	return ts, nil
}

type torrentShard struct {
	torrents map[metainfo.InfoHash][]byte
	bytes    int
	sync.RWMutex
}

type torrentStore struct {
	cfg    Config
	shards []*torrentShard
	closed chan struct{}
}

var _ storage.TorrentStore = &torrentStore{}

func (ts *torrentStore) shardIndex(infoHash metainfo.InfoHash) uint32 {
	return binary.BigEndian.Uint32(infoHash[:4]) % uint32(len(ts.shards))
}

func (ts *torrentStore) checkOpen() {
	select {
	case <-ts.closed:
		panic("attempted to interact with stopped memory store")
	default:
	}
}

func (ts *torrentStore) PutTorrent(mi *metainfo.MetaInfo) error {
	ts.checkOpen()

	ih := mi.ID()
	buf := mi.Bytes()

	shard := ts.shards[ts.shardIndex(ih)]
	shard.Lock()
	defer shard.Unlock()
	ts.checkOpen()

	old, exists := shard.torrents[ih]
	shard.torrents[ih] = buf
	shard.bytes += len(buf) - len(old)

	// Gauges only change under the shard lock.
	if !exists {
		storage.PromTorrentsCount.Inc()
	}
	storage.PromTorrentBytes.Add(float64(len(buf) - len(old)))

	return nil
}

func (ts *torrentStore) GetTorrent(ih metainfo.InfoHash) ([]byte, error) {
	ts.checkOpen()

	shard := ts.shards[ts.shardIndex(ih)]
	shard.RLock()
	buf, ok := shard.torrents[ih]
	shard.RUnlock()

	if !ok {
		return nil, storage.ErrResourceDoesNotExist
	}

	return append([]byte(nil), buf...), nil
}

func (ts *torrentStore) DeleteTorrent(ih metainfo.InfoHash) error {
	ts.checkOpen()

	shard := ts.shards[ts.shardIndex(ih)]
	shard.Lock()
	defer shard.Unlock()

	buf, ok := shard.torrents[ih]
	if !ok {
		return storage.ErrResourceDoesNotExist
	}

	delete(shard.torrents, ih)
	shard.bytes -= len(buf)
	storage.PromTorrentsCount.Dec()
	storage.PromTorrentBytes.Sub(float64(len(buf)))

	return nil
}

func (ts *torrentStore) Len() (int, error) {
	ts.checkOpen()

	var n int
	for _, shard := range ts.shards {
		shard.RLock()
		n += len(shard.torrents)
		shard.RUnlock()
	}
	return n, nil
}

func (ts *torrentStore) Stop() stop.Result {
	c := make(stop.Channel)
	go func() {
		close(ts.closed)

		// Empty each shard in place under its own lock.
		for _, shard := range ts.shards {
			shard.Lock()
			storage.PromTorrentsCount.Sub(float64(len(shard.torrents)))
			storage.PromTorrentBytes.Sub(float64(shard.bytes))
			shard.torrents = make(map[metainfo.InfoHash][]byte)
			shard.bytes = 0
			shard.Unlock()
		}

		c.Done()
	}()

	return c.Result()
}

func (ts *torrentStore) LogFields() log.Fields {
	return ts.cfg.LogFields()
}
