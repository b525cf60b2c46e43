// Package redis implements the storage interface for a BitTorrent metainfo
// server using Redis as the backend.
//
// Each torrent is stored as a string holding its canonical encoding under
// KEY_PREFIX + "torrent:" + hex infohash. The hex infohashes of all stored
// torrents are also members of the set KEY_PREFIX + "torrents", which backs
// Len.
package redis

import (
	"time"

	redigolib "github.com/gomodule/redigo/redis"
	"github.com/pkg/errors"
	yaml "gopkg.in/yaml.v2"

	"github.com/chihaya/bencode/metainfo"
	"github.com/chihaya/bencode/pkg/log"
	"github.com/chihaya/bencode/pkg/stop"
	"github.com/chihaya/bencode/storage"
)

// Name is the name by which this torrent store is registered.
const Name = "redis"

// Default config constants.
const (
	defaultRedisBroker         = "redis://myRedis@127.0.0.1:6379/0"
	defaultRedisReadTimeout    = time.Second * 15
	defaultRedisWriteTimeout   = time.Second * 15
	defaultRedisConnectTimeout = time.Second * 15
	defaultKeyPrefix           = "bencode:"
)

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

// Config holds the configuration of a redis TorrentStore.
type Config struct {
	RedisBroker         string        `yaml:"redis_broker"`
	RedisReadTimeout    time.Duration `yaml:"redis_read_timeout"`
	RedisWriteTimeout   time.Duration `yaml:"redis_write_timeout"`
	RedisConnectTimeout time.Duration `yaml:"redis_connect_timeout"`
	KeyPrefix           string        `yaml:"key_prefix"`
}

// LogFields renders the current config as a set of Logrus fields.
func (cfg Config) LogFields() log.Fields {
	return log.Fields{
		"name":                Name,
		"redisBroker":         cfg.RedisBroker,
		"redisReadTimeout":    cfg.RedisReadTimeout,
		"redisWriteTimeout":   cfg.RedisWriteTimeout,
		"redisConnectTimeout": cfg.RedisConnectTimeout,
		"keyPrefix":           cfg.KeyPrefix,
	}
}

// Validate sanity checks values set in a config and returns a new config with
// default values replacing anything that is invalid.
//
// This function warns to the logger when a value is changed.
func (cfg Config) Validate() Config {
	validcfg := cfg

	if cfg.RedisBroker == "" {
		validcfg.RedisBroker = defaultRedisBroker
		log.Warn("falling back to default configuration", log.Fields{
			"name":     Name + ".RedisBroker",
			"provided": cfg.RedisBroker,
			"default":  validcfg.RedisBroker,
		})
	}

	if cfg.RedisReadTimeout <= 0 {
		validcfg.RedisReadTimeout = defaultRedisReadTimeout
		log.Warn("falling back to default configuration", log.Fields{
			"name":     Name + ".RedisReadTimeout",
			"provided": cfg.RedisReadTimeout,
			"default":  validcfg.RedisReadTimeout,
		})
	}

	if cfg.RedisWriteTimeout <= 0 {
		validcfg.RedisWriteTimeout = defaultRedisWriteTimeout
		log.Warn("falling back to default configuration", log.Fields{
			"name":     Name + ".RedisWriteTimeout",
			"provided": cfg.RedisWriteTimeout,
			"default":  validcfg.RedisWriteTimeout,
		})
	}

	if cfg.RedisConnectTimeout <= 0 {
		validcfg.RedisConnectTimeout = defaultRedisConnectTimeout
		log.Warn("falling back to default configuration", log.Fields{
			"name":     Name + ".RedisConnectTimeout",
			"provided": cfg.RedisConnectTimeout,
			"default":  validcfg.RedisConnectTimeout,
		})
	}

	if cfg.KeyPrefix == "" {
		validcfg.KeyPrefix = defaultKeyPrefix
		log.Warn("falling back to default configuration", log.Fields{
			"name":     Name + ".KeyPrefix",
			"provided": cfg.KeyPrefix,
			"default":  validcfg.KeyPrefix,
		})
	}

	return validcfg
}

// New creates a new TorrentStore backed by redis.
func New(provided Config) (storage.TorrentStore, error) {
	cfg := provided.Validate()

	u, err := parseRedisURL(cfg.RedisBroker)
	if err != nil {
		return nil, err
	}

	rc := &redisConnector{
		URL:            u,
		ReadTimeout:    cfg.RedisReadTimeout,
		WriteTimeout:   cfg.RedisWriteTimeout,
		ConnectTimeout: cfg.RedisConnectTimeout,
	}

	return &torrentStore{
		cfg:  cfg,
		pool: rc.NewPool(),
	}, nil
}

type torrentStore struct {
	cfg  Config
	pool *redigolib.Pool
}

var _ storage.TorrentStore = &torrentStore{}

func (ts *torrentStore) torrentKey(ih metainfo.InfoHash) string {
	return ts.cfg.KeyPrefix + "torrent:" + ih.String()
}

func (ts *torrentStore) indexKey() string {
	return ts.cfg.KeyPrefix + "torrents"
}

func (ts *torrentStore) PutTorrent(mi *metainfo.MetaInfo) error {
	ih := mi.ID()

	conn := ts.pool.Get()
	defer conn.Close()

	if err := conn.Send("MULTI"); err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	if err := conn.Send("SET", ts.torrentKey(ih), mi.Bytes()); err != nil {
		return errors.Wrap(err, "failed to queue SET")
	}
	if err := conn.Send("SADD", ts.indexKey(), ih.String()); err != nil {
		return errors.Wrap(err, "failed to queue SADD")
	}
	if _, err := conn.Do("EXEC"); err != nil {
		return errors.Wrapf(err, "failed to store torrent %s", ih)
	}

	return nil
}

func (ts *torrentStore) GetTorrent(ih metainfo.InfoHash) ([]byte, error) {
	conn := ts.pool.Get()
	defer conn.Close()

	buf, err := redigolib.Bytes(conn.Do("GET", ts.torrentKey(ih)))
	if err == redigolib.ErrNil {
		return nil, storage.ErrResourceDoesNotExist
	} else if err != nil {
		return nil, errors.Wrapf(err, "failed to get torrent %s", ih)
	}

	return buf, nil
}

func (ts *torrentStore) DeleteTorrent(ih metainfo.InfoHash) error {
	conn := ts.pool.Get()
	defer conn.Close()

	if err := conn.Send("MULTI"); err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	if err := conn.Send("DEL", ts.torrentKey(ih)); err != nil {
		return errors.Wrap(err, "failed to queue DEL")
	}
	if err := conn.Send("SREM", ts.indexKey(), ih.String()); err != nil {
		return errors.Wrap(err, "failed to queue SREM")
	}
	replies, err := redigolib.Values(conn.Do("EXEC"))
	if err != nil {
		return errors.Wrapf(err, "failed to delete torrent %s", ih)
	}

	deleted, err := redigolib.Int(replies[0], nil)
	if err != nil {
		return errors.Wrap(err, "unexpected DEL reply")
	}
	if deleted == 0 {
		return storage.ErrResourceDoesNotExist
	}

	return nil
}

func (ts *torrentStore) Len() (int, error) {
	conn := ts.pool.Get()
	defer conn.Close()

	n, err := redigolib.Int(conn.Do("SCARD", ts.indexKey()))
	if err != nil {
		return 0, errors.Wrap(err, "failed to count torrents")
	}
	return n, nil
}

func (ts *torrentStore) Stop() stop.Result {
	c := make(stop.Channel)
	go func() {
		c.Done(ts.pool.Close())
	}()

	return c.Result()
}

func (ts *torrentStore) LogFields() log.Fields {
	return ts.cfg.LogFields()
}
