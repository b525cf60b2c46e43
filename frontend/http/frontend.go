// Package http implements an HTTP frontend that canonicalizes bencoded
// documents and stores torrents by infohash.
package http

import (
	"context"
	"errors"
	"io"
	"io/ioutil"
	"net"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/chihaya/bencode/bencode"
	"github.com/chihaya/bencode/metainfo"
	"github.com/chihaya/bencode/pkg/log"
	"github.com/chihaya/bencode/pkg/stop"
	"github.com/chihaya/bencode/storage"
)

// Config represents all of the configurable options for an HTTP Frontend.
type Config struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
	MaxBodySize  int64         `yaml:"max_body_size"`
}

// LogFields renders the current config as a set of Logrus fields.
func (cfg Config) LogFields() log.Fields {
	return log.Fields{
		"addr":         cfg.Addr,
		"readTimeout":  cfg.ReadTimeout,
		"writeTimeout": cfg.WriteTimeout,
		"idleTimeout":  cfg.IdleTimeout,
		"maxBodySize":  cfg.MaxBodySize,
	}
}

// Default config constants.
const (
	defaultAddr         = "0.0.0.0:6880"
	defaultReadTimeout  = 2 * time.Second
	defaultWriteTimeout = 2 * time.Second
	defaultIdleTimeout  = 30 * time.Second
	defaultMaxBodySize  = 10 << 20
)

// Validate sanity checks values set in a config and returns a new config with
// default values replacing anything that is invalid.
//
// This function warns to the logger when a value is changed.
func (cfg Config) Validate() Config {
	validcfg := cfg

	if cfg.Addr == "" {
		validcfg.Addr = defaultAddr
		log.Warn("falling back to default configuration", log.Fields{
			"name":     "http.Addr",
			"provided": cfg.Addr,
			"default":  validcfg.Addr,
		})
	}

	if cfg.ReadTimeout <= 0 {
		validcfg.ReadTimeout = defaultReadTimeout
		log.Warn("falling back to default configuration", log.Fields{
			"name":     "http.ReadTimeout",
			"provided": cfg.ReadTimeout,
			"default":  validcfg.ReadTimeout,
		})
	}

	if cfg.WriteTimeout <= 0 {
		validcfg.WriteTimeout = defaultWriteTimeout
		log.Warn("falling back to default configuration", log.Fields{
			"name":     "http.WriteTimeout",
			"provided": cfg.WriteTimeout,
			"default":  validcfg.WriteTimeout,
		})
	}

	if cfg.IdleTimeout <= 0 {
		validcfg.IdleTimeout = defaultIdleTimeout
		log.Warn("falling back to default configuration", log.Fields{
			"name":     "http.IdleTimeout",
			"provided": cfg.IdleTimeout,
			"default":  validcfg.IdleTimeout,
		})
	}

	if cfg.MaxBodySize <= 0 {
		validcfg.MaxBodySize = defaultMaxBodySize
		log.Warn("falling back to default configuration", log.Fields{
			"name":     "http.MaxBodySize",
			"provided": cfg.MaxBodySize,
			"default":  validcfg.MaxBodySize,
		})
	}

	return validcfg
}

// Frontend holds the state of an HTTP Frontend.
type Frontend struct {
	srv    *http.Server
	store  storage.TorrentStore
	limits bencode.Limits

	Config
}

// NewFrontend creates a new instance of an HTTP Frontend that asynchronously
// serves requests.
func NewFrontend(store storage.TorrentStore, limits bencode.Limits, provided Config) (*Frontend, error) {
	cfg := provided.Validate()

	f := &Frontend{
		store:  store,
		limits: limits,
		Config: cfg,
	}

	ln, err := net.Listen("tcp", f.Addr)
	if err != nil {
		return nil, err
	}

	f.srv = &http.Server{
		Addr:         f.Addr,
		Handler:      f.Handler(),
		ReadTimeout:  f.ReadTimeout,
		WriteTimeout: f.WriteTimeout,
		IdleTimeout:  f.IdleTimeout,
	}

	go func() {
		if err := f.srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("failed while serving http", log.Err(err))
		}
	}()

	return f, nil
}

// Stop provides a thread-safe way to shutdown a currently running Frontend.
func (f *Frontend) Stop() stop.Result {
	c := make(stop.Channel)
	go func() {
		c.Done(f.srv.Shutdown(context.Background()))
	}()

	return c.Result()
}

// Handler returns the routes served by a Frontend.
func (f *Frontend) Handler() http.Handler {
	router := httprouter.New()
	router.POST("/canonicalize", f.canonicalizeRoute)
	router.PUT("/torrents", f.putTorrentRoute)
	router.GET("/torrents/:infohash", f.getTorrentRoute)
	router.DELETE("/torrents/:infohash", f.deleteTorrentRoute)
	return router
}

// readBody reads the whole request body, refusing anything larger than
// MaxBodySize.
func (f *Frontend) readBody(r *http.Request) ([]byte, error) {
	body, err := ioutil.ReadAll(io.LimitReader(r.Body, f.MaxBodySize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > f.MaxBodySize {
		return nil, ErrRequestTooLarge
	}
	return body, nil
}

// canonicalizeRoute decodes the request body and responds with its canonical
// encoding.
func (f *Frontend) canonicalizeRoute(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var err error
	start := time.Now()
	defer func() { recordResponseDuration("canonicalize", err, time.Since(start)) }()

	body, err := f.readBody(r)
	if err != nil {
		_ = WriteError(w, err)
		return
	}

	v, err := bencode.DecodeLimits(body, f.limits)
	if err != nil {
		_ = WriteError(w, err)
		return
	}

	err = WriteCanonical(w, v)
}

// putTorrentRoute parses the request body as a torrent and stores it.
func (f *Frontend) putTorrentRoute(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var err error
	start := time.Now()
	defer func() { recordResponseDuration("put", err, time.Since(start)) }()

	body, err := f.readBody(r)
	if err != nil {
		_ = WriteError(w, err)
		return
	}

	mi, err := metainfo.Parse(body, f.limits)
	if err != nil {
		_ = WriteError(w, err)
		return
	}

	if err = f.store.PutTorrent(mi); err != nil {
		_ = WriteError(w, err)
		return
	}

	log.Debug("http: stored torrent", log.Map(mi))
	err = WritePutResponse(w, mi)
}

// getTorrentRoute responds with the canonical encoding of a stored torrent.
func (f *Frontend) getTorrentRoute(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	var err error
	start := time.Now()
	defer func() { recordResponseDuration("get", err, time.Since(start)) }()

	ih, err := metainfo.ParseInfoHash(p.ByName("infohash"))
	if err != nil {
		err = ErrInvalidInfoHash
		_ = WriteError(w, err)
		return
	}

	buf, err := f.store.GetTorrent(ih)
	if err != nil {
		_ = WriteError(w, err)
		return
	}

	err = WriteTorrent(w, buf)
}

// deleteTorrentRoute removes a stored torrent.
func (f *Frontend) deleteTorrentRoute(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	var err error
	start := time.Now()
	defer func() { recordResponseDuration("delete", err, time.Since(start)) }()

	ih, err := metainfo.ParseInfoHash(p.ByName("infohash"))
	if err != nil {
		err = ErrInvalidInfoHash
		_ = WriteError(w, err)
		return
	}

	if err = f.store.DeleteTorrent(ih); err != nil {
		_ = WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
