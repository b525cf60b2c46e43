package main

import (
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	httpfrontend "github.com/chihaya/bencode/frontend/http"
	"github.com/chihaya/bencode/pkg/log"
	"github.com/chihaya/bencode/pkg/metrics"
	"github.com/chihaya/bencode/pkg/stop"
	"github.com/chihaya/bencode/storage"
)

// Run represents the state of a running instance of the server.
type Run struct {
	configFilePath string
	store          storage.TorrentStore
	sg             *stop.Group
}

// NewRun runs an instance of the server.
func NewRun(configFilePath string) (*Run, error) {
	r := &Run{
		configFilePath: configFilePath,
	}

	return r, r.Start(nil)
}

// Start begins an instance of the server.
//
// It is optional to provide an instance of the torrent store to avoid the
// creation of a new one.
func (r *Run) Start(ts storage.TorrentStore) error {
	configFile, err := ParseConfigFile(r.configFilePath)
	if err != nil {
		return errors.Wrap(err, "failed to read config")
	}
	cfg := configFile.Bencode.Validate()

	r.sg = stop.NewGroup()

	if cfg.PrometheusAddr != "" {
		log.Info("starting metrics server", log.Fields{"addr": cfg.PrometheusAddr})
		r.sg.Add(metrics.NewServer(cfg.PrometheusAddr))
	} else {
		log.Info("metrics disabled because of empty address")
	}

	if ts == nil {
		log.Info("starting storage", log.Fields{"name": cfg.Storage.Name})
		ts, err = storage.NewTorrentStore(cfg.Storage.Name, cfg.Storage.Config)
		if err != nil {
			return errors.Wrap(err, "failed to create torrent store")
		}
	}
	r.store = ts

	log.Info("starting HTTP frontend", cfg.HTTPConfig, log.Map(cfg.Limits))
	httpfe, err := httpfrontend.NewFrontend(r.store, cfg.Limits, cfg.HTTPConfig)
	if err != nil {
		return errors.Wrap(err, "failed to start HTTP frontend")
	}
	r.sg.Add(httpfe)

	return nil
}

func combineErrors(prefix string, errs []error) error {
	errStrs := make([]string, 0, len(errs))
	for _, err := range errs {
		errStrs = append(errStrs, err.Error())
	}

	return errors.New(prefix + ": " + strings.Join(errStrs, "; "))
}

// Stop shuts down an instance of the server.
func (r *Run) Stop(keepStore bool) (storage.TorrentStore, error) {
	log.Debug("stopping frontends and metrics server")
	if errs := r.sg.Stop().Wait(); len(errs) != 0 {
		return nil, combineErrors("failed while shutting down frontends", errs)
	}

	if !keepStore {
		log.Debug("stopping torrent store")
		if errs := r.store.Stop().Wait(); len(errs) != 0 {
			return nil, combineErrors("failed while shutting down torrent store", errs)
		}
		r.store = nil
	}

	return r.store, nil
}

// ServeCmdFunc implements a Cobra command that runs an instance of the server
// and handles reloading and shutdown via process signals.
func ServeCmdFunc(cmd *cobra.Command, args []string) error {
	configFilePath, err := cmd.Flags().GetString("config")
	if err != nil {
		return err
	}

	r, err := NewRun(configFilePath)
	if err != nil {
		return err
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	reload := makeReloadChan()

	for {
		select {
		case <-reload:
			log.Info("reloading; received reload signal")
			ts, err := r.Stop(true)
			if err != nil {
				return err
			}

			if err := r.Start(ts); err != nil {
				return err
			}
		case <-quit:
			log.Info("shutting down; received shutdown signal")
			if _, err := r.Stop(false); err != nil {
				return err
			}

			return nil
		}
	}
}
