package main

import (
	"io/ioutil"
	"os"

	"github.com/pkg/errors"
	yaml "gopkg.in/yaml.v2"

	"github.com/chihaya/bencode/bencode"
	httpfrontend "github.com/chihaya/bencode/frontend/http"
	"github.com/chihaya/bencode/pkg/log"

	// Imports to register storage drivers.
	_ "github.com/chihaya/bencode/storage/memory"
	_ "github.com/chihaya/bencode/storage/redis"
)

type storageConfig struct {
	Name   string      `yaml:"name"`
	Config interface{} `yaml:"config"`
}

// Config represents the configuration used for serving bencode over HTTP.
type Config struct {
	PrometheusAddr string              `yaml:"prometheus_addr"`
	Limits         bencode.Limits      `yaml:"limits"`
	HTTPConfig     httpfrontend.Config `yaml:"http"`
	Storage        storageConfig       `yaml:"storage"`
}

// Validate fills in the decoder limits and storage driver when they are not
// configured.
//
// This function warns to the logger when a value is changed.
func (cfg Config) Validate() Config {
	validcfg := cfg

	if cfg.Limits.MaxDepth <= 0 {
		validcfg.Limits.MaxDepth = bencode.DefaultMaxDepth
		log.Warn("falling back to default configuration", log.Fields{
			"name":     "Limits.MaxDepth",
			"provided": cfg.Limits.MaxDepth,
			"default":  validcfg.Limits.MaxDepth,
		})
	}

	if cfg.Storage.Name == "" {
		validcfg.Storage.Name = "memory"
		log.Warn("falling back to default configuration", log.Fields{
			"name":     "Storage.Name",
			"provided": cfg.Storage.Name,
			"default":  validcfg.Storage.Name,
		})
	}

	return validcfg
}

// ConfigFile represents a namespaced YAML configuration file.
type ConfigFile struct {
	Bencode Config `yaml:"bencode"`
}

// ParseConfigFile returns a new ConfigFile given the path to a YAML
// configuration file.
//
// It supports relative and absolute paths and environment variables.
func ParseConfigFile(path string) (*ConfigFile, error) {
	if path == "" {
		return nil, errors.New("no config path specified")
	}

	f, err := os.Open(os.ExpandEnv(path))
	if err != nil {
		return nil, errors.Wrap(err, "failed to open config")
	}
	defer f.Close()

	contents, err := ioutil.ReadAll(f)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config")
	}

	var cfgFile ConfigFile
	err = yaml.Unmarshal(contents, &cfgFile)
	if err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}

	return &cfgFile, nil
}
