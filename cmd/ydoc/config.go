package main

import (
	"log/slog"
	"os"

	"github.com/cockroachdb/pebble"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"

	"github.com/drpcorg/ydoc"
	"github.com/drpcorg/ydoc/store"
	"github.com/drpcorg/ydoc/utils"
)

const defaultConfigFile = "ydoc.toml"

// Config is read from a TOML file; command line flags take precedence.
type Config struct {
	Dir       string `toml:"dir"`
	ClientID  uint64 `toml:"client_id"`
	GC        bool   `toml:"gc"`
	LogLevel  string `toml:"log_level"`
	CacheSize int    `toml:"cache_size"`
	// Sync makes every store write durable before it returns.
	Sync bool `toml:"sync"`
}

func DefaultConfig() Config {
	return Config{
		Dir:      "ydoc.db",
		GC:       true,
		LogLevel: "warn",
		Sync:     true,
	}
}

// LoadConfig reads path over the defaults. A missing default config
// file is not an error, a missing explicit one is.
func LoadConfig(path string) (Config, error) {
	conf := DefaultConfig()
	explicit := path != ""
	if !explicit {
		path = defaultConfigFile
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) && !explicit {
		return conf, nil
	}
	if err != nil {
		return conf, errors.Wrap(err, "read config")
	}
	if err := toml.Unmarshal(data, &conf); err != nil {
		return conf, errors.Wrapf(err, "parse config %s", path)
	}
	if conf.Dir == "" {
		return conf, errors.Errorf("config %s: empty dir", path)
	}
	return conf, nil
}

func (c Config) Logger() (utils.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return nil, errors.Wrapf(err, "log level %q", c.LogLevel)
	}
	return utils.NewDefaultLogger(level), nil
}

func (c Config) DocOptions(log utils.Logger) []ydoc.Option {
	return []ydoc.Option{
		ydoc.WithClientID(c.ClientID),
		ydoc.WithGC(c.GC),
		ydoc.WithLogger(log),
	}
}

func (c Config) StoreOptions(log utils.Logger) store.Options {
	opts := store.Options{
		CacheSize: c.CacheSize,
		Logger:    log,
	}
	if !c.Sync {
		opts.WriteOptions = pebble.NoSync
	}
	return opts
}
