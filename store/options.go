package store

import (
	"log/slog"

	"github.com/cockroachdb/pebble"

	"github.com/drpcorg/ydoc/utils"
)

type Options struct {
	pebble.Options

	// CacheSize bounds the number of documents whose state vector is
	// kept decoded in memory.
	CacheSize int
	Logger    utils.Logger
	// WriteOptions apply to every write; pebble.Sync unless set.
	WriteOptions *pebble.WriteOptions
}

func (o *Options) SetDefaults() {
	if o.CacheSize <= 0 {
		o.CacheSize = 1024
	}
	if o.Logger == nil {
		o.Logger = utils.NewDefaultLogger(slog.LevelWarn)
	}
	if o.WriteOptions == nil {
		o.WriteOptions = pebble.Sync
	}
	o.Merger = &pebble.Merger{
		Name:  mergerName,
		Merge: vectorMerger,
	}
}
