package ydoc

import (
	"log/slog"

	"github.com/drpcorg/ydoc/utils"
)

// Options configure a new document.
type Options struct {
	// ClientID identifies this replica; zero picks a random one.
	ClientID uint64
	// GC drops the payload of deleted content on commit. A document
	// with GC enabled cannot encode state as of a snapshot.
	GC     bool
	Logger utils.Logger
}

func (o *Options) SetDefaults() {
	if o.ClientID == 0 {
		o.ClientID = randomClientID()
	}
	if o.Logger == nil {
		o.Logger = utils.NewDefaultLogger(slog.LevelWarn)
	}
}

type Option func(*Options)

func WithClientID(id uint64) Option {
	return func(o *Options) { o.ClientID = id }
}

func WithGC(gc bool) Option {
	return func(o *Options) { o.GC = gc }
}

func WithLogger(log utils.Logger) Option {
	return func(o *Options) { o.Logger = log }
}

// DefaultOptions has garbage collection on, as documents do unless told
// otherwise.
func DefaultOptions() Options {
	return Options{GC: true}
}
