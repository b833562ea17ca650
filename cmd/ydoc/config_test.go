package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/pebble"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ydoc.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
dir = "/var/lib/ydoc"
client_id = 42
gc = false
log_level = "debug"
sync = false
`), 0o600))

	conf, err := LoadConfig(path)
	assert.Nil(t, err)
	assert.Equal(t, Config{
		Dir:      "/var/lib/ydoc",
		ClientID: 42,
		GC:       false,
		LogLevel: "debug",
		Sync:     false,
	}, conf)

	opts := conf.StoreOptions(nil)
	assert.Equal(t, pebble.NoSync, opts.WriteOptions)
	_, err = conf.Logger()
	assert.Nil(t, err)
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	conf, err := LoadConfig("")
	assert.Nil(t, err)
	assert.Equal(t, DefaultConfig(), conf)
	assert.Nil(t, conf.StoreOptions(nil).WriteOptions)

	_, err = LoadConfig("missing.toml")
	assert.Error(t, err)
}

func TestLoadConfig_Invalid(t *testing.T) {
	dir := t.TempDir()
	broken := filepath.Join(dir, "broken.toml")
	require.NoError(t, os.WriteFile(broken, []byte("dir = [1,"), 0o600))
	_, err := LoadConfig(broken)
	assert.ErrorContains(t, err, "parse config")

	empty := filepath.Join(dir, "empty.toml")
	require.NoError(t, os.WriteFile(empty, []byte(`dir = ""`), 0o600))
	_, err = LoadConfig(empty)
	assert.ErrorContains(t, err, "empty dir")

	conf := DefaultConfig()
	conf.LogLevel = "loud"
	_, err = conf.Logger()
	assert.Error(t, err)
}
