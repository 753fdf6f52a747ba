package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFileDefaults(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, int64(200<<20), cfg.Media.MaxBytes)
	assert.Equal(t, 2*time.Minute, cfg.Media.UploadTimeout)
	assert.Len(t, cfg.RoomNames(), 25)
	assert.Greater(t, cfg.WSReadLimit(), cfg.Media.MaxBytes)
}

func TestLoadFileOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.test.yaml")
	yaml := `
port: 8081
rooms: ["종로구", "중구"]
store:
  driver: postgres
  dsn: postgres://chat@localhost/chat
media:
  max_bytes: 1024
  upload_timeout: 3s
presence:
  interval: 0s
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	t.Setenv("CHATRELAY_SHORTENER_ENDPOINT", "http://short.local/api/v1/urls")

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 8081, cfg.Port)
	assert.Equal(t, []string{"종로구", "중구"}, cfg.Rooms)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, int64(1024), cfg.Media.MaxBytes)
	assert.Equal(t, 3*time.Second, cfg.Media.UploadTimeout)
	assert.Equal(t, time.Duration(0), cfg.Presence.Interval)
	assert.Equal(t, "http://short.local/api/v1/urls", cfg.Shortener.Endpoint)
}

func TestLoadFileRejectsZeroPayloadCap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("media:\n  max_bytes: 0\n"), 0o600))
	_, err := LoadFile(path)
	require.Error(t, err)
}
