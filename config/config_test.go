package config_test

import (
	"os"
	"path/filepath"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stevemurr/simple-pos/config"
	"github.com/stevemurr/simple-pos/store"
)

func TestLoadDefaults(t *testing.T) {
	c, err := config.Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "json", c.Backend)
	assert.Equal(t, "./data", c.DataDir)
	assert.Equal(t, store.DefaultCapacity, c.CapacityBytes)
	assert.Equal(t, "127.0.0.1:8080", c.ListenAddr)
	assert.Equal(t, "info", c.LogLevel)
	assert.False(t, c.CascadeCheckout)
	assert.Empty(t, c.AllowedOrigins)
}

func TestLoadEnvironment(t *testing.T) {
	t.Setenv("POS_BACKEND", "memory")
	t.Setenv("POS_CAPACITY_BYTES", "1024")
	t.Setenv("POS_CASCADE_CHECKOUT", "true")
	t.Setenv("POS_LOG_FORMAT", "json")
	t.Setenv("POS_ALLOWED_ORIGINS", "http://localhost:3000,http://127.0.0.1:3000")

	c, err := config.Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "memory", c.Backend)
	assert.Equal(t, int64(1024), c.CapacityBytes)
	assert.True(t, c.CascadeCheckout)
	assert.Equal(t, []string{"http://localhost:3000", "http://127.0.0.1:3000"}, c.AllowedOrigins)

	l := c.Logger()
	assert.IsType(t, &log.JSONFormatter{}, l.Formatter)
	assert.Equal(t, log.InfoLevel, l.GetLevel())
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("POS_DATA_DIR=/var/lib/pos\nPOS_LOG_LEVEL=debug\n"), 0o644))
	t.Cleanup(func() {
		os.Unsetenv("POS_DATA_DIR")
		os.Unsetenv("POS_LOG_LEVEL")
	})

	c, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/pos", c.DataDir)
	assert.Equal(t, log.DebugLevel, c.Logger().GetLevel())
}

func TestLoadRejectsBadValues(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.env")

	t.Setenv("POS_BACKEND", "redis")
	_, err := config.Load(missing)
	assert.Error(t, err)

	t.Setenv("POS_BACKEND", "json")
	t.Setenv("POS_CAPACITY_BYTES", "lots")
	_, err = config.Load(missing)
	assert.Error(t, err)

	t.Setenv("POS_CAPACITY_BYTES", "0")
	_, err = config.Load(missing)
	assert.Error(t, err)

	t.Setenv("POS_CAPACITY_BYTES", "100")
	t.Setenv("POS_LOG_LEVEL", "loud")
	_, err = config.Load(missing)
	assert.Error(t, err)
}

func TestOpenStore(t *testing.T) {
	c := config.Config{Backend: "json", DataDir: t.TempDir(), CapacityBytes: 2048}
	s, err := c.OpenStore()
	require.NoError(t, err)
	assert.Equal(t, int64(2048), s.Capacity())

	require.NoError(t, s.Set("pos_data", []byte(`{}`)))
	assert.ErrorIs(t, s.Set("pos_backup", make([]byte, 4096)), store.ErrQuotaExceeded)
}
