package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJson(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"server_base_url": "https://sync.example.com",
		"database_path": "/tmp/wm.db",
		"sync_interval": "2m",
		"online_check_interval": "5s"
	}`), 0o600))

	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	os.Args = []string{"cmd", "-c", path}

	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)

	assert.Equal(t, "https://sync.example.com", cfg.ServerBaseURL)
	assert.Equal(t, "/tmp/wm.db", cfg.DatabasePath)
	assert.Equal(t, 2*time.Minute, cfg.SyncInterval)
	assert.Equal(t, 5*time.Second, cfg.OnlineCheckInterval)
}

func TestParseJson_NoFlagIsNoop(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	os.Args = []string{"cmd"}

	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)

	assert.Equal(t, "whisper.db", cfg.DatabasePath)
}
