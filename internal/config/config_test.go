package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, 512, cfg.EncodingDim)
	assert.Equal(t, 0.85, cfg.Threshold)
	assert.Equal(t, 100, cfg.StatsWindow)
	assert.Equal(t, "UTC", cfg.Timezone)
	assert.Equal(t, "cosine", cfg.Recognizer.OracleMode)
	assert.Equal(t, 2*time.Second, cfg.Recognizer.Timeout())
	assert.Equal(t, time.UTC, cfg.Location())
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
addr = ":8088"
encoding_dim = 128
threshold = 0.9
timezone = "America/New_York"

[recognizer]
endpoint = "http://recognizer:5000"
oracle_mode = "remote"
timeout_ms = 500
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":8088", cfg.Addr)
	assert.Equal(t, 128, cfg.EncodingDim)
	assert.Equal(t, 0.9, cfg.Threshold)
	assert.Equal(t, "remote", cfg.Recognizer.OracleMode)
	assert.Equal(t, 500*time.Millisecond, cfg.Recognizer.Timeout())
	assert.Equal(t, "America/New_York", cfg.Location().String())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "7070")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Addr)

	t.Setenv("FACEID_ADDR", "0.0.0.0:6060")
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:6060", cfg.Addr)
}

func TestLoadValidation(t *testing.T) {
	cases := []string{
		"threshold = 1.5",
		"encoding_dim = 0",
		"stats_window = -1",
		`timezone = "Mars/Olympus"`,
		"[recognizer]\noracle_mode = \"psychic\"",
	}
	for _, body := range cases {
		path := filepath.Join(t.TempDir(), "config.toml")
		require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
		_, err := Load(path)
		assert.Error(t, err, body)
	}
}
