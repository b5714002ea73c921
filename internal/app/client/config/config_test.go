package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	// Arrange
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))

	// Act
	cfg, err := Load("")

	// Assert
	require.NoError(t, err)
	dataDir := filepath.Join(dir, "data", "gophistory")
	assert.Equal(t, EnvProd, cfg.Env)
	assert.Equal(t, dataDir, cfg.DataDir)
	assert.Equal(t, filepath.Join(dataDir, "history.db"), cfg.DBPath)
	assert.Equal(t, filepath.Join(dataDir, "records.db"), cfg.RecordStorePath)
	assert.Equal(t, filepath.Join(dataDir, "key"), cfg.KeyPath)
	assert.Equal(t, "http://127.0.0.1:8888", cfg.SyncAddress)
	assert.True(t, cfg.SyncEnabled)
	assert.True(t, cfg.AutoSync)
	assert.Equal(t, 10*time.Minute, cfg.SyncFrequency)
	assert.Equal(t, 100, cfg.SyncBatchSize)
	assert.Equal(t, 30*time.Second, cfg.NetworkTimeout)
	assert.True(t, cfg.StoreFailed)
	assert.True(t, cfg.SecretsFilter)
	assert.Equal(t, DefaultHistoryFormat, cfg.HistoryFormat)
	assert.Equal(t, FilterModeGlobal, cfg.FilterMode)
}

func TestLoad_FileAndEnv(t *testing.T) {
	// Arrange
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
sync_address: https://relay.example.com
sync_frequency: "0"
store_failed: false
history_filter:
  - "^secret"
data_dir: ` + dir + `
timezone: utc
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("GOPHISTORY_SYNC_BATCH_SIZE", "7")
	t.Setenv("GOPHISTORY_FILTER_MODE", FilterModeSession)

	// Act
	cfg, err := Load(path)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "https://relay.example.com", cfg.SyncAddress)
	assert.Zero(t, cfg.SyncFrequency)
	assert.False(t, cfg.StoreFailed)
	assert.Equal(t, []string{"^secret"}, cfg.HistoryFilter)
	assert.Equal(t, 7, cfg.SyncBatchSize)
	assert.Equal(t, FilterModeSession, cfg.FilterMode)
	assert.Equal(t, filepath.Join(dir, "session"), cfg.SessionPath)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "bad frequency", content: "sync_frequency: often\n"},
		{name: "bad filter mode", content: "filter_mode: everywhere\n"},
		{name: "bad env", content: "env: staging\n"},
		{name: "bad timezone", content: "timezone: Mars/Olympus\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))

			_, err := Load(path)

			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
