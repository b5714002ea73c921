package client

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestState_SaveLoad(t *testing.T) {
	// Arrange
	path := filepath.Join(t.TempDir(), "state.json")
	empty, err := LoadState(path)
	require.NoError(t, err)
	assert.True(t, empty.LastSync.IsZero())

	state := &State{LastSync: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), LastVersion: "1.0.0"}

	// Act
	require.NoError(t, state.Save(path))
	loaded, err := LoadState(path)

	// Assert
	require.NoError(t, err)
	assert.True(t, state.LastSync.Equal(loaded.LastSync))
	assert.Equal(t, "1.0.0", loaded.LastVersion)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLoadState_Corrupted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))

	_, err := LoadState(path)
	assert.Error(t, err)
}

func TestState_SyncDue(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		lastSync  time.Time
		frequency time.Duration
		want      bool
	}{
		{name: "never synced", frequency: time.Hour, want: true},
		{name: "every command", lastSync: now, frequency: 0, want: true},
		{name: "too early", lastSync: now.Add(-time.Minute), frequency: time.Hour, want: false},
		{name: "due", lastSync: now.Add(-time.Hour), frequency: time.Hour, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &State{LastSync: tt.lastSync}
			assert.Equal(t, tt.want, s.SyncDue(tt.frequency, now))
		})
	}
}

func TestLoadHostID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "host_id")

	first, err := LoadHostID(path)
	require.NoError(t, err)
	second, err := LoadHostID(path)
	require.NoError(t, err)

	assert.NotEmpty(t, first)
	assert.Equal(t, first, second)
}

func TestLoadHostID_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "host_id")
	require.NoError(t, os.WriteFile(path, []byte("not a host"), 0o600))

	_, err := LoadHostID(path)
	assert.Error(t, err)
}

func TestSession(t *testing.T) {
	s := NewSession(filepath.Join(t.TempDir(), "session"))

	_, err := s.Token()
	assert.ErrorIs(t, err, ErrNotLoggedIn)
	assert.False(t, s.LoggedIn())

	require.NoError(t, s.Save("secret-token"))
	token, err := s.Token()
	require.NoError(t, err)
	assert.Equal(t, "secret-token", token)
	assert.True(t, s.LoggedIn())

	require.NoError(t, s.Clear())
	require.NoError(t, s.Clear())
	assert.False(t, s.LoggedIn())
}
