package sync

import (
	"errors"
	"testing"

	"gophistory/internal/app/client"
	"gophistory/internal/domain/record"

	"github.com/stretchr/testify/assert"
)

func TestDescribe(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		contains string
	}{
		{
			name:     "relay newer",
			err:      &record.VersionMismatchError{Client: "1.0.0", Server: "2.0.0"},
			contains: "обновите gophistory",
		},
		{
			name:     "client newer",
			err:      &record.VersionMismatchError{Client: "2.1.0", Server: "1.4.0"},
			contains: "обновите relay",
		},
		{
			name:     "network",
			err:      &record.NetworkError{Op: "status", Err: errors.New("connection refused")},
			contains: "relay недоступен",
		},
		{
			name:     "other",
			err:      errors.New("boom"),
			contains: "ошибка синхронизации",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := describe(tt.err)

			assert.ErrorIs(t, got, tt.err)
			assert.Contains(t, got.Error(), tt.contains)
		})
	}
}

func TestDescribe_InProgressUnchanged(t *testing.T) {
	assert.Equal(t, client.ErrSyncInProgress, describe(client.ErrSyncInProgress))
}
