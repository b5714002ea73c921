package sync

import (
	"context"
	"errors"
	"testing"

	"gophistory/internal/domain/record"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

// MockRepository is a mock implementation of the Repository interface for testing
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Status(ctx context.Context, userID int64) (record.Status, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(record.Status), args.Error(1)
}

func (m *MockRepository) Next(ctx context.Context, userID int64, host record.HostID, tag record.Tag, start record.Idx, limit int) ([]record.Record, error) {
	args := m.Called(ctx, userID, host, tag, start, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]record.Record), args.Error(1)
}

func (m *MockRepository) Append(ctx context.Context, userID int64, groups []Group) error {
	args := m.Called(ctx, userID, groups)
	return args.Error(0)
}

const (
	hostA record.HostID = "0190a1b2c3d4e5f60718293a4b5c6d7e"
	hostB record.HostID = "0190a1b2c3d4e5f60718293a4b5c6d7f"
)

func rec(host record.HostID, idx record.Idx) record.Record {
	return record.Record{
		Host:    host,
		Tag:     "history",
		Idx:     idx,
		Version: "v0",
		Data:    record.EncryptedData{Ciphertext: []byte{1}, Nonce: []byte{1}},
	}
}

func TestService_Status(t *testing.T) {
	mockRepo := new(MockRepository)
	service := NewService(mockRepo, slog.Default(), &ServiceConfig{PageSize: 50})

	status := record.NewStatus()
	status.Set(hostA, "history", 4)
	mockRepo.On("Status", mock.Anything, int64(7)).Return(status, nil)

	snapshot, err := service.Status(context.Background(), 7)

	require.NoError(t, err)
	assert.Equal(t, 50, snapshot.PageSize)
	assert.Equal(t, status, snapshot.Hosts)
	mockRepo.AssertExpectations(t)
}

func TestService_Next_ClampsCount(t *testing.T) {
	tests := []struct {
		name      string
		count     int
		wantLimit int
	}{
		{name: "within page", count: 10, wantLimit: 10},
		{name: "above page", count: 5000, wantLimit: 100},
		{name: "zero means page", count: 0, wantLimit: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockRepository)
			service := NewService(mockRepo, slog.Default(), nil)
			mockRepo.On("Next", mock.Anything, int64(1), hostA, record.Tag("history"), record.Idx(3), tt.wantLimit).
				Return([]record.Record{rec(hostA, 3)}, nil)

			records, err := service.Next(context.Background(), 1, hostA, "history", 3, tt.count)

			require.NoError(t, err)
			assert.Len(t, records, 1)
			mockRepo.AssertExpectations(t)
		})
	}
}

func TestService_Next_Errors(t *testing.T) {
	mockRepo := new(MockRepository)
	service := NewService(mockRepo, slog.Default(), nil)
	mockRepo.On("Next", mock.Anything, int64(1), hostA, record.Tag("history"), record.Idx(9), 100).
		Return(nil, record.ErrOutOfRange)

	_, err := service.Next(context.Background(), 1, hostA, "history", 9, 0)
	assert.ErrorIs(t, err, record.ErrOutOfRange)

	_, err = service.Next(context.Background(), 1, "", "history", 0, 0)
	assert.ErrorIs(t, err, record.ErrInvalidRecord)
}

func TestService_Upload_GroupsInArrivalOrder(t *testing.T) {
	// Arrange
	mockRepo := new(MockRepository)
	service := NewService(mockRepo, slog.Default(), nil)
	batch := []record.Record{rec(hostB, 0), rec(hostA, 5), rec(hostB, 1), rec(hostA, 6)}

	want := []Group{
		{Stream: record.Stream{Host: hostB, Tag: "history"}, Records: []record.Record{rec(hostB, 0), rec(hostB, 1)}},
		{Stream: record.Stream{Host: hostA, Tag: "history"}, Records: []record.Record{rec(hostA, 5), rec(hostA, 6)}},
	}
	mockRepo.On("Append", mock.Anything, int64(2), want).Return(nil)

	// Act
	res, err := service.Upload(context.Background(), 2, batch)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 4, res.Accepted)
	assert.Equal(t, []record.Stream{want[0].Stream, want[1].Stream}, res.Streams)
	mockRepo.AssertExpectations(t)
}

func TestService_Upload_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		batch   []record.Record
		wantErr error
	}{
		{name: "empty", batch: nil, wantErr: ErrEmptyBatch},
		{name: "too large", batch: []record.Record{rec(hostA, 0), rec(hostA, 1), rec(hostA, 2)}, wantErr: ErrBatchTooLarge},
		{name: "gap inside batch", batch: []record.Record{rec(hostA, 0), rec(hostA, 2)}, wantErr: record.ErrNotContiguous},
		{name: "invalid record", batch: []record.Record{{Host: hostA, Tag: "history"}}, wantErr: record.ErrInvalidRecord},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockRepository)
			service := NewService(mockRepo, slog.Default(), &ServiceConfig{MaxBatchSize: 2})

			_, err := service.Upload(context.Background(), 1, tt.batch)

			assert.ErrorIs(t, err, tt.wantErr)
			mockRepo.AssertNotCalled(t, "Append", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestService_Upload_UnexpectedIdx(t *testing.T) {
	mockRepo := new(MockRepository)
	service := NewService(mockRepo, slog.Default(), nil)
	rejected := &record.UnexpectedIdxError{Host: hostA, Tag: "history", Expected: 2, Got: 0}
	mockRepo.On("Append", mock.Anything, int64(1), mock.Anything).Return(rejected)

	_, err := service.Upload(context.Background(), 1, []record.Record{rec(hostA, 0)})

	var idxErr *record.UnexpectedIdxError
	require.True(t, errors.As(err, &idxErr))
	assert.Equal(t, record.Idx(2), idxErr.Expected)
	assert.ErrorIs(t, err, record.ErrProtocol)
}
