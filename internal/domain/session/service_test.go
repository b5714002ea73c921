package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

// MockRepository is a mock implementation of the Repository interface for testing
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, userID int64, tokenHash string, expiresAt time.Time) error {
	args := m.Called(ctx, userID, tokenHash, expiresAt)
	return args.Error(0)
}

func (m *MockRepository) Validate(ctx context.Context, tokenHash string) (int64, error) {
	args := m.Called(ctx, tokenHash)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepository) Delete(ctx context.Context, tokenHash string) error {
	args := m.Called(ctx, tokenHash)
	return args.Error(0)
}

func isHash(hash string) bool {
	return len(hash) == 64
}

func TestService_Create(t *testing.T) {
	// Arrange
	mockRepo := new(MockRepository)
	service := NewService(mockRepo, slog.Default(), time.Hour)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	service.now = func() time.Time { return now }

	mockRepo.On("Create", mock.Anything, int64(123), mock.MatchedBy(isHash), now.Add(time.Hour)).Return(nil)

	// Act
	token, err := service.Create(context.Background(), 123)

	// Assert
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.NotContains(t, token, "=")
	mockRepo.AssertExpectations(t)
}

func TestService_Create_RepositoryError(t *testing.T) {
	mockRepo := new(MockRepository)
	service := NewService(mockRepo, slog.Default(), 0)

	mockRepo.On("Create", mock.Anything, int64(123), mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).
		Return(errors.New("database error"))

	_, err := service.Create(context.Background(), 123)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "database error")
	assert.Equal(t, DefaultTTL, service.ttl)

	mockRepo.AssertExpectations(t)
}

// Validate ищет сессию по тому же хэшу, что сохранил Create
func TestService_CreateAndValidate(t *testing.T) {
	mockRepo := new(MockRepository)
	service := NewService(mockRepo, slog.Default(), time.Hour)

	var saved string
	mockRepo.On("Create", mock.Anything, int64(123), mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).
		Run(func(args mock.Arguments) { saved = args.String(2) }).
		Return(nil)

	token, err := service.Create(context.Background(), 123)
	require.NoError(t, err)

	mockRepo.On("Validate", mock.Anything, mock.MatchedBy(func(hash string) bool { return hash == saved })).
		Return(int64(123), nil)

	userID, err := service.Validate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, int64(123), userID)

	mockRepo.AssertExpectations(t)
}

func TestService_Validate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		token   string
		repoErr error
		noCall  bool
	}{
		{name: "empty token", token: "", noCall: true},
		{name: "unknown token", token: "invalid_token", repoErr: ErrInvalidSession},
		{name: "repository error", token: "test_token", repoErr: errors.New("database error")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockRepository)
			service := NewService(mockRepo, slog.Default(), time.Hour)
			if !tt.noCall {
				mockRepo.On("Validate", mock.Anything, mock.AnythingOfType("string")).Return(int64(0), tt.repoErr)
			}

			_, err := service.Validate(context.Background(), tt.token)

			require.Error(t, err)
			if tt.repoErr != nil {
				assert.ErrorIs(t, err, tt.repoErr)
			} else {
				assert.ErrorIs(t, err, ErrInvalidSession)
			}
			mockRepo.AssertExpectations(t)
		})
	}
}

func TestService_Revoke(t *testing.T) {
	mockRepo := new(MockRepository)
	service := NewService(mockRepo, slog.Default(), time.Hour)
	mockRepo.On("Delete", mock.Anything, hashToken("token")).Return(nil)

	require.NoError(t, service.Revoke(context.Background(), "token"))
	mockRepo.AssertExpectations(t)
}
