package record

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"gophistory/internal/app/server/api/http/middleware/auth"
	"gophistory/internal/app/server/metrics"
	"gophistory/internal/domain/record"
	domainsync "gophistory/internal/domain/sync"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Status(ctx context.Context, userID int64) (*domainsync.StatusSnapshot, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domainsync.StatusSnapshot), args.Error(1)
}

func (m *MockService) Next(ctx context.Context, userID int64, host record.HostID, tag record.Tag, start record.Idx, count int) ([]record.Record, error) {
	args := m.Called(ctx, userID, host, tag, start, count)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]record.Record), args.Error(1)
}

func (m *MockService) Upload(ctx context.Context, userID int64, records []record.Record) (*domainsync.UploadResult, error) {
	args := m.Called(ctx, userID, records)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domainsync.UploadResult), args.Error(1)
}

const host record.HostID = "0190a1b2c3d4e5f60718293a4b5c6d7e"

func testRecord(idx record.Idx) record.Record {
	return record.Record{
		Host:      host,
		Tag:       "history",
		Idx:       idx,
		Timestamp: 1714564800000000000,
		Version:   "v0",
		Data:      record.EncryptedData{Ciphertext: []byte("cipher"), Nonce: []byte("nonce")},
	}
}

func withUser(ctx huma.Context, next func(huma.Context)) {
	next(huma.WithContext(ctx, auth.WithUserID(ctx.Context(), 1)))
}

func TestHandler_next(t *testing.T) {
	tests := []struct {
		name       string
		repoResult []record.Record
		repoErr    error
		wantStatus int
	}{
		{
			name:       "page",
			repoResult: []record.Record{testRecord(0), testRecord(1)},
			wantStatus: http.StatusOK,
		},
		{
			name:       "out of range",
			repoErr:    record.ErrOutOfRange,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "storage failure",
			repoErr:    errors.New("connection reset"),
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			service := new(MockService)
			service.On("Next", mock.Anything, int64(1), host, record.Tag("history"), record.Idx(0), 10).
				Return(tt.repoResult, tt.repoErr)
			handler := NewHandler(service, metrics.New(), slog.Default(), huma.Middlewares{})
			ctx := auth.WithUserID(context.Background(), 1)

			// Act
			out, err := handler.next(ctx, &nextInput{Host: string(host), Tag: "history", Start: 0, Count: 10})

			// Assert
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, out.Status)
			if tt.repoErr == nil {
				assert.Equal(t, tt.repoResult, out.Body)
			}
			service.AssertExpectations(t)
		})
	}
}

func TestHandler_nextUnauthorized(t *testing.T) {
	handler := NewHandler(new(MockService), nil, slog.Default(), huma.Middlewares{})

	_, err := handler.next(context.Background(), &nextInput{Host: string(host), Tag: "history"})

	var statusErr huma.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusUnauthorized, statusErr.GetStatus())
}

func TestHandler_upload(t *testing.T) {
	batch := []record.Record{testRecord(3), testRecord(4)}

	tests := []struct {
		name       string
		result     *domainsync.UploadResult
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "accepted",
			result:     &domainsync.UploadResult{Accepted: 2},
			wantStatus: http.StatusOK,
		},
		{
			name:       "unexpected idx",
			err:        &record.UnexpectedIdxError{Host: host, Tag: "history", Expected: 2, Got: 3},
			wantStatus: http.StatusConflict,
			wantCode:   codeUnexpectedIdx,
		},
		{
			name:       "not contiguous",
			err:        record.ErrNotContiguous,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "too large",
			err:        domainsync.ErrBatchTooLarge,
			wantStatus: http.StatusRequestEntityTooLarge,
		},
		{
			name:       "internal",
			err:        errors.New("disk full"),
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			service := new(MockService)
			service.On("Upload", mock.Anything, int64(1), batch).Return(tt.result, tt.err)
			handler := NewHandler(service, metrics.New(), slog.Default(), huma.Middlewares{})
			ctx := auth.WithUserID(context.Background(), 1)

			// Act
			out, err := handler.upload(ctx, &uploadInput{Body: batch})

			// Assert
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, out.Status)
			assert.Equal(t, tt.wantCode, out.Body.Code)
			if tt.err == nil {
				assert.Equal(t, "Ok", out.Body.Status)
				assert.Equal(t, 2, out.Body.Accepted)
			} else {
				assert.Equal(t, "Error", out.Body.Status)
				assert.NotEmpty(t, out.Body.Error)
			}
			service.AssertExpectations(t)
		})
	}
}

func TestHandler_uploadConflictBody(t *testing.T) {
	// Arrange
	service := new(MockService)
	service.On("Upload", mock.Anything, int64(1), mock.Anything).
		Return(nil, &record.UnexpectedIdxError{Host: host, Tag: "history", Expected: 2, Got: 3})
	_, api := humatest.New(t)
	NewHandler(service, nil, slog.Default(), huma.Middlewares{withUser}).SetupRoutes(api)

	// Act
	resp := api.Post("/api/v0/record", []record.Record{testRecord(3)})

	// Assert
	assert.Equal(t, http.StatusConflict, resp.Code)
	body := resp.Body.String()
	assert.Contains(t, body, `"code":"unexpected_idx"`)
	assert.Contains(t, body, `"host":"`+string(host)+`"`)
	assert.Contains(t, body, `"expected":2`)
	assert.Contains(t, body, `"got":3`)
}

func TestHandler_nextRoute(t *testing.T) {
	service := new(MockService)
	service.On("Next", mock.Anything, int64(1), host, record.Tag("history"), record.Idx(5), 0).
		Return([]record.Record{}, nil)
	_, api := humatest.New(t)
	NewHandler(service, nil, slog.Default(), huma.Middlewares{withUser}).SetupRoutes(api)

	resp := api.Get("/api/v0/record/next?host=" + string(host) + "&tag=history&start=5")

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `[]`, resp.Body.String())
	service.AssertExpectations(t)
}
