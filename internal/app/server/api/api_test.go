package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gophistory/internal/app/server/metrics"
	"gophistory/internal/domain/record"
	"gophistory/internal/domain/sync"
	"gophistory/internal/infrastructure/storage"
	"gophistory/internal/infrastructure/storage/memory"
	"gophistory/internal/version"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

const host record.HostID = "0190a1b2c3d4e5f60718293a4b5c6d7e"

func newServer(t *testing.T) *httptest.Server {
	t.Helper()

	repos := &storage.Repositories{
		Users:    memory.NewUserRepository(),
		Sessions: memory.NewSessionRepository(),
		Records:  memory.NewRecordRepository(),
		Close:    func() error { return nil },
	}
	mux := New(Options{
		Repositories:     repos,
		Sync:             sync.ServiceConfig{PageSize: 2, MaxBatchSize: 10},
		SessionTTL:       time.Hour,
		OpenRegistration: true,
		Metrics:          metrics.New(),
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, srv.URL+path, r)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(version.Header, version.Protocol)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func login(t *testing.T, srv *httptest.Server) string {
	t.Helper()

	creds := map[string]string{"login": "alice", "password": "correct horse"}
	resp, _ := do(t, srv, http.MethodPost, "/user/register", "", creds)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, data := do(t, srv, http.MethodPost, "/user/login", "", creds)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(data, &out))
	require.NotEmpty(t, out.Token)
	return out.Token
}

func batch(from, to record.Idx) []record.Record {
	var res []record.Record
	for idx := from; idx < to; idx++ {
		res = append(res, record.Record{
			Host:      host,
			Tag:       "history",
			Idx:       idx,
			Timestamp: int64(idx),
			Version:   "v0",
			Data:      record.EncryptedData{Ciphertext: []byte{byte(idx), 1}, Nonce: []byte{2}},
		})
	}
	return res
}

func TestAPI_UploadStatusNext(t *testing.T) {
	// Arrange
	srv := newServer(t)
	token := login(t, srv)

	// Act
	resp, data := do(t, srv, http.MethodPost, "/api/v0/record", token, batch(0, 3))

	// Assert
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	assert.Equal(t, version.Protocol, resp.Header.Get(version.Header))
	assert.Contains(t, string(data), `"accepted":3`)

	resp, data = do(t, srv, http.MethodGet, "/sync/status", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var status struct {
		PageSize int           `json:"page_size"`
		Hosts    record.Status `json:"hosts"`
	}
	require.NoError(t, json.Unmarshal(data, &status))
	assert.Equal(t, 2, status.PageSize)
	last, ok := status.Hosts.Get(host, "history")
	require.True(t, ok)
	assert.Equal(t, record.Idx(2), last)

	resp, data = do(t, srv, http.MethodGet, "/api/v0/record/next?host="+string(host)+"&tag=history&start=1&count=50", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var page []record.Record
	require.NoError(t, json.Unmarshal(data, &page))
	require.Len(t, page, 2)
	assert.Equal(t, batch(1, 3), page)

	resp, data = do(t, srv, http.MethodGet, "/api/v0/record/next?host="+string(host)+"&tag=history&start=3", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, string(data))

	resp, _ = do(t, srv, http.MethodGet, "/api/v0/record/next?host="+string(host)+"&tag=history&start=4", token, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_UploadConflictIsAtomic(t *testing.T) {
	srv := newServer(t)
	token := login(t, srv)

	resp, _ := do(t, srv, http.MethodPost, "/api/v0/record", token, batch(0, 2))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	other := batch(0, 1)
	other[0].Host = "0190a1b2c3d4e5f60718293a4b5c6d7f"
	stale := append(other, batch(1, 3)...)

	resp, data := do(t, srv, http.MethodPost, "/api/v0/record", token, stale)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	var conflict struct {
		Code     string `json:"code"`
		Host     string `json:"host"`
		Expected uint64 `json:"expected"`
		Got      uint64 `json:"got"`
	}
	require.NoError(t, json.Unmarshal(data, &conflict))
	assert.Equal(t, "unexpected_idx", conflict.Code)
	assert.Equal(t, string(host), conflict.Host)
	assert.Equal(t, uint64(2), conflict.Expected)
	assert.Equal(t, uint64(1), conflict.Got)

	// поток другого хоста из отклонённого пакета не появился
	_, data = do(t, srv, http.MethodGet, "/sync/status", token, nil)
	assert.NotContains(t, string(data), "0190a1b2c3d4e5f60718293a4b5c6d7f")
}

func TestAPI_Unauthorized(t *testing.T) {
	srv := newServer(t)

	resp, data := do(t, srv, http.MethodGet, "/sync/status", "bogus", nil)

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, string(data), `"status":"Error"`)
}

func TestAPI_IncompatibleVersion(t *testing.T) {
	srv := newServer(t)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/v1/health", nil)
	require.NoError(t, err)
	req.Header.Set(version.Header, "2.0.0")
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)
	assert.Equal(t, version.Protocol, resp.Header.Get(version.Header))
}

func TestAPI_Metrics(t *testing.T) {
	srv := newServer(t)
	token := login(t, srv)
	resp, _ := do(t, srv, http.MethodPost, "/api/v0/record", token, batch(0, 1))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, data := do(t, srv, http.MethodGet, "/metrics", "", nil)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(data), "gophistory_records_uploaded_total 1")
	assert.Contains(t, string(data), `operation="record-upload"`)
}
