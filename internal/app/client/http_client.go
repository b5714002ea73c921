package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"gophistory/internal/domain/record"
	"gophistory/internal/version"

	"golang.org/x/exp/slog"
)

const codeUnexpectedIdx = "unexpected_idx"

// TokenSource источник bearer токена
type TokenSource interface {
	Token() (string, error)
}

// HTTPClient Transport поверх JSON API relay
type HTTPClient struct {
	client    *http.Client
	log       *slog.Logger
	baseURL   string
	tokens    TokenSource
	userAgent string
}

var _ Transport = (*HTTPClient)(nil)

// NewHTTPClient создаёт клиента relay. timeout ограничивает каждый запрос целиком,
// connectTimeout только установку соединения.
func NewHTTPClient(address string, tokens TokenSource, timeout, connectTimeout time.Duration, log *slog.Logger) (*HTTPClient, error) {
	u, err := url.Parse(address)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("некорректный sync_address %q", address)
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   connectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: connectTimeout,
	}

	return &HTTPClient{
		client:    &http.Client{Timeout: timeout, Transport: transport},
		log:       log.With(slog.String("component", "http_client")),
		baseURL:   strings.TrimRight(address, "/"),
		tokens:    tokens,
		userAgent: "gophistory/" + version.Protocol,
	}, nil
}

// HealthCheck проверяет доступность relay и совместимость версий
func (h *HTTPClient) HealthCheck(ctx context.Context) (string, error) {
	var out struct {
		Version string `json:"version"`
	}
	if err := h.do(ctx, http.MethodGet, "/api/v1/health", false, nil, &out); err != nil {
		return "", err
	}
	return out.Version, nil
}

// Register создаёт учётную запись на relay
func (h *HTTPClient) Register(ctx context.Context, login, password string) error {
	body := map[string]string{"login": login, "password": password}
	return h.do(ctx, http.MethodPost, "/user/register", false, body, nil)
}

// Login возвращает bearer токен новой сессии
func (h *HTTPClient) Login(ctx context.Context, login, password string) (string, error) {
	body := map[string]string{"login": login, "password": password}

	var out struct {
		Token string `json:"token"`
	}
	if err := h.do(ctx, http.MethodPost, "/user/login", false, body, &out); err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", errors.New("relay не вернул токен")
	}
	return out.Token, nil
}

// Logout отзывает текущую сессию на relay
func (h *HTTPClient) Logout(ctx context.Context) error {
	return h.do(ctx, http.MethodPost, "/user/logout", true, nil, nil)
}

func (h *HTTPClient) Status(ctx context.Context) (*RemoteStatus, error) {
	var out RemoteStatus
	if err := h.do(ctx, http.MethodGet, "/sync/status", true, nil, &out); err != nil {
		return nil, err
	}
	if out.Hosts == nil {
		out.Hosts = record.NewStatus()
	}
	return &out, nil
}

func (h *HTTPClient) Next(ctx context.Context, host record.HostID, tag record.Tag, start record.Idx, count int) ([]record.Record, error) {
	q := url.Values{}
	q.Set("host", string(host))
	q.Set("tag", string(tag))
	q.Set("start", strconv.FormatUint(start, 10))
	q.Set("count", strconv.Itoa(count))

	var out []record.Record
	if err := h.do(ctx, http.MethodGet, "/api/v0/record/next?"+q.Encode(), true, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (h *HTTPClient) Upload(ctx context.Context, records []record.Record) error {
	return h.do(ctx, http.MethodPost, "/api/v0/record", true, records, nil)
}

type errorBody struct {
	Error    string `json:"error"`
	Detail   string `json:"detail"`
	Code     string `json:"code"`
	Host     string `json:"host"`
	Tag      string `json:"tag"`
	Expected uint64 `json:"expected"`
	Got      uint64 `json:"got"`
}

func (h *HTTPClient) do(ctx context.Context, method, path string, authed bool, body, result any) error {
	op := method + " " + strings.SplitN(path, "?", 2)[0]

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("маршалинг тела запроса: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, h.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("создание запроса: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", h.userAgent)
	req.Header.Set(version.Header, version.Protocol)
	if authed {
		token, err := h.tokens.Token()
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	h.log.Debug("запрос к relay", slog.String("op", op))

	resp, err := h.client.Do(req)
	if err != nil {
		return &record.NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &record.NetworkError{Op: op, Err: err}
	}

	h.log.Debug("ответ relay", slog.String("op", op), slog.Int("status", resp.StatusCode))

	if server := resp.Header.Get(version.Header); server != "" {
		if ok, _ := version.Compatible(version.Protocol, server); !ok {
			return &record.VersionMismatchError{Client: version.Protocol, Server: server}
		}
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return h.responseError(op, resp, data)
	}

	if result != nil {
		if err := json.Unmarshal(data, result); err != nil {
			return fmt.Errorf("%s: разбор ответа: %w", op, err)
		}
	}

	return nil
}

func (h *HTTPClient) responseError(op string, resp *http.Response, data []byte) error {
	var body errorBody
	_ = json.Unmarshal(data, &body)

	msg := body.Error
	if msg == "" {
		msg = body.Detail
	}

	switch {
	case resp.StatusCode == http.StatusUpgradeRequired:
		return &record.VersionMismatchError{Client: version.Protocol, Server: resp.Header.Get(version.Header)}
	case resp.StatusCode == http.StatusUnauthorized && op != "POST /user/login":
		return ErrNotLoggedIn
	case resp.StatusCode == http.StatusConflict && body.Code == codeUnexpectedIdx:
		return &record.UnexpectedIdxError{
			Host:     record.HostID(body.Host),
			Tag:      record.Tag(body.Tag),
			Expected: body.Expected,
			Got:      body.Got,
		}
	case resp.StatusCode >= http.StatusInternalServerError:
		return &record.NetworkError{Op: op, Err: &APIError{Status: resp.StatusCode, Message: msg}}
	}

	return &APIError{Status: resp.StatusCode, Message: msg}
}
