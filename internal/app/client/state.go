package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gophistory/internal/domain/record"
)

// State состояние клиента между запусками
type State struct {
	LastSync    time.Time `json:"last_sync"`
	LastVersion string    `json:"last_server_version,omitempty"`
}

// LoadState читает state.json. Отсутствующий файл даёт пустое состояние.
func LoadState(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &State{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("чтение состояния: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("разбор состояния: %w", err)
	}
	return &state, nil
}

// Save атомарно записывает состояние
func (s *State) Save(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(path, data, 0o600)
}

// SyncDue пора ли фоновой синхронизации. Нулевая частота означает после каждой команды.
func (s *State) SyncDue(frequency time.Duration, now time.Time) bool {
	if frequency <= 0 || s.LastSync.IsZero() {
		return true
	}
	return now.Sub(s.LastSync) >= frequency
}

// LoadHostID читает идентификатор устройства или создаёт новый
func LoadHostID(path string) (record.HostID, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		return record.ParseHostID(string(data))
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("чтение host id: %w", err)
	}

	host, err := record.NewHostID()
	if err != nil {
		return "", err
	}
	if err := writeFileAtomic(path, []byte(host), 0o600); err != nil {
		return "", fmt.Errorf("сохранение host id: %w", err)
	}
	return host, nil
}

// Session хранит bearer токен relay в файле
type Session struct {
	path string
}

func NewSession(path string) *Session {
	return &Session{path: path}
}

// Token возвращает ErrNotLoggedIn, если входа не было
func (s *Session) Token() (string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", ErrNotLoggedIn
	}
	if err != nil {
		return "", fmt.Errorf("чтение сессии: %w", err)
	}

	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", ErrNotLoggedIn
	}
	return token, nil
}

func (s *Session) LoggedIn() bool {
	_, err := s.Token()
	return err == nil
}

func (s *Session) Save(token string) error {
	return writeFileAtomic(s.path, []byte(token), 0o600)
}

func (s *Session) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("удаление сессии: %w", err)
	}
	return nil
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), path)
}
