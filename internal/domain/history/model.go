package history

import (
	"fmt"
	"strings"
	"time"

	"gophistory/internal/domain/record"

	"github.com/google/uuid"
)

const (
	// Tag поток записей истории
	Tag record.Tag = "history"
	// Version формат полезной нагрузки записи
	Version = "v0"
)

// History одна выполненная команда
type History struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	// Duration в наносекундах, -1 пока команда выполняется
	Duration int64  `json:"duration"`
	Exit     int64  `json:"exit"`
	Command  string `json:"command"`
	Cwd      string `json:"cwd"`
	Session  string `json:"session"`
	// Hostname в формате "host:user"
	Hostname string `json:"hostname"`
	Deleted  bool   `json:"deleted,omitempty"`
}

// NewID генерирует идентификатор записи истории
func NewID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate history id: %w", err)
	}
	return strings.ReplaceAll(id.String(), "-", ""), nil
}

// Capture создаёт незавершённую запись истории для только что запущенной команды
func Capture(command, cwd, session, hostname string, now time.Time) (*History, error) {
	id, err := NewID()
	if err != nil {
		return nil, err
	}

	return &History{
		ID:        id,
		Timestamp: now.UTC(),
		Duration:  -1,
		Exit:      -1,
		Command:   command,
		Cwd:       cwd,
		Session:   session,
		Hostname:  hostname,
	}, nil
}

// IsFinished завершена ли команда
func (h *History) IsFinished() bool {
	return h.Duration >= 0
}

// Finish фиксирует код выхода и длительность. Без явной длительности она считается
// от времени запуска. Повторное завершение возвращает ErrAlreadyFinished.
func (h *History) Finish(exit int64, duration *time.Duration, now time.Time) error {
	if h.IsFinished() {
		return ErrAlreadyFinished
	}

	d := now.Sub(h.Timestamp)
	if duration != nil {
		d = *duration
	}
	if d < 0 {
		d = 0
	}

	h.Exit = exit
	h.Duration = int64(d)

	return nil
}

// Host часть hostname до двоеточия
func (h *History) Host() string {
	host, _, ok := strings.Cut(h.Hostname, ":")
	if !ok {
		return h.Hostname
	}
	return host
}

// User часть hostname после двоеточия
func (h *History) User() string {
	_, user, _ := strings.Cut(h.Hostname, ":")
	return user
}
