package record

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// HostID идентификатор устройства, единственного писателя своих потоков записей
type HostID string

// Tag пространство имён независимых потоков одного хоста
type Tag string

// Idx порядковый номер записи в потоке (host, tag), начинается с нуля и не имеет пропусков
type Idx = uint64

// NewHostID генерирует новый идентификатор устройства
func NewHostID() (HostID, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate host id: %w", err)
	}

	return HostID(strings.ReplaceAll(id.String(), "-", "")), nil
}

// ParseHostID проверяет сохранённый идентификатор устройства
func ParseHostID(s string) (HostID, error) {
	s = strings.TrimSpace(s)
	id, err := uuid.Parse(s)
	if err != nil {
		return "", fmt.Errorf("parse host id %q: %w", s, err)
	}

	return HostID(strings.ReplaceAll(id.String(), "-", "")), nil
}

// EncryptedData зашифрованное содержимое записи, непрозрачное для relay
type EncryptedData struct {
	Ciphertext []byte `json:"data"`
	Nonce      []byte `json:"nonce"`
}

// Record неизменяемая запись журнала, единица репликации
type Record struct {
	Host      HostID        `json:"host"`
	Tag       Tag           `json:"tag"`
	Idx       Idx           `json:"idx"`
	Timestamp int64         `json:"timestamp"`
	Version   string        `json:"version"`
	Data      EncryptedData `json:"data"`
}

// Payload то, что передаётся в Append: индекс назначает хранилище
type Payload struct {
	Timestamp int64
	Version   string
	Data      EncryptedData
}

// Stream ключ потока записей
type Stream struct {
	Host HostID
	Tag  Tag
}

func (s Stream) String() string {
	return string(s.Host) + "/" + string(s.Tag)
}

// Stream возвращает поток, к которому относится запись
func (r Record) Stream() Stream {
	return Stream{Host: r.Host, Tag: r.Tag}
}

// AdditionalData привязывает шифртекст к потоку и версии формата
func AdditionalData(host HostID, tag Tag, version string) []byte {
	return []byte(string(host) + "\x00" + string(tag) + "\x00" + version)
}

// Validate проверяет поля, без которых запись нельзя принять
func (r Record) Validate() error {
	switch {
	case r.Host == "":
		return fmt.Errorf("%w: empty host", ErrInvalidRecord)
	case r.Tag == "":
		return fmt.Errorf("%w: empty tag", ErrInvalidRecord)
	case r.Version == "":
		return fmt.Errorf("%w: empty version", ErrInvalidRecord)
	case len(r.Data.Nonce) == 0:
		return fmt.Errorf("%w: empty nonce", ErrInvalidRecord)
	case len(r.Data.Ciphertext) == 0:
		return fmt.Errorf("%w: empty data", ErrInvalidRecord)
	}

	return nil
}
