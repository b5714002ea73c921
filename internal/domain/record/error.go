package record

import (
	"errors"
	"fmt"
)

var (
	ErrOutOfRange    = errors.New("start idx is beyond the known range")
	ErrNotContiguous = errors.New("records are not contiguous")
	ErrInvalidRecord = errors.New("invalid record")
	ErrProtocol      = errors.New("protocol error")
	ErrLocked        = errors.New("store is locked by another sync")
)

// StorageError ошибка локального ввода-вывода
type StorageError struct {
	Op  string
	Err error
}

func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// NetworkError временная ошибка транспорта, безопасно повторить в следующем цикле
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network: %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// VersionMismatchError несовместимые версии протокола клиента и сервера
type VersionMismatchError struct {
	Client string
	Server string
}

func (e *VersionMismatchError) Error() string {
	return fmt.Sprintf("protocol version mismatch: client %s, server %s", e.Client, e.Server)
}

// UnexpectedIdxError relay отклонил пакет: первый idx не совпал с ожидаемым
type UnexpectedIdxError struct {
	Host     HostID
	Tag      Tag
	Expected Idx
	Got      Idx
}

func (e *UnexpectedIdxError) Error() string {
	return fmt.Sprintf("unexpected idx for %s/%s: expected %d, got %d", e.Host, e.Tag, e.Expected, e.Got)
}

func (e *UnexpectedIdxError) Is(target error) bool {
	return target == ErrProtocol
}
