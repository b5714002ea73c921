package record

import (
	"context"
	"time"
)

// Store упорядоченный журнал записей, локальный источник истины.
// Запись сериализуется (один писатель), чтение допускается параллельно.
type Store interface {
	// Append назначает следующий idx потока и атомарно сохраняет запись
	Append(ctx context.Context, host HostID, tag Tag, payload Payload) (Idx, error)
	// Apply сохраняет скачанные записи с их исходными host/idx.
	// Уже имеющиеся записи пропускаются, разрыв в индексах возвращает ErrNotContiguous.
	Apply(ctx context.Context, records []Record) (int, error)
	// Range возвращает записи [start, start+count); ErrOutOfRange если start за концом потока
	Range(ctx context.Context, host HostID, tag Tag, start Idx, count uint64) ([]Record, error)
	// LastIdx последний idx потока, false если поток пуст
	LastIdx(ctx context.Context, host HostID, tag Tag) (Idx, bool, error)
	// Status снимок последних idx по всем потокам
	Status(ctx context.Context) (Status, error)
	Close() error
}

// Locker межпроцессная блокировка цикла синхронизации, привязанная к хранилищу
type Locker interface {
	// Lock возвращает ErrLocked, если блокировку держит другой владелец и она не истекла
	Lock(ctx context.Context, owner string, ttl time.Duration) (unlock func() error, err error)
	// Extend продлевает аренду владельца на ttl; ErrLocked если она истекла и занята или снята
	Extend(ctx context.Context, owner string, ttl time.Duration) error
}

// CheckRange общая проверка границ для реализаций Range
func CheckRange(next Idx, start Idx) error {
	if start > next {
		return ErrOutOfRange
	}
	return nil
}
