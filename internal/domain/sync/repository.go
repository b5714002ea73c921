package sync

import (
	"context"

	"gophistory/internal/domain/record"
)

// Repository хранилище записей relay, разделённое по пользователям
type Repository interface {
	// Status последние idx всех потоков пользователя
	Status(ctx context.Context, userID int64) (record.Status, error)
	// Next записи потока начиная со start, не больше limit.
	// record.ErrOutOfRange если start дальше следующего ожидаемого idx.
	Next(ctx context.Context, userID int64, host record.HostID, tag record.Tag, start record.Idx, limit int) ([]record.Record, error)
	// Append атомарно сохраняет пакет. Каждая группа потока должна начинаться
	// со следующего ожидаемого idx, иначе *record.UnexpectedIdxError и ничего не сохраняется.
	Append(ctx context.Context, userID int64, groups []Group) error
}

// Group непрерывный участок одного потока внутри пакета
type Group struct {
	Stream  record.Stream
	Records []record.Record
}

// First idx первой записи группы
func (g Group) First() record.Idx {
	return g.Records[0].Idx
}
