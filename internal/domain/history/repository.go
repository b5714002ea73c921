package history

import (
	"context"
	"time"
)

// ListFilter условия выборки из read-model
type ListFilter struct {
	Session        string
	Cwd            string
	Hostname       string
	IncludeDeleted bool
	// OnlyFinished пропускает команды, которые ещё выполняются
	OnlyFinished bool
	Limit        int
	// Reverse сначала старые записи
	Reverse bool
}

// Repository материализованное представление истории для чтения
type Repository interface {
	// Save вставляет незавершённую запись, существующая не перезаписывается
	Save(ctx context.Context, h *History) error
	Load(ctx context.Context, id string) (*History, error)
	// Upsert применяет запись истории. Удалённая запись остаётся удалённой.
	Upsert(ctx context.Context, h *History) error
	// MarkDeleted помечает запись удалённой, создавая надгробие если её ещё нет
	MarkDeleted(ctx context.Context, id string, at time.Time) error
	// Remove убирает незавершённую строку, которая так и не попала в журнал
	Remove(ctx context.Context, id string) error
	List(ctx context.Context, filter ListFilter) ([]*History, error)
	// Duplicates завершённые записи с одинаковыми command, cwd и hostname старше before,
	// кроме keep самых новых в каждой группе. Старые записи первыми.
	Duplicates(ctx context.Context, before time.Time, keep int) ([]*History, error)
	Count(ctx context.Context) (int64, error)
	Clear(ctx context.Context) error
	Close() error
}
