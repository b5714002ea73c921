// Package storage выбирает хранилище relay: PostgreSQL или память процесса.
package storage

import (
	"context"
	"fmt"

	"gophistory/internal/domain/session"
	"gophistory/internal/domain/sync"
	"gophistory/internal/domain/user"
	"gophistory/internal/infrastructure/storage/memory"
	"gophistory/internal/infrastructure/storage/postgres"

	"golang.org/x/exp/slog"
)

// Repositories репозитории relay и функция освобождения ресурсов
type Repositories struct {
	Users    user.Repository
	Sessions session.Repository
	Records  sync.Repository
	Close    func() error
}

// New открывает PostgreSQL, если задан databaseURI, иначе репозитории в памяти
func New(ctx context.Context, databaseURI string, log *slog.Logger) (*Repositories, error) {
	if databaseURI == "" {
		log.Warn("DATABASE_URI is empty, records are kept in memory")
		return &Repositories{
			Users:    memory.NewUserRepository(),
			Sessions: memory.NewSessionRepository(),
			Records:  memory.NewRecordRepository(),
			Close:    func() error { return nil },
		}, nil
	}

	db, err := postgres.New(ctx, databaseURI)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	return &Repositories{
		Users:    postgres.NewUserRepository(db, log),
		Sessions: postgres.NewSessionRepository(db, log),
		Records:  postgres.NewRecordRepository(db, log),
		Close:    db.Close,
	}, nil
}
