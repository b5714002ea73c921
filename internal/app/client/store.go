package client

import (
	"context"

	"gophistory/internal/domain/history"
	"gophistory/internal/domain/record"
)

// StoreStatus локальный статус журнала и, если доступен relay, удалённый
type StoreStatus struct {
	Host      record.HostID
	Local     record.Status
	Remote    *RemoteStatus
	RemoteErr error
	Entries   int64
}

// StoreStatus собирает статус журнала. Недоступность relay не является ошибкой.
func (a *App) StoreStatus(ctx context.Context) (*StoreStatus, error) {
	local, err := a.records.Status(ctx)
	if err != nil {
		return nil, err
	}

	entries, err := a.repo.Count(ctx)
	if err != nil {
		return nil, err
	}

	st := &StoreStatus{Host: a.host, Local: local, Entries: entries}

	switch {
	case a.relay == nil:
		st.RemoteErr = ErrSyncDisabled
	case !a.session.LoggedIn():
		st.RemoteErr = ErrNotLoggedIn
	default:
		st.Remote, st.RemoteErr = a.relay.Status(ctx)
	}

	return st, nil
}

// Rebuild пересобирает read-model из журнала
func (a *App) Rebuild(ctx context.Context) (history.BuildResult, error) {
	if err := a.ensureKey(); err != nil {
		return history.BuildResult{}, err
	}
	return a.store.Build(ctx)
}

// Verify проверяет, что каждая запись истории открывается текущим ключом
func (a *App) Verify(ctx context.Context) (int, []record.Record, error) {
	if err := a.ensureKey(); err != nil {
		return 0, nil, err
	}
	return a.store.Verify(ctx)
}
