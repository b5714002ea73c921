package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gophistory/internal/app/client/crypto"

	"golang.org/x/exp/slog"
)

// Register создаёт учётную запись на relay и сразу выполняет вход
func (a *App) Register(ctx context.Context, login, password string) error {
	if a.relay == nil {
		return ErrSyncDisabled
	}

	if err := a.relay.Register(ctx, login, password); err != nil {
		return fmt.Errorf("регистрация: %w", err)
	}

	return a.Login(ctx, login, password)
}

// Login получает токен relay и сохраняет его
func (a *App) Login(ctx context.Context, login, password string) error {
	if a.relay == nil {
		return ErrSyncDisabled
	}

	token, err := a.relay.Login(ctx, login, password)
	if err != nil {
		return fmt.Errorf("вход: %w", err)
	}

	return a.session.Save(token)
}

// Logout отзывает сессию на relay и удаляет локальный токен.
// Ошибка relay не мешает удалить токен.
func (a *App) Logout(ctx context.Context) error {
	if !a.session.LoggedIn() {
		return ErrNotLoggedIn
	}

	if a.relay != nil {
		if err := a.relay.Logout(ctx); err != nil {
			a.log.Warn("relay не отозвал сессию", slog.Any("error", err))
		}
	}

	return a.session.Clear()
}

// LoggedIn есть ли сохранённый токен
func (a *App) LoggedIn() bool {
	return a.session.LoggedIn()
}

// LastSync время последней успешной синхронизации
func (a *App) LastSync() time.Time {
	a.stateMu.Lock()
	defer a.stateMu.Unlock()
	return a.state.LastSync
}

// ServerVersion версия протокола relay при последней успешной синхронизации
func (a *App) ServerVersion() string {
	a.stateMu.Lock()
	defer a.stateMu.Unlock()
	return a.state.LastVersion
}

// Sync выполняет цикл синхронизации в текущем процессе
func (a *App) Sync(ctx context.Context) (*SyncResult, error) {
	if !a.config.SyncEnabled {
		return nil, ErrSyncDisabled
	}
	if !a.session.LoggedIn() {
		return nil, ErrNotLoggedIn
	}
	if err := a.ensureKey(); err != nil {
		return nil, err
	}

	res, err := a.syncer.Sync(ctx)
	a.syncDone(res, err)
	return res, err
}

const defaultPollInterval = time.Minute

// Watch синхронизирует журнал при каждом его изменении и раз в sync_frequency до отмены ctx
func (a *App) Watch(ctx context.Context, onSync func(*SyncResult, error)) error {
	if !a.config.SyncEnabled {
		return ErrSyncDisabled
	}
	if !a.session.LoggedIn() {
		return ErrNotLoggedIn
	}
	if err := a.ensureKey(); err != nil {
		return err
	}

	interval := a.config.SyncFrequency
	if interval <= 0 {
		interval = defaultPollInterval
	}

	w := NewWatcher(a.records, a.syncer, a.config.RecordStorePath, 0, interval, a.log, func(res *SyncResult, err error) {
		a.syncDone(res, err)
		if onSync != nil {
			onSync(res, err)
		}
	})
	return w.Run(ctx)
}

// KeyInit создаёт новый ключ. Существующий ключ перезаписывается только с force.
func (a *App) KeyInit(passphrase string, force bool) error {
	if a.keys.Exists() && !force {
		return crypto.ErrKeyExists
	}

	if err := a.keys.Generate(passphrase); err != nil {
		return err
	}
	return a.keys.Load(passphrase)
}

// KeyExport возвращает ключ для переноса на другое устройство
func (a *App) KeyExport() (string, error) {
	if !a.keys.Exists() {
		return "", ErrNoKey
	}
	if err := a.ensureKey(); err != nil {
		return "", err
	}
	return a.keys.Export()
}

// KeyImport сохраняет ключ другого устройства
func (a *App) KeyImport(encoded, passphrase string, force bool) error {
	if a.keys.Exists() && !force {
		return crypto.ErrKeyExists
	}

	if err := a.keys.Import(encoded, passphrase); err != nil {
		return err
	}
	if err := a.keys.Load(passphrase); err != nil {
		return errors.Join(errors.New("ключ сохранён, но не загружается"), err)
	}
	return nil
}

// KeyProtected защищён ли ключ паролем
func (a *App) KeyProtected() bool {
	return a.keys.IsProtected()
}
