package client

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"gophistory/internal/app/client/config"
	"gophistory/internal/domain/history"

	"golang.org/x/exp/slog"
)

// ListOptions фильтры history list поверх filter_mode
type ListOptions struct {
	Session        bool
	Cwd            bool
	Reverse        bool
	IncludeDeleted bool
	Limit          int
}

// Start сохраняет выполняющуюся команду и возвращает её id. Пустой id означает,
// что команда отфильтрована. Ошибки определения окружения не мешают захвату.
func (a *App) Start(ctx context.Context, command string) (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		a.log.Debug("не удалось определить каталог", slog.Any("error", err))
	}

	h, err := history.Capture(command, cwd, os.Getenv(SessionEnv), currentHostname(), a.now())
	if err != nil {
		return "", err
	}

	if !a.filter.ShouldSave(h) {
		return "", nil
	}

	if err := a.repo.Save(ctx, h); err != nil {
		return "", err
	}

	return h.ID, nil
}

// End завершает команду: сохраняет её в журнал, материализует и при необходимости
// запускает фоновую синхронизацию. Неизвестный или уже завершённый id игнорируется.
func (a *App) End(ctx context.Context, id string, exit int64, duration *time.Duration) error {
	if id == "" {
		return nil
	}

	h, err := a.repo.Load(ctx, id)
	if errors.Is(err, history.ErrNotFound) {
		a.log.Debug("неизвестная команда", slog.String("id", id))
		return nil
	}
	if err != nil {
		return err
	}
	if h.Deleted || h.IsFinished() {
		return nil
	}

	if !a.config.StoreFailed && exit != 0 {
		return a.repo.Remove(ctx, id)
	}

	if err := h.Finish(exit, duration, a.now()); err != nil {
		return err
	}

	if err := a.ensureKey(); err != nil {
		return err
	}

	rec, err := a.store.Push(ctx, h)
	if err != nil {
		return err
	}
	if _, err := a.store.Materialize(ctx, rec); err != nil {
		return err
	}

	a.maybeSync(ctx)

	return nil
}

// maybeSync запускает фоновую синхронизацию, если она включена и пора
func (a *App) maybeSync(ctx context.Context) bool {
	if !a.config.SyncEnabled || !a.config.AutoSync || !a.session.LoggedIn() {
		return false
	}

	a.stateMu.Lock()
	due := a.state.SyncDue(a.config.SyncFrequency, a.now())
	a.stateMu.Unlock()

	if !due {
		return false
	}

	return a.background.Start(ctx)
}

// List выборка из read-model с учётом filter_mode
func (a *App) List(ctx context.Context, opts ListOptions) ([]*history.History, error) {
	filter := history.ListFilter{
		IncludeDeleted: opts.IncludeDeleted,
		Reverse:        opts.Reverse,
		Limit:          opts.Limit,
	}

	switch a.config.FilterMode {
	case config.FilterModeHost:
		filter.Hostname = currentHostname()
	case config.FilterModeSession:
		opts.Session = true
	case config.FilterModeDirectory:
		opts.Cwd = true
	}

	if opts.Session {
		filter.Session = os.Getenv(SessionEnv)
	}
	if opts.Cwd {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("текущий каталог: %w", err)
		}
		filter.Cwd = cwd
	}

	return a.repo.List(ctx, filter)
}

// Last последняя завершённая команда
func (a *App) Last(ctx context.Context) (*history.History, error) {
	list, err := a.repo.List(ctx, history.ListFilter{OnlyFinished: true, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, history.ErrNotFound
	}
	return list[0], nil
}

// Delete добавляет в журнал записи удаления и применяет их к read-model
func (a *App) Delete(ctx context.Context, ids ...string) (int, error) {
	if err := a.ensureKey(); err != nil {
		return 0, err
	}

	var deleted int
	for _, id := range ids {
		h, err := a.repo.Load(ctx, id)
		if errors.Is(err, history.ErrNotFound) {
			a.log.Warn("запись не найдена", slog.String("id", id))
			continue
		}
		if err != nil {
			return deleted, err
		}
		if h.Deleted {
			continue
		}

		rec, err := a.store.Delete(ctx, id)
		if err != nil {
			return deleted, err
		}
		if _, err := a.store.Materialize(ctx, rec); err != nil {
			return deleted, err
		}
		deleted++
	}

	return deleted, nil
}

// Prune удаляет из истории записи, которые не прошли бы текущие фильтры.
// С dryRun только возвращает кандидатов.
func (a *App) Prune(ctx context.Context, dryRun bool) ([]*history.History, error) {
	list, err := a.repo.List(ctx, history.ListFilter{OnlyFinished: true, Reverse: true})
	if err != nil {
		return nil, err
	}

	var candidates []*history.History
	for _, h := range list {
		if !a.filter.ShouldSave(h) {
			candidates = append(candidates, h)
		}
	}

	if dryRun || len(candidates) == 0 {
		return candidates, nil
	}

	ids := make([]string, 0, len(candidates))
	for _, h := range candidates {
		ids = append(ids, h.ID)
	}
	if _, err := a.Delete(ctx, ids...); err != nil {
		return nil, err
	}

	return candidates, nil
}

// Dedup удаляет повторы команд (одинаковые command, cwd и hostname) старше before,
// оставляя keep самых новых копий. С dryRun только возвращает кандидатов.
func (a *App) Dedup(ctx context.Context, before time.Time, keep int, dryRun bool) ([]*history.History, error) {
	if keep < 1 {
		return nil, ErrDupKeep
	}

	dups, err := a.repo.Duplicates(ctx, before, keep)
	if err != nil {
		return nil, err
	}

	if dryRun || len(dups) == 0 {
		return dups, nil
	}

	ids := make([]string, 0, len(dups))
	for _, h := range dups {
		ids = append(ids, h.ID)
	}
	if _, err := a.Delete(ctx, ids...); err != nil {
		return nil, err
	}

	return dups, nil
}
