package client

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"gophistory/internal/domain/record"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/exp/slog"
)

const defaultDebounce = 2 * time.Second

// Watcher синхронизирует журнал, когда его файл меняется другим процессом,
// например после history end в соседнем терминале. Раз в interval цикл
// запускается без изменений, чтобы забрать записи других устройств.
type Watcher struct {
	store    record.Store
	syncer   Syncer
	path     string
	debounce time.Duration
	interval time.Duration
	log      *slog.Logger
	onSync   func(*SyncResult, error)
}

// NewWatcher создаёт watcher. interval <= 0 отключает периодический опрос relay.
func NewWatcher(store record.Store, syncer Syncer, path string, debounce, interval time.Duration, log *slog.Logger, onSync func(*SyncResult, error)) *Watcher {
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	return &Watcher{
		store:    store,
		syncer:   syncer,
		path:     path,
		debounce: debounce,
		interval: interval,
		log:      log.With(slog.String("component", "watcher")),
		onSync:   onSync,
	}
}

// Run следит за файлом журнала до отмены ctx. Синхронизация запускается только
// если статус журнала отличается от статуса после прошлого цикла, поэтому
// собственные записи цикла (блокировка, скачанные записи) не зацикливают его.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("создание watcher: %w", err)
	}
	defer fsw.Close()

	dir := filepath.Dir(w.path)
	if err := fsw.Add(dir); err != nil {
		return fmt.Errorf("наблюдение за %s: %w", dir, err)
	}

	last := w.sync(ctx, nil)

	var (
		timer   *time.Timer
		pending <-chan time.Time
		poll    <-chan time.Time
	)

	if w.interval > 0 {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		poll = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case <-poll:
			last = w.sync(ctx, nil)

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			pending = timer.C

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("ошибка watcher", slog.Any("error", err))

		case <-pending:
			pending = nil
			last = w.sync(ctx, last)
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return false
	}
	// SQLite в режиме WAL пишет в records.db-wal
	return strings.HasPrefix(filepath.Base(event.Name), filepath.Base(w.path))
}

// sync запускает цикл, если журнал изменился или last пуст, и возвращает новый статус
func (w *Watcher) sync(ctx context.Context, last record.Status) record.Status {
	current, err := w.store.Status(ctx)
	if err != nil {
		w.log.Warn("не удалось прочитать статус журнала", slog.Any("error", err))
		return last
	}
	if last != nil && current.Equal(last) {
		return last
	}

	res, err := w.syncer.Sync(ctx)
	if errors.Is(err, ErrSyncInProgress) {
		w.log.Debug("цикл уже выполняется другим процессом")
		return last
	}
	if w.onSync != nil {
		w.onSync(res, err)
	}
	if err != nil {
		w.log.Warn("синхронизация не удалась", slog.Any("error", err))
		return last
	}

	after, err := w.store.Status(ctx)
	if err != nil {
		return current
	}
	return after
}
