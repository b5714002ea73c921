package client

import (
	"context"
	"sync"
	"time"

	"golang.org/x/exp/slog"
)

// BackgroundSync запускает цикл синхронизации в отдельной горутине,
// ограниченной таймаутом. Ошибки только логируются.
type BackgroundSync struct {
	syncer  Syncer
	timeout time.Duration
	log     *slog.Logger
	onDone  func(*SyncResult, error)

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewBackgroundSync(syncer Syncer, timeout time.Duration, log *slog.Logger, onDone func(*SyncResult, error)) *BackgroundSync {
	return &BackgroundSync{
		syncer:  syncer,
		timeout: timeout,
		log:     log.With(slog.String("component", "background_sync")),
		onDone:  onDone,
	}
}

// Start запускает цикл, если предыдущий уже завершился. Отмена ctx вызывающего
// не прерывает цикл, его ограничивает только таймаут и Stop.
func (b *BackgroundSync) Start(ctx context.Context) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.running {
		return false
	}

	jobCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.timeout)
	b.running = true
	b.cancel = cancel
	b.wg.Add(1)

	go func() {
		defer b.wg.Done()
		defer cancel()

		res, err := b.syncer.Sync(jobCtx)
		if err != nil {
			b.log.Warn("фоновая синхронизация не удалась", slog.Any("error", err))
		}
		if b.onDone != nil {
			b.onDone(res, err)
		}

		b.mu.Lock()
		b.running = false
		b.mu.Unlock()
	}()

	return true
}

// Wait ждёт завершения текущего цикла
func (b *BackgroundSync) Wait() {
	b.wg.Wait()
}

// Stop отменяет текущий цикл и ждёт его завершения
func (b *BackgroundSync) Stop() {
	b.mu.Lock()
	if b.cancel != nil {
		b.cancel()
	}
	b.mu.Unlock()

	b.wg.Wait()
}
