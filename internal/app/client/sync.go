package client

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"gophistory/internal/domain/history"
	"gophistory/internal/domain/record"

	"github.com/oklog/ulid/v2"
	"golang.org/x/exp/slog"
)

const (
	defaultBatchSize  = 100
	defaultLockTTL    = 5 * time.Minute
	defaultMaxRetries = 3
)

// Syncer один цикл синхронизации журнала с relay
type Syncer interface {
	Sync(ctx context.Context) (*SyncResult, error)
}

// Materializer применяет скачанную запись к read-model своего тега
type Materializer interface {
	Materialize(ctx context.Context, rec record.Record) (*history.History, error)
}

// SyncResult итог цикла синхронизации. Skipped считает записи, которые
// не удалось расшифровать или разобрать.
type SyncResult struct {
	Uploaded      int           `json:"uploaded"`
	Downloaded    int           `json:"downloaded"`
	Materialized  int           `json:"materialized"`
	Skipped       int           `json:"skipped"`
	Retries       int           `json:"retries"`
	Duration      time.Duration `json:"duration"`
	ServerVersion string        `json:"server_version,omitempty"`
}

// SyncConfig параметры движка синхронизации
type SyncConfig struct {
	BatchSize  int
	LockTTL    time.Duration
	MaxRetries int
}

// SyncEngine сравнивает локальный и удалённый статусы, выгружает недостающие
// relay записи и скачивает записи других устройств. Прогресс определяется только
// содержимым журнала, поэтому прерванный цикл безопасно повторить.
type SyncEngine struct {
	store         record.Store
	locker        record.Locker
	transport     Transport
	materializers map[record.Tag]Materializer
	config        SyncConfig
	log           *slog.Logger
}

var _ Syncer = (*SyncEngine)(nil)

// NewSyncEngine создаёт движок. locker может быть nil, тогда циклы не сериализуются между процессами.
func NewSyncEngine(store record.Store, locker record.Locker, transport Transport, materializers map[record.Tag]Materializer, config SyncConfig, log *slog.Logger) *SyncEngine {
	if config.BatchSize <= 0 {
		config.BatchSize = defaultBatchSize
	}
	if config.LockTTL <= 0 {
		config.LockTTL = defaultLockTTL
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = defaultMaxRetries
	}

	return &SyncEngine{
		store:         store,
		locker:        locker,
		transport:     transport,
		materializers: materializers,
		config:        config,
		log:           log.With(slog.String("component", "sync_engine")),
	}
}

// Sync выполняет один цикл. Отказ relay из-за неожиданного idx ведёт к повторному
// запросу статуса, не больше MaxRetries раз.
func (e *SyncEngine) Sync(ctx context.Context) (*SyncResult, error) {
	started := time.Now()
	res := &SyncResult{}

	var l *lease
	if e.locker != nil {
		l = &lease{
			locker: e.locker,
			owner:  ulid.MustNew(ulid.Timestamp(started), rand.Reader).String(),
			ttl:    e.config.LockTTL,
		}
		unlock, err := e.locker.Lock(ctx, l.owner, l.ttl)
		if errors.Is(err, record.ErrLocked) {
			return res, ErrSyncInProgress
		}
		if err != nil {
			return res, err
		}
		defer func() {
			if err := unlock(); err != nil {
				e.log.Warn("не удалось снять блокировку", slog.Any("error", err))
			}
		}()
	}

	for attempt := 0; ; attempt++ {
		err := e.cycle(ctx, l, res)
		if err == nil {
			break
		}

		if errors.Is(err, record.ErrProtocol) && attempt < e.config.MaxRetries {
			res.Retries++
			e.log.Info("relay отклонил пакет, повторный запрос статуса", slog.Any("error", err))
			continue
		}

		res.Duration = time.Since(started)
		return res, err
	}

	res.Duration = time.Since(started)
	e.log.Debug("синхронизация завершена",
		slog.Int("uploaded", res.Uploaded),
		slog.Int("downloaded", res.Downloaded),
		slog.Int("skipped", res.Skipped),
		slog.Duration("took", res.Duration))

	return res, nil
}

func (e *SyncEngine) cycle(ctx context.Context, l *lease, res *SyncResult) error {
	local, err := e.store.Status(ctx)
	if err != nil {
		return err
	}

	remote, err := e.transport.Status(ctx)
	if err != nil {
		return err
	}
	res.ServerVersion = remote.Version

	pageSize := e.config.BatchSize
	if remote.PageSize > 0 && remote.PageSize < pageSize {
		pageSize = remote.PageSize
	}

	for _, op := range record.Diff(local, remote.Hosts) {
		switch op.Direction {
		case record.Upload:
			err = e.upload(ctx, l, op, res)
		case record.Download:
			err = e.download(ctx, l, op, pageSize, res)
		}
		if err != nil {
			return err
		}
	}

	return nil
}

func (e *SyncEngine) upload(ctx context.Context, l *lease, op record.Operation, res *SyncResult) error {
	batch := uint64(e.config.BatchSize)

	for start := op.Start; start < op.End(); {
		if err := l.renew(ctx); err != nil {
			return err
		}

		count := min(batch, op.End()-start)
		records, err := e.store.Range(ctx, op.Stream.Host, op.Stream.Tag, start, count)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			return record.NewStorageError("upload", fmt.Errorf("%s: no records from %d", op.Stream, start))
		}

		if err := e.transport.Upload(ctx, records); err != nil {
			return err
		}

		res.Uploaded += len(records)
		start += uint64(len(records))
	}

	e.log.Debug("поток выгружен", slog.String("stream", op.Stream.String()), slog.Uint64("count", op.Count))
	return nil
}

// download скачивает поток страницами. Страница сначала применяется к read-model
// и только потом сохраняется в журнал: если материализация прервалась, журнал
// не продвинулся и следующий цикл скачает страницу снова.
func (e *SyncEngine) download(ctx context.Context, l *lease, op record.Operation, pageSize int, res *SyncResult) error {
	for start := op.Start; start < op.End(); {
		if err := l.renew(ctx); err != nil {
			return err
		}

		count := min(uint64(pageSize), op.End()-start)
		records, err := e.transport.Next(ctx, op.Stream.Host, op.Stream.Tag, start, int(count))
		if err != nil {
			return err
		}
		if err := checkPage(op.Stream, start, records); err != nil {
			return err
		}

		if err := e.materialize(ctx, records, res); err != nil {
			return err
		}

		if _, err := e.store.Apply(ctx, records); err != nil {
			return err
		}
		res.Downloaded += len(records)

		start += uint64(len(records))
	}

	e.log.Debug("поток скачан", slog.String("stream", op.Stream.String()), slog.Uint64("count", op.Count))
	return nil
}

// materialize применяет записи к read-model. Ошибки хранилища прерывают цикл,
// нерасшифрованные записи только пропускаются.
func (e *SyncEngine) materialize(ctx context.Context, records []record.Record, res *SyncResult) error {
	for _, rec := range records {
		m, ok := e.materializers[rec.Tag]
		if !ok {
			continue
		}

		if _, err := m.Materialize(ctx, rec); err != nil {
			var storageErr *record.StorageError
			if errors.As(err, &storageErr) {
				return err
			}

			e.log.Warn("запись пропущена",
				slog.String("stream", rec.Stream().String()),
				slog.Uint64("idx", rec.Idx),
				slog.Any("error", err))
			res.Skipped++
			continue
		}
		res.Materialized++
	}

	return nil
}

// checkPage страница relay должна продолжать поток ровно с start
func checkPage(stream record.Stream, start record.Idx, records []record.Record) error {
	if len(records) == 0 {
		return fmt.Errorf("%w: empty page for %s from %d", record.ErrProtocol, stream, start)
	}

	for i, rec := range records {
		if rec.Stream() != stream || rec.Idx != start+uint64(i) {
			return fmt.Errorf("%w: %w: %s idx %d at position %d", record.ErrProtocol, record.ErrNotContiguous, rec.Stream(), rec.Idx, i)
		}
	}

	return nil
}

// lease аренда блокировки, продлеваемая перед каждым пакетом
type lease struct {
	locker record.Locker
	owner  string
	ttl    time.Duration
}

func (l *lease) renew(ctx context.Context) error {
	if l == nil {
		return nil
	}

	err := l.locker.Extend(ctx, l.owner, l.ttl)
	if errors.Is(err, record.ErrLocked) {
		return fmt.Errorf("%w: аренда блокировки потеряна", ErrSyncInProgress)
	}
	return err
}

// NoopSyncer используется при sync_enabled=false
type NoopSyncer struct{}

var _ Syncer = NoopSyncer{}

func (NoopSyncer) Sync(context.Context) (*SyncResult, error) {
	return &SyncResult{}, nil
}
