package sync

import (
	"context"
	"fmt"
	"time"

	"gophistory/internal/domain/record"

	"golang.org/x/exp/slog"
)

const (
	defaultPageSize     = 100
	defaultMaxBatchSize = 1000
)

// Servicer операции relay над журналами записей
type Servicer interface {
	Status(ctx context.Context, userID int64) (*StatusSnapshot, error)
	Next(ctx context.Context, userID int64, host record.HostID, tag record.Tag, start record.Idx, count int) ([]record.Record, error)
	Upload(ctx context.Context, userID int64, records []record.Record) (*UploadResult, error)
}

// Service реализация сервиса синхронизации. Relay не расшифровывает записи,
// он только хранит их и следит за непрерывностью индексов.
type Service struct {
	repo   Repository
	log    *slog.Logger
	config *ServiceConfig
}

// NewService создает новый сервис синхронизации
func NewService(repo Repository, log *slog.Logger, config *ServiceConfig) *Service {
	cfg := ServiceConfig{PageSize: defaultPageSize, MaxBatchSize: defaultMaxBatchSize}
	if config != nil {
		if config.PageSize > 0 {
			cfg.PageSize = config.PageSize
		}
		if config.MaxBatchSize > 0 {
			cfg.MaxBatchSize = config.MaxBatchSize
		}
	}

	return &Service{
		repo:   repo,
		log:    log.With(slog.String("component", "sync_service")),
		config: &cfg,
	}
}

// Status возвращает последние idx всех потоков пользователя
func (s *Service) Status(ctx context.Context, userID int64) (*StatusSnapshot, error) {
	status, err := s.repo.Status(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get status: %w", err)
	}

	return &StatusSnapshot{Hosts: status, PageSize: s.config.PageSize}, nil
}

// Next возвращает страницу записей потока. count ограничивается размером страницы.
func (s *Service) Next(ctx context.Context, userID int64, host record.HostID, tag record.Tag, start record.Idx, count int) ([]record.Record, error) {
	if host == "" || tag == "" {
		return nil, fmt.Errorf("%w: host and tag are required", record.ErrInvalidRecord)
	}

	limit := count
	if limit <= 0 || limit > s.config.PageSize {
		limit = s.config.PageSize
	}

	records, err := s.repo.Next(ctx, userID, host, tag, start, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get records %s/%s from %d: %w", host, tag, start, err)
	}

	return records, nil
}

// Upload принимает пакет записей целиком или отклоняет его.
// Записи группируются по потокам в порядке поступления.
func (s *Service) Upload(ctx context.Context, userID int64, records []record.Record) (*UploadResult, error) {
	started := time.Now()

	groups, err := s.group(records)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Append(ctx, userID, groups); err != nil {
		s.log.Debug("upload rejected", slog.Int64("user_id", userID), slog.Any("error", err))
		return nil, err
	}

	res := &UploadResult{Accepted: len(records), Took: time.Since(started)}
	for _, g := range groups {
		res.Streams = append(res.Streams, g.Stream)
	}

	s.log.Debug("upload accepted",
		slog.Int64("user_id", userID),
		slog.Int("records", res.Accepted),
		slog.Int("streams", len(groups)))

	return res, nil
}

func (s *Service) group(records []record.Record) ([]Group, error) {
	if len(records) == 0 {
		return nil, ErrEmptyBatch
	}
	if len(records) > s.config.MaxBatchSize {
		return nil, fmt.Errorf("%w: %d > %d", ErrBatchTooLarge, len(records), s.config.MaxBatchSize)
	}

	index := make(map[record.Stream]int)
	var groups []Group

	for _, rec := range records {
		if err := rec.Validate(); err != nil {
			return nil, err
		}

		stream := rec.Stream()
		i, ok := index[stream]
		if !ok {
			index[stream] = len(groups)
			groups = append(groups, Group{Stream: stream, Records: []record.Record{rec}})
			continue
		}

		prev := groups[i].Records[len(groups[i].Records)-1]
		if rec.Idx != prev.Idx+1 {
			return nil, fmt.Errorf("%w: %s idx %d after %d", record.ErrNotContiguous, stream, rec.Idx, prev.Idx)
		}
		groups[i].Records = append(groups[i].Records, rec)
	}

	return groups, nil
}
