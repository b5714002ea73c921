package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gophistory/internal/domain/record"

	"golang.org/x/exp/slog"
)

const buildBatch = 500

const (
	kindCreate = "create"
	kindDelete = "delete"
)

// Cipher шифрование содержимого записей
type Cipher interface {
	Seal(plaintext, ad []byte) (record.EncryptedData, error)
	Open(data record.EncryptedData, ad []byte) ([]byte, error)
}

// payload открытое содержимое записи истории
type payload struct {
	Kind    string   `json:"kind"`
	History *History `json:"history,omitempty"`
	ID      string   `json:"id,omitempty"`
}

// BuildResult итог пересборки read-model
type BuildResult struct {
	Applied int
	Skipped int
}

// Store отображает историю на журнал записей под тегом "history"
// и материализует записи обратно в read-model.
type Store struct {
	records record.Store
	repo    Repository
	cipher  Cipher
	host    record.HostID
	log     *slog.Logger
	now     func() time.Time
}

func NewStore(records record.Store, repo Repository, cipher Cipher, host record.HostID, log *slog.Logger) *Store {
	return &Store{
		records: records,
		repo:    repo,
		cipher:  cipher,
		host:    host,
		log:     log.With(slog.String("component", "history_store")),
		now:     time.Now,
	}
}

// Push шифрует завершённую запись истории и добавляет её в журнал.
// Read-model не меняется, это делает Materialize.
func (s *Store) Push(ctx context.Context, h *History) (record.Record, error) {
	entry := *h
	entry.Deleted = false

	return s.append(ctx, payload{Kind: kindCreate, History: &entry})
}

// Delete добавляет в журнал запись об удалении
func (s *Store) Delete(ctx context.Context, id string) (record.Record, error) {
	return s.append(ctx, payload{Kind: kindDelete, ID: id})
}

// Materialize расшифровывает запись и применяет её к read-model.
// Повторное применение той же записи ничего не меняет.
func (s *Store) Materialize(ctx context.Context, rec record.Record) (*History, error) {
	p, err := s.decode(rec)
	if err != nil {
		return nil, err
	}

	switch p.Kind {
	case kindCreate:
		if err := s.repo.Upsert(ctx, p.History); err != nil {
			return nil, record.NewStorageError("materialize", err)
		}
		return p.History, nil

	case kindDelete:
		at := time.Unix(0, rec.Timestamp).UTC()
		if err := s.repo.MarkDeleted(ctx, p.ID, at); err != nil {
			return nil, record.NewStorageError("materialize", err)
		}
		return &History{ID: p.ID, Deleted: true}, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, p.Kind)
}

// Build очищает read-model и заново применяет все записи истории всех хостов.
// Записи, которые не удалось расшифровать, пропускаются.
func (s *Store) Build(ctx context.Context) (BuildResult, error) {
	var res BuildResult

	if err := s.repo.Clear(ctx); err != nil {
		return res, record.NewStorageError("clear read-model", err)
	}

	status, err := s.records.Status(ctx)
	if err != nil {
		return res, err
	}

	for _, stream := range status.Streams() {
		if stream.Tag != Tag {
			continue
		}

		err := record.Walk(ctx, s.records, stream.Host, stream.Tag, 0, buildBatch, func(rec record.Record) error {
			if _, err := s.Materialize(ctx, rec); err != nil {
				var storageErr *record.StorageError
				if errors.As(err, &storageErr) {
					return err
				}

				s.log.Warn("пропуск записи", slog.String("stream", stream.String()), slog.Uint64("idx", rec.Idx), slog.Any("error", err))
				res.Skipped++
				return nil
			}

			res.Applied++
			return nil
		})
		if err != nil {
			return res, err
		}
	}

	return res, nil
}

// Verify проверяет, что все записи истории расшифровываются текущим ключом
func (s *Store) Verify(ctx context.Context) (ok int, failed []record.Record, err error) {
	status, err := s.records.Status(ctx)
	if err != nil {
		return 0, nil, err
	}

	for _, stream := range status.Streams() {
		if stream.Tag != Tag {
			continue
		}

		err := record.Walk(ctx, s.records, stream.Host, stream.Tag, 0, buildBatch, func(rec record.Record) error {
			if _, err := s.decode(rec); err != nil {
				failed = append(failed, rec)
				return nil
			}
			ok++
			return nil
		})
		if err != nil {
			return ok, failed, err
		}
	}

	return ok, failed, nil
}

func (s *Store) append(ctx context.Context, p payload) (record.Record, error) {
	plaintext, err := json.Marshal(p)
	if err != nil {
		return record.Record{}, fmt.Errorf("marshal history record: %w", err)
	}

	data, err := s.cipher.Seal(plaintext, record.AdditionalData(s.host, Tag, Version))
	if err != nil {
		return record.Record{}, fmt.Errorf("seal history record: %w", err)
	}

	ts := s.now().UnixNano()
	idx, err := s.records.Append(ctx, s.host, Tag, record.Payload{Timestamp: ts, Version: Version, Data: data})
	if err != nil {
		return record.Record{}, err
	}

	s.log.Debug("запись добавлена в журнал", slog.String("kind", p.Kind), slog.Uint64("idx", idx))

	return record.Record{
		Host:      s.host,
		Tag:       Tag,
		Idx:       idx,
		Timestamp: ts,
		Version:   Version,
		Data:      data,
	}, nil
}

func (s *Store) decode(rec record.Record) (payload, error) {
	var p payload

	if rec.Tag != Tag {
		return p, fmt.Errorf("%w: %q", ErrWrongTag, rec.Tag)
	}
	if rec.Version != Version {
		return p, fmt.Errorf("%w: %q", ErrUnknownVersion, rec.Version)
	}

	plaintext, err := s.cipher.Open(rec.Data, record.AdditionalData(rec.Host, rec.Tag, rec.Version))
	if err != nil {
		return p, fmt.Errorf("open %s/%d: %w", rec.Stream(), rec.Idx, err)
	}

	if err := json.Unmarshal(plaintext, &p); err != nil {
		return p, fmt.Errorf("unmarshal %s/%d: %w", rec.Stream(), rec.Idx, err)
	}

	switch p.Kind {
	case kindCreate:
		if p.History == nil || p.History.ID == "" {
			return p, fmt.Errorf("%w: create without history", ErrUnknownKind)
		}
	case kindDelete:
		if p.ID == "" {
			return p, fmt.Errorf("%w: delete without id", ErrUnknownKind)
		}
	default:
		return p, fmt.Errorf("%w: %q", ErrUnknownKind, p.Kind)
	}

	return p, nil
}
