package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gophistory/internal/domain/record"
)

// MemoryRecordStore журнал записей в памяти для тестов
type MemoryRecordStore struct {
	mu      sync.RWMutex
	streams map[record.Stream][]record.Record

	lockOwner   string
	lockExpires time.Time
}

var _ record.Store = (*MemoryRecordStore)(nil)
var _ record.Locker = (*MemoryRecordStore)(nil)

func NewMemoryRecordStore() *MemoryRecordStore {
	return &MemoryRecordStore{
		streams: make(map[record.Stream][]record.Record),
	}
}

func (s *MemoryRecordStore) Close() error {
	return nil
}

func (s *MemoryRecordStore) Append(_ context.Context, host record.HostID, tag record.Tag, payload record.Payload) (record.Idx, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stream := record.Stream{Host: host, Tag: tag}
	idx := record.Idx(len(s.streams[stream]))
	s.streams[stream] = append(s.streams[stream], record.Record{
		Host:      host,
		Tag:       tag,
		Idx:       idx,
		Timestamp: payload.Timestamp,
		Version:   payload.Version,
		Data:      copyData(payload.Data),
	})

	return idx, nil
}

func (s *MemoryRecordStore) Apply(_ context.Context, records []record.Record) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// проверяем пакет целиком до изменения состояния
	expected := make(map[record.Stream]record.Idx)
	var accepted []record.Record
	for _, rec := range records {
		if err := rec.Validate(); err != nil {
			return 0, err
		}

		stream := rec.Stream()
		next, ok := expected[stream]
		if !ok {
			next = record.Idx(len(s.streams[stream]))
		}

		switch {
		case rec.Idx < next:
			continue
		case rec.Idx > next:
			return 0, fmt.Errorf("%w: %s expected idx %d, got %d", record.ErrNotContiguous, stream, next, rec.Idx)
		}

		rec.Data = copyData(rec.Data)
		accepted = append(accepted, rec)
		expected[stream] = next + 1
	}

	for _, rec := range accepted {
		s.streams[rec.Stream()] = append(s.streams[rec.Stream()], rec)
	}

	return len(accepted), nil
}

func (s *MemoryRecordStore) Range(_ context.Context, host record.HostID, tag record.Tag, start record.Idx, count uint64) ([]record.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stream := s.streams[record.Stream{Host: host, Tag: tag}]
	next := record.Idx(len(stream))
	if err := record.CheckRange(next, start); err != nil {
		return nil, err
	}

	end := next
	if count < next-start {
		end = start + count
	}

	res := make([]record.Record, 0, end-start)
	for _, rec := range stream[start:end] {
		rec.Data = copyData(rec.Data)
		res = append(res, rec)
	}

	return res, nil
}

func (s *MemoryRecordStore) LastIdx(_ context.Context, host record.HostID, tag record.Tag) (record.Idx, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.streams[record.Stream{Host: host, Tag: tag}])
	if n == 0 {
		return 0, false, nil
	}
	return record.Idx(n - 1), true, nil
}

func (s *MemoryRecordStore) Status(_ context.Context) (record.Status, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := record.NewStatus()
	for stream, records := range s.streams {
		if len(records) > 0 {
			status.Set(stream.Host, stream.Tag, record.Idx(len(records)-1))
		}
	}
	return status, nil
}

func (s *MemoryRecordStore) Lock(_ context.Context, owner string, ttl time.Duration) (func() error, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if s.lockOwner != "" && now.Before(s.lockExpires) {
		return nil, record.ErrLocked
	}

	s.lockOwner = owner
	s.lockExpires = now.Add(ttl)

	return func() error {
		s.mu.Lock()
		defer s.mu.Unlock()

		if s.lockOwner == owner {
			s.lockOwner = ""
		}
		return nil
	}, nil
}

func (s *MemoryRecordStore) Extend(_ context.Context, owner string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lockOwner != owner {
		return record.ErrLocked
	}
	s.lockExpires = time.Now().Add(ttl)
	return nil
}

func copyData(d record.EncryptedData) record.EncryptedData {
	return record.EncryptedData{
		Ciphertext: append([]byte(nil), d.Ciphertext...),
		Nonce:      append([]byte(nil), d.Nonce...),
	}
}
