package storage

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"sync"
	"time"

	"gophistory/internal/domain/record"

	"golang.org/x/exp/slog"
)

// RecordStore журнал записей в SQLite, одна таблица с ключом (host, tag, idx)
type RecordStore struct {
	db  *sql.DB
	log *slog.Logger
	// запись идёт через один мьютекс, чтение параллельно через WAL
	mu sync.Mutex
}

var _ record.Store = (*RecordStore)(nil)
var _ record.Locker = (*RecordStore)(nil)

// OpenRecordStore открывает журнал записей
func OpenRecordStore(path string, log *slog.Logger) (*RecordStore, error) {
	db, err := openSQLite(path, recordsMigrations)
	if err != nil {
		return nil, record.NewStorageError("open", err)
	}

	return &RecordStore{
		db:  db,
		log: log.With(slog.String("component", "record_store")),
	}, nil
}

func (s *RecordStore) Close() error {
	return s.db.Close()
}

func (s *RecordStore) Append(ctx context.Context, host record.HostID, tag record.Tag, payload record.Payload) (record.Idx, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, record.NewStorageError("append", err)
	}
	defer tx.Rollback()

	next, err := nextIdx(ctx, tx, host, tag)
	if err != nil {
		return 0, record.NewStorageError("append", err)
	}

	rec := record.Record{
		Host:      host,
		Tag:       tag,
		Idx:       next,
		Timestamp: payload.Timestamp,
		Version:   payload.Version,
		Data:      payload.Data,
	}
	if err := insertRecord(ctx, tx, rec); err != nil {
		return 0, record.NewStorageError("append", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, record.NewStorageError("append", err)
	}

	return next, nil
}

func (s *RecordStore) Apply(ctx context.Context, records []record.Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, record.NewStorageError("apply", err)
	}
	defer tx.Rollback()

	expected := make(map[record.Stream]record.Idx)
	inserted := 0

	for _, rec := range records {
		if err := rec.Validate(); err != nil {
			return 0, err
		}

		stream := rec.Stream()
		next, ok := expected[stream]
		if !ok {
			if next, err = nextIdx(ctx, tx, rec.Host, rec.Tag); err != nil {
				return 0, record.NewStorageError("apply", err)
			}
		}

		switch {
		case rec.Idx < next:
			// уже есть локально
			continue
		case rec.Idx > next:
			return 0, fmt.Errorf("%w: %s expected idx %d, got %d", record.ErrNotContiguous, stream, next, rec.Idx)
		}

		if err := insertRecord(ctx, tx, rec); err != nil {
			return 0, record.NewStorageError("apply", err)
		}
		expected[stream] = next + 1
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, record.NewStorageError("apply", err)
	}

	return inserted, nil
}

func (s *RecordStore) Range(ctx context.Context, host record.HostID, tag record.Tag, start record.Idx, count uint64) ([]record.Record, error) {
	next, err := nextIdx(ctx, s.db, host, tag)
	if err != nil {
		return nil, record.NewStorageError("range", err)
	}
	if err := record.CheckRange(next, start); err != nil {
		return nil, err
	}

	limit := int64(math.MaxInt64)
	if count < uint64(math.MaxInt64) {
		limit = int64(count)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT host, tag, idx, timestamp, version, data, nonce
		FROM store
		WHERE host = ? AND tag = ? AND idx >= ?
		ORDER BY idx ASC
		LIMIT ?
	`, string(host), string(tag), int64(start), limit)
	if err != nil {
		return nil, record.NewStorageError("range", err)
	}
	defer rows.Close()

	var records []record.Record
	for rows.Next() {
		var (
			rec       record.Record
			h, t      string
			idx       int64
			data, non []byte
		)
		if err := rows.Scan(&h, &t, &idx, &rec.Timestamp, &rec.Version, &data, &non); err != nil {
			return nil, record.NewStorageError("range", err)
		}
		rec.Host = record.HostID(h)
		rec.Tag = record.Tag(t)
		rec.Idx = record.Idx(idx)
		rec.Data = record.EncryptedData{Ciphertext: data, Nonce: non}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, record.NewStorageError("range", err)
	}

	return records, nil
}

func (s *RecordStore) LastIdx(ctx context.Context, host record.HostID, tag record.Tag) (record.Idx, bool, error) {
	next, err := nextIdx(ctx, s.db, host, tag)
	if err != nil {
		return 0, false, record.NewStorageError("last idx", err)
	}
	if next == 0 {
		return 0, false, nil
	}
	return next - 1, true, nil
}

func (s *RecordStore) Status(ctx context.Context) (record.Status, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT host, tag, MAX(idx) FROM store GROUP BY host, tag`)
	if err != nil {
		return nil, record.NewStorageError("status", err)
	}
	defer rows.Close()

	status := record.NewStatus()
	for rows.Next() {
		var (
			host, tag string
			idx       int64
		)
		if err := rows.Scan(&host, &tag, &idx); err != nil {
			return nil, record.NewStorageError("status", err)
		}
		status.Set(record.HostID(host), record.Tag(tag), record.Idx(idx))
	}

	if err := rows.Err(); err != nil {
		return nil, record.NewStorageError("status", err)
	}

	return status, nil
}

// Lock берёт аренду на цикл синхронизации. Истёкшая аренда чужого процесса снимается.
func (s *RecordStore) Lock(ctx context.Context, owner string, ttl time.Duration) (func() error, error) {
	now := time.Now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, record.NewStorageError("lock", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM sync_lock WHERE expires_at < ?`, now.UnixNano()); err != nil {
		return nil, record.NewStorageError("lock", err)
	}

	res, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO sync_lock (id, owner, expires_at) VALUES (1, ?, ?)`,
		owner, now.Add(ttl).UnixNano())
	if err != nil {
		return nil, record.NewStorageError("lock", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return nil, record.NewStorageError("lock", err)
	}
	if n == 0 {
		return nil, record.ErrLocked
	}

	if err := tx.Commit(); err != nil {
		return nil, record.NewStorageError("lock", err)
	}

	unlock := func() error {
		_, err := s.db.Exec(`DELETE FROM sync_lock WHERE owner = ?`, owner)
		return record.NewStorageError("unlock", err)
	}

	return unlock, nil
}

// Extend продлевает аренду, пока её держит owner. Истёкшая, но никем не занятая аренда
// тоже продлевается.
func (s *RecordStore) Extend(ctx context.Context, owner string, ttl time.Duration) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sync_lock SET expires_at = ? WHERE owner = ?`,
		time.Now().Add(ttl).UnixNano(), owner)
	if err != nil {
		return record.NewStorageError("extend lock", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return record.NewStorageError("extend lock", err)
	}
	if n == 0 {
		return record.ErrLocked
	}

	return nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func nextIdx(ctx context.Context, q queryer, host record.HostID, tag record.Tag) (record.Idx, error) {
	var last sql.NullInt64
	err := q.QueryRowContext(ctx,
		`SELECT MAX(idx) FROM store WHERE host = ? AND tag = ?`,
		string(host), string(tag)).Scan(&last)
	if err != nil {
		return 0, err
	}
	if !last.Valid {
		return 0, nil
	}
	return record.Idx(last.Int64) + 1, nil
}

func insertRecord(ctx context.Context, tx *sql.Tx, rec record.Record) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO store (host, tag, idx, timestamp, version, data, nonce)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, string(rec.Host), string(rec.Tag), int64(rec.Idx), rec.Timestamp, rec.Version, rec.Data.Ciphertext, rec.Data.Nonce)
	return err
}
