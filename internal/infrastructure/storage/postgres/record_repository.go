package postgres

import (
	"context"
	"fmt"

	"gophistory/internal/domain/record"
	"gophistory/internal/domain/sync"

	"github.com/jackc/pgx/v5"
	"golang.org/x/exp/slog"
)

var recordColumns = []string{"user_id", "host", "tag", "idx", "timestamp", "version", "data", "nonce"}

// RecordRepository записи relay. Непрерывность потоков держит проверка следующего idx
// под advisory lock пользователя, первичный ключ (user_id, host, tag, idx) страхует от дублей.
type RecordRepository struct {
	db  *Storage
	log *slog.Logger
}

var _ sync.Repository = (*RecordRepository)(nil)

func NewRecordRepository(db *Storage, log *slog.Logger) *RecordRepository {
	return &RecordRepository{
		db:  db,
		log: log.With(slog.String("component", "record_repository")),
	}
}

func (r *RecordRepository) Status(ctx context.Context, userID int64) (record.Status, error) {
	rows, err := r.db.Pool().Query(ctx,
		`SELECT host, tag, MAX(idx) FROM records WHERE user_id = $1 GROUP BY host, tag`, userID)
	if err != nil {
		return nil, fmt.Errorf("select status: %w", err)
	}
	defer rows.Close()

	status := record.NewStatus()
	for rows.Next() {
		var (
			host, tag string
			idx       int64
		)
		if err := rows.Scan(&host, &tag, &idx); err != nil {
			return nil, fmt.Errorf("scan status: %w", err)
		}
		status.Set(record.HostID(host), record.Tag(tag), record.Idx(idx))
	}

	return status, rows.Err()
}

func (r *RecordRepository) Next(ctx context.Context, userID int64, host record.HostID, tag record.Tag, start record.Idx, limit int) ([]record.Record, error) {
	next, err := nextIdx(ctx, r.db.Pool(), userID, host, tag)
	if err != nil {
		return nil, err
	}
	if err := record.CheckRange(next, start); err != nil {
		return nil, err
	}

	rows, err := r.db.Pool().Query(ctx, `
		SELECT host, tag, idx, timestamp, version, data, nonce
		FROM records
		WHERE user_id = $1 AND host = $2 AND tag = $3 AND idx >= $4
		ORDER BY idx
		LIMIT $5`,
		userID, string(host), string(tag), int64(start), limit)
	if err != nil {
		return nil, fmt.Errorf("select records: %w", err)
	}
	defer rows.Close()

	records := make([]record.Record, 0, limit)
	for rows.Next() {
		var (
			rec      record.Record
			h, t     string
			idx      int64
			data, nc []byte
		)
		if err := rows.Scan(&h, &t, &idx, &rec.Timestamp, &rec.Version, &data, &nc); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		rec.Host, rec.Tag, rec.Idx = record.HostID(h), record.Tag(t), record.Idx(idx)
		rec.Data = record.EncryptedData{Ciphertext: data, Nonce: nc}
		records = append(records, rec)
	}

	return records, rows.Err()
}

func (r *RecordRepository) Append(ctx context.Context, userID int64, groups []sync.Group) error {
	tx, err := r.db.Pool().Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	// загрузки одного пользователя сериализуются до конца транзакции
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, userID); err != nil {
		return fmt.Errorf("lock user records: %w", err)
	}

	var rows [][]any
	for _, g := range groups {
		next, err := nextIdx(ctx, tx, userID, g.Stream.Host, g.Stream.Tag)
		if err != nil {
			return err
		}
		if g.First() != next {
			return &record.UnexpectedIdxError{Host: g.Stream.Host, Tag: g.Stream.Tag, Expected: next, Got: g.First()}
		}

		for _, rec := range g.Records {
			rows = append(rows, []any{
				userID, string(rec.Host), string(rec.Tag), int64(rec.Idx),
				rec.Timestamp, rec.Version, rec.Data.Ciphertext, rec.Data.Nonce,
			})
		}
	}

	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"records"}, recordColumns, pgx.CopyFromRows(rows)); err != nil {
		return fmt.Errorf("copy records: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	return nil
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func nextIdx(ctx context.Context, q rowQuerier, userID int64, host record.HostID, tag record.Tag) (record.Idx, error) {
	var next int64
	err := q.QueryRow(ctx,
		`SELECT COALESCE(MAX(idx) + 1, 0) FROM records WHERE user_id = $1 AND host = $2 AND tag = $3`,
		userID, string(host), string(tag)).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("select next idx: %w", err)
	}
	return record.Idx(next), nil
}
