package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"gophistory/internal/domain/history"

	"golang.org/x/exp/slog"
)

// HistoryRepository read-model истории в SQLite
type HistoryRepository struct {
	db  *sql.DB
	log *slog.Logger
}

var _ history.Repository = (*HistoryRepository)(nil)

// OpenHistoryRepository открывает базу истории
func OpenHistoryRepository(path string, log *slog.Logger) (*HistoryRepository, error) {
	db, err := openSQLite(path, historyMigrations)
	if err != nil {
		return nil, err
	}

	return &HistoryRepository{
		db:  db,
		log: log.With(slog.String("component", "history_repository")),
	}, nil
}

func (r *HistoryRepository) Close() error {
	return r.db.Close()
}

func (r *HistoryRepository) Save(ctx context.Context, h *history.History) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO history (id, timestamp, duration, exit, command, cwd, session, hostname)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, h.ID, h.Timestamp.UnixNano(), h.Duration, h.Exit, h.Command, h.Cwd, h.Session, h.Hostname)
	if err != nil {
		return fmt.Errorf("save history: %w", err)
	}
	return nil
}

func (r *HistoryRepository) Load(ctx context.Context, id string) (*history.History, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, timestamp, duration, exit, command, cwd, session, hostname, deleted_at
		FROM history WHERE id = ?
	`, id)

	h, err := scanHistory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, history.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	return h, nil
}

func (r *HistoryRepository) Upsert(ctx context.Context, h *history.History) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO history (id, timestamp, duration, exit, command, cwd, session, hostname)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			timestamp = excluded.timestamp,
			duration  = excluded.duration,
			exit      = excluded.exit,
			command   = excluded.command,
			cwd       = excluded.cwd,
			session   = excluded.session,
			hostname  = excluded.hostname
		WHERE history.deleted_at IS NULL
	`, h.ID, h.Timestamp.UnixNano(), h.Duration, h.Exit, h.Command, h.Cwd, h.Session, h.Hostname)
	if err != nil {
		return fmt.Errorf("upsert history: %w", err)
	}
	return nil
}

func (r *HistoryRepository) MarkDeleted(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO history (id, timestamp, duration, exit, command, cwd, session, hostname, deleted_at)
		VALUES (?, ?, 0, 0, '', '', '', '', ?)
		ON CONFLICT (id) DO UPDATE SET
			command    = '',
			deleted_at = COALESCE(history.deleted_at, excluded.deleted_at)
	`, id, at.UnixNano(), at.UnixNano())
	if err != nil {
		return fmt.Errorf("mark history deleted: %w", err)
	}
	return nil
}

func (r *HistoryRepository) Remove(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM history WHERE id = ?`, id); err != nil {
		return fmt.Errorf("remove history: %w", err)
	}
	return nil
}

func (r *HistoryRepository) List(ctx context.Context, filter history.ListFilter) ([]*history.History, error) {
	var (
		where []string
		args  []any
	)

	if !filter.IncludeDeleted {
		where = append(where, "deleted_at IS NULL")
	}
	if filter.OnlyFinished {
		where = append(where, "duration >= 0")
	}
	if filter.Session != "" {
		where = append(where, "session = ?")
		args = append(args, filter.Session)
	}
	if filter.Cwd != "" {
		where = append(where, "cwd = ?")
		args = append(args, filter.Cwd)
	}
	if filter.Hostname != "" {
		where = append(where, "hostname = ?")
		args = append(args, filter.Hostname)
	}

	var q strings.Builder
	q.WriteString(`SELECT id, timestamp, duration, exit, command, cwd, session, hostname, deleted_at FROM history`)
	if len(where) > 0 {
		q.WriteString(" WHERE ")
		q.WriteString(strings.Join(where, " AND "))
	}
	if filter.Reverse {
		q.WriteString(" ORDER BY timestamp ASC, id ASC")
	} else {
		q.WriteString(" ORDER BY timestamp DESC, id DESC")
	}
	if filter.Limit > 0 {
		q.WriteString(" LIMIT ?")
		args = append(args, filter.Limit)
	}

	rows, err := r.db.QueryContext(ctx, q.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var res []*history.History
	for rows.Next() {
		h, err := scanHistory(rows)
		if err != nil {
			return nil, fmt.Errorf("list history: %w", err)
		}
		res = append(res, h)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}

	return res, nil
}

func (r *HistoryRepository) Duplicates(ctx context.Context, before time.Time, keep int) ([]*history.History, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, timestamp, duration, exit, command, cwd, session, hostname, deleted_at
		FROM (
			SELECT *, ROW_NUMBER() OVER (
				PARTITION BY command, cwd, hostname
				ORDER BY timestamp DESC, id DESC
			) AS dup_rank
			FROM history
			WHERE deleted_at IS NULL AND duration >= 0
		)
		WHERE dup_rank > ? AND timestamp < ?
		ORDER BY timestamp ASC, id ASC
	`, keep, before.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("find duplicates: %w", err)
	}
	defer rows.Close()

	var res []*history.History
	for rows.Next() {
		h, err := scanHistory(rows)
		if err != nil {
			return nil, fmt.Errorf("find duplicates: %w", err)
		}
		res = append(res, h)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find duplicates: %w", err)
	}

	return res, nil
}

func (r *HistoryRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM history WHERE deleted_at IS NULL`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count history: %w", err)
	}
	return n, nil
}

// Clear удаляет всё, что можно восстановить из журнала. Выполняющиеся команды остаются.
func (r *HistoryRepository) Clear(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM history WHERE NOT (duration < 0 AND deleted_at IS NULL)`)
	if err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanHistory(s scanner) (*history.History, error) {
	var (
		h         history.History
		ts        int64
		deletedAt sql.NullInt64
	)

	err := s.Scan(&h.ID, &ts, &h.Duration, &h.Exit, &h.Command, &h.Cwd, &h.Session, &h.Hostname, &deletedAt)
	if err != nil {
		return nil, err
	}

	h.Timestamp = time.Unix(0, ts).UTC()
	h.Deleted = deletedAt.Valid

	return &h, nil
}
