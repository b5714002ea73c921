// Package memory репозитории relay в памяти процесса, когда DATABASE_URI не задан.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gophistory/internal/domain/record"
	"gophistory/internal/domain/session"
	domainsync "gophistory/internal/domain/sync"
	"gophistory/internal/domain/user"
)

type UserRepository struct {
	mu      sync.RWMutex
	nextID  int64
	byLogin map[string]user.User
}

func NewUserRepository() *UserRepository {
	return &UserRepository{byLogin: make(map[string]user.User)}
}

func (r *UserRepository) Create(_ context.Context, login, passwordHash string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byLogin[login]; ok {
		return 0, user.ErrLoginTaken
	}

	r.nextID++
	r.byLogin[login] = user.User{
		ID:           r.nextID,
		Login:        login,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}

	return r.nextID, nil
}

func (r *UserRepository) FindByLogin(_ context.Context, login string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byLogin[login]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return u, nil
}

type sessionEntry struct {
	userID    int64
	expiresAt time.Time
}

type SessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]sessionEntry
	now      func() time.Time
}

func NewSessionRepository() *SessionRepository {
	return &SessionRepository{
		sessions: make(map[string]sessionEntry),
		now:      time.Now,
	}
}

func (r *SessionRepository) Create(_ context.Context, userID int64, tokenHash string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[tokenHash] = sessionEntry{userID: userID, expiresAt: expiresAt}
	return nil
}

func (r *SessionRepository) Validate(_ context.Context, tokenHash string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[tokenHash]
	if !ok || !r.now().Before(s.expiresAt) {
		return 0, session.ErrInvalidSession
	}
	return s.userID, nil
}

func (r *SessionRepository) Delete(_ context.Context, tokenHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, tokenHash)
	return nil
}

type streamKey struct {
	userID int64
	stream record.Stream
}

// RecordRepository записи relay, сгруппированные по пользователю и потоку
type RecordRepository struct {
	mu      sync.RWMutex
	streams map[streamKey][]record.Record
}

var _ domainsync.Repository = (*RecordRepository)(nil)

func NewRecordRepository() *RecordRepository {
	return &RecordRepository{streams: make(map[streamKey][]record.Record)}
}

func (r *RecordRepository) Status(_ context.Context, userID int64) (record.Status, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	status := record.NewStatus()
	for key, records := range r.streams {
		if key.userID == userID && len(records) > 0 {
			status.Set(key.stream.Host, key.stream.Tag, record.Idx(len(records)-1))
		}
	}
	return status, nil
}

func (r *RecordRepository) Next(_ context.Context, userID int64, host record.HostID, tag record.Tag, start record.Idx, limit int) ([]record.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stream := r.streams[streamKey{userID: userID, stream: record.Stream{Host: host, Tag: tag}}]
	next := record.Idx(len(stream))
	if err := record.CheckRange(next, start); err != nil {
		return nil, err
	}

	end := next
	if limit >= 0 && uint64(limit) < next-start {
		end = start + uint64(limit)
	}

	return append([]record.Record{}, stream[start:end]...), nil
}

func (r *RecordRepository) Append(_ context.Context, userID int64, groups []domainsync.Group) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, g := range groups {
		next := record.Idx(len(r.streams[streamKey{userID: userID, stream: g.Stream}]))
		if g.First() != next {
			return &record.UnexpectedIdxError{Host: g.Stream.Host, Tag: g.Stream.Tag, Expected: next, Got: g.First()}
		}
		for i, rec := range g.Records {
			if rec.Idx != next+record.Idx(i) {
				return fmt.Errorf("%w: %s", record.ErrNotContiguous, g.Stream)
			}
		}
	}

	for _, g := range groups {
		key := streamKey{userID: userID, stream: g.Stream}
		r.streams[key] = append(r.streams[key], g.Records...)
	}

	return nil
}
