package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"gophistory/internal/domain/history"
)

// MemoryHistoryRepository read-model в памяти для тестов
type MemoryHistoryRepository struct {
	mu      sync.RWMutex
	entries map[string]*history.History
}

var _ history.Repository = (*MemoryHistoryRepository)(nil)

func NewMemoryHistoryRepository() *MemoryHistoryRepository {
	return &MemoryHistoryRepository{
		entries: make(map[string]*history.History),
	}
}

func (r *MemoryHistoryRepository) Close() error {
	return nil
}

func (r *MemoryHistoryRepository) Save(_ context.Context, h *history.History) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[h.ID]; ok {
		return nil
	}
	entry := *h
	entry.Deleted = false
	r.entries[h.ID] = &entry
	return nil
}

func (r *MemoryHistoryRepository) Load(_ context.Context, id string) (*history.History, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.entries[id]
	if !ok {
		return nil, history.ErrNotFound
	}
	entry := *h
	return &entry, nil
}

func (r *MemoryHistoryRepository) Upsert(_ context.Context, h *history.History) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cur, ok := r.entries[h.ID]; ok && cur.Deleted {
		return nil
	}
	entry := *h
	entry.Deleted = false
	r.entries[h.ID] = &entry
	return nil
}

func (r *MemoryHistoryRepository) MarkDeleted(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.entries[id]
	if !ok {
		r.entries[id] = &history.History{ID: id, Timestamp: at.UTC(), Deleted: true}
		return nil
	}
	h.Command = ""
	h.Deleted = true
	return nil
}

func (r *MemoryHistoryRepository) Remove(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.entries, id)
	return nil
}

func (r *MemoryHistoryRepository) List(_ context.Context, filter history.ListFilter) ([]*history.History, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var res []*history.History
	for _, h := range r.entries {
		switch {
		case h.Deleted && !filter.IncludeDeleted:
			continue
		case filter.OnlyFinished && !h.IsFinished():
			continue
		case filter.Session != "" && h.Session != filter.Session:
			continue
		case filter.Cwd != "" && h.Cwd != filter.Cwd:
			continue
		case filter.Hostname != "" && h.Hostname != filter.Hostname:
			continue
		}
		entry := *h
		res = append(res, &entry)
	}

	sort.Slice(res, func(i, j int) bool {
		a, b := res[i], res[j]
		if !a.Timestamp.Equal(b.Timestamp) {
			if filter.Reverse {
				return a.Timestamp.Before(b.Timestamp)
			}
			return a.Timestamp.After(b.Timestamp)
		}
		if filter.Reverse {
			return a.ID < b.ID
		}
		return a.ID > b.ID
	})

	if filter.Limit > 0 && len(res) > filter.Limit {
		res = res[:filter.Limit]
	}

	return res, nil
}

func (r *MemoryHistoryRepository) Duplicates(_ context.Context, before time.Time, keep int) ([]*history.History, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	type key struct{ command, cwd, hostname string }
	groups := make(map[key][]*history.History)
	for _, h := range r.entries {
		if h.Deleted || !h.IsFinished() {
			continue
		}
		k := key{h.Command, h.Cwd, h.Hostname}
		groups[k] = append(groups[k], h)
	}

	var res []*history.History
	for _, group := range groups {
		sort.Slice(group, func(i, j int) bool {
			return newer(group[i], group[j])
		})
		for i, h := range group {
			if i < keep || !h.Timestamp.Before(before) {
				continue
			}
			entry := *h
			res = append(res, &entry)
		}
	}

	sort.Slice(res, func(i, j int) bool {
		return newer(res[j], res[i])
	})

	return res, nil
}

func newer(a, b *history.History) bool {
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.After(b.Timestamp)
	}
	return a.ID > b.ID
}

func (r *MemoryHistoryRepository) Count(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var n int64
	for _, h := range r.entries {
		if !h.Deleted {
			n++
		}
	}
	return n, nil
}

func (r *MemoryHistoryRepository) Clear(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, h := range r.entries {
		if h.Deleted || h.IsFinished() {
			delete(r.entries, id)
		}
	}
	return nil
}
