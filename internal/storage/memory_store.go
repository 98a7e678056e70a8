package storage

import (
	"context"
	"sync"
)

// MemoryStore хранит снимки регионов в памяти.
// Данные теряются при перезапуске сервера.
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[[2]int]*RegionSnapshot
	closed bool
}

// NewMemoryStore создаёт пустое хранилище в памяти
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[[2]int]*RegionSnapshot)}
}

func (s *MemoryStore) Save(ctx context.Context, snap *RegionSnapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.data[[2]int{snap.X, snap.Y}] = cloneSnapshot(snap)
	return nil
}

func (s *MemoryStore) Load(ctx context.Context, x, y int) (*RegionSnapshot, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, false, ErrClosed
	}
	snap, ok := s.data[[2]int{x, y}]
	if !ok {
		return nil, false, nil
	}
	return cloneSnapshot(snap), true, nil
}

func (s *MemoryStore) Delete(ctx context.Context, x, y int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	delete(s.data, [2]int{x, y})
	return nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// cloneSnapshot копия, чтобы вызывающий не менял сохранённые данные
func cloneSnapshot(snap *RegionSnapshot) *RegionSnapshot {
	c := *snap
	c.Entities = make([]EntityRecord, len(snap.Entities))
	copy(c.Entities, snap.Entities)
	return &c
}
