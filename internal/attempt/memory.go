package attempt

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/Freeeeeet/lesson_scheduler/internal/model"
	"github.com/google/uuid"
)

type entry struct {
	data      []byte
	expiresAt time.Time
}

// MemoryStore хранит попытки в памяти процесса
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]entry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryStore создаёт хранилище; ttl <= 0 - без истечения
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		entries: make(map[uuid.UUID]entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Save сохраняет копию попытки, чтобы вызывающий не мог изменить её в обход протокола
func (s *MemoryStore) Save(_ context.Context, a *model.Attempt) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal attempt: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e := entry{data: data}
	if s.ttl > 0 {
		e.expiresAt = s.now().Add(s.ttl)
	}
	s.entries[a.ID] = e
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id uuid.UUID) (*model.Attempt, error) {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()

	if !ok {
		return nil, nil
	}
	if !e.expiresAt.IsZero() && !s.now().Before(e.expiresAt) {
		s.mu.Lock()
		delete(s.entries, id)
		s.mu.Unlock()
		return nil, nil
	}

	var a model.Attempt
	if err := json.Unmarshal(e.data, &a); err != nil {
		return nil, fmt.Errorf("unmarshal attempt: %w", err)
	}
	return &a, nil
}
