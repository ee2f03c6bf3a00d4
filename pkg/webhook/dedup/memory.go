package dedup

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a single-process Store for tests and local runs. Replicas
// do not see each other's claims.
type MemoryStore struct {
	mu      sync.Mutex
	records map[Key]memoryRecord
	now     func() time.Time
}

type memoryRecord struct {
	owner     string
	expiresAt time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[Key]memoryRecord), now: time.Now}
}

// WithClock replaces the time source.
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	s.now = now
	return s
}

func (s *MemoryStore) Claim(_ context.Context, key Key, owner string, ttl time.Duration) (bool, error) {
	if err := key.validate(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if rec, ok := s.records[key]; ok && now.Before(rec.expiresAt) && rec.owner != owner {
		return false, nil
	}
	s.records[key] = memoryRecord{owner: owner, expiresAt: now.Add(ttl)}
	return true, nil
}
