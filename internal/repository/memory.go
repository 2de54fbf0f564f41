package repository

import (
	"context"
	"sync"
	"time"
)

type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

// MemoryLimitRepository is the in-process twin of RedisLimitRepository.
type MemoryLimitRepository struct {
	mu      sync.Mutex
	entries map[int64]*rateLimitEntry
	now     func() time.Time
}

func NewMemoryLimitRepository() *MemoryLimitRepository {
	return &MemoryLimitRepository{
		entries: make(map[int64]*rateLimitEntry),
		now:     time.Now,
	}
}

func (r *MemoryLimitRepository) CheckRateLimit(_ context.Context, userID int64, limit int, window time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	entry, ok := r.entries[userID]
	if !ok || !now.Before(entry.expiresAt) {
		entry = &rateLimitEntry{expiresAt: now.Add(window)}
		r.entries[userID] = entry
	}
	entry.count++

	return entry.count <= limit, nil
}
