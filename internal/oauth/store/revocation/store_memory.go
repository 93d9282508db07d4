package revocation

import (
	"context"
	"sync"
	"time"
)

// MemoryBlacklist is the single-process fallback used when Redis is not
// configured. Entries are pruned lazily on read.
type MemoryBlacklist struct {
	mu      sync.Mutex
	entries map[string]time.Time
	clock   func() time.Time
}

func NewMemoryBlacklist() *MemoryBlacklist {
	return &MemoryBlacklist{
		entries: make(map[string]time.Time),
		clock:   time.Now,
	}
}

func (b *MemoryBlacklist) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	if jti == "" || ttl <= 0 {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[jti] = b.clock().Add(ttl)
	return nil
}

func (b *MemoryBlacklist) IsRevoked(_ context.Context, jti string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	expires, ok := b.entries[jti]
	if !ok {
		return false, nil
	}
	if !b.clock().Before(expires) {
		delete(b.entries, jti)
		return false, nil
	}
	return true, nil
}
