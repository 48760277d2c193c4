package jwt

import (
	"sync"
	"time"
)

// Blacklist records refresh tokens that were logged out or rotated away.
type Blacklist struct {
	revoked map[string]time.Time
	mu      sync.RWMutex
}

func NewBlacklist() *Blacklist {
	return &Blacklist{
		revoked: make(map[string]time.Time),
	}
}

func (b *Blacklist) Add(jti string, exp time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.revoked[jti] = exp
}

func (b *Blacklist) IsRevoked(jti string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, exists := b.revoked[jti]
	return exists
}

// Cleanup drops entries whose token has expired anyway.
func (b *Blacklist) Cleanup() {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := NowTimeFunc()
	for jti, exp := range b.revoked {
		if now.After(exp) {
			delete(b.revoked, jti)
		}
	}
}
