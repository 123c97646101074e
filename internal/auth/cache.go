package auth

import (
	"context"
	"sync"
	"time"

	"github.com/dynexia/portal/internal/gate"
)

// CachedResolver wraps a SubjectResolver with TTL-based caching so the user
// row is not re-read on every authenticated request.
type CachedResolver struct {
	inner SubjectResolver
	cache map[uint]cacheEntry
	mu    sync.RWMutex
	ttl   time.Duration
}

type cacheEntry struct {
	subject   gate.Subject
	ok        bool
	expiresAt time.Time
}

// NewCachedResolver wraps a resolver with caching.
// ttl is how long subjects are cached before re-fetching.
func NewCachedResolver(inner SubjectResolver, ttl time.Duration) *CachedResolver {
	return &CachedResolver{inner: inner, cache: make(map[uint]cacheEntry), ttl: ttl}
}

// Resolve returns the subject for the given user id, using the cache if fresh.
func (r *CachedResolver) Resolve(ctx context.Context, uid uint) (gate.Subject, bool) {
	r.mu.RLock()
	entry, ok := r.cache[uid]
	r.mu.RUnlock()

	if ok && time.Now().Before(entry.expiresAt) {
		return entry.subject, entry.ok
	}

	sub, found := r.inner(ctx, uid)

	r.mu.Lock()
	r.cache[uid] = cacheEntry{subject: sub, ok: found, expiresAt: time.Now().Add(r.ttl)}
	r.mu.Unlock()

	return sub, found
}

// Invalidate removes a user from the cache.
// Call this when a user's role changes or the user is deleted.
func (r *CachedResolver) Invalidate(uid uint) {
	r.mu.Lock()
	delete(r.cache, uid)
	r.mu.Unlock()
}

// InvalidateAll clears the entire cache.
func (r *CachedResolver) InvalidateAll() {
	r.mu.Lock()
	r.cache = make(map[uint]cacheEntry)
	r.mu.Unlock()
}
