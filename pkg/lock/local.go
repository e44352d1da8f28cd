package lock

import (
	"context"
	"sync"
	"time"
)

// LocalLocker implements Locker in process memory. It is correct only for
// single-instance deployments; multi-instance setups need the redis locker.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]time.Time // key -> expiry
}

// NewLocalLocker creates an in-process locker.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[string]time.Time)}
}

// Acquire takes the named lock unless an unexpired holder exists.
func (l *LocalLocker) Acquire(_ context.Context, key string, ttl time.Duration) (func(context.Context) error, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()

	if expiry, held := l.locks[key]; held && now.Before(expiry) {
		return nil, false, nil
	}

	l.locks[key] = now.Add(ttl)

	release := func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()

		delete(l.locks, key)

		return nil
	}

	return release, true, nil
}
