// Package lock provides a store-backed advisory lock with TTL. The
// reconciliation sweep takes a lock before running so overlapping sweeps
// across process instances are skipped rather than raced.
package lock

import (
	"context"
	"time"
)

// Locker acquires named advisory locks. Acquire returns false without error
// when the lock is held elsewhere; the holder releases through the returned
// function, and the TTL bounds how long a crashed holder can wedge the lock.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) error, acquired bool, err error)
}
