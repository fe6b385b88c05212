// Package lock provides named, non-blocking mutual exclusion with a bounded
// hold time, either within one process or across processes through Redis.
package lock

import (
	"context"
	"errors"
	"time"
)

// ErrLockHeld is returned by TryAcquire when another holder owns the lock.
var ErrLockHeld = errors.New("lock is held")

// Locker hands out named locks. A lock that is not released expires after
// its ttl so a crashed holder cannot block the others forever.
type Locker interface {
	TryAcquire(ctx context.Context, name string, ttl time.Duration) (Lock, error)
}

// Lock is one acquisition. Release is a no-op once the lock expired and was
// taken by someone else.
type Lock interface {
	Release(ctx context.Context) error
}
