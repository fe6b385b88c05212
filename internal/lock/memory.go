package lock

import (
	"context"
	"sync"
	"time"
)

// MemoryLocker serializes holders within one process.
type MemoryLocker struct {
	mu   sync.Mutex
	held map[string]*memoryLock
	now  func() time.Time
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: make(map[string]*memoryLock), now: time.Now}
}

type memoryLock struct {
	locker  *MemoryLocker
	name    string
	expires time.Time
}

func (m *MemoryLocker) TryAcquire(_ context.Context, name string, ttl time.Duration) (Lock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if cur, ok := m.held[name]; ok && now.Before(cur.expires) {
		return nil, ErrLockHeld
	}

	l := &memoryLock{locker: m, name: name, expires: now.Add(ttl)}
	m.held[name] = l
	return l, nil
}

func (l *memoryLock) Release(context.Context) error {
	l.locker.mu.Lock()
	defer l.locker.mu.Unlock()

	if l.locker.held[l.name] == l {
		delete(l.locker.held, l.name)
	}
	return nil
}
