package lock

import (
	"context"
	"sync"
	"time"
)

// LocalLocker only excludes callers inside this process.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: map[string]*sync.Mutex{}}
}

func (l *LocalLocker) TryAcquire(_ context.Context, name string, _ time.Duration) (Lease, error) {
	name, err := normalize(name)
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	m, ok := l.locks[name]
	if !ok {
		m = &sync.Mutex{}
		l.locks[name] = m
	}
	l.mu.Unlock()

	if !m.TryLock() {
		return nil, held(name)
	}
	return &localLease{name: name, mu: m}, nil
}

type localLease struct {
	name string
	once sync.Once
	mu   *sync.Mutex
}

func (l *localLease) Name() string { return l.name }

func (l *localLease) Release(context.Context) error {
	l.once.Do(l.mu.Unlock)
	return nil
}
