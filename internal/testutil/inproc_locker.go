package testutil

import (
	"context"
	"sync"
)

// InProcLocker is an in-process pattern.Locker backed by named mutexes.
// It gives tests the same per-field serialization the redis lock provides in
// production, without a redis server.
type InProcLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewInProcLocker creates an InProcLocker.
func NewInProcLocker() *InProcLocker {
	return &InProcLocker{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the named mutex, creating it on first use.
func (l *InProcLocker) Lock(_ context.Context, name string) (func(), error) {
	l.mu.Lock()
	m, ok := l.locks[name]
	if !ok {
		m = &sync.Mutex{}
		l.locks[name] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock, nil
}
