// Package ctxmutex provides a mutex whose Lock honors context
// cancellation, so a blocked store operation can be abandoned when its
// caller's context is done instead of holding a goroutine forever.
package ctxmutex

import (
	"context"
	"sync"
)

// Mutex is a mutual-exclusion lock whose Lock takes a context.
type Mutex struct {
	once sync.Once
	ch   chan struct{}
}

func (m *Mutex) init() {
	m.once.Do(func() {
		m.ch = make(chan struct{}, 1)
	})
}

// Lock acquires the mutex, blocking until it is available or ctx is done.
// It returns ctx.Err() if ctx is done before the mutex is acquired.
func (m *Mutex) Lock(ctx context.Context) error {
	m.init()

	select {
	case m.ch <- struct{}{}:
		return nil
	default:
	}

	select {
	case m.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Unlock releases the mutex. It panics if the mutex is not held.
func (m *Mutex) Unlock() {
	m.init()

	select {
	case <-m.ch:
	default:
		panic("Unlock called before Lock")
	}
}
