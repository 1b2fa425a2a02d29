// Package concurrencylimiter bounds how many goroutines descended from a
// context may be doing concurrent work at once, via a context-attached
// semaphore. client uses one limiter shared across every Query/Mutate call
// on a Client to cap concurrent in-flight network fetches.
package concurrencylimiter

import "context"

type limiterKey struct{}
type acquisitionKey struct{}

type limiter struct {
	tokens chan struct{}
}

func newLimiter(n int) *limiter {
	if n < 0 {
		n = 0
	}
	l := &limiter{tokens: make(chan struct{}, n)}
	for i := 0; i < n; i++ {
		l.tokens <- struct{}{}
	}
	return l
}

func (l *limiter) acquire(ctx context.Context) error {
	select {
	case <-l.tokens:
		return nil
	default:
	}
	select {
	case <-l.tokens:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *limiter) release() {
	l.tokens <- struct{}{}
}

// acquisition tracks one held (or not) slot of a limiter, and coordinates
// concurrent TemporarilyRelease calls sharing that single slot so only the
// first releases the real token and only the last reacquires it.
type acquisition struct {
	l *limiter

	mu                chan struct{} // 1-buffered mutex; zero value usable
	held              bool
	releasing         int
	releasedThisRound bool
}

func newAcquisition(l *limiter, held bool) *acquisition {
	a := &acquisition{l: l, held: held, mu: make(chan struct{}, 1)}
	a.mu <- struct{}{}
	return a
}

func (a *acquisition) lock()   { <-a.mu }
func (a *acquisition) unlock() { a.mu <- struct{}{} }

// release gives back the slot if this acquisition still holds it. Safe to
// call more than once, and safe to race with an in-flight
// TemporarilyRelease.
func (a *acquisition) release() {
	if a == nil || a.l == nil {
		return
	}
	a.lock()
	held := a.held
	if held {
		a.held = false
	}
	a.unlock()
	if held {
		a.l.release()
	}
}

// temporarilyRelease gives back the slot for the duration of f, reacquiring
// it afterward. Concurrent calls sharing the same acquisition coordinate so
// the slot is released once (by whichever call observes it still held) and
// reacquired once (by whichever call is last to finish).
func (a *acquisition) temporarilyRelease(f func()) {
	if a == nil || a.l == nil {
		f()
		return
	}

	a.lock()
	a.releasing++
	doRelease := false
	if a.releasing == 1 && a.held {
		a.held = false
		doRelease = true
	}
	a.releasedThisRound = a.releasedThisRound || doRelease
	a.unlock()

	if doRelease {
		a.l.release()
	}

	f()

	a.lock()
	a.releasing--
	reacquire := a.releasing == 0 && a.releasedThisRound
	if reacquire {
		a.releasedThisRound = false
	}
	a.unlock()

	if reacquire {
		// Best-effort: a canceled ctx here would otherwise permanently
		// strand the slot as neither held nor in the pool.
		_ = a.l.acquire(context.Background())
		a.lock()
		a.held = true
		a.unlock()
	}
}

// With attaches a semaphore of capacity n to ctx. A negative or zero n
// means no concurrent holder of the returned context's descendants ever
// proceeds until another releases.
func With(ctx context.Context, n int) context.Context {
	return context.WithValue(ctx, limiterKey{}, newLimiter(n))
}

// Acquire blocks until a slot is available on ctx's limiter (or ctx has
// none, in which case it returns immediately) or ctx is done. The returned
// context carries the acquisition for TemporarilyRelease; the returned
// func releases it and is safe to call more than once.
func Acquire(ctx context.Context) (context.Context, func()) {
	l, _ := ctx.Value(limiterKey{}).(*limiter)
	if l == nil {
		return ctx, func() {}
	}

	held := l.acquire(ctx) == nil
	a := newAcquisition(l, held)
	return context.WithValue(ctx, acquisitionKey{}, a), a.release
}

// TemporarilyRelease runs f with ctx's acquisition (if any) given back to
// the limiter for f's duration, reacquiring it before returning. With no
// acquisition in ctx (Acquire was never called, or its limiter is nil, or
// its slot was already released), f just runs directly.
func TemporarilyRelease(ctx context.Context, f func()) {
	a, _ := ctx.Value(acquisitionKey{}).(*acquisition)
	if a == nil {
		f()
		return
	}
	a.temporarilyRelease(f)
}
