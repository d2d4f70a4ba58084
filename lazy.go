package territories

import (
	"sync"
	"sync/atomic"
)

// lazy is a once-cell: the value and its error are computed on first get and
// kept until reset
type lazy[T any] struct {
	mu   sync.Mutex
	done atomic.Bool
	val  T
	err  error
}

func (l *lazy[T]) get(f func() (T, error)) (T, error) {
	if l.done.Load() {
		return l.val, l.err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.done.Load() {
		l.val, l.err = f()
		l.done.Store(true)
	}
	return l.val, l.err
}

func (l *lazy[T]) reset() {
	l.mu.Lock()
	var zero T
	l.val, l.err = zero, nil
	l.done.Store(false)
	l.mu.Unlock()
}
