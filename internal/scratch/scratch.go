// Package scratch pools the short-lived slices used during job
// compilation. Go has no thread-local storage; a sync.Pool gives the same
// amortization the original bump allocator provided, and the outstanding
// counter preserves its "empty at the outermost API boundary" check.
package scratch

import (
	"sync"
	"sync/atomic"
)

// Pool hands out reusable slices of T.
type Pool[T any] struct {
	pool        sync.Pool
	outstanding atomic.Int64
}

// Get returns an empty slice with whatever capacity a previous user left.
func (p *Pool[T]) Get() []T {
	p.outstanding.Add(1)
	if s, ok := p.pool.Get().(*[]T); ok {
		return (*s)[:0]
	}
	return nil
}

// Put returns a slice to the pool.
func (p *Pool[T]) Put(s []T) {
	p.outstanding.Add(-1)
	p.pool.Put(&s)
}

// Outstanding returns the number of slices currently checked out. It must
// be zero whenever control returns to the user.
func (p *Pool[T]) Outstanding() int64 {
	return p.outstanding.Load()
}
