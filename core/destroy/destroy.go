// Package destroy handles the delayed destruction of native handles.
// Handles are queued with the timestamp current at release time and
// destroyed once that timestamp has been reached in every queue.
package destroy

import (
	"sync"
	"sync/atomic"
)

// HandleKind tags the native type of a queued handle. The declaration
// order is the destruction order: kinds are drained top to bottom so that
// dependent objects go before the objects they reference.
type HandleKind uint8

const (
	KindPipeline HandleKind = iota
	KindQueryPool
	KindBuffer
	KindImage
	KindCommandPool
	KindSemaphore
	KindMemory

	kindCount
)

// Immediately destructible kinds are cold metadata, safe to destroy at any
// moment regardless of outstanding device work. They never enter a queue.
const (
	KindShaderModule HandleKind = iota + kindCount
	KindPipelineLayout
)

// IsDeferred reports whether handles of this kind go through the timestamp
// queues rather than being destroyed on the spot.
func IsDeferred(kind HandleKind) bool {
	return kind < kindCount
}

// Handle is a type-erased native handle.
type Handle struct {
	Kind HandleKind
	Raw  uint64
}

// Destroyer performs the immediate, type-dispatched destruction of a
// handle. The device implements it on top of the HAL, adding side effects
// like cross-queue forget broadcasts for buffers and images.
type Destroyer interface {
	DestroyImmediately(handle Handle)
}

type queuedHandle struct {
	timestamp uint64
	raw       uint64
}

// typedQueue is the destruction FIFO for one handle kind, ordered by
// insertion timestamp (itself monotonic).
type typedQueue struct {
	mu sync.Mutex

	// lastDestroyedTimestamp lets new destructions skip the queue when
	// their timestamp was already drained. Read without the lock on the
	// fast paths.
	lastDestroyedTimestamp atomic.Uint64

	queue []queuedHandle
}

// Destructor owns one FIFO per deferrable handle kind.
type Destructor struct {
	destroyer Destroyer
	queues    [kindCount]typedQueue
}

// NewDestructor makes a destructor draining into the given destroyer.
func NewDestructor(destroyer Destroyer) *Destructor {
	return &Destructor{destroyer: destroyer}
}

// QueueForDestruction destroys the handle once the timestamp is reached in
// all queues. Destroys immediately if it already has been.
func (d *Destructor) QueueForDestruction(handle Handle, timestamp uint64) {
	if !IsDeferred(handle.Kind) {
		d.destroyer.DestroyImmediately(handle)
		return
	}
	q := &d.queues[handle.Kind]

	q.mu.Lock()
	if timestamp <= q.lastDestroyedTimestamp.Load() {
		q.mu.Unlock()
		d.destroyer.DestroyImmediately(handle)
		return
	}
	// The timestamp is assumed to be recent, keeping the queue ordered.
	q.queue = append(q.queue, queuedHandle{timestamp: timestamp, raw: handle.Raw})
	q.mu.Unlock()
}

// DestroyUpTo destroys all queued handles with timestamps up to and
// including the given one, across every kind in declaration order.
func (d *Destructor) DestroyUpTo(timestamp uint64) {
	for kind := HandleKind(0); kind < kindCount; kind++ {
		d.drainQueue(kind, timestamp)
	}
}

// Drain destroys everything still queued. Called on shutdown.
func (d *Destructor) Drain() {
	d.DestroyUpTo(^uint64(0))
}

func (d *Destructor) drainQueue(kind HandleKind, timestamp uint64) {
	q := &d.queues[kind]

	// Try returning early without acquiring the lock.
	if timestamp <= q.lastDestroyedTimestamp.Load() {
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	// Updating the frontier early helps new destructions skip the queue
	// without waiting for the lock.
	if timestamp > q.lastDestroyedTimestamp.Load() {
		q.lastDestroyedTimestamp.Store(timestamp)
	}

	for len(q.queue) > 0 && q.queue[0].timestamp <= timestamp {
		d.destroyer.DestroyImmediately(Handle{Kind: kind, Raw: q.queue[0].raw})
		q.queue = q.queue[1:]
	}
}
