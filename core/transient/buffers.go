package transient

import (
	"fmt"

	"github.com/gogpu/tephra/hal"
	"github.com/gogpu/tephra/types"
)

// BufferBackend is the slice of the HAL the buffer allocator needs.
type BufferBackend interface {
	CreateBuffer(setup *hal.BufferSetup) (hal.Buffer, error)
	DestroyBuffer(buffer hal.Buffer)
}

// BufferRequest is a job-local buffer to fulfill at compile time.
type BufferRequest struct {
	Size      uint64
	Alignment uint64
	Usage     types.BufferUsageFlags
	Lifetime  Lifetime
}

// BufferPlacement is the fulfilled backing of one request. Unused requests
// keep a null buffer.
type BufferPlacement struct {
	Buffer hal.Buffer
}

// backingBuffer is a pooled backing allocation, reusable once the job that
// last used it has finished.
type backingBuffer struct {
	buffer hal.Buffer
	size   uint64
	usage  types.BufferUsageFlags

	// freeAfter is the timestamp of the last job that used the backing;
	// zero when the backing is idle.
	freeAfter uint64
}

// BufferAllocator fulfills job-local buffer requests by lifetime analysis
// and aliasing, pooling backing buffers across jobs. It is guarded by the
// parent pool's serialization; one thread at a time.
type BufferAllocator struct {
	backend         BufferBackend
	overallocation  types.OverallocationBehavior
	disableAliasing bool
	debugName       string

	backings []backingBuffer

	allocationCount int
	totalSize       uint64
}

// NewBufferAllocator makes an empty allocator.
func NewBufferAllocator(backend BufferBackend, overallocation types.OverallocationBehavior,
	disableAliasing bool, debugName string) *BufferAllocator {
	return &BufferAllocator{
		backend:         backend,
		overallocation:  overallocation,
		disableAliasing: disableAliasing,
		debugName:       debugName,
	}
}

// JobStatistics reports what one job's allocation requested and committed.
type JobStatistics struct {
	RequestedBytes uint64
	CommittedBytes uint64
}

// AllocateJobBuffers packs the requests, binds each used one to a backing
// buffer, and marks the backings in use until the job timestamp is
// released. Backings whose last job has a timestamp at or below
// reachedTimestamp are reusable.
func (a *BufferAllocator) AllocateJobBuffers(requests []BufferRequest, jobTimestamp, reachedTimestamp uint64) ([]BufferPlacement, JobStatistics, error) {
	packReqs := make([]Request, len(requests))
	for i, req := range requests {
		packReqs[i] = Request{
			Size:          req.Size,
			Alignment:     req.Alignment,
			Compatibility: uint64(req.Usage),
			Lifetime:      req.Lifetime,
		}
	}
	placements, slots := PackRequests(packReqs, a.disableAliasing)

	stats := JobStatistics{
		RequestedBytes: RequestedBytes(packReqs),
		CommittedBytes: CommittedBytes(slots),
	}

	// Bind each slot to a pooled or fresh backing buffer.
	slotBackings := make([]int, len(slots))
	for slotIndex, slot := range slots {
		backingIndex := -1
		for i := range a.backings {
			backing := &a.backings[i]
			if backing.freeAfter != 0 && backing.freeAfter > reachedTimestamp {
				continue
			}
			if backing.size >= slot.Size && backing.usage == types.BufferUsageFlags(slot.Compatibility) {
				backingIndex = i
				break
			}
		}
		if backingIndex < 0 {
			size := a.overallocation.Apply(slot.Size, a.totalSize)
			setup := hal.BufferSetup{
				Size:  size,
				Usage: types.BufferUsageFlags(slot.Compatibility),
			}
			if a.debugName != "" {
				setup.DebugName = fmt.Sprintf("%s.backing%d", a.debugName, len(a.backings))
			}
			buffer, err := a.backend.CreateBuffer(&setup)
			if err != nil {
				return nil, JobStatistics{}, err
			}
			a.backings = append(a.backings, backingBuffer{
				buffer: buffer,
				size:   size,
				usage:  setup.Usage,
			})
			a.allocationCount++
			a.totalSize += size
			backingIndex = len(a.backings) - 1
		}
		a.backings[backingIndex].freeAfter = jobTimestamp
		slotBackings[slotIndex] = backingIndex
	}

	result := make([]BufferPlacement, len(requests))
	for i, placement := range placements {
		if placement.Slot >= 0 {
			result[i].Buffer = a.backings[slotBackings[placement.Slot]].buffer
		}
	}
	return result, stats, nil
}

// AllocationCount returns the number of live backing buffers.
func (a *BufferAllocator) AllocationCount() int {
	return a.allocationCount
}

// TotalSize returns the bytes held by live backing buffers.
func (a *BufferAllocator) TotalSize() uint64 {
	return a.totalSize
}

// Trim destroys pooled backings whose last use is at or below the
// timestamp, returning the bytes reclaimed. Destruction goes through the
// release callback so the caller can defer it.
func (a *BufferAllocator) Trim(upToTimestamp uint64, release func(hal.Buffer)) uint64 {
	var reclaimed uint64
	kept := a.backings[:0]
	for _, backing := range a.backings {
		if backing.freeAfter <= upToTimestamp {
			release(backing.buffer)
			reclaimed += backing.size
			a.allocationCount--
			a.totalSize -= backing.size
			continue
		}
		kept = append(kept, backing)
	}
	a.backings = kept
	return reclaimed
}

// Destroy releases every backing immediately.
func (a *BufferAllocator) Destroy() {
	for _, backing := range a.backings {
		a.backend.DestroyBuffer(backing.buffer)
	}
	a.backings = nil
	a.allocationCount = 0
	a.totalSize = 0
}
