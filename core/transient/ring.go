package transient

import (
	"fmt"

	"github.com/gogpu/tephra/hal"
	"github.com/gogpu/tephra/types"
)

// RingBackend is the slice of the HAL the preinitialized buffer allocator
// needs. Backing buffers are host-mapped so initial data can be written
// before submission.
type RingBackend interface {
	CreateBuffer(setup *hal.BufferSetup) (hal.Buffer, error)
	DestroyBuffer(buffer hal.Buffer)
	MapBuffer(buffer hal.Buffer) ([]byte, error)
}

// RingView is a suballocation of a ring region.
type RingView struct {
	Buffer hal.Buffer
	Offset uint64
	Size   uint64

	// Data is the host mapping of the view's bytes.
	Data []byte
}

// IsNull reports whether the view has no backing.
func (v RingView) IsNull() bool { return v.Buffer.IsNull() }

type ringRegion struct {
	buffer hal.Buffer
	mapped []byte
	size   uint64

	minAlignment uint64
	headOffset   uint64
	tailOffset   uint64

	// truncatedSize marks the unusable space at the end of the region
	// after a wrap-around, recoverable once the tail passes it.
	truncatedSize   uint64
	allocationCount int
}

type ringAllocation struct {
	regionIndex int
	offset      uint64
	size        uint64
	timestamp   uint64
}

// RingBuffer is a growable ring of backing buffers serving the
// preinitialized job-local buffers. Live allocations always occupy
// disjoint bytes, so every view can be host-mapped safely; allocation
// order is preserved, making release a simple FIFO by timestamp.
type RingBuffer struct {
	backend        RingBackend
	usage          types.BufferUsageFlags
	overallocation types.OverallocationBehavior
	minAlignment   uint64
	debugName      string

	regions         []ringRegion
	headRegionIndex int
	allocations     []ringAllocation

	totalAllocationSize uint64
	totalRegionSize     uint64
}

// NewRingBuffer makes an empty ring buffer that grows on demand.
func NewRingBuffer(backend RingBackend, usage types.BufferUsageFlags, minAlignment uint64,
	overallocation types.OverallocationBehavior, debugName string) *RingBuffer {
	if minAlignment == 0 {
		minAlignment = 1
	}
	return &RingBuffer{
		backend:        backend,
		usage:          usage | types.BufferUsageHostVisible,
		overallocation: overallocation,
		minAlignment:   minAlignment,
		debugName:      debugName,
	}
}

func roundUpPow2(value, alignment uint64) uint64 {
	return (value + alignment - 1) &^ (alignment - 1)
}

// Push suballocates size bytes associated with the given timestamp.
// Timestamps must be pushed in non-decreasing order. Grows the ring when
// no region can serve the request.
func (r *RingBuffer) Push(size uint64, timestamp uint64) (RingView, error) {
	if n := len(r.allocations); n > 0 && r.allocations[n-1].timestamp > timestamp {
		return RingView{}, fmt.Errorf("tephra: ring buffer timestamps must be non-decreasing")
	}

	view := r.tryPush(size, timestamp)
	if !view.IsNull() {
		return view, nil
	}

	growSize := r.overallocation.Apply(size, r.totalRegionSize)
	if err := r.grow(growSize); err != nil {
		return RingView{}, err
	}

	view = r.tryPush(size, timestamp)
	if view.IsNull() {
		return RingView{}, hal.ErrOutOfDeviceMemory
	}
	return view, nil
}

func (r *RingBuffer) tryPush(size uint64, timestamp uint64) RingView {
	if len(r.regions) == 0 {
		return RingView{}
	}

	regionIndex := r.headRegionIndex
	for {
		region := &r.regions[regionIndex]
		if region.buffer.IsNull() {
			regionIndex = (regionIndex + 1) % len(r.regions)
			if regionIndex == r.headRegionIndex {
				return RingView{}
			}
			continue
		}

		candidateOffset := roundUpPow2(region.headOffset, region.minAlignment)
		candidateEnd := candidateOffset + size

		allocate := false
		if region.tailOffset < region.headOffset {
			// [----TXXXXXXH--]
			if candidateEnd <= region.size {
				allocate = true
			} else {
				// Does not fit at the end; try wrapping around the start.
				candidateOffset = 0
				candidateEnd = size
				if candidateEnd <= region.tailOffset {
					allocate = true
					// Remember the now dead space at the end so it can be
					// recovered later.
					region.truncatedSize = region.headOffset
				}
			}
		} else {
			// [XXH-----TXXX--]
			if candidateEnd <= region.tailOffset {
				allocate = true
			}
		}

		if allocate {
			r.allocations = append(r.allocations, ringAllocation{
				regionIndex: regionIndex,
				offset:      candidateOffset,
				size:        size,
				timestamp:   timestamp,
			})
			region.headOffset = candidateEnd
			region.allocationCount++
			r.totalAllocationSize += size

			// Start the next search in this region.
			r.headRegionIndex = regionIndex

			return RingView{
				Buffer: region.buffer,
				Offset: candidateOffset,
				Size:   size,
				Data:   region.mapped[candidateOffset : candidateOffset+size],
			}
		}

		regionIndex = (regionIndex + 1) % len(r.regions)
		if regionIndex == r.headRegionIndex {
			return RingView{}
		}
	}
}

func (r *RingBuffer) grow(size uint64) error {
	setup := hal.BufferSetup{
		Size:       size,
		Usage:      r.usage,
		HostMapped: true,
	}
	if r.debugName != "" {
		setup.DebugName = fmt.Sprintf("%s.region%d", r.debugName, len(r.regions))
	}
	buffer, err := r.backend.CreateBuffer(&setup)
	if err != nil {
		return err
	}
	mapped, err := r.backend.MapBuffer(buffer)
	if err != nil {
		r.backend.DestroyBuffer(buffer)
		return err
	}

	newRegion := ringRegion{
		buffer:        buffer,
		mapped:        mapped,
		size:          size,
		minAlignment:  r.minAlignment,
		headOffset:    0,
		tailOffset:    size,
		truncatedSize: size,
	}
	r.totalRegionSize += size

	// Reuse a previously freed region slot when one exists.
	for i := range r.regions {
		if r.regions[i].buffer.IsNull() {
			r.regions[i] = newRegion
			return nil
		}
	}
	r.regions = append(r.regions, newRegion)
	return nil
}

// Pop frees all allocations with timestamps at or below upToTimestamp,
// from the head of the FIFO.
func (r *RingBuffer) Pop(upToTimestamp uint64) {
	for len(r.allocations) > 0 && r.allocations[0].timestamp <= upToTimestamp {
		alloc := r.allocations[0]
		r.allocations = r.allocations[1:]

		region := &r.regions[alloc.regionIndex]
		region.allocationCount--
		region.tailOffset = alloc.offset + alloc.size

		if region.tailOffset == region.headOffset {
			// The whole region is free again; reset it to the beginning.
			region.headOffset = 0
			region.tailOffset = region.size
		}
		if region.tailOffset >= region.truncatedSize {
			// The dead space at the end of the region is recoverable now.
			region.tailOffset = region.size
			region.truncatedSize = region.size
		}

		r.totalAllocationSize -= alloc.size
	}
}

// Trim destroys regions with no live allocations, returning the bytes
// reclaimed. Destruction goes through the release callback so the caller
// can defer it behind the device timeline.
func (r *RingBuffer) Trim(release func(hal.Buffer)) uint64 {
	var reclaimed uint64
	for i := range r.regions {
		region := &r.regions[i]
		if region.allocationCount != 0 || region.buffer.IsNull() {
			continue
		}
		release(region.buffer)
		reclaimed += region.size
		r.totalRegionSize -= region.size
		region.buffer = 0
		region.mapped = nil
		region.tailOffset = 0
	}
	return reclaimed
}

// AllocationCount returns the number of live suballocations.
func (r *RingBuffer) AllocationCount() int {
	return len(r.allocations)
}

// TotalAllocationSize returns the bytes currently suballocated.
func (r *RingBuffer) TotalAllocationSize() uint64 {
	return r.totalAllocationSize
}

// TotalSize returns the bytes held by the ring's backing regions.
func (r *RingBuffer) TotalSize() uint64 {
	return r.totalRegionSize
}

// Destroy releases every region immediately.
func (r *RingBuffer) Destroy() {
	for i := range r.regions {
		if !r.regions[i].buffer.IsNull() {
			r.backend.DestroyBuffer(r.regions[i].buffer)
		}
	}
	r.regions = nil
	r.allocations = nil
	r.totalAllocationSize = 0
	r.totalRegionSize = 0
}
