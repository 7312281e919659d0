package transient

import (
	"github.com/gogpu/tephra/hal"
	"github.com/gogpu/tephra/types"
)

// ImageBackend is the slice of the HAL the image allocator needs.
type ImageBackend interface {
	GetImageMemoryRequirements(setup *hal.ImageSetup) hal.MemoryRequirements
	AllocateMemory(size uint64) (hal.Memory, error)
	FreeMemory(memory hal.Memory)
	CreateAliasedImage(setup *hal.ImageSetup, memory hal.Memory, offset uint64) (hal.Image, error)
	DestroyImage(image hal.Image)
}

// ImageRequest is a job-local image to fulfill at compile time.
type ImageRequest struct {
	Setup    hal.ImageSetup
	Lifetime Lifetime
}

// ImagePlacement is the fulfilled backing of one request. Unused requests
// keep a null image.
type ImagePlacement struct {
	Image hal.Image
}

type backingMemory struct {
	memory    hal.Memory
	size      uint64
	compat    uint64
	freeAfter uint64
}

// ImageAllocator fulfills job-local image requests. Image transients share
// backing memory, not handles: every used request gets a fresh native
// image bound to its slot's memory, since images cannot safely alias their
// handles across compatible formats.
type ImageAllocator struct {
	backend         ImageBackend
	disableAliasing bool

	backings []backingMemory

	allocationCount int
	totalSize       uint64
}

// NewImageAllocator makes an empty allocator.
func NewImageAllocator(backend ImageBackend, disableAliasing bool) *ImageAllocator {
	return &ImageAllocator{backend: backend, disableAliasing: disableAliasing}
}

// imageCompatibility buckets setups that may share backing memory.
func imageCompatibility(setup *hal.ImageSetup) uint64 {
	props := types.GetFormatClassProperties(setup.Format)
	return uint64(props.TexelBlockBytes)<<32 | uint64(setup.SampleCount)<<16 | uint64(setup.Type)
}

// AllocateJobImages packs the requests and creates one aliased native
// image per used request. The returned images belong to the job; the
// caller destroys them when the job's resources are released.
func (a *ImageAllocator) AllocateJobImages(requests []ImageRequest, jobTimestamp, reachedTimestamp uint64) ([]ImagePlacement, JobStatistics, error) {
	packReqs := make([]Request, len(requests))
	for i := range requests {
		reqs := a.backend.GetImageMemoryRequirements(&requests[i].Setup)
		packReqs[i] = Request{
			Size:          reqs.Size,
			Alignment:     reqs.Alignment,
			Compatibility: imageCompatibility(&requests[i].Setup),
			Lifetime:      requests[i].Lifetime,
		}
	}
	placements, slots := PackRequests(packReqs, a.disableAliasing)

	stats := JobStatistics{
		RequestedBytes: RequestedBytes(packReqs),
		CommittedBytes: CommittedBytes(slots),
	}

	slotBackings := make([]int, len(slots))
	for slotIndex, slot := range slots {
		backingIndex := -1
		for i := range a.backings {
			backing := &a.backings[i]
			if backing.freeAfter != 0 && backing.freeAfter > reachedTimestamp {
				continue
			}
			if backing.size >= slot.Size && backing.compat == slot.Compatibility {
				backingIndex = i
				break
			}
		}
		if backingIndex < 0 {
			memory, err := a.backend.AllocateMemory(slot.Size)
			if err != nil {
				return nil, JobStatistics{}, err
			}
			a.backings = append(a.backings, backingMemory{
				memory: memory,
				size:   slot.Size,
				compat: slot.Compatibility,
			})
			a.allocationCount++
			a.totalSize += slot.Size
			backingIndex = len(a.backings) - 1
		}
		a.backings[backingIndex].freeAfter = jobTimestamp
		slotBackings[slotIndex] = backingIndex
	}

	result := make([]ImagePlacement, len(requests))
	for i, placement := range placements {
		if placement.Slot < 0 {
			continue
		}
		backing := &a.backings[slotBackings[placement.Slot]]
		image, err := a.backend.CreateAliasedImage(&requests[i].Setup, backing.memory, 0)
		if err != nil {
			return nil, JobStatistics{}, err
		}
		result[i].Image = image
	}
	return result, stats, nil
}

// AllocationCount returns the number of live backing memory allocations.
func (a *ImageAllocator) AllocationCount() int {
	return a.allocationCount
}

// TotalSize returns the bytes held by live backing memory.
func (a *ImageAllocator) TotalSize() uint64 {
	return a.totalSize
}

// Trim frees pooled backing memory whose last use is at or below the
// timestamp. Release defers the actual free to the caller.
func (a *ImageAllocator) Trim(upToTimestamp uint64, release func(hal.Memory)) uint64 {
	var reclaimed uint64
	kept := a.backings[:0]
	for _, backing := range a.backings {
		if backing.freeAfter <= upToTimestamp {
			release(backing.memory)
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

// Destroy frees every backing immediately.
func (a *ImageAllocator) Destroy() {
	for _, backing := range a.backings {
		a.backend.FreeMemory(backing.memory)
	}
	a.backings = nil
	a.allocationCount = 0
	a.totalSize = 0
}
