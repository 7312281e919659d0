package hal

import (
	"time"

	"github.com/gogpu/tephra/types"
)

// BufferSetup describes a buffer to create.
type BufferSetup struct {
	// Size is the buffer size in bytes.
	Size uint64

	// Usage is the set of allowed usages.
	Usage types.BufferUsageFlags

	// HostMapped requests host-visible, persistently mapped memory.
	HostMapped bool

	// DebugName labels the buffer for native debug tooling. May be empty.
	DebugName string
}

// ImageSetup describes an image to create.
type ImageSetup struct {
	Type            types.ImageType
	Format          types.Format
	Extent          types.Extent3D
	MipLevelCount   uint32
	ArrayLayerCount uint32
	SampleCount     uint32
	Usage           types.ImageUsageFlags
	DebugName       string
}

// MemoryRequirements describe the backing store an image needs.
type MemoryRequirements struct {
	Size      uint64
	Alignment uint64
}

// Queue addresses one device queue.
type Queue struct {
	// FamilyIndex is the native queue family.
	FamilyIndex uint32

	// Index is the queue's index within the family.
	Index uint32
}

// SubmitBatch carries one or more submit entries that share flat semaphore
// and command buffer arrays. Each entry references a contiguous range of
// each array.
type SubmitBatch struct {
	WaitSemaphores   []Semaphore
	WaitValues       []uint64
	WaitStageMasks   []types.PipelineStageFlags
	SignalSemaphores []Semaphore
	SignalValues     []uint64
	CommandBuffers   []CommandBuffer

	Entries []SubmitEntry
}

// SubmitEntry is one native submit within a batch.
type SubmitEntry struct {
	WaitOffset          uint32
	WaitCount           uint32
	SignalOffset        uint32
	SignalCount         uint32
	CommandBufferOffset uint32
	CommandBufferCount  uint32
}

// Device is the native device contract the engine is written against.
//
// All methods are safe for concurrent use unless noted. Command recording
// methods (Cmd*) on a given command buffer must be externally serialized,
// as must all operations on a given command pool.
type Device interface {
	// CreateBuffer creates a buffer with bound memory.
	CreateBuffer(setup *BufferSetup) (Buffer, error)

	// DestroyBuffer destroys a buffer and releases its memory.
	DestroyBuffer(buffer Buffer)

	// MapBuffer returns the persistent host mapping of a buffer created
	// with HostMapped set.
	MapBuffer(buffer Buffer) ([]byte, error)

	// GetImageMemoryRequirements reports the backing store an image with
	// this setup would need.
	GetImageMemoryRequirements(setup *ImageSetup) MemoryRequirements

	// AllocateMemory allocates device memory suitable for aliased images.
	AllocateMemory(size uint64) (Memory, error)

	// FreeMemory releases a device memory allocation.
	FreeMemory(memory Memory)

	// CreateImage creates an image with its own bound memory.
	CreateImage(setup *ImageSetup) (Image, error)

	// CreateAliasedImage creates an image bound to a region of an existing
	// memory allocation. Multiple images may alias the same bytes as long
	// as their uses do not overlap in time.
	CreateAliasedImage(setup *ImageSetup, memory Memory, offset uint64) (Image, error)

	// DestroyImage destroys an image. Aliased images do not release the
	// shared memory.
	DestroyImage(image Image)

	// CreateShaderModule creates a shader module from SPIR-V words.
	CreateShaderModule(spirv []uint32) (ShaderModule, error)

	// DestroyShaderModule destroys a shader module.
	DestroyShaderModule(module ShaderModule)

	// CreateComputePipeline creates a compute pipeline from a module entry
	// point.
	CreateComputePipeline(module ShaderModule, entryPoint string) (Pipeline, error)

	// DestroyPipeline destroys a pipeline.
	DestroyPipeline(pipeline Pipeline)

	// CreateQueryPool creates a timestamp query pool.
	CreateQueryPool(queryCount uint32) (QueryPool, error)

	// DestroyQueryPool destroys a query pool.
	DestroyQueryPool(pool QueryPool)

	// GetQueryResult returns the value of a timestamp query, reporting
	// whether it is available yet.
	GetQueryResult(pool QueryPool, query uint32) (uint64, bool)

	// CreateTimelineSemaphore creates a timeline semaphore at the given
	// initial value.
	CreateTimelineSemaphore(initialValue uint64) (Semaphore, error)

	// DestroySemaphore destroys a semaphore.
	DestroySemaphore(semaphore Semaphore)

	// GetSemaphoreCounterValue reads the current value of a timeline
	// semaphore.
	GetSemaphoreCounterValue(semaphore Semaphore) (uint64, error)

	// WaitForSemaphores blocks until the semaphores reach the paired
	// values, or any of them when waitAll is false. Returns false on
	// timeout.
	WaitForSemaphores(semaphores []Semaphore, values []uint64, waitAll bool, timeout time.Duration) (bool, error)

	// SignalSemaphore signals a timeline semaphore from the host.
	SignalSemaphore(semaphore Semaphore, value uint64) error

	// CreateCommandPool creates a command pool for a queue family.
	CreateCommandPool(queueFamilyIndex uint32) (CommandPool, error)

	// ResetCommandPool recycles all command buffers of the pool.
	ResetCommandPool(pool CommandPool) error

	// DestroyCommandPool destroys a command pool and its buffers.
	DestroyCommandPool(pool CommandPool)

	// AllocateCommandBuffer allocates a primary command buffer.
	AllocateCommandBuffer(pool CommandPool) (CommandBuffer, error)

	// BeginCommandBuffer begins one-time-submit recording.
	BeginCommandBuffer(cb CommandBuffer) error

	// EndCommandBuffer finishes recording.
	EndCommandBuffer(cb CommandBuffer) error

	CommandRecorder

	// QueueSubmit submits a batch to a queue.
	QueueSubmit(queue Queue, batch *SubmitBatch) error

	// WaitForDeviceIdle blocks until all queues are idle.
	WaitForDeviceIdle() error

	// Destroy releases the device. All objects created from it must have
	// been destroyed first.
	Destroy()
}

// CommandRecorder records native commands into a primary command buffer.
type CommandRecorder interface {
	// CmdPipelineBarrier records a pipeline barrier with the given buffer
	// and image memory dependencies. Image barriers carry contiguous mip
	// ranges only.
	CmdPipelineBarrier(cb CommandBuffer, srcStageMask, dstStageMask types.PipelineStageFlags,
		bufferBarriers []BufferMemoryBarrier, imageBarriers []ImageMemoryBarrier)

	CmdFillBuffer(cb CommandBuffer, buffer Buffer, offset, size uint64, value uint32)

	CmdUpdateBuffer(cb CommandBuffer, buffer Buffer, offset uint64, data []byte)

	CmdCopyBuffer(cb CommandBuffer, src, dst Buffer, regions []types.BufferCopyRegion)

	CmdCopyImage(cb CommandBuffer, src Image, srcLayout types.ImageLayout,
		dst Image, dstLayout types.ImageLayout, regions []types.ImageCopyRegion)

	CmdResolveImage(cb CommandBuffer, src Image, srcLayout types.ImageLayout,
		dst Image, dstLayout types.ImageLayout, regions []types.ImageCopyRegion)

	CmdBlitImage(cb CommandBuffer, src Image, srcLayout types.ImageLayout,
		dst Image, dstLayout types.ImageLayout, regions []types.ImageBlitRegion, filter types.Filter)

	CmdCopyBufferToImage(cb CommandBuffer, src Buffer, dst Image, dstLayout types.ImageLayout,
		regions []types.BufferImageCopyRegion)

	CmdCopyImageToBuffer(cb CommandBuffer, src Image, srcLayout types.ImageLayout, dst Buffer,
		regions []types.BufferImageCopyRegion)

	CmdClearImage(cb CommandBuffer, image Image, layout types.ImageLayout, value types.ClearValue,
		ranges []types.ImageSubresourceRange)

	CmdBindComputePipeline(cb CommandBuffer, pipeline Pipeline)

	CmdDispatch(cb CommandBuffer, groupCountX, groupCountY, groupCountZ uint32)

	CmdBeginDebugLabel(cb CommandBuffer, name string, color [4]float32)

	CmdInsertDebugLabel(cb CommandBuffer, name string, color [4]float32)

	CmdEndDebugLabel(cb CommandBuffer)

	CmdWriteTimestamp(cb CommandBuffer, stage types.PipelineStageFlags, pool QueryPool, query uint32)
}

// BufferMemoryBarrier is a memory dependency on a buffer range, optionally
// performing a queue family ownership transfer.
type BufferMemoryBarrier struct {
	SrcAccessMask       types.AccessFlags
	DstAccessMask       types.AccessFlags
	SrcQueueFamilyIndex uint32
	DstQueueFamilyIndex uint32
	Buffer              Buffer
	Offset              uint64
	Size                uint64
}

// ImageMemoryBarrier is a memory dependency on an image subresource range,
// optionally performing a layout transition and/or a queue family
// ownership transfer.
type ImageMemoryBarrier struct {
	SrcAccessMask       types.AccessFlags
	DstAccessMask       types.AccessFlags
	OldLayout           types.ImageLayout
	NewLayout           types.ImageLayout
	SrcQueueFamilyIndex uint32
	DstQueueFamilyIndex uint32
	Image               Image
	Range               types.ImageSubresourceRange
}
