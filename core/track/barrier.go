package track

import (
	"github.com/gogpu/tephra/hal"
	"github.com/gogpu/tephra/types"
)

// CommandIndexEnd orders a barrier after every command of the job.
const CommandIndexEnd = ^uint32(0)

// BufferDependency is a memory dependency on a buffer range between two
// accesses, optionally carrying a queue family ownership transfer.
type BufferDependency struct {
	Buffer         hal.Buffer
	Range          BufferAccessRange
	SrcAccess      ResourceAccess
	DstAccess      ResourceAccess
	SrcQueueFamily uint32
	DstQueueFamily uint32
}

// NewBufferDependency forms a dependency without an ownership transfer.
func NewBufferDependency(buffer hal.Buffer, rng BufferAccessRange, src, dst ResourceAccess) BufferDependency {
	return BufferDependency{
		Buffer:         buffer,
		Range:          rng,
		SrcAccess:      src,
		DstAccess:      dst,
		SrcQueueFamily: types.QueueFamilyIgnored,
		DstQueueFamily: types.QueueFamilyIgnored,
	}
}

// ToMemoryBarrier translates the dependency to a native buffer barrier.
func (d *BufferDependency) ToMemoryBarrier() hal.BufferMemoryBarrier {
	return hal.BufferMemoryBarrier{
		SrcAccessMask:       d.SrcAccess.AccessMask,
		DstAccessMask:       d.DstAccess.AccessMask,
		SrcQueueFamilyIndex: d.SrcQueueFamily,
		DstQueueFamilyIndex: d.DstQueueFamily,
		Buffer:              d.Buffer,
		Offset:              d.Range.Offset,
		Size:                d.Range.Size,
	}
}

// ImageDependency is a memory dependency on an image subresource range
// between two accesses, optionally defining a layout transition and/or a
// queue family ownership transfer.
type ImageDependency struct {
	Image          hal.Image
	Range          ImageAccessRange
	SrcAccess      ResourceAccess
	DstAccess      ResourceAccess
	SrcLayout      types.ImageLayout
	DstLayout      types.ImageLayout
	SrcQueueFamily uint32
	DstQueueFamily uint32
}

// NewImageDependency forms a dependency without an ownership transfer.
func NewImageDependency(image hal.Image, rng ImageAccessRange, src, dst ResourceAccess,
	srcLayout, dstLayout types.ImageLayout) ImageDependency {
	return ImageDependency{
		Image:          image,
		Range:          rng,
		SrcAccess:      src,
		DstAccess:      dst,
		SrcLayout:      srcLayout,
		DstLayout:      dstLayout,
		SrcQueueFamily: types.QueueFamilyIgnored,
		DstQueueFamily: types.QueueFamilyIgnored,
	}
}

// AppendImageBarriers translates the dependency into native image barriers,
// splitting a disjoint mip level mask into one barrier per contiguous run.
func (d *ImageDependency) AppendImageBarriers(barriers []hal.ImageMemoryBarrier) []hal.ImageMemoryBarrier {
	newLayout := d.DstLayout
	// Transition the layout only when needed - an undefined destination
	// layout means "keep the previous layout".
	if newLayout == types.LayoutUndefined {
		newLayout = d.SrcLayout
	}

	barrier := hal.ImageMemoryBarrier{
		SrcAccessMask:       d.SrcAccess.AccessMask,
		DstAccessMask:       d.DstAccess.AccessMask,
		OldLayout:           d.SrcLayout,
		NewLayout:           newLayout,
		SrcQueueFamilyIndex: d.SrcQueueFamily,
		DstQueueFamilyIndex: d.DstQueueFamily,
		Image:               d.Image,
		Range: types.ImageSubresourceRange{
			AspectMask:      d.Range.AspectMask,
			BaseArrayLayer:  d.Range.BaseArrayLayer,
			ArrayLayerCount: d.Range.ArrayLayerCount,
		},
	}

	mipMask := d.Range.MipLevelMask
	mipOffset := uint32(0)
	for mipMask != 0 {
		for mipMask != 0 && mipMask&1 == 0 {
			mipOffset++
			mipMask >>= 1
		}
		runStart := mipOffset
		for mipMask != 0 && mipMask&1 == 1 {
			mipOffset++
			mipMask >>= 1
		}
		if runLength := mipOffset - runStart; runLength > 0 {
			barrier.Range.BaseMipLevel = runStart
			barrier.Range.MipLevelCount = runLength
			barriers = append(barriers, barrier)
		}
	}
	return barriers
}

// Dependency is the common behavior of buffer and image dependencies as
// seen by the barrier list.
type Dependency interface {
	// accesses returns the source and destination accesses.
	accesses() (src, dst ResourceAccess)

	// addTo appends the dependency's memory barrier to the barrier if one
	// is required, returning its index, or -1 when an execution dependency
	// suffices.
	addTo(b *Barrier) int

	// extendIn widens an existing memory dependency of the barrier.
	extendIn(b *Barrier, memoryIndex int)
}

func (d BufferDependency) accesses() (ResourceAccess, ResourceAccess) {
	return d.SrcAccess, d.DstAccess
}

func (d ImageDependency) accesses() (ResourceAccess, ResourceAccess) {
	return d.SrcAccess, d.DstAccess
}

func (d BufferDependency) addTo(b *Barrier) int {
	b.growStageMasks(d.SrcAccess.StageMask, d.DstAccess.StageMask)

	// A memory barrier is only needed for W->R, W->W and ownership transfers.
	needsTransfer := d.SrcQueueFamily != d.DstQueueFamily
	if !d.SrcAccess.IsReadOnly() || needsTransfer {
		b.BufferDependencies = append(b.BufferDependencies, d)
		return len(b.BufferDependencies) - 1
	}
	return -1
}

func (d ImageDependency) addTo(b *Barrier) int {
	b.growStageMasks(d.SrcAccess.StageMask, d.DstAccess.StageMask)

	// A memory barrier is only needed for W->R, W->W, ownership transfers
	// and layout transitions.
	needsTransfer := d.SrcQueueFamily != d.DstQueueFamily
	needsTransition := d.SrcLayout != d.DstLayout && d.DstLayout != types.LayoutUndefined
	if !d.SrcAccess.IsReadOnly() || needsTransfer || needsTransition {
		b.ImageDependencies = append(b.ImageDependencies, d)
		return len(b.ImageDependencies) - 1
	}
	return -1
}

func (d BufferDependency) extendIn(b *Barrier, memoryIndex int) {
	b.growStageMasks(d.SrcAccess.StageMask, d.DstAccess.StageMask)
	extended := &b.BufferDependencies[memoryIndex]
	extended.SrcAccess = extended.SrcAccess.Union(d.SrcAccess)
	extended.DstAccess = extended.DstAccess.Union(d.DstAccess)
}

func (d ImageDependency) extendIn(b *Barrier, memoryIndex int) {
	b.growStageMasks(d.SrcAccess.StageMask, d.DstAccess.StageMask)
	extended := &b.ImageDependencies[memoryIndex]
	extended.SrcAccess = extended.SrcAccess.Union(d.SrcAccess)
	extended.DstAccess = extended.DstAccess.Union(d.DstAccess)
}

// Pipeline stage orderings used to extend barrier stage masks. A barrier
// whose source covers a stage implicitly covers all earlier stages of the
// same pipeline, and symmetrically for destinations.
var (
	graphicsPipelineStages = []types.PipelineStageFlags{
		types.StageTopOfPipe,
		types.StageDrawIndirect,
		types.StageVertexInput,
		types.StageVertexShader,
		types.StageTessellationControl,
		types.StageTessellationEvaluation,
		types.StageGeometryShader,
		types.StageEarlyFragmentTests,
		types.StageFragmentShader,
		types.StageLateFragmentTests,
		types.StageColorAttachmentOutput,
		types.StageBottomOfPipe,
	}
	computePipelineStages = []types.PipelineStageFlags{
		types.StageTopOfPipe,
		types.StageDrawIndirect,
		types.StageComputeShader,
		types.StageBottomOfPipe,
	}
	transferPipelineStages = []types.PipelineStageFlags{
		types.StageTopOfPipe,
		types.StageTransfer,
		types.StageBottomOfPipe,
	}

	graphicsPipelineStagesMask = combineStageFlags(graphicsPipelineStages)
	computePipelineStagesMask  = combineStageFlags(computePipelineStages)
	transferPipelineStagesMask = combineStageFlags(transferPipelineStages)
)

func combineStageFlags(flags []types.PipelineStageFlags) types.PipelineStageFlags {
	var mask types.PipelineStageFlags
	for _, f := range flags {
		mask |= f
	}
	return mask
}

// Barrier is one synthesized pipeline barrier.
type Barrier struct {
	// CommandIndex is the index of the first command that depends on this
	// barrier; the barrier is emitted just before it.
	CommandIndex uint32

	// SrcStageMask and DstStageMask form the execution dependency.
	SrcStageMask types.PipelineStageFlags
	DstStageMask types.PipelineStageFlags

	// ExtSrcStageMask and ExtDstStageMask extend the actual masks to every
	// stage the barrier logically covers in pipeline stage order, allowing
	// later dependencies to attach without loosening execution guarantees.
	ExtSrcStageMask types.PipelineStageFlags
	ExtDstStageMask types.PipelineStageFlags

	BufferDependencies []BufferDependency
	ImageDependencies  []ImageDependency
}

// growStageMasks widens the execution dependency and refreshes the
// extended masks if they no longer cover it.
func (b *Barrier) growStageMasks(src, dst types.PipelineStageFlags) {
	b.SrcStageMask |= src
	b.DstStageMask |= dst
	if !b.ExtSrcStageMask.Contains(b.SrcStageMask) || !b.ExtDstStageMask.Contains(b.DstStageMask) {
		b.updateExtendedStageMasks()
	}
}

func (b *Barrier) updateExtendedStageMasks() {
	// Non-pipelined stages like StageHost pass through unchanged.
	b.ExtSrcStageMask = b.SrcStageMask
	b.ExtDstStageMask = b.DstStageMask

	orderings := []struct {
		stages []types.PipelineStageFlags
		mask   types.PipelineStageFlags
	}{
		{graphicsPipelineStages, graphicsPipelineStagesMask},
		{computePipelineStages, computePipelineStagesMask},
		{transferPipelineStages, transferPipelineStagesMask},
	}
	for _, ordering := range orderings {
		var accum types.PipelineStageFlags
		for _, stage := range ordering.stages {
			if b.DstStageMask.Contains(stage) {
				b.ExtDstStageMask |= ordering.mask &^ accum
			}
			accum |= stage
			if b.SrcStageMask.Contains(stage) {
				b.ExtSrcStageMask |= accum
			}
		}
	}
}

// BarrierList translates known dependencies into an ordered list of
// barriers to be interleaved with the job's commands.
type BarrierList struct {
	jobID    uint64
	barriers []Barrier

	// exportReusableBarrierIndex protects barriers that synchronize
	// export-visible state from having later dependencies folded back into
	// them. It advances whenever an export-visible command runs.
	exportReusableBarrierIndex int
}

// NewBarrierList makes a barrier list for the job identified by jobID
// (the job's signal timestamp, unique per device).
func NewBarrierList(jobID uint64) *BarrierList {
	return &BarrierList{jobID: jobID}
}

// JobID returns the identifier the list was created with.
func (l *BarrierList) JobID() uint64 {
	return l.jobID
}

// BarrierCount returns the number of barriers synthesized so far.
func (l *BarrierList) BarrierCount() int {
	return len(l.barriers)
}

// Barrier returns the barrier at the given index.
func (l *BarrierList) Barrier(index int) *Barrier {
	return &l.barriers[index]
}

// MarkExportedResourceUsage advances the export protection boundary past
// all current barriers. Called after each command that may consume
// previously exported state.
func (l *BarrierList) MarkExportedResourceUsage() {
	l.exportReusableBarrierIndex = len(l.barriers)
}

// SynchronizeDependency synchronizes a dependency against the list,
// reusing any barrier at or after firstReusableBarrierIndex whose extended
// stage masks already cover it, then falling back to extending the first
// reusable barrier, then to a new barrier at the tail.
func (l *BarrierList) SynchronizeDependency(dep Dependency, commandIndex uint32,
	firstReusableBarrierIndex int, wasExported bool) BarrierReference {
	if wasExported && firstReusableBarrierIndex < l.exportReusableBarrierIndex {
		firstReusableBarrierIndex = l.exportReusableBarrierIndex
	}

	src, dst := dep.accesses()

	// Find an existing barrier with an already matching execution dependency.
	for barrierIndex := len(l.barriers) - 1; barrierIndex >= firstReusableBarrierIndex; barrierIndex-- {
		barrier := &l.barriers[barrierIndex]
		if barrier.ExtSrcStageMask.Contains(src.StageMask) && barrier.ExtDstStageMask.Contains(dst.StageMask) {
			memoryIndex := dep.addTo(barrier)
			return BarrierReference{PipelineBarrierIndex: barrierIndex, MemoryBarrierIndex: memoryIndex}
		}
	}

	// Failing that, go for the first reusable barrier.
	if firstReusableBarrierIndex < len(l.barriers) {
		memoryIndex := dep.addTo(&l.barriers[firstReusableBarrierIndex])
		return BarrierReference{PipelineBarrierIndex: firstReusableBarrierIndex, MemoryBarrierIndex: memoryIndex}
	}

	// Failing that too, create a new barrier at the tail.
	l.barriers = append(l.barriers, Barrier{CommandIndex: commandIndex})
	barrierIndex := len(l.barriers) - 1
	memoryIndex := dep.addTo(&l.barriers[barrierIndex])
	return BarrierReference{PipelineBarrierIndex: barrierIndex, MemoryBarrierIndex: memoryIndex}
}

// ReuseDependency extends a specific previous (barrier, memory dependency)
// reference, or adds a new memory dependency to that barrier if the
// reference carries none.
func (l *BarrierList) ReuseDependency(dep Dependency, reused BarrierReference) BarrierReference {
	barrier := &l.barriers[reused.PipelineBarrierIndex]
	if reused.HasMemoryBarrier() {
		dep.extendIn(barrier, reused.MemoryBarrierIndex)
		return reused
	}
	memoryIndex := dep.addTo(barrier)
	return BarrierReference{PipelineBarrierIndex: reused.PipelineBarrierIndex, MemoryBarrierIndex: memoryIndex}
}
