package track

import (
	"github.com/gogpu/tephra/hal"
	"github.com/gogpu/tephra/types"
)

// ResourceAccess describes the native properties of a resource access.
type ResourceAccess struct {
	StageMask  types.PipelineStageFlags
	AccessMask types.AccessFlags
}

// IsReadOnly reports whether the access mask contains no write bits.
func (a ResourceAccess) IsReadOnly() bool {
	return a.AccessMask.IsReadOnly()
}

// IsNull reports whether the access is empty.
func (a ResourceAccess) IsNull() bool {
	return a.StageMask == 0
}

// Union returns the combined access.
func (a ResourceAccess) Union(other ResourceAccess) ResourceAccess {
	return ResourceAccess{
		StageMask:  a.StageMask | other.StageMask,
		AccessMask: a.AccessMask | other.AccessMask,
	}
}

// Contains reports whether a covers all stage and access bits of other.
func (a ResourceAccess) Contains(other ResourceAccess) bool {
	return a.StageMask.Contains(other.StageMask) && a.AccessMask.Contains(other.AccessMask)
}

// BufferAccessRange is the extent of an access to a buffer resource.
type BufferAccessRange struct {
	Offset uint64
	Size   uint64
}

// Start returns the first byte of the range.
func (r BufferAccessRange) Start() uint64 { return r.Offset }

// End returns one past the last byte of the range.
func (r BufferAccessRange) End() uint64 { return r.Offset + r.Size }

// IsNull reports whether the range is empty.
func (r BufferAccessRange) IsNull() bool { return r.Size == 0 }

// ImageAccessRange is the extent of an access to an image resource.
// Mip levels are stored as a bitmask rather than a range to keep the
// storage and splitting logic simple; array layers form the interval that
// Start, End and the overlap and split logic work on.
type ImageAccessRange struct {
	AspectMask      types.ImageAspectFlags
	BaseArrayLayer  uint32
	ArrayLayerCount uint32
	MipLevelMask    uint32
}

// NewImageAccessRange converts a subresource range into an access range.
// The range must address fewer than 32 mip levels.
func NewImageAccessRange(r types.ImageSubresourceRange) ImageAccessRange {
	return ImageAccessRange{
		AspectMask:      r.AspectMask,
		BaseArrayLayer:  r.BaseArrayLayer,
		ArrayLayerCount: r.ArrayLayerCount,
		MipLevelMask:    ((uint32(1) << r.MipLevelCount) - 1) << r.BaseMipLevel,
	}
}

// Start returns the first array layer of the range.
func (r ImageAccessRange) Start() uint32 { return r.BaseArrayLayer }

// End returns one past the last array layer of the range.
func (r ImageAccessRange) End() uint32 { return r.BaseArrayLayer + r.ArrayLayerCount }

// IsNull reports whether the range addresses no subresources.
func (r ImageAccessRange) IsNull() bool {
	return r.ArrayLayerCount == 0 || r.MipLevelMask == 0 || r.AspectMask == 0
}

// Overlaps reports whether any part of the two ranges overlaps.
func (r BufferAccessRange) Overlaps(other BufferAccessRange) bool {
	return r.End() > other.Start() && r.Start() < other.End()
}

// Overlaps reports whether any part of the two ranges overlaps: the layer
// intervals intersect and the aspect and mip masks share bits.
func (r ImageAccessRange) Overlaps(other ImageAccessRange) bool {
	layersOverlap := r.End() > other.Start() && r.Start() < other.End()
	return layersOverlap && r.MipLevelMask&other.MipLevelMask != 0 && r.AspectMask.ContainsAny(other.AspectMask)
}

// Contains reports whether r fully contains other.
func (r BufferAccessRange) Contains(other BufferAccessRange) bool {
	return r.Start() <= other.Start() && r.End() >= other.End()
}

// Contains reports whether r fully contains other.
func (r ImageAccessRange) Contains(other ImageAccessRange) bool {
	return r.Start() <= other.Start() && r.End() >= other.End() &&
		r.AspectMask.Contains(other.AspectMask) &&
		r.MipLevelMask&other.MipLevelMask == other.MipLevelMask
}

// intersectBufferRanges returns the intersection of a and b.
func intersectBufferRanges(a, b BufferAccessRange) BufferAccessRange {
	result := a
	if b.Offset > result.Offset {
		d := b.Offset - result.Offset
		if d > result.Size {
			d = result.Size
		}
		result.Size -= d
		result.Offset = b.Offset
	}
	if b.End() < result.End() {
		end := b.End()
		if end < result.Offset {
			end = result.Offset
		}
		result.Size = end - result.Offset
	}
	return result
}

func intersectImageRanges(a, b ImageAccessRange) ImageAccessRange {
	result := a
	if b.BaseArrayLayer > result.BaseArrayLayer {
		d := b.BaseArrayLayer - result.BaseArrayLayer
		if d > result.ArrayLayerCount {
			d = result.ArrayLayerCount
		}
		result.ArrayLayerCount -= d
		result.BaseArrayLayer = b.BaseArrayLayer
	}
	if b.End() < result.End() {
		end := b.End()
		if end < result.BaseArrayLayer {
			end = result.BaseArrayLayer
		}
		result.ArrayLayerCount = end - result.BaseArrayLayer
	}
	result.AspectMask &= b.AspectMask
	result.MipLevelMask &= b.MipLevelMask
	return result
}

// diffLeftBufferRanges returns the subrange of a to the left of the
// intersection with b.
func diffLeftBufferRanges(a, b BufferAccessRange) BufferAccessRange {
	result := a
	if b.Offset < result.End() {
		end := b.Offset
		if end < result.Offset {
			end = result.Offset
		}
		result.Size = end - result.Offset
	}
	return result
}

func diffLeftImageRanges(a, b ImageAccessRange) ImageAccessRange {
	result := a
	if b.BaseArrayLayer < result.End() {
		end := b.BaseArrayLayer
		if end < result.BaseArrayLayer {
			end = result.BaseArrayLayer
		}
		result.ArrayLayerCount = end - result.BaseArrayLayer
	}
	return result
}

// diffRightBufferRanges returns the subrange of a to the right of the
// intersection with b.
func diffRightBufferRanges(a, b BufferAccessRange) BufferAccessRange {
	result := a
	if b.End() > result.Offset {
		d := b.End() - result.Offset
		if d > result.Size {
			d = result.Size
		}
		result.Size -= d
		result.Offset = b.End()
	}
	return result
}

func diffRightImageRanges(a, b ImageAccessRange) ImageAccessRange {
	result := a
	if b.End() > result.BaseArrayLayer {
		d := b.End() - result.BaseArrayLayer
		if d > result.ArrayLayerCount {
			d = result.ArrayLayerCount
		}
		result.ArrayLayerCount -= d
		result.BaseArrayLayer = b.End()
	}
	return result
}

// NewBufferAccess is a fully identified access to a buffer range.
type NewBufferAccess struct {
	ResourceAccess
	Buffer hal.Buffer
	Range  BufferAccessRange
}

// NewImageAccess is a fully identified access to an image range, including
// the layout the range needs to be in.
type NewImageAccess struct {
	ResourceAccess
	Image  hal.Image
	Range  ImageAccessRange
	Layout types.ImageLayout
}

// BarrierReference is a nullable reference to a pipeline barrier and
// optionally one of its memory dependencies within a BarrierList.
type BarrierReference struct {
	PipelineBarrierIndex int
	MemoryBarrierIndex   int
}

// NullBarrierReference returns the null reference.
func NullBarrierReference() BarrierReference {
	return BarrierReference{PipelineBarrierIndex: -1, MemoryBarrierIndex: -1}
}

// IsNull reports whether the reference points at no barrier.
func (r BarrierReference) IsNull() bool {
	return r.PipelineBarrierIndex < 0
}

// HasMemoryBarrier reports whether the reference includes a memory
// dependency.
func (r BarrierReference) HasMemoryBarrier() bool {
	return r.MemoryBarrierIndex >= 0
}
