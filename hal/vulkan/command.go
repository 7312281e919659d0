// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package vulkan

import (
	"unsafe"

	"github.com/gogpu/tephra/hal"
	"github.com/gogpu/tephra/hal/vulkan/vk"
	"github.com/gogpu/tephra/types"
)

// CmdPipelineBarrier records a pipeline barrier.
func (d *Device) CmdPipelineBarrier(cb hal.CommandBuffer, srcStageMask, dstStageMask types.PipelineStageFlags,
	bufferBarriers []hal.BufferMemoryBarrier, imageBarriers []hal.ImageMemoryBarrier) {
	vkBuffers := make([]vk.BufferMemoryBarrier, len(bufferBarriers))
	for i, barrier := range bufferBarriers {
		vkBuffers[i] = vk.BufferMemoryBarrier{
			SType:               vk.StructureTypeBufferMemoryBarrier,
			SrcAccessMask:       uint32(barrier.SrcAccessMask),
			DstAccessMask:       uint32(barrier.DstAccessMask),
			SrcQueueFamilyIndex: barrier.SrcQueueFamilyIndex,
			DstQueueFamilyIndex: barrier.DstQueueFamilyIndex,
			Buffer:              vk.Buffer(barrier.Buffer),
			Offset:              barrier.Offset,
			Size:                barrier.Size,
		}
	}
	vkImages := make([]vk.ImageMemoryBarrier, len(imageBarriers))
	for i, barrier := range imageBarriers {
		vkImages[i] = vk.ImageMemoryBarrier{
			SType:               vk.StructureTypeImageMemoryBarrier,
			SrcAccessMask:       uint32(barrier.SrcAccessMask),
			DstAccessMask:       uint32(barrier.DstAccessMask),
			OldLayout:           convertLayout(barrier.OldLayout),
			NewLayout:           convertLayout(barrier.NewLayout),
			SrcQueueFamilyIndex: barrier.SrcQueueFamilyIndex,
			DstQueueFamilyIndex: barrier.DstQueueFamilyIndex,
			Image:               vk.Image(barrier.Image),
			SubresourceRange:    convertSubresourceRange(barrier.Range),
		}
	}
	d.cmds.CmdPipelineBarrier(vk.CommandBuffer(cb), uint32(srcStageMask), uint32(dstStageMask), vkBuffers, vkImages)
}

// CmdFillBuffer records a buffer fill.
func (d *Device) CmdFillBuffer(cb hal.CommandBuffer, buffer hal.Buffer, offset, size uint64, value uint32) {
	d.cmds.CmdFillBuffer(vk.CommandBuffer(cb), vk.Buffer(buffer), offset, size, value)
}

// CmdUpdateBuffer records an inline buffer write.
func (d *Device) CmdUpdateBuffer(cb hal.CommandBuffer, buffer hal.Buffer, offset uint64, data []byte) {
	if len(data) == 0 {
		return
	}
	d.cmds.CmdUpdateBuffer(vk.CommandBuffer(cb), vk.Buffer(buffer), offset, uint64(len(data)),
		unsafe.Pointer(&data[0]))
}

// CmdCopyBuffer records a buffer-to-buffer copy.
func (d *Device) CmdCopyBuffer(cb hal.CommandBuffer, src, dst hal.Buffer, regions []types.BufferCopyRegion) {
	vkRegions := make([]vk.BufferCopy, len(regions))
	for i, region := range regions {
		vkRegions[i] = vk.BufferCopy{SrcOffset: region.SrcOffset, DstOffset: region.DstOffset, Size: region.Size}
	}
	d.cmds.CmdCopyBuffer(vk.CommandBuffer(cb), vk.Buffer(src), vk.Buffer(dst), vkRegions)
}

// CmdCopyImage records an image-to-image copy.
func (d *Device) CmdCopyImage(cb hal.CommandBuffer, src hal.Image, srcLayout types.ImageLayout,
	dst hal.Image, dstLayout types.ImageLayout, regions []types.ImageCopyRegion) {
	d.cmds.CmdCopyImage(vk.CommandBuffer(cb), vk.Image(src), convertLayout(srcLayout),
		vk.Image(dst), convertLayout(dstLayout), convertImageCopies(regions))
}

// CmdResolveImage records a multisample resolve.
func (d *Device) CmdResolveImage(cb hal.CommandBuffer, src hal.Image, srcLayout types.ImageLayout,
	dst hal.Image, dstLayout types.ImageLayout, regions []types.ImageCopyRegion) {
	d.cmds.CmdResolveImage(vk.CommandBuffer(cb), vk.Image(src), convertLayout(srcLayout),
		vk.Image(dst), convertLayout(dstLayout), convertImageCopies(regions))
}

// CmdBlitImage records a scaled, filtered image copy.
func (d *Device) CmdBlitImage(cb hal.CommandBuffer, src hal.Image, srcLayout types.ImageLayout,
	dst hal.Image, dstLayout types.ImageLayout, regions []types.ImageBlitRegion, filter types.Filter) {
	vkRegions := make([]vk.ImageBlit, len(regions))
	for i, region := range regions {
		vkRegions[i] = vk.ImageBlit{
			SrcSubresource: convertSubresourceLayers(region.SrcSubresource),
			DstSubresource: convertSubresourceLayers(region.DstSubresource),
		}
		for k := 0; k < 2; k++ {
			vkRegions[i].SrcOffsets[k] = convertOffset(region.SrcOffsets[k])
			vkRegions[i].DstOffsets[k] = convertOffset(region.DstOffsets[k])
		}
	}
	vkFilter := uint32(0)
	if filter == types.FilterLinear {
		vkFilter = vkFilterLinear
	}
	d.cmds.CmdBlitImage(vk.CommandBuffer(cb), vk.Image(src), convertLayout(srcLayout),
		vk.Image(dst), convertLayout(dstLayout), vkRegions, vkFilter)
}

// CmdCopyBufferToImage records a buffer-to-image copy.
func (d *Device) CmdCopyBufferToImage(cb hal.CommandBuffer, src hal.Buffer, dst hal.Image,
	dstLayout types.ImageLayout, regions []types.BufferImageCopyRegion) {
	d.cmds.CmdCopyBufferToImage(vk.CommandBuffer(cb), vk.Buffer(src), vk.Image(dst),
		convertLayout(dstLayout), convertBufferImageCopies(regions))
}

// CmdCopyImageToBuffer records an image-to-buffer copy.
func (d *Device) CmdCopyImageToBuffer(cb hal.CommandBuffer, src hal.Image, srcLayout types.ImageLayout,
	dst hal.Buffer, regions []types.BufferImageCopyRegion) {
	d.cmds.CmdCopyImageToBuffer(vk.CommandBuffer(cb), vk.Image(src), convertLayout(srcLayout),
		vk.Buffer(dst), convertBufferImageCopies(regions))
}

// CmdClearImage records a color or depth/stencil clear.
func (d *Device) CmdClearImage(cb hal.CommandBuffer, image hal.Image, layout types.ImageLayout,
	value types.ClearValue, ranges []types.ImageSubresourceRange) {
	vkRanges := make([]vk.ImageSubresourceRange, len(ranges))
	for i, rng := range ranges {
		vkRanges[i] = convertSubresourceRange(rng)
	}
	if value.DepthStencil {
		clear := vk.ClearDepthStencilValue{Depth: value.Depth, Stencil: value.Stencil}
		d.cmds.CmdClearDepthStencilImage(vk.CommandBuffer(cb), vk.Image(image), convertLayout(layout), &clear, vkRanges)
		return
	}
	clear := vk.ClearColorValue{Float32: value.Color}
	d.cmds.CmdClearColorImage(vk.CommandBuffer(cb), vk.Image(image), convertLayout(layout), &clear, vkRanges)
}

// CmdBindComputePipeline binds a compute pipeline.
func (d *Device) CmdBindComputePipeline(cb hal.CommandBuffer, pipeline hal.Pipeline) {
	d.cmds.CmdBindPipeline(vk.CommandBuffer(cb), vk.PipelineBindPointCompute, vk.Pipeline(pipeline))
}

// CmdDispatch records a compute dispatch.
func (d *Device) CmdDispatch(cb hal.CommandBuffer, groupCountX, groupCountY, groupCountZ uint32) {
	d.cmds.CmdDispatch(vk.CommandBuffer(cb), groupCountX, groupCountY, groupCountZ)
}

// Debug labels need VK_EXT_debug_utils, which this backend does not
// enable; the commands are accepted and dropped.

// CmdBeginDebugLabel is a no-op without the debug utils extension.
func (d *Device) CmdBeginDebugLabel(cb hal.CommandBuffer, name string, color [4]float32) {}

// CmdInsertDebugLabel is a no-op without the debug utils extension.
func (d *Device) CmdInsertDebugLabel(cb hal.CommandBuffer, name string, color [4]float32) {}

// CmdEndDebugLabel is a no-op without the debug utils extension.
func (d *Device) CmdEndDebugLabel(cb hal.CommandBuffer) {}

// CmdWriteTimestamp records a timestamp query write.
func (d *Device) CmdWriteTimestamp(cb hal.CommandBuffer, stage types.PipelineStageFlags,
	pool hal.QueryPool, query uint32) {
	d.cmds.CmdWriteTimestamp(vk.CommandBuffer(cb), uint32(stage), vk.QueryPool(pool), query)
}
