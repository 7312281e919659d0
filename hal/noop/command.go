package noop

import (
	"github.com/gogpu/tephra/hal"
	"github.com/gogpu/tephra/types"
)

// record appends a command to a command buffer. Recording methods are
// called under the engine's per-queue serialization, so only the map
// lookup needs the device lock.
func (d *Device) record(cb hal.CommandBuffer, command func(d *Device)) {
	d.mu.Lock()
	obj, ok := d.commandBuffers[cb]
	d.mu.Unlock()
	if !ok || !obj.recording {
		hal.Logger().Error("noop: recording into an invalid command buffer")
		return
	}
	obj.commands = append(obj.commands, command)
}

// CmdPipelineBarrier counts the barrier; there is nothing to synchronize.
func (d *Device) CmdPipelineBarrier(cb hal.CommandBuffer, srcStageMask, dstStageMask types.PipelineStageFlags,
	bufferBarriers []hal.BufferMemoryBarrier, imageBarriers []hal.ImageMemoryBarrier) {
	bufferCount := len(bufferBarriers)
	imageCount := len(imageBarriers)
	d.record(cb, func(d *Device) {
		d.counters.PipelineBarriers++
		d.counters.BufferBarriers += bufferCount
		d.counters.ImageBarriers += imageCount
	})
}

// CmdFillBuffer fills a buffer range with a 32-bit pattern.
func (d *Device) CmdFillBuffer(cb hal.CommandBuffer, buffer hal.Buffer, offset, size uint64, value uint32) {
	d.record(cb, func(d *Device) {
		obj, ok := d.buffers[buffer]
		if !ok {
			return
		}
		data := obj.data[offset:min(offset+size, uint64(len(obj.data)))]
		for i := range data {
			data[i] = byte(value >> (8 * (uint(i) % 4)))
		}
	})
}

// CmdUpdateBuffer writes inline data into a buffer.
func (d *Device) CmdUpdateBuffer(cb hal.CommandBuffer, buffer hal.Buffer, offset uint64, data []byte) {
	stored := make([]byte, len(data))
	copy(stored, data)
	d.record(cb, func(d *Device) {
		if obj, ok := d.buffers[buffer]; ok {
			copy(obj.data[offset:], stored)
		}
	})
}

// CmdCopyBuffer copies regions between buffers.
func (d *Device) CmdCopyBuffer(cb hal.CommandBuffer, src, dst hal.Buffer, regions []types.BufferCopyRegion) {
	stored := append([]types.BufferCopyRegion(nil), regions...)
	d.record(cb, func(d *Device) {
		srcObj, okSrc := d.buffers[src]
		dstObj, okDst := d.buffers[dst]
		if !okSrc || !okDst {
			return
		}
		for _, region := range stored {
			copy(dstObj.data[region.DstOffset:region.DstOffset+region.Size],
				srcObj.data[region.SrcOffset:region.SrcOffset+region.Size])
		}
	})
}

func (d *Device) copySubresources(src, dst *imageObject, srcSub, dstSub types.ImageSubresourceLayers) {
	layers := srcSub.ArrayLayerCount
	if dstSub.ArrayLayerCount < layers {
		layers = dstSub.ArrayLayerCount
	}
	for layer := uint32(0); layer < layers; layer++ {
		from := src.subresources[subresourceKey{srcSub.MipLevel, srcSub.BaseArrayLayer + layer}]
		to := dst.subresources[subresourceKey{dstSub.MipLevel, dstSub.BaseArrayLayer + layer}]
		copy(to, from)
	}
}

// CmdCopyImage copies whole subresources between images. The noop backend
// ignores sub-extent offsets; engine tests copy full subresources.
func (d *Device) CmdCopyImage(cb hal.CommandBuffer, src hal.Image, srcLayout types.ImageLayout,
	dst hal.Image, dstLayout types.ImageLayout, regions []types.ImageCopyRegion) {
	stored := append([]types.ImageCopyRegion(nil), regions...)
	d.record(cb, func(d *Device) {
		srcObj, okSrc := d.images[src]
		dstObj, okDst := d.images[dst]
		if !okSrc || !okDst {
			return
		}
		for _, region := range stored {
			d.copySubresources(srcObj, dstObj, region.SrcSubresource, region.DstSubresource)
		}
	})
}

// CmdResolveImage resolves samples; with host storage this is a copy.
func (d *Device) CmdResolveImage(cb hal.CommandBuffer, src hal.Image, srcLayout types.ImageLayout,
	dst hal.Image, dstLayout types.ImageLayout, regions []types.ImageCopyRegion) {
	d.CmdCopyImage(cb, src, srcLayout, dst, dstLayout, regions)
}

// CmdBlitImage blits; scaling is not modelled, equal-extent blits copy.
func (d *Device) CmdBlitImage(cb hal.CommandBuffer, src hal.Image, srcLayout types.ImageLayout,
	dst hal.Image, dstLayout types.ImageLayout, regions []types.ImageBlitRegion, filter types.Filter) {
	stored := append([]types.ImageBlitRegion(nil), regions...)
	d.record(cb, func(d *Device) {
		srcObj, okSrc := d.images[src]
		dstObj, okDst := d.images[dst]
		if !okSrc || !okDst {
			return
		}
		for _, region := range stored {
			d.copySubresources(srcObj, dstObj, region.SrcSubresource, region.DstSubresource)
		}
	})
}

// CmdCopyBufferToImage copies tightly packed buffer bytes into image
// subresources.
func (d *Device) CmdCopyBufferToImage(cb hal.CommandBuffer, src hal.Buffer, dst hal.Image,
	dstLayout types.ImageLayout, regions []types.BufferImageCopyRegion) {
	stored := append([]types.BufferImageCopyRegion(nil), regions...)
	d.record(cb, func(d *Device) {
		srcObj, okSrc := d.buffers[src]
		dstObj, okDst := d.images[dst]
		if !okSrc || !okDst {
			return
		}
		for _, region := range stored {
			sub := region.ImageSubresource
			size := subresourceBytes(&dstObj.setup, sub.MipLevel)
			for layer := uint32(0); layer < sub.ArrayLayerCount; layer++ {
				to := dstObj.subresources[subresourceKey{sub.MipLevel, sub.BaseArrayLayer + layer}]
				from := srcObj.data[region.BufferOffset+uint64(layer)*size:]
				copy(to, from[:min(size, uint64(len(from)))])
			}
		}
	})
}

// CmdCopyImageToBuffer copies image subresources into tightly packed
// buffer bytes.
func (d *Device) CmdCopyImageToBuffer(cb hal.CommandBuffer, src hal.Image, srcLayout types.ImageLayout,
	dst hal.Buffer, regions []types.BufferImageCopyRegion) {
	stored := append([]types.BufferImageCopyRegion(nil), regions...)
	d.record(cb, func(d *Device) {
		srcObj, okSrc := d.images[src]
		dstObj, okDst := d.buffers[dst]
		if !okSrc || !okDst {
			return
		}
		for _, region := range stored {
			sub := region.ImageSubresource
			size := subresourceBytes(&srcObj.setup, sub.MipLevel)
			for layer := uint32(0); layer < sub.ArrayLayerCount; layer++ {
				from := srcObj.subresources[subresourceKey{sub.MipLevel, sub.BaseArrayLayer + layer}]
				to := dstObj.data[region.BufferOffset+uint64(layer)*size:]
				copy(to[:min(size, uint64(len(to)))], from)
			}
		}
	})
}

// CmdClearImage fills the addressed subresources with the low byte of the
// clear color.
func (d *Device) CmdClearImage(cb hal.CommandBuffer, image hal.Image, layout types.ImageLayout,
	value types.ClearValue, ranges []types.ImageSubresourceRange) {
	stored := append([]types.ImageSubresourceRange(nil), ranges...)
	fill := byte(value.Color[0])
	if value.DepthStencil {
		fill = byte(value.Stencil)
	}
	d.record(cb, func(d *Device) {
		obj, ok := d.images[image]
		if !ok {
			return
		}
		for _, rng := range stored {
			for mip := rng.BaseMipLevel; mip < rng.BaseMipLevel+rng.MipLevelCount; mip++ {
				for layer := rng.BaseArrayLayer; layer < rng.BaseArrayLayer+rng.ArrayLayerCount; layer++ {
					data := obj.subresources[subresourceKey{mip, layer}]
					for i := range data {
						data[i] = fill
					}
				}
			}
		}
	})
}

// CmdBindComputePipeline is recorded but has nothing to execute.
func (d *Device) CmdBindComputePipeline(cb hal.CommandBuffer, pipeline hal.Pipeline) {
	d.record(cb, func(d *Device) {})
}

// CmdDispatch is recorded but has nothing to execute.
func (d *Device) CmdDispatch(cb hal.CommandBuffer, groupCountX, groupCountY, groupCountZ uint32) {
	d.record(cb, func(d *Device) {})
}

// CmdBeginDebugLabel is a no-op.
func (d *Device) CmdBeginDebugLabel(cb hal.CommandBuffer, name string, color [4]float32) {
	d.record(cb, func(d *Device) {})
}

// CmdInsertDebugLabel is a no-op.
func (d *Device) CmdInsertDebugLabel(cb hal.CommandBuffer, name string, color [4]float32) {
	d.record(cb, func(d *Device) {})
}

// CmdEndDebugLabel is a no-op.
func (d *Device) CmdEndDebugLabel(cb hal.CommandBuffer) {
	d.record(cb, func(d *Device) {})
}

// CmdWriteTimestamp writes a synthetic, strictly increasing timestamp.
func (d *Device) CmdWriteTimestamp(cb hal.CommandBuffer, stage types.PipelineStageFlags,
	pool hal.QueryPool, query uint32) {
	d.record(cb, func(d *Device) {
		if values, ok := d.queryPools[pool]; ok && int(query) < len(values) {
			d.nextHandle++
			values[query] = d.nextHandle
		}
	})
}
