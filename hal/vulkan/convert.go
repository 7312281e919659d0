// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package vulkan

import (
	"github.com/gogpu/tephra/hal"
	"github.com/gogpu/tephra/hal/vulkan/vk"
	"github.com/gogpu/tephra/types"
)

// Native buffer usage bits that differ from the engine's enumeration.
const (
	vkBufferUsageAccelerationStructureInput   uint32 = 0x00080000
	vkBufferUsageAccelerationStructureStorage uint32 = 0x00100000
	vkImageLayoutPresentSrc                   uint32 = 1000001002
	vkFilterLinear                            uint32 = 1
)

func convertFormat(format types.Format) uint32 {
	switch format {
	case types.FormatR8Unorm:
		return 9 // VK_FORMAT_R8_UNORM
	case types.FormatR8G8B8A8Unorm:
		return 37 // VK_FORMAT_R8G8B8A8_UNORM
	case types.FormatR8G8B8A8Srgb:
		return 43 // VK_FORMAT_R8G8B8A8_SRGB
	case types.FormatB8G8R8A8Unorm:
		return 44 // VK_FORMAT_B8G8R8A8_UNORM
	case types.FormatR16G16B16A16Sfloat:
		return 97 // VK_FORMAT_R16G16B16A16_SFLOAT
	case types.FormatR32Uint:
		return 98 // VK_FORMAT_R32_UINT
	case types.FormatR32Sfloat:
		return 100 // VK_FORMAT_R32_SFLOAT
	case types.FormatR32G32B32A32Sfloat:
		return 109 // VK_FORMAT_R32G32B32A32_SFLOAT
	case types.FormatD32Sfloat:
		return 126 // VK_FORMAT_D32_SFLOAT
	case types.FormatD24UnormS8Uint:
		return 129 // VK_FORMAT_D24_UNORM_S8_UINT
	default:
		return 0 // VK_FORMAT_UNDEFINED
	}
}

func convertBufferUsage(usage types.BufferUsageFlags) uint32 {
	// The low usage bits match the native enumeration; host visibility is
	// a memory property, not a usage.
	result := uint32(usage) & 0x1FF
	if usage.Contains(types.BufferUsageAccelerationStructureInput) {
		result |= vkBufferUsageAccelerationStructureInput
	}
	if usage.Contains(types.BufferUsageAccelerationStructureStorage) {
		result |= vkBufferUsageAccelerationStructureStorage
	}
	return result
}

func convertImageUsage(usage types.ImageUsageFlags) uint32 {
	result := uint32(usage) & 0x3F
	if usage.Contains(types.ImageUsageInputAttachment) {
		result &^= uint32(types.ImageUsageInputAttachment)
		result |= 0x80 // VK_IMAGE_USAGE_INPUT_ATTACHMENT_BIT
	}
	return result
}

func convertLayout(layout types.ImageLayout) uint32 {
	if layout == types.LayoutPresentSrc {
		return vkImageLayoutPresentSrc
	}
	// The remaining values match the native enumeration.
	return uint32(layout)
}

func convertSubresourceRange(rng types.ImageSubresourceRange) vk.ImageSubresourceRange {
	return vk.ImageSubresourceRange{
		AspectMask:     uint32(rng.AspectMask),
		BaseMipLevel:   rng.BaseMipLevel,
		LevelCount:     rng.MipLevelCount,
		BaseArrayLayer: rng.BaseArrayLayer,
		LayerCount:     rng.ArrayLayerCount,
	}
}

func convertSubresourceLayers(layers types.ImageSubresourceLayers) vk.ImageSubresourceLayers {
	return vk.ImageSubresourceLayers{
		AspectMask:     uint32(layers.AspectMask),
		MipLevel:       layers.MipLevel,
		BaseArrayLayer: layers.BaseArrayLayer,
		LayerCount:     layers.ArrayLayerCount,
	}
}

func convertOffset(offset types.Offset3D) vk.Offset3D {
	return vk.Offset3D{X: offset.X, Y: offset.Y, Z: offset.Z}
}

func convertExtent(extent types.Extent3D) vk.Extent3D {
	depth := extent.Depth
	if depth == 0 {
		depth = 1
	}
	return vk.Extent3D{Width: extent.Width, Height: extent.Height, Depth: depth}
}

func convertImageCopies(regions []types.ImageCopyRegion) []vk.ImageCopy {
	result := make([]vk.ImageCopy, len(regions))
	for i, region := range regions {
		result[i] = vk.ImageCopy{
			SrcSubresource: convertSubresourceLayers(region.SrcSubresource),
			SrcOffset:      convertOffset(region.SrcOffset),
			DstSubresource: convertSubresourceLayers(region.DstSubresource),
			DstOffset:      convertOffset(region.DstOffset),
			Extent:         convertExtent(region.Extent),
		}
	}
	return result
}

func convertBufferImageCopies(regions []types.BufferImageCopyRegion) []vk.BufferImageCopy {
	result := make([]vk.BufferImageCopy, len(regions))
	for i, region := range regions {
		result[i] = vk.BufferImageCopy{
			BufferOffset:      region.BufferOffset,
			BufferRowLength:   region.BufferRowLength,
			BufferImageHeight: region.BufferImageHeight,
			ImageSubresource:  convertSubresourceLayers(region.ImageSubresource),
			ImageOffset:       convertOffset(region.ImageOffset),
			ImageExtent:       convertExtent(region.ImageExtent),
		}
	}
	return result
}

func convertResult(result vk.Result) error {
	switch result {
	case vk.Success, vk.NotReady, vk.Timeout:
		return nil
	case vk.ErrorOutOfHostMemory:
		return hal.ErrOutOfHostMemory
	case vk.ErrorOutOfDeviceMemory:
		return hal.ErrOutOfDeviceMemory
	case vk.ErrorInitializationFailed:
		return hal.ErrInitializationFailed
	case vk.ErrorDeviceLost:
		return hal.ErrDeviceLost
	case vk.ErrorMemoryMapFailed:
		return hal.ErrMemoryMapFailed
	case vk.ErrorLayerNotPresent:
		return hal.ErrLayerNotPresent
	case vk.ErrorExtensionNotPresent:
		return hal.ErrExtensionNotPresent
	case vk.ErrorFeatureNotPresent:
		return hal.ErrFeatureNotPresent
	case vk.ErrorTooManyObjects:
		return hal.ErrTooManyObjects
	case vk.ErrorFormatNotSupported:
		return hal.ErrFormatNotSupported
	case vk.ErrorSurfaceLost:
		return hal.ErrSurfaceLost
	case vk.ErrorOutOfDate:
		return hal.ErrOutOfDate
	case vk.ErrorInvalidExternalHandle:
		return hal.ErrInvalidExternalHandle
	case vk.ErrorFragmentation, vk.ErrorFragmentedPool:
		return hal.ErrFragmentation
	default:
		return hal.ErrUnsupportedOperation
	}
}
