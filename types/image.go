package types

// ImageType selects the dimensionality of an image.
type ImageType uint32

const (
	ImageType1D ImageType = iota
	ImageType2D
	ImageType3D
)

// Format enumerates the image and texel formats the engine needs to reason
// about. Drivers may support more; the engine only inspects block size for
// buffer-image copy extents.
type Format uint32

const (
	FormatUndefined Format = iota
	FormatR8Unorm
	FormatR8G8B8A8Unorm
	FormatR8G8B8A8Srgb
	FormatB8G8R8A8Unorm
	FormatR16G16B16A16Sfloat
	FormatR32Uint
	FormatR32Sfloat
	FormatR32G32B32A32Sfloat
	FormatD32Sfloat
	FormatD24UnormS8Uint
)

// FormatClassProperties describe the texel block geometry of a format class.
type FormatClassProperties struct {
	TexelBlockWidth  uint32
	TexelBlockHeight uint32
	TexelBlockBytes  uint32
	Aspects          ImageAspectFlags
}

// GetFormatClassProperties returns the block properties for a format.
func GetFormatClassProperties(format Format) FormatClassProperties {
	switch format {
	case FormatR8Unorm:
		return FormatClassProperties{1, 1, 1, AspectColor}
	case FormatR8G8B8A8Unorm, FormatR8G8B8A8Srgb, FormatB8G8R8A8Unorm, FormatR32Uint, FormatR32Sfloat:
		return FormatClassProperties{1, 1, 4, AspectColor}
	case FormatR16G16B16A16Sfloat:
		return FormatClassProperties{1, 1, 8, AspectColor}
	case FormatR32G32B32A32Sfloat:
		return FormatClassProperties{1, 1, 16, AspectColor}
	case FormatD32Sfloat:
		return FormatClassProperties{1, 1, 4, AspectDepth}
	case FormatD24UnormS8Uint:
		return FormatClassProperties{1, 1, 4, AspectDepth | AspectStencil}
	default:
		return FormatClassProperties{1, 1, 0, AspectColor}
	}
}

// Extent3D is a 3D extent in texels.
type Extent3D struct {
	Width  uint32
	Height uint32
	Depth  uint32
}

// Offset3D is a 3D offset in texels.
type Offset3D struct {
	X int32
	Y int32
	Z int32
}

// ImageSubresourceRange addresses a contiguous range of image subresources.
type ImageSubresourceRange struct {
	AspectMask     ImageAspectFlags
	BaseMipLevel   uint32
	MipLevelCount  uint32
	BaseArrayLayer uint32
	ArrayLayerCount uint32
}

// ImageSubresourceLayers addresses the layers of a single mip level.
type ImageSubresourceLayers struct {
	AspectMask     ImageAspectFlags
	MipLevel       uint32
	BaseArrayLayer uint32
	ArrayLayerCount uint32
}

// Range widens the layers to a subresource range of one mip level.
func (l ImageSubresourceLayers) Range() ImageSubresourceRange {
	return ImageSubresourceRange{
		AspectMask:      l.AspectMask,
		BaseMipLevel:    l.MipLevel,
		MipLevelCount:   1,
		BaseArrayLayer:  l.BaseArrayLayer,
		ArrayLayerCount: l.ArrayLayerCount,
	}
}

// Filter selects the sampling filter of a blit.
type Filter uint32

const (
	FilterNearest Filter = iota
	FilterLinear
)

// ClearValue holds either a clear color or depth/stencil values.
type ClearValue struct {
	Color        [4]float32
	Depth        float32
	Stencil      uint32
	DepthStencil bool
}

// ClearColorF makes a float color clear value.
func ClearColorF(r, g, b, a float32) ClearValue {
	return ClearValue{Color: [4]float32{r, g, b, a}}
}

// ClearDepthStencil makes a depth/stencil clear value.
func ClearDepthStencil(depth float32, stencil uint32) ClearValue {
	return ClearValue{Depth: depth, Stencil: stencil, DepthStencil: true}
}
