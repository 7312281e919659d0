package types

// BufferCopyRegion describes one region of a buffer-to-buffer copy.
type BufferCopyRegion struct {
	SrcOffset uint64
	DstOffset uint64
	Size      uint64
}

// ImageCopyRegion describes one region of an image-to-image copy or resolve.
type ImageCopyRegion struct {
	SrcSubresource ImageSubresourceLayers
	SrcOffset      Offset3D
	DstSubresource ImageSubresourceLayers
	DstOffset      Offset3D
	Extent         Extent3D
}

// BufferImageCopyRegion describes one region of a buffer-image copy in
// either direction.
type BufferImageCopyRegion struct {
	BufferOffset     uint64
	BufferRowLength  uint32
	BufferImageHeight uint32
	ImageSubresource ImageSubresourceLayers
	ImageOffset      Offset3D
	ImageExtent      Extent3D
}

// ImageBlitRegion describes one region of a scaled image blit.
type ImageBlitRegion struct {
	SrcSubresource ImageSubresourceLayers
	SrcOffsets     [2]Offset3D
	DstSubresource ImageSubresourceLayers
	DstOffsets     [2]Offset3D
}
