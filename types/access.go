package types

// PipelineStageFlags is a bitmask of pipeline stages. The values match the
// native API so they can be passed through the HAL unchanged.
type PipelineStageFlags uint32

const (
	StageTopOfPipe             PipelineStageFlags = 1 << 0
	StageDrawIndirect          PipelineStageFlags = 1 << 1
	StageVertexInput           PipelineStageFlags = 1 << 2
	StageVertexShader          PipelineStageFlags = 1 << 3
	StageTessellationControl   PipelineStageFlags = 1 << 4
	StageTessellationEvaluation PipelineStageFlags = 1 << 5
	StageGeometryShader        PipelineStageFlags = 1 << 6
	StageFragmentShader        PipelineStageFlags = 1 << 7
	StageEarlyFragmentTests    PipelineStageFlags = 1 << 8
	StageLateFragmentTests     PipelineStageFlags = 1 << 9
	StageColorAttachmentOutput PipelineStageFlags = 1 << 10
	StageComputeShader         PipelineStageFlags = 1 << 11
	StageTransfer              PipelineStageFlags = 1 << 12
	StageBottomOfPipe          PipelineStageFlags = 1 << 13
	StageHost                  PipelineStageFlags = 1 << 14
	StageAllGraphics           PipelineStageFlags = 1 << 15
	StageAllCommands           PipelineStageFlags = 1 << 16
	StageAccelerationStructureBuild PipelineStageFlags = 1 << 25
)

// Contains reports whether all bits of other are set in f.
func (f PipelineStageFlags) Contains(other PipelineStageFlags) bool {
	return f&other == other
}

// AccessFlags is a bitmask of memory access kinds, native-API valued.
type AccessFlags uint32

const (
	AccessIndirectCommandRead AccessFlags = 1 << 0
	AccessIndexRead           AccessFlags = 1 << 1
	AccessVertexAttributeRead AccessFlags = 1 << 2
	AccessUniformRead         AccessFlags = 1 << 3
	AccessInputAttachmentRead AccessFlags = 1 << 4
	AccessShaderRead          AccessFlags = 1 << 5
	AccessShaderWrite         AccessFlags = 1 << 6
	AccessColorAttachmentRead AccessFlags = 1 << 7
	AccessColorAttachmentWrite AccessFlags = 1 << 8
	AccessDepthStencilAttachmentRead  AccessFlags = 1 << 9
	AccessDepthStencilAttachmentWrite AccessFlags = 1 << 10
	AccessTransferRead        AccessFlags = 1 << 11
	AccessTransferWrite       AccessFlags = 1 << 12
	AccessHostRead            AccessFlags = 1 << 13
	AccessHostWrite           AccessFlags = 1 << 14
	AccessMemoryRead          AccessFlags = 1 << 15
	AccessMemoryWrite         AccessFlags = 1 << 16
	AccessAccelerationStructureRead  AccessFlags = 1 << 21
	AccessAccelerationStructureWrite AccessFlags = 1 << 22
)

// writeAccessBits enumerates every access bit that implies a write.
const writeAccessBits = AccessShaderWrite | AccessColorAttachmentWrite |
	AccessDepthStencilAttachmentWrite | AccessTransferWrite | AccessHostWrite |
	AccessMemoryWrite | AccessAccelerationStructureWrite

// Contains reports whether all bits of other are set in f.
func (f AccessFlags) Contains(other AccessFlags) bool {
	return f&other == other
}

// IsReadOnly reports whether the mask contains no write bits.
func (f AccessFlags) IsReadOnly() bool {
	return f&writeAccessBits == 0
}

// ImageLayout enumerates image layouts. LayoutUndefined doubles as "contents
// may be discarded on the next transition".
type ImageLayout uint32

const (
	LayoutUndefined ImageLayout = iota
	LayoutGeneral
	LayoutColorAttachment
	LayoutDepthStencilAttachment
	LayoutDepthStencilReadOnly
	LayoutShaderReadOnly
	LayoutTransferSrc
	LayoutTransferDst
	LayoutPreinitialized
	LayoutPresentSrc
)

// ImageAspectFlags selects image aspects (color, depth, stencil).
type ImageAspectFlags uint32

const (
	AspectColor   ImageAspectFlags = 1 << 0
	AspectDepth   ImageAspectFlags = 1 << 1
	AspectStencil ImageAspectFlags = 1 << 2
)

// Contains reports whether all bits of other are set in f.
func (f ImageAspectFlags) Contains(other ImageAspectFlags) bool {
	return f&other == other
}

// ContainsAny reports whether f and other share any bits.
func (f ImageAspectFlags) ContainsAny(other ImageAspectFlags) bool {
	return f&other != 0
}

// QueueFamilyIgnored marks a dependency without a queue family ownership
// transfer. QueueFamilyExternal addresses a family outside this device.
const (
	QueueFamilyIgnored  uint32 = ^uint32(0)
	QueueFamilyExternal uint32 = ^uint32(0) - 1
)
