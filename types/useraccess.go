package types

// ReadAccessMask is a bitmask of ReadAccess values. Read accesses describe
// how a resource will be read outside of compute and render passes, e.g.
// by transfers, the host, or after an export.
type ReadAccessMask uint64

// ReadAccess members. Shader accesses exist per shader stage.
const (
	ReadAccessTransfer ReadAccessMask = 1 << iota
	ReadAccessHost
	ReadAccessDrawIndirect
	ReadAccessDrawIndex
	ReadAccessDrawVertex
	ReadAccessVertexShaderSampled
	ReadAccessVertexShaderStorage
	ReadAccessVertexShaderUniform
	ReadAccessTessControlShaderSampled
	ReadAccessTessControlShaderStorage
	ReadAccessTessControlShaderUniform
	ReadAccessTessEvalShaderSampled
	ReadAccessTessEvalShaderStorage
	ReadAccessTessEvalShaderUniform
	ReadAccessGeometryShaderSampled
	ReadAccessGeometryShaderStorage
	ReadAccessGeometryShaderUniform
	ReadAccessFragmentShaderSampled
	ReadAccessFragmentShaderStorage
	ReadAccessFragmentShaderUniform
	ReadAccessComputeShaderSampled
	ReadAccessComputeShaderStorage
	ReadAccessComputeShaderUniform
	ReadAccessDepthStencilAttachment
	ReadAccessImagePresent
	ReadAccessUnknown
)

// Contains reports whether all bits of other are set in m.
func (m ReadAccessMask) Contains(other ReadAccessMask) bool {
	return m&other == other
}

// ContainsAny reports whether m and other share any bits.
func (m ReadAccessMask) ContainsAny(other ReadAccessMask) bool {
	return m&other != 0
}

// ComputeAccessMask is a bitmask of ComputeAccess values describing how a
// compute pass accesses a resource.
type ComputeAccessMask uint64

const (
	ComputeAccessShaderSampledRead ComputeAccessMask = 1 << iota
	ComputeAccessShaderStorageRead
	ComputeAccessShaderStorageWrite
	ComputeAccessShaderStorageAtomic
	ComputeAccessShaderUniformRead
)

// Contains reports whether all bits of other are set in m.
func (m ComputeAccessMask) Contains(other ComputeAccessMask) bool {
	return m&other == other
}

// ContainsAny reports whether m and other share any bits.
func (m ComputeAccessMask) ContainsAny(other ComputeAccessMask) bool {
	return m&other != 0
}

// RenderAccessMask is a bitmask of RenderAccess values describing how a
// render pass accesses a non-attachment resource.
type RenderAccessMask uint64

const (
	RenderAccessDrawIndirectRead RenderAccessMask = 1 << iota
	RenderAccessDrawIndexRead
	RenderAccessDrawVertexRead
	RenderAccessVertexShaderSampledRead
	RenderAccessVertexShaderStorageRead
	RenderAccessVertexShaderStorageWrite
	RenderAccessVertexShaderStorageAtomic
	RenderAccessVertexShaderUniformRead
	RenderAccessTessControlShaderSampledRead
	RenderAccessTessControlShaderStorageRead
	RenderAccessTessControlShaderStorageWrite
	RenderAccessTessControlShaderStorageAtomic
	RenderAccessTessControlShaderUniformRead
	RenderAccessTessEvalShaderSampledRead
	RenderAccessTessEvalShaderStorageRead
	RenderAccessTessEvalShaderStorageWrite
	RenderAccessTessEvalShaderStorageAtomic
	RenderAccessTessEvalShaderUniformRead
	RenderAccessFragmentShaderSampledRead
	RenderAccessFragmentShaderStorageRead
	RenderAccessFragmentShaderStorageWrite
	RenderAccessFragmentShaderStorageAtomic
	RenderAccessFragmentShaderUniformRead
)

// Contains reports whether all bits of other are set in m.
func (m RenderAccessMask) Contains(other RenderAccessMask) bool {
	return m&other == other
}

// ContainsAny reports whether m and other share any bits.
func (m RenderAccessMask) ContainsAny(other RenderAccessMask) bool {
	return m&other != 0
}
