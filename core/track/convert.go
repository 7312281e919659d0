package track

import "github.com/gogpu/tephra/types"

// ConvertReadAccess translates a caller-facing read access mask into native
// synchronization flags.
func ConvertReadAccess(mask types.ReadAccessMask) ResourceAccess {
	var access ResourceAccess

	if mask.Contains(types.ReadAccessDrawIndirect) {
		access.StageMask |= types.StageDrawIndirect
		access.AccessMask |= types.AccessIndirectCommandRead
	}
	if mask.Contains(types.ReadAccessDrawIndex) {
		access.StageMask |= types.StageVertexInput
		access.AccessMask |= types.AccessIndexRead
	}
	if mask.Contains(types.ReadAccessDrawVertex) {
		access.StageMask |= types.StageVertexInput
		access.AccessMask |= types.AccessVertexAttributeRead
	}
	if mask.Contains(types.ReadAccessTransfer) {
		access.StageMask |= types.StageTransfer
		access.AccessMask |= types.AccessTransferRead
	}
	if mask.Contains(types.ReadAccessHost) {
		access.StageMask |= types.StageHost
		access.AccessMask |= types.AccessHostRead
	}
	if mask.Contains(types.ReadAccessDepthStencilAttachment) {
		access.StageMask |= types.StageEarlyFragmentTests | types.StageLateFragmentTests
		access.AccessMask |= types.AccessDepthStencilAttachmentRead
	}

	shaderReads := []struct {
		bits  types.ReadAccessMask
		stage types.PipelineStageFlags
	}{
		{types.ReadAccessVertexShaderStorage | types.ReadAccessVertexShaderSampled, types.StageVertexShader},
		{types.ReadAccessTessControlShaderStorage | types.ReadAccessTessControlShaderSampled, types.StageTessellationControl},
		{types.ReadAccessTessEvalShaderStorage | types.ReadAccessTessEvalShaderSampled, types.StageTessellationEvaluation},
		{types.ReadAccessGeometryShaderStorage | types.ReadAccessGeometryShaderSampled, types.StageGeometryShader},
		{types.ReadAccessFragmentShaderStorage | types.ReadAccessFragmentShaderSampled, types.StageFragmentShader},
		{types.ReadAccessComputeShaderStorage | types.ReadAccessComputeShaderSampled, types.StageComputeShader},
	}
	for _, entry := range shaderReads {
		if mask.ContainsAny(entry.bits) {
			access.StageMask |= entry.stage
			access.AccessMask |= types.AccessShaderRead
		}
	}

	uniformReads := []struct {
		bit   types.ReadAccessMask
		stage types.PipelineStageFlags
	}{
		{types.ReadAccessVertexShaderUniform, types.StageVertexShader},
		{types.ReadAccessTessControlShaderUniform, types.StageTessellationControl},
		{types.ReadAccessTessEvalShaderUniform, types.StageTessellationEvaluation},
		{types.ReadAccessGeometryShaderUniform, types.StageGeometryShader},
		{types.ReadAccessFragmentShaderUniform, types.StageFragmentShader},
		{types.ReadAccessComputeShaderUniform, types.StageComputeShader},
	}
	for _, entry := range uniformReads {
		if mask.Contains(entry.bit) {
			access.StageMask |= entry.stage
			access.AccessMask |= types.AccessUniformRead
		}
	}

	if mask.Contains(types.ReadAccessImagePresent) {
		access.StageMask |= types.StageBottomOfPipe
	}
	if mask.Contains(types.ReadAccessUnknown) {
		access.StageMask |= types.StageAllCommands
		access.AccessMask |= types.AccessMemoryRead
	}
	return access
}

// ImageLayoutFromReadAccess returns the optimal image layout for a read
// access mask. The mask must contain only accesses with the same optimal
// layout.
func ImageLayoutFromReadAccess(mask types.ReadAccessMask) types.ImageLayout {
	if mask.Contains(types.ReadAccessTransfer) {
		return types.LayoutTransferSrc
	}
	if mask.Contains(types.ReadAccessDepthStencilAttachment) {
		return types.LayoutDepthStencilReadOnly
	}
	if mask.Contains(types.ReadAccessImagePresent) {
		return types.LayoutPresentSrc
	}
	sampled := types.ReadAccessVertexShaderSampled | types.ReadAccessTessControlShaderSampled |
		types.ReadAccessTessEvalShaderSampled | types.ReadAccessGeometryShaderSampled |
		types.ReadAccessFragmentShaderSampled | types.ReadAccessComputeShaderSampled
	if mask.ContainsAny(sampled) {
		return types.LayoutShaderReadOnly
	}
	storage := types.ReadAccessVertexShaderStorage | types.ReadAccessTessControlShaderStorage |
		types.ReadAccessTessEvalShaderStorage | types.ReadAccessGeometryShaderStorage |
		types.ReadAccessFragmentShaderStorage | types.ReadAccessComputeShaderStorage |
		types.ReadAccessUnknown
	if mask.ContainsAny(storage) {
		return types.LayoutGeneral
	}
	return types.LayoutUndefined
}

// ConvertComputeAccess translates a compute pass access mask into native
// synchronization flags.
func ConvertComputeAccess(mask types.ComputeAccessMask) ResourceAccess {
	var access ResourceAccess
	if mask.ContainsAny(types.ComputeAccessShaderSampledRead | types.ComputeAccessShaderStorageRead) {
		access.StageMask |= types.StageComputeShader
		access.AccessMask |= types.AccessShaderRead
	}
	if mask.ContainsAny(types.ComputeAccessShaderStorageWrite | types.ComputeAccessShaderStorageAtomic) {
		access.StageMask |= types.StageComputeShader
		access.AccessMask |= types.AccessShaderWrite
	}
	if mask.Contains(types.ComputeAccessShaderUniformRead) {
		access.StageMask |= types.StageComputeShader
		access.AccessMask |= types.AccessUniformRead
	}
	return access
}

// ImageLayoutFromComputeAccess returns the optimal layout for a compute
// access mask.
func ImageLayoutFromComputeAccess(mask types.ComputeAccessMask) types.ImageLayout {
	if mask.Contains(types.ComputeAccessShaderSampledRead) {
		return types.LayoutShaderReadOnly
	}
	return types.LayoutGeneral
}

const renderSampledOrStorageReads = types.RenderAccessVertexShaderSampledRead |
	types.RenderAccessVertexShaderStorageRead |
	types.RenderAccessTessControlShaderSampledRead | types.RenderAccessTessControlShaderStorageRead |
	types.RenderAccessTessEvalShaderSampledRead | types.RenderAccessTessEvalShaderStorageRead |
	types.RenderAccessFragmentShaderSampledRead | types.RenderAccessFragmentShaderStorageRead

const renderStorageWrites = types.RenderAccessVertexShaderStorageWrite |
	types.RenderAccessTessControlShaderStorageWrite |
	types.RenderAccessTessEvalShaderStorageWrite | types.RenderAccessFragmentShaderStorageWrite

const renderStorageAtomics = types.RenderAccessVertexShaderStorageAtomic |
	types.RenderAccessTessControlShaderStorageAtomic |
	types.RenderAccessTessEvalShaderStorageAtomic | types.RenderAccessFragmentShaderStorageAtomic

// ConvertRenderAccess translates a render pass access mask into native
// synchronization flags.
func ConvertRenderAccess(mask types.RenderAccessMask) ResourceAccess {
	var access ResourceAccess

	if mask.Contains(types.RenderAccessDrawIndexRead) {
		access.StageMask |= types.StageVertexInput
		access.AccessMask |= types.AccessIndexRead
	}
	if mask.Contains(types.RenderAccessDrawVertexRead) {
		access.StageMask |= types.StageVertexInput
		access.AccessMask |= types.AccessVertexAttributeRead
	}
	if mask.Contains(types.RenderAccessDrawIndirectRead) {
		access.StageMask |= types.StageDrawIndirect
		access.AccessMask |= types.AccessIndirectCommandRead
	}

	if mask.ContainsAny(renderSampledOrStorageReads) {
		access.AccessMask |= types.AccessShaderRead
	}
	if mask.ContainsAny(renderStorageWrites | renderStorageAtomics) {
		access.AccessMask |= types.AccessShaderWrite
	}

	uniformReads := types.RenderAccessVertexShaderUniformRead | types.RenderAccessTessControlShaderUniformRead |
		types.RenderAccessTessEvalShaderUniformRead | types.RenderAccessFragmentShaderUniformRead
	if mask.ContainsAny(uniformReads) {
		access.AccessMask |= types.AccessUniformRead
	}

	stageBits := []struct {
		bits  types.RenderAccessMask
		stage types.PipelineStageFlags
	}{
		{types.RenderAccessVertexShaderSampledRead | types.RenderAccessVertexShaderStorageRead |
			types.RenderAccessVertexShaderStorageWrite | types.RenderAccessVertexShaderStorageAtomic |
			types.RenderAccessVertexShaderUniformRead, types.StageVertexShader},
		{types.RenderAccessTessControlShaderSampledRead | types.RenderAccessTessControlShaderStorageRead |
			types.RenderAccessTessControlShaderStorageWrite | types.RenderAccessTessControlShaderStorageAtomic |
			types.RenderAccessTessControlShaderUniformRead, types.StageTessellationControl},
		{types.RenderAccessTessEvalShaderSampledRead | types.RenderAccessTessEvalShaderStorageRead |
			types.RenderAccessTessEvalShaderStorageWrite | types.RenderAccessTessEvalShaderStorageAtomic |
			types.RenderAccessTessEvalShaderUniformRead, types.StageTessellationEvaluation},
		{types.RenderAccessFragmentShaderSampledRead | types.RenderAccessFragmentShaderStorageRead |
			types.RenderAccessFragmentShaderStorageWrite | types.RenderAccessFragmentShaderStorageAtomic |
			types.RenderAccessFragmentShaderUniformRead, types.StageFragmentShader},
	}
	for _, entry := range stageBits {
		if mask.ContainsAny(entry.bits) {
			access.StageMask |= entry.stage
		}
	}
	return access
}

// ImageLayoutFromRenderAccess returns the optimal layout for a render
// access mask.
func ImageLayoutFromRenderAccess(mask types.RenderAccessMask) types.ImageLayout {
	if mask.ContainsAny(renderSampledOrStorageReads) {
		return types.LayoutShaderReadOnly
	}
	if mask.ContainsAny(renderStorageWrites | renderStorageAtomics) {
		return types.LayoutGeneral
	}
	return types.LayoutUndefined
}
