package tephra

import (
	"github.com/gogpu/tephra/hal"
	"github.com/gogpu/tephra/types"
)

// BufferComputeAccess declares how a compute pass accesses a buffer.
type BufferComputeAccess struct {
	Buffer     BufferView
	AccessMask types.ComputeAccessMask
}

// ImageComputeAccess declares how a compute pass accesses an image range.
type ImageComputeAccess struct {
	Image      ImageView
	Range      types.ImageSubresourceRange
	AccessMask types.ComputeAccessMask
}

// ComputePassSetup declares every resource access a compute pass will
// perform. The engine synchronizes the pass against prior work from this
// declaration alone; the recorded dispatches themselves are opaque to it.
type ComputePassSetup struct {
	BufferAccesses []BufferComputeAccess
	ImageAccesses  []ImageComputeAccess
	DebugName      string
}

// computePass is the recorded form of a compute pass.
type computePass struct {
	setup  ComputePassSetup
	inline func(*CommandList)
}

// BufferRenderAccess declares how a render pass accesses a non-attachment
// buffer.
type BufferRenderAccess struct {
	Buffer     BufferView
	AccessMask types.RenderAccessMask
}

// ImageRenderAccess declares how a render pass accesses a non-attachment
// image range.
type ImageRenderAccess struct {
	Image      ImageView
	Range      types.ImageSubresourceRange
	AccessMask types.RenderAccessMask
}

// AttachmentAccess declares one attachment of a render pass together with
// the layout and access its contents are in once the pass ends. Render
// passes synchronize their attachments internally, so the engine rewrites
// the attachment's tracked state with this final access directly.
type AttachmentAccess struct {
	Image      ImageView
	LastLayout types.ImageLayout
	LastAccess struct {
		StageMask  types.PipelineStageFlags
		AccessMask types.AccessFlags
	}
}

// RenderPassSetup declares the accesses and attachments of a render pass.
type RenderPassSetup struct {
	Attachments    []AttachmentAccess
	BufferAccesses []BufferRenderAccess
	ImageAccesses  []ImageRenderAccess
	DebugName      string
}

// renderPass is the recorded form of a render pass.
type renderPass struct {
	setup  RenderPassSetup
	inline func(*CommandList)
}

// AccelerationStructureBuild describes one acceleration structure build:
// the engine needs only its buffer accesses.
type AccelerationStructureBuild struct {
	// DstBuffer backs the structure being built.
	DstBuffer BufferView

	// SrcBuffer backs the source structure of an update build. Null for a
	// fresh build.
	SrcBuffer BufferView

	// InputBuffers hold geometry, instance and transform data read by the
	// build.
	InputBuffers []BufferView

	// ScratchBuffer is the build scratch space.
	ScratchBuffer BufferView

	// InPlaceUpdate marks an update that reads the destination structure.
	InPlaceUpdate bool
}

// CommandList records the primitives of a pass into the job's current
// native command buffer. It is only valid inside the pass callback it was
// handed to.
type CommandList struct {
	device *Device
	cb     hal.CommandBuffer
}

// BindComputePipeline binds a compute pipeline.
func (c *CommandList) BindComputePipeline(pipeline *ComputePipeline) {
	c.device.hal.CmdBindComputePipeline(c.cb, pipeline.handle)
}

// Dispatch dispatches compute workgroups.
func (c *CommandList) Dispatch(groupCountX, groupCountY, groupCountZ uint32) {
	c.device.hal.CmdDispatch(c.cb, groupCountX, groupCountY, groupCountZ)
}

// BeginDebugLabel opens a nested debug label region.
func (c *CommandList) BeginDebugLabel(name string, color [4]float32) {
	c.device.hal.CmdBeginDebugLabel(c.cb, name, color)
}

// EndDebugLabel closes the innermost debug label region.
func (c *CommandList) EndDebugLabel() {
	c.device.hal.CmdEndDebugLabel(c.cb)
}
