package tephra

import (
	"github.com/gogpu/tephra/core/track"
	"github.com/gogpu/tephra/core/transient"
	"github.com/gogpu/tephra/types"
)

// Job collects a command stream to be compiled and submitted as one unit.
// A job is created from a JobResourcePool, recorded on a single thread,
// enqueued to its pool's queue and finally submitted. Transient resources
// allocated from the job are valid only for its duration.
type Job struct {
	device *Device
	data   *jobData
}

// Name returns the job's debug name.
func (j *Job) Name() string {
	return j.data.name
}

// nextCommandIndex is the index the next recorded command will get.
func (j *Job) nextCommandIndex() uint32 {
	return uint32(len(j.data.record.commands))
}

func markBufferUsage(view *BufferView, commandIndex uint32) {
	if view.local != nil {
		view.local.lifetime.MarkUsage(commandIndex)
	}
}

func markImageUsage(view *ImageView, commandIndex uint32) {
	if view.local != nil {
		view.local.lifetime.MarkUsage(commandIndex)
	}
}

// AllocateLocalBuffer allocates a job-local buffer. Its backing is bound
// at enqueue time and may be aliased with other job-local buffers whose
// lifetimes do not overlap.
func (j *Job) AllocateLocalBuffer(setup *BufferSetup) BufferView {
	local := &localBuffer{
		size:      setup.Size,
		alignment: requiredViewAlignment,
		usage:     setup.Usage,
		lifetime:  transient.UnusedLifetime(),
	}
	j.data.localBuffers = append(j.data.localBuffers, local)
	return BufferView{local: local, size: setup.Size}
}

// AllocateLocalImage allocates a job-local image. Its backing memory is
// bound at enqueue time and may be aliased with other job-local images.
func (j *Job) AllocateLocalImage(setup *ImageSetup) ImageView {
	local := &localImage{
		setup:    *setup,
		lifetime: transient.UnusedLifetime(),
	}
	j.data.localImages = append(j.data.localImages, local)
	return ImageView{local: local, rng: wholeRangeOf(setup), format: setup.Format}
}

// AllocatePreinitializedBuffer allocates a job-local buffer whose storage
// is host-mapped immediately, so initial data can be written before the
// job is enqueued. Preinitialized buffers are never aliased within a job.
func (j *Job) AllocatePreinitializedBuffer(size uint64, usage types.BufferUsageFlags) (BufferView, error) {
	if j.data.pool == nil {
		return BufferView{}, opError("Job.AllocatePreinitializedBuffer", j.data.name, ErrOrphaned)
	}
	view, err := j.data.pool.preinitRing.Push(size, j.data.id)
	if err != nil {
		err = opError("Job.AllocatePreinitializedBuffer", j.data.name, err)
		j.device.reportError(err)
		return BufferView{}, err
	}
	j.data.preinitRequested += size
	j.data.preinit = append(j.data.preinit, preinitAlloc{view: view})
	return BufferView{raw: view.Buffer, data: view.Data, offset: view.Offset, size: view.Size}, nil
}

// CmdFillBuffer fills a buffer view with a repeating 32-bit value.
func (j *Job) CmdFillBuffer(dstBuffer BufferView, value uint32) {
	markBufferUsage(&dstBuffer, j.nextCommandIndex())
	j.data.record.add(cmdFillBuffer, &fillBufferData{dstBuffer: dstBuffer, value: value})
}

// CmdUpdateBuffer writes inline data into a buffer view. The data is
// copied now; the slice may be reused after the call.
func (j *Job) CmdUpdateBuffer(dstBuffer BufferView, data []byte) {
	stored := make([]byte, len(data))
	copy(stored, data)
	markBufferUsage(&dstBuffer, j.nextCommandIndex())
	j.data.record.add(cmdUpdateBuffer, &updateBufferData{dstBuffer: dstBuffer, data: stored})
}

// CmdCopyBuffer copies regions between two buffer views.
func (j *Job) CmdCopyBuffer(srcBuffer, dstBuffer BufferView, regions []types.BufferCopyRegion) {
	index := j.nextCommandIndex()
	markBufferUsage(&srcBuffer, index)
	markBufferUsage(&dstBuffer, index)
	j.data.record.add(cmdCopyBuffer, &copyBufferData{
		srcBuffer: srcBuffer,
		dstBuffer: dstBuffer,
		regions:   append([]types.BufferCopyRegion(nil), regions...),
	})
}

// CmdCopyBufferToImage copies buffer bytes into image subresources.
func (j *Job) CmdCopyBufferToImage(srcBuffer BufferView, dstImage ImageView, regions []types.BufferImageCopyRegion) {
	index := j.nextCommandIndex()
	markBufferUsage(&srcBuffer, index)
	markImageUsage(&dstImage, index)
	j.data.record.add(cmdCopyBufferToImage, &copyBufferImageData{
		buffer:  srcBuffer,
		image:   dstImage,
		regions: append([]types.BufferImageCopyRegion(nil), regions...),
	})
}

// CmdCopyImageToBuffer copies image subresources into buffer bytes.
func (j *Job) CmdCopyImageToBuffer(srcImage ImageView, dstBuffer BufferView, regions []types.BufferImageCopyRegion) {
	index := j.nextCommandIndex()
	markImageUsage(&srcImage, index)
	markBufferUsage(&dstBuffer, index)
	j.data.record.add(cmdCopyImageToBuffer, &copyBufferImageData{
		buffer:  dstBuffer,
		image:   srcImage,
		regions: append([]types.BufferImageCopyRegion(nil), regions...),
	})
}

// CmdCopyImage copies subresource regions between two image views.
func (j *Job) CmdCopyImage(srcImage, dstImage ImageView, regions []types.ImageCopyRegion) {
	index := j.nextCommandIndex()
	markImageUsage(&srcImage, index)
	markImageUsage(&dstImage, index)
	j.data.record.add(cmdCopyImage, &copyImageData{
		srcImage: srcImage,
		dstImage: dstImage,
		regions:  append([]types.ImageCopyRegion(nil), regions...),
	})
}

// CmdResolveImage resolves multisampled regions into a single-sampled
// image.
func (j *Job) CmdResolveImage(srcImage, dstImage ImageView, regions []types.ImageCopyRegion) {
	index := j.nextCommandIndex()
	markImageUsage(&srcImage, index)
	markImageUsage(&dstImage, index)
	j.data.record.add(cmdResolveImage, &copyImageData{
		srcImage: srcImage,
		dstImage: dstImage,
		regions:  append([]types.ImageCopyRegion(nil), regions...),
	})
}

// CmdBlitImage performs a scaled, filtered copy between two image views.
func (j *Job) CmdBlitImage(srcImage, dstImage ImageView, regions []types.ImageBlitRegion, filter types.Filter) {
	index := j.nextCommandIndex()
	markImageUsage(&srcImage, index)
	markImageUsage(&dstImage, index)
	j.data.record.add(cmdBlitImage, &blitImageData{
		srcImage: srcImage,
		dstImage: dstImage,
		regions:  append([]types.ImageBlitRegion(nil), regions...),
		filter:   filter,
	})
}

// CmdClearImage clears subresource ranges of an image view.
func (j *Job) CmdClearImage(dstImage ImageView, value types.ClearValue, ranges []types.ImageSubresourceRange) {
	markImageUsage(&dstImage, j.nextCommandIndex())
	j.data.record.add(cmdClearImage, &clearImageData{
		dstImage: dstImage,
		value:    value,
		ranges:   append([]types.ImageSubresourceRange(nil), ranges...),
	})
}

// CmdExecuteComputePass records a compute pass. The setup declares every
// resource access the pass performs; inline records the dispatches into
// the job's command buffer at compile time.
func (j *Job) CmdExecuteComputePass(setup *ComputePassSetup, inline func(*CommandList)) {
	index := j.nextCommandIndex()
	pass := &computePass{setup: *setup, inline: inline}
	for i := range pass.setup.BufferAccesses {
		markBufferUsage(&pass.setup.BufferAccesses[i].Buffer, index)
	}
	for i := range pass.setup.ImageAccesses {
		markImageUsage(&pass.setup.ImageAccesses[i].Image, index)
	}
	j.data.record.add(cmdExecuteComputePass, &executeComputePassData{pass: pass})
}

// CmdExecuteRenderPass records a render pass. Attachments synchronize
// internally; their tracked state is rewritten with each attachment's
// declared final layout and access.
func (j *Job) CmdExecuteRenderPass(setup *RenderPassSetup, inline func(*CommandList)) {
	index := j.nextCommandIndex()
	pass := &renderPass{setup: *setup, inline: inline}
	for i := range pass.setup.BufferAccesses {
		markBufferUsage(&pass.setup.BufferAccesses[i].Buffer, index)
	}
	for i := range pass.setup.ImageAccesses {
		markImageUsage(&pass.setup.ImageAccesses[i].Image, index)
	}
	for i := range pass.setup.Attachments {
		markImageUsage(&pass.setup.Attachments[i].Image, index)
	}
	j.data.record.add(cmdExecuteRenderPass, &executeRenderPassData{pass: pass})
}

// CmdBuildAccelerationStructures records acceleration structure builds.
func (j *Job) CmdBuildAccelerationStructures(builds []AccelerationStructureBuild) {
	index := j.nextCommandIndex()
	stored := append([]AccelerationStructureBuild(nil), builds...)
	for i := range stored {
		markBufferUsage(&stored[i].DstBuffer, index)
		markBufferUsage(&stored[i].SrcBuffer, index)
		markBufferUsage(&stored[i].ScratchBuffer, index)
		for k := range stored[i].InputBuffers {
			markBufferUsage(&stored[i].InputBuffers[k], index)
		}
	}
	j.data.record.add(cmdBuildAccelerationStructures, &buildAccelerationStructuresData{builds: stored})
}

// CmdExportBuffer declares that the buffer will next be read on the given
// queue in the given state. Exports are broadcast at enqueue time; the
// compiler emits the release side of the queue family ownership transfer
// at the end of the job.
func (j *Job) CmdExportBuffer(buffer BufferView, readMask types.ReadAccessMask, dstQueue types.DeviceQueue) {
	index := j.nextCommandIndex()
	markBufferUsage(&buffer, index)
	if buffer.local != nil {
		// The export extends the transient's lifetime past the job's end.
		buffer.local.lifetime.LastUsage = transient.LifetimeEnd
	}
	j.data.record.add(cmdExportBuffer, &exportBufferData{
		buffer:         buffer,
		readMask:       readMask,
		dstQueueFamily: j.device.queueFamily(dstQueue),
	})
}

// CmdExportImage declares that the image range will next be read on the
// given queue in the given state.
func (j *Job) CmdExportImage(image ImageView, rng types.ImageSubresourceRange,
	readMask types.ReadAccessMask, dstQueue types.DeviceQueue) {
	index := j.nextCommandIndex()
	markImageUsage(&image, index)
	if image.local != nil {
		image.local.lifetime.LastUsage = transient.LifetimeEnd
	}
	j.data.record.add(cmdExportImage, &exportImageData{
		image:          image,
		rng:            rng,
		readMask:       readMask,
		dstQueueFamily: j.device.queueFamily(dstQueue),
	})
}

// CmdDiscardImageContents marks the range as not needing its contents
// preserved, so the next layout transition may discard them.
func (j *Job) CmdDiscardImageContents(image ImageView, rng types.ImageSubresourceRange) {
	markImageUsage(&image, j.nextCommandIndex())
	j.data.record.add(cmdDiscardImageContents, &discardImageContentsData{image: image, rng: rng})
}

// CmdImportExternalBuffer overwrites the buffer's tracked state with an
// access performed outside of the engine, e.g. by another library sharing
// the device.
func (j *Job) CmdImportExternalBuffer(buffer BufferView, stageMask types.PipelineStageFlags, accessMask types.AccessFlags) {
	markBufferUsage(&buffer, j.nextCommandIndex())
	j.data.record.add(cmdImportExternalBuffer, &importExternalBufferData{
		buffer: buffer,
		access: track.ResourceAccess{StageMask: stageMask, AccessMask: accessMask},
	})
}

// CmdImportExternalImage overwrites the image range's tracked state and
// layout with an access performed outside of the engine.
func (j *Job) CmdImportExternalImage(image ImageView, rng types.ImageSubresourceRange,
	layout types.ImageLayout, stageMask types.PipelineStageFlags, accessMask types.AccessFlags) {
	markImageUsage(&image, j.nextCommandIndex())
	j.data.record.add(cmdImportExternalImage, &importExternalImageData{
		image:  image,
		rng:    rng,
		layout: layout,
		access: track.ResourceAccess{StageMask: stageMask, AccessMask: accessMask},
	})
}

// CmdBeginDebugLabel opens a debug label region visible in native
// debugging tools.
func (j *Job) CmdBeginDebugLabel(name string, color [4]float32) {
	j.data.record.add(cmdBeginDebugLabel, &debugLabelData{name: name, color: color})
}

// CmdInsertDebugLabel inserts a single debug label.
func (j *Job) CmdInsertDebugLabel(name string, color [4]float32) {
	j.data.record.add(cmdInsertDebugLabel, &debugLabelData{name: name, color: color})
}

// CmdEndDebugLabel closes the innermost debug label region.
func (j *Job) CmdEndDebugLabel() {
	j.data.record.add(cmdEndDebugLabel, &debugLabelData{})
}

// CmdWriteTimestamp writes the device timestamp at the given stage into
// the query.
func (j *Job) CmdWriteTimestamp(query *TimestampQuery, stage types.PipelineStageFlags) {
	j.data.record.add(cmdWriteTimestamp, &writeTimestampData{query: query, stage: stage})
}

// finalize seals the record before enqueue.
func (j *Job) finalize() {
	j.data.record.finalize()
}

// localBufferRequests converts the job's local buffers into transient
// allocator requests.
func (j *jobData) localBufferRequests() []transient.BufferRequest {
	requests := make([]transient.BufferRequest, len(j.localBuffers))
	for i, local := range j.localBuffers {
		requests[i] = transient.BufferRequest{
			Size:      local.size,
			Alignment: local.alignment,
			Usage:     local.usage,
			Lifetime:  local.lifetime,
		}
	}
	return requests
}

func (j *jobData) localImageRequests() []transient.ImageRequest {
	requests := make([]transient.ImageRequest, len(j.localImages))
	for i, local := range j.localImages {
		requests[i] = transient.ImageRequest{
			Setup:    local.setup,
			Lifetime: local.lifetime,
		}
	}
	return requests
}
