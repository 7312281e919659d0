package tephra

import (
	"fmt"

	"github.com/gogpu/tephra/core/crossqueue"
	"github.com/gogpu/tephra/core/track"
	"github.com/gogpu/tephra/hal"
	"github.com/gogpu/tephra/internal/scratch"
	"github.com/gogpu/tephra/types"
)

// Scratch pools for the short-lived access vectors of the compile walk.
var (
	bufferAccessScratch scratch.Pool[track.NewBufferAccess]
	imageAccessScratch  scratch.Pool[track.NewImageAccess]
)

// queueSyncState tracks the last accesses of every live resource as seen
// by one queue. It is mutated only by the thread inside the queue's
// submit critical section.
type queueSyncState struct {
	bufferMaps map[hal.Buffer]*track.BufferAccessMap
	imageMaps  map[hal.Image]*track.ImageAccessMap
}

func newQueueSyncState() *queueSyncState {
	return &queueSyncState{
		bufferMaps: map[hal.Buffer]*track.BufferAccessMap{},
		imageMaps:  map[hal.Image]*track.ImageAccessMap{},
	}
}

func (s *queueSyncState) bufferMap(handle hal.Buffer) *track.BufferAccessMap {
	m, ok := s.bufferMaps[handle]
	if !ok {
		m = track.NewBufferAccessMap(handle)
		s.bufferMaps[handle] = m
	}
	return m
}

func (s *queueSyncState) imageMap(handle hal.Image) *track.ImageAccessMap {
	m, ok := s.imageMaps[handle]
	if !ok {
		m = track.NewImageAccessMap(handle)
		s.imageMaps[handle] = m
	}
	return m
}

// primaryRecorder streams native commands into one-time-submit primary
// command buffers, starting a new buffer on demand.
type primaryRecorder struct {
	device    *Device
	pool      hal.CommandPool
	current   hal.CommandBuffer
	recorded  *[]hal.CommandBuffer
	debugName string
}

func newPrimaryRecorder(device *Device, pool hal.CommandPool, debugName string,
	recorded *[]hal.CommandBuffer) *primaryRecorder {
	return &primaryRecorder{device: device, pool: pool, recorded: recorded, debugName: debugName}
}

// requestBuffer returns the current command buffer, beginning a new one if
// none is open.
func (r *primaryRecorder) requestBuffer() (hal.CommandBuffer, error) {
	if !r.current.IsNull() {
		return r.current, nil
	}
	cb, err := r.device.hal.AllocateCommandBuffer(r.pool)
	if err != nil {
		return 0, err
	}
	if err := r.device.hal.BeginCommandBuffer(cb); err != nil {
		return 0, err
	}
	r.current = cb
	*r.recorded = append(*r.recorded, cb)
	return cb, nil
}

// endRecording finishes the current command buffer, if any.
func (r *primaryRecorder) endRecording() error {
	if r.current.IsNull() {
		return nil
	}
	err := r.device.hal.EndCommandBuffer(r.current)
	r.current = 0
	return err
}

func (r *primaryRecorder) commandBufferCount() int {
	return len(*r.recorded)
}

// compilationContext bundles what a job compile needs.
type compilationContext struct {
	device           *Device
	syncState        *queueSyncState
	recorder         *primaryRecorder
	queueFamilyIndex uint32
}

// Access resolution

func resolveBufferAccess(view BufferView, rng track.BufferAccessRange) (hal.Buffer, track.BufferAccessRange, error) {
	handle, viewOffset := view.resolve()
	if handle.IsNull() {
		return 0, rng, fmt.Errorf("%w: accessed buffer has no underlying backing", ErrAssertionFailed)
	}
	rng.Offset += viewOffset
	return handle, rng, nil
}

func fullBufferRange(view BufferView) track.BufferAccessRange {
	return track.BufferAccessRange{Offset: 0, Size: view.size}
}

func resolveImageAccess(view ImageView, rng types.ImageSubresourceRange) (hal.Image, track.ImageAccessRange, error) {
	handle := view.resolve()
	if handle.IsNull() {
		return 0, track.ImageAccessRange{}, fmt.Errorf("%w: accessed image has no underlying backing", ErrAssertionFailed)
	}
	return handle, view.accessRange(rng), nil
}

var (
	transferRead    = track.ResourceAccess{StageMask: types.StageTransfer, AccessMask: types.AccessTransferRead}
	transferWrite   = track.ResourceAccess{StageMask: types.StageTransfer, AccessMask: types.AccessTransferWrite}
	topOfPipeAccess = track.ResourceAccess{StageMask: types.StageTopOfPipe}
	bottomOfPipe    = track.ResourceAccess{StageMask: types.StageBottomOfPipe}
	asBuildStage    = types.StageAccelerationStructureBuild
)

func appendBufferAccess(accesses []track.NewBufferAccess, view BufferView,
	rng track.BufferAccessRange, access track.ResourceAccess) ([]track.NewBufferAccess, error) {
	handle, resolved, err := resolveBufferAccess(view, rng)
	if err != nil {
		return accesses, err
	}
	return append(accesses, track.NewBufferAccess{
		ResourceAccess: access,
		Buffer:         handle,
		Range:          resolved,
	}), nil
}

func appendImageAccess(accesses []track.NewImageAccess, view ImageView,
	rng types.ImageSubresourceRange, access track.ResourceAccess,
	layout types.ImageLayout) ([]track.NewImageAccess, error) {
	handle, resolved, err := resolveImageAccess(view, rng)
	if err != nil {
		return accesses, err
	}
	return append(accesses, track.NewImageAccess{
		ResourceAccess: access,
		Image:          handle,
		Range:          resolved,
		Layout:         layout,
	}), nil
}

// imageCopySizeBytes computes the buffer bytes touched by one buffer-image
// copy region.
func imageCopySizeBytes(region *types.BufferImageCopyRegion, format types.Format) uint64 {
	props := types.GetFormatClassProperties(format)

	rowLength := region.BufferRowLength
	if rowLength == 0 {
		rowLength = region.ImageExtent.Width
	}
	rowLength = (rowLength + props.TexelBlockWidth - 1) / props.TexelBlockWidth

	imageHeight := region.BufferImageHeight
	if imageHeight == 0 {
		imageHeight = region.ImageExtent.Height
	}
	imageHeight = (imageHeight + props.TexelBlockHeight - 1) / props.TexelBlockHeight

	// Either a 3D image or a 2D array; cover both.
	slices := region.ImageExtent.Depth
	if region.ImageSubresource.ArrayLayerCount > slices {
		slices = region.ImageSubresource.ArrayLayerCount
	}

	rowSize := uint64(rowLength) * uint64(props.TexelBlockBytes)
	return rowSize * uint64(imageHeight) * uint64(slices)
}

// identifyCommandAccesses computes the buffer and image accesses of one
// command.
func identifyCommandAccesses(cmd *jobCommand,
	bufferAccesses []track.NewBufferAccess, imageAccesses []track.NewImageAccess,
) ([]track.NewBufferAccess, []track.NewImageAccess, error) {
	var err error
	addBuf := func(view BufferView, rng track.BufferAccessRange, access track.ResourceAccess) {
		if err == nil {
			bufferAccesses, err = appendBufferAccess(bufferAccesses, view, rng, access)
		}
	}
	addImg := func(view ImageView, rng types.ImageSubresourceRange, access track.ResourceAccess, layout types.ImageLayout) {
		if err == nil {
			imageAccesses, err = appendImageAccess(imageAccesses, view, rng, access, layout)
		}
	}

	switch cmd.kind {
	case cmdFillBuffer:
		data := cmd.data.(*fillBufferData)
		addBuf(data.dstBuffer, fullBufferRange(data.dstBuffer), transferWrite)

	case cmdUpdateBuffer:
		data := cmd.data.(*updateBufferData)
		addBuf(data.dstBuffer, fullBufferRange(data.dstBuffer), transferWrite)

	case cmdCopyBuffer:
		data := cmd.data.(*copyBufferData)
		for _, region := range data.regions {
			addBuf(data.srcBuffer, track.BufferAccessRange{Offset: region.SrcOffset, Size: region.Size}, transferRead)
			addBuf(data.dstBuffer, track.BufferAccessRange{Offset: region.DstOffset, Size: region.Size}, transferWrite)
		}

	case cmdCopyBufferToImage:
		data := cmd.data.(*copyBufferImageData)
		for i := range data.regions {
			region := &data.regions[i]
			addBuf(data.buffer,
				track.BufferAccessRange{Offset: region.BufferOffset, Size: imageCopySizeBytes(region, data.image.Format())},
				transferRead)
			addImg(data.image, region.ImageSubresource.Range(), transferWrite, types.LayoutTransferDst)
		}

	case cmdCopyImageToBuffer:
		data := cmd.data.(*copyBufferImageData)
		for i := range data.regions {
			region := &data.regions[i]
			addImg(data.image, region.ImageSubresource.Range(), transferRead, types.LayoutTransferSrc)
			addBuf(data.buffer,
				track.BufferAccessRange{Offset: region.BufferOffset, Size: imageCopySizeBytes(region, data.image.Format())},
				transferWrite)
		}

	case cmdCopyImage, cmdResolveImage:
		data := cmd.data.(*copyImageData)
		for i := range data.regions {
			region := &data.regions[i]
			addImg(data.srcImage, region.SrcSubresource.Range(), transferRead, types.LayoutTransferSrc)
			addImg(data.dstImage, region.DstSubresource.Range(), transferWrite, types.LayoutTransferDst)
		}

	case cmdBlitImage:
		data := cmd.data.(*blitImageData)
		for i := range data.regions {
			region := &data.regions[i]
			addImg(data.srcImage, region.SrcSubresource.Range(), transferRead, types.LayoutTransferSrc)
			addImg(data.dstImage, region.DstSubresource.Range(), transferWrite, types.LayoutTransferDst)
		}

	case cmdClearImage:
		data := cmd.data.(*clearImageData)
		for _, rng := range data.ranges {
			addImg(data.dstImage, rng, transferWrite, types.LayoutTransferDst)
		}

	case cmdExecuteComputePass:
		data := cmd.data.(*executeComputePassData)
		for i := range data.pass.setup.BufferAccesses {
			entry := &data.pass.setup.BufferAccesses[i]
			addBuf(entry.Buffer, fullBufferRange(entry.Buffer), track.ConvertComputeAccess(entry.AccessMask))
		}
		for i := range data.pass.setup.ImageAccesses {
			entry := &data.pass.setup.ImageAccesses[i]
			addImg(entry.Image, entry.Range, track.ConvertComputeAccess(entry.AccessMask),
				track.ImageLayoutFromComputeAccess(entry.AccessMask))
		}

	case cmdExecuteRenderPass:
		data := cmd.data.(*executeRenderPassData)
		for i := range data.pass.setup.BufferAccesses {
			entry := &data.pass.setup.BufferAccesses[i]
			addBuf(entry.Buffer, fullBufferRange(entry.Buffer), track.ConvertRenderAccess(entry.AccessMask))
		}
		for i := range data.pass.setup.ImageAccesses {
			entry := &data.pass.setup.ImageAccesses[i]
			addImg(entry.Image, entry.Range, track.ConvertRenderAccess(entry.AccessMask),
				track.ImageLayoutFromRenderAccess(entry.AccessMask))
		}
		for i := range data.pass.setup.Attachments {
			entry := &data.pass.setup.Attachments[i]
			if entry.Image.IsNull() {
				continue
			}
			access := track.ResourceAccess{
				StageMask:  entry.LastAccess.StageMask,
				AccessMask: entry.LastAccess.AccessMask,
			}
			addImg(entry.Image, entry.Image.WholeRange(), access, entry.LastLayout)
		}

	case cmdBuildAccelerationStructures:
		data := cmd.data.(*buildAccelerationStructuresData)
		buildInput := track.ResourceAccess{StageMask: asBuildStage, AccessMask: types.AccessShaderRead}
		for i := range data.builds {
			build := &data.builds[i]

			dstAccess := types.AccessAccelerationStructureWrite
			// An in-place update also reads the destination structure.
			if build.InPlaceUpdate && build.SrcBuffer.IsNull() {
				dstAccess |= types.AccessAccelerationStructureRead
			}
			addBuf(build.DstBuffer, fullBufferRange(build.DstBuffer),
				track.ResourceAccess{StageMask: asBuildStage, AccessMask: dstAccess})

			if !build.SrcBuffer.IsNull() {
				addBuf(build.SrcBuffer, fullBufferRange(build.SrcBuffer),
					track.ResourceAccess{StageMask: asBuildStage, AccessMask: types.AccessAccelerationStructureRead})
			}
			for _, input := range build.InputBuffers {
				addBuf(input, fullBufferRange(input), buildInput)
			}
			if !build.ScratchBuffer.IsNull() {
				addBuf(build.ScratchBuffer, fullBufferRange(build.ScratchBuffer),
					track.ResourceAccess{StageMask: asBuildStage,
						AccessMask: types.AccessAccelerationStructureRead | types.AccessAccelerationStructureWrite})
			}
		}

	case cmdBeginDebugLabel, cmdInsertDebugLabel, cmdEndDebugLabel, cmdWriteTimestamp:
		// Commands without resource accesses.

	default:
		return bufferAccesses, imageAccesses, fmt.Errorf("%w: unhandled command kind %d", ErrAssertionFailed, cmd.kind)
	}
	return bufferAccesses, imageAccesses, err
}

// processAccesses synchronizes and records the accesses of one command.
func processAccesses(cmdIndex uint32, bufferAccesses []track.NewBufferAccess,
	imageAccesses []track.NewImageAccess, barriers *track.BarrierList, syncState *queueSyncState) {
	// Barrier synthesis pass.
	for i := range bufferAccesses {
		syncState.bufferMap(bufferAccesses[i].Buffer).SynchronizeNewAccess(&bufferAccesses[i], cmdIndex, barriers)
	}
	for i := range imageAccesses {
		syncState.imageMap(imageAccesses[i].Image).SynchronizeNewAccess(&imageAccesses[i], cmdIndex, barriers)
	}

	// Access recording pass.
	for i := range bufferAccesses {
		syncState.bufferMap(bufferAccesses[i].Buffer).InsertNewAccess(&bufferAccesses[i], barriers.BarrierCount(), false, false)
	}
	for i := range imageAccesses {
		syncState.imageMap(imageAccesses[i].Image).InsertNewAccess(&imageAccesses[i], barriers.BarrierCount(), false, false)
	}
}

// exportHandler batches resource export commands until the last possible
// moment: same-family exports collapse into state updates before the next
// pass, cross-family exports emit their release barriers at end of job.
type exportHandler struct {
	barriers         *track.BarrierList
	syncState        *queueSyncState
	queueFamilyIndex uint32

	queuedBufferExports []track.NewBufferAccess
	queuedImageExports  []track.NewImageAccess

	qfotBufferExports []qfotExport[track.NewBufferAccess]
	qfotImageExports  []qfotExport[track.NewImageAccess]
}

type qfotExport[T any] struct {
	access         T
	dstQueueFamily uint32
}

func (h *exportHandler) addBufferExport(data *exportBufferData) error {
	handle, rng, err := resolveBufferAccess(data.buffer, fullBufferRange(data.buffer))
	if err != nil {
		return err
	}
	access := track.NewBufferAccess{
		ResourceAccess: track.ConvertReadAccess(data.readMask),
		Buffer:         handle,
		Range:          rng,
	}
	if data.dstQueueFamily != types.QueueFamilyIgnored && data.dstQueueFamily != h.queueFamilyIndex {
		h.qfotBufferExports = append(h.qfotBufferExports,
			qfotExport[track.NewBufferAccess]{access: access, dstQueueFamily: data.dstQueueFamily})
	} else {
		h.queuedBufferExports = append(h.queuedBufferExports, access)
	}
	return nil
}

func (h *exportHandler) addImageExport(data *exportImageData) error {
	handle, rng, err := resolveImageAccess(data.image, data.rng)
	if err != nil {
		return err
	}
	access := track.NewImageAccess{
		ResourceAccess: track.ConvertReadAccess(data.readMask),
		Image:          handle,
		Range:          rng,
		Layout:         track.ImageLayoutFromReadAccess(data.readMask),
	}
	if data.dstQueueFamily != types.QueueFamilyIgnored && data.dstQueueFamily != h.queueFamilyIndex {
		h.qfotImageExports = append(h.qfotImageExports,
			qfotExport[track.NewImageAccess]{access: access, dstQueueFamily: data.dstQueueFamily})
	} else {
		h.queuedImageExports = append(h.queuedImageExports, access)
	}
	return nil
}

// flushExports synchronizes queued same-family exports before a command
// that might use the exported resources.
func (h *exportHandler) flushExports(cmdIndex uint32) {
	for i := range h.queuedBufferExports {
		access := &h.queuedBufferExports[i]
		m := h.syncState.bufferMap(access.Buffer)
		m.SynchronizeNewAccess(access, cmdIndex, h.barriers)
		m.InsertNewAccess(access, h.barriers.BarrierCount(), false, true)
	}
	h.queuedBufferExports = h.queuedBufferExports[:0]

	for i := range h.queuedImageExports {
		access := &h.queuedImageExports[i]
		m := h.syncState.imageMap(access.Image)
		m.SynchronizeNewAccess(access, cmdIndex, h.barriers)
		m.InsertNewAccess(access, h.barriers.BarrierCount(), false, true)
	}
	h.queuedImageExports = h.queuedImageExports[:0]
}

// finishJob flushes remaining exports and emits the cross-family release
// barriers. Each cross-family export becomes two barriers: first a
// state-change barrier with a bottom-of-pipe destination (executable on
// any queue type), then a pure ownership-transfer release so the consumer
// can insert the symmetric acquire.
func (h *exportHandler) finishJob() {
	h.flushExports(track.CommandIndexEnd)

	for i := range h.qfotBufferExports {
		export := &h.qfotBufferExports[i]
		m := h.syncState.bufferMap(export.access.Buffer)
		exportAccess := track.NewBufferAccess{
			ResourceAccess: bottomOfPipe,
			Buffer:         export.access.Buffer,
			Range:          export.access.Range,
		}
		m.SynchronizeNewAccess(&exportAccess, track.CommandIndexEnd, h.barriers)
		m.InsertNewAccess(&exportAccess, h.barriers.BarrierCount(), false, false)
	}

	for i := range h.qfotImageExports {
		export := &h.qfotImageExports[i]
		m := h.syncState.imageMap(export.access.Image)
		exportAccess := track.NewImageAccess{
			ResourceAccess: bottomOfPipe,
			Image:          export.access.Image,
			Range:          export.access.Range,
			Layout:         export.access.Layout,
		}
		m.SynchronizeNewAccess(&exportAccess, track.CommandIndexEnd, h.barriers)
		// After the release, this queue may only touch the image again by
		// discarding its contents; track it as undefined.
		exportAccess.Layout = types.LayoutUndefined
		m.InsertNewAccess(&exportAccess, h.barriers.BarrierCount(), false, false)
	}

	// Pure ownership-transfer release barriers.
	for i := range h.qfotBufferExports {
		export := &h.qfotBufferExports[i]
		dep := track.NewBufferDependency(export.access.Buffer, export.access.Range, bottomOfPipe, bottomOfPipe)
		dep.SrcQueueFamily = h.queueFamilyIndex
		dep.DstQueueFamily = export.dstQueueFamily
		h.barriers.SynchronizeDependency(dep, track.CommandIndexEnd, h.barriers.BarrierCount(), false)
	}
	for i := range h.qfotImageExports {
		export := &h.qfotImageExports[i]
		dep := track.NewImageDependency(export.access.Image, export.access.Range, bottomOfPipe, bottomOfPipe,
			export.access.Layout, export.access.Layout)
		dep.SrcQueueFamily = h.queueFamilyIndex
		dep.DstQueueFamily = export.dstQueueFamily
		h.barriers.SynchronizeDependency(dep, track.CommandIndexEnd, h.barriers.BarrierCount(), false)
	}

	h.qfotBufferExports = h.qfotBufferExports[:0]
	h.qfotImageExports = h.qfotImageExports[:0]
}

// processIncomingExports installs the acquire side of cross-queue exports
// destined to this queue family: the exported access overwrites the map
// state and a top-of-pipe acquire barrier performs the ownership transfer.
func (h *exportHandler) processIncomingExports(incoming []crossqueue.ExportEntry) {
	// The acquire barrier is the first barrier of the job; dependencies of
	// later accesses to the imported state may fold into it.
	const nextBarrierIndex = 0

	for i := range incoming {
		entry := &incoming[i]
		needsTransfer := entry.CurrentQueueFamily != entry.DstQueueFamily

		if entry.BufferAccess != nil {
			access := *entry.BufferAccess
			h.syncState.bufferMap(access.Buffer).InsertNewAccess(&access, nextBarrierIndex, true, true)

			if needsTransfer {
				dep := track.BufferDependency{
					Buffer:         access.Buffer,
					Range:          access.Range,
					SrcAccess:      topOfPipeAccess,
					DstAccess:      access.ResourceAccess,
					SrcQueueFamily: entry.CurrentQueueFamily,
					DstQueueFamily: entry.DstQueueFamily,
				}
				h.barriers.SynchronizeDependency(dep, 0, 0, false)
			}
		} else if entry.ImageAccess != nil {
			access := *entry.ImageAccess
			h.syncState.imageMap(access.Image).InsertNewAccess(&access, nextBarrierIndex, true, true)

			if needsTransfer {
				dep := track.ImageDependency{
					Image:          access.Image,
					Range:          access.Range,
					SrcAccess:      topOfPipeAccess,
					DstAccess:      access.ResourceAccess,
					SrcLayout:      access.Layout,
					DstLayout:      access.Layout,
					SrcQueueFamily: entry.CurrentQueueFamily,
					DstQueueFamily: entry.DstQueueFamily,
				}
				h.barriers.SynchronizeDependency(dep, 0, 0, false)
			}
		}
	}
}

// prepareBarriers walks the job's IR, computing every command's accesses
// and synthesizing the barriers between them.
func prepareBarriers(data *jobData, syncState *queueSyncState, exports *exportHandler,
	barriers *track.BarrierList) error {
	bufferAccesses := bufferAccessScratch.Get()
	imageAccesses := imageAccessScratch.Get()
	defer func() {
		bufferAccessScratch.Put(bufferAccesses)
		imageAccessScratch.Put(imageAccesses)
	}()

	for cmdIndex := range data.record.commands {
		cmd := &data.record.commands[cmdIndex]
		index := uint32(cmdIndex)

		switch cmd.kind {
		case cmdExportBuffer:
			// Queued until the next pass or end of job; the ownership
			// transfer is handled separately.
			if err := exports.addBufferExport(cmd.data.(*exportBufferData)); err != nil {
				return err
			}

		case cmdExportImage:
			if err := exports.addImageExport(cmd.data.(*exportImageData)); err != nil {
				return err
			}

		case cmdDiscardImageContents:
			data := cmd.data.(*discardImageContentsData)
			handle, rng, err := resolveImageAccess(data.image, data.rng)
			if err != nil {
				return err
			}
			if m, ok := syncState.imageMaps[handle]; ok {
				m.DiscardContents(rng)
			}

		case cmdImportExternalBuffer:
			data := cmd.data.(*importExternalBufferData)
			handle, rng, err := resolveBufferAccess(data.buffer, fullBufferRange(data.buffer))
			if err != nil {
				return err
			}
			if m, ok := syncState.bufferMaps[handle]; ok {
				access := track.NewBufferAccess{ResourceAccess: data.access, Buffer: handle, Range: rng}
				m.InsertNewAccess(&access, barriers.BarrierCount(), true, true)
			}

		case cmdImportExternalImage:
			data := cmd.data.(*importExternalImageData)
			handle, rng, err := resolveImageAccess(data.image, data.rng)
			if err != nil {
				return err
			}
			if m, ok := syncState.imageMaps[handle]; ok {
				access := track.NewImageAccess{
					ResourceAccess: data.access, Image: handle, Range: rng, Layout: data.layout,
				}
				m.InsertNewAccess(&access, barriers.BarrierCount(), true, true)
			}

		case cmdExecuteComputePass, cmdExecuteRenderPass:
			// Flush exports so the resources can be used in the pass.
			exports.flushExports(index)

			var err error
			bufferAccesses, imageAccesses, err = identifyCommandAccesses(cmd, bufferAccesses[:0], imageAccesses[:0])
			if err != nil {
				return err
			}
			processAccesses(index, bufferAccesses, imageAccesses, barriers, syncState)
			barriers.MarkExportedResourceUsage()

			if cmd.kind == cmdExecuteRenderPass {
				// Attachments synchronize inside the render pass, so the
				// tracked state is rewritten with each attachment's final
				// layout and access.
				passData := cmd.data.(*executeRenderPassData)
				for i := range passData.pass.setup.Attachments {
					entry := &passData.pass.setup.Attachments[i]
					if entry.Image.IsNull() {
						continue
					}
					handle, rng, err := resolveImageAccess(entry.Image, entry.Image.WholeRange())
					if err != nil {
						return err
					}
					if m, ok := syncState.imageMaps[handle]; ok {
						access := track.NewImageAccess{
							ResourceAccess: track.ResourceAccess{
								StageMask:  entry.LastAccess.StageMask,
								AccessMask: entry.LastAccess.AccessMask,
							},
							Image:  handle,
							Range:  rng,
							Layout: entry.LastLayout,
						}
						m.InsertNewAccess(&access, barriers.BarrierCount(), true, false)
					}
				}
			}

		default:
			var err error
			bufferAccesses, imageAccesses, err = identifyCommandAccesses(cmd, bufferAccesses[:0], imageAccesses[:0])
			if err != nil {
				return err
			}
			processAccesses(index, bufferAccesses, imageAccesses, barriers, syncState)
		}
	}

	exports.finishJob()
	return nil
}

// recordBarrier emits one synthesized barrier as a native pipeline
// barrier.
func recordBarrier(ctx *compilationContext, barrier *track.Barrier) error {
	bufferBarriers := make([]hal.BufferMemoryBarrier, 0, len(barrier.BufferDependencies))
	for i := range barrier.BufferDependencies {
		bufferBarriers = append(bufferBarriers, barrier.BufferDependencies[i].ToMemoryBarrier())
	}
	var imageBarriers []hal.ImageMemoryBarrier
	for i := range barrier.ImageDependencies {
		imageBarriers = barrier.ImageDependencies[i].AppendImageBarriers(imageBarriers)
	}

	cb, err := ctx.recorder.requestBuffer()
	if err != nil {
		return err
	}
	ctx.device.hal.CmdPipelineBarrier(cb, barrier.SrcStageMask, barrier.DstStageMask, bufferBarriers, imageBarriers)
	return nil
}

// recordCommand emits the native command for one IR node.
func recordCommand(ctx *compilationContext, cmd *jobCommand) error {
	device := ctx.device.hal

	// Export, import and discard nodes alter tracking state only; they
	// emit nothing.
	switch cmd.kind {
	case cmdExportBuffer, cmdExportImage, cmdDiscardImageContents,
		cmdImportExternalBuffer, cmdImportExternalImage:
		return nil
	}

	cb, err := ctx.recorder.requestBuffer()
	if err != nil {
		return err
	}

	switch cmd.kind {
	case cmdFillBuffer:
		data := cmd.data.(*fillBufferData)
		handle, offset := data.dstBuffer.resolve()
		device.CmdFillBuffer(cb, handle, offset, data.dstBuffer.Size(), data.value)

	case cmdUpdateBuffer:
		data := cmd.data.(*updateBufferData)
		handle, offset := data.dstBuffer.resolve()
		device.CmdUpdateBuffer(cb, handle, offset, data.data)

	case cmdCopyBuffer:
		data := cmd.data.(*copyBufferData)
		srcHandle, srcOffset := data.srcBuffer.resolve()
		dstHandle, dstOffset := data.dstBuffer.resolve()
		regions := make([]types.BufferCopyRegion, len(data.regions))
		for i, region := range data.regions {
			regions[i] = types.BufferCopyRegion{
				SrcOffset: region.SrcOffset + srcOffset,
				DstOffset: region.DstOffset + dstOffset,
				Size:      region.Size,
			}
		}
		device.CmdCopyBuffer(cb, srcHandle, dstHandle, regions)

	case cmdCopyBufferToImage:
		data := cmd.data.(*copyBufferImageData)
		bufHandle, bufOffset := data.buffer.resolve()
		regions := offsetBufferImageRegions(data.regions, bufOffset, data.image)
		device.CmdCopyBufferToImage(cb, bufHandle, data.image.resolve(), types.LayoutTransferDst, regions)

	case cmdCopyImageToBuffer:
		data := cmd.data.(*copyBufferImageData)
		bufHandle, bufOffset := data.buffer.resolve()
		regions := offsetBufferImageRegions(data.regions, bufOffset, data.image)
		device.CmdCopyImageToBuffer(cb, data.image.resolve(), types.LayoutTransferSrc, bufHandle, regions)

	case cmdCopyImage:
		data := cmd.data.(*copyImageData)
		device.CmdCopyImage(cb, data.srcImage.resolve(), types.LayoutTransferSrc,
			data.dstImage.resolve(), types.LayoutTransferDst, offsetImageRegions(data.regions, data.srcImage, data.dstImage))

	case cmdResolveImage:
		data := cmd.data.(*copyImageData)
		device.CmdResolveImage(cb, data.srcImage.resolve(), types.LayoutTransferSrc,
			data.dstImage.resolve(), types.LayoutTransferDst, offsetImageRegions(data.regions, data.srcImage, data.dstImage))

	case cmdBlitImage:
		data := cmd.data.(*blitImageData)
		regions := make([]types.ImageBlitRegion, len(data.regions))
		for i, region := range data.regions {
			regions[i] = region
			regions[i].SrcSubresource = offsetSubresourceLayers(region.SrcSubresource, data.srcImage)
			regions[i].DstSubresource = offsetSubresourceLayers(region.DstSubresource, data.dstImage)
		}
		device.CmdBlitImage(cb, data.srcImage.resolve(), types.LayoutTransferSrc,
			data.dstImage.resolve(), types.LayoutTransferDst, regions, data.filter)

	case cmdClearImage:
		data := cmd.data.(*clearImageData)
		ranges := make([]types.ImageSubresourceRange, len(data.ranges))
		for i, rng := range data.ranges {
			ranges[i] = rng
			ranges[i].BaseMipLevel += data.dstImage.rng.BaseMipLevel
			ranges[i].BaseArrayLayer += data.dstImage.rng.BaseArrayLayer
		}
		device.CmdClearImage(cb, data.dstImage.resolve(), types.LayoutTransferDst, data.value, ranges)

	case cmdExecuteComputePass:
		data := cmd.data.(*executeComputePassData)
		if data.pass.inline != nil {
			data.pass.inline(&CommandList{device: ctx.device, cb: cb})
		}

	case cmdExecuteRenderPass:
		data := cmd.data.(*executeRenderPassData)
		if data.pass.inline != nil {
			data.pass.inline(&CommandList{device: ctx.device, cb: cb})
		}

	case cmdBuildAccelerationStructures:
		// The build itself is dispatched through the caller-provided
		// pipeline surface; the engine's responsibility ends with the
		// barriers around it.

	case cmdBeginDebugLabel:
		data := cmd.data.(*debugLabelData)
		device.CmdBeginDebugLabel(cb, data.name, data.color)

	case cmdInsertDebugLabel:
		data := cmd.data.(*debugLabelData)
		device.CmdInsertDebugLabel(cb, data.name, data.color)

	case cmdEndDebugLabel:
		device.CmdEndDebugLabel(cb)

	case cmdWriteTimestamp:
		data := cmd.data.(*writeTimestampData)
		device.CmdWriteTimestamp(cb, data.stage, data.query.pool, data.query.index)
	}
	return nil
}

func offsetSubresourceLayers(layers types.ImageSubresourceLayers, view ImageView) types.ImageSubresourceLayers {
	layers.MipLevel += view.rng.BaseMipLevel
	layers.BaseArrayLayer += view.rng.BaseArrayLayer
	return layers
}

func offsetBufferImageRegions(regions []types.BufferImageCopyRegion, bufOffset uint64,
	image ImageView) []types.BufferImageCopyRegion {
	result := make([]types.BufferImageCopyRegion, len(regions))
	for i, region := range regions {
		result[i] = region
		result[i].BufferOffset += bufOffset
		result[i].ImageSubresource = offsetSubresourceLayers(region.ImageSubresource, image)
	}
	return result
}

func offsetImageRegions(regions []types.ImageCopyRegion, src, dst ImageView) []types.ImageCopyRegion {
	result := make([]types.ImageCopyRegion, len(regions))
	for i, region := range regions {
		result[i] = region
		result[i].SrcSubresource = offsetSubresourceLayers(region.SrcSubresource, src)
		result[i].DstSubresource = offsetSubresourceLayers(region.DstSubresource, dst)
	}
	return result
}

// recordCommandBuffers streams the IR into native command buffers,
// interleaving the prepared barriers at their command indices.
func recordCommandBuffers(ctx *compilationContext, data *jobData, barriers *track.BarrierList) error {
	barrierIndex := 0
	for cmdIndex := range data.record.commands {
		for barrierIndex < barriers.BarrierCount() &&
			barriers.Barrier(barrierIndex).CommandIndex <= uint32(cmdIndex) {
			if err := recordBarrier(ctx, barriers.Barrier(barrierIndex)); err != nil {
				return err
			}
			barrierIndex++
		}
		if err := recordCommand(ctx, &data.record.commands[cmdIndex]); err != nil {
			return err
		}
	}
	// End of job: the remaining barriers.
	for ; barrierIndex < barriers.BarrierCount(); barrierIndex++ {
		if err := recordBarrier(ctx, barriers.Barrier(barrierIndex)); err != nil {
			return err
		}
	}
	return nil
}

// compileJob compiles one job against its queue's state and the incoming
// cross-queue exports, emitting native command buffers through the
// context's recorder.
func compileJob(ctx *compilationContext, data *jobData, incoming []crossqueue.ExportEntry) error {
	// Job-local images were freshly bound; their previous contents belong
	// to someone else.
	for _, local := range data.localImages {
		if local.resolved.IsNull() {
			continue
		}
		if m, ok := ctx.syncState.imageMaps[local.resolved]; ok {
			m.DiscardContents(track.NewImageAccessRange(wholeRangeOf(&local.setup)))
		}
	}

	barriers := track.NewBarrierList(data.signal.Timestamp)
	exports := &exportHandler{
		barriers:         barriers,
		syncState:        ctx.syncState,
		queueFamilyIndex: ctx.queueFamilyIndex,
	}
	exports.processIncomingExports(incoming)

	if err := prepareBarriers(data, ctx.syncState, exports, barriers); err != nil {
		return err
	}

	commandBuffersBefore := ctx.recorder.commandBufferCount()
	if err := recordCommandBuffers(ctx, data, barriers); err != nil {
		return err
	}

	device := ctx.device
	device.reportStatistic(StatisticJobPrimaryCommandBuffersUsed,
		uint64(ctx.recorder.commandBufferCount()-commandBuffersBefore), data.name)
	device.reportStatistic(StatisticJobPipelineBarriersInserted, uint64(barriers.BarrierCount()), data.name)

	var bufferDeps, imageDeps uint64
	for i := 0; i < barriers.BarrierCount(); i++ {
		bufferDeps += uint64(len(barriers.Barrier(i).BufferDependencies))
		// A single image dependency can expand to multiple memory barriers
		// for disjoint mips; count dependencies for stable numbers.
		imageDeps += uint64(len(barriers.Barrier(i).ImageDependencies))
	}
	device.reportStatistic(StatisticJobBufferMemoryBarriersInserted, bufferDeps, data.name)
	device.reportStatistic(StatisticJobImageMemoryBarriersInserted, imageDeps, data.name)

	device.reportStatistic(StatisticJobLocalBufferRequestedBytes, data.localBufferStats.RequestedBytes, data.name)
	device.reportStatistic(StatisticJobLocalBufferCommittedBytes, data.localBufferStats.CommittedBytes, data.name)
	device.reportStatistic(StatisticJobLocalImageRequestedBytes, data.localImageStats.RequestedBytes, data.name)
	device.reportStatistic(StatisticJobLocalImageCommittedBytes, data.localImageStats.CommittedBytes, data.name)
	device.reportStatistic(StatisticJobPreinitBufferRequestedBytes, data.preinitRequested, data.name)
	return nil
}
