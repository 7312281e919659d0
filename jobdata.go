package tephra

import (
	"github.com/gogpu/tephra/core/track"
	"github.com/gogpu/tephra/core/transient"
	"github.com/gogpu/tephra/types"
)

// JobFlags adjust how a job is enqueued and submitted.
type JobFlags uint32

const (
	// JobFlagSmall hints that the job is cheap enough to batch into the
	// same native submit as the preceding job.
	JobFlagSmall JobFlags = 1 << iota
)

// Contains reports whether all bits of other are set in f.
func (f JobFlags) Contains(other JobFlags) bool {
	return f&other == other
}

type commandKind uint8

const (
	cmdExportBuffer commandKind = iota
	cmdExportImage
	cmdDiscardImageContents
	cmdFillBuffer
	cmdUpdateBuffer
	cmdCopyBuffer
	cmdCopyBufferToImage
	cmdCopyImageToBuffer
	cmdCopyImage
	cmdBlitImage
	cmdClearImage
	cmdResolveImage
	cmdExecuteComputePass
	cmdExecuteRenderPass
	cmdBuildAccelerationStructures
	cmdImportExternalBuffer
	cmdImportExternalImage
	cmdBeginDebugLabel
	cmdInsertDebugLabel
	cmdEndDebugLabel
	cmdWriteTimestamp
)

// jobCommand is one node of the per-job intermediate representation. Each
// payload carries only the inputs needed to compute the command's accesses
// and to emit the native command at compile time.
type jobCommand struct {
	kind commandKind
	data any
}

type exportBufferData struct {
	buffer         BufferView
	readMask       types.ReadAccessMask
	dstQueueFamily uint32
}

type exportImageData struct {
	image          ImageView
	rng            types.ImageSubresourceRange
	readMask       types.ReadAccessMask
	dstQueueFamily uint32
}

type discardImageContentsData struct {
	image ImageView
	rng   types.ImageSubresourceRange
}

type fillBufferData struct {
	dstBuffer BufferView
	value     uint32
}

type updateBufferData struct {
	dstBuffer BufferView
	data      []byte
}

type copyBufferData struct {
	srcBuffer BufferView
	dstBuffer BufferView
	regions   []types.BufferCopyRegion
}

type copyBufferImageData struct {
	buffer  BufferView
	image   ImageView
	regions []types.BufferImageCopyRegion
}

type copyImageData struct {
	srcImage ImageView
	dstImage ImageView
	regions  []types.ImageCopyRegion
}

type blitImageData struct {
	srcImage ImageView
	dstImage ImageView
	regions  []types.ImageBlitRegion
	filter   types.Filter
}

type clearImageData struct {
	dstImage ImageView
	value    types.ClearValue
	ranges   []types.ImageSubresourceRange
}

type executeComputePassData struct {
	pass *computePass
}

type executeRenderPassData struct {
	pass *renderPass
}

type buildAccelerationStructuresData struct {
	builds []AccelerationStructureBuild
}

type importExternalBufferData struct {
	buffer BufferView
	access track.ResourceAccess
}

type importExternalImageData struct {
	image  ImageView
	rng    types.ImageSubresourceRange
	layout types.ImageLayout
	access track.ResourceAccess
}

type debugLabelData struct {
	name  string
	color [4]float32
}

type writeTimestampData struct {
	query *TimestampQuery
	stage types.PipelineStageFlags
}

// recordStorage holds a job's command stream. Commands are kept in
// recording order; the delayed list is appended at finalization.
type recordStorage struct {
	commands []jobCommand
	delayed  []jobCommand
}

func (r *recordStorage) add(kind commandKind, data any) {
	r.commands = append(r.commands, jobCommand{kind: kind, data: data})
}

func (r *recordStorage) finalize() {
	r.commands = append(r.commands, r.delayed...)
	r.delayed = r.delayed[:0]
}

func (r *recordStorage) clear() {
	r.commands = r.commands[:0]
	r.delayed = r.delayed[:0]
}

// preinitAlloc is one preinitialized buffer served from the pool's ring.
type preinitAlloc struct {
	view transient.RingView
}

// jobData is the pooled record behind a Job. It is reused across jobs of
// the same pool.
type jobData struct {
	// pool is the back-reference to the owning resource pool; nil once the
	// job has been orphaned by the pool's destruction.
	pool *JobResourcePool

	id    uint64
	flags JobFlags
	name  string

	record recordStorage

	localBuffers []*localBuffer
	localImages  []*localImage
	preinit      []preinitAlloc

	localBufferStats transient.JobStatistics
	localImageStats  transient.JobStatistics
	preinitRequested uint64

	signal                   JobSemaphore
	waitJobSemaphores        []JobSemaphore
	waitExternalSemaphores   []ExternalSemaphore
	signalExternalSemaphores []ExternalSemaphore

	enqueued bool
}

func (j *jobData) clear() {
	j.record.clear()
	j.localBuffers = j.localBuffers[:0]
	j.localImages = j.localImages[:0]
	j.preinit = j.preinit[:0]
	j.localBufferStats = transient.JobStatistics{}
	j.localImageStats = transient.JobStatistics{}
	j.preinitRequested = 0
	j.signal = JobSemaphore{}
	j.waitJobSemaphores = j.waitJobSemaphores[:0]
	j.waitExternalSemaphores = j.waitExternalSemaphores[:0]
	j.signalExternalSemaphores = j.signalExternalSemaphores[:0]
	j.flags = 0
	j.name = ""
	j.enqueued = false
}
