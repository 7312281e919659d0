package tephra

import (
	"sync"

	"github.com/gogpu/tephra/core/crossqueue"
	"github.com/gogpu/tephra/core/track"
	"github.com/gogpu/tephra/hal"
	"github.com/gogpu/tephra/types"
)

// queueState drives one logical queue: it owns the queue's access maps,
// the enqueued-but-unsubmitted jobs, and the buffered forget requests of
// deleted resources. A queue's state is mutated only by the thread inside
// its submit critical section; the forget buffer alone has its own lock
// so destroy callbacks can post from any thread.
type queueState struct {
	device      *Device
	queueIndex  int
	familyIndex uint32
	queue       hal.Queue
	name        string

	syncState *queueSyncState

	// queuedJobs are enqueued jobs awaiting submission, in enqueue order.
	queuedJobs []*jobData

	// queueLastQueriedTimestamps tracks, per source queue, the end of the
	// last timeline period queried for incoming exports.
	queueLastQueriedTimestamps []uint64

	forgetMu             sync.Mutex
	awaitingBufferForget []hal.Buffer
	awaitingImageForget  []hal.Image

	// submitMu serializes the queue's enqueue/submit critical section.
	submitMu sync.Mutex
}

func newQueueState(device *Device, queueIndex int, setup *QueueSetup, queueCount int) *queueState {
	return &queueState{
		device:      device,
		queueIndex:  queueIndex,
		familyIndex: setup.FamilyIndex,
		queue:       hal.Queue{FamilyIndex: setup.FamilyIndex, Index: setup.QueueIndex},
		name:        setup.Name,
		syncState:   newQueueSyncState(),

		queueLastQueriedTimestamps: make([]uint64, queueCount),
	}
}

// ForgetBuffer implements crossqueue.ForgetSink.
func (q *queueState) ForgetBuffer(buffer hal.Buffer) {
	q.forgetMu.Lock()
	q.awaitingBufferForget = append(q.awaitingBufferForget, buffer)
	q.forgetMu.Unlock()
}

// ForgetImage implements crossqueue.ForgetSink.
func (q *queueState) ForgetImage(image hal.Image) {
	q.forgetMu.Lock()
	q.awaitingImageForget = append(q.awaitingImageForget, image)
	q.forgetMu.Unlock()
}

// consumeAwaitingForgets drops the access maps of deleted resources.
// Called at the start of each submit.
func (q *queueState) consumeAwaitingForgets() {
	q.forgetMu.Lock()
	defer q.forgetMu.Unlock()

	for _, buffer := range q.awaitingBufferForget {
		delete(q.syncState.bufferMaps, buffer)
	}
	q.awaitingBufferForget = q.awaitingBufferForget[:0]
	for _, image := range q.awaitingImageForget {
		delete(q.syncState.imageMaps, image)
	}
	q.awaitingImageForget = q.awaitingImageForget[:0]
}

// enqueueJob finalizes the job, assigns its signal timestamp, allocates
// its transient resources and broadcasts its declared exports.
func (q *queueState) enqueueJob(job *Job, waits []JobSemaphore,
	externalWaits, externalSignals []ExternalSemaphore) (JobSemaphore, error) {
	q.submitMu.Lock()
	defer q.submitMu.Unlock()

	data := job.data
	job.finalize()

	timestamp := q.device.timeline.AssignNextTimestamp(q.queueIndex)
	data.signal = JobSemaphore{Queue: q.device.queues[q.queueIndex].setup.Queue, Timestamp: timestamp}
	data.waitJobSemaphores = append(data.waitJobSemaphores, waits...)
	data.waitExternalSemaphores = append(data.waitExternalSemaphores, externalWaits...)
	data.signalExternalSemaphores = append(data.signalExternalSemaphores, externalSignals...)

	if err := data.pool.allocateJobResources(data); err != nil {
		// The timestamp is already pending and must be guaranteed to be
		// signalled; signal it from the host since no submit will.
		if signalErr := q.device.hal.SignalSemaphore(
			q.device.timeline.QueueSemaphore(q.queueIndex), timestamp); signalErr != nil {
			q.device.reportError(opError("Job.Enqueue", data.name, signalErr))
		}
		data.signal = JobSemaphore{}
		return JobSemaphore{}, err
	}

	q.broadcastResourceExports(data)

	data.enqueued = true
	q.queuedJobs = append(q.queuedJobs, data)
	return data.signal, nil
}

// broadcastResourceExports publishes the job's export commands to the
// cross-queue synchronizer. Runs at enqueue, before submit, so consumers
// can observe the export as soon as its semaphore is comparable.
func (q *queueState) broadcastResourceExports(data *jobData) {
	for i := range data.record.commands {
		cmd := &data.record.commands[i]
		switch cmd.kind {
		case cmdExportBuffer:
			export := cmd.data.(*exportBufferData)
			if export.dstQueueFamily == types.QueueFamilyIgnored ||
				export.dstQueueFamily == types.QueueFamilyExternal {
				break
			}
			handle, rng, err := resolveBufferAccess(export.buffer, fullBufferRange(export.buffer))
			if err != nil {
				q.device.reportError(opError("Job.Enqueue", data.name, err))
				break
			}
			q.device.crossQueue.BroadcastBufferExport(data.signal, track.NewBufferAccess{
				ResourceAccess: track.ConvertReadAccess(export.readMask),
				Buffer:         handle,
				Range:          rng,
			}, q.familyIndex, export.dstQueueFamily)

		case cmdExportImage:
			export := cmd.data.(*exportImageData)
			if export.dstQueueFamily == types.QueueFamilyIgnored ||
				export.dstQueueFamily == types.QueueFamilyExternal {
				break
			}
			handle, rng, err := resolveImageAccess(export.image, export.rng)
			if err != nil {
				q.device.reportError(opError("Job.Enqueue", data.name, err))
				break
			}
			q.device.crossQueue.BroadcastImageExport(data.signal, track.NewImageAccess{
				ResourceAccess: track.ConvertReadAccess(export.readMask),
				Image:          handle,
				Range:          rng,
				Layout:         track.ImageLayoutFromReadAccess(export.readMask),
			}, q.familyIndex, export.dstQueueFamily)
		}
	}
}

// queryIncomingExports collects exports destined for this queue whose
// producing timestamps have either passed or are explicitly waited upon by
// the job.
func (q *queueState) queryIncomingExports(data *jobData) []crossqueue.ExportEntry {
	device := q.device
	queueCount := len(device.queues)

	dstTimestamps := make([]uint64, queueCount)
	for i := 0; i < queueCount; i++ {
		dstTimestamps[i] = device.timeline.LastReachedTimestamp(i)
	}
	for _, wait := range data.waitJobSemaphores {
		if index, ok := device.queueIndexByID[wait.Queue]; ok {
			if wait.Timestamp > dstTimestamps[index] {
				dstTimestamps[index] = wait.Timestamp
			}
		}
	}

	periods := make([]crossqueue.TimelinePeriod, 0, queueCount)
	for i := 0; i < queueCount; i++ {
		if dstTimestamps[i] > q.queueLastQueriedTimestamps[i] {
			periods = append(periods, crossqueue.TimelinePeriod{
				SrcQueue:      device.queues[i].setup.Queue,
				FromTimestamp: q.queueLastQueriedTimestamps[i],
				ToTimestamp:   dstTimestamps[i],
			})
			q.queueLastQueriedTimestamps[i] = dstTimestamps[i]
		}
	}
	if len(periods) == 0 {
		return nil
	}
	return device.crossQueue.QueryIncoming(periods, q.familyIndex)
}

// resolveSemaphores fills the submit batch with the job's waits, reduced
// to at most one per source queue, and its signals.
func (q *queueState) resolveSemaphores(data *jobData, batch *hal.SubmitBatch) {
	device := q.device

	var waitQueues []int
	var waitValues []uint64
	for _, wait := range data.waitJobSemaphores {
		index, ok := device.queueIndexByID[wait.Queue]
		if !ok {
			continue
		}
		merged := false
		for i, queueIndex := range waitQueues {
			if queueIndex == index {
				if wait.Timestamp > waitValues[i] {
					waitValues[i] = wait.Timestamp
				}
				merged = true
				break
			}
		}
		if !merged {
			waitQueues = append(waitQueues, index)
			waitValues = append(waitValues, wait.Timestamp)
		}
	}

	for i, queueIndex := range waitQueues {
		batch.WaitSemaphores = append(batch.WaitSemaphores, device.timeline.QueueSemaphore(queueIndex))
		batch.WaitValues = append(batch.WaitValues, waitValues[i])
		batch.WaitStageMasks = append(batch.WaitStageMasks, types.StageTopOfPipe)
	}
	for _, wait := range data.waitExternalSemaphores {
		batch.WaitSemaphores = append(batch.WaitSemaphores, wait.Semaphore)
		batch.WaitValues = append(batch.WaitValues, wait.Timestamp)
		batch.WaitStageMasks = append(batch.WaitStageMasks, types.StageTopOfPipe)
	}

	batch.SignalSemaphores = append(batch.SignalSemaphores, device.timeline.QueueSemaphore(q.queueIndex))
	batch.SignalValues = append(batch.SignalValues, data.signal.Timestamp)
	for _, signal := range data.signalExternalSemaphores {
		batch.SignalSemaphores = append(batch.SignalSemaphores, signal.Semaphore)
		batch.SignalValues = append(batch.SignalValues, signal.Timestamp)
	}
}

// submitQueuedJobs compiles the enqueued jobs and flushes them to the
// native queue in one batch. Contiguous jobs flagged Small with no
// explicit waits fold into the preceding submit entry.
func (q *queueState) submitQueuedJobs() error {
	q.submitMu.Lock()
	defer q.submitMu.Unlock()

	if len(q.queuedJobs) == 0 {
		return nil
	}
	q.consumeAwaitingForgets()

	device := q.device
	pool, err := device.acquireCommandPool(q.familyIndex)
	if err != nil {
		return opError("Device.SubmitQueuedJobs", q.name, err)
	}

	batch := &hal.SubmitBatch{}
	recorder := newPrimaryRecorder(device, pool, q.name, &batch.CommandBuffers)
	ctx := &compilationContext{
		device:           device,
		syncState:        q.syncState,
		recorder:         recorder,
		queueFamilyIndex: q.familyIndex,
	}

	start := 0
	for start < len(q.queuedJobs) {
		// Fold as many jobs as possible into the same submit entry. Jobs
		// always signal a semaphore, but Small jobs are assumed not to
		// delay it significantly; a job with waits would make the whole
		// entry wait, so it starts its own.
		end := start + 1
		for end < len(q.queuedJobs) {
			data := q.queuedJobs[end]
			hasWaits := len(data.waitJobSemaphores) > 0 || len(data.waitExternalSemaphores) > 0
			if !data.flags.Contains(JobFlagSmall) || hasWaits {
				break
			}
			end++
		}

		entry := hal.SubmitEntry{
			WaitOffset:          uint32(len(batch.WaitSemaphores)),
			SignalOffset:        uint32(len(batch.SignalSemaphores)),
			CommandBufferOffset: uint32(len(batch.CommandBuffers)),
		}

		for jobIndex := start; jobIndex < end; jobIndex++ {
			data := q.queuedJobs[jobIndex]
			q.resolveSemaphores(data, batch)
			incoming := q.queryIncomingExports(data)
			if err := compileJob(ctx, data, incoming); err != nil {
				return opError("Device.SubmitQueuedJobs", data.name, err)
			}
		}

		if err := recorder.endRecording(); err != nil {
			return opError("Device.SubmitQueuedJobs", q.name, err)
		}
		entry.WaitCount = uint32(len(batch.WaitSemaphores)) - entry.WaitOffset
		entry.SignalCount = uint32(len(batch.SignalSemaphores)) - entry.SignalOffset
		entry.CommandBufferCount = uint32(len(batch.CommandBuffers)) - entry.CommandBufferOffset
		batch.Entries = append(batch.Entries, entry)

		start = end
	}

	if err := device.hal.QueueSubmit(q.queue, batch); err != nil {
		err = opError("Device.SubmitQueuedJobs", q.name, err)
		device.reportError(err)
		return err
	}

	// Return the command pool and the job records once the device is done
	// with them.
	submitted := q.queuedJobs
	q.queuedJobs = nil
	device.timeline.AddQueueCleanupCallback(q.queueIndex, func() {
		device.releaseCommandPool(q.familyIndex, pool)
		for _, data := range submitted {
			if data.pool != nil {
				data.pool.queueReleaseSubmittedJob(data)
			}
		}
	})
	return nil
}
