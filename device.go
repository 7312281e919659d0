package tephra

import (
	"sync"
	"time"

	"github.com/gogpu/tephra/core/crossqueue"
	"github.com/gogpu/tephra/core/destroy"
	"github.com/gogpu/tephra/core/timeline"
	"github.com/gogpu/tephra/hal"
	"github.com/gogpu/tephra/types"
)

// QueueSetup declares one logical queue of a device.
type QueueSetup struct {
	// Queue is the engine-facing identity.
	Queue types.DeviceQueue

	// FamilyIndex is the native queue family backing it.
	FamilyIndex uint32

	// QueueIndex is the queue's index within its family.
	QueueIndex uint32

	// Name labels the queue for debug tooling. May be empty.
	Name string
}

// DeviceSetup configures a device.
type DeviceSetup struct {
	// Driver is the HAL backend the device runs on.
	Driver hal.Device

	// Queues lists the logical queues. At least one is required.
	Queues []QueueSetup

	// DebugHandler receives messages, runtime errors and statistic events.
	// Optional.
	DebugHandler DebugHandler

	// ExportCacheSize bounds the cross-queue export cache; 0 selects the
	// default.
	ExportCacheSize int
}

type deviceQueue struct {
	setup QueueSetup
	state *queueState
}

// Device coordinates the job execution engine: timestamp issue and
// observation, per-queue state, cross-queue synchronization and deferred
// destruction. Multiple host threads may use it concurrently; see the
// individual methods for their serialization requirements.
type Device struct {
	hal          hal.Device
	debugHandler DebugHandler

	timeline   *timeline.Manager
	crossQueue *crossqueue.Sync
	destructor *destroy.Destructor

	queues         []deviceQueue
	queueIndexByID map[types.DeviceQueue]int

	poolMu           sync.Mutex
	freeCommandPools map[uint32][]hal.CommandPool

	destroyed bool
}

// NewDevice creates a device over the given driver.
func NewDevice(setup *DeviceSetup) (*Device, error) {
	if setup.Driver == nil || len(setup.Queues) == 0 {
		return nil, opError("NewDevice", "", ErrInitializationFailed)
	}

	d := &Device{
		hal:              setup.Driver,
		debugHandler:     setup.DebugHandler,
		crossQueue:       crossqueue.NewSync(setup.ExportCacheSize),
		queueIndexByID:   map[types.DeviceQueue]int{},
		freeCommandPools: map[uint32][]hal.CommandPool{},
	}
	d.destructor = destroy.NewDestructor(d)

	manager, err := timeline.NewManager(setup.Driver, len(setup.Queues))
	if err != nil {
		return nil, opError("NewDevice", "", err)
	}
	d.timeline = manager

	for i := range setup.Queues {
		queueSetup := &setup.Queues[i]
		if _, exists := d.queueIndexByID[queueSetup.Queue]; exists {
			manager.Destroy()
			return nil, opError("NewDevice", queueSetup.Name, ErrInitializationFailed)
		}
		state := newQueueState(d, i, queueSetup, len(setup.Queues))
		d.queues = append(d.queues, deviceQueue{setup: *queueSetup, state: state})
		d.queueIndexByID[queueSetup.Queue] = i
		d.crossQueue.RegisterForgetSink(state)
	}
	return d, nil
}

// DestroyImmediately implements destroy.Destroyer: the type-dispatched
// immediate destruction behind the deferred destructor. Buffers and
// images additionally broadcast a forget so every queue drops their
// tracked state.
func (d *Device) DestroyImmediately(handle destroy.Handle) {
	switch handle.Kind {
	case destroy.KindBuffer:
		d.crossQueue.ForgetBuffer(hal.Buffer(handle.Raw))
		d.hal.DestroyBuffer(hal.Buffer(handle.Raw))
	case destroy.KindImage:
		d.crossQueue.ForgetImage(hal.Image(handle.Raw))
		d.hal.DestroyImage(hal.Image(handle.Raw))
	case destroy.KindPipeline:
		d.hal.DestroyPipeline(hal.Pipeline(handle.Raw))
	case destroy.KindQueryPool:
		d.hal.DestroyQueryPool(hal.QueryPool(handle.Raw))
	case destroy.KindCommandPool:
		d.hal.DestroyCommandPool(hal.CommandPool(handle.Raw))
	case destroy.KindSemaphore:
		d.hal.DestroySemaphore(hal.Semaphore(handle.Raw))
	case destroy.KindMemory:
		d.hal.FreeMemory(hal.Memory(handle.Raw))
	case destroy.KindShaderModule:
		d.hal.DestroyShaderModule(hal.ShaderModule(handle.Raw))
	}
}

func (d *Device) queueFamily(queue types.DeviceQueue) uint32 {
	if index, ok := d.queueIndexByID[queue]; ok {
		return d.queues[index].setup.FamilyIndex
	}
	return types.QueueFamilyIgnored
}

func (d *Device) acquireCommandPool(familyIndex uint32) (hal.CommandPool, error) {
	d.poolMu.Lock()
	free := d.freeCommandPools[familyIndex]
	if n := len(free); n > 0 {
		pool := free[n-1]
		d.freeCommandPools[familyIndex] = free[:n-1]
		d.poolMu.Unlock()
		return pool, d.hal.ResetCommandPool(pool)
	}
	d.poolMu.Unlock()
	return d.hal.CreateCommandPool(familyIndex)
}

func (d *Device) releaseCommandPool(familyIndex uint32, pool hal.CommandPool) {
	d.poolMu.Lock()
	d.freeCommandPools[familyIndex] = append(d.freeCommandPools[familyIndex], pool)
	d.poolMu.Unlock()
}

// EnqueueJob finalizes the job's recording, assigns the next timestamp of
// the queue, broadcasts its declared exports and queues it for
// submission. The returned semaphore is valid and comparable before the
// device executes anything. The job must come from a pool servicing the
// same queue.
func (d *Device) EnqueueJob(queue types.DeviceQueue, job *Job,
	waits []JobSemaphore, externalWaits, externalSignals []ExternalSemaphore) (JobSemaphore, error) {
	data := job.data
	if data.pool == nil {
		err := opError("Device.EnqueueJob", data.name, ErrOrphaned)
		d.reportError(err)
		return JobSemaphore{}, err
	}
	if data.enqueued {
		err := opError("Device.EnqueueJob", data.name, ErrReleased)
		d.reportError(err)
		return JobSemaphore{}, err
	}
	index, ok := d.queueIndexByID[queue]
	if !ok || data.pool.queue != queue {
		err := opError("Device.EnqueueJob", data.name, ErrInvalidExternalHandle)
		d.reportError(err)
		return JobSemaphore{}, err
	}

	semaphore, err := d.queues[index].state.enqueueJob(job, waits, externalWaits, externalSignals)
	if err != nil {
		err = opError("Device.EnqueueJob", data.name, err)
		d.reportError(err)
		return JobSemaphore{}, err
	}
	return semaphore, nil
}

// SubmitQueuedJobs compiles and submits every job enqueued on the queue.
func (d *Device) SubmitQueuedJobs(queue types.DeviceQueue) error {
	index, ok := d.queueIndexByID[queue]
	if !ok {
		return opError("Device.SubmitQueuedJobs", "", ErrInvalidExternalHandle)
	}
	return d.queues[index].state.submitQueuedJobs()
}

// WaitForJobSemaphores blocks until the semaphores are signalled (all of
// them, or any with waitAll false), or until the timeout expires.
// Returns false on timeout; device state is unaffected.
func (d *Device) WaitForJobSemaphores(semaphores []JobSemaphore, waitAll bool, timeout time.Duration) (bool, error) {
	queueIndices := make([]int, 0, len(semaphores))
	timestamps := make([]uint64, 0, len(semaphores))
	for _, semaphore := range semaphores {
		index, ok := d.queueIndexByID[semaphore.Queue]
		if !ok {
			return false, opError("Device.WaitForJobSemaphores", "", ErrInvalidExternalHandle)
		}
		queueIndices = append(queueIndices, index)
		timestamps = append(timestamps, semaphore.Timestamp)
	}
	ok, err := d.timeline.WaitForTimestamps(queueIndices, timestamps, waitAll, timeout)
	return ok, opError("Device.WaitForJobSemaphores", "", err)
}

// IsJobSemaphoreSignalled polls whether the semaphore has been reached,
// without blocking.
func (d *Device) IsJobSemaphoreSignalled(semaphore JobSemaphore) (bool, error) {
	index, ok := d.queueIndexByID[semaphore.Queue]
	if !ok {
		return false, opError("Device.IsJobSemaphoreSignalled", "", ErrInvalidExternalHandle)
	}
	if semaphore.IsNull() {
		return false, nil
	}
	if d.timeline.WasTimestampReachedInQueue(index, semaphore.Timestamp) {
		return true, nil
	}
	if _, err := d.timeline.UpdateQueue(index); err != nil {
		return false, opError("Device.IsJobSemaphoreSignalled", "", err)
	}
	return d.timeline.WasTimestampReachedInQueue(index, semaphore.Timestamp), nil
}

// Update polls the device's progress: it advances the reached frontiers,
// fires due cleanup callbacks and reaps deferred destructions. Call it
// periodically, e.g. once per frame.
func (d *Device) Update() error {
	if err := d.timeline.Update(); err != nil {
		return opError("Device.Update", "", err)
	}
	d.destructor.DestroyUpTo(d.timeline.LastReachedTimestampInAllQueues())
	return nil
}

// WaitForDeviceIdle blocks until every queue is idle, then updates.
func (d *Device) WaitForDeviceIdle() error {
	if err := d.hal.WaitForDeviceIdle(); err != nil {
		return opError("Device.WaitForDeviceIdle", "", err)
	}
	return d.Update()
}

// Timeline observers.

// LastReachedTimestamp returns the queue's reached frontier.
func (d *Device) LastReachedTimestamp(queue types.DeviceQueue) uint64 {
	if index, ok := d.queueIndexByID[queue]; ok {
		return d.timeline.LastReachedTimestamp(index)
	}
	return 0
}

// Destroy waits for the device to idle, drains callbacks and destructions
// and releases everything the device owns. Errors are reported through
// the debug handler, not propagated.
func (d *Device) Destroy() {
	if d.destroyed {
		return
	}
	d.destroyed = true

	if err := d.hal.WaitForDeviceIdle(); err != nil {
		d.reportError(opError("Device.Destroy", "", err))
	}
	if err := d.timeline.Update(); err != nil {
		d.reportError(opError("Device.Destroy", "", err))
	}
	d.destructor.Drain()

	d.poolMu.Lock()
	for _, pools := range d.freeCommandPools {
		for _, pool := range pools {
			d.hal.DestroyCommandPool(pool)
		}
	}
	d.freeCommandPools = map[uint32][]hal.CommandPool{}
	d.poolMu.Unlock()

	d.timeline.Destroy()
}
