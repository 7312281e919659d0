package tephra

import (
	"sync"

	"github.com/gogpu/tephra/core/destroy"
	"github.com/gogpu/tephra/core/transient"
	"github.com/gogpu/tephra/hal"
	"github.com/gogpu/tephra/types"
)

// JobResourcePoolFlags adjust a pool's allocation strategy.
type JobResourcePoolFlags uint32

const (
	// DisableLocalBufferAliasing gives every job-local buffer its own
	// backing.
	DisableLocalBufferAliasing JobResourcePoolFlags = 1 << iota

	// DisableLocalImageAliasing gives every job-local image its own
	// backing memory.
	DisableLocalImageAliasing
)

// Contains reports whether all bits of other are set in f.
func (f JobResourcePoolFlags) Contains(other JobResourcePoolFlags) bool {
	return f&other == other
}

// JobResourcePoolSetup configures a job resource pool.
type JobResourcePoolSetup struct {
	// Queue is the queue the pool services. Jobs created from the pool can
	// only be enqueued there.
	Queue types.DeviceQueue

	Flags JobResourcePoolFlags

	// Overallocation behaviors of the growable sub-allocators. Zero
	// values allocate exactly what is requested.
	BufferOverallocationBehavior        types.OverallocationBehavior
	PreinitBufferOverallocationBehavior types.OverallocationBehavior

	DebugName string
}

// JobResourcePoolStatistics reports a pool's live allocations.
type JobResourcePoolStatistics struct {
	BufferAllocationCount  int
	BufferAllocationBytes  uint64
	ImageAllocationCount   int
	ImageAllocationBytes   uint64
	PreinitAllocationCount int
	PreinitAllocationBytes uint64
}

// TotalAllocationBytes sums all backing bytes held by the pool.
func (s JobResourcePoolStatistics) TotalAllocationBytes() uint64 {
	return s.BufferAllocationBytes + s.ImageAllocationBytes + s.PreinitAllocationBytes
}

// JobResourcePool creates jobs and owns the transient allocators backing
// their job-local resources. A pool may be used by one thread at a time;
// distinct pools operate concurrently.
type JobResourcePool struct {
	device     *Device
	queue      types.DeviceQueue
	queueIndex int
	flags      JobResourcePoolFlags
	debugName  string

	bufferAllocator *transient.BufferAllocator
	imageAllocator  *transient.ImageAllocator
	preinitRing     *transient.RingBuffer

	jobsAcquired uint64
	freeJobs     []*jobData
	liveJobs     map[*jobData]struct{}

	// pendingRelease receives submitted jobs from cleanup callbacks, which
	// may run on any thread driving Device.Update.
	releaseMu      sync.Mutex
	pendingRelease []*jobData

	destroyed bool
}

// NewJobResourcePool creates a pool servicing the setup's queue.
func (d *Device) NewJobResourcePool(setup *JobResourcePoolSetup) (*JobResourcePool, error) {
	queueIndex, ok := d.queueIndexByID[setup.Queue]
	if !ok {
		return nil, opError("Device.NewJobResourcePool", setup.DebugName, ErrInvalidExternalHandle)
	}

	pool := &JobResourcePool{
		device:     d,
		queue:      setup.Queue,
		queueIndex: queueIndex,
		flags:      setup.Flags,
		debugName:  setup.DebugName,
		liveJobs:   map[*jobData]struct{}{},
	}
	pool.bufferAllocator = transient.NewBufferAllocator(d.hal,
		normalizeOverallocation(setup.BufferOverallocationBehavior),
		setup.Flags.Contains(DisableLocalBufferAliasing), setup.DebugName)
	pool.imageAllocator = transient.NewImageAllocator(d.hal,
		setup.Flags.Contains(DisableLocalImageAliasing))
	pool.preinitRing = transient.NewRingBuffer(d.hal,
		types.BufferUsageTransferSrc|types.BufferUsageUniform,
		requiredViewAlignment,
		normalizeOverallocation(setup.PreinitBufferOverallocationBehavior), setup.DebugName)
	return pool, nil
}

func normalizeOverallocation(b types.OverallocationBehavior) types.OverallocationBehavior {
	if b.RequestFactor == 0 && b.GrowFactor == 0 && b.MinAllocationBytes == 0 {
		return types.ExactOverallocation()
	}
	return b
}

// CreateJob acquires a job record and returns a fresh job for recording.
func (p *JobResourcePool) CreateJob(flags JobFlags, debugName string) *Job {
	p.tryFreeSubmittedJobs()

	var data *jobData
	if n := len(p.freeJobs); n > 0 {
		data = p.freeJobs[n-1]
		p.freeJobs = p.freeJobs[:n-1]
	} else {
		data = &jobData{}
	}
	data.pool = p
	data.id = p.jobsAcquired
	p.jobsAcquired++
	data.flags = flags
	data.name = debugName
	p.liveJobs[data] = struct{}{}

	return &Job{device: p.device, data: data}
}

// allocateJobResources binds the job's transient resources, called at
// enqueue time once the signal timestamp is known.
func (p *JobResourcePool) allocateJobResources(data *jobData) error {
	p.tryFreeSubmittedJobs()
	reached := p.device.timeline.LastReachedTimestamp(p.queueIndex)
	timestamp := data.signal.Timestamp

	placements, bufferStats, err := p.bufferAllocator.AllocateJobBuffers(
		data.localBufferRequests(), timestamp, reached)
	if err != nil {
		return err
	}
	for i, placement := range placements {
		data.localBuffers[i].resolved = placement.Buffer
	}
	data.localBufferStats = bufferStats

	imagePlacements, imageStats, err := p.imageAllocator.AllocateJobImages(
		data.localImageRequests(), timestamp, reached)
	if err != nil {
		return err
	}
	for i, placement := range imagePlacements {
		data.localImages[i].resolved = placement.Image
	}
	data.localImageStats = imageStats
	return nil
}

// queueReleaseSubmittedJob hands a finished job back to the pool. Called
// from timeline cleanup callbacks on whatever thread drives the update.
func (p *JobResourcePool) queueReleaseSubmittedJob(data *jobData) {
	p.releaseMu.Lock()
	p.pendingRelease = append(p.pendingRelease, data)
	p.releaseMu.Unlock()
}

// tryFreeSubmittedJobs returns finished jobs' records and transient
// resources to the pool.
func (p *JobResourcePool) tryFreeSubmittedJobs() {
	p.releaseMu.Lock()
	released := p.pendingRelease
	p.pendingRelease = nil
	p.releaseMu.Unlock()

	for _, data := range released {
		p.releaseJob(data)
	}
}

func (p *JobResourcePool) releaseJob(data *jobData) {
	// Job-local images were created fresh for this job; their handles die
	// with it. The backing memory stays pooled.
	for _, local := range data.localImages {
		if !local.resolved.IsNull() {
			p.device.destructor.QueueForDestruction(
				destroy.Handle{Kind: destroy.KindImage, Raw: uint64(local.resolved)},
				data.signal.Timestamp)
		}
	}
	// Preinitialized allocations release in push order.
	p.preinitRing.Pop(data.id)

	delete(p.liveJobs, data)
	data.clear()
	data.pool = nil
	p.freeJobs = append(p.freeJobs, data)
}

// Statistics reports the pool's live backing allocations.
func (p *JobResourcePool) Statistics() JobResourcePoolStatistics {
	return JobResourcePoolStatistics{
		BufferAllocationCount:  p.bufferAllocator.AllocationCount(),
		BufferAllocationBytes:  p.bufferAllocator.TotalSize(),
		ImageAllocationCount:   p.imageAllocator.AllocationCount(),
		ImageAllocationBytes:   p.imageAllocator.TotalSize(),
		PreinitAllocationCount: p.preinitRing.AllocationCount(),
		PreinitAllocationBytes: p.preinitRing.TotalSize(),
	}
}

// Trim reclaims backing allocations not used since the given semaphore
// (or since the last reached timestamp if it is null), returning the
// bytes freed.
func (p *JobResourcePool) Trim(latestTrimmed JobSemaphore) uint64 {
	upTo := p.device.timeline.LastReachedTimestamp(p.queueIndex)
	if !latestTrimmed.IsNull() && latestTrimmed.Timestamp < upTo {
		upTo = latestTrimmed.Timestamp
	}

	p.tryFreeSubmittedJobs()

	d := p.device
	freed := p.bufferAllocator.Trim(upTo, func(buffer hal.Buffer) {
		d.destructor.QueueForDestruction(
			destroy.Handle{Kind: destroy.KindBuffer, Raw: uint64(buffer)}, upTo)
	})
	freed += p.imageAllocator.Trim(upTo, func(memory hal.Memory) {
		d.destructor.QueueForDestruction(
			destroy.Handle{Kind: destroy.KindMemory, Raw: uint64(memory)}, upTo)
	})
	// Preinitialized regions free as a whole once no allocation lives in
	// them; their timestamps may not correspond to the device timeline, so
	// they defer behind the last tracked timestamp instead.
	tracked := d.timeline.LastTrackedTimestamp()
	freed += p.preinitRing.Trim(func(buffer hal.Buffer) {
		d.destructor.QueueForDestruction(
			destroy.Handle{Kind: destroy.KindBuffer, Raw: uint64(buffer)}, tracked)
	})
	return freed
}

// Destroy releases the pool. Outstanding jobs are orphaned: they can no
// longer be enqueued and skip returning resources when released.
func (p *JobResourcePool) Destroy() {
	if p.destroyed {
		return
	}
	p.destroyed = true
	p.tryFreeSubmittedJobs()

	for data := range p.liveJobs {
		data.pool = nil
	}
	p.liveJobs = map[*jobData]struct{}{}

	tracked := p.device.timeline.LastTrackedTimestamp()
	d := p.device
	p.bufferAllocator.Trim(^uint64(0), func(buffer hal.Buffer) {
		d.destructor.QueueForDestruction(
			destroy.Handle{Kind: destroy.KindBuffer, Raw: uint64(buffer)}, tracked)
	})
	p.imageAllocator.Trim(^uint64(0), func(memory hal.Memory) {
		d.destructor.QueueForDestruction(
			destroy.Handle{Kind: destroy.KindMemory, Raw: uint64(memory)}, tracked)
	})
	p.preinitRing.Trim(func(buffer hal.Buffer) {
		d.destructor.QueueForDestruction(
			destroy.Handle{Kind: destroy.KindBuffer, Raw: uint64(buffer)}, tracked)
	})
}
