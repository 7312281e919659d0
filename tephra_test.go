package tephra

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/tephra/hal/noop"
	"github.com/gogpu/tephra/types"
)

const mib = uint64(1) << 20

var (
	queueMain    = types.DeviceQueue{Type: types.QueueTypeGraphics, Index: 0}
	queueAsync   = types.DeviceQueue{Type: types.QueueTypeCompute, Index: 0}
	copySrcDst   = types.BufferUsageTransferSrc | types.BufferUsageTransferDst
	storageUsage = types.BufferUsageStorage | types.BufferUsageTransferSrc | types.BufferUsageTransferDst
)

// statsRecorder collects statistic events per job name.
type statsRecorder struct {
	events map[string]map[StatisticEventType]uint64
}

func newStatsRecorder() *statsRecorder {
	return &statsRecorder{events: map[string]map[StatisticEventType]uint64{}}
}

func (r *statsRecorder) Message(severity MessageSeverity, message string) {}
func (r *statsRecorder) RuntimeError(err error)                           {}

func (r *statsRecorder) Statistic(event StatisticEvent) {
	job := r.events[event.Object]
	if job == nil {
		job = map[StatisticEventType]uint64{}
		r.events[event.Object] = job
	}
	job[event.Type] = event.Value
}

func (r *statsRecorder) value(job string, eventType StatisticEventType) uint64 {
	return r.events[job][eventType]
}

func newTestDevice(t *testing.T, stats *statsRecorder) (*Device, *noop.Device) {
	t.Helper()
	driver := noop.NewDevice()
	setup := &DeviceSetup{
		Driver: driver,
		Queues: []QueueSetup{
			{Queue: queueMain, FamilyIndex: 0, Name: "main"},
			{Queue: queueAsync, FamilyIndex: 1, Name: "async"},
		},
	}
	if stats != nil {
		setup.DebugHandler = stats
	}
	device, err := NewDevice(setup)
	require.NoError(t, err)
	t.Cleanup(device.Destroy)
	return device, driver
}

func newTestPool(t *testing.T, device *Device, queue types.DeviceQueue) *JobResourcePool {
	t.Helper()
	pool, err := device.NewJobResourcePool(&JobResourcePoolSetup{Queue: queue, DebugName: "pool"})
	require.NoError(t, err)
	t.Cleanup(pool.Destroy)
	return pool
}

func TestEmptyJobSignalsSemaphore(t *testing.T) {
	device, _ := newTestDevice(t, nil)
	pool := newTestPool(t, device, queueMain)

	job := pool.CreateJob(0, "empty")
	semaphore, err := device.EnqueueJob(queueMain, job, nil, nil, nil)
	require.NoError(t, err)
	require.False(t, semaphore.IsNull())

	signalled, err := device.IsJobSemaphoreSignalled(semaphore)
	require.NoError(t, err)
	assert.False(t, signalled)

	require.NoError(t, device.SubmitQueuedJobs(queueMain))
	require.NoError(t, device.Update())

	signalled, err = device.IsJobSemaphoreSignalled(semaphore)
	require.NoError(t, err)
	assert.True(t, signalled)

	ok, err := device.WaitForJobSemaphores([]JobSemaphore{semaphore}, true, 0)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestBufferRoundTripThroughLocalChain(t *testing.T) {
	device, _ := newTestDevice(t, nil)
	pool := newTestPool(t, device, queueMain)

	payload := []byte("the quick brown fox jumps over the lazy dog!!!!!")
	size := uint64(len(payload))

	readback, err := device.AllocateBuffer(&BufferSetup{
		Size: size, Usage: types.BufferUsageTransferDst, HostMapped: true,
	})
	require.NoError(t, err)
	defer readback.Destroy()

	job := pool.CreateJob(0, "roundtrip")

	staging, err := job.AllocatePreinitializedBuffer(size, types.BufferUsageTransferSrc)
	require.NoError(t, err)
	copy(staging.Data(), payload)

	localA := job.AllocateLocalBuffer(&BufferSetup{Size: size, Usage: copySrcDst})
	localB := job.AllocateLocalBuffer(&BufferSetup{Size: size, Usage: copySrcDst})

	region := []types.BufferCopyRegion{{Size: size}}
	job.CmdCopyBuffer(staging, localA, region)
	job.CmdCopyBuffer(localA, localB, region)
	job.CmdCopyBuffer(localB, readback.FullView(), region)

	semaphore, err := device.EnqueueJob(queueMain, job, nil, nil, nil)
	require.NoError(t, err)
	require.NoError(t, device.SubmitQueuedJobs(queueMain))

	ok, err := device.WaitForJobSemaphores([]JobSemaphore{semaphore}, true, NoTimeout)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, payload, readback.MappedData())
}

func chainOfCopies(t *testing.T, sizes []uint64) (requested, committed uint64) {
	t.Helper()
	stats := newStatsRecorder()
	device, _ := newTestDevice(t, stats)
	pool := newTestPool(t, device, queueMain)

	job := pool.CreateJob(0, "chain")
	views := make([]BufferView, len(sizes))
	for i, size := range sizes {
		views[i] = job.AllocateLocalBuffer(&BufferSetup{Size: size, Usage: copySrcDst})
	}
	for i := 0; i+1 < len(views); i++ {
		size := sizes[i]
		if sizes[i+1] < size {
			size = sizes[i+1]
		}
		job.CmdCopyBuffer(views[i], views[i+1], []types.BufferCopyRegion{{Size: size}})
	}

	_, err := device.EnqueueJob(queueMain, job, nil, nil, nil)
	require.NoError(t, err)
	require.NoError(t, device.SubmitQueuedJobs(queueMain))

	return stats.value("chain", StatisticJobLocalBufferRequestedBytes),
		stats.value("chain", StatisticJobLocalBufferCommittedBytes)
}

func TestTransientAliasingChainNoOverlap(t *testing.T) {
	requested, committed := chainOfCopies(t, []uint64{mib, mib, mib, mib})
	assert.Equal(t, 4*mib, requested)
	assert.Equal(t, 2*mib, committed)
}

func TestTransientAliasingCycle(t *testing.T) {
	stats := newStatsRecorder()
	device, _ := newTestDevice(t, stats)
	pool := newTestPool(t, device, queueMain)

	job := pool.CreateJob(0, "cycle")
	a := job.AllocateLocalBuffer(&BufferSetup{Size: mib, Usage: copySrcDst})
	b := job.AllocateLocalBuffer(&BufferSetup{Size: mib, Usage: copySrcDst})
	c := job.AllocateLocalBuffer(&BufferSetup{Size: mib, Usage: copySrcDst})

	region := []types.BufferCopyRegion{{Size: mib}}
	job.CmdCopyBuffer(a, b, region)
	job.CmdCopyBuffer(b, c, region)
	job.CmdCopyBuffer(c, a, region)

	_, err := device.EnqueueJob(queueMain, job, nil, nil, nil)
	require.NoError(t, err)
	require.NoError(t, device.SubmitQueuedJobs(queueMain))

	assert.Equal(t, 3*mib, stats.value("cycle", StatisticJobLocalBufferRequestedBytes))
	assert.Equal(t, 3*mib, stats.value("cycle", StatisticJobLocalBufferCommittedBytes))
}

func TestTransientAliasingMixedSizes(t *testing.T) {
	requested, committed := chainOfCopies(t, []uint64{1 * mib, 4 * mib, 2 * mib, 2 * mib})
	assert.Equal(t, 9*mib, requested)
	assert.Equal(t, 6*mib, committed)
}

func TestUnusedLocalBufferNotCommitted(t *testing.T) {
	stats := newStatsRecorder()
	device, _ := newTestDevice(t, stats)
	pool := newTestPool(t, device, queueMain)

	job := pool.CreateJob(0, "unused")
	job.AllocateLocalBuffer(&BufferSetup{Size: mib, Usage: copySrcDst})

	_, err := device.EnqueueJob(queueMain, job, nil, nil, nil)
	require.NoError(t, err)
	require.NoError(t, device.SubmitQueuedJobs(queueMain))

	assert.Equal(t, uint64(0), stats.value("unused", StatisticJobLocalBufferCommittedBytes))
}

func TestComputePingPongBarrierCount(t *testing.T) {
	stats := newStatsRecorder()
	device, _ := newTestDevice(t, stats)
	pool := newTestPool(t, device, queueMain)

	output, err := device.AllocateBuffer(&BufferSetup{Size: mib, Usage: storageUsage})
	require.NoError(t, err)
	defer output.Destroy()

	job := pool.CreateJob(0, "pingpong")

	input, err := job.AllocatePreinitializedBuffer(mib, types.BufferUsageUniform)
	require.NoError(t, err)
	temp := job.AllocateLocalBuffer(&BufferSetup{Size: mib, Usage: storageUsage})

	job.CmdExecuteComputePass(&ComputePassSetup{
		BufferAccesses: []BufferComputeAccess{
			{Buffer: input, AccessMask: types.ComputeAccessShaderStorageRead},
			{Buffer: temp, AccessMask: types.ComputeAccessShaderStorageWrite},
		},
	}, func(cl *CommandList) { cl.Dispatch(64, 1, 1) })

	job.CmdExecuteComputePass(&ComputePassSetup{
		BufferAccesses: []BufferComputeAccess{
			{Buffer: temp, AccessMask: types.ComputeAccessShaderStorageRead},
			{Buffer: output.FullView(), AccessMask: types.ComputeAccessShaderStorageWrite},
		},
	}, func(cl *CommandList) { cl.Dispatch(64, 1, 1) })

	job.CmdExportBuffer(output.FullView(), types.ReadAccessHost, queueMain)

	_, err = device.EnqueueJob(queueMain, job, nil, nil, nil)
	require.NoError(t, err)
	require.NoError(t, device.SubmitQueuedJobs(queueMain))

	// One barrier between the passes, one before the host export.
	assert.Equal(t, uint64(2), stats.value("pingpong", StatisticJobPipelineBarriersInserted))
}

func TestCrossQueueExportBarrierCounts(t *testing.T) {
	stats := newStatsRecorder()
	device, _ := newTestDevice(t, stats)
	poolA := newTestPool(t, device, queueMain)
	poolB, err := device.NewJobResourcePool(&JobResourcePoolSetup{Queue: queueAsync, DebugName: "poolB"})
	require.NoError(t, err)
	t.Cleanup(poolB.Destroy)

	payload := make([]byte, 256)
	for i := range payload {
		payload[i] = byte(i)
	}

	shared, err := device.AllocateBuffer(&BufferSetup{Size: mib, Usage: copySrcDst})
	require.NoError(t, err)
	defer shared.Destroy()

	readback, err := device.AllocateBuffer(&BufferSetup{
		Size: uint64(len(payload)), Usage: types.BufferUsageTransferDst, HostMapped: true,
	})
	require.NoError(t, err)
	defer readback.Destroy()

	// Queue A writes the buffer and exports it to queue B's family.
	jobA := poolA.CreateJob(0, "producer")
	jobA.CmdUpdateBuffer(shared.FullView(), payload)
	jobA.CmdExportBuffer(shared.FullView(), types.ReadAccessTransfer, queueAsync)

	semA, err := device.EnqueueJob(queueMain, jobA, nil, nil, nil)
	require.NoError(t, err)
	require.NoError(t, device.SubmitQueuedJobs(queueMain))

	// Queue B waits on the producer and reads via copy.
	jobB := poolB.CreateJob(0, "consumer")
	jobB.CmdCopyBuffer(shared.FullView(), readback.FullView(),
		[]types.BufferCopyRegion{{Size: uint64(len(payload))}})

	semB, err := device.EnqueueJob(queueAsync, jobB, []JobSemaphore{semA}, nil, nil)
	require.NoError(t, err)
	require.NoError(t, device.SubmitQueuedJobs(queueAsync))

	ok, err := device.WaitForJobSemaphores([]JobSemaphore{semB}, true, NoTimeout)
	require.NoError(t, err)
	require.True(t, ok)

	// Producer: the end-of-job state transition plus the pure ownership
	// transfer release. Consumer: the acquire barrier only.
	assert.Equal(t, uint64(2), stats.value("producer", StatisticJobPipelineBarriersInserted))
	assert.Equal(t, uint64(1), stats.value("consumer", StatisticJobPipelineBarriersInserted))

	assert.Equal(t, payload, readback.MappedData())
}

func TestLayoutTransitionCoalescing(t *testing.T) {
	stats := newStatsRecorder()
	device, _ := newTestDevice(t, stats)
	pool := newTestPool(t, device, queueMain)

	job := pool.CreateJob(0, "layers")
	image := job.AllocateLocalImage(&ImageSetup{
		Type:            types.ImageType2D,
		Format:          types.FormatR8G8B8A8Unorm,
		Extent:          types.Extent3D{Width: 64, Height: 64, Depth: 1},
		MipLevelCount:   1,
		ArrayLayerCount: 4,
		SampleCount:     1,
		Usage:           types.ImageUsageTransferSrc | types.ImageUsageTransferDst,
	})

	wholeImage := types.ImageSubresourceRange{
		AspectMask: types.AspectColor, MipLevelCount: 1, ArrayLayerCount: 4,
	}
	layer := func(index uint32) types.ImageSubresourceLayers {
		return types.ImageSubresourceLayers{
			AspectMask: types.AspectColor, MipLevel: 0, BaseArrayLayer: index, ArrayLayerCount: 1,
		}
	}
	extent := types.Extent3D{Width: 64, Height: 64, Depth: 1}

	job.CmdClearImage(image, types.ClearColorF(0, 0, 0, 1), []types.ImageSubresourceRange{wholeImage})
	job.CmdCopyImage(image, image, []types.ImageCopyRegion{
		{SrcSubresource: layer(0), DstSubresource: layer(1), Extent: extent},
	})
	job.CmdCopyImage(image, image, []types.ImageCopyRegion{
		{SrcSubresource: layer(0), DstSubresource: layer(2), Extent: extent},
	})
	job.CmdDiscardImageContents(image, types.ImageSubresourceRange{
		AspectMask: types.AspectColor, MipLevelCount: 1, BaseArrayLayer: 0, ArrayLayerCount: 1,
	})
	job.CmdCopyImage(image, image, []types.ImageCopyRegion{
		{SrcSubresource: layer(3), DstSubresource: layer(0), Extent: extent},
	})

	_, err := device.EnqueueJob(queueMain, job, nil, nil, nil)
	require.NoError(t, err)
	require.NoError(t, device.SubmitQueuedJobs(queueMain))

	// Undefined->TransferDst for the clear, one coalesced
	// TransferDst->TransferSrc for the copies, TransferSrc->TransferDst
	// for the last copy's destination.
	assert.Equal(t, uint64(3), stats.value("layers", StatisticJobPipelineBarriersInserted))
}

func TestIdenticalRecordingsProduceIdenticalBarrierCounts(t *testing.T) {
	record := func() uint64 {
		stats := newStatsRecorder()
		device, _ := newTestDevice(t, stats)
		pool := newTestPool(t, device, queueMain)

		job := pool.CreateJob(0, "repeat")
		a := job.AllocateLocalBuffer(&BufferSetup{Size: mib, Usage: storageUsage})
		b := job.AllocateLocalBuffer(&BufferSetup{Size: mib, Usage: storageUsage})
		job.CmdFillBuffer(a, 7)
		job.CmdCopyBuffer(a, b, []types.BufferCopyRegion{{Size: mib}})
		job.CmdExecuteComputePass(&ComputePassSetup{
			BufferAccesses: []BufferComputeAccess{
				{Buffer: b, AccessMask: types.ComputeAccessShaderStorageRead},
				{Buffer: a, AccessMask: types.ComputeAccessShaderStorageWrite},
			},
		}, nil)

		_, err := device.EnqueueJob(queueMain, job, nil, nil, nil)
		require.NoError(t, err)
		require.NoError(t, device.SubmitQueuedJobs(queueMain))
		return stats.value("repeat", StatisticJobPipelineBarriersInserted)
	}
	assert.Equal(t, record(), record())
}

func TestSmallJobsFoldIntoOneSubmit(t *testing.T) {
	device, driver := newTestDevice(t, nil)
	pool := newTestPool(t, device, queueMain)

	for i, flags := range []JobFlags{0, JobFlagSmall, JobFlagSmall} {
		job := pool.CreateJob(flags, "batch")
		view := job.AllocateLocalBuffer(&BufferSetup{Size: 256, Usage: copySrcDst})
		job.CmdFillBuffer(view, uint32(i))
		_, err := device.EnqueueJob(queueMain, job, nil, nil, nil)
		require.NoError(t, err)
	}
	require.NoError(t, device.SubmitQueuedJobs(queueMain))
	assert.Equal(t, 1, driver.Counters().Submits)

	// A trailing job with waits starts its own submit entry.
	jobA := pool.CreateJob(0, "first")
	semA, err := device.EnqueueJob(queueMain, jobA, nil, nil, nil)
	require.NoError(t, err)

	jobB := pool.CreateJob(JobFlagSmall, "waiting")
	_, err = device.EnqueueJob(queueMain, jobB, []JobSemaphore{semA}, nil, nil)
	require.NoError(t, err)

	require.NoError(t, device.SubmitQueuedJobs(queueMain))
	assert.Equal(t, 3, driver.Counters().Submits)
}

func TestWriteTimestampQuery(t *testing.T) {
	device, _ := newTestDevice(t, nil)
	pool := newTestPool(t, device, queueMain)

	queries, err := device.NewTimestampQueryPool(4)
	require.NoError(t, err)
	defer queries.Destroy()

	query := queries.Allocate()
	require.NotNil(t, query)

	job := pool.CreateJob(0, "timing")
	job.CmdWriteTimestamp(query, types.StageBottomOfPipe)

	_, err = device.EnqueueJob(queueMain, job, nil, nil, nil)
	require.NoError(t, err)
	require.NoError(t, device.SubmitQueuedJobs(queueMain))

	_, available := query.Result()
	assert.True(t, available)
}

func TestPoolTrimReclaimsIdleBackings(t *testing.T) {
	device, _ := newTestDevice(t, nil)
	pool := newTestPool(t, device, queueMain)

	job := pool.CreateJob(0, "trimmed")
	view := job.AllocateLocalBuffer(&BufferSetup{Size: mib, Usage: copySrcDst})
	job.CmdFillBuffer(view, 1)

	sem, err := device.EnqueueJob(queueMain, job, nil, nil, nil)
	require.NoError(t, err)
	require.NoError(t, device.SubmitQueuedJobs(queueMain))
	require.NoError(t, device.Update())

	require.Greater(t, pool.Statistics().BufferAllocationBytes, uint64(0))

	freed := pool.Trim(JobSemaphore{})
	assert.Equal(t, mib, freed)
	assert.Equal(t, uint64(0), pool.Statistics().BufferAllocationBytes)
	_ = sem
}

func TestOrphanedJobCannotBeEnqueued(t *testing.T) {
	device, _ := newTestDevice(t, nil)
	pool, err := device.NewJobResourcePool(&JobResourcePoolSetup{Queue: queueMain})
	require.NoError(t, err)

	job := pool.CreateJob(0, "orphan")
	pool.Destroy()

	_, err = device.EnqueueJob(queueMain, job, nil, nil, nil)
	assert.ErrorIs(t, err, ErrOrphaned)
}
