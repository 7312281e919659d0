// Package tephra is a job execution engine over an explicit Vulkan-class
// graphics API. Applications record GPU work declaratively into Jobs; the
// engine compiles each job into native command buffers with minimal
// pipeline barriers, image layout transitions and cross-queue
// synchronization, relieving the application of resource state tracking,
// queue family ownership transfers and short-lived allocation management.
//
// The typical flow:
//
//	driver, _ := hal.NewDevice("vulkan")
//	device, _ := tephra.NewDevice(&tephra.DeviceSetup{
//	    Driver: driver,
//	    Queues: []tephra.QueueSetup{{Queue: mainQueue, FamilyIndex: 0}},
//	})
//	pool, _ := device.NewJobResourcePool(&tephra.JobResourcePoolSetup{Queue: mainQueue})
//
//	job := pool.CreateJob(0, "upload")
//	staging, _ := job.AllocatePreinitializedBuffer(uint64(len(data)), types.BufferUsageTransferSrc)
//	copy(staging.Data(), data)
//	local := job.AllocateLocalBuffer(&tephra.BufferSetup{Size: uint64(len(data)), Usage: usage})
//	job.CmdCopyBuffer(staging, local, []types.BufferCopyRegion{{Size: uint64(len(data))}})
//
//	semaphore, _ := device.EnqueueJob(mainQueue, job, nil, nil, nil)
//	device.SubmitQueuedJobs(mainQueue)
//	device.WaitForJobSemaphores([]tephra.JobSemaphore{semaphore}, true, tephra.NoTimeout)
//
// Jobs on a queue execute on the device in enqueue order. Cross-queue
// dependencies are expressed through job semaphore waits and resource
// exports; the engine synchronizes lazily and emits the release/acquire
// barrier pairs of queue family ownership transfers on both sides.
package tephra
