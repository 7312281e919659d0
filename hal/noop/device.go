package noop

import (
	"sync"
	"time"

	"github.com/gogpu/tephra/hal"
	"github.com/gogpu/tephra/types"
)

// Counters aggregate what the device has executed, for tests and
// diagnostics.
type Counters struct {
	Submits          int
	CommandBuffers   int
	PipelineBarriers int
	BufferBarriers   int
	ImageBarriers    int
}

type bufferObject struct {
	setup hal.BufferSetup
	data  []byte
}

type subresourceKey struct {
	mipLevel   uint32
	arrayLayer uint32
}

type imageObject struct {
	setup        hal.ImageSetup
	subresources map[subresourceKey][]byte
}

type commandBufferObject struct {
	pool      hal.CommandPool
	commands  []func(d *Device)
	recording bool
}

// Device implements hal.Device in host memory.
type Device struct {
	mu sync.Mutex

	nextHandle uint64

	buffers        map[hal.Buffer]*bufferObject
	images         map[hal.Image]*imageObject
	memories       map[hal.Memory]uint64
	semaphores     map[hal.Semaphore]uint64
	pools          map[hal.CommandPool][]hal.CommandBuffer
	commandBuffers map[hal.CommandBuffer]*commandBufferObject
	shaders        map[hal.ShaderModule]struct{}
	pipelines      map[hal.Pipeline]struct{}
	queryPools     map[hal.QueryPool][]uint64

	counters Counters
}

// NewDevice makes an empty noop device.
func NewDevice() *Device {
	return &Device{
		buffers:        map[hal.Buffer]*bufferObject{},
		images:         map[hal.Image]*imageObject{},
		memories:       map[hal.Memory]uint64{},
		semaphores:     map[hal.Semaphore]uint64{},
		pools:          map[hal.CommandPool][]hal.CommandBuffer{},
		commandBuffers: map[hal.CommandBuffer]*commandBufferObject{},
		shaders:        map[hal.ShaderModule]struct{}{},
		pipelines:      map[hal.Pipeline]struct{}{},
		queryPools:     map[hal.QueryPool][]uint64{},
	}
}

// Counters returns a snapshot of the execution counters.
func (d *Device) Counters() Counters {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.counters
}

func (d *Device) handle() uint64 {
	d.nextHandle++
	return d.nextHandle
}

// CreateBuffer creates a buffer backed by a byte slice.
func (d *Device) CreateBuffer(setup *hal.BufferSetup) (hal.Buffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	buffer := hal.Buffer(d.handle())
	d.buffers[buffer] = &bufferObject{setup: *setup, data: make([]byte, setup.Size)}
	return buffer, nil
}

// DestroyBuffer releases a buffer.
func (d *Device) DestroyBuffer(buffer hal.Buffer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.buffers, buffer)
}

// MapBuffer returns the backing bytes of a host-mapped buffer.
func (d *Device) MapBuffer(buffer hal.Buffer) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	obj, ok := d.buffers[buffer]
	if !ok {
		return nil, hal.ErrMemoryMapFailed
	}
	return obj.data, nil
}

func subresourceExtent(setup *hal.ImageSetup, mipLevel uint32) types.Extent3D {
	shrink := func(v uint32) uint32 {
		v >>= mipLevel
		if v == 0 {
			return 1
		}
		return v
	}
	return types.Extent3D{
		Width:  shrink(setup.Extent.Width),
		Height: shrink(setup.Extent.Height),
		Depth:  shrink(setup.Extent.Depth),
	}
}

func subresourceBytes(setup *hal.ImageSetup, mipLevel uint32) uint64 {
	props := types.GetFormatClassProperties(setup.Format)
	extent := subresourceExtent(setup, mipLevel)
	depth := extent.Depth
	if depth == 0 {
		depth = 1
	}
	return uint64(extent.Width) * uint64(extent.Height) * uint64(depth) * uint64(props.TexelBlockBytes)
}

func (d *Device) newImageLocked(setup *hal.ImageSetup) hal.Image {
	image := hal.Image(d.handle())
	obj := &imageObject{setup: *setup, subresources: map[subresourceKey][]byte{}}
	for mip := uint32(0); mip < setup.MipLevelCount; mip++ {
		size := subresourceBytes(setup, mip)
		for layer := uint32(0); layer < setup.ArrayLayerCount; layer++ {
			obj.subresources[subresourceKey{mip, layer}] = make([]byte, size)
		}
	}
	d.images[image] = obj
	return image
}

// GetImageMemoryRequirements reports the linear size of the image.
func (d *Device) GetImageMemoryRequirements(setup *hal.ImageSetup) hal.MemoryRequirements {
	var size uint64
	for mip := uint32(0); mip < setup.MipLevelCount; mip++ {
		size += subresourceBytes(setup, mip) * uint64(setup.ArrayLayerCount)
	}
	return hal.MemoryRequirements{Size: size, Alignment: 256}
}

// AllocateMemory allocates a memory block.
func (d *Device) AllocateMemory(size uint64) (hal.Memory, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	memory := hal.Memory(d.handle())
	d.memories[memory] = size
	return memory, nil
}

// FreeMemory releases a memory block.
func (d *Device) FreeMemory(memory hal.Memory) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.memories, memory)
}

// CreateImage creates an image with its own storage.
func (d *Device) CreateImage(setup *hal.ImageSetup) (hal.Image, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.newImageLocked(setup), nil
}

// CreateAliasedImage creates an image bound to a memory block. The noop
// backend gives every aliased image private storage; aliasing only needs
// to be correct for resources whose uses do not overlap in time, which
// private storage trivially satisfies.
func (d *Device) CreateAliasedImage(setup *hal.ImageSetup, memory hal.Memory, offset uint64) (hal.Image, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.memories[memory]; !ok {
		return 0, hal.ErrInvalidExternalHandle
	}
	return d.newImageLocked(setup), nil
}

// DestroyImage releases an image.
func (d *Device) DestroyImage(image hal.Image) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.images, image)
}

// CreateShaderModule accepts any SPIR-V blob.
func (d *Device) CreateShaderModule(spirv []uint32) (hal.ShaderModule, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	module := hal.ShaderModule(d.handle())
	d.shaders[module] = struct{}{}
	return module, nil
}

// DestroyShaderModule releases a shader module.
func (d *Device) DestroyShaderModule(module hal.ShaderModule) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.shaders, module)
}

// CreateComputePipeline creates a placeholder pipeline.
func (d *Device) CreateComputePipeline(module hal.ShaderModule, entryPoint string) (hal.Pipeline, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	pipeline := hal.Pipeline(d.handle())
	d.pipelines[pipeline] = struct{}{}
	return pipeline, nil
}

// DestroyPipeline releases a pipeline.
func (d *Device) DestroyPipeline(pipeline hal.Pipeline) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.pipelines, pipeline)
}

// CreateQueryPool creates a timestamp query pool.
func (d *Device) CreateQueryPool(queryCount uint32) (hal.QueryPool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	pool := hal.QueryPool(d.handle())
	d.queryPools[pool] = make([]uint64, queryCount)
	return pool, nil
}

// DestroyQueryPool releases a query pool.
func (d *Device) DestroyQueryPool(pool hal.QueryPool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.queryPools, pool)
}

// GetQueryResult returns a written timestamp query value.
func (d *Device) GetQueryResult(pool hal.QueryPool, query uint32) (uint64, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	values, ok := d.queryPools[pool]
	if !ok || int(query) >= len(values) {
		return 0, false
	}
	return values[query], values[query] != 0
}

// CreateTimelineSemaphore creates a counter semaphore.
func (d *Device) CreateTimelineSemaphore(initialValue uint64) (hal.Semaphore, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	semaphore := hal.Semaphore(d.handle())
	d.semaphores[semaphore] = initialValue
	return semaphore, nil
}

// DestroySemaphore releases a semaphore.
func (d *Device) DestroySemaphore(semaphore hal.Semaphore) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.semaphores, semaphore)
}

// GetSemaphoreCounterValue reads a semaphore counter.
func (d *Device) GetSemaphoreCounterValue(semaphore hal.Semaphore) (uint64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.semaphores[semaphore], nil
}

// WaitForSemaphores checks semaphore counters. Device work completes
// synchronously at submit, so there is never anything to block on: the
// result reflects the current counter values.
func (d *Device) WaitForSemaphores(semaphores []hal.Semaphore, values []uint64, waitAll bool, timeout time.Duration) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	satisfied := 0
	for i, semaphore := range semaphores {
		if d.semaphores[semaphore] >= values[i] {
			satisfied++
		}
	}
	if waitAll {
		return satisfied == len(semaphores), nil
	}
	return satisfied > 0, nil
}

// SignalSemaphore signals a semaphore from the host.
func (d *Device) SignalSemaphore(semaphore hal.Semaphore, value uint64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.semaphores[semaphore] < value {
		d.semaphores[semaphore] = value
	}
	return nil
}

// CreateCommandPool creates a command pool.
func (d *Device) CreateCommandPool(queueFamilyIndex uint32) (hal.CommandPool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	pool := hal.CommandPool(d.handle())
	d.pools[pool] = nil
	return pool, nil
}

// ResetCommandPool recycles the pool's command buffers.
func (d *Device) ResetCommandPool(pool hal.CommandPool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, cb := range d.pools[pool] {
		if obj, ok := d.commandBuffers[cb]; ok {
			obj.commands = obj.commands[:0]
			obj.recording = false
		}
	}
	return nil
}

// DestroyCommandPool releases the pool and its command buffers.
func (d *Device) DestroyCommandPool(pool hal.CommandPool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, cb := range d.pools[pool] {
		delete(d.commandBuffers, cb)
	}
	delete(d.pools, pool)
}

// AllocateCommandBuffer allocates a primary command buffer.
func (d *Device) AllocateCommandBuffer(pool hal.CommandPool) (hal.CommandBuffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.pools[pool]; !ok {
		return 0, hal.ErrInvalidExternalHandle
	}
	cb := hal.CommandBuffer(d.handle())
	d.commandBuffers[cb] = &commandBufferObject{pool: pool}
	d.pools[pool] = append(d.pools[pool], cb)
	return cb, nil
}

// BeginCommandBuffer begins recording.
func (d *Device) BeginCommandBuffer(cb hal.CommandBuffer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	obj, ok := d.commandBuffers[cb]
	if !ok {
		return hal.ErrInvalidExternalHandle
	}
	obj.commands = obj.commands[:0]
	obj.recording = true
	return nil
}

// EndCommandBuffer finishes recording.
func (d *Device) EndCommandBuffer(cb hal.CommandBuffer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	obj, ok := d.commandBuffers[cb]
	if !ok {
		return hal.ErrInvalidExternalHandle
	}
	obj.recording = false
	return nil
}

// QueueSubmit executes the batch synchronously: command buffers run in
// order and the signal semaphores advance immediately.
func (d *Device) QueueSubmit(queue hal.Queue, batch *hal.SubmitBatch) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, entry := range batch.Entries {
		d.counters.Submits++
		cbs := batch.CommandBuffers[entry.CommandBufferOffset : entry.CommandBufferOffset+entry.CommandBufferCount]
		for _, cb := range cbs {
			obj, ok := d.commandBuffers[cb]
			if !ok {
				return hal.ErrInvalidExternalHandle
			}
			d.counters.CommandBuffers++
			for _, command := range obj.commands {
				command(d)
			}
		}

		signals := batch.SignalSemaphores[entry.SignalOffset : entry.SignalOffset+entry.SignalCount]
		values := batch.SignalValues[entry.SignalOffset : entry.SignalOffset+entry.SignalCount]
		for i, semaphore := range signals {
			if d.semaphores[semaphore] < values[i] {
				d.semaphores[semaphore] = values[i]
			}
		}
	}
	return nil
}

// WaitForDeviceIdle is trivially satisfied.
func (d *Device) WaitForDeviceIdle() error { return nil }

// Destroy releases the device.
func (d *Device) Destroy() {}
