// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package vulkan

import (
	"sync"
	"time"
	"unsafe"

	"github.com/gogpu/tephra/hal"
	"github.com/gogpu/tephra/hal/vulkan/vk"
)

// apiVersion12 is VK_API_VERSION_1_2.
const apiVersion12 = uint32(1)<<22 | uint32(2)<<12

func init() {
	hal.RegisterDriver("vulkan", func() (hal.Device, error) {
		return NewDevice()
	})
}

type bufferData struct {
	memory vk.DeviceMemory
	size   uint64
	mapped []byte
}

type imageData struct {
	memory vk.DeviceMemory // null for aliased images
}

// Device implements hal.Device on Vulkan.
type Device struct {
	cmds           *vk.Commands
	instance       vk.Instance
	physicalDevice vk.PhysicalDevice
	device         vk.Device
	memProps       vk.PhysicalDeviceMemoryProperties
	pipelineLayout vk.PipelineLayout

	mu      sync.Mutex
	queues  map[hal.Queue]vk.Queue
	buffers map[hal.Buffer]*bufferData
	images  map[hal.Image]*imageData
}

// NewDevice loads the Vulkan library, creates an instance, picks the
// first physical device and opens a logical device with one queue per
// queue family.
func NewDevice() (*Device, error) {
	if err := vk.Init(); err != nil {
		hal.Logger().Error("vulkan: loader initialization failed", "error", err)
		return nil, hal.ErrInitializationFailed
	}

	cmds := vk.NewCommands()
	cmds.LoadGlobal()

	engineName := []byte("tephra\x00")
	appInfo := vk.ApplicationInfo{
		SType:       vk.StructureTypeApplicationInfo,
		PEngineName: unsafe.Pointer(&engineName[0]),
		APIVersion:  apiVersion12,
	}
	instanceInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: &appInfo,
	}
	var instance vk.Instance
	if result := cmds.CreateInstance(&instanceInfo, &instance); result != vk.Success {
		return nil, convertResult(result)
	}
	cmds.LoadInstance(instance)

	// Pick the first physical device.
	var count uint32
	if result := cmds.EnumeratePhysicalDevices(instance, &count, nil); result != vk.Success || count == 0 {
		cmds.DestroyInstance(instance)
		return nil, hal.ErrInitializationFailed
	}
	physicalDevices := make([]vk.PhysicalDevice, count)
	if result := cmds.EnumeratePhysicalDevices(instance, &count, &physicalDevices[0]); result != vk.Success {
		cmds.DestroyInstance(instance)
		return nil, convertResult(result)
	}
	physicalDevice := physicalDevices[0]

	// One queue from every family; the engine decides which families its
	// logical queues map to.
	var familyCount uint32
	cmds.GetPhysicalDeviceQueueFamilyProperties(physicalDevice, &familyCount, nil)
	if familyCount == 0 {
		cmds.DestroyInstance(instance)
		return nil, hal.ErrInitializationFailed
	}
	families := make([]vk.QueueFamilyProperties, familyCount)
	cmds.GetPhysicalDeviceQueueFamilyProperties(physicalDevice, &familyCount, &families[0])

	priority := float32(1.0)
	queueInfos := make([]vk.DeviceQueueCreateInfo, familyCount)
	for i := range queueInfos {
		queueInfos[i] = vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: uint32(i),
			QueueCount:       1,
			PQueuePriorities: &priority,
		}
	}

	timelineFeature := vk.PhysicalDeviceTimelineSemaphoreFeatures{
		SType:             vk.StructureTypePhysicalDeviceTimelineSemaphoreFeatures,
		TimelineSemaphore: 1,
	}
	deviceInfo := vk.DeviceCreateInfo{
		SType:                vk.StructureTypeDeviceCreateInfo,
		PNext:                unsafe.Pointer(&timelineFeature),
		QueueCreateInfoCount: familyCount,
		PQueueCreateInfos:    &queueInfos[0],
	}
	var device vk.Device
	if result := cmds.CreateDevice(physicalDevice, &deviceInfo, &device); result != vk.Success {
		cmds.DestroyInstance(instance)
		return nil, convertResult(result)
	}
	cmds.LoadDevice(device)
	if !cmds.HasTimelineSemaphore() {
		cmds.DestroyDevice(device)
		cmds.DestroyInstance(instance)
		return nil, hal.ErrFeatureNotPresent
	}

	d := &Device{
		cmds:           cmds,
		instance:       instance,
		physicalDevice: physicalDevice,
		device:         device,
		queues:         map[hal.Queue]vk.Queue{},
		buffers:        map[hal.Buffer]*bufferData{},
		images:         map[hal.Image]*imageData{},
	}
	cmds.GetPhysicalDeviceMemoryProperties(physicalDevice, &d.memProps)

	// An empty pipeline layout serves the descriptor-less compute path.
	layoutInfo := vk.PipelineLayoutCreateInfo{SType: vk.StructureTypePipelineLayoutCreateInfo}
	if result := cmds.CreatePipelineLayout(device, &layoutInfo, &d.pipelineLayout); result != vk.Success {
		cmds.DestroyDevice(device)
		cmds.DestroyInstance(instance)
		return nil, convertResult(result)
	}

	hal.Logger().Info("vulkan: device opened", "queueFamilies", familyCount)
	return d, nil
}

// findMemoryType picks a memory type satisfying the type bits and
// property flags.
func (d *Device) findMemoryType(typeBits uint32, properties uint32) (uint32, bool) {
	for i := uint32(0); i < d.memProps.MemoryTypeCount; i++ {
		if typeBits&(1<<i) == 0 {
			continue
		}
		if d.memProps.MemoryTypes[i].PropertyFlags&properties == properties {
			return i, true
		}
	}
	return 0, false
}

// CreateBuffer creates a buffer with bound memory.
func (d *Device) CreateBuffer(setup *hal.BufferSetup) (hal.Buffer, error) {
	info := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        setup.Size,
		Usage:       convertBufferUsage(setup.Usage),
		SharingMode: vk.SharingModeExclusive,
	}
	var buffer vk.Buffer
	if result := d.cmds.CreateBuffer(d.device, &info, &buffer); result != vk.Success {
		return 0, convertResult(result)
	}

	var requirements vk.MemoryRequirements
	d.cmds.GetBufferMemoryRequirements(d.device, buffer, &requirements)

	properties := vk.MemoryPropertyDeviceLocal
	if setup.HostMapped {
		properties = vk.MemoryPropertyHostVisible | vk.MemoryPropertyHostCoherent
	}
	typeIndex, ok := d.findMemoryType(requirements.MemoryTypeBits, properties)
	if !ok {
		d.cmds.DestroyBuffer(d.device, buffer)
		return 0, hal.ErrFeatureNotPresent
	}

	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  requirements.Size,
		MemoryTypeIndex: typeIndex,
	}
	var memory vk.DeviceMemory
	if result := d.cmds.AllocateMemory(d.device, &allocInfo, &memory); result != vk.Success {
		d.cmds.DestroyBuffer(d.device, buffer)
		return 0, convertResult(result)
	}
	if result := d.cmds.BindBufferMemory(d.device, buffer, memory, 0); result != vk.Success {
		d.cmds.FreeMemory(d.device, memory)
		d.cmds.DestroyBuffer(d.device, buffer)
		return 0, convertResult(result)
	}

	data := &bufferData{memory: memory, size: setup.Size}
	if setup.HostMapped {
		var ptr unsafe.Pointer
		if result := d.cmds.MapMemory(d.device, memory, 0, vk.WholeSize, &ptr); result != vk.Success {
			d.cmds.FreeMemory(d.device, memory)
			d.cmds.DestroyBuffer(d.device, buffer)
			return 0, convertResult(result)
		}
		data.mapped = unsafe.Slice((*byte)(ptr), setup.Size)
	}

	d.mu.Lock()
	d.buffers[hal.Buffer(buffer)] = data
	d.mu.Unlock()
	return hal.Buffer(buffer), nil
}

// DestroyBuffer destroys a buffer and frees its memory.
func (d *Device) DestroyBuffer(buffer hal.Buffer) {
	d.mu.Lock()
	data := d.buffers[buffer]
	delete(d.buffers, buffer)
	d.mu.Unlock()

	d.cmds.DestroyBuffer(d.device, vk.Buffer(buffer))
	if data != nil && data.memory != 0 {
		d.cmds.FreeMemory(d.device, data.memory)
	}
}

// MapBuffer returns the persistent host mapping of a host-mapped buffer.
func (d *Device) MapBuffer(buffer hal.Buffer) ([]byte, error) {
	d.mu.Lock()
	data := d.buffers[buffer]
	d.mu.Unlock()
	if data == nil || data.mapped == nil {
		return nil, hal.ErrMemoryMapFailed
	}
	return data.mapped, nil
}

func (d *Device) imageCreateInfo(setup *hal.ImageSetup) vk.ImageCreateInfo {
	samples := setup.SampleCount
	if samples == 0 {
		samples = vk.SampleCount1
	}
	mips := setup.MipLevelCount
	if mips == 0 {
		mips = 1
	}
	layers := setup.ArrayLayerCount
	if layers == 0 {
		layers = 1
	}
	return vk.ImageCreateInfo{
		SType:       vk.StructureTypeImageCreateInfo,
		ImageType:   uint32(setup.Type),
		Format:      convertFormat(setup.Format),
		Extent:      convertExtent(setup.Extent),
		MipLevels:   mips,
		ArrayLayers: layers,
		Samples:     samples,
		Tiling:      vk.ImageTilingOptimal,
		Usage:       convertImageUsage(setup.Usage),
		SharingMode: vk.SharingModeExclusive,
	}
}

// GetImageMemoryRequirements reports the backing store an image with this
// setup would need, via a throwaway image.
func (d *Device) GetImageMemoryRequirements(setup *hal.ImageSetup) hal.MemoryRequirements {
	info := d.imageCreateInfo(setup)
	var image vk.Image
	if result := d.cmds.CreateImage(d.device, &info, &image); result != vk.Success {
		return hal.MemoryRequirements{}
	}
	var requirements vk.MemoryRequirements
	d.cmds.GetImageMemoryRequirements(d.device, image, &requirements)
	d.cmds.DestroyImage(d.device, image)
	return hal.MemoryRequirements{Size: requirements.Size, Alignment: requirements.Alignment}
}

// AllocateMemory allocates device-local memory for aliased images.
func (d *Device) AllocateMemory(size uint64) (hal.Memory, error) {
	typeIndex, ok := d.findMemoryType(^uint32(0), vk.MemoryPropertyDeviceLocal)
	if !ok {
		return 0, hal.ErrFeatureNotPresent
	}
	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  size,
		MemoryTypeIndex: typeIndex,
	}
	var memory vk.DeviceMemory
	if result := d.cmds.AllocateMemory(d.device, &allocInfo, &memory); result != vk.Success {
		return 0, convertResult(result)
	}
	return hal.Memory(memory), nil
}

// FreeMemory frees a memory allocation.
func (d *Device) FreeMemory(memory hal.Memory) {
	d.cmds.FreeMemory(d.device, vk.DeviceMemory(memory))
}

// CreateImage creates an image with dedicated memory.
func (d *Device) CreateImage(setup *hal.ImageSetup) (hal.Image, error) {
	info := d.imageCreateInfo(setup)
	var image vk.Image
	if result := d.cmds.CreateImage(d.device, &info, &image); result != vk.Success {
		return 0, convertResult(result)
	}
	var requirements vk.MemoryRequirements
	d.cmds.GetImageMemoryRequirements(d.device, image, &requirements)

	typeIndex, ok := d.findMemoryType(requirements.MemoryTypeBits, vk.MemoryPropertyDeviceLocal)
	if !ok {
		d.cmds.DestroyImage(d.device, image)
		return 0, hal.ErrFeatureNotPresent
	}
	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  requirements.Size,
		MemoryTypeIndex: typeIndex,
	}
	var memory vk.DeviceMemory
	if result := d.cmds.AllocateMemory(d.device, &allocInfo, &memory); result != vk.Success {
		d.cmds.DestroyImage(d.device, image)
		return 0, convertResult(result)
	}
	if result := d.cmds.BindImageMemory(d.device, image, memory, 0); result != vk.Success {
		d.cmds.FreeMemory(d.device, memory)
		d.cmds.DestroyImage(d.device, image)
		return 0, convertResult(result)
	}

	d.mu.Lock()
	d.images[hal.Image(image)] = &imageData{memory: memory}
	d.mu.Unlock()
	return hal.Image(image), nil
}

// CreateAliasedImage creates an image bound into an existing allocation.
func (d *Device) CreateAliasedImage(setup *hal.ImageSetup, memory hal.Memory, offset uint64) (hal.Image, error) {
	info := d.imageCreateInfo(setup)
	var image vk.Image
	if result := d.cmds.CreateImage(d.device, &info, &image); result != vk.Success {
		return 0, convertResult(result)
	}
	if result := d.cmds.BindImageMemory(d.device, image, vk.DeviceMemory(memory), offset); result != vk.Success {
		d.cmds.DestroyImage(d.device, image)
		return 0, convertResult(result)
	}

	d.mu.Lock()
	d.images[hal.Image(image)] = &imageData{}
	d.mu.Unlock()
	return hal.Image(image), nil
}

// DestroyImage destroys an image; aliased images leave the shared memory
// alone.
func (d *Device) DestroyImage(image hal.Image) {
	d.mu.Lock()
	data := d.images[image]
	delete(d.images, image)
	d.mu.Unlock()

	d.cmds.DestroyImage(d.device, vk.Image(image))
	if data != nil && data.memory != 0 {
		d.cmds.FreeMemory(d.device, data.memory)
	}
}

// CreateShaderModule creates a shader module from SPIR-V words.
func (d *Device) CreateShaderModule(spirv []uint32) (hal.ShaderModule, error) {
	if len(spirv) == 0 {
		return 0, hal.ErrInvalidExternalHandle
	}
	info := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uintptr(len(spirv) * 4),
		PCode:    &spirv[0],
	}
	var module vk.ShaderModule
	if result := d.cmds.CreateShaderModule(d.device, &info, &module); result != vk.Success {
		return 0, convertResult(result)
	}
	return hal.ShaderModule(module), nil
}

// DestroyShaderModule destroys a shader module.
func (d *Device) DestroyShaderModule(module hal.ShaderModule) {
	d.cmds.DestroyShaderModule(d.device, vk.ShaderModule(module))
}

// CreateComputePipeline creates a compute pipeline against the shared
// empty layout.
func (d *Device) CreateComputePipeline(module hal.ShaderModule, entryPoint string) (hal.Pipeline, error) {
	name := make([]byte, len(entryPoint)+1)
	copy(name, entryPoint)

	info := vk.ComputePipelineCreateInfo{
		SType: vk.StructureTypeComputePipelineCreateInfo,
		Stage: vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageCompute,
			Module: vk.ShaderModule(module),
			PName:  unsafe.Pointer(&name[0]),
		},
		Layout:            d.pipelineLayout,
		BasePipelineIndex: -1,
	}
	var pipeline vk.Pipeline
	if result := d.cmds.CreateComputePipelines(d.device, &info, &pipeline); result != vk.Success {
		return 0, convertResult(result)
	}
	if pipeline == 0 {
		// Some drivers return success with a null handle.
		return 0, hal.ErrInitializationFailed
	}
	return hal.Pipeline(pipeline), nil
}

// DestroyPipeline destroys a pipeline.
func (d *Device) DestroyPipeline(pipeline hal.Pipeline) {
	d.cmds.DestroyPipeline(d.device, vk.Pipeline(pipeline))
}

// CreateQueryPool creates a timestamp query pool.
func (d *Device) CreateQueryPool(queryCount uint32) (hal.QueryPool, error) {
	info := vk.QueryPoolCreateInfo{
		SType:      vk.StructureTypeQueryPoolCreateInfo,
		QueryType:  vk.QueryTypeTimestamp,
		QueryCount: queryCount,
	}
	var pool vk.QueryPool
	if result := d.cmds.CreateQueryPool(d.device, &info, &pool); result != vk.Success {
		return 0, convertResult(result)
	}
	return hal.QueryPool(pool), nil
}

// DestroyQueryPool destroys a query pool.
func (d *Device) DestroyQueryPool(pool hal.QueryPool) {
	d.cmds.DestroyQueryPool(d.device, vk.QueryPool(pool))
}

// GetQueryResult reads one timestamp query with availability.
func (d *Device) GetQueryResult(pool hal.QueryPool, query uint32) (uint64, bool) {
	var data [2]uint64
	result := d.cmds.GetQueryPoolResults(d.device, vk.QueryPool(pool), query, 1,
		16, unsafe.Pointer(&data[0]), 16, vk.QueryResult64|vk.QueryResultAvailability)
	if result != vk.Success || data[1] == 0 {
		return 0, false
	}
	return data[0], true
}

// CreateTimelineSemaphore creates a timeline semaphore.
func (d *Device) CreateTimelineSemaphore(initialValue uint64) (hal.Semaphore, error) {
	typeInfo := vk.SemaphoreTypeCreateInfo{
		SType:         vk.StructureTypeSemaphoreTypeCreateInfo,
		SemaphoreType: vk.SemaphoreTypeTimeline,
		InitialValue:  initialValue,
	}
	info := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
		PNext: unsafe.Pointer(&typeInfo),
	}
	var semaphore vk.Semaphore
	if result := d.cmds.CreateSemaphore(d.device, &info, &semaphore); result != vk.Success {
		return 0, convertResult(result)
	}
	return hal.Semaphore(semaphore), nil
}

// DestroySemaphore destroys a semaphore.
func (d *Device) DestroySemaphore(semaphore hal.Semaphore) {
	d.cmds.DestroySemaphore(d.device, vk.Semaphore(semaphore))
}

// GetSemaphoreCounterValue reads a timeline semaphore's value.
func (d *Device) GetSemaphoreCounterValue(semaphore hal.Semaphore) (uint64, error) {
	var value uint64
	result := d.cmds.GetSemaphoreCounterValue(d.device, vk.Semaphore(semaphore), &value)
	return value, convertResult(result)
}

// WaitForSemaphores blocks on timeline semaphore values.
func (d *Device) WaitForSemaphores(semaphores []hal.Semaphore, values []uint64, waitAll bool, timeout time.Duration) (bool, error) {
	if len(semaphores) == 0 {
		return true, nil
	}
	vkSemaphores := make([]vk.Semaphore, len(semaphores))
	for i, s := range semaphores {
		vkSemaphores[i] = vk.Semaphore(s)
	}

	var flags uint32
	if !waitAll {
		flags = vk.SemaphoreWaitAny
	}
	waitInfo := vk.SemaphoreWaitInfo{
		SType:          vk.StructureTypeSemaphoreWaitInfo,
		Flags:          flags,
		SemaphoreCount: uint32(len(vkSemaphores)),
		PSemaphores:    &vkSemaphores[0],
		PValues:        &values[0],
	}

	nanos := ^uint64(0)
	if timeout >= 0 && timeout < time.Duration(1<<62) {
		nanos = uint64(timeout.Nanoseconds())
	}
	result := d.cmds.WaitSemaphores(d.device, &waitInfo, nanos)
	if result == vk.Timeout {
		return false, nil
	}
	return result == vk.Success, convertResult(result)
}

// SignalSemaphore signals a timeline semaphore from the host.
func (d *Device) SignalSemaphore(semaphore hal.Semaphore, value uint64) error {
	info := vk.SemaphoreSignalInfo{
		SType:     vk.StructureTypeSemaphoreSignalInfo,
		Semaphore: vk.Semaphore(semaphore),
		Value:     value,
	}
	return convertResult(d.cmds.SignalSemaphore(d.device, &info))
}

// CreateCommandPool creates a transient command pool.
func (d *Device) CreateCommandPool(queueFamilyIndex uint32) (hal.CommandPool, error) {
	info := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		Flags:            vk.CommandPoolCreateTransient,
		QueueFamilyIndex: queueFamilyIndex,
	}
	var pool vk.CommandPool
	if result := d.cmds.CreateCommandPool(d.device, &info, &pool); result != vk.Success {
		return 0, convertResult(result)
	}
	return hal.CommandPool(pool), nil
}

// ResetCommandPool recycles the pool's command buffers.
func (d *Device) ResetCommandPool(pool hal.CommandPool) error {
	return convertResult(d.cmds.ResetCommandPool(d.device, vk.CommandPool(pool)))
}

// DestroyCommandPool destroys a command pool.
func (d *Device) DestroyCommandPool(pool hal.CommandPool) {
	d.cmds.DestroyCommandPool(d.device, vk.CommandPool(pool))
}

// AllocateCommandBuffer allocates one primary command buffer.
func (d *Device) AllocateCommandBuffer(pool hal.CommandPool) (hal.CommandBuffer, error) {
	info := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        vk.CommandPool(pool),
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}
	var cb vk.CommandBuffer
	if result := d.cmds.AllocateCommandBuffers(d.device, &info, &cb); result != vk.Success {
		return 0, convertResult(result)
	}
	return hal.CommandBuffer(cb), nil
}

// BeginCommandBuffer begins one-time-submit recording.
func (d *Device) BeginCommandBuffer(cb hal.CommandBuffer) error {
	info := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageOneTimeSubmit,
	}
	return convertResult(d.cmds.BeginCommandBuffer(vk.CommandBuffer(cb), &info))
}

// EndCommandBuffer finishes recording.
func (d *Device) EndCommandBuffer(cb hal.CommandBuffer) error {
	return convertResult(d.cmds.EndCommandBuffer(vk.CommandBuffer(cb)))
}

func (d *Device) deviceQueue(queue hal.Queue) vk.Queue {
	d.mu.Lock()
	defer d.mu.Unlock()
	if cached, ok := d.queues[queue]; ok {
		return cached
	}
	var vkQueue vk.Queue
	d.cmds.GetDeviceQueue(d.device, queue.FamilyIndex, queue.Index, &vkQueue)
	d.queues[queue] = vkQueue
	return vkQueue
}

// QueueSubmit submits the batch with timeline semaphore values.
func (d *Device) QueueSubmit(queue hal.Queue, batch *hal.SubmitBatch) error {
	if len(batch.Entries) == 0 {
		return nil
	}
	vkQueue := d.deviceQueue(queue)

	waitSemaphores := make([]vk.Semaphore, len(batch.WaitSemaphores))
	waitStages := make([]uint32, len(batch.WaitSemaphores))
	for i, s := range batch.WaitSemaphores {
		waitSemaphores[i] = vk.Semaphore(s)
		waitStages[i] = uint32(batch.WaitStageMasks[i])
	}
	signalSemaphores := make([]vk.Semaphore, len(batch.SignalSemaphores))
	for i, s := range batch.SignalSemaphores {
		signalSemaphores[i] = vk.Semaphore(s)
	}
	commandBuffers := make([]vk.CommandBuffer, len(batch.CommandBuffers))
	for i, cb := range batch.CommandBuffers {
		commandBuffers[i] = vk.CommandBuffer(cb)
	}

	submits := make([]vk.SubmitInfo, len(batch.Entries))
	timelineInfos := make([]vk.TimelineSemaphoreSubmitInfo, len(batch.Entries))
	for i, entry := range batch.Entries {
		timeline := &timelineInfos[i]
		*timeline = vk.TimelineSemaphoreSubmitInfo{
			SType:                     vk.StructureTypeTimelineSemaphoreSubmitInfo,
			WaitSemaphoreValueCount:   entry.WaitCount,
			SignalSemaphoreValueCount: entry.SignalCount,
		}
		if entry.WaitCount > 0 {
			timeline.PWaitSemaphoreValues = &batch.WaitValues[entry.WaitOffset]
		}
		if entry.SignalCount > 0 {
			timeline.PSignalSemaphoreValues = &batch.SignalValues[entry.SignalOffset]
		}

		submit := &submits[i]
		*submit = vk.SubmitInfo{
			SType:                vk.StructureTypeSubmitInfo,
			PNext:                unsafe.Pointer(timeline),
			WaitSemaphoreCount:   entry.WaitCount,
			CommandBufferCount:   entry.CommandBufferCount,
			SignalSemaphoreCount: entry.SignalCount,
		}
		if entry.WaitCount > 0 {
			submit.PWaitSemaphores = &waitSemaphores[entry.WaitOffset]
			submit.PWaitDstStageMask = &waitStages[entry.WaitOffset]
		}
		if entry.CommandBufferCount > 0 {
			submit.PCommandBuffers = &commandBuffers[entry.CommandBufferOffset]
		}
		if entry.SignalCount > 0 {
			submit.PSignalSemaphores = &signalSemaphores[entry.SignalOffset]
		}
	}

	return convertResult(d.cmds.QueueSubmit(vkQueue, uint32(len(submits)), &submits[0], 0))
}

// WaitForDeviceIdle blocks until all queues are idle.
func (d *Device) WaitForDeviceIdle() error {
	return convertResult(d.cmds.DeviceWaitIdle(d.device))
}

// Destroy tears down the device and the instance.
func (d *Device) Destroy() {
	d.cmds.DestroyPipelineLayout(d.device, d.pipelineLayout)
	d.cmds.DestroyDevice(d.device)
	d.cmds.DestroyInstance(d.instance)
}
