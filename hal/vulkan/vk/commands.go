// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package vk

import (
	"unsafe"

	"github.com/go-webgpu/goffi/ffi"
	"github.com/go-webgpu/goffi/types"
)

// Signature templates, reused across functions with identical parameter
// shapes. Vulkan has hundreds of entry points but only a handful of
// distinct signatures among the ones this driver calls.
var (
	sigResultPtrPtrPtr           types.CallInterface
	sigResultHandlePtrPtr        types.CallInterface
	sigResultHandlePtrPtrPtr     types.CallInterface
	sigVoidHandlePtrPtr          types.CallInterface
	sigVoidHandlePtr             types.CallInterface
	sigVoidHandleHandlePtr       types.CallInterface
	sigVoidHandleU32U32Ptr       types.CallInterface
	sigResultHandle3U64          types.CallInterface
	sigResultMapMemory           types.CallInterface
	sigResultHandleHandlePtr     types.CallInterface
	sigResultHandlePtrU64        types.CallInterface
	sigResultHandlePtr           types.CallInterface
	sigResultHandle              types.CallInterface
	sigResultHandleHandleU32     types.CallInterface
	sigResultQueueSubmit         types.CallInterface
	sigVoidCmdPipelineBarrier    types.CallInterface
	sigVoidCmdFillBuffer         types.CallInterface
	sigVoidCmdUpdateBuffer       types.CallInterface
	sigVoidCmdCopyBuffer         types.CallInterface
	sigVoidCmdCopyImage          types.CallInterface
	sigVoidCmdBlitImage          types.CallInterface
	sigVoidCmdCopyBufferToImage  types.CallInterface
	sigVoidCmdCopyImageToBuffer  types.CallInterface
	sigVoidCmdClearImage         types.CallInterface
	sigVoidHandleU32Handle       types.CallInterface
	sigVoidHandleU32U32U32       types.CallInterface
	sigVoidHandleU32HandleU32    types.CallInterface
	sigResultGetQueryPoolResults types.CallInterface
	sigResultCreatePipelines     types.CallInterface
)

func prepare(cif *types.CallInterface, ret *types.TypeDescriptor, args ...*types.TypeDescriptor) error {
	return ffi.PrepareCallInterface(cif, types.DefaultCall, ret, args)
}

func prepareSignatures() error {
	u64 := types.UInt64TypeDescriptor
	u32 := types.UInt32TypeDescriptor
	ptr := types.PointerTypeDescriptor
	result := types.SInt32TypeDescriptor
	void := types.VoidTypeDescriptor

	steps := []error{
		prepare(&sigResultPtrPtrPtr, result, ptr, ptr, ptr),
		prepare(&sigResultHandlePtrPtr, result, u64, ptr, ptr),
		prepare(&sigResultHandlePtrPtrPtr, result, u64, ptr, ptr, ptr),
		prepare(&sigVoidHandlePtrPtr, void, u64, ptr, ptr),
		prepare(&sigVoidHandlePtr, void, u64, ptr),
		prepare(&sigVoidHandleHandlePtr, void, u64, u64, ptr),
		prepare(&sigVoidHandleU32U32Ptr, void, u64, u32, u32, ptr),
		prepare(&sigResultHandle3U64, result, u64, u64, u64, u64),
		prepare(&sigResultMapMemory, result, u64, u64, u64, u64, u32, ptr),
		prepare(&sigResultHandleHandlePtr, result, u64, u64, ptr),
		prepare(&sigResultHandlePtrU64, result, u64, ptr, u64),
		prepare(&sigResultHandlePtr, result, u64, ptr),
		prepare(&sigResultHandle, result, u64),
		prepare(&sigResultHandleHandleU32, result, u64, u64, u32),
		prepare(&sigResultQueueSubmit, result, u64, u32, ptr, u64),
		prepare(&sigVoidCmdPipelineBarrier, void, u64, u32, u32, u32, u32, ptr, u32, ptr, u32, ptr),
		prepare(&sigVoidCmdFillBuffer, void, u64, u64, u64, u64, u32),
		prepare(&sigVoidCmdUpdateBuffer, void, u64, u64, u64, u64, ptr),
		prepare(&sigVoidCmdCopyBuffer, void, u64, u64, u64, u32, ptr),
		prepare(&sigVoidCmdCopyImage, void, u64, u64, u32, u64, u32, u32, ptr),
		prepare(&sigVoidCmdBlitImage, void, u64, u64, u32, u64, u32, u32, ptr, u32),
		prepare(&sigVoidCmdCopyBufferToImage, void, u64, u64, u64, u32, u32, ptr),
		prepare(&sigVoidCmdCopyImageToBuffer, void, u64, u64, u32, u64, u32, ptr),
		prepare(&sigVoidCmdClearImage, void, u64, u64, u32, ptr, u32, ptr),
		prepare(&sigVoidHandleU32Handle, void, u64, u32, u64),
		prepare(&sigVoidHandleU32U32U32, void, u64, u32, u32, u32),
		prepare(&sigVoidHandleU32HandleU32, void, u64, u32, u64, u32),
		prepare(&sigResultGetQueryPoolResults, result, u64, u64, u32, u32, u64, ptr, u64, u32),
		prepare(&sigResultCreatePipelines, result, u64, u64, u32, ptr, ptr, ptr),
	}
	for _, err := range steps {
		if err != nil {
			return err
		}
	}
	return nil
}

// Commands holds resolved Vulkan entry points for one instance/device.
type Commands struct {
	// Global and instance level.
	createInstance                        unsafe.Pointer
	destroyInstance                       unsafe.Pointer
	enumeratePhysicalDevices              unsafe.Pointer
	getPhysicalDeviceQueueFamilyProperties unsafe.Pointer
	getPhysicalDeviceMemoryProperties     unsafe.Pointer
	createDevice                          unsafe.Pointer

	// Device level.
	destroyDevice               unsafe.Pointer
	getDeviceQueue              unsafe.Pointer
	deviceWaitIdle              unsafe.Pointer
	createBuffer                unsafe.Pointer
	destroyBuffer               unsafe.Pointer
	getBufferMemoryRequirements unsafe.Pointer
	createImage                 unsafe.Pointer
	destroyImage                unsafe.Pointer
	getImageMemoryRequirements  unsafe.Pointer
	allocateMemory              unsafe.Pointer
	freeMemory                  unsafe.Pointer
	bindBufferMemory            unsafe.Pointer
	bindImageMemory             unsafe.Pointer
	mapMemory                   unsafe.Pointer
	createSemaphore             unsafe.Pointer
	destroySemaphore            unsafe.Pointer
	getSemaphoreCounterValue    unsafe.Pointer
	waitSemaphores              unsafe.Pointer
	signalSemaphore             unsafe.Pointer
	createCommandPool           unsafe.Pointer
	resetCommandPool            unsafe.Pointer
	destroyCommandPool          unsafe.Pointer
	allocateCommandBuffers      unsafe.Pointer
	beginCommandBuffer          unsafe.Pointer
	endCommandBuffer            unsafe.Pointer
	queueSubmit                 unsafe.Pointer
	createShaderModule          unsafe.Pointer
	destroyShaderModule         unsafe.Pointer
	createPipelineLayout        unsafe.Pointer
	destroyPipelineLayout       unsafe.Pointer
	createComputePipelines      unsafe.Pointer
	destroyPipeline             unsafe.Pointer
	createQueryPool             unsafe.Pointer
	destroyQueryPool            unsafe.Pointer
	getQueryPoolResults         unsafe.Pointer
	cmdPipelineBarrier          unsafe.Pointer
	cmdFillBuffer               unsafe.Pointer
	cmdUpdateBuffer             unsafe.Pointer
	cmdCopyBuffer               unsafe.Pointer
	cmdCopyImage                unsafe.Pointer
	cmdResolveImage             unsafe.Pointer
	cmdBlitImage                unsafe.Pointer
	cmdCopyBufferToImage        unsafe.Pointer
	cmdCopyImageToBuffer        unsafe.Pointer
	cmdClearColorImage          unsafe.Pointer
	cmdClearDepthStencilImage   unsafe.Pointer
	cmdBindPipeline             unsafe.Pointer
	cmdDispatch                 unsafe.Pointer
	cmdWriteTimestamp           unsafe.Pointer
}

// NewCommands makes an empty command table.
func NewCommands() *Commands {
	return &Commands{}
}

// LoadGlobal resolves the functions available before instance creation.
func (c *Commands) LoadGlobal() {
	c.createInstance = GetInstanceProcAddr(0, "vkCreateInstance")
}

// LoadInstance resolves instance-level functions.
func (c *Commands) LoadInstance(instance Instance) {
	SetDeviceProcAddr(instance)
	c.destroyInstance = GetInstanceProcAddr(instance, "vkDestroyInstance")
	c.enumeratePhysicalDevices = GetInstanceProcAddr(instance, "vkEnumeratePhysicalDevices")
	c.getPhysicalDeviceQueueFamilyProperties = GetInstanceProcAddr(instance, "vkGetPhysicalDeviceQueueFamilyProperties")
	c.getPhysicalDeviceMemoryProperties = GetInstanceProcAddr(instance, "vkGetPhysicalDeviceMemoryProperties")
	c.createDevice = GetInstanceProcAddr(instance, "vkCreateDevice")
}

// LoadDevice resolves device-level functions.
func (c *Commands) LoadDevice(device Device) {
	load := func(name string) unsafe.Pointer { return GetDeviceProcAddr(device, name) }

	c.destroyDevice = load("vkDestroyDevice")
	c.getDeviceQueue = load("vkGetDeviceQueue")
	c.deviceWaitIdle = load("vkDeviceWaitIdle")
	c.createBuffer = load("vkCreateBuffer")
	c.destroyBuffer = load("vkDestroyBuffer")
	c.getBufferMemoryRequirements = load("vkGetBufferMemoryRequirements")
	c.createImage = load("vkCreateImage")
	c.destroyImage = load("vkDestroyImage")
	c.getImageMemoryRequirements = load("vkGetImageMemoryRequirements")
	c.allocateMemory = load("vkAllocateMemory")
	c.freeMemory = load("vkFreeMemory")
	c.bindBufferMemory = load("vkBindBufferMemory")
	c.bindImageMemory = load("vkBindImageMemory")
	c.mapMemory = load("vkMapMemory")
	c.createSemaphore = load("vkCreateSemaphore")
	c.destroySemaphore = load("vkDestroySemaphore")
	c.getSemaphoreCounterValue = load("vkGetSemaphoreCounterValue")
	c.waitSemaphores = load("vkWaitSemaphores")
	c.signalSemaphore = load("vkSignalSemaphore")
	c.createCommandPool = load("vkCreateCommandPool")
	c.resetCommandPool = load("vkResetCommandPool")
	c.destroyCommandPool = load("vkDestroyCommandPool")
	c.allocateCommandBuffers = load("vkAllocateCommandBuffers")
	c.beginCommandBuffer = load("vkBeginCommandBuffer")
	c.endCommandBuffer = load("vkEndCommandBuffer")
	c.queueSubmit = load("vkQueueSubmit")
	c.createShaderModule = load("vkCreateShaderModule")
	c.destroyShaderModule = load("vkDestroyShaderModule")
	c.createPipelineLayout = load("vkCreatePipelineLayout")
	c.destroyPipelineLayout = load("vkDestroyPipelineLayout")
	c.createComputePipelines = load("vkCreateComputePipelines")
	c.destroyPipeline = load("vkDestroyPipeline")
	c.createQueryPool = load("vkCreateQueryPool")
	c.destroyQueryPool = load("vkDestroyQueryPool")
	c.getQueryPoolResults = load("vkGetQueryPoolResults")
	c.cmdPipelineBarrier = load("vkCmdPipelineBarrier")
	c.cmdFillBuffer = load("vkCmdFillBuffer")
	c.cmdUpdateBuffer = load("vkCmdUpdateBuffer")
	c.cmdCopyBuffer = load("vkCmdCopyBuffer")
	c.cmdCopyImage = load("vkCmdCopyImage")
	c.cmdResolveImage = load("vkCmdResolveImage")
	c.cmdBlitImage = load("vkCmdBlitImage")
	c.cmdCopyBufferToImage = load("vkCmdCopyBufferToImage")
	c.cmdCopyImageToBuffer = load("vkCmdCopyImageToBuffer")
	c.cmdClearColorImage = load("vkCmdClearColorImage")
	c.cmdClearDepthStencilImage = load("vkCmdClearDepthStencilImage")
	c.cmdBindPipeline = load("vkCmdBindPipeline")
	c.cmdDispatch = load("vkCmdDispatch")
	c.cmdWriteTimestamp = load("vkCmdWriteTimestamp")
}

// HasTimelineSemaphore reports whether the timeline semaphore entry points
// resolved. They are core in Vulkan 1.2.
func (c *Commands) HasTimelineSemaphore() bool {
	return c.getSemaphoreCounterValue != nil && c.waitSemaphores != nil && c.signalSemaphore != nil
}

func resultCall(cif *types.CallInterface, fn unsafe.Pointer, args []unsafe.Pointer) Result {
	if fn == nil {
		return ErrorInitializationFailed
	}
	var result int32
	if err := ffi.CallFunction(cif, fn, unsafe.Pointer(&result), args); err != nil {
		return ErrorInitializationFailed
	}
	return Result(result)
}

func voidCall(cif *types.CallInterface, fn unsafe.Pointer, args []unsafe.Pointer) {
	if fn == nil {
		return
	}
	_ = ffi.CallFunction(cif, fn, nil, args)
}

// CreateInstance wraps vkCreateInstance.
func (c *Commands) CreateInstance(createInfo *InstanceCreateInfo, instance *Instance) Result {
	infoPtr := unsafe.Pointer(createInfo)
	var allocPtr unsafe.Pointer
	outPtr := unsafe.Pointer(instance)
	args := [3]unsafe.Pointer{
		unsafe.Pointer(&infoPtr),
		unsafe.Pointer(&allocPtr),
		unsafe.Pointer(&outPtr),
	}
	return resultCall(&sigResultPtrPtrPtr, c.createInstance, args[:])
}

// DestroyInstance wraps vkDestroyInstance.
func (c *Commands) DestroyInstance(instance Instance) {
	var allocPtr unsafe.Pointer
	args := [2]unsafe.Pointer{unsafe.Pointer(&instance), unsafe.Pointer(&allocPtr)}
	voidCall(&sigVoidHandlePtr, c.destroyInstance, args[:])
}

// EnumeratePhysicalDevices wraps vkEnumeratePhysicalDevices.
func (c *Commands) EnumeratePhysicalDevices(instance Instance, count *uint32, devices *PhysicalDevice) Result {
	countPtr := unsafe.Pointer(count)
	devPtr := unsafe.Pointer(devices)
	args := [3]unsafe.Pointer{
		unsafe.Pointer(&instance),
		unsafe.Pointer(&countPtr),
		unsafe.Pointer(&devPtr),
	}
	return resultCall(&sigResultHandlePtrPtr, c.enumeratePhysicalDevices, args[:])
}

// GetPhysicalDeviceQueueFamilyProperties wraps the namesake.
func (c *Commands) GetPhysicalDeviceQueueFamilyProperties(device PhysicalDevice, count *uint32, properties *QueueFamilyProperties) {
	countPtr := unsafe.Pointer(count)
	propPtr := unsafe.Pointer(properties)
	args := [3]unsafe.Pointer{
		unsafe.Pointer(&device),
		unsafe.Pointer(&countPtr),
		unsafe.Pointer(&propPtr),
	}
	voidCall(&sigVoidHandlePtrPtr, c.getPhysicalDeviceQueueFamilyProperties, args[:])
}

// GetPhysicalDeviceMemoryProperties wraps the namesake.
func (c *Commands) GetPhysicalDeviceMemoryProperties(device PhysicalDevice, properties *PhysicalDeviceMemoryProperties) {
	propPtr := unsafe.Pointer(properties)
	args := [2]unsafe.Pointer{unsafe.Pointer(&device), unsafe.Pointer(&propPtr)}
	voidCall(&sigVoidHandlePtr, c.getPhysicalDeviceMemoryProperties, args[:])
}

// CreateDevice wraps vkCreateDevice.
func (c *Commands) CreateDevice(physicalDevice PhysicalDevice, createInfo *DeviceCreateInfo, device *Device) Result {
	infoPtr := unsafe.Pointer(createInfo)
	var allocPtr unsafe.Pointer
	outPtr := unsafe.Pointer(device)
	args := [4]unsafe.Pointer{
		unsafe.Pointer(&physicalDevice),
		unsafe.Pointer(&infoPtr),
		unsafe.Pointer(&allocPtr),
		unsafe.Pointer(&outPtr),
	}
	return resultCall(&sigResultHandlePtrPtrPtr, c.createDevice, args[:])
}

// DestroyDevice wraps vkDestroyDevice.
func (c *Commands) DestroyDevice(device Device) {
	var allocPtr unsafe.Pointer
	args := [2]unsafe.Pointer{unsafe.Pointer(&device), unsafe.Pointer(&allocPtr)}
	voidCall(&sigVoidHandlePtr, c.destroyDevice, args[:])
}

// GetDeviceQueue wraps vkGetDeviceQueue.
func (c *Commands) GetDeviceQueue(device Device, family, index uint32, queue *Queue) {
	queuePtr := unsafe.Pointer(queue)
	args := [4]unsafe.Pointer{
		unsafe.Pointer(&device),
		unsafe.Pointer(&family),
		unsafe.Pointer(&index),
		unsafe.Pointer(&queuePtr),
	}
	voidCall(&sigVoidHandleU32U32Ptr, c.getDeviceQueue, args[:])
}

// DeviceWaitIdle wraps vkDeviceWaitIdle.
func (c *Commands) DeviceWaitIdle(device Device) Result {
	args := [1]unsafe.Pointer{unsafe.Pointer(&device)}
	return resultCall(&sigResultHandle, c.deviceWaitIdle, args[:])
}

// createWithInfo shares the Result(handle, ptr, ptr, ptr) shape of the
// vkCreate* family.
func (c *Commands) createWithInfo(fn unsafe.Pointer, device Device, info, out unsafe.Pointer) Result {
	infoPtr := info
	var allocPtr unsafe.Pointer
	outPtr := out
	args := [4]unsafe.Pointer{
		unsafe.Pointer(&device),
		unsafe.Pointer(&infoPtr),
		unsafe.Pointer(&allocPtr),
		unsafe.Pointer(&outPtr),
	}
	return resultCall(&sigResultHandlePtrPtrPtr, fn, args[:])
}

// destroyHandle shares the void(handle, handle, ptr) shape of the
// vkDestroy* family.
func (c *Commands) destroyHandle(fn unsafe.Pointer, device Device, handle uint64) {
	var allocPtr unsafe.Pointer
	args := [3]unsafe.Pointer{
		unsafe.Pointer(&device),
		unsafe.Pointer(&handle),
		unsafe.Pointer(&allocPtr),
	}
	voidCall(&sigVoidHandleHandlePtr, fn, args[:])
}

// CreateBuffer wraps vkCreateBuffer.
func (c *Commands) CreateBuffer(device Device, info *BufferCreateInfo, buffer *Buffer) Result {
	return c.createWithInfo(c.createBuffer, device, unsafe.Pointer(info), unsafe.Pointer(buffer))
}

// DestroyBuffer wraps vkDestroyBuffer.
func (c *Commands) DestroyBuffer(device Device, buffer Buffer) {
	c.destroyHandle(c.destroyBuffer, device, uint64(buffer))
}

// GetBufferMemoryRequirements wraps the namesake.
func (c *Commands) GetBufferMemoryRequirements(device Device, buffer Buffer, requirements *MemoryRequirements) {
	reqPtr := unsafe.Pointer(requirements)
	args := [3]unsafe.Pointer{
		unsafe.Pointer(&device),
		unsafe.Pointer(&buffer),
		unsafe.Pointer(&reqPtr),
	}
	voidCall(&sigVoidHandleHandlePtr, c.getBufferMemoryRequirements, args[:])
}

// CreateImage wraps vkCreateImage.
func (c *Commands) CreateImage(device Device, info *ImageCreateInfo, image *Image) Result {
	return c.createWithInfo(c.createImage, device, unsafe.Pointer(info), unsafe.Pointer(image))
}

// DestroyImage wraps vkDestroyImage.
func (c *Commands) DestroyImage(device Device, image Image) {
	c.destroyHandle(c.destroyImage, device, uint64(image))
}

// GetImageMemoryRequirements wraps the namesake.
func (c *Commands) GetImageMemoryRequirements(device Device, image Image, requirements *MemoryRequirements) {
	reqPtr := unsafe.Pointer(requirements)
	args := [3]unsafe.Pointer{
		unsafe.Pointer(&device),
		unsafe.Pointer(&image),
		unsafe.Pointer(&reqPtr),
	}
	voidCall(&sigVoidHandleHandlePtr, c.getImageMemoryRequirements, args[:])
}

// AllocateMemory wraps vkAllocateMemory.
func (c *Commands) AllocateMemory(device Device, info *MemoryAllocateInfo, memory *DeviceMemory) Result {
	return c.createWithInfo(c.allocateMemory, device, unsafe.Pointer(info), unsafe.Pointer(memory))
}

// FreeMemory wraps vkFreeMemory.
func (c *Commands) FreeMemory(device Device, memory DeviceMemory) {
	c.destroyHandle(c.freeMemory, device, uint64(memory))
}

// BindBufferMemory wraps vkBindBufferMemory.
func (c *Commands) BindBufferMemory(device Device, buffer Buffer, memory DeviceMemory, offset uint64) Result {
	args := [4]unsafe.Pointer{
		unsafe.Pointer(&device),
		unsafe.Pointer(&buffer),
		unsafe.Pointer(&memory),
		unsafe.Pointer(&offset),
	}
	return resultCall(&sigResultHandle3U64, c.bindBufferMemory, args[:])
}

// BindImageMemory wraps vkBindImageMemory.
func (c *Commands) BindImageMemory(device Device, image Image, memory DeviceMemory, offset uint64) Result {
	args := [4]unsafe.Pointer{
		unsafe.Pointer(&device),
		unsafe.Pointer(&image),
		unsafe.Pointer(&memory),
		unsafe.Pointer(&offset),
	}
	return resultCall(&sigResultHandle3U64, c.bindImageMemory, args[:])
}

// MapMemory wraps vkMapMemory.
func (c *Commands) MapMemory(device Device, memory DeviceMemory, offset, size uint64, data *unsafe.Pointer) Result {
	var flags uint32
	dataPtr := unsafe.Pointer(data)
	args := [6]unsafe.Pointer{
		unsafe.Pointer(&device),
		unsafe.Pointer(&memory),
		unsafe.Pointer(&offset),
		unsafe.Pointer(&size),
		unsafe.Pointer(&flags),
		unsafe.Pointer(&dataPtr),
	}
	return resultCall(&sigResultMapMemory, c.mapMemory, args[:])
}

// CreateSemaphore wraps vkCreateSemaphore.
func (c *Commands) CreateSemaphore(device Device, info *SemaphoreCreateInfo, semaphore *Semaphore) Result {
	return c.createWithInfo(c.createSemaphore, device, unsafe.Pointer(info), unsafe.Pointer(semaphore))
}

// DestroySemaphore wraps vkDestroySemaphore.
func (c *Commands) DestroySemaphore(device Device, semaphore Semaphore) {
	c.destroyHandle(c.destroySemaphore, device, uint64(semaphore))
}

// GetSemaphoreCounterValue wraps the namesake (Vulkan 1.2).
func (c *Commands) GetSemaphoreCounterValue(device Device, semaphore Semaphore, value *uint64) Result {
	valuePtr := unsafe.Pointer(value)
	args := [3]unsafe.Pointer{
		unsafe.Pointer(&device),
		unsafe.Pointer(&semaphore),
		unsafe.Pointer(&valuePtr),
	}
	return resultCall(&sigResultHandleHandlePtr, c.getSemaphoreCounterValue, args[:])
}

// WaitSemaphores wraps vkWaitSemaphores (Vulkan 1.2).
func (c *Commands) WaitSemaphores(device Device, waitInfo *SemaphoreWaitInfo, timeout uint64) Result {
	infoPtr := unsafe.Pointer(waitInfo)
	args := [3]unsafe.Pointer{
		unsafe.Pointer(&device),
		unsafe.Pointer(&infoPtr),
		unsafe.Pointer(&timeout),
	}
	return resultCall(&sigResultHandlePtrU64, c.waitSemaphores, args[:])
}

// SignalSemaphore wraps vkSignalSemaphore (Vulkan 1.2).
func (c *Commands) SignalSemaphore(device Device, signalInfo *SemaphoreSignalInfo) Result {
	infoPtr := unsafe.Pointer(signalInfo)
	args := [2]unsafe.Pointer{unsafe.Pointer(&device), unsafe.Pointer(&infoPtr)}
	return resultCall(&sigResultHandlePtr, c.signalSemaphore, args[:])
}

// CreateCommandPool wraps vkCreateCommandPool.
func (c *Commands) CreateCommandPool(device Device, info *CommandPoolCreateInfo, pool *CommandPool) Result {
	return c.createWithInfo(c.createCommandPool, device, unsafe.Pointer(info), unsafe.Pointer(pool))
}

// ResetCommandPool wraps vkResetCommandPool.
func (c *Commands) ResetCommandPool(device Device, pool CommandPool) Result {
	var flags uint32
	args := [3]unsafe.Pointer{
		unsafe.Pointer(&device),
		unsafe.Pointer(&pool),
		unsafe.Pointer(&flags),
	}
	return resultCall(&sigResultHandleHandleU32, c.resetCommandPool, args[:])
}

// DestroyCommandPool wraps vkDestroyCommandPool.
func (c *Commands) DestroyCommandPool(device Device, pool CommandPool) {
	c.destroyHandle(c.destroyCommandPool, device, uint64(pool))
}

// AllocateCommandBuffers wraps vkAllocateCommandBuffers.
func (c *Commands) AllocateCommandBuffers(device Device, info *CommandBufferAllocateInfo, buffers *CommandBuffer) Result {
	infoPtr := unsafe.Pointer(info)
	bufPtr := unsafe.Pointer(buffers)
	args := [3]unsafe.Pointer{
		unsafe.Pointer(&device),
		unsafe.Pointer(&infoPtr),
		unsafe.Pointer(&bufPtr),
	}
	return resultCall(&sigResultHandlePtrPtr, c.allocateCommandBuffers, args[:])
}

// BeginCommandBuffer wraps vkBeginCommandBuffer.
func (c *Commands) BeginCommandBuffer(cb CommandBuffer, info *CommandBufferBeginInfo) Result {
	infoPtr := unsafe.Pointer(info)
	args := [2]unsafe.Pointer{unsafe.Pointer(&cb), unsafe.Pointer(&infoPtr)}
	return resultCall(&sigResultHandlePtr, c.beginCommandBuffer, args[:])
}

// EndCommandBuffer wraps vkEndCommandBuffer.
func (c *Commands) EndCommandBuffer(cb CommandBuffer) Result {
	args := [1]unsafe.Pointer{unsafe.Pointer(&cb)}
	return resultCall(&sigResultHandle, c.endCommandBuffer, args[:])
}

// QueueSubmit wraps vkQueueSubmit.
func (c *Commands) QueueSubmit(queue Queue, submitCount uint32, submits *SubmitInfo, fence Fence) Result {
	subPtr := unsafe.Pointer(submits)
	args := [4]unsafe.Pointer{
		unsafe.Pointer(&queue),
		unsafe.Pointer(&submitCount),
		unsafe.Pointer(&subPtr),
		unsafe.Pointer(&fence),
	}
	return resultCall(&sigResultQueueSubmit, c.queueSubmit, args[:])
}

// CreateShaderModule wraps vkCreateShaderModule.
func (c *Commands) CreateShaderModule(device Device, info *ShaderModuleCreateInfo, module *ShaderModule) Result {
	return c.createWithInfo(c.createShaderModule, device, unsafe.Pointer(info), unsafe.Pointer(module))
}

// DestroyShaderModule wraps vkDestroyShaderModule.
func (c *Commands) DestroyShaderModule(device Device, module ShaderModule) {
	c.destroyHandle(c.destroyShaderModule, device, uint64(module))
}

// CreatePipelineLayout wraps vkCreatePipelineLayout.
func (c *Commands) CreatePipelineLayout(device Device, info *PipelineLayoutCreateInfo, layout *PipelineLayout) Result {
	return c.createWithInfo(c.createPipelineLayout, device, unsafe.Pointer(info), unsafe.Pointer(layout))
}

// DestroyPipelineLayout wraps vkDestroyPipelineLayout.
func (c *Commands) DestroyPipelineLayout(device Device, layout PipelineLayout) {
	c.destroyHandle(c.destroyPipelineLayout, device, uint64(layout))
}

// CreateComputePipelines wraps vkCreateComputePipelines with one info.
func (c *Commands) CreateComputePipelines(device Device, info *ComputePipelineCreateInfo, pipeline *Pipeline) Result {
	var cache PipelineCache
	count := uint32(1)
	infoPtr := unsafe.Pointer(info)
	var allocPtr unsafe.Pointer
	outPtr := unsafe.Pointer(pipeline)
	args := [6]unsafe.Pointer{
		unsafe.Pointer(&device),
		unsafe.Pointer(&cache),
		unsafe.Pointer(&count),
		unsafe.Pointer(&infoPtr),
		unsafe.Pointer(&allocPtr),
		unsafe.Pointer(&outPtr),
	}
	return resultCall(&sigResultCreatePipelines, c.createComputePipelines, args[:])
}

// DestroyPipeline wraps vkDestroyPipeline.
func (c *Commands) DestroyPipeline(device Device, pipeline Pipeline) {
	c.destroyHandle(c.destroyPipeline, device, uint64(pipeline))
}

// CreateQueryPool wraps vkCreateQueryPool.
func (c *Commands) CreateQueryPool(device Device, info *QueryPoolCreateInfo, pool *QueryPool) Result {
	return c.createWithInfo(c.createQueryPool, device, unsafe.Pointer(info), unsafe.Pointer(pool))
}

// DestroyQueryPool wraps vkDestroyQueryPool.
func (c *Commands) DestroyQueryPool(device Device, pool QueryPool) {
	c.destroyHandle(c.destroyQueryPool, device, uint64(pool))
}

// GetQueryPoolResults wraps vkGetQueryPoolResults.
func (c *Commands) GetQueryPoolResults(device Device, pool QueryPool, firstQuery, queryCount uint32,
	dataSize uint64, data unsafe.Pointer, stride uint64, flags uint32) Result {
	dataPtr := data
	args := [8]unsafe.Pointer{
		unsafe.Pointer(&device),
		unsafe.Pointer(&pool),
		unsafe.Pointer(&firstQuery),
		unsafe.Pointer(&queryCount),
		unsafe.Pointer(&dataSize),
		unsafe.Pointer(&dataPtr),
		unsafe.Pointer(&stride),
		unsafe.Pointer(&flags),
	}
	return resultCall(&sigResultGetQueryPoolResults, c.getQueryPoolResults, args[:])
}

// CmdPipelineBarrier wraps vkCmdPipelineBarrier. Memory barriers (the
// global kind) are never emitted by the engine.
func (c *Commands) CmdPipelineBarrier(cb CommandBuffer, srcStageMask, dstStageMask uint32,
	bufferBarriers []BufferMemoryBarrier, imageBarriers []ImageMemoryBarrier) {
	var dependencyFlags uint32
	var memoryBarrierCount uint32
	var memoryBarriersPtr unsafe.Pointer

	bufferCount := uint32(len(bufferBarriers))
	var bufferPtr unsafe.Pointer
	if bufferCount > 0 {
		bufferPtr = unsafe.Pointer(&bufferBarriers[0])
	}
	imageCount := uint32(len(imageBarriers))
	var imagePtr unsafe.Pointer
	if imageCount > 0 {
		imagePtr = unsafe.Pointer(&imageBarriers[0])
	}

	args := [10]unsafe.Pointer{
		unsafe.Pointer(&cb),
		unsafe.Pointer(&srcStageMask),
		unsafe.Pointer(&dstStageMask),
		unsafe.Pointer(&dependencyFlags),
		unsafe.Pointer(&memoryBarrierCount),
		unsafe.Pointer(&memoryBarriersPtr),
		unsafe.Pointer(&bufferCount),
		unsafe.Pointer(&bufferPtr),
		unsafe.Pointer(&imageCount),
		unsafe.Pointer(&imagePtr),
	}
	voidCall(&sigVoidCmdPipelineBarrier, c.cmdPipelineBarrier, args[:])
}

// CmdFillBuffer wraps vkCmdFillBuffer.
func (c *Commands) CmdFillBuffer(cb CommandBuffer, buffer Buffer, offset, size uint64, data uint32) {
	args := [5]unsafe.Pointer{
		unsafe.Pointer(&cb),
		unsafe.Pointer(&buffer),
		unsafe.Pointer(&offset),
		unsafe.Pointer(&size),
		unsafe.Pointer(&data),
	}
	voidCall(&sigVoidCmdFillBuffer, c.cmdFillBuffer, args[:])
}

// CmdUpdateBuffer wraps vkCmdUpdateBuffer.
func (c *Commands) CmdUpdateBuffer(cb CommandBuffer, buffer Buffer, offset, dataSize uint64, data unsafe.Pointer) {
	dataPtr := data
	args := [5]unsafe.Pointer{
		unsafe.Pointer(&cb),
		unsafe.Pointer(&buffer),
		unsafe.Pointer(&offset),
		unsafe.Pointer(&dataSize),
		unsafe.Pointer(&dataPtr),
	}
	voidCall(&sigVoidCmdUpdateBuffer, c.cmdUpdateBuffer, args[:])
}

// CmdCopyBuffer wraps vkCmdCopyBuffer.
func (c *Commands) CmdCopyBuffer(cb CommandBuffer, src, dst Buffer, regions []BufferCopy) {
	if len(regions) == 0 {
		return
	}
	count := uint32(len(regions))
	regionPtr := unsafe.Pointer(&regions[0])
	args := [5]unsafe.Pointer{
		unsafe.Pointer(&cb),
		unsafe.Pointer(&src),
		unsafe.Pointer(&dst),
		unsafe.Pointer(&count),
		unsafe.Pointer(&regionPtr),
	}
	voidCall(&sigVoidCmdCopyBuffer, c.cmdCopyBuffer, args[:])
}

func (c *Commands) copyImage(fn unsafe.Pointer, cb CommandBuffer, src Image, srcLayout uint32,
	dst Image, dstLayout uint32, regions []ImageCopy) {
	if len(regions) == 0 {
		return
	}
	count := uint32(len(regions))
	regionPtr := unsafe.Pointer(&regions[0])
	args := [7]unsafe.Pointer{
		unsafe.Pointer(&cb),
		unsafe.Pointer(&src),
		unsafe.Pointer(&srcLayout),
		unsafe.Pointer(&dst),
		unsafe.Pointer(&dstLayout),
		unsafe.Pointer(&count),
		unsafe.Pointer(&regionPtr),
	}
	voidCall(&sigVoidCmdCopyImage, fn, args[:])
}

// CmdCopyImage wraps vkCmdCopyImage.
func (c *Commands) CmdCopyImage(cb CommandBuffer, src Image, srcLayout uint32, dst Image, dstLayout uint32, regions []ImageCopy) {
	c.copyImage(c.cmdCopyImage, cb, src, srcLayout, dst, dstLayout, regions)
}

// CmdResolveImage wraps vkCmdResolveImage; VkImageResolve matches
// VkImageCopy bit for bit.
func (c *Commands) CmdResolveImage(cb CommandBuffer, src Image, srcLayout uint32, dst Image, dstLayout uint32, regions []ImageCopy) {
	c.copyImage(c.cmdResolveImage, cb, src, srcLayout, dst, dstLayout, regions)
}

// CmdBlitImage wraps vkCmdBlitImage.
func (c *Commands) CmdBlitImage(cb CommandBuffer, src Image, srcLayout uint32, dst Image, dstLayout uint32,
	regions []ImageBlit, filter uint32) {
	if len(regions) == 0 {
		return
	}
	count := uint32(len(regions))
	regionPtr := unsafe.Pointer(&regions[0])
	args := [8]unsafe.Pointer{
		unsafe.Pointer(&cb),
		unsafe.Pointer(&src),
		unsafe.Pointer(&srcLayout),
		unsafe.Pointer(&dst),
		unsafe.Pointer(&dstLayout),
		unsafe.Pointer(&count),
		unsafe.Pointer(&regionPtr),
		unsafe.Pointer(&filter),
	}
	voidCall(&sigVoidCmdBlitImage, c.cmdBlitImage, args[:])
}

// CmdCopyBufferToImage wraps vkCmdCopyBufferToImage.
func (c *Commands) CmdCopyBufferToImage(cb CommandBuffer, src Buffer, dst Image, dstLayout uint32, regions []BufferImageCopy) {
	if len(regions) == 0 {
		return
	}
	count := uint32(len(regions))
	regionPtr := unsafe.Pointer(&regions[0])
	args := [6]unsafe.Pointer{
		unsafe.Pointer(&cb),
		unsafe.Pointer(&src),
		unsafe.Pointer(&dst),
		unsafe.Pointer(&dstLayout),
		unsafe.Pointer(&count),
		unsafe.Pointer(&regionPtr),
	}
	voidCall(&sigVoidCmdCopyBufferToImage, c.cmdCopyBufferToImage, args[:])
}

// CmdCopyImageToBuffer wraps vkCmdCopyImageToBuffer.
func (c *Commands) CmdCopyImageToBuffer(cb CommandBuffer, src Image, srcLayout uint32, dst Buffer, regions []BufferImageCopy) {
	if len(regions) == 0 {
		return
	}
	count := uint32(len(regions))
	regionPtr := unsafe.Pointer(&regions[0])
	args := [6]unsafe.Pointer{
		unsafe.Pointer(&cb),
		unsafe.Pointer(&src),
		unsafe.Pointer(&srcLayout),
		unsafe.Pointer(&dst),
		unsafe.Pointer(&count),
		unsafe.Pointer(&regionPtr),
	}
	voidCall(&sigVoidCmdCopyImageToBuffer, c.cmdCopyImageToBuffer, args[:])
}

// CmdClearColorImage wraps vkCmdClearColorImage.
func (c *Commands) CmdClearColorImage(cb CommandBuffer, image Image, layout uint32,
	color *ClearColorValue, ranges []ImageSubresourceRange) {
	if len(ranges) == 0 {
		return
	}
	colorPtr := unsafe.Pointer(color)
	count := uint32(len(ranges))
	rangePtr := unsafe.Pointer(&ranges[0])
	args := [6]unsafe.Pointer{
		unsafe.Pointer(&cb),
		unsafe.Pointer(&image),
		unsafe.Pointer(&layout),
		unsafe.Pointer(&colorPtr),
		unsafe.Pointer(&count),
		unsafe.Pointer(&rangePtr),
	}
	voidCall(&sigVoidCmdClearImage, c.cmdClearColorImage, args[:])
}

// CmdClearDepthStencilImage wraps vkCmdClearDepthStencilImage.
func (c *Commands) CmdClearDepthStencilImage(cb CommandBuffer, image Image, layout uint32,
	value *ClearDepthStencilValue, ranges []ImageSubresourceRange) {
	if len(ranges) == 0 {
		return
	}
	valuePtr := unsafe.Pointer(value)
	count := uint32(len(ranges))
	rangePtr := unsafe.Pointer(&ranges[0])
	args := [6]unsafe.Pointer{
		unsafe.Pointer(&cb),
		unsafe.Pointer(&image),
		unsafe.Pointer(&layout),
		unsafe.Pointer(&valuePtr),
		unsafe.Pointer(&count),
		unsafe.Pointer(&rangePtr),
	}
	voidCall(&sigVoidCmdClearImage, c.cmdClearDepthStencilImage, args[:])
}

// CmdBindPipeline wraps vkCmdBindPipeline.
func (c *Commands) CmdBindPipeline(cb CommandBuffer, bindPoint uint32, pipeline Pipeline) {
	args := [3]unsafe.Pointer{
		unsafe.Pointer(&cb),
		unsafe.Pointer(&bindPoint),
		unsafe.Pointer(&pipeline),
	}
	voidCall(&sigVoidHandleU32Handle, c.cmdBindPipeline, args[:])
}

// CmdDispatch wraps vkCmdDispatch.
func (c *Commands) CmdDispatch(cb CommandBuffer, x, y, z uint32) {
	args := [4]unsafe.Pointer{
		unsafe.Pointer(&cb),
		unsafe.Pointer(&x),
		unsafe.Pointer(&y),
		unsafe.Pointer(&z),
	}
	voidCall(&sigVoidHandleU32U32U32, c.cmdDispatch, args[:])
}

// CmdWriteTimestamp wraps vkCmdWriteTimestamp.
func (c *Commands) CmdWriteTimestamp(cb CommandBuffer, stage uint32, pool QueryPool, query uint32) {
	args := [4]unsafe.Pointer{
		unsafe.Pointer(&cb),
		unsafe.Pointer(&stage),
		unsafe.Pointer(&pool),
		unsafe.Pointer(&query),
	}
	voidCall(&sigVoidHandleU32HandleU32, c.cmdWriteTimestamp, args[:])
}
