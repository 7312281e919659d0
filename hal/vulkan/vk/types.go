// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package vk

import "unsafe"

// Dispatchable and non-dispatchable handles. All are 64-bit on the
// platforms tephra targets.
type (
	Instance       uint64
	PhysicalDevice uint64
	Device         uint64
	Queue          uint64
	Buffer         uint64
	Image          uint64
	DeviceMemory   uint64
	Semaphore      uint64
	CommandPool    uint64
	CommandBuffer  uint64
	ShaderModule   uint64
	PipelineLayout uint64
	Pipeline       uint64
	PipelineCache  uint64
	QueryPool      uint64
	Fence          uint64
)

// Result is VkResult.
type Result int32

// VkResult values the driver inspects.
const (
	Success                   Result = 0
	NotReady                  Result = 1
	Timeout                   Result = 2
	ErrorOutOfHostMemory      Result = -1
	ErrorOutOfDeviceMemory    Result = -2
	ErrorInitializationFailed Result = -3
	ErrorDeviceLost           Result = -4
	ErrorMemoryMapFailed      Result = -5
	ErrorLayerNotPresent      Result = -6
	ErrorExtensionNotPresent  Result = -7
	ErrorFeatureNotPresent    Result = -8
	ErrorTooManyObjects       Result = -10
	ErrorFormatNotSupported   Result = -11
	ErrorFragmentedPool       Result = -12
	ErrorSurfaceLost          Result = -1000000000
	ErrorOutOfDate            Result = -1000001004
	ErrorInvalidExternalHandle Result = -1000072003
	ErrorFragmentation        Result = -1000161000
)

// Structure types used by the driver.
const (
	StructureTypeApplicationInfo             uint32 = 0
	StructureTypeInstanceCreateInfo          uint32 = 1
	StructureTypeDeviceQueueCreateInfo       uint32 = 2
	StructureTypeDeviceCreateInfo            uint32 = 3
	StructureTypeSubmitInfo                  uint32 = 4
	StructureTypeMemoryAllocateInfo          uint32 = 5
	StructureTypeFenceCreateInfo             uint32 = 8
	StructureTypeSemaphoreCreateInfo         uint32 = 9
	StructureTypeBufferCreateInfo            uint32 = 12
	StructureTypeImageCreateInfo             uint32 = 14
	StructureTypeShaderModuleCreateInfo      uint32 = 16
	StructureTypePipelineCacheCreateInfo     uint32 = 17
	StructureTypePipelineShaderStageCreateInfo uint32 = 18
	StructureTypeComputePipelineCreateInfo   uint32 = 29
	StructureTypePipelineLayoutCreateInfo    uint32 = 30
	StructureTypeQueryPoolCreateInfo         uint32 = 11
	StructureTypeCommandPoolCreateInfo       uint32 = 39
	StructureTypeCommandBufferAllocateInfo   uint32 = 40
	StructureTypeCommandBufferBeginInfo      uint32 = 42
	StructureTypeBufferMemoryBarrier         uint32 = 44
	StructureTypeImageMemoryBarrier          uint32 = 45
	StructureTypeTimelineSemaphoreSubmitInfo uint32 = 1000207003
	StructureTypeSemaphoreTypeCreateInfo     uint32 = 1000207002
	StructureTypeSemaphoreWaitInfo           uint32 = 1000207004
	StructureTypeSemaphoreSignalInfo         uint32 = 1000207005
	StructureTypePhysicalDeviceTimelineSemaphoreFeatures uint32 = 1000207000
)

// Misc enums.
const (
	SemaphoreTypeTimeline uint32 = 1

	CommandPoolCreateTransient          uint32 = 0x1
	CommandBufferLevelPrimary           uint32 = 0
	CommandBufferUsageOneTimeSubmit     uint32 = 0x1
	PipelineBindPointCompute            uint32 = 1
	QueryTypeTimestamp                  uint32 = 2
	QueryResult64                       uint32 = 0x1
	QueryResultAvailability             uint32 = 0x8
	SharingModeExclusive                uint32 = 0
	ImageTilingOptimal                  uint32 = 0
	SampleCount1                        uint32 = 1
	MemoryPropertyDeviceLocal           uint32 = 0x1
	MemoryPropertyHostVisible           uint32 = 0x2
	MemoryPropertyHostCoherent          uint32 = 0x4
	ShaderStageCompute                  uint32 = 0x20
	QueueGraphicsBit                    uint32 = 0x1
	QueueComputeBit                     uint32 = 0x2
	QueueTransferBit                    uint32 = 0x4
	WholeSize                           uint64 = ^uint64(0)
)

// ApplicationInfo is VkApplicationInfo.
type ApplicationInfo struct {
	SType              uint32
	PNext              unsafe.Pointer
	PApplicationName   unsafe.Pointer
	ApplicationVersion uint32
	PEngineName        unsafe.Pointer
	EngineVersion      uint32
	APIVersion         uint32
}

// InstanceCreateInfo is VkInstanceCreateInfo.
type InstanceCreateInfo struct {
	SType                   uint32
	PNext                   unsafe.Pointer
	Flags                   uint32
	PApplicationInfo        *ApplicationInfo
	EnabledLayerCount       uint32
	PpEnabledLayerNames     unsafe.Pointer
	EnabledExtensionCount   uint32
	PpEnabledExtensionNames unsafe.Pointer
}

// DeviceQueueCreateInfo is VkDeviceQueueCreateInfo.
type DeviceQueueCreateInfo struct {
	SType            uint32
	PNext            unsafe.Pointer
	Flags            uint32
	QueueFamilyIndex uint32
	QueueCount       uint32
	PQueuePriorities *float32
}

// PhysicalDeviceTimelineSemaphoreFeatures enables timeline semaphores.
type PhysicalDeviceTimelineSemaphoreFeatures struct {
	SType             uint32
	PNext             unsafe.Pointer
	TimelineSemaphore uint32
}

// DeviceCreateInfo is VkDeviceCreateInfo.
type DeviceCreateInfo struct {
	SType                   uint32
	PNext                   unsafe.Pointer
	Flags                   uint32
	QueueCreateInfoCount    uint32
	PQueueCreateInfos       *DeviceQueueCreateInfo
	EnabledLayerCount       uint32
	PpEnabledLayerNames     unsafe.Pointer
	EnabledExtensionCount   uint32
	PpEnabledExtensionNames unsafe.Pointer
	PEnabledFeatures        unsafe.Pointer
}

// QueueFamilyProperties is VkQueueFamilyProperties.
type QueueFamilyProperties struct {
	QueueFlags                  uint32
	QueueCount                  uint32
	TimestampValidBits          uint32
	MinImageTransferGranularity [3]uint32
}

// MemoryType and MemoryHeap mirror their Vulkan counterparts.
type MemoryType struct {
	PropertyFlags uint32
	HeapIndex     uint32
}

type MemoryHeap struct {
	Size  uint64
	Flags uint32
	_     uint32
}

// PhysicalDeviceMemoryProperties is VkPhysicalDeviceMemoryProperties.
type PhysicalDeviceMemoryProperties struct {
	MemoryTypeCount uint32
	MemoryTypes     [32]MemoryType
	MemoryHeapCount uint32
	MemoryHeaps     [16]MemoryHeap
}

// BufferCreateInfo is VkBufferCreateInfo.
type BufferCreateInfo struct {
	SType                 uint32
	PNext                 unsafe.Pointer
	Flags                 uint32
	Size                  uint64
	Usage                 uint32
	SharingMode           uint32
	QueueFamilyIndexCount uint32
	PQueueFamilyIndices   unsafe.Pointer
}

// Extent3D is VkExtent3D.
type Extent3D struct {
	Width  uint32
	Height uint32
	Depth  uint32
}

// Offset3D is VkOffset3D.
type Offset3D struct {
	X int32
	Y int32
	Z int32
}

// ImageCreateInfo is VkImageCreateInfo.
type ImageCreateInfo struct {
	SType                 uint32
	PNext                 unsafe.Pointer
	Flags                 uint32
	ImageType             uint32
	Format                uint32
	Extent                Extent3D
	MipLevels             uint32
	ArrayLayers           uint32
	Samples               uint32
	Tiling                uint32
	Usage                 uint32
	SharingMode           uint32
	QueueFamilyIndexCount uint32
	PQueueFamilyIndices   unsafe.Pointer
	InitialLayout         uint32
}

// MemoryRequirements is VkMemoryRequirements.
type MemoryRequirements struct {
	Size           uint64
	Alignment      uint64
	MemoryTypeBits uint32
	_              uint32
}

// MemoryAllocateInfo is VkMemoryAllocateInfo.
type MemoryAllocateInfo struct {
	SType           uint32
	PNext           unsafe.Pointer
	AllocationSize  uint64
	MemoryTypeIndex uint32
	_               uint32
}

// SemaphoreTypeCreateInfo is VkSemaphoreTypeCreateInfo.
type SemaphoreTypeCreateInfo struct {
	SType         uint32
	PNext         unsafe.Pointer
	SemaphoreType uint32
	_             uint32
	InitialValue  uint64
}

// SemaphoreCreateInfo is VkSemaphoreCreateInfo.
type SemaphoreCreateInfo struct {
	SType uint32
	PNext unsafe.Pointer
	Flags uint32
	_     uint32
}

// SemaphoreWaitInfo is VkSemaphoreWaitInfo.
type SemaphoreWaitInfo struct {
	SType          uint32
	PNext          unsafe.Pointer
	Flags          uint32
	SemaphoreCount uint32
	PSemaphores    *Semaphore
	PValues        *uint64
}

// SemaphoreWaitAny flags a wait satisfied by any semaphore.
const SemaphoreWaitAny uint32 = 0x1

// SemaphoreSignalInfo is VkSemaphoreSignalInfo.
type SemaphoreSignalInfo struct {
	SType     uint32
	PNext     unsafe.Pointer
	Semaphore Semaphore
	Value     uint64
}

// CommandPoolCreateInfo is VkCommandPoolCreateInfo.
type CommandPoolCreateInfo struct {
	SType            uint32
	PNext            unsafe.Pointer
	Flags            uint32
	QueueFamilyIndex uint32
}

// CommandBufferAllocateInfo is VkCommandBufferAllocateInfo.
type CommandBufferAllocateInfo struct {
	SType              uint32
	PNext              unsafe.Pointer
	CommandPool        CommandPool
	Level              uint32
	CommandBufferCount uint32
}

// CommandBufferBeginInfo is VkCommandBufferBeginInfo.
type CommandBufferBeginInfo struct {
	SType            uint32
	PNext            unsafe.Pointer
	Flags            uint32
	_                uint32
	PInheritanceInfo unsafe.Pointer
}

// TimelineSemaphoreSubmitInfo is VkTimelineSemaphoreSubmitInfo.
type TimelineSemaphoreSubmitInfo struct {
	SType                     uint32
	PNext                     unsafe.Pointer
	WaitSemaphoreValueCount   uint32
	_                         uint32
	PWaitSemaphoreValues      *uint64
	SignalSemaphoreValueCount uint32
	_                         uint32
	PSignalSemaphoreValues    *uint64
}

// SubmitInfo is VkSubmitInfo.
type SubmitInfo struct {
	SType                uint32
	PNext                unsafe.Pointer
	WaitSemaphoreCount   uint32
	_                    uint32
	PWaitSemaphores      *Semaphore
	PWaitDstStageMask    *uint32
	CommandBufferCount   uint32
	_                    uint32
	PCommandBuffers      *CommandBuffer
	SignalSemaphoreCount uint32
	_                    uint32
	PSignalSemaphores    *Semaphore
}

// BufferMemoryBarrier is VkBufferMemoryBarrier.
type BufferMemoryBarrier struct {
	SType               uint32
	PNext               unsafe.Pointer
	SrcAccessMask       uint32
	DstAccessMask       uint32
	SrcQueueFamilyIndex uint32
	DstQueueFamilyIndex uint32
	Buffer              Buffer
	Offset              uint64
	Size                uint64
}

// ImageSubresourceRange is VkImageSubresourceRange.
type ImageSubresourceRange struct {
	AspectMask     uint32
	BaseMipLevel   uint32
	LevelCount     uint32
	BaseArrayLayer uint32
	LayerCount     uint32
}

// ImageMemoryBarrier is VkImageMemoryBarrier.
type ImageMemoryBarrier struct {
	SType               uint32
	PNext               unsafe.Pointer
	SrcAccessMask       uint32
	DstAccessMask       uint32
	OldLayout           uint32
	NewLayout           uint32
	SrcQueueFamilyIndex uint32
	DstQueueFamilyIndex uint32
	Image               Image
	SubresourceRange    ImageSubresourceRange
	_                   uint32
}

// BufferCopy is VkBufferCopy.
type BufferCopy struct {
	SrcOffset uint64
	DstOffset uint64
	Size      uint64
}

// ImageSubresourceLayers is VkImageSubresourceLayers.
type ImageSubresourceLayers struct {
	AspectMask     uint32
	MipLevel       uint32
	BaseArrayLayer uint32
	LayerCount     uint32
}

// ImageCopy is VkImageCopy.
type ImageCopy struct {
	SrcSubresource ImageSubresourceLayers
	SrcOffset      Offset3D
	DstSubresource ImageSubresourceLayers
	DstOffset      Offset3D
	Extent         Extent3D
}

// ImageBlit is VkImageBlit.
type ImageBlit struct {
	SrcSubresource ImageSubresourceLayers
	SrcOffsets     [2]Offset3D
	DstSubresource ImageSubresourceLayers
	DstOffsets     [2]Offset3D
}

// BufferImageCopy is VkBufferImageCopy.
type BufferImageCopy struct {
	BufferOffset      uint64
	BufferRowLength   uint32
	BufferImageHeight uint32
	ImageSubresource  ImageSubresourceLayers
	ImageOffset       Offset3D
	ImageExtent       Extent3D
}

// ClearColorValue is VkClearColorValue (float aspect).
type ClearColorValue struct {
	Float32 [4]float32
}

// ClearDepthStencilValue is VkClearDepthStencilValue.
type ClearDepthStencilValue struct {
	Depth   float32
	Stencil uint32
}

// ShaderModuleCreateInfo is VkShaderModuleCreateInfo.
type ShaderModuleCreateInfo struct {
	SType    uint32
	PNext    unsafe.Pointer
	Flags    uint32
	_        uint32
	CodeSize uintptr
	PCode    *uint32
}

// PipelineLayoutCreateInfo is VkPipelineLayoutCreateInfo.
type PipelineLayoutCreateInfo struct {
	SType                  uint32
	PNext                  unsafe.Pointer
	Flags                  uint32
	SetLayoutCount         uint32
	PSetLayouts            unsafe.Pointer
	PushConstantRangeCount uint32
	_                      uint32
	PPushConstantRanges    unsafe.Pointer
}

// PipelineShaderStageCreateInfo is VkPipelineShaderStageCreateInfo.
type PipelineShaderStageCreateInfo struct {
	SType               uint32
	PNext               unsafe.Pointer
	Flags               uint32
	Stage               uint32
	Module              ShaderModule
	PName               unsafe.Pointer
	PSpecializationInfo unsafe.Pointer
}

// ComputePipelineCreateInfo is VkComputePipelineCreateInfo.
type ComputePipelineCreateInfo struct {
	SType              uint32
	PNext              unsafe.Pointer
	Flags              uint32
	_                  uint32
	Stage              PipelineShaderStageCreateInfo
	Layout             PipelineLayout
	BasePipelineHandle Pipeline
	BasePipelineIndex  int32
	_                  uint32
}

// QueryPoolCreateInfo is VkQueryPoolCreateInfo.
type QueryPoolCreateInfo struct {
	SType              uint32
	PNext              unsafe.Pointer
	Flags              uint32
	QueryType          uint32
	QueryCount         uint32
	PipelineStatistics uint32
}
