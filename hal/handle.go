package hal

// Native object handles. They are opaque 64-bit values owned by the driver;
// the engine only stores, compares and passes them back. The zero value is
// the null handle for every kind.

// Buffer is a native buffer handle.
type Buffer uint64

// Image is a native image handle.
type Image uint64

// Semaphore is a native timeline semaphore handle.
type Semaphore uint64

// Memory is a native device memory allocation handle.
type Memory uint64

// CommandPool is a native command pool handle.
type CommandPool uint64

// CommandBuffer is a native primary command buffer handle.
type CommandBuffer uint64

// ShaderModule is a native shader module handle.
type ShaderModule uint64

// Pipeline is a native pipeline handle.
type Pipeline uint64

// PipelineLayout is a native pipeline layout handle.
type PipelineLayout uint64

// QueryPool is a native query pool handle.
type QueryPool uint64

// IsNull reports whether the handle is null.
func (h Buffer) IsNull() bool         { return h == 0 }
func (h Image) IsNull() bool          { return h == 0 }
func (h Semaphore) IsNull() bool      { return h == 0 }
func (h Memory) IsNull() bool         { return h == 0 }
func (h CommandPool) IsNull() bool    { return h == 0 }
func (h CommandBuffer) IsNull() bool  { return h == 0 }
func (h ShaderModule) IsNull() bool   { return h == 0 }
func (h Pipeline) IsNull() bool       { return h == 0 }
func (h PipelineLayout) IsNull() bool { return h == 0 }
func (h QueryPool) IsNull() bool      { return h == 0 }
