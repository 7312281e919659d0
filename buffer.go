package tephra

import (
	"github.com/gogpu/tephra/core/destroy"
	"github.com/gogpu/tephra/core/transient"
	"github.com/gogpu/tephra/hal"
	"github.com/gogpu/tephra/types"
)

// requiredViewAlignment is the alignment subviews of a buffer must honor.
const requiredViewAlignment = 256

// BufferSetup describes a buffer to allocate.
type BufferSetup struct {
	Size       uint64
	Usage      types.BufferUsageFlags
	HostMapped bool
	DebugName  string
}

// Buffer is an owned device buffer. Dropping it with Destroy queues the
// native handle for deferred destruction behind the device timeline.
type Buffer struct {
	device   *Device
	handle   hal.Buffer
	setup    BufferSetup
	mapped   []byte
	released bool
}

// AllocateBuffer creates a buffer. Host-mapped buffers are persistently
// mapped for their whole lifetime.
func (d *Device) AllocateBuffer(setup *BufferSetup) (*Buffer, error) {
	halSetup := hal.BufferSetup{
		Size:       setup.Size,
		Usage:      setup.Usage,
		HostMapped: setup.HostMapped,
		DebugName:  setup.DebugName,
	}
	handle, err := d.hal.CreateBuffer(&halSetup)
	if err != nil {
		err = opError("Device.AllocateBuffer", setup.DebugName, err)
		d.reportError(err)
		return nil, err
	}
	buffer := &Buffer{device: d, handle: handle, setup: *setup}
	if setup.HostMapped {
		buffer.mapped, err = d.hal.MapBuffer(handle)
		if err != nil {
			d.hal.DestroyBuffer(handle)
			err = opError("Device.AllocateBuffer", setup.DebugName, err)
			d.reportError(err)
			return nil, err
		}
	}
	return buffer, nil
}

// Size returns the buffer size in bytes.
func (b *Buffer) Size() uint64 {
	return b.setup.Size
}

// RequiredViewAlignment returns the alignment offsets of views into this
// buffer must have.
func (b *Buffer) RequiredViewAlignment() uint64 {
	return requiredViewAlignment
}

// MappedData returns the persistent host mapping of a host-mapped buffer,
// nil otherwise.
func (b *Buffer) MappedData() []byte {
	return b.mapped
}

// FullView returns a view of the whole buffer.
func (b *Buffer) FullView() BufferView {
	return BufferView{buffer: b, size: b.setup.Size, data: b.mapped}
}

// View returns a view of a byte range of the buffer.
func (b *Buffer) View(offset, size uint64) BufferView {
	view := b.FullView()
	return view.SubView(offset, size)
}

// Destroy queues the buffer for deferred destruction once all device work
// tracked so far has finished. The Buffer must not be used afterwards.
func (b *Buffer) Destroy() {
	if b.released {
		return
	}
	b.released = true
	b.device.destructor.QueueForDestruction(
		destroy.Handle{Kind: destroy.KindBuffer, Raw: uint64(b.handle)},
		b.device.timeline.LastTrackedTimestamp())
}

// BufferView is a non-owning value addressing a byte range of a buffer.
// Job-local views have no backing until their job is enqueued; two
// overlapping views may address the same bytes.
type BufferView struct {
	buffer *Buffer
	local  *localBuffer
	raw    hal.Buffer
	data   []byte
	offset uint64
	size   uint64
}

// IsNull reports whether the view addresses nothing.
func (v BufferView) IsNull() bool {
	return v.size == 0
}

// Size returns the view size in bytes.
func (v BufferView) Size() uint64 {
	return v.size
}

// IsJobLocal reports whether the view's backing is bound only at job
// enqueue time.
func (v BufferView) IsJobLocal() bool {
	return v.local != nil
}

// Data returns the host mapping of the viewed bytes for host-mapped and
// preinitialized buffers, nil otherwise.
func (v BufferView) Data() []byte {
	if v.data == nil {
		return nil
	}
	return v.data[v.offset : v.offset+v.size]
}

// SubView narrows the view to a byte range relative to its start.
func (v BufferView) SubView(offset, size uint64) BufferView {
	if offset+size > v.size {
		size = 0
	}
	result := v
	result.offset += offset
	result.size = size
	return result
}

// resolve returns the native handle and the view's offset within it. The
// handle is null for an unbound job-local view.
func (v BufferView) resolve() (hal.Buffer, uint64) {
	switch {
	case v.local != nil:
		return v.local.resolved, v.offset
	case v.buffer != nil:
		return v.buffer.handle, v.offset
	default:
		return v.raw, v.offset
	}
}

// localBuffer is the record of one job-local buffer allocation, resolved
// at enqueue time by the transient allocator.
type localBuffer struct {
	size      uint64
	alignment uint64
	usage     types.BufferUsageFlags
	lifetime  transient.Lifetime
	resolved  hal.Buffer
}
