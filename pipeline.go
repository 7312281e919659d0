package tephra

import (
	"github.com/gogpu/tephra/core/destroy"
	"github.com/gogpu/tephra/hal"
)

// ComputePipeline is an owned compute pipeline, bound inside compute pass
// callbacks through the CommandList.
type ComputePipeline struct {
	device   *Device
	handle   hal.Pipeline
	released bool
}

// NewComputePipeline creates a compute pipeline from a shader module entry
// point.
func (d *Device) NewComputePipeline(module *ShaderModule, entryPoint string) (*ComputePipeline, error) {
	handle, err := d.hal.CreateComputePipeline(module.handle, entryPoint)
	if err != nil {
		err = opError("Device.NewComputePipeline", entryPoint, err)
		d.reportError(err)
		return nil, err
	}
	return &ComputePipeline{device: d, handle: handle}, nil
}

// Destroy queues the pipeline for deferred destruction once all device
// work tracked so far has finished.
func (p *ComputePipeline) Destroy() {
	if p.released {
		return
	}
	p.released = true
	p.device.destructor.QueueForDestruction(
		destroy.Handle{Kind: destroy.KindPipeline, Raw: uint64(p.handle)},
		p.device.timeline.LastTrackedTimestamp())
}
