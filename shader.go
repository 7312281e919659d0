package tephra

import (
	"encoding/binary"
	"fmt"

	"github.com/gogpu/naga"

	"github.com/gogpu/tephra/core/destroy"
	"github.com/gogpu/tephra/hal"
)

// ShaderModuleSetup describes a shader module. Exactly one of SPIRV and
// WGSL must be set; WGSL sources are translated to SPIR-V with naga.
type ShaderModuleSetup struct {
	SPIRV     []uint32
	WGSL      string
	DebugName string
}

// ShaderModule is an owned shader module. Shader modules are cold
// metadata: destroying one is safe regardless of outstanding device work.
type ShaderModule struct {
	device   *Device
	handle   hal.ShaderModule
	released bool
}

// NewShaderModule creates a shader module from SPIR-V or WGSL source.
func (d *Device) NewShaderModule(setup *ShaderModuleSetup) (*ShaderModule, error) {
	spirv := setup.SPIRV
	if spirv == nil {
		if setup.WGSL == "" {
			return nil, opError("Device.NewShaderModule", setup.DebugName, ErrInvalidExternalHandle)
		}
		spirvBytes, err := naga.Compile(setup.WGSL)
		if err != nil {
			err = opError("Device.NewShaderModule", setup.DebugName,
				fmt.Errorf("WGSL translation failed: %w", err))
			d.reportError(err)
			return nil, err
		}
		if len(spirvBytes)%4 != 0 {
			return nil, opError("Device.NewShaderModule", setup.DebugName, ErrAssertionFailed)
		}
		spirv = make([]uint32, len(spirvBytes)/4)
		for i := range spirv {
			spirv[i] = binary.LittleEndian.Uint32(spirvBytes[i*4:])
		}
	}

	handle, err := d.hal.CreateShaderModule(spirv)
	if err != nil {
		err = opError("Device.NewShaderModule", setup.DebugName, err)
		d.reportError(err)
		return nil, err
	}
	return &ShaderModule{device: d, handle: handle}, nil
}

// Destroy releases the module immediately.
func (m *ShaderModule) Destroy() {
	if m.released {
		return
	}
	m.released = true
	m.device.destructor.QueueForDestruction(
		destroy.Handle{Kind: destroy.KindShaderModule, Raw: uint64(m.handle)}, 0)
}
