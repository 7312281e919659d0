package noop

import "github.com/gogpu/tephra/hal"

// init registers the noop backend with the HAL registry.
func init() {
	hal.RegisterDriver("noop", func() (hal.Device, error) {
		return NewDevice(), nil
	})
}
