// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package vulkan implements the tephra HAL on Vulkan 1.2.
//
// The backend uses goffi for cross-platform Vulkan calls, requiring no
// cgo. Timeline semaphores (core in 1.2) back the engine's timestamps;
// command pools are created transient and recycled between submits.
//
// Import the package for its side effect of registering the "vulkan"
// driver:
//
//	import _ "github.com/gogpu/tephra/hal/vulkan"
//	driver, err := hal.NewDevice("vulkan")
package vulkan
