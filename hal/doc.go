// Package hal defines the contract between the tephra engine and the
// underlying explicit graphics API.
//
// The engine assumes the native API provides typed destroy functions per
// handle kind, timeline semaphores with 64-bit monotonic values, pipeline
// barrier emission with buffer and image memory dependencies, and
// command-pool based one-time-submit primary command buffers. The Device
// interface expresses exactly that surface and nothing more; everything
// above it (state tracking, barrier placement, transient aliasing) is
// backend-independent.
//
// Two backends ship with the module: hal/vulkan, a pure Go Vulkan driver
// using goffi for FFI calls, and hal/noop, an in-memory driver for tests
// and CI environments without a GPU.
package hal
