// Package noop provides a GPU-less HAL backend.
//
// The noop backend implements the full hal.Device contract in host memory:
// buffers and images are byte slices, timeline semaphores are plain
// counters, and submitted command buffers execute immediately on the
// calling thread. Transfer commands really move bytes, so data round-trip
// tests behave like they would on hardware - just without the asynchrony.
//
// It is useful for:
//   - testing engine code without GPU hardware
//   - CI environments without GPU access
//   - a reference implementation of the minimal HAL requirements
package noop
