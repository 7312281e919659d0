// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package vk provides the pure Go Vulkan bindings the tephra engine
// needs, using goffi for FFI calls - no cgo.
//
// # goffi calling convention
//
// goffi expects args[] to contain pointers to WHERE argument values are
// stored, not the values themselves. This applies to all argument types,
// including pointers:
//
//	var value uint64 = 42
//	args[i] = unsafe.Pointer(&value)  // scalar: pointer to its storage
//
//	ptr := unsafe.Pointer(&data[0])   // this IS the pointer value
//	args[i] = unsafe.Pointer(&ptr)    // pointer arg: pointer TO the pointer
//
// goffi calls ffi_call() internally, which reads argument values from the
// addresses in the args array.
package vk

import (
	"fmt"
	"runtime"
	"sync"
	"unsafe"

	"github.com/go-webgpu/goffi/ffi"
	"github.com/go-webgpu/goffi/types"
)

var (
	vulkanLib             unsafe.Pointer
	getInstanceProcAddr   unsafe.Pointer
	getDeviceProcAddr     unsafe.Pointer
	cifGetInstanceProcAddr types.CallInterface
	cifGetDeviceProcAddr  types.CallInterface

	initOnce sync.Once
	errInit  error
)

// vulkanLibraryName returns the platform-specific Vulkan library name.
func vulkanLibraryName() string {
	switch runtime.GOOS {
	case "windows":
		return "vulkan-1.dll"
	case "darwin":
		return "libvulkan.dylib" // MoltenVK
	default: // linux, freebsd, etc.
		return "libvulkan.so.1"
	}
}

// Init loads the Vulkan library and prepares the loader entry points.
// Safe to call multiple times; only the first call does work.
func Init() error {
	initOnce.Do(func() {
		errInit = doInit()
	})
	return errInit
}

func doInit() error {
	var err error

	vulkanLib, err = ffi.LoadLibrary(vulkanLibraryName())
	if err != nil {
		return fmt.Errorf("vk: failed to load %s: %w", vulkanLibraryName(), err)
	}

	getInstanceProcAddr, err = ffi.GetSymbol(vulkanLib, "vkGetInstanceProcAddr")
	if err != nil {
		return fmt.Errorf("vk: vkGetInstanceProcAddr not found: %w", err)
	}

	// PFN_vkVoidFunction vkGetInstanceProcAddr(VkInstance, const char*)
	err = ffi.PrepareCallInterface(&cifGetInstanceProcAddr, types.DefaultCall,
		types.PointerTypeDescriptor,
		[]*types.TypeDescriptor{
			types.UInt64TypeDescriptor,
			types.PointerTypeDescriptor,
		})
	if err != nil {
		return fmt.Errorf("vk: prepare GetInstanceProcAddr: %w", err)
	}

	// PFN_vkVoidFunction vkGetDeviceProcAddr(VkDevice, const char*)
	err = ffi.PrepareCallInterface(&cifGetDeviceProcAddr, types.DefaultCall,
		types.PointerTypeDescriptor,
		[]*types.TypeDescriptor{
			types.UInt64TypeDescriptor,
			types.PointerTypeDescriptor,
		})
	if err != nil {
		return fmt.Errorf("vk: prepare GetDeviceProcAddr: %w", err)
	}

	return prepareSignatures()
}

// GetInstanceProcAddr resolves an instance-level function. Pass instance 0
// for global functions (vkCreateInstance, vkEnumerateInstance*).
func GetInstanceProcAddr(instance Instance, name string) unsafe.Pointer {
	if getInstanceProcAddr == nil {
		return nil
	}
	cname := make([]byte, len(name)+1)
	copy(cname, name)

	var result unsafe.Pointer
	namePtr := unsafe.Pointer(&cname[0])
	args := [2]unsafe.Pointer{
		unsafe.Pointer(&instance),
		unsafe.Pointer(&namePtr),
	}
	_ = ffi.CallFunction(&cifGetInstanceProcAddr, getInstanceProcAddr, unsafe.Pointer(&result), args[:])
	return result
}

// SetDeviceProcAddr resolves vkGetDeviceProcAddr through a live instance.
// Some drivers refuse to resolve it with instance 0.
func SetDeviceProcAddr(instance Instance) {
	if getDeviceProcAddr == nil {
		getDeviceProcAddr = GetInstanceProcAddr(instance, "vkGetDeviceProcAddr")
	}
}

// GetDeviceProcAddr resolves a device-level function.
func GetDeviceProcAddr(device Device, name string) unsafe.Pointer {
	if getDeviceProcAddr == nil {
		getDeviceProcAddr = GetInstanceProcAddr(0, "vkGetDeviceProcAddr")
		if getDeviceProcAddr == nil {
			return nil
		}
	}
	cname := make([]byte, len(name)+1)
	copy(cname, name)

	var result unsafe.Pointer
	namePtr := unsafe.Pointer(&cname[0])
	args := [2]unsafe.Pointer{
		unsafe.Pointer(&device),
		unsafe.Pointer(&namePtr),
	}
	_ = ffi.CallFunction(&cifGetDeviceProcAddr, getDeviceProcAddr, unsafe.Pointer(&result), args[:])
	return result
}

// Close releases the Vulkan library.
func Close() error {
	if vulkanLib != nil {
		err := ffi.FreeLibrary(vulkanLib)
		vulkanLib = nil
		getInstanceProcAddr = nil
		getDeviceProcAddr = nil
		return err
	}
	return nil
}
