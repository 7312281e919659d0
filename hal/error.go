package hal

import "errors"

// Driver-level errors. Backends translate native return codes into these;
// the tephra package wraps them with contextual breadcrumbs.
var (
	// ErrInitializationFailed indicates the driver could not be initialized.
	ErrInitializationFailed = errors.New("hal: initialization failed")

	// ErrOutOfHostMemory indicates a host allocation failed inside the driver.
	ErrOutOfHostMemory = errors.New("hal: out of host memory")

	// ErrOutOfDeviceMemory indicates the GPU has exhausted its memory.
	ErrOutOfDeviceMemory = errors.New("hal: out of device memory")

	// ErrFragmentation indicates an allocation failed due to fragmentation
	// of the memory heap.
	ErrFragmentation = errors.New("hal: allocation failed due to fragmentation")

	// ErrDeviceLost indicates the device has been lost (driver crash,
	// hardware reset, TDR). The device cannot be recovered.
	ErrDeviceLost = errors.New("hal: device lost")

	// ErrSurfaceLost indicates the presentation surface was destroyed.
	ErrSurfaceLost = errors.New("hal: surface lost")

	// ErrOutOfDate indicates the swapchain no longer matches the surface.
	ErrOutOfDate = errors.New("hal: swapchain out of date")

	// ErrLayerNotPresent indicates a requested native layer is missing.
	ErrLayerNotPresent = errors.New("hal: layer not present")

	// ErrExtensionNotPresent indicates a requested extension is missing.
	ErrExtensionNotPresent = errors.New("hal: extension not present")

	// ErrFeatureNotPresent indicates a requested feature is unsupported.
	ErrFeatureNotPresent = errors.New("hal: feature not present")

	// ErrFormatNotSupported indicates the format cannot back the requested
	// usage.
	ErrFormatNotSupported = errors.New("hal: format not supported")

	// ErrMemoryMapFailed indicates a host mapping could not be established.
	ErrMemoryMapFailed = errors.New("hal: memory map failed")

	// ErrTooManyObjects indicates the driver ran out of object slots.
	ErrTooManyObjects = errors.New("hal: too many objects")

	// ErrInvalidExternalHandle indicates an imported handle was rejected.
	ErrInvalidExternalHandle = errors.New("hal: invalid external handle")

	// ErrUnsupportedOperation indicates the backend cannot perform the
	// requested operation.
	ErrUnsupportedOperation = errors.New("hal: unsupported operation")
)
