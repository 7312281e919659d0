// Package types defines the shared value types of the tephra module:
// pipeline stage and access masks, image layouts and subresource ranges,
// copy regions, queue identifiers and the caller-facing access enums.
//
// The package is dependency-free so that it can be imported by the public
// API, the engine core and the HAL backends alike.
package types
