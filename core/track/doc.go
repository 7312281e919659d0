// Package track maintains per-resource access maps and synthesizes the
// pipeline barriers that synchronize new accesses against past ones.
//
// A BufferAccessMap or ImageAccessMap records, for every subrange of a
// resource, the last write access, the read accesses accumulated since
// that write, and references to the barriers that already synchronize
// them. When a new access arrives, the map emits only the execution and
// memory dependencies that are not yet covered, reusing and extending
// existing barriers in the BarrierList where their extended stage masks
// permit.
package track
