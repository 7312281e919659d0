package track

import (
	"sort"

	"github.com/gogpu/tephra/hal"
)

// bufferRangeEntry describes how a particular range of a buffer has been
// previously accessed and synchronized.
type bufferRangeEntry struct {
	rng BufferAccessRange

	// lastWriteAccess records the last write access to this range.
	lastWriteAccess ResourceAccess

	// barrierIndexAfterWrite captures when the write happened; barriers at
	// or after this index may be reused to synchronize against it.
	barrierIndexAfterWrite int

	// lastReadAccesses accumulates all read accesses since the last write.
	lastReadAccesses ResourceAccess

	barrierIndexAfterReads int

	// wasExported marks that one of the last accesses was an export.
	wasExported bool

	// barrierAfterWrite is the barrier that already synchronizes reads
	// with the preceding write, reusable for further reads.
	barrierAfterWrite BarrierReference
}

// BufferAccessMap maintains the past accesses of a single buffer resource,
// using them to synchronize new accesses. Entries are kept sorted by
// offset and never overlap; together they always cover the whole resource.
type BufferAccessMap struct {
	buffer    hal.Buffer
	lastJobID uint64
	entries   []bufferRangeEntry
}

// NewBufferAccessMap makes a map covering the whole buffer with a single
// never-accessed entry.
func NewBufferAccessMap(buffer hal.Buffer) *BufferAccessMap {
	m := &BufferAccessMap{buffer: buffer}
	m.Clear()
	return m
}

// AccessCount returns the number of currently tracked access ranges.
func (m *BufferAccessMap) AccessCount() int {
	return len(m.entries)
}

// Clear drops all previous accesses and barriers.
func (m *BufferAccessMap) Clear() {
	m.entries = m.entries[:0]
	// The actual buffer size is unknown here; cover everything.
	m.entries = append(m.entries, bufferRangeEntry{
		rng:               BufferAccessRange{Offset: 0, Size: ^uint64(0)},
		barrierAfterWrite: NullBarrierReference(),
	})
}

// overlappingSpan returns the index range [first, last) of entries
// overlapping rng.
func (m *BufferAccessMap) overlappingSpan(rng BufferAccessRange) (int, int) {
	first := sort.Search(len(m.entries), func(i int) bool {
		return m.entries[i].rng.End() > rng.Start()
	})
	last := first
	for last < len(m.entries) && m.entries[last].rng.Start() < rng.End() {
		last++
	}
	return first, last
}

// SynchronizeNewAccess synchronizes the new access with the previous ones
// through the provided barrier list. It does not modify the map in a way
// that affects future accesses.
func (m *BufferAccessMap) SynchronizeNewAccess(newAccess *NewBufferAccess, commandIndex uint32, barriers *BarrierList) {
	if m.lastJobID != barriers.JobID() {
		// Lazy barrier reset at the job boundary.
		m.resetBarriers()
		m.lastJobID = barriers.JobID()
	}

	first, last := m.overlappingSpan(newAccess.Range)
	for i := first; i < last; i++ {
		entry := &m.entries[i]

		if newAccess.IsReadOnly() {
			// Read accesses depend on the last write access.
			if entry.lastReadAccesses.Contains(newAccess.ResourceAccess) {
				// Nothing to synchronize.
				continue
			}

			if !entry.lastWriteAccess.IsNull() {
				// A read-after-write dependency over the entry's whole range.
				dep := NewBufferDependency(m.buffer, entry.rng, entry.lastWriteAccess, newAccess.ResourceAccess)
				if !entry.barrierAfterWrite.IsNull() {
					entry.barrierAfterWrite = barriers.ReuseDependency(dep, entry.barrierAfterWrite)
				} else {
					entry.barrierAfterWrite = barriers.SynchronizeDependency(
						dep, commandIndex, entry.barrierIndexAfterWrite, entry.wasExported)
				}
			}
		} else {
			// Write accesses depend on both the previous reads and the
			// last write.
			intersection := intersectBufferRanges(entry.rng, newAccess.Range)
			lastBarrier := NullBarrierReference()

			if !entry.lastReadAccesses.IsNull() {
				dep := NewBufferDependency(m.buffer, intersection, entry.lastReadAccesses, newAccess.ResourceAccess)
				lastBarrier = barriers.SynchronizeDependency(
					dep, commandIndex, entry.barrierIndexAfterReads, entry.wasExported)
			}

			if !entry.lastWriteAccess.IsNull() {
				dep := NewBufferDependency(m.buffer, intersection, entry.lastWriteAccess, newAccess.ResourceAccess)

				// Prefer reusing an existing barrier for the
				// write-after-write dependency.
				switch {
				case !entry.barrierAfterWrite.IsNull():
					barriers.ReuseDependency(dep, entry.barrierAfterWrite)
				case !lastBarrier.IsNull():
					barriers.ReuseDependency(dep, lastBarrier)
				default:
					barriers.SynchronizeDependency(dep, commandIndex, entry.barrierIndexAfterWrite, entry.wasExported)
				}
			}
		}
	}
}

// InsertNewAccess updates the map with the new access so that future
// accesses synchronize against it. Read accesses extend overlapping
// entries unless forceOverwrite is set; write or forced accesses split and
// replace them.
func (m *BufferAccessMap) InsertNewAccess(newAccess *NewBufferAccess, nextBarrierIndex int, forceOverwrite, isExport bool) {
	first, last := m.overlappingSpan(newAccess.Range)

	if newAccess.IsReadOnly() && !forceOverwrite {
		// Read accesses don't subdivide previous accesses, just extend them.
		for i := first; i < last; i++ {
			entry := &m.entries[i]
			entry.lastReadAccesses = entry.lastReadAccesses.Union(newAccess.ResourceAccess)
			entry.barrierIndexAfterReads = nextBarrierIndex
			entry.wasExported = entry.wasExported || isExport
		}
		return
	}

	// Replace the overlapping span, preserving the non-overlapping parts
	// of the boundary entries.
	newEntry := bufferRangeEntry{
		rng:                    newAccess.Range,
		lastWriteAccess:        newAccess.ResourceAccess,
		barrierIndexAfterWrite: nextBarrierIndex,
		wasExported:            isExport,
		barrierAfterWrite:      NullBarrierReference(),
	}

	replacement := make([]bufferRangeEntry, 0, 3)
	for i := first; i < last; i++ {
		if left := diffLeftBufferRanges(m.entries[i].rng, newAccess.Range); !left.IsNull() {
			kept := m.entries[i]
			kept.rng = left
			replacement = append(replacement, kept)
		}
	}
	replacement = append(replacement, newEntry)
	for i := first; i < last; i++ {
		if right := diffRightBufferRanges(m.entries[i].rng, newAccess.Range); !right.IsNull() {
			kept := m.entries[i]
			kept.rng = right
			replacement = append(replacement, kept)
		}
	}

	tail := make([]bufferRangeEntry, len(m.entries)-last)
	copy(tail, m.entries[last:])
	m.entries = append(m.entries[:first], replacement...)
	m.entries = append(m.entries, tail...)
}

// resetBarriers drops the recorded barrier information of past accesses.
// Barrier indices only have meaning within a single job.
func (m *BufferAccessMap) resetBarriers() {
	for i := range m.entries {
		m.entries[i].barrierIndexAfterReads = 0
		m.entries[i].barrierIndexAfterWrite = 0
		m.entries[i].barrierAfterWrite = NullBarrierReference()
	}
}
