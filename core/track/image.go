package track

import (
	"github.com/gogpu/tephra/hal"
	"github.com/gogpu/tephra/types"
)

// imageRangeEntry describes how a particular range of an image has been
// previously accessed and synchronized.
type imageRangeEntry struct {
	rng ImageAccessRange

	lastWriteAccess        ResourceAccess
	barrierIndexAfterWrite int
	lastReadAccesses       ResourceAccess
	barrierIndexAfterReads int
	wasExported            bool
	barrierAfterWrite      BarrierReference

	// layout is the current layout of the subresource range.
	layout types.ImageLayout
}

// ImageAccessMap maintains the past accesses of a single image resource.
// There is no total order on overlapping image ranges, so entries live in
// a flat vector where null ranges mark deleted elements; a compaction step
// runs lazily at job boundaries.
type ImageAccessMap struct {
	image     hal.Image
	lastJobID uint64
	entries   []imageRangeEntry
}

// NewImageAccessMap makes a map covering the whole image with an undefined
// layout.
func NewImageAccessMap(image hal.Image) *ImageAccessMap {
	m := &ImageAccessMap{image: image}
	m.Clear()
	return m
}

// AccessCount returns the number of tracked access ranges, tombstones
// included until the next compaction.
func (m *ImageAccessMap) AccessCount() int {
	return len(m.entries)
}

// Clear drops all previous accesses and resets the whole image to the
// undefined layout.
func (m *ImageAccessMap) Clear() {
	m.entries = m.entries[:0]
	// The actual range of the image is unknown here; cover everything.
	m.entries = append(m.entries, imageRangeEntry{
		rng: ImageAccessRange{
			AspectMask:      types.AspectColor | types.AspectDepth | types.AspectStencil,
			BaseArrayLayer:  0,
			ArrayLayerCount: ^uint32(0),
			MipLevelMask:    ^uint32(0),
		},
		barrierAfterWrite: NullBarrierReference(),
		layout:            types.LayoutUndefined,
	})
}

// SynchronizeNewAccess synchronizes the new access with the previous ones
// through the provided barrier list. A layout transition is synchronized
// like a write access even when the access mask is read-only.
func (m *ImageAccessMap) SynchronizeNewAccess(newAccess *NewImageAccess, commandIndex uint32, barriers *BarrierList) {
	if m.lastJobID != barriers.JobID() {
		// Lazy compaction and barrier reset at the job boundary.
		m.compactAndResetBarriers()
		m.lastJobID = barriers.JobID()
	}

	// Iterate over the preexisting ranges only; splits append to the tail.
	origLen := len(m.entries)
	for i := 0; i < origLen; i++ {
		entry := &m.entries[i]
		if !newAccess.Range.Overlaps(entry.rng) {
			continue
		}

		needsLayoutTransition := newAccess.Layout != entry.layout && newAccess.Layout != types.LayoutUndefined
		if newAccess.IsReadOnly() && !needsLayoutTransition {
			// Read accesses depend on the last write access.
			if entry.lastReadAccesses.Contains(newAccess.ResourceAccess) {
				continue
			}

			if !entry.lastWriteAccess.IsNull() {
				dep := NewImageDependency(m.image, entry.rng, entry.lastWriteAccess,
					newAccess.ResourceAccess, entry.layout, newAccess.Layout)
				if !entry.barrierAfterWrite.IsNull() {
					entry.barrierAfterWrite = barriers.ReuseDependency(dep, entry.barrierAfterWrite)
				} else {
					entry.barrierAfterWrite = barriers.SynchronizeDependency(
						dep, commandIndex, entry.barrierIndexAfterWrite, entry.wasExported)
				}
			}
			continue
		}

		// Write accesses (and layout transitions) depend on both the
		// previous reads and the last write.
		intersection := intersectImageRanges(entry.rng, newAccess.Range)
		lastBarrier := NullBarrierReference()

		if !entry.lastReadAccesses.IsNull() {
			dep := NewImageDependency(m.image, intersection, entry.lastReadAccesses,
				newAccess.ResourceAccess, entry.layout, newAccess.Layout)
			lastBarrier = barriers.SynchronizeDependency(
				dep, commandIndex, entry.barrierIndexAfterReads, entry.wasExported)
		}

		if !entry.lastWriteAccess.IsNull() {
			dep := NewImageDependency(m.image, intersection, entry.lastWriteAccess,
				newAccess.ResourceAccess, entry.layout, newAccess.Layout)

			switch {
			case !entry.barrierAfterWrite.IsNull() && !needsLayoutTransition:
				barriers.ReuseDependency(dep, entry.barrierAfterWrite)
			case !lastBarrier.IsNull():
				barriers.ReuseDependency(dep, lastBarrier)
			default:
				lastBarrier = barriers.SynchronizeDependency(
					dep, commandIndex, entry.barrierIndexAfterWrite, entry.wasExported)
			}
		}

		if needsLayoutTransition {
			if lastBarrier.IsNull() {
				// A layout transition with no previous access to
				// synchronize against - just transition.
				noneAccess := ResourceAccess{StageMask: types.StageTopOfPipe}
				dep := NewImageDependency(m.image, intersection, noneAccess,
					newAccess.ResourceAccess, entry.layout, newAccess.Layout)
				lastBarrier = barriers.SynchronizeDependency(
					dep, commandIndex, entry.barrierIndexAfterWrite, entry.wasExported)
			}

			if newAccess.IsReadOnly() {
				// A read access with a layout transition synchronizes like
				// a write, but its transition barrier stays reusable for
				// future reads in the same layout. Split the overlapping
				// range and record the barrier for the intersection.
				m.splitOverlappingRange(i, newAccess.Range)
				m.entries[i].barrierAfterWrite = lastBarrier
			}
		}
	}
}

// InsertNewAccess updates the map with the new access so that future
// accesses synchronize against it.
func (m *ImageAccessMap) InsertNewAccess(newAccess *NewImageAccess, nextBarrierIndex int, forceOverwrite, isExport bool) {
	if newAccess.IsReadOnly() && !forceOverwrite {
		// Read accesses extend previous entries, except when they needed a
		// layout transition - then they partly act like writes.
		for i := range m.entries {
			entry := &m.entries[i]
			if !newAccess.Range.Overlaps(entry.rng) {
				continue
			}

			hadLayoutTransition := newAccess.Layout != entry.layout && newAccess.Layout != types.LayoutUndefined
			if !hadLayoutTransition {
				entry.lastReadAccesses = entry.lastReadAccesses.Union(newAccess.ResourceAccess)
				entry.barrierIndexAfterReads = nextBarrierIndex
				entry.wasExported = entry.wasExported || isExport
			} else {
				// Treat the transition as a new write access, but keep the
				// reference to the original transition barrier so it can
				// be reused later.
				entry.lastWriteAccess = newAccess.ResourceAccess
				entry.lastReadAccesses = newAccess.ResourceAccess
				entry.barrierIndexAfterReads = nextBarrierIndex
				entry.wasExported = isExport
				entry.layout = newAccess.Layout
			}
		}
		return
	}

	// Erase all overlapping ranges and insert the new entry.
	hasAddedEntry := false
	origLen := len(m.entries)
	for i := 0; i < origLen; i++ {
		if !newAccess.Range.Overlaps(m.entries[i].rng) {
			continue
		}
		m.splitOverlappingRange(i, newAccess.Range)

		if !hasAddedEntry {
			m.entries[i] = imageRangeEntry{
				rng:                    newAccess.Range,
				lastWriteAccess:        newAccess.ResourceAccess,
				barrierIndexAfterWrite: nextBarrierIndex,
				wasExported:            isExport,
				barrierAfterWrite:      NullBarrierReference(),
				layout:                 newAccess.Layout,
			}
			hasAddedEntry = true
		} else {
			// Tombstone; reaped at the next compaction.
			m.entries[i].rng = ImageAccessRange{}
		}
	}
}

// DiscardContents marks the range as not needing its contents preserved:
// overlapping entries are split and their layout reset to undefined, so a
// subsequent transition may discard.
func (m *ImageAccessMap) DiscardContents(rng ImageAccessRange) {
	origLen := len(m.entries)
	for i := 0; i < origLen; i++ {
		if rng.Overlaps(m.entries[i].rng) && m.entries[i].layout != types.LayoutUndefined {
			m.splitOverlappingRange(i, rng)
			m.entries[i].layout = types.LayoutUndefined
		}
	}
}

// compactAndResetBarriers removes tombstones and drops the recorded
// barrier information of past accesses.
func (m *ImageAccessMap) compactAndResetBarriers() {
	kept := m.entries[:0]
	for i := range m.entries {
		entry := m.entries[i]
		if entry.rng.IsNull() {
			continue
		}
		entry.barrierIndexAfterReads = 0
		entry.barrierIndexAfterWrite = 0
		entry.barrierAfterWrite = NullBarrierReference()
		kept = append(kept, entry)
	}
	m.entries = kept
}

// splitOverlappingRange reduces the entry at entryIndex to its
// intersection with overlappingRange and appends the non-overlapping
// leftovers (aspect, mip and layer remainders) as new entries.
func (m *ImageAccessMap) splitOverlappingRange(entryIndex int, overlappingRange ImageAccessRange) {
	entryRange := m.entries[entryIndex].rng
	entry := m.entries[entryIndex]

	intersection := intersectImageRanges(entryRange, overlappingRange)
	m.entries[entryIndex].rng = intersection

	if entryRange.AspectMask != overlappingRange.AspectMask {
		remainder := entry
		remainder.rng = intersection
		remainder.rng.AspectMask = entryRange.AspectMask &^ overlappingRange.AspectMask
		if !remainder.rng.IsNull() {
			m.entries = append(m.entries, remainder)
		}
	}

	if entryRange.MipLevelMask != overlappingRange.MipLevelMask {
		remainder := entry
		remainder.rng = intersection
		remainder.rng.MipLevelMask = entryRange.MipLevelMask &^ overlappingRange.MipLevelMask
		if !remainder.rng.IsNull() {
			m.entries = append(m.entries, remainder)
		}
	}

	if left := diffLeftImageRanges(entryRange, overlappingRange); !left.IsNull() {
		remainder := entry
		remainder.rng = left
		m.entries = append(m.entries, remainder)
	}

	if right := diffRightImageRanges(entryRange, overlappingRange); !right.IsNull() {
		remainder := entry
		remainder.rng = right
		m.entries = append(m.entries, remainder)
	}
}
