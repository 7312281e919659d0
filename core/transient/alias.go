// Package transient allocates job-local resources. Job-local buffers and
// images are packed by lifetime analysis: transients whose lifetime
// intervals do not overlap may alias the same backing slot. Preinitialized
// buffers come from a growable ring buffer and are never aliased within a
// job, so they can be host-mapped safely.
package transient

// LifetimeNever marks a resource that is never used by any command.
const LifetimeNever = ^uint32(0)

// LifetimeEnd marks a usage that extends past the end of the job, e.g. an
// export.
const LifetimeEnd = ^uint32(0) - 1

// Lifetime is the inclusive command index interval during which a
// transient is alive.
type Lifetime struct {
	FirstUsage uint32
	LastUsage  uint32
}

// UnusedLifetime returns the lifetime of a transient no command touches.
func UnusedLifetime() Lifetime {
	return Lifetime{FirstUsage: LifetimeNever, LastUsage: 0}
}

// IsUnused reports whether no command uses the resource.
func (l Lifetime) IsUnused() bool {
	return l.FirstUsage == LifetimeNever
}

// MarkUsage extends the lifetime to cover the command index.
func (l *Lifetime) MarkUsage(commandIndex uint32) {
	if l.IsUnused() {
		l.FirstUsage = commandIndex
		l.LastUsage = commandIndex
		return
	}
	if commandIndex < l.FirstUsage {
		l.FirstUsage = commandIndex
	}
	if commandIndex > l.LastUsage {
		l.LastUsage = commandIndex
	}
}

// Overlaps reports whether two lifetimes overlap. Unused lifetimes overlap
// nothing.
func (l Lifetime) Overlaps(other Lifetime) bool {
	if l.IsUnused() || other.IsUnused() {
		return false
	}
	return l.FirstUsage <= other.LastUsage && other.FirstUsage <= l.LastUsage
}

// Request describes one transient to place.
type Request struct {
	// Size in bytes of the backing store needed.
	Size uint64

	// Alignment required by the backing slot.
	Alignment uint64

	// Compatibility keys slots apart: only requests with equal keys may
	// share a slot (usage class for buffers, format class and sample count
	// for images).
	Compatibility uint64

	// Lifetime of the transient in command indices.
	Lifetime Lifetime
}

// Placement is the slot assignment of one request. An unused request gets
// Slot -1 and no backing.
type Placement struct {
	Slot int
}

// Slot is one backing allocation shared by non-overlapping transients.
type Slot struct {
	Size          uint64
	Alignment     uint64
	Compatibility uint64
}

// PackRequests computes a non-overlap-aware packing of the requests.
// Requests are placed largest first to avoid suboptimal early commitments;
// a request reuses the first slot of compatible requirements whose already
// placed lifetimes it does not overlap. With disableAliasing set, every
// used request gets its own slot.
func PackRequests(requests []Request, disableAliasing bool) ([]Placement, []Slot) {
	placements := make([]Placement, len(requests))
	for i := range placements {
		placements[i].Slot = -1
	}

	// Largest first; stable on equal sizes to keep packing deterministic.
	order := make([]int, 0, len(requests))
	for i := range requests {
		if !requests[i].Lifetime.IsUnused() {
			order = append(order, i)
		}
	}
	for i := 1; i < len(order); i++ {
		for j := i; j > 0 && requests[order[j]].Size > requests[order[j-1]].Size; j-- {
			order[j], order[j-1] = order[j-1], order[j]
		}
	}

	var slots []Slot
	slotRequests := make([][]int, 0)

	for _, reqIndex := range order {
		req := &requests[reqIndex]

		placed := false
		if !disableAliasing {
			for slotIndex := range slots {
				slot := &slots[slotIndex]
				if slot.Compatibility != req.Compatibility || slot.Size < req.Size {
					continue
				}
				conflict := false
				for _, otherIndex := range slotRequests[slotIndex] {
					if req.Lifetime.Overlaps(requests[otherIndex].Lifetime) {
						conflict = true
						break
					}
				}
				if conflict {
					continue
				}
				if req.Alignment > slot.Alignment {
					slot.Alignment = req.Alignment
				}
				placements[reqIndex].Slot = slotIndex
				slotRequests[slotIndex] = append(slotRequests[slotIndex], reqIndex)
				placed = true
				break
			}
		}

		if !placed {
			slots = append(slots, Slot{
				Size:          req.Size,
				Alignment:     req.Alignment,
				Compatibility: req.Compatibility,
			})
			slotRequests = append(slotRequests, []int{reqIndex})
			placements[reqIndex].Slot = len(slots) - 1
		}
	}
	return placements, slots
}

// RequestedBytes sums the sizes of all used requests.
func RequestedBytes(requests []Request) uint64 {
	var total uint64
	for i := range requests {
		if !requests[i].Lifetime.IsUnused() {
			total += requests[i].Size
		}
	}
	return total
}

// CommittedBytes sums the sizes of the packed slots.
func CommittedBytes(slots []Slot) uint64 {
	var total uint64
	for i := range slots {
		total += slots[i].Size
	}
	return total
}
