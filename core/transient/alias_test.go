package transient

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mib = uint64(1) << 20

func request(size uint64, first, last uint32) Request {
	return Request{
		Size:          size,
		Alignment:     256,
		Compatibility: 1,
		Lifetime:      Lifetime{FirstUsage: first, LastUsage: last},
	}
}

func TestPackingChainOfCopiesAliases(t *testing.T) {
	// Copy A->B; Copy B->C; Copy C->D. Lifetimes: A[0,0] B[0,1] C[1,2] D[2,2].
	requests := []Request{
		request(mib, 0, 0),
		request(mib, 0, 1),
		request(mib, 1, 2),
		request(mib, 2, 2),
	}
	placements, slots := PackRequests(requests, false)

	assert.Equal(t, uint64(4*mib), RequestedBytes(requests))
	assert.Equal(t, uint64(2*mib), CommittedBytes(slots))

	// A shares with C, B shares with D.
	assert.Equal(t, placements[0].Slot, placements[2].Slot)
	assert.Equal(t, placements[1].Slot, placements[3].Slot)
	assert.NotEqual(t, placements[0].Slot, placements[1].Slot)
}

func TestPackingCycleCannotAlias(t *testing.T) {
	// Copy A->B; Copy B->C; Copy C->A. Lifetimes: A[0,2] B[0,1] C[1,2].
	requests := []Request{
		request(mib, 0, 2),
		request(mib, 0, 1),
		request(mib, 1, 2),
	}
	_, slots := PackRequests(requests, false)

	assert.Equal(t, uint64(3*mib), RequestedBytes(requests))
	assert.Equal(t, uint64(3*mib), CommittedBytes(slots))
}

func TestPackingMixedSizesLargestFirst(t *testing.T) {
	// Sizes {1,4,2,2} MiB, sequential chain: A[0,0] B[0,1] C[1,2] D[2,2].
	requests := []Request{
		request(1*mib, 0, 0),
		request(4*mib, 0, 1),
		request(2*mib, 1, 2),
		request(2*mib, 2, 2),
	}
	_, slots := PackRequests(requests, false)

	assert.Equal(t, uint64(9*mib), RequestedBytes(requests))
	assert.Equal(t, uint64(6*mib), CommittedBytes(slots))
}

func TestUnusedRequestNotCommitted(t *testing.T) {
	requests := []Request{
		request(mib, 0, 0),
		{Size: mib, Alignment: 256, Compatibility: 1, Lifetime: UnusedLifetime()},
	}
	placements, slots := PackRequests(requests, false)

	assert.Equal(t, uint64(mib), CommittedBytes(slots))
	assert.Equal(t, -1, placements[1].Slot)
}

func TestIncompatibleRequestsNeverShare(t *testing.T) {
	a := request(mib, 0, 0)
	b := request(mib, 1, 1)
	b.Compatibility = 2

	placements, slots := PackRequests([]Request{a, b}, false)
	assert.Len(t, slots, 2)
	assert.NotEqual(t, placements[0].Slot, placements[1].Slot)
}

func TestDisabledAliasingGivesEveryRequestASlot(t *testing.T) {
	requests := []Request{
		request(mib, 0, 0),
		request(mib, 1, 1),
		request(mib, 2, 2),
	}
	_, slots := PackRequests(requests, true)
	assert.Len(t, slots, 3)
}

func TestExportPinsLifetimeToJobEnd(t *testing.T) {
	exported := request(mib, 0, LifetimeEnd)
	later := request(mib, 5, 6)

	placements, slots := PackRequests([]Request{exported, later}, false)
	require.Len(t, slots, 2)
	assert.NotEqual(t, placements[0].Slot, placements[1].Slot)
}

func TestLifetimeMarkUsage(t *testing.T) {
	l := UnusedLifetime()
	assert.True(t, l.IsUnused())

	l.MarkUsage(5)
	assert.Equal(t, Lifetime{FirstUsage: 5, LastUsage: 5}, l)

	l.MarkUsage(2)
	l.MarkUsage(9)
	assert.Equal(t, Lifetime{FirstUsage: 2, LastUsage: 9}, l)

	assert.True(t, l.Overlaps(Lifetime{FirstUsage: 9, LastUsage: 12}))
	assert.False(t, l.Overlaps(Lifetime{FirstUsage: 10, LastUsage: 12}))
	assert.False(t, l.Overlaps(UnusedLifetime()))
}
