package transient

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/tephra/hal"
	"github.com/gogpu/tephra/types"
)

// fakeRingBackend hands out numbered buffers with real byte storage.
type fakeRingBackend struct {
	next    hal.Buffer
	mapped  map[hal.Buffer][]byte
	created int
}

func newFakeRingBackend() *fakeRingBackend {
	return &fakeRingBackend{mapped: map[hal.Buffer][]byte{}}
}

func (b *fakeRingBackend) CreateBuffer(setup *hal.BufferSetup) (hal.Buffer, error) {
	b.next++
	b.mapped[b.next] = make([]byte, setup.Size)
	b.created++
	return b.next, nil
}

func (b *fakeRingBackend) DestroyBuffer(buffer hal.Buffer) {
	delete(b.mapped, buffer)
}

func (b *fakeRingBackend) MapBuffer(buffer hal.Buffer) ([]byte, error) {
	return b.mapped[buffer], nil
}

func newTestRing(backend RingBackend) *RingBuffer {
	return NewRingBuffer(backend, types.BufferUsageTransferSrc, 256,
		types.ExactOverallocation(), "test")
}

func TestRingPushPopFIFO(t *testing.T) {
	backend := newFakeRingBackend()
	ring := newTestRing(backend)

	a, err := ring.Push(1024, 1)
	require.NoError(t, err)
	b, err := ring.Push(1024, 2)
	require.NoError(t, err)

	assert.Equal(t, 2, ring.AllocationCount())
	assert.False(t, a.IsNull())
	assert.False(t, b.IsNull())

	ring.Pop(1)
	assert.Equal(t, 1, ring.AllocationCount())
	ring.Pop(2)
	assert.Equal(t, 0, ring.AllocationCount())
	assert.Equal(t, uint64(0), ring.TotalAllocationSize())
}

func TestRingLiveAllocationsAreDisjoint(t *testing.T) {
	backend := newFakeRingBackend()
	ring := NewRingBuffer(backend, types.BufferUsageTransferSrc, 256,
		types.OverallocationBehavior{RequestFactor: 1, GrowFactor: 0, MinAllocationBytes: 1 << 16}, "test")

	type span struct {
		buffer     hal.Buffer
		start, end uint64
	}
	var live []span
	for i := 0; i < 32; i++ {
		view, err := ring.Push(1000, uint64(i+1))
		require.NoError(t, err)
		for _, s := range live {
			if s.buffer == view.Buffer {
				disjoint := view.Offset+view.Size <= s.start || s.end <= view.Offset
				assert.True(t, disjoint, "allocation %d overlaps a live one", i)
			}
		}
		live = append(live, span{view.Buffer, view.Offset, view.Offset + view.Size})
	}
}

func TestRingWrapAroundReusesFreedSpace(t *testing.T) {
	backend := newFakeRingBackend()
	// One fixed 4 KiB region.
	ring := NewRingBuffer(backend, types.BufferUsageTransferSrc, 256,
		types.OverallocationBehavior{RequestFactor: 1, GrowFactor: 0, MinAllocationBytes: 4096}, "test")

	first, err := ring.Push(1536, 1)
	require.NoError(t, err)
	_, err = ring.Push(1536, 2)
	require.NoError(t, err)

	// Free the first allocation; the next push wraps around into its space
	// without growing a second region.
	ring.Pop(1)
	third, err := ring.Push(1536, 3)
	require.NoError(t, err)
	assert.Equal(t, first.Buffer, third.Buffer)
	assert.Equal(t, uint64(0), third.Offset)
	assert.Equal(t, 1, backend.created)
}

func TestRingGrowsWhenFull(t *testing.T) {
	backend := newFakeRingBackend()
	ring := newTestRing(backend)

	_, err := ring.Push(1024, 1)
	require.NoError(t, err)
	_, err = ring.Push(2048, 2)
	require.NoError(t, err)

	assert.Equal(t, 2, backend.created)
	assert.Equal(t, uint64(3072), ring.TotalSize())
}

func TestRingTrimReclaimsIdleRegions(t *testing.T) {
	backend := newFakeRingBackend()
	ring := newTestRing(backend)

	_, err := ring.Push(1024, 1)
	require.NoError(t, err)
	_, err = ring.Push(1024, 2)
	require.NoError(t, err)

	ring.Pop(2)

	var released []hal.Buffer
	reclaimed := ring.Trim(func(b hal.Buffer) { released = append(released, b) })
	assert.Equal(t, uint64(2048), reclaimed)
	assert.Len(t, released, 2)
	assert.Equal(t, uint64(0), ring.TotalSize())

	// The ring still works after trimming everything.
	_, err = ring.Push(512, 3)
	require.NoError(t, err)
}

func TestRingViewDataIsWritable(t *testing.T) {
	backend := newFakeRingBackend()
	ring := newTestRing(backend)

	view, err := ring.Push(16, 1)
	require.NoError(t, err)
	copy(view.Data, []byte("0123456789abcdef"))

	stored := backend.mapped[view.Buffer]
	assert.Equal(t, []byte("0123456789abcdef"), stored[view.Offset:view.Offset+16])
}

func TestRingRejectsDecreasingTimestamps(t *testing.T) {
	backend := newFakeRingBackend()
	ring := newTestRing(backend)

	_, err := ring.Push(64, 5)
	require.NoError(t, err)
	_, err = ring.Push(64, 4)
	assert.Error(t, err)
}
