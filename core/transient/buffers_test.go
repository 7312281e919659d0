package transient

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/tephra/hal"
	"github.com/gogpu/tephra/types"
)

type fakeBufferBackend struct {
	next      hal.Buffer
	created   int
	destroyed int
}

func (b *fakeBufferBackend) CreateBuffer(setup *hal.BufferSetup) (hal.Buffer, error) {
	b.next++
	b.created++
	return b.next, nil
}

func (b *fakeBufferBackend) DestroyBuffer(buffer hal.Buffer) {
	b.destroyed++
}

func bufferRequests(sizes []uint64, lifetimes []Lifetime) []BufferRequest {
	requests := make([]BufferRequest, len(sizes))
	for i := range sizes {
		requests[i] = BufferRequest{
			Size:      sizes[i],
			Alignment: 256,
			Usage:     types.BufferUsageTransferSrc | types.BufferUsageTransferDst,
			Lifetime:  lifetimes[i],
		}
	}
	return requests
}

func TestBufferAllocatorReusesBackingsAcrossJobs(t *testing.T) {
	backend := &fakeBufferBackend{}
	a := NewBufferAllocator(backend, types.ExactOverallocation(), false, "test")

	requests := bufferRequests([]uint64{mib}, []Lifetime{{0, 0}})

	// First job creates a backing.
	placements, stats, err := a.AllocateJobBuffers(requests, 1, 0)
	require.NoError(t, err)
	require.False(t, placements[0].Buffer.IsNull())
	assert.Equal(t, mib, stats.CommittedBytes)
	assert.Equal(t, 1, backend.created)

	// A second job while the first is in flight needs a fresh backing.
	_, _, err = a.AllocateJobBuffers(requests, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, backend.created)

	// Once both jobs finished, the pool serves from existing backings.
	_, _, err = a.AllocateJobBuffers(requests, 3, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, backend.created)
	assert.Equal(t, 2, a.AllocationCount())
}

func TestBufferAllocatorTrim(t *testing.T) {
	backend := &fakeBufferBackend{}
	a := NewBufferAllocator(backend, types.ExactOverallocation(), false, "test")

	requests := bufferRequests([]uint64{mib}, []Lifetime{{0, 0}})
	_, _, err := a.AllocateJobBuffers(requests, 1, 0)
	require.NoError(t, err)

	// Still in flight: nothing to trim.
	assert.Equal(t, uint64(0), a.Trim(0, func(hal.Buffer) {}))

	var released []hal.Buffer
	freed := a.Trim(1, func(b hal.Buffer) { released = append(released, b) })
	assert.Equal(t, mib, freed)
	assert.Len(t, released, 1)
	assert.Equal(t, 0, a.AllocationCount())
	assert.Equal(t, uint64(0), a.TotalSize())
}

func TestBufferAllocatorUnusedRequestGetsNoBacking(t *testing.T) {
	backend := &fakeBufferBackend{}
	a := NewBufferAllocator(backend, types.ExactOverallocation(), false, "test")

	requests := bufferRequests([]uint64{mib}, []Lifetime{UnusedLifetime()})
	placements, stats, err := a.AllocateJobBuffers(requests, 1, 0)
	require.NoError(t, err)
	assert.True(t, placements[0].Buffer.IsNull())
	assert.Equal(t, uint64(0), stats.CommittedBytes)
	assert.Equal(t, 0, backend.created)
}

type fakeImageBackend struct {
	nextMemory hal.Memory
	nextImage  hal.Image
	allocated  int
	images     int
}

func (b *fakeImageBackend) GetImageMemoryRequirements(setup *hal.ImageSetup) hal.MemoryRequirements {
	props := types.GetFormatClassProperties(setup.Format)
	size := uint64(setup.Extent.Width) * uint64(setup.Extent.Height) *
		uint64(setup.ArrayLayerCount) * uint64(props.TexelBlockBytes)
	return hal.MemoryRequirements{Size: size, Alignment: 256}
}

func (b *fakeImageBackend) AllocateMemory(size uint64) (hal.Memory, error) {
	b.nextMemory++
	b.allocated++
	return b.nextMemory, nil
}

func (b *fakeImageBackend) FreeMemory(memory hal.Memory) {}

func (b *fakeImageBackend) CreateAliasedImage(setup *hal.ImageSetup, memory hal.Memory, offset uint64) (hal.Image, error) {
	b.nextImage++
	b.images++
	return b.nextImage, nil
}

func (b *fakeImageBackend) DestroyImage(image hal.Image) {}

func TestImageAllocatorSharesMemoryNotHandles(t *testing.T) {
	backend := &fakeImageBackend{}
	a := NewImageAllocator(backend, false)

	setup := hal.ImageSetup{
		Type:            types.ImageType2D,
		Format:          types.FormatR8G8B8A8Unorm,
		Extent:          types.Extent3D{Width: 64, Height: 64, Depth: 1},
		MipLevelCount:   1,
		ArrayLayerCount: 1,
		SampleCount:     1,
	}
	requests := []ImageRequest{
		{Setup: setup, Lifetime: Lifetime{0, 0}},
		{Setup: setup, Lifetime: Lifetime{1, 1}},
	}

	placements, stats, err := a.AllocateJobImages(requests, 1, 0)
	require.NoError(t, err)

	// Non-overlapping lifetimes share one memory slot but get distinct
	// native images.
	assert.Equal(t, 1, backend.allocated)
	assert.Equal(t, 2, backend.images)
	assert.NotEqual(t, placements[0].Image, placements[1].Image)
	assert.Equal(t, stats.CommittedBytes, stats.RequestedBytes/2)
}
