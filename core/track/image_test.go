package track

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/tephra/hal"
	"github.com/gogpu/tephra/types"
)

func imgAccess(baseLayer, layerCount uint32, mipMask uint32, access ResourceAccess, layout types.ImageLayout) *NewImageAccess {
	return &NewImageAccess{
		ResourceAccess: access,
		Image:          1,
		Range: ImageAccessRange{
			AspectMask:      types.AspectColor,
			BaseArrayLayer:  baseLayer,
			ArrayLayerCount: layerCount,
			MipLevelMask:    mipMask,
		},
		Layout: layout,
	}
}

func applyImg(m *ImageAccessMap, a *NewImageAccess, cmdIndex uint32, barriers *BarrierList) {
	m.SynchronizeNewAccess(a, cmdIndex, barriers)
	m.InsertNewAccess(a, barriers.BarrierCount(), false, false)
}

func TestImageMapFirstWriteTransitionsFromUndefined(t *testing.T) {
	m := NewImageAccessMap(1)
	barriers := NewBarrierList(1)

	applyImg(m, imgAccess(0, 4, 0b1, transferWrite, types.LayoutTransferDst), 0, barriers)

	require.Equal(t, 1, barriers.BarrierCount())
	b := barriers.Barrier(0)
	require.Len(t, b.ImageDependencies, 1)
	assert.Equal(t, types.LayoutUndefined, b.ImageDependencies[0].SrcLayout)
	assert.Equal(t, types.LayoutTransferDst, b.ImageDependencies[0].DstLayout)
}

func TestImageMapReadTransitionActsLikeWrite(t *testing.T) {
	m := NewImageAccessMap(1)
	barriers := NewBarrierList(1)

	applyImg(m, imgAccess(0, 4, 0b1, transferWrite, types.LayoutTransferDst), 0, barriers)
	// A read in a different layout still needs a transition barrier.
	applyImg(m, imgAccess(0, 1, 0b1, transferRead, types.LayoutTransferSrc), 1, barriers)

	require.Equal(t, 2, barriers.BarrierCount())
	dep := barriers.Barrier(1).ImageDependencies[0]
	assert.Equal(t, types.LayoutTransferDst, dep.SrcLayout)
	assert.Equal(t, types.LayoutTransferSrc, dep.DstLayout)
}

func TestImageMapTransitionBarrierCoalescesForReads(t *testing.T) {
	m := NewImageAccessMap(1)
	barriers := NewBarrierList(1)

	// Clear the whole image, then read layer 0 twice as transfer source.
	applyImg(m, imgAccess(0, 4, 0b1, transferWrite, types.LayoutTransferDst), 0, barriers)
	applyImg(m, imgAccess(0, 1, 0b1, transferRead, types.LayoutTransferSrc), 1, barriers)
	applyImg(m, imgAccess(0, 1, 0b1, transferRead, types.LayoutTransferSrc), 2, barriers)

	// The second read reuses the transition barrier of the first.
	assert.Equal(t, 2, barriers.BarrierCount())
}

func TestImageMapDiscardSkipsPreservation(t *testing.T) {
	m := NewImageAccessMap(1)
	barriers := NewBarrierList(1)

	applyImg(m, imgAccess(0, 4, 0b1, transferWrite, types.LayoutTransferDst), 0, barriers)

	m.DiscardContents(ImageAccessRange{
		AspectMask: types.AspectColor, BaseArrayLayer: 0, ArrayLayerCount: 4, MipLevelMask: 0b1,
	})

	// A read in the pre-discard layout must still transition, now from
	// undefined so the driver may drop the contents.
	applyImg(m, imgAccess(0, 4, 0b1, transferRead, types.LayoutTransferDst), 1, barriers)

	require.Equal(t, 2, barriers.BarrierCount())
	dep := barriers.Barrier(1).ImageDependencies[0]
	assert.Equal(t, types.LayoutUndefined, dep.SrcLayout)
	assert.Equal(t, types.LayoutTransferDst, dep.DstLayout)
}

func TestImageMapLayerSplitKeepsIndependentLayouts(t *testing.T) {
	m := NewImageAccessMap(1)
	barriers := NewBarrierList(1)

	applyImg(m, imgAccess(0, 4, 0b1, transferWrite, types.LayoutTransferDst), 0, barriers)
	applyImg(m, imgAccess(0, 1, 0b1, transferRead, types.LayoutTransferSrc), 1, barriers)
	count := barriers.BarrierCount()

	// Layers 1..3 are still in TransferDst; writing them again needs no
	// further transition, only the write-after-write dependency which can
	// reuse the transition barrier.
	applyImg(m, imgAccess(1, 3, 0b1, transferWrite, types.LayoutTransferDst), 2, barriers)
	assert.Equal(t, count, barriers.BarrierCount())
}

func TestImageMapCompactsTombstonesAtJobBoundary(t *testing.T) {
	m := NewImageAccessMap(1)
	jobOne := NewBarrierList(1)

	applyImg(m, imgAccess(0, 4, 0b1111, transferWrite, types.LayoutTransferDst), 0, jobOne)
	applyImg(m, imgAccess(1, 2, 0b0110, computeWrite, types.LayoutGeneral), 1, jobOne)
	fragmented := m.AccessCount()
	require.Greater(t, fragmented, 2)

	// Touching the map in a new job compacts deleted entries first.
	jobTwo := NewBarrierList(2)
	applyImg(m, imgAccess(0, 4, 0b1111, transferWrite, types.LayoutTransferDst), 0, jobTwo)
	assert.LessOrEqual(t, m.AccessCount(), fragmented)
}

func TestImageDependencySplitsDisjointMips(t *testing.T) {
	dep := NewImageDependency(hal.Image(1),
		ImageAccessRange{AspectMask: types.AspectColor, BaseArrayLayer: 0, ArrayLayerCount: 1, MipLevelMask: 0b1011},
		transferWrite, transferRead,
		types.LayoutTransferDst, types.LayoutTransferSrc)

	barriers := dep.AppendImageBarriers(nil)
	require.Len(t, barriers, 2)
	assert.Equal(t, uint32(0), barriers[0].Range.BaseMipLevel)
	assert.Equal(t, uint32(2), barriers[0].Range.MipLevelCount)
	assert.Equal(t, uint32(3), barriers[1].Range.BaseMipLevel)
	assert.Equal(t, uint32(1), barriers[1].Range.MipLevelCount)
}
