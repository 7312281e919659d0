package track

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/tephra/types"
)

func TestBufferRangeAlgebra(t *testing.T) {
	a := BufferAccessRange{Offset: 0, Size: 100}
	b := BufferAccessRange{Offset: 50, Size: 100}

	assert.True(t, a.Overlaps(b))
	assert.True(t, b.Overlaps(a))
	assert.False(t, a.Overlaps(BufferAccessRange{Offset: 100, Size: 10}))

	inter := intersectBufferRanges(a, b)
	assert.Equal(t, BufferAccessRange{Offset: 50, Size: 50}, inter)

	left := diffLeftBufferRanges(a, b)
	assert.Equal(t, BufferAccessRange{Offset: 0, Size: 50}, left)

	right := diffRightBufferRanges(b, a)
	assert.Equal(t, BufferAccessRange{Offset: 100, Size: 50}, right)

	// Contained range leaves empty diffs.
	c := BufferAccessRange{Offset: 10, Size: 10}
	assert.True(t, a.Contains(c))
	assert.True(t, diffLeftBufferRanges(c, a).IsNull())
	assert.True(t, diffRightBufferRanges(c, a).IsNull())
}

func TestImageRangeAlgebra(t *testing.T) {
	a := ImageAccessRange{AspectMask: types.AspectColor, BaseArrayLayer: 0, ArrayLayerCount: 4, MipLevelMask: 0b1111}
	b := ImageAccessRange{AspectMask: types.AspectColor, BaseArrayLayer: 2, ArrayLayerCount: 4, MipLevelMask: 0b0011}

	assert.True(t, a.Overlaps(b))

	// Disjoint mip masks never overlap even with shared layers.
	c := b
	c.MipLevelMask = 0b110000
	assert.False(t, a.Overlaps(c))

	// Disjoint aspects never overlap.
	d := b
	d.AspectMask = types.AspectDepth
	assert.False(t, a.Overlaps(d))

	inter := intersectImageRanges(a, b)
	assert.Equal(t, uint32(2), inter.BaseArrayLayer)
	assert.Equal(t, uint32(2), inter.ArrayLayerCount)
	assert.Equal(t, uint32(0b0011), inter.MipLevelMask)

	left := diffLeftImageRanges(a, b)
	assert.Equal(t, uint32(0), left.BaseArrayLayer)
	assert.Equal(t, uint32(2), left.ArrayLayerCount)

	// b extends two layers past the end of a.
	right := diffRightImageRanges(b, a)
	assert.Equal(t, uint32(4), right.BaseArrayLayer)
	assert.Equal(t, uint32(2), right.ArrayLayerCount)
}

func TestNewImageAccessRangeMipMask(t *testing.T) {
	rng := NewImageAccessRange(types.ImageSubresourceRange{
		AspectMask:      types.AspectColor,
		BaseMipLevel:    2,
		MipLevelCount:   3,
		BaseArrayLayer:  1,
		ArrayLayerCount: 2,
	})
	require.Equal(t, uint32(0b11100), rng.MipLevelMask)
	require.Equal(t, uint32(1), rng.BaseArrayLayer)
	require.Equal(t, uint32(2), rng.ArrayLayerCount)
}

func TestResourceAccessReadOnly(t *testing.T) {
	read := ResourceAccess{StageMask: types.StageTransfer, AccessMask: types.AccessTransferRead}
	write := ResourceAccess{StageMask: types.StageTransfer, AccessMask: types.AccessTransferWrite}

	assert.True(t, read.IsReadOnly())
	assert.False(t, write.IsReadOnly())
	assert.False(t, read.Union(write).IsReadOnly())
	assert.True(t, read.Union(write).Contains(read))
}

func TestConvertReadAccess(t *testing.T) {
	access := ConvertReadAccess(types.ReadAccessTransfer | types.ReadAccessHost)
	assert.Equal(t, types.StageTransfer|types.StageHost, access.StageMask)
	assert.Equal(t, types.AccessTransferRead|types.AccessHostRead, access.AccessMask)
	assert.True(t, access.IsReadOnly())

	assert.Equal(t, types.LayoutTransferSrc, ImageLayoutFromReadAccess(types.ReadAccessTransfer))
	assert.Equal(t, types.LayoutShaderReadOnly,
		ImageLayoutFromReadAccess(types.ReadAccessFragmentShaderSampled))
}

func TestConvertComputeAccess(t *testing.T) {
	readWrite := ConvertComputeAccess(types.ComputeAccessShaderStorageRead | types.ComputeAccessShaderStorageWrite)
	assert.Equal(t, types.StageComputeShader, readWrite.StageMask)
	assert.False(t, readWrite.IsReadOnly())

	sampled := ConvertComputeAccess(types.ComputeAccessShaderSampledRead)
	assert.True(t, sampled.IsReadOnly())
	assert.Equal(t, types.LayoutShaderReadOnly, ImageLayoutFromComputeAccess(types.ComputeAccessShaderSampledRead))
	assert.Equal(t, types.LayoutGeneral, ImageLayoutFromComputeAccess(types.ComputeAccessShaderStorageWrite))
}
