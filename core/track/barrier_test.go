package track

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/tephra/types"
)

func TestBarrierExtendedStageMasks(t *testing.T) {
	list := NewBarrierList(1)

	dep := NewBufferDependency(1, BufferAccessRange{0, 256}, computeWrite, transferRead)
	list.SynchronizeDependency(dep, 0, 0, false)

	require.Equal(t, 1, list.BarrierCount())
	b := list.Barrier(0)

	// The source side covers every compute-pipeline stage up to and
	// including the compute shader; the destination side covers the
	// transfer stage and everything after it.
	assert.True(t, b.ExtSrcStageMask.Contains(types.StageTopOfPipe|types.StageComputeShader))
	assert.True(t, b.ExtDstStageMask.Contains(types.StageTransfer|types.StageBottomOfPipe))
	assert.False(t, b.ExtDstStageMask.Contains(types.StageTopOfPipe))
}

func TestBarrierListReusesCoveringBarrier(t *testing.T) {
	list := NewBarrierList(1)

	list.SynchronizeDependency(NewBufferDependency(1, BufferAccessRange{0, 256}, computeWrite, transferRead), 1, 0, false)
	// A second dependency whose stages are covered by the extended masks
	// attaches to the same barrier.
	list.SynchronizeDependency(NewBufferDependency(2, BufferAccessRange{0, 128}, computeWrite, transferWrite), 2, 0, false)

	require.Equal(t, 1, list.BarrierCount())
	assert.Len(t, list.Barrier(0).BufferDependencies, 2)
}

func TestBarrierListRespectsFirstReusableIndex(t *testing.T) {
	list := NewBarrierList(1)

	list.SynchronizeDependency(NewBufferDependency(1, BufferAccessRange{0, 256}, computeWrite, transferRead), 1, 0, false)
	// The same dependency, but barrier 0 is off limits: a new barrier.
	list.SynchronizeDependency(NewBufferDependency(1, BufferAccessRange{0, 256}, computeWrite, transferRead), 2, 1, false)

	assert.Equal(t, 2, list.BarrierCount())
}

func TestBarrierListExportProtection(t *testing.T) {
	list := NewBarrierList(1)

	list.SynchronizeDependency(NewBufferDependency(1, BufferAccessRange{0, 256}, computeWrite, transferRead), 1, 0, false)
	list.MarkExportedResourceUsage()

	// Exported entries may not fold dependencies into pre-export barriers.
	list.SynchronizeDependency(NewBufferDependency(1, BufferAccessRange{0, 256}, computeWrite, transferRead), 2, 0, true)
	assert.Equal(t, 2, list.BarrierCount())

	// Non-exported entries still can.
	list.SynchronizeDependency(NewBufferDependency(2, BufferAccessRange{0, 64}, computeWrite, transferRead), 3, 0, false)
	assert.Equal(t, 2, list.BarrierCount())
}

func TestBarrierReadOnlyDependencyAddsNoMemoryBarrier(t *testing.T) {
	list := NewBarrierList(1)

	ref := list.SynchronizeDependency(
		NewBufferDependency(1, BufferAccessRange{0, 256}, transferRead, computeRead), 0, 0, false)

	// Execution-only dependency: the barrier exists but carries no memory
	// barrier for a read-to-read edge.
	require.Equal(t, 1, list.BarrierCount())
	assert.False(t, ref.HasMemoryBarrier())
	assert.Empty(t, list.Barrier(0).BufferDependencies)
}

func TestBarrierQueueFamilyTransferForcesMemoryBarrier(t *testing.T) {
	list := NewBarrierList(1)

	dep := NewBufferDependency(1, BufferAccessRange{0, 256}, transferRead, transferRead)
	dep.SrcQueueFamily = 0
	dep.DstQueueFamily = 1
	ref := list.SynchronizeDependency(dep, 0, 0, false)

	require.True(t, ref.HasMemoryBarrier())
	mem := list.Barrier(0).BufferDependencies[0].ToMemoryBarrier()
	assert.Equal(t, uint32(0), mem.SrcQueueFamilyIndex)
	assert.Equal(t, uint32(1), mem.DstQueueFamilyIndex)
}

func TestBarrierReuseDependencyExtendsMemoryBarrier(t *testing.T) {
	list := NewBarrierList(1)

	ref := list.SynchronizeDependency(
		NewBufferDependency(1, BufferAccessRange{0, 256}, computeWrite, transferRead), 0, 0, false)
	require.True(t, ref.HasMemoryBarrier())

	list.ReuseDependency(NewBufferDependency(1, BufferAccessRange{0, 256}, computeWrite, computeRead), ref)

	deps := list.Barrier(0).BufferDependencies
	require.Len(t, deps, 1)
	assert.Equal(t, types.AccessTransferRead|types.AccessShaderRead, deps[0].DstAccess.AccessMask)
}
