package track

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/tephra/types"
)

var (
	transferRead  = ResourceAccess{StageMask: types.StageTransfer, AccessMask: types.AccessTransferRead}
	transferWrite = ResourceAccess{StageMask: types.StageTransfer, AccessMask: types.AccessTransferWrite}
	computeRead   = ResourceAccess{StageMask: types.StageComputeShader, AccessMask: types.AccessShaderRead}
	computeWrite  = ResourceAccess{StageMask: types.StageComputeShader, AccessMask: types.AccessShaderWrite}
)

func bufAccess(offset, size uint64, access ResourceAccess) *NewBufferAccess {
	return &NewBufferAccess{
		ResourceAccess: access,
		Buffer:         1,
		Range:          BufferAccessRange{Offset: offset, Size: size},
	}
}

// apply synchronizes and inserts in one step, the way the compiler does.
func apply(m *BufferAccessMap, a *NewBufferAccess, cmdIndex uint32, barriers *BarrierList) {
	m.SynchronizeNewAccess(a, cmdIndex, barriers)
	m.InsertNewAccess(a, barriers.BarrierCount(), false, false)
}

func TestBufferMapFirstAccessNeedsNoBarrier(t *testing.T) {
	m := NewBufferAccessMap(1)
	barriers := NewBarrierList(1)

	apply(m, bufAccess(0, 1024, transferWrite), 0, barriers)
	assert.Equal(t, 0, barriers.BarrierCount())
}

func TestBufferMapReadAfterWrite(t *testing.T) {
	m := NewBufferAccessMap(1)
	barriers := NewBarrierList(1)

	apply(m, bufAccess(0, 1024, transferWrite), 0, barriers)
	apply(m, bufAccess(0, 1024, computeRead), 1, barriers)

	require.Equal(t, 1, barriers.BarrierCount())
	b := barriers.Barrier(0)
	assert.True(t, b.SrcStageMask.Contains(types.StageTransfer))
	assert.True(t, b.DstStageMask.Contains(types.StageComputeShader))
	require.Len(t, b.BufferDependencies, 1)
	assert.Equal(t, types.AccessTransferWrite, b.BufferDependencies[0].SrcAccess.AccessMask)
	assert.Equal(t, types.AccessShaderRead, b.BufferDependencies[0].DstAccess.AccessMask)
}

func TestBufferMapSubsumedReadNeedsNothing(t *testing.T) {
	m := NewBufferAccessMap(1)
	barriers := NewBarrierList(1)

	apply(m, bufAccess(0, 1024, transferWrite), 0, barriers)
	apply(m, bufAccess(0, 1024, computeRead), 1, barriers)
	// A second identical read is already covered.
	apply(m, bufAccess(0, 512, computeRead), 2, barriers)

	assert.Equal(t, 1, barriers.BarrierCount())
}

func TestBufferMapSecondReadReusesWriteBarrier(t *testing.T) {
	m := NewBufferAccessMap(1)
	barriers := NewBarrierList(1)

	apply(m, bufAccess(0, 1024, computeWrite), 0, barriers)
	apply(m, bufAccess(0, 1024, transferRead), 1, barriers)
	// A read at a different stage extends the same barrier instead of
	// synthesizing a second one.
	apply(m, bufAccess(0, 1024, computeRead), 2, barriers)

	require.Equal(t, 1, barriers.BarrierCount())
	b := barriers.Barrier(0)
	assert.True(t, b.DstStageMask.Contains(types.StageTransfer|types.StageComputeShader))
}

func TestBufferMapWriteAfterReadAndWrite(t *testing.T) {
	m := NewBufferAccessMap(1)
	barriers := NewBarrierList(1)

	apply(m, bufAccess(0, 1024, computeWrite), 0, barriers)
	apply(m, bufAccess(0, 1024, computeRead), 1, barriers)
	apply(m, bufAccess(0, 1024, transferWrite), 2, barriers)

	// One barrier for the read-after-write, one for the write-after-read;
	// the write-after-write dependency folds into an existing barrier.
	require.Equal(t, 2, barriers.BarrierCount())
}

func TestBufferMapReadOnlyChainEmitsNoBarrier(t *testing.T) {
	m := NewBufferAccessMap(1)
	barriers := NewBarrierList(1)

	apply(m, bufAccess(0, 1024, transferRead), 0, barriers)
	apply(m, bufAccess(0, 1024, computeRead), 1, barriers)

	// No prior write: consecutive reads need no synchronization at all.
	assert.Equal(t, 0, barriers.BarrierCount())
}

func TestBufferMapSplitsOnPartialWrite(t *testing.T) {
	m := NewBufferAccessMap(1)
	barriers := NewBarrierList(1)

	apply(m, bufAccess(0, 1024, transferWrite), 0, barriers)
	// Overwrite the middle; the old entry must survive on both sides.
	apply(m, bufAccess(256, 512, computeWrite), 1, barriers)

	// Entries: [0,256) old, [256,768) new, [768,1024) old, plus the
	// never-accessed remainder of the map.
	assert.Equal(t, 4, m.AccessCount())

	// Reading the left remainder depends on the first write only.
	apply(m, bufAccess(0, 256, computeRead), 2, barriers)
	require.Greater(t, barriers.BarrierCount(), 0)
	last := barriers.Barrier(barriers.BarrierCount() - 1)
	for _, dep := range last.BufferDependencies {
		assert.Equal(t, types.AccessTransferWrite, dep.SrcAccess.AccessMask&types.AccessTransferWrite)
	}
}

func TestBufferMapBarrierResetAcrossJobs(t *testing.T) {
	m := NewBufferAccessMap(1)

	jobOne := NewBarrierList(1)
	apply(m, bufAccess(0, 1024, transferWrite), 0, jobOne)
	apply(m, bufAccess(0, 1024, computeRead), 1, jobOne)
	require.Equal(t, 1, jobOne.BarrierCount())

	// The same accesses in the next job must not reference job one's
	// barriers: the write waits for job one's read in a new barrier, and
	// the read then waits for that write in another.
	jobTwo := NewBarrierList(2)
	apply(m, bufAccess(0, 1024, transferWrite), 0, jobTwo)
	apply(m, bufAccess(0, 1024, computeRead), 1, jobTwo)
	assert.Equal(t, 2, jobTwo.BarrierCount())
}

func TestBufferMapIdenticalRecordingsProduceIdenticalBarriers(t *testing.T) {
	record := func(jobID uint64) int {
		m := NewBufferAccessMap(1)
		barriers := NewBarrierList(jobID)
		apply(m, bufAccess(0, 4096, transferWrite), 0, barriers)
		apply(m, bufAccess(0, 2048, computeRead), 1, barriers)
		apply(m, bufAccess(2048, 2048, computeWrite), 2, barriers)
		apply(m, bufAccess(0, 4096, transferRead), 3, barriers)
		return barriers.BarrierCount()
	}
	assert.Equal(t, record(1), record(2))
}
