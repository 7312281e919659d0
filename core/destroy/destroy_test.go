package destroy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingDestroyer struct {
	destroyed []Handle
}

func (d *recordingDestroyer) DestroyImmediately(h Handle) {
	d.destroyed = append(d.destroyed, h)
}

func TestDestroyUpToDrainsInTimestampOrder(t *testing.T) {
	rec := &recordingDestroyer{}
	d := NewDestructor(rec)

	d.QueueForDestruction(Handle{Kind: KindBuffer, Raw: 1}, 1)
	d.QueueForDestruction(Handle{Kind: KindBuffer, Raw: 2}, 3)
	d.QueueForDestruction(Handle{Kind: KindBuffer, Raw: 3}, 5)

	d.DestroyUpTo(3)
	require.Len(t, rec.destroyed, 2)
	assert.Equal(t, uint64(1), rec.destroyed[0].Raw)
	assert.Equal(t, uint64(2), rec.destroyed[1].Raw)

	d.DestroyUpTo(10)
	assert.Len(t, rec.destroyed, 3)
}

func TestAlreadyReachedTimestampDestroysImmediately(t *testing.T) {
	rec := &recordingDestroyer{}
	d := NewDestructor(rec)

	d.DestroyUpTo(10)
	d.QueueForDestruction(Handle{Kind: KindImage, Raw: 7}, 4)
	assert.Len(t, rec.destroyed, 1)
}

func TestImmediateKindsBypassQueues(t *testing.T) {
	rec := &recordingDestroyer{}
	d := NewDestructor(rec)

	d.QueueForDestruction(Handle{Kind: KindShaderModule, Raw: 9}, 1000)
	require.Len(t, rec.destroyed, 1)
	assert.Equal(t, KindShaderModule, rec.destroyed[0].Kind)
}

func TestKindsDrainInDeclarationOrder(t *testing.T) {
	rec := &recordingDestroyer{}
	d := NewDestructor(rec)

	d.QueueForDestruction(Handle{Kind: KindMemory, Raw: 1}, 1)
	d.QueueForDestruction(Handle{Kind: KindBuffer, Raw: 2}, 1)
	d.QueueForDestruction(Handle{Kind: KindPipeline, Raw: 3}, 1)

	d.Drain()
	require.Len(t, rec.destroyed, 3)
	// Pipelines go first, memory allocations last.
	assert.Equal(t, KindPipeline, rec.destroyed[0].Kind)
	assert.Equal(t, KindBuffer, rec.destroyed[1].Kind)
	assert.Equal(t, KindMemory, rec.destroyed[2].Kind)
}
