package crossqueue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/tephra/core/track"
	"github.com/gogpu/tephra/hal"
	"github.com/gogpu/tephra/types"
)

var (
	queueA = types.DeviceQueue{Type: types.QueueTypeGraphics, Index: 0}
	queueB = types.DeviceQueue{Type: types.QueueTypeCompute, Index: 0}
)

func bufferExport(buffer hal.Buffer, offset, size uint64) track.NewBufferAccess {
	return track.NewBufferAccess{
		ResourceAccess: track.ResourceAccess{
			StageMask:  types.StageTransfer,
			AccessMask: types.AccessTransferRead,
		},
		Buffer: buffer,
		Range:  track.BufferAccessRange{Offset: offset, Size: size},
	}
}

func TestQueryReturnsEntryExactlyOnce(t *testing.T) {
	s := NewSync(0)

	sem := types.JobSemaphore{Queue: queueA, Timestamp: 5}
	s.BroadcastBufferExport(sem, bufferExport(1, 0, 1024), 0, 1)

	periods := []TimelinePeriod{{SrcQueue: queueA, FromTimestamp: 0, ToTimestamp: 10}}

	incoming := s.QueryIncoming(periods, 1)
	require.Len(t, incoming, 1)
	assert.Equal(t, uint32(0), incoming[0].CurrentQueueFamily, "copy keeps the pre-transfer family")
	assert.Equal(t, uint32(1), incoming[0].DstQueueFamily)

	// The entry was marked transferred; it is never returned again.
	assert.Empty(t, s.QueryIncoming(periods, 1))
}

func TestQueryFiltersByFamilyAndPeriod(t *testing.T) {
	s := NewSync(0)

	s.BroadcastBufferExport(types.JobSemaphore{Queue: queueA, Timestamp: 5}, bufferExport(1, 0, 64), 0, 1)
	s.BroadcastBufferExport(types.JobSemaphore{Queue: queueA, Timestamp: 6}, bufferExport(2, 0, 64), 0, 2)
	s.BroadcastBufferExport(types.JobSemaphore{Queue: queueB, Timestamp: 7}, bufferExport(3, 0, 64), 1, 2)

	// Wrong family: nothing.
	assert.Empty(t, s.QueryIncoming([]TimelinePeriod{{SrcQueue: queueA, ToTimestamp: 10}}, 3))

	// Period excludes timestamp 5 (from is exclusive).
	assert.Empty(t, s.QueryIncoming([]TimelinePeriod{{SrcQueue: queueA, FromTimestamp: 5, ToTimestamp: 4}}, 1))

	// Only the queue B period matches family 2.
	incoming := s.QueryIncoming([]TimelinePeriod{{SrcQueue: queueB, FromTimestamp: 6, ToTimestamp: 7}}, 2)
	require.Len(t, incoming, 1)
	assert.Equal(t, hal.Buffer(3), incoming[0].BufferAccess.Buffer)
}

func TestNewerExportDominatesContainedOlder(t *testing.T) {
	s := NewSync(0)

	s.BroadcastBufferExport(types.JobSemaphore{Queue: queueA, Timestamp: 1}, bufferExport(1, 0, 512), 0, 1)
	// A later export covering the whole earlier range replaces it.
	s.BroadcastBufferExport(types.JobSemaphore{Queue: queueA, Timestamp: 2}, bufferExport(1, 0, 1024), 0, 1)

	incoming := s.QueryIncoming([]TimelinePeriod{{SrcQueue: queueA, ToTimestamp: 10}}, 1)
	require.Len(t, incoming, 1)
	assert.Equal(t, uint64(2), incoming[0].Semaphore.Timestamp)
	assert.Equal(t, uint64(1024), incoming[0].BufferAccess.Range.Size)
}

func TestPartialOverlapKeepsBothEntries(t *testing.T) {
	s := NewSync(0)

	s.BroadcastBufferExport(types.JobSemaphore{Queue: queueA, Timestamp: 1}, bufferExport(1, 0, 512), 0, 1)
	// Overlapping but not containing: both survive.
	s.BroadcastBufferExport(types.JobSemaphore{Queue: queueA, Timestamp: 2}, bufferExport(1, 256, 512), 0, 1)

	incoming := s.QueryIncoming([]TimelinePeriod{{SrcQueue: queueA, ToTimestamp: 10}}, 1)
	assert.Len(t, incoming, 2)
}

func TestForgetErasesEntriesAndNotifiesSinks(t *testing.T) {
	s := NewSync(0)

	sink := &recordingSink{}
	s.RegisterForgetSink(sink)

	s.BroadcastBufferExport(types.JobSemaphore{Queue: queueA, Timestamp: 1}, bufferExport(7, 0, 64), 0, 1)
	s.ForgetBuffer(7)

	assert.Equal(t, []hal.Buffer{7}, sink.buffers)
	assert.Empty(t, s.QueryIncoming([]TimelinePeriod{{SrcQueue: queueA, ToTimestamp: 10}}, 1))
}

func TestCacheEvictionFallsBackToFullScan(t *testing.T) {
	s := NewSync(4)

	// The first export ages out of the tiny cache.
	s.BroadcastBufferExport(types.JobSemaphore{Queue: queueA, Timestamp: 1}, bufferExport(1, 0, 64), 0, 1)
	for ts := uint64(2); ts <= 5; ts++ {
		s.BroadcastBufferExport(types.JobSemaphore{Queue: queueA, Timestamp: ts},
			bufferExport(hal.Buffer(ts), 0, 64), 0, 1)
	}

	// A query whose window starts below the cache must still find it.
	incoming := s.QueryIncoming([]TimelinePeriod{{SrcQueue: queueA, FromTimestamp: 0, ToTimestamp: 1}}, 1)
	require.Len(t, incoming, 1)
	assert.Equal(t, hal.Buffer(1), incoming[0].BufferAccess.Buffer)
}

func TestImageExportRoundTrip(t *testing.T) {
	s := NewSync(0)

	access := track.NewImageAccess{
		ResourceAccess: track.ResourceAccess{StageMask: types.StageTransfer, AccessMask: types.AccessTransferRead},
		Image:          9,
		Range: track.ImageAccessRange{
			AspectMask: types.AspectColor, BaseArrayLayer: 0, ArrayLayerCount: 1, MipLevelMask: 1,
		},
		Layout: types.LayoutTransferSrc,
	}
	s.BroadcastImageExport(types.JobSemaphore{Queue: queueA, Timestamp: 3}, access, 0, 1)

	incoming := s.QueryIncoming([]TimelinePeriod{{SrcQueue: queueA, ToTimestamp: 3}}, 1)
	require.Len(t, incoming, 1)
	require.NotNil(t, incoming[0].ImageAccess)
	assert.Equal(t, types.LayoutTransferSrc, incoming[0].ImageAccess.Layout)
}

type recordingSink struct {
	buffers []hal.Buffer
	images  []hal.Image
}

func (s *recordingSink) ForgetBuffer(b hal.Buffer) { s.buffers = append(s.buffers, b) }
func (s *recordingSink) ForgetImage(i hal.Image)   { s.images = append(s.images, i) }
