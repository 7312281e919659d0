package timeline

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/tephra/hal"
)

// fakeDevice implements Device with host-controlled semaphore values.
type fakeDevice struct {
	mu     sync.Mutex
	next   hal.Semaphore
	values map[hal.Semaphore]uint64
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{values: map[hal.Semaphore]uint64{}}
}

func (d *fakeDevice) CreateTimelineSemaphore(initial uint64) (hal.Semaphore, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.next++
	d.values[d.next] = initial
	return d.next, nil
}

func (d *fakeDevice) DestroySemaphore(s hal.Semaphore) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.values, s)
}

func (d *fakeDevice) GetSemaphoreCounterValue(s hal.Semaphore) (uint64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.values[s], nil
}

func (d *fakeDevice) WaitForSemaphores(sems []hal.Semaphore, values []uint64, waitAll bool, timeout time.Duration) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	satisfied := 0
	for i, s := range sems {
		if d.values[s] >= values[i] {
			satisfied++
		}
	}
	if waitAll {
		return satisfied == len(sems), nil
	}
	return satisfied > 0, nil
}

func (d *fakeDevice) WaitForDeviceIdle() error { return nil }

func (d *fakeDevice) signal(s hal.Semaphore, value uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.values[s] = value
}

func TestTimestampsStrictlyIncrease(t *testing.T) {
	device := newFakeDevice()
	m, err := NewManager(device, 2)
	require.NoError(t, err)
	defer m.Destroy()

	var last uint64
	for i := 0; i < 100; i++ {
		ts := m.AssignNextTimestamp(i % 2)
		assert.Greater(t, ts, last)
		last = ts
	}
	assert.Equal(t, uint64(100), m.LastTrackedTimestamp())
	assert.Equal(t, uint64(100), m.LastPendingTimestamp())
}

func TestConcurrentTimestampAssignmentIsUnique(t *testing.T) {
	device := newFakeDevice()
	m, err := NewManager(device, 4)
	require.NoError(t, err)
	defer m.Destroy()

	const perQueue = 200
	results := make([][]uint64, 4)
	var wg sync.WaitGroup
	for q := 0; q < 4; q++ {
		wg.Add(1)
		go func(q int) {
			defer wg.Done()
			for i := 0; i < perQueue; i++ {
				results[q] = append(results[q], m.AssignNextTimestamp(q))
			}
		}(q)
	}
	wg.Wait()

	seen := map[uint64]bool{}
	for q := range results {
		var last uint64
		for _, ts := range results[q] {
			assert.False(t, seen[ts], "timestamp issued twice")
			seen[ts] = true
			assert.Greater(t, ts, last, "per-queue timestamps must increase")
			last = ts
		}
	}
	assert.Len(t, seen, 4*perQueue)
}

func TestUpdateTracksReachedFrontiers(t *testing.T) {
	device := newFakeDevice()
	m, err := NewManager(device, 2)
	require.NoError(t, err)
	defer m.Destroy()

	tsA := m.AssignNextTimestamp(0)
	tsB := m.AssignNextTimestamp(1)

	device.signal(m.QueueSemaphore(0), tsA)
	require.NoError(t, m.Update())

	assert.True(t, m.WasTimestampReachedInQueue(0, tsA))
	assert.False(t, m.WasTimestampReachedInQueue(1, tsB))
	assert.False(t, m.WasTimestampReachedInAllQueues(tsB))

	device.signal(m.QueueSemaphore(1), tsB)
	require.NoError(t, m.Update())
	assert.True(t, m.WasTimestampReachedInAllQueues(tsB))
}

func TestIdleQueueFastForwards(t *testing.T) {
	device := newFakeDevice()
	m, err := NewManager(device, 2)
	require.NoError(t, err)
	defer m.Destroy()

	// Queue 1 never had a job; after queue 0 signals, queue 1's frontier
	// fast-forwards so it does not hold back the global frontier.
	ts := m.AssignNextTimestamp(0)
	device.signal(m.QueueSemaphore(0), ts)
	require.NoError(t, m.Update())

	assert.GreaterOrEqual(t, m.LastReachedTimestamp(1), ts)
	assert.True(t, m.WasTimestampReachedInAllQueues(ts))
}

func TestReachedNeverExceedsPendingInvariant(t *testing.T) {
	device := newFakeDevice()
	m, err := NewManager(device, 3)
	require.NoError(t, err)
	defer m.Destroy()

	for i := 0; i < 10; i++ {
		ts := m.AssignNextTimestamp(i % 3)
		device.signal(m.QueueSemaphore(i%3), ts)
		require.NoError(t, m.Update())
		assert.LessOrEqual(t, m.LastReachedTimestampInAllQueues(), m.LastPendingTimestamp())
	}
}

func TestCleanupCallbacksFireInTimestampOrder(t *testing.T) {
	device := newFakeDevice()
	m, err := NewManager(device, 1)
	require.NoError(t, err)
	defer m.Destroy()

	var order []int

	tsA := m.AssignNextTimestamp(0)
	m.AddCleanupCallback(func() { order = append(order, 1) })

	tsB := m.AssignNextTimestamp(0)
	m.AddCleanupCallback(func() { order = append(order, 2) })

	device.signal(m.QueueSemaphore(0), tsA)
	require.NoError(t, m.Update())
	assert.Equal(t, []int{1}, order)

	device.signal(m.QueueSemaphore(0), tsB)
	require.NoError(t, m.Update())
	assert.Equal(t, []int{1, 2}, order)
}

func TestCallbackRunsImmediatelyWhenAlreadyReached(t *testing.T) {
	device := newFakeDevice()
	m, err := NewManager(device, 1)
	require.NoError(t, err)
	defer m.Destroy()

	ts := m.AssignNextTimestamp(0)
	device.signal(m.QueueSemaphore(0), ts)
	require.NoError(t, m.Update())

	ran := false
	m.AddCleanupCallback(func() { ran = true })
	assert.True(t, ran)
}

func TestWaitForTimestamps(t *testing.T) {
	device := newFakeDevice()
	m, err := NewManager(device, 2)
	require.NoError(t, err)
	defer m.Destroy()

	tsA := m.AssignNextTimestamp(0)
	tsB := m.AssignNextTimestamp(1)

	device.signal(m.QueueSemaphore(0), tsA)

	// Any-of succeeds with only queue 0 signalled.
	ok, err := m.WaitForTimestamps([]int{0, 1}, []uint64{tsA, tsB}, false, 0)
	require.NoError(t, err)
	assert.True(t, ok)

	// All-of does not.
	ok, err = m.WaitForTimestamps([]int{0, 1}, []uint64{tsA, tsB}, true, 0)
	require.NoError(t, err)
	assert.False(t, ok)

	device.signal(m.QueueSemaphore(1), tsB)
	ok, err = m.WaitForTimestamps([]int{0, 1}, []uint64{tsA, tsB}, true, 0)
	require.NoError(t, err)
	assert.True(t, ok)
}
