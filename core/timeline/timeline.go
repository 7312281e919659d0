// Package timeline manages the synchronization timeline of all device
// queues. Each queue owns one timeline semaphore; timestamps are issued
// from a single global counter so that they are unique and ordered by call
// order across queues. The first job starts at timestamp 1.
//
// Timestamp state progresses through three stages:
//
//   - tracked: assigned to a job being enqueued, which may still fail
//   - pending: the job is enqueued and guaranteed to eventually signal
//   - reached: the timestamp was observed signalled on the host
package timeline

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/tephra/hal"
)

// Device is the slice of the HAL the timeline manager needs.
type Device interface {
	CreateTimelineSemaphore(initialValue uint64) (hal.Semaphore, error)
	DestroySemaphore(semaphore hal.Semaphore)
	GetSemaphoreCounterValue(semaphore hal.Semaphore) (uint64, error)
	WaitForSemaphores(semaphores []hal.Semaphore, values []uint64, waitAll bool, timeout time.Duration) (bool, error)
	WaitForDeviceIdle() error
}

// CleanupCallback runs once a timestamp has been reached.
type CleanupCallback func()

// NoTimeout waits forever.
const NoTimeout = time.Duration(^uint64(0) >> 1)

// globalQueueIndex addresses the all-queues callback queue.
const globalQueueIndex = -1

// storeMax updates v to max(v, value) and returns the updated value.
func storeMax(v *atomic.Uint64, value uint64) uint64 {
	for {
		previous := v.Load()
		if previous >= value {
			return previous
		}
		if v.CompareAndSwap(previous, value) {
			return value
		}
	}
}

type queueSemaphore struct {
	semaphore hal.Semaphore

	// lastPending is the last timestamp value used for a job guaranteed to
	// execute in this queue.
	lastPending atomic.Uint64

	// lastReached is the last known reached value on the host side.
	lastReached atomic.Uint64
}

type callbackInfo struct {
	timestamp uint64
	callbacks []CleanupCallback
}

// Manager issues timestamps, observes semaphore progress and dispatches
// cleanup callbacks.
type Manager struct {
	device Device

	// timestampCounter is incremented for every tracked timestamp.
	timestampCounter atomic.Uint64

	// lastPendingGlobal is the last timestamp guaranteed to be signalled
	// in some queue.
	lastPendingGlobal atomic.Uint64

	// lastReachedGlobal is the last timestamp known reached in all queues.
	lastReachedGlobal atomic.Uint64

	queues []queueSemaphore

	callbackMu      sync.Mutex
	globalCallbacks []*callbackInfo
	queueCallbacks  [][]*callbackInfo
}

// NewManager makes a manager with one timeline semaphore per queue.
func NewManager(device Device, queueCount int) (*Manager, error) {
	m := &Manager{
		device:         device,
		queues:         make([]queueSemaphore, queueCount),
		queueCallbacks: make([][]*callbackInfo, queueCount),
	}
	for i := range m.queues {
		semaphore, err := device.CreateTimelineSemaphore(0)
		if err != nil {
			for j := 0; j < i; j++ {
				device.DestroySemaphore(m.queues[j].semaphore)
			}
			return nil, err
		}
		m.queues[i].semaphore = semaphore
	}
	return m, nil
}

// AssignNextTimestamp creates a new unique timestamp, tracked and pending
// on the given queue. The caller guarantees that the job it is assigned to
// will be submitted. Must be called under the queue's serialization: at
// most one issuer per queue at a time.
func (m *Manager) AssignNextTimestamp(queueIndex int) uint64 {
	queue := &m.queues[queueIndex]

	// Invariants to enforce:
	//   - all timestamp values increase monotonically
	//   - the queue's lastPending never exceeds lastPendingGlobal by more
	//     than in-order publication allows
	// With exclusive write access to queue.lastPending, publishing
	// lastPendingGlobal one by one in counter order ensures both.
	previous := m.timestampCounter.Add(1) - 1
	next := previous + 1
	storeMax(&queue.lastPending, next)

	for !m.lastPendingGlobal.CompareAndSwap(previous, next) {
	}
	return next
}

// LastTrackedTimestamp returns the last timestamp tracked in any queue.
func (m *Manager) LastTrackedTimestamp() uint64 {
	return m.timestampCounter.Load()
}

// LastPendingTimestamp returns the last timestamp guaranteed to signal.
func (m *Manager) LastPendingTimestamp() uint64 {
	return m.lastPendingGlobal.Load()
}

// LastReachedTimestamp returns the last timestamp reached in the queue.
func (m *Manager) LastReachedTimestamp(queueIndex int) uint64 {
	return m.queues[queueIndex].lastReached.Load()
}

// LastReachedTimestampInAllQueues returns the last timestamp reached in
// every queue.
func (m *Manager) LastReachedTimestampInAllQueues() uint64 {
	return m.lastReachedGlobal.Load()
}

// WasTimestampReachedInQueue reports whether the queue reached the
// timestamp.
func (m *Manager) WasTimestampReachedInQueue(queueIndex int, timestamp uint64) bool {
	return m.LastReachedTimestamp(queueIndex) >= timestamp
}

// WasTimestampReachedInAllQueues reports whether all queues reached the
// timestamp.
func (m *Manager) WasTimestampReachedInAllQueues(timestamp uint64) bool {
	return m.LastReachedTimestampInAllQueues() >= timestamp
}

// QueueSemaphore returns the timeline semaphore of a queue.
func (m *Manager) QueueSemaphore(queueIndex int) hal.Semaphore {
	return m.queues[queueIndex].semaphore
}

// QueueCount returns the number of queues managed.
func (m *Manager) QueueCount() int {
	return len(m.queues)
}

// WaitForTimestamps blocks until the given per-queue timestamps are
// reached (all of them, or any with waitAll false), or until the timeout
// expires, returning false on timeout.
func (m *Manager) WaitForTimestamps(queueIndices []int, timestamps []uint64, waitAll bool, timeout time.Duration) (bool, error) {
	waitSemaphores := make([]hal.Semaphore, 0, len(queueIndices))
	waitValues := make([]uint64, 0, len(queueIndices))

	// Check for already reached timestamps first.
	if err := m.Update(); err != nil {
		return false, err
	}
	for i, queueIndex := range queueIndices {
		reached := m.WasTimestampReachedInQueue(queueIndex, timestamps[i])
		if !waitAll && reached {
			return true, nil
		}
		if !reached {
			waitSemaphores = append(waitSemaphores, m.queues[queueIndex].semaphore)
			waitValues = append(waitValues, timestamps[i])
		}
	}
	if len(waitSemaphores) == 0 {
		return true, nil
	}

	return m.device.WaitForSemaphores(waitSemaphores, waitValues, waitAll, timeout)
}

// AddCleanupCallback registers a callback to run once the current last
// pending timestamp has been reached in all queues. Runs immediately if it
// already has.
func (m *Manager) AddCleanupCallback(callback CleanupCallback) {
	lastPending := m.LastPendingTimestamp()
	if m.WasTimestampReachedInAllQueues(lastPending) {
		callback()
		return
	}
	m.addCallback(globalQueueIndex, lastPending, callback)
}

// AddQueueCleanupCallback registers a callback to run once the current
// last pending timestamp has been reached on the given queue.
func (m *Manager) AddQueueCleanupCallback(queueIndex int, callback CleanupCallback) {
	lastPending := m.LastPendingTimestamp()
	if m.WasTimestampReachedInQueue(queueIndex, lastPending) {
		callback()
		return
	}
	m.addCallback(queueIndex, lastPending, callback)
}

func (m *Manager) addCallback(queueIndex int, pendingTimestamp uint64, callback CleanupCallback) {
	m.callbackMu.Lock()
	defer m.callbackMu.Unlock()

	active := &m.globalCallbacks
	if queueIndex != globalQueueIndex {
		active = &m.queueCallbacks[queueIndex]
	}

	if n := len(*active); n > 0 && (*active)[n-1].timestamp >= pendingTimestamp {
		// An entry already covers this timestamp, just append.
		(*active)[n-1].callbacks = append((*active)[n-1].callbacks, callback)
		return
	}
	*active = append(*active, &callbackInfo{
		timestamp: pendingTimestamp,
		callbacks: []CleanupCallback{callback},
	})
}

func (m *Manager) issueCallbacks(queueIndex int, reachedTimestamp uint64) {
	// Early out without locking.
	if queueIndex == globalQueueIndex {
		if len(m.globalCallbacks) == 0 {
			return
		}
	} else if len(m.queueCallbacks[queueIndex]) == 0 {
		return
	}

	m.callbackMu.Lock()
	defer m.callbackMu.Unlock()

	active := &m.globalCallbacks
	if queueIndex != globalQueueIndex {
		active = &m.queueCallbacks[queueIndex]
	}
	for len(*active) > 0 {
		info := (*active)[0]
		if reachedTimestamp < info.timestamp {
			break
		}
		for _, callback := range info.callbacks {
			callback()
		}
		*active = (*active)[1:]
	}
}

// UpdateQueue polls the queue's semaphore, updates its reached frontier
// monotonically and returns the new value.
func (m *Manager) UpdateQueue(queueIndex int) (uint64, error) {
	queue := &m.queues[queueIndex]

	// Load the global pending value first so it is conservative: once
	// loaded, at least one queue has an equal or greater local pending
	// value. Used to detect whether this queue has any pending jobs.
	lastPendingGlobal := m.lastPendingGlobal.Load()
	lastPending := queue.lastPending.Load()
	lastReached := queue.lastReached.Load()

	if lastReached >= lastPending {
		// Nothing left that could signal - fast-forward the reached
		// frontier. This is why lastReached can exceed lastPending.
		return storeMax(&queue.lastReached, lastPendingGlobal), nil
	}

	newReached, err := m.device.GetSemaphoreCounterValue(queue.semaphore)
	if err != nil {
		return lastReached, err
	}
	if newReached >= lastPending && lastPendingGlobal > newReached {
		// Again fast-forward if we can.
		newReached = lastPendingGlobal
	}
	return storeMax(&queue.lastReached, newReached), nil
}

// Update polls every queue, updates the reached-in-all-queues frontier and
// fires the callbacks whose timestamps were reached.
func (m *Manager) Update() error {
	minReached := m.LastPendingTimestamp()
	for i := range m.queues {
		queueReached, err := m.UpdateQueue(i)
		if err != nil {
			return err
		}
		if queueReached < minReached {
			minReached = queueReached
		}
		m.issueCallbacks(i, queueReached)
	}

	minReached = storeMax(&m.lastReachedGlobal, minReached)
	m.issueCallbacks(globalQueueIndex, minReached)

	if pending := m.LastPendingTimestamp(); pending > minReached && pending-minReached >= 100 {
		hal.Logger().Warn("tephra: deep job backlog may delay resource release",
			"pending", pending, "reached", minReached)
	}
	return nil
}

// Destroy drains remaining callbacks by waiting for device idle, then
// destroys the queue semaphores. Errors are logged, not propagated.
func (m *Manager) Destroy() {
	if err := m.device.WaitForDeviceIdle(); err != nil {
		hal.Logger().Error("tephra: wait for device idle failed during timeline teardown", "error", err)
	} else if err := m.Update(); err != nil {
		hal.Logger().Error("tephra: timeline update failed during teardown", "error", err)
	}

	for i := range m.queues {
		m.device.DestroySemaphore(m.queues[i].semaphore)
		m.queues[i].semaphore = 0
	}
}
