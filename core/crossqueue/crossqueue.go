// Package crossqueue synchronizes resource state across queues. An export
// is a promise that a resource range, once the producing queue reaches a
// given timestamp, is in a specific read-only state and owned by a given
// queue family. Consumers query the registry with timeline periods and
// receive the entries that cover them, marked as transferred.
package crossqueue

import (
	"sync"

	"github.com/gogpu/tephra/core/track"
	"github.com/gogpu/tephra/hal"
	"github.com/gogpu/tephra/types"
)

// DefaultExportCacheSize bounds the time-sorted cache of recent exports.
const DefaultExportCacheSize = 1024

// TimelinePeriod is a half-open window (from, to] on a queue's timeline.
type TimelinePeriod struct {
	SrcQueue      types.DeviceQueue
	FromTimestamp uint64 // not inclusive
	ToTimestamp   uint64 // inclusive
}

// ExportEntry is an exported resource range. Exactly one of BufferAccess
// and ImageAccess is set.
type ExportEntry struct {
	Semaphore          types.JobSemaphore
	BufferAccess       *track.NewBufferAccess
	ImageAccess        *track.NewImageAccess
	CurrentQueueFamily uint32
	DstQueueFamily     uint32

	// transferred marks an entry already handed to a consumer, so a query
	// returns each entry exactly once.
	transferred bool
}

// ForgetSink receives asynchronous forget requests for deleted resources.
// Each per-queue state registers one; requests are buffered and consumed
// at the start of the queue's next submit.
type ForgetSink interface {
	ForgetBuffer(buffer hal.Buffer)
	ForgetImage(image hal.Image)
}

type resourceKey struct {
	isImage bool
	handle  uint64
}

func bufferKey(b hal.Buffer) resourceKey { return resourceKey{handle: uint64(b)} }
func imageKey(i hal.Image) resourceKey   { return resourceKey{isImage: true, handle: uint64(i)} }

type cacheEntry struct {
	semaphore      types.JobSemaphore
	dstQueueFamily uint32
	key            resourceKey
}

// Sync is the device-wide registry of exported resource accesses.
type Sync struct {
	mu        sync.Mutex
	exported  map[resourceKey][]ExportEntry
	cache     []cacheEntry // sorted by timestamp, bounded
	cacheSize int

	sinks []ForgetSink
}

// NewSync makes an empty registry. A cacheSize of 0 selects the default.
func NewSync(cacheSize int) *Sync {
	if cacheSize <= 0 {
		cacheSize = DefaultExportCacheSize
	}
	return &Sync{
		exported:  map[resourceKey][]ExportEntry{},
		cacheSize: cacheSize,
	}
}

// RegisterForgetSink adds a per-queue sink for forget broadcasts.
func (s *Sync) RegisterForgetSink(sink ForgetSink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sinks = append(s.sinks, sink)
}

// BroadcastBufferExport publishes a buffer export.
func (s *Sync) BroadcastBufferExport(semaphore types.JobSemaphore, access track.NewBufferAccess,
	srcQueueFamily, dstQueueFamily uint32) {
	entry := ExportEntry{
		Semaphore:          semaphore,
		BufferAccess:       &access,
		CurrentQueueFamily: srcQueueFamily,
		DstQueueFamily:     dstQueueFamily,
	}
	s.broadcast(bufferKey(access.Buffer), entry, func(existing *ExportEntry) bool {
		return existing.BufferAccess != nil && access.Range.Contains(existing.BufferAccess.Range)
	})
}

// BroadcastImageExport publishes an image export.
func (s *Sync) BroadcastImageExport(semaphore types.JobSemaphore, access track.NewImageAccess,
	srcQueueFamily, dstQueueFamily uint32) {
	entry := ExportEntry{
		Semaphore:          semaphore,
		ImageAccess:        &access,
		CurrentQueueFamily: srcQueueFamily,
		DstQueueFamily:     dstQueueFamily,
	}
	s.broadcast(imageKey(access.Image), entry, func(existing *ExportEntry) bool {
		return existing.ImageAccess != nil && access.Range.Contains(existing.ImageAccess.Range)
	})
}

func (s *Sync) broadcast(key resourceKey, entry ExportEntry, dominates func(*ExportEntry) bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Newer entries dominate: drop existing ones fully contained in the
	// new export's range.
	entries := s.exported[key]
	kept := entries[:0]
	for i := range entries {
		if !dominates(&entries[i]) {
			kept = append(kept, entries[i])
		}
	}
	s.exported[key] = append(kept, entry)

	if len(s.cache) >= s.cacheSize {
		s.cache = s.cache[1:]
	}

	// Insert into the time-sorted cache; the entry belongs near the end.
	insertAt := len(s.cache)
	for insertAt > 0 && s.cache[insertAt-1].semaphore.Timestamp > entry.Semaphore.Timestamp {
		insertAt--
	}
	s.cache = append(s.cache, cacheEntry{})
	copy(s.cache[insertAt+1:], s.cache[insertAt:])
	s.cache[insertAt] = cacheEntry{
		semaphore:      entry.Semaphore,
		dstQueueFamily: entry.DstQueueFamily,
		key:            key,
	}
}

// ForgetBuffer erases all export entries for the buffer and asks every
// per-queue state to drop it.
func (s *Sync) ForgetBuffer(buffer hal.Buffer) {
	s.forget(bufferKey(buffer), func(sink ForgetSink) { sink.ForgetBuffer(buffer) })
}

// ForgetImage erases all export entries for the image and asks every
// per-queue state to drop it.
func (s *Sync) ForgetImage(image hal.Image) {
	s.forget(imageKey(image), func(sink ForgetSink) { sink.ForgetImage(image) })
}

func (s *Sync) forget(key resourceKey, notify func(ForgetSink)) {
	s.mu.Lock()
	delete(s.exported, key)
	sinks := s.sinks
	s.mu.Unlock()

	for _, sink := range sinks {
		notify(sink)
	}
}

// QueryIncoming returns the entries destined for dstQueueFamily whose
// semaphores fall within some period, marking each as transferred. An
// entry is returned exactly once across all queries.
func (s *Sync) QueryIncoming(periods []TimelinePeriod, dstQueueFamily uint32) []ExportEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	inRange := func(semaphore types.JobSemaphore) bool {
		for _, period := range periods {
			if period.SrcQueue == semaphore.Queue &&
				semaphore.Timestamp > period.FromTimestamp &&
				semaphore.Timestamp <= period.ToTimestamp {
				return true
			}
		}
		return false
	}

	var incoming []ExportEntry
	process := func(entries []ExportEntry) {
		for i := range entries {
			entry := &entries[i]
			if entry.DstQueueFamily == dstQueueFamily && !entry.transferred && inRange(entry.Semaphore) {
				incoming = append(incoming, *entry)
				// The queue family ownership transfer is performed by the
				// caller upon return.
				entry.CurrentQueueFamily = entry.DstQueueFamily
				entry.transferred = true
			}
		}
	}

	minFrom := ^uint64(0)
	maxTo := uint64(0)
	for _, period := range periods {
		if period.FromTimestamp < minFrom {
			minFrom = period.FromTimestamp
		}
		if period.ToTimestamp > maxTo {
			maxTo = period.ToTimestamp
		}
	}

	// Restrict the scan using the time-sorted cache when the lower bound
	// is still inside it.
	start := 0
	for start < len(s.cache) && s.cache[start].semaphore.Timestamp <= minFrom {
		start++
	}
	if start == 0 && len(s.cache) >= s.cacheSize {
		// The window fell off the cache; fall back to a full scan.
		for _, entries := range s.exported {
			process(entries)
		}
		return incoming
	}

	for i := start; i < len(s.cache); i++ {
		cached := &s.cache[i]
		if cached.semaphore.Timestamp > maxTo {
			break
		}
		if cached.dstQueueFamily != dstQueueFamily || !inRange(cached.semaphore) {
			continue
		}
		if entries, ok := s.exported[cached.key]; ok {
			// A missing key means the resource was forgotten but is still
			// cached.
			process(entries)
			s.exported[cached.key] = entries
		}
	}
	return incoming
}
