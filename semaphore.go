package tephra

import (
	"github.com/gogpu/tephra/core/timeline"
	"github.com/gogpu/tephra/hal"
	"github.com/gogpu/tephra/types"
)

// JobSemaphore is a point on a queue's timeline, assigned when a job is
// enqueued. It is valid and comparable before the device executes
// anything.
type JobSemaphore = types.JobSemaphore

// ExternalSemaphore pairs a native timeline semaphore with a value, for
// interoperating with other APIs or libraries.
type ExternalSemaphore struct {
	Semaphore hal.Semaphore
	Timestamp uint64
}

// NoTimeout waits forever.
const NoTimeout = timeline.NoTimeout
