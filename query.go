package tephra

import (
	"github.com/gogpu/tephra/core/destroy"
	"github.com/gogpu/tephra/hal"
)

// TimestampQueryPool owns a native query pool and hands out individual
// timestamp queries for Job.CmdWriteTimestamp.
type TimestampQueryPool struct {
	device   *Device
	pool     hal.QueryPool
	count    uint32
	next     uint32
	released bool
}

// TimestampQuery is one slot of a TimestampQueryPool.
type TimestampQuery struct {
	owner *TimestampQueryPool
	pool  hal.QueryPool
	index uint32
}

// NewTimestampQueryPool creates a pool of timestamp queries.
func (d *Device) NewTimestampQueryPool(queryCount uint32) (*TimestampQueryPool, error) {
	pool, err := d.hal.CreateQueryPool(queryCount)
	if err != nil {
		err = opError("Device.NewTimestampQueryPool", "", err)
		d.reportError(err)
		return nil, err
	}
	return &TimestampQueryPool{device: d, pool: pool, count: queryCount}, nil
}

// Allocate hands out the next query slot, or nil when the pool is
// exhausted.
func (p *TimestampQueryPool) Allocate() *TimestampQuery {
	if p.next >= p.count {
		return nil
	}
	query := &TimestampQuery{owner: p, pool: p.pool, index: p.next}
	p.next++
	return query
}

// Result returns the written device timestamp and whether it is available
// yet.
func (q *TimestampQuery) Result() (uint64, bool) {
	return q.owner.device.hal.GetQueryResult(q.pool, q.index)
}

// Destroy queues the pool for deferred destruction once all device work
// tracked so far has finished.
func (p *TimestampQueryPool) Destroy() {
	if p.released {
		return
	}
	p.released = true
	p.device.destructor.QueueForDestruction(
		destroy.Handle{Kind: destroy.KindQueryPool, Raw: uint64(p.pool)},
		p.device.timeline.LastTrackedTimestamp())
}
