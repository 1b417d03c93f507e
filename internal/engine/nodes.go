package engine

import "sync/atomic"

const nodeFlushInterval = 1024

// NodeCounter is a per-worker view onto the shared node total. The
// worker increments a local counter and folds it into the shared atomic
// every nodeFlushInterval nodes, so the hot path stays contention free
// while the global total lags by at most the flush interval per worker.
type NodeCounter struct {
	shared *atomic.Uint64
	local  uint64
	total  uint64
}

func NewNodeCounter(shared *atomic.Uint64) NodeCounter {
	return NodeCounter{shared: shared}
}

// Increment counts one node.
func (nc *NodeCounter) Increment() {
	nc.local++
	nc.total++
	if nc.local >= nodeFlushInterval {
		nc.Flush()
	}
}

// Flush folds the local count into the shared total.
func (nc *NodeCounter) Flush() {
	if nc.local > 0 {
		nc.shared.Add(nc.local)
		nc.local = 0
	}
}

// Total returns the shared total plus this worker's unflushed count.
func (nc *NodeCounter) Total() uint64 {
	return nc.shared.Load() + nc.local
}

// Count returns the nodes this worker alone has searched, regardless of
// flushing.
func (nc *NodeCounter) Count() uint64 {
	return nc.total
}
