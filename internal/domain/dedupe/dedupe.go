// Package dedupe tracks client request IDs so a resubmitted run is answered
// with the run it already created.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
)

// Deduper maps request IDs to the run that claimed them.
type Deduper interface {
	// Claim records id as owned by runID unless it is already known. It
	// returns the owning run ID and whether id was already claimed.
	Claim(ctx context.Context, id, runID string) (string, bool)

	// Release forgets id so it can be claimed again. Used when the claimed
	// run could not be enqueued.
	Release(ctx context.Context, id string)

	Size() int64
}

// node is one entry of the insertion ordered list.
type node struct {
	id    string
	runID string
	prev  *node
	next  *node
}

// inMemoryDeduper keeps claims in a map plus a doubly linked list in
// insertion order. When bounded, the oldest claim is evicted first.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]*node
	head    *node // oldest
	tail    *node // newest
	maxSize int   // 0 or negative means unbounded
	size    atomic.Int64
}

// NewInMemoryDeduper creates a deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: 10000,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]*node)
	return d
}

// Claim is atomic with respect to concurrent claims of the same id.
func (d *inMemoryDeduper) Claim(_ context.Context, id, runID string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if n, ok := d.seen[id]; ok {
		return n.runID, true
	}
	if d.maxSize > 0 && len(d.seen) >= d.maxSize {
		d.evictOldest()
	}

	n := &node{id: id, runID: runID, prev: d.tail}
	if d.tail != nil {
		d.tail.next = n
	} else {
		d.head = n
	}
	d.tail = n
	d.seen[id] = n
	d.size.Add(1)
	return runID, false
}

// Release removes id if present.
func (d *inMemoryDeduper) Release(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if n, ok := d.seen[id]; ok {
		d.unlink(n)
	}
}

// unlink must be called with d.mu held.
func (d *inMemoryDeduper) unlink(n *node) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		d.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		d.tail = n.prev
	}
	n.prev, n.next = nil, nil
	delete(d.seen, n.id)
	d.size.Add(-1)
}

// evictOldest must be called with d.mu held.
func (d *inMemoryDeduper) evictOldest() {
	if d.head != nil {
		d.unlink(d.head)
	}
}

// Size returns the current number of claims.
func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}
