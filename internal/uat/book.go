// Sliding time-window permit book. Adapted from the coordinate-keyed map in
// the teacher's internal/world.Map, restructured as a tick-keyed map of
// per-tick permit maps so that dropping the head bucket is a single map
// delete rather than a scan.
package uat

import (
	"fmt"

	"uatsim/internal/region"
)

// Book is the sliding-window ledger of live permits. It is owned exclusively
// by the driver; the only external access is the read-only Peek used by
// status observers.
type Book struct {
	t0      uint64
	window  *uint64 // nil = unbounded lookahead
	buckets map[uint64]map[region.Permit]*privateStatus
}

func newBook(t0 uint64, window *uint64) *Book {
	return &Book{
		t0:      t0,
		window:  window,
		buckets: make(map[uint64]map[region.Permit]*privateStatus),
	}
}

// entry returns the live status for p, creating a fresh default OnSale
// listing on first touch. The second return value is false when p lies
// beyond the configured time window — callers must not read or write
// through a false result; the permit is OutOfLimits.
//
// Precondition: p.T >= b.t0. The driver guarantees this by rejecting any
// bid/ask for a tick before t0 before ever calling entry; a violation here
// is a programming error, not agent misuse, and panics with InvariantError.
func (b *Book) entry(p region.Permit) (*privateStatus, bool) {
	if p.T < b.t0 {
		panic(InvariantError{fmt.Sprintf("book access for permit at tick %d precedes head tick %d", p.T, b.t0)})
	}
	if b.window != nil && p.T > b.t0+*b.window {
		return nil, false
	}
	bucket, ok := b.buckets[p.T]
	if !ok {
		bucket = make(map[region.Permit]*privateStatus)
		b.buckets[p.T] = bucket
	}
	st, ok := bucket[p]
	if !ok {
		st = freshListing()
		bucket[p] = st
	}
	return st, true
}

// advance drops the head bucket and moves the clock forward one tick. Any
// history for permits in the dropped bucket is lost; a later reference to
// the same (region, tick) — if still within the window — allocates a fresh
// default listing with no memory of the permit's prior life.
func (b *Book) advance() {
	delete(b.buckets, b.t0)
	b.t0++
}

// Peek returns the read-only snapshot of a permit for status observers. Like
// any other book access it touches the permit (allocating a default listing
// on first reference) but never returns a mutable reference.
func (b *Book) Peek(p region.Permit) Snapshot {
	st, live := b.entry(p)
	if !live {
		return Snapshot{Kind: SnapshotOutOfLimits}
	}
	return st.snapshot()
}

// ReadOnlyBook is the capability status observers receive: read access only,
// no path to mutate engine state.
type ReadOnlyBook interface {
	Peek(p region.Permit) Snapshot
}

// InvariantError signals a book invariant violation — a programming error
// in the driver rather than agent misuse. The simulation does not attempt
// to recover from it.
type InvariantError struct {
	Msg string
}

func (e InvariantError) Error() string {
	return "uat: invariant violated: " + e.Msg
}
