// Package telemetry provides read-only allocation counters for the
// embedded-side leak and steady-state allocation tests described in the
// engine's external interface. It mirrors the kind of process-wide
// instrumentation an allocator shim would maintain, but is injectable rather
// than a package-level singleton so tests can use isolated recorders.
package telemetry

import "sync/atomic"

// Recorder accumulates allocation/free counters. The zero value is usable.
// A nil *Recorder is also safe to call methods on: every method is a no-op
// when the receiver is nil, so call sites never need to branch on whether
// telemetry is enabled.
type Recorder struct {
	bytesAllocated uint64
	bytesFreed     uint64
	bytesCurrent   uint64
	bytesPeak      uint64
	allocCount     uint64
	freeCount      uint64
}

// Snapshot is a point-in-time copy of a Recorder's counters.
type Snapshot struct {
	BytesAllocated uint64
	BytesFreed     uint64
	BytesCurrent   uint64
	BytesPeak      uint64
	AllocCount     uint64
	FreeCount      uint64
}

// RecordAlloc registers a new allocation of size bytes.
func (r *Recorder) RecordAlloc(size int) {
	if r == nil || size <= 0 {
		return
	}
	atomic.AddUint64(&r.bytesAllocated, uint64(size))
	atomic.AddUint64(&r.allocCount, 1)
	cur := atomic.AddUint64(&r.bytesCurrent, uint64(size))
	for {
		peak := atomic.LoadUint64(&r.bytesPeak)
		if cur <= peak || atomic.CompareAndSwapUint64(&r.bytesPeak, peak, cur) {
			break
		}
	}
}

// RecordFree registers that size bytes, previously recorded via RecordAlloc,
// have been released back to the arena (typically via Reset).
func (r *Recorder) RecordFree(size int) {
	if r == nil || size <= 0 {
		return
	}
	atomic.AddUint64(&r.bytesFreed, uint64(size))
	atomic.AddUint64(&r.freeCount, 1)
	atomic.StoreUint64(&r.bytesCurrent, 0)
}

// Snapshot returns a consistent-enough copy of the current counters. It is
// intended for periodic reporting, not for synchronization.
func (r *Recorder) Snapshot() Snapshot {
	if r == nil {
		return Snapshot{}
	}
	return Snapshot{
		BytesAllocated: atomic.LoadUint64(&r.bytesAllocated),
		BytesFreed:     atomic.LoadUint64(&r.bytesFreed),
		BytesCurrent:   atomic.LoadUint64(&r.bytesCurrent),
		BytesPeak:      atomic.LoadUint64(&r.bytesPeak),
		AllocCount:     atomic.LoadUint64(&r.allocCount),
		FreeCount:      atomic.LoadUint64(&r.freeCount),
	}
}

// Delta returns the counter-wise difference between two snapshots, useful
// for asserting "zero allocation between warm-up and teardown" in tests.
// BytesCurrent and BytesPeak are levels, not running totals, so they are
// copied from after rather than subtracted.
func Delta(before, after Snapshot) Snapshot {
	return Snapshot{
		BytesAllocated: after.BytesAllocated - before.BytesAllocated,
		BytesFreed:     after.BytesFreed - before.BytesFreed,
		BytesCurrent:   after.BytesCurrent,
		BytesPeak:      after.BytesPeak,
		AllocCount:     after.AllocCount - before.AllocCount,
		FreeCount:      after.FreeCount - before.FreeCount,
	}
}
