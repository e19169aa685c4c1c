package ecshim

import "sync/atomic"

// stats holds the cumulative counters described in the spec: cache hits,
// full-cache stalls, repeated-write stalls, and out-of-memory events. All
// fields are updated under the shim's mutex (matching the invariant that
// "every statistics update" happens while the lock is held) but are typed
// as atomics so Snapshot can be taken without requiring callers to reason
// about which lock protects which field.
type stats struct {
	cacheDataHits       atomic.Uint64
	cacheFullDelayMs    atomic.Uint64
	repeatedWriteDelayMs atomic.Uint64
	outOfMemoryErrors   atomic.Uint64
}

// Snapshot is a read-only, point-in-time copy of the shim's statistics.
type Snapshot struct {
	// CacheDataHits counts reads served directly from the in-memory
	// WRITING/WRITTEN record (no backend round trip).
	CacheDataHits uint64

	// CacheFullDelayMillis is the cumulative milliseconds writers have
	// spent blocked waiting for cache capacity to free up.
	CacheFullDelayMillis uint64

	// RepeatedWriteDelayMillis is the cumulative milliseconds writers
	// have spent blocked behind the per-block min-write-delay or an
	// in-flight write to the same block.
	RepeatedWriteDelayMillis uint64

	// OutOfMemoryErrors counts allocation failures (record or
	// zero-buffer) surfaced to callers.
	OutOfMemoryErrors uint64

	// CurrentCacheSize is a live gauge, not a cumulative counter: the
	// number of blocks currently tracked (WRITING or WRITTEN) at the
	// moment the snapshot was taken.
	CurrentCacheSize int
}

func (s *stats) snapshot(currentCacheSize int) Snapshot {
	return Snapshot{
		CacheDataHits:            s.cacheDataHits.Load(),
		CacheFullDelayMillis:     s.cacheFullDelayMs.Load(),
		RepeatedWriteDelayMillis: s.repeatedWriteDelayMs.Load(),
		OutOfMemoryErrors:        s.outOfMemoryErrors.Load(),
		CurrentCacheSize:         currentCacheSize,
	}
}
