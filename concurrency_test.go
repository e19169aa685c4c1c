package ecshim

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestScrubBroadcastWakesAllCapacityWaiters fills the cache, lets two
// blocks expire together, and confirms both of two waiting writers get a
// shot at the freed capacity rather than just one (Signal vs Broadcast
// per how many entries a single scrub pass actually removes).
func TestScrubBroadcastWakesAllCapacityWaiters(t *testing.T) {
	ctx := context.Background()
	store := NewMockStore(4)
	cfg := Config{
		BlockSize:     4,
		CacheSize:     2,
		CacheTime:     150 * time.Millisecond,
		MinWriteDelay: 50 * time.Millisecond,
	}
	shim, err := New(store, cfg)
	require.NoError(t, err)
	defer shim.Close()

	require.NoError(t, shim.WriteBlock(ctx, 1, []byte("AAAA"), nil))
	require.NoError(t, shim.WriteBlock(ctx, 2, []byte("BBBB"), nil))

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for _, blockNum := range []uint64{3, 4} {
		blockNum := blockNum
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- shim.WriteBlock(ctx, blockNum, []byte("NEW!"), nil)
		}()
	}

	wg.Wait()
	close(results)
	for err := range results {
		assert.NoError(t, err)
	}

	assert.LessOrEqual(t, shim.Stats().CurrentCacheSize, cfg.CacheSize)
}

// TestConcurrentDisjointBlocksDoNotBlockEachOther confirms writers to
// different blocks proceed without waiting on one another when there is
// capacity for all of them.
func TestConcurrentDisjointBlocksDoNotBlockEachOther(t *testing.T) {
	ctx := context.Background()
	store := NewMockStore(4)
	cfg := Config{
		BlockSize:     4,
		CacheSize:     8,
		CacheTime:     time.Second,
		MinWriteDelay: 10 * time.Millisecond,
	}
	shim, err := New(store, cfg)
	require.NoError(t, err)
	defer shim.Close()

	start := time.Now()
	var wg sync.WaitGroup
	for i := uint64(0); i < 8; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, shim.WriteBlock(ctx, i, []byte("DATA"), nil))
		}()
	}
	wg.Wait()

	assert.Less(t, time.Since(start), 200*time.Millisecond, "disjoint writes must not serialize on each other")
}

// TestCheckInvariantsLockedDoesNotPanicUnderConcurrentLoad exercises the
// debug invariant-checking hook (a no-op unless built with -tags
// ecshim_debug) under the same concurrent workload, so the structural
// assertions in invariants_debug.go stay true even when compiled in.
func TestCheckInvariantsLockedDoesNotPanicUnderConcurrentLoad(t *testing.T) {
	ctx := context.Background()
	store := NewMockStore(4)
	cfg := Config{
		BlockSize:     4,
		CacheSize:     4,
		CacheTime:     80 * time.Millisecond,
		MinWriteDelay: 20 * time.Millisecond,
	}
	shim, err := New(store, cfg)
	require.NoError(t, err)
	defer shim.Close()

	var wg sync.WaitGroup
	for round := 0; round < 4; round++ {
		for i := uint64(0); i < 4; i++ {
			i := i
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = shim.WriteBlock(ctx, i, []byte("DATA"), nil)
			}()
		}
	}
	wg.Wait()
}
