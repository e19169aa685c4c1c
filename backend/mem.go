// Package backend provides reference Store implementations for ecshim.
package backend

import (
	"bytes"
	"context"
	"crypto/md5"
	"sync"

	"github.com/ecshim/ecshim"
)

// numShards controls the sharded-locking fan-out. Blocks are assigned to
// shards by blockNum modulo numShards, giving parallel access across
// queues for workloads spread over many block numbers.
const numShards = 64

type slot struct {
	visible   []byte // currently visible content; nil means all-zeros
	pending   []byte // write not yet visible; nil means pending zero
	pendingAt uint64 // clock millis at which pending becomes visible; 0 = none pending
}

type shard struct {
	mu     sync.Mutex
	blocks map[uint64]*slot
}

// EventualStore is an in-memory ecshim.Store whose writes are only
// visible to subsequent reads after a configurable lag, modeling the
// kind of read-after-write staleness that a real object store exhibits.
// It exists to give ecshim.Shim something realistic to protect against:
// reading it directly, without a Shim, returns stale content during the
// lag; a Shim in front of it verifies reads of recently written blocks
// against their cached fingerprint.
type EventualStore struct {
	blockSize int
	lagMillis uint64
	clock     ecshim.Clock
	shards    [numShards]shard

	mu            sync.Mutex
	failNextRead  int
	failNextWrite int
}

// NewEventualStore creates an EventualStore with the given fixed block
// size and write-visibility lag. clock defaults to ecshim.SystemClock
// when nil.
func NewEventualStore(blockSize int, lagMillis uint64, clock ecshim.Clock) *EventualStore {
	if clock == nil {
		clock = ecshim.SystemClock
	}
	e := &EventualStore{
		blockSize: blockSize,
		lagMillis: lagMillis,
		clock:     clock,
	}
	for i := range e.shards {
		e.shards[i].blocks = make(map[uint64]*slot)
	}
	return e
}

func (e *EventualStore) shardFor(blockNum uint64) *shard {
	return &e.shards[blockNum%numShards]
}

// settleLocked promotes sl's pending write to visible if its lag has
// elapsed. Must be called with the owning shard's mutex held.
func (e *EventualStore) settleLocked(sl *slot, now uint64) {
	if sl.pendingAt != 0 && now >= sl.pendingAt {
		sl.visible = sl.pending
		sl.pending = nil
		sl.pendingAt = 0
	}
}

// ReadBlock implements ecshim.Store.
func (e *EventualStore) ReadBlock(ctx context.Context, blockNum uint64, dest []byte, expectFingerprint []byte) error {
	if err := e.takeFailure(&e.failNextRead); err != nil {
		return err
	}

	sh := e.shardFor(blockNum)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	var visible []byte
	if sl, ok := sh.blocks[blockNum]; ok {
		e.settleLocked(sl, e.clock.NowMillis())
		visible = sl.visible
	}

	if expectFingerprint != nil {
		var actual [16]byte
		if visible != nil {
			actual = md5.Sum(visible)
		}
		if !bytes.Equal(actual[:], expectFingerprint) {
			return ecshim.WrapError("backend_read", blockNum, ecshim.ErrFingerprintMismatch)
		}
	}

	if visible == nil {
		zeroFillBytes(dest)
	} else {
		copy(dest, visible)
	}
	return nil
}

// WriteBlock implements ecshim.Store. The write is acknowledged
// immediately but only becomes visible to ReadBlock after lagMillis.
func (e *EventualStore) WriteBlock(ctx context.Context, blockNum uint64, src []byte, fingerprint []byte) error {
	if err := e.takeFailure(&e.failNextWrite); err != nil {
		return err
	}

	sh := e.shardFor(blockNum)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	sl, ok := sh.blocks[blockNum]
	if !ok {
		sl = &slot{}
		sh.blocks[blockNum] = sl
	}

	var stored []byte
	if src != nil {
		stored = make([]byte, len(src))
		copy(stored, src)
	}

	now := e.clock.NowMillis()
	if e.lagMillis == 0 {
		sl.visible = stored
		sl.pending = nil
		sl.pendingAt = 0
	} else {
		sl.pending = stored
		sl.pendingAt = now + e.lagMillis
	}
	return nil
}

// DetectSizes implements ecshim.Store.
func (e *EventualStore) DetectSizes(ctx context.Context) (int64, int, error) {
	return 0, e.blockSize, nil
}

// Close implements ecshim.Store.
func (e *EventualStore) Close() error {
	for i := range e.shards {
		e.shards[i].mu.Lock()
		e.shards[i].blocks = nil
		e.shards[i].mu.Unlock()
	}
	return nil
}

// FailNextReads arranges for the next n ReadBlock calls to fail.
func (e *EventualStore) FailNextReads(n int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failNextRead = n
}

// FailNextWrites arranges for the next n WriteBlock calls to fail.
func (e *EventualStore) FailNextWrites(n int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failNextWrite = n
}

func (e *EventualStore) takeFailure(counter *int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if *counter > 0 {
		*counter--
		return ecshim.NewError("backend", ecshim.CodeBackend, "injected backend failure")
	}
	return nil
}

func zeroFillBytes(p []byte) {
	for i := range p {
		p[i] = 0
	}
}

var _ ecshim.Store = (*EventualStore)(nil)
