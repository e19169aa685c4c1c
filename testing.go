package ecshim

import (
	"bytes"
	"context"
	"crypto/md5"
	"sync"
)

// MockStore is an in-memory Store implementation for tests. It tracks call
// counts and supports injecting a failure for the next N write or read
// calls, which exercises the shim's rollback-on-backend-failure path
// without needing a real flaky backend.
type MockStore struct {
	mu         sync.Mutex
	blocks     map[uint64][]byte
	blockSize  int
	closed     bool
	readCalls  int
	writeCalls int

	failNextReads  int
	failNextWrites int
	failErr        error

	// VerifyFingerprints, when true, makes ReadBlock check a non-nil
	// expectFingerprint against the actual stored content and return
	// ErrFingerprintMismatch on disagreement, exercising the same
	// backend-verification contract EventualStore implements.
	VerifyFingerprints bool
}

// NewMockStore creates an empty mock store for the given block size.
func NewMockStore(blockSize int) *MockStore {
	return &MockStore{
		blocks:    make(map[uint64][]byte),
		blockSize: blockSize,
		failErr:   ErrClosed,
	}
}

// ReadBlock implements Store.
func (m *MockStore) ReadBlock(ctx context.Context, blockNum uint64, dest []byte, expectFingerprint []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.readCalls++
	if m.closed {
		return ErrClosed
	}
	if m.failNextReads > 0 {
		m.failNextReads--
		return m.failErr
	}

	data, ok := m.blocks[blockNum]
	if m.VerifyFingerprints && expectFingerprint != nil {
		var actual [16]byte
		if ok {
			actual = md5.Sum(data)
		}
		if !bytes.Equal(actual[:], expectFingerprint) {
			return ErrFingerprintMismatch
		}
	}

	if ok {
		copy(dest, data)
	} else {
		zeroFill(dest)
	}
	return nil
}

// WriteBlock implements Store.
func (m *MockStore) WriteBlock(ctx context.Context, blockNum uint64, src []byte, fingerprint []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.writeCalls++
	if m.closed {
		return ErrClosed
	}
	if m.failNextWrites > 0 {
		m.failNextWrites--
		return m.failErr
	}

	if src == nil {
		delete(m.blocks, blockNum)
		return nil
	}
	stored := make([]byte, len(src))
	copy(stored, src)
	m.blocks[blockNum] = stored
	return nil
}

// DetectSizes implements Store, reporting an arbitrarily large file size
// at the configured block size.
func (m *MockStore) DetectSizes(ctx context.Context) (int64, int, error) {
	return int64(m.blockSize) * 1 << 20, m.blockSize, nil
}

// Close implements Store.
func (m *MockStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// FailNextWrites arranges for the next n calls to WriteBlock to fail with
// err. A nil err keeps the previously configured failure error, which is
// ErrClosed until a non-nil err is given here or to FailNextReads.
func (m *MockStore) FailNextWrites(n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNextWrites = n
	if err != nil {
		m.failErr = err
	}
}

// FailNextReads arranges for the next n calls to ReadBlock to fail.
func (m *MockStore) FailNextReads(n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNextReads = n
	if err != nil {
		m.failErr = err
	}
}

// CallCounts reports how many times ReadBlock and WriteBlock have been
// invoked so far.
func (m *MockStore) CallCounts() (reads, writes int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.readCalls, m.writeCalls
}

// StoredBlock returns the raw bytes currently held for blockNum, and
// whether an entry exists at all (as opposed to being implicitly zero).
func (m *MockStore) StoredBlock(blockNum uint64) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.blocks[blockNum]
	if !ok {
		return nil, false
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, true
}

var _ Store = (*MockStore)(nil)
