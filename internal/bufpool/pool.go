// Package bufpool provides pooled, block-sized byte buffers to avoid
// per-call allocations on the read/write hot path.
package bufpool

import "sync"

// Pool hands out buffers of a single fixed size. Uses the *[]byte
// pattern to avoid the interface-boxing allocation that sync.Pool would
// otherwise impose on every Get of a plain []byte.
type Pool struct {
	blockSize int
	pool      sync.Pool
}

// New creates a Pool that hands out buffers of exactly blockSize bytes.
func New(blockSize int) *Pool {
	p := &Pool{blockSize: blockSize}
	p.pool.New = func() any {
		b := make([]byte, blockSize)
		return &b
	}
	return p
}

// Get returns a buffer of exactly the pool's block size. The caller must
// call Put when done with it.
func (p *Pool) Get() []byte {
	buf := *p.pool.Get().(*[]byte)
	return buf[:p.blockSize]
}

// Put returns buf to the pool. Buffers whose capacity doesn't match the
// pool's block size are dropped rather than pooled.
func (p *Pool) Put(buf []byte) {
	if cap(buf) != p.blockSize {
		return
	}
	buf = buf[:p.blockSize]
	p.pool.Put(&buf)
}
