package ecshim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecordWritingState(t *testing.T) {
	r := &record{blockNum: 1, data: []byte("hi")}
	assert.True(t, r.writing())

	r.timestamp = 1000
	assert.False(t, r.writing())
}

func TestRecordIsZero(t *testing.T) {
	r := &record{blockNum: 1}
	assert.True(t, r.isZero(), "zero-value fingerprint must read as the zero block")

	r.fingerprint = [16]byte{1}
	assert.False(t, r.isZero())
}
