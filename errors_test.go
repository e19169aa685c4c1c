package ecshim

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStructuredError(t *testing.T) {
	err := NewError("write_block", CodeInvalidConfig, "block size is zero")

	assert.Equal(t, "write_block", err.Op)
	assert.Equal(t, CodeInvalidConfig, err.Code)
	assert.Equal(t, "ecshim: write_block: block size is zero", err.Error())
}

func TestBlockError(t *testing.T) {
	err := NewBlockError("write_block", 7, CodeOutOfMemory, "record allocation failed")

	require.True(t, err.HasBlockNum)
	assert.EqualValues(t, 7, err.BlockNum)
	assert.Equal(t, "ecshim: write_block: record allocation failed (block=7)", err.Error())
}

func TestWrapError(t *testing.T) {
	inner := errors.New("connection reset")
	err := WrapError("write_block", 3, inner)

	require.NotNil(t, err)
	assert.Equal(t, CodeBackend, err.Code)
	assert.ErrorIs(t, err, inner)
	assert.True(t, errors.Is(err, inner))
}

func TestWrapErrorPreservesInnerCode(t *testing.T) {
	inner := NewBlockError("put", 9, CodeOutOfMemory, "no space")
	err := WrapError("write_block", 9, inner)

	require.NotNil(t, err)
	assert.Equal(t, CodeOutOfMemory, err.Code)
	assert.Equal(t, "write_block", err.Op)
}

func TestWrapErrorNil(t *testing.T) {
	assert.Nil(t, WrapError("write_block", 0, nil))
}

func TestIsCode(t *testing.T) {
	err := NewError("write_block", CodeOutOfMemory, "allocation failed")

	assert.True(t, IsCode(err, CodeOutOfMemory))
	assert.False(t, IsCode(err, CodeInvalidConfig))
	assert.False(t, IsCode(nil, CodeOutOfMemory))
}

func TestErrorIsMatchesByCode(t *testing.T) {
	a := NewError("write_block", CodeBackend, "timeout")
	b := NewError("read_block", CodeBackend, "connection refused")

	assert.True(t, errors.Is(a, b))
}

func TestFingerprintMismatchIsSentinel(t *testing.T) {
	wrapped := WrapError("read_block", 1, ErrFingerprintMismatch)
	assert.ErrorIs(t, wrapped, ErrFingerprintMismatch)
}
