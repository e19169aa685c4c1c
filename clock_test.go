package ecshim

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManualClockAdvance(t *testing.T) {
	c := NewManualClock(1000)
	assert.EqualValues(t, 1000, c.NowMillis())

	got := c.Advance(500 * time.Millisecond)
	assert.EqualValues(t, 1500, got)
	assert.EqualValues(t, 1500, c.NowMillis())
}

func TestManualClockSetRejectsBackwardsMove(t *testing.T) {
	c := NewManualClock(1000)
	c.Set(2000)
	assert.EqualValues(t, 2000, c.NowMillis())

	require.Panics(t, func() { c.Set(500) })
}

func TestSystemClockMovesForward(t *testing.T) {
	first := SystemClock.NowMillis()
	time.Sleep(2 * time.Millisecond)
	second := SystemClock.NowMillis()
	assert.GreaterOrEqual(t, second, first)
}
