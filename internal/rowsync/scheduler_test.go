package rowsync

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArmReplacesPreviousTimer(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := NewScheduler(clock)
	var first, second atomic.Int32

	s.Arm("k", time.Second, func() { first.Add(1) })
	s.Arm("k", time.Second, func() { second.Add(1) })
	clock.Advance(time.Second)

	require.Eventually(t, func() bool { return second.Load() == 1 }, time.Second, 5*time.Millisecond)
	assert.Zero(t, first.Load())
	assert.False(t, s.Pending("k"))
}

func TestCancel(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := NewScheduler(clock)
	var fired atomic.Int32

	s.Arm("k", time.Second, func() { fired.Add(1) })
	assert.True(t, s.Cancel("k"))
	assert.False(t, s.Cancel("k"))

	clock.Advance(2 * time.Second)
	assert.Never(t, func() bool { return fired.Load() > 0 }, 50*time.Millisecond, 5*time.Millisecond)
}

func TestRekeyMovesTimer(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := NewScheduler(clock)
	var fired atomic.Int32

	s.Arm("tmp", time.Second, func() { fired.Add(1) })
	s.Rekey("tmp", "compras:7")
	assert.False(t, s.Pending("tmp"))
	assert.True(t, s.Pending("compras:7"))

	clock.Advance(time.Second)
	require.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, 5*time.Millisecond)
	assert.False(t, s.Pending("compras:7"))
}

func TestGateIsExclusive(t *testing.T) {
	var g Gate
	require.True(t, g.TryAcquire())
	assert.False(t, g.TryAcquire())
	assert.True(t, g.Held())
	g.Release()
	assert.True(t, g.TryAcquire())
}
