package scheduler

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testScheduler(t *testing.T) *Scheduler {
	t.Helper()
	s := New(zap.NewNop())
	t.Cleanup(s.Stop)
	return s
}

func TestTickerFiresRepeatedly(t *testing.T) {
	s := testScheduler(t)

	var fired int32
	s.AddTicker("heartbeat", 15*time.Millisecond, func() { atomic.AddInt32(&fired, 1) })

	time.Sleep(110 * time.Millisecond)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&fired), int32(3))
}

func TestTickerReplaceStopsPrevious(t *testing.T) {
	s := testScheduler(t)

	var old, replacement int32
	s.AddTicker("job", 15*time.Millisecond, func() { atomic.AddInt32(&old, 1) })
	time.Sleep(40 * time.Millisecond)
	s.AddTicker("job", 15*time.Millisecond, func() { atomic.AddInt32(&replacement, 1) })
	time.Sleep(40 * time.Millisecond)

	frozen := atomic.LoadInt32(&old)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, frozen, atomic.LoadInt32(&old))
	assert.Positive(t, atomic.LoadInt32(&replacement))
}

func TestDelayFiresExactlyOnce(t *testing.T) {
	s := testScheduler(t)

	var fired int32
	s.AddDelay("oneshot", 25*time.Millisecond, func() { atomic.AddInt32(&fired, 1) })

	time.Sleep(120 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&fired))
}

func TestDelayReplaceCancelsPending(t *testing.T) {
	s := testScheduler(t)

	var fired int32
	s.AddDelay("d", time.Second, func() { atomic.AddInt32(&fired, 1) })
	s.AddDelay("d", 25*time.Millisecond, func() { atomic.AddInt32(&fired, 100) })

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(100), atomic.LoadInt32(&fired))
}

func TestRemoveStopsTicker(t *testing.T) {
	s := testScheduler(t)

	var fired int32
	s.AddTicker("job", 15*time.Millisecond, func() { atomic.AddInt32(&fired, 1) })
	time.Sleep(50 * time.Millisecond)
	s.Remove("job")

	frozen := atomic.LoadInt32(&fired)
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, frozen, atomic.LoadInt32(&fired))
}

func TestRemoveCancelsDelay(t *testing.T) {
	s := testScheduler(t)

	var fired int32
	s.AddDelay("d", 80*time.Millisecond, func() { atomic.AddInt32(&fired, 1) })
	s.Remove("d")

	time.Sleep(130 * time.Millisecond)
	assert.Zero(t, atomic.LoadInt32(&fired))
}

func TestRemoveUnknownIsNoop(t *testing.T) {
	s := testScheduler(t)
	s.Remove("missing")
}

func TestStopHaltsEverything(t *testing.T) {
	s := New(zap.NewNop())

	var a, b int32
	s.AddTicker("a", 15*time.Millisecond, func() { atomic.AddInt32(&a, 1) })
	s.AddTicker("b", 15*time.Millisecond, func() { atomic.AddInt32(&b, 1) })
	time.Sleep(50 * time.Millisecond)

	s.Stop()
	time.Sleep(30 * time.Millisecond)
	snapA, snapB := atomic.LoadInt32(&a), atomic.LoadInt32(&b)
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, snapA, atomic.LoadInt32(&a))
	assert.Equal(t, snapB, atomic.LoadInt32(&b))

	s.Stop() // second Stop must not panic
}

func TestListTickersSorted(t *testing.T) {
	s := testScheduler(t)

	require.Empty(t, s.ListTickers())
	s.AddTicker("window_tick", time.Hour, func() {})
	s.AddTicker("leaderboard_refresh", time.Hour, func() {})
	assert.Equal(t, []string{"leaderboard_refresh", "window_tick"}, s.ListTickers())

	s.Remove("leaderboard_refresh")
	assert.Equal(t, []string{"window_tick"}, s.ListTickers())
}

func TestTickerSurvivesPanic(t *testing.T) {
	s := testScheduler(t)

	var fired int32
	s.AddTicker("flaky", 15*time.Millisecond, func() {
		atomic.AddInt32(&fired, 1)
		panic("boom")
	})

	time.Sleep(80 * time.Millisecond)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&fired), int32(2), "ticker keeps firing after a panic")
}
