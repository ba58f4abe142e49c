package sched

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSpawnAndRunToCompletion(t *testing.T) {
	s := NewScheduler(1)
	ran := false
	_, err := s.Spawn("t1", func() { ran = true })
	require.NoError(t, err)

	ok := s.RunOnce(0)
	require.True(t, ok)
	require.True(t, ran)

	zs := s.ReapZombies()
	require.Len(t, zs, 1)
}

func TestRoundRobinAlternates(t *testing.T) {
	s := NewScheduler(1)
	order := []string{}

	var th1, th2 *Thread
	th1, _ = s.Spawn("a", func() {
		order = append(order, "a1")
		th1.Yield()
		order = append(order, "a2")
	})
	th2, _ = s.Spawn("b", func() {
		order = append(order, "b1")
		th2.Yield()
		order = append(order, "b2")
	})

	s.RunOnce(0) // a1, parks
	s.RunOnce(0) // b1, parks
	s.RunOnce(0) // a resumes -> a2, exits
	s.RunOnce(0) // b resumes -> b2, exits

	require.Equal(t, []string{"a1", "b1", "a2", "b2"}, order)
}

func TestBlockAndWakeup(t *testing.T) {
	s := NewScheduler(1)
	chanKey := "endpoint-1"
	woke := false

	_, err := s.Spawn("blocker", func() {
		t, _ := s.ThreadByTID(1)
		s.Block(t, chanKey)
		woke = true
	})
	require.NoError(t, err)

	s.RunOnce(0) // blocks
	require.False(t, woke)
	require.Equal(t, Blocked, func() State { t, _ := s.ThreadByTID(1); return t.State() }())

	s.Wakeup(chanKey)
	s.RunOnce(0) // resumes past Block, finishes
	require.True(t, woke)
}

func TestSleepTicksWakesAfterN(t *testing.T) {
	s := NewScheduler(1)
	woke := false

	_, err := s.Spawn("sleeper", func() {
		t, _ := s.ThreadByTID(1)
		s.SleepTicks(t, 3)
		woke = true
	})
	require.NoError(t, err)

	s.RunOnce(0) // goes to sleep
	for i := 0; i < 2; i++ {
		s.Tick(0)
		require.False(t, woke)
		require.False(t, s.RunOnce(0), "sleeping thread must not be runnable yet")
	}
	s.Tick(0) // third tick, should wake it
	require.True(t, s.RunOnce(0))
	require.True(t, woke)
}

func TestTickRotatesOnSliceExhaustion(t *testing.T) {
	s := NewScheduler(1)
	c := s.cpus[0]
	th := &Thread{TID: 99, slice: 1}
	c.current = th

	resched := s.Tick(0)
	require.True(t, resched, "slice hitting zero must request a reschedule")
	require.Equal(t, defaultSlice, th.slice, "slice resets to the constant on rotation")
}

func TestDestroyCurrentMarksExitCode(t *testing.T) {
	s := NewScheduler(1)
	th, err := s.Spawn("doomed", func() {})
	require.NoError(t, err)
	s.DestroyCurrent(th)
	require.EqualValues(t, -1, th.exitCode)
}
