package eventloop

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmit_RunsInOrder(t *testing.T) {
	l := New()
	go l.Dispatch()

	var got []int
	for i := 0; i < 10; i++ {
		i := i
		require.NoError(t, l.Submit(func() { got = append(got, i) }))
	}

	done := make(chan struct{})
	require.NoError(t, l.Submit(func() { close(done) }))
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("loop did not drain submitted tasks")
	}

	// got is only appended to from inside the loop; reading it after the
	// marker task ran is ordered by the done channel.
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, got)
}

func TestStop_FromInsideLoop(t *testing.T) {
	l := New()
	go l.Dispatch()

	require.NoError(t, l.Submit(l.Stop))

	select {
	case <-l.Done():
	case <-time.After(time.Second):
		t.Fatal("loop did not stop")
	}
}

func TestSubmit_AfterStop(t *testing.T) {
	l := New()
	go l.Dispatch()
	require.NoError(t, l.Submit(l.Stop))
	<-l.Done()

	err := l.Submit(func() { t.Error("task ran after stop") })
	assert.ErrorIs(t, err, ErrStopped)
}

func TestSubmitAfter_FiresInsideLoop(t *testing.T) {
	l := New()
	go l.Dispatch()

	fired := make(chan struct{})
	l.SubmitAfter(10*time.Millisecond, func() { close(fired) })

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("timer task did not run")
	}
	l.Submit(l.Stop)
	<-l.Done()
}

func TestSubmitAfter_StoppedTimerDoesNotFire(t *testing.T) {
	l := New()
	go l.Dispatch()

	var fired atomic.Bool
	timer := l.SubmitAfter(50*time.Millisecond, func() { fired.Store(true) })
	timer.Stop()

	time.Sleep(100 * time.Millisecond)
	assert.False(t, fired.Load())
	l.Submit(l.Stop)
	<-l.Done()
}

func TestSubmitAfter_AfterLoopStopped(t *testing.T) {
	l := New()
	go l.Dispatch()
	require.NoError(t, l.Submit(l.Stop))
	<-l.Done()

	// The timer fires, Submit fails with ErrStopped, nothing runs.
	l.SubmitAfter(10*time.Millisecond, func() { t.Error("task ran after stop") })
	time.Sleep(50 * time.Millisecond)
}

func TestDispatch_SingleOwner(t *testing.T) {
	l := New()
	go l.Dispatch()

	// All mutations of n happen on the loop goroutine; the counter is read
	// back through a final submitted task.
	n := 0
	for i := 0; i < 100; i++ {
		require.NoError(t, l.Submit(func() { n++ }))
	}
	got := make(chan int, 1)
	require.NoError(t, l.Submit(func() { got <- n }))
	assert.Equal(t, 100, <-got)

	l.Submit(l.Stop)
	<-l.Done()
}
