// Package eventloop provides the single-threaded execution context that
// drives one simulated peer. Exactly one goroutine runs Dispatch; every
// other goroutine interacts with the loop only through Submit.
package eventloop

import (
	"errors"
	"time"
)

// ErrStopped is returned by Submit after the dispatch loop has exited.
var ErrStopped = errors.New("eventloop: loop stopped")

// defaultQueueSize bounds the task backlog a controller can build up before
// Submit starts blocking.
const defaultQueueSize = 64

// Loop is a cooperative dispatch loop owned by a single worker goroutine.
type Loop struct {
	tasks chan func()
	stop  chan struct{}
	done  chan struct{}
}

// New creates a Loop. It does nothing until some goroutine calls Dispatch.
func New() *Loop {
	return &Loop{
		tasks: make(chan func(), defaultQueueSize),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
}

// Dispatch runs submitted tasks until Stop is processed. It must be called
// by exactly one goroutine, which becomes the owner of everything the tasks
// touch. Dispatch returns after the stop request is observed; tasks still
// queued at that point are dropped.
func (l *Loop) Dispatch() {
	defer close(l.done)
	for {
		select {
		case <-l.stop:
			return
		case fn := <-l.tasks:
			fn()
		}
	}
}

// Stop requests loop termination. It is intended to be executed from inside
// a dispatched task (submit it via Submit from foreign goroutines) so that
// the request is ordered with the tasks before it.
func (l *Loop) Stop() {
	select {
	case <-l.stop:
	default:
		close(l.stop)
	}
}

// Submit enqueues fn to run inside the loop. It is safe to call from any
// goroutine. After the loop has exited it returns ErrStopped; a task that
// was queued but never ran because the loop stopped first is silently
// dropped, matching Dispatch.
func (l *Loop) Submit(fn func()) error {
	select {
	case <-l.done:
		return ErrStopped
	default:
	}
	select {
	case l.tasks <- fn:
		return nil
	case <-l.done:
		return ErrStopped
	}
}

// SubmitAfter schedules fn to be submitted into the loop after d. The
// returned timer can be stopped to cancel a submission that has not fired.
// A timer firing after the loop stopped is a no-op.
func (l *Loop) SubmitAfter(d time.Duration, fn func()) *time.Timer {
	return time.AfterFunc(d, func() {
		_ = l.Submit(fn)
	})
}

// Done is closed once Dispatch has returned. Waiting on it is how a
// controller joins the worker goroutine.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}
