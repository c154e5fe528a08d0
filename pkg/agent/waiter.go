package agent

import (
	"time"

	"pulse/pkg/lib/timex/asynctime"
)

func newChanWaiter[T any](timeout time.Duration) *chanWaiter[T] {
	w := new(chanWaiter[T])
	w.ch = make(chan T, 1)
	if timeout > 0 {
		w.after = asynctime.After(timeout)
	}
	return w
}

// chanWaiter carries one reply from the worker back to a blocked caller.
// A nil after channel means wait forever.
type chanWaiter[T any] struct {
	ch    chan T
	after <-chan time.Time
}

func (w *chanWaiter[T]) Wait() (T, error) {
	var zero T
	select {
	case v := <-w.ch:
		return v, nil
	case <-w.after:
		return zero, ErrCallTimeout
	}
}

func (w *chanWaiter[T]) Done(reply T) {
	// Non-blocking so a second Done cannot wedge the worker.
	select {
	case w.ch <- reply:
	default:
	}
}
