package agent

import (
	"errors"
	"time"

	"pulse/pkg/lib/timex/asynctime"
	"pulse/pkg/serializer"
)

// Handle is the client surface of one worker. Handles are safe for
// concurrent use. Every method turns into a mailbox message processed by
// the worker in receipt order.
//
// A zero timeout on a blocking method means the default call timeout.
// Operation functions run on the worker goroutine, so a slow function
// blocks the whole worker until it returns.
type Handle struct {
	w *worker
}

// Get invokes fn against the current state and returns its result. The
// state is unchanged.
func (h *Handle) Get(timeout time.Duration, fn Invocation) (interface{}, error) {
	if fn.IsZero() {
		return nil, ErrNilInvocation
	}
	waiter := newChanWaiter[result](h.timeout(timeout))
	return h.post(&getMessage{fn: fn, waiter: waiter}, waiter)
}

// GetUpdate invokes fn, which must return exactly the pair
// (reply, newState). The reply goes back to the caller and newState is
// committed atomically with respect to every other operation. Any other
// return shape stops the worker with ErrBadReturnValue.
func (h *Handle) GetUpdate(timeout time.Duration, fn Invocation) (interface{}, error) {
	if fn.IsZero() {
		return nil, ErrNilInvocation
	}
	waiter := newChanWaiter[result](h.timeout(timeout))
	return h.post(&getUpdateMessage{fn: fn, waiter: waiter}, waiter)
}

// Update invokes fn and commits its result as the new state.
func (h *Handle) Update(timeout time.Duration, fn Invocation) error {
	if fn.IsZero() {
		return ErrNilInvocation
	}
	waiter := newChanWaiter[result](h.timeout(timeout))
	_, err := h.post(&updateMessage{fn: fn, waiter: waiter}, waiter)
	return err
}

// Cast is Update without a reply; it returns once the message is queued.
func (h *Handle) Cast(fn Invocation) error {
	if fn.IsZero() {
		return ErrNilInvocation
	}
	if h.w.stopper.IsStop() {
		return errTerminated(h.w.Reason())
	}
	h.w.mailbox.Post(&castMessage{fn: fn})
	return nil
}

// Swap invokes fn and commits its result as the new state, leaving the
// advance function in place. Used to hot-swap state without a restart.
func (h *Handle) Swap(timeout time.Duration, fn Invocation) error {
	if fn.IsZero() {
		return ErrNilInvocation
	}
	waiter := newChanWaiter[result](h.timeout(timeout))
	_, err := h.post(&swapMessage{fn: fn, waiter: waiter}, waiter)
	return err
}

// SwapAdvance is Swap plus replacement of the advance function, both
// applied in the same step.
func (h *Handle) SwapAdvance(timeout time.Duration, fn, next Invocation) error {
	if fn.IsZero() || next.IsZero() {
		return ErrNilInvocation
	}
	waiter := newChanWaiter[result](h.timeout(timeout))
	_, err := h.post(&swapMessage{fn: fn, next: &next, waiter: waiter}, waiter)
	return err
}

// Stop terminates the worker with the given reason (nil means normal) and
// blocks until it has fully terminated or the timeout elapses. A timeout
// returns ErrCallTimeout; an abnormal termination with a different reason
// returns an ErrTerminated-wrapped error.
func (h *Handle) Stop(reason error, timeout time.Duration) error {
	w := h.w
	if reason == nil {
		reason = ReasonNormal
	}
	if w.stopper.IsStop() {
		select {
		case <-w.done:
			return errTerminated(w.Reason())
		default:
			// Already stopping; just wait for termination below.
		}
	} else {
		w.mailbox.Post(&stopMessage{reason: reason})
	}

	select {
	case <-w.done:
	case <-asynctime.After(h.timeout(timeout)):
		return ErrCallTimeout
	}

	final := w.Reason()
	if final == nil || errors.Is(final, ReasonNormal) || errors.Is(final, reason) {
		return nil
	}
	return errTerminated(final)
}

// Done is closed when the worker has terminated.
func (h *Handle) Done() <-chan struct{} {
	return h.w.done
}

// Reason returns the recorded stop reason, nil while the worker runs.
func (h *Handle) Reason() error {
	return h.w.Reason()
}

// Name returns the registered name, empty if the worker is anonymous.
func (h *Handle) Name() string {
	return h.w.opts.Name
}

// Info returns worker metadata without touching the state.
func (h *Handle) Info() Info {
	return h.w.info()
}

// Snapshot serializes the current state with the msgpack codec, inside the
// worker so no concurrent mutation can be observed.
func (h *Handle) Snapshot(timeout time.Duration) ([]byte, error) {
	type snapshot struct {
		data []byte
		err  error
	}
	v, err := h.Get(timeout, Closure(func(state interface{}) interface{} {
		data, err := serializer.MsgPack.Marshal(state)
		return snapshot{data: data, err: err}
	}))
	if err != nil {
		return nil, err
	}
	s := v.(snapshot)
	return s.data, s.err
}

func (h *Handle) timeout(d time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return h.w.opts.CallTimeout
}

func (h *Handle) post(msg message, waiter *chanWaiter[result]) (interface{}, error) {
	w := h.w
	if w.stopper.IsStop() {
		return nil, errTerminated(w.Reason())
	}
	w.mailbox.Post(msg)
	res, err := waiter.Wait()
	if err != nil {
		return nil, err
	}
	return res.value, res.err
}
