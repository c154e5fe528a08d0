package agent

import (
	"errors"
	"runtime"
	"runtime/debug"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"pulse/pkg/glog"
	"pulse/pkg/lib/stopper"
	"pulse/pkg/lib/timex/asynctime"
)

// worker owns one state value. Messages are processed one at a time, and
// the advance function runs whenever the mailbox is empty. All state
// access happens on the worker goroutine.
type worker struct {
	opts      *Options
	mailbox   *mailbox
	state     interface{}
	next      Invocation
	startCall string
	startedAt time.Time
	advanced  atomic.Uint64
	stopper   stopper.Stopper
	reason    atomic.Pointer[error]
	done      chan struct{}
}

func newWorker(next Invocation, opts *Options) *worker {
	return &worker{
		opts:    opts,
		mailbox: newMailbox(),
		next:    next,
		done:    make(chan struct{}),
	}
}

// Reason returns the recorded stop reason, nil while the worker runs.
func (w *worker) Reason() error {
	if p := w.reason.Load(); p != nil {
		return *p
	}
	return nil
}

func (w *worker) setReason(err error) {
	if err != nil {
		w.reason.Store(&err)
	}
}

// run is the worker loop. The wait primitive is "pop the next message, or
// advance if none is immediately available": queued messages are always
// served before an advance step, and the advance step only executes when
// the mailbox is empty at that instant.
func (w *worker) run() {
	defer w.finalize()

	var processed int
	for {
		// The latch only trips here when Start aborted on timeout while
		// init was still in flight.
		if w.stopper.IsStop() {
			w.setReason(ErrStartTimeout)
			return
		}
		msg, ok := w.mailbox.Pop()
		if ok {
			if stop := w.handle(msg); stop {
				return
			}
		} else {
			// Idle point.
			if w.opts.AdvanceInterval > 0 && !w.await() {
				continue
			}
			if !w.mailbox.Empty() {
				continue
			}
			if err := w.advance(); err != nil {
				w.setReason(err)
				return
			}
		}
		processed++
		if processed >= w.opts.Throughput {
			processed = 0
			runtime.Gosched()
		}
	}
}

// await parks until the next advance tick. Returns false when a message
// arrives first; the caller then drains the mailbox before advancing.
func (w *worker) await() bool {
	select {
	case <-w.mailbox.Wake():
		return false
	case <-asynctime.After(w.opts.AdvanceInterval):
		return true
	}
}

// handle processes exactly one message. A true result stops the worker;
// the stop reason has been recorded.
func (w *worker) handle(msg message) bool {
	switch m := msg.(type) {
	case *getMessage:
		outs, err := w.apply("get", m.fn, 1)
		if err != nil {
			m.waiter.Done(result{err: err})
			w.setReason(err)
			return true
		}
		m.waiter.Done(result{value: outs[0]})

	case *getUpdateMessage:
		// The pair contract is strict: anything but (reply, newState)
		// stops the worker.
		outs, err := w.apply("get_and_update", m.fn, 2)
		if err != nil {
			m.waiter.Done(result{err: err})
			w.setReason(err)
			return true
		}
		w.state = outs[1]
		m.waiter.Done(result{value: outs[0]})

	case *updateMessage:
		outs, err := w.apply("update", m.fn, 1)
		if err != nil {
			m.waiter.Done(result{err: err})
			w.setReason(err)
			return true
		}
		w.state = outs[0]
		m.waiter.Done(result{})

	case *castMessage:
		outs, err := w.apply("cast", m.fn, 1)
		if err != nil {
			w.setReason(err)
			return true
		}
		w.state = outs[0]

	case *swapMessage:
		outs, err := w.apply("swap", m.fn, 1)
		if err != nil {
			m.waiter.Done(result{err: err})
			w.setReason(err)
			return true
		}
		w.state = outs[0]
		if m.next != nil {
			w.next = *m.next
		}
		m.waiter.Done(result{})

	case *stopMessage:
		w.setReason(m.reason)
		return true
	}
	return false
}

// advance runs the transition function once and commits the new state.
func (w *worker) advance() error {
	outs, err := w.apply("advance", w.next, 1)
	if err != nil {
		return err
	}
	w.state = outs[0]
	w.advanced.Add(1)
	return nil
}

// apply invokes fn against the current state and enforces the expected
// result arity. A panic inside fn comes back as a *Fault.
func (w *worker) apply(op string, fn Invocation, want int) ([]interface{}, error) {
	outs, err := w.safeInvoke(fn)
	if err == nil && len(outs) != want {
		err = errBadReturn(op, len(outs))
	}
	return outs, err
}

func (w *worker) safeInvoke(fn Invocation) (outs []interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &Fault{Recovered: r, Stack: debug.Stack()}
		}
	}()
	return fn.invoke(w.state)
}

// finalize runs exactly once, on the worker goroutine. It makes the worker
// unreachable, fails every queued waiter and releases the state.
func (w *worker) finalize() {
	if r := recover(); r != nil {
		w.setReason(&Fault{Recovered: r, Stack: debug.Stack()})
	}
	w.stopper.Stop()
	unregister(w.opts.Name, w)
	w.drain()
	w.state = nil
	close(w.done)

	reason := w.Reason()
	if reason == nil || errors.Is(reason, ReasonNormal) {
		glog.Debug("agent stopped", zap.String("name", w.opts.Name))
	} else {
		glog.Warn("agent stopped abnormally",
			zap.String("name", w.opts.Name),
			zap.String("reason", reason.Error()))
	}
}

// drain fails the waiter of every message still queued at termination.
func (w *worker) drain() {
	failed := errTerminated(w.Reason())
	for {
		msg, ok := w.mailbox.Pop()
		if !ok {
			return
		}
		switch m := msg.(type) {
		case *getMessage:
			m.waiter.Done(result{err: failed})
		case *getUpdateMessage:
			m.waiter.Done(result{err: failed})
		case *updateMessage:
			m.waiter.Done(result{err: failed})
		case *swapMessage:
			m.waiter.Done(result{err: failed})
		}
	}
}

// Info is a point-in-time description of a worker. All counters are read
// lock-free; none of them touches the state value.
type Info struct {
	Name      string
	StartCall string
	Received  uint64
	Processed uint64
	Advanced  uint64
	StartedAt time.Time
	Running   bool
}

func (w *worker) info() Info {
	return Info{
		Name:      w.opts.Name,
		StartCall: w.startCall,
		Received:  w.mailbox.Received(),
		Processed: w.mailbox.Processed(),
		Advanced:  w.advanced.Load(),
		StartedAt: w.startedAt,
		Running:   !w.stopper.IsStop(),
	}
}
