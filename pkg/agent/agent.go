package agent

import (
	"runtime/debug"
	"time"

	"pulse/pkg/lib/xerror"
)

// Start spawns a worker. initFn produces the first state and runs to
// completion before the handle is returned; nextFn is the advance function
// the worker applies on its own whenever it is otherwise idle.
//
// A failing or timed-out init aborts startup: the error is returned and no
// worker is left running. With WithName, the name is reserved before init
// runs and released again on any startup failure.
func Start(initFn, nextFn Invocation, options ...Option) (*Handle, error) {
	if initFn.IsZero() || nextFn.IsZero() {
		return nil, ErrNilInvocation
	}
	opts := loadOptions(options...)

	w := newWorker(nextFn, opts)
	w.startCall = initFn.String()
	w.startedAt = time.Now()
	handle := &Handle{w: w}

	if opts.Name != "" {
		if err := register(opts.Name, handle); err != nil {
			return nil, err
		}
	}

	// Init runs on the worker's own goroutine; on success that goroutine
	// becomes the worker loop without a handoff.
	waiter := newChanWaiter[result](opts.StartTimeout)
	err := opts.Dispatcher.Schedule(func() {
		outs, err := safeInit(initFn)
		if err == nil && len(outs) != 1 {
			err = errBadReturn("init", len(outs))
		}
		if err != nil {
			waiter.Done(result{err: err})
			return
		}
		w.state = outs[0]
		waiter.Done(result{})
		w.run()
	}, func(r interface{}) {
		waiter.Done(result{err: &Fault{Recovered: r}})
	})
	if err != nil {
		unregister(opts.Name, w)
		return nil, xerror.Wrap(err, "agent: schedule worker")
	}

	res, werr := waiter.Wait()
	if werr != nil {
		// Startup timed out. The latch makes a late-finishing init exit
		// immediately instead of running unreachable.
		w.stopper.Stop()
		unregister(opts.Name, w)
		return nil, ErrStartTimeout
	}
	if res.err != nil {
		unregister(opts.Name, w)
		return nil, xerror.Wrap(res.err, "agent: init failed")
	}
	return handle, nil
}

func safeInit(initFn Invocation) (outs []interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &Fault{Recovered: r, Stack: debug.Stack()}
		}
	}()
	return initFn.invokeInit()
}
