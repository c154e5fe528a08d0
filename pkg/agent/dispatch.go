package agent

import (
	"pulse/pkg/glog"
	"pulse/pkg/lib/workers"
)

// IDispatcher decides where a worker loop runs.
type IDispatcher interface {
	Schedule(fn func(), recoverFun func(err interface{})) error
}

// poolDispatcher schedules onto the shared workers pool.
type poolDispatcher struct{}

func NewPoolDispatcher() IDispatcher {
	return poolDispatcher{}
}

func (poolDispatcher) Schedule(fn func(), recoverFun func(err interface{})) error {
	if err := workers.Submit(fn, recoverFun); err != nil {
		glog.Errorf("dispatcher submit error:%v", err)
		return err
	}
	return nil
}

// goDispatcher schedules onto a fresh goroutine.
type goDispatcher struct{}

func NewGoDispatcher() IDispatcher {
	return goDispatcher{}
}

func (goDispatcher) Schedule(fn func(), recoverFun func(err interface{})) error {
	go workers.Try(fn, recoverFun)
	return nil
}

// syncDispatcher runs fn inline on the caller's goroutine. Since fn hosts
// the whole worker loop, Schedule only returns once the worker has
// terminated. Deterministic; for tests of self-terminating agents.
type syncDispatcher struct{}

func NewSynchronizedDispatcher() IDispatcher {
	return syncDispatcher{}
}

func (syncDispatcher) Schedule(fn func(), recoverFun func(err interface{})) error {
	defer func() {
		if err := recover(); err != nil {
			recoverFun(err)
		}
	}()
	fn()
	return nil
}
