// Package workers owns the shared goroutine pool the runtime schedules on.
package workers

import (
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
)

var (
	goCount    atomic.Int64
	panicCount atomic.Uint64
	pool       *ants.Pool
)

func init() {
	pool, _ = ants.NewPool(5000)
}

// Submit runs fn on the shared pool. A panic inside fn is recovered and
// handed to recoverFun instead of killing the pool worker.
func Submit(fn func(), recoverFun func(err interface{})) error {
	return pool.Submit(func() {
		goCount.Add(1)
		Try(fn, recoverFun)
		goCount.Add(-1)
	})
}

// Try invokes fn, routing a recovered panic to recoverFun.
func Try(fn func(), recoverFun func(err interface{})) {
	defer func() {
		if err := recover(); err != nil {
			panicCount.Add(1)
			if recoverFun != nil {
				recoverFun(err)
			}
		}
	}()
	fn()
}

// Running reports the number of in-flight submissions.
func Running() int64 {
	return goCount.Load()
}

// Panics reports how many submissions have panicked since start.
func Panics() uint64 {
	return panicCount.Load()
}

// Shutdown releases the pool, waiting up to timeout for in-flight work.
func Shutdown(timeout time.Duration) error {
	return pool.ReleaseTimeout(timeout)
}
