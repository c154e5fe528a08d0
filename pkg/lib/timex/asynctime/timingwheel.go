// Package asynctime exposes a process-wide timing wheel. Timers created
// here cost no goroutine while pending, which matters when every blocking
// call carries a deadline.
package asynctime

import (
	"time"

	"github.com/RussellLuo/timingwheel"
)

var tw = timingwheel.NewTimingWheel(1*time.Millisecond, 3600)

func init() {
	tw.Start()
}

func AfterFunc(d time.Duration, f func()) *timingwheel.Timer {
	return tw.AfterFunc(d, f)
}

// After returns a channel that delivers the current time once d elapses.
func After(d time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	tw.AfterFunc(d, func() {
		ch <- time.Now()
	})
	return ch
}
