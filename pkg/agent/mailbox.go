package agent

import (
	"sync/atomic"

	"pulse/pkg/lib/mpsc"
)

// mailbox is the worker's input queue: a lock-free mpsc queue plus a wake
// channel that rouses a worker parked between idle advance ticks.
type mailbox struct {
	queue         *mpsc.Queue[message]
	wake          chan struct{}
	inCnt, outCnt atomic.Uint64
}

func newMailbox() *mailbox {
	return &mailbox{
		queue: mpsc.New[message](),
		wake:  make(chan struct{}, 1),
	}
}

func (mb *mailbox) Post(msg message) {
	if msg == nil {
		return
	}
	mb.queue.Push(msg)
	mb.inCnt.Add(1)
	select {
	case mb.wake <- struct{}{}:
	default:
	}
}

// Pop is only called by the worker goroutine.
func (mb *mailbox) Pop() (message, bool) {
	msg, ok := mb.queue.Pop()
	if ok {
		mb.outCnt.Add(1)
	}
	return msg, ok
}

func (mb *mailbox) Empty() bool {
	return mb.queue.Empty()
}

// Wake signals that at least one message arrived since the last Pop drain.
func (mb *mailbox) Wake() <-chan struct{} {
	return mb.wake
}

func (mb *mailbox) Received() uint64 {
	return mb.inCnt.Load()
}

func (mb *mailbox) Processed() uint64 {
	return mb.outCnt.Load()
}
