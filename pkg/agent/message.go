package agent

// result is the worker's reply to one blocking call.
type result struct {
	value interface{}
	err   error
}

type message interface{}

type getMessage struct {
	fn     Invocation
	waiter *chanWaiter[result]
}

type getUpdateMessage struct {
	fn     Invocation
	waiter *chanWaiter[result]
}

type updateMessage struct {
	fn     Invocation
	waiter *chanWaiter[result]
}

type castMessage struct {
	fn Invocation
}

type swapMessage struct {
	fn     Invocation
	next   *Invocation // non-nil replaces the advance function
	waiter *chanWaiter[result]
}

type stopMessage struct {
	reason error
}
