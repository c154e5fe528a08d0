// Package agent implements a self-advancing agent: a single-goroutine
// worker that owns one state value, serves synchronous read and update
// calls from any number of callers, and applies a caller-supplied advance
// function on its own whenever its mailbox is empty.
//
// Every operation is expressed as an Invocation, including the advance
// step. An Invocation is either a closure over the state or a deferred
// reference to a registered symbol with fixed arguments; the current state
// is prepended at call time. All invocations run on the worker goroutine,
// so state access is serialized by construction.
//
//	h, err := agent.Start(
//		agent.Closure(func() int { return 0 }),
//		agent.Closure(func(n int) int { return n + 1 }),
//	)
//	v, err := h.Get(0, agent.Closure(func(n int) int { return n }))
//	err = h.Stop(nil, time.Second)
//
// A panic in any operation or advance function is fatal to the worker:
// the fault is recorded as the stop reason and the in-flight caller gets
// it as an error. Callers that need resilience restart the agent through
// an external supervisor using a Spec descriptor.
package agent
