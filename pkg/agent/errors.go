package agent

import (
	"errors"
	"fmt"

	"pulse/pkg/lib/xerror"
)

var (
	// ErrCallTimeout is returned when a blocking call exceeds its deadline.
	// The worker may still process the message; treat a timeout as an
	// unknown outcome, not as an aborted operation.
	ErrCallTimeout = errors.New("agent: call timeout")

	// ErrTerminated is returned for any call against a worker that has
	// already stopped. Distinct from ErrCallTimeout.
	ErrTerminated = errors.New("agent: terminated")

	// ErrBadReturnValue reports an operation or advance function returning
	// an unexpected number of values. Fatal to the worker.
	ErrBadReturnValue = errors.New("agent: bad return value")

	// ErrStartTimeout reports an init function exceeding the startup timeout.
	ErrStartTimeout = errors.New("agent: start timeout")

	// ErrNameRegistered reports a start under a name already in use.
	ErrNameRegistered = errors.New("agent: name already registered")

	// ErrNotRegistered reports a name resolution miss.
	ErrNotRegistered = errors.New("agent: name not registered")

	// ErrNilInvocation reports a zero Invocation where one is required.
	ErrNilInvocation = errors.New("agent: invocation is nil")
)

// ReasonNormal is the stop reason of an orderly shutdown.
var ReasonNormal = errors.New("normal")

// Fault records a panic raised by caller-supplied logic running inside the
// worker. It becomes the worker's stop reason.
type Fault struct {
	Recovered interface{}
	Stack     []byte
}

func (f *Fault) Error() string {
	return fmt.Sprintf("agent: operation fault: %v", f.Recovered)
}

func errBadReturn(op string, got int) error {
	return xerror.Wrapf(ErrBadReturnValue, "%s returned %d values", op, got)
}

func errTerminated(reason error) error {
	if reason == nil || errors.Is(reason, ReasonNormal) {
		return ErrTerminated
	}
	return xerror.Wrapf(ErrTerminated, "reason: %v", reason)
}

func errNameRegistered(name string) error {
	return xerror.Wrapf(ErrNameRegistered, "name %q", name)
}

func errNotRegistered(name string) error {
	return xerror.Wrapf(ErrNotRegistered, "name %q", name)
}

func errSymbolNotFound(symbol string) error {
	return fmt.Errorf("agent: symbol %q is not registered", symbol)
}

func errNotAFunction(symbol string) error {
	return fmt.Errorf("agent: %q is not a function", symbol)
}

func errArgumentCount(want, got int) error {
	return fmt.Errorf("agent: invocation wants %d arguments, got %d", want, got)
}
