package agent

import "fmt"

// Spec pairs a stable identifier with a way to (re)start a worker. It is
// the descriptor an external supervisor keeps so it can restart an agent
// after an abnormal termination; this package ships no supervisor.
type Spec struct {
	// ID identifies the child across restarts.
	ID string
	// Start creates a fresh worker and returns its handle.
	Start func() (*Handle, error)
}

// StartChild runs the descriptor's start function.
func (s Spec) StartChild() (*Handle, error) {
	if s.Start == nil {
		return nil, fmt.Errorf("agent: spec %q has no start function", s.ID)
	}
	return s.Start()
}
