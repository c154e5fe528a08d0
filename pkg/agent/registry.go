package agent

import (
	"sync/atomic"

	"github.com/duke-git/lancet/v2/maputil"
)

// Resolver is the hook for an external naming collaborator. Resolve is
// consulted only after the process-local registry misses.
type Resolver interface {
	Resolve(name string) (*Handle, error)
}

var (
	nameDict      = maputil.NewConcurrentMap[string, *Handle](10)
	resolverValue atomic.Value // Resolver
)

// SetResolver installs the external naming collaborator.
func SetResolver(r Resolver) {
	if r != nil {
		resolverValue.Store(r)
	}
}

// Resolve finds a handle by name: local registry first, then the external
// resolver if one is installed.
func Resolve(name string) (*Handle, error) {
	if name == "" {
		return nil, errNotRegistered(name)
	}
	if h, ok := nameDict.Get(name); ok {
		return h, nil
	}
	if v := resolverValue.Load(); v != nil {
		return v.(Resolver).Resolve(name)
	}
	return nil, errNotRegistered(name)
}

// Whereis reports the local registration for name, if any.
func Whereis(name string) (*Handle, bool) {
	return nameDict.Get(name)
}

// register reserves a name. One name, one worker; renames are not allowed,
// the prior owner is unaffected by a clash.
func register(name string, h *Handle) error {
	if _, ok := nameDict.Get(name); ok {
		return errNameRegistered(name)
	}
	nameDict.Set(name, h)
	return nil
}

// unregister releases a name, but only while w still owns it. A worker
// whose startup already timed out may finalize after the name has been
// reused; it must not delete the new owner's registration.
func unregister(name string, w *worker) {
	if name == "" {
		return
	}
	if h, ok := nameDict.Get(name); ok && h.w == w {
		nameDict.Delete(name)
	}
}
