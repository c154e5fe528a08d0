package agent

import (
	"fmt"
	"reflect"

	"github.com/duke-git/lancet/v2/maputil"
	"golang.org/x/exp/slices"
)

// Invocation is the one call shape the runtime knows how to run: either a
// closure, or a deferred reference to a registered symbol plus a fixed
// argument list. When a deferred invocation runs against a worker, the
// current state is prepended to its arguments.
type Invocation struct {
	fn     interface{}
	symbol string
	args   []interface{}
}

// Closure wraps a function value. Operation closures take the current
// state as their only parameter; init closures take no parameters.
func Closure(fn interface{}) Invocation {
	return Invocation{fn: fn}
}

// Deferred references a symbol registered via RegisterFunc. args are fixed
// at construction time; the current state is prepended at invocation time.
func Deferred(symbol string, args ...interface{}) Invocation {
	return Invocation{symbol: symbol, args: args}
}

func (inv Invocation) IsZero() bool {
	return inv.fn == nil && inv.symbol == ""
}

// String describes the invocation for introspection output.
func (inv Invocation) String() string {
	if inv.symbol != "" {
		return fmt.Sprintf("deferred(%s/%d)", inv.symbol, len(inv.args))
	}
	if inv.fn != nil {
		return fmt.Sprintf("closure(%s)", reflect.TypeOf(inv.fn))
	}
	return "invocation(nil)"
}

var funcDict = maputil.NewConcurrentMap[string, interface{}](10)

// RegisterFunc publishes fn under symbol for deferred invocations.
// Registering an already-taken symbol is an error; re-registration after
// UnregisterFunc is how callers install upgraded logic.
func RegisterFunc(symbol string, fn interface{}) error {
	if symbol == "" {
		return fmt.Errorf("agent: symbol cannot be empty")
	}
	if fn == nil || reflect.TypeOf(fn).Kind() != reflect.Func {
		return errNotAFunction(symbol)
	}
	if _, ok := funcDict.Get(symbol); ok {
		return fmt.Errorf("agent: symbol %q is already registered", symbol)
	}
	funcDict.Set(symbol, fn)
	return nil
}

func UnregisterFunc(symbol string) {
	funcDict.Delete(symbol)
}

// Funcs lists the registered symbols in sorted order.
func Funcs() []string {
	var names []string
	funcDict.Range(func(key string, _ interface{}) bool {
		names = append(names, key)
		return true
	})
	slices.Sort(names)
	return names
}

// invoke runs the invocation with state prepended to the fixed arguments.
func (inv Invocation) invoke(state interface{}) ([]interface{}, error) {
	args := make([]interface{}, 0, len(inv.args)+1)
	args = append(args, state)
	args = append(args, inv.args...)
	return inv.call(args)
}

// invokeInit runs the invocation with only the fixed arguments. Init
// functions produce the first state, they do not receive one.
func (inv Invocation) invokeInit() ([]interface{}, error) {
	return inv.call(inv.args)
}

func (inv Invocation) target() (reflect.Value, error) {
	fn := inv.fn
	if fn == nil {
		v, ok := funcDict.Get(inv.symbol)
		if !ok {
			return reflect.Value{}, errSymbolNotFound(inv.symbol)
		}
		fn = v
	}
	fv := reflect.ValueOf(fn)
	if fv.Kind() != reflect.Func {
		return reflect.Value{}, errNotAFunction(inv.String())
	}
	return fv, nil
}

func (inv Invocation) call(args []interface{}) ([]interface{}, error) {
	fv, err := inv.target()
	if err != nil {
		return nil, err
	}
	ft := fv.Type()
	numIn := ft.NumIn()
	if ft.IsVariadic() {
		if len(args) < numIn-1 {
			return nil, errArgumentCount(numIn-1, len(args))
		}
	} else if len(args) != numIn {
		return nil, errArgumentCount(numIn, len(args))
	}

	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		var pt reflect.Type
		if ft.IsVariadic() && i >= numIn-1 {
			pt = ft.In(numIn - 1).Elem()
		} else {
			pt = ft.In(i)
		}
		in[i] = argValue(arg, pt)
	}

	// A type mismatch panics here; the worker treats it as a Fault.
	outs := fv.Call(in)

	results := make([]interface{}, len(outs))
	for i, out := range outs {
		results[i] = out.Interface()
	}
	return results, nil
}

func argValue(arg interface{}, pt reflect.Type) reflect.Value {
	if arg == nil {
		return reflect.Zero(pt)
	}
	return reflect.ValueOf(arg)
}
