package agent

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pulse/pkg/serializer"
)

func intCounter(t *testing.T, options ...Option) *Handle {
	t.Helper()
	h, err := Start(
		Closure(func() int { return 0 }),
		Closure(func(n int) int { return n + 1 }),
		options...,
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Stop(nil, time.Second) })
	return h
}

func identity() Invocation {
	return Closure(func(state interface{}) interface{} { return state })
}

func mapAgent(t *testing.T) *Handle {
	t.Helper()
	h, err := Start(
		Closure(func() map[string]string { return map[string]string{} }),
		Closure(func(m map[string]string) map[string]string { return m }),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Stop(nil, time.Second) })
	return h
}

func TestCounterAdvances(t *testing.T) {
	h := intCounter(t)

	v1, err := h.Get(0, identity())
	require.NoError(t, err)
	require.GreaterOrEqual(t, v1.(int), 0)

	time.Sleep(20 * time.Millisecond)

	v2, err := h.Get(0, identity())
	require.NoError(t, err)
	require.Greater(t, v2.(int), v1.(int))
}

func TestIdentityAdvanceNeverChangesState(t *testing.T) {
	h, err := Start(
		Closure(func() int { return 42 }),
		Closure(func(n int) int { return n }),
	)
	require.NoError(t, err)
	defer h.Stop(nil, time.Second)

	time.Sleep(10 * time.Millisecond)
	for i := 0; i < 5; i++ {
		v, err := h.Get(0, identity())
		require.NoError(t, err)
		require.Equal(t, 42, v)
	}
}

func TestUpdateThenGet(t *testing.T) {
	h := mapAgent(t)

	err := h.Update(0, Closure(func(m map[string]string) map[string]string {
		m["hello"] = "world"
		return m
	}))
	require.NoError(t, err)

	v, err := h.Get(0, Closure(func(m map[string]string) string {
		return m["hello"]
	}))
	require.NoError(t, err)
	require.Equal(t, "world", v)
}

func TestGetUpdateRemoves(t *testing.T) {
	h := mapAgent(t)

	require.NoError(t, h.Update(0, Closure(func(m map[string]string) map[string]string {
		m["hello"] = "world"
		return m
	})))

	v, err := h.GetUpdate(0, Closure(func(m map[string]string) (string, map[string]string) {
		old := m["hello"]
		delete(m, "hello")
		return old, m
	}))
	require.NoError(t, err)
	require.Equal(t, "world", v)

	present, err := h.Get(0, Closure(func(m map[string]string) bool {
		_, ok := m["hello"]
		return ok
	}))
	require.NoError(t, err)
	require.False(t, present.(bool))
}

func TestGetUpdateBadReturnIsFatal(t *testing.T) {
	h, err := Start(
		Closure(func() int { return 1 }),
		Closure(func(n int) int { return n }),
	)
	require.NoError(t, err)

	_, err = h.GetUpdate(0, Closure(func(n int) int { return n * 2 }))
	require.Error(t, err)
	require.ErrorIs(t, err, ErrBadReturnValue)

	select {
	case <-h.Done():
	case <-time.After(time.Second):
		t.Fatal("worker did not terminate")
	}
	require.ErrorIs(t, h.Reason(), ErrBadReturnValue)

	_, err = h.Get(0, identity())
	require.ErrorIs(t, err, ErrTerminated)
	require.NotErrorIs(t, err, ErrCallTimeout)
}

func TestStopMakesWorkerUnreachable(t *testing.T) {
	h := intCounter(t)

	require.NoError(t, h.Stop(nil, time.Second))
	require.ErrorIs(t, h.Reason(), ReasonNormal)

	_, err := h.Get(0, identity())
	require.ErrorIs(t, err, ErrTerminated)
	require.NotErrorIs(t, err, ErrCallTimeout)

	err = h.Stop(nil, time.Second)
	require.ErrorIs(t, err, ErrTerminated)
}

func TestUpdatesApplyInCallOrder(t *testing.T) {
	h, err := Start(
		Closure(func() []int { return nil }),
		Closure(func(s []int) []int { return s }),
	)
	require.NoError(t, err)
	defer h.Stop(nil, time.Second)

	for i := 0; i < 10; i++ {
		i := i
		require.NoError(t, h.Update(0, Closure(func(s []int) []int {
			return append(s, i)
		})))
	}

	v, err := h.Get(0, identity())
	require.NoError(t, err)
	require.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, v)
}

func TestCastIsAsync(t *testing.T) {
	h := mapAgent(t)

	require.NoError(t, h.Cast(Closure(func(m map[string]string) map[string]string {
		m["k"] = "v"
		return m
	})))

	require.Eventually(t, func() bool {
		v, err := h.Get(0, Closure(func(m map[string]string) string { return m["k"] }))
		return err == nil && v == "v"
	}, time.Second, 5*time.Millisecond)
}

func TestOperationFaultIsFatal(t *testing.T) {
	h, err := Start(
		Closure(func() int { return 0 }),
		Closure(func(n int) int { return n }),
	)
	require.NoError(t, err)

	err = h.Update(0, Closure(func(n int) int { panic("boom") }))
	require.Error(t, err)
	var fault *Fault
	require.ErrorAs(t, err, &fault)
	require.Equal(t, "boom", fault.Recovered)

	select {
	case <-h.Done():
	case <-time.After(time.Second):
		t.Fatal("worker did not terminate")
	}
	require.ErrorAs(t, h.Reason(), &fault)
}

func TestCallTimeoutLeavesWorkerRunning(t *testing.T) {
	h, err := Start(
		Closure(func() int { return 7 }),
		Closure(func(n int) int { return n }),
	)
	require.NoError(t, err)
	defer h.Stop(nil, time.Second)

	// Occupy the worker, then watch a short call run out of patience.
	require.NoError(t, h.Cast(Closure(func(n int) int {
		time.Sleep(100 * time.Millisecond)
		return n
	})))

	_, err = h.Get(10*time.Millisecond, identity())
	require.ErrorIs(t, err, ErrCallTimeout)

	v, err := h.Get(time.Second, identity())
	require.NoError(t, err)
	require.Equal(t, 7, v)
}

func TestStartupFailures(t *testing.T) {
	_, err := Start(
		Closure(func() int { panic("init boom") }),
		Closure(func(n int) int { return n }),
	)
	require.Error(t, err)
	var fault *Fault
	require.ErrorAs(t, err, &fault)

	_, err = Start(
		Closure(func() (int, int) { return 1, 2 }),
		Closure(func(n int) int { return n }),
	)
	require.ErrorIs(t, err, ErrBadReturnValue)

	_, err = Start(Invocation{}, Closure(func(n int) int { return n }))
	require.ErrorIs(t, err, ErrNilInvocation)
}

func TestStartTimeout(t *testing.T) {
	_, err := Start(
		Closure(func() int {
			time.Sleep(200 * time.Millisecond)
			return 0
		}),
		Closure(func(n int) int { return n }),
		WithStartTimeout(10*time.Millisecond),
	)
	require.ErrorIs(t, err, ErrStartTimeout)
}

func TestStartTimeoutDoesNotEvictSuccessor(t *testing.T) {
	const name = "timeout-racer"
	_, err := Start(
		Closure(func() int {
			time.Sleep(100 * time.Millisecond)
			return 0
		}),
		Closure(func(n int) int { return n }),
		WithName(name),
		WithStartTimeout(10*time.Millisecond),
	)
	require.ErrorIs(t, err, ErrStartTimeout)

	// The name is free again; reuse it right away.
	h := intCounter(t, WithName(name))

	// Wait out the first worker's late init and its finalize pass. The
	// replacement must keep its registration through it.
	time.Sleep(300 * time.Millisecond)

	got, ok := Whereis(name)
	require.True(t, ok)
	require.Same(t, h, got)

	_, err = h.Get(0, identity())
	require.NoError(t, err)
}

func TestNameRegistration(t *testing.T) {
	h := intCounter(t, WithName("reg-counter"))

	got, err := Resolve("reg-counter")
	require.NoError(t, err)
	require.Same(t, h, got)

	_, err = Start(
		Closure(func() int { return 0 }),
		Closure(func(n int) int { return n }),
		WithName("reg-counter"),
	)
	require.ErrorIs(t, err, ErrNameRegistered)

	// The prior worker is unaffected by the clash.
	_, err = h.Get(0, identity())
	require.NoError(t, err)

	require.NoError(t, h.Stop(nil, time.Second))
	_, ok := Whereis("reg-counter")
	require.False(t, ok)
}

func TestResolveMissAndResolver(t *testing.T) {
	_, err := Resolve("no-such-agent")
	require.ErrorIs(t, err, ErrNotRegistered)

	h := intCounter(t)
	SetResolver(resolverFunc(func(name string) (*Handle, error) {
		if name == "remote-counter" {
			return h, nil
		}
		return nil, errNotRegistered(name)
	}))

	got, err := Resolve("remote-counter")
	require.NoError(t, err)
	require.Same(t, h, got)
}

type resolverFunc func(name string) (*Handle, error)

func (f resolverFunc) Resolve(name string) (*Handle, error) { return f(name) }

func TestDeferredInvocations(t *testing.T) {
	require.NoError(t, RegisterFunc("test.zero", func() int { return 0 }))
	require.NoError(t, RegisterFunc("test.incrBy", func(n, by int) int { return n + by }))
	require.NoError(t, RegisterFunc("test.ident", func(n int) int { return n }))
	defer UnregisterFunc("test.zero")
	defer UnregisterFunc("test.incrBy")
	defer UnregisterFunc("test.ident")

	h, err := Start(Deferred("test.zero"), Deferred("test.incrBy", 1))
	require.NoError(t, err)
	defer h.Stop(nil, time.Second)

	time.Sleep(10 * time.Millisecond)
	v, err := h.Get(0, Deferred("test.ident"))
	require.NoError(t, err)
	require.Greater(t, v.(int), 0)
}

func TestDeferredMissingSymbolIsFatal(t *testing.T) {
	h, err := Start(
		Closure(func() int { return 0 }),
		Closure(func(n int) int { return n }),
	)
	require.NoError(t, err)

	_, err = h.Get(0, Deferred("test.no-such-symbol"))
	require.Error(t, err)

	select {
	case <-h.Done():
	case <-time.After(time.Second):
		t.Fatal("worker did not terminate")
	}
}

func TestSwapAdvanceReplacesLogic(t *testing.T) {
	h := intCounter(t)

	// Freeze the counter: reset state and make the advance a no-op.
	err := h.SwapAdvance(0,
		Closure(func(n int) int { return 0 }),
		Closure(func(n int) int { return n }),
	)
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)
	v, err := h.Get(0, identity())
	require.NoError(t, err)
	require.Equal(t, 0, v)
}

func TestSnapshot(t *testing.T) {
	h := mapAgent(t)
	require.NoError(t, h.Update(0, Closure(func(m map[string]string) map[string]string {
		m["a"] = "1"
		return m
	})))

	data, err := h.Snapshot(0)
	require.NoError(t, err)

	var m map[string]string
	require.NoError(t, serializer.MsgPack.Unmarshal(data, &m))
	require.Equal(t, map[string]string{"a": "1"}, m)
}

func TestInfo(t *testing.T) {
	h := intCounter(t)

	_, err := h.Get(0, identity())
	require.NoError(t, err)

	info := h.Info()
	assert.True(t, info.Running)
	assert.NotEmpty(t, info.StartCall)
	assert.GreaterOrEqual(t, info.Received, uint64(1))
	assert.False(t, info.StartedAt.IsZero())

	require.Eventually(t, func() bool {
		return h.Info().Advanced > 0
	}, time.Second, time.Millisecond)

	require.NoError(t, h.Stop(nil, time.Second))
	assert.False(t, h.Info().Running)
}

func TestGetUpdateIsAtomic(t *testing.T) {
	h, err := Start(
		Closure(func() int { return 0 }),
		Closure(func(n int) int { return n }),
	)
	require.NoError(t, err)
	defer h.Stop(nil, time.Second)

	const goroutines = 4
	const perGoroutine = 100

	var mu sync.Mutex
	seen := make(map[int]bool)

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				v, err := h.GetUpdate(time.Second, Closure(func(n int) (int, int) {
					return n, n + 1
				}))
				if err != nil {
					t.Error(err)
					return
				}
				mu.Lock()
				seen[v.(int)] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	// Every observed old value is unique, so no two calls interleaved.
	require.Len(t, seen, goroutines*perGoroutine)

	final, err := h.Get(0, identity())
	require.NoError(t, err)
	require.Equal(t, goroutines*perGoroutine, final)
}

func TestAdvanceIntervalPacesIdleSteps(t *testing.T) {
	h := intCounter(t, WithAdvanceInterval(20*time.Millisecond))

	time.Sleep(110 * time.Millisecond)
	v, err := h.Get(0, identity())
	require.NoError(t, err)

	// Roughly one step per interval, nowhere near a free-running counter.
	assert.Greater(t, v.(int), 0)
	assert.Less(t, v.(int), 20)
}

func TestSpecRestart(t *testing.T) {
	spec := Spec{
		ID: "restartable",
		Start: func() (*Handle, error) {
			return Start(
				Closure(func() int { return 0 }),
				Closure(func(n int) int { return n + 1 }),
			)
		},
	}

	h, err := spec.StartChild()
	require.NoError(t, err)

	// Crash it, then restart from the descriptor.
	_ = h.Update(0, Closure(func(n int) int { panic(fmt.Sprintf("crash %d", n)) }))
	<-h.Done()

	h2, err := spec.StartChild()
	require.NoError(t, err)
	defer h2.Stop(nil, time.Second)

	_, err = h2.Get(0, identity())
	require.NoError(t, err)
}

func TestWithGoDispatcher(t *testing.T) {
	h := intCounter(t, WithDispatcher(NewGoDispatcher()))

	require.NoError(t, h.Update(0, Closure(func(n int) int { return n + 100 })))
	v, err := h.Get(0, identity())
	require.NoError(t, err)
	require.GreaterOrEqual(t, v.(int), 100)

	require.NoError(t, h.Stop(nil, time.Second))
}

func TestSynchronizedDispatcherRunsInline(t *testing.T) {
	steps := 0
	h, err := Start(
		Closure(func() int { return 0 }),
		Closure(func(n int) int {
			steps++
			if steps >= 3 {
				panic("enough")
			}
			return n + 1
		}),
		WithDispatcher(NewSynchronizedDispatcher()),
	)
	require.NoError(t, err)

	// Schedule hosted the whole worker inline, so by the time Start
	// returns the worker has already run to termination.
	select {
	case <-h.Done():
	default:
		t.Fatal("worker still running after synchronized start")
	}
	require.Equal(t, 3, steps)

	var fault *Fault
	require.ErrorAs(t, h.Reason(), &fault)

	_, err = h.Get(0, identity())
	require.ErrorIs(t, err, ErrTerminated)
}
