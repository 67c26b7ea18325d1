package host

import (
	stderrors "errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/Southclaws/pawn-requests/errors"
	"github.com/Southclaws/pawn-requests/pool"
)

type call struct {
	name string
	args []Arg
}

type fakeRuntime struct {
	mu      sync.Mutex
	calls   []call
	entries map[string]func(args []Arg)
	closed  atomic.Bool
	inside  atomic.Int32
	overlap atomic.Bool
}

func newFakeRuntime() *fakeRuntime {
	return &fakeRuntime{entries: make(map[string]func([]Arg))}
}

func (r *fakeRuntime) Invoke(name string, args []Arg) error {
	if r.inside.Add(1) > 1 {
		r.overlap.Store(true)
	}
	defer r.inside.Add(-1)

	fn, ok := r.entries[name]
	if !ok {
		return MissingEntry(name)
	}
	r.mu.Lock()
	r.calls = append(r.calls, call{name, args})
	r.mu.Unlock()
	if fn != nil {
		fn(args)
	}
	return nil
}

func (r *fakeRuntime) Closed() bool { return r.closed.Load() }

func TestBridge_Call(t *testing.T) {
	rt := newFakeRuntime()
	rt.entries["OnResponse"] = nil

	b := NewBridge(nil)
	b.Attach(rt)

	err := b.Call("OnResponse", Int(0), Int(200), String("hello"), Handle(pool.Handle(7)), Bool(true))
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if len(rt.calls) != 1 {
		t.Fatalf("calls = %+v", rt.calls)
	}
	got := rt.calls[0].args
	if got[2].S != "hello" || got[3].Int32() != 7 || got[4].Int32() != 1 {
		t.Fatalf("args = %v", got)
	}
}

func TestBridge_NeverAttached(t *testing.T) {
	b := NewBridge(nil)
	if err := b.Call("OnResponse"); !stderrors.Is(err, errors.ErrHostGone) {
		t.Fatalf("err = %v, want host gone", err)
	}
}

func TestBridge_Detached(t *testing.T) {
	rt := newFakeRuntime()
	rt.entries["cb"] = nil
	b := NewBridge(nil)
	b.Attach(rt)
	b.Detach()

	if err := b.Call("cb"); !stderrors.Is(err, errors.ErrHostGone) {
		t.Fatalf("err = %v, want host gone", err)
	}
	if len(rt.calls) != 0 {
		t.Fatal("entry point invoked after Detach")
	}

	b.Attach(rt)
	if err := b.Call("cb"); err != nil {
		t.Fatalf("Call after re-Attach: %v", err)
	}
}

func TestBridge_RuntimeClosed(t *testing.T) {
	rt := newFakeRuntime()
	rt.entries["cb"] = nil
	b := NewBridge(nil)
	b.Attach(rt)
	rt.closed.Store(true)

	if err := b.Call("cb"); !stderrors.Is(err, errors.ErrHostGone) {
		t.Fatalf("err = %v, want host gone", err)
	}
}

func TestBridge_DetachInsideCallback(t *testing.T) {
	rt := newFakeRuntime()
	b := NewBridge(nil)
	rt.entries["unload"] = func([]Arg) { b.Detach() }
	rt.entries["cb"] = nil
	b.Attach(rt)

	if err := b.Call("unload"); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if err := b.Call("cb"); !stderrors.Is(err, errors.ErrHostGone) {
		t.Fatalf("err = %v, want host gone", err)
	}
}

func TestBridge_MissingEntry(t *testing.T) {
	rt := newFakeRuntime()
	rt.entries["present"] = nil
	b := NewBridge(nil)
	b.Attach(rt)

	if err := b.Call("absent"); !stderrors.Is(err, errors.ErrMissingEntry) {
		t.Fatalf("err = %v, want missing entry", err)
	}
	// not fatal: the bridge keeps working
	if err := b.Call("present"); err != nil {
		t.Fatalf("Call after missing entry: %v", err)
	}
}

func TestBridge_PanicPoisons(t *testing.T) {
	rt := newFakeRuntime()
	rt.entries["boom"] = func([]Arg) { panic("script crashed") }
	rt.entries["cb"] = nil
	b := NewBridge(nil)
	b.Attach(rt)

	if err := b.Call("boom"); !stderrors.Is(err, errors.ErrHostCorrupted) {
		t.Fatalf("panicking call err = %v, want corrupted", err)
	}
	if !b.Poisoned() {
		t.Fatal("bridge not poisoned")
	}
	if err := b.Call("cb"); !stderrors.Is(err, errors.ErrHostCorrupted) {
		t.Fatalf("later call err = %v, want corrupted", err)
	}
	if len(rt.calls) != 1 {
		t.Fatalf("entry points invoked after poison: %+v", rt.calls)
	}
}

func TestBridge_Serializes(t *testing.T) {
	rt := newFakeRuntime()
	rt.entries["cb"] = nil
	b := NewBridge(nil)
	b.Attach(rt)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = b.Call("cb", Int(int32(i)))
		}(i)
	}
	// host-thread work competes for the same lock
	for i := 0; i < 8; i++ {
		_ = b.Enter(func(r Runtime) error {
			return r.Invoke("cb", nil)
		})
	}
	wg.Wait()

	if rt.overlap.Load() {
		t.Fatal("two goroutines were inside the runtime at once")
	}
	if len(rt.calls) != 40 {
		t.Fatalf("calls = %d, want 40", len(rt.calls))
	}
}
