package pool

import (
	"math"
	"sync"
	"testing"
)

type eventRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *eventRecorder) OnPoolEvent(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func TestPool_Basic(t *testing.T) {
	p := New[string]()

	h := p.Alloc("test")
	if !h.Valid() {
		t.Fatalf("Expected valid handle, got %d", h)
	}

	val, ok := p.Get(h)
	if !ok {
		t.Fatal("Get failed")
	}
	if val != "test" {
		t.Fatalf("Expected 'test', got %v", val)
	}

	if !p.Set(h, "replaced") {
		t.Fatal("Set on live handle failed")
	}
	if val, _ := p.Get(h); val != "replaced" {
		t.Fatalf("Expected 'replaced', got %v", val)
	}

	val, ok = p.Remove(h)
	if !ok || val != "replaced" {
		t.Fatalf("Remove = %q, %v", val, ok)
	}
	if _, ok := p.Get(h); ok {
		t.Fatal("Get after Remove should fail")
	}
	if p.Set(h, "again") {
		t.Fatal("Set on removed handle should fail")
	}
	if p.Len() != 0 {
		t.Fatal("Expected Len() == 0 after Remove")
	}
}

func TestPool_HandlesStrictlyIncreasing(t *testing.T) {
	p := New[int]()

	var prev Handle
	for i := 0; i < 100; i++ {
		h := p.Alloc(i)
		if h <= prev {
			t.Fatalf("handle %d not greater than previous %d", h, prev)
		}
		prev = h
		// Removing must not make the handle available again.
		if i%3 == 0 {
			p.Remove(h)
		}
	}
}

func TestPool_SentinelsNeverResolve(t *testing.T) {
	p := New[int]()
	p.Alloc(1)

	for _, h := range []Handle{Invalid, Error, -12345, 999} {
		if _, ok := p.Get(h); ok {
			t.Errorf("Get(%d) should fail", h)
		}
		if _, ok := p.Remove(h); ok {
			t.Errorf("Remove(%d) should fail", h)
		}
	}
	if p.Len() != 1 {
		t.Fatalf("garbage handles disturbed the pool: Len() = %d", p.Len())
	}
}

func TestPool_Observer(t *testing.T) {
	p := New[string]()
	rec := &eventRecorder{}
	unsubscribe := p.Subscribe(rec)

	h := p.Alloc("test")
	if len(rec.events) != 1 || rec.events[0].Type != EventCreated || rec.events[0].Handle != h {
		t.Fatalf("unexpected events %+v", rec.events)
	}

	p.Remove(h)
	if len(rec.events) != 2 || rec.events[1].Type != EventDropped {
		t.Fatalf("unexpected events %+v", rec.events)
	}

	unsubscribe()
	p.Alloc("test2")
	if len(rec.events) != 2 {
		t.Fatal("Should not receive events after unsubscribe")
	}
}

type dropCounter struct {
	count int
}

func (d *dropCounter) Drop() { d.count++ }

func TestPool_Clear(t *testing.T) {
	p := New[*dropCounter]()
	a, b := &dropCounter{}, &dropCounter{}
	p.Alloc(a)
	p.Alloc(b)

	p.Clear()

	if p.Len() != 0 {
		t.Fatal("Expected Len() == 0 after Clear")
	}
	if a.count != 1 || b.count != 1 {
		t.Fatalf("Drop counts = %d, %d", a.count, b.count)
	}
}

func TestPool_Each(t *testing.T) {
	p := New[int]()
	for i := 0; i < 5; i++ {
		p.Alloc(i)
	}

	sum := 0
	p.Each(func(_ Handle, v int) bool {
		sum += v
		return true
	})
	if sum != 10 {
		t.Fatalf("sum = %d, want 10", sum)
	}

	visited := 0
	p.Each(func(Handle, int) bool {
		visited++
		return false
	})
	if visited != 1 {
		t.Fatalf("Each did not stop early: visited %d", visited)
	}
}

func TestPool_Concurrent(t *testing.T) {
	p := New[int]()

	var wg sync.WaitGroup
	handles := make(chan Handle, 800)
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				handles <- p.Alloc(i)
			}
		}()
	}
	wg.Wait()
	close(handles)

	seen := make(map[Handle]bool)
	for h := range handles {
		if seen[h] {
			t.Fatalf("duplicate handle %d", h)
		}
		seen[h] = true
	}
	if p.Len() != 800 {
		t.Fatalf("Len() = %d, want 800", p.Len())
	}
}

func TestPool_HandlesExhausted(t *testing.T) {
	p := New[int]()
	rec := &eventRecorder{}
	p.Subscribe(rec)
	p.next = math.MaxInt32 - 1

	if h := p.Alloc(1); h != math.MaxInt32 {
		t.Fatalf("last handle = %d", h)
	}
	for i := 0; i < 2; i++ {
		if h := p.Alloc(2); h != Error {
			t.Fatalf("Alloc past the end = %d, want Error", h)
		}
	}
	if p.Len() != 1 {
		t.Fatalf("Len = %d", p.Len())
	}
	if v, ok := p.Get(math.MaxInt32); !ok || v != 1 {
		t.Fatalf("last entry = %d, %v", v, ok)
	}
	if len(rec.events) != 1 {
		t.Fatalf("%d events, want only the successful Alloc", len(rec.events))
	}
}
