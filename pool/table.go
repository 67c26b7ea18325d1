package pool

import (
	"math"
	"sync"
)

// table is the monotonic handle counter and entry map shared by Pool and
// GCPool. Callers hold mu around every access to entries and next.
type table[E any] struct {
	entries map[Handle]E
	mu      sync.Mutex
	next    Handle

	observers
}

func (t *table[E]) init() {
	t.entries = make(map[Handle]E)
}

// insert stores e under the next handle. Once the int32 range is used up
// it stores nothing and returns Error, since handles are never reused.
// Caller holds mu.
func (t *table[E]) insert(e E) Handle {
	if t.next == math.MaxInt32 {
		return Error
	}
	t.next++
	t.entries[t.next] = e
	return t.next
}

// lookup returns the entry for h. Caller holds mu.
func (t *table[E]) lookup(h Handle) (E, bool) {
	if !h.Valid() {
		var zero E
		return zero, false
	}
	e, ok := t.entries[h]
	return e, ok
}

// Len returns the number of live entries.
func (t *table[E]) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

type observers struct {
	subs  map[int]Observer
	obsMu sync.RWMutex
	seq   int
}

// Subscribe adds an observer for lifecycle events and returns a function
// that removes it.
func (o *observers) Subscribe(obs Observer) (unsubscribe func()) {
	o.obsMu.Lock()
	defer o.obsMu.Unlock()
	if o.subs == nil {
		o.subs = make(map[int]Observer)
	}
	o.seq++
	id := o.seq
	o.subs[id] = obs
	return func() {
		o.obsMu.Lock()
		defer o.obsMu.Unlock()
		delete(o.subs, id)
	}
}

func (o *observers) notify(e Event) {
	o.obsMu.RLock()
	defer o.obsMu.RUnlock()
	for _, obs := range o.subs {
		obs.OnPoolEvent(e)
	}
}
