package pool

type gcEntry[T any] struct {
	value  T
	retain bool
}

// GCPool is a handle table whose entries carry a retain flag.
//
// With retain set (the default after Alloc) an entry is consumed by the
// first Take. With retain cleared it survives Takes and is only destroyed by
// Consume, Collect after re-enabling retain, or CollectForce.
type GCPool[T any] struct {
	table[gcEntry[T]]
	clone func(T) T
}

// NewGC creates an empty pool. clone produces the copies handed out by Get
// and Take; nil means values are returned as stored.
func NewGC[T any](clone func(T) T) *GCPool[T] {
	if clone == nil {
		clone = func(v T) T { return v }
	}
	p := &GCPool[T]{clone: clone}
	p.init()
	return p
}

// Alloc stores v with retain set and returns its handle, or Error once the
// pool has run out of handles.
func (p *GCPool[T]) Alloc(v T) Handle {
	p.mu.Lock()
	h := p.insert(gcEntry[T]{value: v, retain: true})
	p.mu.Unlock()

	if h.Valid() {
		p.notify(Event{Type: EventCreated, Handle: h})
	}
	return h
}

// Get returns a copy of the value without consuming the entry.
func (p *GCPool[T]) Get(h Handle) (T, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.lookup(h)
	if !ok {
		var zero T
		return zero, false
	}
	return p.clone(e.value), true
}

// Update calls fn with a pointer to the stored value while the pool is
// locked. fn must not call back into the pool. Returns false if h is
// unknown, otherwise fn's result.
func (p *GCPool[T]) Update(h Handle, fn func(v *T) bool) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.lookup(h)
	if !ok {
		return false
	}
	res := fn(&e.value)
	p.entries[h] = e
	return res
}

// Take returns a copy of the value and removes the entry if retain is set.
func (p *GCPool[T]) Take(h Handle) (T, bool) {
	p.mu.Lock()
	e, ok := p.lookup(h)
	if !ok {
		p.mu.Unlock()
		var zero T
		return zero, false
	}
	v := p.clone(e.value)
	if e.retain {
		delete(p.entries, h)
	}
	p.mu.Unlock()

	if e.retain {
		p.notify(Event{Type: EventDropped, Handle: h})
	}
	return v, true
}

// Consume removes the entry regardless of retain and returns its value.
// The stored value is handed over without cloning since nothing else can
// reach it any more.
func (p *GCPool[T]) Consume(h Handle) (T, bool) {
	p.mu.Lock()
	e, ok := p.lookup(h)
	if ok {
		delete(p.entries, h)
	}
	p.mu.Unlock()

	if !ok {
		var zero T
		return zero, false
	}
	p.notify(Event{Type: EventDropped, Handle: h})
	return e.value, true
}

// SetGC sets the retain flag of an entry.
func (p *GCPool[T]) SetGC(h Handle, retain bool) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.lookup(h)
	if !ok {
		return false
	}
	e.retain = retain
	p.entries[h] = e
	return true
}

// Retained reports the retain flag of an entry.
func (p *GCPool[T]) Retained(h Handle) (retain, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.lookup(h)
	return e.retain, ok
}

// Collect removes the entry only if retain is set.
func (p *GCPool[T]) Collect(h Handle) bool {
	p.mu.Lock()
	e, ok := p.lookup(h)
	removed := ok && e.retain
	if removed {
		delete(p.entries, h)
	}
	p.mu.Unlock()

	if removed {
		p.notify(Event{Type: EventDropped, Handle: h})
	}
	return removed
}

// CollectForce removes the entry unconditionally.
func (p *GCPool[T]) CollectForce(h Handle) bool {
	_, ok := p.Consume(h)
	return ok
}

// Clear removes every entry.
func (p *GCPool[T]) Clear() {
	p.mu.Lock()
	dropped := p.entries
	p.entries = make(map[Handle]gcEntry[T])
	p.mu.Unlock()

	for h := range dropped {
		p.notify(Event{Type: EventDropped, Handle: h})
	}
}
