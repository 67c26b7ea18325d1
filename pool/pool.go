package pool

// Pool maps handles to long-lived values. Entries are never destroyed
// implicitly; the owner removes them with Remove or Clear.
type Pool[T any] struct {
	table[T]
}

// New creates an empty pool.
func New[T any]() *Pool[T] {
	p := &Pool[T]{}
	p.init()
	return p
}

// Alloc stores v and returns its handle.
func (p *Pool[T]) Alloc(v T) Handle {
	p.mu.Lock()
	h := p.insert(v)
	p.mu.Unlock()

	if h.Valid() {
		p.notify(Event{Type: EventCreated, Handle: h})
	}
	return h
}

// Get retrieves the value stored under h.
func (p *Pool[T]) Get(h Handle) (T, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lookup(h)
}

// Set replaces the value stored under an existing handle.
func (p *Pool[T]) Set(h Handle, v T) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.lookup(h); !ok {
		return false
	}
	p.entries[h] = v
	return true
}

// Remove deletes the entry and returns its value.
func (p *Pool[T]) Remove(h Handle) (T, bool) {
	p.mu.Lock()
	v, ok := p.lookup(h)
	if ok {
		delete(p.entries, h)
	}
	p.mu.Unlock()

	if ok {
		p.notify(Event{Type: EventDropped, Handle: h})
	}
	return v, ok
}

// Each calls fn for every live entry until fn returns false. The pool is
// locked for the duration, so fn must not call back into it.
func (p *Pool[T]) Each(fn func(Handle, T) bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for h, v := range p.entries {
		if !fn(h, v) {
			return
		}
	}
}

// Clear removes every entry, calling Drop on values that implement Dropper.
func (p *Pool[T]) Clear() {
	p.mu.Lock()
	dropped := p.entries
	p.entries = make(map[Handle]T)
	p.mu.Unlock()

	// Drop outside the lock; a Dropper may block on network teardown.
	for h, v := range dropped {
		if d, ok := any(v).(Dropper); ok {
			d.Drop()
		}
		p.notify(Event{Type: EventDropped, Handle: h})
	}
}
