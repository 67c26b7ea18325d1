// Package pool provides handle tables for values owned on behalf of a
// script host.
//
// Handles are opaque int32 identifiers handed across the host boundary.
// They are assigned by a strictly increasing counter and never reused, so a
// stale handle from the script can only miss, never alias a newer entry.
// Handle 0 and -1 are reserved sentinels and are never allocated.
//
// # Pool
//
// Pool maps handles to long-lived values (network clients). Entries live
// until the owner removes them:
//
//	clients := pool.New[*request.Client]()
//	h := clients.Alloc(c)
//	c, ok := clients.Get(h)
//	clients.Remove(h)
//
// # GCPool
//
// GCPool adds a per-entry retain flag and consuming reads. A freshly
// allocated entry is consumed by the first Take; after SetGC(h, false) it
// survives any number of Takes until collected explicitly:
//
//	nodes := pool.NewGC(func(v *jsonvalue.Value) *jsonvalue.Value { return v.Clone() })
//	h := nodes.Alloc(jsonvalue.Int(42))
//	v, ok := nodes.Take(h) // ok, entry removed
//	_, ok = nodes.Take(h)  // !ok
//
// Values never leave a GCPool by reference: Get and Take return clones, and
// in-place mutation goes through Update while the table lock is held.
//
// # Observers
//
// Register observers to track entry lifecycle events:
//
//	nodes.Subscribe(pool.ObserverFunc(func(e pool.Event) {
//	    log.Printf("%v %d", e.Type, e.Handle)
//	}))
//
// Observers run after the table lock is released and must not block.
package pool
