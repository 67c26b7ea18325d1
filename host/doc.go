// Package host is the single entry point from background goroutines into
// the script host.
//
// The host runtime is single-threaded and not reentrant. A Bridge owns the
// lock that makes it safe: every callback, and every piece of host-thread
// work started by the embedder through Enter, runs while holding it. Only
// the bridge ever takes this lock before a pool lock, never the reverse, so
// background tasks must not hold a pool lock while calling Call.
//
// Outcomes of a call:
//
//   - nil: the entry point ran to completion.
//   - ErrHostGone: the bridge was detached, never attached, or the runtime
//     reports itself closed. Nothing was called.
//   - ErrHostCorrupted: an earlier call panicked inside the host. Nothing
//     was called. The panicking call reports this as well.
//   - ErrMissingEntry: the script does not define the entry point. Logged,
//     never fatal.
package host
