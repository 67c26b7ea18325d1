// Package executor provides background execution contexts for network
// clients.
//
// Every client owns one Context. Tasks spawned on it run on their own
// goroutines, never on the host thread, and there is no bound on how many
// may be in flight. Closing a Context cancels the context.Context handed to
// its tasks, which aborts in-flight I/O; it does not wait for them.
//
// Contexts come from a Factory so that construction can fail: Limited
// models a platform that runs out of execution resources.
package executor
