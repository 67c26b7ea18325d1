//go:build race

package websocket

import "testing"

// skipRace skips tests that push through the outgoing SPSC ring from one
// goroutine and drain it from another. The race detector cannot see the
// ring's cross-variable memory ordering and reports false positives.
func skipRace(tb testing.TB) {
	tb.Helper()
	tb.Skip("skip: SPSC uses cross-variable memory ordering")
}
