// Package websocket implements the long-lived WebSocket client exposed to
// scripts.
//
// Dial connects synchronously, so an unreachable endpoint fails the
// constructing call. After that the client runs two tasks on its execution
// context: a reader that forwards every text frame to the script callback,
// and a writer that drains the outgoing queue in FIFO order.
//
// Frame policy: pings are answered by the transport, a close frame from
// the peer terminates the client, and binary frames are dropped.
package websocket
