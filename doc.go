// Package requests gives a single-threaded script host HTTP requests,
// WebSocket clients and a JSON node API, with the network work running in
// the background and the results delivered back as script callbacks.
//
// # Layout
//
//	requests/
//	├── errors/      Structured error types with phase and kind
//	├── pool/        Handle pool and garbage-collected node pool
//	├── jsonvalue/   Owned JSON value tree
//	├── executor/    Background task contexts
//	├── host/        Host callback bridge and argument types
//	│   ├── jshost/    JavaScript host on goja
//	│   └── wasmhost/  Core WebAssembly host on wazero
//	├── request/     RequestClient: HTTP requests against a base endpoint
//	├── websocket/   WebsocketClient: one connection with send queue
//	├── session/     The script-facing natives over all of the above
//	└── cmd/run/     Command line runner and interactive console
//
// # Flow
//
// A script holds integer handles. Natives on a session.Session create
// clients and JSON nodes in pools and start requests or connections on an
// executor. When a response or message arrives, the background goroutine
// calls the named script function through host.Bridge, which serialises
// every call with the host's own work:
//
//	sess := session.New(session.WithLogger(log))
//	defer sess.Close()
//
//	h := jshost.New(sess)
//	defer h.Close()
//
//	if err := h.Run("main.js", src); err != nil {
//	    log.Fatal("script failed", zap.Error(err))
//	}
//
// Nodes passed to a callback are collected once it returns unless the
// script marks them with JsonToggleGC.
package requests
