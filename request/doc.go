// Package request implements the asynchronous HTTP client exposed to
// scripts.
//
// A Client is bound to one base endpoint and a base header set. Do returns
// a request id straight away and performs the call on the client's
// execution context. The outcome reaches the script through a Caller:
//
//	callback(id, status, body)          text mode
//	callback(id, status, node)          JSON mode
//	OnRequestFailure(id, -1, message)   transport failure
//
// Ids start at 0 and increase by one per request on each client.
// Completions may arrive in any order.
package request
