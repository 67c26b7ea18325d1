// Package wasmhost runs core WebAssembly modules against a session using
// wazero.
//
// Natives are imported from the "requests" module. The calling convention
// is flat i32 values:
//
//   - strings in are (ptr, len) pairs of UTF-8 bytes
//   - out-parameters are pointers; i32 results are written little-endian,
//     floats as f64
//   - strings out are (buf, size) pairs and are written NUL terminated,
//     truncated to fit
//   - variadic natives take (ptr, count) of a packed array: i32 handles for
//     JsonArray, (ptr, len) pairs for RequestHeaders and (keyPtr, keyLen,
//     node) triples for JsonObject
//
// Callbacks are plain exports. A string argument is copied into memory
// returned by the guest's alloc(size) export and passed as (ptr, len); the
// guest owns that memory afterwards.
package wasmhost
