// Package session ties the runtime together for one loaded script.
//
// A Session owns the host bridge, the JSON node and header set pools, and
// every request and WebSocket client the script creates. Its exported
// methods are the natives a host adapter installs into the script; each
// one reports failures as an integer result code instead of an error:
//
//	h := s.JsonObject(host.String("name"), host.Handle(s.JsonString("bob")))
//	client := s.RequestsClient("https://api.example.com", pool.Invalid)
//	s.RequestJSON(client, "/users", request.MethodPost, "OnCreated", h, pool.Invalid)
//
// Natives must be called from the host thread. Background tasks reach the
// script only through the bridge.
package session
