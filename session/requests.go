package session

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/Southclaws/pawn-requests/jsonvalue"
	"github.com/Southclaws/pawn-requests/pool"
	"github.com/Southclaws/pawn-requests/request"
)

// RequestsClient creates a client for endpoint. headers is taken; an
// invalid handle means no base headers.
func (s *Session) RequestsClient(endpoint string, headers pool.Handle) pool.Handle {
	base := s.takeHeaders(headers)

	opts := []request.Option{
		request.WithLogger(s.log.Named("request")),
		request.WithFailureCallback(s.failureCallback),
	}
	if s.httpClient != nil {
		opts = append(opts, request.WithHTTPClient(s.httpClient))
	}
	c, err := request.New(s.factory, endpoint, base, s.bridge, s.nodes, opts...)
	if err != nil {
		s.log.Error("failed to create requests client", zap.String("endpoint", endpoint), zap.Error(err))
		return pool.Error
	}
	h := s.clients.Alloc(c)
	if !h.Valid() {
		c.Close()
		s.log.Error("client pool exhausted", zap.String("endpoint", endpoint))
	}
	return h
}

// RequestsClientDestroy closes a client. Requests in flight are abandoned.
func (s *Session) RequestsClientDestroy(id pool.Handle) int32 {
	c, ok := s.clients.Remove(id)
	if !ok {
		return UnknownNode
	}
	c.Close()
	return OK
}

// RequestHeaders builds a header set from alternating names and values.
func (s *Session) RequestHeaders(pairs ...string) pool.Handle {
	if len(pairs)%2 != 0 {
		s.log.Warn("RequestHeaders called with a name and no value", zap.Int("args", len(pairs)))
		return pool.Error
	}
	h := make(http.Header, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		h.Add(pairs[i], pairs[i+1])
	}
	return s.headers.Alloc(h)
}

func (s *Session) takeHeaders(h pool.Handle) http.Header {
	if !h.Valid() {
		return nil
	}
	hdr, ok := s.headers.Take(h)
	if !ok {
		s.log.Debug("unknown header set ignored", zap.Int32("headers", int32(h)))
		return nil
	}
	return hdr
}

// Request issues a request whose response body is delivered as text.
// Returns the request id or Failed.
func (s *Session) Request(client pool.Handle, path string, method request.Method, callback, body string, headers pool.Handle) int32 {
	hdr := s.takeHeaders(headers)
	return s.dispatch(client, request.Request{
		Callback: callback,
		Path:     path,
		Method:   method,
		Headers:  hdr,
		Body:     body,
	}, false)
}

// RequestJSON issues a request with node serialised as the body and the
// response delivered as a JSON node. node and headers are taken.
func (s *Session) RequestJSON(client pool.Handle, path string, method request.Method, callback string, node, headers pool.Handle) int32 {
	hdr := s.takeHeaders(headers)
	v, ok := s.nodes.Take(node)
	if !ok {
		v = jsonvalue.Null()
	}
	body, err := v.Stringify()
	if err != nil {
		s.log.Error("request body could not be encoded", zap.Error(err))
		return Failed
	}
	if hdr == nil {
		hdr = make(http.Header)
	}
	if hdr.Get("Content-Type") == "" {
		hdr.Set("Content-Type", "application/json")
	}
	return s.dispatch(client, request.Request{
		Callback: callback,
		Path:     path,
		Method:   method,
		Headers:  hdr,
		Body:     body,
	}, true)
}

func (s *Session) dispatch(client pool.Handle, req request.Request, asJSON bool) int32 {
	c, ok := s.clients.Get(client)
	if !ok {
		s.log.Warn("request on unknown client", zap.Int32("client", int32(client)))
		return Failed
	}
	id, err := c.Do(req, asJSON)
	if err != nil {
		s.log.Error("failed to dispatch request",
			zap.Int32("client", int32(client)),
			zap.String("path", req.Path),
			zap.Error(err))
		return Failed
	}
	return id
}
